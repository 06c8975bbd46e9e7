package router

import (
	"blockRewards/internal/rest"

	"github.com/labstack/echo/v4"
)

func SetupUserRoutes(api *echo.Group, handler *rest.UserHandler, authRequired echo.MiddlewareFunc) {
	users := api.Group("/users")

	users.POST("/signup", handler.Signup)
	users.POST("/login", handler.Login)

	users.GET("/me", handler.Me, authRequired)
	users.PUT("/me/wallet", handler.UpdateWallet, authRequired)
	users.GET("/me/mirror", handler.Mirror, authRequired)
}

func SetupLedgerRoutes(api *echo.Group, handler *rest.LedgerHandler, authRequired echo.MiddlewareFunc, adminOnly echo.MiddlewareFunc) {
	ledger := api.Group("/ledger", authRequired)

	ledger.GET("/mode", handler.Mode)
	ledger.POST("/register", handler.Register)
	ledger.POST("/redeem/:id", handler.Redeem)
	ledger.GET("/rewards", handler.GetRewards)
	ledger.GET("/transactions", handler.GetTransactions)
	ledger.GET("/balance", handler.GetBalance)
	ledger.POST("/referral", handler.ApplyReferral)

	ledger.POST("/rewards", handler.AddReward, adminOnly)
	ledger.POST("/points/credit", handler.CreditPoints, adminOnly)
	ledger.POST("/points/debit", handler.DebitPoints, adminOnly)
	ledger.GET("/audit", handler.Audit, adminOnly)
}
