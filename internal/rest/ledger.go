package rest

import (
	"blockRewards/domain"
	"blockRewards/pkg/logger"
	"blockRewards/pkg/utils"
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/AMFarhan21/fres"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type (
	LedgerHandler struct {
		validate      *validator.Validate
		ledgerService LedgerService
		timeout       time.Duration
	}

	LedgerService interface {
		Mode() string
		Register(ctx context.Context, email string) (domain.RegisterResult, error)
		Redeem(ctx context.Context, email string, rewardID int64) (domain.Transaction, error)
		AddReward(ctx context.Context, name, description string, cost, stock int64) (domain.Reward, error)
		CreditPoints(ctx context.Context, email string, amount int64, description string) (domain.Transaction, error)
		DebitPoints(ctx context.Context, email string, amount int64, description string) (domain.Transaction, error)
		ApplyReferral(ctx context.Context, email, referralCode string) ([]domain.Transaction, error)
		Rewards(ctx context.Context) ([]domain.Reward, error)
		Transactions(ctx context.Context, email string, category domain.TransactionCategory) ([]domain.Transaction, error)
		Balance(ctx context.Context, email string) (domain.BalanceView, error)
		Audit(ctx context.Context, email string) (domain.AuditReport, error)
	}

	RewardInput struct {
		Name        string  `json:"name" validate:"required"`
		Description string  `json:"description"`
		Cost        float64 `json:"cost" validate:"gte=0"`
		Stock       float64 `json:"stock" validate:"gte=0"`
	}

	PointsInput struct {
		Email       string  `json:"email" validate:"required"`
		Amount      float64 `json:"amount" validate:"required"`
		Description string  `json:"description"`
	}

	ReferralInput struct {
		ReferralCode string `json:"referral_code" validate:"required"`
	}
)

// NewLedgerHandler takes a timeout long enough to cover a chain confirmation.
func NewLedgerHandler(ledgerService LedgerService, timeout time.Duration) *LedgerHandler {
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	return &LedgerHandler{
		validate:      validator.New(),
		ledgerService: ledgerService,
		timeout:       timeout,
	}
}

func (h *LedgerHandler) Register(c echo.Context) error {
	email, _ := c.Get("email").(string)

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	res, err := h.ledgerService.Register(ctx, email)
	if err != nil {
		return c.JSON(statusFor(err), errorMessage(err))
	}

	if res.AlreadyRegistered {
		return c.JSON(http.StatusOK, fres.Response.StatusOK(res))
	}
	return c.JSON(http.StatusCreated, fres.Response.StatusCreated(res))
}

func (h *LedgerHandler) Redeem(c echo.Context) error {
	email, _ := c.Get("email").(string)

	rewardID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: "invalid reward id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	tx, err := h.ledgerService.Redeem(ctx, email, rewardID)
	if err != nil {
		return c.JSON(statusFor(err), errorMessage(err))
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(tx))
}

func (h *LedgerHandler) GetRewards(c echo.Context) error {
	rewards, err := h.ledgerService.Rewards(c.Request().Context())
	if err != nil {
		return c.JSON(statusFor(err), errorMessage(err))
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(rewards))
}

func (h *LedgerHandler) AddReward(c echo.Context) error {
	var request RewardInput

	if err := c.Bind(&request); err != nil {
		logger.Error("Invalid request body", "error", err)
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	if err := h.validate.Struct(&request); err != nil {
		logger.Error("Failed to validate reward", "error", err)
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	reward, err := h.ledgerService.AddReward(ctx, request.Name, request.Description,
		utils.TruncatePoints(request.Cost), utils.TruncatePoints(request.Stock))
	if err != nil {
		return c.JSON(statusFor(err), errorMessage(err))
	}

	return c.JSON(http.StatusCreated, fres.Response.StatusCreated(reward))
}

func (h *LedgerHandler) GetTransactions(c echo.Context) error {
	email, _ := c.Get("email").(string)
	category := domain.TransactionCategory(c.QueryParam("category"))

	txs, err := h.ledgerService.Transactions(c.Request().Context(), email, category)
	if err != nil {
		return c.JSON(statusFor(err), errorMessage(err))
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(txs))
}

func (h *LedgerHandler) GetBalance(c echo.Context) error {
	email, _ := c.Get("email").(string)

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	view, err := h.ledgerService.Balance(ctx, email)
	if err != nil {
		return c.JSON(statusFor(err), errorMessage(err))
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(view))
}

func (h *LedgerHandler) ApplyReferral(c echo.Context) error {
	email, _ := c.Get("email").(string)

	var request ReferralInput
	if err := c.Bind(&request); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	if err := h.validate.Struct(&request); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	txs, err := h.ledgerService.ApplyReferral(c.Request().Context(), email, request.ReferralCode)
	if err != nil {
		return c.JSON(statusFor(err), errorMessage(err))
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(txs))
}

func (h *LedgerHandler) CreditPoints(c echo.Context) error {
	return h.adjustPoints(c, h.ledgerService.CreditPoints)
}

func (h *LedgerHandler) DebitPoints(c echo.Context) error {
	return h.adjustPoints(c, h.ledgerService.DebitPoints)
}

func (h *LedgerHandler) adjustPoints(c echo.Context, apply func(context.Context, string, int64, string) (domain.Transaction, error)) error {
	var request PointsInput

	if err := c.Bind(&request); err != nil {
		logger.Error("Invalid request body", "error", err)
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	if err := h.validate.Struct(&request); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	tx, err := apply(c.Request().Context(), request.Email, utils.TruncatePoints(request.Amount), request.Description)
	if err != nil {
		return c.JSON(statusFor(err), errorMessage(err))
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(tx))
}

func (h *LedgerHandler) Audit(c echo.Context) error {
	email := c.QueryParam("email")
	if email == "" {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: "email is required"})
	}

	report, err := h.ledgerService.Audit(c.Request().Context(), email)
	if err != nil {
		return c.JSON(statusFor(err), errorMessage(err))
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(report))
}

func (h *LedgerHandler) Mode(c echo.Context) error {
	return c.JSON(http.StatusOK, fres.Response.StatusOK(map[string]string{"mode": h.ledgerService.Mode()}))
}
