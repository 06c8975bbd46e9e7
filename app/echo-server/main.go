package main

import (
	"blockRewards/app/echo-server/router"
	userService "blockRewards/business/user"
	"blockRewards/internal/middleware"
	"blockRewards/internal/rest"
	"blockRewards/pkg/config"
	"blockRewards/pkg/logger"
	"blockRewards/pkg/metrics"
	"blockRewards/pkg/snowflake"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.Init(logger.Options{
		Environment: cfg.App.Environment,
		Level:       cfg.Log.Level,
		File:        cfg.Log.File,
	})
	defer logger.Sync()

	if err := snowflake.Init(cfg.App.SnowflakeID); err != nil {
		logger.Fatal("Failed to init id generator", "error", err)
	}

	cliApp := &cli.App{
		Name:    "blockrewards",
		Usage:   "loyalty points ledger",
		Version: cfg.App.Version,
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "start http server",
				Action: func(c *cli.Context) error {
					return serve(c.Context, cfg)
				},
			},
			{
				Name:  "audit",
				Usage: "compare balances with transaction logs",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Usage: "audit a single user"},
					&cli.BoolFlag{Name: "drift-only", Usage: "only print users whose balance disagrees with the log"},
				},
				Action: func(c *cli.Context) error {
					return audit(c.Context, cfg, c.String("email"), c.Bool("drift-only"))
				},
			},
		},
		DefaultCommand: "serve",
	}

	if err := cliApp.Run(os.Args); err != nil {
		logger.Fatal("Command failed", "error", err)
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	logger.Info("Starting BlockRewards", "version", cfg.App.Version)

	metrics.Init()

	app, err := newApplication(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer app.Close()

	logger.Info("Ledger ready", "mode", app.ledger.Mode())

	// Init validate
	validate := validator.New()

	// Init service
	userSvc := userService.NewUserService(app.store, validate, app.mirror, cfg.App.BcryptCost, cfg.App.ReferralSalt)

	// Init handler
	ledgerTimeout := cfg.Server.RequestTimeout
	if cfg.Chain.Enabled() {
		ledgerTimeout += cfg.Chain.ConfirmTimeout
	}
	userHandler := rest.NewUserHandler(userSvc, rest.TokenConfig{
		Secret:      []byte(cfg.JWT.SecretKey),
		TTL:         cfg.JWT.TTL,
		AdminEmails: cfg.App.AdminEmails,
	}, cfg.Server.RequestTimeout)
	ledgerHandler := rest.NewLedgerHandler(app.ledger, ledgerTimeout)

	// Init echo
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.HTTPErrorHandler = middleware.ErrorHandler

	// Global middleware
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: cfg.Server.AllowOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	authRequired := middleware.AuthMiddleware([]byte(cfg.JWT.SecretKey))
	adminOnly := middleware.AdminOnly()

	api := e.Group("/api/v1")
	router.SetupUserRoutes(api, userHandler, authRequired)
	router.SetupLedgerRoutes(api, ledgerHandler, authRequired, adminOnly)

	// Goroutine server
	errCh := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%s", cfg.Server.Port)
		logger.Info("Server starting", "address", addr)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	}

	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}

	logger.Info("Server stopped")
	return nil
}

// audit prints one JSON report per line to stdout. It only reads local
// state, so the chain is never dialled.
func audit(ctx context.Context, cfg *config.Config, email string, driftOnly bool) error {
	app, err := newApplication(ctx, cfg, false)
	if err != nil {
		return err
	}
	defer app.Close()

	emails := []string{email}
	if email == "" {
		emails = emails[:0]
		for _, u := range app.store.All() {
			emails = append(emails, u.Email)
		}
	}

	enc := json.NewEncoder(os.Stdout)
	drifting := 0
	for _, e := range emails {
		report, err := app.ledger.Audit(ctx, e)
		if err != nil {
			return fmt.Errorf("audit %s: %w", e, err)
		}
		if report.Drift != 0 {
			drifting++
		} else if driftOnly {
			continue
		}
		if err := enc.Encode(report); err != nil {
			return err
		}
	}

	logger.Info("Audit finished", "users", len(emails), "drifting", drifting)
	return nil
}
