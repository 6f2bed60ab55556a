package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"finanzas/internal/cli"
	apphttp "finanzas/internal/http"
	applog "finanzas/internal/log"
	"finanzas/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()

	logger, flush := cli.SetupLogger(cfg, applog.ComponentApp)
	defer flush()

	ledgerStack, err := cli.OpenLedger(context.Background(), cfg, logger.Logger, cli.LedgerOptions{Publish: true})
	if err != nil {
		logger.Error("Failed to initialize ledger", applog.FieldBackend, cfg.DataBackend, applog.FieldError, err)
		flush()
		os.Exit(1)
	}

	sessions := services.NewSessions(ledgerStack.Service, services.SessionOptions{
		IdleTimeout:  cfg.SessionIdleTimeout,
		RefreshAfter: cfg.SessionRefresh,
		Logger:       logger.Logger,
	})
	srv := apphttp.NewServer(sessions, apphttp.Options{
		Addr:               ":" + cfg.Port,
		JWTSecret:          cfg.JWTSecret,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Logger:             logger,
	})

	ctx, done := cli.GracefulShutdown(logger.Logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
		if err := ledgerStack.Close(); err != nil {
			logger.Error("Failed to close ledger", applog.FieldError, err)
		}
	})

	go sessions.Run(ctx)

	logger.Info("Starting finanzas server",
		"port", cfg.Port,
		applog.FieldBackend, cfg.DataBackend,
		"auth", cfg.JWTSecret != "",
		"snapshot_fields", cfg.SnapshotFieldsPerMonth)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		_ = ledgerStack.Close()
		flush()
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
