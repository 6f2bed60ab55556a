package main

import (
	"context"
	"flag"
	"os"
	"time"

	"finanzas/internal/cli"
	applog "finanzas/internal/log"
	"finanzas/internal/services"
)

func main() {
	once := flag.Bool("once", false, "carry salaries into the current month and exit")
	flag.Parse()

	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()

	logger, flush := cli.SetupLogger(cfg, applog.ComponentRollover)
	defer flush()
	logger.Info("Starting rollover-worker", "schedule", cfg.RolloverSchedule, "once", *once)

	ledgerStack, err := cli.OpenLedger(context.Background(), cfg, logger.Logger, cli.LedgerOptions{Publish: true, NoCache: true})
	if err != nil {
		logger.Error("Failed to initialize ledger", applog.FieldError, err)
		flush()
		os.Exit(1)
	}
	defer ledgerStack.Close()

	processor := services.NewRolloverProcessor(ledgerStack.Service, ledgerStack.Store, logger.Logger)

	if *once {
		count, err := processor.Process(context.Background(), time.Now())
		if err != nil {
			logger.Error("Rollover failed", applog.FieldError, err)
			_ = ledgerStack.Close()
			flush()
			os.Exit(1)
		}
		logger.Info("Rollover complete", applog.FieldCount, count)
		return
	}

	scheduler := services.NewRolloverScheduler(processor, cfg.RolloverSchedule, logger.Logger)
	ctx, done := cli.GracefulShutdown(logger.Logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := scheduler.Stop(shutdownCtx); err != nil {
			logger.Error("Failed to stop rollover scheduler", applog.FieldError, err)
		}
	})

	if err := scheduler.Start(ctx); err != nil {
		logger.Error("Failed to start rollover scheduler", applog.FieldError, err)
		_ = ledgerStack.Close()
		flush()
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Rollover-worker shutdown complete")
}
