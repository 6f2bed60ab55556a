package main

import (
	"context"
	"errors"
	"os"
	"time"

	"finanzas/internal/amqp"
	"finanzas/internal/backend"
	"finanzas/internal/cli"
	applog "finanzas/internal/log"
	"finanzas/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()

	logger, flush := cli.SetupLogger(cfg, applog.ComponentWorker)
	defer flush()
	logger.Info("Starting finanzas-worker")

	fail := func(msg string, err error) {
		logger.Error(msg, applog.FieldError, err)
		flush()
		os.Exit(1)
	}

	if cfg.AMQPURL == "" {
		fail("AMQP_URL is required", errors.New("missing AMQP_URL"))
	}

	// The worker reads the primary store directly so a cache never serves
	// it a stale document.
	local, err := cli.OpenLedger(context.Background(), cfg, logger.Logger, cli.LedgerOptions{NoCache: true})
	if err != nil {
		fail("Failed to initialize primary backend", err)
	}
	defer local.Close()

	mirror, err := cli.OpenMirror(context.Background(), cfg, logger.Logger)
	if errors.Is(err, backend.ErrNoMirror) {
		fail("MIRROR_BACKEND is required", err)
	}
	if err != nil {
		fail("Failed to initialize mirror backend", err)
	}
	defer mirror.Close()

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger.Logger)
	if err != nil {
		fail("Failed to initialize AMQP client", err)
	}
	defer amqpClient.Close()

	ctx, done := cli.GracefulShutdown(logger.Logger, 30*time.Second, nil)

	mirrorWorker := worker.NewMirrorWorker(local.Store, mirror.Backend, cfg.SyncConcurrency, logger.Logger)

	logger.Info("Performing startup sync check...", "mirror", cfg.MirrorBackend)
	if _, failed, err := mirrorWorker.StartupSync(ctx); err != nil {
		logger.Error("Failed startup sync check", applog.FieldError, err)
	} else if failed > 0 {
		logger.Warn("Startup sync finished with errors", "errors", failed)
	}

	go func() {
		err := amqpClient.ConsumeDocumentSync(ctx, mirrorWorker.HandleSyncMessage)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", applog.FieldError, err)
		}
	}()

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker shutdown complete")
}
