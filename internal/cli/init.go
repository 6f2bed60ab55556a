// Package cli provides common initialization utilities shared by
// cmd/finanzas, cmd/finanzas-worker, cmd/rollover-worker and cmd/finanzasctl.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"finanzas/internal/amqp"
	"finanzas/internal/backend"
	"finanzas/internal/config"
	"finanzas/internal/ledger"
	applog "finanzas/internal/log"
)

// Version is stamped at build time with -ldflags.
var Version = "dev"

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig() *config.Config {
	cfg, err := config.Load()
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		slog.Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// SetupLogger builds the process logger from cfg and makes it the default.
// Records at error level are also sent to Sentry when a DSN is configured.
// The returned func flushes Sentry and must run before exit.
func SetupLogger(cfg *config.Config, component string) (*applog.Logger, func()) {
	level, _ := applog.ParseLevel(cfg.LogLevel)
	format, _ := applog.ParseFormat(cfg.LogFormat)
	logCfg := applog.Config{
		Level:     level,
		Format:    format,
		Component: component,
		Output:    os.Stdout,
	}

	flush, err := applog.InitSentry(cfg.SentryDSN, cfg.SentryEnvironment, Version)
	if err == nil && cfg.SentryDSN != "" {
		logCfg.Handler = applog.NewSentryHandler(applog.NewHandler(logCfg), nil)
	}

	logger := applog.New(logCfg)
	applog.SetDefault(logger)
	if err != nil {
		logger.Warn("Sentry disabled", applog.FieldError, err)
	}
	return logger, flush
}

// Ledger bundles the engine's persistence collaborator with the resources
// behind it.
type Ledger struct {
	Service *ledger.Service
	// Store is the decorated primary store; it also lists accounts.
	Store backend.Backend

	stack *backend.BackendResult
	amqp  *amqp.Client
}

// LedgerOptions selects how OpenLedger decorates the primary store.
type LedgerOptions struct {
	// Publish announces saves on AMQP when AMQP_URL is set.
	Publish bool
	// NoCache bypasses the document cache regardless of configuration.
	NoCache bool
}

// OpenLedger opens the configured primary backend and wraps it with the
// document cache and, when asked and configured, the AMQP sync publisher.
// A broker that cannot be reached is logged and skipped; documents still
// persist locally.
func OpenLedger(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts LedgerOptions) (*Ledger, error) {
	factory := backend.NewFactory(logger)
	backendCfg, err := backend.FromAppConfig(cfg, backend.RolePrimary)
	if err != nil {
		return nil, err
	}
	base, err := factory.CreateBackend(ctx, backendCfg)
	if err != nil {
		return nil, err
	}

	l := &Ledger{}
	stackOpts := backend.StackOptions{CacheTTL: cfg.CacheTTL}
	if !opts.NoCache {
		stackOpts.CacheMaxDocuments = int64(cfg.CacheMaxDocuments)
	}

	if opts.Publish && cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without mirror sync", applog.FieldError, err)
		} else {
			l.amqp = client
			stackOpts.Publisher = client
			logger.Info("AMQP client initialized, saves will be mirrored by finanzas-worker")
		}
	}

	stack, err := factory.Stack(base, stackOpts)
	if err != nil {
		_ = base.Close()
		l.closeAMQP()
		return nil, err
	}
	l.stack = stack
	l.Store = stack.Backend
	l.Service = ledger.NewService(stack.Backend, ledger.Options{
		Template:               cfg.Template(),
		SnapshotFieldsPerMonth: cfg.SnapshotFieldsPerMonth,
		Logger:                 logger,
	})
	return l, nil
}

func (l *Ledger) closeAMQP() error {
	if l.amqp == nil {
		return nil
	}
	return l.amqp.Close()
}

// Close releases the store stack and the broker connection.
func (l *Ledger) Close() error {
	if l == nil {
		return nil
	}
	return errors.Join(l.stack.Close(), l.closeAMQP())
}

// OpenMirror opens the configured mirror backend. It returns
// backend.ErrNoMirror when none is set.
func OpenMirror(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*backend.BackendResult, error) {
	backendCfg, err := backend.FromAppConfig(cfg, backend.RoleMirror)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		return nil, fmt.Errorf("open mirror backend: %w", err)
	}
	return res, nil
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that signals when shutdown is complete.
func GracefulShutdown(logger *slog.Logger, timeout time.Duration, cleanup func(context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		cancel()
		if cleanup != nil {
			cleanup(shutdownCtx)
		}

		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached")
		} else {
			logger.Info("Shutdown complete")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled and cleanup ran.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
