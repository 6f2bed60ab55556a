// Package worker copies ledger documents from the primary store to a
// mirror backend in response to sync messages.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"finanzas/internal/amqp"
	"finanzas/internal/ledger"
	applog "finanzas/internal/log"
)

// MirrorWorker replays local documents into a mirror store.
type MirrorWorker struct {
	local       ledger.Store
	mirror      ledger.Store
	concurrency int
	logger      *slog.Logger
}

func NewMirrorWorker(local, mirror ledger.Store, concurrency int, logger *slog.Logger) *MirrorWorker {
	if concurrency <= 0 {
		concurrency = 4
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &MirrorWorker{
		local:       local,
		mirror:      mirror,
		concurrency: concurrency,
		logger:      logger.With(applog.FieldComponent, applog.ComponentWorker),
	}
}

// HandleSyncMessage mirrors the account named by msg. An account missing
// locally has nothing to mirror and is not an error.
func (w *MirrorWorker) HandleSyncMessage(ctx context.Context, msg *amqp.DocumentSyncMessage) error {
	return w.mirrorAccount(ctx, msg.Account)
}

func (w *MirrorWorker) mirrorAccount(ctx context.Context, account string) error {
	doc, ok, err := w.local.Load(ctx, account)
	if err != nil {
		return fmt.Errorf("load %s from local store: %w", account, err)
	}
	if !ok {
		w.logger.WarnContext(ctx, "Sync requested for unknown account", applog.FieldAccount, account)
		return nil
	}
	if err := w.mirror.Save(ctx, account, doc); err != nil {
		return fmt.Errorf("save %s to mirror: %w", account, err)
	}
	w.logger.InfoContext(ctx, "Mirrored document",
		applog.FieldAccount, account,
		applog.FieldOperation, applog.OpSync)
	return nil
}

// StartupSync mirrors every local account, covering messages lost while the
// worker was down. Individual failures are logged and counted, not returned.
func (w *MirrorWorker) StartupSync(ctx context.Context) (synced, failed int, err error) {
	lister, ok := w.local.(ledger.AccountLister)
	if !ok {
		return 0, 0, ledger.ErrNotListable
	}
	accounts, err := lister.Accounts(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("list local accounts: %w", err)
	}
	if len(accounts) == 0 {
		w.logger.InfoContext(ctx, "No local documents to mirror on startup")
		return 0, 0, nil
	}

	var ok64, failed64 atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.concurrency)
	for _, account := range accounts {
		g.Go(func() error {
			if err := w.mirrorAccount(gctx, account); err != nil {
				failed64.Add(1)
				w.logger.ErrorContext(gctx, "Startup mirror failed",
					applog.FieldAccount, account,
					applog.FieldError, err)
				return nil
			}
			ok64.Add(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return int(ok64.Load()), int(failed64.Load()), err
	}

	w.logger.InfoContext(ctx, "Startup sync completed",
		applog.FieldCount, len(accounts),
		"synced", ok64.Load(),
		"errors", failed64.Load())
	return int(ok64.Load()), int(failed64.Load()), nil
}
