package ledger

import (
	"context"
	"log/slog"

	"finanzas/internal/core"
	applog "finanzas/internal/log"
)

// SyncingStore saves to the local store first and then announces the change
// so a worker can mirror the document remotely. A failed announcement is
// logged and dropped: the local write already succeeded.
type SyncingStore struct {
	Store
	publisher SyncPublisher
	logger    *slog.Logger
}

func NewSyncingStore(local Store, publisher SyncPublisher, logger *slog.Logger) *SyncingStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &SyncingStore{
		Store:     local,
		publisher: publisher,
		logger:    logger.With(applog.FieldComponent, applog.ComponentSync),
	}
}

func (s *SyncingStore) Save(ctx context.Context, account string, doc core.AppData) error {
	if err := s.Store.Save(ctx, account, doc); err != nil {
		return err
	}
	if s.publisher == nil {
		return nil
	}
	if err := s.publisher.PublishDocumentSync(ctx, account); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish sync message",
			applog.FieldAccount, account,
			applog.FieldError, err)
	}
	return nil
}

// Accounts delegates to the local store when it can enumerate accounts.
func (s *SyncingStore) Accounts(ctx context.Context) ([]string, error) {
	if l, ok := s.Store.(AccountLister); ok {
		return l.Accounts(ctx)
	}
	return nil, ErrNotListable
}
