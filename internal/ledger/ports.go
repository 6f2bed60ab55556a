// Package ledger is the persistence side of the budget: the keyed document
// store port, the collaborator that turns raw documents into usable ones,
// and decorators that add caching and remote sync.
package ledger

import (
	"context"
	"errors"

	"finanzas/internal/core"
)

// Ports for outbound adapters.
type (
	// Store keeps one AppData document per account key. Writes overwrite;
	// the last writer wins.
	Store interface {
		// Load returns the stored document and true, or false when the
		// account has never been saved.
		Load(ctx context.Context, account string) (core.AppData, bool, error)
		Save(ctx context.Context, account string, doc core.AppData) error
	}

	// AccountLister enumerates stored accounts for batch jobs.
	AccountLister interface {
		Accounts(ctx context.Context) ([]string, error)
	}

	// SyncPublisher announces that an account's document changed locally.
	SyncPublisher interface {
		PublishDocumentSync(ctx context.Context, account string) error
	}
)

// ErrNotListable is returned by decorators whose inner store cannot
// enumerate accounts.
var ErrNotListable = errors.New("store cannot list accounts")
