// Package backend builds ledger stores from configuration.
package backend

import (
	"context"

	"finanzas/internal/ledger"
)

// Backend is a document store that can also enumerate its accounts. Every
// store package satisfies it.
type Backend interface {
	ledger.Store
	ledger.AccountLister
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the backend instance and optional cleanup function
type BackendResult struct {
	Backend Backend
	Cleanup CleanupFunc
}

// Close runs Cleanup when set.
func (r *BackendResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// Memory
	DataDirectory string

	// SQLite
	SQLiteDBPath string

	// Postgres
	DatabaseURL string

	// MongoDB
	MongoURI      string
	MongoDatabase string

	// Firestore
	FirestoreProject    string
	FirestoreCollection string
	FirestoreEndpoint   string
	GoogleCredentials   []byte
}

// BackendType represents the type of backend
type BackendType string

const (
	MemoryBackend    BackendType = "memory"
	SQLiteBackend    BackendType = "sqlite"
	PostgresBackend  BackendType = "postgres"
	MongoBackend     BackendType = "mongo"
	FirestoreBackend BackendType = "firestore"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend, PostgresBackend, MongoBackend, FirestoreBackend:
		return true
	default:
		return false
	}
}
