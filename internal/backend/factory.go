package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"finanzas/internal/ledger"
	"finanzas/internal/ledger/cached"
	"finanzas/internal/ledger/firestore"
	"finanzas/internal/ledger/memory"
	"finanzas/internal/ledger/mongo"
	"finanzas/internal/ledger/postgres"
	"finanzas/internal/ledger/sqlite"
	applog "finanzas/internal/log"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) *DefaultFactory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger.With(applog.FieldComponent, applog.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case MemoryBackend:
		return f.createMemoryBackend(config)
	case SQLiteBackend:
		return f.createSQLiteBackend(config)
	case PostgresBackend:
		return f.createPostgresBackend(ctx, config)
	case MongoBackend:
		return f.createMongoBackend(ctx, config)
	case FirestoreBackend:
		return f.createFirestoreBackend(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*BackendResult, error) {
	dataDir := config.DataDirectory
	if dataDir == "" {
		dataDir = "data"
	}
	store := memory.NewFromDir(dataDir)
	f.logger.Info("Initialized memory backend", "data_directory", dataDir)
	return &BackendResult{Backend: store}, nil
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	store, err := sqlite.New(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
	}
	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	return &BackendResult{Backend: store, Cleanup: store.Close}, nil
}

func (f *DefaultFactory) createPostgresBackend(ctx context.Context, config Config) (*BackendResult, error) {
	store, err := postgres.Connect(ctx, config.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Postgres store: %w", err)
	}
	f.logger.Info("Initialized Postgres backend")
	return &BackendResult{Backend: store, Cleanup: store.Close}, nil
}

func (f *DefaultFactory) createMongoBackend(ctx context.Context, config Config) (*BackendResult, error) {
	store, err := mongo.Connect(ctx, config.MongoURI, config.MongoDatabase, "")
	if err != nil {
		return nil, fmt.Errorf("failed to initialize MongoDB store: %w", err)
	}
	f.logger.Info("Initialized MongoDB backend", "database", config.MongoDatabase)
	return &BackendResult{Backend: store, Cleanup: store.Close}, nil
}

func (f *DefaultFactory) createFirestoreBackend(ctx context.Context, config Config) (*BackendResult, error) {
	store, err := firestore.New(ctx, firestore.Config{
		ProjectID:       config.FirestoreProject,
		Collection:      config.FirestoreCollection,
		CredentialsJSON: config.GoogleCredentials,
		Endpoint:        config.FirestoreEndpoint,
		Logger:          f.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firestore store: %w", err)
	}
	f.logger.Info("Initialized Firestore backend",
		"project", config.FirestoreProject,
		"emulator", config.FirestoreEndpoint != "")
	return &BackendResult{Backend: store}, nil
}

// StackOptions selects the decorators Stack puts in front of a backend.
type StackOptions struct {
	// CacheMaxDocuments <= 0 disables the read cache.
	CacheMaxDocuments int64
	CacheTTL          time.Duration
	// Publisher, when set, announces every successful save.
	Publisher ledger.SyncPublisher
}

// Stack wraps a backend with the configured decorators. Reads go through
// the cache; writes go to the backend and are then announced.
func (f *DefaultFactory) Stack(base *BackendResult, opts StackOptions) (*BackendResult, error) {
	var store Backend = base.Backend
	cleanups := []CleanupFunc{base.Cleanup}

	if opts.CacheMaxDocuments > 0 {
		c, err := cached.New(store, cached.Config{MaxDocuments: opts.CacheMaxDocuments, TTL: opts.CacheTTL})
		if err != nil {
			return nil, fmt.Errorf("create document cache: %w", err)
		}
		store = c
		cleanups = append(cleanups, c.Close)
		f.logger.Info("Document cache enabled", "max_documents", opts.CacheMaxDocuments, "ttl", opts.CacheTTL)
	}
	if opts.Publisher != nil {
		store = ledger.NewSyncingStore(store, opts.Publisher, f.logger)
		f.logger.Info("Sync publishing enabled")
	}

	return &BackendResult{
		Backend: store,
		Cleanup: func() error {
			var errs []error
			for i := len(cleanups) - 1; i >= 0; i-- {
				if cleanups[i] != nil {
					errs = append(errs, cleanups[i]())
				}
			}
			return errors.Join(errs...)
		},
	}, nil
}
