// Package postgres stores ledger documents as JSONB rows in PostgreSQL.
package postgres

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"finanzas/internal/core"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type Store struct {
	pool *pgxpool.Pool
}

// Connect opens a pool, checks it and applies pending migrations.
func Connect(ctx context.Context, url string) (*Store, error) {
	if err := RunMigrations(url); err != nil {
		return nil, err
	}

	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{pool: pool}, nil
}

// RunMigrations applies the embedded migrations. The pgx/v5 migrate driver
// registers the pgx5 scheme, so postgres:// URLs are rewritten.
func RunMigrations(url string) error {
	d, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create iofs source: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", d, migrateURL(url))
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

func migrateURL(url string) string {
	for _, prefix := range []string{"postgresql://", "postgres://"} {
		if strings.HasPrefix(url, prefix) {
			return "pgx5://" + strings.TrimPrefix(url, prefix)
		}
	}
	return url
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) Load(ctx context.Context, account string) (core.AppData, bool, error) {
	var body []byte
	err := s.pool.QueryRow(ctx, `SELECT body FROM ledger_documents WHERE account = $1`, account).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.AppData{}, false, nil
	}
	if err != nil {
		return core.AppData{}, false, fmt.Errorf("query document %s: %w", account, err)
	}
	var doc core.AppData
	if err := json.Unmarshal(body, &doc); err != nil {
		return core.AppData{}, false, fmt.Errorf("decode document %s: %w", account, err)
	}
	return doc, true, nil
}

func (s *Store) Save(ctx context.Context, account string, doc core.AppData) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document %s: %w", account, err)
	}
	query := `
		INSERT INTO ledger_documents (account, body, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (account) DO UPDATE SET body = EXCLUDED.body, updated_at = now()`
	if _, err := s.pool.Exec(ctx, query, account, string(body)); err != nil {
		return fmt.Errorf("save document %s: %w", account, err)
	}
	return nil
}

func (s *Store) Accounts(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT account FROM ledger_documents ORDER BY account`)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	accounts, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan accounts: %w", err)
	}
	return accounts, nil
}
