// Package sqlite stores ledger documents in an embedded SQLite database,
// one JSON row per account.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"finanzas/internal/core"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single writer avoids SQLITE_BUSY under concurrent saves.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) Load(ctx context.Context, account string) (core.AppData, bool, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM documents WHERE account = ?`, account).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return core.AppData{}, false, nil
	}
	if err != nil {
		return core.AppData{}, false, fmt.Errorf("query document %s: %w", account, err)
	}
	var doc core.AppData
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return core.AppData{}, false, fmt.Errorf("decode document %s: %w", account, err)
	}
	return doc, true, nil
}

func (s *Store) Save(ctx context.Context, account string, doc core.AppData) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document %s: %w", account, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (account, body, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(account) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`,
		account, string(body), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("save document %s: %w", account, err)
	}
	return nil
}

func (s *Store) Accounts(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT account FROM documents ORDER BY account`)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var a string
		if err := rows.Scan(&a); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
