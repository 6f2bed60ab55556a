// Package cached wraps a ledger store with an in-process read cache.
//
// Documents are cached as encoded JSON so every Load hands out a private
// copy. Concurrent misses for the same account share one backend read. A
// miss only fills the cache when no Save or Invalidate for the account ran
// while it was reading.
package cached

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"golang.org/x/sync/singleflight"

	"finanzas/internal/core"
	"finanzas/internal/ledger"
)

// Config holds cache sizing.
type Config struct {
	MaxDocuments int64
	TTL          time.Duration
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		MaxDocuments: 1000,
		TTL:          5 * time.Minute,
	}
}

type Store struct {
	inner ledger.Store
	cache *ristretto.Cache[string, []byte]
	group singleflight.Group
	ttl   time.Duration

	mu       sync.Mutex
	versions map[string]uint64
}

type loadResult struct {
	raw   []byte
	found bool
}

func New(inner ledger.Store, cfg Config) (*Store, error) {
	if cfg.MaxDocuments <= 0 {
		cfg.MaxDocuments = DefaultConfig().MaxDocuments
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultConfig().TTL
	}
	cache, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: cfg.MaxDocuments * 10,
		MaxCost:     cfg.MaxDocuments,
		BufferItems: 64,
		// Cost is counted in documents, not bytes.
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create cache: %w", err)
	}
	return &Store{inner: inner, cache: cache, ttl: cfg.TTL, versions: make(map[string]uint64)}, nil
}

func (s *Store) Load(ctx context.Context, account string) (core.AppData, bool, error) {
	if raw, ok := s.cache.Get(account); ok {
		return decode(account, raw)
	}

	v, err, _ := s.group.Do(account, func() (any, error) {
		s.mu.Lock()
		version := s.versions[account]
		s.mu.Unlock()

		doc, found, err := s.inner.Load(ctx, account)
		if err != nil || !found {
			return loadResult{found: false}, err
		}
		raw, err := json.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("encode document %s: %w", account, err)
		}
		s.mu.Lock()
		if s.versions[account] == version {
			s.cache.SetWithTTL(account, raw, 1, s.ttl)
		}
		s.mu.Unlock()
		return loadResult{raw: raw, found: true}, nil
	})
	if err != nil {
		return core.AppData{}, false, err
	}
	res := v.(loadResult)
	if !res.found {
		return core.AppData{}, false, nil
	}
	return decode(account, res.raw)
}

// Save writes through to the inner store. The cached copy is dropped on
// failure so the next read goes to the backend.
func (s *Store) Save(ctx context.Context, account string, doc core.AppData) error {
	if err := s.inner.Save(ctx, account, doc); err != nil {
		s.Invalidate(account)
		return err
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		s.Invalidate(account)
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.versions[account]++
	if !s.cache.SetWithTTL(account, raw, 1, s.ttl) {
		s.cache.Del(account)
	}
	return nil
}

// Invalidate drops the cached copy of account.
func (s *Store) Invalidate(account string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.versions[account]++
	s.cache.Del(account)
}

// Accounts delegates to the inner store when it can enumerate accounts.
func (s *Store) Accounts(ctx context.Context) ([]string, error) {
	if l, ok := s.inner.(ledger.AccountLister); ok {
		return l.Accounts(ctx)
	}
	return nil, ledger.ErrNotListable
}

// Wait blocks until buffered cache writes are applied.
func (s *Store) Wait() {
	s.cache.Wait()
}

func (s *Store) Close() error {
	s.cache.Close()
	return nil
}

func decode(account string, raw []byte) (core.AppData, bool, error) {
	var doc core.AppData
	if err := json.Unmarshal(raw, &doc); err != nil {
		return core.AppData{}, false, fmt.Errorf("decode cached document %s: %w", account, err)
	}
	return doc, true, nil
}
