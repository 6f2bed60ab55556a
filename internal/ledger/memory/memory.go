package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"finanzas/internal/core"
)

// Store keeps documents in process memory. Documents are stored as JSON so
// callers never share maps with the store.
type Store struct {
	mu   sync.Mutex
	docs map[string][]byte
}

func New() *Store {
	return &Store{docs: make(map[string][]byte)}
}

// NewFromDir seeds the store with every <account>.json file in base.
// Unreadable or malformed files are skipped.
func NewFromDir(base string) *Store {
	s := New()
	matches, _ := filepath.Glob(filepath.Join(base, "*.json"))
	for _, path := range matches {
		raw, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var doc core.AppData
		if err := json.Unmarshal(raw, &doc); err != nil {
			continue
		}
		account := strings.TrimSuffix(filepath.Base(path), ".json")
		s.docs[account] = raw
	}
	return s
}

func (s *Store) Load(_ context.Context, account string) (core.AppData, bool, error) {
	s.mu.Lock()
	raw, ok := s.docs[account]
	s.mu.Unlock()
	if !ok {
		return core.AppData{}, false, nil
	}
	var doc core.AppData
	if err := json.Unmarshal(raw, &doc); err != nil {
		return core.AppData{}, false, fmt.Errorf("decode document %s: %w", account, err)
	}
	return doc, true, nil
}

func (s *Store) Save(_ context.Context, account string, doc core.AppData) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document %s: %w", account, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[account] = raw
	return nil
}

// Accounts returns the stored account keys, sorted.
func (s *Store) Accounts(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.docs))
	for k := range s.docs {
		out = append(out, k)
	}
	sort.Strings(out)
	return out, nil
}
