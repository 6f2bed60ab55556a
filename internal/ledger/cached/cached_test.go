package cached

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finanzas/internal/core"
	"finanzas/internal/ledger/memory"
)

type countingStore struct {
	*memory.Store
	loads   atomic.Int64
	saveErr error
}

func (c *countingStore) Load(ctx context.Context, account string) (core.AppData, bool, error) {
	c.loads.Add(1)
	return c.Store.Load(ctx, account)
}

func (c *countingStore) Save(ctx context.Context, account string, doc core.AppData) error {
	if c.saveErr != nil {
		return c.saveErr
	}
	return c.Store.Save(ctx, account, doc)
}

// pausingStore holds its first Load after reading until release is closed.
type pausingStore struct {
	*memory.Store
	once    sync.Once
	read    chan struct{}
	release chan struct{}
}

func (p *pausingStore) Load(ctx context.Context, account string) (core.AppData, bool, error) {
	doc, ok, err := p.Store.Load(ctx, account)
	p.once.Do(func() {
		close(p.read)
		<-p.release
	})
	return doc, ok, err
}

func TestCachedStoreSlowMissDoesNotOverwriteNewerSave(t *testing.T) {
	ctx := context.Background()
	inner := &pausingStore{Store: memory.New(), read: make(chan struct{}), release: make(chan struct{})}
	dark := core.DefaultAppData(core.TemplateClassic)
	dark.Theme = core.ThemeDark
	require.NoError(t, inner.Store.Save(ctx, "acc", dark))

	s, err := New(inner, DefaultConfig())
	require.NoError(t, err)
	defer s.Close()

	loaded := make(chan core.Theme, 1)
	go func() {
		doc, _, _ := s.Load(ctx, "acc")
		loaded <- doc.Theme
	}()
	<-inner.read

	light := dark.Clone()
	light.Theme = core.ThemeLight
	require.NoError(t, s.Save(ctx, "acc", light))
	close(inner.release)
	assert.Equal(t, core.ThemeDark, <-loaded)
	s.Wait()

	doc, ok, err := s.Load(ctx, "acc")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, core.ThemeLight, doc.Theme)
}

func TestCachedStoreServesRepeatedReadsFromCache(t *testing.T) {
	ctx := context.Background()
	inner := &countingStore{Store: memory.New()}
	require.NoError(t, inner.Store.Save(ctx, "acc", core.DefaultAppData(core.TemplateClassic)))

	s, err := New(inner, DefaultConfig())
	require.NoError(t, err)
	defer s.Close()

	doc, ok, err := s.Load(ctx, "acc")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, doc.Fields, 4)
	s.Wait()

	for i := 0; i < 5; i++ {
		_, ok, err := s.Load(ctx, "acc")
		require.NoError(t, err)
		require.True(t, ok)
	}
	assert.Equal(t, int64(1), inner.loads.Load())
}

func TestCachedStoreReturnsPrivateCopies(t *testing.T) {
	ctx := context.Background()
	s, err := New(memory.New(), DefaultConfig())
	require.NoError(t, err)
	defer s.Close()

	doc := core.DefaultAppData(core.TemplateClassic)
	doc.SetMonth("2025-01", core.MonthlyData{Expenses: map[string]float64{"s_rent": 1}})
	require.NoError(t, s.Save(ctx, "acc", doc))
	s.Wait()

	first, _, _ := s.Load(ctx, "acc")
	first.Months["2025-01"].Expenses["s_rent"] = 42

	second, _, _ := s.Load(ctx, "acc")
	assert.Equal(t, 1.0, second.Months["2025-01"].Expenses["s_rent"])
}

func TestCachedStoreWriteThroughAndMiss(t *testing.T) {
	ctx := context.Background()
	inner := &countingStore{Store: memory.New()}
	s, err := New(inner, DefaultConfig())
	require.NoError(t, err)
	defer s.Close()

	_, ok, err := s.Load(ctx, "nobody")
	require.NoError(t, err)
	assert.False(t, ok)

	doc := core.DefaultAppData(core.TemplateSimple)
	doc.Theme = core.ThemeLight
	require.NoError(t, s.Save(ctx, "acc", doc))

	stored, ok, err := inner.Store.Load(ctx, "acc")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, core.ThemeLight, stored.Theme)

	inner.saveErr = errors.New("disk full")
	assert.Error(t, s.Save(ctx, "acc", doc))

	accounts, err := s.Accounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"acc"}, accounts)
}

func TestCachedStoreInvalidateForcesReload(t *testing.T) {
	ctx := context.Background()
	inner := &countingStore{Store: memory.New()}
	require.NoError(t, inner.Store.Save(ctx, "acc", core.DefaultAppData(core.TemplateClassic)))

	s, err := New(inner, DefaultConfig())
	require.NoError(t, err)
	defer s.Close()

	_, _, err = s.Load(ctx, "acc")
	require.NoError(t, err)
	s.Wait()

	s.Invalidate("acc")
	_, ok, err := s.Load(ctx, "acc")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(2), inner.loads.Load())
}
