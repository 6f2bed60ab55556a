package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finanzas/internal/core"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "data", "finanzas.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, ok, err := s.Load(ctx, "acc")
	require.NoError(t, err)
	assert.False(t, ok)

	doc := core.DefaultAppData(core.TemplateClassic)
	doc.SetMonth("2025-04", core.MonthlyData{
		Salary:     3000,
		Expenses:   map[string]float64{"s_rent": 1200.5},
		PaidStatus: map[string]bool{"s_rent": true},
		Extras:     map[string][]core.Extra{"f_fun": {{ID: "e1", Description: "cine", Amount: 12, FieldID: "f_fun"}}},
	})
	require.NoError(t, s.Save(ctx, "acc", doc))

	got, ok, err := s.Load(ctx, "acc")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, doc.Fields, got.Fields)
	assert.Equal(t, 1200.5, got.Months["2025-04"].Expenses["s_rent"])
	assert.Equal(t, "cine", got.Months["2025-04"].Extras["f_fun"][0].Description)
}

func TestSQLiteStoreOverwritesAndLists(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	first := core.DefaultAppData(core.TemplateClassic)
	second := core.DefaultAppData(core.TemplateClassic)
	second.Theme = core.ThemeLight

	require.NoError(t, s.Save(ctx, "b", first))
	require.NoError(t, s.Save(ctx, "a", first))
	require.NoError(t, s.Save(ctx, "a", second))

	got, _, err := s.Load(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, core.ThemeLight, got.Theme)

	accounts, err := s.Accounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, accounts)
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.db")
	require.NoError(t, RunMigrations(path))
	require.NoError(t, RunMigrations(path))
}
