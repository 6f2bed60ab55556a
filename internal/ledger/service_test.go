package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finanzas/internal/core"
	"finanzas/internal/ledger/memory"
)

type failingStore struct{}

func (failingStore) Load(context.Context, string) (core.AppData, bool, error) {
	return core.AppData{}, false, errors.New("network down")
}

func (failingStore) Save(context.Context, string, core.AppData) error {
	return errors.New("quota exceeded")
}

// flakyStore fails the next failLoads reads and then serves the memory store.
type flakyStore struct {
	*memory.Store
	mu        sync.Mutex
	failLoads int
}

func (f *flakyStore) Load(ctx context.Context, account string) (core.AppData, bool, error) {
	f.mu.Lock()
	if f.failLoads > 0 {
		f.failLoads--
		f.mu.Unlock()
		return core.AppData{}, false, errors.New("read timeout")
	}
	f.mu.Unlock()
	return f.Store.Load(ctx, account)
}

type recordingPublisher struct {
	mu       sync.Mutex
	accounts []string
	err      error
}

func (p *recordingPublisher) PublishDocumentSync(_ context.Context, account string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.accounts = append(p.accounts, account)
	return p.err
}

func TestServiceLoadDefaultsForNewAccount(t *testing.T) {
	svc := NewService(memory.New(), Options{})
	doc := svc.Load(context.Background(), "new")

	assert.Equal(t, core.ThemeDark, doc.Theme)
	assert.Len(t, doc.Fields, 4)
	assert.Empty(t, doc.Months)
}

func TestServiceFallsBackWhenStoreFails(t *testing.T) {
	svc := NewService(failingStore{}, Options{Template: core.TemplateSimple})
	ctx := context.Background()

	doc := svc.Load(ctx, "acc")
	assert.Len(t, doc.Fields, 3)

	err := svc.Save(ctx, "acc", doc)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPersistence)

	m, err := svc.LoadMonth(ctx, "acc", 2025, 2)
	require.NoError(t, err)
	assert.Zero(t, m.Salary)
}

func TestServiceWritesNeverStartFromFallbackDocument(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{Store: memory.New()}
	svc := NewService(store, Options{})

	salary := 1000.0
	for m := 1; m <= 3; m++ {
		require.NoError(t, svc.SaveMonth(ctx, "acc", 2025, m, core.MonthUpdate{Salary: &salary}))
	}

	store.failLoads = 1
	_, ok := svc.LoadOrDefault(ctx, "acc")
	assert.False(t, ok)

	store.failLoads = 3
	assert.ErrorIs(t, svc.SaveMonth(ctx, "acc", 2025, 4, core.MonthUpdate{Salary: &salary}), ErrPersistence)
	assert.ErrorIs(t, svc.UpdateFields(ctx, "acc", core.StarterFields(core.TemplateSimple)), ErrPersistence)
	_, err := svc.ToggleTheme(ctx, "acc")
	assert.ErrorIs(t, err, ErrPersistence)

	doc, ok := svc.LoadOrDefault(ctx, "acc")
	require.True(t, ok)
	assert.Len(t, doc.Months, 3)
	assert.Len(t, doc.Fields, 4)
	assert.Equal(t, core.ThemeDark, doc.Theme)
}

func TestServicePatchesLegacyDocument(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "old", core.AppData{Theme: core.ThemeLight}))

	doc := NewService(store, Options{}).Load(ctx, "old")
	assert.Equal(t, core.ThemeLight, doc.Theme)
	assert.Len(t, doc.Fields, 4)
	assert.NotNil(t, doc.Months)
}

func TestServiceSaveMonthRoundTrip(t *testing.T) {
	svc := NewService(memory.New(), Options{})
	ctx := context.Background()

	salary := 250000.0
	applied := true
	full := core.MonthUpdate{
		Salary:           &salary,
		Expenses:         map[string]float64{"s_rent": 90000},
		ExpensesUSD:      map[string]float64{"s_stocks": 100},
		PaidStatus:       map[string]bool{"s_rent": true},
		Extras:           map[string][]core.Extra{"f_fun": {{ID: "e1", Description: "cine", Amount: 5000, FieldID: "f_fun"}}},
		RecurringApplied: &applied,
	}
	require.NoError(t, svc.SaveMonth(ctx, "acc", 2025, 3, full))

	got, err := svc.LoadMonth(ctx, "acc", 2025, 3)
	require.NoError(t, err)
	assert.Equal(t, salary, got.Salary)
	assert.Equal(t, full.Expenses, got.Expenses)
	assert.Equal(t, full.ExpensesUSD, got.ExpensesUSD)
	assert.Equal(t, full.PaidStatus, got.PaidStatus)
	assert.Equal(t, full.Extras, got.Extras)
	assert.True(t, got.RecurringApplied)

	// A partial update keeps everything it does not mention.
	newSalary := 260000.0
	require.NoError(t, svc.SaveMonth(ctx, "acc", 2025, 3, core.MonthUpdate{Salary: &newSalary}))
	got, err = svc.LoadMonth(ctx, "acc", 2025, 3)
	require.NoError(t, err)
	assert.Equal(t, newSalary, got.Salary)
	assert.Equal(t, full.Expenses, got.Expenses)
	assert.Equal(t, full.Extras, got.Extras)
	assert.True(t, got.RecurringApplied)
}

func TestServiceSaveMonthRejectsInvalidInput(t *testing.T) {
	svc := NewService(memory.New(), Options{})
	ctx := context.Background()

	err := svc.SaveMonth(ctx, "acc", 2025, 13, core.MonthUpdate{})
	assert.ErrorIs(t, err, core.ErrInvalidMonth)

	neg := -5.0
	err = svc.SaveMonth(ctx, "acc", 2025, 1, core.MonthUpdate{Salary: &neg})
	assert.ErrorIs(t, err, core.ErrInvalidAmount)
}

func TestServiceUpdateFieldsAndToggleTheme(t *testing.T) {
	svc := NewService(memory.New(), Options{})
	ctx := context.Background()

	fields := core.StarterFields(core.TemplateSimple)
	require.NoError(t, svc.UpdateFields(ctx, "acc", fields))
	assert.Len(t, svc.Load(ctx, "acc").Fields, 3)

	dup := core.CloneFields(fields)
	dup[1].Categories[0].Subcategories[0].ID = "s_rent"
	assert.ErrorIs(t, svc.UpdateFields(ctx, "acc", dup), core.ErrDuplicateSubcategory)

	theme, err := svc.ToggleTheme(ctx, "acc")
	require.NoError(t, err)
	assert.Equal(t, core.ThemeLight, theme)
	assert.Equal(t, core.ThemeLight, svc.Load(ctx, "acc").Theme)
}

func TestServiceSnapshotFieldsPerMonth(t *testing.T) {
	ctx := context.Background()
	svc := NewService(memory.New(), Options{SnapshotFieldsPerMonth: true})

	salary := 1000.0
	require.NoError(t, svc.SaveMonth(ctx, "acc", 2025, 1, core.MonthUpdate{Salary: &salary}))

	// Changing the master tree afterwards leaves January's snapshot alone.
	require.NoError(t, svc.UpdateFields(ctx, "acc", core.StarterFields(core.TemplateSimple)))

	doc := svc.Load(ctx, "acc")
	assert.Len(t, svc.FieldsFor(doc, "2025-01"), 4)
	assert.Len(t, svc.FieldsFor(doc, "2025-02"), 3)

	feb, err := svc.LoadMonth(ctx, "acc", 2025, 2)
	require.NoError(t, err)
	assert.Len(t, feb.Fields, 3)

	shared := NewService(memory.New(), Options{})
	require.NoError(t, shared.SaveMonth(ctx, "acc", 2025, 1, core.MonthUpdate{Salary: &salary}))
	m, _ := shared.LoadMonth(ctx, "acc", 2025, 1)
	assert.Nil(t, m.Fields)
}

func TestSyncingStorePublishesAfterLocalSave(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	store := NewSyncingStore(memory.New(), pub, nil)

	require.NoError(t, store.Save(ctx, "acc", core.DefaultAppData(core.TemplateClassic)))
	assert.Equal(t, []string{"acc"}, pub.accounts)

	pub.err = errors.New("broker down")
	require.NoError(t, store.Save(ctx, "acc", core.DefaultAppData(core.TemplateClassic)), "publish failures must not fail the save")

	failing := NewSyncingStore(failingStore{}, pub, nil)
	require.Error(t, failing.Save(ctx, "acc", core.AppData{}))
	assert.Len(t, pub.accounts, 2, "nothing is published when the local save fails")

	accounts, err := store.Accounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"acc"}, accounts)

	_, err = failing.Accounts(ctx)
	assert.ErrorIs(t, err, ErrNotListable)
}
