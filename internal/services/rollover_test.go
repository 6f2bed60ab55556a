package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finanzas/internal/core"
	"finanzas/internal/ledger"
	"finanzas/internal/ledger/memory"
)

type staticLister struct {
	accounts []string
	err      error
}

func (l staticLister) Accounts(context.Context) ([]string, error) {
	return l.accounts, l.err
}

func seedSalary(t *testing.T, svc *ledger.Service, account string, year, month int, salary float64) {
	t.Helper()
	require.NoError(t, svc.SaveMonth(context.Background(), account, year, month, core.MonthUpdate{Salary: &salary}))
}

func TestRolloverCarriesLastKnownSalary(t *testing.T) {
	store := memory.New()
	svc := ledger.NewService(store, ledger.Options{})
	ctx := context.Background()

	seedSalary(t, svc, "carry", 2025, 1, 100000)
	seedSalary(t, svc, "carry", 2025, 2, 120000)
	seedSalary(t, svc, "already", 2025, 2, 120000)
	seedSalary(t, svc, "already", 2025, 3, 130000)
	require.NoError(t, svc.Save(ctx, "empty", svc.Default()))

	p := NewRolloverProcessor(svc, store, nil)
	now := time.Date(2025, time.March, 1, 6, 0, 0, 0, time.UTC)

	count, err := p.Process(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	m, err := svc.LoadMonth(ctx, "carry", 2025, 3)
	require.NoError(t, err)
	assert.Equal(t, 120000.0, m.Salary)

	m, err = svc.LoadMonth(ctx, "already", 2025, 3)
	require.NoError(t, err)
	assert.Equal(t, 130000.0, m.Salary, "stored salaries are never overwritten")

	assert.False(t, svc.Load(ctx, "empty").HasMonth("2025-03"))

	// A second pass has nothing left to do.
	count, err = p.Process(ctx, now)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestRolloverErrors(t *testing.T) {
	ctx := context.Background()
	svc := ledger.NewService(memory.New(), ledger.Options{})

	_, err := NewRolloverProcessor(nil, nil, nil).Process(ctx, time.Now())
	assert.Error(t, err)

	_, err = NewRolloverProcessor(svc, staticLister{err: errors.New("boom")}, nil).Process(ctx, time.Now())
	assert.ErrorContains(t, err, "boom")

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = NewRolloverProcessor(svc, staticLister{accounts: []string{"a"}}, nil).Process(cancelled, time.Now())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRolloverSkipsFailingAccounts(t *testing.T) {
	svc := ledger.NewService(failingStore{}, ledger.Options{})
	p := NewRolloverProcessor(svc, staticLister{accounts: []string{"a", "b"}}, nil)

	count, err := p.Process(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestRolloverSchedulerLifecycle(t *testing.T) {
	store := memory.New()
	svc := ledger.NewService(store, ledger.Options{})
	ctx := context.Background()

	s := NewRolloverScheduler(NewRolloverProcessor(svc, store, nil), "0 6 1 * *", nil)
	assert.False(t, s.IsRunning())
	require.NoError(t, s.Stop(ctx), "stopping an idle scheduler is a no-op")

	require.NoError(t, s.Start(ctx))
	assert.True(t, s.IsRunning())
	assert.Error(t, s.Start(ctx))

	require.NoError(t, s.Stop(ctx))
	assert.False(t, s.IsRunning())
}

func TestRolloverSchedulerRejectsBadSchedule(t *testing.T) {
	s := NewRolloverScheduler(NewRolloverProcessor(nil, nil, nil), "every now and then", nil)
	assert.Error(t, s.Start(context.Background()))
	assert.False(t, s.IsRunning())
}
