package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"finanzas/internal/core"
	"finanzas/internal/ledger"
	applog "finanzas/internal/log"
)

// RolloverProcessor carries the last known salary into the current month of
// every stored account.
type RolloverProcessor struct {
	svc    *ledger.Service
	lister ledger.AccountLister
	logger *slog.Logger
}

func NewRolloverProcessor(svc *ledger.Service, lister ledger.AccountLister, logger *slog.Logger) *RolloverProcessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &RolloverProcessor{
		svc:    svc,
		lister: lister,
		logger: logger.With(applog.FieldComponent, applog.ComponentRollover),
	}
}

// Process runs one pass for the month containing now and returns how many
// accounts received a salary. A failing account is logged and skipped.
func (p *RolloverProcessor) Process(ctx context.Context, now time.Time) (int, error) {
	if p.svc == nil || p.lister == nil {
		return 0, fmt.Errorf("processor not properly initialized")
	}

	accounts, err := p.lister.Accounts(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list accounts: %w", err)
	}

	key := core.MonthKeyOf(now)
	year, month := key.YearMonth()

	p.logger.InfoContext(ctx, "Processing month rollover",
		applog.FieldMonth, key,
		applog.FieldCount, len(accounts))

	processed := 0
	for _, account := range accounts {
		if err := ctx.Err(); err != nil {
			return processed, err
		}

		doc, ok := p.svc.LoadOrDefault(ctx, account)
		if !ok {
			continue
		}
		if p.svc.MonthFor(doc, key).Salary > 0 {
			continue
		}
		salary, ok := doc.LastKnownSalary(key)
		if !ok {
			continue
		}

		if err := p.svc.SaveMonth(ctx, account, year, month, core.MonthUpdate{Salary: &salary}); err != nil {
			p.logger.ErrorContext(ctx, "Failed to carry salary forward",
				applog.FieldAccount, account,
				applog.FieldMonth, key,
				applog.FieldError, err)
			continue
		}

		p.logger.InfoContext(ctx, "Carried salary forward",
			applog.FieldOperation, applog.OpRollover,
			applog.FieldAccount, account,
			applog.FieldMonth, key,
			applog.FieldAmount, salary)
		processed++
	}

	p.logger.InfoContext(ctx, "Month rollover complete",
		applog.FieldMonth, key,
		"processed", processed)
	return processed, nil
}

// RolloverScheduler runs a RolloverProcessor on a cron schedule.
type RolloverScheduler struct {
	processor *RolloverProcessor
	schedule  string
	logger    *slog.Logger
	now       func() time.Time

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
}

func NewRolloverScheduler(processor *RolloverProcessor, schedule string, logger *slog.Logger) *RolloverScheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RolloverScheduler{
		processor: processor,
		schedule:  schedule,
		logger:    logger.With(applog.FieldComponent, applog.ComponentRollover),
		now:       time.Now,
	}
}

// Start registers the job and begins the schedule. Jobs run with ctx until
// Stop is called.
func (s *RolloverScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("rollover scheduler already running")
	}

	c := cron.New()
	if _, err := c.AddFunc(s.schedule, func() { s.run(ctx) }); err != nil {
		return fmt.Errorf("invalid rollover schedule %q: %w", s.schedule, err)
	}
	c.Start()

	s.cron = c
	s.running = true
	s.logger.InfoContext(ctx, "Rollover scheduler started", "schedule", s.schedule)
	return nil
}

func (s *RolloverScheduler) run(ctx context.Context) {
	start := time.Now()
	count, err := s.processor.Process(ctx, s.now())
	if err != nil {
		s.logger.ErrorContext(ctx, "Rollover pass failed", applog.FieldError, err)
		return
	}
	s.logger.InfoContext(ctx, "Rollover pass finished",
		"processed", count,
		applog.FieldDuration, time.Since(start).Milliseconds())
}

// Stop halts the schedule and waits for a running job, or for ctx.
func (s *RolloverScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	c := s.cron
	s.running = false
	s.cron = nil
	s.mu.Unlock()

	select {
	case <-c.Stop().Done():
		s.logger.InfoContext(ctx, "Rollover scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.WarnContext(ctx, "Rollover scheduler stop timed out")
		return ctx.Err()
	}
}

func (s *RolloverScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
