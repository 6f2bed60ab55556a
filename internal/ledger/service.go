package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"finanzas/internal/core"
	applog "finanzas/internal/log"
)

// ErrPersistence wraps store failures surfaced by Save. Callers log it and
// carry on with their in-memory state.
var ErrPersistence = errors.New("persistence unavailable")

type Options struct {
	// Template seeds new and legacy documents.
	Template core.Template
	// SnapshotFieldsPerMonth freezes the field tree into each month on its
	// first write; otherwise every month uses the master tree.
	SnapshotFieldsPerMonth bool
	Logger                 *slog.Logger
}

// Service is the persistence collaborator used by the engine. Reads never
// fail: an unreachable store yields the default document.
type Service struct {
	store    Store
	template core.Template
	snapshot bool
	logger   *slog.Logger
}

func NewService(store Store, opts Options) *Service {
	if opts.Template == "" {
		opts.Template = core.TemplateClassic
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Service{
		store:    store,
		template: opts.Template,
		snapshot: opts.SnapshotFieldsPerMonth,
		logger:   opts.Logger.With(applog.FieldComponent, applog.ComponentLedger),
	}
}

// Snapshots reports whether months carry their own field tree.
func (s *Service) Snapshots() bool { return s.snapshot }

// Default returns a fresh default document.
func (s *Service) Default() core.AppData {
	return core.DefaultAppData(s.template)
}

// Load returns the account's document, normalised, or the default one when
// the account is new or the store fails.
func (s *Service) Load(ctx context.Context, account string) core.AppData {
	doc, _ := s.LoadOrDefault(ctx, account)
	return doc
}

// LoadOrDefault is Load that also reports whether the document reflects the
// store. It is false only when the read failed and the default document
// stands in; writing that document back would replace the stored one.
func (s *Service) LoadOrDefault(ctx context.Context, account string) (core.AppData, bool) {
	doc, ok, err := s.store.Load(ctx, account)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to load document, using defaults",
			applog.FieldAccount, account,
			applog.FieldOperation, applog.OpRead,
			applog.FieldError, err)
		return s.Default(), false
	}
	if !ok {
		return s.Default(), true
	}
	return core.Normalize(doc, s.template), true
}

// loadForWrite loads the document a read-modify-write starts from. It fails
// instead of falling back so a default document never overwrites a stored one.
func (s *Service) loadForWrite(ctx context.Context, account string) (core.AppData, error) {
	doc, ok := s.LoadOrDefault(ctx, account)
	if !ok {
		return core.AppData{}, fmt.Errorf("%w: could not read %s", ErrPersistence, account)
	}
	return doc, nil
}

// Save overwrites the account's document.
func (s *Service) Save(ctx context.Context, account string, doc core.AppData) error {
	if err := s.store.Save(ctx, account, doc); err != nil {
		s.logger.ErrorContext(ctx, "Failed to save document",
			applog.FieldAccount, account,
			applog.FieldOperation, applog.OpUpdate,
			applog.FieldError, err)
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return nil
}

// FieldsFor returns the field tree in effect for key.
func (s *Service) FieldsFor(doc core.AppData, key core.MonthKey) []core.Field {
	if s.snapshot {
		if m, ok := doc.Months[string(key)]; ok && m.Fields != nil {
			return m.Fields
		}
	}
	return doc.Fields
}

// MonthFor returns the month for key; in snapshot mode an unsnapshotted
// month gets a copy of the master tree.
func (s *Service) MonthFor(doc core.AppData, key core.MonthKey) core.MonthlyData {
	m := doc.Month(key)
	if s.snapshot && m.Fields == nil {
		m.Fields = core.CloneFields(doc.Fields)
	}
	return m
}

// LoadMonth returns the month ledger for year/month, defaulted when unset.
func (s *Service) LoadMonth(ctx context.Context, account string, year, month int) (core.MonthlyData, error) {
	key, err := core.NewMonthKey(year, month)
	if err != nil {
		return core.MonthlyData{}, err
	}
	return s.MonthFor(s.Load(ctx, account), key), nil
}

// SaveMonth merges update into the stored month and writes the document.
func (s *Service) SaveMonth(ctx context.Context, account string, year, month int, update core.MonthUpdate) error {
	key, err := core.NewMonthKey(year, month)
	if err != nil {
		return err
	}
	if err := update.Validate(); err != nil {
		return err
	}
	doc, err := s.loadForWrite(ctx, account)
	if err != nil {
		return err
	}
	doc.SetMonth(key, update.Apply(s.MonthFor(doc, key)))
	return s.Save(ctx, account, doc)
}

// UpdateFields replaces the master field tree. Month snapshots are untouched.
func (s *Service) UpdateFields(ctx context.Context, account string, fields []core.Field) error {
	if err := core.ValidateTree(fields); err != nil {
		return err
	}
	doc, err := s.loadForWrite(ctx, account)
	if err != nil {
		return err
	}
	doc.Fields = core.CloneFields(fields)
	return s.Save(ctx, account, doc)
}

// ToggleTheme flips the theme and returns the new value.
func (s *Service) ToggleTheme(ctx context.Context, account string) (core.Theme, error) {
	doc, err := s.loadForWrite(ctx, account)
	if err != nil {
		return "", err
	}
	doc.Theme = doc.Theme.Toggle()
	return doc.Theme, s.Save(ctx, account, doc)
}
