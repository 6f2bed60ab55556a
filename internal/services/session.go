// Package services holds the per-account application state and the batch
// jobs that run over stored documents.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"finanzas/internal/budget"
	"finanzas/internal/core"
	"finanzas/internal/ledger"
	applog "finanzas/internal/log"
)

// SessionOptions tunes how long sessions stay open.
type SessionOptions struct {
	// IdleTimeout drops sessions not opened for this long. Zero keeps them
	// until Close.
	IdleTimeout time.Duration
	// RefreshAfter rereads a session's document on Open once it is older
	// than this, picking up writes made by other processes. Zero disables.
	RefreshAfter time.Duration
	Logger       *slog.Logger
}

// Sessions tracks the open session of each account. Opening loads the
// document; closing or going idle drops it.
type Sessions struct {
	svc          *ledger.Service
	logger       *slog.Logger
	idleTimeout  time.Duration
	refreshAfter time.Duration
	now          func() time.Time

	loads singleflight.Group

	mu   sync.Mutex
	open map[string]*Session
}

func NewSessions(svc *ledger.Service, opts SessionOptions) *Sessions {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Sessions{
		svc:          svc,
		logger:       opts.Logger.With(applog.FieldComponent, applog.ComponentSession),
		idleTimeout:  opts.IdleTimeout,
		refreshAfter: opts.RefreshAfter,
		now:          time.Now,
		open:         make(map[string]*Session),
	}
}

type loadedDocument struct {
	doc    core.AppData
	stored bool
}

// load reads the account's document once for all concurrent callers. Each
// caller gets its own copy.
func (s *Sessions) load(ctx context.Context, account string) (core.AppData, bool) {
	v, _, _ := s.loads.Do(account, func() (any, error) {
		doc, stored := s.svc.LoadOrDefault(ctx, account)
		return loadedDocument{doc: doc, stored: stored}, nil
	})
	res := v.(loadedDocument)
	return res.doc.Clone(), res.stored
}

// Open returns the account's session, loading the document on first use.
// Store reads happen outside the registry lock.
func (s *Sessions) Open(ctx context.Context, account string) *Session {
	now := s.now()
	s.mu.Lock()
	sess, ok := s.open[account]
	if ok {
		sess.lastUsed = now
	}
	s.mu.Unlock()

	if ok {
		if sess.needsReload(now, s.refreshAfter) {
			doc, stored := s.load(ctx, account)
			sess.reload(ctx, doc, stored, now)
		}
		return sess
	}

	doc, stored := s.load(ctx, account)
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.open[account]; ok {
		existing.lastUsed = now
		return existing
	}
	sess = &Session{
		account:  account,
		svc:      s.svc,
		logger:   s.logger.With(applog.FieldAccount, account),
		doc:      doc,
		degraded: !stored,
		loadedAt: now,
		lastUsed: now,
		pending:  make(map[core.MonthKey][]budget.RecurringCandidate),
	}
	s.open[account] = sess
	if !stored {
		s.logger.WarnContext(ctx, "Session opened without stored document, saves disabled until reload", applog.FieldAccount, account)
	}
	s.logger.DebugContext(ctx, "Session opened", applog.FieldAccount, account)
	return sess
}

// Close drops the account's session. The next Open reloads from the store.
func (s *Sessions) Close(account string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.open[account]
	delete(s.open, account)
	return ok
}

func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.open)
}

// Sweep drops sessions idle for longer than the idle timeout and returns
// how many went.
func (s *Sessions) Sweep() int {
	if s.idleTimeout <= 0 {
		return 0
	}
	cutoff := s.now().Add(-s.idleTimeout)
	s.mu.Lock()
	defer s.mu.Unlock()
	evicted := 0
	for account, sess := range s.open {
		if sess.lastUsed.Before(cutoff) {
			delete(s.open, account)
			evicted++
		}
	}
	return evicted
}

// Run sweeps idle sessions until ctx is done.
func (s *Sessions) Run(ctx context.Context) {
	if s.idleTimeout <= 0 {
		return
	}
	interval := s.idleTimeout / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				s.logger.DebugContext(ctx, "Evicted idle sessions", applog.FieldCount, n)
			}
		}
	}
}

// MonthView is what a client needs to render a month: the ledger, the
// recurring templates still waiting for a decision and a salary hint.
type MonthView struct {
	Key             core.MonthKey               `json:"key"`
	Month           core.MonthlyData            `json:"month"`
	Fields          []core.Field                `json:"fields"`
	Pending         []budget.RecurringCandidate `json:"pendingRecurring"`
	SuggestedSalary float64                     `json:"suggestedSalary,omitempty"`
}

// Session is one account's in-memory document. Every mutation updates
// memory first and then writes the whole document; write failures are
// logged and the session keeps serving its in-memory state.
//
// A degraded session was opened while the store could not be read. It
// serves the default document but never writes it, since that would
// replace the stored history.
type Session struct {
	account string
	svc     *ledger.Service
	logger  *slog.Logger

	// guarded by Sessions.mu
	lastUsed time.Time

	mu       sync.Mutex
	doc      core.AppData
	degraded bool
	loadedAt time.Time
	pending  map[core.MonthKey][]budget.RecurringCandidate
}

func (s *Session) Account() string { return s.account }

// Document returns a copy of the whole document.
func (s *Session) Document() core.AppData {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Clone()
}

// Degraded reports whether the session is running on the default document
// because the store could not be read.
func (s *Session) Degraded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.degraded
}

func (s *Session) needsReload(now time.Time, after time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.degraded || (after > 0 && now.Sub(s.loadedAt) >= after)
}

// reload swaps in a freshly read document. A failed read leaves a healthy
// session as it is.
func (s *Session) reload(ctx context.Context, doc core.AppData, stored bool, now time.Time) {
	if !stored {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.degraded {
		s.logger.InfoContext(ctx, "Stored document reachable again, saves re-enabled")
	}
	s.doc = doc
	s.degraded = false
	s.loadedAt = now
	clear(s.pending)
}

func (s *Session) persist(ctx context.Context) {
	if s.degraded {
		s.logger.WarnContext(ctx, "Skipping save of default document, stored document was not read")
		return
	}
	if err := s.svc.Save(ctx, s.account, s.doc); err != nil {
		s.logger.WarnContext(ctx, "Keeping in-memory state after failed save", applog.FieldError, err)
	}
}

func (s *Session) Theme() core.Theme {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Theme
}

func (s *Session) ToggleTheme(ctx context.Context) core.Theme {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.Theme = s.doc.Theme.Toggle()
	s.persist(ctx)
	return s.doc.Theme
}

// Fields returns a copy of the master field tree.
func (s *Session) Fields() []core.Field {
	s.mu.Lock()
	defer s.mu.Unlock()
	return core.CloneFields(s.doc.Fields)
}

// CheckAllocation evaluates a percentage edit without applying it.
func (s *Session) CheckAllocation(fieldID string, proposed float64) budget.AllocationCheck {
	s.mu.Lock()
	defer s.mu.Unlock()
	return budget.ValidateAllocation(s.doc.Fields, fieldID, proposed)
}

// SaveField replaces or appends f in the master tree. An edit that pushes
// the total past 100% is refused with budget.ErrAllocationExceeded and the
// check that explains it.
func (s *Session) SaveField(ctx context.Context, f core.Field) (budget.AllocationCheck, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fields, check, err := budget.CommitField(s.doc.Fields, f)
	if err != nil {
		return check, err
	}
	s.doc.Fields = fields
	s.persist(ctx)
	return check, nil
}

// AddField appends a fresh default field. It starts at 0% so it can never
// break the allocation limit.
func (s *Session) AddField(ctx context.Context) core.Field {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := budget.NewField()
	s.doc.Fields = append(core.CloneFields(s.doc.Fields), f)
	s.persist(ctx)
	return f
}

func (s *Session) DeleteField(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	fields, err := budget.DeleteField(s.doc.Fields, id)
	if err != nil {
		return err
	}
	s.doc.Fields = fields
	s.persist(ctx)
	return nil
}

// OpenMonth returns the month view for key. A month whose recurring prompt
// has nothing to offer is settled on the spot.
func (s *Session) OpenMonth(ctx context.Context, key core.MonthKey) MonthView {
	s.mu.Lock()
	defer s.mu.Unlock()

	month := s.svc.MonthFor(s.doc, key)
	fields := s.fieldsLocked(key, month)

	var pending []budget.RecurringCandidate
	if budget.StateOf(month) == budget.RecurringPending {
		pending = budget.RecurringCandidates(fields, month)
		if len(pending) == 0 {
			month = budget.ResolveRecurring(month, nil, nil)
			s.doc.SetMonth(key, month)
			s.persist(ctx)
			delete(s.pending, key)
		} else {
			s.pending[key] = pending
		}
	}

	view := MonthView{
		Key:     key,
		Month:   month.Clone(),
		Fields:  core.CloneFields(fields),
		Pending: pending,
	}
	if month.Salary == 0 {
		if salary, ok := s.doc.LastKnownSalary(key); ok {
			view.SuggestedSalary = salary
		}
	}
	return view
}

// ResolveRecurring records the accepted templates of key's prompt and
// settles the month. Settled months are returned unchanged.
func (s *Session) ResolveRecurring(ctx context.Context, key core.MonthKey, accepted []string) core.MonthlyData {
	s.mu.Lock()
	defer s.mu.Unlock()

	month := s.svc.MonthFor(s.doc, key)
	if budget.StateOf(month) == budget.RecurringSettled {
		return month.Clone()
	}
	candidates, ok := s.pending[key]
	if !ok {
		candidates = budget.RecurringCandidates(s.fieldsLocked(key, month), month)
	}
	month = budget.ResolveRecurring(month, candidates, accepted)
	delete(s.pending, key)
	s.doc.SetMonth(key, month)
	s.persist(ctx)
	return month.Clone()
}

func (s *Session) fieldsLocked(key core.MonthKey, month core.MonthlyData) []core.Field {
	if month.Fields != nil {
		return month.Fields
	}
	return s.svc.FieldsFor(s.doc, key)
}

// mutateMonth applies fn to a private copy of key's month and stores it
// when fn succeeds.
func (s *Session) mutateMonth(ctx context.Context, key core.MonthKey, fn func(*core.MonthlyData) error) (core.MonthlyData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	month := s.svc.MonthFor(s.doc, key).Clone()
	if err := fn(&month); err != nil {
		return core.MonthlyData{}, err
	}
	s.doc.SetMonth(key, month)
	s.persist(ctx)
	return month.Clone(), nil
}

// UpdateMonth merges a partial update into key's month.
func (s *Session) UpdateMonth(ctx context.Context, key core.MonthKey, u core.MonthUpdate) (core.MonthlyData, error) {
	if err := u.Validate(); err != nil {
		return core.MonthlyData{}, err
	}
	return s.mutateMonth(ctx, key, func(m *core.MonthlyData) error {
		*m = u.Apply(*m)
		return nil
	})
}

func (s *Session) SetSalary(ctx context.Context, key core.MonthKey, salary float64) (core.MonthlyData, error) {
	if !core.ValidAmount(salary) {
		return core.MonthlyData{}, fmt.Errorf("%w: salary %v", core.ErrInvalidAmount, salary)
	}
	return s.mutateMonth(ctx, key, func(m *core.MonthlyData) error {
		m.Salary = salary
		return nil
	})
}

func (s *Session) SetExpense(ctx context.Context, key core.MonthKey, subID string, amount float64) (core.MonthlyData, error) {
	if err := checkEntry(subID, amount); err != nil {
		return core.MonthlyData{}, err
	}
	return s.mutateMonth(ctx, key, func(m *core.MonthlyData) error {
		m.Expenses[subID] = amount
		return nil
	})
}

func (s *Session) SetExpenseUSD(ctx context.Context, key core.MonthKey, subID string, amount float64) (core.MonthlyData, error) {
	if err := checkEntry(subID, amount); err != nil {
		return core.MonthlyData{}, err
	}
	return s.mutateMonth(ctx, key, func(m *core.MonthlyData) error {
		m.ExpensesUSD[subID] = amount
		return nil
	})
}

func (s *Session) SetPaid(ctx context.Context, key core.MonthKey, subID string, paid bool) (core.MonthlyData, error) {
	if strings.TrimSpace(subID) == "" {
		return core.MonthlyData{}, core.ErrEmptyID
	}
	return s.mutateMonth(ctx, key, func(m *core.MonthlyData) error {
		m.PaidStatus[subID] = paid
		return nil
	})
}

// EntryUpdate changes any of the amount, the USD amount and the paid flag
// of one subcategory.
type EntryUpdate struct {
	Amount *float64 `json:"amount"`
	USD    *float64 `json:"usd"`
	Paid   *bool    `json:"paid"`
}

// UpdateEntry applies e to subID in one write.
func (s *Session) UpdateEntry(ctx context.Context, key core.MonthKey, subID string, e EntryUpdate) (core.MonthlyData, error) {
	if strings.TrimSpace(subID) == "" {
		return core.MonthlyData{}, core.ErrEmptyID
	}
	for _, v := range []*float64{e.Amount, e.USD} {
		if v != nil {
			if err := checkEntry(subID, *v); err != nil {
				return core.MonthlyData{}, err
			}
		}
	}
	return s.mutateMonth(ctx, key, func(m *core.MonthlyData) error {
		if e.Amount != nil {
			m.Expenses[subID] = *e.Amount
		}
		if e.USD != nil {
			m.ExpensesUSD[subID] = *e.USD
		}
		if e.Paid != nil {
			m.PaidStatus[subID] = *e.Paid
		}
		return nil
	})
}

func checkEntry(subID string, amount float64) error {
	if strings.TrimSpace(subID) == "" {
		return core.ErrEmptyID
	}
	if !core.ValidAmount(amount) {
		return fmt.Errorf("%w: %s = %v", core.ErrInvalidAmount, subID, amount)
	}
	return nil
}

// AddExtra attaches an ad-hoc expense to a field of key's tree.
func (s *Session) AddExtra(ctx context.Context, key core.MonthKey, fieldID, description string, amount float64) (core.Extra, error) {
	extra, err := budget.NewExtra(fieldID, description, amount)
	if err != nil {
		return core.Extra{}, err
	}
	_, err = s.mutateMonth(ctx, key, func(m *core.MonthlyData) error {
		if core.FindField(s.fieldsLocked(key, *m), fieldID) < 0 {
			return fmt.Errorf("%w: %s", core.ErrFieldNotFound, fieldID)
		}
		m.Extras[fieldID] = append(m.Extras[fieldID], extra)
		return nil
	})
	if err != nil {
		return core.Extra{}, err
	}
	return extra, nil
}

func (s *Session) DeleteExtra(ctx context.Context, key core.MonthKey, fieldID, extraID string) error {
	_, err := s.mutateMonth(ctx, key, func(m *core.MonthlyData) error {
		extras := m.Extras[fieldID]
		for i, e := range extras {
			if e.ID == extraID {
				m.Extras[fieldID] = append(extras[:i:i], extras[i+1:]...)
				return nil
			}
		}
		return fmt.Errorf("%w: %s/%s", core.ErrExtraNotFound, fieldID, extraID)
	})
	return err
}

// Month returns copies of key's month and of the tree in effect for it.
// Unlike OpenMonth it never settles the recurring prompt.
func (s *Session) Month(key core.MonthKey) (core.MonthlyData, []core.Field) {
	s.mu.Lock()
	defer s.mu.Unlock()
	month := s.svc.MonthFor(s.doc, key)
	return month.Clone(), core.CloneFields(s.fieldsLocked(key, month))
}

// Summary aggregates key's month against the tree in effect for it.
func (s *Session) Summary(key core.MonthKey) budget.MonthSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	month := s.svc.MonthFor(s.doc, key)
	return budget.Aggregate(s.fieldsLocked(key, month), month)
}

func (s *Session) HasPIN() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.PINHash != ""
}

// SetPIN stores a new lock PIN. pin and confirm must match.
func (s *Session) SetPIN(ctx context.Context, pin, confirm string) error {
	hash, err := HashPIN(pin, confirm)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.PINHash = hash
	s.persist(ctx)
	return nil
}

func (s *Session) VerifyPIN(pin string) error {
	s.mu.Lock()
	hash := s.doc.PINHash
	s.mu.Unlock()
	return CheckPIN(hash, pin)
}
