package core

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// MonthKey identifies a month as "YYYY-MM".
type MonthKey string

// NewMonthKey builds the key for year and month (1-12).
func NewMonthKey(year, month int) (MonthKey, error) {
	if month < 1 || month > 12 {
		return "", fmt.Errorf("%w: %d", ErrInvalidMonth, month)
	}
	if year < 1 || year > 9999 {
		return "", fmt.Errorf("%w: year %d", ErrInvalidMonthKey, year)
	}
	return MonthKey(fmt.Sprintf("%04d-%02d", year, month)), nil
}

// MonthKeyOf returns the key of the month containing t.
func MonthKeyOf(t time.Time) MonthKey {
	return MonthKey(t.Format("2006-01"))
}

// ParseMonthKey validates a "YYYY-MM" string.
func ParseMonthKey(s string) (MonthKey, error) {
	year, month, ok := strings.Cut(strings.TrimSpace(s), "-")
	if !ok || len(year) != 4 || len(month) != 2 || !allDigits(year) || !allDigits(month) {
		return "", fmt.Errorf("%w: %q", ErrInvalidMonthKey, s)
	}
	y, err := strconv.Atoi(year)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidMonthKey, s)
	}
	m, err := strconv.Atoi(month)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidMonthKey, s)
	}
	return NewMonthKey(y, m)
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// YearMonth splits a valid key. Invalid keys return zeros.
func (k MonthKey) YearMonth() (int, int) {
	y, m, ok := strings.Cut(string(k), "-")
	if !ok {
		return 0, 0
	}
	year, _ := strconv.Atoi(y)
	month, _ := strconv.Atoi(m)
	return year, month
}

// Prev returns the key of the preceding month.
func (k MonthKey) Prev() MonthKey {
	y, m := k.YearMonth()
	t := time.Date(y, time.Month(m), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -1, 0)
	return MonthKeyOf(t)
}

func (k MonthKey) String() string { return string(k) }

// Month returns the stored month for key, or a fresh empty month. It never
// mutates d, so reads do not create entries.
func (d AppData) Month(key MonthKey) MonthlyData {
	if m, ok := d.Months[string(key)]; ok {
		return m.withMaps()
	}
	return EmptyMonth()
}

// HasMonth reports whether key has been written.
func (d AppData) HasMonth(key MonthKey) bool {
	_, ok := d.Months[string(key)]
	return ok
}

// SetMonth stores m under key.
func (d *AppData) SetMonth(key MonthKey, m MonthlyData) {
	if d.Months == nil {
		d.Months = map[string]MonthlyData{}
	}
	d.Months[string(key)] = m
}

// MonthKeys returns the stored month keys in ascending order.
func (d AppData) MonthKeys() []MonthKey {
	keys := make([]MonthKey, 0, len(d.Months))
	for k := range d.Months {
		keys = append(keys, MonthKey(k))
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// LastKnownSalary returns the salary of the most recent month before key
// with a non-zero salary.
func (d AppData) LastKnownSalary(before MonthKey) (float64, bool) {
	keys := d.MonthKeys()
	for i := len(keys) - 1; i >= 0; i-- {
		if keys[i] >= before {
			continue
		}
		if s := d.Months[string(keys[i])].Salary; s > 0 {
			return s, true
		}
	}
	return 0, false
}

func (m MonthlyData) withMaps() MonthlyData {
	if m.Expenses == nil {
		m.Expenses = map[string]float64{}
	}
	if m.ExpensesUSD == nil {
		m.ExpensesUSD = map[string]float64{}
	}
	if m.PaidStatus == nil {
		m.PaidStatus = map[string]bool{}
	}
	if m.Extras == nil {
		m.Extras = map[string][]Extra{}
	}
	return m
}

// Clone returns a deep copy so callers can mutate maps freely.
func (m MonthlyData) Clone() MonthlyData {
	out := m
	out.Expenses = make(map[string]float64, len(m.Expenses))
	for k, v := range m.Expenses {
		out.Expenses[k] = v
	}
	out.ExpensesUSD = make(map[string]float64, len(m.ExpensesUSD))
	for k, v := range m.ExpensesUSD {
		out.ExpensesUSD[k] = v
	}
	out.PaidStatus = make(map[string]bool, len(m.PaidStatus))
	for k, v := range m.PaidStatus {
		out.PaidStatus[k] = v
	}
	out.Extras = make(map[string][]Extra, len(m.Extras))
	for k, v := range m.Extras {
		out.Extras[k] = make([]Extra, len(v))
		copy(out.Extras[k], v)
	}
	out.Fields = CloneFields(m.Fields)
	return out
}

// Clone returns a deep copy of the document.
func (d AppData) Clone() AppData {
	out := d
	out.Fields = CloneFields(d.Fields)
	if d.Months != nil {
		out.Months = make(map[string]MonthlyData, len(d.Months))
		for k, m := range d.Months {
			out.Months[k] = m.Clone()
		}
	}
	return out
}

// MonthUpdate is a partial month write. Nil members keep their stored value;
// non-nil maps replace the stored map as a whole.
type MonthUpdate struct {
	Salary           *float64           `json:"salary,omitempty"`
	Expenses         map[string]float64 `json:"expenses,omitempty"`
	ExpensesUSD      map[string]float64 `json:"expensesUsd,omitempty"`
	PaidStatus       map[string]bool    `json:"paidStatus,omitempty"`
	Extras           map[string][]Extra `json:"extras,omitempty"`
	RecurringApplied *bool              `json:"recurringApplied,omitempty"`
	Fields           []Field            `json:"fields,omitempty"`
}

func (u MonthUpdate) Validate() error {
	if u.Salary != nil && !ValidAmount(*u.Salary) {
		return fmt.Errorf("%w: salary %v", ErrInvalidAmount, *u.Salary)
	}
	for id, v := range u.Expenses {
		if !ValidAmount(v) {
			return fmt.Errorf("%w: expense %s = %v", ErrInvalidAmount, id, v)
		}
	}
	for id, v := range u.ExpensesUSD {
		if !ValidAmount(v) {
			return fmt.Errorf("%w: usd expense %s = %v", ErrInvalidAmount, id, v)
		}
	}
	if u.Fields != nil {
		if err := ValidateTree(u.Fields); err != nil {
			return err
		}
	}
	return nil
}

// Apply merges u into m and returns the result.
func (u MonthUpdate) Apply(m MonthlyData) MonthlyData {
	out := m.Clone()
	if u.Salary != nil {
		out.Salary = *u.Salary
	}
	if u.Expenses != nil {
		out.Expenses = u.Expenses
	}
	if u.ExpensesUSD != nil {
		out.ExpensesUSD = u.ExpensesUSD
	}
	if u.PaidStatus != nil {
		out.PaidStatus = u.PaidStatus
	}
	if u.Extras != nil {
		out.Extras = u.Extras
	}
	if u.RecurringApplied != nil {
		out.RecurringApplied = *u.RecurringApplied
	}
	if u.Fields != nil {
		out.Fields = u.Fields
	}
	return out.withMaps()
}
