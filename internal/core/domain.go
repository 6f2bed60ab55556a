package core

import (
	"errors"
	"fmt"
	"strings"
)

// DefaultAlertThreshold is the percentUsed at which a standard field starts warning.
const DefaultAlertThreshold = 80.0

const (
	FieldStandard FieldType = "standard"
	FieldSavings  FieldType = "savings"
)

type (
	FieldType string

	Subcategory struct {
		ID              string  `json:"id" bson:"id" toml:"id"`
		Name            string  `json:"name" bson:"name" toml:"name"`
		RecurringAmount float64 `json:"recurringAmount,omitempty" bson:"recurringAmount,omitempty" toml:"recurring_amount"`
	}

	Category struct {
		ID            string        `json:"id" bson:"id" toml:"id"`
		Name          string        `json:"name" bson:"name" toml:"name"`
		Subcategories []Subcategory `json:"subcategories" bson:"subcategories" toml:"subcategories"`
	}

	// Field is a budget bucket that receives a percentage of the salary.
	Field struct {
		ID             string     `json:"id" bson:"id" toml:"id"`
		Name           string     `json:"name" bson:"name" toml:"name"`
		Percentage     float64    `json:"percentage" bson:"percentage" toml:"percentage"`
		Color          Color      `json:"color" bson:"color" toml:"color"`
		Icon           Icon       `json:"icon" bson:"icon" toml:"icon"`
		Categories     []Category `json:"categories" bson:"categories" toml:"categories"`
		Type           FieldType  `json:"type" bson:"type" toml:"type"`
		AlertThreshold float64    `json:"alertThreshold,omitempty" bson:"alertThreshold,omitempty" toml:"alert_threshold"`
	}

	// Extra is an ad-hoc expense attached directly to a field for one month.
	Extra struct {
		ID          string  `json:"id" bson:"id"`
		Description string  `json:"description" bson:"description"`
		Amount      float64 `json:"amount" bson:"amount"`
		FieldID     string  `json:"fieldId" bson:"fieldId"`
	}

	MonthlyData struct {
		Salary           float64            `json:"salary" bson:"salary"`
		Expenses         map[string]float64 `json:"expenses" bson:"expenses"`
		ExpensesUSD      map[string]float64 `json:"expensesUsd" bson:"expensesUsd"`
		PaidStatus       map[string]bool    `json:"paidStatus" bson:"paidStatus"`
		Extras           map[string][]Extra `json:"extras" bson:"extras"`
		RecurringApplied bool               `json:"recurringApplied" bson:"recurringApplied"`
		// Fields is the tree snapshot taken when the month was first written.
		// Only populated when per-month snapshots are enabled.
		Fields []Field `json:"fields,omitempty" bson:"fields,omitempty"`
	}

	// AppData is the whole per-account document.
	AppData struct {
		Theme   Theme                  `json:"theme" bson:"theme"`
		Fields  []Field                `json:"fields" bson:"fields"`
		Months  map[string]MonthlyData `json:"months" bson:"months"`
		PINHash string                 `json:"pinHash,omitempty" bson:"pinHash,omitempty"`
	}
)

var (
	ErrInvalidMonth         = errors.New("invalid month")
	ErrInvalidMonthKey      = errors.New("invalid month key")
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrInvalidPercentage    = errors.New("invalid percentage")
	ErrEmptyID              = errors.New("empty id")
	ErrEmptyName            = errors.New("empty name")
	ErrDuplicateSubcategory = errors.New("duplicate subcategory id")
	ErrDuplicateField       = errors.New("duplicate field id")
	ErrFieldNotFound        = errors.New("field not found")
	ErrExtraNotFound        = errors.New("extra not found")
)

// Threshold returns the alert threshold, falling back to the default when unset.
func (f Field) Threshold() float64 {
	if f.AlertThreshold <= 0 {
		return DefaultAlertThreshold
	}
	return f.AlertThreshold
}

// IsSavings reports whether the field accumulates towards a goal instead of capping spend.
func (f Field) IsSavings() bool {
	return f.Type == FieldSavings
}

// HasSubcategory reports whether id belongs to any category of the field.
func (f Field) HasSubcategory(id string) bool {
	for _, c := range f.Categories {
		for _, s := range c.Subcategories {
			if s.ID == id {
				return true
			}
		}
	}
	return false
}

func (s Subcategory) Validate() error {
	if strings.TrimSpace(s.ID) == "" {
		return ErrEmptyID
	}
	if !ValidAmount(s.RecurringAmount) {
		return fmt.Errorf("%w: recurring amount %v", ErrInvalidAmount, s.RecurringAmount)
	}
	return nil
}

func (f Field) Validate() error {
	if strings.TrimSpace(f.ID) == "" {
		return ErrEmptyID
	}
	if strings.TrimSpace(f.Name) == "" {
		return ErrEmptyName
	}
	if !ValidAmount(f.Percentage) {
		return fmt.Errorf("%w: %v", ErrInvalidPercentage, f.Percentage)
	}
	if !ValidAmount(f.AlertThreshold) {
		return fmt.Errorf("%w: alert threshold %v", ErrInvalidPercentage, f.AlertThreshold)
	}
	for _, c := range f.Categories {
		if strings.TrimSpace(c.ID) == "" {
			return ErrEmptyID
		}
		for _, s := range c.Subcategories {
			if err := s.Validate(); err != nil {
				return fmt.Errorf("subcategory %q: %w", s.ID, err)
			}
		}
	}
	return nil
}

// ValidateTree checks every field and that field and subcategory ids are
// unique across the whole tree, since expense maps are keyed by subcategory id.
func ValidateTree(fields []Field) error {
	fieldIDs := make(map[string]struct{}, len(fields))
	subIDs := make(map[string]struct{})
	for _, f := range fields {
		if err := f.Validate(); err != nil {
			return fmt.Errorf("field %q: %w", f.ID, err)
		}
		if _, dup := fieldIDs[f.ID]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateField, f.ID)
		}
		fieldIDs[f.ID] = struct{}{}
		for _, c := range f.Categories {
			for _, s := range c.Subcategories {
				if _, dup := subIDs[s.ID]; dup {
					return fmt.Errorf("%w: %s", ErrDuplicateSubcategory, s.ID)
				}
				subIDs[s.ID] = struct{}{}
			}
		}
	}
	return nil
}

// CloneFields returns a deep copy of the tree.
func CloneFields(fields []Field) []Field {
	if fields == nil {
		return nil
	}
	out := make([]Field, len(fields))
	for i, f := range fields {
		out[i] = f
		if f.Categories == nil {
			continue
		}
		out[i].Categories = make([]Category, len(f.Categories))
		for j, c := range f.Categories {
			out[i].Categories[j] = c
			if c.Subcategories != nil {
				out[i].Categories[j].Subcategories = make([]Subcategory, len(c.Subcategories))
				copy(out[i].Categories[j].Subcategories, c.Subcategories)
			}
		}
	}
	return out
}

// TotalPercentage sums the allocation of every field without capping.
func TotalPercentage(fields []Field) float64 {
	var total float64
	for _, f := range fields {
		total += f.Percentage
	}
	return total
}

// FindField returns the index of the field with the given id, or -1.
func FindField(fields []Field, id string) int {
	for i, f := range fields {
		if f.ID == id {
			return i
		}
	}
	return -1
}
