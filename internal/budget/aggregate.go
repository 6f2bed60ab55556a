package budget

import (
	"maps"
	"slices"

	"finanzas/internal/core"
)

// AlertState classifies how much of a field's budget has been used.
type AlertState string

const (
	AlertOK          AlertState = "ok"
	AlertWarning     AlertState = "warning"
	AlertOver        AlertState = "over"
	AlertGoalReached AlertState = "goal_reached"
)

// FieldSummary is the per-field result of Aggregate.
type FieldSummary struct {
	FieldID        string         `json:"fieldId"`
	Name           string         `json:"name"`
	Type           core.FieldType `json:"type"`
	Color          core.Color     `json:"color"`
	Percentage     float64        `json:"percentage"`
	AlertThreshold float64        `json:"alertThreshold"`
	Budget         float64        `json:"budget"`
	SubTotal       float64        `json:"subTotal"`
	ExtraTotal     float64        `json:"extraTotal"`
	TotalSpent     float64        `json:"totalSpent"`
	Remaining      float64        `json:"remaining"`
	PercentUsed    float64        `json:"percentUsed"`
	Alert          AlertState     `json:"alert"`
	USDTotal       float64        `json:"usdTotal"`
}

// MonthSummary is the result of Aggregate.
type MonthSummary struct {
	Salary                   float64        `json:"salary"`
	Fields                   []FieldSummary `json:"fields"`
	TotalExpenses            float64        `json:"totalExpenses"`
	Available                float64        `json:"available"`
	TotalAllocatedPercentage float64        `json:"totalAllocatedPercentage"`
	TotalUSD                 float64        `json:"totalUsd"`
}

// Aggregate computes budgets, spend and alert state for every field, and
// the month totals. The grand totals are summed over the raw expense and
// extras maps so amounts under orphaned ids are still counted.
func Aggregate(fields []core.Field, month core.MonthlyData) MonthSummary {
	summary := MonthSummary{
		Salary: month.Salary,
		Fields: make([]FieldSummary, 0, len(fields)),
	}

	for _, f := range fields {
		summary.Fields = append(summary.Fields, aggregateField(f, month))
		summary.TotalAllocatedPercentage += f.Percentage
	}

	// Keys are visited in sorted order so repeated calls add in the same order.
	for _, id := range slices.Sorted(maps.Keys(month.Expenses)) {
		summary.TotalExpenses += month.Expenses[id]
	}
	for _, fieldID := range slices.Sorted(maps.Keys(month.Extras)) {
		for _, e := range month.Extras[fieldID] {
			summary.TotalExpenses += e.Amount
		}
	}
	for _, id := range slices.Sorted(maps.Keys(month.ExpensesUSD)) {
		summary.TotalUSD += month.ExpensesUSD[id]
	}
	summary.Available = month.Salary - summary.TotalExpenses

	return summary
}

func aggregateField(f core.Field, month core.MonthlyData) FieldSummary {
	fs := FieldSummary{
		FieldID:        f.ID,
		Name:           f.Name,
		Type:           f.Type,
		Color:          f.Color,
		Percentage:     f.Percentage,
		AlertThreshold: f.Threshold(),
		Budget:         month.Salary * f.Percentage / 100,
	}

	for _, c := range f.Categories {
		for _, sub := range c.Subcategories {
			fs.SubTotal += month.Expenses[sub.ID]
			fs.USDTotal += month.ExpensesUSD[sub.ID]
		}
	}
	for _, e := range month.Extras[f.ID] {
		fs.ExtraTotal += e.Amount
	}

	fs.TotalSpent = fs.SubTotal + fs.ExtraTotal
	fs.Remaining = fs.Budget - fs.TotalSpent
	if fs.Budget > 0 {
		fs.PercentUsed = fs.TotalSpent / fs.Budget * 100
	}
	fs.Alert = classify(f, fs.PercentUsed)
	return fs
}

func classify(f core.Field, percentUsed float64) AlertState {
	if f.IsSavings() {
		if percentUsed >= 100 {
			return AlertGoalReached
		}
		return AlertOK
	}
	switch {
	case percentUsed >= 100:
		return AlertOver
	case percentUsed >= f.Threshold():
		return AlertWarning
	default:
		return AlertOK
	}
}

// Field returns the summary for fieldID.
func (s MonthSummary) Field(fieldID string) (FieldSummary, bool) {
	for _, f := range s.Fields {
		if f.FieldID == fieldID {
			return f, true
		}
	}
	return FieldSummary{}, false
}
