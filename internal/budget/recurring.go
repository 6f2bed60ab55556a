package budget

import "finanzas/internal/core"

// RecurringState is the one-shot gate a month passes through when its
// recurring templates have been offered.
type RecurringState string

const (
	RecurringPending RecurringState = "pending"
	RecurringSettled RecurringState = "settled"
)

// RecurringCandidate is a template missing from the month's expenses.
type RecurringCandidate struct {
	SubcategoryID string  `json:"subId"`
	Name          string  `json:"name"`
	CategoryName  string  `json:"categoryName"`
	FieldName     string  `json:"fieldName"`
	Amount        float64 `json:"amount"`
}

// StateOf reports whether the month still has to be offered its templates.
func StateOf(month core.MonthlyData) RecurringState {
	if month.RecurringApplied {
		return RecurringSettled
	}
	return RecurringPending
}

// RecurringCandidates walks the tree and returns every subcategory with a
// positive recurring amount that has no expense recorded this month. A
// zero amount counts as no expense. Settled months yield nothing.
func RecurringCandidates(fields []core.Field, month core.MonthlyData) []RecurringCandidate {
	if StateOf(month) == RecurringSettled {
		return nil
	}
	var out []RecurringCandidate
	for _, f := range fields {
		for _, c := range f.Categories {
			for _, s := range c.Subcategories {
				if s.RecurringAmount <= 0 {
					continue
				}
				if month.Expenses[s.ID] != 0 {
					continue
				}
				out = append(out, RecurringCandidate{
					SubcategoryID: s.ID,
					Name:          s.Name,
					CategoryName:  c.Name,
					FieldName:     f.Name,
					Amount:        s.RecurringAmount,
				})
			}
		}
	}
	return out
}

// SelectAll is the default selection for a prompt: every candidate accepted.
func SelectAll(candidates []RecurringCandidate) []string {
	ids := make([]string, len(candidates))
	for i, c := range candidates {
		ids[i] = c.SubcategoryID
	}
	return ids
}

// ResolveRecurring writes the accepted candidates into the month's
// expenses and settles the month whether or not anything was accepted.
// Accepted ids that are not candidates are ignored.
func ResolveRecurring(month core.MonthlyData, candidates []RecurringCandidate, accepted []string) core.MonthlyData {
	out := month.Clone()
	keep := make(map[string]struct{}, len(accepted))
	for _, id := range accepted {
		keep[id] = struct{}{}
	}
	for _, c := range candidates {
		if _, ok := keep[c.SubcategoryID]; ok {
			out.Expenses[c.SubcategoryID] = c.Amount
		}
	}
	out.RecurringApplied = true
	return out
}
