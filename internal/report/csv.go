// Package report renders a month of the budget for export.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"finanzas/internal/budget"
	"finanzas/internal/core"
)

func money(v float64) string { return fmt.Sprintf("%.2f", v) }

func percent(v float64) string { return fmt.Sprintf("%.1f%%", v) }

// WriteMonthCSV writes the month summary, the per-field breakdown, the
// recorded expenses and the extras of key as CSV sections.
func WriteMonthCSV(w io.Writer, key core.MonthKey, fields []core.Field, month core.MonthlyData, generated time.Time) error {
	summary := budget.Aggregate(fields, month)

	csvWriter := csv.NewWriter(w)

	header := [][]string{
		{"Monthly Budget Report"},
		{"Month", key.String()},
		{"Generated", generated.Format("2006-01-02 15:04:05")},
		{},
		{"SUMMARY"},
		{"Salary", money(summary.Salary)},
		{"Total Expenses", money(summary.TotalExpenses)},
		{"Available", money(summary.Available)},
		{"Allocated", percent(summary.TotalAllocatedPercentage)},
		{"Total USD", money(summary.TotalUSD)},
		{},
	}
	for _, row := range header {
		if err := csvWriter.Write(row); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}

	rows := [][]string{
		{"FIELDS"},
		{"Field", "Type", "Percentage", "Budget", "Spent", "Extras", "Total", "Remaining", "Used", "Alert"},
	}
	for _, f := range summary.Fields {
		rows = append(rows, []string{
			f.Name,
			string(f.Type),
			percent(f.Percentage),
			money(f.Budget),
			money(f.SubTotal),
			money(f.ExtraTotal),
			money(f.TotalSpent),
			money(f.Remaining),
			percent(f.PercentUsed),
			string(f.Alert),
		})
	}
	rows = append(rows, []string{})

	rows = append(rows,
		[]string{"EXPENSES"},
		[]string{"Field", "Category", "Subcategory", "Amount", "USD", "Paid"},
	)
	for _, f := range fields {
		for _, c := range f.Categories {
			for _, s := range c.Subcategories {
				amount, usd := month.Expenses[s.ID], month.ExpensesUSD[s.ID]
				if amount == 0 && usd == 0 {
					continue
				}
				rows = append(rows, []string{
					f.Name,
					c.Name,
					s.Name,
					money(amount),
					money(usd),
					strconv.FormatBool(month.PaidStatus[s.ID]),
				})
			}
		}
	}

	extras := [][]string{}
	for _, f := range fields {
		for _, e := range month.Extras[f.ID] {
			extras = append(extras, []string{f.Name, e.Description, money(e.Amount)})
		}
	}
	if len(extras) > 0 {
		rows = append(rows,
			[]string{},
			[]string{"EXTRAS"},
			[]string{"Field", "Description", "Amount"},
		)
		rows = append(rows, extras...)
	}

	if err := csvWriter.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
