package cli

import (
	"strings"
	"testing"
)

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0.00"},
		{12.5, "12.50"},
		{1234.567, "1,234.57"},
		{1000000, "1,000,000.00"},
		{-4500, "-4,500.00"},
	}
	for _, tt := range tests {
		if got := FormatMoney(tt.in); got != tt.want {
			t.Errorf("FormatMoney(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatPercent(t *testing.T) {
	if got := FormatPercent(87.25); got != "87.2%" && got != "87.3%" {
		t.Errorf("FormatPercent(87.25) = %q", got)
	}
}

func TestRenderTable(t *testing.T) {
	out := RenderTable(Table{
		Title:   "FIELDS",
		Headers: []string{"Name", "Budget"},
		Rows: [][]string{
			{"Living", "5,000.00"},
			{"---"},
			{"Total", "10,000.00"},
		},
	})

	for _, want := range []string{"FIELDS", "Name", "Living", "10,000.00", "╭", "╯"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
	if got := strings.Count(out, "\n"); got != 8 {
		t.Errorf("table has %d lines, want 8:\n%s", got, out)
	}

	if RenderTable(Table{}) != "" {
		t.Error("empty table should render nothing")
	}
}
