package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	ColorBorder = lipgloss.Color("#575653")
	ColorText   = lipgloss.Color("#FFFCF0")
	ColorMuted  = lipgloss.Color("#6F6E69")
	ColorAccent = lipgloss.Color("#3AA99F")
	ColorGreen  = lipgloss.Color("#879A39")
	ColorOrange = lipgloss.Color("#DA702C")
	ColorRed    = lipgloss.Color("#D14D41")
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorText).
			Align(lipgloss.Center)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorAccent)

	mutedStyle = lipgloss.NewStyle().Foreground(ColorMuted)
	dimStyle   = lipgloss.NewStyle().Foreground(ColorBorder)
)

// Table is a bordered text table.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
}

// RenderTitle renders a centered title in a rounded box.
func RenderTitle(title string) string {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorder).
		Width(55).
		Align(lipgloss.Center).
		Padding(0, 1).
		Render(titleStyle.Render(title))
}

// RenderTable renders t with box-drawing borders. A row holding the single
// cell "---" becomes a separator.
func RenderTable(t Table) string {
	numCols := len(t.Headers)
	if numCols == 0 && len(t.Rows) > 0 {
		numCols = len(t.Rows[0])
	}
	if numCols == 0 {
		return ""
	}

	widths := make([]int, numCols)
	for i, h := range t.Headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range t.Rows {
		for i, cell := range row {
			if i < numCols && lipgloss.Width(cell) > widths[i] {
				widths[i] = lipgloss.Width(cell)
			}
		}
	}

	line := func(left, mid, right string) string {
		var b strings.Builder
		b.WriteString(left)
		for i, w := range widths {
			b.WriteString(strings.Repeat("─", w+2))
			if i < numCols-1 {
				b.WriteString(mid)
			}
		}
		b.WriteString(right)
		return dimStyle.Render(b.String()) + "\n"
	}
	row := func(cells []string, style lipgloss.Style) string {
		var b strings.Builder
		b.WriteString(dimStyle.Render("│"))
		for i := 0; i < numCols; i++ {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			pad := widths[i] - lipgloss.Width(cell)
			b.WriteString(" " + style.Render(cell) + strings.Repeat(" ", pad) + " ")
			b.WriteString(dimStyle.Render("│"))
		}
		return b.String() + "\n"
	}

	var b strings.Builder
	if t.Title != "" {
		b.WriteString("  " + headerStyle.Render(t.Title) + "\n")
	}
	b.WriteString(line("╭", "┬", "╮"))
	if len(t.Headers) > 0 {
		b.WriteString(row(t.Headers, headerStyle))
		b.WriteString(line("├", "┼", "┤"))
	}
	for _, r := range t.Rows {
		if len(r) == 1 && r[0] == "---" {
			b.WriteString(line("├", "┼", "┤"))
			continue
		}
		b.WriteString(row(r, lipgloss.NewStyle()))
	}
	b.WriteString(line("╰", "┴", "╯"))
	return b.String()
}

// Colored renders s in color.
func Colored(s string, color lipgloss.Color) string {
	return lipgloss.NewStyle().Foreground(color).Render(s)
}

// Muted renders s in the muted text color.
func Muted(s string) string {
	return mutedStyle.Render(s)
}

// FormatMoney renders an amount with two decimals and thousands separators.
func FormatMoney(v float64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	s := fmt.Sprintf("%.2f", v)
	whole, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	for i, c := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	return sign + b.String() + "." + frac
}

// FormatPercent renders p with one decimal.
func FormatPercent(p float64) string {
	return fmt.Sprintf("%.1f%%", p)
}
