// Package render formats analysis results for the terminal.
package render

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
	ColorRed    = lipgloss.Color("#D14D41")
	ColorOrange = lipgloss.Color("#DA702C")
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorText).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Width(60).
			Align(lipgloss.Center)

	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorAccent)
	valueStyle  = lipgloss.NewStyle().Foreground(ColorText)
	mutedStyle  = lipgloss.NewStyle().Foreground(ColorMuted)
	borderStyle = lipgloss.NewStyle().Foreground(ColorBorder)
	goodStyle   = lipgloss.NewStyle().Foreground(ColorGreen)
	badStyle    = lipgloss.NewStyle().Foreground(ColorRed)
	warnStyle   = lipgloss.NewStyle().Foreground(ColorOrange)
)

// Table is a bordered text table. Columns listed in Right are
// right-aligned, which suits amounts and counts.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
	Right   map[int]bool
}

// Title renders a boxed heading.
func Title(s string) string {
	return titleStyle.Render(s)
}

// Muted renders secondary text.
func Muted(s string) string {
	return mutedStyle.Render(s)
}

// Warn renders a warning line.
func Warn(s string) string {
	return warnStyle.Render(s)
}

// RenderTable draws t with rounded borders. Cell widths are measured with
// lipgloss so multi-byte symbols such as ₹ line up.
func RenderTable(t Table) string {
	cols := len(t.Headers)
	for _, row := range t.Rows {
		if len(row) > cols {
			cols = len(row)
		}
	}
	if cols == 0 {
		return ""
	}

	widths := make([]int, cols)
	measure := func(row []string) {
		for i, cell := range row {
			if w := lipgloss.Width(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}
	measure(t.Headers)
	for _, row := range t.Rows {
		measure(row)
	}

	var b strings.Builder
	if t.Title != "" {
		fmt.Fprintf(&b, "  %s\n", headerStyle.Render(t.Title))
	}

	rule := func(left, mid, right string) {
		b.WriteString(borderStyle.Render(left))
		for i, w := range widths {
			b.WriteString(borderStyle.Render(strings.Repeat("─", w+2)))
			if i < cols-1 {
				b.WriteString(borderStyle.Render(mid))
			}
		}
		b.WriteString(borderStyle.Render(right))
		b.WriteByte('\n')
	}
	line := func(row []string, style lipgloss.Style) {
		b.WriteString(borderStyle.Render("│"))
		for i := 0; i < cols; i++ {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			pad := strings.Repeat(" ", widths[i]-lipgloss.Width(cell))
			if t.Right[i] {
				cell = pad + cell
			} else {
				cell += pad
			}
			b.WriteString(style.Render(" " + cell + " "))
			b.WriteString(borderStyle.Render("│"))
		}
		b.WriteByte('\n')
	}

	rule("╭", "┬", "╮")
	if len(t.Headers) > 0 {
		line(t.Headers, headerStyle)
		rule("├", "┼", "┤")
	}
	for _, row := range t.Rows {
		line(row, valueStyle)
	}
	rule("╰", "┴", "╯")

	return b.String()
}

// Bar renders a proportional bar of at most width cells.
func Bar(value, max float64, width int) string {
	if max <= 0 || value <= 0 {
		return ""
	}
	n := int(value / max * float64(width))
	if n < 1 {
		n = 1
	}
	if n > width {
		n = width
	}
	return goodStyle.Render(strings.Repeat("█", n))
}
