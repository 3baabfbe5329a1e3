// Package render draws admin screens and notifications for the terminal.
package render

import (
	"clinicadmin/internal/admin"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	totalStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#555555")).Bold(true)
	headerStyle  = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
	borderStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	cardStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#888888")).Padding(0, 1)
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	emptyStyle   = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("#888888"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
)

// Row is one record in display order.
type Row struct {
	ID       int64
	Cells    []string
	Expanded bool
}

// Table is a screen's visible data.
type Table struct {
	Title   string
	Headers []string
	Rows    []Row
}

// Options selects the layout.
type Options struct {
	// Narrow renders cards instead of a table.
	Narrow bool
}

// Screen renders the title, the record count and the rows.
func Screen(t Table, opts Options) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(t.Title))
	b.WriteString("\n")
	b.WriteString(totalStyle.Render(fmt.Sprintf("Total Records: %d", len(t.Rows))))
	b.WriteString("\n")
	switch {
	case len(t.Rows) == 0:
		b.WriteString(emptyStyle.Render("No records found"))
	case opts.Narrow:
		b.WriteString(cards(t))
	default:
		b.WriteString(grid(t))
	}
	b.WriteString("\n")
	return b.String()
}

func grid(t Table) string {
	rows := make([][]string, 0, len(t.Rows))
	for i, r := range t.Rows {
		rows = append(rows, append([]string{strconv.Itoa(i + 1)}, r.Cells...))
	}
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers(append([]string{"S.No"}, t.Headers...)...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		String()
}

func cards(t Table) string {
	out := make([]string, 0, len(t.Rows))
	for i, r := range t.Rows {
		summary := ""
		if len(r.Cells) > 0 {
			summary = r.Cells[0]
		}
		lines := []string{fmt.Sprintf("%d. %s", i+1, summary)}
		if r.Expanded {
			for j, h := range t.Headers {
				if j >= len(r.Cells) {
					break
				}
				lines = append(lines, labelStyle.Render(h+":")+" "+r.Cells[j])
			}
		}
		out = append(out, cardStyle.Render(strings.Join(lines, "\n")))
	}
	return lipgloss.JoinVertical(lipgloss.Left, out...)
}

// Toast renders a notification line.
func Toast(n admin.Notification) string {
	if n.Level == admin.LevelError {
		return errorStyle.Render("✗ " + n.Message)
	}
	return successStyle.Render("✓ " + n.Message)
}
