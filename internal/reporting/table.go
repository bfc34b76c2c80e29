// Package reporting renders the summaries printed by start, stop, status and sync.
package reporting

import (
	"fmt"
	"io"
	"strings"

	"devstack/internal/tui/design"

	"github.com/mattn/go-runewidth"
)

const (
	columnGap    = 2
	maxCellWidth = 60
)

// Table is a plain column-aligned table. Widths are measured in terminal cells.
type Table struct {
	Headers []string
	Rows    [][]string
	// StatusColumn is styled with design.GetStateStyle; -1 disables it.
	StatusColumn int
}

// NewTable returns a table with the given headers and no status styling.
func NewTable(headers ...string) *Table {
	return &Table{Headers: headers, StatusColumn: -1}
}

// AddRow appends a row; missing cells render empty.
func (t *Table) AddRow(cells ...string) {
	t.Rows = append(t.Rows, cells)
}

func (t *Table) widths() []int {
	widths := make([]int, len(t.Headers))
	for i, h := range t.Headers {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range t.Rows {
		for i := 0; i < len(widths) && i < len(row); i++ {
			if w := runewidth.StringWidth(row[i]); w > widths[i] {
				widths[i] = min(w, maxCellWidth)
			}
		}
	}
	return widths
}

// Render writes the table to w.
func (t *Table) Render(w io.Writer) error {
	widths := t.widths()

	var b strings.Builder
	b.WriteString(t.line(t.Headers, widths, func(col int, s string) string {
		return design.TableHeaderStyle.Render(s)
	}))
	for _, row := range t.Rows {
		b.WriteString(t.line(row, widths, func(col int, s string) string {
			if col != t.StatusColumn {
				return s
			}
			return design.GetStateStyle(strings.TrimSpace(s)).Render(s)
		}))
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func (t *Table) line(cells []string, widths []int, style func(col int, s string) string) string {
	var b strings.Builder
	for i, w := range widths {
		cell := ""
		if i < len(cells) {
			cell = cells[i]
		}
		cell = runewidth.Truncate(cell, w, "…")
		if i < len(widths)-1 {
			cell = runewidth.FillRight(cell, w+columnGap)
		}
		b.WriteString(style(i, cell))
	}
	return strings.TrimRight(b.String(), " ") + "\n"
}

// Heading renders a section title.
func Heading(w io.Writer, title string) {
	fmt.Fprintln(w, design.TitleStyle.Render(title))
}

// Notice renders a line in the given state's style.
func Notice(w io.Writer, state, msg string) {
	fmt.Fprintln(w, design.GetStateStyle(state).Render(msg))
}
