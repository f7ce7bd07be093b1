package formatter

import (
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/mattn/go-runewidth"

	"github.com/oakwood-commons/jtv/internal/navigator"
)

const (
	sepWidth    = 2
	minColWidth = 3
)

// ColumnarOptions configures columnar table rendering.
type ColumnarOptions struct {
	// NoColor disables styling.
	NoColor bool

	// TotalWidth is the total available width. If 0, uses terminal width.
	TotalWidth int

	// MaxColumnWidth caps each column before any shrinking. 0 means 40.
	MaxColumnWidth int

	// KeyColumn styles the first column like keys instead of values.
	KeyColumn bool

	// Sort marks the header of the sorted column with an arrow.
	Sort *navigator.SortSpec
}

// SortArrow returns the marker shown next to a sorted header.
func SortArrow(d navigator.Direction) string {
	if d == navigator.Descending {
		return "▼"
	}
	return "▲"
}

// RenderColumnarTable renders rows under columns, followed by a separator
// line below the header. Rows shorter than columns are padded with blanks.
func RenderColumnarTable(columns []string, rows [][]string, opts ColumnarOptions) string {
	if len(columns) == 0 {
		return ""
	}
	headers := make([]string, len(columns))
	for i, col := range columns {
		headers[i] = col
		if opts.Sort != nil && opts.Sort.Column == col {
			headers[i] = col + " " + SortArrow(opts.Sort.Direction)
		}
	}

	totalWidth := opts.TotalWidth
	if totalWidth <= 0 {
		totalWidth = TerminalWidth()
	}
	maxCol := opts.MaxColumnWidth
	if maxCol <= 0 {
		maxCol = 40
	}
	widths := calculateColumnWidths(headers, rows, totalWidth, maxCol)

	var b strings.Builder
	b.WriteString(renderRow(headers, widths, func(int) lipgloss.Style { return headerStyle }, opts.NoColor))
	b.WriteByte('\n')

	total := (len(widths) - 1) * sepWidth
	for _, w := range widths {
		total += w
	}
	separator := strings.Repeat("─", total)
	if !opts.NoColor {
		separator = separatorStyle.Render(separator)
	}
	b.WriteString(separator)
	b.WriteByte('\n')

	style := func(i int) lipgloss.Style {
		if i == 0 && opts.KeyColumn {
			return keyStyle
		}
		return valueStyle
	}
	for _, row := range rows {
		b.WriteString(renderRow(padTo(row, len(columns)), widths, style, opts.NoColor))
		b.WriteByte('\n')
	}
	return b.String()
}

func renderRow(cells []string, widths []int, style func(col int) lipgloss.Style, noColor bool) string {
	parts := make([]string, len(widths))
	for i, w := range widths {
		cell := padRight(cells[i], w)
		if !noColor {
			cell = style(i).Render(cell)
		}
		parts[i] = cell
	}
	return strings.TrimRight(strings.Join(parts, strings.Repeat(" ", sepWidth)), " ")
}

func padTo(row []string, n int) []string {
	if len(row) >= n {
		return row[:n]
	}
	out := make([]string, n)
	copy(out, row)
	return out
}

// ColumnWidths returns the width each column gets when the table is laid out
// in availableWidth cells with columns capped at maxCol.
func ColumnWidths(columns []string, rows [][]string, availableWidth, maxCol int) []int {
	if len(columns) == 0 {
		return nil
	}
	if maxCol <= 0 {
		maxCol = 40
	}
	return calculateColumnWidths(columns, rows, availableWidth, maxCol)
}

// calculateColumnWidths sizes every column to its widest cell, caps it at
// maxCol and, when the table still does not fit, shrinks columns in
// proportion to their width down to minColWidth.
func calculateColumnWidths(columns []string, rows [][]string, availableWidth, maxCol int) []int {
	numCols := len(columns)
	widths := make([]int, numCols)
	for i, col := range columns {
		widths[i] = runewidth.StringWidth(col)
	}
	for _, row := range rows {
		for i, val := range row {
			if i < numCols {
				widths[i] = max(widths[i], runewidth.StringWidth(val))
			}
		}
	}
	for i := range widths {
		widths[i] = max(min(widths[i], maxCol), minColWidth)
	}

	usable := availableWidth - (numCols-1)*sepWidth
	total := sum(widths)
	if total <= usable || usable <= 0 {
		return widths
	}
	for i := range widths {
		widths[i] = max(widths[i]*usable/total, minColWidth)
	}
	// Rounding can leave the table a few cells too wide.
	for sum(widths) > usable {
		widest := 0
		for i := range widths {
			if widths[i] > widths[widest] {
				widest = i
			}
		}
		if widths[widest] <= minColWidth {
			break
		}
		widths[widest]--
	}
	return widths
}

func sum(xs []int) int {
	n := 0
	for _, x := range xs {
		n += x
	}
	return n
}
