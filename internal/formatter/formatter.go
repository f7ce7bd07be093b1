// Package formatter renders views as plain or styled text tables for the
// terminal.
package formatter

import (
	"image/color"
	"os"
	"strconv"
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/mattn/go-runewidth"
	"golang.org/x/term"

	"github.com/oakwood-commons/jtv/internal/config"
	"github.com/oakwood-commons/jtv/internal/tree"
)

var (
	defaultHeaderFG   = lipgloss.Color("12")
	defaultHeaderBG   = lipgloss.Color("236")
	defaultKeyColor   = lipgloss.Color("14")
	defaultValueColor = lipgloss.Color("248")
	defaultSeparator  = lipgloss.Color("240")

	headerStyle    lipgloss.Style
	keyStyle       lipgloss.Style
	valueStyle     lipgloss.Style
	separatorStyle lipgloss.Style
)

// TableColors controls the rendered colors of tables.
// Nil fields fall back to the defaults (ANSI 256 codes).
type TableColors struct {
	HeaderFG       color.Color
	HeaderBG       color.Color
	KeyColor       color.Color
	ValueColor     color.Color
	SeparatorColor color.Color
}

// ColorsFromTheme maps configured theme colors onto table colors. Empty
// entries keep the defaults.
func ColorsFromTheme(t config.ThemeConfig) TableColors {
	pick := func(s string) color.Color {
		if s == "" {
			return nil
		}
		return lipgloss.Color(s)
	}
	return TableColors{
		HeaderFG:       pick(t.HeaderFG),
		HeaderBG:       pick(t.HeaderBG),
		KeyColor:       pick(t.SelectedFG),
		ValueColor:     pick(t.MutedFG),
		SeparatorColor: pick(t.BorderFG),
	}
}

func applyTableTheme(tc TableColors) {
	orDefault := func(c, def color.Color) color.Color {
		if c == nil {
			return def
		}
		return c
	}
	headerStyle = lipgloss.NewStyle().Bold(true).
		Foreground(orDefault(tc.HeaderFG, defaultHeaderFG)).
		Background(orDefault(tc.HeaderBG, defaultHeaderBG))
	keyStyle = lipgloss.NewStyle().Foreground(orDefault(tc.KeyColor, defaultKeyColor))
	valueStyle = lipgloss.NewStyle().Foreground(orDefault(tc.ValueColor, defaultValueColor))
	separatorStyle = lipgloss.NewStyle().Foreground(orDefault(tc.SeparatorColor, defaultSeparator))
}

// SetTableTheme overrides the global table styles.
func SetTableTheme(tc TableColors) {
	applyTableTheme(tc)
}

//nolint:gochecknoinits // initialize default table theme for package consumers
func init() {
	applyTableTheme(TableColors{})
}

// Cell returns the text a table cell shows for v: "null" for null, a size
// marker for containers, the plain text of anything else on one line.
func Cell(v tree.Value) string {
	switch v.Kind() {
	case tree.KindNull:
		return "null"
	case tree.KindArray:
		return "[ Array(" + strconv.Itoa(v.Len()) + ") ]"
	case tree.KindObject:
		return "[ Object ]"
	default:
		return singleLine(v.Text())
	}
}

// FieldCell is Cell for a column of a row. Absent fields are blank.
func FieldCell(row tree.Value, column string) string {
	v, ok := row.Get(column)
	if !ok {
		return ""
	}
	return Cell(v)
}

// singleLine flattens line breaks so rows stay on one line.
func singleLine(s string) string {
	if !strings.ContainsAny(s, "\r\n\t") {
		return s
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return strings.ReplaceAll(s, "\t", " ")
}

// Truncate shortens s to at most width display cells, ending in "..." when
// anything was cut.
func Truncate(s string, width int) string {
	if width <= 0 || runewidth.StringWidth(s) <= width {
		return s
	}
	if width < 3 {
		return runewidth.Truncate(s, width, "")
	}
	return runewidth.Truncate(s, width, "...")
}

// padRight fits s into exactly width display cells.
func padRight(s string, width int) string {
	return runewidth.FillRight(Truncate(s, width), width)
}

// TerminalWidth returns the width of the terminal on stdout, or 120 when
// stdout is not a terminal.
func TerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return 120
	}
	return width
}
