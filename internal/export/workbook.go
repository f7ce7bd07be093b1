package export

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/oakwood-commons/jtv/internal/navigator"
	"github.com/oakwood-commons/jtv/internal/tree"
)

const (
	// DefaultRowIDColumn heads the column tracing every row to its main row.
	DefaultRowIDColumn = "_rowId"
	// DefaultMainSheet is the title of the first sheet.
	DefaultMainSheet = "Main"
	// MaxSheetTitle is the longest sheet title spreadsheet tools accept.
	MaxSheetTitle = 31
	// ValueColumn holds the elements of flattened primitive arrays.
	ValueColumn = "value"
	// EmptyArrayText is written for empty arrays on the main sheet.
	EmptyArrayText = "[]"

	invalidTitleChars = `:\/?*[]`
	fallbackTitle     = "Sheet"
)

// Options configures Flatten. Zero fields take the defaults above.
type Options struct {
	MainSheet   string
	RowIDColumn string
}

func (o Options) withDefaults() Options {
	if o.MainSheet == "" {
		o.MainSheet = DefaultMainSheet
	}
	if o.RowIDColumn == "" {
		o.RowIDColumn = DefaultRowIDColumn
	}
	return o
}

// Cell is one main-sheet cell. Null values render empty. A placeholder cell
// carries the title of the sheet it links to.
type Cell struct {
	Value tree.Value
	Link  string
}

// MainRow is one row of the main sheet.
type MainRow struct {
	RowID int
	Cells []Cell // aligned with MainSheet.Headers
}

// MainSheet mirrors the exported view, one row per displayed row.
type MainSheet struct {
	Title       string
	RowIDColumn string
	Headers     []string
	Rows        []MainRow
}

// Columns returns the identifier column followed by the headers.
func (s *MainSheet) Columns() []string {
	return append([]string{s.RowIDColumn}, s.Headers...)
}

// FlattenedRow is one row of a secondary sheet.
type FlattenedRow struct {
	// OriginRowID is the 1-based main-sheet row this row came from.
	OriginRowID int
	Fields      []tree.Member
}

// Field returns the value of column name.
func (r FlattenedRow) Field(name string) (tree.Value, bool) {
	for _, f := range r.Fields {
		if f.Key == name {
			return f.Value, true
		}
	}
	return tree.Value{}, false
}

// Sheet is a secondary sheet collecting the nested values of one header.
type Sheet struct {
	Header      string
	Title       string
	RowIDColumn string
	// Union is every field name written into the sheet, first seen first.
	Union []string
	Rows  []FlattenedRow

	seen map[string]bool
}

// Columns returns the identifier column followed by the field union.
func (s *Sheet) Columns() []string {
	return append([]string{s.RowIDColumn}, s.Union...)
}

func (s *Sheet) add(originRowID int, fields []tree.Member) {
	for _, f := range fields {
		if !s.seen[f.Key] {
			s.seen[f.Key] = true
			s.Union = append(s.Union, f.Key)
		}
	}
	s.Rows = append(s.Rows, FlattenedRow{OriginRowID: originRowID, Fields: fields})
}

// Workbook is a flattened view: the main sheet plus one secondary sheet per
// header that held nested values, in order of first use.
type Workbook struct {
	Main   MainSheet
	Sheets []*Sheet

	byHeader map[string]*Sheet
}

// Sheet returns the secondary sheet collecting header.
func (w *Workbook) Sheet(header string) (*Sheet, bool) {
	s, ok := w.byHeader[header]
	return s, ok
}

// Flatten builds a workbook from displayed rows and the visible headers.
// Objects and non-empty arrays are replaced on the main sheet by a linked
// placeholder and their contents are written as rows of a secondary sheet.
func Flatten(rows []tree.Value, headers []string, opts Options) *Workbook {
	opts = opts.withDefaults()
	titles := newTitleSet()
	mainTitle := titles.claim(opts.MainSheet)

	wb := &Workbook{
		Main: MainSheet{
			Title:       mainTitle,
			RowIDColumn: uniqueColumn(opts.RowIDColumn, headers),
			Headers:     append([]string(nil), headers...),
			Rows:        make([]MainRow, 0, len(rows)),
		},
		byHeader: make(map[string]*Sheet),
	}

	sheetFor := func(header string) *Sheet {
		if s, ok := wb.byHeader[header]; ok {
			return s
		}
		s := &Sheet{Header: header, Title: titles.claim(header), seen: make(map[string]bool)}
		wb.byHeader[header] = s
		wb.Sheets = append(wb.Sheets, s)
		return s
	}

	for i, row := range rows {
		rowID := i + 1
		cells := make([]Cell, len(headers))
		for c, h := range headers {
			value, _ := row.Get(h)
			switch navigator.Classify(value) {
			case navigator.ShapePrimitive:
				cells[c] = Cell{Value: value}
			case navigator.ShapeEmptyArray:
				cells[c] = Cell{Value: tree.String(EmptyArrayText)}
			case navigator.ShapeObject:
				s := sheetFor(h)
				cells[c] = Cell{Value: tree.String(ObjectPlaceholder(h)), Link: s.Title}
				s.add(rowID, value.Members())
			case navigator.ShapeArrayOfPrimitive:
				s := sheetFor(h)
				cells[c] = Cell{Value: tree.String(ArrayPlaceholder(h, value.Len())), Link: s.Title}
				for _, e := range value.Items() {
					s.add(rowID, []tree.Member{tree.Field(ValueColumn, e)})
				}
			case navigator.ShapeArrayOfObject:
				s := sheetFor(h)
				cells[c] = Cell{Value: tree.String(ArrayPlaceholder(h, value.Len())), Link: s.Title}
				for _, e := range value.Items() {
					s.add(rowID, elementFields(e))
				}
			}
		}
		wb.Main.Rows = append(wb.Main.Rows, MainRow{RowID: rowID, Cells: cells})
	}

	for _, s := range wb.Sheets {
		s.RowIDColumn = uniqueColumn(opts.RowIDColumn, s.Union)
	}
	return wb
}

// elementFields spreads one element of an array of objects into fields.
// Nested arrays spread by position; primitives contribute no fields.
func elementFields(e tree.Value) []tree.Member {
	switch e.Kind() {
	case tree.KindObject:
		return e.Members()
	case tree.KindArray:
		items := e.Items()
		fields := make([]tree.Member, len(items))
		for i, item := range items {
			fields[i] = tree.Field(fmt.Sprint(i), item)
		}
		return fields
	default:
		return nil
	}
}

// ObjectPlaceholder is the main-sheet text standing in for an object.
func ObjectPlaceholder(header string) string {
	return "[View: " + header + "]"
}

// ArrayPlaceholder is the main-sheet text standing in for a non-empty array.
func ArrayPlaceholder(header string, n int) string {
	return fmt.Sprintf("[View: %s (%d)]", header, n)
}

// LinkTarget is the in-workbook reference to the top-left cell of sheet title.
func LinkTarget(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'!A1"
}

// uniqueColumn returns base, or base_2, base_3... when a data column already
// uses that name.
func uniqueColumn(base string, columns []string) string {
	taken := make(map[string]bool, len(columns))
	for _, c := range columns {
		taken[c] = true
	}
	name := base
	for n := 2; taken[name]; n++ {
		name = fmt.Sprintf("%s_%d", base, n)
	}
	return name
}

// titleSet hands out sheet titles that are valid and unique ignoring case.
type titleSet struct {
	used map[string]bool
}

func newTitleSet() *titleSet {
	return &titleSet{used: make(map[string]bool)}
}

// claim derives a title from name: invalid characters become '_', the result
// is cut to MaxSheetTitle runes, and a " (n)" suffix resolves collisions.
func (t *titleSet) claim(name string) string {
	base := sanitizeTitle(name)
	title := quoteSafe(truncateRunes(base, MaxSheetTitle))
	for n := 2; t.used[strings.ToLower(title)]; n++ {
		suffix := fmt.Sprintf(" (%d)", n)
		title = quoteSafe(truncateRunes(base, MaxSheetTitle-len(suffix))) + suffix
	}
	t.used[strings.ToLower(title)] = true
	return title
}

func sanitizeTitle(name string) string {
	var b strings.Builder
	for _, r := range name {
		if strings.ContainsRune(invalidTitleChars, r) {
			b.WriteRune('_')
			continue
		}
		b.WriteRune(r)
	}
	s := b.String()
	if strings.TrimSpace(s) == "" {
		return fallbackTitle
	}
	return s
}

// quoteSafe replaces a leading or trailing apostrophe, which sheet titles
// may not have.
func quoteSafe(s string) string {
	if strings.HasPrefix(s, "'") {
		s = "_" + s[1:]
	}
	if strings.HasSuffix(s, "'") {
		s = s[:len(s)-1] + "_"
	}
	return s
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
