// Package query derives the displayed rows of a row-shaped array: header
// union, substring filters, an optional predicate and a single stable sort.
// Nothing here mutates the source value.
package query

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/oakwood-commons/jtv/internal/navigator"
	"github.com/oakwood-commons/jtv/internal/tree"
)

// ErrNotTabular is returned when a tabular operation is asked of a value that
// is not a row-shaped array.
var ErrNotTabular = errors.New("view is not a row-shaped array")

// Row is one displayed element together with its position in the source
// array, so edits and drill-down reach the element that was shown.
type Row struct {
	Index int
	Value tree.Value
}

// Predicate is an extra row filter evaluated after the substring filters.
type Predicate interface {
	Match(row tree.Value) (bool, error)
}

// Options selects the derived view.
type Options struct {
	Filters   map[string]string
	Sort      *navigator.SortSpec
	Predicate Predicate
	// Locale drives text collation; the zero value uses the root locale.
	Locale language.Tag
}

// FromState builds Options from a view state.
func FromState(s *navigator.ViewState) Options {
	return Options{Filters: s.Filters, Sort: s.Sort}
}

// Rows returns every element of an array with its index. Non-arrays yield nil.
func Rows(v tree.Value) []Row {
	items := v.Items()
	if items == nil {
		return nil
	}
	rows := make([]Row, len(items))
	for i, item := range items {
		rows[i] = Row{Index: i, Value: item}
	}
	return rows
}

// Values strips the source indices from rows.
func Values(rows []Row) []tree.Value {
	out := make([]tree.Value, len(rows))
	for i, r := range rows {
		out[i] = r.Value
	}
	return out
}

// Apply derives the displayed rows of v. For row-shaped arrays it filters
// and then sorts; any other array is returned in source order unchanged.
func Apply(v tree.Value, opts Options) ([]Row, error) {
	rows := Rows(v)
	if !navigator.IsRowShaped(v) {
		return rows, nil
	}
	rows = Filter(rows, opts.Filters)
	if opts.Predicate != nil {
		var err error
		rows, err = Where(rows, opts.Predicate)
		if err != nil {
			return nil, err
		}
	}
	if opts.Sort != nil {
		rows = SortWith(rows, *opts.Sort, NewComparator(opts.Locale))
	}
	return rows, nil
}

// Headers returns the first-seen union of keys over every object element of
// a row-shaped array.
func Headers(v tree.Value) ([]string, error) {
	if !navigator.IsRowShaped(v) {
		return nil, ErrNotTabular
	}
	var headers []string
	seen := make(map[string]bool)
	for _, item := range v.Items() {
		for _, k := range item.Keys() {
			if !seen[k] {
				seen[k] = true
				headers = append(headers, k)
			}
		}
	}
	return headers, nil
}

// CellText is the text a row shows for column: "" when the field is absent
// or null, compact JSON for nested values.
func CellText(row tree.Value, column string) string {
	v, ok := row.Get(column)
	if !ok {
		return ""
	}
	return v.Text()
}

// Filter keeps the rows whose text at every filtered column contains the
// pattern, ignoring case. Empty patterns are ignored.
func Filter(rows []Row, filters map[string]string) []Row {
	active := make(map[string]string, len(filters))
	for col, pat := range filters {
		if pat != "" {
			active[col] = strings.ToLower(pat)
		}
	}
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		keep := true
		for col, pat := range active {
			if !strings.Contains(strings.ToLower(CellText(r.Value, col)), pat) {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, r)
		}
	}
	return out
}

// Where keeps the rows matched by p.
func Where(rows []Row, p Predicate) ([]Row, error) {
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		ok, err := p.Match(r.Value)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", r.Index, err)
		}
		if ok {
			out = append(out, r)
		}
	}
	return out, nil
}

// Comparator orders cell values.
type Comparator struct {
	coll *collate.Collator
}

// NewComparator returns a comparator collating text for tag.
func NewComparator(tag language.Tag) *Comparator {
	return &Comparator{coll: collate.New(tag)}
}

// Compare orders two present, non-null values: numbers numerically, text by
// collation, anything else by its text form.
func (c *Comparator) Compare(a, b tree.Value) int {
	if a.Equal(b) {
		return 0
	}
	if a.Kind() == tree.KindNumber && b.Kind() == tree.KindNumber {
		x, _ := a.Float()
		y, _ := b.Float()
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		default:
			return 0
		}
	}
	if r := c.coll.CompareString(a.Text(), b.Text()); r != 0 {
		return r
	}
	// Collation ignores some differences; fall back to bytes so that only
	// equal values compare equal.
	return strings.Compare(a.Text(), b.Text())
}

// Sort orders rows by spec using root-locale collation.
func Sort(rows []Row, spec navigator.SortSpec) []Row {
	return SortWith(rows, spec, NewComparator(language.Und))
}

// SortWith orders a copy of rows by spec. The sort is stable, and rows whose
// column is absent or null go last in either direction.
func SortWith(rows []Row, spec navigator.SortSpec, c *Comparator) []Row {
	out := slices.Clone(rows)
	slices.SortStableFunc(out, func(x, y Row) int {
		a, aok := x.Value.Get(spec.Column)
		b, bok := y.Value.Get(spec.Column)
		aMissing := !aok || a.IsNull()
		bMissing := !bok || b.IsNull()
		switch {
		case aMissing && bMissing:
			return 0
		case aMissing:
			return 1
		case bMissing:
			return -1
		}
		r := c.Compare(a, b)
		if spec.Direction == navigator.Descending {
			return -r
		}
		return r
	})
	return out
}
