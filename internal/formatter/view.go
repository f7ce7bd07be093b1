package formatter

import (
	"strconv"
	"strings"

	"github.com/oakwood-commons/jtv/internal/navigator"
	"github.com/oakwood-commons/jtv/internal/session"
	"github.com/oakwood-commons/jtv/internal/tree"
)

const (
	// IndexColumn heads the source-index column of array views.
	IndexColumn = "(index)"
	// ValueColumn heads the value column of primitive arrays.
	ValueColumn = "(value)"

	EmptyArrayText  = "Empty Array []"
	EmptyObjectText = "Empty Object {}"
	NoResultsText   = "No results found."
)

// ViewOptions configures RenderView.
type ViewOptions struct {
	NoColor        bool
	Width          int
	MaxColumnWidth int
	// Indent is used for primitive views, which print as JSON.
	Indent int
}

// Breadcrumb joins the labels of a path for display.
func Breadcrumb(labels []string) string {
	return strings.Join(labels, " > ")
}

// Grid returns the header and cell text of a view the way it is tabulated:
// key/value pairs for objects, source index plus columns for arrays. It is
// nil for primitive and empty views.
func Grid(v session.View) ([]string, [][]string) {
	switch v.Shape {
	case navigator.ShapeObject:
		rows := make([][]string, len(v.Members))
		for i, m := range v.Members {
			rows[i] = []string{m.Key, Cell(m.Value)}
		}
		return []string{"KEY", "VALUE"}, rows
	case navigator.ShapeArrayOfObject:
		if !v.RowShaped() {
			return itemGrid(v)
		}
		columns := append([]string{IndexColumn}, v.Headers...)
		rows := make([][]string, len(v.Rows))
		for i, r := range v.Rows {
			row := make([]string, 0, len(columns))
			row = append(row, strconv.Itoa(r.Index))
			for _, h := range v.Headers {
				row = append(row, FieldCell(r.Value, h))
			}
			rows[i] = row
		}
		return columns, rows
	case navigator.ShapeArrayOfPrimitive:
		return itemGrid(v)
	}
	return nil, nil
}

func itemGrid(v session.View) ([]string, [][]string) {
	rows := make([][]string, len(v.Rows))
	for i, r := range v.Rows {
		rows[i] = []string{strconv.Itoa(r.Index), Cell(r.Value)}
	}
	return []string{IndexColumn, ValueColumn}, rows
}

// RenderView renders the body of a view followed by a row count for arrays.
func RenderView(v session.View, opts ViewOptions) string {
	switch v.Shape {
	case navigator.ShapePrimitive:
		indent := opts.Indent
		if indent <= 0 {
			indent = 2
		}
		return string(tree.Encode(v.Value, indent)) + "\n"
	case navigator.ShapeEmptyArray:
		return EmptyArrayText + "\n"
	case navigator.ShapeObject:
		if len(v.Members) == 0 {
			return EmptyObjectText + "\n"
		}
	}

	columns, rows := Grid(v)
	out := RenderColumnarTable(columns, rows, ColumnarOptions{
		NoColor:        opts.NoColor,
		TotalWidth:     opts.Width,
		MaxColumnWidth: opts.MaxColumnWidth,
		KeyColumn:      true,
		Sort:           v.Sort,
	})
	if v.Shape == navigator.ShapeObject {
		return out
	}
	if len(v.Rows) == 0 {
		out += NoResultsText + "\n"
	}
	return out + v.Status() + "\n"
}
