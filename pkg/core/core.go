// Package core is the embedding API of jtv: load a document, evaluate CEL
// expressions over it, and tabulate or export any of its paths the way the
// viewer does.
package core

import (
	"fmt"
	"strings"

	"github.com/go-logr/logr"
	"golang.org/x/text/language"

	"github.com/oakwood-commons/jtv/internal/cel"
	"github.com/oakwood-commons/jtv/internal/export"
	"github.com/oakwood-commons/jtv/internal/formatter"
	"github.com/oakwood-commons/jtv/internal/limiter"
	"github.com/oakwood-commons/jtv/internal/navigator"
	"github.com/oakwood-commons/jtv/internal/session"
	"github.com/oakwood-commons/jtv/internal/tree"
	"github.com/oakwood-commons/jtv/pkg/loader"
)

// Evaluator evaluates expressions against a root node given as plain Go
// values (map[string]any, []any, string, float64, int64, bool, nil).
type Evaluator interface {
	Evaluate(expr string, root any) (any, error)
}

// Document is a parsed document. Object key order is kept.
type Document struct {
	root   tree.Value
	format loader.Format
}

// Load parses text, detecting its format.
func Load(text string) (*Document, error) {
	root, format, err := loader.Load(text)
	if err != nil {
		return nil, err
	}
	return &Document{root: root, format: format}, nil
}

// LoadFile reads and parses a file.
func LoadFile(path string) (*Document, error) {
	root, format, err := loader.LoadFile(path)
	if err != nil {
		return nil, err
	}
	return &Document{root: root, format: format}, nil
}

// LoadObject wraps already decoded Go data. Map keys are sorted.
func LoadObject(value any) (*Document, error) {
	root, err := tree.FromGo(value)
	if err != nil {
		return nil, err
	}
	return &Document{root: root, format: loader.FormatJSON}, nil
}

// Format names the format the document was read from.
func (d *Document) Format() string { return string(d.format) }

// Value returns the document as plain Go values.
func (d *Document) Value() any { return d.root.ToGo() }

// Marshal serializes the document in format ("json", "yaml", "toml", ...),
// or in its own format when format is empty.
func (d *Document) Marshal(format string, indent int) ([]byte, error) {
	f := d.format
	if format != "" {
		var err error
		if f, err = loader.ParseFormat(format); err != nil {
			return nil, err
		}
	}
	return loader.Marshal(d.root, f, indent)
}

// Query selects the derived view of a row-shaped array. Filters are
// case-insensitive substring matches; Sort is "col", "col:asc" or
// "col:desc"; Where is a CEL predicate over "row".
type Query struct {
	Filters map[string]string
	Sort    string
	Hidden  []string
	Where   string
}

// Table is the tabulated view of one path.
type Table struct {
	Path    []string
	Columns []string
	Rows    [][]string
	Status  string
}

// Engine tabulates and exports documents.
type Engine struct {
	evaluator Evaluator
	locale    language.Tag
	limit     limiter.Config
	logger    logr.Logger
	celEval   *cel.Evaluator
}

// Option configures the Engine.
type Option func(*Engine)

// WithEvaluator replaces the CEL evaluator used by Evaluate.
func WithEvaluator(e Evaluator) Option {
	return func(c *Engine) {
		c.evaluator = e
	}
}

// WithLocale sets the collation locale of text sorts.
func WithLocale(tag language.Tag) Option {
	return func(c *Engine) {
		c.locale = tag
	}
}

// WithLimit windows the rows of every table.
func WithLimit(limit, offset, tail int) Option {
	return func(c *Engine) {
		c.limit = limiter.Config{Limit: limit, Offset: offset, Tail: tail}
	}
}

// WithLogger sets the logger of the sessions the engine opens.
func WithLogger(l logr.Logger) Option {
	return func(c *Engine) {
		c.logger = l
	}
}

// New creates an Engine with defaults.
func New(opts ...Option) (*Engine, error) {
	engine := &Engine{logger: logr.Discard()}
	for _, opt := range opts {
		opt(engine)
	}
	if err := engine.limit.Validate(); err != nil {
		return nil, err
	}
	ev, err := cel.NewEvaluator()
	if err != nil {
		return nil, err
	}
	engine.celEval = ev
	if engine.evaluator == nil {
		engine.evaluator = celEvaluator{ev}
	}
	return engine, nil
}

type celEvaluator struct {
	ev *cel.Evaluator
}

func (c celEvaluator) Evaluate(expr string, root any) (any, error) {
	doc, err := tree.FromGo(root)
	if err != nil {
		return nil, err
	}
	out, err := c.ev.Evaluate(expr, doc)
	if err != nil {
		return nil, err
	}
	return out.ToGo(), nil
}

// Evaluate runs expr with the document bound to "_" and returns the result
// as a new document.
func (e *Engine) Evaluate(expr string, doc *Document) (*Document, error) {
	if c, ok := e.evaluator.(celEvaluator); ok {
		out, err := c.ev.Evaluate(expr, doc.root)
		if err != nil {
			return nil, err
		}
		return &Document{root: out, format: doc.format}, nil
	}
	out, err := e.evaluator.Evaluate(expr, doc.root.ToGo())
	if err != nil {
		return nil, err
	}
	res, err := LoadObject(out)
	if err != nil {
		return nil, err
	}
	res.format = doc.format
	return res, nil
}

// open positions a session at path with q applied.
func (e *Engine) open(doc *Document, path string, q Query) (*session.Session, error) {
	opts := session.Options{Limit: e.limit, Locale: e.locale, Logger: e.logger}
	if strings.TrimSpace(q.Where) != "" {
		pred, err := e.celEval.RowFilter(q.Where)
		if err != nil {
			return nil, err
		}
		opts.Predicate = pred
	}
	sess := session.FromValue(doc.root, opts)
	if path != "" {
		if err := sess.Goto(path); err != nil {
			return nil, err
		}
	}
	for col, pat := range q.Filters {
		if err := sess.SetFilter(col, pat); err != nil {
			return nil, err
		}
	}
	if q.Sort != "" {
		col, dir, _ := strings.Cut(q.Sort, ":")
		d, err := navigator.ParseDirection(dir)
		if err != nil {
			return nil, err
		}
		if err := sess.SetSort(&navigator.SortSpec{Column: col, Direction: d}); err != nil {
			return nil, err
		}
	}
	for _, col := range q.Hidden {
		if err := sess.SetColumnHidden(col, true); err != nil {
			return nil, err
		}
	}
	return sess, nil
}

// Table tabulates the value at path: key/value rows for objects, one row
// per element for arrays. Primitive values have no table.
func (e *Engine) Table(doc *Document, path string, q Query) (*Table, error) {
	sess, err := e.open(doc, path, q)
	if err != nil {
		return nil, err
	}
	v, err := sess.Table()
	if err != nil {
		return nil, err
	}
	columns, rows := formatter.Grid(v)
	if columns == nil {
		return nil, fmt.Errorf("%s is a %s, not a table", formatter.Breadcrumb(v.Labels), v.Shape)
	}
	t := &Table{Path: v.Labels, Columns: columns, Rows: rows}
	if v.Shape != navigator.ShapeObject {
		t.Status = v.Status()
	}
	return t, nil
}

// Render renders the value at path as the view command prints it.
func (e *Engine) Render(doc *Document, path string, q Query, noColor bool, width int) (string, error) {
	sess, err := e.open(doc, path, q)
	if err != nil {
		return "", err
	}
	v, err := sess.Table()
	if err != nil {
		return "", err
	}
	return formatter.RenderView(v, formatter.ViewOptions{NoColor: noColor, Width: width}), nil
}

// ExportCSV serializes the displayed rows of the array at path.
func (e *Engine) ExportCSV(doc *Document, path string, q Query) (string, error) {
	sess, err := e.open(doc, path, q)
	if err != nil {
		return "", err
	}
	req, err := sess.ExportCSV()
	if err != nil {
		return "", err
	}
	return req.CSVString, nil
}

// ExportXLSX builds a workbook of the displayed rows of the array at path.
func (e *Engine) ExportXLSX(doc *Document, path string, q Query) ([]byte, error) {
	sess, err := e.open(doc, path, q)
	if err != nil {
		return nil, err
	}
	req, err := sess.ExportXLSXRequest()
	if err != nil {
		return nil, err
	}
	return export.BuildXLSX(req.Data, req.Headers, export.Options{})
}
