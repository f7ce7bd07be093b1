// Package session holds the state of one interactive viewer: the parsed
// root, the drill-down stack and the view state of the displayed frame.
// Edits and exports are not performed here; the session builds host
// requests and consumes the replies.
package session

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"golang.org/x/text/language"

	"github.com/oakwood-commons/jtv/internal/export"
	"github.com/oakwood-commons/jtv/internal/host"
	"github.com/oakwood-commons/jtv/internal/limiter"
	"github.com/oakwood-commons/jtv/internal/navigator"
	"github.com/oakwood-commons/jtv/internal/query"
	"github.com/oakwood-commons/jtv/internal/tree"
	"github.com/oakwood-commons/jtv/pkg/loader"
)

var (
	// ErrNotNavigable is returned when drilling into a value without children.
	ErrNotNavigable = errors.New("value has no children")
	// ErrNotEditable is returned when an edit targets an object or array.
	ErrNotEditable = errors.New("only primitive values can be edited")
	// ErrUnexpectedReply is returned for a reply whose id matches no pending request.
	ErrUnexpectedReply = errors.New("reply matches no pending request")
)

// Options tunes how the session derives its views.
type Options struct {
	// Predicate is applied to row-shaped arrays after the column filters.
	Predicate query.Predicate
	// Limit windows the displayed rows. Filtering and sorting happen first.
	Limit  limiter.Config
	Locale language.Tag
	CSV    export.CSV
	// Format fixes the document format; empty means detect.
	Format loader.Format
	// NewID generates request ids. Defaults to random UUIDs.
	NewID  func() string
	Logger logr.Logger
}

// Session is one viewer of one document. It is not safe for concurrent use;
// callers process one action at a time.
type Session struct {
	opts    Options
	format  loader.Format
	stack   *navigator.Stack
	pending map[string]string
}

// New parses text and returns a session positioned at its root. A parse
// failure is terminal: no session is built.
func New(text string, opts Options) (*Session, error) {
	root, format, err := parse(text, opts.Format)
	if err != nil {
		return nil, err
	}
	s := FromValue(root, opts)
	s.format = format
	return s, nil
}

// FromValue returns a session over an already parsed root.
func FromValue(root tree.Value, opts Options) *Session {
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	if opts.Logger.GetSink() == nil {
		opts.Logger = logr.Discard()
	}
	return &Session{
		opts:    opts,
		format:  opts.Format,
		stack:   navigator.NewStack(root),
		pending: make(map[string]string),
	}
}

func parse(text string, format loader.Format) (tree.Value, loader.Format, error) {
	if format != "" {
		v, err := loader.LoadAs(text, format)
		return v, format, err
	}
	return loader.Load(text)
}

// Root returns the document root.
func (s *Session) Root() tree.Value { return s.stack.Root() }

// Format returns the format the document was parsed as.
func (s *Session) Format() loader.Format { return s.format }

// Path returns the breadcrumb labels of the displayed frame, root first.
func (s *Session) Path() []string { return s.stack.Labels() }

// Depth returns the number of frames, root included.
func (s *Session) Depth() int { return s.stack.Depth() }

// Current returns the displayed value.
func (s *Session) Current() tree.Value { return s.stack.Current().Value }

// ViewState returns a copy of the current view state.
func (s *Session) ViewState() navigator.ViewState {
	v := *s.stack.View()
	if v.Sort != nil {
		sort := *v.Sort
		v.Sort = &sort
	}
	v.Filters = maps.Clone(v.Filters)
	v.Hidden = maps.Clone(v.Hidden)
	v.Headers = slices.Clone(v.Headers)
	return v
}

// Open drills into a child of the displayed value. With both index and key
// set it opens the key of array item index, pushing "[index]" and then key.
// Primitive targets are refused with ErrNotNavigable and leave the stack as
// it was.
func (s *Session) Open(index *int, key *string) error {
	target := navigator.Target{Index: index, Key: key}
	cur := s.Current()
	v, err := navigator.Lookup(cur, nil, target)
	if err != nil {
		return err
	}
	if navigator.IsPrimitive(v) {
		return fmt.Errorf("open %s: %w", describe(index, key), ErrNotNavigable)
	}
	if index != nil {
		item, _ := cur.At(*index)
		s.stack.Push(navigator.IndexStep(*index).Label(), item)
		cur = item
	}
	if key != nil {
		child, _ := cur.Get(*key)
		s.stack.Push(*key, child)
	}
	s.opts.Logger.V(1).Info("opened", "path", s.Path())
	return nil
}

func describe(index *int, key *string) string {
	switch {
	case index != nil && key != nil:
		return fmt.Sprintf("[%d].%s", *index, *key)
	case index != nil:
		return fmt.Sprintf("[%d]", *index)
	case key != nil:
		return *key
	}
	return "<nothing>"
}

// Walk descends from the displayed value through labels. A label that is a
// plain number addresses an array item. Every label must reach a container;
// on failure the stack is unchanged.
func (s *Session) Walk(labels ...string) error {
	frames, err := walk(s.Current(), labels)
	if err != nil {
		return err
	}
	for _, f := range frames {
		s.stack.Push(f.Label, f.Value)
	}
	return nil
}

// Goto collapses to the root and descends along a path expression such as
// `items[2].tags`. On failure the stack is unchanged.
func (s *Session) Goto(expr string) error {
	steps, err := navigator.ParsePath(expr)
	if err != nil {
		return err
	}
	frames, err := walk(s.Root(), navigator.Labels(steps))
	if err != nil {
		return err
	}
	s.stack.TruncateTo(0)
	for _, f := range frames {
		s.stack.Push(f.Label, f.Value)
	}
	return nil
}

func walk(from tree.Value, labels []string) ([]navigator.Frame, error) {
	frames := make([]navigator.Frame, 0, len(labels))
	cur := from
	for _, label := range labels {
		step := navigator.ParseLabel(label)
		if !step.IsIndex && cur.Kind() == tree.KindArray {
			if n, err := strconv.Atoi(label); err == nil && n >= 0 {
				step = navigator.IndexStep(n)
			}
		}
		next, err := navigator.Resolve(cur, []string{step.Label()})
		if err != nil {
			return nil, err
		}
		if navigator.IsPrimitive(next) {
			return nil, fmt.Errorf("open %s: %w", step.Label(), ErrNotNavigable)
		}
		frames = append(frames, navigator.Frame{Label: step.Label(), Value: next})
		cur = next
	}
	return frames, nil
}

// Back truncates the stack to the breadcrumb at index. An index outside the
// stack is ignored and reported as false.
func (s *Session) Back(index int) bool {
	return s.stack.TruncateTo(index)
}

// Pop returns to the parent frame. It is false at the root.
func (s *Session) Pop() bool {
	return s.stack.Pop()
}

func (s *Session) tabular() (*navigator.ViewState, error) {
	if !navigator.IsRowShaped(s.Current()) {
		return nil, query.ErrNotTabular
	}
	return s.stack.View(), nil
}

// SetFilter sets the substring filter of column. An empty pattern clears it.
func (s *Session) SetFilter(column, pattern string) error {
	view, err := s.tabular()
	if err != nil {
		return err
	}
	view.SetFilter(column, pattern)
	return nil
}

// ToggleSort sorts by column ascending, or flips the direction when column
// is already sorted.
func (s *Session) ToggleSort(column string) error {
	view, err := s.tabular()
	if err != nil {
		return err
	}
	view.ToggleSort(column)
	return nil
}

// SetSort replaces the sort of the displayed array. A nil spec removes it.
func (s *Session) SetSort(spec *navigator.SortSpec) error {
	view, err := s.tabular()
	if err != nil {
		return err
	}
	if spec != nil {
		cp := *spec
		spec = &cp
	}
	view.Sort = spec
	return nil
}

// SetColumnHidden hides or shows column.
func (s *Session) SetColumnHidden(column string, hidden bool) error {
	view, err := s.tabular()
	if err != nil {
		return err
	}
	view.SetHidden(column, hidden)
	return nil
}

// ShowAllColumns clears every hidden column.
func (s *Session) ShowAllColumns() {
	s.stack.View().ShowAll()
}

// View is the derived, display-ready form of the current frame. Which
// fields are set depends on Shape.
type View struct {
	Shape  navigator.Shape
	Labels []string
	Value  tree.Value

	// AllHeaders is the column union of a row-shaped array; Headers is the
	// visible subset in the same order.
	AllHeaders []string
	Headers    []string
	// Rows holds the displayed array items with their source indices.
	Rows []query.Row
	// Members holds the fields of an object.
	Members []tree.Member
	// Sort and Filters echo the view state of a row-shaped array.
	Sort    *navigator.SortSpec
	Filters map[string]string

	// Total counts the items of the array; Matched those left after filters.
	Total   int
	Matched int
	Window  limiter.Config
}

// RowShaped reports whether the view has columns: an array whose first item
// is an object. Other arrays list their items by index.
func (v View) RowShaped() bool {
	return v.Shape == navigator.ShapeArrayOfObject && navigator.IsRowShaped(v.Value)
}

// Status summarizes the row window, e.g. "rows 1-10 of 42".
func (v View) Status() string {
	return v.Window.Describe(v.Matched)
}

// Table derives the view of the current frame: filters and predicate first,
// then the sort, then the row window.
func (s *Session) Table() (View, error) {
	cur := s.Current()
	v := View{
		Shape:  navigator.Classify(cur),
		Labels: s.Path(),
		Value:  cur,
		Window: s.opts.Limit,
	}
	switch v.Shape {
	case navigator.ShapeObject:
		v.Members = cur.Members()
		v.Total = len(v.Members)
		v.Matched = v.Total
	case navigator.ShapeArrayOfPrimitive:
		s.listItems(&v)
	case navigator.ShapeArrayOfObject:
		if !v.RowShaped() {
			s.listItems(&v)
			break
		}
		state := s.stack.View()
		if state.Headers == nil {
			headers, err := query.Headers(cur)
			if err != nil {
				return View{}, err
			}
			state.Headers = append([]string{}, headers...)
		}
		opts := query.FromState(state)
		opts.Predicate = s.opts.Predicate
		opts.Locale = s.opts.Locale
		rows, err := query.Apply(cur, opts)
		if err != nil {
			return View{}, err
		}
		v.AllHeaders = state.Headers
		v.Sort = state.Sort
		v.Filters = state.Filters
		v.Headers = state.Visible()
		v.Total = cur.Len()
		v.Matched = len(rows)
		v.Rows = limiter.Apply(s.opts.Limit, rows)
	}
	return v, nil
}

// listItems fills the rows of an array shown by index, unfiltered.
func (s *Session) listItems(v *View) {
	rows := query.Rows(v.Value)
	v.Total = len(rows)
	v.Matched = len(rows)
	v.Rows = limiter.Apply(s.opts.Limit, rows)
}

func (s *Session) track(id string, cmd string) string {
	s.pending[id] = cmd
	return id
}

// Pending returns the number of requests still awaiting a reply.
func (s *Session) Pending() int { return len(s.pending) }

// EditRequest builds an updateValue request that sets the addressed cell of
// the displayed value to raw. The request is recorded as pending.
func (s *Session) EditRequest(index *int, key *string, raw string) (host.UpdateValue, error) {
	if index == nil && key == nil {
		return host.UpdateValue{}, navigator.ErrNoTarget
	}
	target := navigator.Target{Index: index, Key: key}
	if v, err := navigator.Lookup(s.Current(), nil, target); err == nil && v.IsContainer() {
		return host.UpdateValue{}, fmt.Errorf("edit %s: %w", describe(index, key), ErrNotEditable)
	}
	req := host.UpdateValue{
		Path:     s.Path(),
		Key:      key,
		NewValue: raw,
	}
	if index != nil {
		idx := strconv.Itoa(*index)
		req.Index = &idx
	}
	req.ID = s.track(s.opts.NewID(), host.CommandUpdateValue)
	return req, nil
}

func (s *Session) exportRows() (View, []tree.Value, error) {
	v, err := s.Table()
	if err != nil {
		return View{}, nil, err
	}
	if !v.RowShaped() {
		return View{}, nil, query.ErrNotTabular
	}
	return v, query.Values(v.Rows), nil
}

// ExportCSV builds an exportToCsv request from the displayed rows and
// visible columns.
func (s *Session) ExportCSV() (host.ExportCSV, error) {
	v, rows, err := s.exportRows()
	if err != nil {
		return host.ExportCSV{}, err
	}
	return host.ExportCSV{
		ID:        s.track(s.opts.NewID(), host.CommandExportCSV),
		CSVString: s.opts.CSV.Format(v.Headers, rows),
	}, nil
}

// ExportXLSXRequest builds an exportToXlsx request from the displayed rows
// and visible columns.
func (s *Session) ExportXLSXRequest() (host.ExportXLSX, error) {
	v, rows, err := s.exportRows()
	if err != nil {
		return host.ExportXLSX{}, err
	}
	return host.ExportXLSX{
		ID:      s.track(s.opts.NewID(), host.CommandExportXLSX),
		Data:    rows,
		Headers: v.Headers,
	}, nil
}

// Outcome describes what a reply did to the session.
type Outcome struct {
	// Request is the command of the matched request; empty for pushed
	// updates.
	Request  string
	Reloaded bool
	Location string
}

// Apply consumes a host reply. Replies may arrive in any order; they are
// matched to pending requests by id. A documentUpdated reply, and an error
// reply that carries content, reload the root and collapse the stack. An
// error reply is returned as an error after any reload.
func (s *Session) Apply(reply host.Reply) (Outcome, error) {
	var out Outcome
	if reply.ID != "" {
		cmd, ok := s.pending[reply.ID]
		if !ok {
			return out, fmt.Errorf("%w: %s", ErrUnexpectedReply, reply.ID)
		}
		delete(s.pending, reply.ID)
		out.Request = cmd
	}

	switch reply.Command {
	case host.CommandDocumentUpdated:
		if err := s.Reload(reply.NewContent); err != nil {
			return out, err
		}
		out.Reloaded = true
	case host.CommandExported:
		out.Location = reply.Location
		s.opts.Logger.V(1).Info("exported", "location", reply.Location)
	case host.CommandError:
		if reply.NewContent != "" {
			if err := s.Reload(reply.NewContent); err == nil {
				out.Reloaded = true
			}
		}
		if out.Request != "" {
			return out, fmt.Errorf("%s: %w", out.Request, reply.Err())
		}
		return out, reply.Err()
	default:
		return out, fmt.Errorf("%w: %q", host.ErrUnknownCommand, reply.Command)
	}
	return out, nil
}

// Reload replaces the root with text and collapses to it, discarding the
// view state. If text does not parse the session is left untouched.
func (s *Session) Reload(text string) error {
	root, format, err := parse(text, s.opts.Format)
	if err != nil {
		return err
	}
	s.format = format
	s.stack.ResetToRoot(root)
	s.opts.Logger.V(1).Info("document reloaded", "format", string(format))
	return nil
}
