// Package ui is the interactive terminal viewer: a bubbletea program over a
// session, talking to a host for edits, exports and reloads.
package ui

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"slices"
	"strings"

	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/oakwood-commons/jtv/internal/config"
	"github.com/oakwood-commons/jtv/internal/formatter"
	"github.com/oakwood-commons/jtv/internal/host"
	"github.com/oakwood-commons/jtv/internal/navigator"
	"github.com/oakwood-commons/jtv/internal/session"
	"github.com/oakwood-commons/jtv/internal/tree"
	"github.com/oakwood-commons/jtv/internal/ui/table"
	"github.com/oakwood-commons/jtv/pkg/logger"
)

// Host is the side of the host the viewer talks to. *host.Host implements it.
type Host interface {
	Handle(ctx context.Context, req host.Request) host.Reply
	Text(ctx context.Context) (string, error)
}

// Options configures the viewer.
type Options struct {
	NoColor        bool
	Theme          config.ThemeConfig
	MaxColumnWidth int
	// Updates delivers documentUpdated messages pushed by the host.
	Updates <-chan host.Reply
}

type mode int

const (
	modeBrowse mode = iota
	modeFilter
	modeEdit
)

// row is one table line. index is the source index for arrays, key the
// member name for objects.
type row struct {
	index int
	key   string
	cells []string
}

type (
	replyMsg  struct{ reply host.Reply }
	pushedMsg struct{ reply host.Reply }
	reloadMsg struct {
		text string
		err  error
	}
)

// Model is the bubbletea model of the viewer.
type Model struct {
	ctx  context.Context
	sess *session.Session
	host Host
	opts Options

	table *table.Model[row]
	input textinput.Model
	mode  mode

	view session.View
	col  int

	editIndex    *int
	editKey      *string
	editOriginal string
	filterColumn string

	status    string
	statusErr bool

	width  int
	height int

	crumbStyle  lipgloss.Style
	mutedStyle  lipgloss.Style
	errorStyle  lipgloss.Style
	promptStyle lipgloss.Style
}

func themeColor(s string) color.Color {
	if s == "" {
		return nil
	}
	return lipgloss.Color(s)
}

// New returns a viewer over sess. Requests are sent to h with ctx.
func New(ctx context.Context, sess *session.Session, h Host, opts Options) *Model {
	tbl := table.NewModel[row](nil, func(r row) table.Row { return table.Row(r.cells) })
	tbl.SetNoColor(opts.NoColor)
	tbl.SetColors(
		themeColor(opts.Theme.HeaderFG), themeColor(opts.Theme.HeaderBG),
		themeColor(opts.Theme.SelectedFG), themeColor(opts.Theme.SelectedBG),
	)

	ti := textinput.New()
	ti.Prompt = ""
	ti.CharLimit = 0
	ti.SetWidth(60)

	m := &Model{
		ctx:    ctx,
		sess:   sess,
		host:   h,
		opts:   opts,
		table:  tbl,
		input:  ti,
		col:    1,
		width:  80,
		height: 24,
	}
	if !opts.NoColor {
		m.crumbStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
		if c := themeColor(opts.Theme.HeaderFG); c != nil {
			m.crumbStyle = m.crumbStyle.Foreground(c)
		}
		m.mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
		if c := themeColor(opts.Theme.MutedFG); c != nil {
			m.mutedStyle = m.mutedStyle.Foreground(c)
		}
		m.errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
		m.promptStyle = lipgloss.NewStyle().Bold(true)
	}
	m.resize()
	m.refresh()
	return m
}

// Session returns the session driven by the viewer.
func (m *Model) Session() *session.Session { return m.sess }

// Status returns the current status message.
func (m *Model) Status() string { return m.status }

// FocusedColumn returns the header of the focused column, or "" when the
// view has no columns.
func (m *Model) FocusedColumn() string {
	if !m.view.RowShaped() || m.col < 1 || m.col > len(m.view.Headers) {
		return ""
	}
	return m.view.Headers[m.col-1]
}

func (m *Model) Init() tea.Cmd {
	return m.listen()
}

func (m *Model) listen() tea.Cmd {
	ch := m.opts.Updates
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		reply, ok := <-ch
		if !ok {
			return nil
		}
		return pushedMsg{reply: reply}
	}
}

func (m *Model) send(req host.Request) tea.Cmd {
	ctx, h := m.ctx, m.host
	return func() tea.Msg {
		return replyMsg{reply: h.Handle(ctx, req)}
	}
}

func (m *Model) reload() tea.Cmd {
	ctx, h := m.ctx, m.host
	return func() tea.Msg {
		text, err := h.Text(ctx)
		return reloadMsg{text: text, err: err}
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		m.refresh()
		return m, nil
	case replyMsg:
		m.apply(msg.reply)
		return m, nil
	case pushedMsg:
		m.apply(msg.reply)
		return m, m.listen()
	case reloadMsg:
		if msg.err != nil {
			m.setError(fmt.Errorf("reload: %w", msg.err))
			return m, nil
		}
		if err := m.sess.Reload(msg.text); err != nil {
			m.setError(err)
			return m, nil
		}
		m.setStatus("reloaded")
		m.refresh()
		return m, nil
	case tea.KeyPressMsg:
		if m.mode != modeBrowse {
			return m.updateInput(msg)
		}
		return m.updateBrowse(msg)
	}
	return m, nil
}

func (m *Model) updateBrowse(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case keyQuit, keyInterrupt:
		return m, tea.Quit
	case keyOpen:
		m.open()
	case keyBack, keyEscape:
		if m.sess.Pop() {
			m.clearStatus()
			m.table.SetCursor(0)
			m.refresh()
		}
	case keyLeft:
		if m.col > 1 {
			m.col--
			m.refresh()
		}
	case keyRight:
		if m.col < len(m.view.Headers) {
			m.col++
			m.refresh()
		}
	case keySort:
		if h := m.FocusedColumn(); h != "" {
			m.check(m.sess.ToggleSort(h))
			m.refresh()
		}
	case keyFilter:
		if h := m.FocusedColumn(); h != "" {
			m.filterColumn = h
			return m, m.startInput(modeFilter, m.view.Filters[h])
		}
	case keyHide:
		if h := m.FocusedColumn(); h != "" {
			m.check(m.sess.SetColumnHidden(h, true))
			m.refresh()
		}
	case keyShowAll:
		m.sess.ShowAllColumns()
		m.refresh()
	case keyEdit:
		return m, m.startEdit()
	case keyExportCSV:
		req, err := m.sess.ExportCSV()
		if err != nil {
			m.setError(err)
			return m, nil
		}
		m.setStatus("exporting csv...")
		return m, m.send(req)
	case keyExportXLSX:
		req, err := m.sess.ExportXLSXRequest()
		if err != nil {
			m.setError(err)
			return m, nil
		}
		m.setStatus("exporting xlsx...")
		return m, m.send(req)
	case keyReload:
		return m, m.reload()
	default:
		var cmd tea.Cmd
		m.table, cmd = m.table.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) updateInput(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case keyEscape:
		m.stopInput()
		return m, nil
	case keyOpen:
		value := m.input.Value()
		md := m.mode
		m.stopInput()
		if md == modeFilter {
			m.check(m.sess.SetFilter(m.filterColumn, value))
			m.table.SetCursor(0)
			m.refresh()
			return m, nil
		}
		return m, m.commitEdit(value)
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) startInput(md mode, value string) tea.Cmd {
	m.mode = md
	m.input.SetValue(value)
	m.input.CursorEnd()
	m.table.Blur()
	return m.input.Focus()
}

func (m *Model) stopInput() {
	m.mode = modeBrowse
	m.input.Blur()
	m.input.SetValue("")
	m.table.Focus()
}

// target returns the cell under the cursor in the focused column.
func (m *Model) target() (*int, *string, tree.Value, bool) {
	sel := m.table.SelectedRow()
	if sel == nil {
		return nil, nil, tree.Value{}, false
	}
	switch m.view.Shape {
	case navigator.ShapeObject:
		key := sel.key
		v, _ := m.view.Value.Get(key)
		return nil, &key, v, true
	case navigator.ShapeArrayOfObject:
		index := sel.index
		if !m.view.RowShaped() {
			v, _ := m.view.Value.At(index)
			return &index, nil, v, true
		}
		key := m.FocusedColumn()
		if key == "" {
			return nil, nil, tree.Value{}, false
		}
		item, _ := m.view.Value.At(index)
		v, _ := item.Get(key)
		return &index, &key, v, true
	case navigator.ShapeArrayOfPrimitive:
		index := sel.index
		v, _ := m.view.Value.At(index)
		return &index, nil, v, true
	}
	return nil, nil, tree.Value{}, false
}

func (m *Model) open() {
	index, key, _, ok := m.target()
	if !ok {
		return
	}
	if err := m.sess.Open(index, key); err != nil {
		if errors.Is(err, session.ErrNotNavigable) {
			m.setStatus("not a container; press e to edit")
			return
		}
		m.setError(err)
		return
	}
	m.clearStatus()
	m.col = 1
	m.table.SetCursor(0)
	m.refresh()
}

func (m *Model) startEdit() tea.Cmd {
	index, key, v, ok := m.target()
	if !ok {
		return nil
	}
	if v.IsContainer() {
		m.setStatus("only primitive values can be edited; press enter to open")
		return nil
	}
	m.editIndex, m.editKey = index, key
	m.editOriginal = editText(v)
	return m.startInput(modeEdit, m.editOriginal)
}

// editText is the text offered for editing: JSON literals for null, numbers
// and booleans, the raw content of strings.
func editText(v tree.Value) string {
	if v.IsNull() {
		return "null"
	}
	return v.Text()
}

func (m *Model) commitEdit(value string) tea.Cmd {
	if value == m.editOriginal {
		return nil
	}
	req, err := m.sess.EditRequest(m.editIndex, m.editKey, value)
	if err != nil {
		m.setError(err)
		return nil
	}
	m.setStatus("saving...")
	return m.send(req)
}

func (m *Model) apply(reply host.Reply) {
	out, err := m.sess.Apply(reply)
	switch {
	case err != nil:
		m.setError(err)
	case out.Location != "":
		m.setStatus("exported to " + out.Location)
	case out.Reloaded && out.Request == "":
		m.setStatus("document changed on disk; reloaded")
	case out.Reloaded:
		m.setStatus("saved")
	}
	if out.Reloaded {
		m.col = 1
		m.table.SetCursor(0)
	}
	logger.FromContext(m.ctx).V(1).Info("reply applied", logger.CommandKey, reply.Command, logger.RequestIDKey, reply.ID)
	m.refresh()
}

func (m *Model) check(err error) {
	if err != nil {
		m.setError(err)
	}
}

func (m *Model) setStatus(s string) { m.status, m.statusErr = s, false }
func (m *Model) setError(err error) { m.status, m.statusErr = err.Error(), true }
func (m *Model) clearStatus()       { m.status, m.statusErr = "", false }

func (m *Model) resize() {
	// breadcrumb, status, input/help lines
	h := max(m.height-4, 3)
	m.table.SetSize(m.width, h)
	m.input.SetWidth(max(m.width-20, 10))
}

// refresh rebuilds the table from the session.
func (m *Model) refresh() {
	v, err := m.sess.Table()
	if err != nil {
		m.setError(err)
		return
	}
	m.view = v
	m.col = min(max(m.col, 1), max(len(v.Headers), 1))

	titles, cells := formatter.Grid(v)
	if titles == nil {
		m.table.SetData(nil, nil)
		return
	}
	for i := range titles {
		if i == 0 {
			continue
		}
		if !v.RowShaped() {
			break
		}
		if v.Sort != nil && v.Sort.Column == titles[i] {
			titles[i] += " " + formatter.SortArrow(v.Sort.Direction)
		}
		if v.Filters[v.Headers[i-1]] != "" {
			titles[i] += "*"
		}
		if i == m.col {
			titles[i] = "›" + titles[i]
		}
	}

	widths := formatter.ColumnWidths(titles, cells, m.width-len(titles), m.opts.MaxColumnWidth)
	columns := make([]table.Column, len(titles))
	for i, t := range titles {
		columns[i] = table.Column{Title: t, Width: widths[i]}
	}
	rows := make([]row, len(cells))
	for i, c := range cells {
		r := row{index: -1, cells: c}
		switch v.Shape {
		case navigator.ShapeObject:
			r.key = v.Members[i].Key
		default:
			r.index = v.Rows[i].Index
		}
		rows[i] = r
	}
	m.table.SetData(columns, rows)
}

func (m *Model) render(style lipgloss.Style, s string) string {
	if m.opts.NoColor {
		return s
	}
	return style.Render(s)
}

// Render returns the screen content as text.
func (m *Model) Render() string {
	var b strings.Builder
	b.WriteString(m.render(m.crumbStyle, formatter.Breadcrumb(m.view.Labels)))
	b.WriteByte('\n')

	switch m.view.Shape {
	case navigator.ShapePrimitive, navigator.ShapeEmptyArray:
		b.WriteString(formatter.RenderView(m.view, formatter.ViewOptions{NoColor: true, Width: m.width}))
	case navigator.ShapeObject:
		if len(m.view.Members) == 0 {
			b.WriteString(formatter.EmptyObjectText + "\n")
			break
		}
		b.WriteString(m.table.View())
		b.WriteByte('\n')
	default:
		b.WriteString(m.table.View())
		b.WriteByte('\n')
		if len(m.view.Rows) == 0 {
			b.WriteString(formatter.NoResultsText + "\n")
		}
	}

	b.WriteString(m.statusLine())
	b.WriteByte('\n')
	if m.mode != modeBrowse {
		prompt := "edit: "
		if m.mode == modeFilter {
			prompt = "filter " + m.filterColumn + ": "
		}
		b.WriteString(m.render(m.promptStyle, prompt) + m.input.View())
	} else {
		b.WriteString(m.render(m.mutedStyle, HelpLine()))
	}
	return b.String()
}

func (m *Model) statusLine() string {
	var parts []string
	if m.view.Shape == navigator.ShapeArrayOfObject || m.view.Shape == navigator.ShapeArrayOfPrimitive {
		parts = append(parts, m.view.Status())
	}
	if len(m.view.Filters) > 0 {
		cols := make([]string, 0, len(m.view.Filters))
		for col := range m.view.Filters {
			cols = append(cols, col)
		}
		slices.Sort(cols)
		for _, col := range cols {
			parts = append(parts, fmt.Sprintf("%s~%q", col, m.view.Filters[col]))
		}
	}
	line := m.render(m.mutedStyle, strings.Join(parts, "  "))
	if m.status == "" {
		return line
	}
	msg := m.status
	if m.statusErr {
		msg = m.render(m.errorStyle, "error: "+msg)
	}
	if line == "" {
		return msg
	}
	return line + "  " + msg
}

func (m *Model) View() tea.View {
	v := tea.NewView(m.Render())
	v.AltScreen = true
	return v
}

// Run starts the viewer and blocks until it quits or ctx is done.
func Run(ctx context.Context, sess *session.Session, h Host, opts Options, progOpts ...tea.ProgramOption) error {
	progOpts = append([]tea.ProgramOption{tea.WithContext(ctx)}, progOpts...)
	_, err := tea.NewProgram(New(ctx, sess, h, opts), progOpts...).Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
