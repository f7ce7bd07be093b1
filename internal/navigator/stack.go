package navigator

import (
	"fmt"
	"strings"

	"github.com/oakwood-commons/jtv/internal/tree"
)

// RootLabel labels frame 0 of every stack.
const RootLabel = "root"

// Direction is a sort direction.
type Direction int

const (
	Ascending Direction = iota
	Descending
)

func (d Direction) String() string {
	if d == Descending {
		return "desc"
	}
	return "asc"
}

// ParseDirection accepts "asc", "ascending", "desc" and "descending".
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "asc", "ascending":
		return Ascending, nil
	case "desc", "descending":
		return Descending, nil
	}
	return Ascending, fmt.Errorf("invalid sort direction %q (want asc or desc)", s)
}

// SortSpec is the single active sort of a view.
type SortSpec struct {
	Column    string
	Direction Direction
}

// ViewState is the transient view configuration of the displayed frame.
// The zero value is the default: no filters, no sort, nothing hidden.
type ViewState struct {
	Filters map[string]string
	Sort    *SortSpec
	Hidden  map[string]bool
	// Headers caches the column union of the displayed array.
	Headers []string
}

// IsDefault reports whether no filter, sort or hidden column is active.
func (s ViewState) IsDefault() bool {
	return len(s.Filters) == 0 && s.Sort == nil && len(s.Hidden) == 0
}

// SetFilter sets the substring filter of column. An empty pattern removes it.
func (s *ViewState) SetFilter(column, pattern string) {
	if pattern == "" {
		delete(s.Filters, column)
		return
	}
	if s.Filters == nil {
		s.Filters = make(map[string]string)
	}
	s.Filters[column] = pattern
}

// ToggleSort sorts by column ascending, or flips the direction if column is
// already the sort column.
func (s *ViewState) ToggleSort(column string) {
	if s.Sort != nil && s.Sort.Column == column {
		if s.Sort.Direction == Ascending {
			s.Sort.Direction = Descending
		} else {
			s.Sort.Direction = Ascending
		}
		return
	}
	s.Sort = &SortSpec{Column: column, Direction: Ascending}
}

// SetHidden hides or shows column.
func (s *ViewState) SetHidden(column string, hidden bool) {
	if !hidden {
		delete(s.Hidden, column)
		return
	}
	if s.Hidden == nil {
		s.Hidden = make(map[string]bool)
	}
	s.Hidden[column] = true
}

// ShowAll clears every hidden column.
func (s *ViewState) ShowAll() {
	s.Hidden = nil
}

// Visible returns the cached headers that are not hidden, in order.
func (s *ViewState) Visible() []string {
	out := make([]string, 0, len(s.Headers))
	for _, h := range s.Headers {
		if !s.Hidden[h] {
			out = append(out, h)
		}
	}
	return out
}

// Frame is one level of drill-down.
type Frame struct {
	Label string
	Value tree.Value
}

// Stack is the drill-down history of a session. It is never empty: frame 0
// is the root. Every change of depth or top frame resets the ViewState.
type Stack struct {
	frames []Frame
	view   ViewState
}

// NewStack returns a stack holding only the root frame.
func NewStack(root tree.Value) *Stack {
	return &Stack{frames: []Frame{{Label: RootLabel, Value: root}}}
}

// Push appends a frame.
func (s *Stack) Push(label string, v tree.Value) {
	s.frames = append(s.frames, Frame{Label: label, Value: v})
	s.view = ViewState{}
}

// PushStep descends from the current frame through step and pushes the
// result.
func (s *Stack) PushStep(step Step) error {
	next, err := descend(s.Current().Value, step)
	if err != nil {
		return err
	}
	s.Push(step.Label(), next)
	return nil
}

// TruncateTo drops every frame after index. An index that does not name an
// existing frame leaves the stack and its view untouched.
func (s *Stack) TruncateTo(index int) bool {
	if index < 0 || index >= len(s.frames) {
		return false
	}
	clear(s.frames[index+1:])
	s.frames = s.frames[:index+1]
	s.view = ViewState{}
	return true
}

// Pop drops the top frame unless it is the root.
func (s *Stack) Pop() bool {
	if len(s.frames) == 1 {
		return false
	}
	return s.TruncateTo(len(s.frames) - 2)
}

// Current returns the top frame.
func (s *Stack) Current() Frame {
	return s.frames[len(s.frames)-1]
}

// ResetToRoot replaces the root value and collapses the stack to it.
func (s *Stack) ResetToRoot(root tree.Value) {
	clear(s.frames[1:])
	s.frames = s.frames[:1]
	s.frames[0].Value = root
	s.view = ViewState{}
}

// Root returns the value of frame 0.
func (s *Stack) Root() tree.Value {
	return s.frames[0].Value
}

// Depth returns the number of frames, root included.
func (s *Stack) Depth() int {
	return len(s.frames)
}

// Frames returns a copy of the frames, root first.
func (s *Stack) Frames() []Frame {
	out := make([]Frame, len(s.frames))
	copy(out, s.frames)
	return out
}

// Labels returns every frame label, starting with the root label.
func (s *Stack) Labels() []string {
	out := make([]string, len(s.frames))
	for i, f := range s.frames {
		out[i] = f.Label
	}
	return out
}

// View returns the mutable view state of the top frame.
func (s *Stack) View() *ViewState {
	return &s.view
}
