package navigator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/oakwood-commons/jtv/internal/tree"
)

var (
	// ErrPathMismatch means a path label does not fit the value it is applied
	// to: a bracket label on a non-array, a key on a non-object, or a missing
	// index or key.
	ErrPathMismatch = errors.New("path does not match document")
	// ErrNoTarget means an edit named neither an index nor a key.
	ErrNoTarget = errors.New("edit names neither an index nor a key")
)

// PathError reports where a path stopped matching the document.
type PathError struct {
	// Path holds the labels that resolved before the failing step.
	Path   []string
	Step   string
	Reason string
}

func (e *PathError) Error() string {
	at := RootLabel
	if len(e.Path) > 0 {
		at = RootLabel + " > " + strings.Join(e.Path, " > ")
	}
	return fmt.Sprintf("at %s, step %q: %s", at, e.Step, e.Reason)
}

func (e *PathError) Unwrap() error { return ErrPathMismatch }

func mismatch(path []Step, step Step, format string, args ...any) error {
	return &PathError{Path: Labels(path), Step: step.Label(), Reason: fmt.Sprintf(format, args...)}
}

// descend takes one step into v.
func descend(v tree.Value, step Step) (tree.Value, error) {
	return descendAt(v, step, nil)
}

func descendAt(v tree.Value, step Step, path []Step) (tree.Value, error) {
	if step.IsIndex {
		if v.Kind() != tree.KindArray {
			return tree.Value{}, mismatch(path, step, "cannot index %s", v.Kind())
		}
		child, ok := v.At(step.Index)
		if !ok {
			return tree.Value{}, mismatch(path, step, "index %d out of range (len=%d)", step.Index, v.Len())
		}
		return child, nil
	}
	if v.Kind() != tree.KindObject {
		return tree.Value{}, mismatch(path, step, "cannot look up key '%s' in %s", step.Key, v.Kind())
	}
	child, ok := v.Get(step.Key)
	if !ok {
		return tree.Value{}, mismatch(path, step, "key '%s' not found", step.Key)
	}
	return child, nil
}

// Resolve follows labels from root and returns the value they address.
func Resolve(root tree.Value, labels []string) (tree.Value, error) {
	return resolveSteps(root, parseLabels(labels), len(labels))
}

// resolveSteps follows steps from root. The first nlabels steps came from
// labels and may address bracketed keys of objects.
func resolveSteps(root tree.Value, steps []Step, nlabels int) (tree.Value, error) {
	cur := root
	for i, step := range steps {
		if i < nlabels {
			step = step.on(cur)
		}
		next, err := descendAt(cur, step, steps[:i])
		if err != nil {
			return tree.Value{}, err
		}
		cur = next
	}
	return cur, nil
}

// Target is the terminal location of an edit inside the resolved container.
// With both fields set the edit addresses container[Index][Key].
type Target struct {
	Index *int
	Key   *string
}

// IndexTarget addresses container[i].
func IndexTarget(i int) Target { return Target{Index: &i} }

// KeyTarget addresses container[key].
func KeyTarget(key string) Target { return Target{Key: &key} }

// CellTarget addresses container[i][key].
func CellTarget(i int, key string) Target { return Target{Index: &i, Key: &key} }

func (t Target) steps() []Step {
	var out []Step
	if t.Index != nil {
		out = append(out, IndexStep(*t.Index))
	}
	if t.Key != nil {
		out = append(out, KeyStep(*t.Key))
	}
	return out
}

// Lookup reads the value an edit at labels and target would replace.
func Lookup(root tree.Value, labels []string, target Target) (tree.Value, error) {
	if target.Index == nil && target.Key == nil {
		return tree.Value{}, ErrNoTarget
	}
	return resolveSteps(root, append(parseLabels(labels), target.steps()...), len(labels))
}

// Apply writes the coerced raw value at labels and target and returns the new
// root. On error the original root is returned and nothing reachable from it
// has changed. A key that does not exist yet is appended to its object; an
// index must already exist.
func Apply(root tree.Value, labels []string, target Target, raw string) (tree.Value, error) {
	return Set(root, labels, target, Coerce(raw))
}

// Set is Apply with an already built value.
func Set(root tree.Value, labels []string, target Target, val tree.Value) (tree.Value, error) {
	if target.Index == nil && target.Key == nil {
		return root, ErrNoTarget
	}
	steps := append(parseLabels(labels), target.steps()...)
	out, err := setAt(root, steps, len(labels), 0, val)
	if err != nil {
		return root, err
	}
	return out, nil
}

// setAt rebuilds cur with val written at steps[depth:]. Only the final step
// may create a key.
func setAt(cur tree.Value, steps []Step, nlabels, depth int, val tree.Value) (tree.Value, error) {
	step := steps[depth]
	if depth < nlabels {
		step = step.on(cur)
	}
	path := steps[:depth]
	if depth == len(steps)-1 {
		if step.IsIndex {
			if _, err := descendAt(cur, step, path); err != nil {
				return cur, err
			}
			return cur.WithIndex(step.Index, val)
		}
		if cur.Kind() != tree.KindObject {
			return cur, mismatch(path, step, "cannot set key '%s' on %s", step.Key, cur.Kind())
		}
		return cur.WithKey(step.Key, val)
	}
	child, err := descendAt(cur, step, path)
	if err != nil {
		return cur, err
	}
	updated, err := setAt(child, steps, nlabels, depth+1, val)
	if err != nil {
		return cur, err
	}
	if step.IsIndex {
		return cur.WithIndex(step.Index, updated)
	}
	return cur.WithKey(step.Key, updated)
}

// Coerce turns user input into a value: anything that parses as a JSON
// literal (number, boolean, null, object, array, quoted string) becomes that
// value, everything else is kept verbatim as text.
func Coerce(raw string) tree.Value {
	v, err := tree.ParseString(raw)
	if err != nil {
		return tree.String(raw)
	}
	return v
}

func parseLabels(labels []string) []Step {
	steps := make([]Step, len(labels))
	for i, l := range labels {
		steps[i] = ParseLabel(l)
	}
	return steps
}
