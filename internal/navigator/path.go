package navigator

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/oakwood-commons/jtv/internal/tree"
)

// Step is one descent into a container: either an array index or an object key.
type Step struct {
	Index   int
	Key     string
	IsIndex bool
}

// IndexStep returns a step into array item i.
func IndexStep(i int) Step { return Step{Index: i, IsIndex: true} }

// KeyStep returns a step into object field key.
func KeyStep(key string) Step { return Step{Key: key} }

// Label renders the step the way it appears in breadcrumbs and edit paths:
// "[N]" for an index, the bare key otherwise.
func (s Step) Label() string {
	if s.IsIndex {
		return "[" + strconv.Itoa(s.Index) + "]"
	}
	return s.Key
}

func (s Step) String() string { return s.Label() }

// ParseLabel is the inverse of Step.Label. A label of the form "[N]" with N a
// non-negative integer written without sign or leading zeros is an index;
// anything else is a key. Resolution falls back to the key "[N]" when the
// container is an object.
func ParseLabel(label string) Step {
	if len(label) >= 3 && label[0] == '[' && label[len(label)-1] == ']' {
		inner := label[1 : len(label)-1]
		if n, err := strconv.Atoi(inner); err == nil && n >= 0 && strconv.Itoa(n) == inner {
			return IndexStep(n)
		}
	}
	return KeyStep(label)
}

// on adapts s to the container it is applied to: an index step taken into an
// object addresses the key spelled like its label.
func (s Step) on(v tree.Value) Step {
	if s.IsIndex && v.Kind() == tree.KindObject {
		return KeyStep(s.Label())
	}
	return s
}

// ParsePath splits a path expression such as
//
//	regions.asia.countries[0]["postal-code"]
//
// into steps. Dots separate keys, [N] indexes arrays and ["key"] addresses
// keys that contain dots or brackets. A leading "root" or "$" is ignored.
func ParsePath(input string) ([]Step, error) {
	input = strings.TrimSpace(input)
	var steps []Step
	i := 0
	first := true
	for i < len(input) {
		ch := input[i]
		switch ch {
		case '.':
			i++
			continue
		case '[':
			if i+1 < len(input) && (input[i+1] == '"' || input[i+1] == '\'') {
				// quoted keys may contain dots and brackets
				quote := input[i+1]
				closing := strings.IndexByte(input[i+2:], quote)
				if closing == -1 {
					return nil, fmt.Errorf("unterminated quoted key at offset %d in %q", i, input)
				}
				after := i + 2 + closing + 1
				if after >= len(input) || input[after] != ']' {
					return nil, fmt.Errorf("malformed quoted key at offset %d in %q", i, input)
				}
				steps = append(steps, KeyStep(input[i+2:i+2+closing]))
				i = after + 1
				first = false
				continue
			}
			end := strings.IndexByte(input[i:], ']')
			if end == -1 {
				return nil, fmt.Errorf("unterminated bracket at offset %d in %q", i, input)
			}
			segment := input[i+1 : i+end]
			n, err := strconv.Atoi(segment)
			if err != nil || n < 0 {
				return nil, fmt.Errorf("invalid index %q at offset %d in %q", segment, i, input)
			}
			steps = append(steps, IndexStep(n))
			i += end + 1
			first = false
			continue
		}
		j := i
		for j < len(input) && input[j] != '.' && input[j] != '[' {
			j++
		}
		name := input[i:j]
		if !(first && (name == RootLabel || name == "$")) {
			steps = append(steps, KeyStep(name))
		}
		first = false
		i = j
	}
	return steps, nil
}

// Labels converts steps to their breadcrumb labels.
func Labels(steps []Step) []string {
	out := make([]string, len(steps))
	for i, s := range steps {
		out[i] = s.Label()
	}
	return out
}

// FormatPath renders steps back into a path expression accepted by ParsePath.
func FormatPath(steps []Step) string {
	var b strings.Builder
	for idx, s := range steps {
		switch {
		case s.IsIndex:
			b.WriteString(s.Label())
		case s.Key == "" || strings.ContainsAny(s.Key, ".[]\"'") || idx == 0 && (s.Key == RootLabel || s.Key == "$"):
			quote := `"`
			if strings.Contains(s.Key, `"`) {
				quote = `'`
			}
			b.WriteString("[" + quote + s.Key + quote + "]")
		default:
			if idx > 0 {
				b.WriteByte('.')
			}
			b.WriteString(s.Key)
		}
	}
	return b.String()
}
