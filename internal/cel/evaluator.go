// Package cel evaluates CEL expressions against documents and table rows.
package cel

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/cel-go/common/types/traits"
	celext "github.com/google/cel-go/ext"

	"github.com/oakwood-commons/jtv/internal/tree"
)

const (
	// DocumentVar names the whole document in expressions.
	DocumentVar = "_"
	// RowVar names the current row in row predicates.
	RowVar = "row"
)

// Evaluator compiles and evaluates CEL expressions.
type Evaluator struct {
	env *cel.Env
}

// NewEvaluator creates an evaluator with the standard extension libraries.
// Additional options can extend the environment (e.g., custom functions).
func NewEvaluator(opts ...cel.EnvOption) (*Evaluator, error) {
	allOpts := make([]cel.EnvOption, 0, 6+len(opts))
	allOpts = append(allOpts,
		cel.Variable(DocumentVar, cel.DynType),
		cel.Variable(RowVar, cel.DynType),
		celext.Strings(),
		celext.Encoders(),
		celext.Lists(),
		celext.Math(),
	)
	allOpts = append(allOpts, opts...)
	env, err := cel.NewEnv(allOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	return &Evaluator{env: env}, nil
}

func (e *Evaluator) compile(expr string) (*cel.Ast, cel.Program, error) {
	ast, issues := e.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, nil, fmt.Errorf("compilation error: %w", issues.Err())
	}
	prg, err := e.env.Program(ast)
	if err != nil {
		return nil, nil, fmt.Errorf("program error: %w", err)
	}
	return ast, prg, nil
}

// Evaluate runs expr with the document bound to "_" and converts the result
// back into a tree value. Objects produced by CEL come back with sorted keys.
func (e *Evaluator) Evaluate(expr string, doc tree.Value) (tree.Value, error) {
	_, prg, err := e.compile(expr)
	if err != nil {
		return tree.Value{}, err
	}
	out, _, err := prg.Eval(map[string]any{DocumentVar: doc.ToGo()})
	if err != nil {
		return tree.Value{}, fmt.Errorf("eval error: %w", err)
	}
	return ToValue(out)
}

// RowFilter is a compiled boolean expression over a single row.
type RowFilter struct {
	expr string
	prg  cel.Program
}

// RowFilter compiles expr as a row predicate. The row is bound to "row" and,
// for symmetry with document expressions, to "_".
func (e *Evaluator) RowFilter(expr string) (*RowFilter, error) {
	ast, prg, err := e.compile(expr)
	if err != nil {
		return nil, err
	}
	switch t := ast.OutputType().String(); t {
	case "bool", "dyn":
	default:
		return nil, fmt.Errorf("row filter %q has type %s, want bool", expr, t)
	}
	return &RowFilter{expr: expr, prg: prg}, nil
}

// Match reports whether row satisfies the filter.
func (f *RowFilter) Match(row tree.Value) (bool, error) {
	native := row.ToGo()
	out, _, err := f.prg.Eval(map[string]any{RowVar: native, DocumentVar: native})
	if err != nil {
		return false, fmt.Errorf("eval %q: %w", f.expr, err)
	}
	b, ok := out.(types.Bool)
	if !ok {
		return false, fmt.Errorf("row filter %q returned %s, want bool", f.expr, out.Type().TypeName())
	}
	return bool(b), nil
}

func (f *RowFilter) String() string { return f.expr }

// ToValue converts a CEL result into a tree value.
func ToValue(val ref.Val) (tree.Value, error) {
	if val == nil {
		return tree.Null(), nil
	}
	switch v := val.(type) {
	case types.Null:
		return tree.Null(), nil
	case types.Bool:
		return tree.Bool(bool(v)), nil
	case types.Int:
		return tree.Int(int64(v)), nil
	case types.Uint:
		return tree.NumberLiteral(strconv.FormatUint(uint64(v), 10)), nil
	case types.Double:
		return tree.Number(float64(v)), nil
	case types.String:
		return tree.String(string(v)), nil
	case types.Bytes:
		return tree.String(string(v)), nil
	}

	if m, ok := val.(traits.Mapper); ok {
		var keys []string
		values := make(map[string]ref.Val)
		for it := m.Iterator(); it.HasNext() == types.True; {
			k := it.Next()
			key, ok := k.(types.String)
			if !ok {
				key = types.String(fmt.Sprint(k.Value()))
			}
			keys = append(keys, string(key))
			values[string(key)] = m.Get(k)
		}
		sort.Strings(keys)
		members := make([]tree.Member, 0, len(keys))
		for _, k := range keys {
			child, err := ToValue(values[k])
			if err != nil {
				return tree.Value{}, fmt.Errorf("%s: %w", k, err)
			}
			members = append(members, tree.Field(k, child))
		}
		return tree.Object(members...), nil
	}

	if l, ok := val.(traits.Lister); ok {
		n, ok := l.Size().(types.Int)
		if !ok {
			return tree.Value{}, fmt.Errorf("list of unknown size")
		}
		items := make([]tree.Value, 0, int(n))
		for i := types.Int(0); i < n; i++ {
			child, err := ToValue(l.Get(i))
			if err != nil {
				return tree.Value{}, fmt.Errorf("[%d]: %w", i, err)
			}
			items = append(items, child)
		}
		return tree.Array(items...), nil
	}

	return tree.FromGo(val.Value())
}
