package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"

	"github.com/oakwood-commons/jtv/internal/cel"
	"github.com/oakwood-commons/jtv/internal/limiter"
	"github.com/oakwood-commons/jtv/internal/navigator"
	"github.com/oakwood-commons/jtv/internal/session"
)

// sortFlag parses --sort col[:asc|desc]. The direction defaults to asc.
type sortFlag struct {
	spec *navigator.SortSpec
}

var _ pflag.Value = (*sortFlag)(nil)

func (f *sortFlag) String() string {
	if f.spec == nil {
		return ""
	}
	return f.spec.Column + ":" + f.spec.Direction.String()
}

func (f *sortFlag) Set(s string) error {
	col, d := s, navigator.Ascending
	if i := strings.LastIndex(s, ":"); i >= 0 {
		var err error
		if d, err = navigator.ParseDirection(s[i+1:]); err != nil {
			return err
		}
		col = s[:i]
	}
	if col == "" {
		return fmt.Errorf("invalid sort %q: missing column", s)
	}
	f.spec = &navigator.SortSpec{Column: col, Direction: d}
	return nil
}

func (f *sortFlag) Type() string { return "col:dir" }

// viewFlags select the frame and the derived view printed or exported by a
// command.
type viewFlags struct {
	path    string
	filters []string
	sort    sortFlag
	hide    []string
	where   string
	limit   limiter.Config
}

func (v *viewFlags) register(fs *pflag.FlagSet) {
	fs.StringVarP(&v.path, "path", "p", "", "path to open, e.g. people[0].address")
	fs.StringArrayVarP(&v.filters, "filter", "f", nil, "column filter col=pattern (case-insensitive substring); repeatable")
	fs.Var(&v.sort, "sort", "sort by column: col, col:asc or col:desc")
	fs.StringArrayVar(&v.hide, "hide", nil, "hide a column; repeatable")
	fs.StringVar(&v.where, "where", "", "CEL predicate over each row, e.g. 'int(row.age) > 30'")
	fs.IntVar(&v.limit.Limit, "limit", 0, "show at most N rows")
	fs.IntVar(&v.limit.Offset, "offset", 0, "skip the first N rows")
	fs.IntVar(&v.limit.Tail, "tail", 0, "show the last N rows (exclusive with --limit; ignores --offset)")
}

// options completes opts with the row window and the --where predicate.
func (v *viewFlags) options(opts session.Options) (session.Options, error) {
	if err := v.limit.Validate(); err != nil {
		return opts, err
	}
	opts.Limit = v.limit
	if strings.TrimSpace(v.where) != "" {
		ev, err := cel.NewEvaluator()
		if err != nil {
			return opts, err
		}
		pred, err := ev.RowFilter(v.where)
		if err != nil {
			return opts, fmt.Errorf("--where: %w", err)
		}
		opts.Predicate = pred
	}
	return opts, nil
}

// apply navigates to --path and applies the column flags.
func (v *viewFlags) apply(sess *session.Session) error {
	if v.path != "" {
		if err := sess.Goto(v.path); err != nil {
			return err
		}
	}
	for _, f := range v.filters {
		col, pat, ok := strings.Cut(f, "=")
		if !ok || col == "" {
			return fmt.Errorf("invalid filter %q: want col=pattern", f)
		}
		if err := sess.SetFilter(col, pat); err != nil {
			return err
		}
	}
	if v.sort.spec != nil {
		if err := sess.SetSort(v.sort.spec); err != nil {
			return err
		}
	}
	for _, col := range v.hide {
		if err := sess.SetColumnHidden(col, true); err != nil {
			return err
		}
	}
	return nil
}
