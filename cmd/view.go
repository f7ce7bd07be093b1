package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/oakwood-commons/jtv/internal/formatter"
	"github.com/oakwood-commons/jtv/pkg/settings"
)

func newViewCmd(o *rootOptions) *cobra.Command {
	vf := &viewFlags{}
	cmd := &cobra.Command{
		Use:   "view [file]",
		Short: "Print the table of a document or one of its paths",
		Example: `  jtv view people.json --path people --sort age:desc
  jtv view people.json --path people --where 'int(row.age) >= 30' --limit 10`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runView(cmd, o, vf, args)
		},
	}
	vf.register(cmd.Flags())
	return cmd
}

func runView(cmd *cobra.Command, o *rootOptions, vf *viewFlags, args []string) error {
	ctx := cmd.Context()
	doc, in, err := openDocument(cmd, args)
	if err != nil {
		if errors.Is(err, errShowHelp) {
			return cmd.Help()
		}
		return err
	}
	h := newHost(o.cfg, doc, in)
	sess, err := openSession(ctx, o.cfg, h, in, vf)
	if err != nil {
		return err
	}
	v, err := sess.Table()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	run := settings.FromContextOrDefault(ctx)
	noColor := run.NoColor || !isTerminal(out)
	if !noColor {
		formatter.SetTableTheme(formatter.ColorsFromTheme(o.cfg.Display.Theme))
	}
	width := 0
	if isTerminal(out) {
		width = formatter.TerminalWidth()
	}

	if _, err := fmt.Fprintln(out, formatter.Breadcrumb(v.Labels)); err != nil {
		return err
	}
	_, err = io.WriteString(out, formatter.RenderView(v, formatter.ViewOptions{
		NoColor:        noColor,
		Width:          width,
		MaxColumnWidth: o.cfg.Display.MaxColumnWidth,
		Indent:         o.cfg.Document.Indent,
	}))
	return err
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
