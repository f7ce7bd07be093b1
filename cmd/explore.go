package cmd

import (
	"context"
	"errors"
	"os"
	"runtime"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/oakwood-commons/jtv/internal/ui"
	"github.com/oakwood-commons/jtv/pkg/settings"
)

const watchInterval = time.Second

var (
	openTerminalIOFn = openTerminalIO
	termGetSize      = term.GetSize
)

func newExploreCmd(o *rootOptions) *cobra.Command {
	vf := &viewFlags{}
	cmd := &cobra.Command{
		Use:   "explore [file]",
		Short: "Browse, edit and export a document interactively",
		Long: `Browse a document in the terminal.

Keys: arrows move, enter opens the focused cell, backspace goes back,
s sorts the focused column, / filters it, h hides it, H shows all columns,
e edits the focused cell, c and x export the rows to CSV and XLSX,
r reloads the document and q quits. Edits to a file are written back
immediately; changes made to the file by other programs are picked up.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExplore(cmd, o, vf, args)
		},
	}
	vf.register(cmd.Flags())
	return cmd
}

func runExplore(cmd *cobra.Command, o *rootOptions, vf *viewFlags, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

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

	opts := ui.Options{
		NoColor:        settings.FromContextOrDefault(ctx).NoColor,
		Theme:          o.cfg.Display.Theme,
		MaxColumnWidth: o.cfg.Display.MaxColumnWidth,
	}
	if !in.FromStdin {
		opts.Updates = h.Watch(ctx, watchInterval)
	}

	progOpts, cleanup := getProgramOptions(in.FromStdin)
	defer cleanup()
	return ui.Run(ctx, sess, h, opts, progOpts...)
}

// getProgramOptions attaches the viewer to the terminal device when the
// document was read from stdin.
func getProgramOptions(stdinUsed bool) ([]tea.ProgramOption, func()) {
	cleanup := func() {}
	if !stdinUsed {
		return nil, cleanup
	}

	ttyIn, ttyOut, err := openTerminalIOFn()
	if err != nil {
		// no terminal device (e.g. CI); keys will not reach the viewer
		return nil, cleanup
	}
	cleanup = func() {
		_ = ttyIn.Close()
		if ttyOut != nil && ttyOut != ttyIn {
			_ = ttyOut.Close()
		}
	}

	opts := []tea.ProgramOption{tea.WithInput(ttyIn)}
	if ttyOut != nil {
		opts = append(opts, tea.WithOutput(ttyOut))
		if w, hgt, err := termGetSize(int(ttyOut.Fd())); err == nil {
			opts = append(opts, tea.WithWindowSize(w, hgt))
		}
	}
	return opts, cleanup
}

func openTerminalIO() (*os.File, *os.File, error) {
	in, out := terminalDeviceNames(runtime.GOOS)

	input, err := os.OpenFile(in, os.O_RDWR, 0)
	if err != nil {
		return nil, nil, err
	}
	if out == "" || out == in {
		return input, input, nil
	}

	output, err := os.OpenFile(out, os.O_RDWR, 0)
	if err != nil {
		return input, nil, err
	}
	return input, output, nil
}

func terminalDeviceNames(goos string) (input string, output string) {
	if goos == "windows" {
		return "CONIN$", "CONOUT$"
	}
	return "/dev/tty", "/dev/tty"
}
