// Package tui embeds the interactive jtv viewer in other programs.
package tui

import (
	"context"
	"io"
	"os"
	"strconv"

	tea "charm.land/bubbletea/v2"
	"golang.org/x/term"

	"github.com/oakwood-commons/jtv/internal/host"
	"github.com/oakwood-commons/jtv/internal/session"
	"github.com/oakwood-commons/jtv/internal/ui"
)

const (
	defaultFallbackTermWidth  = 120
	defaultFallbackTermHeight = 24
)

// DetectTerminalSize returns the best-effort terminal size by probing
// stdout, stderr and stdin, then the COLUMNS environment variable.
func DetectTerminalSize() (width int, height int) {
	fds := []uintptr{os.Stdout.Fd(), os.Stderr.Fd(), os.Stdin.Fd()}
	for _, fd := range fds {
		if w, h, err := term.GetSize(int(fd)); err == nil && (w > 0 || h > 0) {
			return w, h
		}
	}
	if col := os.Getenv("COLUMNS"); col != "" {
		if w, err := strconv.Atoi(col); err == nil && w > 0 {
			return w, 0
		}
	}
	return defaultFallbackTermWidth, defaultFallbackTermHeight
}

// open builds the in-memory host and a session positioned at StartPath.
func open(ctx context.Context, text string, cfg Config) (*host.MemoryDocument, *host.Host, *session.Session, error) {
	doc := host.NewMemoryDocument(text)
	var sink host.Sink = &host.MemorySink{}
	if cfg.ExportDir != "" {
		sink = host.NewDirSink(cfg.ExportDir)
	}
	h := host.New(doc, sink, host.Options{Indent: cfg.Indent})
	content, err := h.Text(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	sess, err := session.New(content, session.Options{})
	if err != nil {
		return nil, nil, nil, err
	}
	if cfg.StartPath != "" {
		if err := sess.Goto(cfg.StartPath); err != nil {
			return nil, nil, nil, err
		}
	}
	return doc, h, sess, nil
}

func (c Config) options() ui.Options {
	return ui.Options{NoColor: c.NoColor, Theme: c.Theme, MaxColumnWidth: c.MaxColumnWidth}
}

// Run opens the viewer over text and blocks until the user quits. Edits
// apply to an in-memory copy, which is returned.
func Run(ctx context.Context, text string, cfg Config, opts ...tea.ProgramOption) (string, error) {
	doc, h, sess, err := open(ctx, text, cfg)
	if err != nil {
		return "", err
	}
	if cfg.Width > 0 && cfg.Height > 0 {
		opts = append(opts, tea.WithWindowSize(cfg.Width, cfg.Height))
	}
	if err := ui.Run(ctx, sess, h, cfg.options(), opts...); err != nil {
		return "", err
	}
	return doc.Text(ctx)
}

// RenderSnapshot renders one frame of the viewer at StartPath, for
// non-interactive display.
func RenderSnapshot(text string, cfg Config) (string, error) {
	ctx := context.Background()
	_, h, sess, err := open(ctx, text, cfg)
	if err != nil {
		return "", err
	}
	width, height := cfg.Width, cfg.Height
	if width <= 0 || height <= 0 {
		width, height = defaultFallbackTermWidth, defaultFallbackTermHeight
	}
	m := ui.New(ctx, sess, h, cfg.options())
	m.Update(tea.WindowSizeMsg{Width: width, Height: height})
	return m.Render(), nil
}

// WithIO returns the program options that read keys from in and draw to out.
func WithIO(in io.Reader, out io.Writer) []tea.ProgramOption {
	opts := []tea.ProgramOption{}
	if in != nil {
		opts = append(opts, tea.WithInput(in))
	}
	if out != nil {
		opts = append(opts, tea.WithOutput(out))
	}
	return opts
}
