package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/oakwood-commons/jtv/internal/config"
	"github.com/oakwood-commons/jtv/internal/export"
	"github.com/oakwood-commons/jtv/internal/host"
	"github.com/oakwood-commons/jtv/internal/session"
	"github.com/oakwood-commons/jtv/pkg/loader"
	"github.com/oakwood-commons/jtv/pkg/logger"
	"github.com/oakwood-commons/jtv/pkg/settings"
)

// openDocument returns the document named by args. No argument or "-" reads
// stdin into memory.
func openDocument(cmd *cobra.Command, args []string) (host.Document, settings.Input, error) {
	if len(args) > 0 && args[0] != "-" {
		in := settings.Input{Path: args[0]}
		if _, err := os.Stat(in.Path); err != nil {
			return nil, in, err
		}
		return host.NewFileDocument(in.Path), in, nil
	}
	in := settings.Input{Path: "-", FromStdin: true}
	if len(args) == 0 && cmd.InOrStdin() == os.Stdin && !stdinIsPiped() {
		return nil, in, errShowHelp
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return nil, in, fmt.Errorf("read stdin: %w", err)
	}
	return host.NewMemoryDocument(string(data)), in, nil
}

// formatFor fixes the format of files with a known extension. YAML is left
// to detection so a .yaml file may hold a document stream.
func formatFor(in settings.Input) loader.Format {
	if in.FromStdin {
		return ""
	}
	f, ok := loader.FormatForPath(in.Path)
	if !ok || f == loader.FormatYAML {
		return ""
	}
	return f
}

func hostOptions(cfg config.Config, in settings.Input) host.Options {
	return host.Options{
		Indent:     cfg.Document.Indent,
		Format:     formatFor(in),
		ExportName: host.ExportBaseName(in.Path),
		Workbook: export.Options{
			MainSheet:   cfg.Export.MainSheet,
			RowIDColumn: cfg.Export.RowIDColumn,
		},
	}
}

// newHost serves doc and saves exports into the configured directory.
func newHost(cfg config.Config, doc host.Document, in settings.Input) *host.Host {
	return host.New(doc, host.NewDirSink(cfg.Export.Dir), hostOptions(cfg, in))
}

// openSession reads the document through h and opens a session positioned by
// the view flags.
func openSession(ctx context.Context, cfg config.Config, h *host.Host, in settings.Input, vf *viewFlags) (*session.Session, error) {
	text, err := h.Text(ctx)
	if err != nil {
		return nil, err
	}
	lgr := logger.WithValues(logger.FromContext(ctx), logger.DocumentKey, in.Name())
	opts := session.Options{
		Locale: cfg.Display.Language(),
		CSV:    export.CSV{LineTerminator: cfg.Export.LineTerminator()},
		Format: formatFor(in),
		Logger: *lgr,
	}
	if vf != nil {
		if opts, err = vf.options(opts); err != nil {
			return nil, err
		}
	}
	sess, err := session.New(text, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", in.Name(), err)
	}
	if vf != nil {
		if err := vf.apply(sess); err != nil {
			return nil, err
		}
	}
	lgr.V(1).Info("document opened", logger.FormatKey, string(sess.Format()))
	return sess, nil
}

// fileSink saves every export to one explicit path; "-" writes to w.
type fileSink struct {
	path string
	w    io.Writer
}

func (s fileSink) Save(ctx context.Context, _ string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.path == "-" {
		if _, err := s.w.Write(data); err != nil {
			return "", err
		}
		return "stdout", nil
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("create export dir: %w", err)
		}
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return "", err
	}
	return s.path, nil
}
