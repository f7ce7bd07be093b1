package host

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/oakwood-commons/jtv/internal/export"
	"github.com/oakwood-commons/jtv/internal/navigator"
	"github.com/oakwood-commons/jtv/internal/tree"
	"github.com/oakwood-commons/jtv/pkg/loader"
	"github.com/oakwood-commons/jtv/pkg/logger"
)

// Options configures a Host.
type Options struct {
	// Indent is the indent width of rewritten documents.
	Indent int
	// Format fixes the document format. Empty means detect on every read.
	Format loader.Format
	// ExportName is the base name of exported files.
	ExportName string
	Workbook   export.Options
}

// Host owns a document and serves the requests of one or more viewers.
// Document writes are serialized; each read-modify-write runs under one lock.
type Host struct {
	doc  Document
	sink Sink
	opts Options

	mu   sync.Mutex
	last string
}

// New returns a host for doc that saves exports to sink.
func New(doc Document, sink Sink, opts Options) *Host {
	if opts.Indent < 1 {
		opts.Indent = loader.DefaultIndent
	}
	if opts.ExportName == "" {
		opts.ExportName = "export"
	}
	return &Host{doc: doc, sink: sink, opts: opts}
}

// ExportBaseName derives an export file name from a document path.
func ExportBaseName(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if base == "" || base == "." || base == string(filepath.Separator) || base == "-" {
		return "export"
	}
	return base
}

// Text returns the current document content and remembers it as seen.
func (h *Host) Text(ctx context.Context) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	text, err := h.doc.Text(ctx)
	if err != nil {
		return "", err
	}
	h.last = text
	return text, nil
}

// HandleRaw decodes a request and handles it. Decode failures are returned
// as errors; everything else becomes a reply.
func (h *Host) HandleRaw(ctx context.Context, raw []byte) (Reply, error) {
	req, err := Decode(raw)
	if err != nil {
		return Reply{}, err
	}
	return h.Handle(ctx, req), nil
}

// Handle serves one request.
func (h *Host) Handle(ctx context.Context, req Request) Reply {
	lgr := logger.WithValues(logger.FromContext(ctx), logger.CommandKey, req.Command(), logger.RequestIDKey, req.RequestID())
	start := time.Now()

	var reply Reply
	switch r := req.(type) {
	case UpdateValue:
		reply = h.updateValue(ctx, r)
	case ExportCSV:
		reply = h.save(ctx, r.ID, h.opts.ExportName+".csv", []byte(r.CSVString))
	case ExportXLSX:
		data, err := export.BuildXLSX(r.Data, r.Headers, h.opts.Workbook)
		if err != nil {
			reply = ErrorReply(r.ID, fmt.Errorf("build workbook: %w", err), "")
			break
		}
		reply = h.save(ctx, r.ID, h.opts.ExportName+".xlsx", data)
	default:
		reply = ErrorReply(req.RequestID(), fmt.Errorf("%w: %q", ErrUnknownCommand, req.Command()), "")
	}

	if reply.Command == CommandError {
		lgr.Error(reply.Err(), "request failed", logger.DurationKey, time.Since(start))
	} else {
		lgr.V(1).Info("request served", logger.StatusKey, reply.Command, logger.LocationKey, reply.Location, logger.DurationKey, time.Since(start))
	}
	return reply
}

func (h *Host) updateValue(ctx context.Context, m UpdateValue) Reply {
	labels, err := m.Labels()
	if err != nil {
		return ErrorReply(m.ID, err, "")
	}
	target, err := m.Target()
	if err != nil {
		return ErrorReply(m.ID, err, "")
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	text, err := h.doc.Text(ctx)
	if err != nil {
		return ErrorReply(m.ID, fmt.Errorf("read document: %w", err), "")
	}
	root, format, err := h.parse(text)
	if err != nil {
		return ErrorReply(m.ID, err, "")
	}
	updated, err := navigator.Apply(root, labels, target, m.NewValue)
	if err != nil {
		return ErrorReply(m.ID, err, text)
	}
	out, err := loader.Marshal(updated, format, h.opts.Indent)
	if err != nil {
		return ErrorReply(m.ID, err, text)
	}
	content := string(out)
	if err := h.doc.Replace(ctx, content); err != nil {
		return ErrorReply(m.ID, fmt.Errorf("write document: %w", err), text)
	}
	h.last = content
	return DocumentUpdated(m.ID, content)
}

func (h *Host) parse(text string) (tree.Value, loader.Format, error) {
	if h.opts.Format != "" {
		v, err := loader.LoadAs(text, h.opts.Format)
		return v, h.opts.Format, err
	}
	return loader.Load(text)
}

func (h *Host) save(ctx context.Context, id, name string, data []byte) Reply {
	location, err := h.sink.Save(ctx, name, data)
	if err != nil {
		return ErrorReply(id, fmt.Errorf("save %s: %w", name, err), "")
	}
	return Exported(id, location)
}
