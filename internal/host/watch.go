package host

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/oakwood-commons/jtv/pkg/logger"
)

// Watch sends a documentUpdated message whenever the document changes to
// something that parses. Changes written by the host itself are not
// reported. File documents are watched through their directory, which also
// catches editors that save by renaming a new file into place; other
// documents, and files that cannot be watched, are polled every interval.
// The channel is closed when ctx is done.
func (h *Host) Watch(ctx context.Context, interval time.Duration) <-chan Reply {
	lgr := logger.FromContext(ctx)
	var changes <-chan struct{}
	if fd, ok := h.doc.(*FileDocument); ok {
		c, err := watchFile(ctx, fd.Path)
		if err != nil {
			lgr.V(1).Info("file watch unavailable, polling", logger.PathKey, fd.Path, "error", err.Error())
		} else {
			changes = c
		}
	}
	if changes == nil {
		changes = pollEvery(ctx, interval)
	}

	out := make(chan Reply)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-changes:
				if !ok {
					return
				}
			}
			content, changed := h.poll(ctx)
			if !changed {
				continue
			}
			lgr.V(1).Info("document changed on disk")
			select {
			case out <- DocumentUpdated("", content):
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// watchFile signals every write, creation or rename of the file at path.
// Bursts of events collapse into one pending signal.
func watchFile(ctx context.Context, path string) (<-chan struct{}, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		_ = w.Close()
		return nil, err
	}

	lgr := logger.FromContext(ctx)
	changes := make(chan struct{}, 1)
	go func() {
		defer close(changes)
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != abs || ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				select {
				case changes <- struct{}{}:
				default:
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				lgr.V(1).Info("file watch error", logger.PathKey, abs, "error", err.Error())
			}
		}
	}()
	return changes, nil
}

// pollEvery signals once per interval.
func pollEvery(ctx context.Context, interval time.Duration) <-chan struct{} {
	ticks := make(chan struct{})
	go func() {
		defer close(ticks)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			select {
			case ticks <- struct{}{}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ticks
}

func (h *Host) poll(ctx context.Context) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	text, err := h.doc.Text(ctx)
	if err != nil || text == h.last {
		return "", false
	}
	if _, _, err := h.parse(text); err != nil {
		return "", false
	}
	h.last = text
	return text, true
}
