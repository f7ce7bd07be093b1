package host

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Sink persists exported files and reports where they went.
type Sink interface {
	Save(ctx context.Context, name string, data []byte) (string, error)
}

const stampLayout = "20060102-150405"

// DirSink writes exports into Dir. A timestamp is inserted before the
// extension, and existing files are never overwritten.
type DirSink struct {
	Dir string
	Now func() time.Time
}

// NewDirSink returns a sink writing into dir.
func NewDirSink(dir string) *DirSink {
	return &DirSink{Dir: dir, Now: time.Now}
}

func (s *DirSink) Save(ctx context.Context, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(filepath.Base(name), ext)
	stem := fmt.Sprintf("%s-%s", base, now().Format(stampLayout))

	for n := 1; ; n++ {
		file := stem + ext
		if n > 1 {
			file = fmt.Sprintf("%s-%d%s", stem, n, ext)
		}
		path := filepath.Join(s.Dir, file)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", err
		}
		if _, err := f.Write(data); err != nil {
			_ = f.Close()
			return "", fmt.Errorf("write %s: %w", path, err)
		}
		if err := f.Close(); err != nil {
			return "", err
		}
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
		return path, nil
	}
}

// MemorySink keeps exports in memory under their given names.
type MemorySink struct {
	mu    sync.Mutex
	Files map[string][]byte
}

func (s *MemorySink) Save(_ context.Context, name string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Files == nil {
		s.Files = make(map[string][]byte)
	}
	s.Files[name] = append([]byte(nil), data...)
	return "memory:" + name, nil
}

// File returns a saved export.
func (s *MemorySink) File(name string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.Files[name]
	return data, ok
}
