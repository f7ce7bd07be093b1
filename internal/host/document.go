package host

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// Document is the authoritative text of the viewed document.
type Document interface {
	Text(ctx context.Context) (string, error)
	Replace(ctx context.Context, content string) error
}

// FileDocument is a document stored on disk. Replace writes a temporary file
// next to the target and renames it into place.
type FileDocument struct {
	Path string
}

// NewFileDocument returns a document backed by path.
func NewFileDocument(path string) *FileDocument {
	return &FileDocument{Path: path}
}

func (d *FileDocument) Text(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := os.ReadFile(d.Path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (d *FileDocument) Replace(ctx context.Context, content string) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	mode := fs.FileMode(0o644)
	if st, statErr := os.Stat(d.Path); statErr == nil {
		mode = st.Mode().Perm()
	} else if !errors.Is(statErr, fs.ErrNotExist) {
		return statErr
	}

	tmp, err := os.CreateTemp(filepath.Dir(d.Path), "."+filepath.Base(d.Path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()
	if _, err = tmp.WriteString(content); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = os.Chmod(tmp.Name(), mode); err != nil {
		return err
	}
	if err = os.Rename(tmp.Name(), d.Path); err != nil {
		return fmt.Errorf("replace %s: %w", d.Path, err)
	}
	return nil
}

// MemoryDocument keeps the document in memory, e.g. for input read from
// stdin.
type MemoryDocument struct {
	mu   sync.Mutex
	text string
}

// NewMemoryDocument returns a document holding text.
func NewMemoryDocument(text string) *MemoryDocument {
	return &MemoryDocument{text: text}
}

func (d *MemoryDocument) Text(context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.text, nil
}

func (d *MemoryDocument) Replace(_ context.Context, content string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.text = content
	return nil
}
