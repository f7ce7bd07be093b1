package host

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/oakwood-commons/jtv/internal/navigator"
	"github.com/oakwood-commons/jtv/internal/tree"
	"github.com/oakwood-commons/jtv/pkg/loader"
)

const people = `{
  "people": [
    {"name": "Ann", "age": 30},
    {"name": "Bob", "age": 25}
  ]
}`

func newMemoryHost(t *testing.T, text string) (*Host, *MemoryDocument, *MemorySink) {
	t.Helper()
	doc := NewMemoryDocument(text)
	sink := &MemorySink{}
	return New(doc, sink, Options{ExportName: "people"}), doc, sink
}

func TestUpdateValueRewritesDocument(t *testing.T) {
	h, doc, _ := newMemoryHost(t, people)

	reply := h.Handle(context.Background(), UpdateValue{
		ID:       "req-1",
		Path:     []string{"root", "people"},
		Index:    strPtr("1"),
		Key:      strPtr("age"),
		NewValue: "26",
	})
	require.Equal(t, CommandDocumentUpdated, reply.Command, reply.Message)
	assert.Equal(t, "req-1", reply.ID)
	assert.Equal(t, `{
  "people": [
    {
      "name": "Ann",
      "age": 30
    },
    {
      "name": "Bob",
      "age": 26
    }
  ]
}`, reply.NewContent)

	text, _ := doc.Text(context.Background())
	assert.Equal(t, reply.NewContent, text)

	root, err := tree.ParseString(text)
	require.NoError(t, err)
	got, err := navigator.Lookup(root, []string{"people"}, navigator.CellTarget(1, "age"))
	require.NoError(t, err)
	assert.Equal(t, tree.KindNumber, got.Kind())
}

func TestUpdateValueCoercesText(t *testing.T) {
	h, doc, _ := newMemoryHost(t, `{"a":1}`)
	reply := h.Handle(context.Background(), UpdateValue{ID: "1", Path: []string{"root"}, Key: strPtr("a"), NewValue: "hello"})
	require.Equal(t, CommandDocumentUpdated, reply.Command)
	text, _ := doc.Text(context.Background())
	assert.Equal(t, "{\n  \"a\": \"hello\"\n}", text)
}

func TestUpdateValueKeepsYAML(t *testing.T) {
	h, doc, _ := newMemoryHost(t, "people:\n  - name: Ann\n    age: 30\n")
	reply := h.Handle(context.Background(), UpdateValue{
		ID: "1", Path: []string{"root", "people"}, Index: strPtr("0"), Key: strPtr("name"), NewValue: "Anna",
	})
	require.Equal(t, CommandDocumentUpdated, reply.Command, reply.Message)
	text, _ := doc.Text(context.Background())
	assert.Equal(t, "people:\n  - name: Anna\n    age: 30\n", text)
}

func TestUpdateValueFailures(t *testing.T) {
	tests := []struct {
		name        string
		req         UpdateValue
		wantMsg     string
		wantContent bool
	}{
		{
			name:    "path without root",
			req:     UpdateValue{ID: "1", Path: []string{"people"}, Key: strPtr("x")},
			wantMsg: "must start with",
		},
		{
			name:        "missing key on path",
			req:         UpdateValue{ID: "2", Path: []string{"root", "nobody"}, Index: strPtr("0")},
			wantMsg:     "key 'nobody' not found",
			wantContent: true,
		},
		{
			name:        "index out of range",
			req:         UpdateValue{ID: "3", Path: []string{"root", "people"}, Index: strPtr("9"), Key: strPtr("age")},
			wantMsg:     "out of range",
			wantContent: true,
		},
		{
			name:        "no target",
			req:         UpdateValue{ID: "4", Path: []string{"root", "people"}},
			wantMsg:     navigator.ErrNoTarget.Error(),
			wantContent: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, doc, _ := newMemoryHost(t, people)
			reply := h.Handle(context.Background(), tt.req)
			assert.Equal(t, CommandError, reply.Command)
			assert.Equal(t, tt.req.ID, reply.ID)
			assert.Contains(t, reply.Message, tt.wantMsg)
			if tt.wantContent {
				assert.Equal(t, people, reply.NewContent)
			} else {
				assert.Empty(t, reply.NewContent)
			}
			text, _ := doc.Text(context.Background())
			assert.Equal(t, people, text, "document must be untouched")
		})
	}
}

func TestUpdateValueMalformedDocument(t *testing.T) {
	h := New(NewMemoryDocument(`{"a":`), &MemorySink{}, Options{Format: loader.FormatJSON})
	reply := h.Handle(context.Background(), UpdateValue{ID: "1", Path: []string{"root"}, Key: strPtr("a"), NewValue: "1"})
	assert.Equal(t, CommandError, reply.Command)
	assert.Contains(t, reply.Message, "invalid json")
}

func TestExportCSV(t *testing.T) {
	h, _, sink := newMemoryHost(t, people)
	reply := h.Handle(context.Background(), ExportCSV{ID: "c1", CSVString: "name\nAnn\n"})
	require.Equal(t, CommandExported, reply.Command, reply.Message)
	assert.Equal(t, "memory:people.csv", reply.Location)
	data, ok := sink.File("people.csv")
	require.True(t, ok)
	assert.Equal(t, "name\nAnn\n", string(data))
}

func TestExportXLSX(t *testing.T) {
	h, _, sink := newMemoryHost(t, people)
	rows := []tree.Value{
		tree.Object(tree.Field("name", tree.String("Ann")), tree.Field("tags", tree.Array(tree.String("x")))),
	}
	reply := h.Handle(context.Background(), ExportXLSX{ID: "x1", Data: rows, Headers: []string{"name", "tags"}})
	require.Equal(t, CommandExported, reply.Command, reply.Message)

	data, ok := sink.File("people.xlsx")
	require.True(t, ok)
	f, err := excelize.OpenReader(strings.NewReader(string(data)))
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"Main", "tags"}, f.GetSheetList())
}

type failingSink struct{}

func (failingSink) Save(context.Context, string, []byte) (string, error) {
	return "", os.ErrPermission
}

func TestExportFailureIsAnErrorReply(t *testing.T) {
	h := New(NewMemoryDocument(people), failingSink{}, Options{})
	reply := h.Handle(context.Background(), ExportCSV{ID: "c1", CSVString: "a\n"})
	assert.Equal(t, CommandError, reply.Command)
	assert.Equal(t, "c1", reply.ID)
	assert.Contains(t, reply.Message, "export.csv")
}

func TestHandleRaw(t *testing.T) {
	h, _, _ := newMemoryHost(t, people)
	reply, err := h.HandleRaw(context.Background(), []byte(`{"command":"exportToCsv","id":"r","csvString":"x\n"}`))
	require.NoError(t, err)
	assert.Equal(t, CommandExported, reply.Command)

	_, err = h.HandleRaw(context.Background(), []byte(`{"command":"nope"}`))
	require.ErrorIs(t, err, ErrUnknownCommand)
}

func TestConcurrentUpdatesAreSerialized(t *testing.T) {
	h, doc, _ := newMemoryHost(t, `{"counts":[0,0,0,0,0,0,0,0]}`)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			idx := string(rune('0' + i))
			reply := h.Handle(context.Background(), UpdateValue{ID: idx, Path: []string{"root", "counts"}, Index: &idx, NewValue: "1"})
			assert.Equal(t, CommandDocumentUpdated, reply.Command, reply.Message)
		}(i)
	}
	wg.Wait()

	text, _ := doc.Text(context.Background())
	root, err := tree.ParseString(text)
	require.NoError(t, err)
	counts, _ := root.Get("counts")
	for _, c := range counts.Items() {
		assert.Equal(t, "1", c.Literal(), "every write must survive")
	}
}

func TestFileDocumentReplace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	require.NoError(t, os.WriteFile(path, []byte(people), 0o600))

	doc := NewFileDocument(path)
	h := New(doc, &MemorySink{}, Options{})
	reply := h.Handle(context.Background(), UpdateValue{ID: "1", Path: []string{"root"}, Key: strPtr("extra"), NewValue: "true"})
	require.Equal(t, CommandDocumentUpdated, reply.Command, reply.Message)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, reply.NewContent, string(data))

	st, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), st.Mode().Perm())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files are cleaned up")
}

func TestDirSink(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports")
	stamp := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	sink := &DirSink{Dir: dir, Now: func() time.Time { return stamp }}

	first, err := sink.Save(context.Background(), "people.csv", []byte("a\n"))
	require.NoError(t, err)
	assert.Equal(t, "people-20240506-070809.csv", filepath.Base(first))

	second, err := sink.Save(context.Background(), "people.csv", []byte("b\n"))
	require.NoError(t, err)
	assert.Equal(t, "people-20240506-070809-2.csv", filepath.Base(second))

	data, err := os.ReadFile(first)
	require.NoError(t, err)
	assert.Equal(t, "a\n", string(data))
}

func TestWatchReportsExternalChanges(t *testing.T) {
	h, doc, _ := newMemoryHost(t, people)
	_, err := h.Text(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	updates := h.Watch(ctx, 5*time.Millisecond)

	require.NoError(t, doc.Replace(ctx, `{"broken":`))
	require.NoError(t, doc.Replace(ctx, `{"people":[]}`))

	select {
	case r := <-updates:
		assert.Equal(t, CommandDocumentUpdated, r.Command)
		assert.Empty(t, r.ID)
		assert.Equal(t, `{"people":[]}`, r.NewContent)
	case <-time.After(2 * time.Second):
		t.Fatal("no update received")
	}

	cancel()
	for range updates {
	}
}

func TestWatchFileDocumentSeesWritesAndRenames(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.json")
	require.NoError(t, os.WriteFile(path, []byte(people), 0o644))
	h := New(NewFileDocument(path), &MemorySink{}, Options{})
	_, err := h.Text(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	// An hour-long poll interval leaves only file events to report changes.
	updates := h.Watch(ctx, time.Hour)

	next := func(want string) {
		t.Helper()
		select {
		case r := <-updates:
			assert.Equal(t, want, r.NewContent)
		case <-time.After(5 * time.Second):
			t.Fatalf("no update for %q", want)
		}
	}

	require.NoError(t, os.WriteFile(path, []byte(`{"people":[]}`), 0o644))
	next(`{"people":[]}`)

	tmp := filepath.Join(dir, ".data.json.swp")
	require.NoError(t, os.WriteFile(tmp, []byte(`{"renamed":true}`), 0o644))
	require.NoError(t, os.Rename(tmp, path))
	next(`{"renamed":true}`)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.json"), []byte(`{}`), 0o644))
	reply := h.Handle(ctx, UpdateValue{ID: "1", Path: []string{"root"}, Key: strPtr("renamed"), NewValue: "false"})
	require.Equal(t, CommandDocumentUpdated, reply.Command, reply.Message)
	select {
	case r := <-updates:
		t.Fatalf("unexpected update %q", r.NewContent)
	case <-time.After(200 * time.Millisecond):
	}

	cancel()
	for range updates {
	}
}

func TestExportBaseName(t *testing.T) {
	assert.Equal(t, "people", ExportBaseName("/tmp/people.json"))
	assert.Equal(t, "export", ExportBaseName("-"))
	assert.Equal(t, "export", ExportBaseName(""))
}
