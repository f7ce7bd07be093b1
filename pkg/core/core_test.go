package core

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

const people = `{"people": [
  {"name": "John", "age": 30},
  {"name": "Joe", "age": 25},
  {"name": "Ann", "age": 41}
]}`

func mustLoad(t *testing.T, text string) *Document {
	t.Helper()
	doc, err := Load(text)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	return doc
}

func TestEngineEvaluate(t *testing.T) {
	engine, err := New()
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	out, err := engine.Evaluate("_.people.filter(p, p.age > 26).map(p, p.name)", mustLoad(t, people))
	if err != nil {
		t.Fatalf("Evaluate error: %v", err)
	}
	got, ok := out.Value().([]any)
	if !ok || len(got) != 2 || got[0] != "John" || got[1] != "Ann" {
		t.Fatalf("Evaluate output = %v, want [John Ann]", out.Value())
	}
}

type fakeEvaluator struct {
	expr string
	root any
}

func (f *fakeEvaluator) Evaluate(expr string, root any) (any, error) {
	f.expr, f.root = expr, root
	return map[string]any{"ok": true}, nil
}

func TestEngineUsesInjectedEvaluator(t *testing.T) {
	fake := &fakeEvaluator{}
	engine, err := New(WithEvaluator(fake))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	out, err := engine.Evaluate("anything", mustLoad(t, `{"a": 1}`))
	if err != nil {
		t.Fatalf("Evaluate error: %v", err)
	}
	if fake.expr != "anything" {
		t.Fatalf("evaluator got expr %q", fake.expr)
	}
	if m, ok := fake.root.(map[string]any); !ok || m["a"] != int64(1) {
		t.Fatalf("evaluator got root %#v", fake.root)
	}
	if m, ok := out.Value().(map[string]any); !ok || m["ok"] != true {
		t.Fatalf("Evaluate output = %#v", out.Value())
	}
}

func TestTable(t *testing.T) {
	engine, err := New(WithLimit(2, 0, 0))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	doc := mustLoad(t, people)

	tbl, err := engine.Table(doc, "people", Query{Sort: "age:desc"})
	if err != nil {
		t.Fatalf("Table error: %v", err)
	}
	if strings.Join(tbl.Columns, ",") != "(index),name,age" {
		t.Fatalf("columns = %v", tbl.Columns)
	}
	if len(tbl.Rows) != 2 || tbl.Rows[0][1] != "Ann" || tbl.Rows[1][1] != "John" {
		t.Fatalf("rows = %v", tbl.Rows)
	}
	if tbl.Status != "rows 1-2 of 3" {
		t.Fatalf("status = %q", tbl.Status)
	}

	tbl, err = engine.Table(doc, "", Query{})
	if err != nil {
		t.Fatalf("Table error: %v", err)
	}
	if tbl.Columns[0] != "KEY" || tbl.Rows[0][0] != "people" || tbl.Status != "" {
		t.Fatalf("object table = %+v", tbl)
	}

	if _, err := engine.Table(doc, "people[0].name", Query{}); err == nil {
		t.Fatalf("expected an error for a primitive path")
	}
	if _, err := engine.Table(doc, "people", Query{Sort: "age:sideways"}); err == nil {
		t.Fatalf("expected an error for a bad sort direction")
	}
}

func TestRenderAndExport(t *testing.T) {
	engine, err := New()
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	doc := mustLoad(t, people)
	q := Query{Filters: map[string]string{"name": "jo"}, Where: "row.age < 30"}

	out, err := engine.Render(doc, "people", q, true, 80)
	if err != nil {
		t.Fatalf("Render error: %v", err)
	}
	if !strings.Contains(out, "Joe") || strings.Contains(out, "John") {
		t.Fatalf("Render output:\n%s", out)
	}

	csv, err := engine.ExportCSV(doc, "people", Query{Hidden: []string{"age"}})
	if err != nil {
		t.Fatalf("ExportCSV error: %v", err)
	}
	if csv != "name\nJohn\nJoe\nAnn\n" {
		t.Fatalf("ExportCSV = %q", csv)
	}

	data, err := engine.ExportXLSX(doc, "people", q)
	if err != nil {
		t.Fatalf("ExportXLSX error: %v", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("OpenReader error: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows("Main")
	if err != nil || len(rows) != 2 {
		t.Fatalf("Main rows = %v, err %v", rows, err)
	}
}

func TestLoadFileAndMarshal(t *testing.T) {
	path := t.TempDir() + "/data.yaml"
	if err := os.WriteFile(path, []byte("name: test\nb: 1\n"), 0o644); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}
	doc, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile error: %v", err)
	}
	if doc.Format() != "yaml" {
		t.Fatalf("Format = %q", doc.Format())
	}
	out, err := doc.Marshal("json", 0)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	if !strings.Contains(string(out), `"name": "test"`) || strings.Index(string(out), "name") > strings.Index(string(out), `"b"`) {
		t.Fatalf("Marshal output = %s", out)
	}
	if _, err := doc.Marshal("xml", 0); err == nil {
		t.Fatalf("expected an error for an unknown format")
	}
}

func TestLoadObject(t *testing.T) {
	doc, err := LoadObject(map[string]any{"b": 2, "a": []any{"x"}})
	if err != nil {
		t.Fatalf("LoadObject error: %v", err)
	}
	m, ok := doc.Value().(map[string]any)
	if !ok || m["b"] != int64(2) {
		t.Fatalf("Value = %#v", doc.Value())
	}

	if _, err := LoadObject(struct{}{}); err == nil {
		t.Fatalf("LoadObject of an unsupported type should error")
	}
}

func TestNewRejectsBadLimit(t *testing.T) {
	if _, err := New(WithLimit(1, 0, 1)); err == nil {
		t.Fatalf("expected limit and tail to conflict")
	}
}
