package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/oakwood-commons/jtv/internal/navigator"
	"github.com/oakwood-commons/jtv/internal/query"
	"github.com/oakwood-commons/jtv/internal/session"
	"github.com/oakwood-commons/jtv/pkg/settings"
)

const peopleJSON = `{
  "title": "staff",
  "people": [
    {"name": "John", "age": 30},
    {"name": "Joe", "age": 25, "address": {"city": "Oslo"}},
    {"name": "Ann", "age": 41}
  ]
}
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// execute runs the command line with args and returns what it wrote to
// stdout.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	root := NewRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.ExecuteContext(t.Context())
	return out.String(), err
}

func TestSortFlag(t *testing.T) {
	tests := []struct {
		in      string
		want    navigator.SortSpec
		wantErr bool
	}{
		{in: "age", want: navigator.SortSpec{Column: "age", Direction: navigator.Ascending}},
		{in: "age:desc", want: navigator.SortSpec{Column: "age", Direction: navigator.Descending}},
		{in: "a:b:asc", want: navigator.SortSpec{Column: "a:b", Direction: navigator.Ascending}},
		{in: "age:", want: navigator.SortSpec{Column: "age", Direction: navigator.Ascending}},
		{in: ":desc", wantErr: true},
		{in: "age:up", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var f sortFlag
			err := f.Set(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.Nil(t, f.spec)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, *f.spec)
		})
	}

	var f sortFlag
	assert.Empty(t, f.String())
	require.NoError(t, f.Set("age:descending"))
	assert.Equal(t, "age:desc", f.String())
	assert.Equal(t, "col:dir", f.Type())
}

func TestViewFlagsApply(t *testing.T) {
	sess, err := session.New(peopleJSON, session.Options{})
	require.NoError(t, err)

	vf := &viewFlags{path: "people", filters: []string{"name=jo"}, hide: []string{"address"}}
	require.NoError(t, vf.sort.Set("age:desc"))
	require.NoError(t, vf.apply(sess))

	state := sess.ViewState()
	assert.Equal(t, map[string]string{"name": "jo"}, state.Filters)
	assert.Equal(t, &navigator.SortSpec{Column: "age", Direction: navigator.Descending}, state.Sort)

	err = (&viewFlags{path: "people", filters: []string{"nope"}}).apply(sess)
	assert.ErrorContains(t, err, "want col=pattern")

	fresh, err := session.New(peopleJSON, session.Options{})
	require.NoError(t, err)
	err = (&viewFlags{filters: []string{"a=b"}}).apply(fresh)
	assert.ErrorIs(t, err, query.ErrNotTabular)
}

func TestView(t *testing.T) {
	path := writeFile(t, "people.json", peopleJSON)

	out, err := execute(t, "", "view", path, "--path", "people", "--filter", "name=jo", "--sort", "age:desc", "--hide", "address")
	require.NoError(t, err)
	lines := strings.Split(out, "\n")
	assert.Equal(t, "root > people", lines[0])
	assert.Contains(t, lines[1], "(index)")
	assert.Contains(t, lines[1], "age ▼")
	assert.NotContains(t, out, "address")
	assert.NotContains(t, out, "Ann")
	assert.Less(t, strings.Index(out, "John"), strings.Index(out, "Joe"))
	assert.Contains(t, out, "2 rows")
}

func TestViewRootAndStdin(t *testing.T) {
	out, err := execute(t, peopleJSON, "-", "--path", "people", "--where", "row.age > 26", "--limit", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "John")
	assert.NotContains(t, out, "Ann")
	assert.Contains(t, out, "rows 1-1 of 2")

	out, err = execute(t, peopleJSON, "view", "-")
	require.NoError(t, err)
	assert.Contains(t, out, "title")
	assert.Contains(t, out, "[ Array(3) ]")
}

func TestViewErrors(t *testing.T) {
	path := writeFile(t, "people.json", peopleJSON)

	_, err := execute(t, "", "view", path, "--limit", "2", "--tail", "1")
	assert.ErrorContains(t, err, "mutually exclusive")

	_, err = execute(t, "", "view", path, "--path", "people[7]")
	assert.Error(t, err)

	_, err = execute(t, "", "view", path, "--path", "people", "--where", "row.age >")
	assert.ErrorContains(t, err, "--where")

	_, err = execute(t, "", "view", filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	bad := writeFile(t, "bad.json", `{"a": [1, 2`)
	_, err = execute(t, "", "view", bad)
	assert.ErrorContains(t, err, "bad.json")
}

func TestSet(t *testing.T) {
	path := writeFile(t, "people.json", peopleJSON)

	out, err := execute(t, "", "set", path, "--path", "people", "--index", "0", "--key", "name", "Johnny")
	require.NoError(t, err)
	assert.Equal(t, "updated "+path+"\n", out)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Johnny")
	assert.Contains(t, string(data), "Joe")

	_, err = execute(t, "", "set", path, "--key", "people", "[]")
	assert.ErrorIs(t, err, session.ErrNotEditable)

	_, err = execute(t, "", "set", path, "--path", "people", "--index", "9", "--key", "name", "x")
	assert.Error(t, err)
}

func TestSetKeepsYAML(t *testing.T) {
	path := writeFile(t, "app.yaml", "server:\n  host: localhost\n  port: 80\n")

	_, err := execute(t, "", "set", path, "--path", "server", "--key", "port", "8080")
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "server:\n  host: localhost\n  port: 8080\n", string(data))
}

func TestExportCSV(t *testing.T) {
	path := writeFile(t, "people.json", peopleJSON)

	out, err := execute(t, "", "export", "csv", path, "--path", "people", "--filter", "name=jo", "--hide", "address", "-o", "-")
	require.NoError(t, err)
	assert.Equal(t, "name,age\nJohn,30\nJoe,25\n", out)

	target := filepath.Join(t.TempDir(), "out", "people.csv")
	out, err = execute(t, "", "export", "csv", path, "--path", "people", "-o", target)
	require.NoError(t, err)
	assert.Equal(t, "exported to "+target+"\n", out)
	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "name,age,address\n"))

	_, err = execute(t, "", "export", "csv", path)
	assert.ErrorIs(t, err, query.ErrNotTabular)
}

func TestExportXLSXIntoConfiguredDir(t *testing.T) {
	path := writeFile(t, "people.json", peopleJSON)
	dir := t.TempDir()
	cfg := writeFile(t, "config.yaml", "export:\n  dir: "+dir+"\n  main_sheet: People\n")

	out, err := execute(t, "", "--config-file", cfg, "export", "xlsx", path, "--path", "people")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out, "exported to "+filepath.Join(dir, "people-")), out)

	location := strings.TrimSpace(strings.TrimPrefix(out, "exported to "))
	f, err := excelize.OpenFile(location)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("People")
	require.NoError(t, err)
	assert.Len(t, rows, 4)
	assert.Contains(t, f.GetSheetList(), "address")
}

func TestConfigCommands(t *testing.T) {
	out, err := execute(t, "", "config", "get")
	require.NoError(t, err)
	assert.Contains(t, out, "row_id_column: _rowId")

	out, err = execute(t, "", "config", "get", "-o", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"indent"`)

	out, err = execute(t, "", "config", "get", "-o", "table")
	require.NoError(t, err)
	assert.Contains(t, out, "document")
	assert.Contains(t, out, "[ Object ]")

	_, err = execute(t, "", "config", "get", "-o", "xml")
	assert.ErrorContains(t, err, "invalid output")

	out, err = execute(t, "", "config", "default")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "# jtv default configuration."))

	out, err = execute(t, "", "config", "path")
	require.NoError(t, err)
	assert.Equal(t, "(defaults)\n", out)
}

func TestInvalidConfig(t *testing.T) {
	path := writeFile(t, "people.json", peopleJSON)

	cfg := writeFile(t, "config.yaml", "document:\n  indent: 0\n")
	_, err := execute(t, "", "--config-file", cfg, "view", path)
	assert.ErrorContains(t, err, "document.indent")

	cfg = writeFile(t, "config.yaml", "colour: red\n")
	_, err = execute(t, "", "--config-file", cfg, "view", path)
	assert.Error(t, err)
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, settings.VersionInformation.String()+"\n", out)

	out, err = execute(t, "", "--version")
	require.NoError(t, err)
	assert.Equal(t, settings.VersionInformation.String()+"\n", out)
}

func TestTerminalDeviceNames(t *testing.T) {
	in, out := terminalDeviceNames("windows")
	assert.Equal(t, "CONIN$", in)
	assert.Equal(t, "CONOUT$", out)

	in, out = terminalDeviceNames("linux")
	assert.Equal(t, "/dev/tty", in)
	assert.Equal(t, "/dev/tty", out)
}
