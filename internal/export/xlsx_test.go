package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func openWorkbook(t *testing.T, data []byte) *excelize.File {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func TestBuildXLSX(t *testing.T) {
	rows := parseRows(t, `[
		{"name":"Ann","age":30,"ok":true,"tags":["x","y"],"addr":{"city":"Oslo","geo":{"lat":1}},"none":[]},
		{"name":"Bob","age":2.5,"tags":["z"]}
	]`)
	headers := []string{"name", "age", "ok", "tags", "addr", "none"}

	data, err := BuildXLSX(rows, headers, Options{})
	require.NoError(t, err)
	f := openWorkbook(t, data)

	assert.Equal(t, []string{"Main", "tags", "addr"}, f.GetSheetList())

	main, err := f.GetRows("Main")
	require.NoError(t, err)
	require.Len(t, main, 3)
	assert.Equal(t, []string{"_rowId", "name", "age", "ok", "tags", "addr", "none"}, main[0])
	assert.Equal(t, []string{"1", "Ann", "30", "TRUE", "[View: tags (2)]", "[View: addr]", "[]"}, main[1])
	assert.Equal(t, []string{"2", "Bob", "2.5", "", "[View: tags (1)]"}, main[2])

	linked, target, err := f.GetCellHyperLink("Main", "E2")
	require.NoError(t, err)
	assert.True(t, linked)
	assert.Equal(t, "'tags'!A1", target)

	linked, _, err = f.GetCellHyperLink("Main", "B2")
	require.NoError(t, err)
	assert.False(t, linked)

	tags, err := f.GetRows("tags")
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"_rowId", "value"},
		{"1", "x"},
		{"1", "y"},
		{"2", "z"},
	}, tags)

	addr, err := f.GetRows("addr")
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"_rowId", "city", "geo"},
		{"1", "Oslo", `{"lat":1}`},
	}, addr)
}

func TestWriteXLSXSparseColumns(t *testing.T) {
	rows := parseRows(t, `[{"items":[{"a":1},{"b":2}]}]`)
	var buf bytes.Buffer
	require.NoError(t, Flatten(rows, []string{"items"}, Options{}).WriteXLSX(&buf))

	f := openWorkbook(t, buf.Bytes())
	got, err := f.GetRows("items")
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"_rowId", "a", "b"},
		{"1", "1"},
		{"1", "", "2"},
	}, got)
}

func TestWriteXLSXNoRows(t *testing.T) {
	data, err := BuildXLSX(nil, []string{"a"}, Options{})
	require.NoError(t, err)
	f := openWorkbook(t, data)
	got, err := f.GetRows("Main")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"_rowId", "a"}}, got)
}
