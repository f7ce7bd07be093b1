package export

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlattenPrimitiveArray(t *testing.T) {
	wb := Flatten(parseRows(t, `[{"tags":["x","y"]}]`), []string{"tags"}, Options{})

	assert.Equal(t, "Main", wb.Main.Title)
	assert.Equal(t, []string{"_rowId", "tags"}, wb.Main.Columns())
	require.Len(t, wb.Main.Rows, 1)
	cell := wb.Main.Rows[0].Cells[0]
	assert.Equal(t, "[View: tags (2)]", cell.Value.Text())
	assert.Equal(t, "tags", cell.Link)

	s, ok := wb.Sheet("tags")
	require.True(t, ok)
	assert.Equal(t, "tags", s.Title)
	assert.Equal(t, []string{"_rowId", "value"}, s.Columns())
	require.Len(t, s.Rows, 2)
	for i, want := range []string{"x", "y"} {
		assert.Equal(t, 1, s.Rows[i].OriginRowID)
		v, ok := s.Rows[i].Field("value")
		require.True(t, ok)
		assert.Equal(t, want, v.Text())
	}
}

func TestFlattenEmptyArray(t *testing.T) {
	wb := Flatten(parseRows(t, `[{"tags":[]}]`), []string{"tags"}, Options{})
	cell := wb.Main.Rows[0].Cells[0]
	assert.Equal(t, "[]", cell.Value.Text())
	assert.Empty(t, cell.Link)
	assert.Empty(t, wb.Sheets)
}

func TestFlattenObjectsAndSparseUnion(t *testing.T) {
	rows := parseRows(t, `[
		{"id":1,"addr":{"city":"Oslo","zip":"0150"},"items":[{"sku":"a","qty":1},{"sku":"b","color":"red"}]},
		{"id":2,"addr":{"street":"Main","city":"Bergen"},"items":[{"qty":3}]},
		{"id":3}
	]`)
	wb := Flatten(rows, []string{"id", "addr", "items"}, Options{})

	require.Len(t, wb.Main.Rows, 3)
	assert.Equal(t, "1", wb.Main.Rows[0].Cells[0].Value.Text())
	assert.Equal(t, "[View: addr]", wb.Main.Rows[0].Cells[1].Value.Text())
	assert.Equal(t, "[View: items (2)]", wb.Main.Rows[0].Cells[2].Value.Text())
	assert.Equal(t, "[View: items (1)]", wb.Main.Rows[1].Cells[2].Value.Text())
	assert.True(t, wb.Main.Rows[2].Cells[1].Value.IsNull(), "absent field renders empty")

	require.Len(t, wb.Sheets, 2)
	assert.Equal(t, "addr", wb.Sheets[0].Title)
	assert.Equal(t, "items", wb.Sheets[1].Title)

	addr := wb.Sheets[0]
	assert.Equal(t, []string{"city", "zip", "street"}, addr.Union)
	assert.Equal(t, []int{1, 2}, []int{addr.Rows[0].OriginRowID, addr.Rows[1].OriginRowID})
	_, ok := addr.Rows[1].Field("zip")
	assert.False(t, ok)

	items := wb.Sheets[1]
	assert.Equal(t, []string{"sku", "qty", "color"}, items.Union)
	require.Len(t, items.Rows, 3)
	assert.Equal(t, []int{1, 1, 2}, []int{items.Rows[0].OriginRowID, items.Rows[1].OriginRowID, items.Rows[2].OriginRowID})
}

func TestFlattenOriginRowIDFollowsDisplayedOrder(t *testing.T) {
	// rows arrive already sorted; ids are positions in this order
	rows := parseRows(t, `[{"n":"b","x":{"a":1}},{"n":"a","x":{"a":2}}]`)
	wb := Flatten(rows, []string{"n", "x"}, Options{})
	s, _ := wb.Sheet("x")
	v, _ := s.Rows[1].Field("a")
	assert.Equal(t, 2, s.Rows[1].OriginRowID)
	assert.Equal(t, "2", v.Text())
}

func TestFlattenHeadFirstArrayHeuristic(t *testing.T) {
	rows := parseRows(t, `[{"mix":[1,{"a":1}]},{"mix":[{"a":1},2,[7,8]]}]`)
	wb := Flatten(rows, []string{"mix"}, Options{})
	s, ok := wb.Sheet("mix")
	require.True(t, ok)

	// first row is an array of primitives: every element lands in "value"
	v, _ := s.Rows[1].Field("value")
	assert.Equal(t, `{"a":1}`, v.Text())

	// second row is an array of objects: primitives add an empty row, arrays spread by position
	assert.Empty(t, s.Rows[3].Fields)
	assert.Equal(t, []string{"value", "a", "0", "1"}, s.Union)
}

func TestFlattenRowIDCollision(t *testing.T) {
	rows := parseRows(t, `[{"_rowId":"mine","sub":{"_rowId":9,"k":1}}]`)
	wb := Flatten(rows, []string{"_rowId", "sub"}, Options{})

	assert.Equal(t, []string{"_rowId_2", "_rowId", "sub"}, wb.Main.Columns())
	s, _ := wb.Sheet("sub")
	assert.Equal(t, []string{"_rowId_2", "_rowId", "k"}, s.Columns())

	other, _ := wb.Sheet("sub")
	assert.Same(t, s, other)
}

func TestFlattenSheetTitles(t *testing.T) {
	long := strings.Repeat("a", 40)
	longer := long + "b"
	rows := parseRows(t, `[{
		"`+long+`": {"x":1},
		"`+longer+`": {"x":2},
		"main": [1],
		"a/b:c": [2],
		"'quoted'": [3]
	}]`)
	headers := []string{long, longer, "main", "a/b:c", "'quoted'"}
	wb := Flatten(rows, headers, Options{})

	titles := make([]string, len(wb.Sheets))
	for i, s := range wb.Sheets {
		titles[i] = s.Title
		assert.LessOrEqual(t, len([]rune(s.Title)), MaxSheetTitle)
	}
	assert.Equal(t, []string{
		strings.Repeat("a", 31),
		strings.Repeat("a", 27) + " (2)",
		"main (2)",
		"a_b_c",
		"_quoted_",
	}, titles)

	// placeholders link to the resolved titles
	assert.Equal(t, strings.Repeat("a", 27)+" (2)", wb.Main.Rows[0].Cells[1].Link)
}

func TestFlattenCustomOptions(t *testing.T) {
	wb := Flatten(parseRows(t, `[{"a":1}]`), []string{"a"}, Options{MainSheet: "Data", RowIDColumn: "#"})
	assert.Equal(t, "Data", wb.Main.Title)
	assert.Equal(t, []string{"#", "a"}, wb.Main.Columns())
}

func TestLinkTarget(t *testing.T) {
	assert.Equal(t, "'tags'!A1", LinkTarget("tags"))
	assert.Equal(t, "'it''s'!A1", LinkTarget("it's"))
}
