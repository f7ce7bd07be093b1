package query

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/oakwood-commons/jtv/internal/navigator"
	"github.com/oakwood-commons/jtv/internal/tree"
)

func parse(t *testing.T, s string) tree.Value {
	t.Helper()
	v, err := tree.ParseString(s)
	require.NoError(t, err)
	return v
}

func column(rows []Row, col string) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = CellText(r.Value, col)
	}
	return out
}

func indices(rows []Row) []int {
	out := make([]int, len(rows))
	for i, r := range rows {
		out[i] = r.Index
	}
	return out
}

func TestFilterComposesWithAnd(t *testing.T) {
	v := parse(t, `[{"name":"John","age":"30"},{"name":"Joe","age":"25"}]`)

	rows, err := Apply(v, Options{Filters: map[string]string{"name": "jo"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"John", "Joe"}, column(rows, "name"))

	rows, err = Apply(v, Options{Filters: map[string]string{"name": "jo", "age": "3"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"John"}, column(rows, "name"))
	assert.Equal(t, []int{0}, indices(rows))
}

func TestFilterStringification(t *testing.T) {
	v := parse(t, `[
		{"id":1,"v":null},
		{"id":2,"v":true},
		{"id":3,"v":{"Deep":"X"}},
		{"id":4},
		{"id":5,"v":12.5}
	]`)
	tests := []struct {
		pattern string
		want    []int
	}{
		{"TRUE", []int{1}},
		{"deep", []int{2}},
		{"2.5", []int{4}},
		{"", []int{0, 1, 2, 3, 4}},
		{"null", []int{}},
	}
	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			rows := Filter(Rows(v), map[string]string{"v": tt.pattern})
			assert.Equal(t, tt.want, indices(rows))
		})
	}
}

func TestSortIsStable(t *testing.T) {
	v := parse(t, `[{"a":1,"id":1},{"a":1,"id":2}]`)
	rows, err := Apply(v, Options{Sort: &navigator.SortSpec{Column: "a", Direction: navigator.Ascending}})
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, column(rows, "id"))

	rows, err = Apply(v, Options{Sort: &navigator.SortSpec{Column: "a", Direction: navigator.Descending}})
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, column(rows, "id"))
}

func TestSortMissingGoLast(t *testing.T) {
	v := parse(t, `[{"id":"a","n":null},{"id":"b","n":2},{"id":"c"},{"id":"d","n":10},{"id":"e","n":1}]`)

	asc := Sort(Rows(v), navigator.SortSpec{Column: "n", Direction: navigator.Ascending})
	assert.Equal(t, []string{"e", "b", "d", "a", "c"}, column(asc, "id"))

	desc := Sort(Rows(v), navigator.SortSpec{Column: "n", Direction: navigator.Descending})
	assert.Equal(t, []string{"d", "b", "e", "a", "c"}, column(desc, "id"))
}

func TestSortNumbersNumerically(t *testing.T) {
	v := parse(t, `[{"n":10},{"n":9},{"n":100},{"n":-1.5}]`)
	rows := Sort(Rows(v), navigator.SortSpec{Column: "n"})
	assert.Equal(t, []string{"-1.5", "9", "10", "100"}, column(rows, "n"))
}

func TestSortTextCollation(t *testing.T) {
	v := parse(t, `[{"s":"banana"},{"s":"Apple"},{"s":"cherry"},{"s":"apple"}]`)
	rows := Sort(Rows(v), navigator.SortSpec{Column: "s"})
	got := column(rows, "s")
	// byte order would put both capitalized words first
	assert.Equal(t, "banana", got[2])
	assert.Equal(t, "cherry", got[3])
	assert.ElementsMatch(t, []string{"apple", "Apple"}, got[:2])
}

func TestSortMixedTypesByText(t *testing.T) {
	v := parse(t, `[{"x":"b"},{"x":2},{"x":true},{"x":"a"}]`)
	rows := Sort(Rows(v), navigator.SortSpec{Column: "x"})
	assert.Equal(t, []string{"2", "a", "b", "true"}, column(rows, "x"))
}

func TestApplyDoesNotMutateSource(t *testing.T) {
	v := parse(t, `[{"a":3},{"a":1},{"a":2}]`)
	before := v.String()
	_, err := Apply(v, Options{
		Filters: map[string]string{"a": ""},
		Sort:    &navigator.SortSpec{Column: "a"},
	})
	require.NoError(t, err)
	assert.Equal(t, before, v.String())
}

func TestApplyIdentityForNonTabular(t *testing.T) {
	v := parse(t, `[3,1,2]`)
	rows, err := Apply(v, Options{
		Filters: map[string]string{"x": "zzz"},
		Sort:    &navigator.SortSpec{Column: "x"},
	})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, indices(rows))

	rows, err = Apply(parse(t, `{"a":1}`), Options{})
	require.NoError(t, err)
	assert.Nil(t, rows)
}

func TestHeadersFirstSeenUnion(t *testing.T) {
	v := parse(t, `[{"b":1,"a":2},{"c":3,"a":4},5,{"d":null}]`)
	got, err := Headers(v)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a", "c", "d"}, got)

	_, err = Headers(parse(t, `[1,2]`))
	require.ErrorIs(t, err, ErrNotTabular)
}

type predicateFunc func(tree.Value) (bool, error)

func (f predicateFunc) Match(v tree.Value) (bool, error) { return f(v) }

func TestPredicate(t *testing.T) {
	v := parse(t, `[{"n":1},{"n":2},{"n":3}]`)
	odd := predicateFunc(func(row tree.Value) (bool, error) {
		n, _ := row.Get("n")
		i, _ := n.Integer()
		return i%2 == 1, nil
	})
	rows, err := Apply(v, Options{Predicate: odd, Sort: &navigator.SortSpec{Column: "n", Direction: navigator.Descending}})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 0}, indices(rows))

	boom := predicateFunc(func(tree.Value) (bool, error) { return false, errors.New("boom") })
	_, err = Apply(v, Options{Predicate: boom})
	require.ErrorContains(t, err, "row 0: boom")
}

func TestComparatorLocale(t *testing.T) {
	c := NewComparator(language.German)
	assert.Equal(t, 0, c.Compare(tree.String("x"), tree.String("x")))
	assert.Negative(t, c.Compare(tree.String("Äpfel"), tree.String("Birne")))
	assert.Positive(t, c.Compare(tree.Int(10), tree.Int(9)))
}
