package navigator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakwood-commons/jtv/internal/tree"
)

func dirtyView(s *Stack) {
	v := s.View()
	v.SetFilter("name", "jo")
	v.ToggleSort("age")
	v.SetHidden("id", true)
	v.Headers = []string{"id", "name", "age"}
}

func TestNewStackHasRoot(t *testing.T) {
	root := mustParse(t, `{"a":1}`)
	s := NewStack(root)
	assert.Equal(t, 1, s.Depth())
	assert.Equal(t, RootLabel, s.Current().Label)
	assert.True(t, s.Current().Value.Equal(root))
	assert.True(t, s.View().IsDefault())
}

func TestStackResetsViewOnEveryChange(t *testing.T) {
	root := mustParse(t, `{"users":[{"name":"Ann","tags":["x"]}]}`)
	s := NewStack(root)

	dirtyView(s)
	require.NoError(t, s.PushStep(KeyStep("users")))
	assert.True(t, s.View().IsDefault())
	assert.Empty(t, s.View().Headers)

	dirtyView(s)
	require.NoError(t, s.PushStep(IndexStep(0)))
	assert.True(t, s.View().IsDefault())

	dirtyView(s)
	require.True(t, s.TruncateTo(1))
	assert.True(t, s.View().IsDefault())
	assert.Equal(t, []string{"root", "users"}, s.Labels())

	dirtyView(s)
	s.ResetToRoot(tree.Array())
	assert.True(t, s.View().IsDefault())
	assert.Equal(t, 1, s.Depth())
	assert.Equal(t, tree.KindArray, s.Current().Value.Kind())
}

func TestTruncateToOutOfRangeIsNoop(t *testing.T) {
	s := NewStack(mustParse(t, `{"a":{"b":{}}}`))
	require.NoError(t, s.PushStep(KeyStep("a")))
	dirtyView(s)

	assert.False(t, s.TruncateTo(5))
	assert.False(t, s.TruncateTo(-1))
	assert.Equal(t, 2, s.Depth())
	assert.False(t, s.View().IsDefault(), "a no-op truncate keeps the view")
}

func TestPopNeverRemovesRoot(t *testing.T) {
	s := NewStack(mustParse(t, `{"a":{}}`))
	assert.False(t, s.Pop())
	require.NoError(t, s.PushStep(KeyStep("a")))
	assert.True(t, s.Pop())
	assert.False(t, s.Pop())
	assert.Equal(t, 1, s.Depth())
}

func TestPushStepMismatch(t *testing.T) {
	s := NewStack(mustParse(t, `{"a":[1]}`))
	err := s.PushStep(IndexStep(0))
	require.ErrorIs(t, err, ErrPathMismatch)
	assert.Equal(t, 1, s.Depth())
}

func TestViewStateToggleSort(t *testing.T) {
	var v ViewState
	v.ToggleSort("a")
	require.NotNil(t, v.Sort)
	assert.Equal(t, SortSpec{Column: "a", Direction: Ascending}, *v.Sort)

	v.ToggleSort("a")
	assert.Equal(t, Descending, v.Sort.Direction)

	v.ToggleSort("a")
	assert.Equal(t, Ascending, v.Sort.Direction)

	v.ToggleSort("b")
	assert.Equal(t, SortSpec{Column: "b", Direction: Ascending}, *v.Sort)
}

func TestViewStateFiltersAndVisibility(t *testing.T) {
	var v ViewState
	v.SetFilter("name", "jo")
	v.SetFilter("age", "3")
	assert.Equal(t, map[string]string{"name": "jo", "age": "3"}, v.Filters)
	v.SetFilter("age", "")
	assert.Equal(t, map[string]string{"name": "jo"}, v.Filters)

	v.Headers = []string{"id", "name", "age"}
	v.SetHidden("name", true)
	assert.Equal(t, []string{"id", "age"}, v.Visible())
	v.SetHidden("name", false)
	assert.Equal(t, []string{"id", "name", "age"}, v.Visible())
	v.SetHidden("id", true)
	v.ShowAll()
	assert.Equal(t, []string{"id", "name", "age"}, v.Visible())
}

func TestParseDirection(t *testing.T) {
	d, err := ParseDirection("DESC")
	require.NoError(t, err)
	assert.Equal(t, Descending, d)
	d, err = ParseDirection("")
	require.NoError(t, err)
	assert.Equal(t, Ascending, d)
	_, err = ParseDirection("up")
	require.Error(t, err)
}
