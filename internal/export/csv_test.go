package export

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakwood-commons/jtv/internal/tree"
)

func parseRows(t *testing.T, s string) []tree.Value {
	t.Helper()
	v, err := tree.ParseString(s)
	require.NoError(t, err)
	require.Equal(t, tree.KindArray, v.Kind())
	return v.Items()
}

func TestQuote(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"a,b", `"a,b"`},
		{`say "hi"`, `"say ""hi"""`},
		{"two\nlines", "\"two\nlines\""},
		{"bare\rreturn", "\"bare\rreturn\""},
		{"crlf\r\nline", "\"crlf\r\nline\""},
		{"", ""},
		{" padded ", " padded "},
		{"tab\there", "tab\there"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Quote(tt.in))
		})
	}
}

func TestCSVFormat(t *testing.T) {
	rows := parseRows(t, `[
		{"name":"Ann","note":"a,b","tags":["x","y"],"meta":{"k":"v"},"n":null},
		{"name":"Bob","note":"say \"hi\"","age":30}
	]`)
	headers := []string{"name", "age", "note", "tags", "meta", "n"}

	got := CSV{}.Format(headers, rows)
	want := "name,age,note,tags,meta,n\n" +
		`Ann,,"a,b","[""x"",""y""]","{""k"":""v""}",` + "\n" +
		`Bob,30,"say ""hi""",,,` + "\n"
	assert.Equal(t, want, got)
}

func TestCSVHeaderQuotingAndTerminator(t *testing.T) {
	rows := parseRows(t, `[{"a,b":1}]`)
	got := CSV{LineTerminator: "\r\n"}.Format([]string{"a,b"}, rows)
	assert.Equal(t, "\"a,b\"\r\n1\r\n", got)
}

func TestCSVNoRows(t *testing.T) {
	assert.Equal(t, "a,b\n", CSV{}.Format([]string{"a", "b"}, nil))
}

func TestCSVKeepsRowOrder(t *testing.T) {
	rows := parseRows(t, `[{"v":3},{"v":1},{"v":2}]`)
	assert.Equal(t, "v\n3\n1\n2\n", CSV{}.Format([]string{"v"}, rows))
}
