package tree

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "object order", input: `{"b":1,"a":2}`, want: `{"b":1,"a":2}`},
		{name: "number literal kept", input: `[1.50, 1e3, -0]`, want: `[1.50,1e3,-0]`},
		{name: "whitespace", input: " \n {\"a\" : [ true , null ] } \n", want: `{"a":[true,null]}`},
		{name: "scalar root", input: `"hi"`, want: `"hi"`},
		{name: "empty containers", input: `{"a":{},"b":[]}`, want: `{"a":{},"b":[]}`},
		{name: "empty input", input: ``, wantErr: true},
		{name: "trailing value", input: `{} {}`, wantErr: true},
		{name: "trailing garbage", input: `123abc`, wantErr: true},
		{name: "unquoted key", input: `{a:1}`, wantErr: true},
		{name: "single quotes", input: `{'a':1}`, wantErr: true},
		{name: "truncated", input: `{"a":[1,2`, wantErr: true},
		{name: "trailing comma", input: `[1,2,]`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseString(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				var se *SyntaxError
				assert.ErrorAs(t, err, &se)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestEncodeIndented(t *testing.T) {
	v, err := ParseString(`{"name":"Ann","tags":["a","b"],"empty":{},"none":[],"n":null}`)
	require.NoError(t, err)

	want := `{
  "name": "Ann",
  "tags": [
    "a",
    "b"
  ],
  "empty": {},
  "none": [],
  "n": null
}`
	assert.Equal(t, want, string(Encode(v, 2)))
	assert.Equal(t, `{"name":"Ann","tags":["a","b"],"empty":{},"none":[],"n":null}`, string(Encode(v, 0)))
}

func TestEncodeEscaping(t *testing.T) {
	v := String("a\"b\\c\nd\te\x01<&>é")
	assert.Equal(t, `"a\"b\\c\nd\te\u0001<&>é"`, v.String())

	back, err := ParseString(v.String())
	require.NoError(t, err)
	assert.True(t, v.Equal(back))
}

func TestValueJSONInterop(t *testing.T) {
	type envelope struct {
		Data []Value `json:"data"`
	}
	var env envelope
	require.NoError(t, json.Unmarshal([]byte(`{"data":[{"z":1,"a":2},"x"]}`), &env))
	require.Len(t, env.Data, 2)
	assert.Equal(t, []string{"z", "a"}, env.Data[0].Keys())

	out, err := json.Marshal(env)
	require.NoError(t, err)
	assert.JSONEq(t, `{"data":[{"z":1,"a":2},"x"]}`, string(out))
}
