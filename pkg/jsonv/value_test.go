package jsonv

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Kinds(t *testing.T) {
	cases := []struct {
		in   string
		kind Kind
	}{
		{`null`, Null},
		{`true`, Bool},
		{`-12.5e3`, Number},
		{`"p1"`, String},
		{`[1,"a",null]`, Array},
		{`{"a":{"b":[]}}`, Object},
	}
	for _, c := range cases {
		v, err := Parse([]byte(c.in))
		require.NoError(t, err, c.in)
		assert.Equal(t, c.kind, v.Kind(), c.in)
	}
}

func TestParse_Malformed(t *testing.T) {
	for _, in := range []string{``, `{invalid}`, `{"a":1} x`, `[1,`, `"unterminated`} {
		_, err := Parse([]byte(in))
		assert.ErrorIs(t, err, ErrSyntax, in)
	}
}

func TestParse_EscapedStringsAndKeys(t *testing.T) {
	v := MustParse(`{"a\"b":"line\nbreak","é":"café"}`)

	got, ok := v.Get(`a"b`)
	require.True(t, ok)
	s, _ := got.Str()
	assert.Equal(t, "line\nbreak", s)

	got, ok = v.Get("é")
	require.True(t, ok)
	s, _ = got.Str()
	assert.Equal(t, "café", s)
}

func TestBytes_SortedAndCompact(t *testing.T) {
	v := MustParse(`{ "updated": 1000, "current" : "p1", "nested": {"z": [true, null], "a": 1.50} }`)
	assert.Equal(t, `{"current":"p1","nested":{"a":1.50,"z":[true,null]},"updated":1000}`, v.String())
}

func TestRoundTrip_ThroughEncodingJSON(t *testing.T) {
	v := MustParse(`{"a":[1,2,{"b":"c"}],"d":false}`)

	data, err := json.Marshal(v)
	require.NoError(t, err)

	var back Value
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, v.Equal(back))
}

func TestClone_IsDeep(t *testing.T) {
	orig := MustParse(`{"a":{"b":1}}`)
	cp := orig.Clone()

	inner, _ := cp.Get("a")
	inner.Set("b", IntValue(2))
	cp.Set("c", StringValue("x"))

	assert.Equal(t, `{"a":{"b":1}}`, orig.String())
}

func TestEqual(t *testing.T) {
	assert.True(t, MustParse(`{"a":1,"b":[1,2]}`).Equal(MustParse(`{"b":[1,2],"a":1.0}`)))
	assert.False(t, MustParse(`{"a":1}`).Equal(MustParse(`{"a":"1"}`)))
	assert.False(t, MustParse(`[1,2]`).Equal(MustParse(`[2,1]`)))
	assert.True(t, NullValue().Equal(Value{}))
}

func TestMerge_IsShallow(t *testing.T) {
	v := MustParse(`{"a":{"x":1,"y":2},"b":1}`)
	v.Merge(MustParse(`{"a":{"x":3}}`))
	assert.Equal(t, `{"a":{"x":3},"b":1}`, v.String())
}

func TestFromInterfaceAndBack(t *testing.T) {
	v, err := FromInterface(map[string]any{"n": 3, "s": []string{"x"}})
	require.NoError(t, err)
	assert.Equal(t, `{"n":3,"s":["x"]}`, v.String())

	m, ok := v.Interface().(map[string]any)
	require.True(t, ok)
	assert.Equal(t, json.Number("3"), m["n"])
}

func TestParsePath(t *testing.T) {
	assert.Equal(t, Path{"password", "current"}, ParsePath("password/current"))
	assert.Equal(t, Path{"a", "b"}, ParsePath("/a//b/"))
	assert.True(t, ParsePath("").IsRoot())
	assert.True(t, ParsePath("/").IsRoot())

	p := ParsePath("a/b/c")
	assert.Equal(t, "c", p.Last())
	assert.Equal(t, Path{"a", "b"}, p.Parent())
	assert.Equal(t, "a/b/c", p.String())
}
