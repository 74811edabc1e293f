package navigator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/celerix-dev/celerix-prefs/pkg/jsonv"
)

func path(s string) jsonv.Path { return jsonv.ParsePath(s) }

func TestGet(t *testing.T) {
	doc := jsonv.MustParse(`{"password":{"current":"p1","updated":1000},"flag":false}`)

	assert.True(t, doc.Equal(Get(doc, nil)))
	assert.Equal(t, `{"current":"p1","updated":1000}`, Get(doc, path("password")).String())
	assert.Equal(t, `"p1"`, Get(doc, path("password/current")).String())
	assert.Equal(t, `false`, Get(doc, path("flag")).String())
}

func TestGet_MissingDegradesToEmptyObject(t *testing.T) {
	doc := jsonv.MustParse(`{"password":{"current":"p1"},"n":1}`)

	for _, p := range []string{"nope", "password/nope", "password/current/deeper", "n/x", "a/b/c/d"} {
		got := Get(doc, path(p))
		assert.Equal(t, `{}`, got.String(), p)
	}
}

func TestBuild(t *testing.T) {
	assert.Equal(t, `{"a":{"b":{"c":1}}}`, Build(path("a/b/c"), jsonv.IntValue(1)).String())
	assert.Equal(t, `"x"`, Build(nil, jsonv.StringValue("x")).String())
}

func TestSet_CreatesIntermediates(t *testing.T) {
	doc := jsonv.MustParse(`{"keep":true}`)

	out, err := Set(doc, path("a/b/c"), jsonv.IntValue(7))
	require.NoError(t, err)
	assert.Equal(t, `{"a":{"b":{"c":7}},"keep":true}`, out.String())
	assert.Equal(t, `{"keep":true}`, doc.String(), "input must not be modified")
}

func TestSet_DescendsExistingObjects(t *testing.T) {
	doc := jsonv.MustParse(`{"a":{"x":1,"b":{"y":2}}}`)

	out, err := Set(doc, path("a/b/z"), jsonv.StringValue("v"))
	require.NoError(t, err)
	assert.Equal(t, `{"a":{"b":{"y":2,"z":"v"},"x":1}}`, out.String())
}

func TestSet_FinalMergeIsShallow(t *testing.T) {
	doc := jsonv.MustParse(`{"password":{"current":"p0","history":["p-1"]}}`)

	out, err := Set(doc, path("password"), jsonv.MustParse(`{"current":"p1"}`))
	require.NoError(t, err)
	assert.Equal(t, `{"password":{"current":"p1"}}`, out.String())
}

func TestSet_Conflict(t *testing.T) {
	doc := jsonv.MustParse(`{"a":{"b":"scalar"},"n":null}`)
	before := doc.String()

	_, err := Set(doc, path("a/b/c"), jsonv.IntValue(1))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConflict))

	var ce *ConflictError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, jsonv.Path{"a", "b"}, ce.Path)
	assert.Equal(t, jsonv.String, ce.Kind)

	_, err = Set(doc, path("n/x"), jsonv.IntValue(1))
	assert.ErrorIs(t, err, ErrConflict)

	assert.Equal(t, before, doc.String())
}

func TestSet_ReplacingScalarAtFinalSegmentIsAllowed(t *testing.T) {
	doc := jsonv.MustParse(`{"a":{"b":"scalar"}}`)
	out, err := Set(doc, path("a/b"), jsonv.MustParse(`{"c":1}`))
	require.NoError(t, err)
	assert.Equal(t, `{"a":{"b":{"c":1}}}`, out.String())
}

func TestSet_GetRoundTrip(t *testing.T) {
	docs := []string{`{}`, `{"a":1}`, `{"a":{"b":{}}}`, `{"x":{"y":[1,2]}}`}
	paths := []string{"a", "a/b", "a/b/c", "x/z"}
	values := []jsonv.Value{
		jsonv.StringValue("v"),
		jsonv.NullValue(),
		jsonv.MustParse(`{"deep":[{"k":true}]}`),
		jsonv.IntValue(0),
	}

	for _, d := range docs {
		for _, p := range paths {
			for _, v := range values {
				doc := jsonv.MustParse(d)
				out, err := Set(doc, path(p), v)
				if err != nil {
					assert.ErrorIs(t, err, ErrConflict)
					continue
				}
				assert.True(t, v.Equal(Get(out, path(p))), "doc=%s path=%s value=%s", d, p, v)
			}
		}
	}
}

func TestSet_Idempotent(t *testing.T) {
	doc := jsonv.MustParse(`{"a":{"q":1}}`)
	v := jsonv.MustParse(`{"k":[1,2]}`)

	once, err := Set(doc, path("a/b"), v)
	require.NoError(t, err)
	twice, err := Set(once, path("a/b"), v)
	require.NoError(t, err)
	assert.True(t, once.Equal(twice))
}

func TestDelete(t *testing.T) {
	doc := jsonv.MustParse(`{"password":{"current":"p1","updated":1000},"top":1}`)

	out, removed := Delete(doc, path("password/current"))
	assert.True(t, removed)
	assert.Equal(t, `{"password":{"updated":1000},"top":1}`, out.String())
	assert.Equal(t, `{"password":{"current":"p1","updated":1000},"top":1}`, doc.String())

	out, removed = Delete(out, path("top"))
	assert.True(t, removed)
	assert.Equal(t, `{"password":{"updated":1000}}`, out.String())
}

func TestDelete_MissingIsNoop(t *testing.T) {
	doc := jsonv.MustParse(`{"a":{"b":1},"s":"x"}`)

	for _, p := range []string{"zz", "a/zz", "q/r/s", "s/t", "a/b/c", ""} {
		out, removed := Delete(doc, path(p))
		assert.False(t, removed, p)
		assert.True(t, doc.Equal(out), p)
	}
}

func TestDelete_ThenGetIsEmpty(t *testing.T) {
	doc := jsonv.MustParse(`{"a":{"b":{"c":1}}}`)
	for _, p := range []string{"a/b/c", "a/b", "a", "never/existed"} {
		out, _ := Delete(doc, path(p))
		assert.Equal(t, `{}`, Get(out, path(p)).String(), p)
	}
}
