package analysis

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSONObject(t *testing.T) {
	span, ok := extractJSONObject("prefix {\"a\": {\"b\": 1}} suffix")
	require.True(t, ok)
	assert.Equal(t, `{"a": {"b": 1}}`, span)

	_, ok = extractJSONObject("} backwards {")
	assert.False(t, ok)

	_, ok = extractJSONObject("no braces")
	assert.False(t, ok)
}

func TestReadOptionalInt(t *testing.T) {
	src := map[string]any{
		"num":      json.Number("42"),
		"neg":      json.Number("-3"),
		"big":      json.Number("1e300"),
		"frac":     json.Number("49.5"),
		"str":      " 61 ",
		"word":     "sixty",
		"bool":     true,
		"null":     nil,
		"float":    88.2,
		"overflow": "1e999",
	}
	tests := []struct {
		key  string
		want int
	}{
		{"num", 42},
		{"neg", 0},
		{"big", 100},
		{"frac", 50},
		{"str", 61},
		{"word", 75},
		{"bool", 75},
		{"null", 75},
		{"float", 88},
		{"overflow", 75},
		{"missing", 75},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, readOptionalInt(src, tt.key, 75, 0, 100), "key %s", tt.key)
	}
}

func TestReadOptionalStringList(t *testing.T) {
	src := map[string]any{
		"list":  []any{"a", 1, "b", nil},
		"empty": []any{},
		"str":   "a",
	}

	got, ok := readOptionalStringList(src, "list")
	assert.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, got)

	got, ok = readOptionalStringList(src, "empty")
	assert.True(t, ok)
	assert.Equal(t, []string{}, got)

	got, ok = readOptionalStringList(src, "str")
	assert.False(t, ok)
	assert.Equal(t, []string{}, got)

	got, ok = readOptionalStringList(nil, "list")
	assert.False(t, ok)
	assert.NotNil(t, got)
}

func TestReadOptionalString(t *testing.T) {
	src := map[string]any{"s": "hello", "blank": "  ", "n": 3}
	assert.Equal(t, "hello", readOptionalString(src, "s", "def"))
	assert.Equal(t, "def", readOptionalString(src, "blank", "def"))
	assert.Equal(t, "def", readOptionalString(src, "n", "def"))
	assert.Equal(t, "def", readOptionalString(src, "missing", "def"))
}

func TestDecodeObject(t *testing.T) {
	obj, err := decodeObject("```json\n{\"overallScore\": 80}\n```")
	require.NoError(t, err)
	assert.Equal(t, json.Number("80"), obj["overallScore"])

	_, err = decodeObject("no braces here")
	assert.ErrorIs(t, err, errNoJSONObject)

	for _, in := range []string{`{"a":1}}`, `{"a":1}]}`, `{"a":1} {"b":2}`, `{"a":1} tail}`} {
		_, err = decodeObject(in)
		assert.Error(t, err, in)
	}
}

func TestIsFalsy(t *testing.T) {
	for _, v := range []any{nil, false, "", json.Number("0"), json.Number("0.0"), 0.0} {
		assert.True(t, isFalsy(v), "%#v", v)
	}
	for _, v := range []any{true, "x", json.Number("3"), map[string]any{}, []any{}} {
		assert.False(t, isFalsy(v), "%#v", v)
	}
}
