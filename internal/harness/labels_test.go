package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/histore/internal/record"
)

func TestLabels_SaveAndLookup(t *testing.T) {
	l := newLabels()
	require.NoError(t, l.save("root", "id-1"))
	require.NoError(t, l.save("root", "id-1"), "rebinding to the same id is fine")
	require.NoError(t, l.save("", "id-2"))
	require.NoError(t, l.save("empty", ""))

	id, err := l.lookup("$root")
	require.NoError(t, err)
	assert.Equal(t, "id-1", id)

	literal, err := l.lookup("plain")
	require.NoError(t, err)
	assert.Equal(t, "plain", literal)

	_, err = l.lookup("$empty")
	assert.ErrorContains(t, err, `unknown label "empty"`)

	assert.ErrorContains(t, l.save("root", "id-9"), "already bound")
}

func TestLabels_NameAssignsAutoLabels(t *testing.T) {
	l := newLabels()
	require.NoError(t, l.save("main", "b"))
	require.NoError(t, l.save("alias", "b"))

	assert.Equal(t, "main", l.name("b"), "first label wins")
	assert.Equal(t, "#1", l.name("x"))
	assert.Equal(t, "#2", l.name("y"))
	assert.Equal(t, "#1", l.name("x"))
	assert.Equal(t, "", l.name(""))
	assert.Equal(t, []string{"main", "#2", "#3"}, l.nameAll([]string{"b", "y", "z"}))
}

func TestLabels_ResolveNested(t *testing.T) {
	l := newLabels()
	require.NoError(t, l.save("a", "id-a"))

	got, err := l.resolve(map[string]any{
		"parent": "$a",
		"heads":  []any{"$a", "raw"},
		"content": map[string]any{
			"ref":   "$a",
			"count": 3,
		},
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"parent": "id-a",
		"heads":  []any{"id-a", "raw"},
		"content": map[string]any{
			"ref":   "id-a",
			"count": 3,
		},
	}, got)

	_, err = l.resolve(map[string]any{"heads": []any{"$missing"}})
	assert.ErrorContains(t, err, "heads: [0]: unknown label")
}

func TestArgs_TypedAccessors(t *testing.T) {
	a := args{
		"s":    "text",
		"list": []any{"x", "y"},
		"flag": true,
		"obj":  map[string]any{"n": 2},
		"num":  7,
	}

	s, err := a.str("s")
	require.NoError(t, err)
	assert.Equal(t, "text", s)

	missing, err := a.str("absent")
	require.NoError(t, err)
	assert.Empty(t, missing)

	list, err := a.strs("list")
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, list)

	flag, err := a.boolean("flag")
	require.NoError(t, err)
	assert.True(t, flag)

	obj, err := a.object("obj")
	require.NoError(t, err)
	assert.Equal(t, record.Object{"n": record.Int(2)}, obj)

	empty, err := a.object("absent")
	require.NoError(t, err)
	assert.Equal(t, record.Object{}, empty)

	_, err = a.str("num")
	assert.ErrorContains(t, err, "expected string")
	_, err = a.strs("s")
	assert.ErrorContains(t, err, "expected list")
	_, err = a.boolean("s")
	assert.ErrorContains(t, err, "expected bool")
	_, err = a.object("s")
	assert.ErrorContains(t, err, "expected map")
}

func TestToValue(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want record.Value
	}{
		{"null", nil, record.Null{}},
		{"string", "a", record.String("a")},
		{"int", 3, record.Int(3)},
		{"integral float", 4.0, record.Int(4)},
		{"bool", false, record.Bool(false)},
		{"array", []any{"a", 1}, record.Array{record.String("a"), record.Int(1)}},
		{"object", map[string]any{"k": nil}, record.Object{"k": record.Null{}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := toValue(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := toValue(1.5)
	assert.ErrorContains(t, err, "floats are not allowed")
	_, err = toValue(struct{}{})
	assert.ErrorContains(t, err, "unsupported type")
}
