package record

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseObject_AllVariants(t *testing.T) {
	obj, err := ParseObject([]byte(`{"s":"x","n":42,"b":true,"z":null,"a":["p",1],"o":{"k":"v"}}`))
	require.NoError(t, err)

	assert.Equal(t, String("x"), obj["s"])
	assert.Equal(t, Int(42), obj["n"])
	assert.Equal(t, Bool(true), obj["b"])
	assert.Equal(t, Null{}, obj["z"])
	assert.Equal(t, Array{String("p"), Int(1)}, obj["a"])
	assert.Equal(t, Object{"k": String("v")}, obj["o"])
}

func TestParseObject_RejectsFloats(t *testing.T) {
	_, err := ParseObject([]byte(`{"price":1.5}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "floats")

	_, err = ParseObject([]byte(`{"nested":{"exp":1e3}}`))
	require.Error(t, err)
}

func TestParseObject_RejectsNonObject(t *testing.T) {
	_, err := ParseObject([]byte(`["a"]`))
	require.Error(t, err)

	_, err = ParseObject([]byte(``))
	require.Error(t, err)
}

func TestObject_Str(t *testing.T) {
	obj := Object{"chat_id": String("abc"), "count": Int(3)}

	s, ok := obj.Str("chat_id")
	assert.True(t, ok)
	assert.Equal(t, "abc", s)

	_, ok = obj.Str("count")
	assert.False(t, ok, "non-string value is not a string")

	_, ok = obj.Str("missing")
	assert.False(t, ok)
}

func TestObject_CloneIsDeep(t *testing.T) {
	orig := Object{
		"chat_id": String("a"),
		"nested":  Object{"k": String("v")},
		"list":    Array{Object{"x": Int(1)}},
	}

	clone := orig.Clone()
	clone["chat_id"] = String("b")
	clone["nested"].(Object)["k"] = String("changed")
	clone["list"].(Array)[0].(Object)["x"] = Int(2)

	assert.Equal(t, String("a"), orig["chat_id"])
	assert.Equal(t, String("v"), orig["nested"].(Object)["k"])
	assert.Equal(t, Int(1), orig["list"].(Array)[0].(Object)["x"])
}

func TestObject_CloneNil(t *testing.T) {
	var obj Object
	assert.Nil(t, obj.Clone())
}

func TestObject_MarshalJSONSortedKeys(t *testing.T) {
	obj := Object{"zeta": Int(1), "alpha": String("a"), "mid": Bool(false)}

	data, err := json.Marshal(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"alpha":"a","mid":false,"zeta":1}`, string(data))
}

func TestObject_JSONRoundTripPreservesInts(t *testing.T) {
	// Larger than 2^53: would lose precision through float64.
	obj := Object{"big": Int(9007199254740993)}

	data, err := json.Marshal(obj)
	require.NoError(t, err)

	var back Object
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, Int(9007199254740993), back["big"])
}

func TestArray_Strings(t *testing.T) {
	arr := Array{String("a"), Int(1), String("b")}
	assert.Equal(t, []string{"a", "b"}, arr.Strings())
	assert.Equal(t, Array{String("x"), String("y")}, StringArray([]string{"x", "y"}))
}

func TestSortedKeys_UTF16Order(t *testing.T) {
	// U+FF61 sorts before U+10000 in UTF-8 but after it in UTF-16.
	obj := Object{"\U00010000": Int(1), "\uff61": Int(2), "a": Int(3)}
	assert.Equal(t, []string{"a", "\U00010000", "\uff61"}, obj.SortedKeys())
}
