package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValue_ScalarConstructors(t *testing.T) {
	assert.Equal(t, KindNull, Null().Kind())
	assert.True(t, Null().IsNull())
	assert.Equal(t, KindBool, Bool(true).Kind())
	assert.Equal(t, true, Bool(true).AsBool())
	assert.Equal(t, KindInteger, Integer(42).Kind())
	assert.Equal(t, int64(42), Integer(42).AsInteger())
	assert.Equal(t, KindFloat, Float(1.5).Kind())
	assert.Equal(t, 1.5, Float(1.5).AsFloat())
	assert.Equal(t, KindString, String("hi").Kind())
	assert.Equal(t, "hi", String("hi").AsString())
}

func TestValue_ZeroValueIsNull(t *testing.T) {
	var v Value
	assert.Equal(t, KindNull, v.Kind())
	assert.True(t, v.IsNull())
}

func TestValue_MapGet(t *testing.T) {
	m := Map(
		MapEntry{Key: "a", Value: Integer(1)},
		MapEntry{Key: "b", Value: String("x")},
	)
	got, ok := m.Get("a")
	require.True(t, ok)
	assert.Equal(t, int64(1), got.AsInteger())

	_, ok = m.Get("missing")
	assert.False(t, ok)
}

func TestValue_Clone_DeepIsolation(t *testing.T) {
	inner := Array(Integer(1), Integer(2))
	outer := Map(MapEntry{Key: "nums", Value: inner})

	cloned := outer.Clone()
	require.True(t, Equal(outer, cloned))

	// mutate the original backing arrays directly to prove no aliasing.
	innerArr := outer.AsMap()[0].Value.AsArray()
	innerArr[0] = Integer(999)

	clonedInner, ok := cloned.Get("nums")
	require.True(t, ok)
	assert.Equal(t, int64(1), clonedInner.AsArray()[0].AsInteger(), "clone must not observe mutation of original backing array")
}

func TestValue_Clone_Bytes(t *testing.T) {
	b := []byte{1, 2, 3}
	v := Bytes(b)
	cloned := v.Clone()
	v.AsBytes()[0] = 99
	assert.Equal(t, byte(1), cloned.AsBytes()[0])
}

func TestValue_Bytes_CopiesInput(t *testing.T) {
	b := []byte{1, 2, 3}
	v := Bytes(b)
	b[0] = 99
	assert.Equal(t, byte(1), v.AsBytes()[0])
}
