package convert

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecordGetSetAppend(t *testing.T) {
	r := NewRecord(2)
	r.Set("a", IntScalar(1))
	r.Set("b", StringScalar("x"))
	r.Set("a", IntScalar(2)) // overwrite, not append

	v, ok := r.Get("a")
	assert.True(t, ok)
	assert.Equal(t, IntScalar(2), v)
	assert.Equal(t, []string{"a", "b"}, r.Names())

	r.Append("b", StringScalar("y")) // repetition
	assert.Len(t, r.Fields, 3)
	assert.Equal(t, "y", r.Fields[2].Value.Str)

	_, ok = r.Get("missing")
	assert.False(t, ok)
}

func TestRecordClone(t *testing.T) {
	r := NewRecord(1)
	r.Set("a", IntScalar(1))
	clone := r.Clone()
	clone.Set("a", IntScalar(2))

	orig, _ := r.Get("a")
	copied, _ := clone.Get("a")
	assert.Equal(t, int64(1), orig.Int)
	assert.Equal(t, int64(2), copied.Int)
}

func TestScalarAsString(t *testing.T) {
	assert.Equal(t, "", NullScalar.AsString())
	assert.Equal(t, "hi", StringScalar("hi").AsString())
	assert.Equal(t, "42", IntScalar(42).AsString())
	assert.Equal(t, "true", BoolScalar(true).AsString())
	assert.Equal(t, "1.5", FloatScalar(1.5).AsString())
}

func TestHeaderAppendIsIdempotent(t *testing.T) {
	h := NewHeader([]string{"id"})
	idx := h.Append("id")
	assert.Equal(t, 0, idx)
	idx = h.Append("name")
	assert.Equal(t, 1, idx)
	assert.True(t, h.Has("name"))
	assert.False(t, h.Has("other"))
}

func TestSyntheticHeader(t *testing.T) {
	h := SyntheticHeader(3)
	assert.Equal(t, []string{"col_0", "col_1", "col_2"}, h.Names)
}
