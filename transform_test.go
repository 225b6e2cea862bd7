package convert

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransformReplaceModeDropsUndeclaredFields(t *testing.T) {
	spec := &TransformSpec{
		Mode: ModeReplace,
		Fields: []FieldSpec{
			{TargetFieldName: "id", Coerce: CoerceI64},
		},
	}
	spec.withDefaults()
	tr, err := newTransformer(spec)
	require.NoError(t, err)

	in := NewRecord(2)
	in.Set("id", RawScalar("42"))
	in.Set("extra", StringScalar("dropped"))

	var stats statsTracker
	out, keep, err := tr.apply(in, &stats)
	require.NoError(t, err)
	assert.True(t, keep)
	assert.Equal(t, []string{"id"}, out.Names())
	v, _ := out.Get("id")
	assert.Equal(t, int64(42), v.Int)
}

func TestTransformAugmentModeKeepsOriginalFields(t *testing.T) {
	spec := &TransformSpec{
		Mode: ModeAugment,
		Fields: []FieldSpec{
			{TargetFieldName: "full_name", Compute: `first + " " + last`},
		},
	}
	spec.withDefaults()
	tr, err := newTransformer(spec)
	require.NoError(t, err)

	in := NewRecord(2)
	in.Set("first", StringScalar("Jane"))
	in.Set("last", StringScalar("Doe"))

	var stats statsTracker
	out, keep, err := tr.apply(in, &stats)
	require.NoError(t, err)
	assert.True(t, keep)
	v, ok := out.Get("first")
	assert.True(t, ok)
	assert.Equal(t, "Jane", v.Str)
	v, ok = out.Get("full_name")
	assert.True(t, ok)
	assert.Equal(t, "Jane Doe", v.Str)
}

func TestTransformMissingFieldPolicies(t *testing.T) {
	t.Run("null", func(t *testing.T) {
		spec := &TransformSpec{Mode: ModeReplace, OnMissingField: OnMissingNull,
			Fields: []FieldSpec{{TargetFieldName: "x"}}}
		spec.withDefaults()
		tr, err := newTransformer(spec)
		require.NoError(t, err)
		var stats statsTracker
		out, keep, err := tr.apply(NewRecord(0), &stats)
		require.NoError(t, err)
		assert.True(t, keep)
		v, _ := out.Get("x")
		assert.True(t, v.IsNull())
	})

	t.Run("error", func(t *testing.T) {
		spec := &TransformSpec{Mode: ModeReplace, OnMissingField: OnMissingError,
			Fields: []FieldSpec{{TargetFieldName: "x"}}}
		spec.withDefaults()
		tr, err := newTransformer(spec)
		require.NoError(t, err)
		var stats statsTracker
		_, _, err = tr.apply(NewRecord(0), &stats)
		require.Error(t, err)
	})

	t.Run("drop-record", func(t *testing.T) {
		spec := &TransformSpec{Mode: ModeReplace, OnMissingField: OnMissingDropRecord,
			Fields: []FieldSpec{{TargetFieldName: "x"}}}
		spec.withDefaults()
		tr, err := newTransformer(spec)
		require.NoError(t, err)
		var stats statsTracker
		_, keep, err := tr.apply(NewRecord(0), &stats)
		require.NoError(t, err)
		assert.False(t, keep)
		assert.Equal(t, int64(1), stats.Snapshot().RecordsFiltered)
	})
}

func TestTransformCoerceErrorPolicies(t *testing.T) {
	in := NewRecord(1)
	in.Set("n", StringScalar("not-a-number"))

	t.Run("fail", func(t *testing.T) {
		spec := &TransformSpec{Mode: ModeReplace, OnCoerceError: CoerceErrorFail,
			Fields: []FieldSpec{{TargetFieldName: "n", Coerce: CoerceI64}}}
		spec.withDefaults()
		tr, err := newTransformer(spec)
		require.NoError(t, err)
		var stats statsTracker
		_, _, err = tr.apply(in, &stats)
		require.Error(t, err)
	})

	t.Run("null", func(t *testing.T) {
		spec := &TransformSpec{Mode: ModeReplace, OnCoerceError: CoerceErrorNull,
			Fields: []FieldSpec{{TargetFieldName: "n", Coerce: CoerceI64}}}
		spec.withDefaults()
		tr, err := newTransformer(spec)
		require.NoError(t, err)
		var stats statsTracker
		out, keep, err := tr.apply(in, &stats)
		require.NoError(t, err)
		assert.True(t, keep)
		v, _ := out.Get("n")
		assert.True(t, v.IsNull())
	})
}

func TestTransformDefaultAppliesOnlyToNull(t *testing.T) {
	def := IntScalar(99)
	spec := &TransformSpec{Mode: ModeReplace, Fields: []FieldSpec{
		{TargetFieldName: "n", DefaultValue: &def},
	}}
	spec.withDefaults()
	tr, err := newTransformer(spec)
	require.NoError(t, err)

	var stats statsTracker
	out, _, err := tr.apply(NewRecord(0), &stats)
	require.NoError(t, err)
	v, _ := out.Get("n")
	assert.Equal(t, int64(99), v.Int)
}

func TestTransformFilterDropsRecords(t *testing.T) {
	spec := &TransformSpec{
		Mode:   ModeAugment,
		Filter: "active == true",
	}
	spec.withDefaults()
	tr, err := newTransformer(spec)
	require.NoError(t, err)

	in := NewRecord(1)
	in.Set("active", BoolScalar(false))

	var stats statsTracker
	_, keep, err := tr.apply(in, &stats)
	require.NoError(t, err)
	assert.False(t, keep)
	assert.Equal(t, int64(1), stats.Snapshot().RecordsFiltered)
	assert.Equal(t, int64(0), stats.Snapshot().RecordsProcessed)
}

func TestTransformComputeSeesEarlierCoercedFields(t *testing.T) {
	spec := &TransformSpec{
		Mode: ModeReplace,
		Fields: []FieldSpec{
			{TargetFieldName: "price", Coerce: CoerceF64},
			{TargetFieldName: "double_price", Compute: "price * 2"},
		},
	}
	spec.withDefaults()
	tr, err := newTransformer(spec)
	require.NoError(t, err)

	in := NewRecord(1)
	in.Set("price", RawScalar("10.5"))

	var stats statsTracker
	out, keep, err := tr.apply(in, &stats)
	require.NoError(t, err)
	assert.True(t, keep)
	v, _ := out.Get("double_price")
	assert.Equal(t, float64(21), v.Flt)
}
