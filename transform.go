package convert

import (
	"strings"
	"time"
)

// transform.go implements the declarative per-record transform pipeline
// (§4.4): for each declared output field, select a source value, coerce it,
// fall back to a default, then run an optional compute expression — in
// that fixed order (§9 Open Question: coercion precedes compute, so compute
// always sees an already-typed value) — followed by an optional
// record-level filter. Grounded on
// other_examples/Carlodf-cetl/transform-transformer.go's
// Decoder → Mapper[T] → Transformer[T] composition (format-agnostic access
// over a record, schema-specific mapping stage) and on ail/ailmanip.go's
// general "walk a sequence, build a new one" shape.
type transformer struct {
	spec       *TransformSpec
	filterExpr exprNode
	fields     []compiledFieldSpec
}

type compiledFieldSpec struct {
	spec    FieldSpec
	compute exprNode
}

// newTransformer compiles a TransformSpec's Filter and every field's Compute
// expression once, so apply never re-parses an expression per record.
func newTransformer(spec *TransformSpec) (*transformer, error) {
	t := &transformer{spec: spec}
	if spec.Filter != "" {
		n, err := compileExpr(spec.Filter)
		if err != nil {
			return nil, err
		}
		t.filterExpr = n
	}
	t.fields = make([]compiledFieldSpec, len(spec.Fields))
	for i, fs := range spec.Fields {
		cfs := compiledFieldSpec{spec: fs}
		if fs.Compute != "" {
			n, err := compileExpr(fs.Compute)
			if err != nil {
				return nil, err
			}
			cfs.compute = n
		}
		t.fields[i] = cfs
	}
	return t, nil
}

// apply runs the pipeline against rec, returning the transformed record and
// whether it survives (false when OnMissingField/OnCoerceError drop it, or
// the record-level filter evaluates false).
func (t *transformer) apply(rec Record, stats *statsTracker) (Record, bool, error) {
	var out Record
	switch t.spec.Mode {
	case ModeAugment:
		out = rec.Clone()
	default: // ModeReplace
		out = NewRecord(len(t.fields))
	}

	for _, cfs := range t.fields {
		fs := cfs.spec
		origin := fs.OriginFieldName
		if origin == "" {
			origin = fs.TargetFieldName
		}

		val, ok := rec.Get(origin)
		if !ok {
			switch t.spec.OnMissingField {
			case OnMissingError:
				return Record{}, false, missingFieldErr(origin)
			case OnMissingDropRecord:
				stats.addRecordsFiltered(1)
				return Record{}, false, nil
			default: // OnMissingNull
				val = NullScalar
			}
		}

		if fs.Coerce != CoerceNone && !val.IsNull() {
			coerced, err := coerceScalar(val, fs.Coerce)
			if err != nil {
				if ce, ok := err.(*Error); ok {
					ce.Field = origin
				}
				switch t.spec.OnCoerceError {
				case CoerceErrorFail:
					return Record{}, false, err
				case CoerceErrorDropRecord:
					stats.addRecordsFiltered(1)
					return Record{}, false, nil
				default: // CoerceErrorNull
					coerced = NullScalar
				}
			}
			val = coerced
		}

		if val.IsNull() && fs.DefaultValue != nil {
			val = *fs.DefaultValue
		}

		if cfs.compute != nil {
			evalRec := mergeForEval(rec, out)
			evalRec.Set(fs.TargetFieldName, val)
			computed, err := cfs.compute.eval(evalRec)
			if err != nil {
				return Record{}, false, err
			}
			val = computed
		}

		out.Set(fs.TargetFieldName, val)
	}

	if t.filterExpr != nil {
		keep, err := t.filterExpr.eval(mergeForEval(rec, out))
		if err != nil {
			return Record{}, false, err
		}
		if !scalarTruthy(keep) {
			stats.addRecordsFiltered(1)
			return Record{}, false, nil
		}
	}

	return out, true, nil
}

// mergeForEval produces the record an expression evaluates field references
// against: base's fields with overlay's already-assigned fields taking
// precedence, so a compute expression can see both original input fields
// and fields the pipeline has built so far.
func mergeForEval(base, overlay Record) Record {
	merged := base.Clone()
	for _, f := range overlay.Fields {
		merged.Set(f.Name, f.Value)
	}
	return merged
}

// coerceScalar converts v to the requested type, returning a
// CoercionError-kind *Error on failure.
func coerceScalar(v Scalar, to CoerceType) (Scalar, error) {
	switch to {
	case CoerceString:
		return StringScalar(v.AsString()), nil
	case CoerceI64:
		return coerceToInt(v)
	case CoerceF64:
		return coerceToFloat(v)
	case CoerceBool:
		return coerceToBool(v)
	case CoerceTimestamp:
		return coerceToTimestampMs(v)
	default:
		return v, nil
	}
}

func coerceToInt(v Scalar) (Scalar, error) {
	switch v.Kind {
	case KindInt:
		return v, nil
	case KindFloat:
		return IntScalar(int64(v.Flt)), nil
	case KindBool:
		if v.Bool {
			return IntScalar(1), nil
		}
		return IntScalar(0), nil
	default:
		f, err := scalarAsFloat(StringScalar(v.AsString()))
		if err != nil {
			return Scalar{}, coercionErr(v.AsString(), v.AsString(), "not an integer")
		}
		return IntScalar(int64(f)), nil
	}
}

func coerceToFloat(v Scalar) (Scalar, error) {
	switch v.Kind {
	case KindFloat:
		return v, nil
	case KindInt:
		return FloatScalar(float64(v.Int)), nil
	case KindBool:
		if v.Bool {
			return FloatScalar(1), nil
		}
		return FloatScalar(0), nil
	default:
		f, err := scalarAsFloat(StringScalar(v.AsString()))
		if err != nil {
			return Scalar{}, coercionErr(v.AsString(), v.AsString(), "not a float")
		}
		return FloatScalar(f), nil
	}
}

func coerceToBool(v Scalar) (Scalar, error) {
	switch v.Kind {
	case KindBool:
		return v, nil
	case KindInt:
		return BoolScalar(v.Int != 0), nil
	case KindFloat:
		return BoolScalar(v.Flt != 0), nil
	default:
		s := v.AsString()
		switch {
		case strings.EqualFold(s, "true"):
			return BoolScalar(true), nil
		case strings.EqualFold(s, "false"):
			return BoolScalar(false), nil
		default:
			return Scalar{}, coercionErr(s, s, "not a boolean")
		}
	}
}

// coerceToTimestampMs accepts an epoch value (int/float scalar, or a
// numeric string) or an RFC3339 string and returns milliseconds since the
// Unix epoch as an IntScalar.
func coerceToTimestampMs(v Scalar) (Scalar, error) {
	switch v.Kind {
	case KindInt:
		return v, nil
	case KindFloat:
		return IntScalar(int64(v.Flt)), nil
	}
	s := v.AsString()
	if f, err := scalarAsFloat(StringScalar(s)); err == nil {
		return IntScalar(int64(f)), nil
	}
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return Scalar{}, coercionErr(s, s, "not a timestamp (want epoch millis or RFC3339)")
	}
	return IntScalar(ts.UnixMilli()), nil
}
