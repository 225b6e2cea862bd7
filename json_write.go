package convert

import (
	"encoding/json"
	"strconv"
)

// writeJSONScalar appends the JSON encoding of s to out. String/raw values
// go through encoding/json.Marshal for spec-exact escaping; RawJSON values
// pass through verbatim since they are already valid JSON text.
func writeJSONScalar(s Scalar, out *outBuffer) error {
	switch s.Kind {
	case KindNull:
		out.writeString("null")
	case KindBool:
		if s.Bool {
			out.writeString("true")
		} else {
			out.writeString("false")
		}
	case KindInt:
		out.writeString(strconv.FormatInt(s.Int, 10))
	case KindFloat:
		out.writeString(strconv.FormatFloat(s.Flt, 'g', -1, 64))
	case KindRawJSON:
		out.writeString(s.Str)
	case KindString, KindRaw:
		b, err := json.Marshal(s.Str)
		if err != nil {
			return wrapErr(KindEncoderError, "value is not valid UTF-8", err)
		}
		out.write(b)
	default:
		out.writeString("null")
	}
	return nil
}

// writeJSONObject appends a JSON object built from rec's fields, in
// Record order, reversing any dotted-path flattening the JSON parser
// applied (see json_shared.go) back into nested objects so a round trip
// through this encoder reproduces the original shape.
func writeJSONObject(rec Record, out *outBuffer) error {
	out.writeByte('{')
	if err := writeJSONFieldsNested(rec.Fields, out); err != nil {
		return err
	}
	out.writeByte('}')
	return nil
}

// writeJSONFieldsNested groups consecutive fields sharing a first dotted
// path segment into a nested object, writing everything else as a
// top-level key, preserving first-appearance order of each group.
func writeJSONFieldsNested(fields []Field, out *outBuffer) error {
	first := true
	writeComma := func() {
		if !first {
			out.writeByte(',')
		}
		first = false
	}

	i := 0
	for i < len(fields) {
		name := fields[i].Name
		head, rest, nested := splitDottedPath(name)
		if !nested {
			// A contiguous run of fields sharing an un-dotted name is a
			// repeated leaf (e.g. a repeated XML child, §4.2.4) — replay
			// it as a JSON array rather than colliding on a duplicate key.
			j := i + 1
			for j < len(fields) && fields[j].Name == name {
				j++
			}
			writeComma()
			if err := writeJSONKey(head, out); err != nil {
				return err
			}
			if j-i == 1 {
				if err := writeJSONScalar(fields[i].Value, out); err != nil {
					return err
				}
			} else {
				out.writeByte('[')
				for k := i; k < j; k++ {
					if k > i {
						out.writeByte(',')
					}
					if err := writeJSONScalar(fields[k].Value, out); err != nil {
						return err
					}
				}
				out.writeByte(']')
			}
			i = j
			continue
		}

		// Collect the run of fields sharing this head.
		group := []Field{{Name: rest, Value: fields[i].Value}}
		j := i + 1
		for j < len(fields) {
			h, r, isNested := splitDottedPath(fields[j].Name)
			if h != head {
				break
			}
			if isNested {
				group = append(group, Field{Name: r, Value: fields[j].Value})
			} else {
				group = append(group, Field{Name: r, Value: fields[j].Value})
			}
			j++
		}
		writeComma()
		if err := writeJSONKey(head, out); err != nil {
			return err
		}
		out.writeByte('{')
		if err := writeJSONFieldsNested(group, out); err != nil {
			return err
		}
		out.writeByte('}')
		i = j
	}
	return nil
}

// splitDottedPath splits "a.b.c" into ("a", "b.c", true), or returns
// (name, "", false) when name has no dot.
func splitDottedPath(name string) (head, rest string, nested bool) {
	for i := 0; i < len(name); i++ {
		if name[i] == '.' {
			return name[:i], name[i+1:], true
		}
	}
	return name, "", false
}

func writeJSONKey(name string, out *outBuffer) error {
	b, err := json.Marshal(name)
	if err != nil {
		return wrapErr(KindEncoderError, "field name is not valid UTF-8", err)
	}
	out.write(b)
	out.writeByte(':')
	return nil
}
