package convert

import (
	"bytes"
	"encoding/json"
)

// This file holds the scanning and decoding logic shared by the NDJSON and
// JSON-array parsers (§4.2.2, §4.2.3): a depth-counted byte scanner that
// finds one top-level value's span without allocating, and an
// encoding/json.Decoder-based walk that flattens an object into an ordered
// Record using the Token()/Decode() pairing — Token() for keys (so field
// order survives, unlike a map-based Unmarshal), Decode() into a
// json.RawMessage for each value (mirroring ail's pervasive use of
// json.RawMessage to defer decoding a sub-value).

func isJSONSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

// scanJSONValue finds the end (exclusive, relative to data) of one
// complete top-level JSON value starting at data[0], which must not be
// whitespace. ok is false if data doesn't yet contain a complete value —
// the caller should wait for more bytes unless this is the final flush, in
// which case an incomplete bracketed/quoted value is a truncation error
// and an incomplete bare literal is accepted (final forces completion at
// EOF only for unquoted literals: numbers, true, false, null).
func scanJSONValue(data []byte, final bool) (end int, ok bool) {
	n := len(data)
	if n == 0 {
		return 0, false
	}

	switch data[0] {
	case '{', '[':
		depth := 0
		inStr := false
		esc := false
		for i := 0; i < n; i++ {
			c := data[i]
			if inStr {
				switch {
				case esc:
					esc = false
				case c == '\\':
					esc = true
				case c == '"':
					inStr = false
				}
				continue
			}
			switch c {
			case '"':
				inStr = true
			case '{', '[':
				depth++
			case '}', ']':
				depth--
				if depth == 0 {
					return i + 1, true
				}
			}
		}
		return 0, false

	case '"':
		esc := false
		for i := 1; i < n; i++ {
			c := data[i]
			if esc {
				esc = false
				continue
			}
			if c == '\\' {
				esc = true
				continue
			}
			if c == '"' {
				return i + 1, true
			}
		}
		return 0, false

	default:
		for i := 0; i < n; i++ {
			c := data[i]
			if isJSONSpace(c) || c == ',' || c == ']' || c == '}' {
				return i, true
			}
		}
		if final {
			return n, true
		}
		return 0, false
	}
}

// decodeJSONRecord decodes one complete top-level JSON value (as produced
// by scanJSONValue) into an ordered Record. An object's keys become
// dotted-path fields (recursing into nested objects); a non-object
// top-level becomes a single field named "value" unless strictObjects
// rejects it.
func decodeJSONRecord(raw []byte, strictObjects bool) (Record, error) {
	trimmed := bytes.TrimSpace(raw)
	rec := NewRecord(8)
	if len(trimmed) == 0 {
		return rec, newErr(KindParseError, "empty JSON value")
	}
	if trimmed[0] == '{' {
		if err := decodeObjectOrdered(trimmed, "", &rec); err != nil {
			return rec, wrapErr(KindParseError, "invalid JSON object", err)
		}
		return rec, nil
	}
	if strictObjects {
		return rec, newErr(KindParseError, "expected a JSON object")
	}
	if err := appendScalarOrNested(&rec, "value", trimmed); err != nil {
		return rec, err
	}
	return rec, nil
}

// decodeObjectOrdered walks a JSON object's keys in order via
// json.Decoder.Token(), appending one (possibly dotted-path) Field per
// key. prefix is prepended (dot-joined) to nested keys.
func decodeObjectOrdered(raw []byte, prefix string, rec *Record) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return newErr(KindParseError, "expected '{'")
	}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := keyTok.(string)
		var valRaw json.RawMessage
		if err := dec.Decode(&valRaw); err != nil {
			return err
		}
		name := key
		if prefix != "" {
			name = prefix + "." + key
		}
		if err := appendScalarOrNested(rec, name, valRaw); err != nil {
			return err
		}
	}
	if _, err := dec.Token(); err != nil { // closing '}'
		return err
	}
	return nil
}

// appendScalarOrNested classifies one JSON value's raw bytes and appends
// the resulting field(s) to rec under name. Objects recurse with a
// dotted-path prefix; arrays are kept verbatim as a KindRawJSON scalar
// (flattening an array positionally would invent an ordering convention
// the spec never specifies, and re-expanding it losslessly on every
// target format isn't guaranteed — passing it through is the honest
// choice, the same way ail defers undecoded JSON via json.RawMessage).
func appendScalarOrNested(rec *Record, name string, raw json.RawMessage) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		rec.Append(name, NullScalar)
		return nil
	}
	switch trimmed[0] {
	case '{':
		return decodeObjectOrdered(trimmed, name, rec)
	case '[':
		rec.Append(name, RawJSONScalar(string(trimmed)))
		return nil
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return wrapErr(KindParseError, "invalid JSON string", err)
		}
		rec.Append(name, StringScalar(s))
		return nil
	case 't':
		rec.Append(name, BoolScalar(true))
		return nil
	case 'f':
		rec.Append(name, BoolScalar(false))
		return nil
	case 'n':
		rec.Append(name, NullScalar)
		return nil
	default:
		if bytes.ContainsAny(trimmed, ".eE") {
			var f float64
			if err := json.Unmarshal(trimmed, &f); err != nil {
				return wrapErr(KindParseError, "invalid JSON number", err)
			}
			rec.Append(name, FloatScalar(f))
			return nil
		}
		var i int64
		if err := json.Unmarshal(trimmed, &i); err == nil {
			rec.Append(name, IntScalar(i))
			return nil
		}
		var f float64
		if err := json.Unmarshal(trimmed, &f); err != nil {
			return wrapErr(KindParseError, "invalid JSON number", err)
		}
		rec.Append(name, FloatScalar(f))
		return nil
	}
}

// findArrayField locates the '[' that opens the array-typed value of
// field within a (possibly still-incomplete) top-level JSON object given
// by data, which must start with '{'. Returns -1 if the field hasn't
// appeared yet in the buffered prefix (ask for more bytes) or doesn't
// exist among the keys seen so far. Sibling fields preceding the target
// are decoded and discarded as opaque values; fields after it are never
// visited — a recordPath wrapper's other top-level fields are out of
// scope for this converter.
func findArrayField(data []byte, field string) int {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return -1
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return -1
	}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return -1
		}
		key, _ := keyTok.(string)
		if key == field {
			// The decoder stops right after the key; the ':' is still ahead.
			rest := data[dec.InputOffset():]
			j := 0
			for j < len(rest) && isJSONSpace(rest[j]) {
				j++
			}
			if j >= len(rest) || rest[j] != ':' {
				return -1
			}
			j++
			for j < len(rest) && isJSONSpace(rest[j]) {
				j++
			}
			if j >= len(rest) || rest[j] != '[' {
				return -1
			}
			return int(dec.InputOffset()) + j
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return -1
		}
	}
	return -1
}
