package convert

import "strconv"

// ScalarKind tags which field of a Scalar is live, the same way ail's
// Instruction uses an Opcode to select among Str/Num/Int/JSON/Ref.
type ScalarKind int

const (
	// KindNull represents a JSON/XML/DSV null or absent value.
	KindNull ScalarKind = iota
	// KindString is a decoded string value.
	KindString
	// KindInt is a decoded 64-bit integer.
	KindInt
	// KindFloat is a decoded 64-bit float.
	KindFloat
	// KindBool is a decoded boolean.
	KindBool
	// KindRaw is a value "as originally seen" whose type hasn't been
	// decided yet (e.g. every DSV cell before a transform coerces it).
	KindRaw
	// KindRawJSON holds a verbatim JSON array fragment that the
	// JSON/NDJSON parser chose not to flatten (see appendScalarOrNested in
	// json_shared.go; objects are always flattened). It passes through
	// unescaped on JSON-family encode and renders as its JSON text, as it
	// appeared in the input, everywhere else.
	KindRawJSON
)

// Scalar is a tagged union over the value types a Record field can hold.
type Scalar struct {
	Kind ScalarKind
	Str  string
	Int  int64
	Flt  float64
	Bool bool
}

// NullScalar is the canonical null value.
var NullScalar = Scalar{Kind: KindNull}

// StringScalar builds a string-tagged Scalar.
func StringScalar(s string) Scalar { return Scalar{Kind: KindString, Str: s} }

// IntScalar builds an integer-tagged Scalar.
func IntScalar(i int64) Scalar { return Scalar{Kind: KindInt, Int: i} }

// FloatScalar builds a floating-tagged Scalar.
func FloatScalar(f float64) Scalar { return Scalar{Kind: KindFloat, Flt: f} }

// BoolScalar builds a boolean-tagged Scalar.
func BoolScalar(b bool) Scalar { return Scalar{Kind: KindBool, Bool: b} }

// RawScalar builds a raw-string-tagged Scalar: the value as seen in the
// input, not yet coerced to a decided type.
func RawScalar(s string) Scalar { return Scalar{Kind: KindRaw, Str: s} }

// RawJSONScalar builds a Scalar wrapping a verbatim JSON array/object
// fragment (see KindRawJSON).
func RawJSONScalar(s string) Scalar { return Scalar{Kind: KindRawJSON, Str: s} }

// IsNull reports whether the scalar is null. An empty raw or string value
// is not null.
func (s Scalar) IsNull() bool { return s.Kind == KindNull }

// AsString renders the scalar as a string for DSV-style textual output.
// Raw and String scalars pass through verbatim; numeric/bool scalars use
// Go's canonical decimal/bool formatting; null renders as "".
func (s Scalar) AsString() string {
	switch s.Kind {
	case KindNull:
		return ""
	case KindString, KindRaw, KindRawJSON:
		return s.Str
	case KindInt:
		return strconv.FormatInt(s.Int, 10)
	case KindFloat:
		return strconv.FormatFloat(s.Flt, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(s.Bool)
	default:
		return ""
	}
}

// Field is one (name, value) pair within a Record. Order within Record.Fields
// is the order of first appearance in the input (or declaration order for a
// transform's replace mode).
type Field struct {
	Name  string
	Value Scalar
}

// Record is an ordered list of named scalar fields. Field order is
// significant (see spec §3); lookups by name are linear, which is
// appropriate since typical records carry a handful of fields and
// encoders/transforms need the declared order, not fast random access.
type Record struct {
	Fields []Field
}

// NewRecord creates an empty record with capacity hint n.
func NewRecord(n int) Record {
	return Record{Fields: make([]Field, 0, n)}
}

// Get returns the value for name and whether it was present.
func (r Record) Get(name string) (Scalar, bool) {
	for _, f := range r.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return Scalar{}, false
}

// Set overwrites the value for name if present, or appends a new field in
// first-appearance order if not.
func (r *Record) Set(name string, v Scalar) {
	for i := range r.Fields {
		if r.Fields[i].Name == name {
			r.Fields[i].Value = v
			return
		}
	}
	r.Fields = append(r.Fields, Field{Name: name, Value: v})
}

// Append always adds a new field, even if name is already present. Used by
// parsers to represent repetition (a JSON array element, a repeated XML
// child element) as multiple same-named Fields in sequence rather than a
// dedicated list-typed Scalar — Record.Fields is already an ordered,
// non-unique sequence, so repetition is just "don't overwrite."
func (r *Record) Append(name string, v Scalar) {
	r.Fields = append(r.Fields, Field{Name: name, Value: v})
}

// Names returns the field names in order.
func (r Record) Names() []string {
	names := make([]string, len(r.Fields))
	for i, f := range r.Fields {
		names[i] = f.Name
	}
	return names
}

// Clone deep-copies the record (Scalar is a value type, so a slice copy of
// Fields suffices).
func (r Record) Clone() Record {
	out := Record{Fields: make([]Field, len(r.Fields))}
	copy(out.Fields, r.Fields)
	return out
}

// Header is the ordered list of field names associated with a sequence of
// records, explicit (DSV) or discovered lazily (NDJSON/JSON/XML).
type Header struct {
	Names []string
	index map[string]int
}

// NewHeader builds a Header from an ordered name list.
func NewHeader(names []string) *Header {
	h := &Header{Names: append([]string(nil), names...)}
	h.reindex()
	return h
}

func (h *Header) reindex() {
	h.index = make(map[string]int, len(h.Names))
	for i, n := range h.Names {
		h.index[n] = i
	}
}

// Has reports whether name is already part of the header.
func (h *Header) Has(name string) bool {
	if h.index == nil {
		h.reindex()
	}
	_, ok := h.index[name]
	return ok
}

// Append adds name to the header if not already present, returning its index.
func (h *Header) Append(name string) int {
	if h.index == nil {
		h.index = make(map[string]int)
	}
	if idx, ok := h.index[name]; ok {
		return idx
	}
	idx := len(h.Names)
	h.Names = append(h.Names, name)
	h.index[name] = idx
	return idx
}

// SyntheticHeader produces col_0..col_{n-1} names, used for DSV input
// without hasHeader.
func SyntheticHeader(n int) *Header {
	names := make([]string, n)
	for i := range names {
		names[i] = "col_" + strconv.Itoa(i)
	}
	return NewHeader(names)
}
