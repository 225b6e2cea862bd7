package convert

import "log/slog"

// MissingFieldPolicy controls what happens when a transform's source field
// is absent from the input record (§4.4 step 1).
type MissingFieldPolicy string

const (
	OnMissingError      MissingFieldPolicy = "error"
	OnMissingNull       MissingFieldPolicy = "null"
	OnMissingDropRecord MissingFieldPolicy = "drop-record"
)

// CoerceErrorPolicy controls what happens when a coercion fails (§4.4 step 2).
type CoerceErrorPolicy string

const (
	CoerceErrorFail        CoerceErrorPolicy = "error"
	CoerceErrorNull        CoerceErrorPolicy = "null"
	CoerceErrorDropRecord  CoerceErrorPolicy = "drop-record"
)

// FieldCountMismatchPolicy controls DSV row/header length mismatches.
type FieldCountMismatchPolicy string

const (
	OnFieldCountFail      FieldCountMismatchPolicy = "fail"
	OnFieldCountPadNull   FieldCountMismatchPolicy = "pad-with-null"
	OnFieldCountTruncate  FieldCountMismatchPolicy = "truncate"
)

// TransformMode selects whether undeclared input fields survive (§4.4).
type TransformMode string

const (
	ModeReplace TransformMode = "replace"
	ModeAugment TransformMode = "augment"
)

// CoerceType is the target type of a field coercion (§4.4 step 2).
type CoerceType string

const (
	CoerceNone      CoerceType = ""
	CoerceString    CoerceType = "string"
	CoerceI64       CoerceType = "i64"
	CoerceF64       CoerceType = "f64"
	CoerceBool      CoerceType = "bool"
	CoerceTimestamp CoerceType = "timestamp_ms"
)

// FieldSpec declares one output field of a transform (§4.4).
type FieldSpec struct {
	TargetFieldName string
	OriginFieldName string // defaults to TargetFieldName when empty
	Coerce          CoerceType
	DefaultValue    *Scalar
	Compute         string // expression source, evaluated after coerce+default
}

// TransformSpec is the declarative transform configuration (§4.4, §6).
type TransformSpec struct {
	Mode            TransformMode
	Fields          []FieldSpec
	Filter          string // expression; record dropped when it evaluates false
	OnMissingField  MissingFieldPolicy
	OnCoerceError   CoerceErrorPolicy
}

func (t *TransformSpec) withDefaults() {
	if t.Mode == "" {
		t.Mode = ModeAugment
	}
	if t.OnMissingField == "" {
		t.OnMissingField = OnMissingNull
	}
	if t.OnCoerceError == "" {
		t.OnCoerceError = CoerceErrorFail
	}
}

// DSVOptions tunes the DSV parser and encoder (§4.2.1, §4.3).
type DSVOptions struct {
	Delimiter            byte
	Quote                byte
	HasHeader            bool
	TrimWhitespace       bool
	SkipEmptyLines       bool
	RecordTerminator     string // "" = autodetect from first terminator seen
	OnFieldCountMismatch FieldCountMismatchPolicy
	Lenient              bool // allow a bare quote inside an unquoted field
	MissingPlaceholder   string
	StrictExtraFields    bool

	// Header declares the output header explicitly. When set, the DSV
	// encoder uses it instead of inferring one from the first record's
	// keys, and it is what gets written for a zero-record conversion with
	// HasHeader set.
	Header []string
}

func (o *DSVOptions) withDefaults() {
	if o.Delimiter == 0 {
		o.Delimiter = ','
	}
	if o.Quote == 0 {
		o.Quote = '"'
	}
	if o.OnFieldCountMismatch == "" {
		o.OnFieldCountMismatch = OnFieldCountPadNull
	}
	o.HasHeader = true
}

// XMLOptions tunes the XML parser and encoder (§4.2.4, §4.3).
type XMLOptions struct {
	RecordElement     string // autodetected if empty (§4.5)
	IncludeAttributes bool
	TrimText          bool
	TextField         string
	WrapperElement    string
}

func (o *XMLOptions) withDefaults() {
	if o.TextField == "" {
		o.TextField = "#text"
	}
	if o.WrapperElement == "" {
		o.WrapperElement = "records"
	}
}

// JSONOptions tunes the JSON array / NDJSON parser (§4.2.2, §4.2.3).
type JSONOptions struct {
	RecordPath     string // name of a top-level array field on an object root; dots are not treated as a nested path
	StrictObjects  bool
}

// ProgressFunc receives a read-only Stats snapshot at most once per
// push/finish, always at finish (§4.1, §6).
type ProgressFunc func(Stats)

// Options configures a Kernel or a one-shot Convert call (§6). It is a
// plain struct, not a builder — construct it as a literal and call
// withDefaults, mirroring ail's preference for plain parser/emitter structs
// over configuration builders.
type Options struct {
	InputFormat  Format
	OutputFormat Format

	DSV  DSVOptions
	XML  XMLOptions
	JSON JSONOptions

	Transform *TransformSpec

	ChunkTargetBytes      int
	MaxMemoryMB           int
	MaxBufferBytes        int
	ProgressIntervalBytes int64
	Profile               bool
	OnProgress            ProgressFunc
	Debug                 bool

	Logger *slog.Logger
}

const (
	defaultChunkTargetBytes = 1 << 20 // ~1 MiB
	defaultMaxMemoryMB      = 512
	defaultMaxBufferBytes   = 64 << 20 // 64 MiB; well under MaxMemoryMB
	defaultDetectMaxBytes   = 256 << 10
)

// withDefaults fills zero-valued fields with the spec's documented
// defaults and returns the same *Options for chaining.
func (o *Options) withDefaults() *Options {
	if o.ChunkTargetBytes <= 0 {
		o.ChunkTargetBytes = defaultChunkTargetBytes
	}
	if o.MaxMemoryMB <= 0 {
		o.MaxMemoryMB = defaultMaxMemoryMB
	}
	if o.MaxBufferBytes <= 0 {
		o.MaxBufferBytes = defaultMaxBufferBytes
	}
	o.DSV.withDefaults()
	o.XML.withDefaults()
	if o.Transform != nil {
		o.Transform.withDefaults()
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// validate reports an InvalidOption error for internally-inconsistent
// configuration detected before construction completes.
func (o *Options) validate() error {
	if o.InputFormat != FormatAuto && !o.InputFormat.valid() {
		return newErr(KindUnsupportedFormat, "inputFormat: "+string(o.InputFormat))
	}
	if !o.OutputFormat.valid() {
		return newErr(KindUnsupportedFormat, "outputFormat: "+string(o.OutputFormat))
	}
	if o.MaxBufferBytes > 0 && o.MaxMemoryMB > 0 && int64(o.MaxBufferBytes) > int64(o.MaxMemoryMB)<<20 {
		return newErr(KindInvalidOption, "maxBufferBytes exceeds maxMemoryMB")
	}
	if o.Transform != nil {
		switch o.Transform.Mode {
		case ModeReplace, ModeAugment:
		default:
			return newErr(KindInvalidOption, "transform.mode: "+string(o.Transform.Mode))
		}
	}
	return nil
}
