package convert

import "strings"

// detect.go implements the two stateless sniffing calls (§4.5): DetectFormat
// picks a Format from a bounded prefix, DetectStructure additionally
// extracts a shape (DSV header+delimiter, NDJSON/JSON key union, XML
// repeating record element). Both are deliberately lossy — they never scan
// more than opts.MaxBytes and never claim to validate the whole input.
// Grounded on MacroPower-x/magicschema/infer.go's "switch on shape, return a
// tag" inference pattern (there: YAML AST node kind → JSON-Schema type
// string; here: leading-byte/line shape → Format), generalized from a
// parsed AST to a raw byte prefix since detection must run before any
// parser is chosen.

// DetectOptions bounds a detection call.
type DetectOptions struct {
	MaxBytes   int
	MaxRecords int
}

func (o *DetectOptions) withDefaults() {
	if o.MaxBytes <= 0 {
		o.MaxBytes = defaultDetectMaxBytes
	}
	if o.MaxRecords <= 0 {
		o.MaxRecords = 50
	}
}

// StructureInfo is the outcome of DetectStructure.
type StructureInfo struct {
	Format        Format
	Fields        []string
	Delimiter     byte   // DSV only
	RecordElement string // XML only
}

// DetectFormat classifies sample per the §4.5 decision rules, evaluated in
// order after leading whitespace is skipped: well-formed XML open tag, then
// a JSON array opening, then multi-line NDJSON, then a voted DSV delimiter,
// else unknown.
func DetectFormat(sample []byte, opts DetectOptions) Format {
	opts.withDefaults()
	if len(sample) > opts.MaxBytes {
		sample = sample[:opts.MaxBytes]
	}
	i := 0
	for i < len(sample) && isASCIISpace(sample[i]) {
		i++
	}
	trimmed := sample[i:]
	if len(trimmed) == 0 {
		return FormatUnknown
	}

	if trimmed[0] == '<' && looksLikeXML(trimmed) {
		return FormatXML
	}
	if trimmed[0] == '[' && looksLikeJSONArrayOpening(trimmed) {
		return FormatJSON
	}
	if looksLikeNDJSON(trimmed, opts.MaxRecords) {
		return FormatNDJSON
	}
	if _, cols, ok := sniffDSVDelimiter(trimmed, opts.MaxRecords); ok && cols >= 2 {
		return FormatDSV
	}
	return FormatUnknown
}

// DetectStructure runs DetectFormat when formatHint is empty/auto, then
// extracts a shape appropriate to the resolved format.
func DetectStructure(sample []byte, formatHint Format, opts DetectOptions) (StructureInfo, error) {
	opts.withDefaults()
	if len(sample) > opts.MaxBytes {
		sample = sample[:opts.MaxBytes]
	}
	format := formatHint
	if format == "" || format == FormatAuto {
		format = DetectFormat(sample, opts)
	}

	info := StructureInfo{Format: format}
	switch format {
	case FormatDSV:
		delim, _, ok := sniffDSVDelimiter(sample, opts.MaxRecords)
		if !ok {
			delim = ','
		}
		info.Delimiter = delim
		info.Fields = sniffDSVHeader(sample, delim)
	case FormatNDJSON:
		p := newNDJSONParser(JSONOptions{})
		_, _ = p.feed(sample, func(Record) {})
		if h := p.header(); h != nil {
			info.Fields = h.Names
		}
	case FormatJSON:
		p := newJSONArrayParser(JSONOptions{})
		_, _ = p.feed(sample, func(Record) {})
		if h := p.header(); h != nil {
			info.Fields = h.Names
		}
	case FormatXML:
		name, children := sniffXMLRecordElement(sample)
		info.RecordElement = name
		info.Fields = children
	default:
		return info, newErr(KindUnsupportedFormat, "cannot detect structure: unknown format")
	}
	return info, nil
}

func looksLikeXML(data []byte) bool {
	_, _, err, _ := scanXMLToken(data, false)
	return err == nil
}

func looksLikeJSONArrayOpening(data []byte) bool {
	i := 1
	for i < len(data) && isJSONSpace(data[i]) {
		i++
	}
	if i >= len(data) {
		return true // "[" with nothing after yet, in-flight
	}
	switch data[i] {
	case ']', '{', '"', '-', '[':
		return true
	}
	if data[i] >= '0' && data[i] <= '9' {
		return true
	}
	return hasPrefix(data[i:], "true") || hasPrefix(data[i:], "false") || hasPrefix(data[i:], "null")
}

// looksLikeNDJSON requires at least two non-empty lines, each starting with
// '{' or '[' and each independently parsing as a complete JSON value. A
// trailing line not terminated by '\n' is dropped first since a bounded
// sample is likely to have truncated it mid-record.
func looksLikeNDJSON(data []byte, maxRecords int) bool {
	lines := splitLines(data)
	if len(lines) > 0 && (len(data) == 0 || data[len(data)-1] != '\n') {
		lines = lines[:len(lines)-1]
	}
	n := 0
	for _, ln := range lines {
		t := trimASCIISpace(string(ln))
		if t == "" {
			continue
		}
		if n >= maxRecords {
			break
		}
		if t[0] != '{' && t[0] != '[' {
			return false
		}
		end, ok := scanJSONValue([]byte(t), true)
		if !ok || end != len(t) {
			return false
		}
		n++
	}
	return n >= 2
}

// sniffDSVDelimiter votes among {, \t ; |} and returns the delimiter giving
// the largest column count with at least two consistent lines.
func sniffDSVDelimiter(data []byte, maxRecords int) (delim byte, cols int, ok bool) {
	lines := splitLines(data)
	var bestDelim byte
	bestCols := 0
	for _, c := range []byte{',', '\t', ';', '|'} {
		n, used := countConsistentColumns(lines, c, maxRecords)
		if used >= 2 && n > bestCols {
			bestCols, bestDelim = n, c
		}
	}
	if bestCols >= 2 {
		return bestDelim, bestCols, true
	}
	return 0, 0, false
}

// countConsistentColumns counts the leading run of non-empty lines that all
// split into the same number of fields under delim.
func countConsistentColumns(lines [][]byte, delim byte, maxRecords int) (cols, used int) {
	target := -1
	for _, ln := range lines {
		t := trimASCIISpace(string(ln))
		if t == "" {
			continue
		}
		if used >= maxRecords {
			break
		}
		c := strings.Count(t, string(delim)) + 1
		if target == -1 {
			target = c
		} else if c != target {
			break
		}
		used++
	}
	if target < 0 {
		return 0, 0
	}
	return target, used
}

func sniffDSVHeader(data []byte, delim byte) []string {
	for _, ln := range splitLines(data) {
		t := trimASCIISpace(string(ln))
		if t == "" {
			continue
		}
		parts := strings.Split(t, string(delim))
		out := make([]string, len(parts))
		for i, p := range parts {
			p = trimASCIISpace(p)
			if len(p) >= 2 && p[0] == '"' && p[len(p)-1] == '"' {
				p = p[1 : len(p)-1]
			}
			out[i] = p
		}
		return out
	}
	return nil
}

func splitLines(data []byte) [][]byte {
	var lines [][]byte
	start := 0
	for i, b := range data {
		if b == '\n' {
			lines = append(lines, data[start:i])
			start = i + 1
		}
	}
	if start < len(data) {
		lines = append(lines, data[start:])
	}
	return lines
}

// sniffXMLRecordElement picks the earliest-seen element name whose
// occurrences repeat at least twice anywhere in the sample (§9: ties broken
// by first occurrence), then replays the sample to collect that element's
// first occurrence's direct child element names.
func sniffXMLRecordElement(data []byte) (string, []string) {
	counts := map[string]int{}
	firstOrder := map[string]int{}
	order := 0
	for i := 0; i < len(data); {
		tok, n, err, ok := scanXMLToken(data[i:], false)
		if err != nil || !ok {
			break
		}
		if tok.kind == xmlTokOpen || tok.kind == xmlTokSelfClose {
			if _, seen := firstOrder[tok.name]; !seen {
				firstOrder[tok.name] = order
				order++
			}
			counts[tok.name]++
		}
		i += n
	}

	var winner string
	bestOrder := -1
	for name, c := range counts {
		if c < 2 {
			continue
		}
		fo := firstOrder[name]
		if bestOrder < 0 || fo < bestOrder {
			winner, bestOrder = name, fo
		}
	}
	if winner == "" {
		return "", nil
	}

	var children []string
	seen := map[string]bool{}
	depth := -1
	for i := 0; i < len(data); {
		tok, n, err, ok := scanXMLToken(data[i:], false)
		if err != nil || !ok {
			break
		}
		switch tok.kind {
		case xmlTokOpen, xmlTokSelfClose:
			if depth < 0 {
				if tok.name == winner {
					if tok.kind == xmlTokSelfClose {
						return winner, nil
					}
					depth = 0
				}
				i += n
				continue
			}
			if depth == 0 && !seen[tok.name] {
				seen[tok.name] = true
				children = append(children, tok.name)
			}
			if tok.kind == xmlTokOpen {
				depth++
			}
			i += n
		case xmlTokClose:
			if depth >= 0 {
				depth--
				if depth < 0 {
					return winner, children
				}
			}
			i += n
		default:
			i += n
		}
	}
	return winner, children
}
