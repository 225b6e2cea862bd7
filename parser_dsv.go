package convert

// dsvState is the per-byte state of the §4.2.1 automaton.
type dsvState int

const (
	dsvFieldStart dsvState = iota
	dsvUnquoted
	dsvQuoted
	dsvQuotedMaybeEnd // just saw a quote while inside a quoted field
)

// dsvParser implements Parser for delimited-value input. It re-scans the
// unconsumed tail of the scratch buffer from byte zero on every call — the
// kernel only retains bytes belonging to an incomplete trailing record, so
// this costs at most one record's worth of work per push, never O(total
// input), matching the bounded-working-set contract of §4.2.
type dsvParser struct {
	opts DSVOptions
	hdr  *Header

	// lineBase/colBase are the (line, col) of chunk[0] in the overall
	// stream, carried across calls so ParseError positions stay accurate
	// even though consumed bytes are dropped from the scratch buffer.
	lineBase int
	colBase  int
}

func newDSVParser(opts DSVOptions) *dsvParser {
	return &dsvParser{opts: opts, lineBase: 1, colBase: 1}
}

func (p *dsvParser) header() *Header { return p.hdr }

func (p *dsvParser) feed(chunk []byte, sink recordSink) (int, error) {
	return p.scan(chunk, sink, false)
}

func (p *dsvParser) flush(chunk []byte, sink recordSink) (int, error) {
	return p.scan(chunk, sink, true)
}

// scan walks chunk once, emitting every complete record into sink and
// returning how many leading bytes were fully consumed. final indicates a
// flush call: an unterminated last record is accepted (EOF counts as a
// terminator); an unterminated quoted field is always UnexpectedEof.
func (p *dsvParser) scan(chunk []byte, sink recordSink, final bool) (int, error) {
	n := len(chunk)
	delim := p.opts.Delimiter
	quote := p.opts.Quote

	i := 0
	line, col := p.lineBase, p.colBase

	var fields []string
	var field []byte
	state := dsvFieldStart
	consumed := 0     // bytes belonging to fully-emitted records
	sawNonEmptyField := false

	advancePos := func(c byte) {
		if c == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}

	flushField := func() {
		s := string(field)
		if p.opts.TrimWhitespace && state != dsvQuoted {
			s = trimASCIISpace(s)
		}
		fields = append(fields, s)
		field = field[:0]
	}

	emitRecord := func() error {
		if p.opts.SkipEmptyLines && len(fields) == 1 && fields[0] == "" && !sawNonEmptyField {
			fields = nil
			sawNonEmptyField = false
			return nil
		}
		if p.hdr == nil {
			if p.opts.HasHeader {
				p.hdr = NewHeader(fields)
				fields = nil
				sawNonEmptyField = false
				return nil
			}
			p.hdr = SyntheticHeader(len(fields))
		}
		rec, err := p.buildRecord(fields, line)
		fields = nil
		sawNonEmptyField = false
		if err != nil {
			return err
		}
		sink(rec)
		return nil
	}

	for i < n {
		c := chunk[i]
		switch state {
		case dsvFieldStart:
			switch {
			case c == quote:
				state = dsvQuoted
				i++
				advancePos(c)
				continue
			case c == delim:
				flushField()
				state = dsvFieldStart
				i++
				advancePos(c)
				continue
			case c == '\n':
				flushField()
				if err := emitRecord(); err != nil {
					return consumed, err
				}
				i++
				advancePos(c)
				consumed = i
				state = dsvFieldStart
				continue
			case c == '\r':
				if i+1 < n && chunk[i+1] == '\n' {
					flushField()
					if err := emitRecord(); err != nil {
						return consumed, err
					}
					i += 2
					line++
					col = 1
					consumed = i
					state = dsvFieldStart
					continue
				}
				if i+1 >= n && !final {
					// Might still be the start of \r\n; wait for more input.
					goto done
				}
				// Lone \r: ordinary data byte.
				field = append(field, c)
				sawNonEmptyField = true
				state = dsvUnquoted
				i++
				advancePos(c)
				continue
			default:
				field = append(field, c)
				if c != ' ' && c != '\t' {
					sawNonEmptyField = true
				}
				state = dsvUnquoted
				i++
				advancePos(c)
				continue
			}

		case dsvUnquoted:
			switch {
			case c == delim:
				flushField()
				state = dsvFieldStart
				i++
				advancePos(c)
				continue
			case c == '\n':
				flushField()
				if err := emitRecord(); err != nil {
					return consumed, err
				}
				i++
				advancePos(c)
				consumed = i
				state = dsvFieldStart
				continue
			case c == '\r':
				if i+1 < n && chunk[i+1] == '\n' {
					flushField()
					if err := emitRecord(); err != nil {
						return consumed, err
					}
					i += 2
					line++
					col = 1
					consumed = i
					state = dsvFieldStart
					continue
				}
				if i+1 >= n && !final {
					goto done
				}
				field = append(field, c)
				i++
				advancePos(c)
				continue
			case c == quote && !p.opts.Lenient:
				return consumed, parseErr(line, col, "quote inside unquoted field")
			default:
				field = append(field, c)
				sawNonEmptyField = true
				i++
				advancePos(c)
				continue
			}

		case dsvQuoted:
			switch c {
			case quote:
				state = dsvQuotedMaybeEnd
				i++
				advancePos(c)
				continue
			default:
				field = append(field, c)
				sawNonEmptyField = true
				i++
				advancePos(c)
				continue
			}

		case dsvQuotedMaybeEnd:
			switch {
			case c == quote:
				// Doubled quote: literal quote character.
				field = append(field, quote)
				sawNonEmptyField = true
				state = dsvQuoted
				i++
				advancePos(c)
				continue
			case c == delim:
				flushField()
				state = dsvFieldStart
				i++
				advancePos(c)
				continue
			case c == '\n':
				flushField()
				if err := emitRecord(); err != nil {
					return consumed, err
				}
				i++
				advancePos(c)
				consumed = i
				state = dsvFieldStart
				continue
			case c == '\r':
				if i+1 < n && chunk[i+1] == '\n' {
					flushField()
					if err := emitRecord(); err != nil {
						return consumed, err
					}
					i += 2
					line++
					col = 1
					consumed = i
					state = dsvFieldStart
					continue
				}
				if i+1 >= n && !final {
					goto done
				}
				return consumed, parseErr(line, col, "unexpected bytes after closing quote")
			default:
				return consumed, parseErr(line, col, "unexpected byte after closing quote")
			}
		}
	}

done:
	if final {
		if state == dsvQuoted {
			return consumed, wrapErr(KindUnexpectedEOF, "unterminated quoted field", nil)
		}
		// A trailing record with no terminator is accepted at EOF.
		if len(field) > 0 || len(fields) > 0 || sawNonEmptyField {
			flushField()
			if err := emitRecord(); err != nil {
				return consumed, err
			}
			consumed = n
		}
		p.lineBase, p.colBase = line, col
		return consumed, nil
	}

	// Not final: the in-progress record's bytes stay unconsumed in the
	// buffer for the next call; only lineBase/colBase advance to the last
	// fully-consumed record boundary.
	p.lineBase, p.colBase = line, col
	return consumed, nil
}

// buildRecord maps positional field values onto the parser's header,
// applying the configured field-count-mismatch policy.
func (p *dsvParser) buildRecord(values []string, line int) (Record, error) {
	names := p.hdr.Names
	rec := NewRecord(len(names))

	switch {
	case len(values) == len(names):
		// exact match
	case len(values) < len(names):
		switch p.opts.OnFieldCountMismatch {
		case OnFieldCountFail:
			return Record{}, parseErr(line, 1, "field count mismatch: too few fields")
		case OnFieldCountTruncate:
			// leave values short; loop below only covers len(values)
		default: // pad-with-null
			// leave values short; loop below fills the missing tail with null
		}
	default: // len(values) > len(names)
		switch p.opts.OnFieldCountMismatch {
		case OnFieldCountFail:
			if p.opts.StrictExtraFields {
				return Record{}, parseErr(line, 1, "field count mismatch: too many fields")
			}
			values = values[:len(names)]
		default:
			values = values[:len(names)]
		}
	}

	for i, name := range names {
		if i >= len(values) {
			if p.opts.OnFieldCountMismatch == OnFieldCountTruncate {
				break
			}
			rec.Set(name, NullScalar)
			continue
		}
		v := values[i]
		if v == "" && p.opts.MissingPlaceholder != "" {
			rec.Set(name, RawScalar(p.opts.MissingPlaceholder))
			continue
		}
		rec.Set(name, RawScalar(v))
	}
	return rec, nil
}

func trimASCIISpace(s string) string {
	start, end := 0, len(s)
	for start < end && isASCIISpace(s[start]) {
		start++
	}
	for end > start && isASCIISpace(s[end-1]) {
		end--
	}
	return s[start:end]
}

func isASCIISpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}
