package convert

// jsonArrayParser implements Parser for a top-level JSON array of objects
// (§4.2.3), optionally nested inside a wrapper object at JSONOptions.RecordPath.
type jsonArrayParser struct {
	opts JSONOptions
	hdr  *Header

	phase         int // 0 = before '[', 1 = inside the array, 2 = done
	sawAnyElement bool
}

func newJSONArrayParser(opts JSONOptions) *jsonArrayParser {
	return &jsonArrayParser{opts: opts}
}

func (p *jsonArrayParser) header() *Header { return p.hdr }

func (p *jsonArrayParser) feed(chunk []byte, sink recordSink) (int, error) {
	return p.scan(chunk, sink, false)
}

func (p *jsonArrayParser) flush(chunk []byte, sink recordSink) (int, error) {
	consumed, err := p.scan(chunk, sink, true)
	if err != nil {
		return consumed, err
	}
	if p.phase != 2 {
		return consumed, wrapErr(KindUnexpectedEOF, "truncated JSON array", nil)
	}
	return consumed, nil
}

func (p *jsonArrayParser) scan(chunk []byte, sink recordSink, final bool) (int, error) {
	i, n := 0, len(chunk)
	consumed := 0

	skipWS := func() {
		for i < n && isJSONSpace(chunk[i]) {
			i++
		}
	}

	if p.phase == 0 {
		skipWS()
		if i >= n {
			return consumed, nil
		}
		if p.opts.RecordPath == "" {
			if chunk[i] != '[' {
				return consumed, newErr(KindParseError, "expected top-level JSON array")
			}
			i++
			p.phase = 1
			consumed = i
		} else {
			if chunk[i] != '{' {
				return consumed, newErr(KindParseError, "expected top-level JSON object for recordPath")
			}
			idx := findArrayField(chunk[i:], p.opts.RecordPath)
			if idx < 0 {
				if final {
					return consumed, newErr(KindParseError, "recordPath field not found: "+p.opts.RecordPath)
				}
				return consumed, nil
			}
			i += idx + 1
			p.phase = 1
			consumed = i
		}
	}

	if p.phase == 1 {
		for {
			skipWS()
			if i >= n {
				break
			}
			if chunk[i] == ']' {
				i++
				p.phase = 2
				consumed = i
				break
			}
			if p.sawAnyElement {
				if chunk[i] != ',' {
					return consumed, newErr(KindParseError, "expected ',' or ']' in JSON array")
				}
				i++
				skipWS()
				if i >= n {
					break
				}
				if chunk[i] == ']' {
					i++
					p.phase = 2
					consumed = i
					break
				}
			}

			end, ok := scanJSONValue(chunk[i:], false)
			if !ok {
				break
			}
			rec, err := decodeJSONRecord(chunk[i:i+end], p.opts.StrictObjects)
			if err != nil {
				return consumed, err
			}
			p.mergeHeader(rec)
			sink(rec)
			p.sawAnyElement = true

			i += end
			consumed = i
		}
	}

	return consumed, nil
}

func (p *jsonArrayParser) mergeHeader(rec Record) {
	if p.hdr == nil {
		p.hdr = NewHeader(rec.Names())
		return
	}
	for _, name := range rec.Names() {
		p.hdr.Append(name)
	}
}
