package convert

// xmlFrame tracks one open element while a record is being built: its
// dotted-path name within the record, accumulated direct text, and
// whether a child element has been seen (which disqualifies its own text
// from becoming the field value — mixed content is out of scope; see
// §1 Non-goals — except for the textField escape hatch below).
type xmlFrame struct {
	name     string
	path     string
	text     []byte
	hasChild bool
}

// xmlParser implements Parser for record-oriented XML (§4.2.4). Like the
// other parsers it re-scans the unconsumed tail from byte zero on every
// call; recordElement must already be resolved (non-empty) by the time
// the kernel constructs this parser — see detect.go/kernel.go for the
// autodetection pre-pass §4.2.4 describes.
type xmlParser struct {
	opts          XMLOptions
	hdr           *Header
	recordElement string
}

func newXMLParser(opts XMLOptions) *xmlParser {
	return &xmlParser{opts: opts, recordElement: opts.RecordElement}
}

func (p *xmlParser) header() *Header { return p.hdr }

func (p *xmlParser) feed(chunk []byte, sink recordSink) (int, error) {
	return p.scan(chunk, sink, false)
}

func (p *xmlParser) flush(chunk []byte, sink recordSink) (int, error) {
	return p.scan(chunk, sink, true)
}

func (p *xmlParser) scan(chunk []byte, sink recordSink, final bool) (int, error) {
	if p.recordElement == "" {
		return 0, newErr(KindInvalidOption, "xml recordElement not resolved")
	}

	i, n := 0, len(chunk)
	consumed := 0
	var stack []*xmlFrame
	var rec *Record
	depth := 0

	for i < n {
		tok, tlen, err, ok := scanXMLToken(chunk[i:], final)
		if err != nil {
			return consumed, err
		}
		if !ok {
			break
		}

		switch tok.kind {
		case xmlTokComment, xmlTokPI:
			i += tlen
			if depth == 0 {
				consumed = i
			}

		case xmlTokOpen, xmlTokSelfClose:
			if depth == 0 {
				if tok.name != p.recordElement {
					i += tlen
					consumed = i
					continue
				}
				rc := NewRecord(8)
				rec = &rc
				stack = []*xmlFrame{{name: tok.name}}
				p.applyAttrs(rec, "", tok.attrs)
				i += tlen
				if tok.kind == xmlTokSelfClose {
					sink(*rec)
					p.mergeHeader(*rec)
					rec, stack = nil, nil
					consumed = i
				} else {
					depth = 1
				}
				continue
			}

			parent := stack[len(stack)-1]
			parent.hasChild = true
			path := tok.name
			if parent.path != "" {
				path = parent.path + "." + tok.name
			}
			p.applyAttrs(rec, path, tok.attrs)
			i += tlen
			if tok.kind == xmlTokSelfClose {
				rec.Append(path, RawScalar(""))
			} else {
				stack = append(stack, &xmlFrame{name: tok.name, path: path})
				depth++
			}

		case xmlTokClose:
			if depth == 0 {
				// Closing tag of an element enclosing the records (e.g. the
				// document wrapper); it is not matched against its opening tag.
				i += tlen
				consumed = i
				continue
			}
			top := stack[len(stack)-1]
			if top.name != tok.name {
				return consumed, parseErr(0, 0, "mismatched closing tag: expected </"+top.name+">, got </"+tok.name+">")
			}
			if !top.hasChild {
				val := string(top.text)
				if p.opts.TrimText {
					val = trimASCIISpace(val)
				}
				rec.Append(top.path, RawScalar(val))
			} else if trimmed := trimASCIISpace(string(top.text)); trimmed != "" {
				val := string(top.text)
				if p.opts.TrimText {
					val = trimmed
				}
				fname := p.opts.TextField
				if top.path != "" {
					fname = top.path + "." + p.opts.TextField
				}
				rec.Append(fname, RawScalar(val))
			}
			stack = stack[:len(stack)-1]
			depth--
			i += tlen
			if depth == 0 {
				sink(*rec)
				p.mergeHeader(*rec)
				rec = nil
				consumed = i
			}

		case xmlTokText, xmlTokCDATA:
			if depth == 0 {
				i += tlen
				consumed = i
				continue
			}
			top := stack[len(stack)-1]
			top.text = append(top.text, tok.text...)
			i += tlen
		}
	}

	if final && depth != 0 {
		return consumed, wrapErr(KindUnexpectedEOF, "truncated XML record", nil)
	}
	return consumed, nil
}

func (p *xmlParser) applyAttrs(rec *Record, path string, attrs []xmlAttr) {
	if !p.opts.IncludeAttributes {
		return
	}
	for _, a := range attrs {
		name := "@" + a.name
		if path != "" {
			name = path + ".@" + a.name
		}
		rec.Append(name, RawScalar(a.value))
	}
}

func (p *xmlParser) mergeHeader(rec Record) {
	if p.hdr == nil {
		p.hdr = NewHeader(rec.Names())
		return
	}
	for _, name := range rec.Names() {
		p.hdr.Append(name)
	}
}
