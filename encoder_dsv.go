package convert

// dsvEncoder implements Encoder for delimited-value output (§4.3).
type dsvEncoder struct {
	opts DSVOptions
	hdr  *Header
	term string
	any  bool // at least one record/header line written
}

func newDSVEncoder(opts DSVOptions) *dsvEncoder {
	term := opts.RecordTerminator
	if term == "" {
		term = "\n"
	}
	e := &dsvEncoder{opts: opts, term: term}
	if len(opts.Header) > 0 {
		e.hdr = NewHeader(opts.Header)
	}
	return e
}

func (e *dsvEncoder) writeRecord(rec Record, out *outBuffer) error {
	firstRecord := !e.any
	if e.hdr == nil {
		e.hdr = NewHeader(rec.Names())
	}
	if firstRecord && e.opts.HasHeader {
		e.writeRow(e.hdr.Names, out)
	}

	row := make([]string, len(e.hdr.Names))
	for i, name := range e.hdr.Names {
		v, ok := rec.Get(name)
		if !ok {
			row[i] = e.opts.MissingPlaceholder
			continue
		}
		row[i] = v.AsString()
	}
	// Fields present on the record but absent from the fixed header are
	// dropped silently unless strict mode is requested.
	if e.opts.StrictExtraFields {
		for _, f := range rec.Fields {
			if !e.hdr.Has(f.Name) {
				return wrapErr(KindEncoderError, "extra field not in header: "+f.Name, nil)
			}
		}
	}

	e.writeRow(row, out)
	e.any = true
	return nil
}

func (e *dsvEncoder) writeRow(cells []string, out *outBuffer) {
	for i, c := range cells {
		if i > 0 {
			out.writeByte(e.opts.Delimiter)
		}
		e.writeCell(c, out)
	}
	out.writeString(e.term)
}

func (e *dsvEncoder) writeCell(s string, out *outBuffer) {
	if !e.needsQuoting(s) {
		out.writeString(s)
		return
	}
	out.writeByte(e.opts.Quote)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == e.opts.Quote {
			out.writeByte(e.opts.Quote)
		}
		out.writeByte(c)
	}
	out.writeByte(e.opts.Quote)
}

func (e *dsvEncoder) needsQuoting(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == e.opts.Delimiter || c == e.opts.Quote || c == '\n' || c == '\r' {
			return true
		}
	}
	return false
}

func (e *dsvEncoder) finish(out *outBuffer) error {
	if !e.any && e.opts.HasHeader && e.hdr != nil {
		e.writeRow(e.hdr.Names, out)
	}
	return nil
}
