package convert

// xmlEncoder implements Encoder for record-oriented XML (§4.3): each
// record becomes a <recordElement> wrapped in a single outer
// <wrapperElement>. Dotted-path fields re-expand into nested elements;
// a contiguous run of same-named leaf fields becomes repeated sibling
// elements, while a contiguous run of same-headed dotted fields merges
// into one nested element (see DESIGN.md for why a merge, not a replay
// of the original sibling count, is the chosen round-trip behavior).
type xmlEncoder struct {
	opts XMLOptions
	any  bool
}

func newXMLEncoder(opts XMLOptions) *xmlEncoder {
	return &xmlEncoder{opts: opts}
}

func (e *xmlEncoder) writeRecord(rec Record, out *outBuffer) error {
	if !e.any {
		out.writeByte('<')
		out.writeString(e.opts.WrapperElement)
		out.writeByte('>')
	}
	e.any = true
	return writeXMLElementGroup(e.opts.RecordElement, rec.Fields, out, e.opts.TextField)
}

func (e *xmlEncoder) finish(out *outBuffer) error {
	if !e.any {
		out.writeByte('<')
		out.writeString(e.opts.WrapperElement)
		out.writeByte('>')
	}
	out.writeString("</")
	out.writeString(e.opts.WrapperElement)
	out.writeByte('>')
	return nil
}

// writeXMLElementGroup writes <name attrs...>children</name> (or a
// self-closing tag when there are no children), splitting fields into
// "@attr"-prefixed attributes and everything else.
func writeXMLElementGroup(name string, fields []Field, out *outBuffer, textField string) error {
	var attrs, children []Field
	for _, f := range fields {
		if len(f.Name) > 0 && f.Name[0] == '@' {
			attrs = append(attrs, f)
		} else {
			children = append(children, f)
		}
	}

	out.writeByte('<')
	out.writeString(name)
	for _, a := range attrs {
		out.writeByte(' ')
		out.writeString(a.Name[1:])
		out.writeString(`="`)
		out.writeString(escapeXMLAttr(a.Value.AsString()))
		out.writeByte('"')
	}
	if len(children) == 0 {
		out.writeString("/>")
		return nil
	}
	out.writeByte('>')
	if err := writeXMLChildren(children, out, textField); err != nil {
		return err
	}
	out.writeString("</")
	out.writeString(name)
	out.writeByte('>')
	return nil
}

// writeXMLChildren writes a run of sibling fields as child elements
// (or inline text for a textField entry), grouping contiguous runs that
// share a dotted-path head.
func writeXMLChildren(fields []Field, out *outBuffer, textField string) error {
	i, n := 0, len(fields)
	for i < n {
		name := fields[i].Name
		if name == textField {
			out.writeString(escapeXMLText(fields[i].Value.AsString()))
			i++
			continue
		}

		head, _, nested := splitDottedPath(name)
		j := i + 1
		for j < n {
			h2, _, n2 := splitDottedPath(fields[j].Name)
			if h2 != head || n2 != nested || fields[j].Name == textField {
				break
			}
			j++
		}

		if !nested {
			for k := i; k < j; k++ {
				if err := writeXMLLeaf(head, fields[k].Value, out); err != nil {
					return err
				}
			}
		} else {
			group := make([]Field, j-i)
			for k := i; k < j; k++ {
				_, rest, _ := splitDottedPath(fields[k].Name)
				group[k-i] = Field{Name: rest, Value: fields[k].Value}
			}
			if err := writeXMLElementGroup(head, group, out, textField); err != nil {
				return err
			}
		}
		i = j
	}
	return nil
}

func writeXMLLeaf(name string, v Scalar, out *outBuffer) error {
	s := v.AsString()
	out.writeByte('<')
	out.writeString(name)
	if s == "" {
		out.writeString("/>")
		return nil
	}
	out.writeByte('>')
	out.writeString(escapeXMLText(s))
	out.writeString("</")
	out.writeString(name)
	out.writeByte('>')
	return nil
}

// escapeXMLText escapes only & < > in element text (§4.3).
func escapeXMLText(s string) string {
	var out []byte
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '&':
			out = append(out, "&amp;"...)
		case '<':
			out = append(out, "&lt;"...)
		case '>':
			out = append(out, "&gt;"...)
		default:
			out = append(out, s[i])
		}
	}
	return string(out)
}

// escapeXMLAttr escapes & < > " ' in attribute values (§4.3).
func escapeXMLAttr(s string) string {
	var out []byte
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '&':
			out = append(out, "&amp;"...)
		case '<':
			out = append(out, "&lt;"...)
		case '>':
			out = append(out, "&gt;"...)
		case '"':
			out = append(out, "&quot;"...)
		case '\'':
			out = append(out, "&apos;"...)
		default:
			out = append(out, s[i])
		}
	}
	return string(out)
}
