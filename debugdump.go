package convert

import (
	"fmt"
	"strings"
)

// debugdump.go renders a human-readable per-record trace for Options.Debug,
// written through Options.Logger. Grounded on ail/disasm.go's Disasm(): an
// indent-tracked textual listing, there walking opcodes at MSG_START/
// MSG_END nesting depth, here walking a Record's fields at dotted-path
// nesting depth.

// dumpRecord formats rec as an indented field listing, one line per field,
// indentation increasing with each '.' in a dotted field name so that a
// flattened nested structure still reads as a tree.
func dumpRecord(seq int64, rec Record) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "record #%d (%d fields)\n", seq, len(rec.Fields))
	for _, f := range rec.Fields {
		depth := strings.Count(f.Name, ".")
		leaf := f.Name
		if depth > 0 {
			parts := strings.Split(f.Name, ".")
			leaf = parts[len(parts)-1]
		}
		for range depth {
			sb.WriteString("  ")
		}
		sb.WriteString(leaf)
		sb.WriteString(" = ")
		sb.WriteString(dumpScalar(f.Value))
		sb.WriteByte('\n')
	}
	return sb.String()
}

func dumpScalar(s Scalar) string {
	switch s.Kind {
	case KindNull:
		return "null"
	case KindString:
		return fmt.Sprintf("%q", s.Str)
	case KindInt:
		return fmt.Sprintf("%d", s.Int)
	case KindFloat:
		return fmt.Sprintf("%g", s.Flt)
	case KindBool:
		return fmt.Sprintf("%t", s.Bool)
	case KindRaw, KindRawJSON:
		return fmt.Sprintf("<raw %s>", s.Str)
	default:
		return "<unknown>"
	}
}
