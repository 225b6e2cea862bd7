package convert

// recordSink receives records as a parser discovers them, in input order.
// Parsers never build a slice of all records up front — they push into the
// sink as each one completes, keeping working-set bounded by the largest
// single record (§4.2).
type recordSink func(Record)

// Parser converts a stream of bytes into records under the re-entrant,
// chunk-safe contract of §4.2: feed returns having emitted every complete
// record into sink and having left the trailing partial bytes untouched in
// the scratch buffer owned by the caller (the kernel). A parser never reads
// past what the kernel has already appended; it reports how many leading
// bytes of its input it fully consumed so the kernel can advance the
// scratch buffer.
type Parser interface {
	// feed is called during push (and at the start of finish) with the full
	// unconsumed scratch buffer contents, repeatedly until it consumes
	// nothing more. It emits zero or more complete records into sink and
	// returns the number of leading bytes it consumed (which may be less
	// than len(chunk) — the remainder is the trailing partial record).
	feed(chunk []byte, sink recordSink) (consumed int, err error)

	// flush is called once at finish with the same convention as feed. It
	// must report UnexpectedEof if a truncated record remains and the
	// format requires explicit termination.
	flush(chunk []byte, sink recordSink) (consumed int, err error)

	// header returns the header this parser has discovered so far, or nil
	// if none (e.g. no records seen yet).
	header() *Header
}

// Encoder converts records into bytes, writing into an owned output buffer
// (§4.3). No header is passed in: an encoder that needs a stable header
// (DSV) takes it from its options or from the first record it receives and
// does not notice later changes.
type Encoder interface {
	// writeRecord appends the encoded form of rec to out.
	writeRecord(rec Record, out *outBuffer) error

	// finish appends closing framing (e.g. a JSON array terminator) to out.
	// Called exactly once, at kernel finish.
	finish(out *outBuffer) error
}
