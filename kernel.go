package convert

import "time"

// kernelState is the Kernel's own lifecycle, distinct from (but driving)
// the per-call Paused gate.
type kernelState int

const (
	stateConfigured kernelState = iota
	stateStreaming
	stateFinished
	stateAborted
	stateFailed
)

// Kernel is the chunk-at-a-time pushdown state machine (§4.1):
// Configured → Streaming → Finished | Aborted | Failed. It owns every
// buffer, parser, encoder, transform, and stats counter for one
// conversion; a single instance is never safe for concurrent use (§5).
// Grounded directly on ail/stream.go's StreamConverter: a mutex-free (here,
// contractually single-threaded rather than mutex-guarded, since the
// kernel promises synchronous run-to-completion calls, not concurrent
// ones) struct with a Push/Flush pair and metadata tracked across calls.
type Kernel struct {
	opts Options

	state  kernelState
	paused bool

	scratch *scratchBuffer
	out     *outBuffer

	parser      Parser
	encoder     Encoder
	transformer *transformer

	resolvedFormat Format // FormatAuto until resolution completes

	stats statsTracker
	gate  *progressGate

	inCallback bool // reentrancy guard (§4.6)
	sinkErr    error
}

// NewKernel validates and defaults opts, then constructs a Configured
// kernel. Parser construction is deferred when InputFormat is "auto" or
// when it's XML with an unresolved RecordElement — both need a buffered
// prefix that only push/finish can supply.
func NewKernel(opts Options) (*Kernel, error) {
	o := opts
	o.withDefaults()
	if err := o.validate(); err != nil {
		return nil, err
	}

	k := &Kernel{
		opts:           o,
		state:          stateConfigured,
		scratch:        newScratchBuffer(o.MaxBufferBytes),
		out:            newOutBuffer(o.ChunkTargetBytes),
		resolvedFormat: FormatAuto,
		gate:           newProgressGate(o.ProgressIntervalBytes),
		encoder:        buildEncoder(o.OutputFormat, o),
	}

	if o.Transform != nil {
		tr, err := newTransformer(o.Transform)
		if err != nil {
			return nil, err
		}
		k.transformer = tr
	}

	if o.InputFormat != FormatAuto && !(o.InputFormat == FormatXML && o.XML.RecordElement == "") {
		k.resolvedFormat = o.InputFormat
		k.parser = buildParser(o.InputFormat, o)
		k.stats.setResolvedFormat(o.InputFormat)
	}

	return k, nil
}

func buildParser(f Format, o Options) Parser {
	switch f {
	case FormatDSV:
		return newDSVParser(o.DSV)
	case FormatNDJSON:
		return newNDJSONParser(o.JSON)
	case FormatJSON:
		return newJSONArrayParser(o.JSON)
	case FormatXML:
		return newXMLParser(o.XML)
	default:
		return nil
	}
}

func buildEncoder(f Format, o Options) Encoder {
	switch f {
	case FormatDSV:
		return newDSVEncoder(o.DSV)
	case FormatNDJSON:
		return newNDJSONEncoder()
	case FormatJSON:
		return newJSONArrayEncoder()
	case FormatXML:
		return newXMLEncoder(o.XML)
	default:
		return nil
	}
}

// push appends chunk to the input scratch, drives parse→transform→encode
// to a quiescent point, and returns whatever bytes the encoder produced.
func (k *Kernel) push(chunk []byte) ([]byte, error) {
	if err := k.precheck(); err != nil {
		return nil, err
	}
	if k.state == stateConfigured {
		k.state = stateStreaming
	}

	if err := k.scratch.append(chunk); err != nil {
		k.state = stateFailed
		return nil, err
	}
	k.stats.addBytesIn(len(chunk))
	k.stats.incChunksIn()

	if k.parser == nil {
		if err := k.resolveFormat(false); err != nil {
			k.state = stateFailed
			return nil, err
		}
		if k.parser == nil {
			// Still waiting for enough prefix to resolve; nothing to parse yet.
			k.stats.setCurrentPartialSize(k.scratch.unconsumedLen())
			return nil, nil
		}
	}

	if err := k.drainParser(); err != nil {
		k.state = stateFailed
		return nil, err
	}

	k.stats.setCurrentPartialSize(k.scratch.unconsumedLen())
	out := k.out.drain()
	if out != nil {
		k.stats.addBytesOut(len(out))
		k.stats.incChunksOut()
	}
	k.maybeNotify(false)
	return out, nil
}

// finish flushes the parser (erroring on a truncated trailing record),
// then the transform/encoder closings, and returns the final bytes.
func (k *Kernel) finish() ([]byte, error) {
	if err := k.precheck(); err != nil {
		return nil, err
	}

	if k.parser == nil {
		if err := k.resolveFormat(true); err != nil {
			k.state = stateFailed
			return nil, err
		}
	}

	if k.parser != nil {
		if err := k.drainParser(); err != nil {
			k.state = stateFailed
			return nil, err
		}
		start := time.Time{}
		if k.opts.Profile {
			start = time.Now()
		}
		_, err := k.parser.flush(k.scratch.bytes(), k.wrapSink())
		if k.opts.Profile {
			k.stats.addParseTimeMs(time.Since(start).Milliseconds())
		}
		if err != nil {
			k.state = stateFailed
			return nil, err
		}
		if err := k.sinkErr; err != nil {
			k.sinkErr = nil
			k.state = stateFailed
			return nil, err
		}
	}

	if err := k.encoder.finish(k.out); err != nil {
		k.state = stateFailed
		return nil, err
	}

	k.stats.setCurrentPartialSize(0)
	out := k.out.drain()
	if out != nil {
		k.stats.addBytesOut(len(out))
		k.stats.incChunksOut()
	}
	k.state = stateFinished
	k.maybeNotify(true)
	return out, nil
}

// abort marks the kernel terminal. Idempotent, always succeeds.
func (k *Kernel) abort() {
	k.state = stateAborted
}

// pause/resume cooperatively gate push without touching parser/encoder
// state (§4.1).
func (k *Kernel) pause()  { k.paused = true }
func (k *Kernel) resume() { k.paused = false }

func (k *Kernel) isAborted() bool { return k.state == stateAborted }
func (k *Kernel) isPaused() bool  { return k.paused }

// statsSnapshot returns a read-only value copy; cheap (§4.1).
func (k *Kernel) statsSnapshot() Stats { return k.stats.Snapshot() }

// precheck enforces the terminal/paused/reentrancy gates every push/finish
// call must honor before doing any work.
func (k *Kernel) precheck() error {
	if k.inCallback {
		return ErrReentrancy
	}
	switch k.state {
	case stateAborted:
		return ErrAborted
	case stateFinished:
		return ErrFinished
	case stateFailed:
		// Failed is terminal the same way Aborted is (§4.1: only abort/stats
		// remain permitted); reuse the Aborted error kind rather than adding
		// a kind a host would have to special-case identically anyway.
		return ErrAborted
	}
	if k.paused {
		return ErrPaused
	}
	return nil
}

// resolveFormat runs DetectFormat (and, for XML, DetectStructure for
// recordElement) once enough prefix is buffered, or once final forces a
// best-effort decision on whatever is available. It's a no-op (leaving
// k.parser nil) when neither condition holds yet.
func (k *Kernel) resolveFormat(final bool) error {
	sample := k.scratch.bytes()
	detectOpts := DetectOptions{MaxBytes: defaultDetectMaxBytes}

	format := k.opts.InputFormat
	if format == FormatAuto {
		if len(sample) < defaultDetectMaxBytes && !final {
			return nil
		}
		format = DetectFormat(sample, detectOpts)
		if format == FormatUnknown {
			return newErr(KindUnsupportedFormat, "could not auto-detect input format from the available prefix")
		}
	}

	if format == FormatXML && k.opts.XML.RecordElement == "" {
		if len(sample) < defaultDetectMaxBytes && !final {
			return nil
		}
		info, err := DetectStructure(sample, FormatXML, detectOpts)
		if err != nil {
			return err
		}
		if info.RecordElement == "" {
			return newErr(KindInvalidOption, "could not auto-detect XML recordElement from the available prefix")
		}
		k.opts.XML.RecordElement = info.RecordElement
	}

	k.resolvedFormat = format
	k.parser = buildParser(format, k.opts)
	k.stats.setResolvedFormat(format)
	return nil
}

// drainParser repeatedly feeds the unconsumed scratch tail until no
// further complete record can be extracted from what's currently buffered.
func (k *Kernel) drainParser() error {
	for {
		tail := k.scratch.bytes()
		if len(tail) == 0 {
			return nil
		}
		var start time.Time
		if k.opts.Profile {
			start = time.Now()
		}
		consumed, err := k.parser.feed(tail, k.wrapSink())
		if k.opts.Profile {
			k.stats.addParseTimeMs(time.Since(start).Milliseconds())
		}
		if err != nil {
			return err
		}
		if err := k.sinkErr; err != nil {
			k.sinkErr = nil
			return err
		}
		if consumed == 0 {
			return nil
		}
		k.scratch.advance(consumed)
	}
}

// wrapSink returns the recordSink passed to the active parser. It can't
// itself return an error (recordSink is func(Record)), so a transform or
// encoder failure is stashed in k.sinkErr and every subsequent record in
// the same feed/flush call is skipped until the caller notices and stops.
func (k *Kernel) wrapSink() recordSink {
	return func(rec Record) {
		if k.sinkErr != nil {
			return
		}
		k.sinkErr = k.processRecord(rec)
	}
}

func (k *Kernel) processRecord(rec Record) error {
	if k.opts.Debug {
		k.opts.Logger.Debug(dumpRecord(k.stats.Snapshot().RecordsProcessed, rec))
	}

	out := rec
	keep := true
	if k.transformer != nil {
		var start time.Time
		if k.opts.Profile {
			start = time.Now()
		}
		transformed, kept, err := k.transformer.apply(rec, &k.stats)
		if k.opts.Profile {
			k.stats.addTransformTimeMs(time.Since(start).Milliseconds())
		}
		if err != nil {
			return err
		}
		out, keep = transformed, kept
	}
	if !keep {
		return nil
	}

	var start time.Time
	if k.opts.Profile {
		start = time.Now()
	}
	err := k.encoder.writeRecord(out, k.out)
	if k.opts.Profile {
		k.stats.addWriteTimeMs(time.Since(start).Milliseconds())
	}
	if err != nil {
		return err
	}
	k.stats.addRecordsProcessed(1)
	return nil
}

// maybeNotify invokes Options.OnProgress if the byte-interval/rate gates
// (progress.go) allow it. The reentrancy guard rejects any push/finish
// called back into this kernel from inside the callback (§4.6) rather than
// queuing it, since the kernel has no background goroutine to drain a
// queue onto.
func (k *Kernel) maybeNotify(final bool) {
	if k.opts.OnProgress == nil {
		return
	}
	snap := k.stats.Snapshot()
	if !k.gate.shouldNotify(snap.BytesIn, final) {
		return
	}
	k.inCallback = true
	k.opts.OnProgress(snap)
	k.inCallback = false
}

// Push feeds chunk into the kernel and returns whatever converted bytes it
// produced (§4.1, §6 "push"). Safe to call with a zero-length chunk.
func (k *Kernel) Push(chunk []byte) ([]byte, error) { return k.push(chunk) }

// Finish signals end-of-input, flushing any trailing buffered record and
// the encoder's closing bytes (§4.1, §6 "finish"). A Kernel that has
// already Finished, Aborted, or Failed rejects any further Push/Finish.
func (k *Kernel) Finish() ([]byte, error) { return k.finish() }

// Abort immediately and irreversibly terminates the kernel (§4.1, §6
// "abort"). Idempotent.
func (k *Kernel) Abort() { k.abort() }

// Pause cooperatively rejects Push/Finish until Resume (§4.1, §6 "pause").
func (k *Kernel) Pause() { k.pause() }

// Resume reverses Pause (§4.1, §6 "resume").
func (k *Kernel) Resume() { k.resume() }

// IsAborted reports whether the kernel reached the Aborted state.
func (k *Kernel) IsAborted() bool { return k.isAborted() }

// IsPaused reports whether the kernel is currently paused.
func (k *Kernel) IsPaused() bool { return k.isPaused() }

// Stats returns a read-only snapshot of cumulative counters (§4.1, §6
// "stats"). Cheap; safe to call at any kernel state, including terminal
// ones.
func (k *Kernel) Stats() Stats { return k.statsSnapshot() }
