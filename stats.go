package convert

import "sync"

// Stats is a value-type snapshot of the kernel's monotone counters and
// timers. Returned by Kernel.Stats() and handed to progress callbacks;
// mutating a Stats value has no effect on the kernel it was copied from.
type Stats struct {
	BytesIn          int64
	BytesOut         int64
	ChunksIn         int64
	ChunksOut        int64
	RecordsProcessed int64
	RecordsFiltered  int64

	// Timers, populated only when Options.Profile is set; zero otherwise.
	ParseTimeMs     int64
	TransformTimeMs int64
	WriteTimeMs     int64

	// Peaks.
	MaxBufferSize      int64
	CurrentPartialSize int64

	// ResolvedFormat carries the outcome of auto-detection once the kernel
	// has picked a concrete input format; empty until then.
	ResolvedFormat Format
}

// ThroughputMbPerSec derives bytesIn / (parse+transform+write time) in
// megabytes per second. Returns 0 when profiling is off or no time has
// elapsed, since the timers read as zero in that case.
func (s Stats) ThroughputMbPerSec() float64 {
	totalMs := s.ParseTimeMs + s.TransformTimeMs + s.WriteTimeMs
	if totalMs <= 0 {
		return 0
	}
	const mib = 1024 * 1024
	return (float64(s.BytesIn) / mib) / (float64(totalMs) / 1000)
}

// statsTracker is the kernel's mutex-guarded live counter set. Stats()
// returns a value-copy Snapshot so callers (including progress callbacks)
// never observe a struct being concurrently mutated, mirroring the way
// Stream Converter guards its own fields with a single mutex.
type statsTracker struct {
	mu sync.Mutex
	s  Stats
}

func (t *statsTracker) Snapshot() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.s
}

func (t *statsTracker) addBytesIn(n int) {
	t.mu.Lock()
	t.s.BytesIn += int64(n)
	t.mu.Unlock()
}

func (t *statsTracker) addBytesOut(n int) {
	t.mu.Lock()
	t.s.BytesOut += int64(n)
	t.mu.Unlock()
}

func (t *statsTracker) incChunksIn() {
	t.mu.Lock()
	t.s.ChunksIn++
	t.mu.Unlock()
}

func (t *statsTracker) incChunksOut() {
	t.mu.Lock()
	t.s.ChunksOut++
	t.mu.Unlock()
}

func (t *statsTracker) addRecordsProcessed(n int64) {
	t.mu.Lock()
	t.s.RecordsProcessed += n
	t.mu.Unlock()
}

func (t *statsTracker) addRecordsFiltered(n int64) {
	t.mu.Lock()
	t.s.RecordsFiltered += n
	t.mu.Unlock()
}

func (t *statsTracker) addParseTimeMs(ms int64) {
	t.mu.Lock()
	t.s.ParseTimeMs += ms
	t.mu.Unlock()
}

func (t *statsTracker) addTransformTimeMs(ms int64) {
	t.mu.Lock()
	t.s.TransformTimeMs += ms
	t.mu.Unlock()
}

func (t *statsTracker) addWriteTimeMs(ms int64) {
	t.mu.Lock()
	t.s.WriteTimeMs += ms
	t.mu.Unlock()
}

// setCurrentPartialSize records the scratch buffer length at a push/finish
// boundary and advances the monotone maxBufferSize peak if exceeded.
func (t *statsTracker) setCurrentPartialSize(n int) {
	t.mu.Lock()
	t.s.CurrentPartialSize = int64(n)
	if t.s.CurrentPartialSize > t.s.MaxBufferSize {
		t.s.MaxBufferSize = t.s.CurrentPartialSize
	}
	t.mu.Unlock()
}

func (t *statsTracker) setResolvedFormat(f Format) {
	t.mu.Lock()
	t.s.ResolvedFormat = f
	t.mu.Unlock()
}

func (t *statsTracker) bytesInSnapshot() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.s.BytesIn
}
