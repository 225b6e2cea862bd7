package convert

import "golang.org/x/time/rate"

// progress.go gates how often the kernel invokes Options.OnProgress.
// Grounded on nishisan-dev-n-backup/internal/agent/throttle.go's
// ThrottledWriter, which wraps golang.org/x/time/rate to cap bytes/sec
// written; here the same token bucket caps callback invocations/sec
// instead, layered under the byte-interval gate §4.1 describes
// (`bytesIn - lastReportedBytesIn >= progressIntervalBytes`). The byte gate
// is checked first since it's a cheap integer comparison; the rate limiter
// only runs once that gate already passed, so a host that sets a tiny
// progressIntervalBytes still can't flood itself with callbacks on a
// stream of tiny chunks.
type progressGate struct {
	intervalBytes int64
	lastBytes     int64
	limiter       *rate.Limiter
}

// newProgressGate builds a gate for the given byte interval, falling back
// to a 1 MiB interval when unset. The limiter allows at most 20
// notifications/sec with a burst of 1, independent of intervalBytes.
func newProgressGate(intervalBytes int64) *progressGate {
	if intervalBytes <= 0 {
		intervalBytes = 1 << 20
	}
	return &progressGate{
		intervalBytes: intervalBytes,
		limiter:       rate.NewLimiter(rate.Limit(20), 1),
	}
}

// shouldNotify reports whether the kernel should invoke OnProgress now.
// final bypasses both gates, matching §4.1's "unconditionally at finish".
func (g *progressGate) shouldNotify(bytesInNow int64, final bool) bool {
	if final {
		g.lastBytes = bytesInNow
		return true
	}
	if bytesInNow-g.lastBytes < g.intervalBytes {
		return false
	}
	if !g.limiter.Allow() {
		return false
	}
	g.lastBytes = bytesInNow
	return true
}
