package convert

import (
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

// telemetry.go is an optional host-side companion, never on the kernel's
// own synchronous call path (§5 keeps Kernel.push/finish single-threaded
// and callback-free except for Options.OnProgress). Grounded on
// nishisan-dev-n-backup/internal/agent/monitor.go's SystemMonitor: a
// ticker-driven goroutine sampling gopsutil into a mutex-guarded snapshot.
// Here the sampled quantity is this process's own RSS rather than
// system-wide CPU/disk/load, and the only action taken on breach is
// calling the kernel's Abort — the mechanism §5 already names for a host
// to enforce its own memory ceiling from outside the kernel.

// MemoryWatchdog polls this process's resident set size and aborts a
// Kernel once it exceeds the limit given to NewMemoryWatchdog.
type MemoryWatchdog struct {
	logger *slog.Logger
	kernel *Kernel
	limit  uint64 // bytes

	interval time.Duration
	stop     chan struct{}
	wg       sync.WaitGroup

	mu         sync.RWMutex
	lastRSSMB  float64
	tripped    bool
	sampleErrs int
}

// NewMemoryWatchdog builds a watchdog for k, tripping once RSS exceeds
// limitMB. A nil logger disables debug logging of sample failures.
func NewMemoryWatchdog(k *Kernel, limitMB int, logger *slog.Logger) *MemoryWatchdog {
	if logger == nil {
		logger = slog.Default()
	}
	return &MemoryWatchdog{
		logger:   logger.With("component", "memory_watchdog"),
		kernel:   k,
		limit:    uint64(limitMB) << 20,
		interval: 500 * time.Millisecond,
		stop:     make(chan struct{}),
	}
}

// Start begins periodic sampling in a background goroutine.
func (w *MemoryWatchdog) Start() {
	w.wg.Add(1)
	go w.run()
}

// Stop halts sampling and waits for the goroutine to exit.
func (w *MemoryWatchdog) Stop() {
	close(w.stop)
	w.wg.Wait()
}

// Tripped reports whether the watchdog has ever aborted the kernel.
func (w *MemoryWatchdog) Tripped() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.tripped
}

// LastRSSMB returns the most recently sampled resident set size, in MiB.
func (w *MemoryWatchdog) LastRSSMB() float64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.lastRSSMB
}

func (w *MemoryWatchdog) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		w.logger.Debug("failed to open self process handle", "error", err)
		return
	}

	for {
		select {
		case <-w.stop:
			return
		case <-ticker.C:
			w.sample(proc)
		}
	}
}

func (w *MemoryWatchdog) sample(proc *process.Process) {
	info, err := proc.MemoryInfo()
	if err != nil {
		w.mu.Lock()
		w.sampleErrs++
		w.mu.Unlock()
		w.logger.Debug("failed to sample rss", "error", err)
		return
	}

	w.mu.Lock()
	w.lastRSSMB = float64(info.RSS) / (1 << 20)
	alreadyTripped := w.tripped
	if w.limit > 0 && info.RSS > w.limit && !alreadyTripped {
		w.tripped = true
	}
	trip := w.tripped && !alreadyTripped
	w.mu.Unlock()

	if trip {
		w.logger.Warn("memory limit exceeded, aborting kernel",
			"rss_mb", float64(info.RSS)/(1<<20), "limit_mb", w.limit>>20)
		w.kernel.abort()
	}
}
