// Package device models the execution substrate the stereo kernels run on:
// an ordered stream of asynchronous kernel launches, each launch a grid of
// thread blocks fanned out over the worker pool. Launch-time failures are
// reported immediately; execution faults are recorded on the stream and
// surface on a completion barrier.
package device

import (
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/parallaxml/parallax/internal/metrics"
)

// Kernel is one thread's body, called with the thread's global coordinates.
// Threads past the problem extent are expected to return without touching
// memory; a panic inside the body is recorded as an execution fault.
type Kernel func(x, y, z int)

// Stream is an ordered work queue: launches enqueued on it run one at a
// time, in enqueue order. The caller never blocks on kernel completion
// unless SyncAfterLaunch is set or Synchronize is called.
type Stream struct {
	tasks   chan func()
	stopped chan struct{}
	workers int

	// syncAfterLaunch selects debug behavior: every launch is followed by a
	// completion barrier so execution faults are attributed to the call that
	// caused them. A runtime flag, not a build tag, so both modes are
	// testable in one binary.
	syncAfterLaunch bool

	mu        sync.Mutex
	fault     error
	destroyed bool
}

// Option configures a Stream at creation.
type Option func(*Stream)

// WithSyncAfterLaunch makes every launch wait for completion and report
// execution faults synchronously. Costs a full barrier per launch.
func WithSyncAfterLaunch(on bool) Option {
	return func(s *Stream) { s.syncAfterLaunch = on }
}

// WithWorkers caps the per-launch thread-block fan-out.
func WithWorkers(n int) Option {
	return func(s *Stream) {
		if n > 0 {
			s.workers = n
		}
	}
}

// NewStream starts an empty stream. The caller must Destroy it.
func NewStream(opts ...Option) *Stream {
	s := &Stream{
		tasks:   make(chan func(), 16),
		stopped: make(chan struct{}),
		workers: runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(s)
	}
	go func() {
		defer close(s.stopped)
		for task := range s.tasks {
			task()
		}
	}()
	return s
}

// Launch validates cfg and enqueues one grid of kernel invocations. A
// validation failure is returned immediately and nothing is enqueued. With
// SyncAfterLaunch set, Launch additionally waits for the grid to finish and
// returns any execution fault recorded so far.
func (s *Stream) Launch(name string, cfg LaunchConfig, k Kernel) error {
	if err := validateLaunch(name, cfg); err != nil {
		metrics.LaunchFailuresTotal.WithLabelValues(name).Inc()
		return err
	}

	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		metrics.LaunchFailuresTotal.WithLabelValues(name).Inc()
		return launchError(name, "stream destroyed")
	}
	s.mu.Unlock()

	metrics.KernelLaunchesTotal.WithLabelValues(name).Inc()
	s.tasks <- func() {
		start := time.Now()
		s.runGrid(name, cfg, k)
		metrics.KernelDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	}

	if s.syncAfterLaunch {
		return s.Synchronize()
	}
	return nil
}

// Synchronize blocks until everything enqueued so far has completed and
// returns the first execution fault recorded on the stream, if any. The
// fault is sticky: once a kernel has faulted, every later barrier reports it.
func (s *Stream) Synchronize() error {
	s.mu.Lock()
	if s.destroyed {
		defer s.mu.Unlock()
		return s.fault
	}
	s.mu.Unlock()

	done := make(chan struct{})
	s.tasks <- func() { close(done) }
	<-done

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fault
}

// Fault returns the sticky execution fault without blocking.
func (s *Stream) Fault() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fault
}

// Destroy drains the stream and stops its worker. Further launches fail.
func (s *Stream) Destroy() {
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return
	}
	s.destroyed = true
	s.mu.Unlock()

	close(s.tasks)
	<-s.stopped
}

func validateLaunch(name string, cfg LaunchConfig) error {
	if !cfg.Grid.positive() || !cfg.Block.positive() {
		return launchError(name, "grid and block extents must be positive")
	}
	if cfg.Block.Count() > MaxBlockThreads {
		return launchError(name, "thread block exceeds device limit")
	}
	if cfg.Grid.X > MaxGridX || cfg.Grid.Y > MaxGridY || cfg.Grid.Z > MaxGridZ {
		return launchError(name, "grid extent exceeds device limit")
	}
	return nil
}

// runGrid executes one launch: thread blocks are distributed over the worker
// pool, threads within a block run on one worker. Every destination element
// is owned by exactly one thread, so no synchronization beyond the fan-in is
// needed.
func (s *Stream) runGrid(name string, cfg LaunchConfig, k Kernel) {
	blocks := cfg.Grid.Count()
	workers := min(s.workers, blocks)

	var next atomic.Int64
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if rec := recover(); rec != nil {
					s.recordFault(executionFault(name, rec))
					metrics.ExecutionFaultsTotal.WithLabelValues(name).Inc()
				}
			}()
			for {
				b := int(next.Add(1)) - 1
				if b >= blocks {
					return
				}
				runBlock(cfg, b, k)
			}
		}()
	}
	wg.Wait()
}

func runBlock(cfg LaunchConfig, block int, k Kernel) {
	bx := block % cfg.Grid.X
	by := (block / cfg.Grid.X) % cfg.Grid.Y
	bz := block / (cfg.Grid.X * cfg.Grid.Y)
	for tz := 0; tz < cfg.Block.Z; tz++ {
		for ty := 0; ty < cfg.Block.Y; ty++ {
			for tx := 0; tx < cfg.Block.X; tx++ {
				k(bx*cfg.Block.X+tx, by*cfg.Block.Y+ty, bz*cfg.Block.Z+tz)
			}
		}
	}
}

func (s *Stream) recordFault(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fault == nil {
		s.fault = err
	}
}
