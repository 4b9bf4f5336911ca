package stackrt

import "time"

// runOptions holds configuration resolved from the RunOption values
// passed to Run.
type runOptions struct {
	logger            Logger
	backoff           time.Duration
	privateQueueLimit int
	parkingCapacity   int
	forceStealEvery   int
	maxRetryReparks   int
}

// RunOption configures the runtime created by Run.
type RunOption interface {
	applyRun(*runOptions)
}

type runOptionFunc func(*runOptions)

func (f runOptionFunc) applyRun(o *runOptions) { f(o) }

// WithLogger sets the Logger used by every scheduler thread started by
// this call to Run. Defaults to the package-level logger set via
// SetLogger (a NoOpLogger if never set).
func WithLogger(logger Logger) RunOption {
	return runOptionFunc(func(o *runOptions) {
		if logger != nil {
			o.logger = logger
		}
	})
}

// WithBackoff sets the sleep duration a scheduler thread uses when a
// scheduling round resumed nothing and stole nothing from any peer.
// Defaults to 100ms, matching the reference implementation.
func WithBackoff(d time.Duration) RunOption {
	return runOptionFunc(func(o *runOptions) {
		if d > 0 {
			o.backoff = d
		}
	})
}

// WithPrivateQueueLimit sets the capacity P of each scheduler's private
// queue before ready work overflows to the shared, stealable queue.
// Defaults to 10.
func WithPrivateQueueLimit(p int) RunOption {
	return runOptionFunc(func(o *runOptions) {
		if p > 0 {
			o.privateQueueLimit = p
		}
	})
}

// WithParkingCapacity sets T_MAX, the maximum number of coroutines a
// single scheduler thread may have parked on I/O readiness at once.
// Defaults to 102400.
func WithParkingCapacity(n int) RunOption {
	return runOptionFunc(func(o *runOptions) {
		if n > 0 {
			o.parkingCapacity = n
		}
	})
}

// WithForceStealEvery sets how many consecutive idle scheduling rounds
// may pass before a scheduler forces a steal attempt even while its
// parking table is non-empty, mitigating the starvation case noted in
// SPEC_FULL.md §E.4.
func WithForceStealEvery(rounds int) RunOption {
	return runOptionFunc(func(o *runOptions) {
		if rounds > 0 {
			o.forceStealEvery = rounds
		}
	})
}

func resolveRunOptions(opts []RunOption) *runOptions {
	cfg := &runOptions{
		logger:            getGlobalLogger(),
		backoff:           100 * time.Millisecond,
		privateQueueLimit: 10,
		parkingCapacity:   102400,
		forceStealEvery:   64,
		maxRetryReparks:   4,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt.applyRun(cfg)
	}
	return cfg
}
