package stackrt

import (
	"runtime"
	"sync"
	"sync/atomic"
)

var schedulerHasStarted atomic.Bool

// Run starts a pool of n scheduler threads and runs f as the first
// coroutine on one of them, implementing spec.md §4.7's runtime entry.
// It blocks until f returns and every peer scheduler has drained its
// Shutdown control message. Only one call to Run may be active at a time
// per process; a concurrent call returns ErrAlreadyStarted.
//
// n must be >= 1. n-1 additional OS threads are started (via
// runtime.LockOSThread, held for the thread's entire life) to host the
// remaining scheduler peers; Run itself drives the nth.
func Run(f func(ctx *Context), n int, opts ...RunOption) error {
	if n < 1 {
		n = 1
	}
	if !schedulerHasStarted.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	defer schedulerHasStarted.Store(false)
	defer globalRegistry.reset()

	cfg := resolveRunOptions(opts)

	schedulers := make([]*Scheduler, n)

	var wg sync.WaitGroup
	var mu sync.Mutex
	var spawnErr error
	var joined atomic.Int32

	for id := 1; id < n; id++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			runtime.LockOSThread()
			defer runtime.UnlockOSThread()

			s, err := newScheduler(id, cfg)
			if err != nil {
				mu.Lock()
				if spawnErr == nil {
					spawnErr = err
				}
				mu.Unlock()
				joined.Add(1)
				return
			}
			schedulers[id] = s
			s.neighbors = globalRegistry.join(peer{control: s.control, steal: stealer{d: s.shared}})
			joined.Add(1)
			s.run()
		}(id)
	}

	// Barrier until every worker thread has registered with the process
	// registry, matching the reference implementation's busy-wait on an
	// atomic counter before the main thread spawns the initial coroutine.
	for int(joined.Load()) != n-1 {
		runtime.Gosched()
	}
	if spawnErr != nil {
		wg.Wait()
		return spawnErr
	}

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	main, err := newScheduler(0, cfg)
	if err != nil {
		return err
	}
	schedulers[0] = main
	main.neighbors = globalRegistry.join(peer{control: main.control, steal: stealer{d: main.shared}})

	main.spawn(func(ctx *Context) {
		defer globalRegistry.broadcastShutdown()
		f(ctx)
	})

	main.run()
	wg.Wait()

	var closeErrs []error
	for _, s := range schedulers {
		if s != nil {
			if err := s.close(); err != nil {
				closeErrs = append(closeErrs, err)
			}
		}
	}
	if len(closeErrs) > 0 {
		return &ShutdownError{Errors: closeErrs}
	}
	return nil
}

// Spawn creates a new coroutine owned by ctx's scheduler, makes it ready
// to run, and yields once — giving other ready work, including the new
// coroutine, a chance to run before the caller resumes. This mirrors the
// reference implementation's Scheduler::spawn, which pushes the new
// coroutine and immediately calls Coroutine::sched().
func Spawn(ctx *Context, f func(ctx *Context)) {
	ctx.Scheduler().spawn(f)
	ctx.yield()
}
