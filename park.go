package stackrt

import (
	"errors"

	"github.com/joeycumines/stackrt/coroutine"
	"github.com/joeycumines/stackrt/internal/poller"
)

// Context is passed to every coroutine function spawned through Run or
// Spawn. It is the Go-idiomatic substitute for the thread-local
// current_scheduler() the reference implementation uses: spec.md §9
// explicitly sanctions passing the scheduler as an explicit parameter for
// implementers without thread-local storage, and Go coroutines here run
// on their own goroutine rather than the scheduler's OS-locked one, so
// there is no thread-local slot to read from in the first place.
type Context struct {
	sched  *Scheduler
	handle *coroutine.Handle
	yield  func()
}

// Scheduler returns the scheduler currently resuming this coroutine.
func (c *Context) Scheduler() *Scheduler { return c.sched }

// Yield implements spec.md §3's yield_now(): it voluntarily suspends the
// calling coroutine without registering any readiness interest, giving
// the scheduler a chance to run other ready work before resuming it on a
// later round. Unlike WaitEvent, the coroutine is marked Suspended, not
// Blocked, so it goes straight back onto the ready path rather than
// waiting on the poller.
func (c *Context) Yield() {
	c.yield()
}

// WaitEvent implements spec.md §4.5's park/unpark protocol: it registers
// a one-shot, level-triggered interest in fd with the owning scheduler's
// readiness adapter, marks the calling coroutine Blocked, and yields.
// Control returns to WaitEvent's caller only after the scheduler's poll
// step observes the registered readiness and readies this coroutine
// again.
func (c *Context) WaitEvent(fd int, interest poller.IOEvents) error {
	return c.sched.waitEvent(c, fd, interest)
}

// waitEvent is the scheduler-side half of WaitEvent. It runs on the
// coroutine's own goroutine while the scheduler's goroutine is blocked in
// Resume, since it is only ever invoked synchronously from inside a
// coroutine that the scheduler is currently resuming; the two never touch
// the scheduler's state at the same time.
func (s *Scheduler) waitEvent(ctx *Context, fd int, interest poller.IOEvents) error {
	token, err := s.parkTable.Park(ctx.handle, fd)
	if err != nil {
		return err
	}

	err = s.poller.RegisterOneShot(fd, interest, func(events poller.IOEvents) {
		s.onReadiness(token, fd, events)
	})
	if err != nil {
		s.parkTable.Unpark(token)
		switch {
		case errors.Is(err, poller.ErrPollerClosed):
			err = ErrClosed
		case errors.Is(err, poller.ErrFDOutOfRange):
			err = ErrFDOutOfRange
		}
		return err
	}

	logParkRegistered(s.opts.logger, s.id, token, fd)
	ctx.handle.SetBlocked()
	ctx.yield()
	return nil
}

// onReadiness is the poller callback fired when a registered fd becomes
// ready. It always runs synchronously inside a call to s.poller.RunOnce,
// itself only ever called from the scheduler's own core loop goroutine,
// so no locking is needed here beyond what parkingTable and deque already
// provide against concurrent steal attempts from peers.
func (s *Scheduler) onReadiness(token uint32, fd int, events poller.IOEvents) {
	entry, ok := s.parkTable.Unpark(token)
	logUnparkDelivered(s.opts.logger, s.id, token, ok)
	if !ok {
		// A duplicate or stale delivery; nothing to resume.
		return
	}

	if s.poller.RequiresExplicitDeregister() {
		if err := s.poller.Deregister(fd); err != nil {
			logPollError(s.opts.logger, s.id, err)
		}
	}

	s.ready(entry.handle)
}
