// Package coroutine implements the stackful-looking coroutine primitive
// consumed by the stackrt scheduler.
//
// Go has no native stackful context switch, so a coroutine here is a
// goroutine whose execution is synchronized with its scheduler through an
// unbuffered channel, one hop per Resume/yield pair. Exactly one of the
// scheduler goroutine and the coroutine goroutine runs at a time, which is
// enough to give the scheduler the suspend/resume contract spec.md's
// Coroutine handle describes without any unsafe stack manipulation.
package coroutine

import (
	"fmt"
	"sync/atomic"
)

// State is the lifecycle state of a Handle, matching spec.md's Data Model.
type State uint32

const (
	// Suspended means the coroutine yielded voluntarily and is ready to
	// be resumed by any scheduler that holds its Handle.
	Suspended State = iota
	// Blocked means the coroutine yielded while waiting on a readiness
	// event registered through the owning scheduler's park table.
	Blocked
	// Running means the coroutine is currently executing.
	Running
	// Finished means the coroutine's function returned normally.
	Finished
	// Panicked means the coroutine's function panicked.
	Panicked
)

func (s State) String() string {
	switch s {
	case Suspended:
		return "Suspended"
	case Blocked:
		return "Blocked"
	case Running:
		return "Running"
	case Finished:
		return "Finished"
	case Panicked:
		return "Panicked"
	default:
		return fmt.Sprintf("State(%d)", uint32(s))
	}
}

// Handle is a resumable coroutine. It is safe to pass a *Handle between
// goroutines (e.g. across a work-stealing deque); it is not safe to call
// Resume on the same Handle from two goroutines concurrently.
type Handle struct {
	state   atomic.Uint32
	yieldCh chan struct{}
	done    chan struct{}
	panicV  any
	owner   any // set by the scheduler that currently owns this handle
}

// New creates a coroutine running f on its own goroutine. The coroutine
// does not start executing until the first call to Resume. f receives a
// yield function: calling it suspends the coroutine and returns control to
// whichever goroutine called Resume, resuming f's execution again only on
// the next call to Resume.
func New(f func(yield func())) *Handle {
	h := &Handle{
		yieldCh: make(chan struct{}),
		done:    make(chan struct{}),
	}
	h.state.Store(uint32(Suspended))

	go func() {
		<-h.yieldCh // wait for the first Resume

		defer func() {
			if r := recover(); r != nil {
				h.panicV = r
				h.state.Store(uint32(Panicked))
			} else if h.State() != Panicked {
				h.state.Store(uint32(Finished))
			}
			close(h.done)
		}()

		f(func() {
			// A coroutine marked Blocked by SetBlocked stays Blocked across
			// this yield; only a Running coroutine becomes Suspended.
			h.state.CompareAndSwap(uint32(Running), uint32(Suspended))
			h.yieldCh <- struct{}{} // hand control back to Resume
			<-h.yieldCh             // wait to be resumed again
		})
	}()

	return h
}

// State returns the coroutine's current lifecycle state.
func (h *Handle) State() State { return State(h.state.Load()) }

// SetBlocked marks the coroutine Blocked. Called by the scheduler just
// after it registers a readiness interest and just before it yields on
// the coroutine's behalf, and by nothing else; a coroutine cannot mark itself blocked
// without cooperation from its scheduler, since blocking is a property of
// the park table entry, not of the coroutine's own control flow.
func (h *Handle) SetBlocked() { h.state.Store(uint32(Blocked)) }

// Owner returns the value last set with SetOwner, or nil.
func (h *Handle) Owner() any { return h.owner }

// SetOwner records a scheduler as this handle's owner. The stackrt
// scheduler sets it once, when it spawns the coroutine; it is not updated
// when another scheduler steals and resumes the handle.
func (h *Handle) SetOwner(owner any) { h.owner = owner }

// Resume runs the coroutine until it next yields or returns, blocking the
// calling goroutine meanwhile. It returns false once the coroutine has
// finished (normally or via panic); calling Resume again after that is a
// no-op that also returns false.
func (h *Handle) Resume() bool {
	switch h.State() {
	case Finished, Panicked:
		return false
	}
	h.state.Store(uint32(Running))
	h.yieldCh <- struct{}{}
	select {
	case _, ok := <-h.yieldCh:
		if !ok {
			return false
		}
	case <-h.done:
	}
	switch h.State() {
	case Finished, Panicked:
		return false
	default:
		return true
	}
}

// Panic returns the recovered panic value, or nil if the coroutine did not
// panic (or has not finished).
func (h *Handle) Panic() any { return h.panicV }
