package stackrt

import "sync"

// controlMessage is sent between scheduler peers over the per-scheduler
// control channel, mirroring the reference implementation's SchedMessage.
type controlMessage struct {
	newNeighbor *peer // non-nil for a NewNeighbor message
	shutdown    bool  // true for a Shutdown message
}

// peer is what one scheduler thread publishes about itself to the process
// registry: a channel its neighbors can use to send it control messages,
// and a stealer onto its shared work queue.
type peer struct {
	control chan<- controlMessage
	steal   stealer
}

// registry is the process-singleton list of live scheduler peers. A new
// scheduler locks it, announces itself (NewNeighbor) to every existing
// peer, takes a snapshot of them as its own initial neighbor list, and
// appends itself, exactly like the reference implementation's
// schedulers()/THREAD_HANDLES pattern. Unlike that implementation, Go
// gives us no poisoned-mutex panic to recover from on a prior holder's
// panic mid-critical-section — sync.Mutex is not poisoned by a panicking
// holder, so the recovery branch the original needs for its
// std::sync::Mutex is not needed here.
type registry struct {
	mu    sync.Mutex
	peers []peer
}

var globalRegistry registry

// join registers self and returns the snapshot of neighbors that existed
// at the moment of joining. Every existing peer is sent a NewNeighbor
// control message carrying self, so the registry converges monotonically:
// every scheduler eventually either appears in every other's neighbor
// list directly (if registered before) or receives it via a control
// message (if registered after).
func (r *registry) join(self peer) []peer {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.peers {
		// best effort: a full control channel would indicate a peer that
		// has stopped draining its control messages, which should not
		// happen for a live scheduler thread.
		select {
		case p.control <- controlMessage{newNeighbor: &self}:
		default:
		}
	}
	neighbors := make([]peer, len(r.peers))
	copy(neighbors, r.peers)
	r.peers = append(r.peers, self)
	return neighbors
}

// broadcastShutdown sends a Shutdown control message to every registered
// peer. Called exactly once, by the scheduler that ran the initial
// coroutine passed to Run, after that coroutine finishes.
func (r *registry) broadcastShutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.peers {
		select {
		case p.control <- controlMessage{shutdown: true}:
		default:
		}
	}
}

// reset clears the registry. Used only by Run, to support the
// already-started guard being released after a full run completes so a
// later process-lifetime call to Run can start a fresh pool — spec.md
// does not require supporting more than one Run per process, but nothing
// about the registry's design prevents it, and the reference
// implementation's SCHEDULER_HAS_STARTED flag is itself reset at the end
// of run().
func (r *registry) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.peers = nil
}
