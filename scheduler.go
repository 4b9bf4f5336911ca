package stackrt

import (
	"time"

	"github.com/joeycumines/stackrt/coroutine"
	"github.com/joeycumines/stackrt/internal/poller"
)

// Scheduler owns one OS thread's worth of coroutine scheduling state: a
// private queue, a shared stealable queue, a parking table, and a
// readiness adapter. Exactly one goroutine — the one running the core
// loop — ever touches a Scheduler's private queue, parking table, and
// poller directly; the shared queue's stealer end is the only part of a
// Scheduler peers are allowed to touch concurrently.
type Scheduler struct {
	id   int
	opts *runOptions

	shared  *deque
	private []*coroutine.Handle

	parkTable *parkingTable
	poller    poller.Poller

	control   chan controlMessage
	neighbors []peer

	roundsSincePoll int
}

func newScheduler(id int, opts *runOptions) (*Scheduler, error) {
	s := &Scheduler{
		id:        id,
		opts:      opts,
		shared:    newDeque(),
		private:   make([]*coroutine.Handle, 0, opts.privateQueueLimit),
		parkTable: newParkingTable(opts.parkingCapacity),
		control:   make(chan controlMessage, 64),
	}
	if err := s.poller.Init(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scheduler) close() error { return s.poller.Close() }

// ready places h for future resumption, implementing spec.md §4.6's
// recommended placement policy: prefer the private queue while it has
// room, otherwise overflow to the shared, stealable queue.
func (s *Scheduler) ready(h *coroutine.Handle) {
	if len(s.private) < s.opts.privateQueueLimit {
		s.private = append(s.private, h)
		return
	}
	s.shared.Push(h)
}

// spawn wraps f as a coroutine owned by this scheduler and makes it
// ready to run.
func (s *Scheduler) spawn(f func(*Context)) *coroutine.Handle {
	var h *coroutine.Handle
	h = coroutine.New(func(yield func()) {
		ctx := &Context{sched: s, handle: h, yield: yield}
		f(ctx)
	})
	h.SetOwner(s)
	s.ready(h)
	return h
}

// resumeCoroutine resumes h and reacts to its resulting state, mirroring
// the reference implementation's resume_coroutine: a coroutine that
// yielded without blocking goes back on the ready path, a coroutine that
// registered a park is left alone (it will be readied by the poller
// callback), and a coroutine that finished or panicked is dropped after
// logging.
func (s *Scheduler) resumeCoroutine(h *coroutine.Handle) {
	switch h.State() {
	case coroutine.Suspended, coroutine.Blocked:
	default:
		logInvalidResumeState(s.opts.logger, s.id, h.State().String())
		return
	}

	h.Resume()

	switch h.State() {
	case coroutine.Suspended:
		s.ready(h)
	case coroutine.Blocked:
		// Already registered with the poller by waitEvent; nothing to do.
	case coroutine.Panicked:
		logCoroutinePanicked(s.opts.logger, s.id, &PanicError{Value: h.Panic()})
	case coroutine.Finished:
	}
}

// drainControl processes every pending control message without blocking.
// It returns false when a Shutdown message was received, signalling the
// core loop to stop.
func (s *Scheduler) drainControl() bool {
	for {
		select {
		case msg := <-s.control:
			if msg.shutdown {
				return false
			}
			if msg.newNeighbor != nil {
				s.neighbors = append(s.neighbors, *msg.newNeighbor)
				logRegistryJoin(s.opts.logger, s.id, len(s.neighbors))
				continue
			}
			// A controlMessage with neither field set is a protocol bug.
			panic(ErrUnknownControlMessage)
		default:
			return true
		}
	}
}

// drainPrivate resumes coroutines from the front of the private queue,
// FIFO, in the order the reference implementation's VecDeque would, until
// the queue is empty; a coroutine readied again during the drain (one that
// yielded, or was unparked) is resumed again in the same call. It reports
// whether it resumed anything.
func (s *Scheduler) drainPrivate() bool {
	ran := false
	for len(s.private) > 0 {
		h := s.private[0]
		s.private = s.private[1:]
		s.resumeCoroutine(h)
		ran = true
	}
	return ran
}

// runOnePublic resumes a single coroutine from the shared queue's stealer
// end, if one is available.
func (s *Scheduler) runOnePublic() bool {
	h, outcome := s.shared.Steal()
	logStealOutcome(s.opts.logger, s.id, outcomeName(outcome))
	if outcome != StealSuccess {
		return false
	}
	s.resumeCoroutine(h)
	return true
}

// stealOnce attempts one steal from every known peer, in registration
// order, resuming everything it manages to take. It reports whether it
// stole anything at all.
func (s *Scheduler) stealOnce() bool {
	stoleAny := false
	for _, p := range s.neighbors {
		h, outcome := p.steal.Steal()
		logStealOutcome(s.opts.logger, s.id, outcomeName(outcome))
		if outcome == StealSuccess {
			s.resumeCoroutine(h)
			stoleAny = true
		}
	}
	return stoleAny
}

func outcomeName(o StealOutcome) string {
	switch o {
	case StealEmpty:
		return "empty"
	case StealAborted:
		return "aborted"
	case StealSuccess:
		return "success"
	default:
		return "unknown"
	}
}

// run is the per-thread scheduler core loop described by spec.md §4.4:
// drain control messages, poll for readiness if anything is parked, run
// everything ready locally, then attempt to steal from peers, backing off
// briefly if a full round found nothing to do anywhere.
func (s *Scheduler) run() {
	for {
		if !s.drainControl() {
			return
		}

		if !s.parkTable.IsEmpty() {
			// Block for up to one backoff period. This is the "poll step"
			// blocking operation from spec.md §5; a genuine wait here (as
			// opposed to a zero-timeout probe) is what keeps a thread with
			// outstanding parks from busy-spinning through the
			// roundsSincePoll continue below between force-steal rounds.
			timeoutMs := int(s.opts.backoff / time.Millisecond)
			if timeoutMs <= 0 {
				timeoutMs = 1
			}
			if _, err := s.poller.RunOnce(timeoutMs); err != nil {
				logPollError(s.opts.logger, s.id, err)
			}
		}

		if s.drainPrivate() {
			continue
		}

		if s.runOnePublic() {
			continue
		}

		s.roundsSincePoll++
		// Per SPEC_FULL.md §E.4: sustained I/O must not starve stealing
		// forever, so a forced attempt happens periodically even while
		// the parking table stays non-empty, overriding the reference
		// implementation's unconditional "skip steal while slabs
		// non-empty" shortcut.
		if !s.parkTable.IsEmpty() && s.roundsSincePoll%s.opts.forceStealEvery != 0 {
			continue
		}

		if s.stealOnce() {
			s.roundsSincePoll = 0
			continue
		}

		time.Sleep(s.opts.backoff)
	}
}
