//go:build darwin

package poller

import (
	"errors"
	"sync"
	"sync/atomic"

	"golang.org/x/sys/unix"
)

// MaxFDLimit is the maximum FD value we support for dynamic growth.
const MaxFDLimit = 100000000

const initialFDs = 4096

// Errors returned by Poller methods.
var (
	ErrFDOutOfRange        = errors.New("poller: fd out of range")
	ErrFDAlreadyRegistered = errors.New("poller: fd already registered")
	ErrFDNotRegistered     = errors.New("poller: fd not registered")
	ErrPollerClosed        = errors.New("poller: poller closed")
)

type fdInfo struct {
	callback Callback
	events   IOEvents
	active   bool
}

// Poller manages one-shot, level-triggered I/O event registration using
// kqueue. kqueue's EV_ONESHOT flag makes the kernel remove a registration
// the moment it fires, so unlike epoll no explicit deregister call is
// required after a fired event — RequiresExplicitDeregister reports this.
type Poller struct { // betteralign:ignore
	_        [64]byte           // cache line padding
	kq       int32              // kqueue file descriptor
	_        [60]byte           // pad to cache line
	eventBuf [256]unix.Kevent_t // preallocated event buffer
	fds      []fdInfo           // dynamic slice, grows on demand
	fdMu     sync.RWMutex       // protects fds slice access
	closed   atomic.Bool
}

// RequiresExplicitDeregister reports whether a fired one-shot
// registration must still be torn down with Deregister. False for
// kqueue, whose EV_ONESHOT self-clears.
func (p *Poller) RequiresExplicitDeregister() bool { return false }

// Init initializes the kqueue instance.
func (p *Poller) Init() error {
	if p.closed.Load() {
		return ErrPollerClosed
	}

	kq, err := unix.Kqueue()
	if err != nil {
		return err
	}
	unix.CloseOnExec(kq)
	p.kq = int32(kq)
	p.fds = make([]fdInfo, initialFDs)
	return nil
}

// Close closes the kqueue instance.
func (p *Poller) Close() error {
	p.closed.Store(true)
	if p.kq > 0 {
		return unix.Close(int(p.kq))
	}
	return nil
}

// RegisterOneShot arms a single readiness notification for fd using
// EV_ONESHOT, which the kernel clears automatically once it fires.
func (p *Poller) RegisterOneShot(fd int, events IOEvents, cb Callback) error {
	if p.closed.Load() {
		return ErrPollerClosed
	}
	if fd < 0 || fd >= MaxFDLimit {
		return ErrFDOutOfRange
	}

	p.fdMu.Lock()
	if fd >= len(p.fds) {
		newSize := fd*2 + 1
		if newSize > MaxFDLimit {
			newSize = MaxFDLimit + 1
		}
		grown := make([]fdInfo, newSize)
		copy(grown, p.fds)
		p.fds = grown
	}
	if p.fds[fd].active {
		p.fdMu.Unlock()
		return ErrFDAlreadyRegistered
	}
	p.fds[fd] = fdInfo{callback: cb, events: events, active: true}
	p.fdMu.Unlock()

	kevents := eventsToKevents(fd, events, unix.EV_ADD|unix.EV_ENABLE|unix.EV_ONESHOT)
	if len(kevents) > 0 {
		if _, err := unix.Kevent(int(p.kq), kevents, nil, nil); err != nil {
			p.fdMu.Lock()
			p.fds[fd] = fdInfo{}
			p.fdMu.Unlock()
			return err
		}
	}
	return nil
}

// Deregister clears bookkeeping for fd and, if the registration never
// fired, removes it from kqueue. Calling this after a fired event is
// harmless (EV_DELETE on an already-removed filter returns ENOENT, which
// is ignored) but never required.
func (p *Poller) Deregister(fd int) error {
	if fd < 0 {
		return ErrFDOutOfRange
	}

	p.fdMu.Lock()
	if fd >= len(p.fds) || !p.fds[fd].active {
		p.fdMu.Unlock()
		return ErrFDNotRegistered
	}
	events := p.fds[fd].events
	p.fds[fd] = fdInfo{}
	p.fdMu.Unlock()

	kevents := eventsToKevents(fd, events, unix.EV_DELETE)
	if len(kevents) > 0 {
		_, _ = unix.Kevent(int(p.kq), kevents, nil, nil)
	}
	return nil
}

// RunOnce blocks for up to timeoutMs milliseconds waiting for at least
// one readiness event, dispatching every callback it collects before
// returning. It returns the number of events dispatched.
func (p *Poller) RunOnce(timeoutMs int) (int, error) {
	if p.closed.Load() {
		return 0, ErrPollerClosed
	}

	var ts *unix.Timespec
	if timeoutMs >= 0 {
		ts = &unix.Timespec{
			Sec:  int64(timeoutMs / 1000),
			Nsec: int64((timeoutMs % 1000) * 1000000),
		}
	}

	n, err := unix.Kevent(int(p.kq), nil, p.eventBuf[:], ts)
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, err
	}

	p.dispatchEvents(n)
	return n, nil
}

func (p *Poller) dispatchEvents(n int) {
	for i := 0; i < n; i++ {
		fd := int(p.eventBuf[i].Ident)
		if fd < 0 {
			continue
		}

		p.fdMu.Lock()
		var info fdInfo
		if fd < len(p.fds) {
			info = p.fds[fd]
			// EV_ONESHOT already cleared the kernel-side registration;
			// clear our bookkeeping to match.
			p.fds[fd] = fdInfo{}
		}
		p.fdMu.Unlock()

		if info.active && info.callback != nil {
			info.callback(keventToEvents(&p.eventBuf[i]))
		}
	}
}

func eventsToKevents(fd int, events IOEvents, flags uint16) []unix.Kevent_t {
	var kevents []unix.Kevent_t
	if events&EventRead != 0 {
		kevents = append(kevents, unix.Kevent_t{Ident: uint64(fd), Filter: unix.EVFILT_READ, Flags: flags})
	}
	if events&EventWrite != 0 {
		kevents = append(kevents, unix.Kevent_t{Ident: uint64(fd), Filter: unix.EVFILT_WRITE, Flags: flags})
	}
	return kevents
}

func keventToEvents(kev *unix.Kevent_t) IOEvents {
	var events IOEvents
	switch kev.Filter {
	case unix.EVFILT_READ:
		events |= EventRead
	case unix.EVFILT_WRITE:
		events |= EventWrite
	}
	if kev.Flags&unix.EV_ERROR != 0 {
		events |= EventError
	}
	if kev.Flags&unix.EV_EOF != 0 {
		events |= EventHangup
	}
	return events
}
