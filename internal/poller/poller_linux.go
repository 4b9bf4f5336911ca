//go:build linux

package poller

import (
	"errors"
	"sync"
	"sync/atomic"

	"golang.org/x/sys/unix"
)

// Maximum file descriptor we support with direct indexing.
const maxFDs = 65536

// Errors returned by Poller methods.
var (
	ErrFDOutOfRange        = errors.New("poller: fd out of range (max 65535)")
	ErrFDAlreadyRegistered = errors.New("poller: fd already registered")
	ErrFDNotRegistered     = errors.New("poller: fd not registered")
	ErrPollerClosed        = errors.New("poller: poller closed")
)

// fdInfo stores per-FD callback information.
type fdInfo struct {
	callback Callback
	active   bool
}

// Poller manages one-shot, level-triggered I/O event registration using
// epoll. Linux's epoll is an edge-triggered-capable family that still
// requires an explicit EPOLL_CTL_DEL after a one-shot event fires — the
// kernel does not forget the registration on its own the way kqueue's
// EV_ONESHOT does. RequiresExplicitDeregister reports this.
type Poller struct { // betteralign:ignore
	_        [64]byte             // cache line padding
	epfd     int32                // epoll file descriptor
	_        [60]byte             // pad to cache line
	version  atomic.Uint64        // version counter for consistency
	_        [56]byte             // pad to cache line
	eventBuf [256]unix.EpollEvent // preallocated event buffer
	fds      [maxFDs]fdInfo       // direct indexing, no map
	fdMu     sync.RWMutex         // protects fds array access
	closed   atomic.Bool          // closed flag
}

// RequiresExplicitDeregister reports whether a fired one-shot
// registration must still be torn down with Deregister. True for epoll.
func (p *Poller) RequiresExplicitDeregister() bool { return true }

// Init initializes the epoll instance.
func (p *Poller) Init() error {
	if p.closed.Load() {
		return ErrPollerClosed
	}

	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return err
	}
	p.epfd = int32(epfd)
	return nil
}

// Close closes the epoll instance.
func (p *Poller) Close() error {
	p.closed.Store(true)
	if p.epfd > 0 {
		return unix.Close(int(p.epfd))
	}
	return nil
}

// RegisterOneShot arms a single readiness notification for fd. The
// registration is EPOLLONESHOT and level-triggered: it fires at most
// once, and must be re-armed (via a fresh RegisterOneShot call) to wait
// again. The caller is responsible for calling Deregister after the
// callback runs, per RequiresExplicitDeregister.
func (p *Poller) RegisterOneShot(fd int, events IOEvents, cb Callback) error {
	if p.closed.Load() {
		return ErrPollerClosed
	}
	if fd < 0 || fd >= maxFDs {
		return ErrFDOutOfRange
	}

	p.fdMu.Lock()
	if p.fds[fd].active {
		p.fdMu.Unlock()
		return ErrFDAlreadyRegistered
	}
	p.fds[fd] = fdInfo{callback: cb, active: true}
	p.version.Add(1)
	p.fdMu.Unlock()

	ev := &unix.EpollEvent{
		Events: eventsToEpoll(events) | unix.EPOLLONESHOT,
		Fd:     int32(fd),
	}
	if err := unix.EpollCtl(int(p.epfd), unix.EPOLL_CTL_ADD, fd, ev); err != nil {
		p.fdMu.Lock()
		p.fds[fd] = fdInfo{}
		p.fdMu.Unlock()
		return err
	}
	return nil
}

// Deregister removes fd from epoll and clears its bookkeeping. Must be
// called after a fired one-shot event is handled (see
// RequiresExplicitDeregister), and may also be used to cancel a
// registration that never fired.
func (p *Poller) Deregister(fd int) error {
	if fd < 0 || fd >= maxFDs {
		return ErrFDOutOfRange
	}

	p.fdMu.Lock()
	if !p.fds[fd].active {
		p.fdMu.Unlock()
		return ErrFDNotRegistered
	}
	p.fds[fd] = fdInfo{}
	p.version.Add(1)
	p.fdMu.Unlock()

	return unix.EpollCtl(int(p.epfd), unix.EPOLL_CTL_DEL, fd, nil)
}

// RunOnce blocks for up to timeoutMs milliseconds waiting for at least
// one readiness event, dispatching every callback it collects before
// returning. It returns the number of events dispatched.
func (p *Poller) RunOnce(timeoutMs int) (int, error) {
	if p.closed.Load() {
		return 0, ErrPollerClosed
	}

	v := p.version.Load()

	n, err := unix.EpollWait(int(p.epfd), p.eventBuf[:], timeoutMs)
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, err
	}

	if p.version.Load() != v {
		// Registrations changed mid-syscall; discard this batch rather
		// than risk dispatching against a stale fdInfo.
		return 0, nil
	}

	p.dispatchEvents(n)
	return n, nil
}

func (p *Poller) dispatchEvents(n int) {
	for i := 0; i < n; i++ {
		fd := int(p.eventBuf[i].Fd)
		if fd < 0 || fd >= maxFDs {
			continue
		}
		p.fdMu.RLock()
		info := p.fds[fd]
		p.fdMu.RUnlock()

		if info.active && info.callback != nil {
			info.callback(epollToEvents(p.eventBuf[i].Events))
		}
	}
}

func eventsToEpoll(events IOEvents) uint32 {
	var epollEvents uint32
	if events&EventRead != 0 {
		epollEvents |= unix.EPOLLIN
	}
	if events&EventWrite != 0 {
		epollEvents |= unix.EPOLLOUT
	}
	return epollEvents
}

func epollToEvents(epollEvents uint32) IOEvents {
	var events IOEvents
	if epollEvents&unix.EPOLLIN != 0 {
		events |= EventRead
	}
	if epollEvents&unix.EPOLLOUT != 0 {
		events |= EventWrite
	}
	if epollEvents&unix.EPOLLERR != 0 {
		events |= EventError
	}
	if epollEvents&unix.EPOLLHUP != 0 {
		events |= EventHangup
	}
	return events
}
