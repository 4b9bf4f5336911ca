// Package poller implements the readiness adapter described by spec.md
// §4.3: OS-native I/O readiness notification, abstracted just enough to
// hide the difference between Linux's epoll (an edge-triggered family
// that requires an explicit deregister call after a one-shot fire) and
// Darwin/BSD's kqueue (a self-clearing one-shot family that needs no such
// call).
//
// Every registration made through this package is one-shot and
// level-triggered: a single readiness event is delivered once, and the
// caller must re-register if it wants to wait again. This matches the
// scheduler's park/unpark protocol, where each wait_event call corresponds
// to exactly one coroutine block and, eventually, exactly one wakeup.
//
// See poller_linux.go and poller_darwin.go for the platform-specific
// implementations.
package poller

// IOEvents describes the readiness conditions a registration can match.
type IOEvents uint32

const (
	// EventRead indicates the file descriptor is ready for reading.
	EventRead IOEvents = 1 << iota
	// EventWrite indicates the file descriptor is ready for writing.
	EventWrite
	// EventError indicates an error condition on the file descriptor.
	EventError
	// EventHangup indicates the peer closed its end of the connection.
	EventHangup
)

// Callback is invoked, at most once per registration, from RunOnce when a
// readiness event fires. Close does not invoke the callbacks of
// registrations that are still pending.
type Callback func(events IOEvents)
