package stackrt

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the scheduler, parking table, and registry.
var (
	// ErrAlreadyStarted is returned by Run when the runtime has already been
	// started once in this process. Only one call to Run may be in flight
	// at a time, matching the single process-wide scheduler pool.
	ErrAlreadyStarted = errors.New("stackrt: runtime already started")

	// ErrCapacityExceeded is returned by the parking table when Park is
	// called while it already holds its configured maximum number of live
	// tokens.
	ErrCapacityExceeded = errors.New("stackrt: parking table capacity exceeded")

	// ErrUnknownControlMessage is raised when a scheduler receives a
	// control message it does not recognize on its peer channel. This
	// indicates a protocol bug, not a recoverable runtime condition.
	ErrUnknownControlMessage = errors.New("stackrt: unknown control message")

	// ErrSpuriousWouldBlock is returned by the TCP I/O shim when a
	// readiness-driven retry would-blocks more times than
	// maxRetryReparks permits in a row. See SPEC_FULL.md §C.4.
	ErrSpuriousWouldBlock = errors.New("stackrt: spurious would-block exceeded retry budget")

	// ErrFDOutOfRange is returned by WaitEvent (and the I/O shim built on
	// it) when the readiness adapter rejects a file descriptor outside the
	// range it was sized for.
	ErrFDOutOfRange = errors.New("stackrt: file descriptor out of range")

	// ErrClosed is returned by WaitEvent (and the I/O shim built on it)
	// when the scheduler's poller has already been closed.
	ErrClosed = errors.New("stackrt: closed")
)

// PanicError wraps the recovered value of a coroutine function that panicked
// while running on a scheduler. It is never returned to a caller; the
// scheduler logs it (see logCoroutinePanicked) and drops the coroutine.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("stackrt: coroutine panicked: %v", e.Value)
}

// Unwrap returns the recovered value if it is itself an error, so that
// errors.Is/errors.As can see through to the original cause.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// ShutdownError aggregates the errors (if any) encountered while tearing
// down every peer scheduler at the end of Run.
type ShutdownError struct {
	Errors []error
}

func (e *ShutdownError) Error() string {
	return fmt.Sprintf("stackrt: %d error(s) during shutdown: %v", len(e.Errors), e.Errors[0])
}

// Unwrap exposes the aggregated errors for errors.Is/errors.As.
func (e *ShutdownError) Unwrap() []error {
	return e.Errors
}
