// Package stackrt provides a work-stealing, multi-threaded scheduler for
// cooperatively-scheduled coroutines, with OS-readiness-based I/O
// parking.
//
// # Architecture
//
// The runtime is a fixed-size pool of N OS threads, each driving one
// [Scheduler]. A Scheduler has a small private queue, a shared queue
// whose stealer end every peer can pull from, and a parking table
// mapping in-flight I/O waits to the coroutine waiting on them. Run
// starts the pool and spawns the first coroutine; Spawn adds more from
// inside a running coroutine.
//
// Coroutines ([github.com/joeycumines/stackrt/coroutine]) are not native
// stackful fibers — Go has none — but goroutines whose execution is
// strictly serialized with their owning Scheduler one yield at a time,
// giving callers the same suspend/resume contract a stackful coroutine
// would.
//
// # Platform support
//
// I/O readiness is implemented using platform-native mechanisms via
// [github.com/joeycumines/stackrt/internal/poller]:
//   - Linux: epoll (one-shot, explicit deregister required after firing)
//   - Darwin: kqueue (EV_ONESHOT, self-clearing)
//
// # Thread safety
//
// A Scheduler's private queue, parking table, and poller are touched
// only by the goroutine running that Scheduler's core loop. The shared
// queue's stealer end is safe for concurrent use by any number of peer
// schedulers. Run and Spawn are the only exported entry points meant to
// be called from outside a running coroutine (Run) or from inside one
// (Spawn); nothing else in this package is meant to be called from a
// goroutine other than the one currently resuming a coroutine for the
// owning Scheduler.
//
// # Usage
//
//	err := stackrt.Run(func(ctx *stackrt.Context) {
//	    stackrt.Spawn(ctx, func(ctx *stackrt.Context) {
//	        fmt.Println("hello from a spawned coroutine")
//	    })
//	}, runtime.NumCPU())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Error types
//
//   - [PanicError]: wraps a coroutine's recovered panic value
//   - [ShutdownError]: aggregates errors from tearing down peer schedulers
//   - sentinel errors ([ErrAlreadyStarted], [ErrCapacityExceeded],
//     [ErrSpuriousWouldBlock], [ErrUnknownControlMessage], [ErrClosed])
//     for the corresponding fixed conditions
//
// All of them implement [error] and work with errors.Is/errors.As;
// PanicError and ShutdownError also implement Unwrap, so errors.Is and
// errors.As see through them to their causes.
package stackrt
