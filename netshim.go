package stackrt

import (
	"errors"
	"net"

	"golang.org/x/sys/unix"

	"github.com/joeycumines/stackrt/internal/poller"
)

// Listener is a non-blocking TCP listener built directly on unix socket
// syscalls rather than Go's net package, since accept/read/write on a
// socket owned by this runtime must park through this runtime's own
// readiness adapter, not the Go scheduler's netpoller. Grounded on
// original_source's mio-based TcpListener.
type Listener struct {
	fd int
}

// Conn is a non-blocking TCP connection accepted from a Listener, or
// dialed with Dial.
type Conn struct {
	fd int
}

// Listen creates a non-blocking TCP listener bound to addr, with
// SO_REUSEADDR and SO_REUSEPORT set, matching the reference
// implementation's sample echo server.
func Listen(addr string) (*Listener, error) {
	tcpAddr, err := net.ResolveTCPAddr("tcp4", addr)
	if err != nil {
		return nil, err
	}

	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM|unix.SOCK_NONBLOCK, unix.IPPROTO_TCP)
	if err != nil {
		return nil, err
	}

	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		_ = unix.Close(fd)
		return nil, err
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEPORT, 1); err != nil {
		_ = unix.Close(fd)
		return nil, err
	}

	sa := &unix.SockaddrInet4{Port: tcpAddr.Port}
	copy(sa.Addr[:], tcpAddr.IP.To4())
	if err := unix.Bind(fd, sa); err != nil {
		_ = unix.Close(fd)
		return nil, err
	}
	if err := unix.Listen(fd, 1024); err != nil {
		_ = unix.Close(fd)
		return nil, err
	}

	return &Listener{fd: fd}, nil
}

// Close closes the listening socket.
func (l *Listener) Close() error { return unix.Close(l.fd) }

// FD returns the underlying file descriptor. Exposed for callers that
// need to register additional interests directly.
func (l *Listener) FD() int { return l.fd }

// Accept accepts one connection, parking ctx's coroutine on the
// listener's readability if none is immediately available. Per
// SPEC_FULL.md §C.4, a would-block that persists across
// maxRetryReparks consecutive re-registrations surfaces
// ErrSpuriousWouldBlock instead of panicking, unlike the reference
// implementation.
func (l *Listener) Accept(ctx *Context) (*Conn, error) {
	fd, _, err := retryOnWouldBlock(ctx, l.fd, poller.EventRead, func() (int, error) {
		connFD, _, aerr := unix.Accept4(l.fd, unix.SOCK_NONBLOCK)
		return connFD, aerr
	})
	if err != nil {
		return nil, err
	}
	return &Conn{fd: fd}, nil
}

// Dial opens a non-blocking TCP connection to addr, parking ctx's
// coroutine until the connection completes or fails.
func Dial(ctx *Context, addr string) (*Conn, error) {
	tcpAddr, err := net.ResolveTCPAddr("tcp4", addr)
	if err != nil {
		return nil, err
	}

	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM|unix.SOCK_NONBLOCK, unix.IPPROTO_TCP)
	if err != nil {
		return nil, err
	}

	sa := &unix.SockaddrInet4{Port: tcpAddr.Port}
	copy(sa.Addr[:], tcpAddr.IP.To4())

	err = unix.Connect(fd, sa)
	if err != nil && !errors.Is(err, unix.EINPROGRESS) {
		_ = unix.Close(fd)
		return nil, err
	}
	if err != nil {
		if werr := ctx.WaitEvent(fd, poller.EventWrite); werr != nil {
			_ = unix.Close(fd)
			return nil, werr
		}
		if serr, _ := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_ERROR); serr != 0 {
			_ = unix.Close(fd)
			return nil, unix.Errno(serr)
		}
	}
	return &Conn{fd: fd}, nil
}

// Read reads into buf, parking on readability at most maxRetryReparks
// times before surfacing ErrSpuriousWouldBlock.
func (c *Conn) Read(ctx *Context, buf []byte) (int, error) {
	return retryOnWouldBlock(ctx, c.fd, poller.EventRead, func() (int, error) {
		return unix.Read(c.fd, buf)
	})
}

// Write writes buf, parking on writability at most maxRetryReparks times
// before surfacing ErrSpuriousWouldBlock.
func (c *Conn) Write(ctx *Context, buf []byte) (int, error) {
	return retryOnWouldBlock(ctx, c.fd, poller.EventWrite, func() (int, error) {
		return unix.Write(c.fd, buf)
	})
}

// Close closes the connection.
func (c *Conn) Close() error { return unix.Close(c.fd) }

// FD returns the underlying file descriptor.
func (c *Conn) FD() int { return c.fd }

// retryOnWouldBlock implements the I/O shim contract of spec.md §6: try
// the non-blocking operation, and on EAGAIN/EWOULDBLOCK register a
// one-shot wait and retry. The original implementation this was distilled
// from panics on a second would-block; SPEC_FULL.md §C.4 instead re-parks
// up to maxRetryReparks times, treating only a would-block that survives
// that many re-registrations as the fatal condition.
func retryOnWouldBlock(ctx *Context, fd int, interest poller.IOEvents, attempt func() (int, error)) (int, error) {
	maxRetries := ctx.Scheduler().opts.maxRetryReparks
	for attempts := 0; ; attempts++ {
		n, err := attempt()
		if err == nil {
			return n, nil
		}
		if !errors.Is(err, unix.EAGAIN) && !errors.Is(err, unix.EWOULDBLOCK) {
			return n, err
		}
		if attempts >= maxRetries {
			return 0, ErrSpuriousWouldBlock
		}
		if werr := ctx.WaitEvent(fd, interest); werr != nil {
			return 0, werr
		}
	}
}
