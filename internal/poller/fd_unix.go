//go:build linux || darwin

package poller

import (
	"golang.org/x/sys/unix"
)

// CloseFD closes a file descriptor on Unix systems.
func CloseFD(fd int) error {
	return unix.Close(fd)
}

// ReadFD reads from a file descriptor on Unix systems.
func ReadFD(fd int, buf []byte) (int, error) {
	return unix.Read(fd, buf)
}

// WriteFD writes to a file descriptor on Unix systems.
func WriteFD(fd int, buf []byte) (int, error) {
	return unix.Write(fd, buf)
}
