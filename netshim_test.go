package stackrt

import (
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeycumines/stackrt/internal/poller"
)

func TestNetshim_ListenDialAcceptEcho(t *testing.T) {
	done := make(chan error, 1)
	go func() {
		done <- Run(func(ctx *Context) {
			ln, err := Listen("127.0.0.1:18099")
			require.NoError(t, err)
			defer ln.Close()

			Spawn(ctx, func(ctx *Context) {
				conn, err := Dial(ctx, "127.0.0.1:18099")
				if err != nil {
					return
				}
				defer conn.Close()
				_, _ = conn.Write(ctx, []byte("ping"))
				buf := make([]byte, 64)
				_, _ = conn.Read(ctx, buf)
			})

			// The initial coroutine serves the connection itself: blocking
			// it on a Go channel would stall this scheduler thread, which
			// only regains control at the runtime's own suspension points.
			conn, err := ln.Accept(ctx)
			if err != nil {
				return
			}
			defer conn.Close()
			buf := make([]byte, 64)
			n, err := conn.Read(ctx, buf)
			if err != nil || n == 0 {
				return
			}
			_, _ = conn.Write(ctx, buf[:n])
		}, 2)
	}()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("echo roundtrip did not complete in time")
	}
}

func TestRetryOnWouldBlock_SurfacesErrSpuriousWouldBlock(t *testing.T) {
	s := newTestScheduler(t)
	s.opts = resolveRunOptions([]RunOption{WithForceStealEvery(1)})
	s.opts.maxRetryReparks = 0

	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()

	h := s.spawn(func(ctx *Context) {
		_, err := retryOnWouldBlock(ctx, int(r.Fd()), poller.EventRead, func() (int, error) {
			return 0, syscall.EAGAIN
		})
		assert.ErrorIs(t, err, ErrSpuriousWouldBlock)
	})

	require.True(t, s.drainPrivate())
	_ = h
}
