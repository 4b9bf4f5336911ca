//go:build linux || darwin

package poller

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoller_RegisterOneShotFiresOnce(t *testing.T) {
	var p Poller
	require.NoError(t, p.Init())
	defer p.Close()

	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()

	fired := make(chan IOEvents, 1)
	require.NoError(t, p.RegisterOneShot(int(r.Fd()), EventRead, func(events IOEvents) {
		fired <- events
	}))

	_, err = w.Write([]byte("x"))
	require.NoError(t, err)

	n, err := p.RunOnce(1000)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	select {
	case events := <-fired:
		assert.NotZero(t, events&EventRead)
	case <-time.After(time.Second):
		t.Fatal("callback was not invoked")
	}

	if p.RequiresExplicitDeregister() {
		require.NoError(t, p.Deregister(int(r.Fd())))
	}
}

func TestPoller_DoubleRegisterFails(t *testing.T) {
	var p Poller
	require.NoError(t, p.Init())
	defer p.Close()

	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()

	require.NoError(t, p.RegisterOneShot(int(r.Fd()), EventRead, func(IOEvents) {}))
	err = p.RegisterOneShot(int(r.Fd()), EventRead, func(IOEvents) {})
	assert.ErrorIs(t, err, ErrFDAlreadyRegistered)
}

func TestPoller_DeregisterUnknownFDFails(t *testing.T) {
	var p Poller
	require.NoError(t, p.Init())
	defer p.Close()

	err := p.Deregister(123456)
	assert.Error(t, err)
}

func TestPoller_ClosedRejectsOperations(t *testing.T) {
	var p Poller
	require.NoError(t, p.Init())
	require.NoError(t, p.Close())

	err := p.RegisterOneShot(0, EventRead, func(IOEvents) {})
	assert.ErrorIs(t, err, ErrPollerClosed)

	_, err = p.RunOnce(0)
	assert.ErrorIs(t, err, ErrPollerClosed)
}
