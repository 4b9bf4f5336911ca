package coroutine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandle_SuspendResumeCycle(t *testing.T) {
	var steps []string

	h := New(func(yield func()) {
		steps = append(steps, "a")
		yield()
		steps = append(steps, "b")
		yield()
		steps = append(steps, "c")
	})

	require.Equal(t, Suspended, h.State())

	ok := h.Resume()
	require.True(t, ok)
	assert.Equal(t, Suspended, h.State())
	assert.Equal(t, []string{"a"}, steps)

	ok = h.Resume()
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, steps)

	ok = h.Resume()
	require.False(t, ok)
	assert.Equal(t, Finished, h.State())
	assert.Equal(t, []string{"a", "b", "c"}, steps)

	// Resuming a finished coroutine is a no-op.
	ok = h.Resume()
	assert.False(t, ok)
}

func TestHandle_Panic(t *testing.T) {
	h := New(func(yield func()) {
		panic("boom")
	})

	ok := h.Resume()
	require.False(t, ok)
	assert.Equal(t, Panicked, h.State())
	assert.Equal(t, "boom", h.Panic())
}

func TestHandle_SetBlocked(t *testing.T) {
	release := make(chan struct{})
	h := New(func(yield func()) {
		yield()
		<-release
	})

	h.Resume()
	h.SetBlocked()
	assert.Equal(t, Blocked, h.State())

	close(release)
	h.Resume()

	select {
	case <-h.done:
	case <-time.After(time.Second):
		t.Fatal("coroutine did not finish in time")
	}
}

func TestHandle_OwnerRoundtrip(t *testing.T) {
	h := New(func(yield func()) {})
	assert.Nil(t, h.Owner())

	type fakeScheduler struct{ id int }
	owner := &fakeScheduler{id: 7}
	h.SetOwner(owner)
	assert.Same(t, owner, h.Owner())
}

func TestState_String(t *testing.T) {
	cases := map[State]string{
		Suspended: "Suspended",
		Blocked:   "Blocked",
		Running:   "Running",
		Finished:  "Finished",
		Panicked:  "Panicked",
	}
	for state, want := range cases {
		assert.Equal(t, want, state.String())
	}
	assert.Contains(t, State(99).String(), "State(99)")
}
