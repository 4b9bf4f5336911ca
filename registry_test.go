package stackrt

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_JoinBroadcastsToExisting(t *testing.T) {
	var r registry
	defer r.reset()

	control1 := make(chan controlMessage, 4)
	p1 := peer{control: control1, steal: stealer{d: newDeque()}}
	neighbors := r.join(p1)
	assert.Empty(t, neighbors)

	control2 := make(chan controlMessage, 4)
	p2 := peer{control: control2, steal: stealer{d: newDeque()}}
	neighbors = r.join(p2)
	require.Len(t, neighbors, 1)

	select {
	case msg := <-control1:
		require.NotNil(t, msg.newNeighbor)
	default:
		t.Fatal("expected p1 to receive a NewNeighbor control message")
	}
}

func TestRegistry_BroadcastShutdown(t *testing.T) {
	var r registry
	defer r.reset()

	control := make(chan controlMessage, 1)
	r.join(peer{control: control, steal: stealer{d: newDeque()}})

	r.broadcastShutdown()

	select {
	case msg := <-control:
		assert.True(t, msg.shutdown)
	default:
		t.Fatal("expected a shutdown message")
	}
}

// TestRun_PeersConvergeToNMinusOneAcrossRealThreads exercises a real
// multi-thread Run and checks that registry join broadcasts eventually
// bring at least one scheduler's neighbor list up to every other peer
// (n-1), the convergence invariant the join/broadcastShutdown protocol is
// meant to guarantee.
func TestRun_PeersConvergeToNMinusOneAcrossRealThreads(t *testing.T) {
	const n = 4

	var mu sync.Mutex
	maxPeers := make(map[int]int)
	logger := &captureLogger{onLog: func(e LogEntry) {
		if e.Category != "registry" {
			return
		}
		peers, _ := e.Context["peers"].(int)
		mu.Lock()
		if peers > maxPeers[e.ThreadID] {
			maxPeers[e.ThreadID] = peers
		}
		mu.Unlock()
	}}

	done := make(chan error, 1)
	go func() {
		// The barrier inside Run already guarantees every worker has
		// joined the registry before this coroutine starts, so no
		// further synchronization is needed here.
		done <- Run(func(ctx *Context) {}, n, WithLogger(logger))
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not complete in time")
	}

	mu.Lock()
	defer mu.Unlock()
	max := 0
	for _, v := range maxPeers {
		if v > max {
			max = v
		}
	}
	assert.Equal(t, n-1, max, "at least one scheduler thread should observe all of its peers")
}

func TestRegistry_Reset(t *testing.T) {
	var r registry
	r.join(peer{control: make(chan controlMessage, 1), steal: stealer{d: newDeque()}})
	r.reset()
	neighbors := r.join(peer{control: make(chan controlMessage, 1), steal: stealer{d: newDeque()}})
	assert.Empty(t, neighbors)
	r.reset()
}
