package stackrt

import (
	"sync"

	"github.com/joeycumines/stackrt/coroutine"
)

// parkEntry is what the parking table associates with a live token.
type parkEntry struct {
	handle *coroutine.Handle
	fd     int // the descriptor being waited on; recorded on every platform
}

// parkingTable is a bounded slab: tokens are small integers, reused only
// after their entry is removed, and allocation fails once the table holds
// its configured capacity of live entries. This mirrors the mio
// Slab::new(MAX_TOKEN_NUM) used by the reference implementation's
// EventloopHandler.
type parkingTable struct {
	mu       sync.Mutex
	entries  map[uint32]parkEntry
	free     []uint32
	next     uint32
	capacity int
}

func newParkingTable(capacity int) *parkingTable {
	return &parkingTable{
		entries:  make(map[uint32]parkEntry, 64),
		capacity: capacity,
	}
}

// Park inserts an entry and returns its token. Returns ErrCapacityExceeded
// if the table is already holding `capacity` live tokens.
func (t *parkingTable) Park(h *coroutine.Handle, fd int) (uint32, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.entries) >= t.capacity {
		return 0, ErrCapacityExceeded
	}
	var token uint32
	if n := len(t.free); n > 0 {
		token = t.free[n-1]
		t.free = t.free[:n-1]
	} else {
		t.next++
		token = t.next
	}
	t.entries[token] = parkEntry{handle: h, fd: fd}
	return token, nil
}

// Unpark removes and returns the entry for token, if still live. The
// second return reports whether it was found; a readiness callback racing
// a coroutine that was already resumed through another path will see
// false here rather than crash.
func (t *parkingTable) Unpark(token uint32) (parkEntry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[token]
	if !ok {
		return parkEntry{}, false
	}
	delete(t.entries, token)
	t.free = append(t.free, token)
	return e, true
}

// IsEmpty reports whether the table currently holds no live tokens. The
// scheduler core loop only polls for readiness when this is false, per
// spec.md §4.4 step 2.
func (t *parkingTable) IsEmpty() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries) == 0
}

// Len reports the number of live tokens.
func (t *parkingTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
