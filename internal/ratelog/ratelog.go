// Package ratelog throttles high-frequency, low-value warning log lines
// emitted by the scheduler — steal aborts and duplicate unpark
// deliveries — using github.com/joeycumines/go-catrate's
// sliding-window category limiter. Without this, a sustained burst of
// legitimate contention (many peers stealing from the same idle queue, a
// client hammering a socket) would flood logs with lines that all say the
// same thing.
package ratelog

import (
	"time"

	"github.com/joeycumines/go-catrate"
)

// Limiter wraps a catrate.Limiter with an Allow that answers only true/
// false, since call sites here only need "should I log this."
type Limiter struct {
	l *catrate.Limiter
}

// New returns a Limiter allowing at most maxPerWindow occurrences of a
// given category within window.
func New(window time.Duration, maxPerWindow int) *Limiter {
	return &Limiter{l: catrate.NewLimiter(map[time.Duration]int{window: maxPerWindow})}
}

// Allow reports whether an event in category should be logged now.
func (l *Limiter) Allow(category string) bool {
	if l == nil || l.l == nil {
		return true
	}
	_, ok := l.l.Allow(category)
	return ok
}
