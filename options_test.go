package stackrt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestResolveRunOptions_Defaults(t *testing.T) {
	cfg := resolveRunOptions(nil)
	assert.Equal(t, 100*time.Millisecond, cfg.backoff)
	assert.Equal(t, 10, cfg.privateQueueLimit)
	assert.Equal(t, 102400, cfg.parkingCapacity)
	assert.Equal(t, 64, cfg.forceStealEvery)
	assert.Equal(t, 4, cfg.maxRetryReparks)
	assert.IsType(t, &NoOpLogger{}, cfg.logger)
}

func TestResolveRunOptions_Overrides(t *testing.T) {
	logger := NewWriterLogger(LevelDebug, nil)
	cfg := resolveRunOptions([]RunOption{
		WithLogger(logger),
		WithBackoff(5 * time.Millisecond),
		WithPrivateQueueLimit(3),
		WithParkingCapacity(16),
		WithForceStealEvery(2),
	})

	assert.Same(t, logger, cfg.logger)
	assert.Equal(t, 5*time.Millisecond, cfg.backoff)
	assert.Equal(t, 3, cfg.privateQueueLimit)
	assert.Equal(t, 16, cfg.parkingCapacity)
	assert.Equal(t, 2, cfg.forceStealEvery)
}

func TestRunOptions_IgnoreInvalidValues(t *testing.T) {
	cfg := resolveRunOptions([]RunOption{
		WithBackoff(0),
		WithPrivateQueueLimit(-1),
		WithParkingCapacity(0),
		WithForceStealEvery(-5),
		WithLogger(nil),
		nil,
	})

	assert.Equal(t, 100*time.Millisecond, cfg.backoff)
	assert.Equal(t, 10, cfg.privateQueueLimit)
	assert.Equal(t, 102400, cfg.parkingCapacity)
	assert.Equal(t, 64, cfg.forceStealEvery)
}
