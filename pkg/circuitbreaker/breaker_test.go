package circuitbreaker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dualexec/executor/pkg/logger"
)

func newTestBreaker(enabled bool) (*CircuitBreaker, *time.Time) {
	now := time.Unix(1_700_000_000, 0)
	cb := NewCircuitBreaker("bsc-testnet", enabled, 3, 5*time.Second, 15*time.Second, &logger.EmptyLogger{})
	cb.now = func() time.Time { return now }
	return cb, &now
}

func TestCircuitBreaker_TripsAtThreshold(t *testing.T) {
	cb, now := newTestBreaker(true)

	assert.False(t, cb.RecordFailure())
	*now = now.Add(time.Second)
	assert.False(t, cb.RecordFailure())
	*now = now.Add(time.Second)
	assert.True(t, cb.RecordFailure())
	assert.True(t, cb.IsOpen())
	assert.Equal(t, "bsc-testnet", cb.Chain())

	// still open before the reset timeout
	*now = now.Add(10 * time.Second)
	assert.True(t, cb.IsOpen())

	*now = now.Add(6 * time.Second)
	assert.False(t, cb.IsOpen())
	count, _, _, _ := cb.GetState()
	assert.Equal(t, 0, count)
}

func TestCircuitBreaker_WindowExpiry(t *testing.T) {
	cb, now := newTestBreaker(true)

	cb.RecordFailure()
	cb.RecordFailure()
	*now = now.Add(6 * time.Second)
	assert.False(t, cb.RecordFailure(), "failures outside the window are forgotten")

	count, _, _, _ := cb.GetState()
	assert.Equal(t, 1, count)
}

func TestCircuitBreaker_SuccessAndReset(t *testing.T) {
	cb, _ := newTestBreaker(true)

	cb.RecordFailure()
	cb.RecordFailure()
	cb.RecordSuccess()
	assert.False(t, cb.RecordFailure())

	cb.RecordFailure()
	assert.True(t, cb.RecordFailure())
	cb.Reset()
	assert.False(t, cb.IsOpen())
}

func TestCircuitBreaker_Disabled(t *testing.T) {
	cb, _ := newTestBreaker(false)
	for i := 0; i < 10; i++ {
		assert.False(t, cb.RecordFailure())
	}
	assert.False(t, cb.IsOpen())
	assert.False(t, cb.IsEnabled())
}
