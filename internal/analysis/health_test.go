package analysis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func newTestBreaker(clock *fakeClock) *CircuitBreaker {
	b := NewCircuitBreaker(BreakerConfig{MaxFailures: 2, Cooldown: 10 * time.Second, RecoveryThreshold: 2})
	b.now = clock.now
	return b
}

func TestCircuitBreaker_Lifecycle(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	b := newTestBreaker(clock)

	assert.Equal(t, CircuitClosed, b.State())

	b.RecordFailure()
	assert.True(t, b.Allow())

	b.RecordFailure()
	assert.Equal(t, CircuitOpen, b.State())
	assert.False(t, b.Allow())
	assert.Equal(t, 10*time.Second, b.RetryAfter())

	clock.t = clock.t.Add(11 * time.Second)
	assert.Equal(t, CircuitHalfOpen, b.State())
	assert.True(t, b.Allow())

	b.RecordSuccess()
	assert.Equal(t, CircuitHalfOpen, b.State())
	b.RecordSuccess()
	assert.Equal(t, CircuitClosed, b.State())
}

func TestCircuitBreaker_SuccessResetsClosedFailures(t *testing.T) {
	b := newTestBreaker(&fakeClock{t: time.Unix(1000, 0)})

	b.RecordFailure()
	b.RecordSuccess()
	b.RecordFailure()

	assert.Equal(t, CircuitClosed, b.State())
}

func TestCircuitState_String(t *testing.T) {
	assert.Equal(t, "closed", CircuitClosed.String())
	assert.Equal(t, "open", CircuitOpen.String())
	assert.Equal(t, "half-open", CircuitHalfOpen.String())
}

func TestBrowserProvider_OpenCircuitFailsFast(t *testing.T) {
	p := NewBrowserProvider(BrowserConfig{Breaker: BreakerConfig{MaxFailures: 1, Cooldown: time.Hour, RecoveryThreshold: 1}})
	p.Breaker().RecordFailure()

	_, err := p.Analyze(context.Background(), "<script>alert(1)</script>", "x")

	require.ErrorIs(t, err, ErrUpstream)
	assert.Contains(t, err.Error(), "circuit open")
	assert.NoError(t, p.Close())
}
