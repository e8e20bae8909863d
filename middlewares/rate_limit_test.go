package middlewares

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiterSlidingWindow(t *testing.T) {
	clock := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(3, time.Minute)
	t.Cleanup(rl.Stop)
	rl.now = func() time.Time { return clock }

	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow("1.2.3.4"), "hit %d should pass", i+1)
	}
	assert.False(t, rl.Allow("1.2.3.4"), "fourth hit inside window must be rejected")

	// other clients are unaffected
	assert.True(t, rl.Allow("5.6.7.8"))

	// the window slides: once the oldest hit ages out, one slot frees up
	clock = clock.Add(61 * time.Second)
	assert.True(t, rl.Allow("1.2.3.4"))
	assert.False(t, rl.Allow("1.2.3.4"))
}

func TestRateLimiterPrune(t *testing.T) {
	clock := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(5, time.Minute)
	t.Cleanup(rl.Stop)
	rl.now = func() time.Time { return clock }

	rl.Allow("a")
	rl.Allow("b")
	assert.Len(t, rl.hits, 2)

	clock = clock.Add(2 * time.Minute)
	rl.Allow("b") // keeps b live
	rl.prune()

	assert.Len(t, rl.hits, 1)
	assert.Contains(t, rl.hits, "b")
}

func TestRateLimiterStop(t *testing.T) {
	// each limiter owns exactly one prune goroutine, started at
	// construction, so building handlers repeatedly spawns nothing extra
	rl := NewRateLimiter(2, time.Minute)
	_ = rl.Middleware()
	_ = rl.Middleware()

	rl.Stop()

	// stopping the pruner doesn't stop the limiter itself
	assert.True(t, rl.Allow("1.2.3.4"))
	assert.True(t, rl.Allow("1.2.3.4"))
	assert.False(t, rl.Allow("1.2.3.4"))
}
