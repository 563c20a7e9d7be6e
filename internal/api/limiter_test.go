package api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiterEvictsIdleClients(t *testing.T) {
	clock := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	l := newRateLimiter(1, 1)
	l.now = func() time.Time { return clock }
	l.lastSweep.Store(clock.UnixNano())

	first := l.getLimiter("10.0.0.1")
	l.getLimiter("10.0.0.2")
	assert.Equal(t, 2, l.size())

	// Same key returns the same bucket.
	assert.Same(t, first, l.getLimiter("10.0.0.1"))

	clock = clock.Add(limiterIdleTTL / 2)
	l.getLimiter("10.0.0.2")

	clock = clock.Add(limiterIdleTTL/2 + time.Second)
	l.getLimiter("10.0.0.3")

	// 10.0.0.1 went idle past the TTL; 10.0.0.2 was seen half a TTL ago.
	assert.Equal(t, 2, l.size())
	_, ok := l.limiters.Load("10.0.0.1")
	assert.False(t, ok)
	_, ok = l.limiters.Load("10.0.0.2")
	assert.True(t, ok)
}

func TestRateLimiterSweepIsThrottled(t *testing.T) {
	clock := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	l := newRateLimiter(1, 1)
	l.idleTTL = time.Second
	l.now = func() time.Time { return clock }
	l.lastSweep.Store(clock.UnixNano())

	l.getLimiter("a")
	clock = clock.Add(limiterSweepEvery / 2)
	l.getLimiter("b")

	// "a" is idle but no sweep is due yet.
	assert.Equal(t, 2, l.size())

	clock = clock.Add(limiterSweepEvery)
	l.getLimiter("c")
	assert.Equal(t, 1, l.size())
}
