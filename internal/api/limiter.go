package api

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const (
	limiterIdleTTL    = 10 * time.Minute
	limiterSweepEvery = time.Minute
)

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64 // unix nanos
}

// rateLimiter hands out one token bucket per client key. Buckets idle for
// longer than idleTTL are dropped by a sweep piggybacked on incoming requests.
type rateLimiter struct {
	limiters  sync.Map
	rps       float64
	burst     int
	idleTTL   time.Duration
	now       func() time.Time
	lastSweep atomic.Int64
}

func newRateLimiter(rps float64, burst int) *rateLimiter {
	if burst <= 0 {
		burst = 5
	}
	l := &rateLimiter{rps: rps, burst: burst, idleTTL: limiterIdleTTL, now: time.Now}
	l.lastSweep.Store(l.now().UnixNano())
	return l
}

func (l *rateLimiter) getLimiter(key string) *rate.Limiter {
	now := l.now().UnixNano()
	l.maybeSweep(now)

	v, ok := l.limiters.Load(key)
	if !ok {
		e := &limiterEntry{limiter: rate.NewLimiter(rate.Limit(l.rps), l.burst)}
		v, _ = l.limiters.LoadOrStore(key, e)
	}

	e := v.(*limiterEntry)
	e.lastSeen.Store(now)
	return e.limiter
}

// maybeSweep evicts idle buckets at most once per limiterSweepEvery.
func (l *rateLimiter) maybeSweep(now int64) {
	last := l.lastSweep.Load()
	if now-last < int64(limiterSweepEvery) || !l.lastSweep.CompareAndSwap(last, now) {
		return
	}

	cutoff := now - int64(l.idleTTL)
	l.limiters.Range(func(key, v any) bool {
		if v.(*limiterEntry).lastSeen.Load() < cutoff {
			l.limiters.Delete(key)
		}
		return true
	})
}

func (l *rateLimiter) size() int {
	n := 0
	l.limiters.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// RateLimit rejects requests above the configured rate per client IP with 429.
// A non-positive rps disables limiting.
func RateLimit(rps float64, burst int) gin.HandlerFunc {
	if rps <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	l := newRateLimiter(rps, burst)
	return func(c *gin.Context) {
		if !l.getLimiter(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
