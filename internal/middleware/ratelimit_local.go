// AngelaMos | 2026
// ratelimit_local.go

package middleware

import (
	"math"
	"sync"
	"time"

	redis_rate "github.com/go-redis/redis_rate/v10"
	"golang.org/x/time/rate"
)

const (
	bucketIdle    = 10 * time.Minute
	sweepInterval = 5 * time.Minute
)

type bucket struct {
	limiter *rate.Limiter
	seen    time.Time
}

// localBuckets is the per-replica stand-in for the Redis limiter. Idle
// buckets are swept inline on access, so there is no janitor goroutine.
type localBuckets struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
}

func newLocalBuckets() *localBuckets {
	return &localBuckets{
		buckets:   make(map[string]*bucket),
		lastSweep: time.Now(),
	}
}

func (l *localBuckets) take(key string, limit redis_rate.Limit) *redis_rate.Result {
	now := time.Now()
	perToken := limit.Period / time.Duration(max(limit.Rate, 1))

	l.mu.Lock()
	if now.Sub(l.lastSweep) >= sweepInterval {
		l.sweep(now)
	}
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(rate.Every(perToken), limit.Burst)}
		l.buckets[key] = b
	}
	b.seen = now
	l.mu.Unlock()

	allowed := b.limiter.AllowN(now, 1)
	tokens := b.limiter.TokensAt(now)

	res := &redis_rate.Result{
		Limit:      limit,
		Remaining:  int(math.Max(0, math.Floor(tokens))),
		RetryAfter: -1,
		ResetAfter: time.Duration((float64(limit.Burst) - tokens) * float64(perToken)),
	}
	if allowed {
		res.Allowed = 1
	} else {
		res.RetryAfter = time.Duration((1 - tokens) * float64(perToken))
	}
	return res
}

func (l *localBuckets) sweep(now time.Time) {
	for key, b := range l.buckets {
		if now.Sub(b.seen) > bucketIdle {
			delete(l.buckets, key)
		}
	}
	l.lastSweep = now
}

func (l *localBuckets) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}
