// AngelaMos | 2026
// ratelimit.go

package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	redis_rate "github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"

	"github.com/carterperez-dev/reseller-console/internal/authz"
	"github.com/carterperez-dev/reseller-console/internal/core"
)

// quota is the GCRA limiter shared by every replica through Redis. When
// Redis cannot answer, the replica enforces the same limit on its own
// token buckets until Redis comes back.
type quota struct {
	shared *redis_rate.Limiter
	local  *localBuckets
}

func newQuota(rdb *redis.Client) *quota {
	return &quota{
		shared: redis_rate.NewLimiter(rdb),
		local:  newLocalBuckets(),
	}
}

func (q *quota) take(
	ctx context.Context,
	key string,
	limit redis_rate.Limit,
) *redis_rate.Result {
	res, err := q.shared.Allow(ctx, key, limit)
	if err == nil {
		return res
	}
	slog.Debug("shared rate limit unavailable, using local buckets",
		"key", key,
		"error", err,
	)
	return q.local.take(key, limit)
}

// admit writes the rate limit headers and reports whether the request may
// proceed. A rejected request has already been answered.
func (q *quota) admit(
	w http.ResponseWriter,
	r *http.Request,
	key string,
	limit redis_rate.Limit,
	onLimited func(http.ResponseWriter, *http.Request, *redis_rate.Result),
) bool {
	res := q.take(r.Context(), key, limit)
	writeLimitHeaders(w.Header(), res, limit)
	if res.Allowed > 0 {
		return true
	}

	if onLimited != nil {
		onLimited(w, r, res)
		return false
	}

	retry := max(int(res.RetryAfter.Seconds()), 1)
	w.Header().Set("Retry-After", strconv.Itoa(retry))
	core.JSONError(w, core.RateLimitedError(retry))
	return false
}

type RateLimitConfig struct {
	Limit      redis_rate.Limit
	KeyFunc    func(*http.Request) string
	BypassFunc func(*http.Request) bool
	OnLimited  func(http.ResponseWriter, *http.Request, *redis_rate.Result)
}

// RateLimiter applies one fixed limit per key. It guards the whole API by
// client address ahead of authentication.
type RateLimiter struct {
	quota  *quota
	config RateLimitConfig
}

func NewRateLimiter(rdb *redis.Client, cfg RateLimitConfig) *RateLimiter {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = KeyByIP
	}
	return &RateLimiter{quota: newQuota(rdb), config: cfg}
}

func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rl.config.BypassFunc != nil && rl.config.BypassFunc(r) {
			next.ServeHTTP(w, r)
			return
		}

		key := rl.config.KeyFunc(r)
		if rl.quota.admit(w, r, key, rl.config.Limit, rl.config.OnLimited) {
			next.ServeHTTP(w, r)
		}
	})
}

type TierConfig struct {
	RequestsPerMinute int
	BurstSize         int
}

func (t TierConfig) limit() redis_rate.Limit {
	return PerMinute(t.RequestsPerMinute, t.BurstSize)
}

// DefaultTiers grants operators more headroom than regular identities; the
// console issues a burst of reads after every mutation.
var DefaultTiers = map[string]TierConfig{
	authz.RoleUser:       {RequestsPerMinute: 120, BurstSize: 20},
	authz.RoleAdmin:      {RequestsPerMinute: 1200, BurstSize: 200},
	authz.RoleSuperAdmin: {RequestsPerMinute: 3000, BurstSize: 500},
}

// TieredRateLimiter must run after Authenticator so the principal's role
// selects the tier. Unknown tiers are limited as users.
func TieredRateLimiter(
	rdb *redis.Client,
	tiers map[string]TierConfig,
) func(http.Handler) http.Handler {
	q := newQuota(rdb)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tier := tierFor(GetPrincipal(r.Context()))
			cfg, ok := tiers[tier]
			if !ok {
				tier, cfg = authz.RoleUser, tiers[authz.RoleUser]
			}

			w.Header().Set("X-RateLimit-Tier", tier)
			if q.admit(w, r, KeyByIdentity(r), cfg.limit(), nil) {
				next.ServeHTTP(w, r)
			}
		})
	}
}

func tierFor(p *authz.Principal) string {
	switch {
	case p == nil:
		return authz.RoleUser
	case p.IsSuperAdmin:
		return authz.RoleSuperAdmin
	case p.IsAdmin:
		return authz.RoleAdmin
	default:
		return authz.RoleUser
	}
}

func PerMinute(rate, burst int) redis_rate.Limit {
	return redis_rate.Limit{Rate: rate, Burst: burst, Period: time.Minute}
}

// writeLimitHeaders sets both the legacy X-RateLimit-* headers and the
// IETF RateLimit/RateLimit-Policy pair.
func writeLimitHeaders(h http.Header, res *redis_rate.Result, limit redis_rate.Limit) {
	reset := time.Now().Add(res.ResetAfter).Unix()

	h.Set("X-RateLimit-Limit", strconv.Itoa(limit.Rate))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(reset, 10))
	h.Set("RateLimit-Policy",
		fmt.Sprintf("%d;w=%d", limit.Rate, int(limit.Period.Seconds())))
	h.Set("RateLimit",
		fmt.Sprintf("%d;t=%d", res.Remaining, int(res.ResetAfter.Seconds())))
}
