// AngelaMos | 2026
// ratelimit_test.go

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis_rate "github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/reseller-console/internal/authz"
)

// unreachableRedis returns a client whose server is already gone, so the
// limiters run on their local fallback.
func unreachableRedis(t *testing.T) *redis.Client {
	t.Helper()

	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	client := redis.NewClient(&redis.Options{Addr: addr, MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestNormalizeEndpoint(t *testing.T) {
	tests := map[string]string{
		"/v1/console/orders/ORD-01JABCDEFGHJKMNPQRSTVWXYZ0/confirm": "/v1/console/orders/{id}/confirm",
		"/v1/console/plans/3f2504e0-4f89-11d3-9a0c-0305e82c3301":    "/v1/console/plans/{id}",
		"/v1/admin/roles/42":   "/v1/admin/roles/{id}",
		"/v1/console/snapshot": "/v1/console/snapshot",
	}

	for path, want := range tests {
		assert.Equal(t, want, normalizeEndpoint(path), path)
	}
}

func TestKeyByIdentity(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.7:51234"
	assert.Equal(t, "ratelimit:ip:10.0.0.7", KeyByIdentity(req))

	req.Header.Set("X-Forwarded-For", "1.1.1.1, 203.0.113.9")
	assert.Equal(t, "ratelimit:ip:203.0.113.9", KeyByIdentity(req))

	req = req.WithContext(WithPrincipal(req.Context(), &authz.Principal{IdentityID: "abc"}))
	assert.Equal(t, "ratelimit:identity:abc", KeyByIdentity(req))
}

func TestTierFor(t *testing.T) {
	assert.Equal(t, authz.RoleUser, tierFor(nil))
	assert.Equal(t, authz.RoleUser, tierFor(&authz.Principal{}))
	assert.Equal(t, authz.RoleAdmin, tierFor(&authz.Principal{IsAdmin: true}))
	assert.Equal(t, authz.RoleSuperAdmin, tierFor(&authz.Principal{IsAdmin: true, IsSuperAdmin: true}))
}

func TestTieredRateLimiterFallsBackLocally(t *testing.T) {
	tiers := map[string]TierConfig{
		authz.RoleUser:  {RequestsPerMinute: 60, BurstSize: 2},
		authz.RoleAdmin: {RequestsPerMinute: 600, BurstSize: 10},
	}

	h := TieredRateLimiter(unreachableRedis(t), tiers)(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}),
	)

	request := func(p *authz.Principal) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/v1/console/snapshot", nil)
		req = req.WithContext(WithPrincipal(req.Context(), p))
		return serve(h, req)
	}

	user := &authz.Principal{IdentityID: "u1"}
	for range 2 {
		rec := request(user)
		require.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, authz.RoleUser, rec.Header().Get("X-RateLimit-Tier"))
	}

	rec := request(user)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "RATE_LIMITED")

	admin := &authz.Principal{IdentityID: "a1", IsAdmin: true}
	for range 5 {
		rec := request(admin)
		require.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, authz.RoleAdmin, rec.Header().Get("X-RateLimit-Tier"))
	}
}

func TestRateLimiterLocalFallback(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	limited := NewRateLimiter(unreachableRedis(t), RateLimitConfig{
		Limit: PerMinute(1, 1),
	}).Handler(ok)

	assert.Equal(t, http.StatusNoContent,
		serve(limited, httptest.NewRequest(http.MethodGet, "/", nil)).Code)
	assert.Equal(t, http.StatusTooManyRequests,
		serve(limited, httptest.NewRequest(http.MethodGet, "/", nil)).Code)

	bypass := NewRateLimiter(unreachableRedis(t), RateLimitConfig{
		Limit:      PerMinute(1, 1),
		BypassFunc: func(*http.Request) bool { return true },
	}).Handler(ok)
	for range 3 {
		assert.Equal(t, http.StatusNoContent,
			serve(bypass, httptest.NewRequest(http.MethodGet, "/", nil)).Code)
	}
}

func TestLocalBucketsRetryAndSweep(t *testing.T) {
	l := newLocalBuckets()
	limit := PerMinute(60, 1)

	first := l.take("k", limit)
	assert.Equal(t, 1, first.Allowed)
	assert.Equal(t, 0, first.Remaining)

	second := l.take("k", limit)
	assert.Equal(t, 0, second.Allowed)
	assert.Greater(t, second.RetryAfter, time.Duration(0))
	assert.LessOrEqual(t, second.RetryAfter, time.Second)

	l.take("other", limit)
	require.Equal(t, 2, l.size())

	l.mu.Lock()
	l.buckets["k"].seen = time.Now().Add(-2 * bucketIdle)
	l.sweep(time.Now())
	l.mu.Unlock()
	assert.Equal(t, 1, l.size())
}

func TestRateLimiterCustomOnLimited(t *testing.T) {
	var called bool
	h := NewRateLimiter(unreachableRedis(t), RateLimitConfig{
		Limit: PerMinute(1, 1),
		OnLimited: func(w http.ResponseWriter, _ *http.Request, _ *redis_rate.Result) {
			called = true
			w.WriteHeader(http.StatusServiceUnavailable)
		},
	}).Handler(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1;w=60", rec.Header().Get("RateLimit-Policy"))

	rec = serve(h, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.True(t, called)
}
