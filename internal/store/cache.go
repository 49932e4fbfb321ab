// AngelaMos | 2026
// cache.go

package store

import (
	"context"
	"maps"
	"slices"

	"github.com/carterperez-dev/reseller-console/internal/analytics"
	"github.com/carterperez-dev/reseller-console/internal/coupon"
	"github.com/carterperez-dev/reseller-console/internal/member"
	"github.com/carterperez-dev/reseller-console/internal/offer"
	"github.com/carterperez-dev/reseller-console/internal/order"
	"github.com/carterperez-dev/reseller-console/internal/plan"
)

// readCache holds the collections loaded since the last invalidation. A nil
// slot has not been loaded yet.
type readCache struct {
	members   []member.Member
	orders    []order.Order
	offers    []offer.SpecialOffer
	coupons   []coupon.Coupon
	plans     []plan.Plan
	analytics *analytics.Snapshot
}

// readThrough serves slot from the cache or loads it. A load that races
// with an invalidation is returned to the caller but not cached.
func readThrough[T any](
	ctx context.Context,
	s *Store,
	slot func(*readCache) *[]T,
	load func(context.Context) ([]T, error),
) ([]T, error) {
	s.mu.Lock()
	if cached := *slot(&s.cache); cached != nil {
		out := slices.Clone(cached)
		s.mu.Unlock()
		return out, nil
	}
	epoch := s.epoch
	s.mu.Unlock()

	items, err := load(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.epoch == epoch && items != nil {
		*slot(&s.cache) = slices.Clone(items)
	}
	s.mu.Unlock()

	return items, nil
}

func cloneSnapshot(src *analytics.Snapshot) *analytics.Snapshot {
	out := *src
	out.DeviceStats = maps.Clone(src.DeviceStats)
	out.OrdersByType = maps.Clone(src.OrdersByType)
	return &out
}
