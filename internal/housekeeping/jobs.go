// AngelaMos | 2026
// jobs.go

package housekeeping

import "context"

const (
	JobCouponExpiry = "deactivate-expired-coupons"
	JobTokenPurge   = "purge-refresh-tokens"
)

type CouponExpirer interface {
	DeactivateExpiredCoupons(ctx context.Context) (int64, error)
}

type TokenPurger interface {
	PurgeExpiredTokens(ctx context.Context) (int64, error)
}

// CouponExpiryJob flips past-expiry coupons to inactive. The store bumps
// the sync version only when a row changed, so an idle run does not force
// a console reload.
func CouponExpiryJob(schedule string, store CouponExpirer) Job {
	return Job{
		Name:     JobCouponExpiry,
		Schedule: schedule,
		Run:      store.DeactivateExpiredCoupons,
	}
}

func TokenPurgeJob(schedule string, purger TokenPurger) Job {
	return Job{
		Name:     JobTokenPurge,
		Schedule: schedule,
		Run:      purger.PurgeExpiredTokens,
	}
}
