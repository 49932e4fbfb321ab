// AngelaMos | 2026
// store.go

package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/carterperez-dev/reseller-console/internal/analytics"
	"github.com/carterperez-dev/reseller-console/internal/coupon"
	"github.com/carterperez-dev/reseller-console/internal/member"
	"github.com/carterperez-dev/reseller-console/internal/offer"
	"github.com/carterperez-dev/reseller-console/internal/order"
	"github.com/carterperez-dev/reseller-console/internal/plan"
)

// SyncVersionKey is bumped by every replica after a write. Readers compare
// it with the version their cache was filled under.
const SyncVersionKey = "console:sync:version"

type Repositories struct {
	Members   member.Repository
	Orders    order.Repository
	Offers    offer.Repository
	Coupons   coupon.Repository
	Plans     plan.Repository
	Analytics analytics.Repository

	// Tx groups multi-step writes. Without it the steps run one by one.
	Tx TxFunc
}

// Store is the backing store behind the console: Postgres repositories
// with a per-process read cache invalidated through a Redis sync version.
type Store struct {
	repos  Repositories
	redis  *redis.Client
	logger *slog.Logger

	mu      sync.Mutex
	version int64
	epoch   uint64
	cache   readCache
}

func New(repos Repositories, rdb *redis.Client, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		repos:  repos,
		redis:  rdb,
		logger: logger,
	}
}

// Reconcile pulls other writers' changes by comparing sync versions. When
// Redis is unreachable the cache is dropped, so the following reads go to
// Postgres, and the error is returned for the caller to log.
func (s *Store) Reconcile(ctx context.Context) error {
	remote, err := s.redis.Get(ctx, SyncVersionKey).Int64()
	if errors.Is(err, redis.Nil) {
		remote, err = 0, nil
	}
	if err != nil {
		s.invalidate()
		return fmt.Errorf("reconcile: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if remote != s.version {
		s.logger.Debug("sync version changed",
			"local", s.version,
			"remote", remote,
		)
		s.version = remote
		s.dropLocked()
	}

	return nil
}

// Version is the sync version the cache currently reflects.
func (s *Store) Version() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

func (s *Store) ListUsers(ctx context.Context) ([]member.Member, error) {
	return readThrough(ctx, s,
		func(c *readCache) *[]member.Member { return &c.members },
		s.repos.Members.List)
}

// GetUser reads a single member straight from the repository.
func (s *Store) GetUser(ctx context.Context, id string) (*member.Member, error) {
	return s.repos.Members.GetByID(ctx, id)
}

func (s *Store) ListOrders(ctx context.Context) ([]order.Order, error) {
	return readThrough(ctx, s,
		func(c *readCache) *[]order.Order { return &c.orders },
		s.repos.Orders.List)
}

func (s *Store) ListOffers(ctx context.Context) ([]offer.SpecialOffer, error) {
	return readThrough(ctx, s,
		func(c *readCache) *[]offer.SpecialOffer { return &c.offers },
		s.repos.Offers.List)
}

func (s *Store) ListCoupons(ctx context.Context) ([]coupon.Coupon, error) {
	return readThrough(ctx, s,
		func(c *readCache) *[]coupon.Coupon { return &c.coupons },
		s.repos.Coupons.List)
}

func (s *Store) ListPlans(ctx context.Context) ([]plan.Plan, error) {
	return readThrough(ctx, s,
		func(c *readCache) *[]plan.Plan { return &c.plans },
		s.repos.Plans.List)
}

func (s *Store) AnalyticsSnapshot(ctx context.Context) (*analytics.Snapshot, error) {
	s.mu.Lock()
	if s.cache.analytics != nil {
		out := cloneSnapshot(s.cache.analytics)
		s.mu.Unlock()
		return out, nil
	}
	epoch := s.epoch
	s.mu.Unlock()

	snap, err := s.repos.Analytics.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.epoch == epoch {
		s.cache.analytics = cloneSnapshot(snap)
	}
	s.mu.Unlock()

	return snap, nil
}

func (s *Store) SetUserMembership(ctx context.Context, id, membershipType string) error {
	return s.write(ctx, func() error {
		return s.repos.Members.SetMembership(ctx, id, membershipType)
	})
}

// ConfirmOrder reports false when ref matches no order. Nothing is written
// in that case, so the sync version is left alone.
func (s *Store) ConfirmOrder(ctx context.Context, ref string) (bool, error) {
	found, err := s.repos.Orders.Confirm(ctx, ref)
	if err != nil {
		return false, err
	}
	if found {
		s.bump(ctx)
	}
	return found, nil
}

func (s *Store) ResetOrder(ctx context.Context, id string) error {
	return s.write(ctx, func() error { return s.repos.Orders.Reset(ctx, id) })
}

func (s *Store) DeleteOrder(ctx context.Context, id string) error {
	return s.write(ctx, func() error { return s.repos.Orders.Delete(ctx, id) })
}

func (s *Store) CreateOffer(ctx context.Context, o *offer.SpecialOffer) error {
	return s.write(ctx, func() error { return s.repos.Offers.Create(ctx, o) })
}

func (s *Store) ToggleOffer(ctx context.Context, id string) error {
	return s.write(ctx, func() error { return s.repos.Offers.Toggle(ctx, id) })
}

func (s *Store) DeleteOffer(ctx context.Context, id string) error {
	return s.write(ctx, func() error { return s.repos.Offers.Delete(ctx, id) })
}

func (s *Store) CreateCoupon(ctx context.Context, c *coupon.Coupon) error {
	return s.write(ctx, func() error { return s.repos.Coupons.Create(ctx, c) })
}

func (s *Store) ToggleCoupon(ctx context.Context, id string) error {
	return s.write(ctx, func() error { return s.repos.Coupons.Toggle(ctx, id) })
}

func (s *Store) ResetCouponUsage(ctx context.Context, id string) error {
	return s.write(ctx, func() error { return s.repos.Coupons.ResetUsage(ctx, id) })
}

func (s *Store) DeleteCoupon(ctx context.Context, id string) error {
	return s.write(ctx, func() error { return s.repos.Coupons.Delete(ctx, id) })
}

// DeactivateExpiredCoupons only bumps the sync version when a coupon
// actually changed.
func (s *Store) DeactivateExpiredCoupons(ctx context.Context) (int64, error) {
	n, err := s.repos.Coupons.DeactivateExpired(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.bump(ctx)
	}
	return n, nil
}

func (s *Store) CreatePlan(ctx context.Context, p *plan.Plan) error {
	return s.write(ctx, func() error { return s.repos.Plans.Create(ctx, p) })
}

func (s *Store) UpdatePlan(ctx context.Context, p *plan.Plan) error {
	return s.write(ctx, func() error { return s.repos.Plans.Update(ctx, p) })
}

func (s *Store) DeletePlan(ctx context.Context, id string) error {
	return s.write(ctx, func() error { return s.repos.Plans.Delete(ctx, id) })
}

// PlaceOrder records a storefront order and refreshes the buyer's member
// record in one transaction. Without a transaction a failed order can leave
// the member written, so any attempted step bumps the sync version.
func (s *Store) PlaceOrder(ctx context.Context, m *member.Member, o *order.Order) error {
	run := s.repos.Tx
	if run == nil {
		run = s.direct
	}

	var touched bool
	err := run(ctx, func(tx Repositories) error {
		if err := tx.Members.Touch(ctx, m); err != nil {
			return err
		}
		touched = true
		return tx.Orders.Create(ctx, o)
	})
	if touched {
		s.bump(ctx)
	}
	return err
}

func (s *Store) write(ctx context.Context, fn func() error) error {
	if err := fn(); err != nil {
		return err
	}
	s.bump(ctx)
	return nil
}

// bump announces a write to every replica. A failed INCR only delays other
// replicas until their next successful reconcile; the local cache is
// dropped regardless.
func (s *Store) bump(ctx context.Context) {
	v, err := s.redis.Incr(ctx, SyncVersionKey).Result()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.dropLocked()
	if err != nil {
		s.logger.Warn("sync version bump failed", "error", err)
		return
	}
	s.version = v
}

func (s *Store) invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dropLocked()
}

func (s *Store) dropLocked() {
	s.cache = readCache{}
	s.epoch++
}
