// AngelaMos | 2026
// fake_store_test.go

package console

import (
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/carterperez-dev/reseller-console/internal/analytics"
	"github.com/carterperez-dev/reseller-console/internal/core"
	"github.com/carterperez-dev/reseller-console/internal/coupon"
	"github.com/carterperez-dev/reseller-console/internal/member"
	"github.com/carterperez-dev/reseller-console/internal/offer"
	"github.com/carterperez-dev/reseller-console/internal/order"
	"github.com/carterperez-dev/reseller-console/internal/plan"
)

var errBackendDown = errors.New("backend down")

type memStore struct {
	mu      sync.Mutex
	users   []member.Member
	orders  []order.Order
	offers  []offer.SpecialOffer
	coupons []coupon.Coupon
	plans   []plan.Plan

	readErr      error
	reconcileErr error
	readGate     chan struct{}

	reconciles atomic.Int32
	reads      atomic.Int32
	writes     atomic.Int32
}

func newMemStore() *memStore {
	return &memStore{
		users: []member.Member{
			{ID: "u1", Username: "alex", MembershipType: member.MembershipNormal, DeviceInfo: member.DeviceDesktop},
			{ID: "u2", Username: "sam", MembershipType: member.MembershipPremium, DeviceInfo: member.DeviceMobile},
		},
		orders: []order.Order{
			{ID: "o1", OrderID: "ORD-1001", Type: "minecraft", PlanName: "Dirt", Status: order.StatusPending},
			{ID: "o2", OrderID: "ORD-1002", Type: "vps", PlanName: "VPS-1", Status: order.StatusConfirmed},
		},
		offers: []offer.SpecialOffer{
			{ID: "so1", Type: offer.TypeMinecraft, PlanName: "Dirt", OriginalPrice: "₹100", DiscountPrice: "₹80", DiscountPercentage: 20, IsActive: true},
		},
		coupons: []coupon.Coupon{
			{ID: "c1", Code: "WELCOME", DiscountType: coupon.DiscountPercentage, DiscountValue: 10, UsageLimit: 100, UsedCount: 7, ExpiryDate: "2030-01-01", IsActive: true},
		},
		plans: []plan.Plan{
			{ID: "p1", Type: plan.DefaultType, Category: plan.DefaultCategory, Name: "Dirt", Price: "₹99", Specs: plan.Specs{"ram": "2GB"}, IsActive: true},
		},
	}
}

func (m *memStore) Reconcile(context.Context) error {
	m.reconciles.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reconcileErr
}

func (m *memStore) setReadErr(err error) {
	m.mu.Lock()
	m.readErr = err
	m.mu.Unlock()
}

func (m *memStore) read(ctx context.Context) error {
	m.reads.Add(1)
	m.mu.Lock()
	gate, err := m.readGate, m.readErr
	m.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (m *memStore) ListUsers(ctx context.Context) ([]member.Member, error) {
	if err := m.read(ctx); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.users), nil
}

func (m *memStore) ListOrders(context.Context) ([]order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.orders), nil
}

func (m *memStore) ListOffers(context.Context) ([]offer.SpecialOffer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.offers), nil
}

func (m *memStore) ListCoupons(context.Context) ([]coupon.Coupon, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.coupons), nil
}

func (m *memStore) ListPlans(context.Context) ([]plan.Plan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.plans), nil
}

func (m *memStore) AnalyticsSnapshot(context.Context) (*analytics.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := &analytics.Snapshot{
		TotalUsers:   len(m.users),
		TotalOrders:  len(m.orders),
		DeviceStats:  map[string]int{},
		OrdersByType: map[string]int{},
		GeneratedAt:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	for _, u := range m.users {
		if u.IsPremium() {
			s.PremiumUsers++
		}
		s.DeviceStats[u.DeviceInfo]++
	}
	for _, o := range m.orders {
		switch o.Status {
		case order.StatusPending:
			s.PendingOrders++
		case order.StatusConfirmed:
			s.ConfirmedOrders++
		}
		s.OrdersByType[o.Type]++
	}
	return s, nil
}

func (m *memStore) SetUserMembership(_ context.Context, id, t string) error {
	m.writes.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.users {
		if m.users[i].ID == id {
			m.users[i].MembershipType = t
			return nil
		}
	}
	return core.ErrNotFound
}

func (m *memStore) ConfirmOrder(_ context.Context, ref string) (bool, error) {
	m.writes.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.orders {
		if m.orders[i].ID == ref || m.orders[i].OrderID == ref {
			m.orders[i].Status = order.StatusConfirmed
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) ResetOrder(_ context.Context, id string) error {
	m.writes.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.orders {
		if m.orders[i].ID == id {
			m.orders[i].Status = order.StatusPending
			return nil
		}
	}
	return core.ErrNotFound
}

func (m *memStore) DeleteOrder(_ context.Context, id string) error {
	m.writes.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	return deleteByID(&m.orders, id, func(o order.Order) string { return o.ID })
}

func (m *memStore) CreateOffer(_ context.Context, o *offer.SpecialOffer) error {
	m.writes.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.offers = append(m.offers, *o)
	return nil
}

func (m *memStore) ToggleOffer(_ context.Context, id string) error {
	m.writes.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.offers {
		if m.offers[i].ID == id {
			m.offers[i].IsActive = !m.offers[i].IsActive
			return nil
		}
	}
	return core.ErrNotFound
}

func (m *memStore) DeleteOffer(_ context.Context, id string) error {
	m.writes.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	return deleteByID(&m.offers, id, func(o offer.SpecialOffer) string { return o.ID })
}

func (m *memStore) CreateCoupon(_ context.Context, c *coupon.Coupon) error {
	m.writes.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.coupons {
		if existing.Code == c.Code {
			return core.ErrDuplicateKey
		}
	}
	m.coupons = append(m.coupons, *c)
	return nil
}

func (m *memStore) ToggleCoupon(_ context.Context, id string) error {
	m.writes.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.coupons {
		if m.coupons[i].ID == id {
			m.coupons[i].IsActive = !m.coupons[i].IsActive
			return nil
		}
	}
	return core.ErrNotFound
}

func (m *memStore) ResetCouponUsage(_ context.Context, id string) error {
	m.writes.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.coupons {
		if m.coupons[i].ID == id {
			m.coupons[i].UsedCount = 0
			return nil
		}
	}
	return core.ErrNotFound
}

func (m *memStore) DeleteCoupon(_ context.Context, id string) error {
	m.writes.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	return deleteByID(&m.coupons, id, func(c coupon.Coupon) string { return c.ID })
}

func (m *memStore) CreatePlan(_ context.Context, p *plan.Plan) error {
	m.writes.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.plans = append(m.plans, *p)
	return nil
}

func (m *memStore) UpdatePlan(_ context.Context, p *plan.Plan) error {
	m.writes.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.plans {
		if m.plans[i].ID == p.ID {
			m.plans[i] = *p
			return nil
		}
	}
	return core.ErrNotFound
}

func (m *memStore) DeletePlan(_ context.Context, id string) error {
	m.writes.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	return deleteByID(&m.plans, id, func(p plan.Plan) string { return p.ID })
}

func deleteByID[T any](items *[]T, id string, key func(T) string) error {
	i := slices.IndexFunc(*items, func(v T) bool { return key(v) == id })
	if i < 0 {
		return core.ErrNotFound
	}
	*items = slices.Delete(*items, i, i+1)
	return nil
}
