// AngelaMos | 2026
// loop.go

package console

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/carterperez-dev/reseller-console/internal/analytics"
	"github.com/carterperez-dev/reseller-console/internal/core"
	"github.com/carterperez-dev/reseller-console/internal/coupon"
	"github.com/carterperez-dev/reseller-console/internal/member"
	"github.com/carterperez-dev/reseller-console/internal/offer"
	"github.com/carterperez-dev/reseller-console/internal/order"
	"github.com/carterperez-dev/reseller-console/internal/plan"
)

const DefaultRefreshInterval = 3 * time.Second

var ErrAlreadyMounted = errors.New("console already mounted")

// Store is the backing store the console reads from and writes through.
type Store interface {
	Reconcile(ctx context.Context) error

	ListUsers(ctx context.Context) ([]member.Member, error)
	ListOrders(ctx context.Context) ([]order.Order, error)
	ListOffers(ctx context.Context) ([]offer.SpecialOffer, error)
	ListCoupons(ctx context.Context) ([]coupon.Coupon, error)
	ListPlans(ctx context.Context) ([]plan.Plan, error)
	AnalyticsSnapshot(ctx context.Context) (*analytics.Snapshot, error)

	SetUserMembership(ctx context.Context, id, membershipType string) error
	ConfirmOrder(ctx context.Context, ref string) (bool, error)
	ResetOrder(ctx context.Context, id string) error
	DeleteOrder(ctx context.Context, id string) error
	CreateOffer(ctx context.Context, o *offer.SpecialOffer) error
	ToggleOffer(ctx context.Context, id string) error
	DeleteOffer(ctx context.Context, id string) error
	CreateCoupon(ctx context.Context, c *coupon.Coupon) error
	ToggleCoupon(ctx context.Context, id string) error
	ResetCouponUsage(ctx context.Context, id string) error
	DeleteCoupon(ctx context.Context, id string) error
	CreatePlan(ctx context.Context, p *plan.Plan) error
	UpdatePlan(ctx context.Context, p *plan.Plan) error
	DeletePlan(ctx context.Context, id string) error
}

// Snapshot is one consistent view of the backing store. Consumers must
// treat it as read-only; the loop replaces snapshots, it never edits them.
type Snapshot struct {
	Users         []member.Member      `json:"users"`
	Orders        []order.Order        `json:"orders"`
	SpecialOffers []offer.SpecialOffer `json:"specialOffers"`
	Coupons       []coupon.Coupon      `json:"coupons"`
	Plans         []plan.Plan          `json:"plans"`
	Analytics     *analytics.Snapshot  `json:"analytics"`
	Generation    uint64               `json:"generation"`
	LoadedAt      time.Time            `json:"loadedAt"`
}

type Config struct {
	Store    Store
	Interval time.Duration
	Logger   *slog.Logger
}

// Loop keeps a snapshot of the backing store current while mounted. All
// refreshes (periodic, manual and post-mutation) are serialized.
type Loop struct {
	store    Store
	interval time.Duration
	logger   *slog.Logger

	refreshMu  sync.Mutex
	generation uint64

	mu       sync.RWMutex
	snapshot Snapshot
	mounted  bool
	cancel   context.CancelFunc
	done     chan struct{}

	subsMu  sync.Mutex
	subs    map[uint64]chan Snapshot
	nextSub uint64
}

func NewLoop(cfg Config) *Loop {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultRefreshInterval
	}
	return &Loop{
		store:    cfg.Store,
		interval: cfg.Interval,
		logger:   cfg.Logger,
		subs:     make(map[uint64]chan Snapshot),
	}
}

// Mount performs the initial refresh and starts the periodic trigger. The
// trigger stops when ctx is cancelled or Unmount is called.
func (l *Loop) Mount(ctx context.Context) error {
	l.mu.Lock()
	if l.mounted {
		l.mu.Unlock()
		return ErrAlreadyMounted
	}
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	l.mounted = true
	l.cancel = cancel
	l.done = done
	l.mu.Unlock()

	if err := l.Refresh(ctx); err != nil {
		l.logger.Warn("initial console refresh failed", "error", err)
	}

	go l.run(runCtx, done)

	l.logger.Info("console mounted", "interval", l.interval)
	return nil
}

// Unmount stops the periodic trigger and waits for it to exit. A refresh
// still in flight when Unmount returns is discarded.
func (l *Loop) Unmount() {
	l.mu.Lock()
	if !l.mounted {
		l.mu.Unlock()
		return
	}
	l.mounted = false
	cancel, done := l.cancel, l.done
	l.cancel, l.done = nil, nil
	l.mu.Unlock()

	cancel()
	<-done

	l.logger.Info("console unmounted")
}

func (l *Loop) Mounted() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.mounted
}

func (l *Loop) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			//nolint:errcheck // logged inside Refresh
			_ = l.Refresh(ctx)
		}
	}
}

// Refresh reconciles, reloads every collection and swaps the snapshot in.
// A reconcile failure is logged and the reload proceeds. A read failure
// keeps the previous snapshot and is returned.
func (l *Loop) Refresh(ctx context.Context) error {
	l.refreshMu.Lock()
	defer l.refreshMu.Unlock()

	ctx, span := core.StartSpan(ctx, "console.refresh")
	defer span.End()

	if err := l.store.Reconcile(ctx); err != nil {
		l.logger.Warn("reconcile failed", "error", err)
	}

	next, err := l.load(ctx)
	if err != nil {
		core.SetSpanError(ctx, err)
		l.logger.Warn("console refresh failed, keeping previous snapshot",
			"error", err,
			"generation", l.generation,
		)
		return err
	}

	l.mu.Lock()
	if !l.mounted {
		l.mu.Unlock()
		l.logger.Debug("discarding refresh after unmount")
		return nil
	}
	l.generation++
	next.Generation = l.generation
	l.snapshot = next
	l.mu.Unlock()

	span.SetAttributes(
		attribute.Int64("console.generation", int64(next.Generation)),
		attribute.Int("console.orders", len(next.Orders)),
	)

	l.publish(next)
	return nil
}

func (l *Loop) load(ctx context.Context) (Snapshot, error) {
	var (
		s   Snapshot
		err error
	)

	if s.Users, err = l.store.ListUsers(ctx); err != nil {
		return Snapshot{}, err
	}
	if s.Orders, err = l.store.ListOrders(ctx); err != nil {
		return Snapshot{}, err
	}
	if s.SpecialOffers, err = l.store.ListOffers(ctx); err != nil {
		return Snapshot{}, err
	}
	if s.Coupons, err = l.store.ListCoupons(ctx); err != nil {
		return Snapshot{}, err
	}
	if s.Plans, err = l.store.ListPlans(ctx); err != nil {
		return Snapshot{}, err
	}
	if s.Analytics, err = l.store.AnalyticsSnapshot(ctx); err != nil {
		return Snapshot{}, err
	}

	s.LoadedAt = time.Now().UTC()
	return s, nil
}

// Snapshot returns the most recently applied snapshot.
func (l *Loop) Snapshot() Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.snapshot
}

// Subscribe delivers every applied snapshot. A slow subscriber only ever
// sees the latest one. The returned func unsubscribes and closes the
// channel.
func (l *Loop) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)

	l.subsMu.Lock()
	if current := l.Snapshot(); current.Generation > 0 {
		ch <- current
	}
	id := l.nextSub
	l.nextSub++
	l.subs[id] = ch
	l.subsMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			l.subsMu.Lock()
			delete(l.subs, id)
			l.subsMu.Unlock()
			close(ch)
		})
	}
}

func (l *Loop) publish(s Snapshot) {
	l.subsMu.Lock()
	defer l.subsMu.Unlock()

	for _, ch := range l.subs {
		select {
		case ch <- s:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- s:
		default:
		}
	}
}
