// AngelaMos | 2026
// snapshot.go

package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/carterperez-dev/reseller-console/internal/core"
)

// Snapshot is the derived dashboard view. DeviceStats counts members by
// device category; OrdersByType counts orders by product type.
type Snapshot struct {
	TotalUsers      int            `json:"totalUsers"      yaml:"totalUsers"`
	PremiumUsers    int            `json:"premiumUsers"    yaml:"premiumUsers"`
	TotalOrders     int            `json:"totalOrders"     yaml:"totalOrders"`
	PendingOrders   int            `json:"pendingOrders"   yaml:"pendingOrders"`
	ConfirmedOrders int            `json:"confirmedOrders" yaml:"confirmedOrders"`
	DeviceStats     map[string]int `json:"deviceStats"     yaml:"deviceStats"`
	OrdersByType    map[string]int `json:"ordersByType"    yaml:"ordersByType"`
	GeneratedAt     time.Time      `json:"generatedAt"     yaml:"generatedAt"`
}

type Repository interface {
	Snapshot(ctx context.Context) (*Snapshot, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

type bucket struct {
	Key   string `db:"key"`
	Count int    `db:"count"`
}

func (r *repository) Snapshot(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{
		DeviceStats:  map[string]int{},
		OrdersByType: map[string]int{},
		GeneratedAt:  time.Now().UTC(),
	}

	var members struct {
		Total   int `db:"total"`
		Premium int `db:"premium"`
	}
	if err := r.db.GetContext(ctx, &members, `
		SELECT COUNT(*) AS total,
		       COUNT(*) FILTER (WHERE membership_type = 'premium') AS premium
		FROM members`); err != nil {
		return nil, fmt.Errorf("count members: %w", err)
	}
	snap.TotalUsers = members.Total
	snap.PremiumUsers = members.Premium

	var orders struct {
		Total     int `db:"total"`
		Pending   int `db:"pending"`
		Confirmed int `db:"confirmed"`
	}
	if err := r.db.GetContext(ctx, &orders, `
		SELECT COUNT(*) AS total,
		       COUNT(*) FILTER (WHERE status = 'pending') AS pending,
		       COUNT(*) FILTER (WHERE status = 'confirmed') AS confirmed
		FROM orders`); err != nil {
		return nil, fmt.Errorf("count orders: %w", err)
	}
	snap.TotalOrders = orders.Total
	snap.PendingOrders = orders.Pending
	snap.ConfirmedOrders = orders.Confirmed

	var devices []bucket
	if err := r.db.SelectContext(ctx, &devices, `
		SELECT device_info AS key, COUNT(*) AS count
		FROM members
		GROUP BY device_info`); err != nil {
		return nil, fmt.Errorf("count devices: %w", err)
	}
	for _, b := range devices {
		snap.DeviceStats[b.Key] = b.Count
	}

	var types []bucket
	if err := r.db.SelectContext(ctx, &types, `
		SELECT type AS key, COUNT(*) AS count
		FROM orders
		GROUP BY type`); err != nil {
		return nil, fmt.Errorf("count order types: %w", err)
	}
	for _, b := range types {
		snap.OrdersByType[b.Key] = b.Count
	}

	return snap, nil
}
