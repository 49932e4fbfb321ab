// AngelaMos | 2026
// entity.go

package order

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
)

const orderIDPrefix = "ORD-"

type Order struct {
	ID         string    `db:"id"          json:"id"         yaml:"id"`
	OrderID    string    `db:"order_id"    json:"orderId"    yaml:"orderId"`
	MemberID   string    `db:"member_id"   json:"memberId"   yaml:"memberId"`
	Type       string    `db:"type"        json:"type"       yaml:"type"`
	PlanName   string    `db:"plan_name"   json:"planName"   yaml:"planName"`
	Status     string    `db:"status"      json:"status"     yaml:"status"`
	DeviceInfo string    `db:"device_info" json:"deviceInfo" yaml:"deviceInfo"`
	CreatedAt  time.Time `db:"created_at"  json:"createdAt"  yaml:"createdAt"`
}

// NewOrderID returns a human-facing order reference. ULIDs sort by creation
// time, so references read in placement order.
func NewOrderID(now time.Time) string {
	return orderIDPrefix + ulid.MustNew(ulid.Timestamp(now), rand.Reader).String()
}
