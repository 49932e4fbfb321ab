// AngelaMos | 2026
// entity.go

package coupon

import (
	"time"
)

const (
	DiscountPercentage = "percentage"
	DiscountFixed      = "fixed"
)

const DefaultUsageLimit = 100

// DateLayout is the form ExpiryDate is stored and exchanged in.
const DateLayout = time.DateOnly

type Coupon struct {
	ID            string    `db:"id"             json:"id"            yaml:"id"`
	Code          string    `db:"code"           json:"code"          yaml:"code"`
	DiscountType  string    `db:"discount_type"  json:"discountType"  yaml:"discountType"`
	DiscountValue float64   `db:"discount_value" json:"discountValue" yaml:"discountValue"`
	UsageLimit    int       `db:"usage_limit"    json:"usageLimit"    yaml:"usageLimit"`
	UsedCount     int       `db:"used_count"     json:"usedCount"     yaml:"usedCount"`
	ExpiryDate    string    `db:"expiry_date"    json:"expiryDate"    yaml:"expiryDate"`
	IsActive      bool      `db:"is_active"      json:"isActive"      yaml:"isActive"`
	CreatedAt     time.Time `db:"created_at"     json:"createdAt"     yaml:"createdAt"`
}

// NormalizeExpiry accepts a date or an RFC 3339 timestamp and returns the
// date part. The boolean is false for anything else.
func NormalizeExpiry(s string) (string, bool) {
	if d, err := time.Parse(DateLayout, s); err == nil {
		return d.Format(DateLayout), true
	}
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts.Format(DateLayout), true
	}
	return "", false
}

func ValidDiscountType(t string) bool {
	return t == DiscountPercentage || t == DiscountFixed
}
