// AngelaMos | 2026
// entity.go

package offer

import (
	"time"
)

const (
	TypeMinecraft = "minecraft"
	TypeVPS       = "vps"
	TypeDomain    = "domain"
)

// SpecialOffer prices are display strings exactly as the storefront shows
// them. DiscountPercentage is computed once at creation and never
// recomputed; there is no path that edits an offer's prices.
type SpecialOffer struct {
	ID                 string    `db:"id"                  json:"id"                 yaml:"id"`
	Type               string    `db:"type"                json:"type"               yaml:"type"`
	PlanName           string    `db:"plan_name"           json:"planName"           yaml:"planName"`
	OriginalPrice      string    `db:"original_price"      json:"originalPrice"      yaml:"originalPrice"`
	DiscountPrice      string    `db:"discount_price"      json:"discountPrice"      yaml:"discountPrice"`
	DiscountPercentage int       `db:"discount_percentage" json:"discountPercentage" yaml:"discountPercentage"`
	IsActive           bool      `db:"is_active"           json:"isActive"           yaml:"isActive"`
	CreatedAt          time.Time `db:"created_at"          json:"createdAt"          yaml:"createdAt"`
}

func ValidType(t string) bool {
	switch t {
	case TypeMinecraft, TypeVPS, TypeDomain:
		return true
	}
	return false
}
