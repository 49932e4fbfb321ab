// AngelaMos | 2026
// entity.go

package member

import (
	"time"
)

const (
	MembershipNormal  = "normal"
	MembershipPremium = "premium"
)

// Member is a storefront customer record as shown on the users tab.
type Member struct {
	ID             string    `db:"id"              json:"id"             yaml:"id"`
	Username       string    `db:"username"        json:"username"       yaml:"username"`
	Email          string    `db:"email"           json:"email"          yaml:"email"`
	MembershipType string    `db:"membership_type" json:"membershipType" yaml:"membershipType"`
	LastSeen       time.Time `db:"last_seen"       json:"lastSeen"       yaml:"lastSeen"`
	DeviceInfo     string    `db:"device_info"     json:"deviceInfo"     yaml:"deviceInfo"`
	CreatedAt      time.Time `db:"created_at"      json:"createdAt"      yaml:"createdAt"`
}

func (m *Member) IsPremium() bool {
	return m.MembershipType == MembershipPremium
}

func ValidMembership(t string) bool {
	return t == MembershipNormal || t == MembershipPremium
}
