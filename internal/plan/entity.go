// AngelaMos | 2026
// entity.go

package plan

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

const (
	TypeMinecraft = "minecraft"
	TypeVPS       = "vps"
	TypeDomain    = "domain"

	DefaultType     = TypeMinecraft
	DefaultCategory = "budget"
)

func ValidType(t string) bool {
	switch t {
	case TypeMinecraft, TypeVPS, TypeDomain:
		return true
	}
	return false
}

type Plan struct {
	ID        string    `db:"id"         json:"id"        yaml:"id"`
	Type      string    `db:"type"       json:"type"      yaml:"type"`
	Category  string    `db:"category"   json:"category"  yaml:"category"`
	Name      string    `db:"name"       json:"name"      yaml:"name"`
	Price     string    `db:"price"      json:"price"     yaml:"price"`
	Specs     Specs     `db:"specs"      json:"specs"     yaml:"specs"`
	IsActive  bool      `db:"is_active"  json:"isActive"  yaml:"isActive"`
	CreatedAt time.Time `db:"created_at" json:"createdAt" yaml:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt" yaml:"updatedAt"`
}

// Specs is the plan's free-form feature sheet, stored as JSONB.
type Specs map[string]any

func (s Specs) Value() (driver.Value, error) {
	if s == nil {
		return []byte("{}"), nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode specs: %w", err)
	}
	return b, nil
}

func (s *Specs) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*s = Specs{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("scan specs: unsupported type %T", src)
	}

	out := Specs{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("decode specs: %w", err)
	}
	*s = out
	return nil
}
