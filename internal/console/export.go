// AngelaMos | 2026
// export.go

package console

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/carterperez-dev/reseller-console/internal/coupon"
	"github.com/carterperez-dev/reseller-console/internal/member"
	"github.com/carterperez-dev/reseller-console/internal/offer"
	"github.com/carterperez-dev/reseller-console/internal/order"
	"github.com/carterperez-dev/reseller-console/internal/plan"
)

const DefaultExportPrefix = "console-backup"

type ExportFormat string

const (
	FormatJSON ExportFormat = "json"
	FormatYAML ExportFormat = "yaml"
)

func ParseExportFormat(s string) (ExportFormat, error) {
	switch s {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unsupported export format %q", s)
}

func (f ExportFormat) ContentType() string {
	if f == FormatYAML {
		return "application/yaml"
	}
	return "application/json"
}

// Backup is the downloadable copy of the console's collections.
type Backup struct {
	Users         []member.Member      `json:"users"         yaml:"users"`
	Orders        []order.Order        `json:"orders"        yaml:"orders"`
	SpecialOffers []offer.SpecialOffer `json:"specialOffers" yaml:"specialOffers"`
	Coupons       []coupon.Coupon      `json:"coupons"       yaml:"coupons"`
	Plans         []plan.Plan          `json:"plans"         yaml:"plans"`
	ExportDate    string               `json:"exportDate"    yaml:"exportDate"`
}

func NewBackup(s Snapshot, now time.Time) Backup {
	return Backup{
		Users:         nonNil(s.Users),
		Orders:        nonNil(s.Orders),
		SpecialOffers: nonNil(s.SpecialOffers),
		Coupons:       nonNil(s.Coupons),
		Plans:         nonNil(s.Plans),
		ExportDate:    now.UTC().Format(time.RFC3339),
	}
}

// ExportFilename is "<prefix>-YYYY-MM-DD.<ext>".
func ExportFilename(prefix string, f ExportFormat, now time.Time) string {
	if prefix == "" {
		prefix = DefaultExportPrefix
	}
	return fmt.Sprintf("%s-%s.%s", prefix, now.UTC().Format(time.DateOnly), f)
}

func WriteBackup(w io.Writer, b Backup, f ExportFormat) error {
	if f == FormatYAML {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(b); err != nil {
			return fmt.Errorf("encode yaml backup: %w", err)
		}
		return enc.Close()
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(b); err != nil {
		return fmt.Errorf("encode json backup: %w", err)
	}
	return nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
