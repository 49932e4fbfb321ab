// AngelaMos | 2026
// repository.go

package coupon

import (
	"context"
	"fmt"

	"github.com/carterperez-dev/reseller-console/internal/core"
)

type Repository interface {
	List(ctx context.Context) ([]Coupon, error)
	Create(ctx context.Context, c *Coupon) error
	Toggle(ctx context.Context, id string) error
	ResetUsage(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	DeactivateExpired(ctx context.Context) (int64, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) List(ctx context.Context) ([]Coupon, error) {
	query := `
		SELECT id, code, discount_type, discount_value, usage_limit, used_count,
		       to_char(expiry_date, 'YYYY-MM-DD') AS expiry_date,
		       is_active, created_at
		FROM coupons
		ORDER BY created_at DESC`

	coupons := []Coupon{}
	if err := r.db.SelectContext(ctx, &coupons, query); err != nil {
		return nil, fmt.Errorf("list coupons: %w", err)
	}

	return coupons, nil
}

func (r *repository) Create(ctx context.Context, c *Coupon) error {
	query := `
		INSERT INTO coupons (
			id, code, discount_type, discount_value, usage_limit,
			used_count, expiry_date, is_active
		) VALUES ($1, $2, $3, $4, $5, $6, $7::date, $8)
		RETURNING created_at`

	err := r.db.GetContext(ctx, &c.CreatedAt, query,
		c.ID,
		c.Code,
		c.DiscountType,
		c.DiscountValue,
		c.UsageLimit,
		c.UsedCount,
		c.ExpiryDate,
		c.IsActive,
	)
	if err != nil {
		if core.IsDuplicateKeyError(err) {
			return fmt.Errorf("create coupon: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("create coupon: %w", err)
	}

	return nil
}

func (r *repository) Toggle(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE coupons SET is_active = NOT is_active WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("toggle coupon: %w", err)
	}

	return core.RowsAffectedOrNotFound(result, "toggle coupon")
}

func (r *repository) ResetUsage(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE coupons SET used_count = 0 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("reset coupon usage: %w", err)
	}

	return core.RowsAffectedOrNotFound(result, "reset coupon usage")
}

func (r *repository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM coupons WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete coupon: %w", err)
	}

	return core.RowsAffectedOrNotFound(result, "delete coupon")
}

// DeactivateExpired switches off active coupons whose expiry date has
// passed and returns how many changed.
func (r *repository) DeactivateExpired(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE coupons
		SET is_active = false
		WHERE is_active AND expiry_date < CURRENT_DATE`)
	if err != nil {
		return 0, fmt.Errorf("deactivate expired coupons: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("deactivate expired coupons: %w", err)
	}

	return rows, nil
}
