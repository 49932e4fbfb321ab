// AngelaMos | 2026
// repository.go

package offer

import (
	"context"
	"fmt"

	"github.com/carterperez-dev/reseller-console/internal/core"
)

type Repository interface {
	List(ctx context.Context) ([]SpecialOffer, error)
	Create(ctx context.Context, o *SpecialOffer) error
	Toggle(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) List(ctx context.Context) ([]SpecialOffer, error) {
	query := `
		SELECT id, type, plan_name, original_price, discount_price,
		       discount_percentage, is_active, created_at
		FROM special_offers
		ORDER BY created_at DESC`

	offers := []SpecialOffer{}
	if err := r.db.SelectContext(ctx, &offers, query); err != nil {
		return nil, fmt.Errorf("list offers: %w", err)
	}

	return offers, nil
}

func (r *repository) Create(ctx context.Context, o *SpecialOffer) error {
	query := `
		INSERT INTO special_offers (
			id, type, plan_name, original_price, discount_price,
			discount_percentage, is_active
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`

	err := r.db.GetContext(ctx, &o.CreatedAt, query,
		o.ID,
		o.Type,
		o.PlanName,
		o.OriginalPrice,
		o.DiscountPrice,
		o.DiscountPercentage,
		o.IsActive,
	)
	if err != nil {
		return fmt.Errorf("create offer: %w", err)
	}

	return nil
}

func (r *repository) Toggle(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE special_offers SET is_active = NOT is_active WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("toggle offer: %w", err)
	}

	return core.RowsAffectedOrNotFound(result, "toggle offer")
}

func (r *repository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM special_offers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete offer: %w", err)
	}

	return core.RowsAffectedOrNotFound(result, "delete offer")
}
