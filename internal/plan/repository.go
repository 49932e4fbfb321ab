// AngelaMos | 2026
// repository.go

package plan

import (
	"context"
	"fmt"

	"github.com/carterperez-dev/reseller-console/internal/core"
)

type Repository interface {
	List(ctx context.Context) ([]Plan, error)
	Create(ctx context.Context, p *Plan) error
	Update(ctx context.Context, p *Plan) error
	Delete(ctx context.Context, id string) error
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) List(ctx context.Context) ([]Plan, error) {
	query := `
		SELECT id, type, category, name, price, specs, is_active,
		       created_at, updated_at
		FROM plans
		ORDER BY type, category, name`

	plans := []Plan{}
	if err := r.db.SelectContext(ctx, &plans, query); err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}

	return plans, nil
}

func (r *repository) Create(ctx context.Context, p *Plan) error {
	query := `
		INSERT INTO plans (id, type, category, name, price, specs, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`

	err := r.db.QueryRowxContext(ctx, query,
		p.ID,
		p.Type,
		p.Category,
		p.Name,
		p.Price,
		p.Specs,
		p.IsActive,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create plan: %w", err)
	}

	return nil
}

// Update replaces every editable field of an existing plan.
func (r *repository) Update(ctx context.Context, p *Plan) error {
	query := `
		UPDATE plans
		SET type = $2, category = $3, name = $4, price = $5, specs = $6,
		    is_active = $7, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	err := r.db.GetContext(ctx, &p.UpdatedAt, query,
		p.ID,
		p.Type,
		p.Category,
		p.Name,
		p.Price,
		p.Specs,
		p.IsActive,
	)
	if err != nil {
		return core.NoRows(err, "update plan")
	}

	return nil
}

func (r *repository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM plans WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete plan: %w", err)
	}

	return core.RowsAffectedOrNotFound(result, "delete plan")
}
