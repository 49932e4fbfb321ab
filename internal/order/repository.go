// AngelaMos | 2026
// repository.go

package order

import (
	"context"
	"fmt"

	"github.com/carterperez-dev/reseller-console/internal/core"
)

type Repository interface {
	List(ctx context.Context) ([]Order, error)
	Create(ctx context.Context, o *Order) error
	Confirm(ctx context.Context, ref string) (bool, error)
	Reset(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) List(ctx context.Context) ([]Order, error) {
	query := `
		SELECT id, order_id, member_id, type, plan_name, status, device_info, created_at
		FROM orders
		ORDER BY created_at DESC`

	orders := []Order{}
	if err := r.db.SelectContext(ctx, &orders, query); err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	return orders, nil
}

func (r *repository) Create(ctx context.Context, o *Order) error {
	query := `
		INSERT INTO orders (id, order_id, member_id, type, plan_name, status, device_info)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`

	if o.Status == "" {
		o.Status = StatusPending
	}

	err := r.db.GetContext(ctx, &o.CreatedAt, query,
		o.ID,
		o.OrderID,
		o.MemberID,
		o.Type,
		o.PlanName,
		o.Status,
		o.DeviceInfo,
	)
	if err != nil {
		if core.IsDuplicateKeyError(err) {
			return fmt.Errorf("create order: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("create order: %w", err)
	}

	return nil
}

// Confirm matches ref against either the internal id or the human order id.
// It reports false, without error, when nothing matched.
func (r *repository) Confirm(ctx context.Context, ref string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET status = $2
		WHERE id = $1 OR order_id = $1`,
		ref, StatusConfirmed)
	if err != nil {
		return false, fmt.Errorf("confirm order: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("confirm order: %w", err)
	}

	return rows > 0, nil
}

func (r *repository) Reset(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE orders SET status = $2 WHERE id = $1`,
		id, StatusPending)
	if err != nil {
		return fmt.Errorf("reset order: %w", err)
	}

	return core.RowsAffectedOrNotFound(result, "reset order")
}

func (r *repository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}

	return core.RowsAffectedOrNotFound(result, "delete order")
}
