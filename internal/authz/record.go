// AngelaMos | 2026
// record.go

package authz

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/carterperez-dev/reseller-console/internal/core"
)

type RoleRecord struct {
	IdentityID string    `db:"identity_id" json:"identity_id"`
	Role       string    `db:"role"        json:"role"`
	UpdatedAt  time.Time `db:"updated_at"  json:"updated_at"`
}

// RecordStore is the role metadata lookup. GetRoleRecord returns
// core.ErrNotFound when the identity has no record.
type RecordStore interface {
	GetRoleRecord(ctx context.Context, identityID string) (*RoleRecord, error)
	PutRoleRecord(ctx context.Context, identityID, role string) (*RoleRecord, error)
	DeleteRoleRecord(ctx context.Context, identityID string) error
}

type recordRepository struct {
	db core.DBTX
}

func NewRecordStore(db core.DBTX) RecordStore {
	return &recordRepository{db: db}
}

func (r *recordRepository) GetRoleRecord(
	ctx context.Context,
	identityID string,
) (*RoleRecord, error) {
	query := `
		SELECT identity_id, role, updated_at
		FROM role_records
		WHERE identity_id = $1`

	var record RoleRecord
	err := r.db.GetContext(ctx, &record, query, identityID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get role record: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get role record: %w", err)
	}

	return &record, nil
}

func (r *recordRepository) PutRoleRecord(
	ctx context.Context,
	identityID, role string,
) (*RoleRecord, error) {
	query := `
		INSERT INTO role_records (identity_id, role, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (identity_id)
		DO UPDATE SET role = EXCLUDED.role, updated_at = NOW()
		RETURNING identity_id, role, updated_at`

	var record RoleRecord
	if err := r.db.GetContext(ctx, &record, query, identityID, role); err != nil {
		return nil, fmt.Errorf("put role record: %w", err)
	}

	return &record, nil
}

func (r *recordRepository) DeleteRoleRecord(
	ctx context.Context,
	identityID string,
) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM role_records WHERE identity_id = $1`, identityID)
	if err != nil {
		return fmt.Errorf("delete role record: %w", err)
	}

	return core.RowsAffectedOrNotFound(result, "delete role record")
}
