// AngelaMos | 2026
// repository.go

package member

import (
	"context"
	"fmt"

	"github.com/carterperez-dev/reseller-console/internal/core"
)

type Repository interface {
	List(ctx context.Context) ([]Member, error)
	GetByID(ctx context.Context, id string) (*Member, error)
	Touch(ctx context.Context, m *Member) error
	SetMembership(ctx context.Context, id, membershipType string) error
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

const memberColumns = `id, username, email, membership_type, last_seen, device_info, created_at`

func (r *repository) List(ctx context.Context) ([]Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members ORDER BY created_at DESC`

	members := []Member{}
	if err := r.db.SelectContext(ctx, &members, query); err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}

	return members, nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*Member, error) {
	var m Member
	err := r.db.GetContext(ctx, &m,
		`SELECT `+memberColumns+` FROM members WHERE id = $1`, id)
	if err != nil {
		return nil, core.NoRows(err, "get member")
	}
	return &m, nil
}

// Touch inserts the member on first sight and otherwise refreshes
// last_seen and device_info. Membership type is never changed here.
func (r *repository) Touch(ctx context.Context, m *Member) error {
	query := `
		INSERT INTO members (id, username, email, membership_type, device_info)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET last_seen = NOW(), device_info = EXCLUDED.device_info
		RETURNING membership_type, last_seen, created_at`

	if m.MembershipType == "" {
		m.MembershipType = MembershipNormal
	}

	err := r.db.QueryRowxContext(ctx, query,
		m.ID,
		m.Username,
		m.Email,
		m.MembershipType,
		m.DeviceInfo,
	).Scan(&m.MembershipType, &m.LastSeen, &m.CreatedAt)
	if err != nil {
		return fmt.Errorf("touch member: %w", err)
	}

	return nil
}

func (r *repository) SetMembership(
	ctx context.Context,
	id, membershipType string,
) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE members SET membership_type = $2 WHERE id = $1`,
		id, membershipType)
	if err != nil {
		return fmt.Errorf("set membership: %w", err)
	}

	return core.RowsAffectedOrNotFound(result, "set membership")
}
