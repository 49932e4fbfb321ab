// AngelaMos | 2026
// repository.go

package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/carterperez-dev/reseller-console/internal/core"
)

type IdentityRepository interface {
	Create(ctx context.Context, ident *Identity) error
	GetByID(ctx context.Context, id string) (*Identity, error)
	GetByEmail(ctx context.Context, email string) (*Identity, error)
}

type TokenRepository interface {
	Create(ctx context.Context, token *RefreshToken) error
	FindByHash(ctx context.Context, tokenHash string) (*RefreshToken, error)
	MarkAsUsed(ctx context.Context, id, replacedByID string) error
	RevokeByID(ctx context.Context, id string) error
	RevokeByFamilyID(ctx context.Context, familyID string) error
	DeleteExpired(ctx context.Context, olderThan time.Duration) (int64, error)
}

type identityRepository struct {
	db core.DBTX
}

func NewIdentityRepository(db core.DBTX) IdentityRepository {
	return &identityRepository{db: db}
}

func (r *identityRepository) Create(ctx context.Context, ident *Identity) error {
	query := `
		INSERT INTO identities (id, email, password_hash)
		VALUES ($1, $2, $3)
		RETURNING created_at, updated_at, token_version`

	err := r.db.QueryRowxContext(ctx, query,
		ident.ID,
		ident.Email,
		ident.PasswordHash,
	).Scan(&ident.CreatedAt, &ident.UpdatedAt, &ident.TokenVersion)
	if err != nil {
		if core.IsDuplicateKeyError(err) {
			return fmt.Errorf("create identity: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("create identity: %w", err)
	}

	return nil
}

const identityColumns = `id, email, password_hash, token_version, created_at, updated_at`

func (r *identityRepository) GetByID(
	ctx context.Context,
	id string,
) (*Identity, error) {
	var ident Identity
	err := r.db.GetContext(ctx, &ident,
		`SELECT `+identityColumns+` FROM identities WHERE id = $1`, id)
	if err != nil {
		return nil, core.NoRows(err, "get identity")
	}
	return &ident, nil
}

func (r *identityRepository) GetByEmail(
	ctx context.Context,
	email string,
) (*Identity, error) {
	var ident Identity
	err := r.db.GetContext(ctx, &ident,
		`SELECT `+identityColumns+` FROM identities WHERE email = $1`, email)
	if err != nil {
		return nil, core.NoRows(err, "get identity by email")
	}
	return &ident, nil
}

type tokenRepository struct {
	db core.DBTX
}

func NewTokenRepository(db core.DBTX) TokenRepository {
	return &tokenRepository{db: db}
}

func (r *tokenRepository) Create(ctx context.Context, token *RefreshToken) error {
	query := `
		INSERT INTO refresh_tokens (
			id, identity_id, token_hash, family_id, expires_at,
			user_agent, ip_address
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7
		)
		RETURNING created_at`

	err := r.db.GetContext(ctx, &token.CreatedAt, query,
		token.ID,
		token.IdentityID,
		token.TokenHash,
		token.FamilyID,
		token.ExpiresAt,
		token.UserAgent,
		token.IPAddress,
	)
	if err != nil {
		return fmt.Errorf("create refresh token: %w", err)
	}

	return nil
}

func (r *tokenRepository) FindByHash(
	ctx context.Context,
	tokenHash string,
) (*RefreshToken, error) {
	query := `
		SELECT
			id, identity_id, token_hash, family_id, expires_at, created_at,
			is_used, used_at, revoked_at, replaced_by_id, user_agent, ip_address
		FROM refresh_tokens
		WHERE token_hash = $1`

	var token RefreshToken
	if err := r.db.GetContext(ctx, &token, query, tokenHash); err != nil {
		return nil, core.NoRows(err, "find refresh token")
	}

	return &token, nil
}

func (r *tokenRepository) MarkAsUsed(
	ctx context.Context,
	id, replacedByID string,
) error {
	query := `
		UPDATE refresh_tokens
		SET is_used = true, used_at = NOW(), replaced_by_id = $2
		WHERE id = $1 AND is_used = false`

	result, err := r.db.ExecContext(ctx, query, id, replacedByID)
	if err != nil {
		return fmt.Errorf("mark refresh token as used: %w", err)
	}

	return core.RowsAffectedOrNotFound(result, "mark refresh token as used")
}

func (r *tokenRepository) RevokeByID(ctx context.Context, id string) error {
	query := `
		UPDATE refresh_tokens
		SET revoked_at = NOW()
		WHERE id = $1 AND revoked_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}

	return core.RowsAffectedOrNotFound(result, "revoke refresh token")
}

func (r *tokenRepository) RevokeByFamilyID(
	ctx context.Context,
	familyID string,
) error {
	query := `
		UPDATE refresh_tokens
		SET revoked_at = NOW()
		WHERE family_id = $1 AND revoked_at IS NULL`

	if _, err := r.db.ExecContext(ctx, query, familyID); err != nil {
		return fmt.Errorf("revoke token family: %w", err)
	}

	return nil
}

// DeleteExpired removes tokens that expired more than olderThan ago.
func (r *tokenRepository) DeleteExpired(
	ctx context.Context,
	olderThan time.Duration,
) (int64, error) {
	query := `
		DELETE FROM refresh_tokens
		WHERE expires_at < $1`

	result, err := r.db.ExecContext(ctx, query, time.Now().Add(-olderThan))
	if err != nil {
		return 0, fmt.Errorf("delete expired tokens: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete expired tokens: %w", err)
	}

	return rows, nil
}
