// AngelaMos | 2026
// resolver.go

package authz

import (
	"context"
	"errors"
	"log/slog"
	"slices"

	"github.com/carterperez-dev/reseller-console/internal/core"
)

// Resolver combines the static admin allow-list with per-identity role
// records. It never fails: when the record store cannot answer, the
// allow-list alone decides.
type Resolver struct {
	adminIDs []string
	records  RecordStore
	logger   *slog.Logger
}

func NewResolver(
	adminIDs []string,
	records RecordStore,
	logger *slog.Logger,
) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		adminIDs: slices.Clone(adminIDs),
		records:  records,
		logger:   logger,
	}
}

func (r *Resolver) Resolve(ctx context.Context, raw *RawPrincipal) *Principal {
	if raw == nil {
		return nil
	}

	isAdminByID := slices.Contains(r.adminIDs, raw.IdentityID)
	isFirstAdmin := len(r.adminIDs) > 0 && r.adminIDs[0] == raw.IdentityID

	record, err := r.fetch(ctx, raw.IdentityID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			r.logger.Debug("no role record, using allow-list",
				"identity_id", raw.IdentityID,
			)
		} else {
			r.logger.Warn("role record lookup failed, using allow-list",
				"identity_id", raw.IdentityID,
				"error", err,
			)
		}
		return fallback(raw, isAdminByID, isFirstAdmin)
	}

	role := record.Role
	if role == "" {
		role = defaultRole(isAdminByID)
	}

	return &Principal{
		IdentityID:   raw.IdentityID,
		Email:        raw.Email,
		Role:         role,
		IsAdmin:      record.Role == RoleAdmin || isAdminByID,
		IsSuperAdmin: record.Role == RoleSuperAdmin || isFirstAdmin,
	}
}

func (r *Resolver) fetch(ctx context.Context, identityID string) (*RoleRecord, error) {
	if r.records == nil {
		return nil, core.ErrNotFound
	}
	return r.records.GetRoleRecord(ctx, identityID)
}

func fallback(raw *RawPrincipal, isAdminByID, isFirstAdmin bool) *Principal {
	return &Principal{
		IdentityID:   raw.IdentityID,
		Email:        raw.Email,
		Role:         defaultRole(isAdminByID),
		IsAdmin:      isAdminByID,
		IsSuperAdmin: isFirstAdmin,
	}
}

func defaultRole(isAdminByID bool) string {
	if isAdminByID {
		return RoleAdmin
	}
	return RoleUser
}
