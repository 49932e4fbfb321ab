// AngelaMos | 2026
// auth.go

package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/carterperez-dev/reseller-console/internal/authz"
	"github.com/carterperez-dev/reseller-console/internal/core"
)

const (
	IdentityIDKey contextKey = "identity_id"
	PrincipalKey  contextKey = "principal"
	ClaimsKey     contextKey = "jwt_claims"
)

type TokenVerifier interface {
	VerifyAccessToken(
		ctx context.Context,
		token string,
	) (*AccessTokenClaims, error)
}

// PrincipalSource turns a verified identity into its authorization view.
type PrincipalSource interface {
	Principal(ctx context.Context, raw *authz.RawPrincipal) *authz.Principal
}

type AccessTokenClaims struct {
	IdentityID   string
	Email        string
	TokenID      string
	TokenVersion int
	ExpiresAt    time.Time
}

func Authenticator(
	verifier TokenVerifier,
	principals PrincipalSource,
) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ExtractToken(r)

			if token == "" {
				core.JSONError(
					w,
					core.UnauthorizedError("missing authorization token"),
				)
				return
			}

			claims, err := verifier.VerifyAccessToken(r.Context(), token)
			if err != nil {
				handleAuthError(w, err)
				return
			}

			principal := principals.Principal(r.Context(), &authz.RawPrincipal{
				IdentityID: claims.IdentityID,
				Email:      claims.Email,
			})

			ctx := r.Context()
			ctx = context.WithValue(ctx, IdentityIDKey, claims.IdentityID)
			ctx = context.WithValue(ctx, ClaimsKey, claims)
			ctx = context.WithValue(ctx, PrincipalKey, principal)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin admits admins and super-admins. A super_admin role record
// does not set IsAdmin, so both flags are checked.
func RequireAdmin(next http.Handler) http.Handler {
	return requirePrincipal(func(p *authz.Principal) bool {
		return p.IsAdmin || p.IsSuperAdmin
	})(next)
}

func RequireSuperAdmin(next http.Handler) http.Handler {
	return requirePrincipal(func(p *authz.Principal) bool {
		return p.IsSuperAdmin
	})(next)
}

func requirePrincipal(
	allowed func(*authz.Principal) bool,
) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := GetPrincipal(r.Context())

			if principal == nil {
				core.JSONError(
					w,
					core.UnauthorizedError("authentication required"),
				)
				return
			}

			if !allowed(principal) {
				core.JSONError(
					w,
					core.ForbiddenError("insufficient permissions"),
				)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func ExtractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return r.URL.Query().Get("access_token")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}

func handleAuthError(w http.ResponseWriter, err error) {
	if core.IsAppError(err) {
		core.JSONError(w, err)
		return
	}

	switch {
	case errors.Is(err, core.ErrTokenExpired):
		core.JSONError(w, core.TokenExpiredError())
	case errors.Is(err, core.ErrTokenRevoked):
		core.JSONError(w, core.TokenRevokedError())
	default:
		core.JSONError(w, core.TokenInvalidError())
	}
}

func GetIdentityID(ctx context.Context) string {
	if id, ok := ctx.Value(IdentityIDKey).(string); ok {
		return id
	}
	return ""
}

func GetPrincipal(ctx context.Context) *authz.Principal {
	if p, ok := ctx.Value(PrincipalKey).(*authz.Principal); ok {
		return p
	}
	return nil
}

func GetClaims(ctx context.Context) *AccessTokenClaims {
	if claims, ok := ctx.Value(ClaimsKey).(*AccessTokenClaims); ok {
		return claims
	}
	return nil
}

// WithPrincipal stores p the way Authenticator does. Handler tests use it to
// skip token verification.
func WithPrincipal(ctx context.Context, p *authz.Principal) context.Context {
	ctx = context.WithValue(ctx, PrincipalKey, p)
	if p != nil {
		ctx = context.WithValue(ctx, IdentityIDKey, p.IdentityID)
	}
	return ctx
}
