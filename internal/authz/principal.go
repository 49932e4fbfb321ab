// AngelaMos | 2026
// principal.go

package authz

const (
	RoleUser       = "user"
	RoleAdmin      = "admin"
	RoleSuperAdmin = "super_admin"
)

// RawPrincipal is what the identity provider knows about a signed-in
// identity, before any role metadata is applied.
type RawPrincipal struct {
	IdentityID string
	Email      string
}

type Principal struct {
	IdentityID   string `json:"identity_id"`
	Email        string `json:"email"`
	Role         string `json:"role"`
	IsAdmin      bool   `json:"is_admin"`
	IsSuperAdmin bool   `json:"is_super_admin"`
}

type TransitionKind string

const (
	SignedIn       TransitionKind = "signed_in"
	SignedOut      TransitionKind = "signed_out"
	TokenRefreshed TransitionKind = "token_refreshed"
)

// Transition is one identity provider state change. Principal is nil for
// sign-out.
type Transition struct {
	Kind       TransitionKind
	IdentityID string
	Principal  *RawPrincipal
}
