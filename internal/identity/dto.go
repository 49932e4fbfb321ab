// AngelaMos | 2026
// dto.go

package identity

import (
	"time"

	"github.com/carterperez-dev/reseller-console/internal/authz"
)

type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type TokenResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresIn    int       `json:"expires_in"`
	ExpiresAt    time.Time `json:"expires_at"`
}

type IdentityResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type AuthResponse struct {
	Identity IdentityResponse `json:"identity"`
	Tokens   TokenResponse    `json:"tokens"`
}

// StateResponse mirrors what the console gate needs before rendering:
// whether the first resolution is still pending and who is signed in.
type StateResponse struct {
	Loading   bool             `json:"loading"`
	Principal *authz.Principal `json:"principal"`
}
