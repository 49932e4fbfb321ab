// AngelaMos | 2026
// refresh.go

package identity

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const refreshSecretBytes = 32

// refreshSecret is an opaque refresh token. Only its SHA-256 digest is
// stored; the plaintext leaves the process once, in the sign-in response.
type refreshSecret struct {
	Plain     string
	Digest    string
	FamilyID  string
	ExpiresAt time.Time
}

// newRefreshSecret starts a new rotation family when familyID is empty.
func newRefreshSecret(familyID string, ttl time.Duration) (*refreshSecret, error) {
	raw := make([]byte, refreshSecretBytes)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}
	plain := base64.RawURLEncoding.EncodeToString(raw)

	if familyID == "" {
		familyID = uuid.NewString()
	}

	return &refreshSecret{
		Plain:     plain,
		Digest:    digestRefreshToken(plain),
		FamilyID:  familyID,
		ExpiresAt: time.Now().Add(ttl),
	}, nil
}

func digestRefreshToken(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}
