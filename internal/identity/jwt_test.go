// AngelaMos | 2026
// jwt_test.go

package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/reseller-console/internal/config"
	"github.com/carterperez-dev/reseller-console/internal/core"
)

const cheapTTL = time.Hour

func keyPair(t *testing.T) (string, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "keys")
	priv := filepath.Join(dir, "private.pem")
	pub := filepath.Join(dir, "public.pem")
	require.NoError(t, GenerateKeyPair(priv, pub))
	return priv, pub
}

func manager(t *testing.T, priv string, accessTTL time.Duration) *JWTManager {
	t.Helper()
	m, err := NewJWTManager(config.JWTConfig{
		PrivateKeyPath:     priv,
		AccessTokenExpire:  accessTTL,
		RefreshTokenExpire: cheapTTL,
		Issuer:             "reseller-console",
		Audience:           "reseller-console-api",
	})
	require.NoError(t, err)
	return m
}

func TestGenerateKeyPairRefusesOverwrite(t *testing.T) {
	priv, pub := keyPair(t)

	before, err := os.ReadFile(priv)
	require.NoError(t, err)

	assert.Error(t, GenerateKeyPair(priv, pub))

	after, err := os.ReadFile(priv)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	info, err := os.Stat(priv)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestKeyIDStableAcrossInstances(t *testing.T) {
	priv, _ := keyPair(t)

	a := manager(t, priv, time.Minute)
	b := manager(t, priv, time.Minute)
	assert.Equal(t, a.KeyID(), b.KeyID())
	assert.Len(t, a.KeyID(), 16)

	otherPriv, _ := keyPair(t)
	assert.NotEqual(t, a.KeyID(), manager(t, otherPriv, time.Minute).KeyID())
}

func TestAccessTokenClaims(t *testing.T) {
	priv, _ := keyPair(t)
	m := manager(t, priv, time.Minute)

	issued, err := m.CreateAccessToken(&Identity{
		ID:           "ident-1",
		Email:        "ops@example.com",
		TokenVersion: 3,
	})
	require.NoError(t, err)

	claims, err := m.VerifyAccessToken(context.Background(), issued.Token)
	require.NoError(t, err)
	assert.Equal(t, "ident-1", claims.IdentityID)
	assert.Equal(t, "ops@example.com", claims.Email)
	assert.Equal(t, 3, claims.TokenVersion)
	assert.Equal(t, issued.TokenID, claims.TokenID)
	assert.WithinDuration(t, issued.ExpiresAt, claims.ExpiresAt, time.Second)
}

func TestAccessTokenFromOtherKeyRejected(t *testing.T) {
	privA, _ := keyPair(t)
	privB, _ := keyPair(t)

	issued, err := manager(t, privA, time.Minute).CreateAccessToken(&Identity{
		ID:    "ident-1",
		Email: "ops@example.com",
	})
	require.NoError(t, err)

	_, err = manager(t, privB, time.Minute).VerifyAccessToken(context.Background(), issued.Token)
	assert.ErrorIs(t, err, core.ErrTokenInvalid)
}

func TestAccessTokenExpired(t *testing.T) {
	priv, _ := keyPair(t)
	m := manager(t, priv, -time.Minute)

	issued, err := m.CreateAccessToken(&Identity{ID: "ident-1", Email: "ops@example.com"})
	require.NoError(t, err)

	_, err = m.VerifyAccessToken(context.Background(), issued.Token)
	assert.ErrorIs(t, err, core.ErrTokenExpired)
}

func TestJWKSHandler(t *testing.T) {
	priv, _ := keyPair(t)
	m := manager(t, priv, time.Minute)

	rec := httptest.NewRecorder()
	m.JWKSHandler()(rec, httptest.NewRequest(http.MethodGet, "/.well-known/jwks.json", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body struct {
		Keys []map[string]any `json:"keys"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Keys, 1)
	assert.Equal(t, m.KeyID(), body.Keys[0]["kid"])
	assert.Equal(t, "sig", body.Keys[0]["use"])
	assert.NotContains(t, body.Keys[0], "d")
}
