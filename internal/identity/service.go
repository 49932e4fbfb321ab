// AngelaMos | 2026
// service.go

package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/carterperez-dev/reseller-console/internal/authz"
	"github.com/carterperez-dev/reseller-console/internal/core"
	"github.com/carterperez-dev/reseller-console/internal/middleware"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenReuse         = errors.New("token reuse detected")
	ErrEmailExists        = errors.New("email already exists")
)

const (
	blacklistPrefix = "blacklist:"
	// refresh tokens are kept a day past expiry so reuse is still detected
	expiredTokenGrace = 24 * time.Hour
)

type Verifier interface {
	VerifyAccessToken(
		ctx context.Context,
		token string,
	) (*middleware.AccessTokenClaims, error)
}

type Service struct {
	identities IdentityRepository
	tokens     TokenRepository
	jwt        *JWTManager
	verifier   Verifier
	hasher     *PasswordHasher
	redis      *redis.Client
	notifier   *Notifier
	logger     *slog.Logger
}

type ServiceConfig struct {
	Identities IdentityRepository
	Tokens     TokenRepository
	JWT        *JWTManager
	// Verifier overrides JWT for access token checks when set.
	Verifier Verifier
	// Hasher defaults to argon2id with DefaultArgonParams.
	Hasher   *PasswordHasher
	Redis    *redis.Client
	Notifier *Notifier
	Logger   *slog.Logger
}

func NewService(cfg ServiceConfig) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	var verifier Verifier = cfg.JWT
	if cfg.Verifier != nil {
		verifier = cfg.Verifier
	}
	hasher := cfg.Hasher
	if hasher == nil {
		hasher = NewPasswordHasher(DefaultArgonParams)
	}
	return &Service{
		identities: cfg.Identities,
		tokens:     cfg.Tokens,
		jwt:        cfg.JWT,
		verifier:   verifier,
		hasher:     hasher,
		redis:      cfg.Redis,
		notifier:   cfg.Notifier,
		logger:     logger,
	}
}

func (s *Service) SignIn(
	ctx context.Context,
	req LoginRequest,
	userAgent, ipAddress string,
) (*AuthResponse, error) {
	ident, err := s.identities.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			//nolint:errcheck // keeps unknown emails as slow as wrong passwords
			_, _ = s.hasher.Verify(req.Password, "")
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get identity: %w", err)
	}

	valid, err := s.hasher.Verify(req.Password, ident.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !valid {
		return nil, ErrInvalidCredentials
	}

	resp, err := s.issue(ctx, ident, userAgent, ipAddress, "", nil)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, authz.Transition{
		Kind:       authz.SignedIn,
		IdentityID: ident.ID,
		Principal:  rawPrincipal(ident),
	})

	return resp, nil
}

func (s *Service) Refresh(
	ctx context.Context,
	refreshToken, userAgent, ipAddress string,
) (*AuthResponse, error) {
	stored, err := s.tokens.FindByHash(ctx, digestRefreshToken(refreshToken))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, fmt.Errorf("refresh: %w", core.ErrTokenInvalid)
		}
		return nil, fmt.Errorf("find token: %w", err)
	}

	if stored.IsUsed {
		//nolint:errcheck // security revocation continues regardless
		_ = s.tokens.RevokeByFamilyID(ctx, stored.FamilyID)
		s.logger.Warn("refresh token reuse detected",
			"identity_id", stored.IdentityID,
			"family_id", stored.FamilyID,
		)
		return nil, ErrTokenReuse
	}

	if !stored.IsValid() {
		if stored.IsRevoked() {
			return nil, fmt.Errorf("refresh: %w", core.ErrTokenRevoked)
		}
		return nil, fmt.Errorf("refresh: %w", core.ErrTokenExpired)
	}

	ident, err := s.identities.GetByID(ctx, stored.IdentityID)
	if err != nil {
		return nil, fmt.Errorf("get identity: %w", err)
	}

	resp, err := s.issue(
		ctx,
		ident,
		userAgent,
		ipAddress,
		stored.FamilyID,
		&stored.ID,
	)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, authz.Transition{
		Kind:       authz.TokenRefreshed,
		IdentityID: ident.ID,
		Principal:  rawPrincipal(ident),
	})

	return resp, nil
}

// SignOut revokes the refresh token, blacklists the presented access token
// for the rest of its lifetime and announces the sign-out.
func (s *Service) SignOut(
	ctx context.Context,
	refreshToken string,
	claims *middleware.AccessTokenClaims,
) error {
	if claims == nil {
		return fmt.Errorf("sign out: %w", core.ErrUnauthorized)
	}

	if refreshToken != "" {
		stored, err := s.tokens.FindByHash(ctx, digestRefreshToken(refreshToken))
		switch {
		case errors.Is(err, core.ErrNotFound):
		case err != nil:
			return fmt.Errorf("find token: %w", err)
		case stored.IdentityID != claims.IdentityID:
			return fmt.Errorf("sign out: %w", core.ErrForbidden)
		default:
			if revokeErr := s.tokens.RevokeByID(ctx, stored.ID); revokeErr != nil &&
				!errors.Is(revokeErr, core.ErrNotFound) {
				return fmt.Errorf("revoke token: %w", revokeErr)
			}
		}
	}

	if err := s.RevokeAccessToken(ctx, claims.TokenID, claims.ExpiresAt); err != nil {
		s.logger.Warn("access token blacklist failed",
			"identity_id", claims.IdentityID,
			"error", err,
		)
	}

	s.publish(ctx, authz.Transition{
		Kind:       authz.SignedOut,
		IdentityID: claims.IdentityID,
	})

	return nil
}

func (s *Service) RevokeAccessToken(
	ctx context.Context,
	jti string,
	expiresAt time.Time,
) error {
	ttl := time.Until(expiresAt)
	if jti == "" || ttl <= 0 {
		return nil
	}

	if err := s.redis.Set(ctx, blacklistPrefix+jti, "1", ttl).Err(); err != nil {
		return fmt.Errorf("blacklist token: %w", err)
	}

	return nil
}

func (s *Service) IsAccessTokenBlacklisted(
	ctx context.Context,
	jti string,
) (bool, error) {
	exists, err := s.redis.Exists(ctx, blacklistPrefix+jti).Result()
	if err != nil {
		return false, fmt.Errorf("check blacklist: %w", err)
	}

	return exists > 0, nil
}

// VerifyAccessToken validates the token and rejects blacklisted ones. A
// Redis outage fails open: the signature and expiry checks still apply.
func (s *Service) VerifyAccessToken(
	ctx context.Context,
	token string,
) (*middleware.AccessTokenClaims, error) {
	claims, err := s.verifier.VerifyAccessToken(ctx, token)
	if err != nil {
		return nil, err
	}

	if claims.TokenID == "" {
		return claims, nil
	}

	revoked, err := s.IsAccessTokenBlacklisted(ctx, claims.TokenID)
	if err != nil {
		s.logger.Warn("blacklist unavailable, accepting token",
			"identity_id", claims.IdentityID,
			"error", err,
		)
		return claims, nil
	}
	if revoked {
		return nil, fmt.Errorf("verify token: %w", core.ErrTokenRevoked)
	}

	return claims, nil
}

// CreateIdentity registers an operator account. Used by the bootstrap
// command; there is no self-service sign-up.
func (s *Service) CreateIdentity(
	ctx context.Context,
	email, password string,
) (*Identity, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	ident := &Identity{
		ID:           uuid.New().String(),
		Email:        normalizeEmail(email),
		PasswordHash: hash,
	}

	if err := s.identities.Create(ctx, ident); err != nil {
		if errors.Is(err, core.ErrDuplicateKey) {
			return nil, ErrEmailExists
		}
		return nil, fmt.Errorf("create identity: %w", err)
	}

	return ident, nil
}

func (s *Service) GetIdentity(ctx context.Context, id string) (*Identity, error) {
	return s.identities.GetByID(ctx, id)
}

// PurgeExpiredTokens is run by the housekeeping scheduler.
func (s *Service) PurgeExpiredTokens(ctx context.Context) (int64, error) {
	return s.tokens.DeleteExpired(ctx, expiredTokenGrace)
}

func (s *Service) issue(
	ctx context.Context,
	ident *Identity,
	userAgent, ipAddress, familyID string,
	oldTokenID *string,
) (*AuthResponse, error) {
	access, err := s.jwt.CreateAccessToken(ident)
	if err != nil {
		return nil, fmt.Errorf("create access token: %w", err)
	}

	refresh, err := newRefreshSecret(familyID, s.jwt.RefreshTokenTTL())
	if err != nil {
		return nil, fmt.Errorf("create refresh token: %w", err)
	}

	newTokenID := uuid.New().String()

	if err := s.tokens.Create(ctx, &RefreshToken{
		ID:         newTokenID,
		IdentityID: ident.ID,
		TokenHash:  refresh.Digest,
		FamilyID:   refresh.FamilyID,
		ExpiresAt:  refresh.ExpiresAt,
		UserAgent:  userAgent,
		IPAddress:  ipAddress,
	}); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	if oldTokenID != nil {
		//nolint:errcheck // best-effort token chain tracking
		_ = s.tokens.MarkAsUsed(ctx, *oldTokenID, newTokenID)
	}

	return &AuthResponse{
		Identity: IdentityResponse{
			ID:    ident.ID,
			Email: ident.Email,
		},
		Tokens: TokenResponse{
			AccessToken:  access.Token,
			RefreshToken: refresh.Plain,
			TokenType:    "Bearer",
			ExpiresIn:    int(time.Until(access.ExpiresAt).Seconds()),
			ExpiresAt:    access.ExpiresAt,
		},
	}, nil
}

func (s *Service) publish(ctx context.Context, t authz.Transition) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Publish(ctx, t); err != nil {
		s.logger.Warn("transition not delivered",
			"identity_id", t.IdentityID,
			"transition", t.Kind,
			"error", err,
		)
	}
}

func rawPrincipal(ident *Identity) *authz.RawPrincipal {
	return &authz.RawPrincipal{
		IdentityID: ident.ID,
		Email:      ident.Email,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
