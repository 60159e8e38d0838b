// Package auth issues and validates the portal's bearer tokens.
package auth

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/egov-platform/citizen-services/internal/app/domain/identity"
	"github.com/egov-platform/citizen-services/internal/errors"
)

// Token types carried in the token_type claim.
const (
	TokenAccess  = "access"
	TokenRefresh = "refresh"
)

// Claims is the portal's JWT claim set.
type Claims struct {
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// Manager signs and verifies HS256 token pairs. Verification consults the
// revocation store so tokens issued before a password change are rejected.
type Manager struct {
	secret      []byte
	accessTTL   time.Duration
	refreshTTL  time.Duration
	revocations RevocationStore
	now         func() time.Time
}

// NewManager builds a token manager. revocations may be nil, in which case no
// revocation check is performed.
func NewManager(secret string, accessTTL, refreshTTL time.Duration, revocations RevocationStore) *Manager {
	return &Manager{
		secret:      []byte(secret),
		accessTTL:   accessTTL,
		refreshTTL:  refreshTTL,
		revocations: revocations,
		now:         time.Now,
	}
}

// IssuePair signs a fresh access+refresh token pair for the user.
func (m *Manager) IssuePair(user identity.User) (identity.TokenPair, error) {
	access, err := m.sign(user, TokenAccess, m.accessTTL)
	if err != nil {
		return identity.TokenPair{}, err
	}
	refresh, err := m.sign(user, TokenRefresh, m.refreshTTL)
	if err != nil {
		return identity.TokenPair{}, err
	}
	return identity.TokenPair{Access: access, Refresh: refresh}, nil
}

func (m *Manager) sign(user identity.User, tokenType string, ttl time.Duration) (string, error) {
	now := m.now().UTC()
	claims := &Claims{
		UserID:    user.ID,
		Username:  user.Username,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", errors.Internal("failed to sign token", err)
	}
	return signed, nil
}

// Verify parses and validates a token string, enforcing the signing method,
// expiry and the user's revocation cutoff.
func (m *Manager) Verify(ctx context.Context, tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.InvalidToken(nil).WithDetails("alg", t.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return m.now() }))
	if err != nil {
		return nil, errors.InvalidToken(err)
	}
	if !token.Valid {
		return nil, errors.InvalidToken(nil)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || claims.UserID == "" {
		return nil, errors.InvalidToken(nil)
	}

	if m.revocations != nil && claims.IssuedAt != nil {
		cutoff, err := m.revocations.RevokedBefore(ctx, claims.UserID)
		if err != nil {
			return nil, errors.Internal("revocation lookup failed", err)
		}
		if !cutoff.IsZero() && claims.IssuedAt.Time.Before(cutoff) {
			return nil, errors.Unauthorized("token has been revoked")
		}
	}

	return claims, nil
}

// Revoke invalidates every token the user was issued before now. The cutoff
// is truncated to seconds to match the precision of the iat claim, so tokens
// issued in the same second as the revocation stay valid.
func (m *Manager) Revoke(ctx context.Context, userID string) error {
	if m.revocations == nil {
		return nil
	}
	return m.revocations.RevokeBefore(ctx, userID, m.now().UTC().Truncate(time.Second))
}
