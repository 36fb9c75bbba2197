package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/kontor/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJWTService() *JWTService {
	return NewJWTService(config.JWTConfig{
		Secret:   "test-secret-key-at-least-32-chars",
		Issuer:   "https://auth.kontor.test",
		Audience: "kontor-api",
		Leeway:   5 * time.Second,
	})
}

func TestSignAndValidate(t *testing.T) {
	svc := newTestJWTService()
	tenantID, userID := uuid.New(), uuid.New()

	token, err := svc.Sign(TokenInput{TenantID: tenantID, UserID: userID, Email: "inhaber@example.de"})
	require.NoError(t, err)

	claims, err := svc.Validate(token)
	require.NoError(t, err)

	gotTenant, err := claims.GetTenantUUID()
	require.NoError(t, err)
	gotUser, err := claims.GetUserUUID()
	require.NoError(t, err)
	assert.Equal(t, tenantID, gotTenant)
	assert.Equal(t, userID, gotUser)
	assert.Equal(t, "inhaber@example.de", claims.Email)
	assert.True(t, claims.GetExpiresAtTime().After(time.Now()))
}

func TestValidate_Rejections(t *testing.T) {
	svc := newTestJWTService()

	sign := func(t *testing.T, secret string, mutate func(c *Claims)) string {
		t.Helper()
		now := time.Now()
		claims := &Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    "https://auth.kontor.test",
				Audience:  jwt.ClaimStrings{"kontor-api"},
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
				IssuedAt:  jwt.NewNumericDate(now),
			},
			TenantID: uuid.New().String(),
			UserID:   uuid.New().String(),
		}
		mutate(claims)
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
		require.NoError(t, err)
		return s
	}
	const secret = "test-secret-key-at-least-32-chars"

	tests := []struct {
		name    string
		token   func(t *testing.T) string
		wantErr error
	}{
		{"garbage", func(t *testing.T) string { return "not.a.token" }, ErrInvalidToken},
		{"wrong secret", func(t *testing.T) string {
			return sign(t, "another-secret-key-of-32-characters", func(*Claims) {})
		}, ErrInvalidToken},
		{"expired", func(t *testing.T) string {
			return sign(t, secret, func(c *Claims) { c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute)) })
		}, ErrExpiredToken},
		{"not yet valid", func(t *testing.T) string {
			return sign(t, secret, func(c *Claims) { c.NotBefore = jwt.NewNumericDate(time.Now().Add(time.Hour)) })
		}, ErrTokenNotYetValid},
		{"wrong issuer", func(t *testing.T) string {
			return sign(t, secret, func(c *Claims) { c.Issuer = "https://evil.test" })
		}, ErrInvalidToken},
		{"wrong audience", func(t *testing.T) string {
			return sign(t, secret, func(c *Claims) { c.Audience = jwt.ClaimStrings{"other"} })
		}, ErrInvalidToken},
		{"missing expiry", func(t *testing.T) string {
			return sign(t, secret, func(c *Claims) { c.ExpiresAt = nil })
		}, ErrInvalidToken},
		{"missing user", func(t *testing.T) string {
			return sign(t, secret, func(c *Claims) { c.UserID = "" })
		}, ErrMissingUserID},
		{"missing tenant", func(t *testing.T) string {
			return sign(t, secret, func(c *Claims) { c.TenantID = "" })
		}, ErrMissingTenantID},
		{"malformed tenant", func(t *testing.T) string {
			return sign(t, secret, func(c *Claims) { c.TenantID = "acme" })
		}, ErrInvalidClaims},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Validate(tt.token(t))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestValidate_ServiceTokenWithoutTenant(t *testing.T) {
	svc := newTestJWTService()

	token, err := svc.Sign(TokenInput{UserID: uuid.New(), Service: true})
	require.NoError(t, err)

	claims, err := svc.Validate(token)
	require.NoError(t, err)
	assert.True(t, claims.Service)
	assert.Empty(t, claims.TenantID)
}

func TestValidate_RejectsNoneAlgorithm(t *testing.T) {
	svc := newTestJWTService()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "https://auth.kontor.test",
			Audience:  jwt.ClaimStrings{"kontor-api"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		TenantID: uuid.New().String(),
		UserID:   uuid.New().String(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = svc.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
