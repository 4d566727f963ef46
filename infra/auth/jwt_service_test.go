package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTService_RoundTrip(t *testing.T) {
	s := NewJWTService("test-secret", time.Hour)

	token, err := s.GenerateToken("APP1")
	require.NoError(t, err)

	claims, err := s.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "APP1", claims.TenantID)
	assert.Equal(t, "gocips", claims.Issuer)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, time.Minute)
}

func TestJWTService_Errors(t *testing.T) {
	s := NewJWTService("test-secret", time.Hour)

	expired := NewJWTService("test-secret", time.Hour)
	expired.expiry = -time.Minute
	expiredToken, err := expired.GenerateToken("APP1")
	require.NoError(t, err)

	otherToken, err := NewJWTService("other-secret", time.Hour).GenerateToken("APP1")
	require.NoError(t, err)

	noneToken, err := jwt.NewWithClaims(jwt.SigningMethodNone, JWTClaims{TenantID: "APP1"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name     string
		token    string
		expected error
	}{
		{"expired", expiredToken, ErrExpiredToken},
		{"wrong secret", otherToken, ErrInvalidToken},
		{"unsigned", noneToken, ErrInvalidToken},
		{"garbage", "not.a.token", ErrInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.ValidateToken(tt.token)
			assert.ErrorIs(t, err, tt.expected)
		})
	}

	_, err = s.GenerateToken("")
	assert.ErrorIs(t, err, ErrMissingTenant)
}

func TestJWTService_RandomSecret(t *testing.T) {
	a := NewJWTService("", 0)
	b := NewJWTService("", 0)

	assert.Equal(t, 12*time.Hour, a.Expiry())

	token, err := a.GenerateToken("APP1")
	require.NoError(t, err)
	_, err = b.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTService_RefreshToken(t *testing.T) {
	s := NewJWTService("test-secret", time.Hour)

	token, err := s.GenerateToken("APP1")
	require.NoError(t, err)

	refreshed, err := s.RefreshToken(token)
	require.NoError(t, err)

	claims, err := s.ValidateToken(refreshed)
	require.NoError(t, err)
	assert.Equal(t, "APP1", claims.TenantID)
}
