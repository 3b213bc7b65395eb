package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestNewJWTServiceRequiresSecret(t *testing.T) {
	_, err := NewJWTService(JWTConfig{})
	require.Error(t, err)
	require.EqualError(t, err, "jwt: secret must be provided")
}

func TestGenerateAndValidateAccessToken(t *testing.T) {
	current := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	now := func() time.Time { return current }

	svc, err := NewJWTService(JWTConfig{
		Secret:         "super-secret",
		Issuer:         "jobhive",
		Audience:       "jobhive-admin",
		AccessTokenTTL: time.Hour,
		Clock:          now,
	})
	require.NoError(t, err)

	token, err := svc.GenerateAccessToken(AccessTokenInput{
		UserID: "user-123",
		Email:  "admin@example.com",
		Role:   "ADMIN",
	})
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateAccessToken(token)
	require.NoError(t, err)

	require.Equal(t, "user-123", claims.UserID)
	require.Equal(t, "admin@example.com", claims.Email)
	require.Equal(t, "ADMIN", claims.Role)
	require.Equal(t, "jobhive", claims.Issuer)
	require.Equal(t, jwt.ClaimStrings{"jobhive-admin"}, claims.Audience)
	require.True(t, claims.IssuedAt.Time.Equal(current))
	require.True(t, claims.ExpiresAt.Time.Equal(current.Add(time.Hour)))
}

func TestValidateAccessTokenInvalidSignature(t *testing.T) {
	now := func() time.Time { return time.Date(2024, 1, 1, 13, 0, 0, 0, time.UTC) }

	issuer, err := NewJWTService(JWTConfig{Secret: "issuer-secret", AccessTokenTTL: time.Minute, Clock: now})
	require.NoError(t, err)

	token, err := issuer.GenerateAccessToken(AccessTokenInput{UserID: "user-123"})
	require.NoError(t, err)

	verifier, err := NewJWTService(JWTConfig{Secret: "other-secret", AccessTokenTTL: time.Minute, Clock: now})
	require.NoError(t, err)

	_, err = verifier.ValidateAccessToken(token)
	require.Error(t, err)
	require.True(t, errors.Is(err, jwt.ErrTokenSignatureInvalid))
}

func TestValidateAccessTokenExpired(t *testing.T) {
	current := time.Date(2024, 1, 1, 14, 0, 0, 0, time.UTC)
	now := func() time.Time { return current }

	svc, err := NewJWTService(JWTConfig{Secret: "secret", AccessTokenTTL: time.Minute, Clock: now})
	require.NoError(t, err)

	token, err := svc.GenerateAccessToken(AccessTokenInput{UserID: "user-123"})
	require.NoError(t, err)

	current = current.Add(2 * time.Minute)

	_, err = svc.ValidateAccessToken(token)
	require.Error(t, err)
	require.True(t, errors.Is(err, jwt.ErrTokenExpired))
}

func TestValidateAccessTokenIssuerAndAudience(t *testing.T) {
	now := func() time.Time { return time.Date(2024, 1, 1, 15, 0, 0, 0, time.UTC) }

	other, err := NewJWTService(JWTConfig{Secret: "shared", Issuer: "someone-else", Audience: "web", Clock: now})
	require.NoError(t, err)
	token, err := other.GenerateAccessToken(AccessTokenInput{UserID: "user-123"})
	require.NoError(t, err)

	svc, err := NewJWTService(JWTConfig{Secret: "shared", Issuer: "jobhive", Clock: now})
	require.NoError(t, err)
	_, err = svc.ValidateAccessToken(token)
	require.ErrorIs(t, err, jwt.ErrTokenInvalidIssuer)

	svc, err = NewJWTService(JWTConfig{Secret: "shared", Issuer: "someone-else", Audience: "admin", Clock: now})
	require.NoError(t, err)
	_, err = svc.ValidateAccessToken(token)
	require.ErrorIs(t, err, jwt.ErrTokenInvalidAudience)
}

func TestValidateAccessTokenRejectsOtherAlgorithms(t *testing.T) {
	svc, err := NewJWTService(JWTConfig{Secret: "secret"})
	require.NoError(t, err)

	token := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"uid": "user-123",
		"exp": time.Now().Add(time.Minute).Unix(),
	})
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = svc.ValidateAccessToken(signed)
	require.Error(t, err)
}
