package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/labhub-api/internal/models"
	"github.com/noah-isme/labhub-api/pkg/config"
	appErrors "github.com/noah-isme/labhub-api/pkg/errors"
)

func mintToken(t *testing.T, secret string, claims *models.JWTClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func sessionClaims(issuer string) *models.JWTClaims {
	return &models.JWTClaims{
		UserID: "admin-1",
		Role:   models.RoleLabAdmin,
		LabIDs: []string{"lab-1"},
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

func TestTokenServiceVerify(t *testing.T) {
	svc := NewTokenService(config.JWTConfig{Secret: "secret", Issuer: "labhub-identity"})
	signed := mintToken(t, "secret", sessionClaims("labhub-identity"))

	claims, err := svc.Verify(signed)
	require.NoError(t, err)
	require.Equal(t, "admin-1", claims.UserID)
	require.Equal(t, models.RoleLabAdmin, claims.Role)
	require.True(t, claims.HasLab("lab-1"))
	require.False(t, claims.HasLab("lab-2"))
}

func TestTokenServiceVerifyWrongSecret(t *testing.T) {
	svc := NewTokenService(config.JWTConfig{Secret: "secret"})
	signed := mintToken(t, "other", sessionClaims(""))

	_, err := svc.Verify(signed)
	require.True(t, appErrors.HasCode(err, appErrors.ErrUnauthorized))
}

func TestTokenServiceVerifyWrongIssuer(t *testing.T) {
	svc := NewTokenService(config.JWTConfig{Secret: "secret", Issuer: "labhub-identity"})
	signed := mintToken(t, "secret", sessionClaims("someone-else"))

	_, err := svc.Verify(signed)
	require.True(t, appErrors.HasCode(err, appErrors.ErrUnauthorized))
}

func TestTokenServiceVerifyAnyConfiguredAudience(t *testing.T) {
	svc := NewTokenService(config.JWTConfig{Secret: "secret", Audience: []string{"labhub-api", "labhub-web"}})

	// A token carrying only the first configured audience must verify; the
	// audiences are alternatives, not a conjunction.
	claims := sessionClaims("")
	claims.Audience = jwt.ClaimStrings{"labhub-api"}
	signed := mintToken(t, "secret", claims)
	verified, err := svc.Verify(signed)
	require.NoError(t, err)
	require.Equal(t, "admin-1", verified.UserID)

	claims = sessionClaims("")
	claims.Audience = jwt.ClaimStrings{"someone-else"}
	signed = mintToken(t, "secret", claims)
	_, err = svc.Verify(signed)
	require.True(t, appErrors.HasCode(err, appErrors.ErrUnauthorized))
}

func TestTokenServiceVerifyExpired(t *testing.T) {
	svc := NewTokenService(config.JWTConfig{Secret: "secret"})
	claims := sessionClaims("")
	claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	signed := mintToken(t, "secret", claims)

	_, err := svc.Verify(signed)
	require.True(t, appErrors.HasCode(err, appErrors.ErrUnauthorized))
}
