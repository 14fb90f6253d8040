package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

func TestTokenServiceIssueAndValidate(t *testing.T) {
	svc := NewTokenService(TokenConfig{Secret: "secret", Expiry: time.Hour})

	token, expiresAt, err := svc.Issue("admin-1", "admin@example.com", models.RoleAdmin)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "admin-1", claims.UserID)
	assert.Equal(t, models.RoleAdmin, claims.Role)
	assert.Equal(t, "sma-timetable-api", claims.Issuer)
}

func TestTokenServiceRejectsForeignSecret(t *testing.T) {
	issuer := NewTokenService(TokenConfig{Secret: "one"})
	verifier := NewTokenService(TokenConfig{Secret: "two"})

	token, _, err := issuer.Issue("admin-1", "admin@example.com", models.RoleAdmin)
	require.NoError(t, err)

	_, err = verifier.ValidateToken(token)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrUnauthorized.Code))
}

func TestTokenServiceRejectsExpiredToken(t *testing.T) {
	svc := NewTokenService(TokenConfig{Secret: "secret"})
	past := time.Now().Add(-time.Hour)
	claims := &models.JWTClaims{
		UserID: "viewer-1",
		Role:   models.RoleViewer,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(past),
			IssuedAt:  jwt.NewNumericDate(past.Add(-time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrUnauthorized.Code))
}

func TestTokenServiceRejectsOtherAlgorithms(t *testing.T) {
	svc := NewTokenService(TokenConfig{Secret: "secret"})
	claims := &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.Error(t, err)
}
