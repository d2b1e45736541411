package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intelliprep/backend/internal/models"
)

func testProfile() *models.Profile {
	return &models.Profile{
		ID:        "user-123",
		Email:     "student@example.com",
		IsPremium: true,
	}
}

func TestGenerateAndValidate(t *testing.T) {
	svc := NewJWTService("test-secret", time.Hour, 24*time.Hour)

	token, err := svc.Generate(testProfile())
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.Validate(token)
	require.NoError(t, err)

	assert.Equal(t, "user-123", claims.UserID)
	assert.Equal(t, "student@example.com", claims.Email)
	assert.True(t, claims.IsPremium)
	assert.Equal(t, "intelliprep", claims.Issuer)
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	svc := NewJWTService("secret-a", time.Hour, 24*time.Hour)
	other := NewJWTService("secret-b", time.Hour, 24*time.Hour)

	token, err := svc.Generate(testProfile())
	require.NoError(t, err)

	_, err = other.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateRejectsGarbage(t *testing.T) {
	svc := NewJWTService("test-secret", time.Hour, 24*time.Hour)

	_, err := svc.Validate("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateRejectsExpired(t *testing.T) {
	svc := NewJWTService("test-secret", -time.Hour, 24*time.Hour)

	token, err := svc.Generate(testProfile())
	require.NoError(t, err)

	_, err = svc.Validate(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestRefreshValidToken(t *testing.T) {
	svc := NewJWTService("test-secret", time.Hour, 24*time.Hour)

	token, err := svc.Generate(testProfile())
	require.NoError(t, err)

	refreshed, err := svc.Refresh(token)
	require.NoError(t, err)

	claims, err := svc.Validate(refreshed)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.UserID)
}

func TestRefreshExpiredWithinGracePeriod(t *testing.T) {
	// Token expired an hour ago, grace period of a day
	expired := NewJWTService("test-secret", -time.Hour, 24*time.Hour)

	token, err := expired.Generate(testProfile())
	require.NoError(t, err)

	// Refresh through a normally configured service so the new token is valid
	fresh := NewJWTService("test-secret", time.Hour, 24*time.Hour)
	refreshed, err := fresh.Refresh(token)
	require.NoError(t, err)

	claims, err := fresh.Validate(refreshed)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.UserID)
	assert.True(t, claims.IsPremium)
}

func TestRefreshExpiredBeyondGracePeriod(t *testing.T) {
	// Expired two hours ago with only a minute of grace
	issuer := NewJWTService("test-secret", -2*time.Hour, time.Minute)

	token, err := issuer.Generate(testProfile())
	require.NoError(t, err)

	_, err = issuer.Refresh(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}
