package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/you/verifysvc/domain"
)

func TestJWTService_RoundTrip(t *testing.T) {
	svc := NewJWTService("test-secret", "verifysvc-test", 15*time.Minute, 24*time.Hour)

	token, err := svc.GenerateAccessToken("user-1", "user@example.com")
	require.NoError(t, err)

	claims, err := svc.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "user@example.com", claims.Email)
	assert.Greater(t, claims.ExpiresAt, time.Now().Unix())
}

func TestJWTService_RejectsForeignSecret(t *testing.T) {
	svc := NewJWTService("test-secret", "verifysvc-test", 15*time.Minute, 24*time.Hour)
	other := NewJWTService("other-secret", "verifysvc-test", 15*time.Minute, 24*time.Hour)

	token, err := other.GenerateAccessToken("user-1", "user@example.com")
	require.NoError(t, err)

	_, err = svc.ValidateAccessToken(token)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}

func TestJWTService_RejectsExpired(t *testing.T) {
	svc := NewJWTService("test-secret", "verifysvc-test", -time.Minute, 24*time.Hour)

	token, err := svc.GenerateAccessToken("user-1", "user@example.com")
	require.NoError(t, err)

	_, err = svc.ValidateAccessToken(token)
	assert.Error(t, err)
}

func TestJWTService_RejectsGarbage(t *testing.T) {
	svc := NewJWTService("test-secret", "verifysvc-test", 15*time.Minute, 24*time.Hour)

	_, err := svc.ValidateAccessToken("not.a.token")
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}

func TestPasswordService_HashAndVerify(t *testing.T) {
	svc := NewPasswordService()

	hash, err := svc.Hash("Str0ng!pass")
	require.NoError(t, err)
	assert.NotEqual(t, "Str0ng!pass", hash)

	assert.True(t, svc.Verify(hash, "Str0ng!pass"))
	assert.False(t, svc.Verify(hash, "wrong-pass"))
}
