package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/noteverse/internal/app/models"
	"golang.org/x/crypto/bcrypt"
)

func newTestService() *JWTService {
	return NewJWTService(JWTConfig{
		SecretKey:       "test-secret",
		AccessTokenExp:  time.Hour,
		RefreshTokenExp: 24 * time.Hour,
		TokenIssuer:     "noteverse-test",
	})
}

func TestGenerateAndValidateToken(t *testing.T) {
	svc := newTestService()
	user := &models.User{ID: 7, Email: "aditi@example.com", Role: models.RoleAdmin}

	pair, err := svc.GenerateTokenPair(user)
	require.NoError(t, err)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.Equal(t, int64(3600), pair.ExpiresIn)

	claims, err := svc.ParseAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.UserID)
	assert.Equal(t, models.RoleAdmin, claims.RoleType)
}

func TestValidateTokenExpired(t *testing.T) {
	svc := newTestService()
	pair, err := svc.GenerateTokenPair(&models.User{ID: 1, Email: "a@b.co", Role: models.RoleUser})
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = svc.ParseAccessToken(pair.AccessToken)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestValidateTokenWrongSecret(t *testing.T) {
	pair, err := newTestService().GenerateTokenPair(&models.User{ID: 1, Email: "a@b.co"})
	require.NoError(t, err)

	other := NewJWTService(JWTConfig{SecretKey: "other", AccessTokenExp: time.Hour, TokenIssuer: "noteverse-test"})
	_, err = other.ParseAccessToken(pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestExtractBearerToken(t *testing.T) {
	tok, err := ExtractBearerToken("Bearer abc.def")
	require.NoError(t, err)
	assert.Equal(t, "abc.def", tok)

	tok, err = ExtractBearerToken("bearer  xyz")
	require.NoError(t, err)
	assert.Equal(t, "xyz", tok)

	_, err = ExtractBearerToken("  ")
	assert.ErrorIs(t, err, ErrInvalidFormat)
}

func TestParseAccessTokenRejectsAnonymousClaims(t *testing.T) {
	svc := newTestService()
	pair, err := svc.GenerateTokenPair(&models.User{ID: 0, Email: ""})
	require.NoError(t, err)

	_, err = svc.ParseAccessToken(pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = svc.ParseAccessToken("")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPasswordHashing(t *testing.T) {
	BcryptCost = bcrypt.MinCost
	hash, err := HashPassword("secret123")
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "secret123"))
	assert.False(t, CheckPassword(hash, "secret124"))
}
