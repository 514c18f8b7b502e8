package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func testTokenService() TokenService {
	return TokenService{
		Secret:        []byte("test-access-secret"),
		RefreshSecret: []byte("test-refresh-secret"),
		Issuer:        "learnpath-test",
		AccessTTL:     time.Hour,
		RefreshTTL:    24 * time.Hour,
	}
}

func TestPasswordHashRoundTrip(t *testing.T) {
	tokens := testTokenService()
	hashed, err := tokens.HashPassword("s3cret-passw0rd")
	require.NoError(t, err)
	assert.True(t, tokens.VerifyPassword("s3cret-passw0rd", hashed))
	assert.False(t, tokens.VerifyPassword("wrong", hashed))
}

func TestVerifyPasswordBcryptFallback(t *testing.T) {
	tokens := testTokenService()
	hashed, err := bcrypt.GenerateFromPassword([]byte("legacy-pass"), bcrypt.MinCost)
	require.NoError(t, err)
	assert.True(t, tokens.VerifyPassword("legacy-pass", string(hashed)))
	assert.False(t, tokens.VerifyPassword("not-it", string(hashed)))
}

func TestAccessTokenRoundTrip(t *testing.T) {
	tokens := testTokenService()
	signed, expiresAt, err := tokens.CreateAccessToken("user-1", "a@b.md", "TUTOR", "session-1", "jwt-1")
	require.NoError(t, err)
	assert.Greater(t, expiresAt, time.Now().Unix())

	claims, err := tokens.ParseAccessToken(signed)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "a@b.md", claims.Email)
	assert.Equal(t, "TUTOR", claims.Role)
	assert.Equal(t, "session-1", claims.SessionID)
	assert.Equal(t, "jwt-1", claims.JWTID)
}

func TestParseAccessTokenRejectsRefreshToken(t *testing.T) {
	tokens := testTokenService()
	refresh, err := tokens.CreateRefreshToken("user-1", "session-1", "jwt-1")
	require.NoError(t, err)
	_, err = tokens.ParseAccessToken(refresh)
	assert.Error(t, err)
}

func TestParseAccessTokenRejectsWrongSecret(t *testing.T) {
	tokens := testTokenService()
	signed, _, err := tokens.CreateAccessToken("user-1", "a@b.md", "LEARNER", "s", "j")
	require.NoError(t, err)

	other := testTokenService()
	other.Secret = []byte("someone-else")
	_, err = other.ParseAccessToken(signed)
	assert.Error(t, err)
}

func TestParseRefreshTokenRoundTrip(t *testing.T) {
	tokens := testTokenService()
	refresh, err := tokens.CreateRefreshToken("user-9", "session-9", "jwt-9")
	require.NoError(t, err)

	userID, sessionID, jwtID, err := tokens.ParseRefreshToken(refresh)
	require.NoError(t, err)
	assert.Equal(t, "user-9", userID)
	assert.Equal(t, "session-9", sessionID)
	assert.Equal(t, "jwt-9", jwtID)
}

func TestParseRefreshTokenRejectsAccessToken(t *testing.T) {
	tokens := testTokenService()
	signed, _, err := tokens.CreateAccessToken("user-1", "a@b.md", "LEARNER", "s", "j")
	require.NoError(t, err)
	_, _, _, err = tokens.ParseRefreshToken(signed)
	assert.Error(t, err)
}
