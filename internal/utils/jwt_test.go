package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAccessTokenRoundTrip(t *testing.T) {
	tok, err := NewAccessToken("s3cret", 42, "CAPTAIN", 15)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().UTC().Add(15*time.Minute), tok.Exp, 5*time.Second)

	parsed, err := jwt.Parse(tok.Token, func(*jwt.Token) (interface{}, error) {
		return []byte("s3cret"), nil
	})
	require.NoError(t, err)
	require.True(t, parsed.Valid)

	claims := parsed.Claims.(jwt.MapClaims)
	assert.Equal(t, float64(42), claims["sub"])
	assert.Equal(t, "CAPTAIN", claims["role"])
}

func TestRefreshTokensAreUniqueAndHashed(t *testing.T) {
	a, err := NewRefreshToken(30)
	require.NoError(t, err)
	b, err := NewRefreshToken(30)
	require.NoError(t, err)

	assert.NotEqual(t, a.Raw, b.Raw)
	assert.Len(t, a.Raw, 96) // 48 random bytes, hex encoded

	// hash is deterministic and never equals the raw value
	assert.Equal(t, HashRefreshRaw(a.Raw), HashRefreshRaw(a.Raw))
	assert.NotEqual(t, a.Raw, HashRefreshRaw(a.Raw))
	assert.Len(t, HashRefreshRaw(a.Raw), 64)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("hunter22", 4) // low cost keeps the test fast
	require.NoError(t, err)
	assert.True(t, VerifyPassword(hash, "hunter22"))
	assert.False(t, VerifyPassword(hash, "wrong"))
}

func TestPasswordHashingClampsBadCost(t *testing.T) {
	hash, err := HashPassword("hunter22", 99)
	require.NoError(t, err)
	assert.True(t, VerifyPassword(hash, "hunter22"))
}
