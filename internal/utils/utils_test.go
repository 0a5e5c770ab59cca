package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tienda_perfumes/internal/config"
	"tienda_perfumes/internal/models"
)

func TestPasswordHasher_RoundTrip(t *testing.T) {
	h := NewPasswordHasher(config.Argon2{})

	hash, err := h.Hash("s3cr3t-parfum")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=32768,t=1,p=4$"))

	ok, err := h.Verify("s3cr3t-parfum", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Verify("mauvais", hash)
	require.NoError(t, err)
	assert.False(t, ok)

	other, _ := h.Hash("s3cr3t-parfum")
	assert.NotEqual(t, hash, other, "le sel doit être aléatoire")
}

func TestPasswordHasher_UsesConfiguredCost(t *testing.T) {
	cheap := NewPasswordHasher(config.Argon2{Time: 2, MemoryKiB: 8 * 1024, Threads: 1})
	hash, err := cheap.Hash("s3cr3t-parfum")
	require.NoError(t, err)

	p, _, key, err := decodeHash(hash)
	require.NoError(t, err)
	assert.Equal(t, argonParams{time: 2, memory: 8 * 1024, threads: 1}, p)
	assert.Len(t, key, argonKeyLen)

	// un hash garde ses paramètres : le changement de configuration ne casse pas la connexion
	ok, err := NewPasswordHasher(config.Argon2{}).Verify("s3cr3t-parfum", hash)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPasswordHasher_RejectsGarbage(t *testing.T) {
	h := NewPasswordHasher(config.Argon2{})
	for _, bad := range []string{
		"$2a$10$bcrypt",
		"pas-un-hash",
		"$argon2i$v=19$m=32768,t=1,p=4$c2Vs$Y2xl",
		"$argon2id$v=16$m=32768,t=1,p=4$c2Vs$Y2xl",
		"$argon2id$v=19$m=32768,t=1,p=4$c2Vs$",
	} {
		_, err := h.Verify("x", bad)
		assert.ErrorIs(t, err, ErrInvalidHash, bad)
	}
}

func TestJWT(t *testing.T) {
	user := models.User{ID: "u1", Username: "marie", Email: "marie@example.com", Role: models.RoleSeller}

	token, err := GenerateJWT(user, "secret", time.Hour)
	require.NoError(t, err)

	claims, err := ParseJWT(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "marie", claims.Username)
	assert.Equal(t, models.RoleSeller, claims.Role)

	_, err = ParseJWT(token, "autre-secret")
	assert.Error(t, err)
}

func TestJWT_Expired(t *testing.T) {
	token, err := GenerateJWT(models.User{ID: "u1"}, "secret", -time.Minute)
	require.NoError(t, err)

	_, err = ParseJWT(token, "secret")
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}
