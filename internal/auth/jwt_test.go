package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAndValidate(t *testing.T) {
	m := NewJWTManager("secret-a", time.Hour)

	token, err := m.GenerateAccessToken("alice", RoleAdmin)
	require.NoError(t, err)

	claims, err := m.ParseAndValidate(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Subject)
	assert.Equal(t, RoleAdmin, claims.Role)

	t.Run("foreign secret", func(t *testing.T) {
		_, err := NewJWTManager("secret-b", time.Hour).ParseAndValidate(token)
		assert.Error(t, err)
	})

	t.Run("missing subject", func(t *testing.T) {
		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
			RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
		}).SignedString([]byte("secret-a"))
		require.NoError(t, err)

		_, err = m.ParseAndValidate(signed)
		assert.Error(t, err)
	})

	t.Run("non-HMAC algorithm", func(t *testing.T) {
		unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{
			RegisteredClaims: jwt.RegisteredClaims{Subject: "alice"},
		}).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = m.ParseAndValidate(unsigned)
		assert.Error(t, err)
	})
}
