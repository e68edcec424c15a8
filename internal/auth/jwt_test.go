package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTManager_RoundTrip(t *testing.T) {
	m := NewJWTManager("secret", "peerlink", time.Hour)

	token, err := m.GenerateToken("uid123", "a@example.com")
	require.NoError(t, err)

	identity, err := m.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, &Identity{UserID: "uid123", Email: "a@example.com"}, identity)
}

func TestJWTManager_Rejects(t *testing.T) {
	m := NewJWTManager("secret", "peerlink", time.Hour)

	_, err := m.GenerateToken(" ", "")
	assert.ErrorIs(t, err, ErrInvalidToken)

	other, err := NewJWTManager("other-secret", "peerlink", time.Hour).GenerateToken("uid", "")
	require.NoError(t, err)
	_, err = m.Verify(context.Background(), other)
	assert.ErrorIs(t, err, ErrInvalidToken)

	wrongIssuer, err := NewJWTManager("secret", "someone-else", time.Hour).GenerateToken("uid", "")
	require.NoError(t, err)
	_, err = m.Verify(context.Background(), wrongIssuer)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired, err := NewJWTManager("secret", "peerlink", -time.Minute).GenerateToken("uid", "")
	require.NoError(t, err)
	_, err = m.Verify(context.Background(), expired)
	assert.ErrorIs(t, err, ErrExpiredToken)

	_, err = m.Verify(context.Background(), "not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTManager_RejectsNoneAlgorithm(t *testing.T) {
	m := NewJWTManager("secret", "peerlink", time.Hour)

	claims := &Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "uid",
		Issuer:    "peerlink",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = m.Verify(context.Background(), unsigned)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
