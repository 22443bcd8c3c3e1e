package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSigningKey = "test-signing-key"

func signToken(t *testing.T, key string, claims Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(key))
	require.NoError(t, err)
	return signed
}

func TestValidateToken(t *testing.T) {
	svc := NewService(testSigningKey)

	signed := signToken(t, testSigningKey, Claims{
		OperatorID: "op-7",
		Role:       "responder",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	claims, err := svc.ValidateToken(signed)
	require.NoError(t, err)
	assert.Equal(t, "op-7", claims.OperatorID)
	assert.Equal(t, "responder", claims.Role)
}

func TestValidateTokenExpired(t *testing.T) {
	svc := NewService(testSigningKey)

	signed := signToken(t, testSigningKey, Claims{
		OperatorID: "op-7",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})

	_, err := svc.ValidateToken(signed)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expired")
}

func TestValidateTokenWrongKey(t *testing.T) {
	svc := NewService(testSigningKey)

	signed := signToken(t, "some-other-key", Claims{OperatorID: "op-7"})

	_, err := svc.ValidateToken(signed)
	require.Error(t, err)
}

func TestValidateTokenRejectsNonHMAC(t *testing.T) {
	svc := NewService(testSigningKey)

	// alg=none style tokens must never validate.
	token := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{OperatorID: "op-7"})
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = svc.ValidateToken(signed)
	require.Error(t, err)
}

func TestValidateTokenGarbage(t *testing.T) {
	svc := NewService(testSigningKey)
	_, err := svc.ValidateToken("not.a.jwt")
	require.Error(t, err)
}
