package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"

	"github.com/lumachat/chatrelay/internal/ierr"
)

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(secret))
	assert.NoError(t, err)

	return tokenString
}

func TestVerifier_Verify(t *testing.T) {
	verifier := NewVerifier("test-secret")

	t.Run("valid token", func(t *testing.T) {
		tokenString := signToken(t, "test-secret", jwt.MapClaims{
			"sub":  "user-1",
			"name": "Alice",
			"exp":  time.Now().Add(time.Hour).Unix(),
			"iat":  time.Now().Unix(),
			"aud":  "chatrelay",
		})

		identity, err := verifier.Verify(tokenString)

		assert.NoError(t, err)
		assert.Equal(t, "user-1", identity.UserID)
		assert.Equal(t, "Alice", identity.Name)
	})

	t.Run("name falls back to subject", func(t *testing.T) {
		tokenString := signToken(t, "test-secret", jwt.MapClaims{
			"sub": "user-1",
			"exp": time.Now().Add(time.Hour).Unix(),
			"iat": time.Now().Unix(),
			"aud": "chatrelay",
		})

		identity, err := verifier.Verify(tokenString)

		assert.NoError(t, err)
		assert.Equal(t, "user-1", identity.Name)
	})

	t.Run("invalid signature", func(t *testing.T) {
		tokenString := signToken(t, "wrong-secret", jwt.MapClaims{
			"sub": "user-1",
			"exp": time.Now().Add(time.Hour).Unix(),
			"iat": time.Now().Unix(),
			"aud": "chatrelay",
		})

		_, err := verifier.Verify(tokenString)

		assert.Error(t, err)
		assert.IsType(t, ierr.Error{}, err)
		assert.Equal(t, ierr.ErrorCodeUnauthenticated, err.(ierr.Error).Code)
	})

	t.Run("expired token", func(t *testing.T) {
		tokenString := signToken(t, "test-secret", jwt.MapClaims{
			"sub": "user-1",
			"exp": time.Now().Add(-time.Hour).Unix(),
			"iat": time.Now().Add(-2 * time.Hour).Unix(),
			"aud": "chatrelay",
		})

		_, err := verifier.Verify(tokenString)

		assert.Error(t, err)
		assert.Equal(t, ierr.ErrorCodeUnauthenticated, err.(ierr.Error).Code)
	})

	t.Run("wrong audience", func(t *testing.T) {
		tokenString := signToken(t, "test-secret", jwt.MapClaims{
			"sub": "user-1",
			"exp": time.Now().Add(time.Hour).Unix(),
			"iat": time.Now().Unix(),
			"aud": "somewhere-else",
		})

		_, err := verifier.Verify(tokenString)

		assert.Error(t, err)
		assert.Equal(t, ierr.ErrorCodeUnauthenticated, err.(ierr.Error).Code)
	})

	t.Run("missing subject", func(t *testing.T) {
		tokenString := signToken(t, "test-secret", jwt.MapClaims{
			"exp": time.Now().Add(time.Hour).Unix(),
			"iat": time.Now().Unix(),
			"aud": "chatrelay",
		})

		_, err := verifier.Verify(tokenString)

		assert.Error(t, err)
		assert.Equal(t, ierr.ErrorCodeInvalidArgument, err.(ierr.Error).Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		_, err := verifier.Verify("not-a-token")

		assert.Error(t, err)
		assert.Equal(t, ierr.ErrorCodeUnauthenticated, err.(ierr.Error).Code)
	})
}
