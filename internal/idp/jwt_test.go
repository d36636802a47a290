package idp

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func newSigningKey(t *testing.T) (*ecdsa.PrivateKey, string) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)

	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})
	return key, string(pemBytes)
}

func signToken(t *testing.T, key *ecdsa.PrivateKey, claims jwt.Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodES256, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func TestJWTVerifier(t *testing.T) {
	ctx := context.Background()

	t.Run("requires a public key", func(t *testing.T) {
		_, err := NewJWTVerifier("")
		require.Error(t, err)
	})

	t.Run("rejects malformed pem", func(t *testing.T) {
		_, err := NewJWTVerifier("not a pem block")
		require.Error(t, err)
	})

	t.Run("valid token returns the subject", func(t *testing.T) {
		key, pub := newSigningKey(t)
		verifier, err := NewJWTVerifier(pub)
		require.NoError(t, err)

		token := signToken(t, key, jwt.RegisteredClaims{
			Subject:   "idp|user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		})

		subject, err := verifier.Verify(ctx, token)
		require.NoError(t, err)
		require.Equal(t, "idp|user-1", subject)
	})

	t.Run("rejects expired token", func(t *testing.T) {
		key, pub := newSigningKey(t)
		verifier, err := NewJWTVerifier(pub)
		require.NoError(t, err)

		token := signToken(t, key, jwt.RegisteredClaims{
			Subject:   "idp|user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		})

		_, err = verifier.Verify(ctx, token)
		require.Error(t, err)
	})

	t.Run("rejects token signed by a different key", func(t *testing.T) {
		otherKey, _ := newSigningKey(t)
		_, pub := newSigningKey(t)

		verifier, err := NewJWTVerifier(pub)
		require.NoError(t, err)

		token := signToken(t, otherKey, jwt.RegisteredClaims{
			Subject:   "idp|user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		})

		_, err = verifier.Verify(ctx, token)
		require.Error(t, err)
	})

	t.Run("rejects wrong signing method", func(t *testing.T) {
		_, pub := newSigningKey(t)
		verifier, err := NewJWTVerifier(pub)
		require.NoError(t, err)

		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
			Subject: "idp|user-1",
		}).SignedString([]byte("shared-secret"))
		require.NoError(t, err)

		_, err = verifier.Verify(ctx, token)
		require.Error(t, err)
	})

	t.Run("rejects token without a subject", func(t *testing.T) {
		key, pub := newSigningKey(t)
		verifier, err := NewJWTVerifier(pub)
		require.NoError(t, err)

		token := signToken(t, key, jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		})

		_, err = verifier.Verify(ctx, token)
		require.Error(t, err)
	})
}
