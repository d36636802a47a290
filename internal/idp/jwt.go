package idp

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWTVerifier verifies ES256-signed bearer JWTs against the identity
// provider's public key and returns the subject claim as the external user
// id.
type JWTVerifier struct {
	publicKey *ecdsa.PublicKey
}

var _ Verifier = (*JWTVerifier)(nil)

// NewJWTVerifier parses the provider's EC public key from PEM.
func NewJWTVerifier(publicKeyPEM string) (*JWTVerifier, error) {
	if publicKeyPEM == "" {
		return nil, errors.New("JWT public key not provided")
	}

	publicKey, err := jwt.ParseECPublicKeyFromPEM([]byte(publicKeyPEM))
	if err != nil {
		return nil, fmt.Errorf("failed to parse JWT public key: %w", err)
	}

	return &JWTVerifier{publicKey: publicKey}, nil
}

// Verify validates the token signature and expiry and returns its subject.
func (v *JWTVerifier) Verify(_ context.Context, bearer string) (string, error) {
	parsed, err := jwt.ParseWithClaims(bearer, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodES256 {
			return nil, errors.New("invalid signing method")
		}
		return v.publicKey, nil
	})
	if err != nil {
		return "", fmt.Errorf("invalid token: %w", err)
	}

	if !parsed.Valid {
		return "", errors.New("token invalid")
	}

	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok {
		return "", errors.New("invalid claims")
	}

	if claims.ExpiresAt != nil && claims.ExpiresAt.Before(time.Now()) {
		return "", errors.New("token expired")
	}

	if claims.Subject == "" {
		return "", errors.New("token has no subject")
	}

	return claims.Subject, nil
}
