package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sagarc03/shelf/keybackend"
)

// HMACConfig configures verification of locally signed tokens.
type HMACConfig struct {
	Issuer    string
	ClientID  string
	TokenUses []string
	Leeway    time.Duration
	Clock     func() time.Time
}

// NewHMACVerifier verifies HS256 tokens with secrets from store.
func NewHMACVerifier(store keybackend.SecretStore, cfg HMACConfig) (*JWTVerifier, error) {
	if store == nil {
		return nil, errors.New("new hmac verifier: secret store is required")
	}

	kf := func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		return store.Lookup(kid)
	}

	return NewJWTVerifier(kf, Options{
		Methods:   []string{jwt.SigningMethodHS256.Alg()},
		Issuer:    cfg.Issuer,
		ClientID:  cfg.ClientID,
		TokenUses: cfg.TokenUses,
		Leeway:    cfg.Leeway,
		Clock:     cfg.Clock,
	})
}

// SignHMAC issues an HS256 token for claims, tagging it with keyID.
func SignHMAC(keyID string, secret []byte, claims Claims) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	if keyID != "" {
		t.Header["kid"] = keyID
	}

	signed, err := t.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
