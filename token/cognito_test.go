package token_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sagarc03/shelf"
	"github.com/sagarc03/shelf/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	poolRegion = "us-east-1"
	poolID     = "us-east-1_Abc123"
	poolClient = "client-123"
	poolKID    = "pool-key-1"
)

func newRSAKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return key
}

func cognitoClaims(use string) token.Claims {
	now := time.Now()
	c := token.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    token.CognitoIssuer(poolRegion, poolID),
			Subject:   "3f2a0c1e-sub",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
		TokenUse:        use,
		CognitoUsername: "alice",
		Email:           "alice@example.com",
	}
	switch use {
	case token.UseID:
		c.Audience = jwt.ClaimStrings{poolClient}
	case token.UseAccess:
		c.ClientID = poolClient
		c.Username = "alice"
		c.CognitoUsername = ""
		c.Email = ""
	}
	return c
}

func signRS256(t *testing.T, key *rsa.PrivateKey, claims token.Claims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tok.Header["kid"] = poolKID
	raw, err := tok.SignedString(key)
	require.NoError(t, err)
	return raw
}

func newCognitoVerifier(t *testing.T, key *rsa.PrivateKey, uses []string) *token.JWTVerifier {
	t.Helper()
	v, err := token.NewCognitoVerifierWithKeyfunc(func(*jwt.Token) (any, error) {
		return &key.PublicKey, nil
	}, token.CognitoConfig{
		Region:     poolRegion,
		UserPoolID: poolID,
		ClientID:   poolClient,
		TokenUses:  uses,
	})
	require.NoError(t, err)
	return v
}

func TestCognitoVerifier_AcceptsIDAndAccessTokens(t *testing.T) {
	t.Parallel()

	key := newRSAKey(t)
	v := newCognitoVerifier(t, key, nil)

	subject, err := v.Verify(context.Background(), signRS256(t, key, cognitoClaims(token.UseID)))
	require.NoError(t, err)
	assert.Equal(t, shelf.Subject{
		ID:       "3f2a0c1e-sub",
		Username: "alice",
		Email:    "alice@example.com",
		TokenUse: token.UseID,
	}, subject)

	subject, err = v.Verify(context.Background(), signRS256(t, key, cognitoClaims(token.UseAccess)))
	require.NoError(t, err)
	assert.Equal(t, "3f2a0c1e-sub", subject.ID)
	assert.Equal(t, "alice", subject.Username)
	assert.Equal(t, token.UseAccess, subject.TokenUse)
}

func TestCognitoVerifier_Rejects(t *testing.T) {
	t.Parallel()

	key := newRSAKey(t)
	otherKey := newRSAKey(t)

	wrongIssuer := cognitoClaims(token.UseID)
	wrongIssuer.Issuer = token.CognitoIssuer(poolRegion, "us-east-1_Other")

	wrongAudience := cognitoClaims(token.UseID)
	wrongAudience.Audience = jwt.ClaimStrings{"other-client"}

	wrongClientID := cognitoClaims(token.UseAccess)
	wrongClientID.ClientID = "other-client"

	expired := cognitoClaims(token.UseID)
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))

	tests := []struct {
		name string
		raw  func(t *testing.T) string
		uses []string
	}{
		{
			name: "signed by another key",
			raw:  func(t *testing.T) string { return signRS256(t, otherKey, cognitoClaims(token.UseID)) },
		},
		{
			name: "wrong issuer",
			raw:  func(t *testing.T) string { return signRS256(t, key, wrongIssuer) },
		},
		{
			name: "id token for another client",
			raw:  func(t *testing.T) string { return signRS256(t, key, wrongAudience) },
		},
		{
			name: "access token for another client",
			raw:  func(t *testing.T) string { return signRS256(t, key, wrongClientID) },
		},
		{
			name: "expired",
			raw:  func(t *testing.T) string { return signRS256(t, key, expired) },
		},
		{
			name: "access token when only id tokens are accepted",
			raw:  func(t *testing.T) string { return signRS256(t, key, cognitoClaims(token.UseAccess)) },
			uses: []string{token.UseID},
		},
		{
			name: "hmac token",
			raw: func(t *testing.T) string {
				raw, err := token.SignHMAC(poolKID, devSecret, cognitoClaims(token.UseID))
				require.NoError(t, err)
				return raw
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			v := newCognitoVerifier(t, key, tt.uses)
			_, err := v.Verify(context.Background(), tt.raw(t))
			require.Error(t, err)
			assert.True(t, errors.Is(err, shelf.ErrUnauthorized))
		})
	}
}

func TestCognitoVerifier_JWKSet(t *testing.T) {
	t.Parallel()

	key := newRSAKey(t)
	jwks, err := json.Marshal(map[string]any{
		"keys": []map[string]string{{
			"kty": "RSA",
			"kid": poolKID,
			"alg": "RS256",
			"use": "sig",
			"n":   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
			"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
		}},
	})
	require.NoError(t, err)

	kf, err := keyfunc.NewJWKSetJSON(jwks)
	require.NoError(t, err)

	v, err := token.NewCognitoVerifierWithKeyfunc(kf.Keyfunc, token.CognitoConfig{
		Region:     poolRegion,
		UserPoolID: poolID,
		ClientID:   poolClient,
	})
	require.NoError(t, err)

	subject, err := v.Verify(context.Background(), signRS256(t, key, cognitoClaims(token.UseID)))
	require.NoError(t, err)
	assert.Equal(t, "3f2a0c1e-sub", subject.ID)
}

func TestNewCognitoVerifier_RequiresPool(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  token.CognitoConfig
	}{
		{name: "missing region", cfg: token.CognitoConfig{UserPoolID: poolID, ClientID: poolClient}},
		{name: "missing pool", cfg: token.CognitoConfig{Region: poolRegion, ClientID: poolClient}},
		{name: "missing client", cfg: token.CognitoConfig{Region: poolRegion, UserPoolID: poolID}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := token.NewCognitoVerifier(context.Background(), tt.cfg)
			assert.Error(t, err)
		})
	}
}

func TestCognitoIssuer(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "https://cognito-idp.eu-west-1.amazonaws.com/eu-west-1_XYZ",
		token.CognitoIssuer("eu-west-1", "eu-west-1_XYZ"))
}
