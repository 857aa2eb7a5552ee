package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

// CognitoConfig identifies the user pool whose tokens are accepted.
type CognitoConfig struct {
	Region     string
	UserPoolID string
	ClientID   string
	TokenUses  []string
	Leeway     time.Duration
	// JWKSURL overrides the pool's well-known JWKS location.
	JWKSURL string
}

// CognitoIssuer returns the "iss" claim of tokens issued by the pool.
func CognitoIssuer(region, userPoolID string) string {
	return fmt.Sprintf("https://cognito-idp.%s.amazonaws.com/%s", region, userPoolID)
}

func (c CognitoConfig) validate() error {
	if c.Region == "" {
		return errors.New("region is required")
	}
	if c.UserPoolID == "" {
		return errors.New("user pool id is required")
	}
	if c.ClientID == "" {
		return errors.New("client id is required")
	}
	return nil
}

func (c CognitoConfig) jwksURL() string {
	if c.JWKSURL != "" {
		return c.JWKSURL
	}
	return CognitoIssuer(c.Region, c.UserPoolID) + "/.well-known/jwks.json"
}

// NewCognitoVerifier verifies tokens against the pool JWKS. The key set is
// refreshed in the background until ctx is cancelled.
func NewCognitoVerifier(ctx context.Context, cfg CognitoConfig) (*JWTVerifier, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("new cognito verifier: %w", err)
	}

	jwks, err := keyfunc.NewDefaultCtx(ctx, []string{cfg.jwksURL()})
	if err != nil {
		return nil, fmt.Errorf("new cognito verifier: load jwks: %w", err)
	}

	return NewCognitoVerifierWithKeyfunc(jwks.Keyfunc, cfg)
}

// NewCognitoVerifierWithKeyfunc applies the pool's claim rules while
// resolving keys with kf.
func NewCognitoVerifierWithKeyfunc(kf jwt.Keyfunc, cfg CognitoConfig) (*JWTVerifier, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("new cognito verifier: %w", err)
	}

	uses := cfg.TokenUses
	if len(uses) == 0 {
		uses = []string{UseID, UseAccess}
	}

	return NewJWTVerifier(kf, Options{
		Methods:   []string{jwt.SigningMethodRS256.Alg()},
		Issuer:    CognitoIssuer(cfg.Region, cfg.UserPoolID),
		ClientID:  cfg.ClientID,
		TokenUses: uses,
		Leeway:    cfg.Leeway,
	})
}
