package token

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sagarc03/shelf"
)

// Token uses issued by Cognito.
const (
	UseID     = "id"
	UseAccess = "access"
)

// Claims are the JWT claims understood by the verifiers.
type Claims struct {
	jwt.RegisteredClaims
	TokenUse        string `json:"token_use,omitempty"`
	ClientID        string `json:"client_id,omitempty"`
	Username        string `json:"username,omitempty"`
	CognitoUsername string `json:"cognito:username,omitempty"`
	Email           string `json:"email,omitempty"`
}

// Subject converts the claims into a shelf.Subject.
func (c *Claims) Subject() shelf.Subject {
	username := c.CognitoUsername
	if username == "" {
		username = c.Username
	}
	return shelf.Subject{
		ID:       c.RegisteredClaims.Subject,
		Username: username,
		Email:    c.Email,
		TokenUse: c.TokenUse,
	}
}

// Options configures a JWTVerifier.
type Options struct {
	// Methods lists the accepted signing algorithms. Required.
	Methods []string
	// Issuer is compared to the "iss" claim when set.
	Issuer string
	// ClientID must appear in "aud" for id tokens and in "client_id" for
	// access tokens. Empty disables the check.
	ClientID string
	// TokenUses restricts the "token_use" claim. Empty accepts any value,
	// including a missing claim.
	TokenUses []string
	// Leeway tolerates clock skew on exp, nbf and iat.
	Leeway time.Duration
	// Clock overrides time.Now.
	Clock func() time.Time
}

// JWTVerifier validates signed JWTs with a caller supplied key function.
type JWTVerifier struct {
	keyfunc jwt.Keyfunc
	parser  *jwt.Parser
	opts    Options
}

// NewJWTVerifier creates a verifier that resolves signing keys with keyfunc.
func NewJWTVerifier(keyfunc jwt.Keyfunc, opts Options) (*JWTVerifier, error) {
	if keyfunc == nil {
		return nil, errors.New("new jwt verifier: keyfunc is required")
	}
	if len(opts.Methods) == 0 {
		return nil, errors.New("new jwt verifier: at least one signing method is required")
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods(opts.Methods),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(opts.Leeway),
	}
	if opts.Issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(opts.Issuer))
	}
	if opts.Clock != nil {
		parserOpts = append(parserOpts, jwt.WithTimeFunc(opts.Clock))
	}

	return &JWTVerifier{
		keyfunc: keyfunc,
		parser:  jwt.NewParser(parserOpts...),
		opts:    opts,
	}, nil
}

// Verify parses raw, checks its signature and claims, and returns the
// subject it was issued to.
func (v *JWTVerifier) Verify(ctx context.Context, raw string) (shelf.Subject, error) {
	if err := ctx.Err(); err != nil {
		return shelf.Subject{}, fmt.Errorf("verify token: %w", err)
	}
	if raw == "" {
		return shelf.Subject{}, fmt.Errorf("verify token: %w: missing token", shelf.ErrUnauthorized)
	}

	var claims Claims
	if _, err := v.parser.ParseWithClaims(raw, &claims, v.keyfunc); err != nil {
		return shelf.Subject{}, fmt.Errorf("verify token: %w: %w", shelf.ErrUnauthorized, err)
	}

	if err := v.checkClaims(&claims); err != nil {
		return shelf.Subject{}, fmt.Errorf("verify token: %w: %w", shelf.ErrUnauthorized, err)
	}

	return claims.Subject(), nil
}

func (v *JWTVerifier) checkClaims(c *Claims) error {
	if c.RegisteredClaims.Subject == "" {
		return errors.New("missing subject")
	}

	if len(v.opts.TokenUses) > 0 && !slices.Contains(v.opts.TokenUses, c.TokenUse) {
		return fmt.Errorf("token_use %q not accepted", c.TokenUse)
	}

	if v.opts.ClientID == "" {
		return nil
	}
	if c.TokenUse == UseAccess {
		if c.ClientID != v.opts.ClientID {
			return errors.New("client_id mismatch")
		}
		return nil
	}
	if !slices.Contains(c.Audience, v.opts.ClientID) {
		return errors.New("audience mismatch")
	}
	return nil
}
