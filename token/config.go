package token

import (
	"context"
	"fmt"
	"time"

	"github.com/sagarc03/shelf"
	"github.com/sagarc03/shelf/keybackend"
)

// Authentication modes.
const (
	ModeNone    = "none"
	ModeCognito = "cognito"
	ModeHMAC    = "hmac"
)

// Config selects and configures the verifier used by the server.
type Config struct {
	Mode       string                `mapstructure:"mode" validate:"required,oneof=none cognito hmac"`
	Region     string                `mapstructure:"region" validate:"required_if=Mode cognito"`
	UserPoolID string                `mapstructure:"user_pool_id" validate:"required_if=Mode cognito"`
	ClientID   string                `mapstructure:"client_id" validate:"required_if=Mode cognito"`
	Issuer     string                `mapstructure:"issuer"`
	TokenUses  []string              `mapstructure:"token_uses" validate:"dive,oneof=id access"`
	Leeway     time.Duration         `mapstructure:"leeway" validate:"gte=0"`
	JWKSURL    string                `mapstructure:"jwks_url" validate:"omitempty,url"`
	Keys       keybackend.KeysConfig `mapstructure:"keys"`
}

// New builds the verifier for cfg.Mode. ModeNone yields a nil verifier,
// which the HTTP layer treats as authentication disabled.
func New(ctx context.Context, cfg Config) (shelf.TokenVerifier, error) {
	switch cfg.Mode {
	case ModeNone:
		return nil, nil
	case ModeCognito:
		v, err := NewCognitoVerifier(ctx, CognitoConfig{
			Region:     cfg.Region,
			UserPoolID: cfg.UserPoolID,
			ClientID:   cfg.ClientID,
			TokenUses:  cfg.TokenUses,
			Leeway:     cfg.Leeway,
			JWKSURL:    cfg.JWKSURL,
		})
		if err != nil {
			return nil, err
		}
		return v, nil
	case ModeHMAC:
		store, err := keybackend.NewSecretStore(cfg.Keys)
		if err != nil {
			return nil, fmt.Errorf("new token verifier: %w", err)
		}
		v, err := NewHMACVerifier(store, HMACConfig{
			Issuer:    cfg.Issuer,
			ClientID:  cfg.ClientID,
			TokenUses: cfg.TokenUses,
			Leeway:    cfg.Leeway,
		})
		if err != nil {
			return nil, err
		}
		return v, nil
	default:
		return nil, fmt.Errorf("new token verifier: unsupported auth mode: %s", cfg.Mode)
	}
}
