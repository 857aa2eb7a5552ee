package keybackend

import (
	"fmt"
)

// SecretStore resolves a token's key id to its HMAC secret.
type SecretStore interface {
	Lookup(keyID string) ([]byte, error)
}

// KeysConfig holds configuration for loading signing keys.
type KeysConfig struct {
	Inline []SigningKey `mapstructure:"inline"` // Inline keys from config
	File   string       `mapstructure:"file"`   // Path to JSON file containing keys
}

// NewSecretStore creates a SecretStore from inline keys and the keys file.
// File keys take precedence over inline keys with the same id.
func NewSecretStore(cfg KeysConfig) (*MapSecretStore, error) {
	keys := make(map[string][]byte)

	for _, k := range cfg.Inline {
		if k.valid() {
			keys[k.KeyID] = []byte(k.Secret)
		}
	}

	if cfg.File != "" {
		fileKeys, err := LoadKeysFromFile(cfg.File)
		if err != nil {
			return nil, err
		}
		for id, secret := range fileKeys {
			keys[id] = secret
		}
	}

	if len(keys) == 0 {
		return nil, fmt.Errorf("new secret store: no signing keys configured")
	}

	return NewMapSecretStore(keys), nil
}
