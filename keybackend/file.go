package keybackend

import (
	"encoding/json"
	"fmt"
	"os"
)

// MinSecretLength is the shortest accepted HMAC secret in bytes.
const MinSecretLength = 32

// SigningKey is an HMAC key identified by the JWT "kid" header.
type SigningKey struct {
	KeyID  string `json:"kid" mapstructure:"kid"`
	Secret string `json:"secret" mapstructure:"secret"`
}

func (k SigningKey) valid() bool {
	return k.KeyID != "" && len(k.Secret) >= MinSecretLength
}

// LoadKeysFromFile loads signing keys from a JSON file:
//
//	[
//	  {"kid": "dev-1", "secret": "at-least-thirty-two-bytes-of-secret"},
//	  {"kid": "dev-2", "secret": "..."}
//	]
//
// Entries with an empty id or a secret shorter than MinSecretLength are
// skipped.
func LoadKeysFromFile(path string) (map[string][]byte, error) {
	data, err := os.ReadFile(path) //nolint:gosec // Path is from trusted config file
	if err != nil {
		return nil, fmt.Errorf("read keys file: %w", err)
	}

	var entries []SigningKey
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse keys file: %w", err)
	}

	keys := make(map[string][]byte, len(entries))
	for _, k := range entries {
		if k.valid() {
			keys[k.KeyID] = []byte(k.Secret)
		}
	}

	return keys, nil
}
