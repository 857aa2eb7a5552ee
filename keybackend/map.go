// Package keybackend provides the HMAC signing keys used to verify locally
// issued bearer tokens.
package keybackend

import (
	"fmt"

	"github.com/sagarc03/shelf"
)

// MapSecretStore retrieves secrets from an in-memory map.
type MapSecretStore struct {
	keys map[string][]byte
}

// NewMapSecretStore creates a store from a key id to secret mapping.
func NewMapSecretStore(keys map[string][]byte) *MapSecretStore {
	return &MapSecretStore{keys: keys}
}

// Lookup returns the secret for keyID. A token without a key id resolves to
// the only key when exactly one is configured.
func (s *MapSecretStore) Lookup(keyID string) ([]byte, error) {
	if keyID == "" && len(s.keys) == 1 {
		for _, secret := range s.keys {
			return secret, nil
		}
	}

	secret, found := s.keys[keyID]
	if !found {
		return nil, fmt.Errorf("key %q: %w: %w", keyID, ErrKeyNotFound, shelf.ErrUnauthorized)
	}
	return secret, nil
}

// KeyIDs lists the configured key ids.
func (s *MapSecretStore) KeyIDs() []string {
	ids := make([]string, 0, len(s.keys))
	for id := range s.keys {
		ids = append(ids, id)
	}
	return ids
}
