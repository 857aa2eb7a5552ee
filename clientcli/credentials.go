package clientcli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sagarc03/shelf/identity"
)

// refreshSkew renews tokens slightly before they expire.
const refreshSkew = time.Minute

// TokenSource supplies the bearer token for a request. An empty token sends
// the request unauthenticated.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken always returns the same token.
type StaticToken string

func (s StaticToken) Token(context.Context) (string, error) { return string(s), nil }

// Credentials are the tokens stored for one profile after sign-in.
type Credentials struct {
	Username        string `yaml:"username"`
	identity.Tokens `yaml:",inline"`
}

// Expired reports whether the tokens are expired at now, allowing for skew.
func (c Credentials) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Add(refreshSkew).Before(c.ExpiresAt)
}

// BearerToken returns the token sent to the server: the id token, or the
// access token when no id token was issued.
func (c Credentials) BearerToken() string {
	if c.IDToken != "" {
		return c.IDToken
	}
	return c.AccessToken
}

// CredentialsFile maps profile names to stored credentials.
type CredentialsFile struct {
	Profiles map[string]Credentials `yaml:"profiles"`
}

// Get returns the credentials of profile.
func (f *CredentialsFile) Get(profile string) (Credentials, bool) {
	c, ok := f.Profiles[profile]
	return c, ok
}

// Set stores credentials for profile.
func (f *CredentialsFile) Set(profile string, c Credentials) {
	if f.Profiles == nil {
		f.Profiles = make(map[string]Credentials)
	}
	f.Profiles[profile] = c
}

// Remove deletes the credentials of profile.
func (f *CredentialsFile) Remove(profile string) {
	delete(f.Profiles, profile)
}

// LoadCredentialsFile reads path. A missing file yields an empty set.
func LoadCredentialsFile(path string) (*CredentialsFile, error) {
	var f CredentialsFile
	if err := readYAML(path, &f); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	if f.Profiles == nil {
		f.Profiles = map[string]Credentials{}
	}
	return &f, nil
}

// Save writes the file readable by the owner only.
func (f *CredentialsFile) Save(path string) error {
	return writeYAML(path, f)
}

// DefaultCredentialsPath returns ~/.shelf/credentials.yaml.
func DefaultCredentialsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".shelf", "credentials.yaml")
}

// Refresher renews expired tokens. *identity.Client implements it.
type Refresher interface {
	Refresh(ctx context.Context, username, refreshToken string) (identity.Tokens, error)
}

// FileTokenSource reads the profile's tokens from the credentials file,
// refreshing and persisting them when they have expired.
type FileTokenSource struct {
	Path      string
	Profile   string
	Refresher Refresher // optional
	Clock     func() time.Time

	mu sync.Mutex
}

// Token implements TokenSource.
func (s *FileTokenSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := LoadCredentialsFile(s.Path)
	if err != nil {
		return "", err
	}

	creds, ok := f.Get(s.Profile)
	if !ok || creds.BearerToken() == "" {
		return "", fmt.Errorf("profile %s: %w", s.Profile, ErrNotSignedIn)
	}

	now := time.Now
	if s.Clock != nil {
		now = s.Clock
	}
	if !creds.Expired(now()) {
		return creds.BearerToken(), nil
	}

	if s.Refresher == nil || creds.RefreshToken == "" {
		return "", ErrSessionExpired
	}

	tokens, err := s.Refresher.Refresh(ctx, creds.Username, creds.RefreshToken)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrSessionExpired, err)
	}

	creds.Tokens = tokens
	f.Set(s.Profile, creds)
	if err := f.Save(s.Path); err != nil {
		return "", err
	}

	return creds.BearerToken(), nil
}
