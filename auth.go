package shelf

import "context"

// Subject is the authenticated principal extracted from a bearer token.
// Only ID takes part in authorization decisions.
type Subject struct {
	ID       string `json:"id"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	TokenUse string `json:"tokenUse,omitempty"`
}

// Anonymous is the subject attached to requests when authentication is
// disabled.
var Anonymous = Subject{ID: "anonymous", Username: "anonymous"}

// TokenVerifier validates a bearer token.
//
// Verify returns the token's subject, or an error wrapping ErrUnauthorized
// when the token is expired, malformed, wrongly signed or issued for another
// audience. Implementations are read-only and safe for concurrent use.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (Subject, error)
}

type subjectKey struct{}

// WithSubject returns a copy of ctx carrying s.
func WithSubject(ctx context.Context, s Subject) context.Context {
	return context.WithValue(ctx, subjectKey{}, s)
}

// SubjectFromContext returns the subject stored by WithSubject.
func SubjectFromContext(ctx context.Context) (Subject, bool) {
	s, ok := ctx.Value(subjectKey{}).(Subject)
	return s, ok
}
