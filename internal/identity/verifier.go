// Package identity resolves the caller of a request into a domain.Principal.
//
// Token verification is delegated to a Verifier (an identity provider); this
// package only extracts the bearer token, bounds verification time and
// derives the role from the verified claims. It never writes anything.
package identity

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrMissingCredential means no usable bearer token was presented.
	ErrMissingCredential = errors.New("missing credential")
	// ErrInvalidCredential means a token was presented but could not be
	// verified: malformed, expired, bad signature or provider timeout.
	ErrInvalidCredential = errors.New("invalid credential")
)

// Claims is the verified content of a token.
type Claims struct {
	Subject   string
	Values    map[string]any
	ExpiresAt time.Time
}

// Verifier checks a raw token with an identity provider.
//
// Implementations must be safe for concurrent use and return a non-nil error
// for any token they do not fully trust.
type Verifier interface {
	Verify(ctx context.Context, token string) (Claims, error)
}

// VerifierFunc adapts a function to Verifier.
type VerifierFunc func(ctx context.Context, token string) (Claims, error)

// Verify implements Verifier.
func (f VerifierFunc) Verify(ctx context.Context, token string) (Claims, error) {
	return f(ctx, token)
}
