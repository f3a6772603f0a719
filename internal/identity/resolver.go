package identity

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tbourn/hospitality-backoffice/internal/domain"
)

// DefaultRoleClaim is the claim the role is read from unless configured otherwise.
const DefaultRoleClaim = "role"

// Resolver turns an Authorization header into a Principal.
type Resolver struct {
	verifier  Verifier
	roleClaim string
	timeout   time.Duration
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithRoleClaim sets the claim holding the role.
func WithRoleClaim(name string) ResolverOption {
	return func(r *Resolver) {
		if name = strings.TrimSpace(name); name != "" {
			r.roleClaim = name
		}
	}
}

// WithVerifyTimeout bounds a single verification. Values <= 0 disable the bound.
func WithVerifyTimeout(d time.Duration) ResolverOption {
	return func(r *Resolver) { r.timeout = d }
}

// NewResolver returns a Resolver using v. The default verification timeout is 3s.
func NewResolver(v Verifier, opts ...ResolverOption) *Resolver {
	r := &Resolver{verifier: v, roleClaim: DefaultRoleClaim, timeout: 3 * time.Second}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// BearerToken extracts the token from an Authorization header value. The
// scheme is matched case-insensitively; an empty token is not a token.
func BearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// Resolve verifies the bearer token in header and returns the Principal.
//
// A header without a usable bearer token yields ErrMissingCredential. Any
// verification failure, including a timeout, yields ErrInvalidCredential.
// A token without a role claim resolves to domain.BaseRole.
func (r *Resolver) Resolve(ctx context.Context, header string) (domain.Principal, error) {
	token, ok := BearerToken(header)
	if !ok {
		return domain.Principal{}, ErrMissingCredential
	}

	claims, err := r.verify(ctx, token)
	if err != nil {
		return domain.Principal{}, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return domain.Principal{}, fmt.Errorf("%w: empty subject", ErrInvalidCredential)
	}

	return domain.Principal{
		ID:        claims.Subject,
		RawClaims: claims.Values,
		Role:      roleFrom(claims.Values, r.roleClaim),
	}, nil
}

type verifyResult struct {
	claims Claims
	err    error
}

// verify runs the verifier under the timeout. A verifier that ignores ctx
// still cannot hold the request past the deadline.
func (r *Resolver) verify(ctx context.Context, token string) (Claims, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	done := make(chan verifyResult, 1)
	go func() {
		c, err := r.verifier.Verify(ctx, token)
		done <- verifyResult{c, err}
	}()

	select {
	case res := <-done:
		return res.claims, res.err
	case <-ctx.Done():
		return Claims{}, ctx.Err()
	}
}

func roleFrom(claims map[string]any, name string) string {
	if s, ok := claims[name].(string); ok {
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return domain.BaseRole
}
