// Package gate composes principal resolution, rate limiting and role
// authorization into a single Gin handler placed in front of every protected
// route.
//
// The stages always run in this order and stop at the first rejection:
//
//	resolve principal → rate limit → authorize → route handler
//
// so an unauthenticated request never touches rate-limit state and a request
// that is later denied by authorization has still consumed its rate-limit
// slot. Each request performs at most one rate-limit mutation.
package gate

import (
	"fmt"
	"time"

	"github.com/tbourn/hospitality-backoffice/internal/domain"
	"github.com/tbourn/hospitality-backoffice/internal/ratelimit"
)

// KeyBy selects the identity a rate-limit bucket is keyed on.
type KeyBy string

const (
	// KeyByPrincipal keys on the verified principal id.
	KeyByPrincipal KeyBy = "principal"
	// KeyByAddress keys on the client address.
	KeyByAddress KeyBy = "address"
)

// RateLimitPolicy is the rate limit applied to a route. Routes sharing a
// Bucket share counters.
type RateLimitPolicy struct {
	Bucket string
	Limit  int
	Window time.Duration
	KeyBy  KeyBy // defaults to KeyByPrincipal
}

// Policy describes what a route requires. The zero Policy only requires a
// verified principal.
type Policy struct {
	RequiredRole string
	RateLimit    *RateLimitPolicy
}

var knownRoles = map[string]struct{}{
	domain.BaseRole:  {},
	domain.StaffRole: {},
	domain.AdminRole: {},
}

// Validate reports a *ratelimit.ConfigError for an unknown role, an invalid
// bucket name, a non-positive limit or window, or an unknown KeyBy.
func (p Policy) Validate() error {
	if p.RequiredRole != "" {
		if _, ok := knownRoles[p.RequiredRole]; !ok {
			return &ratelimit.ConfigError{Field: "role", Reason: fmt.Sprintf("unknown role %q", p.RequiredRole)}
		}
	}
	if p.RateLimit == nil {
		return nil
	}
	rl := p.RateLimit
	if err := ratelimit.ValidateBucket(rl.Bucket); err != nil {
		return err
	}
	if _, err := ratelimit.NewRule(rl.Limit, rl.Window); err != nil {
		return err
	}
	switch rl.KeyBy {
	case "", KeyByPrincipal, KeyByAddress:
	default:
		return &ratelimit.ConfigError{Field: "key_by", Reason: fmt.Sprintf("unknown value %q", rl.KeyBy)}
	}
	return nil
}

// key returns the rate-limit key for a request.
func (rl *RateLimitPolicy) key(p domain.Principal, clientIP string) string {
	if rl.KeyBy == KeyByAddress {
		return ratelimit.Key(rl.Bucket, ratelimit.ScopeIP, clientIP)
	}
	return ratelimit.Key(rl.Bucket, ratelimit.ScopeUser, p.ID)
}
