// Package authz decides whether a resolved principal may perform an action
// that requires a role.
//
// Authorize is the pure rule. Gate adds the trust policy around it: token
// roles are trusted for unprivileged requirements only, and privileged
// requirements are checked against the persisted user record so a downgrade
// is effective immediately.
package authz

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tbourn/hospitality-backoffice/internal/domain"
)

// Reason explains a Decision.
type Reason string

const (
	ReasonNoRequirement Reason = "no_requirement"
	ReasonRoleMatch     Reason = "role_match"
	ReasonEscalated     Reason = "escalated"
	ReasonRoleMismatch  Reason = "role_mismatch"
)

// Decision is the outcome of an authorization check.
type Decision struct {
	Allowed bool
	Reason  Reason
	// Role is the role the decision was made with.
	Role string
}

// ErrRoleLookup is returned when the authoritative role cannot be read. The
// request must be rejected.
var ErrRoleLookup = errors.New("role lookup failed")

// escalatedRoles lists the roles that satisfy required in addition to required
// itself.
func escalatedRoles(required string) []string {
	if required == domain.AdminRole {
		return nil
	}
	return []string{domain.AdminRole}
}

// Authorize reports whether p satisfies required. An empty requirement always
// allows. Otherwise the role must match exactly or be one of the escalated
// roles for required.
func Authorize(p domain.Principal, required string) Decision {
	if required == "" {
		return Decision{Allowed: true, Reason: ReasonNoRequirement, Role: p.Role}
	}
	if p.Role == required {
		return Decision{Allowed: true, Reason: ReasonRoleMatch, Role: p.Role}
	}
	for _, r := range escalatedRoles(required) {
		if p.Role == r {
			return Decision{Allowed: true, Reason: ReasonEscalated, Role: p.Role}
		}
	}
	return Decision{Allowed: false, Reason: ReasonRoleMismatch, Role: p.Role}
}

// IsPrivileged reports whether required must be checked against the
// persisted role rather than the token.
func IsPrivileged(required string) bool {
	return required != "" && required != domain.BaseRole
}

// RoleSource reads the authoritative role for a principal id. found is false
// when no record exists; err is reserved for lookup failures.
type RoleSource interface {
	Role(ctx context.Context, id string) (role string, found bool, err error)
}

// RoleSourceFunc adapts a function to RoleSource.
type RoleSourceFunc func(ctx context.Context, id string) (string, bool, error)

// Role implements RoleSource.
func (f RoleSourceFunc) Role(ctx context.Context, id string) (string, bool, error) {
	return f(ctx, id)
}

// Gate applies Authorize with the two-tier trust policy.
type Gate struct {
	roles   RoleSource
	timeout time.Duration
}

// GateOption configures a Gate.
type GateOption func(*Gate)

// WithLookupTimeout bounds a role lookup. Values <= 0 disable the bound.
func WithLookupTimeout(d time.Duration) GateOption {
	return func(g *Gate) { g.timeout = d }
}

// NewGate returns a Gate reading privileged roles from roles. The default
// lookup timeout is 2s.
func NewGate(roles RoleSource, opts ...GateOption) *Gate {
	g := &Gate{roles: roles, timeout: 2 * time.Second}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Decide authorizes p for required. For a privileged requirement the role is
// re-read from the RoleSource and the token role is ignored; a principal with
// no record is treated as domain.BaseRole. Decide never reads or writes
// rate-limit state.
func (g *Gate) Decide(ctx context.Context, p domain.Principal, required string) (Decision, error) {
	if !IsPrivileged(required) {
		return Authorize(p, required), nil
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	role, found, err := g.roles.Role(ctx, p.ID)
	if err != nil {
		return Decision{}, fmt.Errorf("%w: %v", ErrRoleLookup, err)
	}
	if !found || role == "" {
		role = domain.BaseRole
	}
	p.Role = role
	return Authorize(p, required), nil
}
