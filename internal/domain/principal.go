// Package domain defines the core types shared by the gatekeeping layer, the
// repository and the service layers. Persistence models are mapped with GORM.
package domain

// Well-known roles. Role comparison is exact; the only escalation is that
// AdminRole satisfies any requirement (see authz.Authorize).
const (
	// BaseRole is assigned to a principal whose token carries no role claim.
	// It is the least privileged role and is never escalated.
	BaseRole = "base"
	// StaffRole may write business documents.
	StaffRole = "staff"
	// AdminRole satisfies every role requirement.
	AdminRole = "admin"
)

// Principal is the verified identity attached to a request.
//
// A Principal is produced fresh per request by the identity resolver, is never
// persisted by the gatekeeping layer, and is discarded at the end of the
// request. RawClaims is the decoded claim set as returned by the identity
// provider; Role is derived from it (defaulting to BaseRole).
type Principal struct {
	ID        string         `json:"id"`
	RawClaims map[string]any `json:"claims,omitempty"`
	Role      string         `json:"role"`
}

// IsZero reports whether p carries no identity.
func (p Principal) IsZero() bool { return p.ID == "" }
