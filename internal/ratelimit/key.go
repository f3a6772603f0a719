package ratelimit

import "strings"

// Key scopes.
const (
	ScopeUser = "user"
	ScopeIP   = "ip"
)

// keySep separates bucket, scope and identity. Bucket names may not contain it,
// which keeps keys of different buckets disjoint.
const keySep = "|"

// ValidateBucket checks that name can be used as a bucket name.
func ValidateBucket(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return &ConfigError{Field: "bucket", Reason: "must not be empty"}
	case strings.Contains(name, keySep):
		return &ConfigError{Field: "bucket", Reason: "must not contain " + keySep}
	}
	return nil
}

// Key derives the store key for identity id within bucket and scope
// (ScopeUser or ScopeIP), e.g. "write|user:abc123".
//
// An empty id is mapped to "unknown" so that callers without an address still
// share one bucket instead of bypassing the limiter.
func Key(bucket, scope, id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		id = "unknown"
	}
	return bucket + keySep + scope + ":" + id
}
