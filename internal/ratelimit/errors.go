package ratelimit

import (
	"errors"
	"fmt"
)

// ErrStoreUnavailable is returned by Limiter.Check when the backing store fails
// or does not answer in time. Callers must treat it as a denial (fail closed).
var ErrStoreUnavailable = errors.New("rate limit store unavailable")

// ConfigError reports an invalid limiter configuration. It is raised while
// wiring routes, never per request, and must prevent the route from being
// registered.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("ratelimit: invalid %s: %s", e.Field, e.Reason)
}

// IsConfigError reports whether err is (or wraps) a *ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
