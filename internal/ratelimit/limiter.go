package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// Rule is a validated (limit, window) pair. Construct it with NewRule so an
// invalid configuration fails at wiring time.
type Rule struct {
	Limit  int
	Window time.Duration
}

// NewRule validates limit and window. A non-positive value is a configuration
// error, not a "deny everything" runtime state.
func NewRule(limit int, window time.Duration) (Rule, error) {
	r := Rule{Limit: limit, Window: window}
	if err := r.Validate(); err != nil {
		return Rule{}, err
	}
	return r, nil
}

// Validate reports a *ConfigError for a non-positive limit or window.
func (r Rule) Validate() error {
	if r.Limit <= 0 {
		return &ConfigError{Field: "limit", Reason: fmt.Sprintf("must be > 0, got %d", r.Limit)}
	}
	if r.Window <= 0 {
		return &ConfigError{Field: "window", Reason: fmt.Sprintf("must be > 0, got %s", r.Window)}
	}
	return nil
}

// Decision is the outcome of a single Check.
type Decision struct {
	Allowed bool
	// Count is the number of requests admitted in the current window.
	Count int
	Limit int
	// Remaining is Limit-Count, never negative.
	Remaining int
	// RetryAfter is set on denial: the time left until the window elapses.
	RetryAfter time.Duration
	// ResetAt is when the current window ends.
	ResetAt time.Time
}

// RetryAfterMs returns RetryAfter in whole milliseconds.
func (d Decision) RetryAfterMs() int64 { return d.RetryAfter.Milliseconds() }

// Limiter decides allow/deny for a key against a Store.
//
// Limiter holds no per-key state and is safe for concurrent use.
type Limiter struct {
	store   Store
	name    string
	timeout time.Duration
	now     func() time.Time
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithTimeout bounds every store call. Values <= 0 disable the bound.
func WithTimeout(d time.Duration) Option {
	return func(l *Limiter) { l.timeout = d }
}

// WithClock overrides the wall clock (tests).
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// WithName labels the store in metrics (e.g. "sqlite", "redis").
func WithName(name string) Option {
	return func(l *Limiter) { l.name = name }
}

// NewLimiter returns a Limiter backed by store. The default store timeout is 2s.
func NewLimiter(store Store, opts ...Option) *Limiter {
	l := &Limiter{
		store:   store,
		name:    "default",
		timeout: 2 * time.Second,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Check admits or rejects one request for key under rule.
//
// It reads the clock once, performs exactly one atomic Take, and never
// consults roles or claims. A store failure or timeout returns
// ErrStoreUnavailable; the caller must deny the request.
func (l *Limiter) Check(ctx context.Context, key string, rule Rule) (Decision, error) {
	if err := rule.Validate(); err != nil {
		return Decision{}, err
	}
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	now := l.now()
	start := time.Now()
	rec, allowed, err := l.store.Take(ctx, key, rule.Limit, rule.Window, now)
	storeLatency.WithLabelValues(l.name).Observe(time.Since(start).Seconds())
	if err != nil {
		return Decision{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	d := Decision{
		Allowed:   allowed,
		Count:     rec.Count,
		Limit:     rule.Limit,
		Remaining: max(rule.Limit-rec.Count, 0),
		ResetAt:   rec.WindowStart.Add(rule.Window),
	}
	if !allowed {
		d.RetryAfter = retryAfter(now, rec.WindowStart, rule.Window)
	}
	return d, nil
}

// retryAfter is window - (now - windowStart), clamped to [0, window].
func retryAfter(now, windowStart time.Time, window time.Duration) time.Duration {
	d := window - now.Sub(windowStart)
	if d < 0 {
		return 0
	}
	if d > window {
		return window
	}
	return d
}
