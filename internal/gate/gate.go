package gate

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"

	"github.com/tbourn/hospitality-backoffice/internal/authz"
	"github.com/tbourn/hospitality-backoffice/internal/domain"
	"github.com/tbourn/hospitality-backoffice/internal/http/handlers"
	"github.com/tbourn/hospitality-backoffice/internal/http/middleware"
	"github.com/tbourn/hospitality-backoffice/internal/identity"
	"github.com/tbourn/hospitality-backoffice/internal/observability"
	"github.com/tbourn/hospitality-backoffice/internal/ratelimit"
)

// PrincipalResolver is satisfied by *identity.Resolver.
type PrincipalResolver interface {
	Resolve(ctx context.Context, authorization string) (domain.Principal, error)
}

// RateChecker is satisfied by *ratelimit.Limiter.
type RateChecker interface {
	Check(ctx context.Context, key string, rule ratelimit.Rule) (ratelimit.Decision, error)
}

// Authorizer is satisfied by *authz.Gate.
type Authorizer interface {
	Decide(ctx context.Context, p domain.Principal, requiredRole string) (authz.Decision, error)
}

// Gatekeeper builds per-route guards sharing one resolver, limiter and
// authorizer.
type Gatekeeper struct {
	resolver PrincipalResolver
	limiter  RateChecker
	authz    Authorizer
}

// New returns a Gatekeeper. limiter and authorizer may be nil when no policy
// uses them; Guard rejects policies that would need a missing collaborator.
func New(resolver PrincipalResolver, limiter RateChecker, authorizer Authorizer) *Gatekeeper {
	return &Gatekeeper{resolver: resolver, limiter: limiter, authz: authorizer}
}

// Guard returns the handler enforcing p. An invalid policy returns an error
// and no handler, so a misconfigured route is never registered.
func (g *Gatekeeper) Guard(p Policy) (gin.HandlerFunc, error) {
	if g.resolver == nil {
		return nil, &ratelimit.ConfigError{Field: "resolver", Reason: "must not be nil"}
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	var rule ratelimit.Rule
	if p.RateLimit != nil {
		if g.limiter == nil {
			return nil, &ratelimit.ConfigError{Field: "limiter", Reason: "required by bucket " + p.RateLimit.Bucket}
		}
		rule, _ = ratelimit.NewRule(p.RateLimit.Limit, p.RateLimit.Window)
	}
	if p.RequiredRole != "" && g.authz == nil {
		return nil, &ratelimit.ConfigError{Field: "authorizer", Reason: "required by role " + p.RequiredRole}
	}

	return func(c *gin.Context) {
		if !g.admit(c, p, rule) {
			return
		}
		c.Next()
	}, nil
}

// MustGuard is like Guard but panics on an invalid policy. Use it only for
// static route tables.
func (g *Gatekeeper) MustGuard(p Policy) gin.HandlerFunc {
	h, err := g.Guard(p)
	if err != nil {
		panic(err)
	}
	return h
}

// admit runs the stages under one span. The span ends before the route
// handler runs.
func (g *Gatekeeper) admit(c *gin.Context, p Policy, rule ratelimit.Rule) bool {
	ctx, span := observability.Tracer().Start(c.Request.Context(), "gate")
	defer span.End()

	admitted := g.stages(ctx, c, p, rule)
	span.SetAttributes(attribute.Bool("gate.admitted", admitted))
	if stage := middleware.DenyStageFrom(c); stage != "" {
		span.SetAttributes(attribute.String("gate.deny_stage", stage))
	}
	if p.RateLimit != nil {
		span.SetAttributes(attribute.String("gate.bucket", p.RateLimit.Bucket))
	}
	return admitted
}

func (g *Gatekeeper) stages(ctx context.Context, c *gin.Context, p Policy, rule ratelimit.Rule) bool {
	principal, ok := g.resolve(ctx, c)
	if !ok {
		return false
	}
	if p.RateLimit != nil && !g.rateLimit(ctx, c, p.RateLimit, rule, principal) {
		return false
	}
	if p.RequiredRole != "" && !g.authorize(ctx, c, principal, p.RequiredRole) {
		return false
	}
	return true
}

func (g *Gatekeeper) resolve(ctx context.Context, c *gin.Context) (domain.Principal, bool) {
	principal, err := g.resolver.Resolve(ctx, c.GetHeader("Authorization"))
	if err == nil {
		observe(stageIdentity, outcomeAllowed)
		middleware.SetPrincipal(c, principal)
		return principal, true
	}

	middleware.SetDenyStage(c, stageIdentity)
	lg := middleware.LoggerFrom(c)
	if errors.Is(err, identity.ErrMissingCredential) {
		observe(stageIdentity, outcomeMissing)
		lg.Warn().Str("stage", stageIdentity).Msg("missing credential")
		handlers.Fail(c, http.StatusForbidden, handlers.ErrCodeForbidden, handlers.MsgForbidden)
		return domain.Principal{}, false
	}
	// Anything else is treated as an invalid credential.
	observe(stageIdentity, outcomeInvalid)
	lg.Warn().Err(err).Str("stage", stageIdentity).Msg("invalid credential")
	handlers.Fail(c, http.StatusUnauthorized, handlers.ErrCodeUnauthorized, handlers.MsgInvalidCredential)
	return domain.Principal{}, false
}

func (g *Gatekeeper) rateLimit(ctx context.Context, c *gin.Context, rl *RateLimitPolicy, rule ratelimit.Rule, p domain.Principal) bool {
	d, err := g.limiter.Check(ctx, rl.key(p, c.ClientIP()), rule)
	lg := middleware.LoggerFrom(c)
	if err != nil {
		observe(stageRateLimit, outcomeError)
		middleware.SetDenyStage(c, stageRateLimit)
		lg.Error().Err(err).Str("stage", stageRateLimit).Str("bucket", rl.Bucket).Msg("rate limit check failed")
		handlers.Fail(c, http.StatusInternalServerError, handlers.ErrCodeInternal, handlers.MsgInternal)
		return false
	}

	h := c.Writer.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))

	if !d.Allowed {
		observe(stageRateLimit, outcomeDenied)
		middleware.SetDenyStage(c, stageRateLimit)
		lg.Warn().
			Str("stage", stageRateLimit).
			Str("bucket", rl.Bucket).
			Int64("retry_after_ms", d.RetryAfterMs()).
			Msg("rate limited")
		handlers.FailRateLimited(c, d.RetryAfter)
		return false
	}
	observe(stageRateLimit, outcomeAllowed)
	return true
}

func (g *Gatekeeper) authorize(ctx context.Context, c *gin.Context, p domain.Principal, required string) bool {
	d, err := g.authz.Decide(ctx, p, required)
	lg := middleware.LoggerFrom(c)
	if err != nil {
		observe(stageAuthz, outcomeError)
		middleware.SetDenyStage(c, stageAuthz)
		lg.Error().Err(err).Str("stage", stageAuthz).Str("required_role", required).Msg("authorization failed")
		handlers.Fail(c, http.StatusInternalServerError, handlers.ErrCodeInternal, handlers.MsgInternal)
		return false
	}
	if !d.Allowed {
		observe(stageAuthz, outcomeDenied)
		middleware.SetDenyStage(c, stageAuthz)
		lg.Warn().
			Str("stage", stageAuthz).
			Str("required_role", required).
			Str("effective_role", d.Role).
			Str("reason", string(d.Reason)).
			Msg("forbidden")
		handlers.Fail(c, http.StatusForbidden, handlers.ErrCodeForbidden, handlers.MsgForbidden)
		return false
	}
	observe(stageAuthz, outcomeAllowed)
	return true
}
