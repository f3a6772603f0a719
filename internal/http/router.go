// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, the gatekeeping pipeline and route handlers. It centralizes
// cross-cutting concerns such as tracing, correlation IDs, logging/redaction,
// panic recovery, metrics, CORS and security headers.
//
// Every API route is mounted behind a gate guard built from its policy:
//
//	read   GET  /me, GET /collections/...           (any role)
//	write  POST/PUT /collections/...                (staff)
//	write  DELETE /collections/...                  (admin)
//	admin  /admin/users/...                          (admin, keyed by principal)
package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	_ "github.com/tbourn/hospitality-backoffice/docs"
	"github.com/tbourn/hospitality-backoffice/internal/authz"
	"github.com/tbourn/hospitality-backoffice/internal/config"
	"github.com/tbourn/hospitality-backoffice/internal/domain"
	"github.com/tbourn/hospitality-backoffice/internal/gate"
	"github.com/tbourn/hospitality-backoffice/internal/http/handlers"
	"github.com/tbourn/hospitality-backoffice/internal/http/middleware"
	"github.com/tbourn/hospitality-backoffice/internal/repo"
	"github.com/tbourn/hospitality-backoffice/internal/services"
)

// documentRepoShim adapts the repository free functions to the
// services.DocumentRepo interface expected by the DocumentService.
type documentRepoShim struct{}

// CreateDocument proxies repo.CreateDocument.
func (documentRepoShim) CreateDocument(ctx context.Context, db *gorm.DB, collection, ownerID string, data json.RawMessage) (*domain.Document, error) {
	return repo.CreateDocument(ctx, db, collection, ownerID, data)
}

// GetDocument proxies repo.GetDocument.
func (documentRepoShim) GetDocument(ctx context.Context, db *gorm.DB, collection, id string) (*domain.Document, error) {
	return repo.GetDocument(ctx, db, collection, id)
}

// CountDocuments proxies repo.CountDocuments (pagination support).
func (documentRepoShim) CountDocuments(ctx context.Context, db *gorm.DB, collection string) (int64, error) {
	return repo.CountDocuments(ctx, db, collection)
}

// ListDocumentsPage proxies repo.ListDocumentsPage (pagination support).
func (documentRepoShim) ListDocumentsPage(ctx context.Context, db *gorm.DB, collection string, offset, limit int) ([]domain.Document, error) {
	return repo.ListDocumentsPage(ctx, db, collection, offset, limit)
}

// PutDocument proxies repo.PutDocument.
func (documentRepoShim) PutDocument(ctx context.Context, db *gorm.DB, collection, id, ownerID string, data json.RawMessage) (*domain.Document, bool, error) {
	return repo.PutDocument(ctx, db, collection, id, ownerID, data)
}

// DeleteDocument proxies repo.DeleteDocument.
func (documentRepoShim) DeleteDocument(ctx context.Context, db *gorm.DB, collection, id string) error {
	return repo.DeleteDocument(ctx, db, collection, id)
}

// DocumentsStats proxies repo.DocumentsStats (ETag support).
func (documentRepoShim) DocumentsStats(ctx context.Context, db *gorm.DB, collection string) (int64, *time.Time, error) {
	return repo.DocumentsStats(ctx, db, collection)
}

// userRepoShim adapts the repository free functions to services.UserRepo.
type userRepoShim struct{}

func (userRepoShim) GetUser(ctx context.Context, db *gorm.DB, id string) (*domain.User, error) {
	return repo.GetUser(ctx, db, id)
}

func (userRepoShim) GetUserRole(ctx context.Context, db *gorm.DB, id string) (string, bool, error) {
	return repo.GetUserRole(ctx, db, id)
}

func (userRepoShim) UpsertUser(ctx context.Context, db *gorm.DB, id, role, plan string) (*domain.User, error) {
	return repo.UpsertUser(ctx, db, id, role, plan)
}

// NewUserService returns the UserService backed by db. The entrypoint uses it
// for the admin bootstrap; RegisterRoutes builds its own.
func NewUserService(db *gorm.DB) *services.UserService {
	return services.NewUserService(db, userRepoShim{})
}

// Deps are the collaborators RegisterRoutes cannot build from config alone.
type Deps struct {
	DB       *gorm.DB
	Resolver gate.PrincipalResolver
	Limiter  gate.RateChecker
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It returns an error, and registers no API route, when a route
// policy built from cfg is invalid.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. CORS and Security headers
//  8. Per-route gate: principal → rate limit → role
func RegisterRoutes(r *gin.Engine, deps Deps, cfg config.Config) error {
	r.HandleMethodNotAllowed = true
	// Address-keyed buckets use c.ClientIP(); forwarding headers are only
	// honoured from configured proxies.
	if err := r.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return fmt.Errorf("trusted proxies: %w", err)
	}

	// Dependency injection: services ← repo/db
	docSvc := services.NewDocumentService(deps.DB, documentRepoShim{})
	userSvc := NewUserService(deps.DB)
	h := handlers.New(docSvc, userSvc)

	gk := gate.New(deps.Resolver, deps.Limiter,
		authz.NewGate(userSvc, authz.WithLookupTimeout(cfg.Auth.RoleLookupTimeout)))
	g, err := buildGuards(gk, cfg.Rate)
	if err != nil {
		return err
	}

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{"X-Forwarded-For"},
	}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit
	r.Use(limitBody(cfg.MaxBodyBytes))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) CORS posture and security headers
	r.Use(corsMiddleware(cfg.CORS.AllowedOrigins)...)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health and docs
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Public API
	api := groupWithPrefix(r, cfg.APIBasePath)
	api.Use(gzip.Gzip(gzip.DefaultCompression))
	{
		api.GET("/me", g.read, h.Me)

		// Documents
		api.GET("/collections/:collection", g.read, h.ListDocuments)
		api.GET("/collections/:collection/:id", g.read, h.GetDocument)
		api.POST("/collections/:collection", g.write, h.CreateDocument)
		api.PUT("/collections/:collection/:id", g.write, h.PutDocument)
		api.DELETE("/collections/:collection/:id", g.remove, h.DeleteDocument)

		// Role records
		api.GET("/admin/users/:id", g.admin, h.GetUser)
		api.PUT("/admin/users/:id/role", g.admin, h.SetUserRole)
	}
	return nil
}

type guards struct {
	read, write, remove, admin gin.HandlerFunc
}

// buildGuards turns the configured buckets into route guards. The admin
// bucket is always keyed by principal.
func buildGuards(gk *gate.Gatekeeper, rc config.RateConfig) (guards, error) {
	keyBy := gate.KeyBy(rc.KeyBy)
	read := &gate.RateLimitPolicy{Bucket: "read", Limit: rc.Read.Limit, Window: rc.Read.Window, KeyBy: keyBy}
	write := &gate.RateLimitPolicy{Bucket: "write", Limit: rc.Write.Limit, Window: rc.Write.Window, KeyBy: keyBy}
	admin := &gate.RateLimitPolicy{Bucket: "admin", Limit: rc.Admin.Limit, Window: rc.Admin.Window, KeyBy: gate.KeyByPrincipal}

	var (
		g   guards
		err error
	)
	for _, b := range []struct {
		dst *gin.HandlerFunc
		p   gate.Policy
	}{
		{&g.read, gate.Policy{RateLimit: read}},
		{&g.write, gate.Policy{RequiredRole: domain.StaffRole, RateLimit: write}},
		{&g.remove, gate.Policy{RequiredRole: domain.AdminRole, RateLimit: write}},
		{&g.admin, gate.Policy{RequiredRole: domain.AdminRole, RateLimit: admin}},
	} {
		if *b.dst, err = gk.Guard(b.p); err != nil {
			return guards{}, err
		}
	}
	return g, nil
}

// corsMiddleware returns the CORS handlers: allow-all when no origin is
// configured, otherwise an allow-list echoing the request Origin.
func corsMiddleware(origins []string) []gin.HandlerFunc {
	allowHeaders := []string{"Origin", "Content-Type", "Accept", "Authorization", "If-None-Match"}
	exposeHeaders := []string{
		"X-Request-ID", "Content-Length", "ETag", "Retry-After",
		"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset",
	}
	methods := []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}

	if len(origins) == 0 {
		// Force ACAO: * even for requests without an Origin header.
		return []gin.HandlerFunc{
			func(c *gin.Context) {
				c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
				c.Next()
			},
			cors.New(cors.Config{
				AllowAllOrigins:  true,
				AllowMethods:     methods,
				AllowHeaders:     allowHeaders,
				ExposeHeaders:    exposeHeaders,
				AllowCredentials: false, // must remain false with AllowAllOrigins
				MaxAge:           12 * time.Hour,
			}),
		}
	}

	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}
	return []gin.HandlerFunc{
		func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		},
		cors.New(cors.Config{
			AllowOrigins:     origins,
			AllowMethods:     methods,
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    exposeHeaders,
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}),
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error. A non-positive cap means 1 MiB.
func limitBody(maxBytes int64) gin.HandlerFunc {
	if maxBytes <= 0 {
		maxBytes = 1 << 20
	}
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
