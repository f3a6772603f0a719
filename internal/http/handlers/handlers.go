// Package handlers provides the HTTP endpoints of the back-office API.
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results into HTTP responses. Every route is reached only after
// the gatekeeping pipeline has attached a verified principal.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/hospitality-backoffice/internal/domain"
	"github.com/tbourn/hospitality-backoffice/internal/http/middleware"
	"github.com/tbourn/hospitality-backoffice/internal/services"
	"github.com/tbourn/hospitality-backoffice/internal/utils"
)

//
// Service contracts (context-aware)
//

// DocumentService defines the collection document operations consumed by
// HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type DocumentService interface {
	Create(ctx context.Context, collection, ownerID string, data json.RawMessage) (*domain.Document, error)
	Get(ctx context.Context, collection, id string) (*domain.Document, error)
	ListPage(ctx context.Context, collection string, page, pageSize int) ([]domain.Document, int64, error)
	Stats(ctx context.Context, collection string) (int64, *time.Time, error)
	Put(ctx context.Context, collection, id, ownerID string, data json.RawMessage) (*domain.Document, bool, error)
	Delete(ctx context.Context, collection, id string) error
}

// UserService defines role record operations consumed by the admin handlers.
type UserService interface {
	Get(ctx context.Context, id string) (*domain.User, error)
	SetRole(ctx context.Context, id, role, plan string) (*domain.User, error)
}

//
// Handler wiring
//

// Handlers groups the HTTP endpoints for documents, role records and the
// current principal.
type Handlers struct {
	docSvc  DocumentService
	userSvc UserService
}

// New constructs and returns a Handlers instance bound to the given services.
func New(docSvc DocumentService, userSvc UserService) *Handlers {
	return &Handlers{docSvc: docSvc, userSvc: userSvc}
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	return utils.ParsePage(c.Query("page"), c.Query("page_size"))
}

func newPagination(page, pageSize int, total int64) Pagination {
	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
	}
}

// principal returns the principal attached by the gate. Handlers are never
// mounted without the gate, so a missing principal is answered with 403.
func principal(c *gin.Context) (domain.Principal, bool) {
	p, found := middleware.PrincipalFrom(c)
	if !found {
		fail(c, http.StatusForbidden, ErrCodeForbidden, MsgForbidden)
	}
	return p, found
}

// serviceError maps service errors to the error envelope. Unexpected errors
// are attached to the context for the request logger and answered with a
// generic 500.
func serviceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrUnknownCollection):
		fail(c, http.StatusNotFound, ErrCodeUnknownCollection, "unknown collection")
	case errors.Is(err, services.ErrInvalidDocument),
		errors.Is(err, services.ErrInvalidID):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	case errors.Is(err, services.ErrDocumentNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "document not found")
	case errors.Is(err, services.ErrUserNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "user not found")
	case errors.Is(err, services.ErrInvalidRole):
		fail(c, http.StatusBadRequest, ErrCodeInvalidRole, "role must be one of base, staff, admin")
	default:
		_ = c.Error(err)
		fail(c, http.StatusInternalServerError, ErrCodeInternal, MsgInternal)
	}
}
