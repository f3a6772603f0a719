// Document HTTP handlers.
//
// This file exposes REST endpoints for collection documents:
//   - GET    /collections/{collection}        (list, paginated, ETag support)
//   - GET    /collections/{collection}/{id}   (get)
//   - POST   /collections/{collection}        (create)
//   - PUT    /collections/{collection}/{id}   (create or replace)
//   - DELETE /collections/{collection}/{id}   (delete)
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/hospitality-backoffice/internal/domain"
)

// ListDocumentsResponse wraps a page of documents and pagination information.
type ListDocumentsResponse struct {
	Documents  []domain.Document `json:"documents"`
	Pagination Pagination        `json:"pagination"`
}

// readObject reads the raw request body. Oversized bodies are answered with
// 413 and reported as !ok.
func readObject(c *gin.Context) (json.RawMessage, bool) {
	body, err := c.GetRawData()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			fail(c, http.StatusRequestEntityTooLarge, ErrCodePayloadTooLarge, "request body too large")
			return nil, false
		}
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unreadable body")
		return nil, false
	}
	return json.RawMessage(body), true
}

// ListDocuments godoc
// @ID          listDocuments
// @Summary     List documents (paginated)
// @Description Returns a page of documents of a collection, newest first. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Documents
// @Produce     json
// @Security    BearerAuth
//
// @Param       collection     path    string  true  "Collection name"             example(bookings)
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"
// @Param       page           query   int     false "Page number"                 minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"              minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListDocumentsResponse
// @Header      200  {string} ETag "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     401  {object} handlers.ErrorResponse "Invalid credential"
// @Failure     403  {object} handlers.ErrorResponse "Forbidden"
// @Failure     404  {object} handlers.ErrorResponse "Unknown collection"
// @Failure     429  {object} handlers.ErrorResponse "Rate limited"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /collections/{collection} [get]
func (h *Handlers) ListDocuments(c *gin.Context) {
	ctx := c.Request.Context()
	coll := c.Param("collection")
	page, pageSize := clampPagination(c)

	// ETag pre-check (best effort).
	count, maxTS, err := h.docSvc.Stats(ctx, coll)
	if err != nil {
		serviceError(c, err)
		return
	}
	var ts int64
	if maxTS != nil {
		ts = maxTS.UnixMilli()
	}
	etag := fmt.Sprintf(`W/"docs:%s:%d:%d:%d:%d"`, strings.ToLower(strings.TrimSpace(coll)), count, ts, page, pageSize)
	c.Header("ETag", etag)
	if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
		c.Status(http.StatusNotModified)
		return
	}

	items, total, err := h.docSvc.ListPage(ctx, coll, page, pageSize)
	if err != nil {
		serviceError(c, err)
		return
	}
	if items == nil {
		items = []domain.Document{}
	}
	ok(c, http.StatusOK, ListDocumentsResponse{
		Documents:  items,
		Pagination: newPagination(page, pageSize, total),
	})
}

// GetDocument godoc
// @ID          getDocument
// @Summary     Get a document
// @Tags        Documents
// @Produce     json
// @Security    BearerAuth
//
// @Param       collection  path  string  true  "Collection name"  example(rooms)
// @Param       id          path  string  true  "Document ID"      example(101)
//
// @Success     200  {object} domain.Document
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     401  {object} handlers.ErrorResponse "Invalid credential"
// @Failure     403  {object} handlers.ErrorResponse "Forbidden"
// @Failure     404  {object} handlers.ErrorResponse "Not found"
// @Failure     429  {object} handlers.ErrorResponse "Rate limited"
// @Router      /collections/{collection}/{id} [get]
func (h *Handlers) GetDocument(c *gin.Context) {
	d, err := h.docSvc.Get(c.Request.Context(), c.Param("collection"), c.Param("id"))
	if err != nil {
		serviceError(c, err)
		return
	}
	ok(c, http.StatusOK, d)
}

// CreateDocument godoc
// @ID          createDocument
// @Summary     Create a document
// @Description Stores the JSON object body as a new document owned by the caller. Requires the staff role.
// @Tags        Documents
// @Accept      json
// @Produce     json
// @Security    BearerAuth
//
// @Param       collection  path  string  true  "Collection name"  example(bookings)
// @Param       body        body  object  true  "Document payload (JSON object)"
//
// @Success     201  {object} domain.Document
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     401  {object} handlers.ErrorResponse "Invalid credential"
// @Failure     403  {object} handlers.ErrorResponse "Forbidden"
// @Failure     404  {object} handlers.ErrorResponse "Unknown collection"
// @Failure     413  {object} handlers.ErrorResponse "Body too large"
// @Failure     429  {object} handlers.ErrorResponse "Rate limited"
// @Router      /collections/{collection} [post]
func (h *Handlers) CreateDocument(c *gin.Context) {
	p, found := principal(c)
	if !found {
		return
	}
	body, read := readObject(c)
	if !read {
		return
	}
	d, err := h.docSvc.Create(c.Request.Context(), c.Param("collection"), p.ID, body)
	if err != nil {
		serviceError(c, err)
		return
	}
	ok(c, http.StatusCreated, d)
}

// PutDocument godoc
// @ID          putDocument
// @Summary     Create or replace a document
// @Description Writes the JSON object body at the given id. Returns 201 when the document did not exist. Requires the staff role.
// @Tags        Documents
// @Accept      json
// @Produce     json
// @Security    BearerAuth
//
// @Param       collection  path  string  true  "Collection name"  example(pricing)
// @Param       id          path  string  true  "Document ID"      example(2025-07)
// @Param       body        body  object  true  "Document payload (JSON object)"
//
// @Success     200  {object} domain.Document
// @Success     201  {object} domain.Document
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     403  {object} handlers.ErrorResponse "Forbidden"
// @Failure     404  {object} handlers.ErrorResponse "Unknown collection"
// @Failure     429  {object} handlers.ErrorResponse "Rate limited"
// @Router      /collections/{collection}/{id} [put]
func (h *Handlers) PutDocument(c *gin.Context) {
	p, found := principal(c)
	if !found {
		return
	}
	body, read := readObject(c)
	if !read {
		return
	}
	d, created, err := h.docSvc.Put(c.Request.Context(), c.Param("collection"), c.Param("id"), p.ID, body)
	if err != nil {
		serviceError(c, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	ok(c, status, d)
}

// DeleteDocument godoc
// @ID          deleteDocument
// @Summary     Delete a document
// @Description Requires the admin role.
// @Tags        Documents
// @Security    BearerAuth
//
// @Param       collection  path  string  true  "Collection name"
// @Param       id          path  string  true  "Document ID"
//
// @Success     204  {string} string "No Content"
// @Failure     403  {object} handlers.ErrorResponse "Forbidden"
// @Failure     404  {object} handlers.ErrorResponse "Not found"
// @Failure     429  {object} handlers.ErrorResponse "Rate limited"
// @Router      /collections/{collection}/{id} [delete]
func (h *Handlers) DeleteDocument(c *gin.Context) {
	if err := h.docSvc.Delete(c.Request.Context(), c.Param("collection"), c.Param("id")); err != nil {
		serviceError(c, err)
		return
	}
	noContent(c)
}
