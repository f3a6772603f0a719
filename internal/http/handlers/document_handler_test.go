package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/hospitality-backoffice/internal/domain"
	"github.com/tbourn/hospitality-backoffice/internal/http/middleware"
	"github.com/tbourn/hospitality-backoffice/internal/repo"
	"github.com/tbourn/hospitality-backoffice/internal/services"
)

// ---------- test DB + repo shim ----------

func newDocDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:doc_handlers_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := repo.OpenSQLite(dsn, logger.Default.LogMode(logger.Silent))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// Minimal shim implementing services.DocumentRepo using the repo package.
type testDocRepo struct{}

func (testDocRepo) CreateDocument(ctx context.Context, db *gorm.DB, coll, owner string, data json.RawMessage) (*domain.Document, error) {
	return repo.CreateDocument(ctx, db, coll, owner, data)
}

func (testDocRepo) GetDocument(ctx context.Context, db *gorm.DB, coll, id string) (*domain.Document, error) {
	return repo.GetDocument(ctx, db, coll, id)
}

func (testDocRepo) CountDocuments(ctx context.Context, db *gorm.DB, coll string) (int64, error) {
	return repo.CountDocuments(ctx, db, coll)
}

func (testDocRepo) ListDocumentsPage(ctx context.Context, db *gorm.DB, coll string, offset, limit int) ([]domain.Document, error) {
	return repo.ListDocumentsPage(ctx, db, coll, offset, limit)
}

func (testDocRepo) PutDocument(ctx context.Context, db *gorm.DB, coll, id, owner string, data json.RawMessage) (*domain.Document, bool, error) {
	return repo.PutDocument(ctx, db, coll, id, owner, data)
}

func (testDocRepo) DeleteDocument(ctx context.Context, db *gorm.DB, coll, id string) error {
	return repo.DeleteDocument(ctx, db, coll, id)
}

func (testDocRepo) DocumentsStats(ctx context.Context, db *gorm.DB, coll string) (int64, *time.Time, error) {
	return repo.DocumentsStats(ctx, db, coll)
}

// ---------- stubs ----------

type stubDocSvc struct {
	create func(context.Context, string, string, json.RawMessage) (*domain.Document, error)
	get    func(context.Context, string, string) (*domain.Document, error)
	stats  func(context.Context, string) (int64, *time.Time, error)
	del    func(context.Context, string, string) error
}

func (s stubDocSvc) Create(ctx context.Context, coll, owner string, data json.RawMessage) (*domain.Document, error) {
	if s.create != nil {
		return s.create(ctx, coll, owner, data)
	}
	return &domain.Document{Collection: coll, ID: "d", OwnerID: owner, Data: data}, nil
}

func (s stubDocSvc) Get(ctx context.Context, coll, id string) (*domain.Document, error) {
	if s.get != nil {
		return s.get(ctx, coll, id)
	}
	return &domain.Document{Collection: coll, ID: id}, nil
}

func (stubDocSvc) ListPage(context.Context, string, int, int) ([]domain.Document, int64, error) {
	return nil, 0, nil
}

func (s stubDocSvc) Stats(ctx context.Context, coll string) (int64, *time.Time, error) {
	if s.stats != nil {
		return s.stats(ctx, coll)
	}
	return 0, nil, nil
}

func (stubDocSvc) Put(_ context.Context, coll, id, owner string, data json.RawMessage) (*domain.Document, bool, error) {
	return &domain.Document{Collection: coll, ID: id, OwnerID: owner, Data: data}, false, nil
}

func (s stubDocSvc) Delete(ctx context.Context, coll, id string) error {
	if s.del != nil {
		return s.del(ctx, coll, id)
	}
	return nil
}

type stubUserSvc struct {
	get     func(context.Context, string) (*domain.User, error)
	setRole func(context.Context, string, string, string) (*domain.User, error)
}

func (s stubUserSvc) Get(ctx context.Context, id string) (*domain.User, error) {
	if s.get != nil {
		return s.get(ctx, id)
	}
	return &domain.User{ID: id, Role: domain.BaseRole}, nil
}

func (s stubUserSvc) SetRole(ctx context.Context, id, role, plan string) (*domain.User, error) {
	if s.setRole != nil {
		return s.setRole(ctx, id, role, plan)
	}
	return &domain.User{ID: id, Role: role, Plan: plan}, nil
}

// asPrincipal stands in for the gate in handler tests.
func asPrincipal(id, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		middleware.SetPrincipal(c, domain.Principal{ID: id, Role: role, RawClaims: map[string]any{"sub": id}})
		c.Next()
	}
}

func newDocRouter(h *Handlers, mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(mw...)
	r.GET("/collections/:collection", h.ListDocuments)
	r.GET("/collections/:collection/:id", h.GetDocument)
	r.POST("/collections/:collection", h.CreateDocument)
	r.PUT("/collections/:collection/:id", h.PutDocument)
	r.DELETE("/collections/:collection/:id", h.DeleteDocument)
	return r
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var e ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &e); err != nil {
		t.Fatalf("decode error body %q: %v", w.Body.String(), err)
	}
	return e
}

// ---------- helpers-only tests ----------

func Test_clampPagination(t *testing.T) {
	gin.SetMode(gin.TestMode)

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/?page=-5&page_size=9999", nil)
	p, ps := clampPagination(c)
	if p != 1 || ps != 100 {
		t.Fatalf("clamp bounds got p=%d ps=%d", p, ps)
	}

	c, _ = gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/?page=&page_size=0", nil)
	p, ps = clampPagination(c)
	if p != 1 || ps != 20 {
		t.Fatalf("clamp defaults got p=%d ps=%d", p, ps)
	}

	if got := newPagination(2, 10, 25); got.TotalPages != 3 || !got.HasNext {
		t.Fatalf("pagination=%+v", got)
	}
}

func Test_serviceError_Mapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{services.ErrUnknownCollection, http.StatusNotFound, ErrCodeUnknownCollection},
		{services.ErrInvalidDocument, http.StatusBadRequest, ErrCodeBadRequest},
		{services.ErrInvalidID, http.StatusBadRequest, ErrCodeBadRequest},
		{services.ErrDocumentNotFound, http.StatusNotFound, ErrCodeNotFound},
		{services.ErrUserNotFound, http.StatusNotFound, ErrCodeNotFound},
		{services.ErrInvalidRole, http.StatusBadRequest, ErrCodeInvalidRole},
		{errors.New("disk on fire"), http.StatusInternalServerError, ErrCodeInternal},
	}
	gin.SetMode(gin.TestMode)
	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		serviceError(c, tc.err)

		if w.Code != tc.status {
			t.Fatalf("%v: status=%d want %d", tc.err, w.Code, tc.status)
		}
		e := decodeError(t, w)
		if e.Code != tc.code {
			t.Fatalf("%v: code=%q want %q", tc.err, e.Code, tc.code)
		}
		if tc.status == http.StatusInternalServerError && strings.Contains(w.Body.String(), "disk on fire") {
			t.Fatalf("internal detail leaked: %s", w.Body.String())
		}
	}
}

// ---------- documents over a real DB ----------

func TestDocuments_Flow(t *testing.T) {
	db := newDocDB(t)
	h := New(services.NewDocumentService(db, testDocRepo{}), stubUserSvc{})
	r := newDocRouter(h, asPrincipal("staff-1", domain.StaffRole))

	// Create -> 201 with owner from the principal.
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/collections/Bookings", strings.NewReader(`{"room": "101", "nights": 2}`)))
	if w.Code != http.StatusCreated {
		t.Fatalf("create -> %d %s", w.Code, w.Body.String())
	}
	var created domain.Document
	_ = json.Unmarshal(w.Body.Bytes(), &created)
	if created.OwnerID != "staff-1" || created.Collection != "bookings" || string(created.Data) != `{"room":"101","nights":2}` {
		t.Fatalf("created=%+v data=%s", created, created.Data)
	}

	// Get -> 200
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/collections/bookings/"+created.ID, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("get -> %d", w.Code)
	}

	// Put new id -> 201, then replace -> 200
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/collections/bookings/b-2", strings.NewReader(`{"room":"102"}`)))
	if w.Code != http.StatusCreated {
		t.Fatalf("put new -> %d %s", w.Code, w.Body.String())
	}
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/collections/bookings/b-2", strings.NewReader(`{"room":"103"}`)))
	if w.Code != http.StatusOK {
		t.Fatalf("put existing -> %d", w.Code)
	}

	// List -> 200, ETag, then 304 on If-None-Match
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/collections/bookings?page=1&page_size=1", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("list -> %d", w.Code)
	}
	var list ListDocumentsResponse
	_ = json.Unmarshal(w.Body.Bytes(), &list)
	if len(list.Documents) != 1 || list.Pagination.Total != 2 || !list.Pagination.HasNext {
		t.Fatalf("list=%+v", list)
	}
	etag := w.Header().Get("ETag")
	if etag == "" {
		t.Fatalf("missing ETag")
	}
	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/collections/bookings?page=1&page_size=1", nil)
	req.Header.Set("If-None-Match", etag)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotModified {
		t.Fatalf("conditional list -> %d", w.Code)
	}

	// Another page has another ETag.
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/collections/bookings?page=2&page_size=1", nil)
	req.Header.Set("If-None-Match", etag)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("page 2 must not match page 1 ETag, got %d", w.Code)
	}

	// Delete -> 204, again -> 404
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/collections/bookings/b-2", nil))
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete -> %d", w.Code)
	}
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/collections/bookings/b-2", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("delete missing -> %d", w.Code)
	}
}

func TestDocuments_EmptyListIsArray(t *testing.T) {
	db := newDocDB(t)
	h := New(services.NewDocumentService(db, testDocRepo{}), stubUserSvc{})
	r := newDocRouter(h, asPrincipal("u1", domain.BaseRole))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/collections/rooms", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"documents":[]`) {
		t.Fatalf("list -> %d %s", w.Code, w.Body.String())
	}
}

func TestDocuments_Rejections(t *testing.T) {
	db := newDocDB(t)
	h := New(services.NewDocumentService(db, testDocRepo{}), stubUserSvc{})
	r := newDocRouter(h, asPrincipal("staff-1", domain.StaffRole))

	cases := []struct {
		name, method, path, body string
		status                   int
		code                     string
	}{
		{"unknown collection", http.MethodGet, "/collections/secrets", "", http.StatusNotFound, ErrCodeUnknownCollection},
		{"array body", http.MethodPost, "/collections/rooms", `[1,2]`, http.StatusBadRequest, ErrCodeBadRequest},
		{"broken json", http.MethodPost, "/collections/rooms", `{bad`, http.StatusBadRequest, ErrCodeBadRequest},
		{"missing doc", http.MethodGet, "/collections/rooms/nope", "", http.StatusNotFound, ErrCodeNotFound},
		{"put unknown coll", http.MethodPut, "/collections/users/u1", `{}`, http.StatusNotFound, ErrCodeUnknownCollection},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(tc.method, tc.path, bytes.NewBufferString(tc.body)))
			if w.Code != tc.status {
				t.Fatalf("status=%d want %d (%s)", w.Code, tc.status, w.Body.String())
			}
			if e := decodeError(t, w); e.Code != tc.code {
				t.Fatalf("code=%q want %q", e.Code, tc.code)
			}
		})
	}
}

func TestCreateDocument_BodyTooLarge(t *testing.T) {
	h := New(stubDocSvc{}, stubUserSvc{})
	limit := func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, 16)
		c.Next()
	}
	r := newDocRouter(h, limit, asPrincipal("u1", domain.StaffRole))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/collections/rooms", strings.NewReader(`{"padding":"`+strings.Repeat("x", 64)+`"}`)))
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestWrites_RequirePrincipal(t *testing.T) {
	called := false
	h := New(stubDocSvc{create: func(context.Context, string, string, json.RawMessage) (*domain.Document, error) {
		called = true
		return nil, nil
	}}, stubUserSvc{})
	r := newDocRouter(h) // no principal attached

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/collections/rooms", strings.NewReader(`{}`)))
	if w.Code != http.StatusForbidden || called {
		t.Fatalf("status=%d called=%v", w.Code, called)
	}
}

func TestListDocuments_StatsFailureIs500(t *testing.T) {
	h := New(stubDocSvc{stats: func(context.Context, string) (int64, *time.Time, error) {
		return 0, nil, errors.New("db down")
	}}, stubUserSvc{})
	r := newDocRouter(h, asPrincipal("u1", domain.BaseRole))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/collections/rooms", nil))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d", w.Code)
	}
	if e := decodeError(t, w); e.Error != MsgInternal {
		t.Fatalf("error=%q", e.Error)
	}
}
