// Package services – DocumentService
//
// DocumentService stores the back-office business records (bookings, rooms,
// guests, reviews, ...) as JSON documents grouped in named collections. It
// owns the collection allow-list, payload validation and pagination bounds;
// persistence is delegated to a DocumentRepo.
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/cases"
	"gorm.io/gorm"

	"github.com/tbourn/hospitality-backoffice/internal/domain"
	"github.com/tbourn/hospitality-backoffice/internal/utils"
)

// DocumentRepo defines the repository contract required by DocumentService.
type DocumentRepo interface {
	CreateDocument(ctx context.Context, db *gorm.DB, collection, ownerID string, data json.RawMessage) (*domain.Document, error)
	GetDocument(ctx context.Context, db *gorm.DB, collection, id string) (*domain.Document, error)
	CountDocuments(ctx context.Context, db *gorm.DB, collection string) (int64, error)
	ListDocumentsPage(ctx context.Context, db *gorm.DB, collection string, offset, limit int) ([]domain.Document, error)
	PutDocument(ctx context.Context, db *gorm.DB, collection, id, ownerID string, data json.RawMessage) (*domain.Document, bool, error)
	DeleteDocument(ctx context.Context, db *gorm.DB, collection, id string) error
	DocumentsStats(ctx context.Context, db *gorm.DB, collection string) (int64, *time.Time, error)
}

// DefaultCollections is the allow-list used by NewDocumentService.
var DefaultCollections = []string{
	"bookings", "rooms", "guests", "reviews", "pricing", "notifications",
	"housekeeping", "expenses", "suppliers", "customers", "settings", "announcements",
}

const maxIDLength = 64

// DocumentService implements the use-cases around collection documents.
type DocumentService struct {
	DB   *gorm.DB
	Repo DocumentRepo

	collections map[string]struct{}
	fold        cases.Caser
}

// NewDocumentService returns a service accepting DefaultCollections, or the
// given collections when non-empty.
func NewDocumentService(db *gorm.DB, r DocumentRepo, collections ...string) *DocumentService {
	if len(collections) == 0 {
		collections = DefaultCollections
	}
	s := &DocumentService{DB: db, Repo: r, fold: cases.Fold()}
	s.collections = make(map[string]struct{}, len(collections))
	for _, c := range collections {
		s.collections[s.fold.String(strings.TrimSpace(c))] = struct{}{}
	}
	return s
}

// Collection normalizes name (trimmed, case-folded) and checks it against the
// allow-list.
func (s *DocumentService) Collection(name string) (string, error) {
	name = s.fold.String(strings.TrimSpace(name))
	if _, ok := s.collections[name]; !ok {
		return "", ErrUnknownCollection
	}
	return name, nil
}

// Create stores data as a new document owned by ownerID.
func (s *DocumentService) Create(ctx context.Context, collection, ownerID string, data json.RawMessage) (*domain.Document, error) {
	coll, err := s.Collection(collection)
	if err != nil {
		return nil, err
	}
	obj, err := compactObject(data)
	if err != nil {
		return nil, err
	}
	return s.Repo.CreateDocument(ctx, s.DB, coll, ownerID, obj)
}

// Get returns one document or ErrDocumentNotFound.
func (s *DocumentService) Get(ctx context.Context, collection, id string) (*domain.Document, error) {
	coll, err := s.Collection(collection)
	if err != nil {
		return nil, err
	}
	if err := validateID(id); err != nil {
		return nil, err
	}
	d, err := s.Repo.GetDocument(ctx, s.DB, coll, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrDocumentNotFound
	}
	return d, err
}

// ListPage returns a page of documents (newest first) and the collection
// total. page is 1-based; pageSize is clamped to [1, 100].
func (s *DocumentService) ListPage(ctx context.Context, collection string, page, pageSize int) ([]domain.Document, int64, error) {
	coll, err := s.Collection(collection)
	if err != nil {
		return nil, 0, err
	}
	page, pageSize = utils.ClampPage(page, pageSize)
	total, err := s.Repo.CountDocuments(ctx, s.DB, coll)
	if err != nil {
		return nil, 0, err
	}
	items, err := s.Repo.ListDocumentsPage(ctx, s.DB, coll, utils.Offset(page, pageSize), pageSize)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// Stats returns the document count and latest update time of a collection,
// used for list ETags.
func (s *DocumentService) Stats(ctx context.Context, collection string) (int64, *time.Time, error) {
	coll, err := s.Collection(collection)
	if err != nil {
		return 0, nil, err
	}
	return s.Repo.DocumentsStats(ctx, s.DB, coll)
}

// Put creates or replaces the document (collection, id). created reports
// whether it did not exist before.
func (s *DocumentService) Put(ctx context.Context, collection, id, ownerID string, data json.RawMessage) (*domain.Document, bool, error) {
	coll, err := s.Collection(collection)
	if err != nil {
		return nil, false, err
	}
	if err := validateID(id); err != nil {
		return nil, false, err
	}
	obj, err := compactObject(data)
	if err != nil {
		return nil, false, err
	}
	return s.Repo.PutDocument(ctx, s.DB, coll, id, ownerID, obj)
}

// Delete removes a document or returns ErrDocumentNotFound.
func (s *DocumentService) Delete(ctx context.Context, collection, id string) error {
	coll, err := s.Collection(collection)
	if err != nil {
		return err
	}
	if err := validateID(id); err != nil {
		return err
	}
	err = s.Repo.DeleteDocument(ctx, s.DB, coll, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrDocumentNotFound
	}
	return err
}

// compactObject returns data compacted, or ErrInvalidDocument unless it is a
// single JSON object.
func compactObject(data json.RawMessage) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, ErrInvalidDocument
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return nil, ErrInvalidDocument
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err != nil {
		return nil, ErrInvalidDocument
	}
	return json.RawMessage(buf.Bytes()), nil
}

// validateID accepts 1..64 printable characters without spaces or slashes.
func validateID(id string) error {
	if id == "" || len(id) > maxIDLength {
		return ErrInvalidID
	}
	for _, r := range id {
		if r == '/' || unicode.IsSpace(r) || !unicode.IsPrint(r) {
			return ErrInvalidID
		}
	}
	return nil
}
