package repo

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/hospitality-backoffice/internal/domain"
)

// CreateDocument inserts a new document in collection with a random UUID.
func CreateDocument(ctx context.Context, db *gorm.DB, collection, ownerID string, data json.RawMessage) (*domain.Document, error) {
	now := time.Now().UTC()
	d := &domain.Document{
		Collection: collection,
		ID:         uuid.NewString(),
		OwnerID:    ownerID,
		Data:       data,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := db.WithContext(ctx).Create(d).Error; err != nil {
		return nil, err
	}
	return d, nil
}

// GetDocument fetches one document, or ErrNotFound.
func GetDocument(ctx context.Context, db *gorm.DB, collection, id string) (*domain.Document, error) {
	var d domain.Document
	if err := db.WithContext(ctx).
		Where("collection = ? AND id = ?", collection, id).
		Take(&d).Error; err != nil {
		return nil, err
	}
	return &d, nil
}

// CountDocuments returns the number of documents in collection.
func CountDocuments(ctx context.Context, db *gorm.DB, collection string) (int64, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.Document{}).
		Where("collection = ?", collection).
		Count(&n).Error
	return n, err
}

// ListDocumentsPage returns a page of documents, newest first.
func ListDocumentsPage(ctx context.Context, db *gorm.DB, collection string, offset, limit int) ([]domain.Document, error) {
	var out []domain.Document
	err := db.WithContext(ctx).
		Where("collection = ?", collection).
		Order("created_at DESC").Order("id").
		Offset(offset).Limit(limit).
		Find(&out).Error
	return out, err
}

// PutDocument creates or replaces the document (collection, id). created
// reports whether the row did not exist before.
func PutDocument(ctx context.Context, db *gorm.DB, collection, id, ownerID string, data json.RawMessage) (doc *domain.Document, created bool, err error) {
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&domain.Document{}).
			Where("collection = ? AND id = ?", collection, id).
			Count(&n).Error; err != nil {
			return err
		}
		created = n == 0

		now := time.Now().UTC()
		d := &domain.Document{
			Collection: collection,
			ID:         id,
			OwnerID:    ownerID,
			Data:       data,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "collection"}, {Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"owner_id", "data", "updated_at"}),
		}).Create(d).Error; err != nil {
			return err
		}
		got, err := GetDocument(ctx, tx, collection, id)
		if err != nil {
			return err
		}
		doc = got
		return nil
	})
	return doc, created, err
}

// DeleteDocument removes a document. Returns ErrNotFound if nothing was deleted.
func DeleteDocument(ctx context.Context, db *gorm.DB, collection, id string) error {
	res := db.WithContext(ctx).
		Where("collection = ? AND id = ?", collection, id).
		Delete(&domain.Document{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
