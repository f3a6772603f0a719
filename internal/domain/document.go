package domain

import (
	"encoding/json"
	"time"
)

// Document is a business record (booking, room, guest, review, ...) stored in
// a named collection. The payload is kept as a JSON object; the back office
// only ever fetches, shapes and writes these records.
//
// Fields:
//   - Collection / ID: composite primary key.
//   - OwnerID: principal that last wrote the document.
//   - Data: JSON object payload.
type Document struct {
	Collection string          `json:"collection" gorm:"type:varchar(64);primaryKey"`
	ID         string          `json:"id"         gorm:"type:varchar(64);primaryKey"`
	OwnerID    string          `json:"owner_id"   gorm:"type:varchar(128);not null;index"`
	Data       json.RawMessage `json:"data"       gorm:"type:text;not null;serializer:json"`
	CreatedAt  time.Time       `json:"created_at" gorm:"index"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// TableName returns the database table name for Document.
func (Document) TableName() string { return "documents" }
