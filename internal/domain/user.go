package domain

import "time"

// User is the authoritative, persisted role record for a principal.
//
// Tokens are trusted for identity only; privileged authorization decisions
// re-read Role from this record so that a downgrade takes effect immediately,
// even while previously issued tokens are still valid.
type User struct {
	ID        string    `json:"id"         gorm:"type:varchar(128);primaryKey"`
	Role      string    `json:"role"       gorm:"type:varchar(32);not null;default:'base'"`
	Plan      string    `json:"plan"       gorm:"type:varchar(32);not null;default:''"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }
