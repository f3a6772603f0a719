package domain

import "time"

// RateLimitRecord is the persisted fixed-window counter for a single rate-limit
// key. One row exists per key; it is lazily created on the first request and
// mutated only through the atomic take operation of a rate-limit store.
//
// WindowStart is stored as Unix milliseconds so the conditional upsert can do
// window arithmetic in SQL on every supported dialect.
type RateLimitRecord struct {
	Key         string    `gorm:"column:rate_key;type:varchar(255);primaryKey"`
	WindowStart int64     `gorm:"column:window_start;not null;index"`
	Count       int       `gorm:"column:count;not null"`
	Limit       int       `gorm:"column:limit_max;not null"`
	WindowMs    int64     `gorm:"column:window_ms;not null"`
	UpdatedAt   time.Time `gorm:"column:updated_at;not null"`
}

// TableName implements the GORM tabler interface.
func (RateLimitRecord) TableName() string { return "rate_limits" }

// WindowStartTime returns WindowStart as a UTC time.
func (r RateLimitRecord) WindowStartTime() time.Time {
	return time.UnixMilli(r.WindowStart).UTC()
}
