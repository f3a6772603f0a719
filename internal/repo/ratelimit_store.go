package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/hospitality-backoffice/internal/domain"
	"github.com/tbourn/hospitality-backoffice/internal/ratelimit"
)

// takeSQL is the whole fixed-window decision as one statement. The row is
// created on first use, reset when its window has elapsed, or incremented
// while under the limit. When none of those applies the conflict WHERE clause
// is false, nothing is written and RETURNING yields no row.
//
// Works unchanged on SQLite (>= 3.35) and PostgreSQL.
const takeSQL = `
INSERT INTO rate_limits (rate_key, window_start, count, limit_max, window_ms, updated_at)
VALUES (@key, @now, 1, @limit, @window, @updated)
ON CONFLICT (rate_key) DO UPDATE SET
	count = CASE WHEN @now - rate_limits.window_start >= @window THEN 1 ELSE rate_limits.count + 1 END,
	window_start = CASE WHEN @now - rate_limits.window_start >= @window THEN @now ELSE rate_limits.window_start END,
	limit_max = excluded.limit_max,
	window_ms = excluded.window_ms,
	updated_at = excluded.updated_at
WHERE @now - rate_limits.window_start >= @window OR rate_limits.count < @limit
RETURNING rate_key, window_start, count, limit_max, window_ms`

// RateLimitStore is a ratelimit.Store persisted in the rate_limits table.
// Several processes sharing the same database share the same counters.
type RateLimitStore struct {
	db *gorm.DB
}

var _ ratelimit.Store = (*RateLimitStore)(nil)

// NewRateLimitStore returns a store backed by db. The rate_limits table must
// exist (see AutoMigrate).
func NewRateLimitStore(db *gorm.DB) *RateLimitStore {
	return &RateLimitStore{db: db}
}

// Take implements ratelimit.Store.
func (s *RateLimitStore) Take(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (ratelimit.Record, bool, error) {
	var (
		row     domain.RateLimitRecord
		allowed bool
	)
	args := map[string]any{
		"key":     key,
		"now":     now.UnixMilli(),
		"limit":   limit,
		"window":  window.Milliseconds(),
		"updated": now.UTC(),
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Raw(takeSQL, args).Scan(&row)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			allowed = true
			return nil
		}
		// Denied: read the untouched row for the retry hint.
		return tx.Where("rate_key = ?", key).Take(&row).Error
	})
	if err != nil {
		return ratelimit.Record{}, false, err
	}
	return toRecord(row), allowed, nil
}

// GetRateLimit returns the stored record for key, or ErrNotFound.
func GetRateLimit(ctx context.Context, db *gorm.DB, key string) (*domain.RateLimitRecord, error) {
	var row domain.RateLimitRecord
	if err := db.WithContext(ctx).Where("rate_key = ?", key).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &row, nil
}

func toRecord(row domain.RateLimitRecord) ratelimit.Record {
	return ratelimit.Record{
		Key:         row.Key,
		WindowStart: row.WindowStartTime(),
		Count:       row.Count,
		Limit:       row.Limit,
		WindowMs:    row.WindowMs,
	}
}
