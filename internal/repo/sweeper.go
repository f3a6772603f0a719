package repo

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

// sweepSQL deletes up to @batch records whose window has already ended. The
// outer predicate is re-evaluated per row, so a record reset by a concurrent
// take between the subquery and the delete is kept.
const sweepSQL = `
DELETE FROM rate_limits
WHERE window_start + window_ms <= @now
  AND rate_key IN (
	SELECT rate_key FROM rate_limits
	WHERE window_start + window_ms <= @now
	LIMIT @batch
  )`

// Sweeper removes expired rate-limit records so the table does not grow with
// every key ever seen. Deletes run in batches; consecutive batches are paced
// so a large backlog does not monopolise the database.
type Sweeper struct {
	db       *gorm.DB
	interval time.Duration
	batch    int
	pace     *rate.Limiter
	now      func() time.Time
}

// NewSweeper returns a Sweeper deleting at most batch rows per statement every
// interval. Non-positive values fall back to 1m and 500.
func NewSweeper(db *gorm.DB, interval time.Duration, batch int) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	if batch <= 0 {
		batch = 500
	}
	return &Sweeper{
		db:       db,
		interval: interval,
		batch:    batch,
		pace:     rate.NewLimiter(rate.Every(50*time.Millisecond), 1),
		now:      time.Now,
	}
}

// SweepOnce deletes every record whose window ended at or before now and returns
// how many rows were removed.
func (s *Sweeper) SweepOnce(ctx context.Context) (int64, error) {
	nowMs := s.now().UnixMilli()
	var total int64
	for {
		if err := s.pace.Wait(ctx); err != nil {
			return total, err
		}
		res := s.db.WithContext(ctx).Exec(sweepSQL, map[string]any{"now": nowMs, "batch": s.batch})
		if res.Error != nil {
			return total, res.Error
		}
		total += res.RowsAffected
		if res.RowsAffected < int64(s.batch) {
			return total, nil
		}
	}
}

// Start runs SweepOnce every interval until ctx is cancelled.
func (s *Sweeper) Start(ctx context.Context) {
	t := time.NewTicker(s.interval)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				n, err := s.SweepOnce(ctx)
				if err != nil {
					if ctx.Err() == nil {
						log.Error().Err(err).Msg("rate limit sweep failed")
					}
					continue
				}
				if n > 0 {
					log.Debug().Int64("deleted", n).Msg("rate limit sweep")
				}
			}
		}
	}()
}
