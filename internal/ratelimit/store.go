package ratelimit

import (
	"context"
	"time"
)

// Record is a snapshot of the fixed-window counter for a key.
type Record struct {
	Key         string
	WindowStart time.Time
	Count       int
	Limit       int
	WindowMs    int64
}

// Store is the atomic counter primitive behind the limiter.
//
// Take must, as one indivisible operation against shared state:
//   - create the record for key when it does not exist ({WindowStart: now, Count: 1});
//   - replace it with {WindowStart: now, Count: 1} when now-WindowStart >= window;
//   - otherwise increment Count when Count < limit, or leave it unchanged.
//
// It returns the record as it stands after the operation and whether the
// request was admitted. Implementations must be safe for concurrent use from
// many processes; in-process locking alone is only acceptable for MemoryStore.
type Store interface {
	Take(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (Record, bool, error)
}
