package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// MemoryStore is a process-local Store guarded by a mutex.
//
// Only suitable for a single-process deployment and tests: counters are not
// shared between instances. Records are only evicted by Sweep; run Start to
// sweep on a ticker when the key space is unbounded.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]Record
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

// Take implements Store.
func (s *MemoryStore) Take(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (Record, bool, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[key]
	if !ok || now.Sub(rec.WindowStart) >= window {
		rec = Record{Key: key, WindowStart: now, Count: 1, Limit: limit, WindowMs: window.Milliseconds()}
		s.records[key] = rec
		return rec, true, nil
	}
	if rec.Count >= limit {
		return rec, false, nil
	}
	rec.Count++
	rec.Limit = limit
	rec.WindowMs = window.Milliseconds()
	s.records[key] = rec
	return rec, true, nil
}

// Sweep deletes records whose window ended at or before now and returns how
// many were removed.
func (s *MemoryStore) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k, rec := range s.records {
		if now.Sub(rec.WindowStart) >= time.Duration(rec.WindowMs)*time.Millisecond {
			delete(s.records, k)
			n++
		}
	}
	return n
}

// Start runs Sweep every interval until ctx is cancelled. A non-positive
// interval falls back to 1m.
func (s *MemoryStore) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	t := time.NewTicker(interval)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-t.C:
				if n := s.Sweep(now); n > 0 {
					log.Debug().Int("deleted", n).Msg("rate limit memory sweep")
				}
			}
		}
	}()
}

// Len returns the number of live records.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}
