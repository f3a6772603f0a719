package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// takeScript performs the whole fixed-window decision inside Redis, which runs
// scripts atomically. The hash holds ws (window start, ms) and c (count); the
// key expires when its window does, so idle callers leave nothing behind.
//
// KEYS[1] = counter key
// ARGV[1] = now (ms), ARGV[2] = limit, ARGV[3] = window (ms)
// Returns {allowed(0|1), windowStart(ms), count}.
var takeScript = redis.NewScript(`
local now = tonumber(ARGV[1])
local limit = tonumber(ARGV[2])
local window = tonumber(ARGV[3])
local ws = redis.call('HGET', KEYS[1], 'ws')
if (not ws) or (now - tonumber(ws) >= window) then
  redis.call('HSET', KEYS[1], 'ws', now, 'c', 1)
  redis.call('PEXPIRE', KEYS[1], window)
  return {1, now, 1}
end
ws = tonumber(ws)
local c = tonumber(redis.call('HGET', KEYS[1], 'c') or '0')
if c >= limit then
  return {0, ws, c}
end
c = redis.call('HINCRBY', KEYS[1], 'c', 1)
return {1, ws, c}
`)

// RedisStore is a Store backed by Redis. It is safe to share between any
// number of processes pointing at the same Redis.
type RedisStore struct {
	rdb    redis.Scripter
	prefix string
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithKeyPrefix namespaces counter keys (default "ratelimit").
func WithKeyPrefix(prefix string) RedisOption {
	return func(s *RedisStore) { s.prefix = strings.Trim(prefix, ":") }
}

// NewRedisStore returns a RedisStore using rdb (a *redis.Client, cluster or
// ring client all satisfy redis.Scripter).
func NewRedisStore(rdb redis.Scripter, opts ...RedisOption) *RedisStore {
	s := &RedisStore{rdb: rdb, prefix: "ratelimit"}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Take implements Store.
func (s *RedisStore) Take(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (Record, bool, error) {
	rkey := key
	if s.prefix != "" {
		rkey = s.prefix + ":" + key
	}
	res, err := takeScript.Run(ctx, s.rdb, []string{rkey}, now.UnixMilli(), limit, window.Milliseconds()).Int64Slice()
	if err != nil {
		return Record{}, false, fmt.Errorf("redis take %q: %w", key, err)
	}
	if len(res) != 3 {
		return Record{}, false, fmt.Errorf("redis take %q: unexpected reply length %d", key, len(res))
	}
	rec := Record{
		Key:         key,
		WindowStart: time.UnixMilli(res[1]).UTC(),
		Count:       int(res[2]),
		Limit:       limit,
		WindowMs:    window.Milliseconds(),
	}
	return rec, res[0] == 1, nil
}
