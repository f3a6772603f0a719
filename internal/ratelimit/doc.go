// Package ratelimit implements the per-key fixed-window rate limiter used by
// the gatekeeping pipeline.
//
// The limiter itself is stateless. All counter state lives in a Store whose
// Take operation performs fetch-or-create, window reset and the conditional
// increment as one atomic step, so concurrent requests for the same key cannot
// both observe count = limit-1 and both be allowed. Stores are provided for
// SQL databases (see repo.RateLimitStore), Redis and process memory.
//
// Keys are scoped by bucket: the same caller is subject to several independent
// limits at once (e.g. reads vs. writes), and keys of different buckets never
// collide.
package ratelimit
