// Package exactcache is the Redis-backed exact-match tier. It answers before
// any embedding is computed, so identical repeat queries never pay for an
// embedding call.
package exactcache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"

	"adaptive-cache/internal/models"
)

const (
	keyPrefix  = "adaptive-cache:exact:"
	defaultTTL = time.Hour
)

// CachedResponse is the stored value for one exact-match entry.
type CachedResponse struct {
	Response     string  `json:"response"`
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	Cost         float64 `json:"cost"`
}

// ExactCache wraps a Redis client with exact-match lookup over normalized
// query text.
type ExactCache struct {
	client *redis.Client
	ttl    time.Duration
}

// New wires the tier onto an existing Redis client. Nil client disables the
// tier and every lookup misses.
func New(client *redis.Client, cfg models.ExactCacheConfig) *ExactCache {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &ExactCache{client: client, ttl: ttl}
}

// Enabled reports whether the tier has a backing Redis client.
func (ec *ExactCache) Enabled() bool {
	return ec != nil && ec.client != nil
}

// Key derives the Redis key for a normalized query.
func Key(normalized string) string {
	return fmt.Sprintf("%s%x", keyPrefix, sha256.Sum256([]byte(normalized)))
}

// Get looks up the exact-match entry for a normalized query. A Redis error is
// treated as a miss so the semantic tier still gets a chance.
func (ec *ExactCache) Get(ctx context.Context, normalized string) (*CachedResponse, bool) {
	if !ec.Enabled() {
		return nil, false
	}

	raw, err := ec.client.Get(ctx, Key(normalized)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			fiberlog.Warnf("ExactCache: lookup failed: %v", err)
		}
		return nil, false
	}

	var resp CachedResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		fiberlog.Warnf("ExactCache: corrupt entry, dropping: %v", err)
		ec.client.Del(ctx, Key(normalized))
		return nil, false
	}
	return &resp, true
}

// Set stores the response for a normalized query with the configured TTL.
func (ec *ExactCache) Set(ctx context.Context, normalized string, resp *CachedResponse) {
	if !ec.Enabled() {
		return
	}

	raw, err := json.Marshal(resp)
	if err != nil {
		fiberlog.Warnf("ExactCache: marshal failed: %v", err)
		return
	}
	if err := ec.client.Set(ctx, Key(normalized), raw, ec.ttl).Err(); err != nil {
		fiberlog.Warnf("ExactCache: store failed: %v", err)
	}
}

// Clear removes every exact-match entry. Scans instead of FLUSHDB so other
// users of the same Redis database are untouched.
func (ec *ExactCache) Clear(ctx context.Context) error {
	if !ec.Enabled() {
		return nil
	}

	iter := ec.client.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
		if len(keys) >= 100 {
			if err := ec.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("failed to delete exact cache keys: %w", err)
			}
			keys = keys[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan exact cache keys: %w", err)
	}
	if len(keys) > 0 {
		if err := ec.client.Del(ctx, keys...).Err(); err != nil {
			return fmt.Errorf("failed to delete exact cache keys: %w", err)
		}
	}
	return nil
}

// Health pings the backing Redis.
func (ec *ExactCache) Health(ctx context.Context) error {
	if !ec.Enabled() {
		return nil
	}
	return ec.client.Ping(ctx).Err()
}
