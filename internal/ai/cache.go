package ai

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/intelliprep/backend/internal/cache"
)

const summaryCachePrefix = "ai:summary:"

// SummaryCache stores generated note summaries in Redis keyed by a hash of
// the source text, so repeated summarize requests do not re-spend quota on
// identical content upstream.
type SummaryCache struct {
	redis *cache.Redis
	ttl   time.Duration
}

// NewSummaryCache creates a summary cache with the given TTL
func NewSummaryCache(redis *cache.Redis, ttl time.Duration) *SummaryCache {
	return &SummaryCache{redis: redis, ttl: ttl}
}

// Get returns a cached summary for the text, or false when absent
func (c *SummaryCache) Get(ctx context.Context, text string) (string, bool) {
	if c == nil || c.redis == nil {
		return "", false
	}
	summary, err := c.redis.Get(ctx, summaryKey(text))
	if err != nil || summary == "" {
		return "", false
	}
	return summary, true
}

// Set stores a summary for the text, best effort
func (c *SummaryCache) Set(ctx context.Context, text, summary string) {
	if c == nil || c.redis == nil {
		return
	}
	_ = c.redis.Set(ctx, summaryKey(text), summary, c.ttl)
}

// summaryKey hashes the source text into a fixed-size cache key
func summaryKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return summaryCachePrefix + hex.EncodeToString(sum[:])
}
