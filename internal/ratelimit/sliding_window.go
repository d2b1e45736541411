package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// checkSlidingWindowLimit implements sliding window rate limiting on a Redis
// sorted set: each admitted request is a member scored by its timestamp, and
// members older than the window are pruned before counting.
func (r *RateLimiter) checkSlidingWindowLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, int, error) {
	now := time.Now()
	windowStart := now.Add(-window).UnixMicro()

	client := r.cache.Client()
	pipe := client.Pipeline()

	pipe.ZRemRangeByScore(ctx, key, "-inf", strconv.FormatInt(windowStart, 10))
	countCmd := pipe.ZCard(ctx, key)

	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return false, 0, fmt.Errorf("failed to execute rate limit check: %w", err)
	}

	count := int(countCmd.Val())
	if count >= limit {
		return false, 0, nil
	}

	// Microsecond scores keep members unique under rapid fire
	nowMicro := now.UnixMicro()
	err := client.ZAdd(ctx, key, redis.Z{
		Score:  float64(nowMicro),
		Member: strconv.FormatInt(nowMicro, 10),
	}).Err()
	if err != nil {
		return false, limit - count, fmt.Errorf("failed to add rate limit entry: %w", err)
	}

	// Expiry bounds key lifetime when an identifier goes quiet
	_ = client.Expire(ctx, key, window+time.Second).Err()

	return true, limit - count - 1, nil
}

// getSlidingWindowRemaining counts window occupancy without admitting a request
func (r *RateLimiter) getSlidingWindowRemaining(ctx context.Context, key string, limit int, window time.Duration) (bool, int, error) {
	windowStart := time.Now().Add(-window).UnixMicro()

	count, err := r.cache.Client().ZCount(ctx, key, strconv.FormatInt(windowStart, 10), "+inf").Result()
	if err != nil && err != redis.Nil {
		return false, limit, fmt.Errorf("failed to get rate limit count: %w", err)
	}

	remaining := limit - int(count)
	if remaining < 0 {
		remaining = 0
	}

	return int(count) < limit, remaining, nil
}

// ResetLimit clears all rate limit state for an identifier
func (r *RateLimiter) ResetLimit(ctx context.Context, identifier string) error {
	err := r.cache.Client().Del(ctx, minuteKey(identifier), dayKey(identifier)).Err()
	if err != nil {
		return fmt.Errorf("failed to reset rate limit: %w", err)
	}
	return nil
}

// UsageStats contains detailed request usage for an identifier
type UsageStats struct {
	Tier                string `json:"tier"`
	RequestsThisMinute  int    `json:"requests_this_minute"`
	RequestsToday       int    `json:"requests_today"`
	RemainingThisMinute int    `json:"remaining_this_minute"`
	RemainingToday      int    `json:"remaining_today"` // -1 means unlimited
	LimitPerMinute      int    `json:"limit_per_minute"`
	LimitPerDay         int    `json:"limit_per_day"` // -1 means unlimited
	ResetMinute         int64  `json:"reset_minute"`
	ResetDay            int64  `json:"reset_day"`
}

// GetUsageStats returns detailed request usage for an identifier
func (r *RateLimiter) GetUsageStats(ctx context.Context, identifier, tier string) (*UsageStats, error) {
	limit := r.GetLimitForTier(tier)
	client := r.cache.Client()
	now := time.Now()

	minuteStart := now.Add(-time.Minute).UnixMicro()
	minuteCount, err := client.ZCount(ctx, minuteKey(identifier), strconv.FormatInt(minuteStart, 10), "+inf").Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("failed to get minute count: %w", err)
	}

	dayStart := now.Add(-24 * time.Hour).UnixMicro()
	dayCount, err := client.ZCount(ctx, dayKey(identifier), strconv.FormatInt(dayStart, 10), "+inf").Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("failed to get day count: %w", err)
	}

	minuteRemaining := limit.RequestsPerMinute - int(minuteCount)
	if minuteRemaining < 0 {
		minuteRemaining = 0
	}

	dayRemaining := limit.RequestsPerDay - int(dayCount)
	if limit.RequestsPerDay == -1 {
		dayRemaining = -1
	} else if dayRemaining < 0 {
		dayRemaining = 0
	}

	return &UsageStats{
		Tier:                tier,
		RequestsThisMinute:  int(minuteCount),
		RequestsToday:       int(dayCount),
		RemainingThisMinute: minuteRemaining,
		RemainingToday:      dayRemaining,
		LimitPerMinute:      limit.RequestsPerMinute,
		LimitPerDay:         limit.RequestsPerDay,
		ResetMinute:         now.Truncate(time.Minute).Add(time.Minute).Unix(),
		ResetDay:            now.Truncate(24 * time.Hour).Add(24 * time.Hour).Unix(),
	}, nil
}
