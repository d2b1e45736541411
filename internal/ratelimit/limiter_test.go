package ratelimit

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intelliprep/backend/internal/cache"
	"github.com/intelliprep/backend/internal/models"
)

func newTestLimiter(t *testing.T, limits map[string]Limit) *RateLimiter {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	redisCache := cache.NewRedisWithClient(client)
	if limits == nil {
		return NewRateLimiter(redisCache)
	}
	return NewRateLimiterWithLimits(redisCache, limits)
}

func TestAllowWithinLimit(t *testing.T) {
	limiter := newTestLimiter(t, map[string]Limit{
		models.TierFree:      {RequestsPerMinute: 3, RequestsPerDay: 100},
		models.TierAnonymous: {RequestsPerMinute: 1, RequestsPerDay: 10},
	})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, err := limiter.Allow(ctx, "user-1", models.TierFree)
		require.NoError(t, err)
		assert.True(t, allowed, "request %d should be allowed", i+1)
	}

	allowed, err := limiter.Allow(ctx, "user-1", models.TierFree)
	require.NoError(t, err)
	assert.False(t, allowed, "fourth request should be blocked")
}

func TestAllowIsolatesIdentifiers(t *testing.T) {
	limiter := newTestLimiter(t, map[string]Limit{
		models.TierFree:      {RequestsPerMinute: 1, RequestsPerDay: 10},
		models.TierAnonymous: {RequestsPerMinute: 1, RequestsPerDay: 10},
	})
	ctx := context.Background()

	allowed, err := limiter.Allow(ctx, "user-1", models.TierFree)
	require.NoError(t, err)
	assert.True(t, allowed)

	// A different identifier has its own window
	allowed, err = limiter.Allow(ctx, "user-2", models.TierFree)
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = limiter.Allow(ctx, "user-1", models.TierFree)
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestDailyLimitEnforced(t *testing.T) {
	limiter := newTestLimiter(t, map[string]Limit{
		models.TierFree:      {RequestsPerMinute: 100, RequestsPerDay: 2},
		models.TierAnonymous: {RequestsPerMinute: 1, RequestsPerDay: 1},
	})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		allowed, err := limiter.Allow(ctx, "user-1", models.TierFree)
		require.NoError(t, err)
		assert.True(t, allowed)
	}

	allowed, err := limiter.Allow(ctx, "user-1", models.TierFree)
	require.NoError(t, err)
	assert.False(t, allowed, "daily limit should block despite minute headroom")
}

func TestUnknownTierFallsBackToAnonymous(t *testing.T) {
	limiter := newTestLimiter(t, nil)

	limit := limiter.GetLimitForTier("enterprise")
	assert.Equal(t, DefaultLimits[models.TierAnonymous], limit)
}

func TestUnlimitedDailyLimit(t *testing.T) {
	limiter := newTestLimiter(t, map[string]Limit{
		models.TierPremium:   {RequestsPerMinute: 5, RequestsPerDay: -1},
		models.TierAnonymous: {RequestsPerMinute: 1, RequestsPerDay: 1},
	})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		allowed, err := limiter.Allow(ctx, "prem-1", models.TierPremium)
		require.NoError(t, err)
		assert.True(t, allowed)
	}
}

func TestGetRemaining(t *testing.T) {
	limiter := newTestLimiter(t, map[string]Limit{
		models.TierFree:      {RequestsPerMinute: 5, RequestsPerDay: 100},
		models.TierAnonymous: {RequestsPerMinute: 1, RequestsPerDay: 1},
	})
	ctx := context.Background()

	_, err := limiter.Allow(ctx, "user-1", models.TierFree)
	require.NoError(t, err)
	_, err = limiter.Allow(ctx, "user-1", models.TierFree)
	require.NoError(t, err)

	info, err := limiter.GetRemaining(ctx, "user-1", models.TierFree)
	require.NoError(t, err)
	assert.Equal(t, 3, info.Remaining)
	assert.Equal(t, 5, info.Limit)
}

func TestResetLimit(t *testing.T) {
	limiter := newTestLimiter(t, map[string]Limit{
		models.TierFree:      {RequestsPerMinute: 1, RequestsPerDay: 10},
		models.TierAnonymous: {RequestsPerMinute: 1, RequestsPerDay: 1},
	})
	ctx := context.Background()

	allowed, err := limiter.Allow(ctx, "user-1", models.TierFree)
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = limiter.Allow(ctx, "user-1", models.TierFree)
	require.NoError(t, err)
	assert.False(t, allowed)

	require.NoError(t, limiter.ResetLimit(ctx, "user-1"))

	allowed, err = limiter.Allow(ctx, "user-1", models.TierFree)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestGetUsageStats(t *testing.T) {
	limiter := newTestLimiter(t, map[string]Limit{
		models.TierFree:      {RequestsPerMinute: 10, RequestsPerDay: 50},
		models.TierAnonymous: {RequestsPerMinute: 1, RequestsPerDay: 1},
	})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := limiter.Allow(ctx, "user-1", models.TierFree)
		require.NoError(t, err)
	}

	stats, err := limiter.GetUsageStats(ctx, "user-1", models.TierFree)
	require.NoError(t, err)

	assert.Equal(t, models.TierFree, stats.Tier)
	assert.Equal(t, 3, stats.RequestsThisMinute)
	assert.Equal(t, 3, stats.RequestsToday)
	assert.Equal(t, 7, stats.RemainingThisMinute)
	assert.Equal(t, 47, stats.RemainingToday)
}
