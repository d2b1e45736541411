package ratelimit

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/intelliprep/backend/internal/auth"
	"github.com/intelliprep/backend/internal/cache"
	"github.com/intelliprep/backend/internal/models"
)

// Limit defines request rate limits for a tier
type Limit struct {
	RequestsPerMinute int `json:"requests_per_minute"`
	RequestsPerDay    int `json:"requests_per_day"` // -1 means unlimited
}

// DefaultLimits defines the default request limits per tier. These bound raw
// HTTP traffic and are separate from the daily AI quota.
var DefaultLimits = map[string]Limit{
	models.TierFree:      {RequestsPerMinute: 30, RequestsPerDay: 2000},
	models.TierPremium:   {RequestsPerMinute: 120, RequestsPerDay: -1},
	models.TierAnonymous: {RequestsPerMinute: 10, RequestsPerDay: 200},
}

// RateLimitInfo contains rate limit information for a response
type RateLimitInfo struct {
	Limit     int   `json:"limit"`
	Remaining int   `json:"remaining"`
	Reset     int64 `json:"reset"` // Unix timestamp
}

// RateLimiter enforces per-tier request limits using Redis
type RateLimiter struct {
	cache  *cache.Redis
	limits map[string]Limit
}

// NewRateLimiter creates a rate limiter with the default tier limits
func NewRateLimiter(cache *cache.Redis) *RateLimiter {
	return &RateLimiter{cache: cache, limits: DefaultLimits}
}

// NewRateLimiterWithLimits creates a rate limiter with custom limits
func NewRateLimiterWithLimits(cache *cache.Redis, limits map[string]Limit) *RateLimiter {
	return &RateLimiter{cache: cache, limits: limits}
}

// Allow checks whether a request from the identifier is within its limits
func (r *RateLimiter) Allow(ctx context.Context, identifier, tier string) (bool, error) {
	limit := r.GetLimitForTier(tier)

	allowed, _, err := r.checkSlidingWindowLimit(ctx, minuteKey(identifier), limit.RequestsPerMinute, time.Minute)
	if err != nil {
		return false, err
	}
	if !allowed {
		return false, nil
	}

	if limit.RequestsPerDay > 0 {
		allowed, _, err = r.checkSlidingWindowLimit(ctx, dayKey(identifier), limit.RequestsPerDay, 24*time.Hour)
		if err != nil {
			return false, err
		}
		if !allowed {
			return false, nil
		}
	}

	return true, nil
}

// GetRemaining returns the remaining requests for an identifier without
// consuming a slot
func (r *RateLimiter) GetRemaining(ctx context.Context, identifier, tier string) (*RateLimitInfo, error) {
	limit := r.GetLimitForTier(tier)

	_, minuteRemaining, err := r.getSlidingWindowRemaining(ctx, minuteKey(identifier), limit.RequestsPerMinute, time.Minute)
	if err != nil {
		return nil, err
	}

	remaining := minuteRemaining
	if limit.RequestsPerDay > 0 {
		_, dayRemaining, err := r.getSlidingWindowRemaining(ctx, dayKey(identifier), limit.RequestsPerDay, 24*time.Hour)
		if err != nil {
			return nil, err
		}
		if dayRemaining < remaining {
			remaining = dayRemaining
		}
	}

	now := time.Now()
	return &RateLimitInfo{
		Limit:     limit.RequestsPerMinute,
		Remaining: remaining,
		Reset:     now.Truncate(time.Minute).Add(time.Minute).Unix(),
	}, nil
}

// Middleware returns HTTP middleware that enforces rate limits. A Redis
// failure admits the request so an outage does not take the API down.
func (r *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		ctx := req.Context()
		identifier, tier := r.identify(req)

		allowed, err := r.Allow(ctx, identifier, tier)
		if err != nil {
			log.Printf("[ratelimit] check failed, admitting request: %v", err)
			next.ServeHTTP(w, req)
			return
		}

		info, err := r.GetRemaining(ctx, identifier, tier)
		if err == nil {
			setRateLimitHeaders(w, info)
		}

		if !allowed {
			writeRateLimitExceeded(w, info)
			return
		}

		next.ServeHTTP(w, req)
	})
}

// identify resolves the rate limit identity: authenticated users by ID and
// tier, everyone else by client IP as anonymous
func (r *RateLimiter) identify(req *http.Request) (string, string) {
	if profile := auth.GetProfile(req.Context()); profile != nil {
		return profile.ID, profile.Tier()
	}
	return clientIP(req), models.TierAnonymous
}

// GetLimitForTier returns the limit for a tier, defaulting to anonymous
func (r *RateLimiter) GetLimitForTier(tier string) Limit {
	limit, ok := r.limits[tier]
	if !ok {
		return r.limits[models.TierAnonymous]
	}
	return limit
}

func minuteKey(identifier string) string {
	return fmt.Sprintf("ratelimit:minute:%s", identifier)
}

func dayKey(identifier string) string {
	return fmt.Sprintf("ratelimit:day:%s", identifier)
}

// setRateLimitHeaders sets standard rate limit headers on the response
func setRateLimitHeaders(w http.ResponseWriter, info *RateLimitInfo) {
	if info == nil {
		return
	}
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(info.Reset, 10))
}

// writeRateLimitExceeded writes a 429 response
func writeRateLimitExceeded(w http.ResponseWriter, info *RateLimitInfo) {
	retryAfter := int64(60)
	if info != nil {
		retryAfter = info.Reset - time.Now().Unix()
		if retryAfter < 1 {
			retryAfter = 1
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", strconv.FormatInt(retryAfter, 10))
	w.WriteHeader(http.StatusTooManyRequests)

	json.NewEncoder(w).Encode(map[string]interface{}{
		"error":       "rate_limit_exceeded",
		"message":     "You have exceeded your rate limit. Please try again later.",
		"retry_after": retryAfter,
	})
}

// clientIP extracts the client IP, honoring proxy headers
func clientIP(req *http.Request) string {
	if xff := req.Header.Get("X-Forwarded-For"); xff != "" {
		for i := 0; i < len(xff); i++ {
			if xff[i] == ',' {
				return xff[:i]
			}
		}
		return xff
	}

	if xri := req.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	ip := req.RemoteAddr
	for i := len(ip) - 1; i >= 0; i-- {
		if ip[i] == ':' {
			return ip[:i]
		}
		if ip[i] == ']' {
			break
		}
	}
	return ip
}
