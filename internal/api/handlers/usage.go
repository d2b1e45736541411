package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/intelliprep/backend/internal/auth"
	"github.com/intelliprep/backend/internal/models"
	"github.com/intelliprep/backend/internal/quota"
	"github.com/intelliprep/backend/internal/ratelimit"
	"github.com/intelliprep/backend/internal/repository"
)

// UsageHandler exposes quota and rate limit state to the client so it can
// render remaining-call badges without spending a call to find out.
type UsageHandler struct {
	profileRepo *repository.ProfileRepository
	gate        *quota.Gate
	rateLimiter *ratelimit.RateLimiter
}

// NewUsageHandler creates a new usage handler
func NewUsageHandler(profileRepo *repository.ProfileRepository, gate *quota.Gate, rateLimiter *ratelimit.RateLimiter) *UsageHandler {
	return &UsageHandler{
		profileRepo: profileRepo,
		gate:        gate,
		rateLimiter: rateLimiter,
	}
}

// AIQuotaStats describes the user's daily AI quota state
type AIQuotaStats struct {
	UsedToday int    `json:"used_today"`
	Remaining int    `json:"remaining"`
	Limit     int    `json:"limit"`
	ResetsAt  string `json:"resets_at"` // next UTC midnight
}

// UsageResponse combines AI quota and request rate limit state
type UsageResponse struct {
	UserID   string               `json:"user_id"`
	Tier     string               `json:"tier"`
	AIQuota  AIQuotaStats         `json:"ai_quota"`
	Requests *ratelimit.UsageStats `json:"requests,omitempty"`
}

// GetUsage returns the current user's AI quota and request usage
// GET /api/v1/user/usage
func (h *UsageHandler) GetUsage(w http.ResponseWriter, r *http.Request) {
	profile := auth.GetProfile(r.Context())
	if profile == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	full, err := h.profileRepo.GetByID(r.Context(), profile.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", "Failed to fetch user data")
		return
	}

	now := time.Now().UTC()
	today := now.Format("2006-01-02")

	// A count stamped with any other date belongs to a day that is over
	used := 0
	if full.AIUsageDate != nil && full.AIUsageDate.UTC().Format("2006-01-02") == today {
		used = full.AIUsageCount
	}

	free, premium := h.gate.Limits()
	limit := free
	if full.IsPremium {
		limit = premium
	}
	remaining := limit - used
	if remaining < 0 {
		remaining = 0
	}

	resp := UsageResponse{
		UserID: full.ID,
		Tier:   full.Tier(),
		AIQuota: AIQuotaStats{
			UsedToday: used,
			Remaining: remaining,
			Limit:     limit,
			ResetsAt:  now.Truncate(24 * time.Hour).Add(24 * time.Hour).Format(time.RFC3339),
		},
	}

	requests, err := h.rateLimiter.GetUsageStats(r.Context(), full.ID, full.Tier())
	if err != nil {
		// Quota state is still useful without request stats
		log.Printf("[usage] rate limit stats unavailable for %s: %v", full.ID, err)
	} else {
		resp.Requests = requests
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetTierInfo returns the limits for all tiers
// GET /api/v1/tiers
func (h *UsageHandler) GetTierInfo(w http.ResponseWriter, r *http.Request) {
	free, premium := h.gate.Limits()

	tiers := make([]map[string]interface{}, 0, 2)
	for _, tier := range []string{models.TierFree, models.TierPremium} {
		limit := h.rateLimiter.GetLimitForTier(tier)
		aiLimit := free
		if tier == models.TierPremium {
			aiLimit = premium
		}
		tiers = append(tiers, map[string]interface{}{
			"name":                tier,
			"ai_calls_per_day":    aiLimit,
			"requests_per_minute": limit.RequestsPerMinute,
			"requests_per_day":    limit.RequestsPerDay,
		})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"tiers": tiers,
	})
}
