package handlers

import (
	"log"
	"net/http"

	"github.com/intelliprep/backend/internal/api/request"
	"github.com/intelliprep/backend/internal/auth"
	"github.com/intelliprep/backend/internal/quota"
)

// QuotaHandler exposes the AI quota tracking endpoint the mobile client calls
// before every AI feature. All outcomes are reported with HTTP 200 and a
// status discriminator in the body; older clients treat non-200 responses as
// network failures and retry, which would double-spend quota.
type QuotaHandler struct {
	gate *quota.Gate
}

// NewQuotaHandler creates a new quota handler
func NewQuotaHandler(gate *quota.Gate) *QuotaHandler {
	return &QuotaHandler{gate: gate}
}

// TrackRequest is the quota tracking request body. UserID is a fallback for
// clients that cannot attach their token, resolved only when no credential
// authenticated the request.
type TrackRequest struct {
	UserID string `json:"user_id"`
}

// TrackResponse is the quota tracking response body. Status is one of ok,
// limit_exceeded, unauthorized, or error.
type TrackResponse struct {
	Status    string `json:"status"`
	Remaining *int   `json:"remaining,omitempty"`
	Limit     int    `json:"limit,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Track reserves one AI call against the user's daily quota
// POST /api/v1/ai/track
func (h *QuotaHandler) Track(w http.ResponseWriter, r *http.Request) {
	// Identity comes from the authenticated credential when present, else
	// from the body.
	userID := auth.GetUserID(r.Context())

	// The body is optional; a missing or malformed body just means no
	// fallback identity.
	var req TrackRequest
	_ = request.DecodeJSON(r, &req)

	if userID == "" {
		userID = req.UserID
	}
	if userID == "" {
		writeJSON(w, http.StatusOK, TrackResponse{Status: "unauthorized"})
		return
	}

	decision, err := h.gate.CheckAndConsume(r.Context(), userID)
	if err != nil {
		log.Printf("[quota] track failed for %s: %v", userID, err)
		writeJSON(w, http.StatusOK, TrackResponse{Status: "error", Error: "internal"})
		return
	}

	switch decision.Outcome {
	case quota.Allowed:
		remaining := decision.Remaining
		writeJSON(w, http.StatusOK, TrackResponse{Status: "ok", Remaining: &remaining})
	case quota.Denied:
		writeJSON(w, http.StatusOK, TrackResponse{Status: "limit_exceeded", Limit: decision.Limit})
	case quota.NotFound:
		writeJSON(w, http.StatusOK, TrackResponse{Status: "error", Error: "profile_not_found"})
	default:
		writeJSON(w, http.StatusOK, TrackResponse{Status: "error", Error: "update_conflict"})
	}
}
