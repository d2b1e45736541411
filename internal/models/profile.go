package models

import (
	"time"
)

// Profile represents a user profile in the system. The AI usage columns back
// the daily quota gate: AIUsageCount counts calls consumed on AIUsageDate
// (UTC). A nil AIUsageDate means the user has never spent an AI call.
type Profile struct {
	ID           string     `json:"id" db:"id"`
	Email        string     `json:"email" db:"email"`
	PasswordHash string     `json:"-" db:"password_hash"`
	IsPremium    bool       `json:"is_premium" db:"is_premium"`
	AIUsageCount int        `json:"ai_usage_count" db:"ai_usage_count"`
	AIUsageDate  *time.Time `json:"ai_usage_date,omitempty" db:"ai_usage_date"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}

// APIKey represents an API key for a user
type APIKey struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	KeyHash   string    `json:"-" db:"key_hash"`
	KeyPrefix string    `json:"key_prefix" db:"key_prefix"`
	Name      string    `json:"name" db:"name"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	LastUsed  time.Time `json:"last_used,omitempty" db:"last_used"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Tier names used for per-request rate limiting. Distinct from the daily AI
// quota, which only distinguishes free vs. premium.
const (
	TierFree      = "free"
	TierPremium   = "premium"
	TierAnonymous = "anonymous"
)

// Tier returns the rate-limit tier for a profile
func (p *Profile) Tier() string {
	if p.IsPremium {
		return TierPremium
	}
	return TierFree
}
