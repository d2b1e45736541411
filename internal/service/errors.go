package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/intelliprep/backend/internal/quota"
)

var (
	// ErrQuotaExceeded is returned when the user's daily AI quota is spent
	ErrQuotaExceeded = errors.New("daily ai quota exceeded")
	// ErrQuotaUnavailable is returned when quota state could not be settled
	ErrQuotaUnavailable = errors.New("quota temporarily unavailable")
	// ErrNotOwner is returned when a resource belongs to another user
	ErrNotOwner = errors.New("resource not owned by user")
)

// consumeQuota reserves one AI call for the user, mapping the gate decision
// onto service errors. A nil error means a slot was consumed.
func consumeQuota(ctx context.Context, gate *quota.Gate, userID string) (quota.Decision, error) {
	decision, err := gate.CheckAndConsume(ctx, userID)
	if err != nil {
		return decision, fmt.Errorf("quota check failed: %w", err)
	}

	switch decision.Outcome {
	case quota.Allowed:
		return decision, nil
	case quota.Denied:
		return decision, ErrQuotaExceeded
	case quota.NotFound:
		return decision, quota.ErrNotFound
	default:
		return decision, ErrQuotaUnavailable
	}
}
