package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/intelliprep/backend/internal/database"
	"github.com/intelliprep/backend/internal/models"
	"github.com/intelliprep/backend/internal/quota"
)

var (
	// ErrProfileNotFound is returned when a profile is not found
	ErrProfileNotFound = errors.New("profile not found")
	// ErrProfileExists is returned when trying to create a profile that already exists
	ErrProfileExists = errors.New("profile already exists")
)

const quotaDateLayout = "2006-01-02"

// ProfileRepository handles profile database operations. It also implements
// quota.UsageStore: the ai_usage_count/ai_usage_date columns on the profiles
// row are the single shared mutable state behind the daily AI quota, and the
// guarded UPDATE below is the compare-and-swap the gate coordinates through.
type ProfileRepository struct {
	db *database.DB
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db *database.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// Create creates a new profile with zeroed AI usage
func (r *ProfileRepository) Create(ctx context.Context, profile *models.Profile) error {
	if profile.ID == "" {
		profile.ID = uuid.New().String()
	}
	now := time.Now()
	profile.CreatedAt = now
	profile.UpdatedAt = now

	query := `
		INSERT INTO profiles (id, email, password_hash, is_premium, ai_usage_count, ai_usage_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 0, NULL, $5, $6)
	`
	_, err := r.db.Exec(ctx, query,
		profile.ID, profile.Email, profile.PasswordHash, profile.IsPremium,
		profile.CreatedAt, profile.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrProfileExists
		}
		return fmt.Errorf("failed to create profile: %w", err)
	}

	return nil
}

// GetByID retrieves a profile by ID
func (r *ProfileRepository) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	return r.getBy(ctx, "id", id)
}

// GetByEmail retrieves a profile by email
func (r *ProfileRepository) GetByEmail(ctx context.Context, email string) (*models.Profile, error) {
	return r.getBy(ctx, "email", email)
}

func (r *ProfileRepository) getBy(ctx context.Context, column, value string) (*models.Profile, error) {
	query := fmt.Sprintf(`
		SELECT id, email, password_hash, is_premium, ai_usage_count, ai_usage_date, created_at, updated_at
		FROM profiles
		WHERE %s = $1
	`, column)
	var profile models.Profile
	err := r.db.QueryRow(ctx, query, value).Scan(
		&profile.ID, &profile.Email, &profile.PasswordHash, &profile.IsPremium,
		&profile.AIUsageCount, &profile.AIUsageDate, &profile.CreatedAt, &profile.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to get profile by %s: %w", column, err)
	}

	return &profile, nil
}

// GetByAPIKey retrieves a profile by API key hash
func (r *ProfileRepository) GetByAPIKey(ctx context.Context, keyHash string) (*models.Profile, error) {
	query := `
		SELECT p.id, p.email, p.password_hash, p.is_premium, p.ai_usage_count, p.ai_usage_date, p.created_at, p.updated_at
		FROM profiles p
		JOIN api_keys ak ON p.id = ak.user_id
		WHERE ak.key_hash = $1 AND ak.is_active = true
	`
	var profile models.Profile
	err := r.db.QueryRow(ctx, query, keyHash).Scan(
		&profile.ID, &profile.Email, &profile.PasswordHash, &profile.IsPremium,
		&profile.AIUsageCount, &profile.AIUsageDate, &profile.CreatedAt, &profile.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to get profile by api key: %w", err)
	}

	return &profile, nil
}

// SetPremium updates a profile's premium flag
func (r *ProfileRepository) SetPremium(ctx context.Context, userID string, premium bool) error {
	query := `UPDATE profiles SET is_premium = $2, updated_at = $3 WHERE id = $1`
	rowsAffected, err := r.db.Exec(ctx, query, userID, premium, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update premium flag: %w", err)
	}

	if rowsAffected == 0 {
		return ErrProfileNotFound
	}

	return nil
}

// Delete deletes a profile and its API keys
func (r *ProfileRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx, "DELETE FROM api_keys WHERE user_id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete profile api keys: %w", err)
	}

	rowsAffected, err := r.db.Exec(ctx, "DELETE FROM profiles WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}

	if rowsAffected == 0 {
		return ErrProfileNotFound
	}

	return nil
}

// GetUsage implements quota.UsageStore. The date is surfaced as a UTC
// YYYY-MM-DD string; NULL maps to the empty string (never used).
func (r *ProfileRepository) GetUsage(ctx context.Context, userID string) (*quota.UsageRecord, error) {
	query := `
		SELECT id, is_premium, ai_usage_count, ai_usage_date
		FROM profiles
		WHERE id = $1
	`
	var (
		rec  quota.UsageRecord
		date *time.Time
	)
	err := r.db.QueryRow(ctx, query, userID).Scan(&rec.UserID, &rec.IsPremium, &rec.UsageCount, &date)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, quota.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get usage record: %w", err)
	}
	if date != nil {
		rec.UsageDate = date.UTC().Format(quotaDateLayout)
	}

	return &rec, nil
}

// CompareAndSwapUsage implements quota.UsageStore. The UPDATE only commits
// when the stored count and date still match the previously read stamp, so
// concurrent increments for the same user serialize on the row without a
// lock. IS NOT DISTINCT FROM makes the NULL date comparable.
func (r *ProfileRepository) CompareAndSwapUsage(ctx context.Context, userID string, prev, next quota.Stamp) (bool, error) {
	prevDate, err := stampDate(prev)
	if err != nil {
		return false, err
	}
	nextDate, err := stampDate(next)
	if err != nil {
		return false, err
	}

	query := `
		UPDATE profiles
		SET ai_usage_count = $2,
		    ai_usage_date = $3,
		    updated_at = $4
		WHERE id = $1
		  AND ai_usage_count = $5
		  AND ai_usage_date IS NOT DISTINCT FROM $6
	`
	rowsAffected, err := r.db.Exec(ctx, query, userID, next.Count, nextDate, time.Now(), prev.Count, prevDate)
	if err != nil {
		return false, fmt.Errorf("failed to swap usage record: %w", err)
	}

	return rowsAffected > 0, nil
}

// stampDate converts a stamp's date string to a nullable time for SQL
func stampDate(s quota.Stamp) (*time.Time, error) {
	if s.Date == "" {
		return nil, nil
	}
	t, err := time.Parse(quotaDateLayout, s.Date)
	if err != nil {
		return nil, fmt.Errorf("invalid usage date %q: %w", s.Date, err)
	}
	return &t, nil
}

// isUniqueViolation checks if an error is a unique constraint violation
func isUniqueViolation(err error) bool {
	// PostgreSQL unique violation error code is 23505
	if err == nil {
		return false
	}
	errMsg := err.Error()
	return strings.Contains(errMsg, "duplicate key") || strings.Contains(errMsg, "23505")
}
