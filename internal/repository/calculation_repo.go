package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/intelliprep/backend/internal/database"
	"github.com/intelliprep/backend/internal/models"
)

// ErrCalculationNotFound is returned when a calculation is not found
var ErrCalculationNotFound = errors.New("calculation not found")

// HistoryLimit caps how many calculator entries are returned per user
const HistoryLimit = 50

// CalculationRepository handles calculation history database operations
type CalculationRepository struct {
	db *database.DB
}

// NewCalculationRepository creates a new calculation repository
func NewCalculationRepository(db *database.DB) *CalculationRepository {
	return &CalculationRepository{db: db}
}

// Create stores a calculation
func (r *CalculationRepository) Create(ctx context.Context, calc *models.Calculation) error {
	if calc.ID == "" {
		calc.ID = uuid.New().String()
	}
	if calc.CalculationType == "" {
		calc.CalculationType = "basic"
	}
	calc.CreatedAt = time.Now()

	query := `
		INSERT INTO calculations (id, user_id, expression, result, calculation_type, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.Exec(ctx, query,
		calc.ID, calc.UserID, calc.Expression, calc.Result,
		calc.CalculationType, nullableJSON(calc.Metadata), calc.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create calculation: %w", err)
	}

	return nil
}

// ListByUser retrieves a user's calculation history, newest first
func (r *CalculationRepository) ListByUser(ctx context.Context, userID string) ([]models.Calculation, error) {
	query := `
		SELECT id, user_id, expression, result, calculation_type, metadata, created_at
		FROM calculations
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, userID, HistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list calculations: %w", err)
	}
	defer rows.Close()

	var calcs []models.Calculation
	for rows.Next() {
		var calc models.Calculation
		err := rows.Scan(
			&calc.ID, &calc.UserID, &calc.Expression, &calc.Result,
			&calc.CalculationType, &calc.Metadata, &calc.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan calculation: %w", err)
		}
		calcs = append(calcs, calc)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating calculations: %w", err)
	}

	return calcs, nil
}

// Delete deletes a calculation owned by the given user
func (r *CalculationRepository) Delete(ctx context.Context, id, userID string) error {
	rowsAffected, err := r.db.Exec(ctx, "DELETE FROM calculations WHERE id = $1 AND user_id = $2", id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete calculation: %w", err)
	}

	if rowsAffected == 0 {
		return ErrCalculationNotFound
	}

	return nil
}

// ClearByUser removes a user's entire calculation history
func (r *CalculationRepository) ClearByUser(ctx context.Context, userID string) error {
	_, err := r.db.Exec(ctx, "DELETE FROM calculations WHERE user_id = $1", userID)
	if err != nil {
		return fmt.Errorf("failed to clear calculations: %w", err)
	}
	return nil
}
