package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/intelliprep/backend/internal/database"
	"github.com/intelliprep/backend/internal/models"
)

// ErrInterviewNotFound is returned when a mock interview is not found
var ErrInterviewNotFound = errors.New("interview not found")

// InterviewRepository handles mock interview database operations. Questions
// and responses live in JSONB columns, mirroring how the mobile client
// stores them.
type InterviewRepository struct {
	db *database.DB
}

// NewInterviewRepository creates a new interview repository
func NewInterviewRepository(db *database.DB) *InterviewRepository {
	return &InterviewRepository{db: db}
}

// Create creates a new mock interview
func (r *InterviewRepository) Create(ctx context.Context, interview *models.MockInterview) error {
	if interview.ID == "" {
		interview.ID = uuid.New().String()
	}
	if interview.Status == "" {
		interview.Status = models.InterviewPending
	}
	interview.CreatedAt = time.Now()

	questions, err := json.Marshal(interview.Questions)
	if err != nil {
		return fmt.Errorf("failed to marshal questions: %w", err)
	}
	responses, err := json.Marshal(interview.Responses)
	if err != nil {
		return fmt.Errorf("failed to marshal responses: %w", err)
	}

	query := `
		INSERT INTO mock_interviews (id, user_id, title, status, questions, responses, transcript, duration, score, feedback, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err = r.db.Exec(ctx, query,
		interview.ID, interview.UserID, interview.Title, interview.Status,
		questions, responses, interview.Transcript, interview.Duration,
		interview.Score, interview.Feedback, interview.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create interview: %w", err)
	}

	return nil
}

// GetByID retrieves a mock interview by ID
func (r *InterviewRepository) GetByID(ctx context.Context, id string) (*models.MockInterview, error) {
	query := `
		SELECT id, user_id, title, status, questions, responses, transcript, duration, score, feedback, created_at, completed_at
		FROM mock_interviews
		WHERE id = $1
	`
	return r.scanOne(r.db.QueryRow(ctx, query, id))
}

// ListByUser retrieves all interviews for a user, newest first
func (r *InterviewRepository) ListByUser(ctx context.Context, userID string) ([]models.MockInterview, error) {
	query := `
		SELECT id, user_id, title, status, questions, responses, transcript, duration, score, feedback, created_at, completed_at
		FROM mock_interviews
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list interviews: %w", err)
	}
	defer rows.Close()

	var interviews []models.MockInterview
	for rows.Next() {
		interview, err := r.scanOne(rows)
		if err != nil {
			return nil, err
		}
		interviews = append(interviews, *interview)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating interviews: %w", err)
	}

	return interviews, nil
}

// SetStatus updates an interview's status
func (r *InterviewRepository) SetStatus(ctx context.Context, id, status string) error {
	rowsAffected, err := r.db.Exec(ctx,
		"UPDATE mock_interviews SET status = $2 WHERE id = $1", id, status)
	if err != nil {
		return fmt.Errorf("failed to update interview status: %w", err)
	}

	if rowsAffected == 0 {
		return ErrInterviewNotFound
	}

	return nil
}

// SetResponses replaces the stored responses for an interview
func (r *InterviewRepository) SetResponses(ctx context.Context, id string, responses []models.InterviewResponse) error {
	data, err := json.Marshal(responses)
	if err != nil {
		return fmt.Errorf("failed to marshal responses: %w", err)
	}

	rowsAffected, err := r.db.Exec(ctx,
		"UPDATE mock_interviews SET responses = $2 WHERE id = $1", id, data)
	if err != nil {
		return fmt.Errorf("failed to update interview responses: %w", err)
	}

	if rowsAffected == 0 {
		return ErrInterviewNotFound
	}

	return nil
}

// Complete marks an interview as finished with its summary fields
func (r *InterviewRepository) Complete(ctx context.Context, id, transcript string, duration, score int, feedback string) error {
	query := `
		UPDATE mock_interviews
		SET status = $2, transcript = $3, duration = $4, score = $5, feedback = $6, completed_at = $7
		WHERE id = $1
	`
	rowsAffected, err := r.db.Exec(ctx, query,
		id, models.InterviewCompleted, transcript, duration, score, feedback, time.Now())
	if err != nil {
		return fmt.Errorf("failed to complete interview: %w", err)
	}

	if rowsAffected == 0 {
		return ErrInterviewNotFound
	}

	return nil
}

// Delete deletes an interview owned by the given user
func (r *InterviewRepository) Delete(ctx context.Context, id, userID string) error {
	rowsAffected, err := r.db.Exec(ctx,
		"DELETE FROM mock_interviews WHERE id = $1 AND user_id = $2", id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete interview: %w", err)
	}

	if rowsAffected == 0 {
		return ErrInterviewNotFound
	}

	return nil
}

// scanOne scans a single interview row
func (r *InterviewRepository) scanOne(row pgx.Row) (*models.MockInterview, error) {
	var (
		interview  models.MockInterview
		questions  []byte
		responses  []byte
		transcript *string
		feedback   *string
	)
	err := row.Scan(
		&interview.ID, &interview.UserID, &interview.Title, &interview.Status,
		&questions, &responses, &transcript, &interview.Duration,
		&interview.Score, &feedback, &interview.CreatedAt, &interview.CompletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInterviewNotFound
		}
		return nil, fmt.Errorf("failed to scan interview: %w", err)
	}

	if len(questions) > 0 {
		if err := json.Unmarshal(questions, &interview.Questions); err != nil {
			return nil, fmt.Errorf("failed to unmarshal questions: %w", err)
		}
	}
	if len(responses) > 0 {
		if err := json.Unmarshal(responses, &interview.Responses); err != nil {
			return nil, fmt.Errorf("failed to unmarshal responses: %w", err)
		}
	}
	if transcript != nil {
		interview.Transcript = *transcript
	}
	if feedback != nil {
		interview.Feedback = *feedback
	}

	return &interview, nil
}
