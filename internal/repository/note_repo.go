package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/intelliprep/backend/internal/database"
	"github.com/intelliprep/backend/internal/models"
)

// ErrNoteNotFound is returned when a note is not found
var ErrNoteNotFound = errors.New("note not found")

// NoteRepository handles note database operations
type NoteRepository struct {
	db *database.DB
}

// NewNoteRepository creates a new note repository
func NewNoteRepository(db *database.DB) *NoteRepository {
	return &NoteRepository{db: db}
}

// Create creates a new note
func (r *NoteRepository) Create(ctx context.Context, note *models.Note) error {
	if note.ID == "" {
		note.ID = uuid.New().String()
	}
	if note.Category == "" {
		note.Category = "general"
	}
	now := time.Now()
	note.CreatedAt = now
	note.UpdatedAt = now

	query := `
		INSERT INTO notes (id, user_id, title, content, category, is_calculation, is_interview_transcript, calculation_data, interview_data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.db.Exec(ctx, query,
		note.ID, note.UserID, note.Title, note.Content, note.Category,
		note.IsCalculation, note.IsInterviewTranscript,
		nullableJSON(note.CalculationData), nullableJSON(note.InterviewData),
		note.CreatedAt, note.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create note: %w", err)
	}

	return nil
}

// GetByID retrieves a note by ID
func (r *NoteRepository) GetByID(ctx context.Context, id string) (*models.Note, error) {
	query := `
		SELECT id, user_id, title, content, category, is_calculation, is_interview_transcript, calculation_data, interview_data, created_at, updated_at
		FROM notes
		WHERE id = $1
	`
	var note models.Note
	err := r.db.QueryRow(ctx, query, id).Scan(
		&note.ID, &note.UserID, &note.Title, &note.Content, &note.Category,
		&note.IsCalculation, &note.IsInterviewTranscript,
		&note.CalculationData, &note.InterviewData,
		&note.CreatedAt, &note.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoteNotFound
		}
		return nil, fmt.Errorf("failed to get note by id: %w", err)
	}

	return &note, nil
}

// ListByUser retrieves all notes for a user, newest first
func (r *NoteRepository) ListByUser(ctx context.Context, userID string) ([]models.Note, error) {
	query := `
		SELECT id, user_id, title, content, category, is_calculation, is_interview_transcript, calculation_data, interview_data, created_at, updated_at
		FROM notes
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	defer rows.Close()

	var notes []models.Note
	for rows.Next() {
		var note models.Note
		err := rows.Scan(
			&note.ID, &note.UserID, &note.Title, &note.Content, &note.Category,
			&note.IsCalculation, &note.IsInterviewTranscript,
			&note.CalculationData, &note.InterviewData,
			&note.CreatedAt, &note.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan note: %w", err)
		}
		notes = append(notes, note)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notes: %w", err)
	}

	return notes, nil
}

// Update updates a note's editable fields
func (r *NoteRepository) Update(ctx context.Context, note *models.Note) error {
	note.UpdatedAt = time.Now()

	query := `
		UPDATE notes
		SET title = $2, content = $3, category = $4, updated_at = $5
		WHERE id = $1
	`
	rowsAffected, err := r.db.Exec(ctx, query,
		note.ID, note.Title, note.Content, note.Category, note.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update note: %w", err)
	}

	if rowsAffected == 0 {
		return ErrNoteNotFound
	}

	return nil
}

// Delete deletes a note
func (r *NoteRepository) Delete(ctx context.Context, id string) error {
	rowsAffected, err := r.db.Exec(ctx, "DELETE FROM notes WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete note: %w", err)
	}

	if rowsAffected == 0 {
		return ErrNoteNotFound
	}

	return nil
}

// CountByUser returns the number of notes a user has
func (r *NoteRepository) CountByUser(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM notes WHERE user_id = $1", userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count notes: %w", err)
	}
	return count, nil
}

// nullableJSON maps empty JSON payloads to SQL NULL
func nullableJSON(raw []byte) interface{} {
	if len(raw) == 0 {
		return nil
	}
	return raw
}
