package service

import (
	"context"
	"errors"
	"strings"

	"github.com/intelliprep/backend/internal/ai"
	"github.com/intelliprep/backend/internal/models"
	"github.com/intelliprep/backend/internal/quota"
	"github.com/intelliprep/backend/internal/repository"
)

// ErrEmptyContent is returned when an AI operation targets an empty note
var ErrEmptyContent = errors.New("note content is empty")

// SummarizeResult carries the generated summary and remaining quota
type SummarizeResult struct {
	Summary   string `json:"summary"`
	Cached    bool   `json:"cached"`
	Remaining int    `json:"remaining"`
}

// EnhanceResult carries the rewritten text and remaining quota
type EnhanceResult struct {
	Enhanced  string `json:"enhanced"`
	Mode      string `json:"mode"`
	Remaining int    `json:"remaining"`
}

// NoteService implements note CRUD plus the AI operations on notes. AI
// operations consume one unit of the caller's daily quota.
type NoteService struct {
	notes   *repository.NoteRepository
	noteAI  *ai.NoteService
	summary *ai.SummaryCache
	gate    *quota.Gate
}

// NewNoteService creates a new note service
func NewNoteService(notes *repository.NoteRepository, noteAI *ai.NoteService, summary *ai.SummaryCache, gate *quota.Gate) *NoteService {
	return &NoteService{notes: notes, noteAI: noteAI, summary: summary, gate: gate}
}

// Create creates a note for the user
func (s *NoteService) Create(ctx context.Context, note *models.Note) error {
	note.Title = strings.TrimSpace(note.Title)
	note.Content = strings.TrimSpace(note.Content)
	return s.notes.Create(ctx, note)
}

// Get returns a note, enforcing ownership
func (s *NoteService) Get(ctx context.Context, id, userID string) (*models.Note, error) {
	note, err := s.notes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if note.UserID != userID {
		return nil, ErrNotOwner
	}
	return note, nil
}

// List returns the user's notes, newest first
func (s *NoteService) List(ctx context.Context, userID string) ([]models.Note, error) {
	return s.notes.ListByUser(ctx, userID)
}

// Update updates a note's editable fields, enforcing ownership
func (s *NoteService) Update(ctx context.Context, note *models.Note, userID string) error {
	existing, err := s.Get(ctx, note.ID, userID)
	if err != nil {
		return err
	}

	if strings.TrimSpace(note.Title) != "" {
		existing.Title = strings.TrimSpace(note.Title)
	}
	if note.Content != "" {
		existing.Content = strings.TrimSpace(note.Content)
	}
	if note.Category != "" {
		existing.Category = note.Category
	}

	if err := s.notes.Update(ctx, existing); err != nil {
		return err
	}
	*note = *existing
	return nil
}

// Delete removes a note, enforcing ownership
func (s *NoteService) Delete(ctx context.Context, id, userID string) error {
	if _, err := s.Get(ctx, id, userID); err != nil {
		return err
	}
	return s.notes.Delete(ctx, id)
}

// Summarize generates a summary of the note's content. A cached summary for
// identical content is served without spending quota; otherwise one AI call
// is consumed.
func (s *NoteService) Summarize(ctx context.Context, noteID, userID string) (*SummarizeResult, error) {
	note, err := s.Get(ctx, noteID, userID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(note.Content) == "" {
		return nil, ErrEmptyContent
	}

	if summary, ok := s.summary.Get(ctx, note.Content); ok {
		return &SummarizeResult{Summary: summary, Cached: true}, nil
	}

	decision, err := consumeQuota(ctx, s.gate, userID)
	if err != nil {
		return nil, err
	}

	summary := s.noteAI.Summarize(ctx, note.Content)
	s.summary.Set(ctx, note.Content, summary)

	return &SummarizeResult{Summary: summary, Remaining: decision.Remaining}, nil
}

// Enhance rewrites the note's content in the given mode, consuming one AI
// call. The note itself is not mutated; the client decides whether to apply
// the rewrite.
func (s *NoteService) Enhance(ctx context.Context, noteID, userID, mode string) (*EnhanceResult, error) {
	note, err := s.Get(ctx, noteID, userID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(note.Content) == "" {
		return nil, ErrEmptyContent
	}

	decision, err := consumeQuota(ctx, s.gate, userID)
	if err != nil {
		return nil, err
	}

	enhanced, err := s.noteAI.Enhance(ctx, note.Content, mode)
	if err != nil {
		return nil, err
	}

	return &EnhanceResult{Enhanced: enhanced, Mode: mode, Remaining: decision.Remaining}, nil
}
