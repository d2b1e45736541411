package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/intelliprep/backend/internal/ai"
	"github.com/intelliprep/backend/internal/api/request"
	"github.com/intelliprep/backend/internal/auth"
	"github.com/intelliprep/backend/internal/models"
	"github.com/intelliprep/backend/internal/repository"
	"github.com/intelliprep/backend/internal/service"
)

// NoteHandler handles note endpoints
type NoteHandler struct {
	notes *service.NoteService
}

// NewNoteHandler creates a new note handler
func NewNoteHandler(notes *service.NoteService) *NoteHandler {
	return &NoteHandler{notes: notes}
}

// CreateNoteRequest represents a note creation request
type CreateNoteRequest struct {
	Title           string          `json:"title"`
	Content         string          `json:"content"`
	Category        string          `json:"category"`
	IsCalculation   bool            `json:"is_calculation"`
	CalculationData json.RawMessage `json:"calculation_data,omitempty"`
}

// UpdateNoteRequest represents a note update request
type UpdateNoteRequest struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	Category string `json:"category"`
}

// EnhanceNoteRequest selects the rewrite mode for a note
type EnhanceNoteRequest struct {
	Mode string `json:"mode"`
}

// CreateNote creates a new note
// POST /api/v1/notes
func (h *NoteHandler) CreateNote(w http.ResponseWriter, r *http.Request) {
	profile := auth.GetProfile(r.Context())
	if profile == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	var req CreateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "Title is required")
		return
	}

	note := &models.Note{
		UserID:          profile.ID,
		Title:           req.Title,
		Content:         req.Content,
		Category:        req.Category,
		IsCalculation:   req.IsCalculation,
		CalculationData: req.CalculationData,
	}
	if err := h.notes.Create(r.Context(), note); err != nil {
		log.Printf("[notes] CreateNote error: %v", err)
		writeError(w, http.StatusInternalServerError, "server_error", "Failed to create note")
		return
	}

	writeJSON(w, http.StatusCreated, note)
}

// ListNotes returns the user's notes
// GET /api/v1/notes
func (h *NoteHandler) ListNotes(w http.ResponseWriter, r *http.Request) {
	profile := auth.GetProfile(r.Context())
	if profile == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	notes, err := h.notes.List(r.Context(), profile.ID)
	if err != nil {
		log.Printf("[notes] ListNotes error: %v", err)
		writeError(w, http.StatusInternalServerError, "server_error", "Failed to list notes")
		return
	}

	// Optional category filter, e.g. GET /notes?category=study
	category := request.GetQueryString(r, "category", "")
	filtered := make([]models.Note, 0, len(notes))
	for _, n := range notes {
		if category == "" || n.Category == category {
			filtered = append(filtered, n)
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"notes": filtered})
}

// GetNote returns a single note
// GET /api/v1/notes/{noteID}
func (h *NoteHandler) GetNote(w http.ResponseWriter, r *http.Request) {
	profile := auth.GetProfile(r.Context())
	if profile == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	note, err := h.notes.Get(r.Context(), chi.URLParam(r, "noteID"), profile.ID)
	if err != nil {
		writeNoteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, note)
}

// UpdateNote updates a note's editable fields
// PUT /api/v1/notes/{noteID}
func (h *NoteHandler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	profile := auth.GetProfile(r.Context())
	if profile == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	var req UpdateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	note := &models.Note{
		ID:       chi.URLParam(r, "noteID"),
		Title:    req.Title,
		Content:  req.Content,
		Category: req.Category,
	}
	if err := h.notes.Update(r.Context(), note, profile.ID); err != nil {
		writeNoteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, note)
}

// DeleteNote removes a note
// DELETE /api/v1/notes/{noteID}
func (h *NoteHandler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	profile := auth.GetProfile(r.Context())
	if profile == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	if err := h.notes.Delete(r.Context(), chi.URLParam(r, "noteID"), profile.ID); err != nil {
		writeNoteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Note deleted successfully",
	})
}

// SummarizeNote generates an AI summary of the note, spending one quota unit
// unless a cached summary exists
// POST /api/v1/notes/{noteID}/summarize
func (h *NoteHandler) SummarizeNote(w http.ResponseWriter, r *http.Request) {
	profile := auth.GetProfile(r.Context())
	if profile == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	result, err := h.notes.Summarize(r.Context(), chi.URLParam(r, "noteID"), profile.ID)
	if err != nil {
		writeNoteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// EnhanceNote rewrites the note's content in the requested mode, spending one
// quota unit
// POST /api/v1/notes/{noteID}/enhance
func (h *NoteHandler) EnhanceNote(w http.ResponseWriter, r *http.Request) {
	profile := auth.GetProfile(r.Context())
	if profile == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	var req EnhanceNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	result, err := h.notes.Enhance(r.Context(), chi.URLParam(r, "noteID"), profile.ID, req.Mode)
	if err != nil {
		writeNoteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// writeNoteError maps note service errors to API responses
func writeNoteError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrNoteNotFound), errors.Is(err, service.ErrNotOwner):
		// Ownership failures are reported as not found to avoid confirming
		// the note exists
		writeError(w, http.StatusNotFound, "not_found", "Note not found")
	case errors.Is(err, service.ErrEmptyContent):
		writeError(w, http.StatusBadRequest, "empty_content", "Note has no content to process")
	case errors.Is(err, ai.ErrInvalidEnhancement):
		writeError(w, http.StatusBadRequest, "invalid_mode", "Enhancement mode must be grammar, expand, or simplify")
	case errors.Is(err, service.ErrQuotaExceeded):
		writeError(w, http.StatusTooManyRequests, "quota_exceeded", "Daily AI quota exceeded")
	case errors.Is(err, service.ErrQuotaUnavailable):
		writeError(w, http.StatusServiceUnavailable, "quota_unavailable", "Could not reserve an AI call, please retry")
	default:
		log.Printf("[notes] error: %v", err)
		writeError(w, http.StatusInternalServerError, "server_error", "Internal server error")
	}
}
