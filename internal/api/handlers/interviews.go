package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/intelliprep/backend/internal/auth"
	"github.com/intelliprep/backend/internal/models"
	"github.com/intelliprep/backend/internal/repository"
	"github.com/intelliprep/backend/internal/service"
)

// InterviewHandler handles mock interview endpoints
type InterviewHandler struct {
	interviews *service.InterviewService
}

// NewInterviewHandler creates a new interview handler
func NewInterviewHandler(interviews *service.InterviewService) *InterviewHandler {
	return &InterviewHandler{interviews: interviews}
}

// CreateInterviewRequest represents an interview creation request
type CreateInterviewRequest struct {
	Title         string `json:"title"`
	Category      string `json:"category"`
	Difficulty    string `json:"difficulty"`
	QuestionCount int    `json:"question_count"`
}

// SubmitResponseRequest represents one answer submission
type SubmitResponseRequest struct {
	QuestionID string `json:"question_id"`
	Answer     string `json:"answer"`
	Duration   int    `json:"duration"` // seconds spent answering
}

// CompleteInterviewRequest finishes an interview session
type CompleteInterviewRequest struct {
	Transcript string `json:"transcript"`
	Duration   int    `json:"duration"` // total seconds
}

// CreateInterview starts a new mock interview, spending one quota unit for
// question generation
// POST /api/v1/interviews
func (h *InterviewHandler) CreateInterview(w http.ResponseWriter, r *http.Request) {
	profile := auth.GetProfile(r.Context())
	if profile == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	var req CreateInterviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	interview, err := h.interviews.Create(r.Context(), profile.ID, req.Title, req.Category, req.Difficulty, req.QuestionCount)
	if err != nil {
		writeInterviewError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, interview)
}

// ListInterviews returns the user's interviews
// GET /api/v1/interviews
func (h *InterviewHandler) ListInterviews(w http.ResponseWriter, r *http.Request) {
	profile := auth.GetProfile(r.Context())
	if profile == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	interviews, err := h.interviews.List(r.Context(), profile.ID)
	if err != nil {
		log.Printf("[interviews] ListInterviews error: %v", err)
		writeError(w, http.StatusInternalServerError, "server_error", "Failed to list interviews")
		return
	}
	if interviews == nil {
		interviews = []models.MockInterview{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"interviews": interviews})
}

// GetInterview returns a single interview
// GET /api/v1/interviews/{interviewID}
func (h *InterviewHandler) GetInterview(w http.ResponseWriter, r *http.Request) {
	profile := auth.GetProfile(r.Context())
	if profile == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	interview, err := h.interviews.Get(r.Context(), chi.URLParam(r, "interviewID"), profile.ID)
	if err != nil {
		writeInterviewError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, interview)
}

// StartInterview moves a pending interview to in progress
// POST /api/v1/interviews/{interviewID}/start
func (h *InterviewHandler) StartInterview(w http.ResponseWriter, r *http.Request) {
	profile := auth.GetProfile(r.Context())
	if profile == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	if err := h.interviews.Start(r.Context(), chi.URLParam(r, "interviewID"), profile.ID); err != nil {
		writeInterviewError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": models.InterviewInProgress,
	})
}

// SubmitResponse evaluates one answer, spending one quota unit
// POST /api/v1/interviews/{interviewID}/responses
func (h *InterviewHandler) SubmitResponse(w http.ResponseWriter, r *http.Request) {
	profile := auth.GetProfile(r.Context())
	if profile == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	var req SubmitResponseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	if req.QuestionID == "" || req.Answer == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "Question ID and answer are required")
		return
	}

	result, err := h.interviews.SubmitResponse(r.Context(),
		chi.URLParam(r, "interviewID"), profile.ID, req.QuestionID, req.Answer, req.Duration)
	if err != nil {
		writeInterviewError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// CompleteInterview finishes the session with a locally computed summary
// POST /api/v1/interviews/{interviewID}/complete
func (h *InterviewHandler) CompleteInterview(w http.ResponseWriter, r *http.Request) {
	profile := auth.GetProfile(r.Context())
	if profile == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	var req CompleteInterviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	interview, err := h.interviews.Complete(r.Context(),
		chi.URLParam(r, "interviewID"), profile.ID, req.Transcript, req.Duration)
	if err != nil {
		writeInterviewError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, interview)
}

// DeleteInterview removes an interview
// DELETE /api/v1/interviews/{interviewID}
func (h *InterviewHandler) DeleteInterview(w http.ResponseWriter, r *http.Request) {
	profile := auth.GetProfile(r.Context())
	if profile == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	if err := h.interviews.Delete(r.Context(), chi.URLParam(r, "interviewID"), profile.ID); err != nil {
		writeInterviewError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Interview deleted successfully",
	})
}

// writeInterviewError maps interview service errors to API responses
func writeInterviewError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrInterviewNotFound), errors.Is(err, service.ErrNotOwner):
		writeError(w, http.StatusNotFound, "not_found", "Interview not found")
	case errors.Is(err, service.ErrInvalidCategory):
		writeError(w, http.StatusBadRequest, "invalid_category", err.Error())
	case errors.Is(err, service.ErrInvalidDifficulty):
		writeError(w, http.StatusBadRequest, "invalid_difficulty", err.Error())
	case errors.Is(err, service.ErrInterviewFinished):
		writeError(w, http.StatusConflict, "interview_completed", "Interview is already completed")
	case errors.Is(err, service.ErrUnknownQuestion):
		writeError(w, http.StatusBadRequest, "unknown_question", "Question is not part of this interview")
	case errors.Is(err, service.ErrQuotaExceeded):
		writeError(w, http.StatusTooManyRequests, "quota_exceeded", "Daily AI quota exceeded")
	case errors.Is(err, service.ErrQuotaUnavailable):
		writeError(w, http.StatusServiceUnavailable, "quota_unavailable", "Could not reserve an AI call, please retry")
	default:
		log.Printf("[interviews] error: %v", err)
		writeError(w, http.StatusInternalServerError, "server_error", "Internal server error")
	}
}
