package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/intelliprep/backend/internal/api/request"
	"github.com/intelliprep/backend/internal/auth"
	"github.com/intelliprep/backend/internal/models"
	"github.com/intelliprep/backend/internal/repository"
	"github.com/intelliprep/backend/internal/service"
)

// CalculationHandler handles calculator endpoints
type CalculationHandler struct {
	calculator *service.CalculatorService
}

// NewCalculationHandler creates a new calculation handler
func NewCalculationHandler(calculator *service.CalculatorService) *CalculationHandler {
	return &CalculationHandler{calculator: calculator}
}

// EvaluateRequest represents an expression evaluation request
type EvaluateRequest struct {
	Expression string `json:"expression"`
}

// InterestRequest represents an interest calculation request
type InterestRequest struct {
	Principal float64 `json:"principal"`
	Rate      float64 `json:"rate"`
	Years     float64 `json:"years"`
	Frequency int     `json:"frequency,omitempty"` // compound only
}

// Evaluate computes an arithmetic expression and saves it to history
// POST /api/v1/calculations/evaluate
func (h *CalculationHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	profile := auth.GetProfile(r.Context())
	if profile == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	var req EvaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	calc, err := h.calculator.Evaluate(r.Context(), profile.ID, req.Expression)
	if err != nil {
		writeCalcError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, calc)
}

// SimpleInterest computes simple interest and saves it to history
// POST /api/v1/calculations/simple-interest
func (h *CalculationHandler) SimpleInterest(w http.ResponseWriter, r *http.Request) {
	profile := auth.GetProfile(r.Context())
	if profile == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	req, ok := decodeInterestRequest(w, r)
	if !ok {
		return
	}

	calc, err := h.calculator.SimpleInterest(r.Context(), profile.ID, req.Principal, req.Rate, req.Years)
	if err != nil {
		writeCalcError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, calc)
}

// CompoundInterest computes compound interest and saves it to history
// POST /api/v1/calculations/compound-interest
func (h *CalculationHandler) CompoundInterest(w http.ResponseWriter, r *http.Request) {
	profile := auth.GetProfile(r.Context())
	if profile == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	req, ok := decodeInterestRequest(w, r)
	if !ok {
		return
	}

	calc, err := h.calculator.CompoundInterest(r.Context(), profile.ID, req.Principal, req.Rate, req.Years, req.Frequency)
	if err != nil {
		writeCalcError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, calc)
}

// History returns the user's calculation history
// GET /api/v1/calculations
func (h *CalculationHandler) History(w http.ResponseWriter, r *http.Request) {
	profile := auth.GetProfile(r.Context())
	if profile == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	calcs, err := h.calculator.History(r.Context(), profile.ID)
	if err != nil {
		log.Printf("[calc] History error: %v", err)
		writeError(w, http.StatusInternalServerError, "server_error", "Failed to fetch history")
		return
	}
	if calcs == nil {
		calcs = []models.Calculation{}
	}

	// Optional limit, e.g. GET /calculations?limit=10
	limit := request.GetQueryIntWithRange(r, "limit", len(calcs), 1, 100)
	if limit < len(calcs) {
		calcs = calcs[:limit]
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"calculations": calcs})
}

// Delete removes one history entry
// DELETE /api/v1/calculations/{calcID}
func (h *CalculationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	profile := auth.GetProfile(r.Context())
	if profile == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	if err := h.calculator.Delete(r.Context(), chi.URLParam(r, "calcID"), profile.ID); err != nil {
		writeCalcError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Calculation deleted successfully",
	})
}

// Clear removes the user's entire history
// DELETE /api/v1/calculations
func (h *CalculationHandler) Clear(w http.ResponseWriter, r *http.Request) {
	profile := auth.GetProfile(r.Context())
	if profile == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	if err := h.calculator.ClearHistory(r.Context(), profile.ID); err != nil {
		log.Printf("[calc] Clear error: %v", err)
		writeError(w, http.StatusInternalServerError, "server_error", "Failed to clear history")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Calculation history cleared",
	})
}

// decodeInterestRequest decodes and validates an interest request body
func decodeInterestRequest(w http.ResponseWriter, r *http.Request) (*InterestRequest, bool) {
	var req InterestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return nil, false
	}
	if req.Principal <= 0 || req.Rate < 0 || req.Years <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "Principal and years must be positive, rate non-negative")
		return nil, false
	}
	return &req, true
}

// writeCalcError maps calculator errors to API responses
func writeCalcError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidExpression):
		writeError(w, http.StatusBadRequest, "invalid_expression", err.Error())
	case errors.Is(err, service.ErrDivisionByZero):
		writeError(w, http.StatusBadRequest, "division_by_zero", "Expression divides by zero")
	case errors.Is(err, repository.ErrCalculationNotFound):
		writeError(w, http.StatusNotFound, "not_found", "Calculation not found")
	default:
		log.Printf("[calc] error: %v", err)
		writeError(w, http.StatusInternalServerError, "server_error", "Internal server error")
	}
}
