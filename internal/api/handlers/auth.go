package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/intelliprep/backend/internal/auth"
	"github.com/intelliprep/backend/internal/models"
	"github.com/intelliprep/backend/internal/repository"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	profileRepo   *repository.ProfileRepository
	jwtService    *auth.JWTService
	apiKeyService *auth.APIKeyService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(
	profileRepo *repository.ProfileRepository,
	jwtService *auth.JWTService,
	apiKeyService *auth.APIKeyService,
) *AuthHandler {
	return &AuthHandler{
		profileRepo:   profileRepo,
		jwtService:    jwtService,
		apiKeyService: apiKeyService,
	}
}

// RegisterRequest represents a registration request
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse represents an authentication response
type AuthResponse struct {
	Token     string           `json:"token"`
	ExpiresIn int64            `json:"expires_in"`
	User      *ProfileResponse `json:"user"`
}

// ProfileResponse represents a profile in API responses
type ProfileResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Tier      string    `json:"tier"`
	IsPremium bool      `json:"is_premium"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateAPIKeyRequest represents a request to create an API key
type CreateAPIKeyRequest struct {
	Name string `json:"name"`
}

// APIKeyResponse represents an API key in API responses
type APIKeyResponse struct {
	ID        string     `json:"id"`
	KeyPrefix string     `json:"key_prefix"`
	Name      string     `json:"name"`
	IsActive  bool       `json:"is_active"`
	LastUsed  *time.Time `json:"last_used,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// CreateAPIKeyResponse includes the full key (only shown once)
type CreateAPIKeyResponse struct {
	Key     string          `json:"key"`
	KeyInfo *APIKeyResponse `json:"key_info"`
}

// Register handles user registration
// POST /api/v1/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	if !isValidEmail(req.Email) {
		writeError(w, http.StatusBadRequest, "invalid_email", "Invalid email address")
		return
	}

	if err := auth.ValidatePasswordStrength(req.Password); err != nil {
		writeError(w, http.StatusBadRequest, "weak_password", err.Error())
		return
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", "Failed to process registration")
		return
	}

	profile := &models.Profile{
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: passwordHash,
	}

	if err := h.profileRepo.Create(r.Context(), profile); err != nil {
		if errors.Is(err, repository.ErrProfileExists) {
			writeError(w, http.StatusConflict, "user_exists", "An account with this email already exists")
			return
		}
		log.Printf("[auth] Register error: %v", err)
		writeError(w, http.StatusInternalServerError, "server_error", "Failed to create account")
		return
	}

	token, err := h.jwtService.Generate(profile)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", "Failed to generate token")
		return
	}

	writeJSON(w, http.StatusCreated, AuthResponse{
		Token:     token,
		ExpiresIn: int64(h.jwtService.GetExpiration().Seconds()),
		User:      profileResponse(profile),
	})
}

// Login handles user login
// POST /api/v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))

	profile, err := h.profileRepo.GetByEmail(r.Context(), email)
	if err != nil {
		// Don't reveal whether the email exists
		writeError(w, http.StatusUnauthorized, "invalid_credentials", "Invalid email or password")
		return
	}

	if !auth.CheckPassword(req.Password, profile.PasswordHash) {
		writeError(w, http.StatusUnauthorized, "invalid_credentials", "Invalid email or password")
		return
	}

	token, err := h.jwtService.Generate(profile)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", "Failed to generate token")
		return
	}

	writeJSON(w, http.StatusOK, AuthResponse{
		Token:     token,
		ExpiresIn: int64(h.jwtService.GetExpiration().Seconds()),
		User:      profileResponse(profile),
	})
}

// RefreshToken refreshes a JWT token
// POST /api/v1/auth/refresh
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		writeError(w, http.StatusUnauthorized, "missing_token", "Authorization header required")
		return
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		writeError(w, http.StatusUnauthorized, "invalid_token", "Invalid authorization header format")
		return
	}

	newToken, err := h.jwtService.Refresh(parts[1])
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrExpiredToken):
			writeError(w, http.StatusUnauthorized, "token_expired", "Token has expired and cannot be refreshed")
		default:
			writeError(w, http.StatusUnauthorized, "invalid_token", "Failed to refresh token")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"token":      newToken,
		"expires_in": int64(h.jwtService.GetExpiration().Seconds()),
	})
}

// GetCurrentUser returns the current authenticated profile
// GET /api/v1/user/me
func (h *AuthHandler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	profile := auth.GetProfile(r.Context())
	if profile == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	full, err := h.profileRepo.GetByID(r.Context(), profile.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", "Failed to fetch user data")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user": profileResponse(full),
	})
}

// UpgradePremium flips the profile to the premium tier. Payment handling
// lives outside this service; the endpoint trusts the upstream billing hook.
// POST /api/v1/user/premium
func (h *AuthHandler) UpgradePremium(w http.ResponseWriter, r *http.Request) {
	profile := auth.GetProfile(r.Context())
	if profile == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	if err := h.profileRepo.SetPremium(r.Context(), profile.ID, true); err != nil {
		log.Printf("[auth] UpgradePremium error: %v", err)
		writeError(w, http.StatusInternalServerError, "server_error", "Failed to upgrade account")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Account upgraded to premium",
		"tier":    models.TierPremium,
	})
}

// CreateAPIKey creates a new API key for the user
// POST /api/v1/user/api-keys
func (h *AuthHandler) CreateAPIKey(w http.ResponseWriter, r *http.Request) {
	profile := auth.GetProfile(r.Context())
	if profile == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	var req CreateAPIKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		// Allow empty body, use default name
		req.Name = "API Key"
	}
	if req.Name == "" {
		req.Name = "API Key"
	}

	generated, err := h.apiKeyService.Generate(r.Context(), profile.ID, req.Name)
	if err != nil {
		if errors.Is(err, auth.ErrAPIKeyLimit) {
			writeError(w, http.StatusBadRequest, "limit_reached", "Maximum API key limit reached")
			return
		}
		log.Printf("[auth] CreateAPIKey error: %v", err)
		writeError(w, http.StatusInternalServerError, "server_error", "Failed to create API key")
		return
	}

	writeJSON(w, http.StatusCreated, CreateAPIKeyResponse{
		Key:     generated.PlainTextKey,
		KeyInfo: apiKeyResponse(generated.KeyInfo),
	})
}

// ListAPIKeys lists all API keys for the user
// GET /api/v1/user/api-keys
func (h *AuthHandler) ListAPIKeys(w http.ResponseWriter, r *http.Request) {
	profile := auth.GetProfile(r.Context())
	if profile == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	keys, err := h.apiKeyService.List(r.Context(), profile.ID)
	if err != nil {
		log.Printf("[auth] ListAPIKeys error: %v", err)
		writeError(w, http.StatusInternalServerError, "server_error", "Failed to list API keys")
		return
	}

	response := make([]APIKeyResponse, len(keys))
	for i := range keys {
		response[i] = *apiKeyResponse(&keys[i])
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"api_keys": response,
	})
}

// RevokeAPIKey revokes an API key
// DELETE /api/v1/user/api-keys/{keyID}
func (h *AuthHandler) RevokeAPIKey(w http.ResponseWriter, r *http.Request) {
	profile := auth.GetProfile(r.Context())
	if profile == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	keyID := chi.URLParam(r, "keyID")
	if keyID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "Key ID is required")
		return
	}

	if err := h.apiKeyService.Revoke(r.Context(), keyID, profile.ID); err != nil {
		if errors.Is(err, auth.ErrAPIKeyNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "API key not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error", "Failed to revoke API key")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "API key revoked successfully",
	})
}

// profileResponse converts a profile to its API shape
func profileResponse(p *models.Profile) *ProfileResponse {
	return &ProfileResponse{
		ID:        p.ID,
		Email:     p.Email,
		Tier:      p.Tier(),
		IsPremium: p.IsPremium,
		CreatedAt: p.CreatedAt,
	}
}

// apiKeyResponse converts an API key to its API shape
func apiKeyResponse(key *models.APIKey) *APIKeyResponse {
	var lastUsed *time.Time
	if !key.LastUsed.IsZero() {
		lastUsed = &key.LastUsed
	}
	return &APIKeyResponse{
		ID:        key.ID,
		KeyPrefix: key.KeyPrefix,
		Name:      key.Name,
		IsActive:  key.IsActive,
		LastUsed:  lastUsed,
		CreatedAt: key.CreatedAt,
	}
}

// isValidEmail validates an email address format
func isValidEmail(email string) bool {
	emailRegex := regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	return emailRegex.MatchString(email)
}
