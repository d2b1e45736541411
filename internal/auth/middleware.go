package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/intelliprep/backend/internal/models"
)

// Context keys for authentication
type contextKey string

const (
	// ProfileContextKey is the context key for the authenticated profile
	ProfileContextKey contextKey = "profile"
	// ClaimsContextKey is the context key for JWT claims
	ClaimsContextKey contextKey = "claims"
)

// AuthMiddleware holds dependencies for authentication middleware
type AuthMiddleware struct {
	jwtService    *JWTService
	apiKeyService *APIKeyService
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(jwtService *JWTService, apiKeyService *APIKeyService) *AuthMiddleware {
	return &AuthMiddleware{
		jwtService:    jwtService,
		apiKeyService: apiKeyService,
	}
}

// Authenticate middleware authenticates requests via JWT token or API key
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		profile, claims, err := m.authenticate(r)
		if err != nil {
			writeAuthError(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), ProfileContextKey, profile)
		if claims != nil {
			ctx = context.WithValue(ctx, ClaimsContextKey, claims)
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// OptionalAuth middleware sets the profile if authenticated but continues if
// not. The quota-tracking endpoint relies on this: it accepts a fallback
// user_id in the body when no credential resolves.
func (m *AuthMiddleware) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		profile, claims, err := m.authenticate(r)
		if err == nil && profile != nil {
			ctx := context.WithValue(r.Context(), ProfileContextKey, profile)
			if claims != nil {
				ctx = context.WithValue(ctx, ClaimsContextKey, claims)
			}
			r = r.WithContext(ctx)
		}

		next.ServeHTTP(w, r)
	})
}

// RequirePremium returns middleware that only admits premium users
func (m *AuthMiddleware) RequirePremium(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		profile := GetProfile(r.Context())
		if profile == nil {
			writeAuthError(w, ErrInvalidToken)
			return
		}

		if !profile.IsPremium {
			writeJSON(w, http.StatusForbidden, map[string]interface{}{
				"error":   "premium_required",
				"message": "This feature requires a premium subscription",
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}

// authenticate attempts to authenticate a request
func (m *AuthMiddleware) authenticate(r *http.Request) (*models.Profile, *Claims, error) {
	// Try API key first (X-API-Key header)
	apiKey := r.Header.Get("X-API-Key")
	if apiKey != "" {
		profile, err := m.apiKeyService.Validate(r.Context(), apiKey)
		if err != nil {
			return nil, nil, err
		}
		return profile, nil, nil
	}

	// Try JWT token (Authorization header)
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return nil, nil, ErrInvalidToken
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return nil, nil, ErrInvalidToken
	}

	claims, err := m.jwtService.Validate(parts[1])
	if err != nil {
		return nil, nil, err
	}

	profile := &models.Profile{
		ID:        claims.UserID,
		Email:     claims.Email,
		IsPremium: claims.IsPremium,
	}

	return profile, claims, nil
}

// GetProfile returns the authenticated profile from context
func GetProfile(ctx context.Context) *models.Profile {
	profile, ok := ctx.Value(ProfileContextKey).(*models.Profile)
	if !ok {
		return nil
	}
	return profile
}

// GetUserID returns the authenticated user ID from context
func GetUserID(ctx context.Context) string {
	profile := GetProfile(ctx)
	if profile == nil {
		return ""
	}
	return profile.ID
}

// GetClaims returns the JWT claims from context
func GetClaims(ctx context.Context) *Claims {
	claims, ok := ctx.Value(ClaimsContextKey).(*Claims)
	if !ok {
		return nil
	}
	return claims
}

// writeAuthError writes an authentication error response
func writeAuthError(w http.ResponseWriter, err error) {
	message := "Authentication required"

	switch err {
	case ErrExpiredToken:
		message = "Token has expired"
	case ErrInvalidToken:
		message = "Invalid authentication token"
	case ErrTokenNotYetValid:
		message = "Token is not yet valid"
	case ErrAPIKeyNotFound:
		message = "Invalid API key"
	case ErrAPIKeyRevoked:
		message = "API key has been revoked"
	case ErrAPIKeyInvalid:
		message = "Invalid API key format"
	}

	writeJSON(w, http.StatusUnauthorized, map[string]interface{}{
		"error":   "unauthorized",
		"message": message,
	})
}

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
