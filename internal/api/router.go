package api

import (
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/intelliprep/backend/internal/ai"
	"github.com/intelliprep/backend/internal/api/handlers"
	"github.com/intelliprep/backend/internal/auth"
	"github.com/intelliprep/backend/internal/cache"
	"github.com/intelliprep/backend/internal/config"
	"github.com/intelliprep/backend/internal/database"
	"github.com/intelliprep/backend/internal/middleware"
	"github.com/intelliprep/backend/internal/quota"
	"github.com/intelliprep/backend/internal/ratelimit"
	"github.com/intelliprep/backend/internal/repository"
	"github.com/intelliprep/backend/internal/service"
)

// NewRouter creates and configures the main router
func NewRouter(cfg *config.Config, db *database.DB, redisCache *cache.Redis) *chi.Mux {
	r := chi.NewRouter()

	// Repositories
	profileRepo := repository.NewProfileRepository(db)
	noteRepo := repository.NewNoteRepository(db)
	calcRepo := repository.NewCalculationRepository(db)
	interviewRepo := repository.NewInterviewRepository(db)

	// Auth services (needed before the rate limiter so it can see tiers)
	jwtService := auth.NewJWTService(cfg.JWTSecret, cfg.JWTExpiration, cfg.JWTRefreshGracePeriod)
	apiKeyService := auth.NewAPIKeyService(db, cfg.MaxAPIKeysPerUser)
	authMiddleware := auth.NewAuthMiddleware(jwtService, apiKeyService)

	rateLimiter := ratelimit.NewRateLimiter(redisCache)

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Timing)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.CORSWithOrigins(cfg.CORSOrigins))
	r.Use(authMiddleware.OptionalAuth) // resolve identity for rate limiting and quota fallback
	r.Use(rateLimiter.Middleware)

	// The quota gate backed by the profiles table
	gate := quota.NewGate(profileRepo, quota.WithLimits(cfg.FreeDailyAILimit, cfg.PremiumDailyAILimit))

	// AI services
	geminiClient := ai.NewGeminiClient(cfg.GeminiAPIKey, cfg.GeminiModel)
	questionService := ai.NewQuestionService(geminiClient)
	evaluationService := ai.NewEvaluationService(geminiClient)
	noteAI := ai.NewNoteService(geminiClient)
	summaryCache := ai.NewSummaryCache(redisCache, time.Duration(cfg.CacheTTL)*time.Second)

	// Domain services
	noteService := service.NewNoteService(noteRepo, noteAI, summaryCache, gate)
	calculatorService := service.NewCalculatorService(calcRepo)
	interviewService := service.NewInterviewService(interviewRepo, noteRepo, questionService, evaluationService, gate)

	// Handlers
	healthHandler := handlers.NewHealthChecker(db, redisCache)
	authHandler := handlers.NewAuthHandler(profileRepo, jwtService, apiKeyService)
	quotaHandler := handlers.NewQuotaHandler(gate)
	noteHandler := handlers.NewNoteHandler(noteService)
	calcHandler := handlers.NewCalculationHandler(calculatorService)
	interviewHandler := handlers.NewInterviewHandler(interviewService)
	usageHandler := handlers.NewUsageHandler(profileRepo, gate, rateLimiter)

	// Health endpoints
	r.Get("/health", healthHandler.Health)
	r.Get("/health/live", handlers.LivenessProbe)
	r.Get("/health/ready", healthHandler.ReadinessProbe)

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		// Public auth endpoints
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/refresh", authHandler.RefreshToken)

		// Public tier info
		r.Get("/tiers", usageHandler.GetTierInfo)

		// Quota tracking relies on OptionalAuth: identity may come from a
		// credential or from the body
		r.Post("/ai/track", quotaHandler.Track)

		// Protected user endpoints
		r.Route("/user", func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)
			r.Get("/me", authHandler.GetCurrentUser)
			r.Get("/usage", usageHandler.GetUsage)
			r.Post("/premium", authHandler.UpgradePremium)
			r.Post("/api-keys", authHandler.CreateAPIKey)
			r.Get("/api-keys", authHandler.ListAPIKeys)
			r.Delete("/api-keys/{keyID}", authHandler.RevokeAPIKey)
		})

		// Protected notes endpoints
		r.Route("/notes", func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)
			r.Post("/", noteHandler.CreateNote)
			r.Get("/", noteHandler.ListNotes)
			r.Get("/{noteID}", noteHandler.GetNote)
			r.Put("/{noteID}", noteHandler.UpdateNote)
			r.Delete("/{noteID}", noteHandler.DeleteNote)
			r.Post("/{noteID}/summarize", noteHandler.SummarizeNote)
			r.Post("/{noteID}/enhance", noteHandler.EnhanceNote)
		})

		// Protected calculator endpoints
		r.Route("/calculations", func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)
			r.Post("/evaluate", calcHandler.Evaluate)
			r.Post("/simple-interest", calcHandler.SimpleInterest)
			r.Post("/compound-interest", calcHandler.CompoundInterest)
			r.Get("/", calcHandler.History)
			r.Delete("/", calcHandler.Clear)
			r.Delete("/{calcID}", calcHandler.Delete)
		})

		// Protected interview endpoints
		r.Route("/interviews", func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)
			r.Post("/", interviewHandler.CreateInterview)
			r.Get("/", interviewHandler.ListInterviews)
			r.Get("/{interviewID}", interviewHandler.GetInterview)
			r.Post("/{interviewID}/start", interviewHandler.StartInterview)
			r.Post("/{interviewID}/responses", interviewHandler.SubmitResponse)
			r.Post("/{interviewID}/complete", interviewHandler.CompleteInterview)
			r.Delete("/{interviewID}", interviewHandler.DeleteInterview)
		})
	})

	return r
}
