package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/podscribe/backend/internal/api/handlers"
	"github.com/podscribe/backend/internal/api/middleware"
	"github.com/podscribe/backend/internal/auth"
	"github.com/podscribe/backend/internal/config"
	"github.com/podscribe/backend/internal/db"
	"github.com/podscribe/backend/internal/metadata"
)

func NewRouter(database *db.Database, jwtService *auth.JWTService, cfg *config.Config, fetcher handlers.TranscriptFetcher, metaService *metadata.Service) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger)
	r.Use(cors.Handler(middleware.CORSHandler(cfg.CORSOrigins)))

	// Handlers
	authHandler := handlers.NewAuthHandler(database, jwtService)
	transcriptHandler := handlers.NewTranscriptHandler(fetcher)
	metadataHandler := handlers.NewMetadataHandler(metaService)
	settingsHandler := handlers.NewSettingsHandler(database)

	// Transcript extraction hits YouTube on every miss, so it gets its own
	// tighter limit than the rest of the API.
	transcriptLimiter := middleware.NewRateLimiter(10, time.Minute)

	r.Route("/api", func(r chi.Router) {
		// Public
		r.Post("/auth/login", authHandler.Login)
		r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"status":"ok"}`))
		})

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(jwtService))
			r.Use(middleware.MaxBodySize(64 * 1024))

			// Auth
			r.Get("/auth/me", authHandler.Me)

			// Transcripts
			r.With(transcriptLimiter.Handler).Post("/transcript", transcriptHandler.Fetch)

			// Metadata
			r.Get("/metadata/{videoID}", metadataHandler.Get)

			// Settings (admin only)
			r.With(middleware.RequireRole("admin")).Get("/settings", settingsHandler.GetSettings)
			r.With(middleware.RequireRole("admin")).Put("/settings", settingsHandler.UpdateSettings)
		})
	})

	return r
}
