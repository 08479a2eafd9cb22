// internal/api/handler.go
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"code-to-content/internal/auth"
	"code-to-content/internal/github"
	"code-to-content/internal/store"
	"code-to-content/internal/syncer"
)

// Handler is the container for API dependencies.
type Handler struct {
	store    store.Store
	sessions *auth.Sessions
	oauth    *auth.OAuth
	syncer   *syncer.Syncer
	logger   *slog.Logger
	appURL   string

	// newGitHub builds a GitHub client from a user's stored token.
	// Swapped out in tests.
	newGitHub func(token string) syncer.GitHubClient
}

// NewHandler wires the API handler container.
func NewHandler(st store.Store, sessions *auth.Sessions, oauth *auth.OAuth, sync *syncer.Syncer, logger *slog.Logger, appURL string) *Handler {
	return &Handler{
		store:    st,
		sessions: sessions,
		oauth:    oauth,
		syncer:   sync,
		logger:   logger,
		appURL:   appURL,
		newGitHub: func(token string) syncer.GitHubClient {
			return github.NewClient(token, logger)
		},
	}
}

// NewRouter creates and configures a new chi router with all API routes.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", h.healthCheck)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/sessions", h.createSession)

		r.Group(func(r chi.Router) {
			r.Use(auth.Authenticate(h.sessions, h.store))

			// The callback reports auth failures as dashboard redirects, so
			// it sits outside RequireUser.
			r.Get("/auth/github/callback", h.githubCallback)

			r.Group(func(r chi.Router) {
				r.Use(auth.RequireUser)

				r.Delete("/auth/sessions", h.deleteSession)
				r.Get("/auth/github", h.githubAuthorize)

				r.Get("/repositories", h.listRepositories)
				r.Get("/repositories/import", h.listImportableRepositories)
				r.Post("/repositories/import", h.importRepositories)
				r.Get("/repositories/sync", h.getSyncStatus)
				r.Post("/repositories/sync", h.syncRepositories)
				r.Route("/repositories/{repositoryID}", func(r chi.Router) {
					r.Post("/toggle", h.toggleRepository)
					r.Delete("/", h.disconnectRepository)
					r.Get("/commits", h.listRepositoryCommits)
					r.Delete("/commits", h.deleteOldCommits)
					r.Get("/stats", h.getRepositoryStats)
				})

				r.Get("/commits/recent", h.listRecentCommits)
				r.Post("/commits/processed", h.markCommitsProcessed)

				r.Get("/templates", h.listTemplates)
				r.Post("/templates", h.createTemplate)
				r.Route("/templates/{templateID}", func(r chi.Router) {
					r.Patch("/", h.updateTemplate)
					r.Delete("/", h.deleteTemplate)
					r.Post("/duplicate", h.duplicateTemplate)
					r.Post("/usage", h.incrementTemplateUsage)
				})

				r.Get("/tones", h.listTonePresets)
				r.Post("/tones", h.createTonePreset)
				r.Route("/tones/{presetID}", func(r chi.Router) {
					r.Patch("/", h.updateTonePreset)
					r.Delete("/", h.deleteTonePreset)
					r.Post("/usage", h.incrementTonePresetUsage)
				})
			})
		})
	})

	return r
}

// healthCheck is a simple health endpoint.
func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
