package server

import (
	"net/http"

	"github.com/cloo-solutions/taskpriority/internal/api"
	"github.com/cloo-solutions/taskpriority/internal/api/handlers"
	"github.com/cloo-solutions/taskpriority/internal/api/middleware"
	"github.com/go-chi/chi/v5"
)

type RouterConfig struct {
	TaskHandler           *handlers.TaskHandler
	GroupHandler          *handlers.GroupHandler
	EmbeddingCacheHandler *handlers.EmbeddingCacheHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 1 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireOwner)

		r.Route("/tasks", func(r chi.Router) {
			r.Post("/", cfg.TaskHandler.Create)
			r.Get("/", cfg.TaskHandler.List)
			r.Get("/{id}", cfg.TaskHandler.Get)
			r.Patch("/{id}/status", cfg.TaskHandler.UpdateStatus)
		})

		r.Post("/duplicates/check", cfg.TaskHandler.CheckDuplicates)

		r.Route("/groups", func(r chi.Router) {
			r.Post("/", cfg.GroupHandler.Create)
			r.Post("/{id}/tasks", cfg.GroupHandler.AddTask)
		})

		r.Post("/similarity-scores", cfg.GroupHandler.StoreScores)

		r.Delete("/embeddings/cache", cfg.EmbeddingCacheHandler.Clear)
	})

	return r
}
