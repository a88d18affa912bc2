package api

import (
	"log/slog"

	"github.com/go-chi/chi/v5"

	"github.com/TheFrenchOak/total-reclaw/internal/memory"
	"github.com/TheFrenchOak/total-reclaw/internal/store"
)

// NewRouter creates the Chi router exposing the facade's five tool
// operations plus /stats and /health (spec.md §6's HTTP tool surface).
// Grounded on the donor's internal/api/router.go middleware stack.
func NewRouter(db *store.DB, svc *memory.Service, apiKey string, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(CORS)
	r.Use(RequestID)
	r.Use(Logger(logger))
	r.Use(Recovery(logger))

	healthH := NewHealthHandler(db)
	memoryH := NewMemoryHandler(svc)

	r.Get("/health", healthH.Health)

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(apiKey))

		r.Post("/recall", memoryH.Recall)
		r.Post("/store", memoryH.Store)
		r.Post("/forget", memoryH.Forget)
		r.Post("/prune", memoryH.Prune)
		r.Get("/stats", memoryH.Stats)

		r.Route("/checkpoint", func(r chi.Router) {
			r.Post("/", memoryH.SaveCheckpoint)
			r.Get("/", memoryH.RestoreCheckpoint)
		})
	})

	return r
}
