package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/gulalabs1-droid/textwingman/backend/internal/handler/analysis"
	"github.com/gulalabs1-droid/textwingman/backend/internal/handler/stream"
	middlewarePkg "github.com/gulalabs1-droid/textwingman/backend/internal/middleware"
	"github.com/gulalabs1-droid/textwingman/backend/pkg/utils"
)

// NewRouter wires HTTP routes to the analysis service. strategyEnabled is
// reported by the health endpoint.
func NewRouter(svc analysis.Analyzer, strategyEnabled bool) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	analysisHandler := analysis.New(svc)
	wsHandler := analysis.NewWebSocketHandler(svc)
	streamHandler := stream.New(svc)

	r.Route("/api", func(api chi.Router) {
		api.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			utils.RespondJSON(w, http.StatusOK, map[string]any{
				"status":   "ok",
				"strategy": strategyEnabled,
			})
		})

		analysisHandler.RegisterRoutes(api)
		streamHandler.RegisterRoutes(api)
		wsHandler.RegisterWebSocketRoutes(api)
	})

	return r
}
