package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/atinyakov/BagWardrobe/internal/metrics"
	"github.com/atinyakov/BagWardrobe/internal/middleware"
)

// NewRouter constructs the HTTP handler serving the analysis proxy.
//
// Routes:
//
//	ANY /analyze      → analyzeHandler (method dispatch inside the handler)
//	ANY /api/analyze  → analyzeHandler
//	GET /health       → liveness check
//	GET /metrics      → prometheus exposition (when collector is not nil)
//
// Middleware chain (applied in order):
//  1. RequestID, RealIP, Recoverer
//  2. WithRequestLogging(logger)
//  3. collector.Middleware
func NewRouter(
	analyzeHandler *AnalyzeHandler,
	collector *metrics.Collector,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.WithRequestLogging(logger))
	if collector != nil {
		r.Use(collector.Middleware)
		r.Method(http.MethodGet, "/metrics", collector.Handler())
	}

	r.Handle("/analyze", analyzeHandler)
	r.Handle("/api/analyze", analyzeHandler)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return r
}
