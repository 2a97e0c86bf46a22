// Package handler exposes the region registry over HTTP.
package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"chaintrace/internal/geo"
	"chaintrace/internal/platform/metrics"
	"chaintrace/internal/platform/middleware"
	"chaintrace/pkg/platform/httputil"
)

// Handler serves the static region reference data to client apps.
type Handler struct {
	logger       *slog.Logger
	registry     *geo.Registry
	metrics      *metrics.Metrics
	jwtValidator middleware.JWTValidator
}

// New creates a region Handler.
func New(registry *geo.Registry, logger *slog.Logger, m *metrics.Metrics, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		logger:       logger,
		registry:     registry,
		metrics:      m,
		jwtValidator: jwtValidator,
	}
}

// Register registers the region routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	regionRouter := chi.NewRouter()
	regionRouter.Use(
		middleware.Recovery(h.logger),
		middleware.RequestID,
		middleware.Logger(h.logger),
		middleware.Timeout(10*time.Second),
		middleware.ContentTypeJSON,
		middleware.LatencyMiddleware(h.metrics),
		middleware.RequireAuth(h.jwtValidator, h.logger),
	)
	regionRouter.Get("/", h.handleList)
	r.Mount("/api/regions", regionRouter)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, h.registry.Regions())
}
