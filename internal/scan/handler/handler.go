// Package handler wires the scan pipeline to HTTP.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"chaintrace/internal/platform/metrics"
	"chaintrace/internal/platform/middleware"
	"chaintrace/internal/scan/models"
	id "chaintrace/pkg/domain"
	dErrors "chaintrace/pkg/domain-errors"
	"chaintrace/pkg/platform/httputil"
)

// Service defines the scan operations the handler needs.
type Service interface {
	Process(ctx context.Context, owner id.OwnerID, raw models.RawScan) (*models.ParsedRecord, error)
	List(ctx context.Context, owner id.OwnerID) ([]*models.ParsedRecord, error)
	AssignStatus(ctx context.Context, recordID id.RecordID, status models.ValidationStatus) error
	Delete(ctx context.Context, recordID id.RecordID) error
}

// Handler handles scan endpoints.
type Handler struct {
	logger       *slog.Logger
	scans        Service
	metrics      *metrics.Metrics
	jwtValidator middleware.JWTValidator
}

// New creates a scan Handler.
func New(scans Service, logger *slog.Logger, m *metrics.Metrics, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		logger:       logger,
		scans:        scans,
		metrics:      m,
		jwtValidator: jwtValidator,
	}
}

// Register registers the scan routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	scanRouter := chi.NewRouter()
	scanRouter.Use(middleware.Recovery(h.logger))
	scanRouter.Use(middleware.RequestID)
	scanRouter.Use(middleware.Logger(h.logger))
	scanRouter.Use(middleware.Timeout(30 * time.Second))
	scanRouter.Use(middleware.ContentTypeJSON)
	scanRouter.Use(middleware.LatencyMiddleware(h.metrics))
	scanRouter.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
	scanRouter.Post("/", h.handleSubmitScan)
	scanRouter.Get("/", h.handleListScans)
	scanRouter.Patch("/{id}/status", h.handleAssignStatus)
	scanRouter.Delete("/{id}", h.handleDeleteScan)

	r.Mount("/api/scans", scanRouter)
}

type submitScanRequest struct {
	Content    string    `json:"content"`
	CapturedAt time.Time `json:"captured_at"`
}

func (h *Handler) handleSubmitScan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	owner, ok := h.ownerFromContext(ctx, w)
	if !ok {
		return
	}

	var req submitScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if req.Content == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "content is required"))
		return
	}

	record, err := h.scans.Process(ctx, owner, models.RawScan{
		Content:    req.Content,
		CapturedAt: req.CapturedAt,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to process scan",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, record)
}

func (h *Handler) handleListScans(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	owner, ok := h.ownerFromContext(ctx, w)
	if !ok {
		return
	}

	records, err := h.scans.List(ctx, owner)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list scans",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}
	if records == nil {
		records = []*models.ParsedRecord{}
	}
	httputil.WriteJSON(w, http.StatusOK, records)
}

type assignStatusRequest struct {
	Status models.ValidationStatus `json:"status"`
}

func (h *Handler) handleAssignStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	recordID, err := id.ParseRecordID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var req assignStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	if err := h.scans.AssignStatus(ctx, recordID, req.Status); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleDeleteScan(w http.ResponseWriter, r *http.Request) {
	recordID, err := id.ParseRecordID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.scans.Delete(r.Context(), recordID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ownerFromContext resolves the authenticated actor into an owner ID. The
// auth middleware guarantees an actor is present; a missing one is a
// wiring bug, not a client error.
func (h *Handler) ownerFromContext(ctx context.Context, w http.ResponseWriter) (id.OwnerID, bool) {
	actor := middleware.GetActorID(ctx)
	if actor == "" {
		h.logger.ErrorContext(ctx, "actor missing from context despite auth middleware",
			"request_id", middleware.GetRequestID(ctx),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return id.OwnerID{}, false
	}
	owner, err := id.ParseOwnerID(actor)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid actor identity"))
		return id.OwnerID{}, false
	}
	return owner, true
}
