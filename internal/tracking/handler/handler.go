// Package handler wires the custody ledger to HTTP.
package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"chaintrace/internal/geo"
	"chaintrace/internal/platform/metrics"
	"chaintrace/internal/platform/middleware"
	scanmodels "chaintrace/internal/scan/models"
	"chaintrace/internal/tracking/export"
	"chaintrace/internal/tracking/models"
	"chaintrace/internal/tracking/service"
	id "chaintrace/pkg/domain"
	dErrors "chaintrace/pkg/domain-errors"
	"chaintrace/pkg/platform/httputil"
)

// Service defines the tracking operations the handler needs.
type Service interface {
	RecordPickup(ctx context.Context, assignedRegion string, in service.EventInput) (*models.Transaction, error)
	AppendEvent(ctx context.Context, txID id.TransactionID, in service.EventInput) (*models.Transaction, error)
	Get(ctx context.Context, txID id.TransactionID) (*models.Transaction, error)
	List(ctx context.Context) ([]*models.Transaction, error)
	VerifyChain(ctx context.Context, txID id.TransactionID) error
	AssignStatus(ctx context.Context, txID id.TransactionID, status models.TransactionStatus) error
}

// RecordLister supplies the owner's parsed records for the export
// artifact.
type RecordLister interface {
	List(ctx context.Context, owner id.OwnerID) ([]*scanmodels.ParsedRecord, error)
}

// Handler handles transaction and export endpoints.
type Handler struct {
	logger       *slog.Logger
	tracking     Service
	records      RecordLister
	metrics      *metrics.Metrics
	jwtValidator middleware.JWTValidator
	now          func() time.Time
}

// New creates a tracking Handler.
func New(tracking Service, records RecordLister, logger *slog.Logger, m *metrics.Metrics, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		logger:       logger,
		tracking:     tracking,
		records:      records,
		metrics:      m,
		jwtValidator: jwtValidator,
		now:          time.Now,
	}
}

// Register registers the tracking routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	trackingRouter := chi.NewRouter()
	trackingRouter.Use(h.middlewares()...)
	trackingRouter.Post("/", h.handlePickup)
	trackingRouter.Get("/", h.handleList)
	trackingRouter.Get("/{id}", h.handleGet)
	trackingRouter.Post("/{id}/events", h.handleAppendEvent)
	trackingRouter.Get("/{id}/verify", h.handleVerify)
	trackingRouter.Patch("/{id}/status", h.handleAssignStatus)
	r.Mount("/api/transactions", trackingRouter)

	exportRouter := chi.NewRouter()
	exportRouter.Use(h.middlewares()...)
	exportRouter.Get("/", h.handleExport)
	r.Mount("/api/export", exportRouter)
}

func (h *Handler) middlewares() []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{
		middleware.Recovery(h.logger),
		middleware.RequestID,
		middleware.Logger(h.logger),
		middleware.Timeout(30 * time.Second),
		middleware.ContentTypeJSON,
		middleware.LatencyMiddleware(h.metrics),
		middleware.RequireAuth(h.jwtValidator, h.logger),
	}
}

type eventRequest struct {
	Action   models.ActionKind `json:"action"`
	Location geo.Point         `json:"location"`
	Note     string            `json:"note"`
}

type pickupRequest struct {
	AssignedRegion string    `json:"assigned_region"`
	Location       geo.Point `json:"location"`
	Note           string    `json:"note"`
}

func (h *Handler) handlePickup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	actor, ok := h.actorFromContext(ctx, w)
	if !ok {
		return
	}

	var req pickupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	tx, err := h.tracking.RecordPickup(ctx, req.AssignedRegion, service.EventInput{
		ActorID:  actor,
		Location: req.Location,
		Note:     req.Note,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to record pickup",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, tx)
}

func (h *Handler) handleAppendEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	actor, ok := h.actorFromContext(ctx, w)
	if !ok {
		return
	}
	txID, err := id.ParseTransactionID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	tx, err := h.tracking.AppendEvent(ctx, txID, service.EventInput{
		Action:   req.Action,
		ActorID:  actor,
		Location: req.Location,
		Note:     req.Note,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, tx)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	txID, err := id.ParseTransactionID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	tx, err := h.tracking.Get(r.Context(), txID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, tx)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	txs, err := h.tracking.List(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if txs == nil {
		txs = []*models.Transaction{}
	}
	httputil.WriteJSON(w, http.StatusOK, txs)
}

type verifyResponse struct {
	TransactionID string `json:"transaction_id"`
	Valid         bool   `json:"valid"`
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	txID, err := id.ParseTransactionID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.tracking.VerifyChain(ctx, txID); err != nil {
		if dErrors.HasCode(err, dErrors.CodeIntegrity) {
			httputil.WriteJSON(w, http.StatusConflict, verifyResponse{
				TransactionID: txID.String(),
				Valid:         false,
			})
			return
		}
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, verifyResponse{
		TransactionID: txID.String(),
		Valid:         true,
	})
}

type assignStatusRequest struct {
	Status models.TransactionStatus `json:"status"`
}

func (h *Handler) handleAssignStatus(w http.ResponseWriter, r *http.Request) {
	txID, err := id.ParseTransactionID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req assignStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if err := h.tracking.AssignStatus(r.Context(), txID, req.Status); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	actor, ok := h.actorFromContext(ctx, w)
	if !ok {
		return
	}
	records, err := h.records.List(ctx, id.OwnerID(actor))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	txs, err := h.tracking.List(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	now := h.now()
	artifact, err := export.Build(now, records, txs)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to build export artifact",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to build export"))
		return
	}

	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", export.Filename(now)))
	httputil.WriteJSON(w, http.StatusOK, artifact)
}

func (h *Handler) actorFromContext(ctx context.Context, w http.ResponseWriter) (id.ActorID, bool) {
	raw := middleware.GetActorID(ctx)
	if raw == "" {
		h.logger.ErrorContext(ctx, "actor missing from context despite auth middleware",
			"request_id", middleware.GetRequestID(ctx),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return id.ActorID{}, false
	}
	actor, err := id.ParseActorID(raw)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid actor identity"))
		return id.ActorID{}, false
	}
	return actor, true
}
