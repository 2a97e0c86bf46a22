package telemetry

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"chaintrace/internal/platform/metrics"
	"chaintrace/internal/platform/middleware"
	scanmodels "chaintrace/internal/scan/models"
	id "chaintrace/pkg/domain"
	dErrors "chaintrace/pkg/domain-errors"
	"chaintrace/pkg/platform/httputil"
)

// Syncer runs a batched sync over a record set.
type Syncer interface {
	Sync(ctx context.Context, records []*scanmodels.ParsedRecord) (map[id.RecordID]Outcome, error)
}

// StatusGetter reads the remote thing state.
type StatusGetter interface {
	GetStatus(ctx context.Context, thingID string) (map[string]any, error)
}

// RecordLister supplies the owner's records to sync.
type RecordLister interface {
	List(ctx context.Context, owner id.OwnerID) ([]*scanmodels.ParsedRecord, error)
}

// Handler exposes the sync trigger and remote status endpoints.
type Handler struct {
	logger       *slog.Logger
	syncer       Syncer
	status       StatusGetter
	records      RecordLister
	thingID      string
	metrics      *metrics.Metrics
	jwtValidator middleware.JWTValidator
}

// NewHandler creates a telemetry Handler.
func NewHandler(syncer Syncer, status StatusGetter, records RecordLister, thingID string, logger *slog.Logger, m *metrics.Metrics, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		logger:       logger,
		syncer:       syncer,
		status:       status,
		records:      records,
		thingID:      thingID,
		metrics:      m,
		jwtValidator: jwtValidator,
	}
}

// Register registers the telemetry routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	syncRouter := chi.NewRouter()
	syncRouter.Use(h.middlewares()...)
	syncRouter.Post("/", h.handleSync)
	r.Mount("/api/sync", syncRouter)

	statusRouter := chi.NewRouter()
	statusRouter.Use(h.middlewares()...)
	statusRouter.Get("/status", h.handleStatus)
	r.Mount("/api/telemetry", statusRouter)
}

// Syncing a large backlog can outlive the default timeout, so this router
// carries a longer one.
func (h *Handler) middlewares() []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{
		middleware.Recovery(h.logger),
		middleware.RequestID,
		middleware.Logger(h.logger),
		middleware.Timeout(120 * time.Second),
		middleware.ContentTypeJSON,
		middleware.LatencyMiddleware(h.metrics),
		middleware.RequireAuth(h.jwtValidator, h.logger),
	}
}

type syncResponse struct {
	Total    int                `json:"total"`
	Synced   int                `json:"synced"`
	Failed   int                `json:"failed"`
	Outcomes map[string]Outcome `json:"outcomes"`
}

func (h *Handler) handleSync(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	raw := middleware.GetActorID(ctx)
	owner, err := id.ParseOwnerID(raw)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid actor identity"))
		return
	}

	records, err := h.records.List(ctx, owner)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	outcomes, err := h.syncer.Sync(ctx, records)
	if err != nil {
		h.logger.ErrorContext(ctx, "sync aborted",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeUnavailable, "sync aborted"))
		return
	}

	resp := syncResponse{
		Total:    len(records),
		Outcomes: make(map[string]Outcome, len(outcomes)),
	}
	for recordID, outcome := range outcomes {
		resp.Outcomes[recordID.String()] = outcome
		if outcome.Synced {
			resp.Synced++
		} else {
			resp.Failed++
		}
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.status.GetStatus(r.Context(), h.thingID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, status)
}
