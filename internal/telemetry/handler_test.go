package telemetry

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chaintrace/internal/platform/middleware"
	scanmodels "chaintrace/internal/scan/models"
	id "chaintrace/pkg/domain"
	dErrors "chaintrace/pkg/domain-errors"
)

type stubValidator struct{ actorID string }

func (v *stubValidator) ValidateToken(token string) (*middleware.JWTClaims, error) {
	if token != "good-token" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "bad token")
	}
	return &middleware.JWTClaims{ActorID: v.actorID}, nil
}

type stubSyncer struct {
	outcomes map[id.RecordID]Outcome
}

func (s *stubSyncer) Sync(_ context.Context, records []*scanmodels.ParsedRecord) (map[id.RecordID]Outcome, error) {
	return s.outcomes, nil
}

type stubStatus struct{}

func (stubStatus) GetStatus(context.Context, string) (map[string]any, error) {
	return map[string]any{"connected": true}, nil
}

type stubRecords struct {
	records []*scanmodels.ParsedRecord
}

func (s *stubRecords) List(context.Context, id.OwnerID) ([]*scanmodels.ParsedRecord, error) {
	return s.records, nil
}

func TestHandleSync(t *testing.T) {
	records := []*scanmodels.ParsedRecord{
		{ID: id.NewRecordID()},
		{ID: id.NewRecordID()},
	}
	syncer := &stubSyncer{outcomes: map[id.RecordID]Outcome{
		records[0].ID: {Synced: true},
		records[1].ID: {Error: "upstream rejected"},
	}}
	h := NewHandler(syncer, stubStatus{}, &stubRecords{records: records}, "thing-1",
		slog.Default(), nil, &stubValidator{actorID: uuid.NewString()})
	r := chi.NewRouter()
	h.Register(r)

	req := httptest.NewRequest(http.MethodPost, "/api/sync", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Total    int                `json:"total"`
		Synced   int                `json:"synced"`
		Failed   int                `json:"failed"`
		Outcomes map[string]Outcome `json:"outcomes"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, 2, resp.Total)
	assert.Equal(t, 1, resp.Synced)
	assert.Equal(t, 1, resp.Failed)
	assert.Len(t, resp.Outcomes, 2)
}

func TestHandleStatus(t *testing.T) {
	h := NewHandler(&stubSyncer{}, stubStatus{}, &stubRecords{}, "thing-1",
		slog.Default(), nil, &stubValidator{actorID: uuid.NewString()})
	r := chi.NewRouter()
	h.Register(r)

	req := httptest.NewRequest(http.MethodGet, "/api/telemetry/status", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"connected":true`)
}

func TestHandleSync_Unauthorized(t *testing.T) {
	h := NewHandler(&stubSyncer{}, stubStatus{}, &stubRecords{}, "thing-1",
		slog.Default(), nil, &stubValidator{actorID: uuid.NewString()})
	r := chi.NewRouter()
	h.Register(r)

	req := httptest.NewRequest(http.MethodPost, "/api/sync", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
