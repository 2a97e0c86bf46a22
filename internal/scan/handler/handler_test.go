package handler

import (
	"context"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chaintrace/internal/platform/middleware"
	"chaintrace/internal/scan/models"
	id "chaintrace/pkg/domain"
	dErrors "chaintrace/pkg/domain-errors"
	"chaintrace/pkg/testutil"
)

type stubValidator struct {
	actorID string
}

func (v *stubValidator) ValidateToken(token string) (*middleware.JWTClaims, error) {
	if token != "good-token" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "bad token")
	}
	return &middleware.JWTClaims{ActorID: v.actorID}, nil
}

type stubService struct {
	processed []models.RawScan
	record    *models.ParsedRecord
	listed    []*models.ParsedRecord
	err       error
}

func (s *stubService) Process(_ context.Context, owner id.OwnerID, raw models.RawScan) (*models.ParsedRecord, error) {
	s.processed = append(s.processed, raw)
	return s.record, s.err
}

func (s *stubService) List(context.Context, id.OwnerID) ([]*models.ParsedRecord, error) {
	return s.listed, s.err
}

func (s *stubService) AssignStatus(context.Context, id.RecordID, models.ValidationStatus) error {
	return s.err
}

func (s *stubService) Delete(context.Context, id.RecordID) error {
	return s.err
}

func newTestRouter(svc Service, actorID string) http.Handler {
	h := New(svc, slog.Default(), nil, &stubValidator{actorID: actorID})
	r := chi.NewRouter()
	h.Register(r)
	return r
}

func authed(req *http.Request) *http.Request {
	return testutil.WithBearer(req, "good-token")
}

func TestSubmitScan(t *testing.T) {
	actor := uuid.NewString()
	record := &models.ParsedRecord{
		ID:     id.NewRecordID(),
		Type:   models.TypeLocator,
		Status: models.StatusValid,
	}
	svc := &stubService{record: record}
	router := newTestRouter(svc, actor)

	t.Run("creates record", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/api/scans",
			map[string]string{"content": "https://example.com"})
		w := testutil.DoRequest(router, authed(req))

		require.Equal(t, http.StatusCreated, w.Code)
		require.Len(t, svc.processed, 1)
		assert.Equal(t, "https://example.com", svc.processed[0].Content)

		got := testutil.UnmarshalResponse[models.ParsedRecord](t, w)
		assert.Equal(t, models.TypeLocator, got.Type)
	})

	t.Run("rejects empty content", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/api/scans",
			map[string]string{"content": ""})
		w := testutil.DoRequest(router, authed(req))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		testutil.AssertErrorCode(t, w, dErrors.CodeBadRequest)
	})

	t.Run("rejects missing token", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/api/scans", map[string]string{})
		w := testutil.DoRequest(router, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestListScans(t *testing.T) {
	actor := uuid.NewString()
	svc := &stubService{listed: nil}
	router := newTestRouter(svc, actor)

	req := testutil.NewJSONRequest(t, http.MethodGet, "/api/scans", nil)
	w := testutil.DoRequest(router, authed(req))

	require.Equal(t, http.StatusOK, w.Code)
	// Empty list serializes as [], not null.
	assert.JSONEq(t, "[]", w.Body.String())
}

func TestAssignStatus_BadID(t *testing.T) {
	router := newTestRouter(&stubService{}, uuid.NewString())

	req := testutil.NewJSONRequest(t, http.MethodPatch, "/api/scans/not-a-uuid/status",
		map[string]string{"status": "valid"})
	w := testutil.DoRequest(router, authed(req))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	testutil.AssertErrorCode(t, w, dErrors.CodeInvalidInput)
}

func TestDeleteScan_NotFound(t *testing.T) {
	svc := &stubService{err: dErrors.New(dErrors.CodeNotFound, "record not found")}
	router := newTestRouter(svc, uuid.NewString())

	req := testutil.NewJSONRequest(t, http.MethodDelete, "/api/scans/"+uuid.NewString(), nil)
	w := testutil.DoRequest(router, authed(req))

	assert.Equal(t, http.StatusNotFound, w.Code)
	testutil.AssertErrorCode(t, w, dErrors.CodeNotFound)
}
