// Package service orchestrates the scan pipeline: classify, extract,
// compute dimensionality, validate, persist.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"chaintrace/internal/scan/classifier"
	"chaintrace/internal/scan/extractor"
	scanmetrics "chaintrace/internal/scan/metrics"
	"chaintrace/internal/scan/models"
	"chaintrace/internal/scan/validator"
	id "chaintrace/pkg/domain"
	dErrors "chaintrace/pkg/domain-errors"
	"chaintrace/pkg/platform/sentinel"
)

// RecordStore is the persistence collaborator boundary for parsed records.
// Listing is owner-scoped and ordered most recent first.
type RecordStore interface {
	Insert(ctx context.Context, record *models.ParsedRecord) error
	ListByOwner(ctx context.Context, owner id.OwnerID) ([]*models.ParsedRecord, error)
	UpdateStatus(ctx context.Context, recordID id.RecordID, status models.ValidationStatus) error
	Delete(ctx context.Context, recordID id.RecordID) error
}

// Service runs the scan pipeline. The pipeline stages themselves are pure
// and synchronous; only persistence touches I/O.
type Service struct {
	records   RecordStore
	extractor *extractor.Extractor
	logger    *slog.Logger
	metrics   *scanmetrics.Metrics
	tracer    trace.Tracer
	now       func() time.Time
}

// Option configures the Service.
type Option func(*Service)

// WithMetrics attaches pipeline metrics.
func WithMetrics(m *scanmetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock overrides the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New constructs the scan service.
func New(records RecordStore, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		records:   records,
		extractor: extractor.New(),
		logger:    logger,
		tracer:    otel.Tracer("chaintrace/scan"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Process turns a raw scan into a classified, validated, persisted record.
// Malformed payloads still produce a well-formed record (corrupted status);
// only persistence failures surface as errors.
func (s *Service) Process(ctx context.Context, owner id.OwnerID, raw models.RawScan) (*models.ParsedRecord, error) {
	if owner.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "owner id is required")
	}

	ctx, span := s.tracer.Start(ctx, "scan.process")
	defer span.End()

	start := s.now()
	tag := classifier.Detect(raw.Content)
	fields := s.extractor.Extract(raw.Content, tag)
	dimensionality := extractor.Dimensionality(tag, fields)
	status := validator.Validate(tag, fields)

	span.SetAttributes(
		attribute.String("scan.type", string(tag)),
		attribute.String("scan.status", string(status)),
		attribute.Int("scan.dimensionality", dimensionality),
	)

	capturedAt := raw.CapturedAt
	if capturedAt.IsZero() {
		capturedAt = start
	}

	record := &models.ParsedRecord{
		ID:             id.NewRecordID(),
		OwnerID:        owner,
		Type:           tag,
		Fields:         fields,
		Dimensionality: dimensionality,
		Status:         status,
		CapturedAt:     capturedAt,
		CreatedAt:      start,
	}

	if err := s.records.Insert(ctx, record); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist record")
	}

	if s.metrics != nil {
		s.metrics.ObserveScan(string(tag), string(status), s.now().Sub(start))
	}
	s.logger.DebugContext(ctx, "scan processed",
		"record_id", record.ID.String(),
		"type", tag,
		"status", status,
		"dimensionality", dimensionality,
	)
	return record, nil
}

// List returns the owner's records, most recent first.
func (s *Service) List(ctx context.Context, owner id.OwnerID) ([]*models.ParsedRecord, error) {
	if owner.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "owner id is required")
	}
	records, err := s.records.ListByOwner(ctx, owner)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list records")
	}
	return records, nil
}

// AssignStatus applies an externally decided validation status, e.g. a
// manual review resolving a pending record.
func (s *Service) AssignStatus(ctx context.Context, recordID id.RecordID, status models.ValidationStatus) error {
	switch status {
	case models.StatusValid, models.StatusInvalid, models.StatusIncomplete, models.StatusPending:
	default:
		return dErrors.Newf(dErrors.CodeBadRequest, "status %q cannot be assigned externally", status)
	}
	if err := s.records.UpdateStatus(ctx, recordID, status); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "record not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update record status")
	}
	return nil
}

// Delete removes a record.
func (s *Service) Delete(ctx context.Context, recordID id.RecordID) error {
	if err := s.records.Delete(ctx, recordID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "record not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete record")
	}
	return nil
}
