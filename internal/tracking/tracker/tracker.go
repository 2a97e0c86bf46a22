// Package tracker runs the periodic location sampling loop that feeds
// location_update events into active custody chains.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"chaintrace/internal/geo"
	trackingmetrics "chaintrace/internal/tracking/metrics"
	"chaintrace/internal/tracking/models"
	"chaintrace/internal/tracking/service"
	id "chaintrace/pkg/domain"
	dErrors "chaintrace/pkg/domain-errors"
)

// ErrorKind classifies a failed location acquisition.
type ErrorKind string

const (
	KindPermissionDenied ErrorKind = "permission-denied"
	KindUnavailable      ErrorKind = "unavailable"
	KindTimeout          ErrorKind = "timeout"
)

// ProviderError is a failed location acquisition. Always non-fatal: the
// caller proceeds without coordinates.
type ProviderError struct {
	Kind ErrorKind
	Err  error
}

func (e *ProviderError) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// KindOf extracts the error kind, defaulting to unavailable.
func KindOf(err error) ErrorKind {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindUnavailable
}

// LocationProvider acquires the device's current position. Implementations
// must honor ctx cancellation and release any underlying watch on every
// exit path.
type LocationProvider interface {
	Current(ctx context.Context) (geo.Point, error)
}

// Ledger is the slice of the tracking service the tracker needs.
type Ledger interface {
	ListActive(ctx context.Context) ([]*models.Transaction, error)
	AppendEvent(ctx context.Context, txID id.TransactionID, in service.EventInput) (*models.Transaction, error)
}

// Tracker samples the location on an interval and appends a
// location_update to every active transaction. It never blocks the
// interactive scan or delivery paths; ledger-level locking orders the
// racing appends.
type Tracker struct {
	ledger   Ledger
	provider LocationProvider
	actor    id.ActorID
	interval time.Duration
	timeout  time.Duration
	logger   *slog.Logger
	metrics  *trackingmetrics.Metrics
}

// Option configures the Tracker.
type Option func(*Tracker)

// WithMetrics attaches custody metrics.
func WithMetrics(m *trackingmetrics.Metrics) Option {
	return func(t *Tracker) { t.metrics = m }
}

// New constructs a Tracker. actor identifies the device in the events it
// appends.
func New(ledger Ledger, provider LocationProvider, actor id.ActorID, interval, timeout time.Duration, logger *slog.Logger, opts ...Option) *Tracker {
	t := &Tracker{
		ledger:   ledger,
		provider: provider,
		actor:    actor,
		interval: interval,
		timeout:  timeout,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Run samples until ctx is cancelled, then returns nil. One tick samples
// once and fans the point out to all active transactions.
func (t *Tracker) Run(ctx context.Context) error {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	t.logger.Info("location tracker started",
		"interval", t.interval.String(),
		"location_timeout", t.timeout.String(),
	)
	for {
		select {
		case <-ctx.Done():
			t.logger.Info("location tracker stopped")
			return nil
		case <-ticker.C:
			t.sample(ctx)
		}
	}
}

func (t *Tracker) sample(ctx context.Context) {
	locCtx, cancel := context.WithTimeout(ctx, t.timeout)
	point, err := t.provider.Current(locCtx)
	cancel()
	if err != nil {
		kind := KindOf(err)
		if t.metrics != nil {
			t.metrics.ObserveTrackerSample(string(kind))
		}
		t.logger.WarnContext(ctx, "location acquisition failed",
			"kind", string(kind),
			"error", err.Error(),
		)
		return
	}
	if t.metrics != nil {
		t.metrics.ObserveTrackerSample("success")
	}

	active, err := t.ledger.ListActive(ctx)
	if err != nil {
		t.logger.ErrorContext(ctx, "failed to list active transactions", "error", err.Error())
		return
	}
	for _, tx := range active {
		_, err := t.ledger.AppendEvent(ctx, tx.ID, service.EventInput{
			Action:   models.ActionLocationUpdate,
			ActorID:  t.actor,
			Location: point,
		})
		if err != nil {
			// Racing deliveries can make a transaction terminal between
			// the listing and the append.
			if dErrors.HasCode(err, dErrors.CodeConflict) {
				continue
			}
			t.logger.ErrorContext(ctx, "failed to append location update",
				"transaction_id", tx.ID.String(),
				"error", err.Error(),
			)
		}
	}
}
