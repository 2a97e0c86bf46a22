// Package service maintains the append-only custody ledger and the
// transaction state machine.
package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"chaintrace/internal/geo"
	"chaintrace/internal/tracking/chain"
	trackingmetrics "chaintrace/internal/tracking/metrics"
	"chaintrace/internal/tracking/models"
	id "chaintrace/pkg/domain"
	dErrors "chaintrace/pkg/domain-errors"
	"chaintrace/pkg/platform/sentinel"
)

// TransactionStore is the persistence collaborator boundary for
// transactions and their custody chains.
type TransactionStore interface {
	Create(ctx context.Context, tx *models.Transaction) error
	Find(ctx context.Context, txID id.TransactionID) (*models.Transaction, error)
	List(ctx context.Context) ([]*models.Transaction, error)
	ListActive(ctx context.Context) ([]*models.Transaction, error)
	Append(ctx context.Context, tx *models.Transaction, event models.CustodyEvent) error
	UpdateStatus(ctx context.Context, txID id.TransactionID, status models.TransactionStatus) error
}

// EventPublisher forwards appended custody events to the operational
// stream. Publishing is fire-and-forget; it must not block the ledger.
type EventPublisher interface {
	Publish(ctx context.Context, txID id.TransactionID, event models.CustodyEvent)
}

// keyedMutex serializes work per transaction ID. Entries are never
// reclaimed; the set of live transactions is small.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[id.TransactionID]*sync.Mutex
}

func (k *keyedMutex) get(txID id.TransactionID) *sync.Mutex {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.locks == nil {
		k.locks = make(map[id.TransactionID]*sync.Mutex)
	}
	lock, ok := k.locks[txID]
	if !ok {
		lock = &sync.Mutex{}
		k.locks[txID] = lock
	}
	return lock
}

// Service owns custody chain appends. All appends for one transaction go
// through its keyed mutex so the previous-hash linkage is never computed
// against a stale tail.
type Service struct {
	transactions TransactionStore
	detector     *geo.Detector
	hasher       chain.Hasher
	publisher    EventPublisher
	logger       *slog.Logger
	metrics      *trackingmetrics.Metrics
	tracer       trace.Tracer
	now          func() time.Time
	locks        keyedMutex
}

// Option configures the Service.
type Option func(*Service)

// WithMetrics attaches custody metrics.
func WithMetrics(m *trackingmetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithPublisher attaches the custody event stream publisher.
func WithPublisher(p EventPublisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithHasher overrides the chain hash function.
func WithHasher(h chain.Hasher) Option {
	return func(s *Service) { s.hasher = h }
}

// WithClock overrides the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New constructs the tracking service.
func New(transactions TransactionStore, detector *geo.Detector, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		transactions: transactions,
		detector:     detector,
		hasher:       chain.SHA3Hasher{},
		logger:       logger,
		tracer:       otel.Tracer("chaintrace/tracking"),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EventInput is the caller-supplied part of a custody event.
type EventInput struct {
	Action   models.ActionKind
	ActorID  id.ActorID
	Location geo.Point
	Note     string
}

// RecordPickup creates a transaction with its head pickup event. The
// current region is resolved from the pickup location.
func (s *Service) RecordPickup(ctx context.Context, assignedRegion string, in EventInput) (*models.Transaction, error) {
	if in.ActorID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "actor id is required")
	}
	if assignedRegion == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "assigned region is required")
	}

	ctx, span := s.tracer.Start(ctx, "tracking.pickup")
	defer span.End()

	now := s.now()
	tx := &models.Transaction{
		ID:             id.NewTransactionID(),
		AssignedRegion: assignedRegion,
		CurrentRegion:  geo.UnknownRegion,
		Status:         models.StatusPickedUp,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	event := chain.Seal(s.hasher, nil, models.CustodyEvent{
		Action:    models.ActionPickup,
		ActorID:   in.ActorID,
		Location:  in.Location,
		Note:      in.Note,
		Timestamp: now,
	})
	s.applyDiversionCheck(ctx, tx, in.Location)
	tx.Events = []models.CustodyEvent{event}

	if err := s.transactions.Create(ctx, tx); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create transaction")
	}

	span.SetAttributes(attribute.String("transaction.id", tx.ID.String()))
	s.afterAppend(ctx, tx, event)
	return tx, nil
}

// AppendEvent links a new event onto the transaction's chain and derives
// the resulting state. Terminal transactions reject further events.
func (s *Service) AppendEvent(ctx context.Context, txID id.TransactionID, in EventInput) (*models.Transaction, error) {
	if !in.Action.Valid() || in.Action == models.ActionPickup {
		return nil, dErrors.Newf(dErrors.CodeBadRequest, "action %q cannot be appended", in.Action)
	}
	if in.ActorID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "actor id is required")
	}

	ctx, span := s.tracer.Start(ctx, "tracking.append",
		trace.WithAttributes(attribute.String("event.action", string(in.Action))))
	defer span.End()

	lock := s.locks.get(txID)
	lock.Lock()
	defer lock.Unlock()

	tx, err := s.transactions.Find(ctx, txID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "transaction not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load transaction")
	}
	if tx.Status.Terminal() {
		return nil, dErrors.Newf(dErrors.CodeConflict, "transaction is %s and accepts no further events", tx.Status)
	}

	now := s.now()
	event := chain.Seal(s.hasher, tx.Tail(), models.CustodyEvent{
		Action:    in.Action,
		ActorID:   in.ActorID,
		Location:  in.Location,
		Note:      in.Note,
		Timestamp: now,
	})

	if in.Action == models.ActionLocationUpdate || in.Action == models.ActionDelivery {
		s.applyDiversionCheck(ctx, tx, in.Location)
	}
	if in.Action == models.ActionDelivery {
		if tx.AlertTriggered {
			tx.Status = models.StatusDiverted
		} else {
			tx.Status = models.StatusDelivered
		}
	}
	if in.Action == models.ActionAlert {
		tx.AlertTriggered = true
	}
	tx.UpdatedAt = now

	if err := s.transactions.Append(ctx, tx, event); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to append custody event")
	}
	tx.Events = append(tx.Events, event)

	s.afterAppend(ctx, tx, event)
	return tx, nil
}

// applyDiversionCheck resolves the location and folds the outcome into the
// transaction. Resolution failures are non-fatal; the event is still
// appended without a region change.
func (s *Service) applyDiversionCheck(ctx context.Context, tx *models.Transaction, loc geo.Point) {
	if s.detector == nil {
		return
	}
	d, err := s.detector.Check(ctx, tx.AssignedRegion, loc)
	if err != nil {
		s.logger.WarnContext(ctx, "diversion check failed",
			"transaction_id", tx.ID.String(),
			"error", err.Error(),
		)
		return
	}
	tx.CurrentRegion = d.CurrentRegion
	if d.Diverted {
		km := d.DistanceKm
		tx.DiversionKm = &km
		if !tx.AlertTriggered {
			tx.AlertTriggered = true
			if s.metrics != nil {
				s.metrics.ObserveDiversion()
			}
			s.logger.WarnContext(ctx, "shipment diverted",
				"transaction_id", tx.ID.String(),
				"assigned_region", d.AssignedRegion,
				"current_region", d.CurrentRegion,
				"distance_km", d.DistanceKm,
			)
		}
	}
}

func (s *Service) afterAppend(ctx context.Context, tx *models.Transaction, event models.CustodyEvent) {
	if s.publisher != nil {
		s.publisher.Publish(ctx, tx.ID, event)
	}
	if s.metrics != nil {
		s.metrics.ObserveEvent(string(event.Action))
	}
	s.logger.DebugContext(ctx, "custody event appended",
		"transaction_id", tx.ID.String(),
		"action", event.Action,
		"status", tx.Status,
		"chain_length", len(tx.Events),
	)
}

// Get returns one transaction with its full chain.
func (s *Service) Get(ctx context.Context, txID id.TransactionID) (*models.Transaction, error) {
	tx, err := s.transactions.Find(ctx, txID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "transaction not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load transaction")
	}
	return tx, nil
}

// List returns all transactions, most recent first.
func (s *Service) List(ctx context.Context) ([]*models.Transaction, error) {
	txs, err := s.transactions.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list transactions")
	}
	return txs, nil
}

// ListActive returns non-terminal transactions, most recent first.
func (s *Service) ListActive(ctx context.Context) ([]*models.Transaction, error) {
	txs, err := s.transactions.ListActive(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list transactions")
	}
	return txs, nil
}

// VerifyChain recomputes the transaction's hash chain. A mismatch is a
// fatal audit finding and surfaces as a chain-integrity error.
func (s *Service) VerifyChain(ctx context.Context, txID id.TransactionID) error {
	tx, err := s.Get(ctx, txID)
	if err != nil {
		return err
	}
	if err := chain.Verify(s.hasher, tx.Events); err != nil {
		if s.metrics != nil {
			s.metrics.ObserveVerifyFailure()
		}
		s.logger.ErrorContext(ctx, "custody chain verification failed",
			"transaction_id", txID.String(),
			"error", err.Error(),
		)
		return err
	}
	return nil
}

// AssignStatus applies an externally decided status. Only in_transit and
// missing may be set this way; lifecycle statuses are derived from events.
func (s *Service) AssignStatus(ctx context.Context, txID id.TransactionID, status models.TransactionStatus) error {
	if !status.ExternallyAssignable() {
		return dErrors.Newf(dErrors.CodeBadRequest, "status %q cannot be assigned externally", status)
	}

	lock := s.locks.get(txID)
	lock.Lock()
	defer lock.Unlock()

	tx, err := s.Get(ctx, txID)
	if err != nil {
		return err
	}
	if tx.Status.Terminal() {
		return dErrors.Newf(dErrors.CodeConflict, "transaction is %s and its status is final", tx.Status)
	}
	if err := s.transactions.UpdateStatus(ctx, txID, status); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update transaction status")
	}
	return nil
}
