package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"chaintrace/internal/platform/config"
	scanmodels "chaintrace/internal/scan/models"
	id "chaintrace/pkg/domain"
)

// Publisher is the telemetry publish boundary the orchestrator fans out
// through.
type Publisher interface {
	Publish(ctx context.Context, thingID, property string, payload any) error
}

// Outcome is one record's sync result. A failed record never aborts its
// batch; the failure is data.
type Outcome struct {
	Synced bool   `json:"synced"`
	Error  string `json:"error,omitempty"`
}

// Orchestrator pushes records upstream in consecutive batches. Publishes
// within a batch run concurrently, bounded by the batch size; batch n+1
// never starts before batch n has fully settled.
type Orchestrator struct {
	publisher Publisher
	thingID   string
	property  string
	batchSize int
	limiter   *rate.Limiter
	logger    *slog.Logger
}

// NewOrchestrator constructs an Orchestrator from the telemetry config.
func NewOrchestrator(publisher Publisher, cfg config.Telemetry, logger *slog.Logger) *Orchestrator {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 10
	}
	delay := cfg.BatchDelay
	if delay <= 0 {
		delay = time.Second
	}
	return &Orchestrator{
		publisher: publisher,
		thingID:   cfg.ThingID,
		property:  cfg.PropertyName,
		batchSize: batchSize,
		limiter:   rate.NewLimiter(rate.Every(delay), 1),
		logger:    logger,
	}
}

// Sync publishes every record and reports a per-record outcome keyed by
// record ID. It returns an error only when ctx ends before all batches
// settle; individual publish failures are outcomes, not errors.
func (o *Orchestrator) Sync(ctx context.Context, records []*scanmodels.ParsedRecord) (map[id.RecordID]Outcome, error) {
	outcomes := make(map[id.RecordID]Outcome, len(records))
	if len(records) == 0 {
		return outcomes, nil
	}

	var mu sync.Mutex
	batches := 0
	for start := 0; start < len(records); start += o.batchSize {
		if err := o.limiter.Wait(ctx); err != nil {
			return outcomes, err
		}

		end := min(start+o.batchSize, len(records))
		batch := records[start:end]
		batches++

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(o.batchSize)
		for _, record := range batch {
			g.Go(func() error {
				outcome := Outcome{Synced: true}
				if err := o.publisher.Publish(gctx, o.thingID, o.property, record); err != nil {
					outcome = Outcome{Error: err.Error()}
				}
				mu.Lock()
				outcomes[record.ID] = outcome
				mu.Unlock()
				return nil
			})
		}
		// Publish errors are captured as outcomes, so Wait only fails on
		// context cancellation.
		if err := g.Wait(); err != nil {
			return outcomes, err
		}
		if err := ctx.Err(); err != nil {
			return outcomes, err
		}
	}

	o.logger.InfoContext(ctx, "sync complete",
		"records", len(records),
		"batches", batches,
		"batch_size", o.batchSize,
	)
	return outcomes, nil
}
