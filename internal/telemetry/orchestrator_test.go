package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chaintrace/internal/platform/config"
	scanmodels "chaintrace/internal/scan/models"
	id "chaintrace/pkg/domain"
)

type fakePublisher struct {
	mu        sync.Mutex
	started   map[id.RecordID]int
	completed map[id.RecordID]bool
	inFlight  int
	maxSeen   int
	failFor   map[id.RecordID]bool
	index     map[id.RecordID]int
	batchSize int
}

func newFakePublisher(records []*scanmodels.ParsedRecord, batchSize int) *fakePublisher {
	index := make(map[id.RecordID]int, len(records))
	for i, r := range records {
		index[r.ID] = i
	}
	return &fakePublisher{
		started:   make(map[id.RecordID]int),
		completed: make(map[id.RecordID]bool),
		failFor:   make(map[id.RecordID]bool),
		index:     index,
		batchSize: batchSize,
	}
}

func (p *fakePublisher) Publish(_ context.Context, _, _ string, payload any) error {
	record := payload.(*scanmodels.ParsedRecord)

	p.mu.Lock()
	i := p.index[record.ID]
	// Everything in earlier batches must have settled before this
	// record's publish starts.
	for other, otherIdx := range p.index {
		if otherIdx < (i/p.batchSize)*p.batchSize && !p.completed[other] {
			p.mu.Unlock()
			return fmt.Errorf("record %d started before earlier batch settled", i)
		}
	}
	p.started[record.ID] = i
	p.inFlight++
	if p.inFlight > p.maxSeen {
		p.maxSeen = p.inFlight
	}
	fail := p.failFor[record.ID]
	p.mu.Unlock()

	time.Sleep(2 * time.Millisecond)

	p.mu.Lock()
	p.inFlight--
	p.completed[record.ID] = true
	p.mu.Unlock()

	if fail {
		return fmt.Errorf("upstream rejected record %s", record.ID)
	}
	return nil
}

func sampleRecords(n int) []*scanmodels.ParsedRecord {
	out := make([]*scanmodels.ParsedRecord, n)
	for i := range out {
		out[i] = &scanmodels.ParsedRecord{
			ID:     id.NewRecordID(),
			Type:   scanmodels.TypeGenericText,
			Status: scanmodels.StatusValid,
		}
	}
	return out
}

func testConfig() config.Telemetry {
	return config.Telemetry{
		ThingID:      "thing-1",
		PropertyName: "scans",
		BatchSize:    10,
		BatchDelay:   time.Millisecond,
	}
}

func TestSync_BatchesSequentially(t *testing.T) {
	records := sampleRecords(25)
	pub := newFakePublisher(records, 10)
	orch := NewOrchestrator(pub, testConfig(), slog.Default())

	outcomes, err := orch.Sync(context.Background(), records)
	require.NoError(t, err)

	require.Len(t, outcomes, 25)
	for _, record := range records {
		outcome, ok := outcomes[record.ID]
		require.True(t, ok)
		assert.True(t, outcome.Synced)
		assert.Empty(t, outcome.Error)
	}
	assert.LessOrEqual(t, pub.maxSeen, 10)
	assert.Len(t, pub.completed, 25)
}

func TestSync_FailureDoesNotAbortBatch(t *testing.T) {
	records := sampleRecords(5)
	pub := newFakePublisher(records, 10)
	pub.failFor[records[2].ID] = true
	orch := NewOrchestrator(pub, testConfig(), slog.Default())

	outcomes, err := orch.Sync(context.Background(), records)
	require.NoError(t, err)
	require.Len(t, outcomes, 5)

	assert.False(t, outcomes[records[2].ID].Synced)
	assert.Contains(t, outcomes[records[2].ID].Error, "upstream rejected")
	for i, record := range records {
		if i == 2 {
			continue
		}
		assert.True(t, outcomes[record.ID].Synced)
	}
}

func TestSync_EmptyInput(t *testing.T) {
	orch := NewOrchestrator(newFakePublisher(nil, 10), testConfig(), slog.Default())
	outcomes, err := orch.Sync(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, outcomes)
}

func TestSync_CancelledContext(t *testing.T) {
	records := sampleRecords(30)
	pub := newFakePublisher(records, 10)
	cfg := testConfig()
	cfg.BatchDelay = 200 * time.Millisecond
	orch := NewOrchestrator(pub, cfg, slog.Default())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	outcomes, err := orch.Sync(ctx, records)
	require.Error(t, err)
	// The first batch settled; later batches never started.
	assert.LessOrEqual(t, len(outcomes), 20)
}
