package tracker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chaintrace/internal/geo"
	"chaintrace/internal/tracking/models"
	"chaintrace/internal/tracking/service"
	id "chaintrace/pkg/domain"
)

type fakeProvider struct {
	mu    sync.Mutex
	point geo.Point
	err   error
	calls int
}

func (p *fakeProvider) Current(ctx context.Context) (geo.Point, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.err != nil {
		return geo.Point{}, p.err
	}
	return p.point, nil
}

type fakeLedger struct {
	mu       sync.Mutex
	active   []*models.Transaction
	appended []service.EventInput
	err      error
}

func (l *fakeLedger) ListActive(context.Context) ([]*models.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active, nil
}

func (l *fakeLedger) AppendEvent(_ context.Context, _ id.TransactionID, in service.EventInput) (*models.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.appended = append(l.appended, in)
	return nil, l.err
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindPermissionDenied, KindOf(&ProviderError{Kind: KindPermissionDenied}))
	assert.Equal(t, KindTimeout, KindOf(context.DeadlineExceeded))
	assert.Equal(t, KindUnavailable, KindOf(errors.New("gps hardware fault")))
}

func TestRun_AppendsToActiveTransactions(t *testing.T) {
	ledger := &fakeLedger{active: []*models.Transaction{
		{ID: id.NewTransactionID(), Status: models.StatusPickedUp},
		{ID: id.NewTransactionID(), Status: models.StatusInTransit},
	}}
	provider := &fakeProvider{point: geo.Point{Lat: 23.81, Lon: 90.41}}
	tr := New(ledger, provider, id.NewActorID(), 10*time.Millisecond, time.Second, slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- tr.Run(ctx) }()

	require.Eventually(t, func() bool {
		ledger.mu.Lock()
		defer ledger.mu.Unlock()
		return len(ledger.appended) >= 4
	}, time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	ledger.mu.Lock()
	defer ledger.mu.Unlock()
	for _, in := range ledger.appended {
		assert.Equal(t, models.ActionLocationUpdate, in.Action)
		assert.Equal(t, 23.81, in.Location.Lat)
	}
}

func TestRun_ProviderFailureIsNonFatal(t *testing.T) {
	ledger := &fakeLedger{active: []*models.Transaction{{ID: id.NewTransactionID()}}}
	provider := &fakeProvider{err: &ProviderError{Kind: KindPermissionDenied}}
	tr := New(ledger, provider, id.NewActorID(), 10*time.Millisecond, time.Second, slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- tr.Run(ctx) }()

	require.Eventually(t, func() bool {
		provider.mu.Lock()
		defer provider.mu.Unlock()
		return provider.calls >= 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	ledger.mu.Lock()
	defer ledger.mu.Unlock()
	assert.Empty(t, ledger.appended)
}

func TestRun_StopsCleanly(t *testing.T) {
	tr := New(&fakeLedger{}, &fakeProvider{}, id.NewActorID(), time.Hour, time.Second, slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- tr.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("tracker did not stop on cancellation")
	}
}
