package service

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chaintrace/internal/scan/models"
	"chaintrace/internal/scan/store"
	id "chaintrace/pkg/domain"
	dErrors "chaintrace/pkg/domain-errors"
)

func newTestService(t *testing.T) (*Service, *store.InMemory) {
	t.Helper()
	records := store.NewInMemory()
	svc := New(records, slog.Default())
	return svc, records
}

func TestProcess_Locator(t *testing.T) {
	svc, _ := newTestService(t)
	owner := id.OwnerID(uuid.New())

	record, err := svc.Process(context.Background(), owner, models.RawScan{
		Content:    "https://example.com/a?b=1",
		CapturedAt: time.Now(),
	})
	require.NoError(t, err)

	assert.Equal(t, models.TypeLocator, record.Type)
	assert.Equal(t, "example.com", record.Fields["host"])
	assert.Equal(t, models.StatusValid, record.Status)
	assert.GreaterOrEqual(t, record.Dimensionality, 1)
	assert.False(t, record.ID.IsNil())
}

func TestProcess_CorruptedPayloadStillYieldsRecord(t *testing.T) {
	svc, records := newTestService(t)
	owner := id.OwnerID(uuid.New())

	// Malformed WIFI grammar: classification succeeds, extraction fails.
	record, err := svc.Process(context.Background(), owner, models.RawScan{
		Content: "WIFI:T:WPA;P:nopass;",
	})
	require.NoError(t, err)
	assert.Equal(t, models.TypeNetworkCredential, record.Type)
	assert.Equal(t, models.StatusCorrupted, record.Status)
	assert.True(t, record.Fields.HasError())

	// And it was persisted like any other record.
	stored, err := records.ListByOwner(context.Background(), owner)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, models.StatusCorrupted, stored[0].Status)
}

func TestProcess_DefaultsCaptureTime(t *testing.T) {
	fixed := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	records := store.NewInMemory()
	svc := New(records, slog.Default(), WithClock(func() time.Time { return fixed }))

	record, err := svc.Process(context.Background(), id.OwnerID(uuid.New()), models.RawScan{Content: "hello"})
	require.NoError(t, err)
	assert.Equal(t, fixed, record.CapturedAt)
	assert.Equal(t, fixed, record.CreatedAt)
}

func TestProcess_RequiresOwner(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Process(context.Background(), id.OwnerID{}, models.RawScan{Content: "x"})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func TestList_MostRecentFirst(t *testing.T) {
	svc, _ := newTestService(t)
	owner := id.OwnerID(uuid.New())
	ctx := context.Background()

	for _, content := range []string{"first", "second", "third"} {
		_, err := svc.Process(ctx, owner, models.RawScan{Content: content})
		require.NoError(t, err)
		time.Sleep(time.Millisecond)
	}

	records, err := svc.List(ctx, owner)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "third", records[0].Fields["text"])
	assert.Equal(t, "first", records[2].Fields["text"])
}

func TestAssignStatus(t *testing.T) {
	svc, _ := newTestService(t)
	owner := id.OwnerID(uuid.New())
	ctx := context.Background()

	record, err := svc.Process(ctx, owner, models.RawScan{Content: "hello"})
	require.NoError(t, err)

	t.Run("assigns reviewable statuses", func(t *testing.T) {
		require.NoError(t, svc.AssignStatus(ctx, record.ID, models.StatusPending))
	})

	t.Run("corrupted cannot be assigned externally", func(t *testing.T) {
		err := svc.AssignStatus(ctx, record.ID, models.StatusCorrupted)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	t.Run("unknown record maps to not found", func(t *testing.T) {
		err := svc.AssignStatus(ctx, id.NewRecordID(), models.StatusValid)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}
