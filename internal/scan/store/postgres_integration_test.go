//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"chaintrace/internal/scan/models"
	"chaintrace/internal/scan/store"
	id "chaintrace/pkg/domain"
	"chaintrace/pkg/platform/sentinel"
	"chaintrace/pkg/testutil/containers"
)

type PostgresRecordSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.Postgres
}

func TestPostgresRecordSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresRecordSuite))
}

func (s *PostgresRecordSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresRecordSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "records"))
}

func newTestRecord(owner id.OwnerID, createdAt time.Time) *models.ParsedRecord {
	return &models.ParsedRecord{
		ID:             id.RecordID(uuid.New()),
		OwnerID:        owner,
		Type:           models.TypeLocator,
		Fields:         models.FieldMap{"host": "example.com", "scheme": "https"},
		Dimensionality: 1,
		Status:         models.StatusValid,
		CapturedAt:     createdAt,
		CreatedAt:      createdAt,
	}
}

func (s *PostgresRecordSuite) TestInsertAndList() {
	ctx := context.Background()
	owner := id.OwnerID(uuid.New())
	base := time.Now().UTC().Truncate(time.Microsecond)

	older := newTestRecord(owner, base.Add(-time.Hour))
	newer := newTestRecord(owner, base)
	s.Require().NoError(s.store.Insert(ctx, older))
	s.Require().NoError(s.store.Insert(ctx, newer))
	// Another owner's record must not leak into the listing.
	s.Require().NoError(s.store.Insert(ctx, newTestRecord(id.OwnerID(uuid.New()), base)))

	records, err := s.store.ListByOwner(ctx, owner)
	s.Require().NoError(err)
	s.Require().Len(records, 2)
	s.Equal(newer.ID, records[0].ID)
	s.Equal(older.ID, records[1].ID)
	s.Equal("example.com", records[0].Fields["host"])
	s.Equal(models.TypeLocator, records[0].Type)
}

func (s *PostgresRecordSuite) TestUpdateStatus() {
	ctx := context.Background()
	record := newTestRecord(id.OwnerID(uuid.New()), time.Now().UTC())
	record.Status = models.StatusPending
	s.Require().NoError(s.store.Insert(ctx, record))

	s.Require().NoError(s.store.UpdateStatus(ctx, record.ID, models.StatusValid))

	records, err := s.store.ListByOwner(ctx, record.OwnerID)
	s.Require().NoError(err)
	s.Require().Len(records, 1)
	s.Equal(models.StatusValid, records[0].Status)
}

func (s *PostgresRecordSuite) TestUpdateStatusUnknownRecord() {
	err := s.store.UpdateStatus(context.Background(), id.NewRecordID(), models.StatusValid)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresRecordSuite) TestDelete() {
	ctx := context.Background()
	record := newTestRecord(id.OwnerID(uuid.New()), time.Now().UTC())
	s.Require().NoError(s.store.Insert(ctx, record))

	s.Require().NoError(s.store.Delete(ctx, record.ID))
	s.ErrorIs(s.store.Delete(ctx, record.ID), sentinel.ErrNotFound)
}
