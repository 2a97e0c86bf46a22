package export

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chaintrace/internal/geo"
	scanmodels "chaintrace/internal/scan/models"
	"chaintrace/internal/tracking/chain"
	"chaintrace/internal/tracking/models"
	id "chaintrace/pkg/domain"
	dErrors "chaintrace/pkg/domain-errors"
)

func sampleTransaction(t *testing.T) *models.Transaction {
	t.Helper()
	h := chain.SHA3Hasher{}
	actor := id.NewActorID()
	base := time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC)

	head := chain.Seal(h, nil, models.CustodyEvent{
		Action:    models.ActionPickup,
		ActorID:   actor,
		Location:  geo.Point{Lat: 23.81, Lon: 90.41},
		Timestamp: base,
	})
	tail := chain.Seal(h, &head, models.CustodyEvent{
		Action:    models.ActionDelivery,
		ActorID:   actor,
		Location:  geo.Point{Lat: 23.82, Lon: 90.42},
		Timestamp: base.Add(time.Hour),
	})

	return &models.Transaction{
		ID:             id.NewTransactionID(),
		AssignedRegion: "Dhaka",
		CurrentRegion:  "Dhaka",
		Status:         models.StatusDelivered,
		Events:         []models.CustodyEvent{head, tail},
		CreatedAt:      base,
		UpdatedAt:      base.Add(time.Hour),
	}
}

func sampleRecord() *scanmodels.ParsedRecord {
	return &scanmodels.ParsedRecord{
		ID:             id.RecordID(uuid.New()),
		OwnerID:        id.OwnerID(uuid.New()),
		Type:           scanmodels.TypeLocator,
		Fields:         scanmodels.FieldMap{"host": "example.com"},
		Dimensionality: 1,
		Status:         scanmodels.StatusValid,
		CapturedAt:     time.Date(2026, 4, 2, 8, 0, 0, 0, time.UTC),
		CreatedAt:      time.Date(2026, 4, 2, 8, 0, 1, 0, time.UTC),
	}
}

func TestFilename(t *testing.T) {
	at := time.Date(2026, 4, 2, 23, 30, 0, 0, time.FixedZone("BST", 6*3600))
	// UTC date, not local date.
	assert.Equal(t, "chaintrace-export-2026-04-02.json", Filename(at))
}

func TestBuildAndVerify(t *testing.T) {
	h := chain.SHA3Hasher{}
	artifact, err := Build(time.Now(), []*scanmodels.ParsedRecord{sampleRecord()},
		[]*models.Transaction{sampleTransaction(t)})
	require.NoError(t, err)
	require.NotEmpty(t, artifact.VerificationHash)

	require.NoError(t, Verify(h, artifact))
}

func TestVerify_AfterJSONRoundTrip(t *testing.T) {
	h := chain.SHA3Hasher{}
	artifact, err := Build(time.Now(), []*scanmodels.ParsedRecord{sampleRecord()},
		[]*models.Transaction{sampleTransaction(t)})
	require.NoError(t, err)

	raw, err := json.Marshal(artifact)
	require.NoError(t, err)

	var reimported Artifact
	require.NoError(t, json.Unmarshal(raw, &reimported))

	// Event order and every hash survive the round trip.
	require.Len(t, reimported.Transactions, 1)
	assert.Equal(t, models.ActionPickup, reimported.Transactions[0].Events[0].Action)
	require.NoError(t, Verify(h, &reimported))
}

func TestVerify_DetectsTampering(t *testing.T) {
	h := chain.SHA3Hasher{}

	t.Run("edited record field", func(t *testing.T) {
		artifact, err := Build(time.Now(), []*scanmodels.ParsedRecord{sampleRecord()},
			[]*models.Transaction{sampleTransaction(t)})
		require.NoError(t, err)

		artifact.Records[0].Fields["host"] = "evil.example.com"
		err = Verify(h, artifact)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeIntegrity))
	})

	t.Run("edited custody event", func(t *testing.T) {
		tx := sampleTransaction(t)
		artifact, err := Build(time.Now(), nil, []*models.Transaction{tx})
		require.NoError(t, err)

		artifact.Transactions[0].Events[0].Timestamp =
			artifact.Transactions[0].Events[0].Timestamp.Add(time.Second)
		assert.Error(t, Verify(h, artifact))
	})
}
