package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"chaintrace/internal/scan/models"
	id "chaintrace/pkg/domain"
	"chaintrace/pkg/platform/sentinel"
)

// Postgres persists records in PostgreSQL.
//
// Schema (see migrations/001_records.sql):
//
//	records(id uuid pk, owner_id uuid, type text, fields jsonb,
//	        dimensionality int, status text, captured_at timestamptz,
//	        created_at timestamptz)
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed record store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) Insert(ctx context.Context, record *models.ParsedRecord) error {
	fields, err := json.Marshal(record.Fields)
	if err != nil {
		return fmt.Errorf("marshal record fields: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO records (id, owner_id, type, fields, dimensionality, status, captured_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		uuid.UUID(record.ID), uuid.UUID(record.OwnerID), string(record.Type), fields,
		record.Dimensionality, string(record.Status), record.CapturedAt, record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}

func (s *Postgres) ListByOwner(ctx context.Context, owner id.OwnerID) ([]*models.ParsedRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, type, fields, dimensionality, status, captured_at, created_at
		FROM records WHERE owner_id = $1
		ORDER BY created_at DESC`,
		uuid.UUID(owner),
	)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var out []*models.ParsedRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return out, nil
}

func (s *Postgres) UpdateStatus(ctx context.Context, recordID id.RecordID, status models.ValidationStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE records SET status = $2 WHERE id = $1`,
		uuid.UUID(recordID), string(status),
	)
	if err != nil {
		return fmt.Errorf("update record status: %w", err)
	}
	return requireRowAffected(res)
}

func (s *Postgres) Delete(ctx context.Context, recordID id.RecordID) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM records WHERE id = $1`,
		uuid.UUID(recordID),
	)
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	return requireRowAffected(res)
}

func scanRecord(rows *sql.Rows) (*models.ParsedRecord, error) {
	var (
		record    models.ParsedRecord
		recordID  uuid.UUID
		ownerID   uuid.UUID
		typeName  string
		fieldsRaw []byte
		status    string
	)
	err := rows.Scan(&recordID, &ownerID, &typeName, &fieldsRaw,
		&record.Dimensionality, &status, &record.CapturedAt, &record.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan record row: %w", err)
	}
	if err := json.Unmarshal(fieldsRaw, &record.Fields); err != nil {
		return nil, fmt.Errorf("unmarshal record fields: %w", err)
	}
	record.ID = id.RecordID(recordID)
	record.OwnerID = id.OwnerID(ownerID)
	record.Type = models.ContentType(typeName)
	record.Status = models.ValidationStatus(status)
	return &record, nil
}

func requireRowAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
