package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"chaintrace/internal/tracking/models"
	id "chaintrace/pkg/domain"
	"chaintrace/pkg/platform/sentinel"
)

// Postgres persists transactions and their custody chains in PostgreSQL.
//
// Schema (see migrations/002_transactions.sql):
//
//	transactions(id uuid pk, assigned_region text, current_region text,
//	             status text, diversion_km double precision null,
//	             alert_triggered bool, created_at timestamptz,
//	             updated_at timestamptz)
//	custody_events(transaction_id uuid fk, seq int, action text,
//	               actor_id uuid, lat double precision,
//	               lon double precision, note text, ts timestamptz,
//	               prev_hash text, hash text,
//	               primary key (transaction_id, seq))
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed transaction store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) Create(ctx context.Context, tx *models.Transaction) error {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create transaction: %w", err)
	}
	defer dbTx.Rollback()

	_, err = dbTx.ExecContext(ctx, `
		INSERT INTO transactions (id, assigned_region, current_region, status, diversion_km, alert_triggered, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		uuid.UUID(tx.ID), tx.AssignedRegion, tx.CurrentRegion, string(tx.Status),
		tx.DiversionKm, tx.AlertTriggered, tx.CreatedAt, tx.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	for seq, event := range tx.Events {
		if err := insertEvent(ctx, dbTx, tx.ID, seq, event); err != nil {
			return err
		}
	}
	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("commit create transaction: %w", err)
	}
	return nil
}

func (s *Postgres) Find(ctx context.Context, txID id.TransactionID) (*models.Transaction, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, assigned_region, current_region, status, diversion_km, alert_triggered, created_at, updated_at
		FROM transactions WHERE id = $1`,
		uuid.UUID(txID),
	)
	tx, err := scanTransaction(row)
	if err != nil {
		return nil, err
	}
	events, err := s.loadEvents(ctx, txID)
	if err != nil {
		return nil, err
	}
	tx.Events = events
	return tx, nil
}

func (s *Postgres) List(ctx context.Context) ([]*models.Transaction, error) {
	return s.list(ctx, `
		SELECT id, assigned_region, current_region, status, diversion_km, alert_triggered, created_at, updated_at
		FROM transactions ORDER BY created_at DESC`)
}

func (s *Postgres) ListActive(ctx context.Context) ([]*models.Transaction, error) {
	return s.list(ctx, `
		SELECT id, assigned_region, current_region, status, diversion_km, alert_triggered, created_at, updated_at
		FROM transactions WHERE status NOT IN ('delivered', 'diverted')
		ORDER BY created_at DESC`)
}

func (s *Postgres) list(ctx context.Context, query string) ([]*models.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []*models.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	for _, tx := range out {
		events, err := s.loadEvents(ctx, tx.ID)
		if err != nil {
			return nil, err
		}
		tx.Events = events
	}
	return out, nil
}

// Append writes the new tail event and the derived transaction state in
// one database transaction so a crash cannot leave the chain and the
// status out of step.
func (s *Postgres) Append(ctx context.Context, tx *models.Transaction, event models.CustodyEvent) error {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin append: %w", err)
	}
	defer dbTx.Rollback()

	var seq int
	err = dbTx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq) + 1, 0) FROM custody_events WHERE transaction_id = $1`,
		uuid.UUID(tx.ID),
	).Scan(&seq)
	if err != nil {
		return fmt.Errorf("next event seq: %w", err)
	}

	if err := insertEvent(ctx, dbTx, tx.ID, seq, event); err != nil {
		return err
	}

	res, err := dbTx.ExecContext(ctx, `
		UPDATE transactions
		SET current_region = $2, status = $3, diversion_km = $4, alert_triggered = $5, updated_at = $6
		WHERE id = $1`,
		uuid.UUID(tx.ID), tx.CurrentRegion, string(tx.Status),
		tx.DiversionKm, tx.AlertTriggered, tx.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update transaction state: %w", err)
	}
	if err := requireRowAffected(res); err != nil {
		return err
	}
	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("commit append: %w", err)
	}
	return nil
}

func (s *Postgres) UpdateStatus(ctx context.Context, txID id.TransactionID, status models.TransactionStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE transactions SET status = $2, updated_at = now() WHERE id = $1`,
		uuid.UUID(txID), string(status),
	)
	if err != nil {
		return fmt.Errorf("update transaction status: %w", err)
	}
	return requireRowAffected(res)
}

func (s *Postgres) loadEvents(ctx context.Context, txID id.TransactionID) ([]models.CustodyEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT action, actor_id, lat, lon, note, ts, prev_hash, hash
		FROM custody_events WHERE transaction_id = $1
		ORDER BY seq ASC`,
		uuid.UUID(txID),
	)
	if err != nil {
		return nil, fmt.Errorf("load custody events: %w", err)
	}
	defer rows.Close()

	var out []models.CustodyEvent
	for rows.Next() {
		var (
			event   models.CustodyEvent
			action  string
			actorID uuid.UUID
		)
		err := rows.Scan(&action, &actorID, &event.Location.Lat, &event.Location.Lon,
			&event.Note, &event.Timestamp, &event.PrevHash, &event.Hash)
		if err != nil {
			return nil, fmt.Errorf("scan custody event row: %w", err)
		}
		event.Action = models.ActionKind(action)
		event.ActorID = id.ActorID(actorID)
		out = append(out, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load custody events: %w", err)
	}
	return out, nil
}

func insertEvent(ctx context.Context, dbTx *sql.Tx, txID id.TransactionID, seq int, event models.CustodyEvent) error {
	_, err := dbTx.ExecContext(ctx, `
		INSERT INTO custody_events (transaction_id, seq, action, actor_id, lat, lon, note, ts, prev_hash, hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		uuid.UUID(txID), seq, string(event.Action), uuid.UUID(event.ActorID),
		event.Location.Lat, event.Location.Lon, event.Note, event.Timestamp,
		event.PrevHash, event.Hash,
	)
	if err != nil {
		return fmt.Errorf("insert custody event: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
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

func scanTransaction(row rowScanner) (*models.Transaction, error) {
	var (
		tx          models.Transaction
		txID        uuid.UUID
		status      string
		diversionKm sql.NullFloat64
	)
	err := row.Scan(&txID, &tx.AssignedRegion, &tx.CurrentRegion, &status,
		&diversionKm, &tx.AlertTriggered, &tx.CreatedAt, &tx.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan transaction row: %w", err)
	}
	tx.ID = id.TransactionID(txID)
	tx.Status = models.TransactionStatus(status)
	if diversionKm.Valid {
		tx.DiversionKm = &diversionKm.Float64
	}
	return &tx, nil
}
