// Package domain defines shared domain primitives: typed identifiers and
// closed value sets used across bounded contexts.
//
// Typed IDs are distinct named types over uuid.UUID so a RecordID can never
// be passed where a TransactionID is expected. Parsing enforces validity at
// trust boundaries (HTTP handlers, store rows).
package domain

import (
	"github.com/google/uuid"

	dErrors "chaintrace/pkg/domain-errors"
)

// RecordID identifies a parsed scan record.
type RecordID uuid.UUID

// TransactionID identifies a shipment transaction and its custody chain.
type TransactionID uuid.UUID

// ActorID identifies the party responsible for a custody event.
type ActorID uuid.UUID

// OwnerID identifies the owner of scan records (device or account).
type OwnerID uuid.UUID

func (id RecordID) String() string      { return uuid.UUID(id).String() }
func (id TransactionID) String() string { return uuid.UUID(id).String() }
func (id ActorID) String() string       { return uuid.UUID(id).String() }
func (id OwnerID) String() string       { return uuid.UUID(id).String() }

func (id RecordID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id TransactionID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id ActorID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }
func (id OwnerID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }

// NewRecordID returns a fresh random record ID.
func NewRecordID() RecordID { return RecordID(uuid.New()) }

// NewTransactionID returns a fresh random transaction ID.
func NewTransactionID() TransactionID { return TransactionID(uuid.New()) }

// NewActorID returns a fresh random actor ID.
func NewActorID() ActorID { return ActorID(uuid.New()) }

// NewOwnerID returns a fresh random owner ID.
func NewOwnerID() OwnerID { return OwnerID(uuid.New()) }

// ParseRecordID validates and converts a string into a RecordID.
func ParseRecordID(s string) (RecordID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return RecordID{}, err
	}
	return RecordID(u), nil
}

// ParseTransactionID validates and converts a string into a TransactionID.
func ParseTransactionID(s string) (TransactionID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return TransactionID{}, err
	}
	return TransactionID(u), nil
}

// ParseActorID validates and converts a string into an ActorID.
func ParseActorID(s string) (ActorID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return ActorID{}, err
	}
	return ActorID(u), nil
}

// ParseOwnerID validates and converts a string into an OwnerID.
func ParseOwnerID(s string) (OwnerID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return OwnerID{}, err
	}
	return OwnerID(u), nil
}

// parseUUID rejects empty strings, malformed UUIDs, and the nil UUID.
// IDs must be valid, non-empty, non-nil UUIDs.
func parseUUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must be a valid UUID")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must not be the nil UUID")
	}
	return u, nil
}
