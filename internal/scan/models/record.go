// Package models defines the scan context's domain types.
package models

import (
	"time"

	id "chaintrace/pkg/domain"
)

// ContentType tags a decoded payload with its detected kind. The set is
// closed; Detect always returns exactly one of these.
type ContentType string

const (
	TypeStructuredJSON    ContentType = "structured-json"
	TypeLayeredPayload    ContentType = "layered-payload"
	TypeProductTracking   ContentType = "domain-specific-tracking"
	TypeLocator           ContentType = "locator"
	TypeContactEmail      ContentType = "contact-email"
	TypeTelephone         ContentType = "telephone"
	TypeShortMessage      ContentType = "short-message"
	TypeNetworkCredential ContentType = "network-credential"
	TypeContactCard       ContentType = "contact-card"
	TypeCalendarEvent     ContentType = "calendar-event"
	TypeGeoCoordinate     ContentType = "geocoordinate"
	TypeMarkup            ContentType = "markup"
	TypeGenericText       ContentType = "generic-text"
)

// ValidationStatus reflects type-specific completeness of an extracted
// record. Corrupted always wins: it is set iff extraction failed.
type ValidationStatus string

const (
	StatusValid      ValidationStatus = "valid"
	StatusInvalid    ValidationStatus = "invalid"
	StatusCorrupted  ValidationStatus = "corrupted"
	StatusIncomplete ValidationStatus = "incomplete"
	StatusPending    ValidationStatus = "pending"
)

// ErrorField is the key under which extraction failures are captured in the
// field mapping. Error states are data, not exceptions.
const ErrorField = "error"

// RawScan is the raw decoded payload as it left the camera decoder.
// Immutable once captured.
type RawScan struct {
	Content    string    `json:"content"`
	CapturedAt time.Time `json:"captured_at"`
}

// FieldMap is the normalized field mapping produced by extraction.
type FieldMap map[string]any

// HasError reports whether extraction captured a failure.
func (f FieldMap) HasError() bool {
	_, ok := f[ErrorField]
	return ok
}

// ParsedRecord is the classified, validated result of one scan.
//
// Invariants:
//   - Dimensionality >= 1
//   - Status == corrupted iff Fields carries the error key
//   - Never mutated after creation (status updates create a new row via the
//     store, the struct itself is treated as a value)
type ParsedRecord struct {
	ID             id.RecordID      `json:"id"`
	OwnerID        id.OwnerID       `json:"owner_id"`
	Type           ContentType      `json:"type"`
	Fields         FieldMap         `json:"fields"`
	Dimensionality int              `json:"dimensionality"`
	Status         ValidationStatus `json:"status"`
	CapturedAt     time.Time        `json:"captured_at"`
	CreatedAt      time.Time        `json:"created_at"`
}

// Finalized reports whether the record is ready for telemetry sync.
// Corrupted records never leave the device.
func (r *ParsedRecord) Finalized() bool {
	return r.Status == StatusValid || r.Status == StatusIncomplete
}
