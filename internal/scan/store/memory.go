// Package store provides record persistence: an in-memory implementation
// for development and tests, and a PostgreSQL implementation for
// production.
package store

import (
	"context"
	"sort"
	"sync"

	"chaintrace/internal/scan/models"
	id "chaintrace/pkg/domain"
	"chaintrace/pkg/platform/sentinel"
)

// InMemory keeps records in a mutex-guarded map.
type InMemory struct {
	mu      sync.RWMutex
	records map[id.RecordID]*models.ParsedRecord
}

// NewInMemory builds an empty in-memory record store.
func NewInMemory() *InMemory {
	return &InMemory{records: make(map[id.RecordID]*models.ParsedRecord)}
}

// Insert stores a new record. Inserting an existing ID is a conflict.
func (s *InMemory) Insert(ctx context.Context, record *models.ParsedRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[record.ID]; exists {
		return sentinel.ErrConflict
	}
	clone := *record
	s.records[record.ID] = &clone
	return nil
}

// ListByOwner returns the owner's records ordered most recent first.
func (s *InMemory) ListByOwner(ctx context.Context, owner id.OwnerID) ([]*models.ParsedRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.ParsedRecord
	for _, record := range s.records {
		if record.OwnerID == owner {
			clone := *record
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// UpdateStatus assigns a new validation status to an existing record.
func (s *InMemory) UpdateStatus(ctx context.Context, recordID id.RecordID, status models.ValidationStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[recordID]
	if !ok {
		return sentinel.ErrNotFound
	}
	record.Status = status
	return nil
}

// Delete removes a record.
func (s *InMemory) Delete(ctx context.Context, recordID id.RecordID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[recordID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.records, recordID)
	return nil
}
