// Package store provides transaction persistence: an in-memory
// implementation for development and tests, and a PostgreSQL
// implementation for production.
package store

import (
	"context"
	"sort"
	"sync"

	"chaintrace/internal/tracking/models"
	id "chaintrace/pkg/domain"
	"chaintrace/pkg/platform/sentinel"
)

// InMemory keeps transactions in a mutex-guarded map.
type InMemory struct {
	mu           sync.RWMutex
	transactions map[id.TransactionID]*models.Transaction
}

// NewInMemory builds an empty in-memory transaction store.
func NewInMemory() *InMemory {
	return &InMemory{transactions: make(map[id.TransactionID]*models.Transaction)}
}

func cloneTransaction(t *models.Transaction) *models.Transaction {
	clone := *t
	clone.Events = make([]models.CustodyEvent, len(t.Events))
	copy(clone.Events, t.Events)
	if t.DiversionKm != nil {
		km := *t.DiversionKm
		clone.DiversionKm = &km
	}
	return &clone
}

// Create stores a new transaction. Creating an existing ID is a conflict.
func (s *InMemory) Create(ctx context.Context, tx *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.transactions[tx.ID]; exists {
		return sentinel.ErrConflict
	}
	s.transactions[tx.ID] = cloneTransaction(tx)
	return nil
}

// Find returns one transaction with its full event chain.
func (s *InMemory) Find(ctx context.Context, txID id.TransactionID) (*models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tx, ok := s.transactions[txID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneTransaction(tx), nil
}

// List returns all transactions ordered most recent first.
func (s *InMemory) List(ctx context.Context) ([]*models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Transaction, 0, len(s.transactions))
	for _, tx := range s.transactions {
		out = append(out, cloneTransaction(tx))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// ListActive returns non-terminal transactions ordered most recent first.
func (s *InMemory) ListActive(ctx context.Context) ([]*models.Transaction, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	active := all[:0]
	for _, tx := range all {
		if !tx.Status.Terminal() {
			active = append(active, tx)
		}
	}
	return active, nil
}

// Append persists a new tail event together with the transaction state
// derived from it. The two writes are atomic.
func (s *InMemory) Append(ctx context.Context, tx *models.Transaction, event models.CustodyEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.transactions[tx.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	stored.Events = append(stored.Events, event)
	stored.Status = tx.Status
	stored.CurrentRegion = tx.CurrentRegion
	stored.AlertTriggered = tx.AlertTriggered
	stored.UpdatedAt = tx.UpdatedAt
	if tx.DiversionKm != nil {
		km := *tx.DiversionKm
		stored.DiversionKm = &km
	}
	return nil
}

// UpdateStatus sets an externally assigned status.
func (s *InMemory) UpdateStatus(ctx context.Context, txID id.TransactionID, status models.TransactionStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.transactions[txID]
	if !ok {
		return sentinel.ErrNotFound
	}
	tx.Status = status
	return nil
}
