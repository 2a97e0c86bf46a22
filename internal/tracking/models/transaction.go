// Package models defines custody tracking domain entities.
package models

import (
	"time"

	"chaintrace/internal/geo"
	id "chaintrace/pkg/domain"
)

// ActionKind identifies what a custody event records.
type ActionKind string

const (
	ActionPickup         ActionKind = "pickup"
	ActionDelivery       ActionKind = "delivery"
	ActionVerification   ActionKind = "verification"
	ActionLocationUpdate ActionKind = "location_update"
	ActionAlert          ActionKind = "alert"
)

// Valid reports whether k is a known action kind.
func (k ActionKind) Valid() bool {
	switch k {
	case ActionPickup, ActionDelivery, ActionVerification, ActionLocationUpdate, ActionAlert:
		return true
	}
	return false
}

// TransactionStatus is the shipment lifecycle state.
type TransactionStatus string

const (
	StatusPickedUp  TransactionStatus = "picked_up"
	StatusInTransit TransactionStatus = "in_transit"
	StatusDelivered TransactionStatus = "delivered"
	StatusDiverted  TransactionStatus = "diverted"
	StatusMissing   TransactionStatus = "missing"
)

// Valid reports whether s is a known status.
func (s TransactionStatus) Valid() bool {
	switch s {
	case StatusPickedUp, StatusInTransit, StatusDelivered, StatusDiverted, StatusMissing:
		return true
	}
	return false
}

// Terminal reports whether the transaction accepts no further events.
func (s TransactionStatus) Terminal() bool {
	return s == StatusDelivered || s == StatusDiverted
}

// ExternallyAssignable reports whether s may be set by an explicit status
// assignment rather than derived from events.
func (s TransactionStatus) ExternallyAssignable() bool {
	return s == StatusInTransit || s == StatusMissing
}

// CustodyEvent is one link of a transaction's hash chain. PrevHash is
// empty only for the chain head.
type CustodyEvent struct {
	Action    ActionKind `json:"action"`
	ActorID   id.ActorID `json:"actor_id"`
	Location  geo.Point  `json:"location"`
	Note      string     `json:"note,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
	PrevHash  string     `json:"prev_hash,omitempty"`
	Hash      string     `json:"hash"`
}

// Transaction is one tracked shipment. It is created by the pickup event
// and mutated only by appending events and recomputing derived state.
type Transaction struct {
	ID             id.TransactionID  `json:"id"`
	AssignedRegion string            `json:"assigned_region"`
	CurrentRegion  string            `json:"current_region"`
	Status         TransactionStatus `json:"status"`
	Events         []CustodyEvent    `json:"events"`
	DiversionKm    *float64          `json:"diversion_km,omitempty"`
	AlertTriggered bool              `json:"alert_triggered"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// Tail returns the last event in the chain, or nil for an empty chain.
func (t *Transaction) Tail() *CustodyEvent {
	if len(t.Events) == 0 {
		return nil
	}
	return &t.Events[len(t.Events)-1]
}
