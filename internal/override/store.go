// Package override holds the transient local patches produced by in-flight
// or recently confirmed assignments. The store is constructed once per
// console session and passed by reference; there are no package-level
// globals. Only the assignment coordinator writes to it.
package override

import (
	"sync"
	"time"

	"fleet-console/internal/domain"
	"fleet-console/internal/ident"
)

// Patch is the writable subset of an order: rider, status, optionally eta.
type Patch struct {
	RiderID    string
	Status     domain.OrderStatus
	ETAMinutes *int
}

type Store struct {
	mu        sync.RWMutex
	overrides map[string]domain.Override // canonical order id -> override
	clock     func() time.Time
}

func NewStore() *Store {
	return &Store{
		overrides: make(map[string]domain.Override),
		clock:     time.Now,
	}
}

// Set stores or replaces the override for orderID. At most one override
// exists per order: a second write for the same order supersedes the first
// (local last-writer-wins, by call order).
func (s *Store) Set(orderID string, patch Patch, provenance domain.Provenance) domain.Override {
	canonical := ident.Order(orderID)
	ov := domain.Override{
		OrderID:    canonical,
		RiderID:    ident.Rider(patch.RiderID),
		Status:     patch.Status,
		ETAMinutes: patch.ETAMinutes,
		Provenance: provenance,
		CreatedAt:  s.clock(),
	}
	s.mu.Lock()
	s.overrides[canonical] = ov
	s.mu.Unlock()
	return ov
}

// Get looks up the override under the canonical form of orderID, so any
// accepted spelling the caller happens to hold finds the same entry.
func (s *Store) Get(orderID string) (domain.Override, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ov, ok := s.overrides[ident.Order(orderID)]
	return ov, ok
}

func (s *Store) Clear(orderID string) {
	s.mu.Lock()
	delete(s.overrides, ident.Order(orderID))
	s.mu.Unlock()
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.overrides)
}

// ReconcileAgainst resolves the override for serverOrder, if any, against the
// freshly fetched server state and returns the order the merged view should
// show. The policy:
//
//   - A non-null server rider id that differs from the override's outranks
//     it: the server reflects either this assignment having round-tripped or
//     a newer operator action, so the stale override is discarded.
//   - A null server rider id never unassigns: a fetch that race-lags a
//     just-confirmed assignment must not visually revert it, so the
//     override's fields are merged on top.
//   - An equal non-null rider id means the snapshot caught up; the override
//     merges once more (it may still carry a fresher eta) and is retired.
func (s *Store) ReconcileAgainst(serverOrder domain.Order) domain.Order {
	canonical := ident.Order(serverOrder.ID)

	s.mu.Lock()
	defer s.mu.Unlock()

	ov, ok := s.overrides[canonical]
	if !ok {
		return serverOrder
	}

	serverRider := ident.Rider(serverOrder.RiderID)
	if serverRider != "" && serverRider != ov.RiderID {
		// Server wins.
		delete(s.overrides, canonical)
		return serverOrder
	}

	merged := serverOrder
	if ov.RiderID != "" {
		merged.RiderID = ov.RiderID
	}
	if ov.Status != "" {
		merged.Status = ov.Status
	}
	if ov.ETAMinutes != nil {
		merged.ETAMinutes = ov.ETAMinutes
	}

	if serverRider != "" && serverRider == ov.RiderID {
		// Snapshot caught up; the override has served its purpose.
		delete(s.overrides, canonical)
	}
	return merged
}
