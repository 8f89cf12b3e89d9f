package override

import (
	"testing"
	"time"

	"fleet-console/internal/domain"
)

func newTestStore() *Store {
	s := NewStore()
	s.clock = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }
	return s
}

func TestSet_NormalizesAndReplaces(t *testing.T) {
	s := newTestStore()
	s.Set("ord-7", Patch{RiderID: "r2", Status: domain.StatusAssigned}, domain.ProvenanceOptimistic)
	s.Set("ORD-0007", Patch{RiderID: "r3", Status: domain.StatusAssigned}, domain.ProvenanceConfirmed)

	if s.Len() != 1 {
		t.Fatalf("expected 1 override after replace, got %d", s.Len())
	}
	ov, ok := s.Get("ORD-7")
	if !ok {
		t.Fatal("override not found under equivalent spelling")
	}
	if ov.RiderID != "RIDER-0003" {
		t.Errorf("last writer should win: got rider %q", ov.RiderID)
	}
	if ov.Provenance != domain.ProvenanceConfirmed {
		t.Errorf("expected confirmed provenance, got %q", ov.Provenance)
	}
}

func TestGet_EverySpellingFindsSameEntry(t *testing.T) {
	s := newTestStore()
	s.Set("ORD-0031", Patch{RiderID: "RIDER-1", Status: domain.StatusAssigned}, domain.ProvenanceOptimistic)

	for _, spelling := range []string{"ord-31", "ORD-31", "ORD-0031", "Ord-031"} {
		if _, ok := s.Get(spelling); !ok {
			t.Errorf("Get(%q) should find the override", spelling)
		}
	}
}

func TestClear(t *testing.T) {
	s := newTestStore()
	s.Set("ord-7", Patch{RiderID: "r2", Status: domain.StatusAssigned}, domain.ProvenanceOptimistic)
	s.Clear("ORD-7")
	if s.Len() != 0 {
		t.Fatal("Clear under an equivalent spelling should remove the override")
	}
}

func TestReconcile_ServerWins(t *testing.T) {
	s := newTestStore()
	s.Set("ORD-0007", Patch{RiderID: "RIDER-0002", Status: domain.StatusAssigned}, domain.ProvenanceConfirmed)

	server := domain.Order{ID: "ORD-0007", Status: domain.StatusAssigned, RiderID: "RIDER-0009"}
	got := s.ReconcileAgainst(server)

	if got.RiderID != "RIDER-0009" {
		t.Errorf("non-null differing server rider must win, got %q", got.RiderID)
	}
	if s.Len() != 0 {
		t.Error("divergent override should be discarded")
	}
}

func TestReconcile_NullServerRiderPreservesOverride(t *testing.T) {
	s := newTestStore()
	s.Set("ORD-0007", Patch{RiderID: "RIDER-0002", Status: domain.StatusAssigned}, domain.ProvenanceConfirmed)

	server := domain.Order{ID: "ORD-0007", Status: domain.StatusPending}
	got := s.ReconcileAgainst(server)

	if got.RiderID != "RIDER-0002" {
		t.Errorf("null server rider must not unassign, got %q", got.RiderID)
	}
	if got.Status != domain.StatusAssigned {
		t.Errorf("override status should merge on top, got %q", got.Status)
	}
	if s.Len() != 1 {
		t.Error("override must be kept while the server still reports no rider")
	}
}

func TestReconcile_EqualRiderRetiresOverride(t *testing.T) {
	s := newTestStore()
	eta := 12
	s.Set("ORD-0007", Patch{RiderID: "RIDER-0002", Status: domain.StatusAssigned, ETAMinutes: &eta}, domain.ProvenanceConfirmed)

	server := domain.Order{ID: "ORD-0007", Status: domain.StatusAssigned, RiderID: "RIDER-0002"}
	got := s.ReconcileAgainst(server)

	if got.ETAMinutes == nil || *got.ETAMinutes != 12 {
		t.Error("override eta should merge one last time")
	}
	if s.Len() != 0 {
		t.Error("override should be retired once the snapshot shows the same rider")
	}
}

func TestReconcile_ServerRiderSpellingIsNormalized(t *testing.T) {
	s := newTestStore()
	s.Set("ORD-0007", Patch{RiderID: "RIDER-0002", Status: domain.StatusAssigned}, domain.ProvenanceConfirmed)

	// "r2" and "RIDER-0002" denote the same rider; this is agreement, not conflict.
	server := domain.Order{ID: "ord-7", Status: domain.StatusAssigned, RiderID: "r2"}
	got := s.ReconcileAgainst(server)

	if got.RiderID != "RIDER-0002" {
		t.Errorf("equivalent spellings must not trigger server-wins, got %q", got.RiderID)
	}
	if s.Len() != 0 {
		t.Error("agreement should retire the override")
	}
}

func TestReconcile_NoOverridePassesThrough(t *testing.T) {
	s := newTestStore()
	server := domain.Order{ID: "ORD-0001", Status: domain.StatusPending}
	if got := s.ReconcileAgainst(server); got.Status != domain.StatusPending {
		t.Errorf("order without override must pass through unchanged, got %q", got.Status)
	}
}
