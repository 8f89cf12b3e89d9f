// Package merge combines the latest snapshot with the override store into
// the single view consumers read. The merge never invents an order: entries
// that exist only as overrides are not synthesized, and a momentarily empty
// order list is repaired upstream by the snapshot cache, not here.
package merge

import (
	"sort"
	"time"

	"fleet-console/internal/domain"
	"fleet-console/internal/ident"
	"fleet-console/internal/override"
)

// Merge reconciles every snapshot order against the override store and
// returns the merged view. Snapshot ordering is preserved; ids are re-emitted
// in canonical form so consumers key on one spelling only.
func Merge(snap domain.Snapshot, overrides *override.Store) domain.MergedView {
	orders := make([]domain.Order, 0, len(snap.Orders))
	for _, o := range snap.Orders {
		merged := overrides.ReconcileAgainst(o)
		merged.ID = ident.Order(merged.ID)
		merged.RiderID = ident.Rider(merged.RiderID)
		orders = append(orders, merged)
	}

	riders := make([]domain.Rider, 0, len(snap.Riders))
	for _, r := range snap.Riders {
		r.ID = ident.Rider(r.ID)
		if r.CurrentOrderID != "" {
			r.CurrentOrderID = ident.Order(r.CurrentOrderID)
		}
		riders = append(riders, r)
	}

	return domain.MergedView{
		Orders:      orders,
		Riders:      riders,
		Summary:     snap.Summary,
		GeneratedAt: time.Now().UTC(),
	}
}

// SortByETA reorders the view's orders by ascending eta. Orders without an
// eta sort last; ties keep snapshot order.
func SortByETA(view domain.MergedView) domain.MergedView {
	sorted := make([]domain.Order, len(view.Orders))
	copy(sorted, view.Orders)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].ETAMinutes, sorted[j].ETAMinutes
		if a == nil {
			return false
		}
		if b == nil {
			return true
		}
		return *a < *b
	})
	view.Orders = sorted
	return view
}
