package snapshot

import (
	"context"
	"errors"
	"testing"

	"fleet-console/internal/common/logger"
	"fleet-console/internal/domain"
)

// fakeFleetAPI lets each branch fail independently.
type fakeFleetAPI struct {
	orders  []domain.Order
	riders  []domain.Rider
	summary domain.DashboardSummary

	ordersErr  error
	ridersErr  error
	summaryErr error
}

func (f *fakeFleetAPI) GetOrders(ctx context.Context, _ domain.OrdersFilter) ([]domain.Order, error) {
	return f.orders, f.ordersErr
}

func (f *fakeFleetAPI) GetRiders(ctx context.Context) ([]domain.Rider, error) {
	return f.riders, f.ridersErr
}

func (f *fakeFleetAPI) GetSummary(ctx context.Context) (domain.DashboardSummary, error) {
	return f.summary, f.summaryErr
}

func testLogger() *logger.Logger { return logger.New("snapshot-test") }

func TestFetchAll_AllBranchesSucceed(t *testing.T) {
	api := &fakeFleetAPI{
		orders:  []domain.Order{{ID: "ORD-0001", Status: domain.StatusPending}},
		riders:  []domain.Rider{{ID: "RIDER-0001", Status: domain.RiderOnline}},
		summary: domain.DashboardSummary{TotalOrders: 1},
	}
	cache := NewCache()
	f := NewFetcher(api, cache, testLogger())

	snap, err := f.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(snap.Orders) != 1 || len(snap.Riders) != 1 || snap.Summary.TotalOrders != 1 {
		t.Errorf("snapshot incomplete: %+v", snap)
	}
	if _, ok := cache.Last(); !ok {
		t.Error("successful fetch should populate the cache")
	}
}

func TestFetchAll_FailedOrdersBranchFallsBack(t *testing.T) {
	api := &fakeFleetAPI{
		orders:  []domain.Order{{ID: "ORD-0001", Status: domain.StatusPending}},
		riders:  []domain.Rider{{ID: "RIDER-0001", Status: domain.RiderOnline}},
		summary: domain.DashboardSummary{TotalOrders: 1},
	}
	cache := NewCache()
	f := NewFetcher(api, cache, testLogger())
	if _, err := f.FetchAll(context.Background()); err != nil {
		t.Fatalf("seed fetch failed: %v", err)
	}

	// Orders endpoint goes down; riders and summary move on.
	api.ordersErr = errors.New("boom")
	api.riders = []domain.Rider{{ID: "RIDER-0001"}, {ID: "RIDER-0002"}}
	api.summary = domain.DashboardSummary{TotalOrders: 5}

	snap, err := f.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("partial failure must not fail the aggregate call: %v", err)
	}
	if len(snap.Orders) != 1 || snap.Orders[0].ID != "ORD-0001" {
		t.Errorf("orders should come from the previous snapshot, got %+v", snap.Orders)
	}
	if len(snap.Riders) != 2 {
		t.Errorf("riders should update despite the orders failure, got %d", len(snap.Riders))
	}
	if snap.Summary.TotalOrders != 5 {
		t.Errorf("summary should update despite the orders failure, got %+v", snap.Summary)
	}
}

func TestFetchAll_FailedBranchWithNoHistoryIsEmpty(t *testing.T) {
	api := &fakeFleetAPI{
		ordersErr: errors.New("boom"),
		riders:    []domain.Rider{{ID: "RIDER-0001"}},
	}
	f := NewFetcher(api, NewCache(), testLogger())

	snap, err := f.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.Orders == nil || len(snap.Orders) != 0 {
		t.Errorf("failed branch without history should be empty, not nil/populated: %+v", snap.Orders)
	}
}

func TestFetchAll_AllBranchesFailKeepLastGood(t *testing.T) {
	api := &fakeFleetAPI{
		orders: []domain.Order{{ID: "ORD-0001", Status: domain.StatusPending}},
	}
	cache := NewCache()
	f := NewFetcher(api, cache, testLogger())
	if _, err := f.FetchAll(context.Background()); err != nil {
		t.Fatalf("seed fetch failed: %v", err)
	}

	api.ordersErr = errors.New("down")
	api.ridersErr = errors.New("down")
	api.summaryErr = errors.New("down")

	snap, err := f.FetchAll(context.Background())
	if !errors.Is(err, ErrAllFetchesFailed) {
		t.Fatalf("expected ErrAllFetchesFailed, got %v", err)
	}
	if len(snap.Orders) != 1 {
		t.Error("caller should receive the last good snapshot alongside the error")
	}

	last, ok := cache.Last()
	if !ok || len(last.Orders) != 1 {
		t.Error("a fully failed fetch must not overwrite the cache")
	}
}
