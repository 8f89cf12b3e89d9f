// Package snapshot fans out the three independent board fetches (orders,
// riders, summary) and keeps the last good result. Stale data is preferred
// over empty data: one endpoint being down must not wipe a partially
// working board.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"fleet-console/internal/common/logger"
	"fleet-console/internal/domain"
)

// ErrAllFetchesFailed is returned when none of the three fetches succeeded.
// The caller keeps the last good snapshot and surfaces a connectivity error.
var ErrAllFetchesFailed = errors.New("all snapshot fetches failed")

// FleetReader is the read side of the fleet API the fetcher depends on.
type FleetReader interface {
	GetOrders(ctx context.Context, filter domain.OrdersFilter) ([]domain.Order, error)
	GetRiders(ctx context.Context) ([]domain.Rider, error)
	GetSummary(ctx context.Context) (domain.DashboardSummary, error)
}

// PartialFetchError records which branches of a FetchAll failed. It is
// logged, never surfaced per-field to consumers.
type PartialFetchError struct {
	Failed []string
	Errs   []error
}

func (e *PartialFetchError) Error() string {
	return fmt.Sprintf("partial snapshot fetch: %s failed", strings.Join(e.Failed, ", "))
}

// Cache holds the most recent good snapshot. Single writer: the Fetcher.
type Cache struct {
	mu   sync.RWMutex
	last domain.Snapshot
	has  bool
}

func NewCache() *Cache { return &Cache{} }

func (c *Cache) Last() (domain.Snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.last, c.has
}

func (c *Cache) store(s domain.Snapshot) {
	c.mu.Lock()
	c.last = s
	c.has = true
	c.mu.Unlock()
}

type Fetcher struct {
	api   FleetReader
	cache *Cache
	lg    *logger.Logger
	clock func() time.Time
}

func NewFetcher(api FleetReader, cache *Cache, lg *logger.Logger) *Fetcher {
	return &Fetcher{api: api, cache: cache, lg: lg, clock: time.Now}
}

// FetchAll issues the three fetches concurrently and joins them with
// per-branch failure isolation: a failed branch falls back to the previous
// snapshot's value for that field (or empty if none exists yet). The call
// succeeds if at least one branch succeeded; all three failing returns the
// previous snapshot together with ErrAllFetchesFailed.
func (f *Fetcher) FetchAll(ctx context.Context) (domain.Snapshot, error) {
	var (
		orders  []domain.Order
		riders  []domain.Rider
		summary domain.DashboardSummary

		ordersErr, ridersErr, summaryErr error
		wg                               sync.WaitGroup
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		orders, ordersErr = f.api.GetOrders(ctx, domain.OrdersFilter{})
	}()
	go func() {
		defer wg.Done()
		riders, ridersErr = f.api.GetRiders(ctx)
	}()
	go func() {
		defer wg.Done()
		summary, summaryErr = f.api.GetSummary(ctx)
	}()
	wg.Wait()

	prev, hasPrev := f.cache.Last()

	partial := &PartialFetchError{}
	if ordersErr != nil {
		partial.Failed = append(partial.Failed, "orders")
		partial.Errs = append(partial.Errs, ordersErr)
		if hasPrev {
			orders = prev.Orders
		} else {
			orders = []domain.Order{}
		}
	}
	if ridersErr != nil {
		partial.Failed = append(partial.Failed, "riders")
		partial.Errs = append(partial.Errs, ridersErr)
		if hasPrev {
			riders = prev.Riders
		} else {
			riders = []domain.Rider{}
		}
	}
	if summaryErr != nil {
		partial.Failed = append(partial.Failed, "summary")
		partial.Errs = append(partial.Errs, summaryErr)
		if hasPrev {
			summary = prev.Summary
		}
	}

	if len(partial.Failed) == 3 {
		f.lg.Error("snapshot_fetch_failed", ErrAllFetchesFailed, map[string]any{
			"orders_err":  ordersErr.Error(),
			"riders_err":  ridersErr.Error(),
			"summary_err": summaryErr.Error(),
		})
		return prev, ErrAllFetchesFailed
	}

	snap := domain.Snapshot{
		Orders:    orders,
		Riders:    riders,
		Summary:   summary,
		FetchedAt: f.clock().UTC(),
	}
	f.cache.store(snap)

	if len(partial.Failed) > 0 {
		f.lg.Warn("snapshot_fetch_partial", map[string]any{"failed": partial.Failed, "detail": partial.Error()})
	}
	return snap, nil
}
