// Package dispatch drives assignment attempts through their state machine:
// optimistic patch, remote call, reconciliation against the server's answer,
// best-effort background refresh. It is the only writer of the override
// store; the snapshot fetcher is the only writer of the cache; the merge
// engine reads both. That single-writer split keeps the merged view
// deterministic without cross-package locking.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"fleet-console/internal/common/logger"
	"fleet-console/internal/domain"
	"fleet-console/internal/fleetapi"
	"fleet-console/internal/ident"
	"fleet-console/internal/merge"
	"fleet-console/internal/override"
	"fleet-console/internal/snapshot"
)

// FailurePolicy says what happens to the optimistic override when the
// remote assign call fails. Keeping it is the default: the dispatcher who
// clicked "assign" sees the assignment hold, and the next snapshot corrects
// the view if the assignment truly did not take effect.
type FailurePolicy int

const (
	KeepOptimistic FailurePolicy = iota
	Rollback
)

func ParseFailurePolicy(s string) FailurePolicy {
	if s == "rollback" {
		return Rollback
	}
	return KeepOptimistic
}

// Assigner is the mutating side of the fleet API.
type Assigner interface {
	AssignOrder(ctx context.Context, orderID, riderID string) (domain.AssignResponse, error)
	AlertOrder(ctx context.Context, orderID, reason string) error
}

// EventPublisher pushes assignment lifecycle events to the broker.
// Satisfied by rabbitmq.Client; nil disables publishing.
type EventPublisher interface {
	Publish(ctx context.Context, key string, body []byte, correlationID string) error
}

// Result is what RequestAssignment hands back to the view that asked.
type Result struct {
	OrderID   string // canonical; from the response when confirmed
	RiderID   string
	Confirmed bool
}

type Coordinator struct {
	api       Assigner
	fetcher   *snapshot.Fetcher
	cache     *snapshot.Cache
	overrides *override.Store
	policy    FailurePolicy
	events    EventPublisher
	lg        *logger.Logger

	refreshEvery   time.Duration
	refreshTimeout time.Duration

	mu      sync.Mutex
	view    domain.MergedView
	subs    map[int]func(domain.MergedView)
	nextSub int

	reconciled chan struct{} // test hook; nil in production
}

func NewCoordinator(
	api Assigner,
	fetcher *snapshot.Fetcher,
	cache *snapshot.Cache,
	overrides *override.Store,
	policy FailurePolicy,
	events EventPublisher,
	refreshEvery time.Duration,
	lg *logger.Logger,
) *Coordinator {
	if refreshEvery <= 0 {
		refreshEvery = 15 * time.Second
	}
	return &Coordinator{
		api:            api,
		fetcher:        fetcher,
		cache:          cache,
		overrides:      overrides,
		policy:         policy,
		events:         events,
		lg:             lg,
		refreshEvery:   refreshEvery,
		refreshTimeout: 30 * time.Second,
		subs:           make(map[int]func(domain.MergedView)),
	}
}

// CurrentView returns the latest merged view.
func (c *Coordinator) CurrentView() domain.MergedView {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view
}

// Subscribe registers fn to be called on every merged-view change and
// returns a token for Unsubscribe. A view that is being torn down
// unsubscribes instead of cancelling anything in flight; results arriving
// afterwards are simply not delivered to it.
func (c *Coordinator) Subscribe(fn func(domain.MergedView)) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextSub++
	c.subs[c.nextSub] = fn
	return c.nextSub
}

func (c *Coordinator) Unsubscribe(id int) {
	c.mu.Lock()
	delete(c.subs, id)
	c.mu.Unlock()
}

// notify recomputes the merged view from the last good snapshot and fans it
// out to subscribers.
func (c *Coordinator) notify() {
	snap, _ := c.cache.Last()
	view := merge.Merge(snap, c.overrides)

	c.mu.Lock()
	c.view = view
	fns := make([]func(domain.MergedView), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(view)
	}
}

// RequestRefresh fetches a fresh snapshot and re-merges. The merged view is
// updated even when the fetch failed entirely, because the previous snapshot
// plus live overrides is still the best-known state.
func (c *Coordinator) RequestRefresh(ctx context.Context) error {
	_, err := c.fetcher.FetchAll(ctx)
	c.notify()
	return err
}

// RequestAssignment runs one assignment attempt end to end. The optimistic
// patch is visible in the merged view before the remote call is issued; the
// background reconciliation refresh never blocks the return.
func (c *Coordinator) RequestAssignment(ctx context.Context, orderID, riderID string) (Result, error) {
	reqOrder := ident.Order(orderID)
	reqRider := ident.Rider(riderID)
	a := newAttempt()

	// Init -> OptimisticApplied: synchronous, so the board updates at once.
	c.step(a, StateOptimisticApplied)
	c.overrides.Set(orderID, override.Patch{
		RiderID: riderID,
		Status:  domain.StatusAssigned,
	}, domain.ProvenanceOptimistic)
	c.notify()
	c.publish(ctx, domain.AssignmentEvent{
		Type:    domain.EventAssignmentRequested,
		OrderID: reqOrder,
		RiderID: reqRider,
	})

	c.step(a, StateAwaitingServer)
	resp, err := c.api.AssignOrder(ctx, orderID, riderID)
	if err != nil {
		c.step(a, StateFailed)
		c.lg.Warn("assignment_failed", map[string]any{
			"order_id": reqOrder, "rider_id": reqRider, "error": err.Error(),
		})
		if c.policy == Rollback {
			c.overrides.Clear(orderID)
			c.notify()
		}
		c.publish(ctx, domain.AssignmentEvent{
			Type:    domain.EventAssignmentFailed,
			OrderID: reqOrder,
			RiderID: reqRider,
			Reason:  err.Error(),
		})
		c.step(a, StateReconciling)
		c.reconcileAsync()
		c.step(a, StateDone)
		return Result{OrderID: reqOrder, RiderID: reqRider}, err
	}

	c.step(a, StateConfirmed)

	// The override moves under the canonical id of the *response*: the
	// server's casing/padding is authoritative over what we sent.
	c.overrides.Clear(reqOrder)
	status := resp.Status
	if status == "" {
		status = domain.StatusAssigned
	}
	c.overrides.Set(resp.OrderID, override.Patch{
		RiderID:    resp.RiderID,
		Status:     status,
		ETAMinutes: resp.ETAMinutes,
	}, domain.ProvenanceConfirmed)
	c.notify()

	confirmedOrder := ident.Order(resp.OrderID)
	confirmedRider := ident.Rider(resp.RiderID)
	c.lg.Info("assignment_confirmed", map[string]any{
		"order_id": confirmedOrder, "rider_id": confirmedRider,
	})
	c.publish(ctx, domain.AssignmentEvent{
		Type:    domain.EventAssignmentConfirmed,
		OrderID: confirmedOrder,
		RiderID: confirmedRider,
	})

	c.step(a, StateReconciling)
	c.reconcileAsync()
	c.step(a, StateDone)
	return Result{OrderID: confirmedOrder, RiderID: confirmedRider, Confirmed: true}, nil
}

// RequestAlert flags an order upstream and triggers a refresh once the call
// completes. Fire-and-refresh: not part of the assignment state machine.
func (c *Coordinator) RequestAlert(ctx context.Context, orderID, reason string) error {
	canonical := ident.Order(orderID)
	err := c.api.AlertOrder(ctx, orderID, reason)
	if err != nil {
		c.lg.Warn("alert_failed", map[string]any{"order_id": canonical, "error": err.Error()})
	} else {
		c.publish(ctx, domain.AssignmentEvent{
			Type:    domain.EventAlertRaised,
			OrderID: canonical,
			Reason:  reason,
		})
	}
	c.reconcileAsync()
	return err
}

// Run is the console session's refresh heartbeat: periodic FetchAll + merge
// until ctx is canceled. Individual cycle failures only log; the loop keeps
// the last good view on screen.
func (c *Coordinator) Run(ctx context.Context) error {
	if err := c.RequestRefresh(ctx); err != nil {
		c.lg.Warn("initial_refresh_failed", map[string]any{"error": err.Error()})
	}
	ticker := time.NewTicker(c.refreshEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := c.RequestRefresh(ctx); err != nil {
				c.lg.Warn("refresh_failed", map[string]any{"error": err.Error()})
			}
		}
	}
}

// reconcileAsync runs the post-assignment refresh without blocking the
// caller. Its errors are swallowed on purpose: the optimistic or confirmed
// override already represents the best-known state, and a failed refresh
// must never throw back into a completed assignment call.
func (c *Coordinator) reconcileAsync() {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.refreshTimeout)
		defer cancel()
		if _, err := c.fetcher.FetchAll(ctx); err != nil {
			c.lg.Warn("reconcile_refresh_failed", map[string]any{"error": err.Error()})
		}
		c.notify()
		if c.reconciled != nil {
			c.reconciled <- struct{}{}
		}
	}()
}

// step applies a transition that is legal by construction; a rejection here
// is a programming error worth a loud log line, not a caller-facing failure.
func (c *Coordinator) step(a *attempt, next State) {
	if err := a.to(next); err != nil {
		c.lg.Error("illegal_state_transition", err, map[string]any{"from": a.state.String()})
	}
}

// publish sends a lifecycle event to the broker. Best-effort by design.
func (c *Coordinator) publish(ctx context.Context, ev domain.AssignmentEvent) {
	if c.events == nil {
		return
	}
	ev.EventID = uuid.NewString()
	ev.OccurredAt = time.Now().UTC()
	body, err := json.Marshal(ev)
	if err != nil {
		return
	}
	if err := c.events.Publish(ctx, "assignment."+string(ev.Type), body, ev.OrderID); err != nil {
		c.lg.Warn("event_publish_failed", map[string]any{"type": string(ev.Type), "error": err.Error()})
	}
}

// IsValidationError reports whether err is the malformed-confirmation case,
// which views surface differently from transport trouble.
func IsValidationError(err error) bool {
	var ve *fleetapi.ValidationError
	return errors.As(err, &ve)
}
