package domain

import (
	"errors"
	"time"
)

type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusAssigned  OrderStatus = "assigned"
	StatusPickedUp  OrderStatus = "picked_up"
	StatusInTransit OrderStatus = "in_transit"
	StatusDelivered OrderStatus = "delivered"
	StatusDelayed   OrderStatus = "delayed"
	StatusRTO       OrderStatus = "rto"
	StatusReturned  OrderStatus = "returned"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case StatusPending, StatusAssigned, StatusPickedUp, StatusInTransit,
		StatusDelivered, StatusDelayed, StatusRTO, StatusReturned:
		return true
	}
	return false
}

type RiderStatus string

const (
	RiderOnline  RiderStatus = "online"
	RiderOffline RiderStatus = "offline"
	RiderBusy    RiderStatus = "busy"
	RiderIdle    RiderStatus = "idle"
)

type Location struct {
	Address string `json:"address"`
	Area    string `json:"area,omitempty"`
}

type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type OrderItem struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// TimelineEntry is one row of an order's append-only status history.
// Entries are non-decreasing in Timestamp.
type TimelineEntry struct {
	Status    OrderStatus `json:"status"`
	Timestamp time.Time   `json:"timestamp"`
	Note      string      `json:"note,omitempty"`
}

type Order struct {
	ID           string          `json:"id"`
	Status       OrderStatus     `json:"status"`
	RiderID      string          `json:"rider_id,omitempty"` // empty = unassigned
	ETAMinutes   *int            `json:"eta_minutes,omitempty"`
	SLADeadline  time.Time       `json:"sla_deadline"`
	Pickup       Location        `json:"pickup"`
	Drop         Location        `json:"drop"`
	CustomerName string          `json:"customer_name"`
	Items        []OrderItem     `json:"items,omitempty"`
	Timeline     []TimelineEntry `json:"timeline,omitempty"`
}

// Validate checks the rider/status invariant: a rider is present
// if and only if the order has left "pending".
func (o Order) Validate() error {
	if o.Status == StatusPending && o.RiderID != "" {
		return errors.New("pending order must not carry a rider")
	}
	if o.Status != StatusPending && o.RiderID == "" {
		return errors.New("non-pending order must carry a rider")
	}
	if o.ETAMinutes != nil && *o.ETAMinutes < 0 {
		return errors.New("eta minutes must be non-negative")
	}
	for i := 1; i < len(o.Timeline); i++ {
		if o.Timeline[i].Timestamp.Before(o.Timeline[i-1].Timestamp) {
			return errors.New("timeline timestamps must be non-decreasing")
		}
	}
	return nil
}

type Capacity struct {
	CurrentLoad int `json:"current_load"`
	MaxLoad     int `json:"max_load"`
}

type Rider struct {
	ID             string      `json:"id"`
	Name           string      `json:"name"`
	Status         RiderStatus `json:"status"`
	CurrentOrderID string      `json:"current_order_id,omitempty"`
	Location       *LatLng     `json:"location,omitempty"`
	Capacity       Capacity    `json:"capacity"`
	AvgEtaMinutes  int         `json:"avg_eta_minutes"`
	Rating         float64     `json:"rating"`
}

// DashboardSummary carries the aggregate counters shown on the board header.
// It is not load-bearing for reconciliation.
type DashboardSummary struct {
	TotalOrders     int `json:"total_orders"`
	ActiveOrders    int `json:"active_orders"`
	DelayedOrders   int `json:"delayed_orders"`
	DeliveredToday  int `json:"delivered_today"`
	RidersOnline    int `json:"riders_online"`
	AvgDeliveryMins int `json:"avg_delivery_mins"`
}

// Snapshot is the most recent successfully fetched orders/riders/summary
// triple. A branch that failed to fetch keeps the previous snapshot's value.
type Snapshot struct {
	Orders    []Order          `json:"orders"`
	Riders    []Rider          `json:"riders"`
	Summary   DashboardSummary `json:"summary"`
	FetchedAt time.Time        `json:"fetched_at"`
}

// MergedView is what view consumers read: the snapshot with pending
// overrides reconciled on top.
type MergedView struct {
	Orders      []Order          `json:"orders"`
	Riders      []Rider          `json:"riders"`
	Summary     DashboardSummary `json:"summary"`
	GeneratedAt time.Time        `json:"generated_at"`
}

// OrderByID is a convenience lookup used by the detail view.
func (v MergedView) OrderByID(id string) (Order, bool) {
	for _, o := range v.Orders {
		if o.ID == id {
			return o, true
		}
	}
	return Order{}, false
}

type Provenance string

const (
	ProvenanceOptimistic Provenance = "optimistic"
	ProvenanceConfirmed  Provenance = "confirmed"
)

// Override is a transient local patch to one order, applied the instant a
// dispatcher assigns a rider and held until the server catches up.
type Override struct {
	OrderID    string      `json:"order_id"` // canonical
	RiderID    string      `json:"rider_id"` // canonical
	Status     OrderStatus `json:"status"`
	ETAMinutes *int        `json:"eta_minutes,omitempty"`
	Provenance Provenance  `json:"provenance"`
	CreatedAt  time.Time   `json:"created_at"`
}
