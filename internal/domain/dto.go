package domain

// AssignRequest is the body the console sends to the fleet API.
type AssignRequest struct {
	OrderID string `json:"order_id"`
	RiderID string `json:"rider_id"`
}

// AssignResponse is the fleet API's confirmation. OrderID and RiderID are
// authoritative: the server's casing/padding wins over whatever the console
// sent. A 2xx body missing either id is not a valid confirmation.
type AssignResponse struct {
	OrderID    string      `json:"order_id"`
	RiderID    string      `json:"rider_id"`
	RiderName  string      `json:"rider_name,omitempty"`
	Status     OrderStatus `json:"status"`
	ETAMinutes *int        `json:"eta_minutes,omitempty"`
}

type AlertRequest struct {
	OrderID string `json:"order_id"`
	Reason  string `json:"reason"`
}

// OrdersFilter narrows GetOrders. Zero value means "everything".
type OrdersFilter struct {
	Status  OrderStatus `json:"status,omitempty"`
	RiderID string      `json:"rider_id,omitempty"`
}
