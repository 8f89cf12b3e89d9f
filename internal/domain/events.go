package domain

import "time"

type AssignmentEventType string

const (
	EventAssignmentRequested AssignmentEventType = "requested"
	EventAssignmentConfirmed AssignmentEventType = "confirmed"
	EventAssignmentFailed    AssignmentEventType = "failed"
	EventAlertRaised         AssignmentEventType = "alert"
)

// AssignmentEvent is published to the dispatch_events exchange for every
// lifecycle step of an assignment attempt. Best-effort: a publish failure
// never fails the assignment itself.
type AssignmentEvent struct {
	EventID    string              `json:"event_id"`
	Type       AssignmentEventType `json:"type"`
	OrderID    string              `json:"order_id"`
	RiderID    string              `json:"rider_id,omitempty"`
	Reason     string              `json:"reason,omitempty"`
	OccurredAt time.Time           `json:"occurred_at"`
}
