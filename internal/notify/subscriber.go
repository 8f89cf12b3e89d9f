// Package notify is the notification subscriber: it drains the dispatch
// events queue and turns assignment lifecycle events into operator-facing
// log lines. Anything that cannot be decoded is acknowledged and dropped.
package notify

import (
	"context"
	"encoding/json"

	"fleet-console/internal/common/logger"
	"fleet-console/internal/connections/rabbitmq"
	"fleet-console/internal/domain"
)

type Subscriber struct {
	mq *rabbitmq.Client
	lg *logger.Logger
}

func NewSubscriber(mq *rabbitmq.Client, lg *logger.Logger) *Subscriber {
	return &Subscriber{mq: mq, lg: lg}
}

// Run consumes until the context is cancelled or the delivery channel closes.
func (s *Subscriber) Run(ctx context.Context) error {
	deliveries, err := s.mq.Consume("notification-subscriber")
	if err != nil {
		return err
	}
	s.lg.Info("subscriber_started", map[string]any{"queue": rabbitmq.NotificationQueue})

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-deliveries:
			if !ok {
				s.lg.Warn("delivery_channel_closed", nil)
				return nil
			}
			s.handle(msg.RoutingKey, msg.Body)
		}
	}
}

func (s *Subscriber) handle(key string, body []byte) {
	var ev domain.AssignmentEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		s.lg.Warn("event_undecodable", map[string]any{"routing_key": key, "bytes": len(body)})
		return
	}

	fields := map[string]any{
		"event_id": ev.EventID,
		"order_id": ev.OrderID,
		"rider_id": ev.RiderID,
	}
	switch ev.Type {
	case domain.EventAssignmentRequested:
		s.lg.Info("assignment_requested", fields)
	case domain.EventAssignmentConfirmed:
		s.lg.Info("assignment_confirmed", fields)
	case domain.EventAssignmentFailed:
		fields["reason"] = ev.Reason
		s.lg.Warn("assignment_failed", fields)
	case domain.EventAlertRaised:
		fields["reason"] = ev.Reason
		s.lg.Warn("order_alert", fields)
	default:
		fields["type"] = string(ev.Type)
		s.lg.Debug("event_ignored", fields)
	}
}
