package domain

import (
	"testing"
	"time"
)

func intp(v int) *int { return &v }

func TestOrderValidate(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name    string
		order   Order
		wantErr bool
	}{
		{
			name:  "pending without rider",
			order: Order{ID: "ORD-0001", Status: StatusPending},
		},
		{
			name:  "assigned with rider",
			order: Order{ID: "ORD-0001", Status: StatusAssigned, RiderID: "RIDER-0001", ETAMinutes: intp(20)},
		},
		{
			name:    "pending must not carry a rider",
			order:   Order{ID: "ORD-0001", Status: StatusPending, RiderID: "RIDER-0001"},
			wantErr: true,
		},
		{
			name:    "non-pending must carry a rider",
			order:   Order{ID: "ORD-0001", Status: StatusInTransit},
			wantErr: true,
		},
		{
			name:    "negative eta",
			order:   Order{ID: "ORD-0001", Status: StatusAssigned, RiderID: "RIDER-0001", ETAMinutes: intp(-5)},
			wantErr: true,
		},
		{
			name: "non-decreasing timeline",
			order: Order{
				ID: "ORD-0001", Status: StatusDelivered, RiderID: "RIDER-0001",
				Timeline: []TimelineEntry{
					{Status: StatusPending, Timestamp: base},
					{Status: StatusAssigned, Timestamp: base.Add(time.Minute)},
					{Status: StatusDelivered, Timestamp: base.Add(time.Minute)},
				},
			},
		},
		{
			name: "timeline going backwards",
			order: Order{
				ID: "ORD-0001", Status: StatusDelivered, RiderID: "RIDER-0001",
				Timeline: []TimelineEntry{
					{Status: StatusAssigned, Timestamp: base.Add(time.Minute)},
					{Status: StatusPending, Timestamp: base},
				},
			},
			wantErr: true,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.order.Validate()
			if tc.wantErr && err == nil {
				t.Fatal("expected error, got nil")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestOrderStatusValid(t *testing.T) {
	for _, s := range []OrderStatus{
		StatusPending, StatusAssigned, StatusPickedUp, StatusInTransit,
		StatusDelivered, StatusDelayed, StatusRTO, StatusReturned,
	} {
		if !s.Valid() {
			t.Errorf("%s should be valid", s)
		}
	}
	for _, s := range []OrderStatus{"", "exploded", "PENDING", "in transit"} {
		if s.Valid() {
			t.Errorf("%q should not be valid", s)
		}
	}
}
