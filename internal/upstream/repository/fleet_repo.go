package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fleet-console/internal/domain"
)

type FleetRepoInterface interface {
	ListOrders(ctx context.Context, status, riderID string) ([]domain.Order, error)
	GetOrder(ctx context.Context, id string) (domain.Order, bool, error)
	ListRiders(ctx context.Context) ([]domain.Rider, error)
	GetRider(ctx context.Context, id string) (domain.Rider, bool, error)
	Summary(ctx context.Context) (domain.DashboardSummary, error)
	AssignRider(ctx context.Context, orderID, riderID string, etaMinutes int) (int64, error)
	AppendTimeline(ctx context.Context, orderID string, status domain.OrderStatus, note string) error
}

type FleetRepo struct {
	db *pgxpool.Pool
}

func NewFleetRepo(db *pgxpool.Pool) *FleetRepo { return &FleetRepo{db: db} }

func (r *FleetRepo) ListOrders(ctx context.Context, status, riderID string) ([]domain.Order, error) {
	query := `
SELECT id, status, COALESCE(rider_id, ''), eta_minutes, sla_deadline,
       pickup_address, drop_address, customer_name
FROM orders
WHERE ($1 = '' OR status = $1)
  AND ($2 = '' OR rider_id = $2)
ORDER BY sla_deadline`
	rows, err := r.db.Query(ctx, query, status, riderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func (r *FleetRepo) GetOrder(ctx context.Context, id string) (domain.Order, bool, error) {
	row := r.db.QueryRow(ctx, `
SELECT id, status, COALESCE(rider_id, ''), eta_minutes, sla_deadline,
       pickup_address, drop_address, customer_name
FROM orders WHERE id = $1`, id)

	o, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Order{}, false, nil
	}
	if err != nil {
		return domain.Order{}, false, err
	}

	timeline, err := r.timeline(ctx, id)
	if err != nil {
		return domain.Order{}, false, err
	}
	o.Timeline = timeline
	return o, true, nil
}

func (r *FleetRepo) timeline(ctx context.Context, orderID string) ([]domain.TimelineEntry, error) {
	rows, err := r.db.Query(ctx, `
SELECT status, occurred_at, COALESCE(note, '')
FROM order_timeline WHERE order_id = $1 ORDER BY occurred_at`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load timeline: %w", err)
	}
	defer rows.Close()

	var entries []domain.TimelineEntry
	for rows.Next() {
		var e domain.TimelineEntry
		var status string
		if err := rows.Scan(&status, &e.Timestamp, &e.Note); err != nil {
			return nil, err
		}
		e.Status = domain.OrderStatus(status)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *FleetRepo) ListRiders(ctx context.Context) ([]domain.Rider, error) {
	rows, err := r.db.Query(ctx, `
SELECT id, name, status, COALESCE(current_order_id, ''), lat, lng,
       current_load, max_load, avg_eta_minutes, rating
FROM riders ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list riders: %w", err)
	}
	defer rows.Close()

	var riders []domain.Rider
	for rows.Next() {
		rd, err := scanRider(rows)
		if err != nil {
			return nil, err
		}
		riders = append(riders, rd)
	}
	return riders, rows.Err()
}

func (r *FleetRepo) GetRider(ctx context.Context, id string) (domain.Rider, bool, error) {
	row := r.db.QueryRow(ctx, `
SELECT id, name, status, COALESCE(current_order_id, ''), lat, lng,
       current_load, max_load, avg_eta_minutes, rating
FROM riders WHERE id = $1`, id)

	rd, err := scanRider(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Rider{}, false, nil
	}
	if err != nil {
		return domain.Rider{}, false, err
	}
	return rd, true, nil
}

func (r *FleetRepo) Summary(ctx context.Context) (domain.DashboardSummary, error) {
	var s domain.DashboardSummary
	err := r.db.QueryRow(ctx, `
SELECT COUNT(*),
       COUNT(*) FILTER (WHERE status NOT IN ('delivered', 'returned', 'rto')),
       COUNT(*) FILTER (WHERE status = 'delayed'),
       COUNT(*) FILTER (WHERE status = 'delivered' AND sla_deadline::date = CURRENT_DATE),
       COALESCE(AVG(eta_minutes) FILTER (WHERE eta_minutes IS NOT NULL), 0)::int
FROM orders`).Scan(&s.TotalOrders, &s.ActiveOrders, &s.DelayedOrders, &s.DeliveredToday, &s.AvgDeliveryMins)
	if err != nil {
		return domain.DashboardSummary{}, fmt.Errorf("failed to build summary: %w", err)
	}
	err = r.db.QueryRow(ctx, `SELECT COUNT(*) FROM riders WHERE status = 'online'`).Scan(&s.RidersOnline)
	if err != nil {
		return domain.DashboardSummary{}, fmt.Errorf("failed to count online riders: %w", err)
	}
	return s, nil
}

// AssignRider sets the rider on an order with a guarded conditional update:
// rows affected is 0 when the order is already past assignment, which the
// service maps to a conflict.
func (r *FleetRepo) AssignRider(ctx context.Context, orderID, riderID string, etaMinutes int) (int64, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
UPDATE orders SET rider_id = $2, status = 'assigned', eta_minutes = $3, updated_at = NOW()
WHERE id = $1 AND status IN ('pending', 'assigned', 'delayed')`, orderID, riderID, etaMinutes)
	if err != nil {
		return 0, fmt.Errorf("failed to assign rider: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return 0, tx.Commit(ctx)
	}

	if _, err := tx.Exec(ctx, `
INSERT INTO order_timeline (order_id, status, note, occurred_at)
VALUES ($1, 'assigned', $2, NOW())`, orderID, "assigned to "+riderID); err != nil {
		return 0, fmt.Errorf("failed to append timeline: %w", err)
	}
	if _, err := tx.Exec(ctx, `
UPDATE riders SET current_order_id = $2, status = 'busy',
       current_load = LEAST(current_load + 1, max_load)
WHERE id = $1`, riderID, orderID); err != nil {
		return 0, fmt.Errorf("failed to update rider: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit assignment: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *FleetRepo) AppendTimeline(ctx context.Context, orderID string, status domain.OrderStatus, note string) error {
	_, err := r.db.Exec(ctx, `
INSERT INTO order_timeline (order_id, status, note, occurred_at)
VALUES ($1, $2, $3, NOW())`, orderID, string(status), note)
	if err != nil {
		return fmt.Errorf("failed to append timeline: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (domain.Order, error) {
	var o domain.Order
	var status string
	var eta *int
	var slaDeadline time.Time
	if err := row.Scan(&o.ID, &status, &o.RiderID, &eta, &slaDeadline,
		&o.Pickup.Address, &o.Drop.Address, &o.CustomerName); err != nil {
		return domain.Order{}, err
	}
	o.Status = domain.OrderStatus(status)
	o.ETAMinutes = eta
	o.SLADeadline = slaDeadline
	return o, nil
}

func scanRider(row rowScanner) (domain.Rider, error) {
	var rd domain.Rider
	var status string
	var lat, lng *float64
	if err := row.Scan(&rd.ID, &rd.Name, &status, &rd.CurrentOrderID, &lat, &lng,
		&rd.Capacity.CurrentLoad, &rd.Capacity.MaxLoad, &rd.AvgEtaMinutes, &rd.Rating); err != nil {
		return domain.Rider{}, err
	}
	rd.Status = domain.RiderStatus(status)
	if lat != nil && lng != nil {
		rd.Location = &domain.LatLng{Lat: *lat, Lng: *lng}
	}
	return rd, nil
}
