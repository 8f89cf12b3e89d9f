package service

import (
	"context"
	"errors"
	"fmt"

	"fleet-console/internal/domain"
	"fleet-console/internal/ident"
	"fleet-console/internal/upstream/repository"
)

var (
	ErrOrderNotFound  = errors.New("order not found")
	ErrRiderNotFound  = errors.New("rider not found")
	ErrRiderAtLimit   = errors.New("rider at capacity")
	ErrOrderFinalized = errors.New("order already delivered or returned")
)

type FleetServiceInterface interface {
	ListOrders(ctx context.Context, status, riderID string) ([]domain.Order, error)
	GetOrder(ctx context.Context, id string) (domain.Order, bool, error)
	ListRiders(ctx context.Context) ([]domain.Rider, error)
	Summary(ctx context.Context) (domain.DashboardSummary, error)
	Assign(ctx context.Context, orderID, riderID string) (domain.AssignResponse, error)
	Alert(ctx context.Context, orderID, reason string) error
}

type FleetService struct {
	repo repository.FleetRepoInterface
}

func NewFleetService(repo repository.FleetRepoInterface) *FleetService {
	return &FleetService{repo: repo}
}

func (s *FleetService) ListOrders(ctx context.Context, status, riderID string) ([]domain.Order, error) {
	return s.repo.ListOrders(ctx, status, ident.Rider(riderID))
}

func (s *FleetService) GetOrder(ctx context.Context, id string) (domain.Order, bool, error) {
	return s.repo.GetOrder(ctx, ident.Order(id))
}

func (s *FleetService) ListRiders(ctx context.Context) ([]domain.Rider, error) {
	return s.repo.ListRiders(ctx)
}

func (s *FleetService) Summary(ctx context.Context) (domain.DashboardSummary, error) {
	return s.repo.Summary(ctx)
}

// Assign validates and applies an assignment. Ids are normalized on the way
// in; the response always carries canonical spellings, which the console
// treats as authoritative.
func (s *FleetService) Assign(ctx context.Context, orderID, riderID string) (domain.AssignResponse, error) {
	canonicalOrder := ident.Order(orderID)
	canonicalRider := ident.Rider(riderID)

	order, found, err := s.repo.GetOrder(ctx, canonicalOrder)
	if err != nil {
		return domain.AssignResponse{}, fmt.Errorf("failed to load order: %w", err)
	}
	if !found {
		return domain.AssignResponse{}, ErrOrderNotFound
	}
	switch order.Status {
	case domain.StatusDelivered, domain.StatusReturned, domain.StatusRTO:
		return domain.AssignResponse{}, ErrOrderFinalized
	}

	rider, found, err := s.repo.GetRider(ctx, canonicalRider)
	if err != nil {
		return domain.AssignResponse{}, fmt.Errorf("failed to load rider: %w", err)
	}
	if !found {
		return domain.AssignResponse{}, ErrRiderNotFound
	}
	if rider.Capacity.CurrentLoad >= rider.Capacity.MaxLoad && rider.CurrentOrderID != canonicalOrder {
		return domain.AssignResponse{}, ErrRiderAtLimit
	}

	eta := rider.AvgEtaMinutes
	if eta <= 0 {
		eta = 30
	}

	affected, err := s.repo.AssignRider(ctx, canonicalOrder, canonicalRider, eta)
	if err != nil {
		return domain.AssignResponse{}, fmt.Errorf("failed to assign: %w", err)
	}
	if affected == 0 {
		return domain.AssignResponse{}, ErrOrderFinalized
	}

	return domain.AssignResponse{
		OrderID:    canonicalOrder,
		RiderID:    canonicalRider,
		RiderName:  rider.Name,
		Status:     domain.StatusAssigned,
		ETAMinutes: &eta,
	}, nil
}

// Alert records a dispatcher-raised flag in the order's timeline.
func (s *FleetService) Alert(ctx context.Context, orderID, reason string) error {
	canonical := ident.Order(orderID)
	_, found, err := s.repo.GetOrder(ctx, canonical)
	if err != nil {
		return fmt.Errorf("failed to load order: %w", err)
	}
	if !found {
		return ErrOrderNotFound
	}
	return s.repo.AppendTimeline(ctx, canonical, domain.StatusDelayed, reason)
}
