// Package console is the view consumers' transport: board/detail/dispatch
// REST endpoints plus a websocket feed of merged-view changes. It only ever
// reads the merged view and forwards mutations to the coordinator; all
// reconciliation logic lives below it.
package console

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"fleet-console/internal/common/logger"
	"fleet-console/internal/dispatch"
	"fleet-console/internal/domain"
	"fleet-console/internal/fleetapi"
	"fleet-console/internal/ident"
	"fleet-console/internal/merge"
)

// Engine is the slice of the coordinator the console consumes.
type Engine interface {
	CurrentView() domain.MergedView
	RequestAssignment(ctx context.Context, orderID, riderID string) (dispatch.Result, error)
	RequestRefresh(ctx context.Context) error
	RequestAlert(ctx context.Context, orderID, reason string) error
	Subscribe(fn func(domain.MergedView)) int
	Unsubscribe(id int)
}

type Handler struct {
	engine Engine
	lg     *logger.Logger
}

func NewHandler(engine Engine, lg *logger.Logger) *Handler {
	return &Handler{engine: engine, lg: lg}
}

func (h *Handler) GetOrders(w http.ResponseWriter, r *http.Request) {
	view := h.engine.CurrentView()
	if r.URL.Query().Get("sort") == "eta" {
		view = merge.SortByETA(view)
	}
	orders := view.Orders
	if status := r.URL.Query().Get("status"); status != "" {
		if !domain.OrderStatus(status).Valid() {
			writeProblem(w, http.StatusBadRequest, "bad_request", "unknown status "+status)
			return
		}
		filtered := make([]domain.Order, 0, len(orders))
		for _, o := range orders {
			if string(o.Status) == status {
				filtered = append(filtered, o)
			}
		}
		orders = filtered
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"orders": orders, "generated_at": view.GeneratedAt,
	})
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id := ident.Order(param(r, "order_id"))
	o, ok := h.engine.CurrentView().OrderByID(id)
	if !ok {
		writeProblem(w, http.StatusNotFound, "not_found", "order not found")
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *Handler) GetRiders(w http.ResponseWriter, r *http.Request) {
	view := h.engine.CurrentView()
	writeJSON(w, http.StatusOK, map[string]any{
		"riders": view.Riders, "generated_at": view.GeneratedAt,
	})
}

func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.CurrentView().Summary)
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.RequestRefresh(r.Context()); err != nil {
		// The previous snapshot stays on screen; tell the view why it is stale.
		writeProblem(w, http.StatusServiceUnavailable, "connectivity_error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"refreshed": true})
}

func (h *Handler) Assign(w http.ResponseWriter, r *http.Request) {
	orderID := param(r, "order_id")
	var req struct {
		RiderID string `json:"rider_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RiderID == "" {
		writeProblem(w, http.StatusBadRequest, "bad_request", "rider_id is required")
		return
	}

	res, err := h.engine.RequestAssignment(r.Context(), orderID, req.RiderID)
	if err != nil {
		h.writeAssignError(w, err, res)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"order_id": res.OrderID, "rider_id": res.RiderID, "confirmed": res.Confirmed,
	})
}

// writeAssignError maps the error taxonomy to the toast the dispatch view
// shows. The body carries the optimistic ids so the client knows the board
// still reflects the attempted assignment.
func (h *Handler) writeAssignError(w http.ResponseWriter, err error, res dispatch.Result) {
	var httpErr *fleetapi.HTTPError
	var connErr *fleetapi.ConnectivityError
	switch {
	case errors.As(err, &httpErr):
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"type": "upstream_http_error", "status": httpErr.Status, "detail": httpErr.Message,
			"order_id": res.OrderID, "rider_id": res.RiderID, "confirmed": false,
		})
	case errors.As(err, &connErr):
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"type": "connectivity_error", "detail": "fleet api unreachable",
			"order_id": res.OrderID, "rider_id": res.RiderID, "confirmed": false,
		})
	case dispatch.IsValidationError(err):
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"type": "validation_error", "detail": err.Error(),
			"order_id": res.OrderID, "rider_id": res.RiderID, "confirmed": false,
		})
	default:
		writeProblem(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func (h *Handler) Alert(w http.ResponseWriter, r *http.Request) {
	orderID := param(r, "order_id")
	var req struct {
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Reason == "" {
		writeProblem(w, http.StatusBadRequest, "bad_request", "reason is required")
		return
	}
	if err := h.engine.RequestAlert(r.Context(), orderID, req.Reason); err != nil {
		writeProblem(w, http.StatusBadGateway, "upstream_error", err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"alerted": true})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

// writeJSON sends v with the given status.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeProblem sends a simplified problem+json error body.
func writeProblem(w http.ResponseWriter, code int, typ, detail string) {
	writeJSON(w, code, map[string]any{
		"type":   typ,
		"title":  http.StatusText(code),
		"status": code,
		"detail": detail,
	})
}

func param(r *http.Request, key string) string {
	return r.PathValue(key)
}
