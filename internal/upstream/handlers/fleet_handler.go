// Package handlers is the fleet API's HTTP surface. Responses follow the
// conventions the console's client tolerates: list endpoints wrap their
// payload in a "data" envelope and errors carry a top-level "message".
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"fleet-console/internal/common/logger"
	"fleet-console/internal/domain"
	"fleet-console/internal/upstream/service"
)

type FleetHandler struct {
	service service.FleetServiceInterface
	lg      *logger.Logger
}

func NewFleetHandler(svc service.FleetServiceInterface, lg *logger.Logger) *FleetHandler {
	return &FleetHandler{service: svc, lg: lg}
}

func (h *FleetHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.ListOrders(r.Context(), r.URL.Query().Get("status"), r.URL.Query().Get("rider_id"))
	if err != nil {
		h.fail(w, r, http.StatusInternalServerError, "failed to list orders", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"data": orders})
}

func (h *FleetHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	order, found, err := h.service.GetOrder(r.Context(), r.PathValue("order_id"))
	if err != nil {
		h.fail(w, r, http.StatusInternalServerError, "failed to load order", err)
		return
	}
	if !found {
		respondError(w, http.StatusNotFound, "order not found")
		return
	}
	respondJSON(w, http.StatusOK, order)
}

func (h *FleetHandler) ListRiders(w http.ResponseWriter, r *http.Request) {
	riders, err := h.service.ListRiders(r.Context())
	if err != nil {
		h.fail(w, r, http.StatusInternalServerError, "failed to list riders", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"data": riders})
}

func (h *FleetHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Summary(r.Context())
	if err != nil {
		h.fail(w, r, http.StatusInternalServerError, "failed to build summary", err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

func (h *FleetHandler) Assign(w http.ResponseWriter, r *http.Request) {
	var req domain.AssignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.OrderID = r.PathValue("order_id")
	if req.RiderID == "" {
		respondError(w, http.StatusBadRequest, "rider_id is required")
		return
	}

	resp, err := h.service.Assign(r.Context(), req.OrderID, req.RiderID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound), errors.Is(err, service.ErrRiderNotFound):
			respondError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrRiderAtLimit), errors.Is(err, service.ErrOrderFinalized):
			respondError(w, http.StatusConflict, err.Error())
		default:
			h.fail(w, r, http.StatusInternalServerError, "failed to assign rider", err)
		}
		return
	}

	h.lg.Info("order_assigned", map[string]any{
		"order_id": resp.OrderID,
		"rider_id": resp.RiderID,
	})
	respondJSON(w, http.StatusOK, resp)
}

func (h *FleetHandler) Alert(w http.ResponseWriter, r *http.Request) {
	var req domain.AlertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.OrderID = r.PathValue("order_id")
	if req.Reason == "" {
		req.Reason = "flagged by dispatcher"
	}

	if err := h.service.Alert(r.Context(), req.OrderID, req.Reason); err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			respondError(w, http.StatusNotFound, err.Error())
			return
		}
		h.fail(w, r, http.StatusInternalServerError, "failed to record alert", err)
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]any{"order_id": req.OrderID, "status": "alert_recorded"})
}

func (h *FleetHandler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (h *FleetHandler) fail(w http.ResponseWriter, r *http.Request, code int, msg string, err error) {
	h.lg.Error("request_failed", err, map[string]any{
		"method": r.Method,
		"path":   r.URL.Path,
	})
	respondError(w, code, msg)
}

func respondJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, code int, message string) {
	respondJSON(w, code, map[string]any{"message": message})
}
