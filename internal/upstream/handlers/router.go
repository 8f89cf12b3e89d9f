package handlers

import "net/http"

func NewRouter(h *FleetHandler) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/orders", h.ListOrders)
	mux.HandleFunc("GET /api/v1/orders/{order_id}", h.GetOrder)
	mux.HandleFunc("GET /api/v1/riders", h.ListRiders)
	mux.HandleFunc("GET /api/v1/summary", h.Summary)
	mux.HandleFunc("POST /api/v1/orders/{order_id}/assign", h.Assign)
	mux.HandleFunc("POST /api/v1/orders/{order_id}/alert", h.Alert)
	mux.HandleFunc("GET /healthz", h.Health)

	return mux
}
