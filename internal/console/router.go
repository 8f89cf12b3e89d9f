package console

import "net/http"

func Router(h *Handler, hub *Hub) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/board/orders", h.GetOrders)
	mux.HandleFunc("GET /api/v1/board/orders/{order_id}", h.GetOrder)
	mux.HandleFunc("GET /api/v1/board/riders", h.GetRiders)
	mux.HandleFunc("GET /api/v1/board/summary", h.GetSummary)
	mux.HandleFunc("POST /api/v1/board/refresh", h.Refresh)
	mux.HandleFunc("POST /api/v1/dispatch/orders/{order_id}/assign", h.Assign)
	mux.HandleFunc("POST /api/v1/dispatch/orders/{order_id}/alert", h.Alert)
	mux.HandleFunc("GET /api/v1/board/ws", hub.HandleWS)
	mux.HandleFunc("GET /healthz", h.Health)
	return mux
}
