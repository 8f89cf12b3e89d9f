// Package fleetapi is the console's client for the upstream fleet API. The
// three read endpoints and the two mutating calls are treated as opaque
// remote operations: they fail or they succeed, retries/backoff live
// upstream of this package.
package fleetapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"fleet-console/internal/common/logger"
	"fleet-console/internal/domain"
)

type Client struct {
	baseURL string
	http    *http.Client
	lg      *logger.Logger
}

func New(baseURL string, timeout time.Duration, lg *logger.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		lg:      lg,
	}
}

// GetOrders fetches the order list. The upstream has shipped several
// response envelopes over time (bare array, {"data":[...]}, {"orders":[...]},
// and occasionally a single object); all of them are accepted. Anything
// unrecognizable degrades to an empty list with a logged warning.
func (c *Client) GetOrders(ctx context.Context, filter domain.OrdersFilter) ([]domain.Order, error) {
	q := url.Values{}
	if filter.Status != "" {
		q.Set("status", string(filter.Status))
	}
	if filter.RiderID != "" {
		q.Set("rider_id", filter.RiderID)
	}
	path := "/api/v1/orders"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	body, err := c.get(ctx, path)
	if err != nil {
		return nil, err
	}
	return c.decodeOrders(body), nil
}

func (c *Client) GetRiders(ctx context.Context) ([]domain.Rider, error) {
	body, err := c.get(ctx, "/api/v1/riders")
	if err != nil {
		return nil, err
	}
	var riders []domain.Rider
	if err := json.Unmarshal(body, &riders); err != nil {
		var envelope struct {
			Data []domain.Rider `json:"data"`
		}
		if err := json.Unmarshal(body, &envelope); err != nil {
			return nil, &ValidationError{Reason: "unrecognized riders payload"}
		}
		riders = envelope.Data
	}
	return riders, nil
}

func (c *Client) GetSummary(ctx context.Context) (domain.DashboardSummary, error) {
	body, err := c.get(ctx, "/api/v1/summary")
	if err != nil {
		return domain.DashboardSummary{}, err
	}
	var sum domain.DashboardSummary
	if err := json.Unmarshal(body, &sum); err != nil {
		return domain.DashboardSummary{}, &ValidationError{Reason: "unrecognized summary payload"}
	}
	return sum, nil
}

// AssignOrder asks the upstream to assign riderID to orderID. A 2xx response
// whose body lacks either id is treated as a failure even though the HTTP
// call itself succeeded.
func (c *Client) AssignOrder(ctx context.Context, orderID, riderID string) (domain.AssignResponse, error) {
	body, err := c.post(ctx, fmt.Sprintf("/api/v1/orders/%s/assign", url.PathEscape(orderID)),
		domain.AssignRequest{OrderID: orderID, RiderID: riderID})
	if err != nil {
		return domain.AssignResponse{}, err
	}
	var resp domain.AssignResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.AssignResponse{}, &ValidationError{Reason: "malformed assign response body"}
	}
	if resp.OrderID == "" || resp.RiderID == "" {
		return domain.AssignResponse{}, &ValidationError{Reason: "assign response missing order or rider id"}
	}
	return resp, nil
}

// AlertOrder flags an order. Fire-and-refresh: not part of the assignment
// state machine.
func (c *Client) AlertOrder(ctx context.Context, orderID, reason string) error {
	_, err := c.post(ctx, fmt.Sprintf("/api/v1/orders/%s/alert", url.PathEscape(orderID)),
		domain.AlertRequest{OrderID: orderID, Reason: reason})
	return err
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, &ConnectivityError{Err: err}
	}
	return c.do(req)
}

func (c *Client) post(ctx context.Context, path string, payload any) ([]byte, error) {
	buf, err := json.Marshal(payload)
	if err != nil {
		return nil, &ValidationError{Reason: "unencodable request payload"}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(buf))
	if err != nil {
		return nil, &ConnectivityError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &ConnectivityError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ConnectivityError{Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPError{Status: resp.StatusCode, Message: extractMessage(body, resp.StatusCode)}
	}
	return body, nil
}

func (c *Client) decodeOrders(body []byte) []domain.Order {
	var orders []domain.Order
	if err := json.Unmarshal(body, &orders); err == nil {
		return orders
	}

	var envelope struct {
		Data   []domain.Order `json:"data"`
		Orders []domain.Order `json:"orders"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		if envelope.Data != nil {
			return envelope.Data
		}
		if envelope.Orders != nil {
			return envelope.Orders
		}
		// Single object auto-wrapped into a one-element list.
		var single domain.Order
		if err := json.Unmarshal(body, &single); err == nil && single.ID != "" {
			return []domain.Order{single}
		}
	}

	c.lg.Warn("orders_payload_unrecognized", map[string]any{"bytes": len(body)})
	return []domain.Order{}
}
