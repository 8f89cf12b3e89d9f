package fleetapi

import (
	"encoding/json"
	"fmt"
)

// ConnectivityError wraps a transport-level failure: the upstream was never
// reached or the connection broke mid-flight.
type ConnectivityError struct {
	Err error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("fleet api unreachable: %v", e.Err)
}

func (e *ConnectivityError) Unwrap() error { return e.Err }

// HTTPError is a non-2xx response with a best-effort human message.
type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("fleet api returned %d: %s", e.Status, e.Message)
}

// ValidationError marks a 2xx response whose body is not a usable
// confirmation (e.g. assign response missing order or rider id).
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid fleet api response: " + e.Reason
}

// extractMessage pulls a human-readable message out of an error body,
// trying the shapes the upstream is known to emit. It never returns a raw
// serialized object.
func extractMessage(body []byte, status int) string {
	var envelope struct {
		Message string          `json:"message"`
		Error   json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		if envelope.Message != "" {
			return envelope.Message
		}
		if len(envelope.Error) > 0 {
			var s string
			if json.Unmarshal(envelope.Error, &s) == nil && s != "" {
				return s
			}
			var nested struct {
				Message string `json:"message"`
			}
			if json.Unmarshal(envelope.Error, &nested) == nil && nested.Message != "" {
				return nested.Message
			}
		}
	}
	return fmt.Sprintf("request failed with status %d", status)
}
