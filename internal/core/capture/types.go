package capture

import (
	"encoding/json"
	"fmt"
)

// Request is the body of a POST /capture call to the render service.
type Request struct {
	URL          string            `json:"url"`
	Mobile       bool              `json:"mobile"`
	RenderWaitMs int               `json:"render_wait_ms"`
	TimeoutMs    int               `json:"timeout_ms"`
	Headers      map[string]string `json:"headers"`
}

// Response is the render service's answer to a capture call.
type Response struct {
	// URL after following redirects.
	URLFinal string `json:"url_final"`
	// Page title.
	Title string `json:"title"`
	// Response headers of the final navigation.
	Headers map[string]string `json:"headers"`
	// HTTP response status, -1 if unknown.
	Status int `json:"status"`
	// Base64-encoded PNG.
	Image string `json:"image"`
	// Opaque TLS/security details reported by the browser.
	Security map[string]any `json:"security"`
}

// errorBody is the error envelope the render service returns with non-2xx
// statuses. The error field is an opaque JSON value (the service sends
// {name, message} objects, plain strings also occur).
type errorBody struct {
	Error json.RawMessage `json:"error"`
}

// Error is the single failure kind for a capture attempt: transport
// failures, non-2xx responses, and malformed or empty payloads all surface
// as one of these. It never aborts sibling work.
type Error struct {
	Message string
}

func (e *Error) Error() string { return e.Message }

func captureErrorf(format string, v ...any) *Error {
	return &Error{Message: fmt.Sprintf(format, v...)}
}
