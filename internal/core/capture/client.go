package capture

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"webshot/internal/logger"
)

const (
	DefaultRenderWaitMs      = 3000
	DefaultPageLoadTimeoutMs = 10000

	// Extra client-side wait beyond the service's own combined deadline.
	// The service governs page-load abandonment; the client timeout exists
	// only to catch a hung service and must never race the service's own
	// deadline.
	graceMargin = 5 * time.Second
)

// Client speaks the capture protocol to a running render service. Every
// request carries the per-run shared-secret token the supervisor generated.
type Client struct {
	endpoint string
	token    string
	log      *logger.Logger

	mobile            bool
	renderWaitMs      int
	pageLoadTimeoutMs int
}

// NewClient returns a client for the service at endpoint. The token comes
// from the supervisor that launched the service; it is never global state.
func NewClient(token, endpoint string) *Client {
	return &Client{
		endpoint:          endpoint,
		token:             token,
		log:               logger.New("CaptureClient"),
		renderWaitMs:      DefaultRenderWaitMs,
		pageLoadTimeoutMs: DefaultPageLoadTimeoutMs,
	}
}

// Configure sets the per-run defaults applied to every subsequent capture.
func (c *Client) Configure(mobile bool, renderWaitMs, pageLoadTimeoutMs int) {
	c.mobile = mobile
	c.renderWaitMs = renderWaitMs
	c.pageLoadTimeoutMs = pageLoadTimeoutMs
}

// serviceTimeout is how long to wait for the render service to respond.
// Always strictly greater than the combined page-load and render-wait
// budgets the service applies internally.
func (c *Client) serviceTimeout() time.Duration {
	return time.Duration(c.pageLoadTimeoutMs+c.renderWaitMs)*time.Millisecond + graceMargin
}

func (c *Client) post(path string, body []byte, timeout time.Duration) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequest(http.MethodPost, c.endpoint+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("token", c.token)
	req.Header.Set("Content-Type", "application/json")
	httpClient := &http.Client{Timeout: timeout}
	return httpClient.Do(req)
}

// Capture renders url and returns the decoded response. All failure modes
// (transport errors, non-2xx responses, malformed bodies, an empty image)
// come back as a *Error.
func (c *Client) Capture(url string, headers map[string]string) (*Response, error) {
	if headers == nil {
		headers = map[string]string{}
	}
	body, err := json.Marshal(Request{
		URL:          url,
		Mobile:       c.mobile,
		RenderWaitMs: c.renderWaitMs,
		TimeoutMs:    c.pageLoadTimeoutMs,
		Headers:      headers,
	})
	if err != nil {
		return nil, captureErrorf("encode request: %v", err)
	}

	resp, err := c.post("/capture", body, c.serviceTimeout())
	if err != nil {
		return nil, captureErrorf("%v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &Error{Message: decodeServiceError(resp.Body)}
	}

	// status defaults to -1 when the service omits it
	page := Response{Status: -1}
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, captureErrorf("decode response: %v", err)
	}
	if len(page.Image) == 0 {
		return nil, captureErrorf("got zero-length image")
	}
	if _, err := base64.StdEncoding.DecodeString(page.Image); err != nil {
		return nil, captureErrorf("decode image: %v", err)
	}
	return &page, nil
}

// Status probes the service for liveness and metadata, notably the browser
// user-agent strings it reports.
func (c *Client) Status() (map[string]any, error) {
	resp, err := c.post("/status", nil, c.serviceTimeout())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("status check failed: %s", decodeServiceError(resp.Body))
	}
	var status map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("decode status response: %w", err)
	}
	return status, nil
}

// Shutdown asks the service to exit. Best effort: the supervisor's
// process-level teardown is the authoritative termination path.
func (c *Client) Shutdown() {
	resp, err := c.post("/shutdown", nil, c.serviceTimeout())
	if err != nil {
		c.log.LogError("Failed to gracefully terminate capture service", err)
		return
	}
	resp.Body.Close()
}

func decodeServiceError(r io.Reader) string {
	var body errorBody
	if err := json.NewDecoder(r).Decode(&body); err != nil || len(body.Error) == 0 {
		return "capture service returned an unreadable error"
	}
	var msg string
	if err := json.Unmarshal(body.Error, &msg); err == nil {
		return msg
	}
	return string(body.Error)
}
