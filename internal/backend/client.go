// Package backend is the HTTP client for the storefront's REST backend.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"storefront/internal/platform/tracer"
	dErrors "storefront/pkg/domain-errors"
	"storefront/pkg/platform/circuit"
	"storefront/pkg/platform/sentinel"
)

const (
	// DefaultTimeout bounds every backend request.
	DefaultTimeout = 10 * time.Second

	maxResponseBytes = 1 << 20
)

// Client calls the REST backend. Every failure is returned as a domain
// error: network_failure for transport errors, timeouts and unexpected
// statuses; authentication_rejected for refused logins.
type Client struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
	tracer     tracer.Tracer
	breaker    *circuit.Breaker
	logger     *slog.Logger
	metrics    *Metrics
	now        func() time.Time
}

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client (for testing).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithTracer(t tracer.Tracer) Option {
	return func(c *Client) { c.tracer = t }
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(c *Client) { c.breaker = b }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

func WithMetrics(m *Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// New creates a client for baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: DefaultTimeout,
		tracer:  tracer.NewNoop(),
		breaker: circuit.New("backend"),
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{}
	}
	return c
}

// call describes one request.
type call struct {
	op     string
	method string
	path   string
	token  string
	body   any
	// form, when set, is sent as multipart/form-data instead of body.
	form map[string]string
	// accept lists the statuses treated as success. Defaults to any 2xx.
	accept []int
}

// response is a completed exchange with an accepted or rejected status.
type response struct {
	status int
	body   []byte
}

// do executes c and decodes an accepted response into out (when non-nil).
func (c *Client) do(ctx context.Context, cl call, out any) (*response, error) {
	ctx, span := c.tracer.Start(ctx, "backend."+cl.op,
		tracer.String(tracer.AttrHTTPMethod, cl.method),
		tracer.String(tracer.AttrHTTPRoute, cl.path),
	)
	start := c.now()
	resp, err := c.exchange(ctx, cl)
	if c.metrics != nil {
		c.metrics.Latency.WithLabelValues(cl.op).Observe(c.now().Sub(start).Seconds())
	}
	if resp != nil {
		span.SetAttributes(tracer.Int(tracer.AttrHTTPStatus, resp.status))
	}
	if err == nil && !cl.accepts(resp.status) {
		err = unexpectedStatus(resp)
	}
	if err == nil && out != nil && len(resp.body) > 0 {
		if decodeErr := json.Unmarshal(resp.body, out); decodeErr != nil {
			err = dErrors.Wrap(decodeErr, dErrors.CodeNetworkFailure, "malformed backend response")
		}
	}
	span.End(err)
	c.observe(cl.op, err)
	return resp, err
}

// exchange performs the HTTP round trip under the breaker and timeout.
// It returns an error only for transport-level failures. A request its
// caller cancelled says nothing about backend health and is not counted.
func (c *Client) exchange(ctx context.Context, cl call) (*response, error) {
	if !c.breaker.Allow() {
		c.recordBreaker()
		return nil, dErrors.Wrap(sentinel.ErrUnavailable, dErrors.CodeNetworkFailure, "backend unavailable, retry shortly")
	}

	callerCtx := ctx
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := c.newRequest(ctx, cl)
	if err != nil {
		c.breaker.Release()
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "build backend request")
	}

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.transportFailure(callerCtx, ctx, err, "backend unreachable")
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
	if err != nil {
		return nil, c.transportFailure(callerCtx, ctx, err, "read backend response")
	}

	if httpResp.StatusCode >= http.StatusInternalServerError {
		c.breaker.RecordFailure()
	} else {
		c.breaker.RecordSuccess()
	}
	c.recordBreaker()
	return &response{status: httpResp.StatusCode, body: body}, nil
}

// transportFailure classifies a failed round trip. Only failures the
// backend is responsible for, including our own timeout, count against
// the breaker.
func (c *Client) transportFailure(callerCtx, ctx context.Context, err error, msg string) error {
	if errors.Is(callerCtx.Err(), context.Canceled) {
		c.breaker.Release()
		return dErrors.Wrap(err, dErrors.CodeNetworkFailure, "backend request cancelled")
	}
	c.breaker.RecordFailure()
	c.recordBreaker()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return dErrors.Wrap(sentinel.ErrTimeout, dErrors.CodeNetworkFailure, "backend request timed out")
	}
	return dErrors.Wrap(err, dErrors.CodeNetworkFailure, msg)
}

func (c *Client) newRequest(ctx context.Context, cl call) (*http.Request, error) {
	var (
		body        io.Reader
		contentType string
	)
	switch {
	case cl.form != nil:
		buf, ct, err := encodeMultipart(cl.form)
		if err != nil {
			return nil, err
		}
		body, contentType = buf, ct
	case cl.body != nil:
		raw, err := json.Marshal(cl.body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		body, contentType = bytes.NewReader(raw), "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, c.baseURL+cl.path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if cl.token != "" {
		req.Header.Set("Authorization", "Bearer "+cl.token)
	}
	return req, nil
}

func (cl call) accepts(status int) bool {
	if len(cl.accept) == 0 {
		return status >= 200 && status < 300
	}
	for _, s := range cl.accept {
		if s == status {
			return true
		}
	}
	return false
}

func unexpectedStatus(resp *response) error {
	msg := backendMessage(resp.body)
	if msg == "" {
		msg = http.StatusText(resp.status)
	}
	return dErrors.New(dErrors.CodeNetworkFailure, fmt.Sprintf("backend returned %d: %s", resp.status, msg))
}

// backendMessage extracts the human-readable message from an error body.
func backendMessage(body []byte) string {
	var e errorResponse
	if json.Unmarshal(body, &e) != nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	return e.Error
}

func (c *Client) observe(op string, err error) {
	if c.metrics == nil {
		return
	}
	outcome := "ok"
	switch {
	case err == nil:
	case dErrors.HasCode(err, dErrors.CodeAuthenticationRejected):
		outcome = "rejected"
	default:
		outcome = string(dErrors.CodeOf(err))
	}
	c.metrics.Requests.WithLabelValues(op, outcome).Inc()
}

func (c *Client) recordBreaker() {
	if c.metrics != nil {
		c.metrics.BreakerState.WithLabelValues(c.breaker.Name()).Set(float64(c.breaker.State()))
	}
}
