// Package upstream is the JSON-over-HTTP client shared by the commerce and
// payment adapters: per-call timeout, circuit breaker, tracing transport and
// redacted error excerpts.
package upstream

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

	"github.com/fjod/acp-checkout/pkg/circuitbreaker"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	DefaultTimeout = 10 * time.Second
	maxBodyBytes   = 4 << 20
)

var ErrTimeout = errors.New("upstream call timed out")

// Observer receives one outcome per call. *metrics.Metrics implements it.
type Observer interface {
	ObserveUpstream(system, outcome string)
}

type Options struct {
	System    string
	BaseURL   string
	Timeout   time.Duration
	Transport http.RoundTripper
	Breaker   *circuitbreaker.Config
	Observer  Observer
	Logger    *slog.Logger
}

type Client struct {
	system   string
	baseURL  string
	timeout  time.Duration
	http     *http.Client
	breaker  *gobreaker.CircuitBreaker[*Response]
	observer Observer
	log      *slog.Logger
}

// Request describes one call. Body is JSON encoded unless RawBody is set.
type Request struct {
	Method      string
	Path        string
	Header      http.Header
	Body        any
	RawBody     []byte
	ContentType string
}

type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// StatusError is a non-2xx answer. Body is already redacted and bounded.
type StatusError struct {
	System string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s responded %d", e.System, e.Status)
}

func New(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Transport == nil {
		opts.Transport = http.DefaultTransport
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	cfg := circuitbreaker.DefaultConfig(opts.System)
	if opts.Breaker != nil {
		cfg = *opts.Breaker
	}
	if cfg.IsSuccessful == nil {
		cfg.IsSuccessful = countsAsSuccess
	}

	return &Client{
		system:   opts.System,
		baseURL:  strings.TrimRight(opts.BaseURL, "/"),
		timeout:  opts.Timeout,
		http:     &http.Client{Transport: otelhttp.NewTransport(opts.Transport)},
		breaker:  circuitbreaker.New[*Response](cfg, opts.Logger),
		observer: opts.Observer,
		log:      opts.Logger,
	}
}

func (c *Client) System() string {
	return c.system
}

// Do executes req under the client timeout. Non-2xx answers come back as
// *StatusError together with the response.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.breaker.Execute(func() (*Response, error) {
		return c.do(ctx, req)
	})
	c.observe(err)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return resp, fmt.Errorf("%s %s: %w", req.Method, req.Path, ErrTimeout)
		}
		return resp, err
	}
	return resp, nil
}

// DoJSON executes req and decodes a 2xx body into out.
func (c *Client) DoJSON(ctx context.Context, req Request, out any) (*Response, error) {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return resp, err
	}
	if out == nil || len(resp.Body) == 0 {
		return resp, nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return resp, fmt.Errorf("decode %s response: %w", c.system, err)
	}
	return resp, nil
}

func (c *Client) do(ctx context.Context, req Request) (*Response, error) {
	body := req.RawBody
	contentType := req.ContentType
	if body == nil && req.Body != nil {
		var err error
		body, err = json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("encode %s request: %w", c.system, err)
		}
		contentType = "application/json"
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, c.baseURL+req.Path, reader)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", c.system, err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	httpReq.Header.Set("Accept", "application/json")

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.Path, err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", c.system, err)
	}

	resp := &Response{Status: httpResp.StatusCode, Header: httpResp.Header, Body: data}
	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		c.log.WarnContext(ctx, "upstream call failed",
			slog.String("system", c.system),
			slog.String("method", req.Method),
			slog.Int("status", httpResp.StatusCode))
		return resp, &StatusError{System: c.system, Status: httpResp.StatusCode, Body: Excerpt(data)}
	}
	return resp, nil
}

func (c *Client) observe(err error) {
	if c.observer == nil {
		return
	}
	outcome := "ok"
	switch {
	case err == nil:
	case circuitbreaker.IsOpen(err):
		outcome = "rejected"
	case errors.Is(err, context.DeadlineExceeded):
		outcome = "timeout"
	default:
		outcome = "error"
	}
	c.observer.ObserveUpstream(c.system, outcome)
}

// countsAsSuccess keeps client-side mistakes (4xx, cancellation) from
// tripping the breaker.
func countsAsSuccess(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return true
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status < 500 && se.Status != http.StatusTooManyRequests
	}
	return false
}

// Details builds the client-safe description of an upstream failure.
func Details(system string, err error) map[string]any {
	d := map[string]any{"system": system}
	var se *StatusError
	switch {
	case err == nil:
	case errors.As(err, &se):
		d["status"] = se.Status
		if se.Body != "" {
			d["body"] = se.Body
		}
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		d["reason"] = "timeout"
	case circuitbreaker.IsOpen(err):
		d["reason"] = "circuit open"
	default:
		d["reason"] = Excerpt([]byte(err.Error()))
	}
	return d
}
