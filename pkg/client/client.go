// Package client provides the OData client facade: it composes the batch
// renderer, decoder pipeline, and pagination over an injected transport,
// orchestrating request execution, status inspection, and error mapping.
package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/odatakit/odata-client/pkg/batch"
	"github.com/odatakit/odata-client/pkg/codec"
	"github.com/odatakit/odata-client/pkg/headers"
	"github.com/odatakit/odata-client/pkg/pagination"
	"github.com/odatakit/odata-client/pkg/transport"
)

// Prometheus metrics for client operations.
var (
	odataRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "odata_requests_total",
		Help: "Total OData requests by endpoint and status",
	}, []string{"endpoint", "status"})

	odataRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "odata_request_duration_seconds",
		Help:    "OData request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	odataDecodeFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "odata_decode_failures_total",
		Help: "Total decode failures by kind",
	}, []string{"kind"})

	odataBatchRequestsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "odata_batch_requests_total",
		Help: "Total $batch requests executed",
	})
)

// Config holds the client configuration.
type Config struct {
	// BaseURL is the service root, e.g. "https://org.crm.dynamics.com/api/data/v9.2".
	BaseURL string

	// Transport executes requests. Defaults to an HTTPClient with a 30s timeout.
	Transport transport.Transport

	// Headers are merged into every request (request headers win by extension).
	Headers *headers.Headers

	// UserAgent header sent with every request.
	UserAgent string
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:   baseURL,
		Transport: transport.NewHTTPClient(nil),
		UserAgent: "odata-client/0.1.0",
	}
}

// Client is the OData client facade. All state is immutable after New;
// concurrent use is safe.
type Client struct {
	transport transport.Transport
	baseURL   string
	defaults  *headers.Headers
	logger    zerolog.Logger
}

// New creates a new OData client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}

	tr := cfg.Transport
	if tr == nil {
		tr = transport.NewHTTPClient(nil)
	}

	defaults := cfg.Headers.Clone()
	if !defaults.Has("Accept") {
		defaults.Set("Accept", "application/json")
	}
	if !defaults.Has("OData-Version") {
		defaults.Set("OData-Version", "4.0")
	}
	if cfg.UserAgent != "" && !defaults.Has("User-Agent") {
		defaults.Set("User-Agent", cfg.UserAgent)
	}

	return &Client{
		transport: tr,
		baseURL:   strings.TrimSuffix(cfg.BaseURL, "/"),
		defaults:  defaults,
		logger:    log.With().Str("component", "odata-client").Logger(),
	}, nil
}

// Execute resolves the request against the base URL, merges default
// headers, and runs it through the transport.
func (c *Client) Execute(ctx context.Context, req transport.Request) (*transport.Response, error) {
	req.URL = c.resolve(req.URL)
	req.Headers = c.defaults.Merge(req.Headers)

	endpoint := endpointLabel(req.URL)
	startTime := time.Now()
	defer func() {
		odataRequestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	c.logger.Debug().
		Str("endpoint", endpoint).
		Str("method", req.Method).
		Msg("Executing OData request")

	resp, err := c.transport.Execute(ctx, req)
	if err != nil {
		c.logger.Error().Err(err).Str("endpoint", endpoint).Msg("Request failed")
		odataRequestsTotal.WithLabelValues(endpoint, "network_error").Inc()
		return nil, fmt.Errorf("execute %s %s: %w", req.Method, req.URL, err)
	}

	odataRequestsTotal.WithLabelValues(endpoint, fmt.Sprintf("%d", resp.Status)).Inc()
	if !resp.IsSuccess() {
		c.logger.Warn().
			Str("endpoint", endpoint).
			Int("status", resp.Status).
			Msg("OData request returned non-success status")
	}

	return resp, nil
}

// ExecuteBatch renders the multipart body and POSTs it to the $batch
// endpoint. The response is returned undecoded; batch responses carry
// their own multipart payload for the caller to interpret.
func (c *Client) ExecuteBatch(ctx context.Context, m batch.Multipart) (*transport.Response, error) {
	body, err := batch.Render(m)
	if err != nil {
		return nil, fmt.Errorf("render batch: %w", err)
	}

	odataBatchRequestsTotal.Inc()
	c.logger.Debug().
		Int("parts", len(m.Parts)).
		Str("boundary", m.Boundary).
		Msg("Executing batch request")

	return c.Execute(ctx, transport.Request{
		Method:  http.MethodPost,
		URL:     "$batch",
		Headers: headers.Pairs("Content-Type", batch.ContentType(m)),
		Body:    body,
	})
}

// resolve joins a relative URL onto the base URL; absolute URLs pass
// through untouched.
func (c *Client) resolve(u string) string {
	if strings.Contains(u, "://") {
		return u
	}
	return c.baseURL + "/" + strings.TrimPrefix(u, "/")
}

// endpointLabel reduces a URL to its path for metric labels.
func endpointLabel(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.Path
}

// Fetch executes the request and decodes whatever came back, regardless of
// status. Decode failures surface as typed *codec.DecodeError values.
func Fetch[T any](ctx context.Context, c *Client, req transport.Request, dec codec.Decoder[T]) (T, error) {
	var zero T

	resp, err := c.Execute(ctx, req)
	if err != nil {
		return zero, err
	}

	v, err := dec.Decode(resp)
	if err != nil {
		recordDecodeFailure(err)
		return zero, err
	}
	return v, nil
}

// Expect executes the request, requires a 2xx status, and decodes the
// response. Non-success statuses map to a *StatusError carrying the
// request context.
func Expect[T any](ctx context.Context, c *Client, req transport.Request, dec codec.Decoder[T]) (T, error) {
	var zero T

	resp, err := c.Execute(ctx, req)
	if err != nil {
		return zero, err
	}

	if !resp.IsSuccess() {
		return zero, &StatusError{
			Status: resp.Status,
			Method: req.Method,
			URL:    req.URL,
			Body:   resp.Body,
		}
	}

	v, err := dec.Decode(resp)
	if err != nil {
		recordDecodeFailure(err)
		return zero, err
	}
	return v, nil
}

// Stream returns a lazy iterator over a paginated list endpoint, following
// nextLink cursors until exhausted. hdrs may be nil.
func Stream[T any](ctx context.Context, c *Client, listURL string, hdrs *headers.Headers) *pagination.Iterator[T] {
	return pagination.Stream[T](ctx, c.transport, c.resolve(listURL), c.defaults.Merge(hdrs))
}

func recordDecodeFailure(err error) {
	if de, ok := codec.AsDecodeError(err); ok {
		odataDecodeFailuresTotal.WithLabelValues(string(de.Kind)).Inc()
	}
}
