// Package transport defines the request/response boundary the OData client
// core operates on, a net/http adapter, and composable decorators for
// retrying and conditional-request caching.
package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/odatakit/odata-client/pkg/headers"
)

// Request is one logical HTTP request. URL may be absolute or relative;
// relative URLs are resolved by the caller (client facade) or must be
// paired with a Host header when rendered into a batch.
type Request struct {
	Method  string
	URL     string
	Headers *headers.Headers
	Body    string
}

// Response is a fully materialized HTTP response. Body is a buffered string
// so decoders can re-read it (required by OrElse-style composition).
type Response struct {
	Status  int
	Headers *headers.Headers
	Body    string
}

// IsSuccess reports whether the status is in the 2xx range.
func (r *Response) IsSuccess() bool {
	return r.Status >= 200 && r.Status < 300
}

// Transport executes one request and returns its materialized response.
// Implementations must be safe for concurrent use; the core treats the
// transport as stateless and never retries or caches on its own.
type Transport interface {
	Execute(ctx context.Context, req Request) (*Response, error)
}

// Func adapts a plain function to the Transport interface.
type Func func(ctx context.Context, req Request) (*Response, error)

// Execute implements Transport.
func (f Func) Execute(ctx context.Context, req Request) (*Response, error) {
	return f(ctx, req)
}

// DefaultTimeout is applied when no *http.Client is supplied.
const DefaultTimeout = 30 * time.Second

// HTTPClient is the default Transport backed by net/http. Response bodies
// are read fully before returning so downstream decoders see a re-readable
// buffer.
type HTTPClient struct {
	client *http.Client
}

// NewHTTPClient creates an HTTPClient. A nil client gets a default with a
// 30 second timeout.
func NewHTTPClient(client *http.Client) *HTTPClient {
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	return &HTTPClient{client: client}
}

// Execute implements Transport.
func (t *HTTPClient) Execute(ctx context.Context, req Request) (*Response, error) {
	var body io.Reader
	if req.Body != "" {
		body = strings.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	for _, name := range req.Headers.Names() {
		for _, v := range req.Headers.Values(name) {
			httpReq.Header.Add(name, v)
		}
	}

	httpResp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	return &Response{
		Status:  httpResp.StatusCode,
		Headers: fromHTTPHeader(httpResp.Header),
		Body:    string(data),
	}, nil
}

// fromHTTPHeader converts net/http headers. Map iteration order is not
// stable, so names are sorted for determinism.
func fromHTTPHeader(src http.Header) *headers.Headers {
	names := make([]string, 0, len(src))
	for name := range src {
		names = append(names, name)
	}
	sort.Strings(names)

	h := headers.New()
	for _, name := range names {
		for _, v := range src[name] {
			h.Add(name, v)
		}
	}
	return h
}
