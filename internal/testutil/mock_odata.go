// Package testutil provides testing utilities for the OData client.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

// MockResponse defines the behavior for a mock OData endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockOData is a configurable mock OData server for testing.
type MockOData struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)

	// Tracking
	RequestCount      int
	ConditionalCount  int
	LastRequestHeader http.Header
	RequestedPaths    []string
}

// NewMockOData creates a new mock OData server.
func NewMockOData() *MockOData {
	mock := &MockOData{
		handlers: make(map[string]func(w http.ResponseWriter, r *http.Request)),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.LastRequestHeader = r.Header.Clone()
		mock.RequestedPaths = append(mock.RequestedPaths, r.URL.Path)

		if r.Header.Get("If-None-Match") != "" || r.Header.Get("If-Modified-Since") != "" {
			mock.ConditionalCount++
		}
		mock.mu.Unlock()

		mock.mu.RLock()
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.RUnlock()

		if exists {
			handler(w, r)
			return
		}

		mock.defaultHandler(w, r)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockOData) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockOData) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockOData) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.ConditionalCount = 0
	m.LastRequestHeader = nil
	m.RequestedPaths = nil
}

// SetHandler sets a custom handler for a specific path.
func (m *MockOData) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a simple response for a path.
func (m *MockOData) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}

		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}

		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// SetListPages configures a paginated list endpoint. Page i is served at
// path for i == 0 and path + "/page/<i>" afterwards, each carrying a
// nextLink to its successor. elements holds the raw JSON elements per page.
func (m *MockOData) SetListPages(path string, pages [][]string) {
	for i, elements := range pages {
		pagePath := path
		if i > 0 {
			pagePath = fmt.Sprintf("%s/page/%d", path, i)
		}

		body := map[string]any{
			"value": toRawList(elements),
		}
		if i+1 < len(pages) {
			body["nextLink"] = m.URL() + fmt.Sprintf("%s/page/%d", path, i+1)
		}

		data, err := json.Marshal(body)
		if err != nil {
			panic(fmt.Sprintf("testutil: marshal page body: %v", err))
		}

		m.SetResponse(pagePath, MockResponse{
			StatusCode: http.StatusOK,
			Body:       string(data),
			Headers:    map[string]string{"Content-Type": "application/json"},
		})
	}
}

// SetCreatedEntity configures a create endpoint answering 204 No Content
// with an OData-EntityId header embedding the given ID.
func (m *MockOData) SetCreatedEntity(path, entitySet, id string) {
	m.SetResponse(path, MockResponse{
		StatusCode: http.StatusNoContent,
		Headers: map[string]string{
			"OData-EntityId": fmt.Sprintf("%s/%s(%s)", m.URL(), entitySet, id),
		},
	})
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockOData) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetConditionalCount returns the number of conditional requests received.
func (m *MockOData) GetConditionalCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ConditionalCount
}

// GetRequestedPaths returns the paths requested so far, in order.
func (m *MockOData) GetRequestedPaths() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.RequestedPaths...)
}

// defaultHandler answers 404 with an OData-style error body.
func (m *MockOData) defaultHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	fmt.Fprintf(w, `{"error":{"code":"0x80040217","message":"resource %s not found"}}`, r.URL.Path)
}

func toRawList(elements []string) []json.RawMessage {
	out := make([]json.RawMessage, len(elements))
	for i, e := range elements {
		out[i] = json.RawMessage(e)
	}
	return out
}
