package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/odatakit/odata-client/internal/testutil"
	"github.com/odatakit/odata-client/pkg/client"
	"github.com/odatakit/odata-client/pkg/transport"
)

func setupTestRedis(t *testing.T) (*redis.Client, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	redisC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	host, err := redisC.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := redisC.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: host + ":" + port.Port(),
	})

	cleanup := func() {
		redisClient.Close()
		redisC.Terminate(ctx)
	}

	return redisClient, cleanup
}

func newProxyClient(t *testing.T, baseURL string) *client.Client {
	t.Helper()

	cfg := client.DefaultConfig(baseURL)
	cfg.Transport = transport.NewHTTPClient(nil)

	c, err := client.New(cfg)
	if err != nil {
		t.Fatalf("Failed to create OData client: %v", err)
	}
	return c
}

func TestHealthEndpoint(t *testing.T) {
	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()

	healthHandler(w, req)

	resp := w.Result()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	if string(body) != "OK" {
		t.Errorf("Expected body 'OK', got %s", string(body))
	}
}

func TestReadyEndpoint(t *testing.T) {
	redisClient, cleanup := setupTestRedis(t)
	defer cleanup()

	handler := readyHandler(redisClient)

	t.Run("ready", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/ready", nil)
		w := httptest.NewRecorder()

		handler(w, req)

		resp := w.Result()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("Expected status 200, got %d", resp.StatusCode)
		}
	})

	t.Run("not_ready_redis_down", func(t *testing.T) {
		redisClient.Close()

		req := httptest.NewRequest("GET", "/ready", nil)
		w := httptest.NewRecorder()

		handler(w, req)

		resp := w.Result()
		if resp.StatusCode != http.StatusServiceUnavailable {
			t.Errorf("Expected status 503, got %d", resp.StatusCode)
		}
	})
}

func TestMetricsEndpoint(t *testing.T) {
	mock := testutil.NewMockOData()
	defer mock.Close()
	mock.SetResponse("/contacts", testutil.MockResponse{StatusCode: http.StatusOK, Body: `{}`})

	// Drive a request through the client so request metrics carry samples
	odataClient := newProxyClient(t, mock.URL())
	if _, err := odataClient.Execute(context.Background(), transport.Request{Method: "GET", URL: "/contacts"}); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()

	promhttp.Handler().ServeHTTP(w, req)

	resp := w.Result()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	bodyStr := string(body)
	if !strings.Contains(bodyStr, "# HELP") || !strings.Contains(bodyStr, "# TYPE") {
		t.Error("Expected Prometheus format metrics output")
	}
	if !strings.Contains(bodyStr, "odata_requests_total") {
		t.Error("Expected metrics output to contain odata_requests_total")
	}
}

func TestODataProxyHandler(t *testing.T) {
	mock := testutil.NewMockOData()
	defer mock.Close()
	mock.SetResponse("/contacts", testutil.MockResponse{
		StatusCode: http.StatusOK,
		Body:       `{"value":[]}`,
		Headers:    map[string]string{"Content-Type": "application/json"},
	})

	handler := odataProxyHandler(newProxyClient(t, mock.URL()))

	t.Run("passthrough", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/odata/contacts", nil)
		w := httptest.NewRecorder()

		handler(w, req)

		resp := w.Result()
		body, _ := io.ReadAll(resp.Body)

		if resp.StatusCode != http.StatusOK {
			t.Errorf("Expected status 200, got %d", resp.StatusCode)
		}
		if string(body) != `{"value":[]}` {
			t.Errorf("Unexpected body: %s", string(body))
		}
		if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
	})

	t.Run("upstream_error_forwarded", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/odata/unknown", nil)
		w := httptest.NewRecorder()

		handler(w, req)

		resp := w.Result()
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("Expected status 404, got %d", resp.StatusCode)
		}
	})

	t.Run("query_string_forwarded", func(t *testing.T) {
		mock.Reset()

		req := httptest.NewRequest("GET", "/odata/contacts?$top=10", nil)
		w := httptest.NewRecorder()

		handler(w, req)

		if w.Result().StatusCode != http.StatusOK {
			t.Errorf("Expected status 200, got %d", w.Result().StatusCode)
		}
	})
}
