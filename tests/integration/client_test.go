package integration

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/odatakit/odata-client/internal/testutil"
	"github.com/odatakit/odata-client/pkg/cache"
	"github.com/odatakit/odata-client/pkg/client"
	"github.com/odatakit/odata-client/pkg/codec"
	"github.com/odatakit/odata-client/pkg/pagination"
	"github.com/odatakit/odata-client/pkg/transport"
)

// setupRedis creates a Redis container for integration testing.
func setupRedis(t *testing.T) (*redis.Client, func()) {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: host + ":" + port.Port(),
	})

	cleanup := func() {
		redisClient.Close()
		container.Terminate(ctx)
	}

	return redisClient, cleanup
}

func newCachingClient(t *testing.T, mock *testutil.MockOData, redisClient *redis.Client) *client.Client {
	t.Helper()

	tr := transport.NewCaching(
		transport.NewRetrying(transport.NewHTTPClient(nil), nil),
		cache.NewStore(redisClient),
	)

	cfg := client.DefaultConfig(mock.URL())
	cfg.Transport = tr
	cfg.UserAgent = "odata-integration/1.0"

	c, err := client.New(cfg)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	return c
}

// TestFullRequestFlow tests the complete request flow:
// cache miss, upstream fetch, cache store, conditional revalidation.
func TestFullRequestFlow(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	mock := testutil.NewMockOData()
	defer mock.Close()

	const body = `{"value":[{"contactid":"1","fullname":"Ada Lovelace"}]}`
	expires := time.Now().Add(1 * time.Hour).UTC().Format(http.TimeFormat)

	mock.SetHandler("/contacts", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("If-None-Match") == `W/"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("ETag", `W/"v1"`)
		w.Header().Set("Expires", expires)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(body))
	})

	c := newCachingClient(t, mock, redisClient)
	ctx := context.Background()

	t.Log("Request 1: cache miss, fetch and store")
	resp1, err := c.Execute(ctx, transport.Request{Method: "GET", URL: "/contacts"})
	if err != nil {
		t.Fatalf("Request 1 failed: %v", err)
	}
	if resp1.Status != http.StatusOK {
		t.Errorf("Request 1 status = %d, want 200", resp1.Status)
	}
	if resp1.Body != body {
		t.Errorf("Request 1 body = %s", resp1.Body)
	}
	if mock.GetRequestCount() != 1 {
		t.Errorf("Request count = %d, want 1", mock.GetRequestCount())
	}

	t.Log("Request 2: conditional revalidation serves cached body")
	resp2, err := c.Execute(ctx, transport.Request{Method: "GET", URL: "/contacts"})
	if err != nil {
		t.Fatalf("Request 2 failed: %v", err)
	}
	if resp2.Status != http.StatusOK {
		t.Errorf("Request 2 status = %d, want 200 from cache", resp2.Status)
	}
	if resp2.Body != body {
		t.Errorf("Request 2 body = %s, want cached body", resp2.Body)
	}
	if mock.GetConditionalCount() != 1 {
		t.Errorf("Conditional count = %d, want 1", mock.GetConditionalCount())
	}
}

// TestRetryThenDecode drives a flaky endpoint through the retrying
// transport and the decoder pipeline.
func TestRetryThenDecode(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	mock := testutil.NewMockOData()
	defer mock.Close()

	attempts := 0
	mock.SetHandler("/accounts(1)", func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"accountid":"1","name":"Initech"}`))
	})

	type account struct {
		AccountID string `json:"accountid"`
		Name      string `json:"name"`
	}

	fastPolicy := func(req transport.Request, resp *transport.Response, err error, attempt int) (time.Duration, bool) {
		if attempt >= 3 {
			return 0, false
		}
		return time.Millisecond, transport.Classify(resp, err) != transport.ErrorClassClient && transport.Classify(resp, err) != ""
	}

	tr := transport.NewCaching(
		transport.NewRetrying(transport.NewHTTPClient(nil), fastPolicy),
		cache.NewStore(redisClient),
	)

	cfg := client.DefaultConfig(mock.URL())
	cfg.Transport = tr

	c, err := client.New(cfg)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	got, err := client.Expect(context.Background(), c,
		transport.Request{Method: "GET", URL: "/accounts(1)"},
		codec.As[account]())
	if err != nil {
		t.Fatalf("Expect failed: %v", err)
	}
	if got.Name != "Initech" {
		t.Errorf("Name = %q", got.Name)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
}

// TestStreamWithCaching pages through a list endpoint with the full
// transport chain in place.
func TestStreamWithCaching(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	mock := testutil.NewMockOData()
	defer mock.Close()

	mock.SetListPages("/contacts", [][]string{
		{`{"contactid":"1"}`, `{"contactid":"2"}`},
		{`{"contactid":"3"}`},
	})

	type contact struct {
		ContactID string `json:"contactid"`
	}

	c := newCachingClient(t, mock, redisClient)

	it := client.Stream[contact](context.Background(), c, "/contacts", nil)
	got, err := pagination.Collect(it)
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("elements = %d, want 3", len(got))
	}
	if got[2].ContactID != "3" {
		t.Errorf("order = %+v", got)
	}
}
