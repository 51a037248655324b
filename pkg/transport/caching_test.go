package transport

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/odatakit/odata-client/pkg/cache"
	"github.com/odatakit/odata-client/pkg/headers"
)

// setupTestRedis creates a test Redis client.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15, // Use a separate DB for tests
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available for testing: %v", err)
	}

	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("Failed to flush test DB: %v", err)
	}

	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})

	return client
}

func TestCaching_StoresAndServesConditional(t *testing.T) {
	redisClient := setupTestRedis(t)
	store := cache.NewStore(redisClient)

	calls := 0
	var sawIfNoneMatch string
	origin := Func(func(ctx context.Context, req Request) (*Response, error) {
		calls++
		if v, ok := req.Headers.Get("If-None-Match"); ok {
			sawIfNoneMatch = v
			return &Response{
				Status:  http.StatusNotModified,
				Headers: headers.Pairs("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat)),
			}, nil
		}
		return &Response{
			Status: http.StatusOK,
			Headers: headers.Pairs(
				"ETag", `W/"etag-1"`,
				"Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat),
			),
			Body: `{"value":[1]}`,
		}, nil
	})

	tr := NewCaching(origin, store)
	ctx := context.Background()
	req := Request{Method: http.MethodGet, URL: "https://example.org/leads", Headers: headers.New()}

	// First request: miss, stored
	resp1, err := tr.Execute(ctx, req)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if resp1.Status != http.StatusOK || resp1.Body != `{"value":[1]}` {
		t.Errorf("first response = %d %q", resp1.Status, resp1.Body)
	}

	// Second request: conditional, 304 served from cache
	resp2, err := tr.Execute(ctx, req)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if resp2.Status != http.StatusOK || resp2.Body != `{"value":[1]}` {
		t.Errorf("cached response = %d %q", resp2.Status, resp2.Body)
	}
	if sawIfNoneMatch != `W/"etag-1"` {
		t.Errorf("If-None-Match sent = %q", sawIfNoneMatch)
	}
	if calls != 2 {
		t.Errorf("origin calls = %d, want 2", calls)
	}
}

func TestCaching_NonGETPassesThrough(t *testing.T) {
	redisClient := setupTestRedis(t)
	store := cache.NewStore(redisClient)

	calls := 0
	origin := Func(func(ctx context.Context, req Request) (*Response, error) {
		calls++
		if req.Headers.Has("If-None-Match") {
			t.Error("conditional header on a POST")
		}
		return &Response{Status: http.StatusNoContent, Headers: headers.New()}, nil
	})

	tr := NewCaching(origin, store)
	req := Request{Method: http.MethodPost, URL: "https://example.org/leads", Headers: headers.New(), Body: "{}"}

	for i := 0; i < 2; i++ {
		if _, err := tr.Execute(context.Background(), req); err != nil {
			t.Fatalf("Execute() error = %v", err)
		}
	}
	if calls != 2 {
		t.Errorf("origin calls = %d, want 2 (no caching for POST)", calls)
	}
}
