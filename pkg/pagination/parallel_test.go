package pagination

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/odatakit/odata-client/pkg/headers"
	"github.com/odatakit/odata-client/pkg/transport"
)

func TestFetchAll_Success(t *testing.T) {
	var mu sync.Mutex
	seen := make(map[string]int)

	tr := transport.Func(func(ctx context.Context, req transport.Request) (*transport.Response, error) {
		mu.Lock()
		seen[req.URL]++
		mu.Unlock()
		return &transport.Response{
			Status:  http.StatusOK,
			Headers: headers.New(),
			Body:    `{"value":[]}`,
		}, nil
	})

	urls := []string{"U1", "U2", "U3"}
	results, err := FetchAll(context.Background(), tr, urls, nil, DefaultParallelConfig())
	if err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}

	if len(results) != 3 {
		t.Errorf("results = %d, want 3", len(results))
	}
	for _, u := range urls {
		if seen[u] != 1 {
			t.Errorf("URL %s fetched %d times, want 1", u, seen[u])
		}
		if results[u] == nil {
			t.Errorf("missing result for %s", u)
		}
	}
}

func TestFetchAll_PartialOnError(t *testing.T) {
	tr := transport.Func(func(ctx context.Context, req transport.Request) (*transport.Response, error) {
		if req.URL == "bad" {
			return &transport.Response{Status: http.StatusInternalServerError, Headers: headers.New()}, nil
		}
		return &transport.Response{Status: http.StatusOK, Headers: headers.New(), Body: `{}`}, nil
	})

	results, err := FetchAll(context.Background(), tr, []string{"good", "bad"}, nil, DefaultParallelConfig())
	if err == nil {
		t.Fatal("FetchAll() expected error")
	}

	var pageErr *PageError
	if !errors.As(err, &pageErr) || pageErr.URL != "bad" {
		t.Errorf("error = %v, want *PageError for bad", err)
	}
	if _, ok := results["bad"]; ok {
		t.Error("failed URL present in results")
	}
}

func TestFetchAll_BoundedConcurrency(t *testing.T) {
	var inFlight, maxInFlight atomic.Int32

	tr := transport.Func(func(ctx context.Context, req transport.Request) (*transport.Response, error) {
		n := inFlight.Add(1)
		for {
			m := maxInFlight.Load()
			if n <= m || maxInFlight.CompareAndSwap(m, n) {
				break
			}
		}
		defer inFlight.Add(-1)
		return &transport.Response{Status: http.StatusOK, Headers: headers.New(), Body: `{}`}, nil
	})

	urls := make([]string, 20)
	for i := range urls {
		urls[i] = string(rune('a' + i))
	}

	cfg := DefaultParallelConfig()
	cfg.MaxConcurrency = 2
	if _, err := FetchAll(context.Background(), tr, urls, nil, cfg); err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}

	if maxInFlight.Load() > 2 {
		t.Errorf("max in flight = %d, want <= 2", maxInFlight.Load())
	}
}
