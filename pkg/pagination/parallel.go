package pagination

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/odatakit/odata-client/pkg/headers"
	"github.com/odatakit/odata-client/pkg/transport"
)

// ParallelConfig holds configuration for fetching independent list URLs
// concurrently.
type ParallelConfig struct {
	// MaxConcurrency is the maximum number of requests in flight.
	MaxConcurrency int

	// Timeout per URL fetch.
	Timeout time.Duration
}

// DefaultParallelConfig returns a safe default configuration.
func DefaultParallelConfig() ParallelConfig {
	return ParallelConfig{
		MaxConcurrency: 5,
		Timeout:        15 * time.Second,
	}
}

// FetchAll fetches every URL with bounded concurrency and returns the
// successful responses keyed by URL. On failure the first error is
// returned together with the responses gathered before it; remaining
// fetches are cancelled.
func FetchAll(ctx context.Context, tr transport.Transport, urls []string, hdrs *headers.Headers, cfg ParallelConfig) (map[string]*transport.Response, error) {
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 5
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	start := time.Now()
	log.Info().
		Int("urls", len(urls)).
		Int("max_concurrency", cfg.MaxConcurrency).
		Msg("Starting parallel list fetch")

	results := make(map[string]*transport.Response, len(urls))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.MaxConcurrency)

	for _, url := range urls {
		g.Go(func() error {
			fetchCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
			defer cancel()

			resp, err := tr.Execute(fetchCtx, transport.Request{
				Method:  http.MethodGet,
				URL:     url,
				Headers: hdrs.Clone(),
			})
			if err != nil {
				log.Warn().Err(err).Str("url", url).Msg("List fetch failed")
				return err
			}
			if !resp.IsSuccess() {
				log.Warn().
					Str("url", url).
					Int("status", resp.Status).
					Msg("List fetch returned unexpected status")
				return &PageError{URL: url, Status: resp.Status, Body: resp.Body}
			}

			mu.Lock()
			results[url] = resp
			mu.Unlock()
			return nil
		})
	}

	err := g.Wait()

	log.Info().
		Int("fetched", len(results)).
		Int("total", len(urls)).
		Dur("duration", time.Since(start)).
		Msg("Parallel list fetch complete")

	return results, err
}
