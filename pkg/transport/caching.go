package transport

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/odatakit/odata-client/pkg/cache"
	"github.com/odatakit/odata-client/pkg/headers"
)

// Caching wraps a Transport with conditional-request caching for GET
// requests. Cache hits with validators turn into If-None-Match /
// If-Modified-Since requests; a 304 answer is served from the stored body.
// Non-GET requests pass through untouched.
type Caching struct {
	next   Transport
	store  *cache.Store
	logger zerolog.Logger
}

// NewCaching creates a caching decorator over next.
func NewCaching(next Transport, store *cache.Store) *Caching {
	return &Caching{
		next:   next,
		store:  store,
		logger: log.With().Str("component", "cache-transport").Logger(),
	}
}

// Execute implements Transport.
func (t *Caching) Execute(ctx context.Context, req Request) (*Response, error) {
	if req.Method != http.MethodGet {
		return t.next.Execute(ctx, req)
	}

	key := cache.Key{URL: req.URL}

	entry, err := t.store.Get(ctx, key)
	if err != nil && err != cache.ErrCacheMiss {
		t.logger.Warn().Err(err).Str("url", req.URL).Msg("Cache get error")
	}

	if entry.SupportsConditional() {
		req.Headers = withConditionalHeaders(req.Headers, entry)
		cache.ConditionalRequestsSent.Inc()
		t.logger.Debug().
			Str("url", req.URL).
			Str("etag", entry.ETag).
			Msg("Making conditional request")
	}

	resp, err := t.next.Execute(ctx, req)
	if err != nil {
		return nil, err
	}

	if resp.Status == http.StatusNotModified && entry != nil {
		t.logger.Debug().Str("url", req.URL).Msg("304 Not Modified - using cache")
		cache.NotModifiedResponses.Inc()

		// Refresh the TTL from the new expires header
		if expiresStr, ok := resp.Headers.Get("Expires"); ok {
			if err := t.store.UpdateTTL(ctx, key, cache.ParseExpires(expiresStr)); err != nil {
				t.logger.Warn().Err(err).Msg("Failed to update cache TTL")
			}
		}

		return entryToResponse(entry), nil
	}

	if resp.Status == http.StatusOK {
		fresh := responseToEntry(resp)
		if fresh.TTL() > 0 {
			if err := t.store.Set(ctx, key, fresh); err != nil {
				t.logger.Warn().Err(err).Msg("Failed to cache response")
			} else {
				t.logger.Debug().
					Str("url", req.URL).
					Dur("ttl", fresh.TTL()).
					Msg("Cached response")
			}
		}
	}

	return resp, nil
}

// withConditionalHeaders returns a copy of h with the entry's validator
// attached. ETag is preferred over Last-Modified.
func withConditionalHeaders(h *headers.Headers, entry *cache.Entry) *headers.Headers {
	out := h.Clone()
	if entry.ETag != "" {
		out.Set("If-None-Match", entry.ETag)
	} else if !entry.LastModified.IsZero() {
		out.Set("If-Modified-Since", entry.LastModified.Format(http.TimeFormat))
	}
	return out
}

// responseToEntry converts a materialized response into a cache entry,
// parsing the Expires and Last-Modified validators.
func responseToEntry(resp *Response) *cache.Entry {
	entry := &cache.Entry{
		Body:     resp.Body,
		Status:   resp.Status,
		Headers:  make(map[string][]string, resp.Headers.Len()),
		CachedAt: time.Now(),
	}

	for _, name := range resp.Headers.Names() {
		entry.Headers[name] = append([]string(nil), resp.Headers.Values(name)...)
	}

	if etag, ok := resp.Headers.Get("ETag"); ok {
		entry.ETag = etag
	}

	expiresStr, _ := resp.Headers.Get("Expires")
	entry.Expires = cache.ParseExpires(expiresStr)

	if lastModStr, ok := resp.Headers.Get("Last-Modified"); ok {
		if lastMod, err := http.ParseTime(lastModStr); err == nil {
			entry.LastModified = lastMod
		}
	}

	return entry
}

// entryToResponse converts a cache entry back into a response.
func entryToResponse(entry *cache.Entry) *Response {
	h := headers.New()
	for name, vs := range entry.Headers {
		for _, v := range vs {
			h.Add(name, v)
		}
	}
	return &Response{
		Status:  entry.Status,
		Headers: h,
		Body:    entry.Body,
	}
}
