package cache

import (
	"net/http"
	"time"
)

const (
	// DefaultTTL is the fallback TTL when no expires header is present.
	DefaultTTL = 5 * time.Minute
)

// Entry represents a cached OData response.
type Entry struct {
	// Body is the response body.
	Body string `json:"body"`

	// ETag for conditional requests (If-None-Match).
	ETag string `json:"etag"`

	// Expires is when the entry becomes stale (from the Expires header).
	Expires time.Time `json:"expires"`

	// LastModified is from the Last-Modified header, used for
	// If-Modified-Since when no ETag is available.
	LastModified time.Time `json:"last_modified"`

	// Status is the HTTP status code of the cached response.
	Status int `json:"status"`

	// Headers are the response headers.
	Headers map[string][]string `json:"headers"`

	// CachedAt is when the response was stored.
	CachedAt time.Time `json:"cached_at"`
}

// IsExpired returns true if the entry has expired.
func (e *Entry) IsExpired() bool {
	return time.Now().After(e.Expires)
}

// TTL returns the time until expiration, 0 if already expired.
func (e *Entry) TTL() time.Duration {
	ttl := time.Until(e.Expires)
	if ttl < 0 {
		return 0
	}
	return ttl
}

// SupportsConditional reports whether the entry carries a validator usable
// for a conditional request.
func (e *Entry) SupportsConditional() bool {
	if e == nil {
		return false
	}
	return e.ETag != "" || !e.LastModified.IsZero()
}

// ParseExpires parses an Expires header value. Returns now + DefaultTTL when
// the value is empty or unparseable, and now for values already in the past.
func ParseExpires(value string) time.Time {
	if value == "" {
		return time.Now().Add(DefaultTTL)
	}

	expires, err := http.ParseTime(value)
	if err != nil {
		return time.Now().Add(DefaultTTL)
	}

	if expires.Before(time.Now()) {
		return time.Now()
	}

	return expires
}
