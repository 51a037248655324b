// Package cache provides conditional-request caching for OData responses
// with a Redis backend. Entries carry the response body together with ETag
// and Last-Modified validators so the transport layer can issue
// If-None-Match / If-Modified-Since requests and serve stored bodies on
// 304 Not Modified.
package cache
