// Package pagination follows server-driven nextLink cursors and exposes
// paginated list endpoints as lazy, cancelable sequences.
//
// The Iterator is consumer-driven: exactly one page is in flight at a
// time, the next page is requested only once the current one is drained,
// and Close stops further page requests. It also provides a bounded
// parallel fetcher for independent list URLs.
package pagination
