package client

import (
	"fmt"
)

// StatusError reports a non-successful HTTP status on an Expect-style
// call, carrying the request context and the returned body.
type StatusError struct {
	Status int
	Method string
	URL    string
	Body   string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d for %s %s", e.Status, e.Method, e.URL)
}
