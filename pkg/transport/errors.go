package transport

import (
	"errors"
)

// Common errors returned by transport decorators.
var (
	// ErrRetryExhausted is returned when all retry attempts are exhausted.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when the context is cancelled during
	// a retry backoff wait.
	ErrContextCancelled = errors.New("context cancelled")
)

// ErrorClass represents a classification of request outcomes.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors (not retried).
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassThrottle represents 429 throttling responses.
	ErrorClassThrottle ErrorClass = "throttle"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"
)

// Classify categorizes a request outcome for retry decisions and metrics.
// Returns the empty class for successful responses.
func Classify(resp *Response, err error) ErrorClass {
	if err != nil {
		return ErrorClassNetwork
	}
	switch {
	case resp.Status == 429:
		return ErrorClassThrottle
	case resp.Status >= 400 && resp.Status < 500:
		return ErrorClassClient
	case resp.Status >= 500:
		return ErrorClassServer
	default:
		return ""
	}
}

// shouldRetry determines if an outcome class is worth retrying.
func shouldRetry(class ErrorClass) bool {
	switch class {
	case ErrorClassClient:
		// 4xx errors are deterministic, retrying wastes the error budget
		return false
	case ErrorClassServer, ErrorClassThrottle, ErrorClassNetwork:
		return true
	default:
		return false
	}
}
