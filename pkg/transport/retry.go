package transport

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for retry operations.
var (
	odataRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "odata_retries_total",
		Help: "Total number of retry attempts by error class",
	}, []string{"error_class"})

	odataRetryBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "odata_retry_backoff_seconds",
		Help:    "Backoff duration for retries by error class",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"error_class"})

	odataRetryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "odata_retry_exhausted_total",
		Help: "Total number of times retry attempts were exhausted by error class",
	}, []string{"error_class"})
)

// RetryPolicy decides whether a failed outcome should be retried and after
// what delay. resp is nil when err is non-nil (network failure). Returning
// retry=false stops the attempt loop and surfaces the last outcome.
type RetryPolicy func(req Request, resp *Response, err error, attempt int) (delay time.Duration, retry bool)

// BackoffConfig holds the configuration for the default retry policy.
type BackoffConfig struct {
	// MaxAttempts is the maximum number of attempts (including the initial request).
	MaxAttempts int

	// InitialBackoff is the initial backoff duration.
	InitialBackoff time.Duration

	// MaxBackoff is the maximum backoff duration.
	MaxBackoff time.Duration

	// BackoffMultiplier is the multiplier for exponential backoff.
	BackoffMultiplier float64
}

// DefaultBackoffConfig returns the default backoff configuration.
func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{
		MaxAttempts:       3,
		InitialBackoff:    1 * time.Second,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// BackoffConfigForErrorClass returns the appropriate backoff configuration
// for an error class.
func BackoffConfigForErrorClass(class ErrorClass) BackoffConfig {
	switch class {
	case ErrorClassServer:
		// 5xx server errors - shorter backoff
		return BackoffConfig{
			MaxAttempts:       3,
			InitialBackoff:    1 * time.Second,
			MaxBackoff:        10 * time.Second,
			BackoffMultiplier: 2.0,
		}
	case ErrorClassThrottle:
		// 429 throttling - longer backoff, Retry-After usually overrides
		return BackoffConfig{
			MaxAttempts:       3,
			InitialBackoff:    5 * time.Second,
			MaxBackoff:        60 * time.Second,
			BackoffMultiplier: 2.0,
		}
	case ErrorClassNetwork:
		// Network errors - medium backoff
		return BackoffConfig{
			MaxAttempts:       3,
			InitialBackoff:    2 * time.Second,
			MaxBackoff:        30 * time.Second,
			BackoffMultiplier: 2.0,
		}
	default:
		return DefaultBackoffConfig()
	}
}

// DefaultPolicy returns a RetryPolicy with per-class exponential backoff and
// ±20% jitter. A Retry-After header on throttling responses overrides the
// computed backoff. 4xx outcomes are never retried.
func DefaultPolicy() RetryPolicy {
	return func(req Request, resp *Response, err error, attempt int) (time.Duration, bool) {
		class := Classify(resp, err)
		if class == "" || !shouldRetry(class) {
			return 0, false
		}

		config := BackoffConfigForErrorClass(class)
		if attempt >= config.MaxAttempts {
			return 0, false
		}

		if class == ErrorClassThrottle {
			if after, ok := retryAfter(resp); ok {
				return after, true
			}
		}

		backoff := config.InitialBackoff
		for i := 1; i < attempt; i++ {
			backoff = time.Duration(float64(backoff) * config.BackoffMultiplier)
			if backoff > config.MaxBackoff {
				backoff = config.MaxBackoff
				break
			}
		}

		// Add jitter (±20% randomness)
		jitter := time.Duration(float64(backoff) * (0.8 + rand.Float64()*0.4))
		return jitter, true
	}
}

// retryAfter parses a Retry-After header given in seconds.
func retryAfter(resp *Response) (time.Duration, bool) {
	v, ok := resp.Headers.Get("Retry-After")
	if !ok {
		return 0, false
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0, false
	}
	return time.Duration(secs) * time.Second, true
}

// Retrying wraps a Transport with a caller-supplied retry policy. The
// wrapped transport stays oblivious; all retry state lives in the loop.
type Retrying struct {
	next   Transport
	policy RetryPolicy
}

// NewRetrying creates a retrying decorator. A nil policy gets DefaultPolicy.
func NewRetrying(next Transport, policy RetryPolicy) *Retrying {
	if policy == nil {
		policy = DefaultPolicy()
	}
	return &Retrying{next: next, policy: policy}
}

// Execute implements Transport. It re-issues the request while the policy
// asks for retries, waiting out each delay with context cancellation
// support.
func (t *Retrying) Execute(ctx context.Context, req Request) (*Response, error) {
	var (
		resp    *Response
		lastErr error
	)

	for attempt := 1; ; attempt++ {
		resp, lastErr = t.next.Execute(ctx, req)
		if lastErr == nil && resp.IsSuccess() {
			if attempt > 1 {
				log.Info().
					Str("url", req.URL).
					Int("attempt", attempt).
					Msg("Request succeeded after retry")
			}
			return resp, nil
		}

		class := Classify(resp, lastErr)
		delay, retry := t.policy(req, resp, lastErr, attempt)
		if !retry {
			if shouldRetry(class) && attempt > 1 {
				// Policy gave up on a retriable class: exhausted
				odataRetryExhaustedTotal.WithLabelValues(string(class)).Inc()
				log.Warn().
					Str("error_class", string(class)).
					Int("attempts", attempt).
					Msg("Retry attempts exhausted")
				if lastErr != nil {
					return nil, fmt.Errorf("%w after %d attempts: %v", ErrRetryExhausted, attempt, lastErr)
				}
			}
			return resp, lastErr
		}

		odataRetriesTotal.WithLabelValues(string(class)).Inc()
		odataRetryBackoffSeconds.WithLabelValues(string(class)).Observe(delay.Seconds())

		log.Debug().
			Str("error_class", string(class)).
			Int("attempt", attempt).
			Dur("backoff", delay).
			Msg("Retrying request after backoff")

		select {
		case <-ctx.Done():
			log.Warn().
				Str("error_class", string(class)).
				Int("attempt", attempt).
				Msg("Context cancelled during retry backoff")
			return nil, fmt.Errorf("%w: %v", ErrContextCancelled, ctx.Err())
		case <-time.After(delay):
		}
	}
}
