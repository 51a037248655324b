package pagination

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/odatakit/odata-client/pkg/codec"
	"github.com/odatakit/odata-client/pkg/headers"
	"github.com/odatakit/odata-client/pkg/transport"
)

var (
	odataPagesFetchedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "odata_pages_fetched_total",
		Help: "Total number of list pages fetched while following nextLink cursors",
	})

	odataPageElementsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "odata_page_elements_total",
		Help: "Total number of elements emitted from fetched list pages",
	})
)

// Done is returned by Next when the sequence is exhausted.
var Done = errors.New("pagination: iteration complete")

// ErrClosed is returned by Next after Close has been called.
var ErrClosed = errors.New("pagination: iterator closed")

// PageError reports a non-successful status while fetching a page. Elements
// already emitted before the failing page remain observed by the consumer.
type PageError struct {
	URL    string
	Status int
	Body   string
}

// Error implements the error interface.
func (e *PageError) Error() string {
	return fmt.Sprintf("pagination: unexpected status %d fetching %s", e.Status, e.URL)
}

// page is the wire shape of one list page.
type page[T any] struct {
	Value    []T     `json:"value"`
	NextLink *string `json:"nextLink"`
}

// Iterator is a lazy, finite, non-restartable sequence over a paginated
// list endpoint. Each Stream call produces a fresh sequence.
type Iterator[T any] struct {
	ctx     context.Context
	cancel  context.CancelFunc
	tr      transport.Transport
	headers *headers.Headers
	logger  zerolog.Logger

	next    string
	hasNext bool
	elems   []T
	idx     int
	err     error
	closed  bool
	pages   int
}

// Stream starts a cursor-following unfold from initialURL. No request is
// issued until the first Next call; after that the iterator keeps at most
// one page in flight and asks for nextLink only when the consumer drains
// the current page.
func Stream[T any](ctx context.Context, tr transport.Transport, initialURL string, hdrs *headers.Headers) *Iterator[T] {
	ctx, cancel := context.WithCancel(ctx)
	return &Iterator[T]{
		ctx:     ctx,
		cancel:  cancel,
		tr:      tr,
		headers: hdrs.Clone(),
		logger:  log.With().Str("component", "pagination").Logger(),
		next:    initialURL,
		hasNext: true,
	}
}

// Next returns the next element of the sequence, Done when exhausted, or
// the failure that terminated the stream. Once an error is returned every
// subsequent call returns the same error.
func (it *Iterator[T]) Next() (T, error) {
	var zero T

	if it.closed {
		return zero, ErrClosed
	}
	if it.err != nil {
		return zero, it.err
	}

	for it.idx >= len(it.elems) {
		if !it.hasNext {
			return zero, Done
		}
		if err := it.fetchPage(); err != nil {
			it.err = err
			return zero, err
		}
	}

	v := it.elems[it.idx]
	it.idx++
	return v, nil
}

// fetchPage issues one GET to the current cursor and loads its elements.
func (it *Iterator[T]) fetchPage() error {
	select {
	case <-it.ctx.Done():
		return it.ctx.Err()
	default:
	}

	url := it.next
	resp, err := it.tr.Execute(it.ctx, transport.Request{
		Method:  http.MethodGet,
		URL:     url,
		Headers: it.headers.Clone(),
	})
	if err != nil {
		return fmt.Errorf("fetch page %s: %w", url, err)
	}

	if !resp.IsSuccess() {
		it.logger.Warn().
			Str("url", url).
			Int("status", resp.Status).
			Msg("Page fetch returned unexpected status")
		return &PageError{URL: url, Status: resp.Status, Body: resp.Body}
	}

	p, err := codec.As[page[T]]().Decode(resp)
	if err != nil {
		return fmt.Errorf("fetch page %s: %w", url, err)
	}

	it.elems = p.Value
	it.idx = 0
	it.hasNext = p.NextLink != nil
	if p.NextLink != nil {
		it.next = *p.NextLink
	} else {
		it.next = ""
	}

	it.pages++
	odataPagesFetchedTotal.Inc()
	odataPageElementsTotal.Add(float64(len(p.Value)))

	it.logger.Debug().
		Str("url", url).
		Int("elements", len(p.Value)).
		Bool("has_next", it.hasNext).
		Int("pages_fetched", it.pages).
		Msg("Fetched page")

	return nil
}

// Close cancels the iterator; no further page requests are issued.
// Implements io.Closer.
func (it *Iterator[T]) Close() error {
	if it.closed {
		return nil
	}
	it.closed = true
	it.cancel()
	return nil
}

// All adapts the iterator to a range-over-func sequence:
//
//	for v, err := range it.All() {
//	    if err != nil {
//	        return err
//	    }
//	    process(v)
//	}
//
// The iterator is closed when the loop ends.
func (it *Iterator[T]) All() iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		defer it.Close()
		for {
			v, err := it.Next()
			if errors.Is(err, Done) {
				return
			}
			if !yield(v, err) {
				return
			}
			if err != nil {
				return
			}
		}
	}
}

// Collect drains the iterator into a slice. On error the elements emitted
// before the failure are returned alongside it.
func Collect[T any](it *Iterator[T]) ([]T, error) {
	defer it.Close()
	var out []T
	for {
		v, err := it.Next()
		if errors.Is(err, Done) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, v)
	}
}
