package codec

import (
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/odatakit/odata-client/pkg/transport"
)

// EntityIDHeader carries the URL of a created entity, with its ID embedded
// as a UUID.
const EntityIDHeader = "OData-EntityId"

var uuidPattern = regexp.MustCompile(`[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`)

// Text always succeeds with the raw body string.
func Text() Decoder[string] {
	return New(func(resp *transport.Response) (string, error) {
		return resp.Body, nil
	})
}

// JSON parses the body as a generic structured value (object, array, or
// scalar). Parse errors become message-body failures.
func JSON() Decoder[any] {
	return New(func(resp *transport.Response) (any, error) {
		var v any
		if err := json.Unmarshal([]byte(resp.Body), &v); err != nil {
			return nil, MessageBodyFailure("parse json body", err)
		}
		return v, nil
	})
}

// As unmarshals the body directly into T. No runtime field validation is
// performed; the caller's expected shape is trusted.
func As[T any]() Decoder[T] {
	return New(func(resp *transport.Response) (T, error) {
		var v T
		if err := json.Unmarshal([]byte(resp.Body), &v); err != nil {
			var zero T
			return zero, MessageBodyFailure("parse json body", err)
		}
		return v, nil
	})
}

// Void ignores status and body entirely. Used when only "the call
// succeeded" matters.
func Void() Decoder[struct{}] {
	return New(func(resp *transport.Response) (struct{}, error) {
		return struct{}{}, nil
	})
}

// ReturnedID extracts the UUID embedded in the OData-EntityId header of a
// create response. Absence of the header, or a value without a UUID-shaped
// substring, is a missing-header failure.
func ReturnedID() Decoder[string] {
	return New(func(resp *transport.Response) (string, error) {
		v, ok := resp.Headers.Get(EntityIDHeader)
		if !ok {
			return "", MissingExpectedHeader(EntityIDHeader)
		}
		id := uuidPattern.FindString(v)
		if id == "" {
			return "", MissingExpectedHeader(EntityIDHeader)
		}
		return id, nil
	})
}

// ValueArray decodes the body as an object and returns its "value" array.
// An absent field yields an empty slice, never nil absence downstream.
func ValueArray[T any]() Decoder[[]T] {
	return New(func(resp *transport.Response) ([]T, error) {
		var wrapper struct {
			Value []T `json:"value"`
		}
		if err := json.Unmarshal([]byte(resp.Body), &wrapper); err != nil {
			return nil, MessageBodyFailure("parse value array", err)
		}
		if wrapper.Value == nil {
			return []T{}, nil
		}
		return wrapper.Value, nil
	})
}

// SingleValue decodes the body as an object and returns its "value" field
// as an optional: nil when the field is absent, not a failure.
func SingleValue[T any]() Decoder[*T] {
	return New(func(resp *transport.Response) (*T, error) {
		var wrapper struct {
			Value *T `json:"value"`
		}
		if err := json.Unmarshal([]byte(resp.Body), &wrapper); err != nil {
			return nil, MessageBodyFailure("parse value field", err)
		}
		return wrapper.Value, nil
	})
}

// ExpectOnlyOne decodes the body as an object. When a "value" array is
// present it must hold exactly one element; zero or more than one is an
// only-one-expected failure. When no "value" field is present at all, the
// whole object is reinterpreted as T directly, supporting endpoints that
// sometimes wrap and sometimes don't.
func ExpectOnlyOne[T any]() Decoder[T] {
	return New(func(resp *transport.Response) (T, error) {
		var zero T

		var probe struct {
			Value *[]json.RawMessage `json:"value"`
		}
		if err := json.Unmarshal([]byte(resp.Body), &probe); err != nil {
			return zero, MessageBodyFailure("parse value wrapper", err)
		}

		if probe.Value == nil {
			var v T
			if err := json.Unmarshal([]byte(resp.Body), &v); err != nil {
				return zero, MessageBodyFailure("parse unwrapped object", err)
			}
			return v, nil
		}

		elems := *probe.Value
		if len(elems) != 1 {
			return zero, OnlyOneExpected(fmt.Sprintf("expected exactly one value, got %d", len(elems)))
		}

		var v T
		if err := json.Unmarshal(elems[0], &v); err != nil {
			return zero, MessageBodyFailure("parse value element", err)
		}
		return v, nil
	})
}

// ExpectOnlyOneOption is ExpectOnlyOne with the only-one-expected failure
// turned into an empty-optional success. All other failures propagate.
func ExpectOnlyOneOption[T any]() Decoder[*T] {
	return New(func(resp *transport.Response) (*T, error) {
		v, err := ExpectOnlyOne[T]().Decode(resp)
		if err != nil {
			if IsKind(err, KindOnlyOneExpected) {
				return nil, nil
			}
			return nil, err
		}
		return &v, nil
	})
}
