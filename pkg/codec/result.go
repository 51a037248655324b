// Package codec turns raw transport responses into typed values through
// composable decoders. Decode failures are values carrying a closed kind
// set; they never escape as control flow until a caller escalates them.
package codec

import (
	"errors"
	"fmt"
)

// Kind classifies a decode failure. The set is closed.
type Kind string

const (
	// KindMessageBody indicates the body could not be interpreted as
	// requested (parse error, failed validation).
	KindMessageBody Kind = "message_body"

	// KindMissingHeader indicates an expected header was absent or did
	// not carry a usable value.
	KindMissingHeader Kind = "missing_header"

	// KindOnlyOneExpected indicates a wrapped value array did not hold
	// exactly one element.
	KindOnlyOneExpected Kind = "only_one_expected"

	// KindWrapped carries an unexpected transport or runtime error.
	KindWrapped Kind = "wrapped"
)

// DecodeError is the failure branch of a decode result.
type DecodeError struct {
	Kind   Kind
	Detail string
	Err    error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode %s failure: %s: %v", e.Kind, e.Detail, e.Err)
	}
	return fmt.Sprintf("decode %s failure: %s", e.Kind, e.Detail)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// MessageBodyFailure creates a body-interpretation failure. cause may be nil.
func MessageBodyFailure(reason string, cause error) *DecodeError {
	return &DecodeError{Kind: KindMessageBody, Detail: reason, Err: cause}
}

// MissingExpectedHeader creates a missing-header failure for name.
func MissingExpectedHeader(name string) *DecodeError {
	return &DecodeError{Kind: KindMissingHeader, Detail: name}
}

// OnlyOneExpected creates an exactly-one-element failure.
func OnlyOneExpected(detail string) *DecodeError {
	return &DecodeError{Kind: KindOnlyOneExpected, Detail: detail}
}

// WrapError wraps an unexpected error as a decode failure. Existing
// DecodeErrors pass through unchanged.
func WrapError(err error) *DecodeError {
	var de *DecodeError
	if errors.As(err, &de) {
		return de
	}
	return &DecodeError{Kind: KindWrapped, Detail: "unexpected error", Err: err}
}

// AsDecodeError extracts a *DecodeError from err.
func AsDecodeError(err error) (*DecodeError, bool) {
	var de *DecodeError
	ok := errors.As(err, &de)
	return de, ok
}

// IsKind reports whether err is a DecodeError of the given kind.
func IsKind(err error, kind Kind) bool {
	de, ok := AsDecodeError(err)
	return ok && de.Kind == kind
}
