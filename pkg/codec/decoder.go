package codec

import (
	"github.com/odatakit/odata-client/pkg/transport"
)

// Decoder interprets a materialized response as a value of type T. Decoders
// are stateless and reusable; every combinator returns a new Decoder and
// never mutates its inputs. Combinators that change the value type are free
// functions because Go methods cannot introduce type parameters.
type Decoder[T any] struct {
	fn func(resp *transport.Response) (T, error)
}

// New wraps a decode function. Errors returned by fn are normalized to
// *DecodeError by Decode.
func New[T any](fn func(resp *transport.Response) (T, error)) Decoder[T] {
	return Decoder[T]{fn: fn}
}

// Decode runs the decoder against a response. The returned error, when
// non-nil, is always a *DecodeError.
func (d Decoder[T]) Decode(resp *transport.Response) (T, error) {
	v, err := d.fn(resp)
	if err != nil {
		var zero T
		return zero, WrapError(err)
	}
	return v, nil
}

// OrElse runs d; on failure it runs other against the same response.
// Response bodies are buffered strings, so re-inspection is safe.
func (d Decoder[T]) OrElse(other Decoder[T]) Decoder[T] {
	return New(func(resp *transport.Response) (T, error) {
		v, err := d.Decode(resp)
		if err != nil {
			return other.Decode(resp)
		}
		return v, nil
	})
}

// HandleError recovers every failure into a pure value.
func (d Decoder[T]) HandleError(recover func(*DecodeError) T) Decoder[T] {
	return New(func(resp *transport.Response) (T, error) {
		v, err := d.Decode(resp)
		if err != nil {
			de, _ := AsDecodeError(err)
			return recover(de), nil
		}
		return v, nil
	})
}

// HandleErrorWith recovers a failure by running a replacement decode
// attempt against the same response.
func (d Decoder[T]) HandleErrorWith(recover func(*DecodeError) Decoder[T]) Decoder[T] {
	return New(func(resp *transport.Response) (T, error) {
		v, err := d.Decode(resp)
		if err != nil {
			de, _ := AsDecodeError(err)
			return recover(de).Decode(resp)
		}
		return v, nil
	})
}

// Validate applies a predicate to the decoded value; a false result
// becomes a message-body failure with failedMsg.
func (d Decoder[T]) Validate(pred func(T) bool, failedMsg string) Decoder[T] {
	return New(func(resp *transport.Response) (T, error) {
		v, err := d.Decode(resp)
		if err != nil {
			return v, err
		}
		if !pred(v) {
			var zero T
			return zero, MessageBodyFailure(failedMsg, nil)
		}
		return v, nil
	})
}

// Map transforms the success value only; failures pass through unchanged.
func Map[A, B any](d Decoder[A], f func(A) B) Decoder[B] {
	return New(func(resp *transport.Response) (B, error) {
		a, err := d.Decode(resp)
		if err != nil {
			var zero B
			return zero, err
		}
		return f(a), nil
	})
}

// FlatMapR feeds the success value into f, which produces a new decode
// result; failures short-circuit.
func FlatMapR[A, B any](d Decoder[A], f func(A) (B, error)) Decoder[B] {
	return New(func(resp *transport.Response) (B, error) {
		a, err := d.Decode(resp)
		if err != nil {
			var zero B
			return zero, err
		}
		return f(a)
	})
}

// Transform remaps both branches of the decode result at once.
func Transform[A, B any](d Decoder[A], f func(A, error) (B, error)) Decoder[B] {
	return New(func(resp *transport.Response) (B, error) {
		return f(d.Decode(resp))
	})
}

// TransformWith remaps both branches into a new decode attempt against the
// same response.
func TransformWith[A, B any](d Decoder[A], f func(A, error) Decoder[B]) Decoder[B] {
	return New(func(resp *transport.Response) (B, error) {
		a, err := d.Decode(resp)
		return f(a, err).Decode(resp)
	})
}

// BiFlatMap dispatches on the decode result: onErr handles the failure
// branch, onOK the success branch, each producing a new result.
func BiFlatMap[A, B any](d Decoder[A], onErr func(*DecodeError) (B, error), onOK func(A) (B, error)) Decoder[B] {
	return New(func(resp *transport.Response) (B, error) {
		a, err := d.Decode(resp)
		if err != nil {
			de, _ := AsDecodeError(err)
			return onErr(de)
		}
		return onOK(a)
	})
}
