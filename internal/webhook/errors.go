package webhook

import (
	"net/http"

	"github.com/pkg/errors"
)

// Kind classifies a failed delivery by how the provider should react to it.
type Kind int

const (
	KindInternal Kind = iota
	KindInvalidRequest
	KindUnauthorized
	KindDecodeError
	KindStoreUnavailable
	KindUpstreamUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindInvalidRequest:
		return "invalid_request"
	case KindUnauthorized:
		return "unauthorized"
	case KindDecodeError:
		return "decode_error"
	case KindStoreUnavailable:
		return "store_unavailable"
	case KindUpstreamUnavailable:
		return "upstream_unavailable"
	}
	return "internal"
}

// StatusCode maps the kind to a response status. 4xx stops provider retries,
// 5xx asks for redelivery.
func (k Kind) StatusCode() int {
	switch k {
	case KindInvalidRequest, KindDecodeError:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindStoreUnavailable:
		return http.StatusServiceUnavailable
	case KindUpstreamUnavailable:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// Retryable reports whether a redelivery of the same bytes may succeed.
func (k Kind) Retryable() bool {
	return k.StatusCode() >= http.StatusInternalServerError
}

type Error struct {
	Kind Kind
	Err  error
}

func newError(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

func (e *Error) Error() string {
	return e.Kind.String() + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Message is the text returned to the caller. Store and upstream details stay
// in the logs.
func (e *Error) Message() string {
	if e.Kind.Retryable() {
		return e.Kind.String()
	}
	return e.Error()
}

// KindOf returns the kind of a pipeline error, KindInternal for anything else.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
