package errors

import (
	stderrors "errors"
	"fmt"
)

// Error is the tagged error delivered to stream subscribers.
// An Error is never mutated after construction; helpers that change a field
// return a copy.
type Error struct {
	// Kind classifies the failure.
	Kind Kind `json:"kind"`
	// Message describes the failure.
	Message string `json:"message"`
	// Cause is the underlying error, if any.
	Cause error `json:"-"`
	// StatusBefore is the controller status immediately before this error.
	// Empty when the error was raised outside a controller.
	StatusBefore string `json:"status_before,omitempty"`
}

// Error returns the string representation of the error.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *Error) Unwrap() error { return e.Cause }

// WithStatusBefore returns a copy of the error carrying the given prior status.
func (e *Error) WithStatusBefore(status string) *Error {
	cp := *e
	cp.StatusBefore = status
	return &cp
}

// New creates an Error of the given kind.
func New(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// --- Kind constructors ---

// Transport creates a connection or network failure.
func Transport(message string, cause error) *Error {
	return New(KindTransport, message, cause)
}

// Protocol creates a wire-level payload failure.
func Protocol(message string, cause error) *Error {
	return New(KindProtocol, message, cause)
}

// Hydrate creates a failure of the caller's hydration function.
func Hydrate(message string, cause error) *Error {
	return New(KindHydrate, message, cause)
}

// Internal creates a failure caused by an unexpected state.
func Internal(message string, cause error) *Error {
	return New(KindInternal, message, cause)
}

// Wrap normalizes err into an *Error. If err already is (or wraps) an *Error it
// is returned unchanged; otherwise a new Error of the given kind is built with
// err as its cause. Wrap returns nil for a nil err.
func Wrap(err error, kind Kind, message string) *Error {
	if err == nil {
		return nil
	}
	if e, ok := As(err); ok {
		return e
	}
	return New(kind, message, err)
}

// FromPanic converts a recovered panic value into an Error of the given kind.
func FromPanic(v any, kind Kind, message string) *Error {
	if err, ok := v.(error); ok {
		return New(kind, message, err)
	}
	return New(kind, message, fmt.Errorf("panic: %v", v))
}

// --- Matchers ---

// As finds the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if stderrors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// IsTransport reports whether err is a transport error.
func IsTransport(err error) bool { return IsKind(err, KindTransport) }

// IsProtocol reports whether err is a protocol error.
func IsProtocol(err error) bool { return IsKind(err, KindProtocol) }

// IsHydrate reports whether err is a hydrate error.
func IsHydrate(err error) bool { return IsKind(err, KindHydrate) }

// IsInternal reports whether err is an internal error.
func IsInternal(err error) bool { return IsKind(err, KindInternal) }
