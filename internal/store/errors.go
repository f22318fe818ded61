package store

import (
	"errors"
	"fmt"
)

var (
	// ErrNilReducer is the panic value of New when no reducer is supplied.
	ErrNilReducer = errors.New("store: reducer must not be nil")

	// ErrNilListener is the panic value of Subscribe for a nil listener.
	ErrNilListener = errors.New("store: listener must not be nil")

	// ErrMalformedAction is returned by Dispatch for an action it cannot reduce.
	ErrMalformedAction = errors.New("store: malformed action")
)

// ListenerError records a listener that panicked during a notification pass.
type ListenerError struct {
	// Registration identifies the subscription that failed.
	Registration uint64

	// Value is the recovered panic value.
	Value any
}

// Error implements the error interface.
func (e *ListenerError) Error() string {
	return fmt.Sprintf("store: listener %d panicked: %v", e.Registration, e.Value)
}

// Unwrap returns the panic value when it is an error.
func (e *ListenerError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// IsMalformed reports whether err was caused by a rejected action.
func IsMalformed(err error) bool {
	return errors.Is(err, ErrMalformedAction)
}

// IsListenerError reports whether err carries at least one listener failure.
// Uses errors.As so joined and wrapped errors match.
func IsListenerError(err error) bool {
	var le *ListenerError
	return errors.As(err, &le)
}

// ListenerErrors extracts every listener failure from err, in the order the
// listeners ran.
func ListenerErrors(err error) []*ListenerError {
	switch e := err.(type) {
	case nil:
		return nil
	case *ListenerError:
		return []*ListenerError{e}
	case interface{ Unwrap() []error }:
		var out []*ListenerError
		for _, inner := range e.Unwrap() {
			out = append(out, ListenerErrors(inner)...)
		}
		return out
	}
	return ListenerErrors(errors.Unwrap(err))
}
