package venue

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrorClass separates venue failures the coordinator may retry from
// those it must not.
type ErrorClass string

const (
	// ErrorClassTransient covers timeouts, connectivity problems and
	// 5xx-equivalent venue responses. Retried up to the policy bound.
	ErrorClassTransient ErrorClass = "TRANSIENT"

	// ErrorClassPermanent covers validation rejections and anything
	// else retrying cannot fix. Fails the trade immediately.
	ErrorClassPermanent ErrorClass = "PERMANENT"
)

// Error is a typed venue failure with enough context to decide on
// retries and to surface a readable reason to the caller.
type Error struct {
	Venue      string
	Op         string
	Class      ErrorClass
	Message    string
	Underlying error
}

func (e *Error) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("venue %s: %s: %s: %v", e.Venue, e.Op, e.Message, e.Underlying)
	}
	return fmt.Sprintf("venue %s: %s: %s", e.Venue, e.Op, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Underlying
}

// Transient reports whether the failure is worth retrying.
func (e *Error) Transient() bool {
	return e.Class == ErrorClassTransient
}

// NewTransientError builds a retryable venue error.
func NewTransientError(venue, op, message string, underlying error) *Error {
	return &Error{Venue: venue, Op: op, Class: ErrorClassTransient, Message: message, Underlying: underlying}
}

// NewPermanentError builds a non-retryable venue error.
func NewPermanentError(venue, op, message string, underlying error) *Error {
	return &Error{Venue: venue, Op: op, Class: ErrorClassPermanent, Message: message, Underlying: underlying}
}

// IsTransient classifies an arbitrary error from an adapter call.
// Typed venue errors carry their own class; timeouts and network
// failures from the transport layer count as transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var ve *Error
	if errors.As(err, &ve) {
		return ve.Transient()
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	return false
}
