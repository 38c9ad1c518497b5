package handling

import (
	"errors"
	"fmt"
	"reflect"
)

var (
	// ErrUnsupportedHandler marks a callable that can never become a Member.
	ErrUnsupportedHandler = errors.New("handling: unsupported handler")

	// ErrInvocation marks a failure of the invocation mechanism itself, as
	// opposed to an error produced by handler code.
	ErrInvocation = errors.New("handling: message handler invocation failed")

	// ErrNoHandler is returned by Router.Handle when no member applies.
	ErrNoHandler = errors.New("handling: no handler for message")

	// ErrHandlerPanicked is reported to OnComplete hooks when a handler
	// panics. The panic itself keeps propagating.
	ErrHandlerPanicked = errors.New("handling: handler panicked")

	// ErrNilTarget is the cause recorded when an instance member is
	// invoked without a target.
	ErrNilTarget = errors.New("handling: target is nil")
)

// UnsupportedHandlerError is returned by NewMember when a callable cannot be
// turned into a Member: a parameter has no resolver, two resolvers put
// conflicting requirements on the payload type, or the callable has a shape
// that cannot be invoked.
type UnsupportedHandlerError struct {
	Callable string
	Reason   string
}

func (e *UnsupportedHandlerError) Error() string {
	return fmt.Sprintf("handling: unsupported handler %s: %s", e.Callable, e.Reason)
}

// Is reports ErrUnsupportedHandler as a match.
func (e *UnsupportedHandlerError) Is(target error) bool {
	return target == ErrUnsupportedHandler
}

func unsupported(callable, format string, args ...any) error {
	return &UnsupportedHandlerError{Callable: callable, Reason: fmt.Sprintf(format, args...)}
}

// InvocationError reports that a member could not be invoked for a message.
// It never wraps an error returned by handler code.
type InvocationError struct {
	// PayloadType is the payload type of the message being handled.
	PayloadType reflect.Type
	// Cause is the low-level reason the invocation failed.
	Cause error
}

func (e *InvocationError) Error() string {
	msg := fmt.Sprintf("handling: error handling an object of type [%s]", typeName(e.PayloadType))
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *InvocationError) Unwrap() error { return e.Cause }

// Is reports ErrInvocation as a match.
func (e *InvocationError) Is(target error) bool {
	return target == ErrInvocation
}

// FatalError marks an unrecoverable failure raised by handler code. It is
// returned to the caller unchanged and is never retried or suppressed by the
// Router.
type FatalError struct {
	Err error
}

// Fatal marks err as unrecoverable. It returns nil for a nil err.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return &FatalError{Err: err}
}

func (e *FatalError) Error() string { return "fatal: " + e.Err.Error() }
func (e *FatalError) Unwrap() error { return e.Err }

// IsFatal reports whether err carries a FatalError.
func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}

// ErrorClass is the classification of an error returned by Member.Handle or
// Router.Handle.
type ErrorClass int

const (
	// ClassNone is the class of a nil error.
	ClassNone ErrorClass = iota
	// ClassBusiness is an error produced by handler code.
	ClassBusiness
	// ClassFatal is an unrecoverable error marked with Fatal.
	ClassFatal
	// ClassMechanism is a failure of the dispatch machinery.
	ClassMechanism
)

// String returns the string representation of ErrorClass
func (c ErrorClass) String() string {
	switch c {
	case ClassNone:
		return "none"
	case ClassBusiness:
		return "business"
	case ClassFatal:
		return "fatal"
	case ClassMechanism:
		return "mechanism"
	default:
		return "unknown"
	}
}

// Classify sorts err into the business, fatal or mechanism class.
func Classify(err error) ErrorClass {
	switch {
	case err == nil:
		return ClassNone
	case IsFatal(err), errors.Is(err, ErrHandlerPanicked):
		return ClassFatal
	case errors.Is(err, ErrInvocation), errors.Is(err, ErrNoHandler):
		return ClassMechanism
	default:
		return ClassBusiness
	}
}
