// Package wrkrerr provides the engine-visible error kinds from the error
// handling design: a closed set of kinds, each mapping to a CLI exit code,
// with structured details instead of string matching.
package wrkrerr

import (
	"errors"
	"fmt"
)

// Kind is a closed enum of engine-visible error kinds.
type Kind string

const (
	// KindInvalidUsage means the caller misused a core operation (bad URL,
	// unsupported scheme, invalid pool size, unknown executor, ...). Not
	// retried; surfaced immediately.
	KindInvalidUsage Kind = "InvalidUsage"
	// KindTransport means an HTTP/gRPC transport error (DNS, connect,
	// reset, timeout). Recorded as a sample, never thrown to the caller.
	KindTransport Kind = "Transport"
	// KindProtocol means a non-2xx HTTP or non-zero gRPC status. Returned
	// on the result object, not as an error.
	KindProtocol Kind = "Protocol"
	// KindScriptError means the user script raised; aborts the current
	// iteration only.
	KindScriptError Kind = "ScriptError"
	// KindFatal means an internal invariant was violated; the run aborts.
	KindFatal Kind = "Fatal"
	// KindInvalidThreshold means a threshold expression failed to parse or
	// validate.
	KindInvalidThreshold Kind = "InvalidThreshold"
	// KindInvalidOptions means scenario/option parsing or validation
	// failed.
	KindInvalidOptions Kind = "InvalidOptions"
)

// ExitCode returns the CLI exit code (§6) associated with a Kind. Kinds that
// never reach the top level (Transport, Protocol) return 0 because they are
// resolved into result objects, not process exit codes.
func (k Kind) ExitCode() int {
	switch k {
	case KindScriptError:
		return 20
	case KindInvalidOptions, KindInvalidThreshold:
		return 30
	case KindFatal:
		return 40
	default:
		return 0
	}
}

// Error is a structured error carrying a Kind, a human message, optional
// details, and an optional wrapped cause.
type Error struct {
	Kind    Kind
	Message string
	Details map[string]interface{}
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap returns the wrapped cause, if any.
func (e *Error) Unwrap() error { return e.Err }

// WithDetail attaches a detail field and returns the receiver for chaining.
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New creates an *Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates an *Error of the given kind wrapping an existing error.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// InvalidUsage builds a KindInvalidUsage error.
func InvalidUsage(format string, args ...interface{}) *Error {
	return New(KindInvalidUsage, fmt.Sprintf(format, args...))
}

// Transport builds a KindTransport error.
func Transport(message string, err error) *Error {
	return Wrap(KindTransport, message, err)
}

// Protocol builds a KindProtocol error.
func Protocol(format string, args ...interface{}) *Error {
	return New(KindProtocol, fmt.Sprintf(format, args...))
}

// ScriptError builds a KindScriptError error.
func ScriptError(err error) *Error {
	return Wrap(KindScriptError, "script raised an error", err)
}

// Fatal builds a KindFatal error.
func Fatal(format string, args ...interface{}) *Error {
	return New(KindFatal, fmt.Sprintf(format, args...))
}

// InvalidThreshold builds a KindInvalidThreshold error.
func InvalidThreshold(format string, args ...interface{}) *Error {
	return New(KindInvalidThreshold, fmt.Sprintf(format, args...))
}

// InvalidOptions builds a KindInvalidOptions error.
func InvalidOptions(format string, args ...interface{}) *Error {
	return New(KindInvalidOptions, fmt.Sprintf(format, args...))
}

// KindOf extracts the Kind from err, if it (or a wrapped cause) is an
// *Error. ok is false for plain errors.
func KindOf(err error) (kind Kind, ok bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}
