package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind classifies a collector failure
type Kind string

const (
	KindLookupFailed    Kind = "lookup_failed"
	KindEmptyIdentifier Kind = "empty_identifier"
	KindFetchFailed     Kind = "fetch_failed"
	KindMissingArgument Kind = "missing_argument"
	KindNetwork         Kind = "network"
	KindParsing         Kind = "parsing"
	KindUnknown         Kind = "unknown"
)

// Sentinels for errors.Is matching against a Kind
var (
	ErrLookupFailed    = &Error{Kind: KindLookupFailed}
	ErrEmptyIdentifier = &Error{Kind: KindEmptyIdentifier}
	ErrFetchFailed     = &Error{Kind: KindFetchFailed}
	ErrMissingArgument = &Error{Kind: KindMissingArgument}
	ErrNetwork         = &Error{Kind: KindNetwork}
	ErrParsing         = &Error{Kind: KindParsing}
)

// Error is the error type returned by the collector and the Instagram client
type Error struct {
	Kind       Kind
	Message    string
	Status     int
	StatusText string
	Err        error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Status != 0 {
		msg = fmt.Sprintf("%s: %d %s", msg, e.Status, e.StatusText)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports a match when target is an *Error of the same Kind
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// New creates an error of the given kind
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates an error of the given kind wrapping err
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// LookupFailed reports a non-success status from the profile lookup endpoint
func LookupFailed(status int, statusText string) *Error {
	return &Error{
		Kind:       KindLookupFailed,
		Message:    "failed to fetch profile id",
		Status:     status,
		StatusText: statusText,
	}
}

// FetchFailed reports a non-success status from a page fetch
func FetchFailed(status int, statusText string) *Error {
	return &Error{
		Kind:       KindFetchFailed,
		Message:    "failed to fetch following",
		Status:     status,
		StatusText: statusText,
	}
}

// MissingArgument reports a required command line argument that was not supplied
func MissingArgument(name string) *Error {
	return &Error{
		Kind:    KindMissingArgument,
		Message: fmt.Sprintf("missing %s", name),
	}
}

// KindOf returns the Kind of the first *Error in err's chain, or KindUnknown
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// StatusOf returns the HTTP status carried by err, or 0
func StatusOf(err error) int {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Status
	}
	return 0
}

// IsRetryable reports whether a failure is worth another attempt.
// Only used when retries are enabled in configuration.
func IsRetryable(err error) bool {
	var e *Error
	if !stderrors.As(err, &e) {
		return false
	}
	switch e.Kind {
	case KindNetwork:
		return true
	case KindLookupFailed, KindFetchFailed:
		return IsRetryableStatusCode(e.Status)
	default:
		return false
	}
}

// IsRetryableStatusCode checks if an HTTP status code indicates a transient failure
func IsRetryableStatusCode(statusCode int) bool {
	switch statusCode {
	case 429: // Too Many Requests
		return true
	case 401, 403, 404:
		return false
	default:
		return statusCode >= 500
	}
}
