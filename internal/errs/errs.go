// Package errs defines the error kinds callers of Focal observe, per the
// core error handling contract: NotFound and BadRequest results never
// mutate state, ParseError is contained to a single file, StoreBusy carries
// a retry hint, Corruption is reported but not fatal, and Fatal is
// process-level.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies an error the way tool handlers and the indexer report it.
type Kind string

const (
	KindNotFound   Kind = "not_found"
	KindBadRequest Kind = "bad_request"
	KindParseError Kind = "parse_error"
	KindStoreBusy  Kind = "store_busy"
	KindCorruption Kind = "corruption"
	KindFatal      Kind = "fatal"
)

// Error wraps an underlying error with a Kind so handlers can branch on it
// with errors.As without string-matching messages.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func new_(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func NotFoundf(format string, args ...interface{}) error   { return new_(KindNotFound, format, args...) }
func BadRequestf(format string, args ...interface{}) error { return new_(KindBadRequest, format, args...) }
func Fatalf(format string, args ...interface{}) error       { return new_(KindFatal, format, args...) }

// ParseError records a per-file parse failure. Indexing treats these as
// non-fatal: the file is skipped and the batch continues.
func ParseError(path string, err error) error {
	return &Error{Kind: KindParseError, Message: "parse failed for " + path, Err: err}
}

// StoreBusy wraps a database timeout/lock-contention error with a retry
// hint for the caller.
func StoreBusy(err error) error {
	return &Error{Kind: KindStoreBusy, Message: "store busy, retry", Err: err}
}

// Corruption wraps an integrity-check failure surfaced by get_health.
func Corruption(message string, err error) error {
	return &Error{Kind: KindCorruption, Message: message, Err: err}
}

// Is reports whether err carries the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf returns the Kind of err, or "" if err does not wrap an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
