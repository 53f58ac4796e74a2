// Package apperr defines the error taxonomy shared by the conversation,
// booking and reminder components and its mapping onto HTTP responses.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for propagation decisions.
type Kind string

const (
	KindNotFound        Kind = "not_found"
	KindProvider        Kind = "provider_error"
	KindParse           Kind = "parse_error"
	KindValidation      Kind = "validation_error"
	KindUnavailableSlot Kind = "unavailable_slot"
	KindInternal        Kind = "internal"
)

// Error carries a Kind plus the operation that produced it.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Detail  map[string]any
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	} else if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	if e.Op == "" {
		return msg
	}
	return fmt.Sprintf("%s: %s", e.Op, msg)
}

func (e *Error) Unwrap() error { return e.Err }

// NotFound reports a missing lead, organization, booking or reminder.
func NotFound(op, message string, err error) *Error {
	return &Error{Kind: KindNotFound, Op: op, Message: message, Err: err}
}

// Provider reports a failed messaging, LLM or calendar call.
func Provider(op string, err error) *Error {
	return &Error{Kind: KindProvider, Op: op, Err: err}
}

// Parse reports an unparseable date/time or structured response.
func Parse(op, message string) *Error {
	return &Error{Kind: KindParse, Op: op, Message: message}
}

// Validation reports missing or malformed input fields.
func Validation(op, message string, detail map[string]any) *Error {
	return &Error{Kind: KindValidation, Op: op, Message: message, Detail: detail}
}

// UnavailableSlot reports a calendar conflict.
func UnavailableSlot(op, message string) *Error {
	return &Error{Kind: KindUnavailableSlot, Op: op, Message: message}
}

// KindOf returns the Kind of the first *Error in err's chain, or
// KindInternal when there is none.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
