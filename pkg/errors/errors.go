// Package errors provides the typed errors reported by a sync run.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure modes.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrRateLimit    = errors.New("rate limit exceeded")
	ErrUnavailable  = errors.New("service unavailable")
	ErrInvalidInput = errors.New("invalid input")
)

// Kind classifies a failure for reporting.
type Kind int

const (
	KindUncategorized Kind = iota
	KindRemote
	KindLocalStore
	KindMalformedIdentifier
	KindConcurrency
)

func (k Kind) String() string {
	switch k {
	case KindRemote:
		return "Kimai Error"
	case KindLocalStore:
		return "Timewarrior Error"
	case KindMalformedIdentifier:
		return "Parse Int Error"
	case KindConcurrency:
		return "Join Error"
	default:
		return "Other Error"
	}
}

// Error is a failure scoped to a single session.
type Error struct {
	Kind      Kind
	SessionID string
	Err       error
}

func (e *Error) Error() string {
	if e.SessionID != "" {
		return fmt.Sprintf("%s: @%s: %v", e.Kind, e.SessionID, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New wraps err with a kind. A nil err yields nil.
func New(kind Kind, sessionID string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, SessionID: sessionID, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUncategorized
}

// APIError represents an error from an external API call.
type APIError struct {
	Service    string
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s API error (status %d): %s: %v", e.Service, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("%s API error (status %d): %s", e.Service, e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error { return e.Err }

// NewAPIError creates a new API error. Well-known status codes wrap the
// matching sentinel so callers can use errors.Is.
func NewAPIError(service string, statusCode int, message string) *APIError {
	e := &APIError{Service: service, StatusCode: statusCode, Message: message}
	switch statusCode {
	case 404:
		e.Err = ErrNotFound
	case 429:
		e.Err = ErrRateLimit
	case 502, 503, 504:
		e.Err = ErrUnavailable
	case 400, 422:
		e.Err = ErrInvalidInput
	}
	return e
}

// IsRetryable returns true if the error is likely transient and worth retrying.
func IsRetryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case 429, 500, 502, 503, 504:
			return true
		}
	}
	return errors.Is(err, ErrRateLimit) || errors.Is(err, ErrUnavailable)
}
