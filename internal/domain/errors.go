package domain

import (
	"errors"
	"fmt"
)

// Kind classifies a failure for retry and presentation decisions
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindTransient
	KindPermanent
	KindTimeout
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindTransient:
		return "transient"
	case KindPermanent:
		return "permanent"
	case KindTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Kind sentinels, matched by (*Error).Is so callers can branch with errors.Is
var (
	ErrValidation = errors.New("invalid request")
	ErrTransient  = errors.New("transient transport failure")
	ErrPermanent  = errors.New("request rejected by server")
	ErrTimeout    = errors.New("request timed out")
	ErrUnknown    = errors.New("unexpected failure")
)

// Validation sentinels, carried in Error.Err
var (
	// ErrInvalidBookID indicates a non-positive book identifier
	ErrInvalidBookID = errors.New("invalid book ID")

	// ErrMissingTitle indicates an empty or blank title
	ErrMissingTitle = errors.New("title is required")

	// ErrMissingAuthors indicates that no non-blank author was supplied
	ErrMissingAuthors = errors.New("at least one author is required")

	// ErrMissingFile indicates a missing or zero-byte book file
	ErrMissingFile = errors.New("a non-empty book file is required")

	// ErrInvalidResponse indicates the server answered with an unexpected shape
	ErrInvalidResponse = errors.New("invalid response format")
)

// Error is the single normalized failure shape returned by every client operation.
type Error struct {
	Kind       Kind
	Message    string // user-facing, non-technical
	StatusCode int    // HTTP status; 0 for connection failures and validation
	Op         string // operation name, e.g. "books.add"
	Err        error  // underlying cause
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the kind sentinels
func (e *Error) Is(target error) bool {
	switch target {
	case ErrValidation:
		return e.Kind == KindValidation
	case ErrTransient:
		return e.Kind == KindTransient
	case ErrPermanent:
		return e.Kind == KindPermanent
	case ErrTimeout:
		return e.Kind == KindTimeout
	case ErrUnknown:
		return e.Kind == KindUnknown
	}
	return false
}

// NewValidationError builds a validation failure. These never reach the network.
func NewValidationError(op string, cause error) *Error {
	return &Error{
		Kind:    KindValidation,
		Message: cause.Error(),
		Op:      op,
		Err:     cause,
	}
}

// UserMessage extracts the presentable message from any error
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	if err == nil {
		return ""
	}
	return "An unexpected error occurred"
}
