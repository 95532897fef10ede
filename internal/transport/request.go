package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/mmcdole/booksync/internal/domain"
)

// Request is one logical call. Body is a byte slice so every retry resends it unchanged.
type Request struct {
	Op     string // operation name for logs and errors, e.g. "books.list"
	Method string
	Path   string // relative to the API prefix, or to the server root when Root is set
	Query  url.Values
	Header http.Header
	Body   []byte

	// Root resolves Path against the server root instead of the API prefix
	Root bool

	// Timeout overrides the client default for each attempt
	Timeout time.Duration

	// Background suppresses user notifications on failure
	Background bool
}

// Response is a successful (2xx) response with its body fully read
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Attempts   int
	Duration   time.Duration
}

// Decode unmarshals a JSON body into v
func (r *Response) Decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidResponse, err)
	}
	return nil
}

// serverMessage pulls a human message out of an error body, if the server sent one
func serverMessage(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	var payload struct {
		Message string          `json:"message"`
		Error   string          `json:"error"`
		Detail  json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if payload.Message != "" {
		return payload.Message
	}
	var detail string
	if len(payload.Detail) > 0 && json.Unmarshal(payload.Detail, &detail) == nil && detail != "" {
		return detail
	}
	return payload.Error
}

// statusError is the cause recorded for non-2xx responses
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status code: %d", e.code)
}

// StatusCode extracts the HTTP status from a normalized error, or 0
func StatusCode(err error) int {
	var e *domain.Error
	if errors.As(err, &e) {
		return e.StatusCode
	}
	return 0
}
