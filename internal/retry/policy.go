// Package retry decides whether a failed request should be attempted again.
package retry

import (
	"net/http"
	"time"
)

// StatusConnectionFailed stands in for "no HTTP response at all"
const StatusConnectionFailed = 0

const (
	DefaultBaseDelay  = 1 * time.Second
	DefaultMaxRetries = 3
)

// Decision is the outcome of Policy.Decide
type Decision struct {
	Retry bool
	Delay time.Duration
}

// Policy is a pure exponential backoff policy over status codes
type Policy struct {
	BaseDelay  time.Duration
	MaxRetries int
	Retryable  map[int]bool
}

// DefaultRetryable is connection failure plus transient server and overload statuses
func DefaultRetryable() map[int]bool {
	return map[int]bool{
		StatusConnectionFailed:         true,
		http.StatusRequestTimeout:      true,
		http.StatusTooManyRequests:     true,
		http.StatusInternalServerError: true,
		http.StatusBadGateway:          true,
		http.StatusServiceUnavailable:  true,
		http.StatusGatewayTimeout:      true,
	}
}

// Default returns the 1s base, 3 retry policy
func Default() Policy {
	return Policy{
		BaseDelay:  DefaultBaseDelay,
		MaxRetries: DefaultMaxRetries,
		Retryable:  DefaultRetryable(),
	}
}

// IsRetryable reports whether code belongs to the retryable set
func (p Policy) IsRetryable(code int) bool {
	return p.Retryable[code]
}

// Decide returns whether attempt (0-based count of retries already made) may be
// followed by another one, and after which delay: BaseDelay * 2^attempt.
func (p Policy) Decide(code, attempt int) Decision {
	if attempt < 0 || attempt >= p.MaxRetries || !p.IsRetryable(code) {
		return Decision{}
	}
	return Decision{Retry: true, Delay: p.BaseDelay << attempt}
}
