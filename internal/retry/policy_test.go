package retry

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDecide_RetryableCodesBackOffExponentially(t *testing.T) {
	p := Default()
	base := p.BaseDelay

	for code := range DefaultRetryable() {
		assert.Equal(t, Decision{Retry: true, Delay: base}, p.Decide(code, 0), "code %d", code)
		assert.Equal(t, Decision{Retry: true, Delay: 2 * base}, p.Decide(code, 1), "code %d", code)
		assert.Equal(t, Decision{Retry: true, Delay: 4 * base}, p.Decide(code, 2), "code %d", code)
		assert.Equal(t, Decision{}, p.Decide(code, 3), "code %d", code)
	}
}

func TestDecide_NonRetryableDeniedImmediately(t *testing.T) {
	p := Default()

	for _, code := range []int{
		http.StatusBadRequest,
		http.StatusUnauthorized,
		http.StatusForbidden,
		http.StatusNotFound,
		http.StatusConflict,
		http.StatusNotImplemented,
	} {
		assert.False(t, p.Decide(code, 0).Retry, "code %d", code)
	}
}

func TestDecide_CustomPolicy(t *testing.T) {
	p := Policy{
		BaseDelay:  10 * time.Millisecond,
		MaxRetries: 1,
		Retryable:  map[int]bool{http.StatusServiceUnavailable: true},
	}

	assert.Equal(t, Decision{Retry: true, Delay: 10 * time.Millisecond}, p.Decide(http.StatusServiceUnavailable, 0))
	assert.False(t, p.Decide(http.StatusServiceUnavailable, 1).Retry)
	assert.False(t, p.Decide(http.StatusInternalServerError, 0).Retry)
	assert.False(t, p.Decide(http.StatusServiceUnavailable, -1).Retry)
}

func TestDecide_ZeroPolicyNeverRetries(t *testing.T) {
	assert.False(t, Policy{}.Decide(StatusConnectionFailed, 0).Retry)
}
