package transport

import (
	"fmt"
	"net/http"

	"github.com/mmcdole/booksync/internal/domain"
	"github.com/mmcdole/booksync/internal/retry"
)

// Messages shown to the user, keyed by status
const (
	msgConnectivity = "Unable to connect to server. Please check your internet connection."
	msgBadRequest   = "Invalid request"
	msgUnauthorized = "Unauthorized access. Please check your credentials."
	msgForbidden    = "Access forbidden"
	msgNotFound     = "Requested resource not found"
	msgTimeout      = "Request timeout. Please try again."
	msgRateLimited  = "Too many requests. Please wait a moment."
	msgServerError  = "Internal server error. Please try again later."
	msgUnavailable  = "Server temporarily unavailable. Please try again later."
	msgUnexpected   = "Unexpected response from server"
	msgCancelled    = "Request cancelled"
)

// userMessage maps a status to a non-technical message. For 400 and unknown
// statuses the server's own message wins when present.
func userMessage(code int, body []byte) string {
	switch code {
	case retry.StatusConnectionFailed:
		return msgConnectivity
	case http.StatusBadRequest:
		if m := serverMessage(body); m != "" {
			return m
		}
		return msgBadRequest
	case http.StatusUnauthorized:
		return msgUnauthorized
	case http.StatusForbidden:
		return msgForbidden
	case http.StatusNotFound:
		return msgNotFound
	case http.StatusRequestTimeout:
		return msgTimeout
	case http.StatusTooManyRequests:
		return msgRateLimited
	case http.StatusInternalServerError:
		return msgServerError
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return msgUnavailable
	default:
		if m := serverMessage(body); m != "" {
			return m
		}
		return fmt.Sprintf("Error %d: %s", code, http.StatusText(code))
	}
}

// classify assigns the error kind for a final failure
func classify(policy retry.Policy, code int) domain.Kind {
	switch {
	case code == http.StatusRequestTimeout:
		return domain.KindTimeout
	case code == retry.StatusConnectionFailed || policy.IsRetryable(code):
		return domain.KindTransient
	case code >= 400 && code < 500:
		return domain.KindPermanent
	default:
		return domain.KindUnknown
	}
}
