package llm

import (
	"context"
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

// ErrNoChoices is returned when a vendor answers without any completion.
var ErrNoChoices = errors.New("no choices in response")

// APIError is a non-success answer from a vendor endpoint.
type APIError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error (HTTP %d): %s", e.Provider, e.StatusCode, truncate(e.Body, 400))
}

// Retryable reports whether the status code describes a transient condition.
// Rate limits, timeouts, conflicts and server errors are transient. Every
// other 4xx (authentication, bad request, unknown model) is fatal.
func (e *APIError) Retryable() bool {
	switch {
	case e.StatusCode == http.StatusRequestTimeout,
		e.StatusCode == http.StatusConflict,
		e.StatusCode == http.StatusTooManyRequests:
		return true
	case e.StatusCode >= 500:
		return true
	case e.StatusCode >= 400:
		return false
	}
	// Status 0 means the request never got an HTTP answer.
	return true
}

// IsRetryable classifies an error returned by Provider.Chat. Deadline errors
// stay transient since they usually come from the per-request HTTP timeout;
// callers check their own context separately.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable()
	}
	// Transport failures, malformed bodies and empty answers.
	return true
}

func truncate(s string, maxChars int) string {
	runes := []rune(s)
	if len(runes) <= maxChars {
		return s
	}
	return string(runes[:maxChars])
}
