package github

import (
	"errors"
	"fmt"
	"time"
)

// APIError carries a GitHub API failure with enough context to decide
// how the review workflow should degrade.
type APIError struct {
	StatusCode int
	Message    string
	URL        string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("github: API error %d: %s (URL: %s)", e.StatusCode, e.Message, e.URL)
}

// RateLimitError signals an exhausted quota window.
type RateLimitError struct {
	ResetAt   time.Time
	Remaining int
	Limit     int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("github: rate limit exceeded, resets at %s", e.ResetAt.Format(time.RFC3339))
}

// IsNotFound reports whether err is a 404 API error.
func IsNotFound(err error) bool { return hasStatus(err, 404) }

// IsUnauthorized reports whether err is a 401 API error.
func IsUnauthorized(err error) bool { return hasStatus(err, 401) }

// IsForbidden reports whether err is a 403 API error.
func IsForbidden(err error) bool { return hasStatus(err, 403) }

// IsRateLimited reports whether err is a quota exhaustion error.
func IsRateLimited(err error) bool {
	var limitErr *RateLimitError
	return errors.As(err, &limitErr)
}

func hasStatus(err error, code int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == code
}
