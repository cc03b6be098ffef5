package source

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidSource reports a Spec that names no usable source.
	ErrInvalidSource = errors.New("invalid data source")
	// ErrNoCache reports a failed download with no cached copy to fall back to.
	ErrNoCache = errors.New("no cached copy available")
)

// HTTPError is a non-2xx response from the remote workbook host.
type HTTPError struct {
	StatusCode int
	Status     string
	URL        string
}

func (e *HTTPError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("http error: %s (%s)", e.Status, e.URL)
	}
	return fmt.Sprintf("http error: status=%d (%s)", e.StatusCode, e.URL)
}

// AuthError indicates the share link requires a sign-in (401/403).
type AuthError struct{ *HTTPError }

func (e *AuthError) Unwrap() error { return e.HTTPError }

func (e *AuthError) Error() string {
	return fmt.Sprintf("access denied, check that the link is shared publicly: %s", e.HTTPError.Error())
}

// RateLimitError indicates 429 responses and may include a Retry-After.
type RateLimitError struct {
	*HTTPError
	RetryAfter time.Duration
}

func (e *RateLimitError) Unwrap() error { return e.HTTPError }

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited: wait about %ds before retrying: %s", int(e.RetryAfter.Seconds()), e.HTTPError.Error())
	}
	return fmt.Sprintf("rate limited: %s", e.HTTPError.Error())
}

// ServerError indicates 5xx errors from the host.
type ServerError struct{ *HTTPError }

func (e *ServerError) Unwrap() error { return e.HTTPError }

func (e *ServerError) Error() string { return fmt.Sprintf("server error: %s", e.HTTPError.Error()) }

// UnreachableError indicates the host could not be contacted at all.
type UnreachableError struct {
	Host string
	Err  error
}

func (e *UnreachableError) Error() string {
	if e == nil {
		return "unreachable"
	}
	if e.Host != "" {
		return fmt.Sprintf("host unreachable at %s: %v", e.Host, e.Err)
	}
	return fmt.Sprintf("host unreachable: %v", e.Err)
}

func (e *UnreachableError) Unwrap() error { return e.Err }
