// Package apierr defines the error taxonomy shared by all promtools clients.
package apierr

import "fmt"

// ValidationError reports malformed query input detected before any network
// activity. A single invalid entry aborts the whole batch.
type ValidationError struct {
	Query  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Query == "" {
		return "invalid query: " + e.Reason
	}
	return fmt.Sprintf("invalid query %q: %s", e.Query, e.Reason)
}

// UnsupportedInputError reports a batch input whose shape the normalizer
// does not accept.
type UnsupportedInputError struct {
	Type string
}

func (e *UnsupportedInputError) Error() string {
	return fmt.Sprintf("unsupported query input type %s", e.Type)
}

// AuthenticationError indicates the upstream rejected our credentials (401).
type AuthenticationError struct {
	Endpoint string
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("authentication failed for %s", e.Endpoint)
}

// RateLimitError indicates the upstream returned 429 after retries were
// exhausted. RetryAfter carries the Retry-After header value in seconds,
// zero when the header was absent.
type RateLimitError struct {
	Endpoint   string
	RetryAfter int
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limit exceeded for %s (retry after %ds)", e.Endpoint, e.RetryAfter)
	}
	return fmt.Sprintf("rate limit exceeded for %s", e.Endpoint)
}

// APIError is the generic request failure: any unhandled status >= 400, or a
// transport-level failure once retries are exhausted. Status is zero when no
// HTTP response was received.
type APIError struct {
	Endpoint string
	Status   int
	Body     string
	Err      error
}

func (e *APIError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("request to %s failed (HTTP %d): %s", e.Endpoint, e.Status, e.Body)
	}
	if e.Err != nil {
		return fmt.Sprintf("request to %s failed: %v", e.Endpoint, e.Err)
	}
	return fmt.Sprintf("request to %s failed", e.Endpoint)
}

func (e *APIError) Unwrap() error { return e.Err }

// ConfigurationError reports client misconfiguration such as a missing URL
// or incomplete credentials.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Reason
}
