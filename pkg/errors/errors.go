// Package errors defines the error types surfaced by a subsheet run.
//
// Every error terminates the run: there are no retries and no partial
// output. The types exist so that call sites and tests can distinguish the
// failure class with errors.As.
package errors

import (
	"fmt"
	"strings"
)

// ConfigError indicates a missing or invalid configuration or credential field.
type ConfigError struct {
	// Field contains the name of the configuration field that caused the error
	Field string
	// Message contains the detailed error message
	Message string
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config error in field %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("config error: %s", e.Message)
}

// AuthError indicates a failure to obtain an access token from the Reddit
// token endpoint, either because the credentials were rejected or because
// the request itself failed.
type AuthError struct {
	// StatusCode is the HTTP status code (if a response was received)
	StatusCode int
	// Body contains the raw response body, which may hold more details
	Body string
	// Err contains the underlying error, e.g. a network or decode error
	Err error
}

func (e *AuthError) Error() string {
	var sb strings.Builder
	sb.WriteString("auth error")

	if e.StatusCode > 0 {
		fmt.Fprintf(&sb, ": status code %d", e.StatusCode)
	}
	if e.Body != "" {
		fmt.Fprintf(&sb, ", body: %q", e.Body)
	}
	if e.Err != nil {
		fmt.Fprintf(&sb, ", err: %v", e.Err)
	}

	return sb.String()
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// FetchError indicates a failed Reddit API request: a network failure, a
// non-2xx response (a 429 is reported like any other status, never retried),
// or a response body that could not be decoded.
type FetchError struct {
	// Operation is the name of the API operation that failed
	Operation string
	// URL is the URL that was being accessed
	URL string
	// StatusCode is the HTTP status code (0 if no response was received)
	StatusCode int
	// Err contains the underlying error if available
	Err error
}

func (e *FetchError) Error() string {
	var sb strings.Builder
	sb.WriteString("fetch error")

	if e.Operation != "" {
		fmt.Fprintf(&sb, " during %s", e.Operation)
	}
	if e.URL != "" {
		fmt.Fprintf(&sb, " to %s", e.URL)
	}
	if e.StatusCode > 0 {
		fmt.Fprintf(&sb, ": status code %d", e.StatusCode)
	}
	if e.Err != nil {
		fmt.Fprintf(&sb, ": %v", e.Err)
	}

	return sb.String()
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// MalformedInputError indicates that fetched data handed to the normalizer
// violated its input constraints, e.g. a post without an ID or without a
// creation timestamp. It signals an inconsistent fetch, not a user mistake.
type MalformedInputError struct {
	// PostID identifies the post whose data was malformed (may be empty)
	PostID string
	// Reason contains the detailed error message
	Reason string
}

func (e *MalformedInputError) Error() string {
	if e.PostID != "" {
		return fmt.Sprintf("malformed input for post %s: %s", e.PostID, e.Reason)
	}
	return fmt.Sprintf("malformed input: %s", e.Reason)
}

// WriteError indicates a failure to produce the output workbook. A run that
// returns one leaves no partial file behind.
type WriteError struct {
	// Path is the output path that could not be written
	Path string
	// Err contains the underlying error
	Err error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write error for %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}
