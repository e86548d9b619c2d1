package core

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Sentinel errors. Every transport error matches exactly one of these through errors.Is.
var (
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrAuthFailed    = errors.New("authentication failed")
	ErrHTTP          = errors.New("http error")
	ErrParse         = errors.New("parse error")
	ErrTimeout       = errors.New("timeout")
	ErrNetwork       = errors.New("network error")
)

// ErrorKind tags a transport error with its category.
type ErrorKind string

const (
	// KindInvalidConfig indicates a configuration value or call input was rejected before sending
	KindInvalidConfig ErrorKind = "invalid_config"

	// KindAuthFailed indicates the API key exchange was rejected
	KindAuthFailed ErrorKind = "auth_failed"

	// KindHTTP indicates the backend answered with a non-success status
	KindHTTP ErrorKind = "http"

	// KindParse indicates a response body or stream line was not valid JSON
	KindParse ErrorKind = "parse"

	// KindTimeout indicates the call did not settle within its deadline
	KindTimeout ErrorKind = "timeout"

	// KindNetwork indicates the request never produced a response
	KindNetwork ErrorKind = "network"

	// KindUnknown is returned by KindOf for errors outside the taxonomy
	KindUnknown ErrorKind = "unknown"
)

// ConfigError represents configuration-related errors
type ConfigError struct {
	Field string
	Value any
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error in field %s (value: %v): %v", e.Field, e.Value, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

func (e *ConfigError) Is(target error) bool {
	return target == ErrInvalidConfig
}

// Kind returns KindInvalidConfig.
func (e *ConfigError) Kind() ErrorKind { return KindInvalidConfig }

// AuthError is returned when the API key exchange endpoint rejects the key.
type AuthError struct {
	Status     int
	StatusText string
	Body       any
	Err        error
}

func (e *AuthError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("authentication failed: %v", e.Err)
	}
	return fmt.Sprintf("authentication failed (%d %s): %v", e.Status, e.StatusText, e.Body)
}

func (e *AuthError) Unwrap() error { return e.Err }

func (e *AuthError) Is(target error) bool { return target == ErrAuthFailed }

// Kind returns KindAuthFailed.
func (e *AuthError) Kind() ErrorKind { return KindAuthFailed }

// HTTPError carries a non-success backend response. Body is the decoded JSON
// value when the body parsed, otherwise the raw text.
type HTTPError struct {
	Command    string
	Status     int
	StatusText string
	Body       any
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s: %d %s: %v", e.Command, e.Status, e.StatusText, e.Body)
}

func (e *HTTPError) Is(target error) bool { return target == ErrHTTP }

// Kind returns KindHTTP.
func (e *HTTPError) Kind() ErrorKind { return KindHTTP }

// NewHTTPError builds an HTTPError, deriving the status text from the code
// when the response did not supply one.
func NewHTTPError(command string, status int, statusText string, body any) *HTTPError {
	if statusText == "" {
		statusText = http.StatusText(status)
	}
	return &HTTPError{
		Command:    command,
		Status:     status,
		StatusText: statusText,
		Body:       body,
	}
}

// ParseError reports a line or body that could not be decoded.
type ParseError struct {
	RawLine string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot parse %q: %v", e.RawLine, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Is(target error) bool { return target == ErrParse }

// Kind returns KindParse.
func (e *ParseError) Kind() ErrorKind { return KindParse }

// TimeoutError reports an operation that did not settle within Duration.
type TimeoutError struct {
	Label    string
	Duration time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %s", e.Label, e.Duration)
}

func (e *TimeoutError) Is(target error) bool { return target == ErrTimeout }

// Kind returns KindTimeout.
func (e *TimeoutError) Kind() ErrorKind { return KindTimeout }

// NetworkError wraps a failure to reach the backend or read its response.
type NetworkError struct {
	Operation string
	Err       error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error in %s: %v", e.Operation, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

func (e *NetworkError) Is(target error) bool { return target == ErrNetwork }

// Kind returns KindNetwork.
func (e *NetworkError) Kind() ErrorKind { return KindNetwork }

// KindOf reports the category of err, looking through wrapping.
func KindOf(err error) ErrorKind {
	var kinded interface{ Kind() ErrorKind }
	if errors.As(err, &kinded) {
		return kinded.Kind()
	}
	return KindUnknown
}
