package apiclient

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrTimeout matches every *TimeoutError via errors.Is
var ErrTimeout = errors.New("request timed out")

// TimeoutError reports a request that got no response within the client
// timeout. The request was cancelled.
type TimeoutError struct {
	URL   string
	After time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("request to %s timed out after %s", e.URL, e.After)
}

func (e *TimeoutError) Is(target error) bool { return target == ErrTimeout }

// Timeout lets callers treat it like a net.Error
func (e *TimeoutError) Timeout() bool { return true }

// HTTPError is a response whose status is outside 2xx. The body is ignored.
type HTTPError struct {
	StatusCode int
	URL        string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d from %s", e.StatusCode, e.URL)
}

// MalformedResponseError is a 2xx response whose body does not match the
// expected schema
type MalformedResponseError struct {
	URL string
	Err error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed response from %s: %v", e.URL, e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

// NetworkError wraps transport failures other than a timeout
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("request to %s failed: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ValidationError is raised before any network call when a required field is
// missing or invalid
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ErrorKind classifies failures for logging, metrics and UI decisions
type ErrorKind string

const (
	KindNone              ErrorKind = ""
	KindNetworkTimeout    ErrorKind = "network_timeout"
	KindHTTPStatus        ErrorKind = "http_status"
	KindMalformedResponse ErrorKind = "malformed_response"
	KindValidation        ErrorKind = "validation"
	KindCanceled          ErrorKind = "canceled"
	KindNetwork           ErrorKind = "network"
)

// Classify maps an error returned by this package to its ErrorKind
func Classify(err error) ErrorKind {
	if err == nil {
		return KindNone
	}

	var (
		httpErr       *HTTPError
		malformedErr  *MalformedResponseError
		validationErr *ValidationError
	)

	switch {
	case errors.Is(err, ErrTimeout):
		return KindNetworkTimeout
	case errors.As(err, &httpErr):
		return KindHTTPStatus
	case errors.As(err, &malformedErr):
		return KindMalformedResponse
	case errors.As(err, &validationErr):
		return KindValidation
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	default:
		return KindNetwork
	}
}

// StatusCode returns the HTTP status carried by err, or 0
func StatusCode(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode
	}
	return 0
}
