package provider

import (
	"errors"
	"fmt"
	"net/http"
)

// ProviderError is the single error surface for remote API failures.
// Retryable is true for network errors, rate limits and 5xx responses;
// auth and validation failures (other 4xx) are never retried.
type ProviderError struct {
	Service    string
	Op         string
	StatusCode int // 0 when the request never reached the server
	Retryable  bool
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s %s: status %d: %v", e.Service, e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Service, e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// newProviderError classifies a failure by status code. statusCode 0 means
// a transport-level failure, which is always retryable.
func newProviderError(service, op string, statusCode int, err error) *ProviderError {
	retryable := statusCode == 0 ||
		statusCode == http.StatusTooManyRequests ||
		statusCode >= 500
	return &ProviderError{
		Service:    service,
		Op:         op,
		StatusCode: statusCode,
		Retryable:  retryable,
		Err:        err,
	}
}

// IsRetryable reports whether err is a retryable provider failure.
func IsRetryable(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Retryable
}
