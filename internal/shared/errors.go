package shared

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")
	ErrInvalidPlaylistID  = fmt.Errorf("invalid playlist id")
	ErrMappingExists      = fmt.Errorf("mapping already exists")
	ErrMappingNotFound    = fmt.Errorf("mapping not found")

	// Authentication errors
	ErrAuthFailed       = fmt.Errorf("authentication failed")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrNoRefreshToken   = fmt.Errorf("no refresh token available")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrRateLimited        = fmt.Errorf("rate limited")
	ErrPlaylistNotFound   = fmt.Errorf("playlist not found")
	ErrMalformedResponse  = fmt.Errorf("malformed response")

	// Sync errors
	ErrSyncLocked  = fmt.Errorf("another sync is already running")
	ErrNoMappings  = fmt.Errorf("no playlist mappings configured")
	ErrInvalidPlan = fmt.Errorf("invalid sync plan")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)

// ErrorKind is the failure taxonomy shared by the catalog clients and the mapping validator.
type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindAuthFailure
	KindNotFound
	KindRateLimited
	KindTransient
	KindMalformed
)

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "NONE"
	case KindAuthFailure:
		return "AUTH_FAILURE"
	case KindNotFound:
		return "NOT_FOUND"
	case KindRateLimited:
		return "RATE_LIMITED"
	case KindTransient:
		return "TRANSIENT"
	case KindMalformed:
		return "MALFORMED"
	default:
		return "UNKNOWN"
	}
}

// Retryable reports whether an operation failing with this kind may succeed on retry.
func (k ErrorKind) Retryable() bool {
	return k == KindRateLimited || k == KindTransient
}

// ServiceError is a catalog client failure tagged with its [ErrorKind].
type ServiceError struct {
	Kind   ErrorKind
	Op     string // e.g. "youtube.search"
	Status int    // HTTP status, 0 for transport failures
	Err    error
}

func (e *ServiceError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s (status %d): %v", e.Op, e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// NewServiceError wraps err with kind and operation name.
func NewServiceError(kind ErrorKind, op string, status int, err error) *ServiceError {
	return &ServiceError{Kind: kind, Op: op, Status: status, Err: err}
}

// KindForStatus maps an HTTP status code to an [ErrorKind].
func KindForStatus(status int) ErrorKind {
	switch {
	case status >= 200 && status < 300:
		return KindNone
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return KindAuthFailure
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusTooManyRequests:
		return KindRateLimited
	case status >= 500:
		return KindTransient
	default:
		return KindMalformed
	}
}

// StatusError builds the [ServiceError] for a non-2xx response.
func StatusError(op string, status int, body string) *ServiceError {
	kind := KindForStatus(status)
	var base error
	switch kind {
	case KindAuthFailure:
		base = ErrAuthFailed
	case KindNotFound:
		base = ErrPlaylistNotFound
	case KindRateLimited:
		base = ErrRateLimited
	case KindTransient:
		base = ErrServiceUnavailable
	default:
		base = ErrAPIRequest
	}
	if body != "" {
		return NewServiceError(kind, op, status, fmt.Errorf("%w: %s", base, body))
	}
	return NewServiceError(kind, op, status, base)
}

// TransportError tags a failed round trip. Cancellation is left untagged.
func TransportError(op string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	return NewServiceError(KindTransient, op, 0, err)
}

// KindOf reduces an error chain to an [ErrorKind].
//
// Untagged errors fall back to sentinel and network checks; anything else is TRANSIENT.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindNone
	}

	var se *ServiceError
	if errors.As(err, &se) {
		return se.Kind
	}

	switch {
	case errors.Is(err, ErrAuthFailed), errors.Is(err, ErrNotAuthenticated), errors.Is(err, ErrNoRefreshToken):
		return KindAuthFailure
	case errors.Is(err, ErrPlaylistNotFound):
		return KindNotFound
	case errors.Is(err, ErrRateLimited):
		return KindRateLimited
	case errors.Is(err, ErrMalformedResponse):
		return KindMalformed
	}

	return KindTransient
}
