package model

import "errors"

var (
	// ErrNotFound is returned when a resource is not found.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when a resource already exists.
	ErrAlreadyExists = errors.New("already exists")
	// ErrNotValid is returned when a resource is not valid.
	ErrNotValid = errors.New("not valid")

	// ErrRateLimited is returned when the marketplace answers with "too many requests".
	// It terminates the whole batch and must never be converted into another kind.
	ErrRateLimited = errors.New("rate limited")
	// ErrNetwork is returned on non 2xx (and non rate limit) responses or transport failures.
	ErrNetwork = errors.New("network failure")
	// ErrValidation is returned when a response is malformed or misses required fields.
	ErrValidation = errors.New("invalid response")
	// ErrUnsupported is returned when an action kind has no remote effect defined.
	ErrUnsupported = errors.New("unsupported action")
	// ErrCancelled is returned when the user requested the stop.
	ErrCancelled = errors.New("cancelled by user")
)

// ErrorKind is the category of a failed action.
type ErrorKind string

const (
	ErrorKindNone        ErrorKind = ""
	ErrorKindNetwork     ErrorKind = "network"
	ErrorKindRateLimit   ErrorKind = "rate-limit"
	ErrorKindValidation  ErrorKind = "validation"
	ErrorKindUnsupported ErrorKind = "unsupported"
	ErrorKindCancelled   ErrorKind = "cancelled"
)

// ErrorKindOf classifies an error chain.
// Rate limit is checked first so it wins over any other kind wrapped in the same chain.
// Errors without a known kind are classified as network failures.
func ErrorKindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return ErrorKindNone
	case errors.Is(err, ErrRateLimited):
		return ErrorKindRateLimit
	case errors.Is(err, ErrCancelled):
		return ErrorKindCancelled
	case errors.Is(err, ErrUnsupported):
		return ErrorKindUnsupported
	case errors.Is(err, ErrValidation), errors.Is(err, ErrNotValid):
		return ErrorKindValidation
	default:
		return ErrorKindNetwork
	}
}
