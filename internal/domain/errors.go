package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument marks input rejected by validation.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrStoreUnavailable is returned when a durable backend cannot serve the request.
	ErrStoreUnavailable = errors.New("activity store unavailable")
)

// ValidationError carries a client-facing detail and matches ErrInvalidArgument.
type ValidationError struct {
	Detail string
}

func (e *ValidationError) Error() string { return e.Detail }

// Is lets errors.Is(err, ErrInvalidArgument) succeed.
func (e *ValidationError) Is(target error) bool { return target == ErrInvalidArgument }

// Invalid builds a ValidationError from a format string.
func Invalid(format string, args ...any) error {
	return &ValidationError{Detail: fmt.Sprintf(format, args...)}
}
