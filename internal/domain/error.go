package domain

import (
	"errors"
	"fmt"
)

var (
	// Common domain errors. The web layer maps these onto HTTP statuses;
	// everything else matches them with errors.Is.
	ErrUnauthenticated    = errors.New("caller is not authenticated")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrNotFound           = errors.New("entity not found")
	ErrExpired            = errors.New("deadline exceeded")
	ErrResourceExhausted  = errors.New("resource exhausted")
	ErrFailedPrecondition = errors.New("failed precondition")
	ErrInternal           = errors.New("internal invariant violation")

	// ErrInsufficientCredits is a failed precondition with its own HTTP
	// status; errors.Is matches it under both.
	ErrInsufficientCredits = fmt.Errorf("%w: insufficient credits", ErrFailedPrecondition)
	ErrInvalidExecContext  = errors.New("invalid executor context")
)
