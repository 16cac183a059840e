package usecase

import (
	"errors"
	"fmt"
)

// Error kinds. Concrete errors wrap one of these so callers can branch with errors.Is.
var (
	ErrValidation        = errors.New("validation error")
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid transition")
)

var (
	ErrJobNotFound      = fmt.Errorf("job %w", ErrNotFound)
	ErrCustomerNotFound = fmt.Errorf("customer %w", ErrNotFound)
	ErrUserNotFound     = fmt.Errorf("user %w", ErrNotFound)

	ErrInvalidJobID      = &ValidationError{Field: "id", Message: "is required"}
	ErrInvalidCustomerID = &ValidationError{Field: "customerId", Message: "is required"}
	ErrInvalidStage      = &ValidationError{Field: "stage", Message: "is not a known stage"}
	ErrInvalidValue      = &ValidationError{Field: "value", Message: "must not be negative"}
	ErrCustomerImmutable = &ValidationError{Field: "customerId", Message: "cannot be changed"}

	// ErrMissingActor means no acting user could be determined for an audited operation.
	ErrMissingActor = errors.New("acting user is required")
	ErrInactiveUser = errors.New("acting user is not active")

	ErrAlreadyInStage   = fmt.Errorf("%w: job is already in this stage", ErrInvalidTransition)
	ErrAlreadyArchived  = fmt.Errorf("%w: job is already archived", ErrInvalidTransition)
	ErrNotArchived      = fmt.Errorf("%w: job is not archived", ErrInvalidTransition)
	ErrNothingToCollect = fmt.Errorf("%w: job has no outstanding balance", ErrInvalidTransition)
)

// ValidationError is malformed input on a single field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// NewValidationError builds a ValidationError for field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}
