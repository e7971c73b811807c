package shared

import "errors"

var (
	// ErrNotFound indicates resource not found or not owned by the caller.
	ErrNotFound = errors.New("not found")
	// ErrValidation indicates malformed or rule-breaking input.
	ErrValidation = errors.New("validation failed")
	// ErrConflict indicates a stale write or a replayed request.
	ErrConflict = errors.New("conflict")
	// ErrUnauthorized indicates a missing or unknown identity.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials error = &categorized{msg: "invalid credentials", category: ErrUnauthorized}
)

// categorized is a sentinel error that also matches its category.
type categorized struct {
	msg      string
	category error
}

func (e *categorized) Error() string { return e.msg }

func (e *categorized) Is(target error) bool { return target == e.category }

// NewValidationError builds a sentinel matching ErrValidation.
func NewValidationError(msg string) error {
	return &categorized{msg: msg, category: ErrValidation}
}

// NewNotFoundError builds a sentinel matching ErrNotFound.
func NewNotFoundError(msg string) error {
	return &categorized{msg: msg, category: ErrNotFound}
}

// NewConflictError builds a sentinel matching ErrConflict.
func NewConflictError(msg string) error {
	return &categorized{msg: msg, category: ErrConflict}
}

// FieldError reports a validation failure on a single input field.
type FieldError struct {
	Field  string
	Reason string
}

func (e FieldError) Error() string {
	return e.Field + ": " + e.Reason
}

// Is lets field errors surface as validation failures.
func (e FieldError) Is(target error) bool { return target == ErrValidation }
