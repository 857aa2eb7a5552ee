package shelf

import "errors"

var (
	// ErrNotFound is returned when an item does not exist
	ErrNotFound = errors.New("not found")
	// ErrInternal is returned when an internal error occurs
	ErrInternal = errors.New("internal error")
	// ErrInvalidInput is returned when request validation fails
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnauthorized is returned when a bearer token is missing or rejected
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden is returned when the subject does not own the item
	ErrForbidden = errors.New("forbidden")
	// ErrConflict is returned when an item with the same id already exists
	ErrConflict = errors.New("conflict")
	// ErrStorageUnavailable is returned when the item store cannot be reached
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// ValidationError describes rejected input. Its message is safe to show to
// clients. It matches ErrInvalidInput with errors.Is.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return ErrInvalidInput.Error() + ": " + e.Msg }

func (e *ValidationError) Is(target error) bool { return target == ErrInvalidInput }
