package apperrors

import "errors"

// Validation errors
var (
	ErrEmptyBody      = errors.New("body must not be empty")
	ErrMissingID      = errors.New("identifier is required")
	ErrMissingParent  = errors.New("reply must reference a message")
	ErrParentMismatch = errors.New("reply target belongs to another message")
)

// Authorization errors
var (
	ErrNotOwner     = errors.New("caller does not own this resource")
	ErrUnauthorized = errors.New("authentication required")
)

// Resource errors
var (
	ErrNotFound = errors.New("resource not found")
)

// IsValidation reports whether err was caused by bad caller input.
func IsValidation(err error) bool {
	return errors.Is(err, ErrEmptyBody) || errors.Is(err, ErrMissingID) || errors.Is(err, ErrMissingParent) ||
		errors.Is(err, ErrParentMismatch)
}
