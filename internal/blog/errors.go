package blog

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the referenced post or user does not exist.
	ErrNotFound = errors.New("not found")

	// ErrForbidden indicates the caller is not the owner of the resource.
	ErrForbidden = errors.New("forbidden")

	// ErrUnauthorized indicates there is no authenticated caller.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrConflict indicates a uniqueness constraint was violated at write time.
	// Repositories return it (wrapped) for duplicate (author, slug) or username.
	ErrConflict = errors.New("conflict")
)

// ValidationError reports invalid input for a single field.
// It is returned before any persistence is attempted.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// IsValidation reports whether err is (or wraps) a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
