package gallery

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates the referenced image or group does not exist.
var ErrNotFound = errors.New("not found")

// ValidationError indicates user-correctable bad input; it is never retried
// automatically.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string { return e.msg }

// Validationf builds a ValidationError from a format string.
func Validationf(format string, args ...any) error {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
