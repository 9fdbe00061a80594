package schema

import "errors"

// Error kinds surfaced by the object model. All are raised synchronously at
// the point of detection and are not retryable; callers match them with
// errors.Is.
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = errors.New("not found")
	ErrDuplicateObject = errors.New("duplicate object")
	ErrConflict        = errors.New("conflict")
)
