package domain

import "errors"

// Error classes shared by every layer. Wrap them with fmt.Errorf("...: %w", ErrX)
// and classify with errors.Is.
var (
	// ErrInvalidArgument marks a missing or unparseable identifier or a rejected payload.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNotFound marks a referenced record that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict marks an update that lost an optimistic version check.
	ErrConflict = errors.New("conflict")
)
