package theme

import (
	"errors"
	"fmt"
)

var (
	// ErrThemeNotFound is returned when a theme identifier does not name a
	// usable theme directory, including when its variable file vanished
	// after it was listed.
	ErrThemeNotFound = errors.New("theme not found")

	// ErrMissingVariables marks a theme directory without a variable file.
	ErrMissingVariables = errors.New("missing " + VariablesFile)
)

// RegistryUnavailableError is returned when the themes root itself cannot
// be read.
type RegistryUnavailableError struct {
	Root string
	Err  error
}

func (e *RegistryUnavailableError) Error() string {
	return fmt.Sprintf("themes root %s unavailable: %v", e.Root, e.Err)
}

func (e *RegistryUnavailableError) Unwrap() error { return e.Err }
