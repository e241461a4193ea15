package services

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidParameter marks a request the boundary must reject with 400.
	ErrInvalidParameter = errors.New("invalid parameter")
	// ErrSourceUnavailable is returned when database sync is not configured.
	ErrSourceUnavailable = errors.New("snapshot source not configured")
)

// invalidParameter wraps a validation message as ErrInvalidParameter.
func invalidParameter(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidParameter, fmt.Sprintf(format, args...))
}
