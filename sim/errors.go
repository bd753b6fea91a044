package sim

import (
	"errors"
	"fmt"
)

// ErrInvalidConfiguration is the sentinel wrapped by every *ConfigError.
// Configuration errors are never retried; callers surface them.
var ErrInvalidConfiguration = errors.New("invalid configuration")

// ConfigError reports a rejected parameter.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

// Unwrap lets errors.Is(err, ErrInvalidConfiguration) match.
func (e *ConfigError) Unwrap() error {
	return ErrInvalidConfiguration
}

func invalidf(field, format string, args ...any) error {
	return &ConfigError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// validateProbability checks p ∈ [0,1].
func validateProbability(field string, p float64) error {
	if p < 0 || p > 1 || p != p {
		return invalidf(field, "must be in [0,1], got %v", p)
	}
	return nil
}
