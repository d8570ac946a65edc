// Package errors provides structured error types for the rule engine.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure modes.
var (
	ErrMalformedConfig = errors.New("malformed configuration")
	ErrUnknownModule   = errors.New("unknown module")
	ErrInvalidInput    = errors.New("invalid input")
)

// ConfigError describes why a tenant override was rejected.
type ConfigError struct {
	Module string
	Field  string
	Msg    string
	Err    error
}

func (e *ConfigError) Error() string {
	where := e.Module
	if e.Field != "" {
		where += "." + e.Field
	}
	if e.Msg == "" && e.Err != nil {
		return fmt.Sprintf("config %s: %v", where, e.Err)
	}
	return fmt.Sprintf("config %s: %s", where, e.Msg)
}

// Unwrap exposes the underlying cause. A ConfigError without one unwraps to
// ErrMalformedConfig so callers can match on the sentinel.
func (e *ConfigError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrMalformedConfig}
	}
	return []error{ErrMalformedConfig, e.Err}
}

// NewConfigError creates a ConfigError for a field.
func NewConfigError(module, field, format string, args ...any) *ConfigError {
	return &ConfigError{Module: module, Field: field, Msg: fmt.Sprintf(format, args...)}
}

// IsMalformed reports whether err marks a rejected configuration.
func IsMalformed(err error) bool {
	return errors.Is(err, ErrMalformedConfig)
}
