package config

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalid is wrapped by every ValidationError.
	ErrInvalid = errors.New("invalid configuration")
	// ErrLoadFailed is wrapped by every LoadError.
	ErrLoadFailed = errors.New("failed to load configuration")
)

// ValidationError reports one invalid field.
type ValidationError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid config: field %q with value %v: %s", e.Field, e.Value, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalid
}

// LoadError reports a config file that exists but could not be read or decoded.
type LoadError struct {
	File string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load config from %s: %v", e.File, e.Err)
}

func (e *LoadError) Unwrap() []error {
	return []error{ErrLoadFailed, e.Err}
}
