package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration is wrapped by every ConfigError.
	ErrConfiguration = errors.New("configuration error")
	// ErrInput is wrapped by every InputError.
	ErrInput = errors.New("input error")
)

// ConfigError reports an invalid Config field. It is returned before any bar is processed.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%v: strategy.%s %s", ErrConfiguration, e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error { return ErrConfiguration }

// InputError reports a bar that cannot be processed. Index is the zero-based bar position,
// or -1 when the sequence as a whole is invalid.
type InputError struct {
	Index  int
	Reason string
}

func (e *InputError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("%v: %s", ErrInput, e.Reason)
	}
	return fmt.Sprintf("%v: bar %d: %s", ErrInput, e.Index, e.Reason)
}

func (e *InputError) Unwrap() error { return ErrInput }
