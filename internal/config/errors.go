package config

import (
	"errors"
	"fmt"
)

// ErrConfiguration matches every *Error via errors.Is.
var ErrConfiguration = errors.New("configuration error")

// Error reports a composition key that does not resolve to a capability.
// It is the only error that should abort startup.
type Error struct {
	// Key names the setting, e.g. "auth mode".
	Key string

	// Value is the rejected input.
	Value string
}

func NewError(key, value string) *Error {
	return &Error{Key: key, Value: value}
}

func (e *Error) Error() string {
	return fmt.Sprintf("configuration error: unknown %s %q", e.Key, e.Value)
}

func (e *Error) Is(target error) bool {
	return target == ErrConfiguration
}
