package storage

import (
	"errors"
	"fmt"
)

var (
	// Note: there is another not found error: pebble.ErrNotFound and badger.ErrKeyNotFound.
	// The difference is that those are returned by the database APIs, while modules in the
	// storage packages always return storage.ErrNotFound.
	ErrNotFound = errors.New("key not found")

	ErrAlreadyExists = errors.New("key already exists")

	// ErrInconsistentState is returned when a key that the chain invariants require to be
	// present is absent, or its value cannot be decoded.
	ErrInconsistentState = errors.New("storage inconsistent state")
)

// InconsistentStatef wraps ErrInconsistentState with context.
func InconsistentStatef(msg string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInconsistentState, fmt.Sprintf(msg, args...))
}

// RequirePresent converts ErrNotFound into ErrInconsistentState. It is used for
// lookups of keys which must exist.
func RequirePresent(err error, msg string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) {
		return InconsistentStatef(msg+": %v", append(args, err)...)
	}
	return fmt.Errorf(msg+": %w", append(args, err)...)
}
