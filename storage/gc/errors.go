package gc

import (
	"errors"
	"fmt"
)

// ErrGC marks a violated height or refcount invariant of the chain. A pass
// failing with it returns without advancing the tail pointers.
var ErrGC = errors.New("garbage collection error")

// NewGCErrorf wraps ErrGC with context.
func NewGCErrorf(msg string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrGC, fmt.Sprintf(msg, args...))
}

// IsGCError returns whether err is caused by a violated GC invariant.
func IsGCError(err error) bool {
	return errors.Is(err, ErrGC)
}
