// Package errs defines the sentinel error kinds shared across the
// service graph. The pipeline never panics or unwinds on a bad input;
// every call that can fail returns one of these wrapped with context.
package errs

import "errors"

// Sentinel error kinds, see spec §7.
var (
	// ErrNotFound: service id not registered, or a resource could not be opened.
	ErrNotFound = errors.New("not found")

	// ErrInvalidArgument: malformed property value or out-of-range index.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrFormatUnsupported: requested image/audio format cannot be produced
	// and no converter is registered.
	ErrFormatUnsupported = errors.New("format unsupported")

	// ErrTransient: frame-level decode failure or network stall. Callers
	// substitute a black/silent frame and continue; this is logged, not fatal.
	ErrTransient = errors.New("transient")

	// ErrFatal: out-of-memory or pool exhaustion beyond the fallback.
	ErrFatal = errors.New("fatal")
)

// Is reports whether err wraps target, a thin re-export so callers don't
// need to import both errs and errors.
func Is(err, target error) bool {
	return errors.Is(err, target)
}
