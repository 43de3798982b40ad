package cullgrid

import (
	"errors"
	"fmt"

	"github.com/hupe1980/cullgrid/internal/grid"
)

var (
	// ErrInvalidHandle is returned for zero, out-of-range or stale handles.
	ErrInvalidHandle = errors.New("invalid handle")

	// ErrInvalidArgument is returned for invalid bounds, category masks and
	// configuration values.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrTooManyCategories is returned when more categories are registered
	// than there are grid slots.
	ErrTooManyCategories = errors.New("too many categories")

	// ErrCorrupt indicates a broken internal invariant. The index must not
	// be used after it is returned.
	ErrCorrupt = grid.ErrCorrupt
)

// HandleError reports an operation refused because of an invalid handle.
//
// errors.Is(err, ErrInvalidHandle) holds for every HandleError.
type HandleError struct {
	Handle Handle
	Op     string
	cause  error
}

func (e *HandleError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Handle, e.cause)
}

func (e *HandleError) Unwrap() error { return e.cause }

func handleError(op string, h Handle, reason string) error {
	return &HandleError{Handle: h, Op: op, cause: fmt.Errorf("%w: %s", ErrInvalidHandle, reason)}
}

func invalidArgument(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}
