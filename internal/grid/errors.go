package grid

import "errors"

// ErrCorrupt reports a broken mapping/back-reference invariant. It means the
// structure was damaged by an earlier operation and must not be recovered
// from locally.
var ErrCorrupt = errors.New("grid: structure corrupt")
