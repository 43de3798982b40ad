// Package pool provides reusable scratch state for queries.
// Uses sync.Pool for automatic memory reuse across queries and goroutines.
package pool

import (
	"sync"

	"github.com/RoaringBitmap/roaring/v2"
)

const (
	// DefaultRefCapacity is the initial capacity of the result buffer.
	DefaultRefCapacity = 1024

	// MaxRetainedRefs caps the result buffer kept across queries so one
	// huge query does not pin its buffer forever.
	MaxRetainedRefs = 1 << 20
)

// QueryContext holds per-query scratch buffers.
type QueryContext struct {
	// Seen suppresses entities reported by more than one grid.
	Seen *roaring.Bitmap
	// Refs collects frustum hits.
	Refs []uint64
}

var queryContextPool = sync.Pool{
	New: func() any {
		return &QueryContext{
			Seen: roaring.New(),
			Refs: make([]uint64, 0, DefaultRefCapacity),
		}
	},
}

// Get retrieves a reset QueryContext from the pool.
func Get() *QueryContext {
	return queryContextPool.Get().(*QueryContext)
}

// Put resets c and returns it to the pool.
func Put(c *QueryContext) {
	if c == nil {
		return
	}
	c.Reset()
	if cap(c.Refs) > MaxRetainedRefs {
		c.Refs = make([]uint64, 0, DefaultRefCapacity)
	}
	queryContextPool.Put(c)
}

// Reset clears the buffers, keeping their capacity.
func (c *QueryContext) Reset() {
	c.Seen.Clear()
	c.Refs = c.Refs[:0]
}
