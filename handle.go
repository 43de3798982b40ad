package cullgrid

import (
	"fmt"
	"math"
	"math/bits"

	"github.com/hupe1980/cullgrid/tags"
)

// Handle is a generational entity id. The zero Handle is never valid.
type Handle struct {
	index      uint32
	generation uint32
}

// IsZero reports whether h is the zero Handle.
func (h Handle) IsZero() bool { return h.generation == 0 }

func (h Handle) String() string {
	if h.IsZero() {
		return "handle(invalid)"
	}
	return fmt.Sprintf("handle(%d:%d)", h.index, h.generation)
}

// EntityRef is the caller's reference to the entity owning an indexed
// volume. It is opaque to the index.
type EntityRef uint64

// record is the per-entity state kept by the handle table.
type record struct {
	generation    uint32
	live          bool
	alwaysVisible bool
	categories    CategoryMask
	gridMask      uint64
	tags          tags.Set
	ref           EntityRef
}

// handleTable allocates instance indices and validates handles. Freed
// indices are reused last-in first-out with a bumped generation.
type handleTable struct {
	records []record
	free    []uint32
	live    int
}

func (t *handleTable) alloc() uint32 {
	if n := len(t.free); n > 0 {
		index := t.free[n-1]
		t.free = t.free[:n-1]
		t.records[index].live = true
		t.live++
		return index
	}
	t.records = append(t.records, record{generation: 1, live: true})
	t.live++
	return uint32(len(t.records) - 1)
}

func (t *handleTable) release(index uint32) {
	r := &t.records[index]
	gen := r.generation + 1
	if gen == 0 {
		gen = 1
	}
	*r = record{generation: gen}
	t.free = append(t.free, index)
	t.live--
}

func (t *handleTable) handle(index uint32) Handle {
	return Handle{index: index, generation: t.records[index].generation}
}

func (t *handleTable) get(op string, h Handle) (*record, error) {
	switch {
	case h.IsZero():
		return nil, handleError(op, h, "zero handle")
	case int(h.index) >= len(t.records):
		return nil, handleError(op, h, "index out of range")
	}
	r := &t.records[h.index]
	if !r.live || r.generation != h.generation {
		return nil, handleError(op, h, "stale generation")
	}
	return r, nil
}

func (t *handleTable) full() bool {
	// InvalidIndex is reserved by the grids.
	return len(t.free) == 0 && len(t.records) >= math.MaxUint32
}

// forEachBit calls fn for every set bit of mask, lowest first.
func forEachBit(mask uint64, fn func(bit int)) {
	for mask != 0 {
		bit := bits.TrailingZeros64(mask)
		mask &= mask - 1
		fn(bit)
	}
}
