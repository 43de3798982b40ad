package cell

import (
	"fmt"
	"sync/atomic"
)

// VisibilityKind classifies how an entity was seen. Higher values win when
// two views stamp the same frame.
type VisibilityKind uint8

const (
	// Invisible means not seen within the staleness window.
	Invisible VisibilityKind = iota
	// Indirect means seen by a secondary view (shadow, reflection).
	Indirect
	// Direct means seen by a primary camera.
	Direct
)

func (k VisibilityKind) String() string {
	switch k {
	case Invisible:
		return "invisible"
	case Indirect:
		return "indirect"
	case Direct:
		return "direct"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

const (
	kindBits = 4
	kindMask = 1<<kindBits - 1
)

// Stamp packs a frame counter and a visibility kind: frame<<4 | kind.
type Stamp uint64

// NewStamp packs frame and kind.
func NewStamp(frame uint64, kind VisibilityKind) Stamp {
	return Stamp(frame<<kindBits | uint64(kind)&kindMask)
}

// Frame returns the frame the stamp was taken in.
func (s Stamp) Frame() uint64 {
	return uint64(s) >> kindBits
}

// Kind returns the stored visibility kind.
func (s Stamp) Kind() VisibilityKind {
	return VisibilityKind(uint64(s) & kindMask)
}

// StateAt reports the kind as seen from currentFrame: Invisible once more
// than staleAfter frames have passed since the stamp.
func (s Stamp) StateAt(currentFrame, staleAfter uint64) VisibilityKind {
	if currentFrame > s.Frame()+staleAfter {
		return Invisible
	}
	return s.Kind()
}

// StoreMax raises *addr to s if s is larger. Safe for concurrent writers.
func StoreMax(addr *uint64, s Stamp) {
	v := uint64(s)
	for {
		old := atomic.LoadUint64(addr)
		if old >= v {
			return
		}
		if atomic.CompareAndSwapUint64(addr, old, v) {
			return
		}
	}
}
