package cell

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStamp_Packing(t *testing.T) {
	s := NewStamp(12345, Indirect)
	assert.Equal(t, uint64(12345), s.Frame())
	assert.Equal(t, Indirect, s.Kind())
	assert.Equal(t, Stamp(12345<<4|1), s)
}

func TestStamp_StateAt(t *testing.T) {
	const f, stale = 100, 5
	s := NewStamp(f, Direct)

	assert.Equal(t, Direct, s.StateAt(f, stale))
	assert.Equal(t, Direct, s.StateAt(f+stale, stale))
	assert.Equal(t, Invisible, s.StateAt(f+stale+1, stale))

	assert.Equal(t, Invisible, Stamp(0).StateAt(0, stale))
}

func TestStamp_MaxPrefersRecentThenDirect(t *testing.T) {
	var v uint64
	StoreMax(&v, NewStamp(5, Direct))
	StoreMax(&v, NewStamp(4, Direct))
	assert.Equal(t, NewStamp(5, Direct), Stamp(v))

	StoreMax(&v, NewStamp(6, Indirect))
	StoreMax(&v, NewStamp(6, Direct))
	StoreMax(&v, NewStamp(6, Indirect))
	assert.Equal(t, NewStamp(6, Direct), Stamp(v))
}

func TestVisibilityKind_String(t *testing.T) {
	assert.Equal(t, "direct", Direct.String())
	assert.Equal(t, "indirect", Indirect.String())
	assert.Equal(t, "invisible", Invisible.String())
	assert.Equal(t, "kind(9)", VisibilityKind(9).String())
}
