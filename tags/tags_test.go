package tags

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const (
	tagA Tag = 3
	tagB Tag = 200
)

func TestSet(t *testing.T) {
	s := New(tagA, tagB, 64)

	assert.True(t, s.Has(tagA))
	assert.True(t, s.Has(tagB))
	assert.True(t, s.Has(64))
	assert.False(t, s.Has(4))
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, []Tag{tagA, 64, tagB}, s.Tags())
	assert.Equal(t, "{3,64,200}", s.String())

	s = s.Without(64)
	assert.False(t, s.Has(64))
	assert.True(t, Set{}.IsEmpty())
	assert.False(t, s.IsEmpty())

	assert.True(t, s.Intersects(New(tagB)))
	assert.False(t, s.Intersects(New(7)))
	assert.Equal(t, New(tagA, tagB, 7), s.Union(New(7)))
}

func TestFilter_Accepts(t *testing.T) {
	a, b := New(tagA), New(tagB)

	tests := []struct {
		name    string
		entity  Set
		include Set
		exclude Set
		want    bool
	}{
		{"include match", New(tagA), a, Set{}, true},
		{"exclude match", New(tagA), Set{}, a, false},
		{"include one of two", New(tagA, tagB), b, Set{}, true},
		{"no filter", New(tagA), Set{}, Set{}, true},
		{"include miss", New(tagA), b, Set{}, false},
		{"exclude wins over include", New(tagA, tagB), a, b, false},
		{"untagged with include", Set{}, a, Set{}, false},
		{"untagged with exclude", Set{}, Set{}, a, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := Filter{Include: tt.include, Exclude: tt.exclude}
			assert.Equal(t, tt.want, f.Accepts(tt.entity))
		})
	}
}

func TestNewFilter(t *testing.T) {
	assert.True(t, NewFilter(nil, nil).IsEmpty())

	in := New(tagA)
	f := NewFilter(&in, nil)
	assert.False(t, f.IsEmpty())
	assert.Equal(t, in, f.Include)
	assert.True(t, f.Exclude.IsEmpty())
	assert.Equal(t, "include={3} exclude={}", f.String())
}
