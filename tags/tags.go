// Package tags implements the fixed-width tag sets attached to indexed
// entities and the include/exclude filters queries apply to them.
package tags

import (
	"math/bits"
	"strconv"
	"strings"
)

// MaxTags is the number of distinct tags a Set can hold.
const MaxTags = 256

// Tag identifies one tag bit.
type Tag uint8

// Set is a 256-bit tag set. It is comparable, so it can be used as (part of)
// a map key.
type Set [4]uint64

// New returns a set holding the given tags.
func New(ts ...Tag) Set {
	var s Set
	for _, t := range ts {
		s = s.With(t)
	}
	return s
}

// With returns s with t added.
func (s Set) With(t Tag) Set {
	s[t>>6] |= 1 << (t & 63)
	return s
}

// Without returns s with t removed.
func (s Set) Without(t Tag) Set {
	s[t>>6] &^= 1 << (t & 63)
	return s
}

// Has reports whether t is in s.
func (s Set) Has(t Tag) bool {
	return s[t>>6]&(1<<(t&63)) != 0
}

// IsEmpty reports whether no tag is set.
func (s Set) IsEmpty() bool {
	return s[0]|s[1]|s[2]|s[3] == 0
}

// Intersects reports whether s and o share at least one tag.
func (s Set) Intersects(o Set) bool {
	return s[0]&o[0]|s[1]&o[1]|s[2]&o[2]|s[3]&o[3] != 0
}

// Union returns s ∪ o.
func (s Set) Union(o Set) Set {
	return Set{s[0] | o[0], s[1] | o[1], s[2] | o[2], s[3] | o[3]}
}

// Len returns the number of tags in s.
func (s Set) Len() int {
	return bits.OnesCount64(s[0]) + bits.OnesCount64(s[1]) +
		bits.OnesCount64(s[2]) + bits.OnesCount64(s[3])
}

// Tags returns the tags in ascending order.
func (s Set) Tags() []Tag {
	out := make([]Tag, 0, s.Len())
	for w, word := range s {
		for word != 0 {
			b := bits.TrailingZeros64(word)
			out = append(out, Tag(w*64+b))
			word &= word - 1
		}
	}
	return out
}

func (s Set) String() string {
	var sb strings.Builder
	sb.WriteByte('{')
	for i, t := range s.Tags() {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.Itoa(int(t)))
	}
	sb.WriteByte('}')
	return sb.String()
}

// Filter selects entities by tag. An empty Include accepts every set; an
// empty Exclude rejects none.
type Filter struct {
	Include Set
	Exclude Set
}

// NewFilter builds a filter from optional sets; nil means empty.
func NewFilter(include, exclude *Set) Filter {
	var f Filter
	if include != nil {
		f.Include = *include
	}
	if exclude != nil {
		f.Exclude = *exclude
	}
	return f
}

// IsEmpty reports whether the filter accepts everything.
func (f Filter) IsEmpty() bool {
	return f.Include.IsEmpty() && f.Exclude.IsEmpty()
}

// Accepts reports whether an entity tagged s passes the filter.
func (f Filter) Accepts(s Set) bool {
	if s.Intersects(f.Exclude) {
		return false
	}
	return f.Include.IsEmpty() || s.Intersects(f.Include)
}

func (f Filter) String() string {
	return "include=" + f.Include.String() + " exclude=" + f.Exclude.String()
}
