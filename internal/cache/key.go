package cache

import (
	"fmt"

	"github.com/hupe1980/cullgrid/tags"
)

// Key identifies a cached grid. It is comparable and used as a map key.
type Key struct {
	Category int
	Include  tags.Set
	Exclude  tags.Set
}

// KeyFor returns the key of a filtered query on one category.
func KeyFor(category int, f tags.Filter) Key {
	return Key{Category: category, Include: f.Include, Exclude: f.Exclude}
}

// Filter returns the tag filter the key stands for.
func (k Key) Filter() tags.Filter {
	return tags.Filter{Include: k.Include, Exclude: k.Exclude}
}

func (k Key) String() string {
	return fmt.Sprintf("category=%d %s", k.Category, k.Filter())
}
