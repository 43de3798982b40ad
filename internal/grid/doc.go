// Package grid implements a sparse regular grid of cells plus the shape and
// frustum query engine that runs over it.
//
// Cell coordinates are floor(center / cellSize). An entity lives in the cell
// of its center when its box fits the canonical cell box (cell extent plus a
// margin of a quarter cell on each side); otherwise it goes to the overflow
// cell, which every query visits.
//
// A grid also keeps a mapping table indexed by entity instance index that
// locates the entity's slot, and a roaring bitmap of member instance indices
// used for ordered migration and bulk membership updates.
//
// Mutations require external exclusion. Queries may run concurrently with
// each other; the only data they write is the per-slot visibility stamp,
// which is updated with an atomic max.
package grid
