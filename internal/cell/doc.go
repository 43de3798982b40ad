// Package cell implements the structure-of-arrays storage of one grid cell
// and the packed visibility stamp kept per stored entity.
//
// All parallel arrays of a Cell have the same length at all times. Removal
// swaps the last element into the freed slot and reports which entity moved,
// so the owning grid can patch its mapping table in the same operation.
package cell
