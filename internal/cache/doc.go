// Package cache decides which filtered queries deserve a dedicated grid.
//
// # Candidate tracking
//
// Tracker keeps a scored registry of (category, include, exclude) keys seen
// in filtered queries. A key is recorded only when the query was selective
// enough to benefit from a pre-filtered grid. Scores decay every frame so
// that cold filters age out:
//
//	score = queryCount + filteredRatio*100
//
// Plan ranks the candidates once per frame and reports which grids to evict
// and which keys to promote.
//
// # Migration
//
// Migrator copies entities from a regular grid into a freshly promoted grid
// a bounded number at a time, in ascending instance-index order.
package cache
