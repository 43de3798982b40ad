// Package cullgrid provides a regular-grid spatial index for scene culling.
//
// The index stores a bounding volume per entity in one sparse grid per
// category and answers sphere, box and frustum queries, optionally filtered
// by tags. Frequently repeated, selective filtered queries are detected at
// runtime and promoted to pre-filtered cached grids.
//
// # Quick Start
//
//	idx, _ := cullgrid.New([]cullgrid.Category{
//	    {Name: "static"},
//	    {Name: "dynamic", FrequentChanges: true},
//	})
//	h, _ := idx.Insert(bounds, ref, cullgrid.CategoryBit(0), tags.New(shadowCaster), false)
//
//	idx.StartNewFrame()
//	visible, _ := idx.QueryFrustum(geom.FrustumFromMatrix(viewProj), cullgrid.FrustumParams{
//	    QueryParams: cullgrid.QueryParams{Categories: cullgrid.CategoryBit(0)},
//	})
//	state, _ := idx.VisibilityState(h, 2)
//
// # Frames
//
// StartNewFrame advances the frame counter used for visibility stamps and
// runs cache maintenance. Frustum queries stamp every hit with the current
// frame; VisibilityState reports Invisible once a stamp is older than the
// requested number of frames.
//
// # Cached Grids
//
// A filtered query is recorded as a caching candidate when its category is
// not marked FrequentChanges, more objects than the caching threshold pass
// the spatial test, and the filter rejects more than 10% of them. Each frame
// the best candidates get their own grid, which is populated a batch at a
// time. Queries use a cached grid only once it is fully populated.
//
// # Concurrency
//
// Mutations and StartNewFrame require exclusive access. Queries may run
// concurrently with each other; visibility stamps are written with an
// atomic max.
package cullgrid
