// Package testutil provides testing utilities for cullgrid.
//
// This package is intended for use in tests and benchmarks only.
// It provides a seeded RNG for random scenes and brute-force reference
// queries to compare index results against.
//
// # Random Scenes
//
//	rng := testutil.NewRNG(seed)
//	spheres := rng.Spheres(1000, 500, 0.5, 4)
//	t := rng.TagSet(8, 0.3)
//
// # Ground Truth
//
//	want := testutil.FrustumHits(f, spheres)
package testutil
