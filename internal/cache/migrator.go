package cache

import (
	"github.com/hupe1980/cullgrid/internal/grid"
)

// Migrator populates cached grids incrementally.
type Migrator struct {
	// BatchSize is the number of source entities examined per Step.
	BatchSize int
}

// Step examines up to BatchSize source entities starting at the
// destination's migration cursor and copies those its filter accepts.
// moved is called for every copied entity. It returns the number copied
// and whether migration is complete.
func (m Migrator) Step(dst, src *grid.Grid, moved func(index uint32)) (n int, done bool) {
	if dst.MigrationComplete() {
		return 0, true
	}

	it := src.Members().Iterator()
	it.AdvanceIfNeeded(dst.LastMigrationIndex())
	for budget := m.BatchSize; budget > 0 && it.HasNext(); budget-- {
		index := it.Next()
		if dst.MigrateSpatialDataFromOtherGrid(index, src) {
			n++
			if moved != nil {
				moved(index)
			}
		}
	}

	if !it.HasNext() {
		dst.SetLastMigrationIndex(grid.InvalidIndex)
		return n, true
	}
	dst.SetLastMigrationIndex(it.PeekNext())
	return n, false
}

// Progress returns the fraction of src already examined, in [0, 1].
func Progress(dst, src *grid.Grid) float64 {
	if dst.MigrationComplete() {
		return 1
	}
	total := src.Members().GetCardinality()
	if total == 0 {
		return 0
	}
	cursor := dst.LastMigrationIndex()
	if cursor == 0 {
		return 0
	}
	return float64(src.Members().Rank(cursor-1)) / float64(total)
}
