package cullgrid

import (
	"github.com/hupe1980/cullgrid/internal/cache"
	"github.com/hupe1980/cullgrid/internal/grid"
)

// StartNewFrame advances the frame counter and runs cache maintenance:
// candidates are decayed and ranked, cached grids that fell out of the top
// ranks are freed, new ones are created for the best candidates, and every
// cached grid still migrating copies the next batch of entities.
func (idx *Index) StartNewFrame() {
	frame := idx.frame.Add(1)
	plan := idx.tracker.Plan()

	for _, e := range plan.Evict {
		idx.freeCachedGrid(e.Key, e.GridSlot)
	}
	for _, key := range plan.Promote {
		idx.promote(key, frame)
	}

	moved := 0
	for slot := len(idx.categories); slot < MaxGrids; slot++ {
		dst := idx.grids[slot]
		if dst == nil || dst.MigrationComplete() {
			continue
		}
		n, done := idx.migrator.Step(dst, idx.grids[dst.Category()], func(index uint32) {
			idx.handles.records[index].gridMask |= 1 << slot
		})
		moved += n
		if done {
			idx.logger.LogMigrationComplete(slot, dst.Len(), frame-idx.promotedAt[slot])
		}
	}
	idx.metrics.RecordMigration(moved)
}

// promote creates a cached grid for key. Without a free slot the promotion
// is skipped; the candidate stays tracked and is retried next frame.
func (idx *Index) promote(key cache.Key, frame uint64) {
	slot := idx.freeSlot()
	if slot < 0 {
		idx.warnNoSlot.Do(func() {
			idx.logger.Warn("no free grid slot for cache promotion",
				"categories", len(idx.categories),
				"cached", len(idx.cached),
			)
		})
		return
	}
	if !idx.tracker.Assign(key, slot) {
		return
	}

	idx.grids[slot] = grid.New(grid.Config{
		Slot:        slot,
		Category:    key.Category,
		CellSize:    idx.opts.cellSize,
		CanBeCached: true,
		Cached:      true,
		Filter:      key.Filter(),
	})
	idx.cached[key] = slot
	idx.promotedAt[slot] = frame

	var score float64
	if c, ok := idx.tracker.Get(key); ok {
		score = c.Score()
	}
	idx.metrics.RecordPromotion()
	idx.logger.WithCategory(idx.categories[key.Category].Name).LogPromotion(key, slot, score)
}

func (idx *Index) freeSlot() int {
	for slot := len(idx.categories); slot < MaxGrids; slot++ {
		if idx.grids[slot] == nil {
			return slot
		}
	}
	return -1
}

// freeCachedGrid drops a cached grid and clears its bit from every member.
func (idx *Index) freeCachedGrid(key cache.Key, slot int) {
	g := idx.grids[slot]
	if g == nil {
		return
	}
	bit := uint64(1) << slot
	it := g.Members().Iterator()
	for it.HasNext() {
		idx.handles.records[it.Next()].gridMask &^= bit
	}
	idx.grids[slot] = nil
	delete(idx.cached, key)

	idx.metrics.RecordEviction()
	idx.logger.WithCategory(idx.categories[key.Category].Name).LogEviction(key, slot)
}

// CacheConfig returns the current runtime configuration.
func (idx *Index) CacheConfig() CacheConfig { return idx.cacheConfig }

// OnConfigChanged applies a new runtime configuration. Every cached grid is
// freed and all candidates are forgotten.
func (idx *Index) OnConfigChanged(cfg CacheConfig) error {
	if err := cfg.validate(); err != nil {
		return err
	}
	idx.cacheConfig = cfg
	idx.tracker.SetThreshold(cfg.CachingThreshold)

	evictions := idx.tracker.Reset()
	for _, e := range evictions {
		idx.freeCachedGrid(e.Key, e.GridSlot)
	}
	idx.logger.LogCacheFlush(len(evictions), cfg.CachingThreshold)
	return nil
}
