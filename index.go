package cullgrid

import (
	"errors"
	"fmt"
	"math/bits"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/hupe1980/cullgrid/geom"
	"github.com/hupe1980/cullgrid/internal/cache"
	"github.com/hupe1980/cullgrid/internal/cell"
	"github.com/hupe1980/cullgrid/internal/grid"
	"github.com/hupe1980/cullgrid/tags"
	"golang.org/x/time/rate"
)

// MaxGrids is the number of grid slots. Registered categories take the
// first slots; cached grids use the rest.
const MaxGrids = 64

// Category describes one regular grid.
type Category struct {
	Name string
	// FrequentChanges marks categories whose queries are never cached.
	FrequentChanges bool
}

// CategoryMask is a bitset over registered categories; bit i selects the
// i-th category passed to New.
type CategoryMask uint64

// CategoryBit returns the mask selecting category i.
func CategoryBit(i int) CategoryMask { return CategoryMask(1) << i }

// VisibilityKind classifies how an entity was last seen.
type VisibilityKind = cell.VisibilityKind

const (
	Invisible = cell.Invisible
	Indirect  = cell.Indirect
	Direct    = cell.Direct
)

// Index is a regular-grid spatial index over entity bounding volumes.
//
// Insert, Remove, UpdateBounds, StartNewFrame and OnConfigChanged must not
// run concurrently with each other or with queries. Queries may run
// concurrently with each other.
type Index struct {
	id         string
	opts       options
	categories []Category
	allMask    CategoryMask

	grids   [MaxGrids]*grid.Grid
	cached  map[cache.Key]int
	handles handleTable

	frame       atomic.Uint64
	promotedAt  [MaxGrids]uint64
	tracker     *cache.Tracker
	migrator    cache.Migrator
	cacheConfig CacheConfig
	warnNoSlot  rate.Sometimes
	logger      *Logger
	metrics     MetricsCollector
}

// New creates an index with one regular grid per category.
func New(categories []Category, optFns ...Option) (*Index, error) {
	o := applyOptions(optFns)
	if err := o.validate(); err != nil {
		return nil, err
	}
	if len(categories) == 0 {
		return nil, invalidArgument("no categories")
	}
	if len(categories) > MaxGrids {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooManyCategories, len(categories), MaxGrids)
	}

	idx := &Index{
		id:          uuid.New().String(),
		opts:        o,
		categories:  append([]Category(nil), categories...),
		allMask:     CategoryMask(1)<<len(categories) - 1,
		cached:      make(map[cache.Key]int),
		tracker:     cache.NewTracker(o.trackerConfig()),
		migrator:    cache.Migrator{BatchSize: o.migrationBatchSize},
		cacheConfig: o.cache,
		warnNoSlot:  rate.Sometimes{Interval: time.Second},
		metrics:     o.metricsCollector,
	}
	idx.logger = o.logger.WithIndexID(idx.id)

	for i, c := range categories {
		idx.grids[i] = grid.New(grid.Config{
			Slot:        i,
			Category:    i,
			CellSize:    o.cellSize,
			CanBeCached: !c.FrequentChanges,
		})
	}

	idx.logger.Debug("index created",
		"categories", len(categories),
		"cell_size", o.cellSize,
		"cache_capacity", o.cacheCapacity,
	)
	return idx, nil
}

// ID returns the index instance id.
func (idx *Index) ID() string { return idx.id }

// Frame returns the current frame counter.
func (idx *Index) Frame() uint64 { return idx.frame.Load() }

// Len returns the number of live entities.
func (idx *Index) Len() int { return idx.handles.live }

// Contains reports whether h refers to a live entity.
func (idx *Index) Contains(h Handle) bool {
	_, err := idx.handles.get("contains", h)
	return err == nil
}

// Categories returns the registered categories.
func (idx *Index) Categories() []Category {
	return append([]Category(nil), idx.categories...)
}

// Insert adds an entity to the regular grid of every category in
// categories and to every cached grid whose filter accepts t.
//
// An empty category mask is a no-op returning the zero Handle.
func (idx *Index) Insert(b geom.Bounds, ref EntityRef, categories CategoryMask, t tags.Set, alwaysVisible bool) (Handle, error) {
	start := time.Now()
	h, mask, err := idx.insert(b, ref, categories, t, alwaysVisible)
	idx.metrics.RecordInsert(time.Since(start), err)
	idx.logger.LogInsert(h, mask, err)
	return h, err
}

func (idx *Index) insert(b geom.Bounds, ref EntityRef, categories CategoryMask, t tags.Set, alwaysVisible bool) (Handle, uint64, error) {
	if categories == 0 {
		return Handle{}, 0, nil
	}
	if categories&^idx.allMask != 0 {
		return Handle{}, 0, invalidArgument("category mask %#x has unregistered bits", uint64(categories))
	}
	if !b.IsValid() {
		return Handle{}, 0, invalidArgument("bounds %+v", b)
	}
	if idx.handles.full() {
		return Handle{}, 0, invalidArgument("handle table full")
	}

	mask := uint64(categories)
	for key, slot := range idx.cached {
		if categories&CategoryBit(key.Category) != 0 && key.Filter().Accepts(t) {
			mask |= 1 << slot
		}
	}

	index := idx.handles.alloc()
	var added uint64
	var err error
	forEachBit(mask, func(slot int) {
		if err != nil {
			return
		}
		if err = idx.grids[slot].AddSpatialData(index, b, t, uint64(ref), 0, alwaysVisible); err == nil {
			added |= 1 << slot
		}
	})
	if err != nil {
		forEachBit(added, func(slot int) { _ = idx.grids[slot].RemoveSpatialData(index) })
		idx.handles.release(index)
		return Handle{}, 0, err
	}

	r := &idx.handles.records[index]
	r.alwaysVisible = alwaysVisible
	r.categories = categories
	r.gridMask = mask
	r.tags = t
	r.ref = ref
	return idx.handles.handle(index), mask, nil
}

// Remove deletes the entity from every grid holding it and invalidates h.
func (idx *Index) Remove(h Handle) error {
	start := time.Now()
	err := idx.remove(h)
	idx.metrics.RecordRemove(time.Since(start), err)
	idx.logger.LogRemove(h, err)
	return err
}

func (idx *Index) remove(h Handle) error {
	r, err := idx.handles.get("remove", h)
	if err != nil {
		return err
	}
	var errs []error
	forEachBit(r.gridMask, func(slot int) {
		if err := idx.grids[slot].RemoveSpatialData(h.index); err != nil {
			errs = append(errs, err)
		}
	})
	idx.handles.release(h.index)
	return errors.Join(errs...)
}

// UpdateBounds moves the entity in every grid holding it. Entities stay in
// their cell while the new bounds fit its canonical box.
func (idx *Index) UpdateBounds(h Handle, b geom.Bounds) error {
	start := time.Now()
	relocated, err := idx.updateBounds(h, b)
	idx.metrics.RecordUpdate(time.Since(start), relocated, err)
	if err != nil {
		idx.logger.Error("update failed", "handle", h, "error", err)
	}
	return err
}

func (idx *Index) updateBounds(h Handle, b geom.Bounds) (int, error) {
	r, err := idx.handles.get("update", h)
	if err != nil {
		return 0, err
	}
	if !b.IsValid() {
		return 0, invalidArgument("bounds %+v", b)
	}
	relocated := 0
	for mask := r.gridMask; mask != 0; mask &= mask - 1 {
		slot := bits.TrailingZeros64(mask)
		moved, err := idx.grids[slot].UpdateSpatialData(h.index, b)
		if err != nil {
			return relocated, err
		}
		if moved {
			relocated++
		}
	}
	return relocated, nil
}

// VisibilityState reports how the entity was last seen. It returns
// Invisible once more than staleAfterFrames frames have passed since then.
// Always-visible entities report Direct.
func (idx *Index) VisibilityState(h Handle, staleAfterFrames uint64) (VisibilityKind, error) {
	r, err := idx.handles.get("visibility", h)
	if err != nil {
		return Invisible, err
	}
	if r.alwaysVisible {
		return Direct, nil
	}
	var latest cell.Stamp
	forEachBit(r.gridMask, func(slot int) {
		if s, ok := idx.grids[slot].VisibilityStamp(h.index); ok && s > latest {
			latest = s
		}
	})
	return latest.StateAt(idx.frame.Load(), staleAfterFrames), nil
}

// Verify checks every grid's internal invariants and the agreement between
// the handle table and grid membership.
func (idx *Index) Verify() error {
	for slot, g := range idx.grids {
		if g == nil {
			continue
		}
		if err := g.Verify(); err != nil {
			return err
		}
		it := g.Members().Iterator()
		for it.HasNext() {
			index := it.Next()
			r := &idx.handles.records[index]
			if !r.live || r.gridMask&(1<<slot) == 0 {
				return fmt.Errorf("%w: grid %d holds entity %d missing from its record", ErrCorrupt, slot, index)
			}
		}
	}
	for index := range idx.handles.records {
		r := &idx.handles.records[index]
		if !r.live {
			continue
		}
		for mask := r.gridMask; mask != 0; mask &= mask - 1 {
			slot := bits.TrailingZeros64(mask)
			if g := idx.grids[slot]; g == nil || !g.Contains(uint32(index)) {
				return fmt.Errorf("%w: entity %d records grid %d but is not stored there", ErrCorrupt, index, slot)
			}
		}
	}
	return nil
}
