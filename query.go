package cullgrid

import (
	"context"
	"math/bits"
	"runtime"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/cullgrid/geom"
	"github.com/hupe1980/cullgrid/internal/cache"
	"github.com/hupe1980/cullgrid/internal/cell"
	"github.com/hupe1980/cullgrid/internal/grid"
	"github.com/hupe1980/cullgrid/internal/pool"
	"github.com/hupe1980/cullgrid/internal/simd"
	"github.com/hupe1980/cullgrid/tags"
	"golang.org/x/sync/errgroup"
)

// QueryParams selects what a query reports.
type QueryParams struct {
	// Categories selects the grids to search. A zero mask matches nothing.
	Categories CategoryMask
	// Include and Exclude form the tag filter; nil or empty means no filter.
	Include *tags.Set
	Exclude *tags.Set
	// Stats, if non-nil, receives the query statistics.
	Stats *QueryStats
}

func (p QueryParams) filter() tags.Filter {
	return tags.NewFilter(p.Include, p.Exclude)
}

// QueryStats describes the work done by a query.
type QueryStats struct {
	// Tested is the number of objects spatially tested.
	Tested int
	// Passed is the number of entities reported.
	Passed int
	// Filtered is the number of spatial hits rejected by the tag filter.
	Filtered int
	// CacheHits is the number of categories served by a cached grid.
	CacheHits int
	// Elapsed is the wall time of the query.
	Elapsed time.Duration
}

// Visitor receives shape query hits. Returning false stops the query.
type Visitor func(ref EntityRef) bool

// FrustumParams configures a frustum query.
type FrustumParams struct {
	QueryParams
	// Occlusion returns true for hidden boxes. Nil disables occlusion.
	Occlusion func(geom.AABB) bool
	// Indirect stamps hits as indirectly visible instead of Direct.
	Indirect bool
}

func (p FrustumParams) kind() VisibilityKind {
	if p.Indirect {
		return Indirect
	}
	return Direct
}

// View is one frustum query of a multi-view batch.
type View struct {
	Frustum geom.Frustum
	Params  FrustumParams
}

// target is one grid chosen for a query.
type target struct {
	g *grid.Grid
	// filter is empty when the grid is pre-filtered.
	filter tags.Filter
	// observe is set when the query's statistics feed the cache tracker.
	observe bool
	key     cache.Key
}

// plan partitions the requested categories into complete cached grids
// matching the filter exactly and regular grids filtered inline.
func (idx *Index) plan(p QueryParams, st *QueryStats) []target {
	f := p.filter()
	mask := p.Categories & idx.allMask
	targets := make([]target, 0, bits.OnesCount64(uint64(mask)))

	forEachBit(uint64(mask), func(category int) {
		regular := idx.grids[category]
		if f.IsEmpty() {
			targets = append(targets, target{g: regular})
			return
		}
		key := cache.KeyFor(category, f)
		if slot, ok := idx.cached[key]; ok && idx.grids[slot].MigrationComplete() {
			st.CacheHits++
			targets = append(targets, target{g: idx.grids[slot]})
			return
		}
		targets = append(targets, target{
			g:       regular,
			filter:  f,
			observe: regular.CanBeCached() && idx.opts.cacheCapacity > 0,
			key:     key,
		})
	})
	return targets
}

func (idx *Index) observe(t target, st grid.Stats) {
	if t.observe {
		idx.tracker.Observe(t.key, st.Hits, st.Filtered)
	}
}

// QuerySphere visits every entity whose bounding sphere overlaps s.
func (idx *Index) QuerySphere(s geom.Sphere, p QueryParams, visit Visitor) error {
	return idx.queryShape(QueryKindSphere, p, visit, func(g *grid.Grid, f tags.Filter, st *grid.Stats, v grid.Visitor) bool {
		return g.QuerySphere(s, f, st, v)
	})
}

// QueryBox visits every entity whose bounding sphere overlaps box.
func (idx *Index) QueryBox(box geom.AABB, p QueryParams, visit Visitor) error {
	return idx.queryShape(QueryKindBox, p, visit, func(g *grid.Grid, f tags.Filter, st *grid.Stats, v grid.Visitor) bool {
		return g.QueryBox(box, f, st, v)
	})
}

type shapeFunc func(g *grid.Grid, f tags.Filter, st *grid.Stats, v grid.Visitor) bool

func (idx *Index) queryShape(kind QueryKind, p QueryParams, visit Visitor, run shapeFunc) error {
	if visit == nil {
		return invalidArgument("nil visitor")
	}
	start := time.Now()

	var qs QueryStats
	targets := idx.plan(p, &qs)

	var seen *roaring.Bitmap
	if len(targets) > 1 {
		qc := pool.Get()
		defer pool.Put(qc)
		seen = qc.Seen
	}
	v := func(ref uint64, index uint32) bool {
		if seen != nil && !seen.CheckedAdd(index) {
			return true
		}
		qs.Passed++
		return visit(EntityRef(ref))
	}

	for _, t := range targets {
		var st grid.Stats
		completed := run(t.g, t.filter, &st, v)
		qs.Tested += st.Tested
		qs.Filtered += st.Filtered
		if !completed {
			break
		}
		idx.observe(t, st)
	}

	idx.finishQuery(kind, p.Stats, qs, start)
	return nil
}

func (idx *Index) finishQuery(kind QueryKind, out *QueryStats, qs QueryStats, start time.Time) {
	qs.Elapsed = time.Since(start)
	idx.metrics.RecordQuery(kind, qs, qs.Elapsed)
	if out != nil {
		*out = qs
	}
}

// QueryFrustum returns the entities visible in f and stamps them with the
// current frame. Always-visible entities pass without spatial or
// occlusion tests.
func (idx *Index) QueryFrustum(f geom.Frustum, p FrustumParams) ([]EntityRef, error) {
	start := time.Now()

	var qs QueryStats
	targets := idx.plan(p.QueryParams, &qs)
	planes := simd.PackFrustum(f)
	q := grid.FrustumQuery{
		Frustum:   f,
		Planes:    &planes,
		Occlusion: p.Occlusion,
		Stamp:     cell.NewStamp(idx.frame.Load(), p.kind()),
	}
	qc := pool.Get()
	defer pool.Put(qc)
	if len(targets) > 1 {
		q.Seen = qc.Seen
	}

	refs := qc.Refs
	for _, t := range targets {
		var st grid.Stats
		q.Filter = t.filter
		refs = t.g.QueryFrustum(&q, &st, refs)
		qs.Tested += st.Tested
		qs.Filtered += st.Filtered
		idx.observe(t, st)
	}
	qs.Passed = len(refs)

	out := make([]EntityRef, len(refs))
	for i, r := range refs {
		out[i] = EntityRef(r)
	}
	qc.Refs = refs
	idx.finishQuery(QueryKindFrustum, p.Stats, qs, start)
	return out, nil
}

// QueryFrustumViews runs one frustum query per view concurrently. Results
// are returned in view order. Entities seen by several views keep the
// most recent and most direct stamp.
func (idx *Index) QueryFrustumViews(ctx context.Context, views []View) ([][]EntityRef, error) {
	results := make([][]EntityRef, len(views))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range views {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			refs, err := idx.QueryFrustum(views[i].Frustum, views[i].Params)
			if err != nil {
				return err
			}
			results[i] = refs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
