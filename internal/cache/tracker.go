package cache

import (
	"slices"
	"sync"
	"sync/atomic"
)

// NoSlot marks a candidate without a grid.
const NoSlot = -1

const (
	// ratioWeight scales the filtered ratio in the score.
	ratioWeight = 100
	// decayFloor absorbs rounding left over from repeated decay steps.
	decayFloor = 1e-9
)

// Candidate is a tracked query key.
type Candidate struct {
	Key Key
	// QueryCount is incremented per recorded query and decays every frame.
	QueryCount float64
	// FilteredRatio is the largest fraction of spatial hits the filter
	// rejected in any recorded query.
	FilteredRatio float64
	// GridSlot is the promoted grid's slot, or NoSlot.
	GridSlot int

	seq uint64
}

// Score ranks candidates. A candidate whose query count has decayed to
// zero scores zero regardless of its ratio.
func (c *Candidate) Score() float64 {
	if c.QueryCount <= 0 {
		return 0
	}
	return c.QueryCount + c.FilteredRatio*ratioWeight
}

// Promoted reports whether the candidate owns a grid.
func (c *Candidate) Promoted() bool { return c.GridSlot != NoSlot }

// Config configures a Tracker.
type Config struct {
	// Capacity is the maximum number of promoted grids.
	Capacity int
	// DecayStep is subtracted from every query count per frame.
	DecayStep float64
	// MinFilteredRatio is the fraction of hits a filter must reject for the
	// query to be recorded.
	MinFilteredRatio float64
	// Threshold is the number of spatial hits a query must exceed to be
	// recorded.
	Threshold int
}

// DefaultConfig returns the default tracker configuration.
func DefaultConfig() Config {
	return Config{
		Capacity:         8,
		DecayStep:        0.1,
		MinFilteredRatio: 0.1,
		Threshold:        256,
	}
}

// Eviction names a grid freed by Plan.
type Eviction struct {
	Key      Key
	GridSlot int
}

// Plan is the outcome of one ranking pass.
type Plan struct {
	// Evict lists promoted candidates that fell out of the top ranks.
	Evict []Eviction
	// Promote lists top-ranked keys without a grid, best first.
	Promote []Key
}

// Tracker is the cache candidate registry. It is safe for concurrent use:
// queries record observations from any goroutine while a single
// maintenance goroutine plans.
type Tracker struct {
	mu         sync.Mutex
	cfg        Config
	candidates map[Key]*Candidate
	nextSeq    uint64

	// Stats
	observed atomic.Uint64
	rejected atomic.Uint64
}

// NewTracker creates an empty tracker.
func NewTracker(cfg Config) *Tracker {
	return &Tracker{
		cfg:        cfg,
		candidates: make(map[Key]*Candidate),
	}
}

// Observe records one query on a cacheable category. It returns true if
// the query qualified as a candidate observation.
func (t *Tracker) Observe(key Key, hits, filtered int) bool {
	if key.Filter().IsEmpty() || hits <= 0 {
		t.rejected.Add(1)
		return false
	}
	ratio := float64(filtered) / float64(hits)

	t.mu.Lock()
	defer t.mu.Unlock()

	if hits <= t.cfg.Threshold || ratio <= t.cfg.MinFilteredRatio {
		t.rejected.Add(1)
		return false
	}

	c, ok := t.candidates[key]
	if !ok {
		c = &Candidate{Key: key, GridSlot: NoSlot, seq: t.nextSeq}
		t.nextSeq++
		t.candidates[key] = c
	}
	c.QueryCount++
	c.FilteredRatio = max(c.FilteredRatio, ratio)
	t.observed.Add(1)
	return true
}

// Plan decays every candidate, ranks them by score and decides evictions
// and promotions. Candidates beyond Capacity or with a zero score are
// untracked; if they owned a grid it is listed for eviction.
//
// Equal scores rank by creation order, oldest first.
func (t *Tracker) Plan() Plan {
	t.mu.Lock()
	defer t.mu.Unlock()

	ranked := make([]*Candidate, 0, len(t.candidates))
	for _, c := range t.candidates {
		c.QueryCount -= t.cfg.DecayStep
		if c.QueryCount < decayFloor {
			c.QueryCount = 0
		}
		ranked = append(ranked, c)
	}
	slices.SortFunc(ranked, compareCandidates)

	var p Plan
	for i, c := range ranked {
		if i < t.cfg.Capacity && c.Score() > 0 {
			if !c.Promoted() {
				p.Promote = append(p.Promote, c.Key)
			}
			continue
		}
		if c.Promoted() {
			p.Evict = append(p.Evict, Eviction{Key: c.Key, GridSlot: c.GridSlot})
		}
		delete(t.candidates, c.Key)
	}
	return p
}

func compareCandidates(a, b *Candidate) int {
	sa, sb := a.Score(), b.Score()
	switch {
	case sa > sb:
		return -1
	case sa < sb:
		return 1
	case a.seq < b.seq:
		return -1
	case a.seq > b.seq:
		return 1
	}
	return 0
}

// Assign records that key now owns slot. It returns false if the key is no
// longer tracked.
func (t *Tracker) Assign(key Key, slot int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	c, ok := t.candidates[key]
	if !ok {
		return false
	}
	c.GridSlot = slot
	return true
}

// Reset untracks every candidate and returns the grids to free.
func (t *Tracker) Reset() []Eviction {
	t.mu.Lock()
	defer t.mu.Unlock()

	var out []Eviction
	for _, c := range t.candidates {
		if c.Promoted() {
			out = append(out, Eviction{Key: c.Key, GridSlot: c.GridSlot})
		}
	}
	slices.SortFunc(out, func(a, b Eviction) int { return a.GridSlot - b.GridSlot })
	t.candidates = make(map[Key]*Candidate)
	return out
}

// SetThreshold changes the hit threshold for future observations.
func (t *Tracker) SetThreshold(n int) {
	t.mu.Lock()
	t.cfg.Threshold = n
	t.mu.Unlock()
}

// Threshold returns the current hit threshold.
func (t *Tracker) Threshold() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cfg.Threshold
}

// Len returns the number of tracked candidates.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.candidates)
}

// Get returns a copy of the candidate for key.
func (t *Tracker) Get(key Key) (Candidate, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	c, ok := t.candidates[key]
	if !ok {
		return Candidate{}, false
	}
	return *c, true
}

// Snapshot returns copies of all candidates in rank order.
func (t *Tracker) Snapshot() []Candidate {
	t.mu.Lock()
	ranked := make([]*Candidate, 0, len(t.candidates))
	for _, c := range t.candidates {
		ranked = append(ranked, c)
	}
	slices.SortFunc(ranked, compareCandidates)
	out := make([]Candidate, len(ranked))
	for i, c := range ranked {
		out[i] = *c
	}
	t.mu.Unlock()
	return out
}

// Stats returns observation counters.
func (t *Tracker) Stats() TrackerStats {
	return TrackerStats{
		Candidates: t.Len(),
		Observed:   t.observed.Load(),
		Rejected:   t.rejected.Load(),
	}
}

// TrackerStats contains tracker statistics.
type TrackerStats struct {
	Candidates int
	Observed   uint64
	Rejected   uint64
}
