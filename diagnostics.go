package cullgrid

import (
	"fmt"
	"io"
	"strings"

	"github.com/hupe1980/cullgrid/internal/cache"
	"github.com/hupe1980/cullgrid/internal/simd"
	"github.com/segmentio/encoding/json"
)

// Diagnostics is a debug snapshot of the index. Its layout is not stable.
type Diagnostics struct {
	ID               string                 `json:"id"`
	Frame            uint64                 `json:"frame"`
	Entities         int                    `json:"entities"`
	Kernel           string                 `json:"kernel"`
	CachingThreshold int                    `json:"caching_threshold"`
	Grids            []GridDiagnostics      `json:"grids"`
	Candidates       []CandidateDiagnostics `json:"candidates"`
}

// GridDiagnostics describes one grid.
type GridDiagnostics struct {
	Slot      int     `json:"slot"`
	Category  string  `json:"category"`
	Cacheable bool    `json:"cacheable"`
	Cached    bool    `json:"cached"`
	Include   string  `json:"include,omitempty"`
	Exclude   string  `json:"exclude,omitempty"`
	Objects   int     `json:"objects"`
	Cells     int     `json:"cells"`
	Migration float64 `json:"migration"`
}

// CandidateDiagnostics describes one tracked cache candidate.
type CandidateDiagnostics struct {
	Category      string  `json:"category"`
	Include       string  `json:"include"`
	Exclude       string  `json:"exclude"`
	Score         float64 `json:"score"`
	QueryCount    float64 `json:"query_count"`
	FilteredRatio float64 `json:"filtered_ratio"`
	GridSlot      int     `json:"grid_slot"`
	Migration     float64 `json:"migration"`
}

// Diagnostics returns a snapshot of grids and cache candidates.
func (idx *Index) Diagnostics() Diagnostics {
	d := Diagnostics{
		ID:               idx.id,
		Frame:            idx.frame.Load(),
		Entities:         idx.Len(),
		Kernel:           simd.KernelName(),
		CachingThreshold: idx.cacheConfig.CachingThreshold,
	}

	for slot, g := range idx.grids {
		if g == nil {
			continue
		}
		gd := GridDiagnostics{
			Slot:      slot,
			Category:  idx.categories[g.Category()].Name,
			Cacheable: g.CanBeCached(),
			Cached:    g.Cached(),
			Objects:   g.Len(),
			Cells:     g.CellCount(),
			Migration: 1,
		}
		if g.Cached() {
			gd.Include = g.Filter().Include.String()
			gd.Exclude = g.Filter().Exclude.String()
			gd.Migration = cache.Progress(g, idx.grids[g.Category()])
		}
		d.Grids = append(d.Grids, gd)
	}

	for _, c := range idx.tracker.Snapshot() {
		cd := CandidateDiagnostics{
			Category:      idx.categories[c.Key.Category].Name,
			Include:       c.Key.Include.String(),
			Exclude:       c.Key.Exclude.String(),
			Score:         c.Score(),
			QueryCount:    c.QueryCount,
			FilteredRatio: c.FilteredRatio,
			GridSlot:      c.GridSlot,
		}
		if c.Promoted() {
			if g := idx.grids[c.GridSlot]; g != nil {
				cd.Migration = cache.Progress(g, idx.grids[g.Category()])
			}
		}
		d.Candidates = append(d.Candidates, cd)
	}
	return d
}

// WriteDiagnosticsJSON writes Diagnostics as indented JSON.
func (idx *Index) WriteDiagnosticsJSON(w io.Writer) error {
	b, err := json.MarshalIndent(idx.Diagnostics(), "", "  ")
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

// Dump returns a human-readable description of grids and cache candidates.
func (idx *Index) Dump() string {
	d := idx.Diagnostics()

	var sb strings.Builder
	fmt.Fprintf(&sb, "index %s frame=%d entities=%d kernel=%s caching_threshold=%d\n",
		d.ID, d.Frame, d.Entities, d.Kernel, d.CachingThreshold)

	sb.WriteString("grids:\n")
	for _, g := range d.Grids {
		fmt.Fprintf(&sb, "  [%2d] %-16s cacheable=%-5t objects=%d cells=%d",
			g.Slot, g.Category, g.Cacheable, g.Objects, g.Cells)
		if g.Cached {
			fmt.Fprintf(&sb, " include=%s exclude=%s migrated=%.0f%%", g.Include, g.Exclude, g.Migration*100)
		}
		sb.WriteByte('\n')
	}

	sb.WriteString("candidates:\n")
	if len(d.Candidates) == 0 {
		sb.WriteString("  (none)\n")
	}
	for _, c := range d.Candidates {
		fmt.Fprintf(&sb, "  %-16s include=%s exclude=%s score=%.2f queries=%.1f filtered=%.2f",
			c.Category, c.Include, c.Exclude, c.Score, c.QueryCount, c.FilteredRatio)
		if c.GridSlot != cache.NoSlot {
			fmt.Fprintf(&sb, " slot=%d migrated=%.0f%%", c.GridSlot, c.Migration*100)
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
