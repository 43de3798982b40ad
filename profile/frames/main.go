// Profiling:
// go build ./profile/frames
// ./frames -mode cpu
// go tool pprof -http=":8000" ./frames cpu.pprof

package main

import (
	"flag"
	"fmt"
	"log/slog"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/hupe1980/cullgrid"
	"github.com/hupe1980/cullgrid/geom"
	"github.com/hupe1980/cullgrid/tags"
	"github.com/hupe1980/cullgrid/testutil"
	"github.com/pkg/profile"
)

func main() {
	mode := flag.String("mode", "cpu", "profile mode: cpu or mem")
	entities := flag.Int("entities", 100_000, "number of entities")
	frames := flag.Int("frames", 500, "number of frames")
	flag.Parse()

	var opt func(*profile.Profile)
	switch *mode {
	case "mem":
		opt = profile.MemProfileAllocs
	default:
		opt = profile.CPUProfile
	}

	p := profile.Start(opt, profile.ProfilePath("."), profile.NoShutdownHook)
	metrics := &cullgrid.BasicMetricsCollector{}
	idx := run(*entities, *frames, metrics)
	p.Stop()

	s := metrics.GetStats()
	fmt.Printf("queries=%d avg=%dns tested=%d passed=%d cache_hits=%d promotions=%d\n",
		s.QueryCount, s.QueryAvgNanos, s.ObjectsTested, s.ObjectsPassed, s.CacheHits, s.Promotions)
	fmt.Print(idx.Dump())
}

func run(numEntities, frames int, metrics cullgrid.MetricsCollector) *cullgrid.Index {
	idx, err := cullgrid.New([]cullgrid.Category{
		{Name: "static"},
		{Name: "dynamic", FrequentChanges: true},
	},
		cullgrid.WithCellSize(32),
		cullgrid.WithMetricsCollector(metrics),
		cullgrid.WithLogLevel(slog.LevelWarn),
	)
	if err != nil {
		panic(err)
	}

	rng := testutil.NewRNG(1)
	spheres := rng.Spheres(numEntities, 2000, 0.5, 8)
	handles := make([]cullgrid.Handle, len(spheres))
	for i, s := range spheres {
		category := cullgrid.CategoryBit(0)
		if i%10 == 0 {
			category = cullgrid.CategoryBit(1)
		}
		h, err := idx.Insert(geom.BoundsFromSphere(s), cullgrid.EntityRef(i), category, rng.TagSet(8, 0.2), false)
		if err != nil {
			panic(err)
		}
		handles[i] = h
	}

	shadow := tags.New(3)
	for f := 0; f < frames; f++ {
		idx.StartNewFrame()

		// Move the dynamic entities.
		for i := 0; i < len(spheres); i += 10 {
			spheres[i].Center = spheres[i].Center.Add(rng.Vec3(1))
			if err := idx.UpdateBounds(handles[i], geom.BoundsFromSphere(spheres[i])); err != nil {
				panic(err)
			}
		}

		angle := float64(f) * 0.01
		target := mgl32.Vec3{float32(math.Cos(angle)), 0, float32(math.Sin(angle))}
		camera := testutil.Frustum(mgl32.Vec3{}, target, 800)
		light := testutil.Frustum(mgl32.Vec3{500, 300, 0}, mgl32.Vec3{}, 1500)

		if _, err := idx.QueryFrustum(camera, cullgrid.FrustumParams{
			QueryParams: cullgrid.QueryParams{Categories: cullgrid.CategoryBit(0) | cullgrid.CategoryBit(1)},
		}); err != nil {
			panic(err)
		}
		if _, err := idx.QueryFrustum(light, cullgrid.FrustumParams{
			QueryParams: cullgrid.QueryParams{Categories: cullgrid.CategoryBit(0), Include: &shadow},
			Indirect:    true,
		}); err != nil {
			panic(err)
		}
	}
	return idx
}
