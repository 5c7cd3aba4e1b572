// kernelcheck runs the same queries through the GPU kernel and the CPU
// reference kernel and reports how far apart the results are.
package main

import (
	"flag"
	"fmt"
	"math"
	"math/rand/v2"
	"os"

	"sdfplay/internal/compute"
	"sdfplay/internal/kernel"
	"sdfplay/internal/registry"
	"sdfplay/internal/world"

	rl "github.com/gen2brain/raylib-go/raylib"
)

func main() {
	points := flag.Int("points", 1024, "number of sample points")
	blend := flag.Float64("blend", 0, "smooth union radius")
	tolerance := flag.Float64("tolerance", 1e-3, "largest accepted difference")
	flag.Parse()

	reg := registry.New(registry.DefaultCapacity)
	if _, err := world.DefaultArena().Populate(reg); err != nil {
		fail("populate arena: %v", err)
	}

	info, err := compute.Initialize()
	if err != nil {
		fail("compute unavailable: %v", err)
	}
	fmt.Printf("Using GPU: %s (%s)\n", info.Name, info.Backend)

	gpu, err := compute.NewSDFKernel(compute.Get(), reg.Capacity())
	if err != nil {
		fail("create SDF kernel: %v", err)
	}
	defer gpu.Release()
	cpu := kernel.NewCPU()

	snap := reg.Snapshot()
	samples := samplePoints(*points, rand.New(rand.NewPCG(1, 2)))
	disp := rl.Vector3{X: 0.3, Y: -1.5, Z: 0.2}

	batches := []kernel.Batch{
		{Entry: kernel.EntryCollision, Params: []float32{float32(*blend)}},
		{Entry: kernel.EntryShapecast, Params: []float32{float32(*blend), disp.X, disp.Y, disp.Z}},
	}

	ok := true
	for _, b := range batches {
		b.Points = samples
		b.Positions = snap.Positions
		b.Properties = snap.Properties

		want, err := cpu.Dispatch(b)
		if err != nil {
			fail("cpu %s: %v", b.Entry, err)
		}
		got, err := gpu.Dispatch(b)
		if err != nil {
			fail("gpu %s: %v", b.Entry, err)
		}

		worst, at := maxError(want, got)
		fmt.Printf("%-9s max error %.6f at point %d\n", b.Entry, worst, at)
		if worst > *tolerance {
			fmt.Printf("  cpu %v\n  gpu %v\n", want[at], got[at])
			ok = false
		}
	}

	if !ok {
		os.Exit(1)
	}
	fmt.Println("Kernels agree")
}

// samplePoints scatters points over the arena's bounding volume.
func samplePoints(n int, rng *rand.Rand) []rl.Vector4 {
	out := make([]rl.Vector4, n)
	for i := range out {
		out[i] = rl.NewVector4(
			rng.Float32()*12-6,
			rng.Float32()*6-6,
			rng.Float32()*12-6,
			registry.FlagCollision,
		)
	}
	return out
}

func maxError(a, b []rl.Vector4) (float64, int) {
	worst, at := 0.0, 0
	for i := range min(len(a), len(b)) {
		d := math.Max(
			math.Max(diff(a[i].X, b[i].X), diff(a[i].Y, b[i].Y)),
			math.Max(diff(a[i].Z, b[i].Z), diff(a[i].W, b[i].W)),
		)
		if d > worst {
			worst, at = d, i
		}
	}
	return worst, at
}

func diff(a, b float32) float64 {
	return math.Abs(float64(a - b))
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
