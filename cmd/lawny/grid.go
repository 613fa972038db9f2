package main

import (
	"math"
	"math/rand/v2"

	"github.com/Carmen-Shannon/lawny-go/common"
)

// grid is a square lawn of spinning spheres on the XZ plane, centred on the origin.
type grid struct {
	spin      float32
	positions [][3]float32
	phases    []float32
	tints     [][3]float32
	models    [][16]float32
}

// newGrid lays out side*side instances spacing units apart. Each instance gets a random spin
// phase and a random tint drawn from seed.
func newGrid(side int, spacing, spin float32, seed int64) *grid {
	n := side * side
	g := &grid{
		spin:      spin,
		positions: make([][3]float32, n),
		phases:    make([]float32, n),
		tints:     make([][3]float32, n),
		models:    make([][16]float32, n),
	}

	rng := rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15))
	half := float32(side-1) * spacing / 2
	for i := range n {
		row, col := i/side, i%side
		g.positions[i] = [3]float32{float32(col)*spacing - half, 0, float32(row)*spacing - half}
		g.phases[i] = rng.Float32() * 2 * math.Pi
		// Keep tints away from black so every sphere stays visible under the light.
		g.tints[i] = [3]float32{0.2 + 0.8*rng.Float32(), 0.2 + 0.8*rng.Float32(), 0.2 + 0.8*rng.Float32()}
	}
	return g
}

func (g *grid) Len() int {
	return len(g.positions)
}

// Radius is the distance from the origin to the outermost sphere surface.
func (g *grid) Radius() float32 {
	var r float32
	for _, p := range g.positions {
		r = max(r, common.Length3(p))
	}
	return r + 1
}

func (g *grid) Tints() [][3]float32 {
	return g.tints
}

// Models returns the model matrices at elapsed seconds. The returned slice is reused by the next call.
func (g *grid) Models(elapsed float32) [][16]float32 {
	for i, p := range g.positions {
		angle := g.phases[i] + g.spin*elapsed
		common.BuildModelMatrix(g.models[i][:], p, [3]float32{0, angle, 0}, 1)
	}
	return g.models
}
