package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGridLayout(t *testing.T) {
	g := newGrid(3, 2, 0, 1)
	require.Equal(t, 9, g.Len())

	models := g.Models(0)
	require.Len(t, models, 9)

	// Translations sit in the last column and are centred on the origin.
	assert.Equal(t, float32(-2), models[0][12])
	assert.Equal(t, float32(-2), models[0][14])
	assert.Equal(t, float32(0), models[4][12])
	assert.Equal(t, float32(0), models[4][14])
	assert.Equal(t, float32(2), models[8][12])
	assert.Equal(t, float32(2), models[8][14])
	for _, m := range models {
		assert.Equal(t, float32(0), m[13])
		assert.Equal(t, float32(1), m[15])
	}

	assert.InDelta(t, 2*1.41421356+1, g.Radius(), 1e-5)
}

func TestGridTintsAreSeeded(t *testing.T) {
	a := newGrid(4, 1, 0, 42)
	b := newGrid(4, 1, 0, 42)
	c := newGrid(4, 1, 0, 43)

	assert.Equal(t, a.Tints(), b.Tints())
	assert.NotEqual(t, a.Tints(), c.Tints())
	for _, tint := range a.Tints() {
		for _, ch := range tint {
			assert.GreaterOrEqual(t, ch, float32(0.2))
			assert.LessOrEqual(t, ch, float32(1))
		}
	}
}

func TestGridSpinMovesRotationOnly(t *testing.T) {
	g := newGrid(2, 3, 1, 7)
	before := g.Models(0)[1]
	after := g.Models(0.5)[1]

	assert.NotEqual(t, before[0], after[0])
	assert.Equal(t, before[12], after[12])
	assert.Equal(t, before[14], after[14])
	// Rotation about Y leaves the Y basis vector untouched.
	assert.InDelta(t, 1, after[5], 1e-6)
}
