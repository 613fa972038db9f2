package common

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

const eps = 1e-5

func assertVec4InDelta(t *testing.T, expected, actual [4]float32) {
	t.Helper()
	for i := range expected {
		assert.InDelta(t, expected[i], actual[i], eps, "component %d", i)
	}
}

func TestMul4Identity(t *testing.T) {
	id := IdentityMatrix()
	m := Translation(1, 2, 3)

	var out [16]float32
	Mul4(out[:], id[:], m[:])
	assert.Equal(t, m, out)

	Mul4(out[:], m[:], id[:])
	assert.Equal(t, m, out)
}

func TestMul4Order(t *testing.T) {
	// Scale then translate: T * S applied to (1,1,1) gives (2+1, 2+2, 2+3).
	s := IdentityMatrix()
	s[0], s[5], s[10] = 2, 2, 2
	tr := Translation(1, 2, 3)

	var ts [16]float32
	Mul4(ts[:], tr[:], s[:])

	got := MulVec4(ts[:], [4]float32{1, 1, 1, 1})
	assertVec4InDelta(t, [4]float32{3, 4, 5, 1}, got)
}

func TestMulVec4Translation(t *testing.T) {
	m := Translation(1, -2, 0.5)
	got := MulVec4(m[:], [4]float32{0, 0, 0, 1})
	assertVec4InDelta(t, [4]float32{1, -2, 0.5, 1}, got)

	// Directions (w=0) ignore translation.
	got = MulVec4(m[:], [4]float32{1, 0, 0, 0})
	assertVec4InDelta(t, [4]float32{1, 0, 0, 0}, got)
}

func TestPerspectiveDepthRange(t *testing.T) {
	var p [16]float32
	near, far := float32(0.1), float32(100)
	Perspective(p[:], math.Pi/3, 1, near, far)

	clipNear := MulVec4(p[:], [4]float32{0, 0, -near, 1})
	clipFar := MulVec4(p[:], [4]float32{0, 0, -far, 1})

	assert.InDelta(t, 0, clipNear[2]/clipNear[3], 1e-4)
	assert.InDelta(t, 1, clipFar[2]/clipFar[3], 1e-4)
}

func TestLookAt(t *testing.T) {
	var v [16]float32
	LookAt(v[:], [3]float32{0, 0, 5}, [3]float32{0, 0, 0}, [3]float32{0, 1, 0})

	// The target ends up straight ahead on -Z at the eye distance.
	got := MulVec4(v[:], [4]float32{0, 0, 0, 1})
	assertVec4InDelta(t, [4]float32{0, 0, -5, 1}, got)
}

func TestVec3Helpers(t *testing.T) {
	x := [3]float32{1, 0, 0}
	y := [3]float32{0, 1, 0}

	assert.Equal(t, [3]float32{0, 0, 1}, Cross3(x, y))
	assert.Equal(t, float32(0), Dot3(x, y))
	assert.Equal(t, [3]float32{1, 1, 0}, Add3(x, y))
	assert.Equal(t, [3]float32{1, -1, 0}, Sub3(x, y))
	assert.InDelta(t, 5, Length3([3]float32{3, 4, 0}), eps)
	assert.Equal(t, [3]float32{0, 0, 0}, Normalize3([3]float32{}))
	assert.InDelta(t, math.Pi/2, Angle3(x, y), eps)
	assert.InDelta(t, 0, Angle3(x, x), eps)
}

func TestRotateAxis3(t *testing.T) {
	got := RotateAxis3([3]float32{1, 0, 0}, [3]float32{0, 1, 0}, math.Pi/2)
	assert.InDelta(t, 0, got[0], eps)
	assert.InDelta(t, 0, got[1], eps)
	assert.InDelta(t, -1, got[2], eps)

	// Vectors along the axis are unchanged.
	got = RotateAxis3([3]float32{0, 2, 0}, [3]float32{0, 1, 0}, 1.2)
	assert.InDelta(t, 2, got[1], eps)
}
