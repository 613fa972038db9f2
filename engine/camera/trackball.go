package camera

import (
	"math"

	"github.com/Carmen-Shannon/lawny-go/common"
)

// Ray is a half-line starting at Eye and passing through Target.
type Ray struct {
	Eye    [3]float32
	Target [3]float32
}

// Direction returns Target - Eye.
func (r Ray) Direction() [3]float32 {
	return common.Sub3(r.Target, r.Eye)
}

// Trackball is a virtual trackball: a ball of the given radius centred on a point that the user
// drags with the cursor. Rays that miss the ball are projected onto its silhouette so dragging
// outside the ball still rotates around the view axis.
type Trackball struct {
	Center [3]float32
	Radius float32
}

// NewTrackball creates a Trackball centred on center.
//
// Parameters:
//   - center: the ball centre in world space
//   - radius: the ball radius
//
// Returns:
//   - Trackball: the trackball
func NewTrackball(center [3]float32, radius float32) Trackball {
	return Trackball{Center: center, Radius: radius}
}

// Test reports whether the ray hits the ball.
//
// Parameters:
//   - ray: the ray to test
//
// Returns:
//   - bool: true if the ray intersects the ball in front of its eye
func (t Trackball) Test(ray Ray) bool {
	_, ok := t.hitBall(ray)
	return ok
}

// Compute returns the rotation that carries the point under the start ray onto the point under
// the end ray. The axis is unit length and the angle is in radians. ok is false when the rays
// are identical or the rotation is degenerate.
//
// Parameters:
//   - start: the ray under the cursor when the drag began
//   - end: the ray under the cursor now
//
// Returns:
//   - axis: unit rotation axis
//   - angle: rotation angle in radians
//   - ok: false if no rotation can be derived
func (t Trackball) Compute(start, end Ray) (axis [3]float32, angle float32, ok bool) {
	if start == end {
		return axis, 0, false
	}
	a, aok := t.intersect(start)
	b, bok := t.intersect(end)
	if !aok || !bok {
		return axis, 0, false
	}
	a = common.Sub3(a, t.Center)
	b = common.Sub3(b, t.Center)

	cross := common.Cross3(a, b)
	if common.Length3(cross) == 0 {
		return axis, 0, false
	}
	return common.Normalize3(cross), common.Angle3(a, b), true
}

// intersect returns the closest hit on the ball, or the ray's crossing of the plane through the
// centre facing the eye, pulled back onto the ball's silhouette.
func (t Trackball) intersect(ray Ray) ([3]float32, bool) {
	if p, ok := t.hitBall(ray); ok {
		return p, true
	}

	normal := common.Normalize3(common.Sub3(t.Center, ray.Eye))
	d := ray.Direction()
	denom := common.Dot3(d, normal)
	if denom == 0 {
		return [3]float32{}, false
	}
	s := common.Dot3(common.Sub3(t.Center, ray.Eye), normal) / denom
	if s < 0 {
		return [3]float32{}, false
	}
	onPlane := common.Add3(ray.Eye, common.Scale3(d, s))
	delta := common.Normalize3(common.Sub3(onPlane, t.Center))
	return common.Add3(t.Center, common.Scale3(delta, t.Radius)), true
}

// hitBall solves |eye + s*d - center|^2 = r^2 for the smallest s >= 0.
func (t Trackball) hitBall(ray Ray) ([3]float32, bool) {
	d := ray.Direction()
	oc := common.Sub3(ray.Eye, t.Center)

	a := float64(common.Dot3(d, d))
	b := 2 * float64(common.Dot3(oc, d))
	c := float64(common.Dot3(oc, oc)) - float64(t.Radius)*float64(t.Radius)
	if a == 0 {
		return [3]float32{}, false
	}

	disc := b*b - 4*a*c
	if disc < 0 {
		return [3]float32{}, false
	}
	sq := math.Sqrt(disc)
	s := (-b - sq) / (2 * a)
	if s < 0 {
		s = (-b + sq) / (2 * a)
	}
	if s < 0 {
		return [3]float32{}, false
	}
	return common.Add3(ray.Eye, common.Scale3(d, float32(s))), true
}
