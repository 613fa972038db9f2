package camera

import (
	"math"
	"sync"

	"github.com/Carmen-Shannon/lawny-go/common"
)

type cameraImpl struct {
	mu *sync.Mutex

	eye    [3]float32
	target [3]float32
	up     [3]float32

	fovy   float32
	aspect float32
	near   float32
	far    float32

	viewMatrix           [16]float32
	projectionMatrix     [16]float32
	viewProjectionMatrix [16]float32
}

// Camera defines a right-handed perspective camera looking from an eye point at a target.
// It computes view, projection and combined view-projection matrices whenever one of its
// parameters changes, using a projection that maps view depth onto the WebGPU [0, 1] range.
type Camera interface {
	// Eye returns the camera position in world space.
	//
	// Returns:
	//   - [3]float32: the eye position
	Eye() [3]float32

	// Target returns the look-at point in world space.
	//
	// Returns:
	//   - [3]float32: the target position
	Target() [3]float32

	// Up returns the camera's up vector.
	//
	// Returns:
	//   - [3]float32: the up vector
	Up() [3]float32

	// Fovy returns the vertical field of view in radians.
	//
	// Returns:
	//   - float32: field of view in radians
	Fovy() float32

	// Aspect returns the aspect ratio (width / height).
	//
	// Returns:
	//   - float32: the aspect ratio
	Aspect() float32

	// Near returns the near clipping plane distance.
	//
	// Returns:
	//   - float32: near plane distance
	Near() float32

	// Far returns the far clipping plane distance.
	//
	// Returns:
	//   - float32: far plane distance
	Far() float32

	// Forward returns the unit vector pointing from the eye towards the target.
	//
	// Returns:
	//   - [3]float32: the forward direction
	Forward() [3]float32

	// Right returns the unit vector pointing to the right of the view direction.
	//
	// Returns:
	//   - [3]float32: the right direction
	Right() [3]float32

	// ViewMatrix returns the current 4x4 view matrix (column-major).
	//
	// Returns:
	//   - [16]float32: the view matrix
	ViewMatrix() [16]float32

	// ProjectionMatrix returns the current 4x4 projection matrix (column-major).
	//
	// Returns:
	//   - [16]float32: the projection matrix
	ProjectionMatrix() [16]float32

	// ViewProjectionMatrix returns projection * view (column-major).
	//
	// Returns:
	//   - [16]float32: the combined view-projection matrix
	ViewProjectionMatrix() [16]float32

	// SetEye moves the camera without changing the target.
	//
	// Parameters:
	//   - eye: the new eye position
	SetEye(eye [3]float32)

	// SetTarget changes the look-at point without moving the camera.
	//
	// Parameters:
	//   - target: the new target position
	SetTarget(target [3]float32)

	// SetFovy sets the vertical field of view in radians.
	//
	// Parameters:
	//   - fovy: field of view in radians
	SetFovy(fovy float32)

	// SetAspect sets the aspect ratio (width / height). Called on window resize.
	//
	// Parameters:
	//   - aspect: the aspect ratio
	SetAspect(aspect float32)

	// Orbit rotates the eye and the up vector around a pivot point and looks at the pivot.
	//
	// Parameters:
	//   - pivot: the world-space point to orbit around
	//   - axis: unit rotation axis
	//   - angle: rotation angle in radians
	Orbit(pivot, axis [3]float32, angle float32)

	// Move translates both eye and target along the camera's forward and right directions.
	//
	// Parameters:
	//   - forward: distance along Forward()
	//   - right: distance along Right()
	Move(forward, right float32)

	// Zoom moves the eye towards the target by delta, never closer than the near plane.
	//
	// Parameters:
	//   - delta: positive values move closer
	Zoom(delta float32)

	// Ray returns the world-space ray through a cursor position on a viewport of the given size.
	//
	// Parameters:
	//   - x, y: cursor position in pixels from the top-left corner
	//   - width, height: viewport size in pixels
	//
	// Returns:
	//   - Ray: a ray from the eye through the cursor
	Ray(x, y, width, height float32) Ray

	// Sync pushes the current view-projection matrix into the uniform manager.
	//
	// Parameters:
	//   - m: the uniform manager to update
	Sync(m UniformManager)
}

var _ Camera = &cameraImpl{}

// NewCamera creates a new Camera looking from (0, 0, -1) at the origin with +Y up,
// a 60 degree vertical field of view, an aspect of 1 and clip planes at 0.001 and 1000.
//
// Parameters:
//   - options: functional options to configure the camera
//
// Returns:
//   - Camera: the newly created camera
func NewCamera(options ...CameraBuilderOption) Camera {
	c := &cameraImpl{
		mu:     &sync.Mutex{},
		eye:    [3]float32{0, 0, -1},
		target: [3]float32{0, 0, 0},
		up:     [3]float32{0, 1, 0},
		fovy:   60.0 * (math.Pi / 180.0),
		aspect: 1.0,
		near:   0.001,
		far:    1000.0,
	}
	for _, option := range options {
		option(c)
	}
	c.updateMatrices()
	return c
}

func (c *cameraImpl) Eye() [3]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.eye
}

func (c *cameraImpl) Target() [3]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.target
}

func (c *cameraImpl) Up() [3]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.up
}

func (c *cameraImpl) Fovy() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fovy
}

func (c *cameraImpl) Aspect() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aspect
}

func (c *cameraImpl) Near() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.near
}

func (c *cameraImpl) Far() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.far
}

func (c *cameraImpl) Forward() [3]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.forward()
}

func (c *cameraImpl) Right() [3]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.right()
}

func (c *cameraImpl) ViewMatrix() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewMatrix
}

func (c *cameraImpl) ProjectionMatrix() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.projectionMatrix
}

func (c *cameraImpl) ViewProjectionMatrix() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewProjectionMatrix
}

func (c *cameraImpl) SetEye(eye [3]float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.eye = eye
	c.updateMatrices()
}

func (c *cameraImpl) SetTarget(target [3]float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.target = target
	c.updateMatrices()
}

func (c *cameraImpl) SetFovy(fovy float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fovy = fovy
	c.updateMatrices()
}

func (c *cameraImpl) SetAspect(aspect float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.aspect = aspect
	c.updateMatrices()
}

func (c *cameraImpl) Orbit(pivot, axis [3]float32, angle float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	axis = common.Normalize3(axis)
	c.eye = common.Add3(pivot, common.RotateAxis3(common.Sub3(c.eye, pivot), axis, angle))
	c.up = common.RotateAxis3(c.up, axis, angle)
	c.target = pivot
	c.updateMatrices()
}

func (c *cameraImpl) Move(forward, right float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delta := common.Add3(common.Scale3(c.forward(), forward), common.Scale3(c.right(), right))
	c.eye = common.Add3(c.eye, delta)
	c.target = common.Add3(c.target, delta)
	c.updateMatrices()
}

func (c *cameraImpl) Zoom(delta float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	offset := common.Sub3(c.eye, c.target)
	dist := common.Length3(offset) - delta
	if dist < c.near {
		dist = c.near
	}
	c.eye = common.Add3(c.target, common.Scale3(common.Normalize3(offset), dist))
	c.updateMatrices()
}

func (c *cameraImpl) Ray(x, y, width, height float32) Ray {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Map the cursor onto the near-plane rectangle at unit distance in view space.
	tanY := float32(math.Tan(float64(c.fovy) / 2))
	ndcX := 2*x/width - 1
	ndcY := 1 - 2*y/height
	up := common.Cross3(c.right(), c.forward())

	dir := c.forward()
	dir = common.Add3(dir, common.Scale3(c.right(), ndcX*tanY*c.aspect))
	dir = common.Add3(dir, common.Scale3(up, ndcY*tanY))
	return Ray{Eye: c.eye, Target: common.Add3(c.eye, dir)}
}

func (c *cameraImpl) Sync(m UniformManager) {
	m.SetViewProjection(c.ViewProjectionMatrix())
}

// forward returns the normalized eye-to-target direction. Caller must hold the mutex.
func (c *cameraImpl) forward() [3]float32 {
	return common.Normalize3(common.Sub3(c.target, c.eye))
}

// right returns forward x up, normalized. Caller must hold the mutex.
func (c *cameraImpl) right() [3]float32 {
	return common.Normalize3(common.Cross3(common.Sub3(c.target, c.eye), c.up))
}

// updateMatrices recalculates the view, projection and view-projection matrices.
// Caller must hold the mutex.
func (c *cameraImpl) updateMatrices() {
	common.LookAt(c.viewMatrix[:], c.eye, c.target, c.up)
	common.Perspective(c.projectionMatrix[:], c.fovy, c.aspect, c.near, c.far)
	common.Mul4(c.viewProjectionMatrix[:], c.projectionMatrix[:], c.viewMatrix[:])
}
