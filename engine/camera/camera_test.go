package camera

import (
	"errors"
	"math"
	"testing"

	"github.com/Carmen-Shannon/lawny-go/common"
	"github.com/Carmen-Shannon/lawny-go/engine/renderer/bind_group_provider"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeQueue struct {
	writes [][]byte
	err    error
}

func (q *fakeQueue) WriteBuffer(_ *wgpu.Buffer, _ uint64, data []byte) error {
	if q.err != nil {
		return q.err
	}
	q.writes = append(q.writes, append([]byte(nil), data...))
	return nil
}

func newManager(t *testing.T) UniformManager {
	t.Helper()
	provider := bind_group_provider.NewBindGroupProvider("camera_test",
		bind_group_provider.WithBuffer(CameraBinding, &wgpu.Buffer{}),
	)
	return NewUniformManager(WithBindGroupProvider(provider))
}

func TestGPUCameraUniformLayout(t *testing.T) {
	u := GPUCameraUniform{ViewProj: common.Translation(1, 2, 3)}
	assert.Equal(t, CameraUniformSize, u.Size())

	buf := u.Marshal()
	require.Len(t, buf, 64)
	// Translation lives in the fourth column, i.e. floats 12..14.
	assert.Equal(t, []byte{0x00, 0x00, 0x80, 0x3f}, buf[12*4:13*4])
	assert.Contains(t, GPUCameraUniformSource, "view_proj: mat4x4<f32>")
}

func TestUploadOnlyWhenDirty(t *testing.T) {
	m := newManager(t)
	q := &fakeQueue{}

	require.True(t, m.Dirty())
	require.NoError(t, m.Upload(q))
	assert.Len(t, q.writes, 1)
	assert.False(t, m.Dirty())

	require.NoError(t, m.Upload(q))
	assert.Len(t, q.writes, 1, "clean upload must not write")

	vp := common.Translation(0, 0, -5)
	m.SetViewProjection(vp)
	assert.True(t, m.Dirty())
	require.NoError(t, m.Upload(q))
	require.Len(t, q.writes, 2)
	assert.Equal(t, (&GPUCameraUniform{ViewProj: vp}).Marshal(), q.writes[1])
	assert.Equal(t, vp, m.ViewProjection())
}

func TestUploadFailureKeepsDirty(t *testing.T) {
	m := newManager(t)
	deviceErr := errors.New("device lost")

	err := m.Upload(&fakeQueue{err: deviceErr})
	var upload *common.UploadError
	require.ErrorAs(t, err, &upload)
	assert.Equal(t, "camera.Upload", upload.Op)
	assert.ErrorIs(t, err, deviceErr)
	assert.True(t, m.Dirty())
}

func TestUploadWithoutBufferFails(t *testing.T) {
	m := NewUniformManager()
	var upload *common.UploadError
	assert.ErrorAs(t, m.Upload(&fakeQueue{}), &upload)
}

func TestBindingIsFixed(t *testing.T) {
	m := newManager(t)
	assert.Equal(t, uint32(0), m.Group())
	assert.Equal(t, uint32(0), m.Binding())

	desc := m.BindGroupLayoutDescriptor()
	require.Len(t, desc.Entries, 1)
	entry := desc.Entries[0]
	assert.Equal(t, uint32(0), entry.Binding)
	assert.Equal(t, wgpu.ShaderStageVertex, entry.Visibility)
	assert.Equal(t, wgpu.BufferBindingTypeUniform, entry.Buffer.Type)
	assert.Equal(t, uint64(64), entry.Buffer.MinBindingSize)
}

func TestSetBindGroupProviderMarksDirty(t *testing.T) {
	m := newManager(t)
	require.NoError(t, m.Upload(&fakeQueue{}))
	m.SetBindGroupProvider(bind_group_provider.NewBindGroupProvider("replacement"))
	assert.True(t, m.Dirty())
	assert.Equal(t, "replacement", m.BindGroupProvider().Label())
}

func TestCameraDefaults(t *testing.T) {
	c := NewCamera()
	assert.Equal(t, [3]float32{0, 0, -1}, c.Eye())
	assert.Equal(t, [3]float32{0, 0, 0}, c.Target())
	assert.InDelta(t, math.Pi/3, c.Fovy(), 1e-6)
	assert.Equal(t, float32(0.001), c.Near())
	assert.Equal(t, float32(1000), c.Far())
	assert.Equal(t, [3]float32{0, 0, 1}, c.Forward())
}

func TestCameraProjectsTargetToCenter(t *testing.T) {
	c := NewCamera(WithEye(0, 0, 5), WithAspect(16.0/9.0))
	vp := c.ViewProjectionMatrix()

	clip := common.MulVec4(vp[:], [4]float32{0, 0, 0, 1})
	assert.InDelta(t, 0, clip[0]/clip[3], 1e-5)
	assert.InDelta(t, 0, clip[1]/clip[3], 1e-5)
	depth := clip[2] / clip[3]
	assert.True(t, depth > 0 && depth < 1, "depth %f outside [0,1]", depth)
}

func TestCameraSync(t *testing.T) {
	c := NewCamera(WithEye(1, 2, 3))
	m := newManager(t)
	require.NoError(t, m.Upload(&fakeQueue{}))

	c.Sync(m)
	assert.True(t, m.Dirty())
	assert.Equal(t, c.ViewProjectionMatrix(), m.ViewProjection())
}

func TestCameraOrbit(t *testing.T) {
	c := NewCamera()
	c.Orbit([3]float32{}, [3]float32{0, 1, 0}, -math.Pi/2)

	eye := c.Eye()
	assert.InDelta(t, 1, eye[0], 1e-5)
	assert.InDelta(t, 0, eye[1], 1e-5)
	assert.InDelta(t, 0, eye[2], 1e-5)
	up := c.Up()
	assert.InDelta(t, 1, up[1], 1e-5)
}

func TestCameraMoveAndZoom(t *testing.T) {
	c := NewCamera(WithEye(0, 0, -4))
	c.Move(1, 0)
	eye, target := c.Eye(), c.Target()
	assert.InDeltaSlice(t, []float32{0, 0, -3}, eye[:], 1e-5)
	assert.InDeltaSlice(t, []float32{0, 0, 1}, target[:], 1e-5)

	c.Zoom(10)
	dist := common.Length3(common.Sub3(c.Eye(), c.Target()))
	assert.InDelta(t, c.Near(), dist, 1e-5)
}

func TestCameraRayThroughCenter(t *testing.T) {
	c := NewCamera(WithEye(0, 0, -2))
	r := c.Ray(50, 50, 100, 100)
	assert.Equal(t, c.Eye(), r.Eye)
	d := common.Normalize3(r.Direction())
	assert.InDeltaSlice(t, []float32{0, 0, 1}, d[:], 1e-5)
}
