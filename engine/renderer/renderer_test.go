package renderer

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/Carmen-Shannon/lawny-go/common"
	"github.com/Carmen-Shannon/lawny-go/engine/camera"
	"github.com/Carmen-Shannon/lawny-go/engine/mesh"
	"github.com/Carmen-Shannon/lawny-go/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/lawny-go/engine/renderer/instance"
	"github.com/Carmen-Shannon/lawny-go/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/lawny-go/engine/renderer/shading"
	"github.com/Carmen-Shannon/lawny-go/engine/renderer/variant"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePass records every command as a string.
type fakePass struct {
	calls []string
}

func (p *fakePass) SetPipeline(*wgpu.RenderPipeline) {
	p.calls = append(p.calls, "pipeline")
}

func (p *fakePass) SetBindGroup(group uint32, _ *wgpu.BindGroup) {
	p.calls = append(p.calls, fmt.Sprintf("bind_group %d", group))
}

func (p *fakePass) SetVertexBuffer(slot uint32, _ *wgpu.Buffer) {
	p.calls = append(p.calls, fmt.Sprintf("vertex_buffer %d", slot))
}

func (p *fakePass) SetIndexBuffer(*wgpu.Buffer) {
	p.calls = append(p.calls, "index_buffer")
}

func (p *fakePass) DrawIndexed(indexCount, instanceCount uint32) {
	p.calls = append(p.calls, fmt.Sprintf("draw_indexed %d %d", indexCount, instanceCount))
}

func (p *fakePass) Draw(vertexCount, instanceCount uint32) {
	p.calls = append(p.calls, fmt.Sprintf("draw %d %d", vertexCount, instanceCount))
}

type fakeQueue struct {
	writes int
	err    error
}

func (q *fakeQueue) WriteBuffer(*wgpu.Buffer, uint64, []byte) error {
	if q.err != nil {
		return q.err
	}
	q.writes++
	return nil
}

// fakeBackend stands in for the wgpu backend. It logs frame lifecycle events into events.
type fakeBackend struct {
	queue   *fakeQueue
	pass    *fakePass
	inFrame bool
	events  []string

	beginErr error
	endErr   error
}

var _ RendererBackend = &fakeBackend{}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{queue: &fakeQueue{}, pass: &fakePass{}}
}

func (b *fakeBackend) Queue() bind_group_provider.Queue { return b.queue }

func (b *fakeBackend) ConfigureSurface(width, height int) error {
	b.events = append(b.events, fmt.Sprintf("configure %dx%d", width, height))
	return nil
}

func (b *fakeBackend) SetPresentMode(PresentMode) {}

func (b *fakeBackend) SetClearColor(wgpu.Color) {}

func (b *fakeBackend) RegisterRenderPipeline(d pipeline.Descriptor) error {
	d.SetRenderPipeline(&wgpu.RenderPipeline{})
	return nil
}

func (b *fakeBackend) InitMeshBuffers(provider bind_group_provider.BindGroupProvider, _, indexData []byte, vertexCount, indexCount int) error {
	provider.SetVertexBuffer(&wgpu.Buffer{})
	provider.SetVertexCount(vertexCount)
	if len(indexData) > 0 {
		provider.SetIndexBuffer(&wgpu.Buffer{})
	}
	provider.SetIndexCount(indexCount)
	return nil
}

func (b *fakeBackend) InitBindGroup(provider bind_group_provider.BindGroupProvider, desc wgpu.BindGroupLayoutDescriptor) error {
	for _, e := range desc.Entries {
		provider.SetBuffer(int(e.Binding), &wgpu.Buffer{})
	}
	provider.SetBindGroup(&wgpu.BindGroup{})
	return nil
}

func (b *fakeBackend) CreateBuffer(string, uint64, wgpu.BufferUsage) (*wgpu.Buffer, error) {
	return &wgpu.Buffer{}, nil
}

func (b *fakeBackend) ReleaseBuffer(*wgpu.Buffer) {}

func (b *fakeBackend) BeginFrame() error {
	if b.beginErr != nil {
		return b.beginErr
	}
	b.inFrame = true
	b.events = append(b.events, "begin")
	return nil
}

func (b *fakeBackend) Pass() renderPass {
	if !b.inFrame {
		return nil
	}
	return b.pass
}

func (b *fakeBackend) EndFrame() error {
	b.inFrame = false
	b.events = append(b.events, "end")
	return b.endErr
}

func (b *fakeBackend) DiscardFrame() {
	b.inFrame = false
	b.events = append(b.events, "discard")
}

func (b *fakeBackend) Present() {
	b.events = append(b.events, "present")
}

func (b *fakeBackend) Release() {
	b.events = append(b.events, "release")
}

func newTestRenderer(t *testing.T, options ...RendererBuilderOption) (*renderer, *fakeBackend) {
	t.Helper()
	r := &renderer{
		mu:            &sync.Mutex{},
		pipelineCache: make(map[string]pipeline.Descriptor),
	}
	for _, opt := range options {
		opt(r)
	}
	backend := newFakeBackend()
	require.NoError(t, r.attach(backend, 800, 600))
	return r, backend
}

func newDescriptor(t *testing.T, v variant.Variant) pipeline.Descriptor {
	t.Helper()
	pair, err := shading.NewStagePair(v)
	require.NoError(t, err)
	d, err := pipeline.NewDescriptor(v, pair)
	require.NoError(t, err)
	return d
}

func triangle(t *testing.T, indexed bool) mesh.Mesh {
	t.Helper()
	opts := []mesh.MeshBuilderOption{
		mesh.WithName("triangle"),
		mesh.WithPositions([][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}),
		mesh.WithNormals([][3]float32{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}}),
	}
	if indexed {
		opts = append(opts, mesh.WithIndices([]uint32{0, 1, 2}))
	}
	return mesh.NewMesh(opts...)
}

// setup returns a renderer with an initialized camera, a registered pipeline for v, an uploaded
// indexed triangle and a transform buffer holding one written instance.
func setup(t *testing.T, v variant.Variant) (*renderer, *fakeBackend, Batch) {
	t.Helper()
	r, backend := newTestRenderer(t)
	require.NoError(t, r.InitCamera(camera.NewUniformManager()))

	d := newDescriptor(t, v)
	require.NoError(t, r.RegisterPipeline(d))

	m := triangle(t, true)
	require.NoError(t, r.InitMesh(m, v))

	tb, err := r.NewTransformBuffer(v, instance.WithCapacity(4))
	require.NoError(t, err)
	require.NoError(t, tb.Write(0, common.IdentityMatrix(), nil))

	return r, backend, Batch{Descriptor: d, Mesh: m, Instances: tb, InstanceCount: 1}
}

func requireConfigError(t *testing.T, err error, contains string) {
	t.Helper()
	var cfgErr *common.ConfigurationError
	require.True(t, errors.As(err, &cfgErr), "got %v", err)
	assert.Contains(t, cfgErr.Reason, contains)
}

func TestDrawEncodesOneInstancedDraw(t *testing.T) {
	for _, v := range variant.Variants() {
		t.Run(v.String(), func(t *testing.T) {
			r, backend, b := setup(t, v)
			require.NoError(t, r.BeginFrame())
			require.NoError(t, r.Draw(b))

			assert.Equal(t, []string{
				"pipeline",
				"bind_group 0",
				"vertex_buffer 0",
				"vertex_buffer 1",
				"index_buffer",
				"draw_indexed 3 1",
			}, backend.pass.calls)
		})
	}
}

func TestDrawNonIndexedMesh(t *testing.T) {
	r, backend, b := setup(t, variant.Lit)
	m := triangle(t, false)
	require.NoError(t, r.InitMesh(m, variant.Lit))
	b.Mesh = m
	b.InstanceCount = 4

	require.NoError(t, r.BeginFrame())
	require.NoError(t, r.Draw(b))
	assert.Equal(t, "draw 3 4", backend.pass.calls[len(backend.pass.calls)-1])
	assert.NotContains(t, backend.pass.calls, "index_buffer")
}

func TestDrawZeroInstancesIssuesNothing(t *testing.T) {
	r, backend, b := setup(t, variant.Flat)
	b.InstanceCount = 0
	require.NoError(t, r.BeginFrame())
	require.NoError(t, r.Draw(b))
	assert.Empty(t, backend.pass.calls)
}

func TestDrawRejectsInstanceCountAboveCapacity(t *testing.T) {
	r, backend, b := setup(t, variant.Flat)
	b.InstanceCount = 5
	require.NoError(t, r.BeginFrame())

	err := r.Draw(b)
	var capErr *common.CapacityError
	require.True(t, errors.As(err, &capErr), "got %v", err)
	assert.EqualValues(t, 4, capErr.Index)
	assert.EqualValues(t, 4, capErr.Capacity)
	assert.Empty(t, backend.pass.calls)
}

func TestDrawRejectsSchemaMismatch(t *testing.T) {
	t.Run("mesh laid out for another variant", func(t *testing.T) {
		r, _, b := setup(t, variant.Lit)
		flat := triangle(t, true)
		require.NoError(t, r.InitMesh(flat, variant.Flat))
		b.Mesh = flat
		require.NoError(t, r.BeginFrame())
		requireConfigError(t, r.Draw(b), "laid out for flat")
	})

	t.Run("mesh never uploaded", func(t *testing.T) {
		r, _, b := setup(t, variant.Lit)
		b.Mesh = triangle(t, true)
		require.NoError(t, r.BeginFrame())
		requireConfigError(t, r.Draw(b), "not been uploaded")
	})

	t.Run("untinted records for the tinted pipeline", func(t *testing.T) {
		r, _, b := setup(t, variant.LitTinted)
		tb, err := r.NewTransformBuffer(variant.Lit, instance.WithCapacity(1))
		require.NoError(t, err)
		b.Instances = tb
		require.NoError(t, r.BeginFrame())
		requireConfigError(t, r.Draw(b), "stores lit records")
	})

	t.Run("empty batch", func(t *testing.T) {
		r, _, _ := setup(t, variant.Flat)
		require.NoError(t, r.BeginFrame())
		requireConfigError(t, r.Draw(Batch{}), "needs a descriptor")
	})
}

func TestDrawRejectsMissingResources(t *testing.T) {
	t.Run("pipeline not registered", func(t *testing.T) {
		r, _, b := setup(t, variant.Flat)
		b.Descriptor = newDescriptor(t, variant.Flat)
		require.NoError(t, r.BeginFrame())
		requireConfigError(t, r.Draw(b), "not registered")
	})

	t.Run("camera not initialized", func(t *testing.T) {
		r, _, b := setup(t, variant.Flat)
		r.camera = nil
		require.NoError(t, r.BeginFrame())
		requireConfigError(t, r.Draw(b), "camera")
	})

	t.Run("transform buffer without capacity", func(t *testing.T) {
		r, _, b := setup(t, variant.Flat)
		tb, err := r.NewTransformBuffer(variant.Flat)
		require.NoError(t, err)
		b.Instances = tb
		b.InstanceCount = 0
		require.NoError(t, r.BeginFrame())
		require.NoError(t, r.Draw(b))
	})
}

func TestDrawOutsideFrame(t *testing.T) {
	r, _, b := setup(t, variant.Flat)
	assert.ErrorIs(t, r.Draw(b), ErrNoFrame)
}

func TestFrameOrder(t *testing.T) {
	r, backend, b := setup(t, variant.LitTinted)
	cam := camera.NewUniformManager(camera.WithBindGroupProvider(r.camera.BindGroupProvider()))

	require.NoError(t, r.Frame(cam, b, b))

	assert.Equal(t, []string{"configure 800x600", "begin", "end", "present"}, backend.events)
	// One camera upload and one run for the shared transform buffer.
	assert.Equal(t, 2, backend.queue.writes)
	assert.Zero(t, b.Instances.DirtyCount())
	assert.False(t, cam.Dirty())

	draws := 0
	for _, c := range backend.pass.calls {
		if c == "draw_indexed 3 1" {
			draws++
		}
	}
	assert.Equal(t, 2, draws)
}

func TestFrameDiscardsOnDrawError(t *testing.T) {
	r, backend, b := setup(t, variant.Flat)
	bad := b
	bad.InstanceCount = 99

	err := r.Frame(nil, b, bad)
	var capErr *common.CapacityError
	require.True(t, errors.As(err, &capErr))
	assert.Equal(t, []string{"configure 800x600", "begin", "discard"}, backend.events)
}

func TestFrameStopsOnUploadError(t *testing.T) {
	r, backend, b := setup(t, variant.Flat)
	backend.queue.err = errors.New("device lost")

	err := r.Frame(camera.NewUniformManager(camera.WithBindGroupProvider(r.camera.BindGroupProvider())), b)
	var upErr *common.UploadError
	require.True(t, errors.As(err, &upErr))
	assert.Equal(t, []string{"configure 800x600"}, backend.events)
}

func TestFramePropagatesBeginError(t *testing.T) {
	r, backend, b := setup(t, variant.Flat)
	backend.beginErr = errors.New("surface lost")
	assert.EqualError(t, r.Frame(nil, b), "surface lost")
}

func TestRegisterPipeline(t *testing.T) {
	d := newDescriptor(t, variant.Lit)
	r, _ := newTestRenderer(t, WithDescriptors(d))

	assert.Same(t, d, r.Pipeline(d.Key()))
	assert.NotNil(t, d.RenderPipeline())
	assert.Len(t, r.Pipelines(), 1)

	// A second descriptor under the same key is skipped.
	again := newDescriptor(t, variant.Lit)
	require.NoError(t, r.RegisterPipeline(again))
	assert.Same(t, d, r.Pipeline(d.Key()))
	assert.Nil(t, again.RenderPipeline())
	assert.Nil(t, r.Pipeline("missing"))
}

func TestInitMeshRejectsMissingNormals(t *testing.T) {
	r, _ := newTestRenderer(t)
	m := mesh.NewMesh(mesh.WithPositions([][3]float32{{0, 0, 0}}))
	requireConfigError(t, r.InitMesh(m, variant.Lit), "normal")

	_, uploaded := m.Layout()
	assert.False(t, uploaded)
	require.NoError(t, r.InitMesh(m, variant.Flat))
	assert.True(t, m.Compatible(variant.Flat))
}

func TestParsePresentMode(t *testing.T) {
	mode, ok := ParsePresentMode("uncapped")
	assert.True(t, ok)
	assert.Equal(t, PresentModeUncapped, mode)

	mode, ok = ParsePresentMode("vsync")
	assert.True(t, ok)
	assert.Equal(t, PresentModeVSync, mode)

	_, ok = ParsePresentMode("triple")
	assert.False(t, ok)
}

func TestMSAASampleCountValid(t *testing.T) {
	assert.True(t, MSAAOff.Valid())
	assert.True(t, MSAA4x.Valid())
	assert.False(t, MSAASampleCount(2).Valid())
}
