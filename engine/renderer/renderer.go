package renderer

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/lawny-go/common"
	"github.com/Carmen-Shannon/lawny-go/engine/camera"
	"github.com/Carmen-Shannon/lawny-go/engine/mesh"
	"github.com/Carmen-Shannon/lawny-go/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/lawny-go/engine/renderer/instance"
	"github.com/Carmen-Shannon/lawny-go/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/lawny-go/engine/renderer/variant"
	"github.com/Carmen-Shannon/lawny-go/engine/window"
	"github.com/cogentcore/webgpu/wgpu"
)

// ErrNoFrame is returned by Draw when it is called outside BeginFrame / EndFrame.
var ErrNoFrame = errors.New("renderer: no frame in progress")

// Batch is one instanced draw: a mesh drawn InstanceCount times through a pipeline, each instance
// reading its record from Instances.
type Batch struct {
	// Descriptor is the registered pipeline the batch is drawn with.
	Descriptor pipeline.Descriptor
	// Mesh supplies the per-vertex buffer at pipeline.VertexSlot and the optional index buffer.
	Mesh mesh.Mesh
	// Instances supplies the per-instance buffer at pipeline.InstanceSlot.
	Instances instance.TransformBuffer
	// InstanceCount is the number of instances drawn, starting at record 0.
	InstanceCount uint32
}

type renderer struct {
	mu            *sync.Mutex
	pipelineCache map[string]pipeline.Descriptor
	backendType   RendererBackendType
	backend       RendererBackend
	camera        camera.UniformManager

	forceFallbackAdapter bool
	pendingPresentMode   *PresentMode
	pendingMSAA          *MSAASampleCount
	pendingClearColor    *wgpu.Color
	pendingDescriptors   []pipeline.Descriptor
}

// Renderer is the draw orchestrator. It owns the GPU device and surface, creates the GPU objects
// behind pipeline descriptors, meshes, the camera uniform and transform buffers, and issues one
// instanced draw call per Batch.
type Renderer interface {
	instance.BufferAllocator

	// Queue returns the queue that camera and transform uploads go through.
	//
	// Returns:
	//   - bind_group_provider.Queue: the device queue
	Queue() bind_group_provider.Queue

	// Resize reconfigures the surface and its depth and MSAA attachments.
	//
	// Parameters:
	//   - width: the new surface width in pixels
	//   - height: the new surface height in pixels
	//
	// Returns:
	//   - error: an error if the attachments could not be recreated
	Resize(width, height int) error

	// SetPresentMode sets the surface present mode. A call to Resize is required after changing
	// this for the new mode to take effect.
	//
	// Parameters:
	//   - mode: the PresentMode to use
	SetPresentMode(mode PresentMode)

	// SetClearColor sets the colour each frame's pass clears to.
	//
	// Parameters:
	//   - c: the clear colour
	SetClearColor(c wgpu.Color)

	// Pipeline retrieves a registered descriptor by key.
	//
	// Parameters:
	//   - key: the descriptor key
	//
	// Returns:
	//   - pipeline.Descriptor: the descriptor, or nil if none is registered under key
	Pipeline(key string) pipeline.Descriptor

	// Pipelines returns a copy of every registered descriptor keyed by descriptor key.
	//
	// Returns:
	//   - map[string]pipeline.Descriptor: the registered descriptors
	Pipelines() map[string]pipeline.Descriptor

	// RegisterPipeline validates a descriptor and creates its GPU render pipeline. A descriptor
	// whose key is already registered is skipped.
	//
	// Parameters:
	//   - d: the descriptor to register
	//
	// Returns:
	//   - error: *common.ConfigurationError if validation fails, or the device error
	RegisterPipeline(d pipeline.Descriptor) error

	// InitCamera creates the camera uniform buffer and bind group and makes m the camera bound at
	// group 0 of every draw.
	//
	// Parameters:
	//   - m: the camera uniform manager
	//
	// Returns:
	//   - error: an error if the GPU objects could not be created
	InitCamera(m camera.UniformManager) error

	// InitMesh uploads the mesh's vertices laid out for v and its indices, and records the layout
	// on the mesh.
	//
	// Parameters:
	//   - m: the mesh to upload
	//   - v: the variant whose per-vertex attributes the buffer carries
	//
	// Returns:
	//   - error: *common.ConfigurationError if the mesh lacks an attribute v reads,
	//     *common.UploadError if a buffer could not be created or written
	InitMesh(m mesh.Mesh, v variant.Variant) error

	// NewTransformBuffer creates a transform buffer for v whose GPU buffers are allocated by this renderer.
	//
	// Parameters:
	//   - v: the record schema
	//   - options: transform buffer options
	//
	// Returns:
	//   - instance.TransformBuffer: the buffer
	//   - error: see instance.NewTransformBuffer
	NewTransformBuffer(v variant.Variant, options ...instance.TransformBufferBuilderOption) (instance.TransformBuffer, error)

	// BeginFrame acquires the next surface texture and opens the frame's render pass.
	//
	// Returns:
	//   - error: an error if a frame is already open or the surface could not be acquired
	BeginFrame() error

	// Draw encodes the batch as exactly one instanced draw into the open pass. Nothing is encoded
	// for zero instances.
	//
	// Parameters:
	//   - b: the batch to draw
	//
	// Returns:
	//   - error: *common.ConfigurationError if the batch does not fit its pipeline or a buffer is
	//     missing, *common.CapacityError if InstanceCount exceeds the instance capacity,
	//     ErrNoFrame outside BeginFrame / EndFrame
	Draw(b Batch) error

	// EndFrame closes the pass and submits the frame's commands.
	//
	// Returns:
	//   - error: an error if the command buffer could not be finished
	EndFrame() error

	// Present presents the surface to the display and releases the swapchain texture.
	Present()

	// Frame runs one complete frame: camera upload, one flush per distinct transform buffer,
	// BeginFrame, one draw per batch, EndFrame and Present. It stops at the first error; a frame
	// that fails after BeginFrame is discarded without being submitted.
	//
	// Parameters:
	//   - cam: the camera uniform manager, or nil to reuse the uploaded matrix
	//   - batches: the batches to draw in order
	//
	// Returns:
	//   - error: the first error encountered
	Frame(cam camera.UniformManager, batches ...Batch) error

	// Release frees every GPU object owned by the renderer.
	Release()
}

var _ Renderer = &renderer{}

// NewRenderer creates a Renderer for the given window's surface.
//
// Parameters:
//   - backendType: the type of rendering backend to use (e.g., WGPU)
//   - w: the window providing the surface descriptor and initial size
//   - options: variadic list of RendererBuilderOption functions to configure the Renderer
//
// Returns:
//   - Renderer: the configured Renderer
//   - error: an error if the device could not be created or a pre-registered pipeline failed
func NewRenderer(backendType RendererBackendType, w window.Window, options ...RendererBuilderOption) (Renderer, error) {
	r := &renderer{
		mu:            &sync.Mutex{},
		pipelineCache: make(map[string]pipeline.Descriptor),
		backendType:   backendType,
	}

	// Apply options first so config flags (e.g. forceFallbackAdapter) are
	// available before the backend requests a GPU adapter.
	for _, opt := range options {
		opt(r)
	}

	msaa := MSAA4x
	if r.pendingMSAA != nil {
		msaa = *r.pendingMSAA
	}
	if !msaa.Valid() {
		return nil, common.NewConfigurationError("renderer.NewRenderer", "unsupported MSAA sample count %d", msaa)
	}

	var (
		backend RendererBackend
		err     error
	)
	switch backendType {
	case BackendTypeWGPU:
		fallthrough
	default:
		backend, err = newWGPURendererBackend(w.SurfaceDescriptor(), r.forceFallbackAdapter, msaa)
	}
	if err != nil {
		return nil, err
	}

	if err := r.attach(backend, w.Width(), w.Height()); err != nil {
		backend.Release()
		return nil, err
	}
	return r, nil
}

// attach applies the pending options to a backend, configures the surface and registers the
// pre-registered descriptors.
func (r *renderer) attach(backend RendererBackend, width, height int) error {
	r.backend = backend
	if r.pendingPresentMode != nil {
		backend.SetPresentMode(*r.pendingPresentMode)
	}
	if r.pendingClearColor != nil {
		backend.SetClearColor(*r.pendingClearColor)
	}
	if err := backend.ConfigureSurface(width, height); err != nil {
		return err
	}

	pending := r.pendingDescriptors
	r.pendingDescriptors = nil
	for _, d := range pending {
		if err := r.RegisterPipeline(d); err != nil {
			return err
		}
	}
	return nil
}

func (r *renderer) Queue() bind_group_provider.Queue {
	return r.backend.Queue()
}

func (r *renderer) CreateBuffer(label string, size uint64, usage wgpu.BufferUsage) (*wgpu.Buffer, error) {
	return r.backend.CreateBuffer(label, size, usage)
}

func (r *renderer) ReleaseBuffer(buf *wgpu.Buffer) {
	r.backend.ReleaseBuffer(buf)
}

func (r *renderer) Resize(width, height int) error {
	return r.backend.ConfigureSurface(width, height)
}

func (r *renderer) SetPresentMode(mode PresentMode) {
	r.backend.SetPresentMode(mode)
}

func (r *renderer) SetClearColor(c wgpu.Color) {
	r.backend.SetClearColor(c)
}

func (r *renderer) Pipeline(key string) pipeline.Descriptor {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pipelineCache[key]
}

func (r *renderer) Pipelines() map[string]pipeline.Descriptor {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]pipeline.Descriptor, len(r.pipelineCache))
	for k, d := range r.pipelineCache {
		out[k] = d
	}
	return out
}

func (r *renderer) RegisterPipeline(d pipeline.Descriptor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := d.Key()
	if _, exists := r.pipelineCache[key]; exists {
		return nil
	}
	if err := d.Validate(); err != nil {
		return err
	}
	if err := r.backend.RegisterRenderPipeline(d); err != nil {
		return fmt.Errorf("register pipeline %q: %w", key, err)
	}
	r.pipelineCache[key] = d

	common.Logger().Info("pipeline registered", "key", key, "variant", d.Variant().String())
	return nil
}

func (r *renderer) InitCamera(m camera.UniformManager) error {
	if err := r.backend.InitBindGroup(m.BindGroupProvider(), m.BindGroupLayoutDescriptor()); err != nil {
		return fmt.Errorf("init camera: %w", err)
	}
	r.mu.Lock()
	r.camera = m
	r.mu.Unlock()
	return nil
}

func (r *renderer) InitMesh(m mesh.Mesh, v variant.Variant) error {
	vertexData, err := m.VertexData(v)
	if err != nil {
		return err
	}
	if err := r.backend.InitMeshBuffers(m.Provider(), vertexData, m.IndexData(), m.VertexCount(), m.IndexCount()); err != nil {
		return err
	}
	m.SetLayout(v)

	common.Logger().Debug("mesh uploaded",
		"mesh", m.Name(),
		"variant", v.String(),
		"vertices", m.VertexCount(),
		"indices", m.IndexCount(),
	)
	return nil
}

func (r *renderer) NewTransformBuffer(v variant.Variant, options ...instance.TransformBufferBuilderOption) (instance.TransformBuffer, error) {
	return instance.NewTransformBuffer(v, r, options...)
}

func (r *renderer) BeginFrame() error {
	return r.backend.BeginFrame()
}

func (r *renderer) Draw(b Batch) error {
	pass := r.backend.Pass()
	if pass == nil {
		return ErrNoFrame
	}

	r.mu.Lock()
	cam := r.camera
	r.mu.Unlock()

	var cameraGroup *wgpu.BindGroup
	if cam != nil {
		cameraGroup = cam.BindGroupProvider().BindGroup()
	}
	return encodeDraw(pass, cameraGroup, b)
}

func (r *renderer) EndFrame() error {
	return r.backend.EndFrame()
}

func (r *renderer) Present() {
	r.backend.Present()
}

func (r *renderer) Frame(cam camera.UniformManager, batches ...Batch) error {
	q := r.backend.Queue()

	if cam != nil {
		if err := cam.Upload(q); err != nil {
			return err
		}
	}

	flushed := make(map[instance.TransformBuffer]bool, len(batches))
	for _, b := range batches {
		if b.Instances == nil || flushed[b.Instances] {
			continue
		}
		flushed[b.Instances] = true
		if _, err := b.Instances.Flush(q); err != nil {
			return err
		}
	}

	if err := r.backend.BeginFrame(); err != nil {
		return err
	}
	for _, b := range batches {
		if err := r.Draw(b); err != nil {
			r.backend.DiscardFrame()
			return err
		}
	}
	if err := r.backend.EndFrame(); err != nil {
		return err
	}
	r.backend.Present()
	return nil
}

func (r *renderer) Release() {
	r.mu.Lock()
	r.pipelineCache = make(map[string]pipeline.Descriptor)
	r.camera = nil
	r.mu.Unlock()
	r.backend.Release()
}

// encodeDraw checks a batch against its pipeline and encodes one instanced draw into pass.
//
// Parameters:
//   - pass: the open render pass
//   - cameraGroup: the camera bind group bound at group 0, nil if the camera was never initialized
//   - b: the batch
//
// Returns:
//   - error: see Renderer.Draw
func encodeDraw(pass renderPass, cameraGroup *wgpu.BindGroup, b Batch) error {
	const op = "renderer.Draw"

	if b.Descriptor == nil || b.Mesh == nil || b.Instances == nil {
		return common.NewConfigurationError(op, "batch needs a descriptor, a mesh and a transform buffer")
	}
	d := b.Descriptor
	v := d.Variant()

	if !b.Mesh.Compatible(v) {
		layout, uploaded := b.Mesh.Layout()
		if !uploaded {
			return common.NewConfigurationError(op, "mesh %q has not been uploaded", b.Mesh.Name())
		}
		return common.NewConfigurationError(op, "mesh %q is laid out for %s, pipeline %q draws %s",
			b.Mesh.Name(), layout, d.Key(), v)
	}
	if iv := b.Instances.Variant(); iv.RecordSize() != v.RecordSize() || iv.HasColor() != v.HasColor() {
		return common.NewConfigurationError(op, "transform buffer %q stores %s records, pipeline %q draws %s",
			b.Instances.Label(), iv, d.Key(), v)
	}

	if capacity := b.Instances.Capacity(); b.InstanceCount > capacity {
		return &common.CapacityError{Index: b.InstanceCount - 1, Capacity: capacity}
	}
	if b.InstanceCount == 0 {
		return nil
	}

	rp := d.RenderPipeline()
	if rp == nil {
		return common.NewConfigurationError(op, "pipeline %q is not registered", d.Key())
	}
	if cameraGroup == nil {
		return common.NewConfigurationError(op, "camera bind group is not initialized")
	}
	provider := b.Mesh.Provider()
	vertexBuffer := provider.VertexBuffer()
	if vertexBuffer == nil {
		return common.NewConfigurationError(op, "mesh %q has no vertex buffer", b.Mesh.Name())
	}
	instanceBuffer := b.Instances.Buffer()
	if instanceBuffer == nil {
		return common.NewConfigurationError(op, "transform buffer %q has no GPU buffer", b.Instances.Label())
	}

	pass.SetPipeline(rp)
	pass.SetBindGroup(camera.CameraGroup, cameraGroup)
	pass.SetVertexBuffer(pipeline.VertexSlot, vertexBuffer)
	pass.SetVertexBuffer(pipeline.InstanceSlot, instanceBuffer)

	if indexBuffer := provider.IndexBuffer(); indexBuffer != nil && provider.IndexCount() > 0 {
		pass.SetIndexBuffer(indexBuffer)
		pass.DrawIndexed(uint32(provider.IndexCount()), b.InstanceCount)
		return nil
	}
	pass.Draw(uint32(provider.VertexCount()), b.InstanceCount)
	return nil
}
