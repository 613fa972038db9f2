package renderer

import (
	"github.com/Carmen-Shannon/lawny-go/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/lawny-go/engine/renderer/pipeline"
	"github.com/cogentcore/webgpu/wgpu"
)

// RendererBackendType identifies the GPU backend implementation used by the Renderer.
type RendererBackendType int

const (
	// BackendTypeWGPU selects the WebGPU-based rendering backend.
	BackendTypeWGPU RendererBackendType = iota
)

// PresentMode controls how rendered frames are presented to the display surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank before presenting, capping frame rate
	// to the monitor's refresh rate. Eliminates tearing.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents frames immediately without waiting for vertical blank.
	// May cause screen tearing but provides the lowest latency.
	PresentModeUncapped
)

// ParsePresentMode maps a config name ("vsync" or "uncapped") to a PresentMode.
//
// Parameters:
//   - name: the present mode name
//
// Returns:
//   - PresentMode: the matching mode
//   - bool: false if the name is unknown
func ParsePresentMode(name string) (PresentMode, bool) {
	switch name {
	case "vsync":
		return PresentModeVSync, true
	case "uncapped":
		return PresentModeUncapped, true
	default:
		return PresentModeVSync, false
	}
}

// MSAASampleCount controls the number of samples used for multisample anti-aliasing (MSAA).
// WebGPU guarantees support for 1 (off) and 4.
type MSAASampleCount uint32

const (
	// MSAAOff disables multisample anti-aliasing (sample count 1).
	MSAAOff MSAASampleCount = 1

	// MSAA4x enables 4x multisample anti-aliasing. This is the default.
	MSAA4x MSAASampleCount = 4
)

// Valid reports whether the sample count is one the renderer can configure.
//
// Returns:
//   - bool: true for MSAAOff and MSAA4x
func (c MSAASampleCount) Valid() bool {
	return c == MSAAOff || c == MSAA4x
}

// renderPass is the subset of *wgpu.RenderPassEncoder a batch draw encodes into.
// The wgpu backend adapts the real encoder; tests record the calls.
type renderPass interface {
	SetPipeline(p *wgpu.RenderPipeline)
	SetBindGroup(group uint32, bg *wgpu.BindGroup)
	SetVertexBuffer(slot uint32, buf *wgpu.Buffer)
	SetIndexBuffer(buf *wgpu.Buffer)
	DrawIndexed(indexCount, instanceCount uint32)
	Draw(vertexCount, instanceCount uint32)
}

// wgpuPass adapts a *wgpu.RenderPassEncoder to renderPass. Whole buffers are always bound and
// every draw starts at the first vertex, index and instance.
type wgpuPass struct {
	enc *wgpu.RenderPassEncoder
}

var _ renderPass = wgpuPass{}

func (p wgpuPass) SetPipeline(rp *wgpu.RenderPipeline) {
	p.enc.SetPipeline(rp)
}

func (p wgpuPass) SetBindGroup(group uint32, bg *wgpu.BindGroup) {
	p.enc.SetBindGroup(group, bg, nil)
}

func (p wgpuPass) SetVertexBuffer(slot uint32, buf *wgpu.Buffer) {
	p.enc.SetVertexBuffer(slot, buf, 0, wgpu.WholeSize)
}

func (p wgpuPass) SetIndexBuffer(buf *wgpu.Buffer) {
	p.enc.SetIndexBuffer(buf, wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
}

func (p wgpuPass) DrawIndexed(indexCount, instanceCount uint32) {
	p.enc.DrawIndexed(indexCount, instanceCount, 0, 0, 0)
}

func (p wgpuPass) Draw(vertexCount, instanceCount uint32) {
	p.enc.Draw(vertexCount, instanceCount, 0, 0)
}

// RendererBackend is the top-level backend interface for the Renderer.
// It embeds the concrete backend interface for the selected GPU API.
type RendererBackend interface {
	wgpuRendererBackend
}

type wgpuRendererBackend interface {
	// Queue returns the queue buffer writes go through.
	//
	// Returns:
	//   - bind_group_provider.Queue: the device queue
	Queue() bind_group_provider.Queue

	// ConfigureSurface is a wrapper for boilerplate logic required when calling ConfigureSurface on a surface.
	// This is required when the surface size changes, such as when the window is resized.
	//
	// Parameters:
	//   - width: the new width of the surface in pixels
	//   - height: the new height of the surface in pixels
	//
	// Returns:
	//   - error: an error if the MSAA or depth attachments could not be created
	ConfigureSurface(width, height int) error

	// SetPresentMode sets the surface present mode which controls how frames are delivered to the display.
	//
	// Parameters:
	//   - mode: the PresentMode to use
	SetPresentMode(mode PresentMode)

	// SetClearColor sets the colour the main pass clears to at the start of each frame.
	//
	// Parameters:
	//   - c: the clear colour
	SetClearColor(c wgpu.Color)

	// RegisterRenderPipeline creates the shader modules, pipeline layout and render pipeline for a
	// descriptor and stores the result on it.
	//
	// Parameters:
	//   - d: the validated pipeline descriptor
	//
	// Returns:
	//   - error: an error if any GPU object could not be created
	RegisterRenderPipeline(d pipeline.Descriptor) error

	// InitMeshBuffers creates and fills the vertex and index buffers of a mesh and stores them on
	// the given provider.
	//
	// Parameters:
	//   - provider: the BindGroupProvider to store the buffers and counts on
	//   - vertexData: the interleaved vertex bytes
	//   - indexData: the index bytes, or nil for non-indexed meshes
	//   - vertexCount: the number of vertices in vertexData
	//   - indexCount: the number of indices in indexData
	//
	// Returns:
	//   - error: an error if a buffer could not be created or written
	InitMeshBuffers(provider bind_group_provider.BindGroupProvider, vertexData, indexData []byte, vertexCount, indexCount int) error

	// InitBindGroup creates the uniform or storage buffers and the bind group described by a layout
	// descriptor and stores them on the provider. Buffers already present on the provider are reused.
	//
	// Parameters:
	//   - provider: the BindGroupProvider to populate
	//   - descriptor: the layout of the bind group
	//
	// Returns:
	//   - error: an error if the layout, a buffer or the bind group could not be created
	InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor) error

	// CreateBuffer allocates a GPU buffer.
	//
	// Parameters:
	//   - label: debug label
	//   - size: size in bytes
	//   - usage: usage flags
	//
	// Returns:
	//   - *wgpu.Buffer: the buffer
	//   - error: an error if the device could not allocate it
	CreateBuffer(label string, size uint64, usage wgpu.BufferUsage) (*wgpu.Buffer, error)

	// ReleaseBuffer destroys a GPU buffer.
	//
	// Parameters:
	//   - buf: the buffer to release
	ReleaseBuffer(buf *wgpu.Buffer)

	// BeginFrame acquires the next surface texture and opens the main render pass.
	//
	// Returns:
	//   - error: an error if a frame is already open or the surface texture could not be acquired
	BeginFrame() error

	// Pass returns the open render pass, or nil outside BeginFrame / EndFrame.
	//
	// Returns:
	//   - renderPass: the current pass or nil
	Pass() renderPass

	// EndFrame closes the render pass and submits the encoded commands.
	//
	// Returns:
	//   - error: an error if the command buffer could not be finished
	EndFrame() error

	// DiscardFrame closes the render pass without submitting it and releases the surface texture.
	DiscardFrame()

	// Present presents the surface to the display and releases the swapchain texture.
	Present()

	// Release frees the device and every object the backend owns.
	Release()
}
