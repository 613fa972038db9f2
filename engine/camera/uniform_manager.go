package camera

import (
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/lawny-go/common"
	"github.com/Carmen-Shannon/lawny-go/engine/renderer/bind_group_provider"
	"github.com/cogentcore/webgpu/wgpu"
)

const (
	// CameraGroup is the bind group index of the camera uniform in every shading variant.
	CameraGroup = 0
	// CameraBinding is the binding index of the camera uniform inside CameraGroup.
	CameraBinding = 0
	// CameraUniformSize is the byte size of the camera uniform (one mat4x4<f32>).
	CameraUniformSize = 64
)

// managerCount is an atomic counter used to generate unique bind group provider labels.
var managerCount atomic.Uint64

type uniformManagerImpl struct {
	mu *sync.Mutex

	uniform GPUCameraUniform
	dirty   bool

	bindGroupProvider bind_group_provider.BindGroupProvider
}

// UniformManager owns the camera's view-projection uniform and uploads it to the GPU only when it
// changed since the last successful upload. The uniform always lives at CameraGroup / CameraBinding
// and is visible to the vertex stage only.
type UniformManager interface {
	// SetViewProjection stores a new combined view-projection matrix and marks the uniform dirty.
	//
	// Parameters:
	//   - m: the column-major view-projection matrix
	SetViewProjection(m [16]float32)

	// ViewProjection returns the stored view-projection matrix.
	//
	// Returns:
	//   - [16]float32: the column-major view-projection matrix
	ViewProjection() [16]float32

	// Dirty reports whether the stored matrix differs from what the GPU last received.
	//
	// Returns:
	//   - bool: true if the next Upload will write
	Dirty() bool

	// Upload writes the 64-byte uniform through the queue if it is dirty, otherwise it does nothing.
	// On success the dirty flag is cleared. On failure the flag is kept and an UploadError is returned.
	//
	// Parameters:
	//   - q: the queue used to write the uniform buffer
	//
	// Returns:
	//   - error: *common.UploadError if the buffer is missing or the write fails
	Upload(q bind_group_provider.Queue) error

	// Group returns the bind group index of the camera uniform.
	//
	// Returns:
	//   - uint32: always CameraGroup
	Group() uint32

	// Binding returns the binding index of the camera uniform.
	//
	// Returns:
	//   - uint32: always CameraBinding
	Binding() uint32

	// BindGroupLayoutDescriptor describes the camera bind group: one vertex-visible uniform buffer.
	//
	// Returns:
	//   - wgpu.BindGroupLayoutDescriptor: the layout descriptor
	BindGroupLayoutDescriptor() wgpu.BindGroupLayoutDescriptor

	// BindGroupProvider returns the provider holding the uniform buffer and bind group.
	//
	// Returns:
	//   - bind_group_provider.BindGroupProvider: the provider
	BindGroupProvider() bind_group_provider.BindGroupProvider

	// SetBindGroupProvider replaces the provider. The uniform is marked dirty so the new buffer
	// receives the current matrix on the next Upload.
	//
	// Parameters:
	//   - provider: the bind group provider to set
	SetBindGroupProvider(provider bind_group_provider.BindGroupProvider)
}

var _ UniformManager = &uniformManagerImpl{}

// NewUniformManager creates a UniformManager holding the identity matrix.
// The manager starts dirty so the first Upload initializes the GPU buffer.
//
// Parameters:
//   - options: functional options to configure the manager
//
// Returns:
//   - UniformManager: the newly created manager
func NewUniformManager(options ...UniformManagerBuilderOption) UniformManager {
	m := &uniformManagerImpl{
		mu:      &sync.Mutex{},
		uniform: GPUCameraUniform{ViewProj: common.IdentityMatrix()},
		dirty:   true,
		bindGroupProvider: bind_group_provider.NewBindGroupProvider(
			"camera_" + strconv.FormatUint(managerCount.Add(1)-1, 10),
		),
	}
	for _, option := range options {
		option(m)
	}
	return m
}

func (m *uniformManagerImpl) SetViewProjection(vp [16]float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uniform.ViewProj = vp
	m.dirty = true
}

func (m *uniformManagerImpl) ViewProjection() [16]float32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.uniform.ViewProj
}

func (m *uniformManagerImpl) Dirty() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dirty
}

func (m *uniformManagerImpl) Upload(q bind_group_provider.Queue) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.dirty {
		return nil
	}

	write := bind_group_provider.BufferWrite{
		Provider: m.bindGroupProvider,
		Binding:  CameraBinding,
		Offset:   0,
		Data:     m.uniform.Marshal(),
	}
	if err := write.Apply(q); err != nil {
		return &common.UploadError{Op: "camera.Upload", Err: err}
	}
	m.dirty = false
	return nil
}

func (m *uniformManagerImpl) Group() uint32 {
	return CameraGroup
}

func (m *uniformManagerImpl) Binding() uint32 {
	return CameraBinding
}

func (m *uniformManagerImpl) BindGroupLayoutDescriptor() wgpu.BindGroupLayoutDescriptor {
	return wgpu.BindGroupLayoutDescriptor{
		Label: m.BindGroupProvider().Label() + "_layout",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    CameraBinding,
				Visibility: wgpu.ShaderStageVertex,
				Buffer: wgpu.BufferBindingLayout{
					Type:           wgpu.BufferBindingTypeUniform,
					MinBindingSize: CameraUniformSize,
				},
			},
		},
	}
}

func (m *uniformManagerImpl) BindGroupProvider() bind_group_provider.BindGroupProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bindGroupProvider
}

func (m *uniformManagerImpl) SetBindGroupProvider(provider bind_group_provider.BindGroupProvider) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bindGroupProvider = provider
	m.dirty = true
}
