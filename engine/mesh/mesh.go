package mesh

import (
	"encoding/binary"
	"sync"

	"github.com/Carmen-Shannon/lawny-go/common"
	"github.com/Carmen-Shannon/lawny-go/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/lawny-go/engine/renderer/variant"
)

// meshImpl is the implementation of the Mesh interface.
type meshImpl struct {
	mu *sync.Mutex

	name      string
	positions [][3]float32
	normals   [][3]float32
	indices   []uint32

	layout   variant.Variant
	uploaded bool
	provider bind_group_provider.BindGroupProvider
}

// Mesh is a triangle mesh shared by every instance of a batch. It keeps its host-side geometry and,
// once uploaded by the Renderer, a BindGroupProvider holding the vertex and index buffers laid out
// for one shading variant.
type Mesh interface {
	// Name retrieves the mesh identifier.
	//
	// Returns:
	//   - string: the mesh name
	Name() string

	// Positions returns the model-space vertex positions.
	//
	// Returns:
	//   - [][3]float32: the positions
	Positions() [][3]float32

	// Normals returns the per-vertex normals, or nil if the mesh has none.
	//
	// Returns:
	//   - [][3]float32: the normals or nil
	Normals() [][3]float32

	// Indices returns the triangle list indices, or nil for non-indexed meshes.
	//
	// Returns:
	//   - []uint32: the indices or nil
	Indices() []uint32

	// VertexCount returns the number of vertices.
	//
	// Returns:
	//   - int: the vertex count
	VertexCount() int

	// IndexCount returns the number of indices.
	//
	// Returns:
	//   - int: the index count
	IndexCount() int

	// VertexData interleaves the vertex attributes of the given variant into a byte buffer.
	// Lit variants need normals; asking for them on a mesh without normals is a ConfigurationError.
	//
	// Parameters:
	//   - v: the shading variant the buffer will be drawn with
	//
	// Returns:
	//   - []byte: the interleaved vertices, v.VertexStride() bytes each
	//   - error: *common.ConfigurationError if the mesh lacks an attribute the variant reads
	VertexData(v variant.Variant) ([]byte, error)

	// IndexData serializes the indices as little-endian uint32 values.
	//
	// Returns:
	//   - []byte: the index buffer contents, or nil for non-indexed meshes
	IndexData() []byte

	// Layout reports the variant the GPU vertex buffer was laid out for and whether it was uploaded.
	//
	// Returns:
	//   - variant.Variant: the layout variant
	//   - bool: false if the mesh has not been uploaded
	Layout() (variant.Variant, bool)

	// SetLayout records the variant the GPU vertex buffer was laid out for. Called by the Renderer.
	//
	// Parameters:
	//   - v: the layout variant
	SetLayout(v variant.Variant)

	// Compatible reports whether the uploaded vertex buffer can feed a pipeline of the given variant.
	//
	// Parameters:
	//   - v: the pipeline's variant
	//
	// Returns:
	//   - bool: true if uploaded with the same per-vertex attribute set
	Compatible(v variant.Variant) bool

	// Provider retrieves the BindGroupProvider holding the GPU vertex and index buffers.
	//
	// Returns:
	//   - bind_group_provider.BindGroupProvider: the mesh provider
	Provider() bind_group_provider.BindGroupProvider
}

var _ Mesh = &meshImpl{}

// NewMesh creates a new Mesh with the provided options.
//
// Parameters:
//   - options: functional options to configure the mesh
//
// Returns:
//   - Mesh: the newly created mesh
func NewMesh(options ...MeshBuilderOption) Mesh {
	m := &meshImpl{
		mu:   &sync.Mutex{},
		name: "mesh",
	}
	for _, opt := range options {
		opt(m)
	}
	if m.provider == nil {
		m.provider = bind_group_provider.NewBindGroupProvider(m.name)
	}
	return m
}

func (m *meshImpl) Name() string {
	return m.name
}

func (m *meshImpl) Positions() [][3]float32 {
	return m.positions
}

func (m *meshImpl) Normals() [][3]float32 {
	return m.normals
}

func (m *meshImpl) Indices() []uint32 {
	return m.indices
}

func (m *meshImpl) VertexCount() int {
	return len(m.positions)
}

func (m *meshImpl) IndexCount() int {
	return len(m.indices)
}

func (m *meshImpl) VertexData(v variant.Variant) ([]byte, error) {
	if !v.Valid() {
		return nil, common.NewConfigurationError("mesh.VertexData", "unknown variant %s", v)
	}
	if v.HasNormal() && len(m.normals) != len(m.positions) {
		return nil, common.NewConfigurationError("mesh.VertexData",
			"variant %s needs one normal per vertex, mesh %q has %d normals for %d vertices",
			v, m.name, len(m.normals), len(m.positions))
	}

	stride := int(v.VertexStride())
	buf := make([]byte, 0, stride*len(m.positions))
	for i, p := range m.positions {
		if v.HasNormal() {
			vert := GPULitVertex{Position: p, Normal: m.normals[i]}
			buf = append(buf, vert.Marshal()...)
			continue
		}
		vert := GPUVertex{Position: p}
		buf = append(buf, vert.Marshal()...)
	}
	return buf, nil
}

func (m *meshImpl) IndexData() []byte {
	if len(m.indices) == 0 {
		return nil
	}
	buf := make([]byte, 4*len(m.indices))
	for i, idx := range m.indices {
		binary.LittleEndian.PutUint32(buf[i*4:], idx)
	}
	return buf
}

func (m *meshImpl) Layout() (variant.Variant, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.layout, m.uploaded
}

func (m *meshImpl) SetLayout(v variant.Variant) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.layout = v
	m.uploaded = true
}

func (m *meshImpl) Compatible(v variant.Variant) bool {
	layout, ok := m.Layout()
	return ok && layout.VertexStride() == v.VertexStride() && layout.HasNormal() == v.HasNormal()
}

func (m *meshImpl) Provider() bind_group_provider.BindGroupProvider {
	return m.provider
}
