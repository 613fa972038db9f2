package mesh

import "github.com/Carmen-Shannon/lawny-go/engine/renderer/bind_group_provider"

// MeshBuilderOption is a functional option used to configure a Mesh during construction.
type MeshBuilderOption func(*meshImpl)

// WithName sets the mesh identifier, also used as the label of its GPU buffers.
//
// Parameters:
//   - name: the mesh name
//
// Returns:
//   - MeshBuilderOption: a function that sets the name
func WithName(name string) MeshBuilderOption {
	return func(m *meshImpl) {
		m.name = name
	}
}

// WithPositions sets the model-space vertex positions.
//
// Parameters:
//   - positions: the vertex positions
//
// Returns:
//   - MeshBuilderOption: a function that sets the positions
func WithPositions(positions [][3]float32) MeshBuilderOption {
	return func(m *meshImpl) {
		m.positions = positions
	}
}

// WithNormals sets the per-vertex normals.
//
// Parameters:
//   - normals: one normal per position
//
// Returns:
//   - MeshBuilderOption: a function that sets the normals
func WithNormals(normals [][3]float32) MeshBuilderOption {
	return func(m *meshImpl) {
		m.normals = normals
	}
}

// WithIndices sets the triangle list indices.
//
// Parameters:
//   - indices: three indices per triangle
//
// Returns:
//   - MeshBuilderOption: a function that sets the indices
func WithIndices(indices []uint32) MeshBuilderOption {
	return func(m *meshImpl) {
		m.indices = indices
	}
}

// WithProvider sets the BindGroupProvider that will hold the GPU buffers.
//
// Parameters:
//   - provider: the provider
//
// Returns:
//   - MeshBuilderOption: a function that sets the provider
func WithProvider(provider bind_group_provider.BindGroupProvider) MeshBuilderOption {
	return func(m *meshImpl) {
		m.provider = provider
	}
}
