package camera

import "github.com/Carmen-Shannon/lawny-go/engine/renderer/bind_group_provider"

// UniformManagerBuilderOption is a functional option used to configure a UniformManager during construction.
type UniformManagerBuilderOption func(*uniformManagerImpl)

// WithViewProjection sets the initial view-projection matrix.
//
// Parameters:
//   - m: the column-major view-projection matrix
//
// Returns:
//   - UniformManagerBuilderOption: a function that sets the initial matrix
func WithViewProjection(m [16]float32) UniformManagerBuilderOption {
	return func(u *uniformManagerImpl) {
		u.uniform.ViewProj = m
	}
}

// WithBindGroupProvider sets the bind group provider that holds the uniform buffer.
//
// Parameters:
//   - provider: the bind group provider to use
//
// Returns:
//   - UniformManagerBuilderOption: a function that sets the provider
func WithBindGroupProvider(provider bind_group_provider.BindGroupProvider) UniformManagerBuilderOption {
	return func(u *uniformManagerImpl) {
		u.bindGroupProvider = provider
	}
}
