package pipeline

import "github.com/cogentcore/webgpu/wgpu"

// DescriptorBuilderOption is a functional option used to configure a Descriptor during construction.
type DescriptorBuilderOption func(*descriptor)

// WithKey overrides the pipeline key, which defaults to the variant name.
//
// Parameters:
//   - key: the unique key for this pipeline
//
// Returns:
//   - DescriptorBuilderOption: a function that sets the key for this pipeline
func WithKey(key string) DescriptorBuilderOption {
	return func(d *descriptor) {
		if key != "" {
			d.key = key
		}
	}
}

// WithDepthTestEnabled sets whether depth testing is enabled for this pipeline.
//
// Parameters:
//   - enabled: a boolean indicating whether depth testing should be enabled
//
// Returns:
//   - DescriptorBuilderOption: a function that sets the depth test enabled state for this pipeline
func WithDepthTestEnabled(enabled bool) DescriptorBuilderOption {
	return func(d *descriptor) {
		d.depthTestEnabled = enabled
	}
}

// WithDepthWriteEnabled sets whether depth writing is enabled for this pipeline.
//
// Parameters:
//   - enabled: a boolean indicating whether depth writing should be enabled
//
// Returns:
//   - DescriptorBuilderOption: a function that sets the depth write enabled state for this pipeline
func WithDepthWriteEnabled(enabled bool) DescriptorBuilderOption {
	return func(d *descriptor) {
		d.depthWriteEnabled = enabled
	}
}

// WithDepthBias sets the depth bias parameters for this pipeline.
//
// Parameters:
//   - bias: the constant depth bias to apply
//   - slopeScale: the slope scale depth bias to apply
//
// Returns:
//   - DescriptorBuilderOption: a function that sets the depth bias parameters for this pipeline
func WithDepthBias(bias int32, slopeScale float32) DescriptorBuilderOption {
	return func(d *descriptor) {
		d.depthBias = bias
		d.depthBiasSlopeScale = slopeScale
	}
}

// WithBlendEnabled sets whether blending is enabled for this pipeline.
//
// Parameters:
//   - enabled: a boolean indicating whether blending should be enabled
//
// Returns:
//   - DescriptorBuilderOption: a function that sets the blend enabled state for this pipeline
func WithBlendEnabled(enabled bool) DescriptorBuilderOption {
	return func(d *descriptor) {
		d.blendEnabled = enabled
	}
}

// WithCullMode sets the cull mode for this pipeline. Disabling culling is useful when a mesh
// is viewed from inside or its winding is not known.
//
// Parameters:
//   - mode: the cull mode to use for this pipeline (e.g., wgpu.CullModeNone, wgpu.CullModeFront, wgpu.CullModeBack)
//
// Returns:
//   - DescriptorBuilderOption: a function that sets the cull mode for this pipeline
func WithCullMode(mode wgpu.CullMode) DescriptorBuilderOption {
	return func(d *descriptor) {
		d.cullMode = mode
	}
}

// WithTopology sets the primitive topology for this pipeline.
//
// Parameters:
//   - topology: the primitive topology to use for this pipeline (e.g., wgpu.PrimitiveTopologyLineList for wireframes)
//
// Returns:
//   - DescriptorBuilderOption: a function that sets the primitive topology for this pipeline
func WithTopology(topology wgpu.PrimitiveTopology) DescriptorBuilderOption {
	return func(d *descriptor) {
		d.topology = topology
	}
}

// WithFrontFace sets the front face winding order for this pipeline.
//
// Parameters:
//   - frontFace: the front face to use for this pipeline (e.g., wgpu.FrontFaceCCW, wgpu.FrontFaceCW)
//
// Returns:
//   - DescriptorBuilderOption: a function that sets the front face for this pipeline
func WithFrontFace(frontFace wgpu.FrontFace) DescriptorBuilderOption {
	return func(d *descriptor) {
		d.frontFace = frontFace
	}
}

// WithWriteMask sets the color write mask for this pipeline.
//
// Parameters:
//   - writeMask: the color write mask to use for this pipeline
//
// Returns:
//   - DescriptorBuilderOption: a function that sets the color write mask for this pipeline
func WithWriteMask(writeMask wgpu.ColorWriteMask) DescriptorBuilderOption {
	return func(d *descriptor) {
		d.writeMask = writeMask
	}
}

// WithBlendState sets the blend state for this pipeline.
//
// Parameters:
//   - blendState: the blend state applied when blending is enabled
//
// Returns:
//   - DescriptorBuilderOption: a function that sets the blend state for this pipeline
func WithBlendState(blendState *wgpu.BlendState) DescriptorBuilderOption {
	return func(d *descriptor) {
		d.blendState = blendState
	}
}
