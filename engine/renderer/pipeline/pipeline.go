package pipeline

import (
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/lawny-go/common"
	"github.com/Carmen-Shannon/lawny-go/engine/camera"
	"github.com/Carmen-Shannon/lawny-go/engine/renderer/shader"
	"github.com/Carmen-Shannon/lawny-go/engine/renderer/shading"
	"github.com/Carmen-Shannon/lawny-go/engine/renderer/variant"
	"github.com/cogentcore/webgpu/wgpu"
)

const (
	// VertexSlot is the vertex buffer slot of the per-vertex buffer.
	VertexSlot = 0

	// InstanceSlot is the vertex buffer slot of the per-instance buffer.
	InstanceSlot = 1
)

// descriptor is the implementation of the Descriptor interface.
// It pairs a variant with its stage pair and holds the render state used to create the GPU pipeline.
type descriptor struct {
	// key is the unique identifier for this pipeline, used as the GPU object label
	key string
	// v is the variant whose attribute tables drive the vertex buffer layouts
	v variant.Variant
	// pair is the vertex and fragment stage the pipeline runs
	pair *shading.StagePair

	// renderPipeline is the GPU pipeline, nil until the renderer registers the descriptor
	renderPipeline *wgpu.RenderPipeline

	// The following properties configure the pipeline during creation and are set with the builder options.

	depthTestEnabled    bool
	depthWriteEnabled   bool
	depthBias           int32
	depthBiasSlopeScale float32
	blendEnabled        bool
	cullMode            wgpu.CullMode
	topology            wgpu.PrimitiveTopology
	frontFace           wgpu.FrontFace
	writeMask           wgpu.ColorWriteMask
	blendState          *wgpu.BlendState
}

// Descriptor declares how the camera uniform and the vertex and instance buffers of one
// shading variant map onto the inputs of its stage pair, together with the render state
// of the GPU pipeline built from it.
type Descriptor interface {
	// Key returns the unique key associated with this pipeline.
	//
	// Returns:
	//   - string: the unique key for this pipeline
	Key() string

	// Variant returns the shading variant the descriptor was built for.
	//
	// Returns:
	//   - variant.Variant: the variant
	Variant() variant.Variant

	// StagePair returns the vertex and fragment stage of the pipeline.
	//
	// Returns:
	//   - *shading.StagePair: the stage pair
	StagePair() *shading.StagePair

	// Shader retrieves the stage of the given type.
	//
	// Parameters:
	//   - shaderType: the stage to retrieve
	//
	// Returns:
	//   - shader.Shader: the stage, or nil for an unknown type
	Shader(shaderType shader.ShaderType) shader.Shader

	// VertexBufferLayouts returns the two buffer layouts of the pipeline: the per-vertex buffer
	// at VertexSlot and the per-instance buffer at InstanceSlot, built from the variant's
	// attribute tables.
	//
	// Returns:
	//   - []wgpu.VertexBufferLayout: the layouts indexed by slot
	VertexBufferLayouts() []wgpu.VertexBufferLayout

	// Validate checks that the attribute tables match the vertex stage's inputs in count,
	// format and location, that every fragment input is produced by the vertex stage, that the
	// fragment stage writes one vec4<f32> at location 0, and that the camera uniform is declared
	// at its fixed group and binding with the expected size.
	//
	// Returns:
	//   - error: a *common.ConfigurationError listing every mismatch, or nil
	Validate() error

	// RenderPipeline returns the GPU pipeline created from this descriptor.
	//
	// Returns:
	//   - *wgpu.RenderPipeline: the pipeline, or nil if it was not registered yet
	RenderPipeline() *wgpu.RenderPipeline

	// SetRenderPipeline sets the GPU pipeline created from this descriptor.
	//
	// Parameters:
	//   - p: the WebGPU render pipeline to set
	SetRenderPipeline(p *wgpu.RenderPipeline)

	// DepthTestEnabled returns whether depth testing is enabled for this pipeline.
	//
	// Returns:
	//   - bool: true if depth testing is enabled, false otherwise
	DepthTestEnabled() bool

	// DepthWriteEnabled returns whether depth writing is enabled for this pipeline.
	//
	// Returns:
	//   - bool: true if depth writing is enabled, false otherwise
	DepthWriteEnabled() bool

	// DepthBias returns the depth bias value configured for this pipeline.
	//
	// Returns:
	//   - int32: the depth bias value for this pipeline
	DepthBias() int32

	// DepthBiasSlopeScale returns the depth bias slope scale configured for this pipeline.
	//
	// Returns:
	//   - float32: the depth bias slope scale for this pipeline
	DepthBiasSlopeScale() float32

	// BlendEnabled returns whether blending is enabled for this pipeline.
	//
	// Returns:
	//   - bool: true if blending is enabled, false otherwise
	BlendEnabled() bool

	// CullMode returns the cull mode configured for this pipeline.
	//
	// Returns:
	//   - wgpu.CullMode: the cull mode for this pipeline
	CullMode() wgpu.CullMode

	// Topology returns the primitive topology configured for this pipeline.
	//
	// Returns:
	//   - wgpu.PrimitiveTopology: the primitive topology for this pipeline
	Topology() wgpu.PrimitiveTopology

	// FrontFace returns the front face winding order configured for this pipeline.
	//
	// Returns:
	//   - wgpu.FrontFace: the front face winding order for this pipeline
	FrontFace() wgpu.FrontFace

	// WriteMask returns the color write mask configured for this pipeline.
	//
	// Returns:
	//   - wgpu.ColorWriteMask: the color write mask for this pipeline
	WriteMask() wgpu.ColorWriteMask

	// BlendState returns the blend state configured for this pipeline.
	//
	// Returns:
	//   - *wgpu.BlendState: the blend state, only applied when blending is enabled
	BlendState() *wgpu.BlendState
}

var _ Descriptor = &descriptor{}

// NewDescriptor pairs a variant with its stage pair and validates the pairing. The default
// render state is a depth-tested triangle list with counter-clockwise front faces and back-face
// culling, writing all colour channels without blending.
//
// Parameters:
//   - v: the shading variant
//   - pair: the stage pair built for v
//   - opts: a variadic list of DescriptorBuilderOption functions to configure the pipeline
//
// Returns:
//   - Descriptor: the validated descriptor
//   - error: a *common.ConfigurationError if the variant is unknown, the pair belongs to another
//     variant, or Validate fails
func NewDescriptor(v variant.Variant, pair *shading.StagePair, opts ...DescriptorBuilderOption) (Descriptor, error) {
	const op = "pipeline.NewDescriptor"
	if !v.Valid() {
		return nil, common.NewConfigurationError(op, "unknown variant %s", v)
	}
	if pair == nil || pair.Vertex == nil || pair.Fragment == nil {
		return nil, common.NewConfigurationError(op, "%s: incomplete stage pair", v)
	}
	if pair.Variant != v {
		return nil, common.NewConfigurationError(op, "%s descriptor paired with the %s stage pair", v, pair.Variant)
	}

	d := &descriptor{
		key:               v.String(),
		v:                 v,
		pair:              pair,
		depthTestEnabled:  true,
		depthWriteEnabled: true,
		blendEnabled:      false,
		cullMode:          wgpu.CullModeBack,
		topology:          wgpu.PrimitiveTopologyTriangleList,
		frontFace:         wgpu.FrontFaceCCW,
		writeMask:         wgpu.ColorWriteMaskAll,
		blendState: &wgpu.BlendState{
			Color: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorSrcAlpha,
				DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
				Operation: wgpu.BlendOperationAdd,
			},
			Alpha: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorOne,
				DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
				Operation: wgpu.BlendOperationAdd,
			},
		},
	}
	for _, opt := range opts {
		opt(d)
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *descriptor) Key() string {
	return d.key
}

func (d *descriptor) Variant() variant.Variant {
	return d.v
}

func (d *descriptor) StagePair() *shading.StagePair {
	return d.pair
}

func (d *descriptor) Shader(shaderType shader.ShaderType) shader.Shader {
	switch shaderType {
	case shader.ShaderTypeVertex:
		return d.pair.Vertex
	case shader.ShaderTypeFragment:
		return d.pair.Fragment
	default:
		return nil
	}
}

func (d *descriptor) VertexBufferLayouts() []wgpu.VertexBufferLayout {
	return []wgpu.VertexBufferLayout{
		VertexSlot: {
			ArrayStride: d.v.VertexStride(),
			StepMode:    wgpu.VertexStepModeVertex,
			Attributes:  toVertexAttributes(d.v.VertexAttributes()),
		},
		InstanceSlot: {
			ArrayStride: d.v.RecordSize(),
			StepMode:    wgpu.VertexStepModeInstance,
			Attributes:  toVertexAttributes(d.v.InstanceAttributes()),
		},
	}
}

func (d *descriptor) Validate() error {
	var problems []string
	problems = append(problems, d.checkVertexInputs()...)
	problems = append(problems, d.checkSlotStrides()...)
	problems = append(problems, d.checkLinkage()...)
	problems = append(problems, d.checkFragmentOutput()...)
	problems = append(problems, d.checkCameraBinding()...)
	if len(problems) > 0 {
		return common.NewConfigurationError("pipeline.Validate", "%s: %s", d.key, strings.Join(problems, "; "))
	}
	return nil
}

func (d *descriptor) RenderPipeline() *wgpu.RenderPipeline {
	return d.renderPipeline
}

func (d *descriptor) SetRenderPipeline(rp *wgpu.RenderPipeline) {
	d.renderPipeline = rp
}

func (d *descriptor) DepthTestEnabled() bool {
	return d.depthTestEnabled
}

func (d *descriptor) DepthWriteEnabled() bool {
	return d.depthWriteEnabled
}

func (d *descriptor) DepthBias() int32 {
	return d.depthBias
}

func (d *descriptor) DepthBiasSlopeScale() float32 {
	return d.depthBiasSlopeScale
}

func (d *descriptor) BlendEnabled() bool {
	return d.blendEnabled
}

func (d *descriptor) CullMode() wgpu.CullMode {
	return d.cullMode
}

func (d *descriptor) Topology() wgpu.PrimitiveTopology {
	return d.topology
}

func (d *descriptor) FrontFace() wgpu.FrontFace {
	return d.frontFace
}

func (d *descriptor) WriteMask() wgpu.ColorWriteMask {
	return d.writeMask
}

func (d *descriptor) BlendState() *wgpu.BlendState {
	return d.blendState
}

// checkVertexInputs compares the variant's attribute tables with the located inputs of the vertex stage.
func (d *descriptor) checkVertexInputs() []string {
	var problems []string
	want := make(map[int]variant.Attribute)
	for _, a := range d.v.Attributes() {
		want[int(a.Location)] = a
	}

	seen := make(map[int]bool)
	for _, in := range d.pair.Vertex.Inputs() {
		if in.IsBuiltin() {
			continue
		}
		seen[in.Location] = true
		a, ok := want[in.Location]
		if !ok {
			problems = append(problems, fmt.Sprintf("vertex input %q at location %d has no attribute", in.Name, in.Location))
			continue
		}
		if in.Format != a.Format {
			problems = append(problems, fmt.Sprintf("location %d: shader reads %s (%s), attribute %q provides %s", in.Location, in.Type, formatName(in.Format), a.Name, formatName(a.Format)))
		}
	}
	for _, a := range d.v.Attributes() {
		if !seen[int(a.Location)] {
			problems = append(problems, fmt.Sprintf("attribute %q at location %d is not read by the vertex stage", a.Name, a.Location))
		}
	}
	return problems
}

// checkSlotStrides compares the strides of the input structs parsed from the vertex stage with
// the variant's record sizes, which catches a program that includes the wrong record struct.
func (d *descriptor) checkSlotStrides() []string {
	parsed := d.pair.Vertex.VertexLayouts()
	if len(parsed) != 2 {
		return nil
	}
	var problems []string
	for slot, want := range d.VertexBufferLayouts() {
		got := parsed[slot]
		if len(got) == 0 {
			continue
		}
		if got[0].ArrayStride != want.ArrayStride {
			problems = append(problems, fmt.Sprintf("slot %d: shader record is %d bytes, buffer stride is %d", slot, got[0].ArrayStride, want.ArrayStride))
		}
	}
	return problems
}

// checkLinkage verifies the vertex stage writes a clip position and every value the fragment stage reads.
func (d *descriptor) checkLinkage() []string {
	var problems []string
	outs := make(map[int]shader.StageVariable)
	hasPosition := false
	for _, out := range d.pair.Vertex.Outputs() {
		if out.Builtin == "position" {
			hasPosition = true
		}
		if !out.IsBuiltin() {
			outs[out.Location] = out
		}
	}
	if !hasPosition {
		problems = append(problems, "vertex stage does not write @builtin(position)")
	}
	for _, in := range d.pair.Fragment.Inputs() {
		if in.IsBuiltin() {
			continue
		}
		out, ok := outs[in.Location]
		if !ok {
			problems = append(problems, fmt.Sprintf("fragment input %q at location %d is not written by the vertex stage", in.Name, in.Location))
			continue
		}
		if out.Type != in.Type {
			problems = append(problems, fmt.Sprintf("location %d: vertex stage writes %s, fragment stage reads %s", in.Location, out.Type, in.Type))
		}
	}
	return problems
}

// checkFragmentOutput verifies the fragment stage writes a single RGBA value at location 0.
func (d *descriptor) checkFragmentOutput() []string {
	var located []shader.StageVariable
	for _, out := range d.pair.Fragment.Outputs() {
		if !out.IsBuiltin() {
			located = append(located, out)
		}
	}
	if len(located) != 1 || located[0].Location != 0 || located[0].Format != wgpu.VertexFormatFloat32x4 {
		return []string{"fragment stage must write exactly one vec4<f32> at location 0"}
	}
	return nil
}

// checkCameraBinding verifies the camera uniform layout the vertex stage declares.
func (d *descriptor) checkCameraBinding() []string {
	desc := d.pair.Vertex.BindGroupLayoutDescriptor(camera.CameraGroup)
	for _, e := range desc.Entries {
		if e.Binding != camera.CameraBinding {
			continue
		}
		var problems []string
		if e.Buffer.Type != wgpu.BufferBindingTypeUniform {
			problems = append(problems, fmt.Sprintf("group %d binding %d is not a uniform buffer", camera.CameraGroup, camera.CameraBinding))
		}
		if e.Buffer.MinBindingSize != camera.CameraUniformSize {
			problems = append(problems, fmt.Sprintf("camera uniform is %d bytes, want %d", e.Buffer.MinBindingSize, camera.CameraUniformSize))
		}
		for _, decl := range d.pair.Vertex.Declarations() {
			if *decl.Group == camera.CameraGroup && *decl.Binding == camera.CameraBinding && decl.Args[2] != shader.AnnotationArgCamera {
				problems = append(problems, fmt.Sprintf("group %d binding %d declares %s, want %s", camera.CameraGroup, camera.CameraBinding, decl.Args[2], shader.AnnotationArgCamera))
			}
		}
		return problems
	}
	return []string{fmt.Sprintf("camera uniform not declared at group %d binding %d", camera.CameraGroup, camera.CameraBinding)}
}

// toVertexAttributes converts an attribute table into wgpu vertex attributes.
func toVertexAttributes(attrs []variant.Attribute) []wgpu.VertexAttribute {
	out := make([]wgpu.VertexAttribute, len(attrs))
	for i, a := range attrs {
		out[i] = wgpu.VertexAttribute{
			Format:         a.Format,
			Offset:         a.Offset,
			ShaderLocation: a.Location,
		}
	}
	return out
}

// formatName names the vertex formats the attribute tables use.
func formatName(f wgpu.VertexFormat) string {
	switch f {
	case wgpu.VertexFormatFloat32x2:
		return "float32x2"
	case wgpu.VertexFormatFloat32x3:
		return "float32x3"
	case wgpu.VertexFormatFloat32x4:
		return "float32x4"
	case wgpu.VertexFormatUndefined:
		return "no vertex format"
	default:
		return fmt.Sprintf("format(%d)", uint32(f))
	}
}
