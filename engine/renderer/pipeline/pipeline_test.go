package pipeline

import (
	"errors"
	"strings"
	"testing"

	"github.com/Carmen-Shannon/lawny-go/common"
	"github.com/Carmen-Shannon/lawny-go/engine/renderer/shader"
	"github.com/Carmen-Shannon/lawny-go/engine/renderer/shading"
	"github.com/Carmen-Shannon/lawny-go/engine/renderer/variant"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// handFlat is the flat program written without pre-processor annotations so tests can mutate
// any part of its interface.
const handFlat = `struct CameraUniform {
    view_proj: mat4x4<f32>,
};
@group(0) @binding(0) var<uniform> camera: CameraUniform;

struct VertexInput {
    @location(0) position: vec3<f32>,
};

struct InstanceInput {
    @location(1) model_0: vec4<f32>,
    @location(2) model_1: vec4<f32>,
    @location(3) model_2: vec4<f32>,
    @location(4) model_3: vec4<f32>,
};

struct VertexOutput {
    @builtin(position) clip_position: vec4<f32>,
};

@vertex
fn vs_main(vert: VertexInput, inst: InstanceInput) -> VertexOutput {
    let model = mat4x4<f32>(inst.model_0, inst.model_1, inst.model_2, inst.model_3);
    var out: VertexOutput;
    out.clip_position = camera.view_proj * model * vec4<f32>(vert.position, 1.0);
    return out;
}

@fragment
fn fs_main(frag: VertexOutput) -> @location(0) vec4<f32> {
    return vec4<f32>(0.3, 0.2, 0.1, 1.0);
}
`

func mutate(src string, pairs ...string) string {
	return strings.NewReplacer(pairs...).Replace(src)
}

func requireConfigError(t *testing.T, err error, contains ...string) {
	t.Helper()
	var cfgErr *common.ConfigurationError
	require.True(t, errors.As(err, &cfgErr), "got %v", err)
	for _, c := range contains {
		assert.Contains(t, cfgErr.Reason, c)
	}
}

func TestNewDescriptorForEveryVariant(t *testing.T) {
	for _, v := range variant.Variants() {
		t.Run(v.String(), func(t *testing.T) {
			pair, err := shading.NewStagePair(v)
			require.NoError(t, err)

			d, err := NewDescriptor(v, pair)
			require.NoError(t, err)
			assert.Equal(t, v, d.Variant())
			assert.Equal(t, v.String(), d.Key())
			assert.Same(t, pair, d.StagePair())
			assert.Equal(t, pair.Vertex, d.Shader(shader.ShaderTypeVertex))
			assert.Equal(t, pair.Fragment, d.Shader(shader.ShaderTypeFragment))
			assert.Nil(t, d.Shader(shader.ShaderType(9)))
			assert.Nil(t, d.RenderPipeline())

			layouts := d.VertexBufferLayouts()
			require.Len(t, layouts, 2)
			assert.Equal(t, wgpu.VertexStepModeVertex, layouts[VertexSlot].StepMode)
			assert.Equal(t, wgpu.VertexStepModeInstance, layouts[InstanceSlot].StepMode)
			assert.Equal(t, v.VertexStride(), layouts[VertexSlot].ArrayStride)
			assert.Equal(t, v.RecordSize(), layouts[InstanceSlot].ArrayStride)
		})
	}
}

func TestVertexBufferLayoutLocations(t *testing.T) {
	tests := []struct {
		v            variant.Variant
		vertexLocs   []uint32
		instanceLocs []uint32
	}{
		{variant.Flat, []uint32{0}, []uint32{1, 2, 3, 4}},
		{variant.Lit, []uint32{0, 1}, []uint32{2, 3, 4, 5}},
		{variant.LitTinted, []uint32{0, 1}, []uint32{2, 3, 4, 5, 6}},
	}
	for _, tt := range tests {
		t.Run(tt.v.String(), func(t *testing.T) {
			pair, err := shading.NewStagePair(tt.v)
			require.NoError(t, err)
			d, err := NewDescriptor(tt.v, pair)
			require.NoError(t, err)

			layouts := d.VertexBufferLayouts()
			locs := func(attrs []wgpu.VertexAttribute) []uint32 {
				out := make([]uint32, len(attrs))
				for i, a := range attrs {
					out[i] = a.ShaderLocation
				}
				return out
			}
			assert.Equal(t, tt.vertexLocs, locs(layouts[VertexSlot].Attributes))
			assert.Equal(t, tt.instanceLocs, locs(layouts[InstanceSlot].Attributes))

			for i, a := range layouts[InstanceSlot].Attributes[:4] {
				assert.Equal(t, wgpu.VertexFormatFloat32x4, a.Format)
				assert.EqualValues(t, i*variant.RowSize, a.Offset)
			}
			if tt.v.HasColor() {
				c := layouts[InstanceSlot].Attributes[4]
				assert.Equal(t, wgpu.VertexFormatFloat32x3, c.Format)
				assert.EqualValues(t, 64, c.Offset)
			}
		})
	}
}

func TestNewDescriptorRejectsForeignStagePair(t *testing.T) {
	flat, err := shading.NewStagePair(variant.Flat)
	require.NoError(t, err)

	_, err = NewDescriptor(variant.Lit, flat)
	requireConfigError(t, err, "lit descriptor paired with the flat stage pair")

	_, err = NewDescriptor(variant.Flat, nil)
	requireConfigError(t, err, "incomplete stage pair")

	_, err = NewDescriptor(variant.Variant(5), flat)
	requireConfigError(t, err, "unknown variant")
}

func TestValidateDetectsProgramForAnotherVariant(t *testing.T) {
	// A flat-tagged pair running the lit program reads a normal at location 1 where the flat
	// table puts the first model row.
	pair, err := shading.NewStagePairFromSource(variant.Flat, "flat_as_lit", shading.Source(variant.Lit))
	require.NoError(t, err)

	_, err = NewDescriptor(variant.Flat, pair)
	requireConfigError(t, err,
		"location 1: shader reads vec3<f32> (float32x3), attribute \"model_0\" provides float32x4",
		"vertex input \"model_3\" at location 5 has no attribute",
		"slot 0",
	)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		source   string
		contains []string
	}{
		{
			name: "wrong position format",
			source: mutate(handFlat,
				"@location(0) position: vec3<f32>", "@location(0) position: vec4<f32>",
				"vec4<f32>(vert.position, 1.0)", "vert.position",
			),
			contains: []string{"location 0: shader reads vec4<f32> (float32x4), attribute \"position\" provides float32x3"},
		},
		{
			name:   "row at the wrong location",
			source: mutate(handFlat, "@location(4) model_3", "@location(7) model_3"),
			contains: []string{
				"vertex input \"model_3\" at location 7 has no attribute",
				"attribute \"model_3\" at location 4 is not read by the vertex stage",
			},
		},
		{
			name:     "missing row",
			source:   mutate(handFlat, "    @location(4) model_3: vec4<f32>,\n", "", "inst.model_3", "vec4<f32>(0.0, 0.0, 0.0, 1.0)"),
			contains: []string{"attribute \"model_3\" at location 4 is not read", "slot 1"},
		},
		{
			name:     "oversized camera uniform",
			source:   mutate(handFlat, "view_proj: mat4x4<f32>,\n", "view_proj: mat4x4<f32>,\n    extra: vec4<f32>,\n"),
			contains: []string{"camera uniform is 80 bytes, want 64"},
		},
		{
			name:     "camera in another group",
			source:   mutate(handFlat, "@group(0) @binding(0)", "@group(1) @binding(0)"),
			contains: []string{"camera uniform not declared at group 0 binding 0"},
		},
		{
			name:     "camera in storage",
			source:   mutate(handFlat, "var<uniform> camera", "var<storage, read> camera"),
			contains: []string{"group 0 binding 0 is not a uniform buffer"},
		},
		{
			name: "fragment reads an unwritten value",
			source: mutate(handFlat,
				"fn fs_main(frag: VertexOutput)", "fn fs_main(@location(0) n: vec3<f32>)",
				"return vec4<f32>(0.3, 0.2, 0.1, 1.0);", "return vec4<f32>(n, 1.0);",
			),
			contains: []string{"fragment input \"n\" at location 0 is not written by the vertex stage"},
		},
		{
			name: "fragment writes rgb",
			source: mutate(handFlat,
				"-> @location(0) vec4<f32>", "-> @location(0) vec3<f32>",
				"return vec4<f32>(0.3, 0.2, 0.1, 1.0);", "return vec3<f32>(0.3, 0.2, 0.1);",
			),
			contains: []string{"fragment stage must write exactly one vec4<f32> at location 0"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pair, err := shading.NewStagePairFromSource(variant.Flat, "hand", tt.source)
			require.NoError(t, err)

			_, err = NewDescriptor(variant.Flat, pair)
			requireConfigError(t, err, tt.contains...)
		})
	}
}

func TestValidateLinkageTypeMismatch(t *testing.T) {
	src := mutate(shading.Source(variant.Lit),
		"fn fs_main(frag: VertexOutput)", "fn fs_main(@location(0) n: vec4<f32>)",
		"dot(frag.normal, -light_dir)", "dot(n.xyz, -light_dir)",
	)
	pair, err := shading.NewStagePairFromSource(variant.Lit, "lit_linkage", src)
	require.NoError(t, err)

	_, err = NewDescriptor(variant.Lit, pair)
	requireConfigError(t, err, "location 0: vertex stage writes vec3<f32>, fragment stage reads vec4<f32>")
}

func TestValidateHandWrittenFlatProgram(t *testing.T) {
	pair, err := shading.NewStagePairFromSource(variant.Flat, "hand", handFlat)
	require.NoError(t, err)
	d, err := NewDescriptor(variant.Flat, pair)
	require.NoError(t, err)
	assert.NoError(t, d.Validate())
}

func TestDescriptorOptions(t *testing.T) {
	pair, err := shading.NewStagePair(variant.Lit)
	require.NoError(t, err)

	d, err := NewDescriptor(variant.Lit, pair)
	require.NoError(t, err)
	assert.True(t, d.DepthTestEnabled())
	assert.True(t, d.DepthWriteEnabled())
	assert.False(t, d.BlendEnabled())
	assert.Equal(t, wgpu.CullModeBack, d.CullMode())
	assert.Equal(t, wgpu.FrontFaceCCW, d.FrontFace())
	assert.Equal(t, wgpu.PrimitiveTopologyTriangleList, d.Topology())
	assert.Equal(t, wgpu.ColorWriteMaskAll, d.WriteMask())
	require.NotNil(t, d.BlendState())

	blend := &wgpu.BlendState{}
	d, err = NewDescriptor(variant.Lit, pair,
		WithKey("lit_wire"),
		WithDepthTestEnabled(false),
		WithDepthWriteEnabled(false),
		WithDepthBias(2, 1.5),
		WithBlendEnabled(true),
		WithBlendState(blend),
		WithCullMode(wgpu.CullModeNone),
		WithFrontFace(wgpu.FrontFaceCW),
		WithTopology(wgpu.PrimitiveTopologyLineList),
		WithWriteMask(wgpu.ColorWriteMaskRed),
	)
	require.NoError(t, err)
	assert.Equal(t, "lit_wire", d.Key())
	assert.False(t, d.DepthTestEnabled())
	assert.False(t, d.DepthWriteEnabled())
	assert.EqualValues(t, 2, d.DepthBias())
	assert.EqualValues(t, 1.5, d.DepthBiasSlopeScale())
	assert.True(t, d.BlendEnabled())
	assert.Same(t, blend, d.BlendState())
	assert.Equal(t, wgpu.CullModeNone, d.CullMode())
	assert.Equal(t, wgpu.FrontFaceCW, d.FrontFace())
	assert.Equal(t, wgpu.PrimitiveTopologyLineList, d.Topology())
	assert.Equal(t, wgpu.ColorWriteMaskRed, d.WriteMask())

	rp := &wgpu.RenderPipeline{}
	d.SetRenderPipeline(rp)
	assert.Same(t, rp, d.RenderPipeline())
}
