package shader

import (
	"errors"
	"strings"
	"testing"

	"github.com/Carmen-Shannon/lawny-go/common"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const litProgram = `//@lawny:include camera
//@lawny:include lit_vertex
//@lawny:include lit_instance

//@lawny:group 0 0 storage_uniform camera camera

struct VertexOutput {
    @builtin(position) clip_position: vec4<f32>,
    @location(0) normal: vec3<f32>,
};

@vertex
fn vs_main(vert: VertexInput, inst: InstanceInput) -> VertexOutput {
    let model = mat4x4<f32>(inst.model_0, inst.model_1, inst.model_2, inst.model_3);
    var out: VertexOutput;
    out.clip_position = camera.view_proj * model * vec4<f32>(vert.position, 1.0);
    out.normal = vert.normal;
    return out;
}

@fragment
fn fs_main(frag: VertexOutput) -> @location(0) vec4<f32> {
    return vec4<f32>(frag.normal, 1.0);
}
`

func TestParseAnnotation(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    *Annotation
		wantErr string
	}{
		{name: "plain code", line: "let x = 1;"},
		{name: "plain comment", line: "// just a comment"},
		{name: "prefix outside a comment", line: "let s = 1; @lawny:include camera"},
		{
			name: "include",
			line: "  //@lawny:include lit_vertex",
			want: &Annotation{Type: annotationTypeInclude, Args: []AnnotationArg{annotationArgLitVertex}, Line: 3},
		},
		{name: "include unknown", line: "//@lawny:include light", wantErr: "unknown struct type"},
		{name: "include arity", line: "//@lawny:include", wantErr: "exactly one argument"},
		{name: "empty", line: "//@lawny:", wantErr: "empty"},
		{name: "unknown type", line: "//@lawny:provider 0 0 camera", wantErr: "unknown @lawny annotation type"},
		{name: "group arity", line: "//@lawny:group 0 0 storage_uniform camera", wantErr: "exactly five arguments"},
		{name: "group bad number", line: "//@lawny:group x 0 storage_uniform camera camera", wantErr: "invalid group number"},
		{name: "group negative binding", line: "//@lawny:group 0 -1 storage_uniform camera camera", wantErr: "invalid binding number"},
		{name: "group bad space", line: "//@lawny:group 0 0 private camera camera", wantErr: "unknown address space"},
		{name: "group uniform array", line: "//@lawny:group 0 0 storage_uniform cams array<camera>", wantErr: "runtime-sized array"},
		{name: "group unknown array elem", line: "//@lawny:group 0 0 storage_read xs array<light>", wantErr: "unknown array element"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseAnnotation(tt.line, 3)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.Contains(t, err.Error(), "line 3")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseAnnotationGroup(t *testing.T) {
	a, err := parseAnnotation("//@lawny:group 1 2 storage_read cams array<camera>", 7)
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, AnnotationTypeBindingGroup, a.Type)
	assert.Equal(t, 1, *a.Group)
	assert.Equal(t, 2, *a.Binding)
	assert.Equal(t, []AnnotationArg{annotationArgStorageTypeRead, "cams", "array<camera>"}, a.Args)
}

func TestPreProcessorProcess(t *testing.T) {
	pp := NewPreProcessor()
	out, err := pp.Process(litProgram)
	require.NoError(t, err)

	assert.NotContains(t, out, "@lawny:")
	assert.Contains(t, out, "struct CameraUniform")
	assert.Contains(t, out, "@location(1) normal: vec3<f32>")
	assert.Contains(t, out, "@location(5) model_3: vec4<f32>")
	assert.Contains(t, out, "@group(0) @binding(0) var<uniform> camera: CameraUniform;")

	decls := pp.Declarations()
	require.Len(t, decls, 1)
	assert.Equal(t, 0, *decls[0].Group)
	assert.Equal(t, 0, *decls[0].Binding)
	assert.Equal(t, AnnotationArgCamera, decls[0].Args[2])

	// A second run resets the declarations.
	_, err = pp.Process("fn f() {}")
	require.NoError(t, err)
	assert.Empty(t, pp.Declarations())
}

func TestPreProcessorRejects(t *testing.T) {
	tests := []struct {
		name    string
		source  string
		wantErr string
	}{
		{
			name:    "two vertex structs",
			source:  "//@lawny:include vertex\n//@lawny:include lit_vertex\n",
			wantErr: "redeclares VertexInput",
		},
		{
			name:    "duplicate binding",
			source:  "//@lawny:group 0 0 storage_uniform a camera\n//@lawny:group 0 0 storage_uniform b camera\n",
			wantErr: "already declared on line 1",
		},
		{
			name:    "malformed",
			source:  "fn f() {}\n//@lawny:include nothing\n",
			wantErr: "line 2",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPreProcessor().Process(tt.source)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseStageInterface(t *testing.T) {
	src, err := NewPreProcessor().Process(litProgram)
	require.NoError(t, err)

	t.Run("vertex inputs", func(t *testing.T) {
		in := parseStageInputs(src, ShaderTypeVertex)
		require.Len(t, in, 6)
		wantNames := []string{"position", "normal", "model_0", "model_1", "model_2", "model_3"}
		for i, v := range in {
			assert.Equal(t, i, v.Location)
			assert.Equal(t, wantNames[i], v.Name)
			assert.False(t, v.IsBuiltin())
		}
		assert.Equal(t, wgpu.VertexFormatFloat32x3, in[0].Format)
		assert.Equal(t, wgpu.VertexFormatFloat32x3, in[1].Format)
		assert.Equal(t, wgpu.VertexFormatFloat32x4, in[5].Format)
	})

	t.Run("vertex outputs", func(t *testing.T) {
		out := parseStageOutputs(src, ShaderTypeVertex)
		require.Len(t, out, 2)
		assert.Equal(t, "normal", out[0].Name)
		assert.Equal(t, 0, out[0].Location)
		assert.Equal(t, "position", out[1].Builtin)
		assert.Equal(t, -1, out[1].Location)
	})

	t.Run("fragment inputs", func(t *testing.T) {
		in := parseStageInputs(src, ShaderTypeFragment)
		require.Len(t, in, 2)
		assert.Equal(t, "normal", in[0].Name)
		assert.True(t, in[1].IsBuiltin())
	})

	t.Run("fragment outputs", func(t *testing.T) {
		out := parseStageOutputs(src, ShaderTypeFragment)
		require.Len(t, out, 1)
		assert.Equal(t, 0, out[0].Location)
		assert.Equal(t, "vec4<f32>", out[0].Type)
		assert.Equal(t, wgpu.VertexFormatFloat32x4, out[0].Format)
	})
}

func TestParseStageInputsBareParameters(t *testing.T) {
	src := `
@vertex
fn main(@location(3) a: vec2<f32>, @builtin(vertex_index) idx: u32, @location(1) @interpolate(flat, first) b: u32) -> @builtin(position) vec4<f32> {
    return vec4<f32>(a, 0.0, 1.0);
}
`
	in := parseStageInputs(src, ShaderTypeVertex)
	require.Len(t, in, 3)
	assert.Equal(t, "b", in[0].Name)
	assert.Equal(t, 1, in[0].Location)
	assert.Equal(t, wgpu.VertexFormatUint32, in[0].Format)
	assert.Equal(t, "a", in[1].Name)
	assert.Equal(t, "vertex_index", in[2].Builtin)

	out := parseStageOutputs(src, ShaderTypeVertex)
	require.Len(t, out, 1)
	assert.Equal(t, "position", out[0].Builtin)
}

func TestParseVertexLayouts(t *testing.T) {
	src, err := NewPreProcessor().Process(strings.Replace(litProgram, "lit_instance", "tinted_instance", 1))
	require.NoError(t, err)

	layouts := parseVertexLayouts(src)
	require.Len(t, layouts, 2)
	assert.EqualValues(t, 24, layouts[0][0].ArrayStride)
	assert.EqualValues(t, 76, layouts[1][0].ArrayStride)
	attrs := layouts[1][0].Attributes
	require.Len(t, attrs, 5)
	assert.EqualValues(t, 6, attrs[4].ShaderLocation)
	assert.EqualValues(t, 64, attrs[4].Offset)
	assert.Equal(t, wgpu.VertexFormatFloat32x3, attrs[4].Format)
}

func TestParseBindGroupLayouts(t *testing.T) {
	src := `
struct Big { a: vec3<f32>, b: f32, c: array<vec4<f32>, 4>, };
@group(0) @binding(1) var<storage, read> big: Big;
@group(0) @binding(0) var<uniform> vp: mat4x4<f32>;
/* @group(3) @binding(0) var<uniform> gone: f32; */
@group(1) @binding(0) var<storage, read_write> out: array<u32>;
`
	descs, names := parseBindGroupLayouts(src, wgpu.ShaderStageVertex)
	require.Len(t, descs, 2)

	g0 := descs[0].Entries
	require.Len(t, g0, 2)
	assert.EqualValues(t, 0, g0[0].Binding)
	assert.Equal(t, wgpu.BufferBindingTypeUniform, g0[0].Buffer.Type)
	assert.EqualValues(t, 64, g0[0].Buffer.MinBindingSize)
	assert.Equal(t, wgpu.BufferBindingTypeReadOnlyStorage, g0[1].Buffer.Type)
	assert.EqualValues(t, 80, g0[1].Buffer.MinBindingSize)
	assert.Equal(t, wgpu.ShaderStageVertex, g0[1].Visibility)

	g1 := descs[1].Entries
	require.Len(t, g1, 1)
	assert.Equal(t, wgpu.BufferBindingTypeStorage, g1[0].Buffer.Type)
	assert.EqualValues(t, 4, g1[0].Buffer.MinBindingSize)

	assert.Equal(t, "vp", names[0][0])
	assert.Equal(t, "big", names[0][1])
	assert.Equal(t, "out", names[1][0])
}

func TestNewShader(t *testing.T) {
	vs, err := NewShader("lit.vs", ShaderTypeVertex, litProgram)
	require.NoError(t, err)

	assert.Equal(t, "lit.vs", vs.Key())
	assert.Equal(t, "vs_main", vs.EntryPoint())
	assert.Equal(t, ShaderTypeVertex, vs.ShaderType())
	assert.Equal(t, "lit.vs", vs.Module().Label)
	assert.Equal(t, vs.Source(), vs.Module().WGSLDescriptor.Code)
	assert.Len(t, vs.Inputs(), 6)
	assert.Len(t, vs.VertexLayouts(), 2)
	assert.Len(t, vs.VertexLayout(1)[0].Attributes, 4)
	assert.Len(t, vs.Declarations(), 1)
	assert.Equal(t, "camera", vs.BindGroupVarName(0, 0))
	assert.Empty(t, vs.BindGroupVarName(4, 0))
	binding, ok := vs.BindGroupFromVarName(0, "camera")
	assert.True(t, ok)
	assert.Equal(t, 0, binding)
	_, ok = vs.BindGroupFromVarName(0, "missing")
	assert.False(t, ok)
	assert.Equal(t, wgpu.ShaderStageVertex, vs.BindGroupLayoutDescriptor(0).Entries[0].Visibility)

	fs, err := NewShader("lit.fs", ShaderTypeFragment, litProgram, WithValidation(false))
	require.NoError(t, err)
	assert.Equal(t, "fs_main", fs.EntryPoint())
	assert.Empty(t, fs.VertexLayouts())
	assert.Equal(t, wgpu.ShaderStageFragment, fs.BindGroupLayoutDescriptors()[0].Entries[0].Visibility)
}

func TestNewShaderErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
		typ    ShaderType
		opts   []ShaderBuilderOption
	}{
		{name: "empty", source: "", typ: ShaderTypeVertex},
		{name: "bad annotation", source: "//@lawny:include sky\n" + litProgram, typ: ShaderTypeVertex},
		{name: "invalid wgsl", source: "@vertex fn vs_main() -> @builtin(position) vec4<f32> { return 1; ", typ: ShaderTypeVertex},
		{
			name:   "missing entry point",
			source: "fn helper() -> f32 { return 1.0; }",
			typ:    ShaderTypeFragment,
			opts:   []ShaderBuilderOption{WithValidation(false)},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewShader("broken", tt.typ, tt.source, tt.opts...)
			var cfgErr *common.ConfigurationError
			require.True(t, errors.As(err, &cfgErr), "got %v", err)
			assert.Equal(t, "shader.NewShader", cfgErr.Op)
		})
	}
}

func TestShaderTypeString(t *testing.T) {
	assert.Equal(t, "vertex", ShaderTypeVertex.String())
	assert.Equal(t, "fragment", ShaderTypeFragment.String())
	assert.Equal(t, "shader_type(5)", ShaderType(5).String())
}
