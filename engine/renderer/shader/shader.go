package shader

import (
	"fmt"

	"github.com/Carmen-Shannon/lawny-go/common"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gogpu/naga"
)

// ShaderType identifies which pipeline stage a shader entry point runs in.
type ShaderType int

const (
	// ShaderTypeVertex is the vertex shader type, used for vertex processing in render pipelines.
	ShaderTypeVertex ShaderType = iota

	// ShaderTypeFragment is the fragment shader type, used for fragment processing in pair with a vertex shader.
	ShaderTypeFragment
)

func (t ShaderType) String() string {
	switch t {
	case ShaderTypeVertex:
		return "vertex"
	case ShaderTypeFragment:
		return "fragment"
	default:
		return fmt.Sprintf("shader_type(%d)", int(t))
	}
}

// visibility returns the wgpu stage flag for bind group entries declared by this stage.
func (t ShaderType) visibility() wgpu.ShaderStage {
	switch t {
	case ShaderTypeVertex:
		return wgpu.ShaderStageVertex
	case ShaderTypeFragment:
		return wgpu.ShaderStageFragment
	default:
		return wgpu.ShaderStageNone
	}
}

// shader is the implementation of the Shader interface.
// It holds all of the persistent shader data required for pipeline creation and validation.
type shader struct {
	key                        string
	source                     string
	shaderType                 ShaderType
	bindGroupLayoutDescriptors map[int]wgpu.BindGroupLayoutDescriptor
	bindingVarNames            map[int]map[int]string
	vertexLayouts              map[int][]wgpu.VertexBufferLayout
	inputs                     []StageVariable
	outputs                    []StageVariable
	entryPoint                 string
	module                     *wgpu.ShaderModuleDescriptor
	validate                   bool

	pp PreProcessor
}

// Shader defines the interface for a pre-processed and parsed WGSL shader stage. It exposes the
// shader's unique key, source code, entry point, stage inputs and outputs, bind group layout
// descriptors, vertex buffer layouts, and pre-processor declarations needed for pipeline
// creation and validation.
type Shader interface {
	// Key retrieves the unique identifier for this shader, used as the module label.
	//
	// Returns:
	//   - string: the shader's unique key
	Key() string

	// Source retrieves the pre-processed WGSL shader source code.
	//
	// Returns:
	//   - string: the WGSL source code of the shader
	Source() string

	// BindGroupLayoutDescriptor retrieves the bind group layout descriptor for a group index.
	//
	// Parameters:
	//   - group: the bind group index
	//
	// Returns:
	//   - wgpu.BindGroupLayoutDescriptor: the descriptor for the group, or an empty descriptor if not declared
	BindGroupLayoutDescriptor(group int) wgpu.BindGroupLayoutDescriptor

	// BindGroupLayoutDescriptors retrieves all parsed bind group layout descriptors.
	//
	// Returns:
	//   - map[int]wgpu.BindGroupLayoutDescriptor: descriptors keyed by group index
	BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor

	// BindGroupVarName retrieves the variable name for a given group and binding index, if it exists.
	//
	// Parameters:
	//   - group: the bind group index
	//   - binding: the binding index within the group
	//
	// Returns:
	//   - string: the variable name associated with the group and binding, or an empty string if not found
	BindGroupVarName(group, binding int) string

	// BindGroupFromVarName retrieves the binding index for a given group and variable name, if it exists.
	//
	// Parameters:
	//   - group: the bind group index
	//   - varName: the variable name within the group
	//
	// Returns:
	//   - int: the binding index associated with the variable name, or -1 if not found
	//   - bool: true if the variable name was found, false otherwise
	BindGroupFromVarName(group int, varName string) (int, bool)

	// BindGroupVarNames retrieves all variable names for all bind groups.
	//
	// Returns:
	//   - map[int]map[int]string: variable names keyed by group and binding index
	BindGroupVarNames() map[int]map[int]string

	// VertexLayout retrieves the vertex buffer layout parsed for a slot.
	//
	// Parameters:
	//   - key: the slot index, in the order the input structs appear in the source
	//
	// Returns:
	//   - []wgpu.VertexBufferLayout: the layout for the slot, or nil if not set
	VertexLayout(key int) []wgpu.VertexBufferLayout

	// VertexLayouts retrieves all vertex buffer layouts parsed from the source. Only vertex
	// shaders carry layouts.
	//
	// Returns:
	//   - map[int][]wgpu.VertexBufferLayout: layouts keyed by slot index
	VertexLayouts() map[int][]wgpu.VertexBufferLayout

	// Inputs returns the entry point's inputs with struct parameters expanded into their
	// fields, located values sorted by location and built-ins last.
	//
	// Returns:
	//   - []StageVariable: the stage inputs
	Inputs() []StageVariable

	// Outputs returns the entry point's outputs, located values sorted by location and built-ins last.
	//
	// Returns:
	//   - []StageVariable: the stage outputs
	Outputs() []StageVariable

	// EntryPoint returns the entry point name for this shader.
	//
	// Returns:
	//   - string: the entry point name (e.g. "vs_main")
	EntryPoint() string

	// Module returns the wgpu.ShaderModuleDescriptor for this shader.
	//
	// Returns:
	//   - *wgpu.ShaderModuleDescriptor: the shader module descriptor containing the WGSL code and label
	Module() *wgpu.ShaderModuleDescriptor

	// ShaderType returns the stage of the shader.
	//
	// Returns:
	//   - ShaderType: ShaderTypeVertex or ShaderTypeFragment
	ShaderType() ShaderType

	// Declarations returns the @lawny:group annotations parsed from the shader source.
	//
	// Returns:
	//   - []Annotation: the bind group declarations in source order
	Declarations() []Annotation
}

var _ Shader = &shader{}

// NewShader pre-processes and parses WGSL source for one pipeline stage. The program is
// compiled with naga unless validation was disabled, so syntax and type errors surface here
// instead of at GPU module creation.
//
// Parameters:
//   - key: a unique identifier for the shader, used as the module label
//   - shaderType: the stage whose entry point to read
//   - source: the raw WGSL source, possibly containing @lawny: annotations
//   - opts: optional builder options
//
// Returns:
//   - Shader: the parsed shader
//   - error: a *common.ConfigurationError if the source is empty, malformed, rejected by naga,
//     or has no entry point for the stage
func NewShader(key string, shaderType ShaderType, source string, opts ...ShaderBuilderOption) (Shader, error) {
	if source == "" {
		return nil, common.NewConfigurationError("shader.NewShader", "%s: empty source", key)
	}
	s := &shader{
		key:                        key,
		shaderType:                 shaderType,
		bindGroupLayoutDescriptors: make(map[int]wgpu.BindGroupLayoutDescriptor),
		bindingVarNames:            make(map[int]map[int]string),
		vertexLayouts:              make(map[int][]wgpu.VertexBufferLayout),
		validate:                   true,
		pp:                         NewPreProcessor(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.parseSource(source); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *shader) Key() string {
	return s.key
}

func (s *shader) Source() string {
	return s.source
}

func (s *shader) VertexLayout(key int) []wgpu.VertexBufferLayout {
	return s.vertexLayouts[key]
}

func (s *shader) VertexLayouts() map[int][]wgpu.VertexBufferLayout {
	return s.vertexLayouts
}

func (s *shader) Inputs() []StageVariable {
	return s.inputs
}

func (s *shader) Outputs() []StageVariable {
	return s.outputs
}

func (s *shader) EntryPoint() string {
	return s.entryPoint
}

func (s *shader) BindGroupLayoutDescriptor(group int) wgpu.BindGroupLayoutDescriptor {
	return s.bindGroupLayoutDescriptors[group]
}

func (s *shader) BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor {
	return s.bindGroupLayoutDescriptors
}

func (s *shader) BindGroupVarName(group, binding int) string {
	if s.bindingVarNames[group] == nil {
		return ""
	}
	return s.bindingVarNames[group][binding]
}

func (s *shader) BindGroupFromVarName(group int, varName string) (int, bool) {
	if s.bindingVarNames[group] == nil {
		return -1, false
	}
	for binding, name := range s.bindingVarNames[group] {
		if name == varName {
			return binding, true
		}
	}
	return -1, false
}

func (s *shader) BindGroupVarNames() map[int]map[int]string {
	return s.bindingVarNames
}

func (s *shader) Module() *wgpu.ShaderModuleDescriptor {
	return s.module
}

func (s *shader) ShaderType() ShaderType {
	return s.shaderType
}

func (s *shader) Declarations() []Annotation {
	return s.pp.Declarations()
}

// parseSource pre-processes the WGSL source, optionally validates it with naga, builds the
// shader module descriptor, and extracts the entry point, stage interface, vertex layouts
// and bind group layouts.
func (s *shader) parseSource(raw string) error {
	const op = "shader.NewShader"

	var err error
	s.source, err = s.pp.Process(raw)
	if err != nil {
		return common.NewConfigurationError(op, "%s: pre-process: %v", s.key, err)
	}
	if s.validate {
		if _, err := naga.Compile(s.source); err != nil {
			return common.NewConfigurationError(op, "%s: invalid WGSL: %v", s.key, err)
		}
	}

	s.entryPoint = parseEntryPoint(s.source, s.shaderType)
	if s.entryPoint == "" {
		return common.NewConfigurationError(op, "%s: no @%s entry point", s.key, s.shaderType)
	}
	s.module = &wgpu.ShaderModuleDescriptor{
		Label: s.key,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: s.source,
		},
	}
	s.inputs = parseStageInputs(s.source, s.shaderType)
	s.outputs = parseStageOutputs(s.source, s.shaderType)
	if s.shaderType == ShaderTypeVertex {
		s.vertexLayouts = parseVertexLayouts(s.source)
	}
	s.bindGroupLayoutDescriptors, s.bindingVarNames = parseBindGroupLayouts(s.source, s.shaderType.visibility())

	common.Logger().Debug("shader parsed",
		"key", s.key,
		"stage", s.shaderType.String(),
		"entry", s.entryPoint,
		"inputs", len(s.inputs),
		"outputs", len(s.outputs),
	)
	return nil
}
