package shader

import "github.com/cogentcore/webgpu/wgpu"

// StageVariable is one input or output of a shader entry point, either a bare parameter
// or a field of a struct parameter or return type.
type StageVariable struct {
	// Name is the parameter or field name. Empty for a bare return value.
	Name string

	// Location is the @location index, or -1 for built-in values.
	Location int

	// Builtin is the @builtin name (e.g. "position"), empty for located values.
	Builtin string

	// Type is the WGSL type as written (e.g. "vec3<f32>").
	Type string

	// Format is the vertex format matching Type, or wgpu.VertexFormatUndefined when the
	// type cannot be fed from a vertex buffer.
	Format wgpu.VertexFormat
}

// IsBuiltin reports whether the variable is a @builtin value rather than a located one.
func (v StageVariable) IsBuiltin() bool {
	return v.Builtin != ""
}

// vertexFormatInfo holds the wgpu vertex format and its byte size for offset calculation
type vertexFormatInfo struct {
	format wgpu.VertexFormat
	size   uint64
}

// wgslTypeLayout holds the byte size and alignment for a WGSL type per the WGSL specification.
// Used to compute MinBindingSize for buffer bindings.
type wgslTypeLayout struct {
	size  uint64
	align uint64
}

// parsedField represents a single field extracted from a WGSL struct during parsing
type parsedField struct {
	name      string
	typeName  string
	location  int
	isBuiltin bool
	builtin   string
}

// parsedStruct represents a WGSL struct block extracted during parsing
type parsedStruct struct {
	name   string
	fields []parsedField
}

// entrySignature is the parameter list and return type of one entry point function.
type entrySignature struct {
	name    string
	params  []parsedField
	returns string
}
