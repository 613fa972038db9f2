// annotations.go defines the annotation types, argument constants, and parser for the
// Lawny WGSL shader pre-processor. Annotations are single-line WGSL comments prefixed
// with @lawny: that inject the shared camera, vertex and instance structs into a shading
// program and declare its uniform bindings. The parsed results are stored as Annotation
// values and consumed by the PreProcessor and the pipeline validator.
package shader

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// annotationPrefix is the marker that identifies a Lawny annotation within a WGSL comment line.
// Every annotation must appear on a line beginning with "//" followed by this prefix.
const annotationPrefix = "@lawny:"

// AnnotationType identifies the kind of annotation parsed from a WGSL comment line.
type AnnotationType string

const (
	// annotationTypeInclude injects the WGSL source of a registered struct definition
	// into the shader at the annotation site. The struct source is embedded from the
	// corresponding Go GPU type's .wgsl asset file. This annotation does not produce
	// a declaration and is consumed entirely during pre-processing.
	//
	// Syntax: //@lawny:include <struct_type>
	//
	// Example: //@lawny:include lit_vertex
	annotationTypeInclude AnnotationType = "include"

	// AnnotationTypeBindingGroup generates a WGSL @group/@binding variable declaration
	// and appends an Annotation to the PreProcessor's declarations list. The declaration
	// carries the group index, binding index, and the resolved struct type so the
	// pipeline validator can check the binding without parsing the generated line.
	//
	// Syntax: //@lawny:group <group> <binding> <address_space> <var_name> <type>
	//
	// Example: //@lawny:group 0 0 storage_uniform camera camera
	AnnotationTypeBindingGroup AnnotationType = "group"
)

// AnnotationArg is a single argument token of an annotation: a struct type, an address
// space or a variable name.
type AnnotationArg string

// Annotation is one parsed @lawny: line.
type Annotation struct {
	// Type is the annotation kind.
	Type AnnotationType

	// Args holds the annotation arguments in source order, excluding group and binding numbers.
	// For AnnotationTypeBindingGroup this is [address space, variable name, struct type].
	Args []AnnotationArg

	// Line is the 1-based source line the annotation was found on.
	Line int

	// Group is the bind group index, set only for AnnotationTypeBindingGroup.
	Group *int

	// Binding is the binding index, set only for AnnotationTypeBindingGroup.
	Binding *int
}

// ── Struct type arguments ──────────────────────────────────────────────────────
// These identify registered WGSL structs whose source lives next to the Go type
// that mirrors it. They are accepted by @lawny:include and as the type of @lawny:group.

const (
	// AnnotationArgCamera identifies the CameraUniform struct.
	// Source: engine/camera/assets/camera_uniform.wgsl
	AnnotationArgCamera AnnotationArg = "camera"

	// annotationArgVertex identifies the position-only VertexInput struct of the flat program.
	// Source: engine/mesh/assets/vertex.wgsl
	annotationArgVertex AnnotationArg = "vertex"

	// annotationArgLitVertex identifies the position and normal VertexInput struct of the lit programs.
	// Source: engine/mesh/assets/lit_vertex.wgsl
	annotationArgLitVertex AnnotationArg = "lit_vertex"

	// annotationArgInstance identifies the InstanceInput struct of the flat program (rows at locations 1-4).
	// Source: engine/renderer/instance/assets/instance.wgsl
	annotationArgInstance AnnotationArg = "instance"

	// annotationArgLitInstance identifies the InstanceInput struct of the lit program (rows at locations 2-5).
	// Source: engine/renderer/instance/assets/lit_instance.wgsl
	annotationArgLitInstance AnnotationArg = "lit_instance"

	// annotationArgTintedInstance identifies the InstanceInput struct of the tinted program
	// (rows at locations 2-5, colour at 6).
	// Source: engine/renderer/instance/assets/tinted_instance.wgsl
	annotationArgTintedInstance AnnotationArg = "tinted_instance"
)

// ── Address space arguments ────────────────────────────────────────────────────
// These specify the WGSL variable address space in @lawny:group annotations.

const (
	// annotationArgStorageTypeUniform maps to var<uniform> in WGSL.
	annotationArgStorageTypeUniform AnnotationArg = "storage_uniform"

	// annotationArgStorageTypeRead maps to var<storage, read> in WGSL.
	annotationArgStorageTypeRead AnnotationArg = "storage_read"

	// annotationArgStorageTypeReadWrite maps to var<storage, read_write> in WGSL.
	annotationArgStorageTypeReadWrite AnnotationArg = "storage_read_write"
)

// validStructTypes lists all AnnotationArg values that are accepted as struct type
// arguments in @lawny:include and @lawny:group annotations. Each entry must have a
// corresponding registryEntry in the PreProcessor's structRegistry.
var validStructTypes = []AnnotationArg{
	AnnotationArgCamera,
	annotationArgVertex,
	annotationArgLitVertex,
	annotationArgInstance,
	annotationArgLitInstance,
	annotationArgTintedInstance,
}

// validAddressSpaces lists all AnnotationArg values that are accepted as address
// space arguments in @lawny:group annotations.
var validAddressSpaces = []AnnotationArg{
	annotationArgStorageTypeUniform,
	annotationArgStorageTypeRead,
	annotationArgStorageTypeReadWrite,
}

// parseAnnotation attempts to parse a single line of WGSL source as a @lawny: annotation.
// Returns nil with no error for lines that do not contain the annotation prefix. Returns
// a populated Annotation for valid annotations, or an error describing the problem for
// malformed annotations with correct prefix but invalid syntax or unknown arguments.
//
// Parameters:
//   - line: the raw WGSL source line to parse
//   - lineNum: the 1-based line number for error reporting
//
// Returns:
//   - *Annotation: the parsed annotation, or nil if the line is not an annotation
//   - error: a descriptive error if the annotation is malformed
func parseAnnotation(line string, lineNum int) (*Annotation, error) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "//") {
		return nil, nil
	}
	_, after, ok := strings.Cut(trimmed, annotationPrefix)
	if !ok {
		return nil, nil
	}

	args := strings.Fields(after)
	if len(args) == 0 {
		return nil, fmt.Errorf("line %d: empty @lawny annotation", lineNum)
	}

	switch args[0] {
	case string(annotationTypeInclude):
		if len(args) != 2 {
			return nil, fmt.Errorf("line %d: @lawny include annotation requires exactly one argument", lineNum)
		}
		if !slices.Contains(validStructTypes, AnnotationArg(args[1])) {
			return nil, fmt.Errorf("line %d: unknown struct type %q in @lawny include annotation", lineNum, args[1])
		}
		return &Annotation{
			Type: annotationTypeInclude,
			Args: []AnnotationArg{AnnotationArg(args[1])},
			Line: lineNum,
		}, nil
	case string(AnnotationTypeBindingGroup):
		if len(args) != 6 {
			return nil, fmt.Errorf("line %d: @lawny group annotation requires exactly five arguments (group, binding, address space, variable name, struct type)", lineNum)
		}
		groupInt, err := strconv.Atoi(args[1])
		if err != nil || groupInt < 0 {
			return nil, fmt.Errorf("line %d: invalid group number %q in @lawny group annotation", lineNum, args[1])
		}
		bindingInt, err := strconv.Atoi(args[2])
		if err != nil || bindingInt < 0 {
			return nil, fmt.Errorf("line %d: invalid binding number %q in @lawny group annotation", lineNum, args[2])
		}
		if !slices.Contains(validAddressSpaces, AnnotationArg(args[3])) {
			return nil, fmt.Errorf("line %d: unknown address space %q in @lawny group annotation", lineNum, args[3])
		}
		typeArg := args[5]
		if inner, ok := strings.CutPrefix(typeArg, "array<"); ok {
			inner = strings.TrimSuffix(inner, ">")
			if AnnotationArg(args[3]) == annotationArgStorageTypeUniform {
				return nil, fmt.Errorf("line %d: runtime-sized array %q cannot live in the uniform address space", lineNum, typeArg)
			}
			if !slices.Contains(validStructTypes, AnnotationArg(inner)) {
				return nil, fmt.Errorf("line %d: unknown array element type %q in @lawny group annotation", lineNum, inner)
			}
		} else if !slices.Contains(validStructTypes, AnnotationArg(typeArg)) {
			return nil, fmt.Errorf("line %d: unknown struct type %q in @lawny group annotation", lineNum, typeArg)
		}
		return &Annotation{
			Type:    AnnotationTypeBindingGroup,
			Args:    []AnnotationArg{AnnotationArg(args[3]), AnnotationArg(args[4]), AnnotationArg(args[5])},
			Line:    lineNum,
			Group:   &groupInt,
			Binding: &bindingInt,
		}, nil
	default:
		return nil, fmt.Errorf("line %d: unknown @lawny annotation type %q", lineNum, args[0])
	}
}
