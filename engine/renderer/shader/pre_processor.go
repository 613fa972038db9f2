// pre_processor.go implements the Lawny WGSL shader pre-processor. It scans shader
// source code for @lawny: annotations, replaces them with generated WGSL declarations
// or injected struct source, and collects a declarations list that the pipeline
// validator uses to check uniform bindings.
//
// The pre-processor maintains two registries:
//   - structRegistry: maps AnnotationArg keys to embedded WGSL struct sources and their
//     resolved type names. Used by @lawny:include (to inject the struct source) and
//     @lawny:group (to resolve the WGSL type name in the generated declaration).
//   - addressSpaceRegistry: maps address space argument keys to WGSL var<> syntax strings.
package shader

import (
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/lawny-go/engine/camera"
	"github.com/Carmen-Shannon/lawny-go/engine/mesh"
	"github.com/Carmen-Shannon/lawny-go/engine/renderer/instance"
)

// registryEntry pairs a WGSL struct source string (embedded from a .wgsl asset file)
// with the resolved WGSL type name used in generated @group/@binding declarations.
type registryEntry struct {
	// Source is the raw WGSL struct definition text injected by @lawny:include.
	Source string

	// Type is the WGSL type name emitted in @lawny:group declarations (e.g. "CameraUniform").
	Type string
}

// preProcessor is the implementation of the PreProcessor interface.
type preProcessor struct {
	// structRegistry maps struct type argument keys to their embedded WGSL source and type name.
	structRegistry map[AnnotationArg]registryEntry

	// addressSpaceRegistry maps address space argument keys to WGSL var<> syntax strings.
	addressSpaceRegistry map[AnnotationArg]string

	// declarations accumulates annotations of type AnnotationTypeBindingGroup during a
	// Process call. Reset at the start of each Process invocation.
	declarations []Annotation
}

// PreProcessor processes raw WGSL shader source code containing @lawny: annotations,
// replacing them with generated declarations or injected struct sources while collecting
// a declarations list for downstream binding validation.
type PreProcessor interface {
	// Process takes raw WGSL shader source code and pre-processes it by replacing
	// @lawny: annotations with their corresponding WGSL output. @lawny:include annotations
	// are replaced with embedded struct source text. @lawny:group annotations are replaced
	// with generated @group/@binding variable declarations.
	//
	// A struct type may be included at most once per source, and two group annotations
	// may not claim the same group and binding.
	//
	// Parameters:
	//   - source: the raw WGSL shader source code containing annotations to be processed
	//
	// Returns:
	//   - string: the processed WGSL shader source code with annotations replaced
	//   - error: an error if any annotation is malformed or references an unknown type
	Process(source string) (string, error)

	// Declarations returns the list of AnnotationTypeBindingGroup annotations collected
	// during the most recent call to Process, in source order.
	// Returns nil if Process has not been called.
	//
	// Returns:
	//   - []Annotation: the declarations collected during the last Process call
	Declarations() []Annotation
}

var _ PreProcessor = &preProcessor{}

// NewPreProcessor creates a new PreProcessor with all registered struct types and
// address space mappings pre-populated.
//
// Returns:
//   - PreProcessor: a ready-to-use pre-processor instance
func NewPreProcessor() PreProcessor {
	return &preProcessor{
		structRegistry: map[AnnotationArg]registryEntry{
			AnnotationArgCamera:         {Source: camera.GPUCameraUniformSource, Type: "CameraUniform"},
			annotationArgVertex:         {Source: mesh.GPUVertexSource, Type: "VertexInput"},
			annotationArgLitVertex:      {Source: mesh.GPULitVertexSource, Type: "VertexInput"},
			annotationArgInstance:       {Source: instance.GPUInstanceSource, Type: "InstanceInput"},
			annotationArgLitInstance:    {Source: instance.GPULitInstanceSource, Type: "InstanceInput"},
			annotationArgTintedInstance: {Source: instance.GPUTintedInstanceSource, Type: "InstanceInput"},
		},
		addressSpaceRegistry: map[AnnotationArg]string{
			annotationArgStorageTypeUniform:   "var<uniform>",
			annotationArgStorageTypeRead:      "var<storage, read>",
			annotationArgStorageTypeReadWrite: "var<storage, read_write>",
		},
	}
}

func (p *preProcessor) Process(source string) (string, error) {
	p.declarations = p.declarations[:0]

	lines := strings.Split(source, "\n")
	out := make([]string, 0, len(lines))
	included := make(map[string]AnnotationArg)
	bound := make(map[[2]int]int)

	for i, line := range lines {
		a, err := parseAnnotation(line, i+1)
		if err != nil {
			return "", err
		}
		if a == nil {
			out = append(out, line)
			continue
		}

		switch a.Type {
		case annotationTypeInclude:
			entry, ok := p.structRegistry[a.Args[0]]
			if !ok {
				return "", fmt.Errorf("line %d: unknown @lawny:include argument %q", i+1, a.Args[0])
			}
			// Several registered structs share a WGSL type name, so a second include
			// of the same name would redeclare it.
			if prev, dup := included[entry.Type]; dup {
				return "", fmt.Errorf("line %d: @lawny:include %q redeclares %s already included by %q", i+1, a.Args[0], entry.Type, prev)
			}
			included[entry.Type] = a.Args[0]

			out = append(out, strings.TrimRight(entry.Source, "\n"))
		case AnnotationTypeBindingGroup:
			key := [2]int{*a.Group, *a.Binding}
			if prevLine, dup := bound[key]; dup {
				return "", fmt.Errorf("line %d: group %d binding %d already declared on line %d", i+1, *a.Group, *a.Binding, prevLine)
			}
			bound[key] = i + 1

			addrSpace := p.addressSpaceRegistry[a.Args[0]]
			varName := string(a.Args[1])
			var wgslType string
			if inner, ok := strings.CutPrefix(string(a.Args[2]), "array<"); ok {
				inner = strings.TrimSuffix(inner, ">")
				entry := p.structRegistry[AnnotationArg(inner)]
				wgslType = fmt.Sprintf("array<%s>", entry.Type)
			} else {
				entry := p.structRegistry[a.Args[2]]
				wgslType = entry.Type
			}

			out = append(out, fmt.Sprintf("@group(%d) @binding(%d) %s %s: %s;", *a.Group, *a.Binding, addrSpace, varName, wgslType))
			p.declarations = append(p.declarations, *a)
		default:
			return "", fmt.Errorf("line %d: unknown annotation type %q", i+1, a.Type)
		}
	}
	return strings.Join(out, "\n"), nil
}

func (p *preProcessor) Declarations() []Annotation {
	return p.declarations
}
