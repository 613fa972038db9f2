package shader

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
)

// wgslVertexFormatMap maps WGSL type names to their corresponding wgpu vertex format and byte size
var wgslVertexFormatMap = map[string]vertexFormatInfo{
	"f32":       {wgpu.VertexFormatFloat32, 4},
	"vec2f":     {wgpu.VertexFormatFloat32x2, 8},
	"vec2<f32>": {wgpu.VertexFormatFloat32x2, 8},
	"vec3f":     {wgpu.VertexFormatFloat32x3, 12},
	"vec3<f32>": {wgpu.VertexFormatFloat32x3, 12},
	"vec4f":     {wgpu.VertexFormatFloat32x4, 16},
	"vec4<f32>": {wgpu.VertexFormatFloat32x4, 16},
	"i32":       {wgpu.VertexFormatSint32, 4},
	"vec2i":     {wgpu.VertexFormatSint32x2, 8},
	"vec2<i32>": {wgpu.VertexFormatSint32x2, 8},
	"vec3i":     {wgpu.VertexFormatSint32x3, 12},
	"vec3<i32>": {wgpu.VertexFormatSint32x3, 12},
	"vec4i":     {wgpu.VertexFormatSint32x4, 16},
	"vec4<i32>": {wgpu.VertexFormatSint32x4, 16},
	"u32":       {wgpu.VertexFormatUint32, 4},
	"vec2u":     {wgpu.VertexFormatUint32x2, 8},
	"vec2<u32>": {wgpu.VertexFormatUint32x2, 8},
	"vec3u":     {wgpu.VertexFormatUint32x3, 12},
	"vec3<u32>": {wgpu.VertexFormatUint32x3, 12},
	"vec4u":     {wgpu.VertexFormatUint32x4, 16},
	"vec4<u32>": {wgpu.VertexFormatUint32x4, 16},
	"vec2<f16>": {wgpu.VertexFormatFloat16x2, 4},
	"vec2h":     {wgpu.VertexFormatFloat16x2, 4},
	"vec4<f16>": {wgpu.VertexFormatFloat16x4, 8},
	"vec4h":     {wgpu.VertexFormatFloat16x4, 8},
}

var (
	// structBlockRegex matches struct declarations and captures the name and body
	structBlockRegex = regexp.MustCompile(`struct\s+(\w+)\s*\{([^}]*)\}`)

	// locationRegex matches @location(N) attributes
	locationRegex = regexp.MustCompile(`@location\(\s*(\d+)\s*\)`)

	// builtinRegex matches @builtin(...) attributes and captures the builtin name
	builtinRegex = regexp.MustCompile(`@builtin\(\s*(\w+)\s*\)`)

	// attributeRegex matches any single attribute with optional arguments
	attributeRegex = regexp.MustCompile(`@\w+(?:\([^)]*\))?`)

	// fieldRegex matches a struct field line: optional attributes, name, colon, type.
	// The type capture (.+) is greedy to handle parameterized types like array<T, N>.
	fieldRegex = regexp.MustCompile(`(?:(?:@\w+\([^)]*\)\s*)*)*\s*(\w+)\s*:\s*(.+)`)

	// vertexEntryRegex matches @vertex functions and captures the entry point name
	vertexEntryRegex = regexp.MustCompile(`(?s)@vertex\b.*?\bfn\s+(\w+)`)

	// fragmentEntryRegex matches @fragment functions and captures the entry point name
	fragmentEntryRegex = regexp.MustCompile(`(?s)@fragment\b.*?\bfn\s+(\w+)`)

	// bindGroupDeclRegex captures group, binding, optional address space, variable name, and type
	// from declarations like: @group(0) @binding(0) var<uniform> camera: CameraUniform;
	bindGroupDeclRegex = regexp.MustCompile(`@group\((\d+)\)\s*@binding\((\d+)\)\s*var(?:<([^>]*)>)?\s+(\w+)\s*:\s*([^;]+?)\s*;`)
)

// parseVertexLayouts extracts vertex buffer layouts from WGSL source code.
// It finds all structs that are pure vertex inputs (have @location attributes but no @builtin fields)
// and converts them into wgpu.VertexBufferLayout entries in source order. Structs containing
// unrecognized WGSL types are skipped.
//
// Parameters:
//   - source: the raw WGSL source code string
//
// Returns:
//   - map[int][]wgpu.VertexBufferLayout: vertex layouts keyed by sequential index
func parseVertexLayouts(source string) map[int][]wgpu.VertexBufferLayout {
	result := make(map[int][]wgpu.VertexBufferLayout)
	cleaned := stripComments(source)
	structs := parseStructBlocks(cleaned)

	layoutIndex := 0
	for _, ps := range structs {
		if !isVertexInputStruct(ps) {
			continue
		}
		layout, ok := buildVertexBufferLayout(ps)
		if !ok {
			continue
		}
		result[layoutIndex] = []wgpu.VertexBufferLayout{layout}
		layoutIndex++
	}

	return result
}

// parseBindGroupLayouts extracts all @group(N) @binding(M) resource declarations from WGSL
// source and returns them as wgpu.BindGroupLayoutDescriptor values grouped by group index.
// Each descriptor's entries are sorted by binding index. The provided visibility flag is
// applied to all entries, corresponding to the shader stage that declared them.
//
// Parameters:
//   - source: the raw WGSL source code string
//   - visibility: the shader stage visibility flag to set on each entry
//
// Returns:
//   - map[int]wgpu.BindGroupLayoutDescriptor: layout descriptors keyed by group index
//   - map[int]map[int]string: variable names keyed by group and binding index for resource tracking
func parseBindGroupLayouts(source string, visibility wgpu.ShaderStage) (map[int]wgpu.BindGroupLayoutDescriptor, map[int]map[int]string) {
	groups := make(map[int][]wgpu.BindGroupLayoutEntry)
	varNames := make(map[int]map[int]string)
	cleaned := stripComments(source)

	// Struct sizes give MinBindingSize on buffer entries.
	structs := parseStructBlocks(cleaned)
	structSizes := computeStructSizes(structs)

	matches := bindGroupDeclRegex.FindAllStringSubmatch(cleaned, -1)
	for _, match := range matches {
		group, _ := strconv.Atoi(match[1])
		binding, _ := strconv.Atoi(match[2])
		addressSpace := strings.TrimSpace(match[3])
		varName := strings.TrimSpace(match[4])
		typeName := strings.TrimSpace(match[5])

		entry := classifyResource(uint32(binding), visibility, addressSpace)

		if entry.Buffer.Type != wgpu.BufferBindingTypeUndefined {
			if layout, ok := resolveTypeLayout(typeName, structSizes); ok && layout.size > 0 {
				entry.Buffer.MinBindingSize = layout.size
			}
		}

		groups[group] = append(groups[group], entry)

		if varNames[group] == nil {
			varNames[group] = make(map[int]string)
		}
		varNames[group][binding] = varName
	}

	result := make(map[int]wgpu.BindGroupLayoutDescriptor, len(groups))
	for g, entries := range groups {
		sort.Slice(entries, func(i, j int) bool {
			return entries[i].Binding < entries[j].Binding
		})
		result[g] = wgpu.BindGroupLayoutDescriptor{
			Entries: entries,
		}
	}

	return result, varNames
}

// entryRegex returns the entry point regex for a shader type, or nil for unknown types.
func entryRegex(shaderType ShaderType) *regexp.Regexp {
	switch shaderType {
	case ShaderTypeVertex:
		return vertexEntryRegex
	case ShaderTypeFragment:
		return fragmentEntryRegex
	default:
		return nil
	}
}

// parseEntryPoint extracts the entry point function name for the given shader type
// from WGSL source. Returns an empty string if no matching entry point annotation is found.
//
// Parameters:
//   - source: the raw WGSL source code string
//   - shaderType: the shader type to search for (ShaderTypeVertex or ShaderTypeFragment)
//
// Returns:
//   - string: the entry point function name, or empty string if not found
func parseEntryPoint(source string, shaderType ShaderType) string {
	re := entryRegex(shaderType)
	if re == nil {
		return ""
	}
	if match := re.FindStringSubmatch(stripComments(source)); match != nil {
		return match[1]
	}
	return ""
}

// parseEntrySignature extracts the parameters and return type of the entry point for the
// given shader type. The parameter list is matched by parenthesis depth so attributes with
// arguments inside it are handled.
//
// Parameters:
//   - source: the raw WGSL source code string
//   - shaderType: the shader type whose entry point to read
//
// Returns:
//   - entrySignature: the parsed signature
//   - bool: false if no entry point was found or its parameter list is unterminated
func parseEntrySignature(source string, shaderType ShaderType) (entrySignature, bool) {
	re := entryRegex(shaderType)
	if re == nil {
		return entrySignature{}, false
	}
	cleaned := stripComments(source)
	loc := re.FindStringSubmatchIndex(cleaned)
	if loc == nil {
		return entrySignature{}, false
	}
	sig := entrySignature{name: cleaned[loc[2]:loc[3]]}

	rest := cleaned[loc[1]:]
	open := strings.IndexByte(rest, '(')
	if open < 0 {
		return entrySignature{}, false
	}
	depth := 0
	closeIdx := -1
	for i := open; i < len(rest); i++ {
		switch rest[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				closeIdx = i
			}
		}
		if closeIdx >= 0 {
			break
		}
	}
	if closeIdx < 0 {
		return entrySignature{}, false
	}

	sig.params = parseStructFields(rest[open+1 : closeIdx])

	tail := rest[closeIdx+1:]
	if body := strings.IndexByte(tail, '{'); body >= 0 {
		tail = tail[:body]
	}
	if ret, ok := strings.CutPrefix(strings.TrimSpace(tail), "->"); ok {
		sig.returns = strings.TrimSpace(ret)
	}
	return sig, true
}

// parseStageInputs resolves the located and built-in inputs of an entry point. Struct
// parameters are expanded into their fields.
//
// Parameters:
//   - source: the raw WGSL source code string
//   - shaderType: the shader type whose entry point to read
//
// Returns:
//   - []StageVariable: the inputs sorted by location, built-ins last
func parseStageInputs(source string, shaderType ShaderType) []StageVariable {
	sig, ok := parseEntrySignature(source, shaderType)
	if !ok {
		return nil
	}
	structs := structsByName(parseStructBlocks(stripComments(source)))

	var vars []StageVariable
	for _, p := range sig.params {
		if p.location >= 0 || p.isBuiltin {
			vars = append(vars, stageVariableFromField(p))
			continue
		}
		if ps, ok := structs[p.typeName]; ok {
			for _, f := range ps.fields {
				vars = append(vars, stageVariableFromField(f))
			}
		}
	}
	sortStageVariables(vars)
	return vars
}

// parseStageOutputs resolves the located and built-in outputs of an entry point from its
// return type, which is either an attributed bare type or a struct.
//
// Parameters:
//   - source: the raw WGSL source code string
//   - shaderType: the shader type whose entry point to read
//
// Returns:
//   - []StageVariable: the outputs sorted by location, built-ins last
func parseStageOutputs(source string, shaderType ShaderType) []StageVariable {
	sig, ok := parseEntrySignature(source, shaderType)
	if !ok || sig.returns == "" {
		return nil
	}

	ret := parsedField{location: -1}
	if m := locationRegex.FindStringSubmatch(sig.returns); m != nil {
		ret.location, _ = strconv.Atoi(m[1])
	}
	if m := builtinRegex.FindStringSubmatch(sig.returns); m != nil {
		ret.isBuiltin = true
		ret.builtin = m[1]
	}
	ret.typeName = strings.TrimSpace(attributeRegex.ReplaceAllString(sig.returns, ""))

	if ret.location >= 0 || ret.isBuiltin {
		return []StageVariable{stageVariableFromField(ret)}
	}

	structs := structsByName(parseStructBlocks(stripComments(source)))
	ps, ok := structs[ret.typeName]
	if !ok {
		return nil
	}
	vars := make([]StageVariable, 0, len(ps.fields))
	for _, f := range ps.fields {
		vars = append(vars, stageVariableFromField(f))
	}
	sortStageVariables(vars)
	return vars
}

// stageVariableFromField converts a parsed field into a StageVariable, resolving its vertex format.
func stageVariableFromField(f parsedField) StageVariable {
	v := StageVariable{
		Name:     f.name,
		Location: f.location,
		Builtin:  f.builtin,
		Type:     f.typeName,
		Format:   wgpu.VertexFormatUndefined,
	}
	if f.isBuiltin {
		v.Location = -1
	}
	if info, ok := wgslVertexFormatMap[f.typeName]; ok {
		v.Format = info.format
	}
	return v
}

// sortStageVariables orders located variables by location and moves built-ins to the end.
func sortStageVariables(vars []StageVariable) {
	sort.SliceStable(vars, func(i, j int) bool {
		bi, bj := vars[i].IsBuiltin(), vars[j].IsBuiltin()
		if bi != bj {
			return bj
		}
		return vars[i].Location < vars[j].Location
	})
}

// structsByName indexes parsed structs by their WGSL name.
func structsByName(structs []parsedStruct) map[string]parsedStruct {
	out := make(map[string]parsedStruct, len(structs))
	for _, ps := range structs {
		out[ps.name] = ps
	}
	return out
}

// parseStructBlocks finds all struct { ... } blocks in the cleaned WGSL source
// and parses their fields including @location and @builtin attributes
//
// Parameters:
//   - source: WGSL source with comments already stripped
//
// Returns:
//   - []parsedStruct: all struct blocks found in the source
func parseStructBlocks(source string) []parsedStruct {
	matches := structBlockRegex.FindAllStringSubmatch(source, -1)
	structs := make([]parsedStruct, 0, len(matches))

	for _, match := range matches {
		structs = append(structs, parsedStruct{
			name:   match[1],
			fields: parseStructFields(match[2]),
		})
	}

	return structs
}

// parseStructFields parses the body of a struct block (or a function parameter list) into
// individual fields, extracting @location and @builtin attributes along with the field name and type
//
// Parameters:
//   - body: the content between { and } of a struct declaration
//
// Returns:
//   - []parsedField: all fields found in the struct body
func parseStructFields(body string) []parsedField {
	lines := splitAtTopLevelCommas(body)
	fields := make([]parsedField, 0, len(lines))

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		field := parsedField{location: -1}

		if m := builtinRegex.FindStringSubmatch(line); m != nil {
			field.isBuiltin = true
			field.builtin = m[1]
		}

		if locMatch := locationRegex.FindStringSubmatch(line); locMatch != nil {
			if loc, err := strconv.Atoi(locMatch[1]); err == nil {
				field.location = loc
			}
		}

		fm := fieldRegex.FindStringSubmatch(attributeRegex.ReplaceAllString(line, ""))
		if fm == nil {
			continue
		}
		field.name = fm[1]
		field.typeName = strings.TrimSpace(fm[2])

		fields = append(fields, field)
	}

	return fields
}
