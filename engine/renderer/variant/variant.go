package variant

import (
	"fmt"
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
)

// Variant selects one of the three shading programs the renderer knows how to drive.
// The set is closed: every table in this package has exactly one entry per Variant.
type Variant int

const (
	// Flat draws every fragment with a constant colour. Vertices carry a position only.
	Flat Variant = iota
	// Lit adds a per-vertex normal and a single fixed directional Lambertian light.
	Lit
	// LitTinted extends Lit with a per-instance RGB colour that replaces the fixed albedo.
	LitTinted
)

const (
	// RowSize is the byte size of one vec4<f32> model matrix row.
	RowSize = 16
	// TransformSize is the byte size of the four model matrix rows.
	TransformSize = 4 * RowSize
	// ColorSize is the byte size of the per-instance vec3<f32> colour.
	ColorSize = 12
	// PositionSize is the byte size of a vec3<f32> vertex position.
	PositionSize = 12
	// NormalSize is the byte size of a vec3<f32> vertex normal.
	NormalSize = 12
)

// Attribute describes a single vertex or instance attribute: the WGSL input it feeds,
// the shader location it binds to, its format and its byte offset inside one vertex or record.
type Attribute struct {
	Name     string
	Location uint32
	Format   wgpu.VertexFormat
	Offset   uint64
}

var variantNames = map[Variant]string{
	Flat:      "flat",
	Lit:       "lit",
	LitTinted: "lit_tinted",
}

// Variants returns every variant in declaration order.
func Variants() []Variant {
	return []Variant{Flat, Lit, LitTinted}
}

// Parse resolves a variant from its name. Matching is case-insensitive and accepts
// "lit-tinted" as well as "lit_tinted".
//
// Parameters:
//   - name: the variant name
//
// Returns:
//   - Variant: the parsed variant
//   - error: error if the name does not name a variant
func Parse(name string) (Variant, error) {
	n := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "-", "_")
	for _, v := range Variants() {
		if variantNames[v] == n {
			return v, nil
		}
	}
	return 0, fmt.Errorf("unknown shading variant %q", name)
}

func (v Variant) String() string {
	if name, ok := variantNames[v]; ok {
		return name
	}
	return fmt.Sprintf("variant(%d)", int(v))
}

// Valid reports whether v is one of Flat, Lit or LitTinted.
func (v Variant) Valid() bool {
	_, ok := variantNames[v]
	return ok
}

// HasNormal reports whether vertices carry a normal for this variant.
func (v Variant) HasNormal() bool {
	return v == Lit || v == LitTinted
}

// HasColor reports whether instance records carry a trailing colour for this variant.
func (v Variant) HasColor() bool {
	return v == LitTinted
}

// VertexStride returns the byte stride of one vertex in the per-vertex buffer.
func (v Variant) VertexStride() uint64 {
	if v.HasNormal() {
		return PositionSize + NormalSize
	}
	return PositionSize
}

// RecordSize returns the byte size of one instance record in the per-instance buffer.
func (v Variant) RecordSize() uint64 {
	if v.HasColor() {
		return TransformSize + ColorSize
	}
	return TransformSize
}

// ColorOffset returns the byte offset of the colour inside an instance record.
// Only meaningful when HasColor reports true.
func (v Variant) ColorOffset() uint64 {
	return TransformSize
}

// VertexAttributes returns the per-vertex attribute table of the variant.
//
// Returns:
//   - []Attribute: position at location 0, plus normal at location 1 for lit variants
func (v Variant) VertexAttributes() []Attribute {
	attrs := []Attribute{
		{Name: "position", Location: 0, Format: wgpu.VertexFormatFloat32x3, Offset: 0},
	}
	if v.HasNormal() {
		attrs = append(attrs, Attribute{Name: "normal", Location: 1, Format: wgpu.VertexFormatFloat32x3, Offset: PositionSize})
	}
	return attrs
}

// InstanceAttributes returns the per-instance attribute table of the variant.
// The four model rows always occupy consecutive locations directly after the vertex attributes.
//
// Returns:
//   - []Attribute: model_0..model_3, plus color for LitTinted
func (v Variant) InstanceAttributes() []Attribute {
	first := uint32(len(v.VertexAttributes()))
	attrs := make([]Attribute, 0, 5)
	for i := uint32(0); i < 4; i++ {
		attrs = append(attrs, Attribute{
			Name:     fmt.Sprintf("model_%d", i),
			Location: first + i,
			Format:   wgpu.VertexFormatFloat32x4,
			Offset:   uint64(i) * RowSize,
		})
	}
	if v.HasColor() {
		attrs = append(attrs, Attribute{Name: "color", Location: first + 4, Format: wgpu.VertexFormatFloat32x3, Offset: v.ColorOffset()})
	}
	return attrs
}

// Attributes returns the vertex attributes followed by the instance attributes.
func (v Variant) Attributes() []Attribute {
	return append(v.VertexAttributes(), v.InstanceAttributes()...)
}
