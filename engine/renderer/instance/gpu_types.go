package instance

import (
	_ "embed"
	"encoding/binary"
	"math"
	"unsafe"
)

// GPUInstanceSource is the WGSL InstanceInput struct of the flat pipeline, whose rows follow
// the single position attribute (locations 1..4).
//
//go:embed assets/instance.wgsl
var GPUInstanceSource string

// GPULitInstanceSource is the WGSL InstanceInput struct of the lit pipeline, whose rows follow
// the position and normal attributes (locations 2..5).
//
//go:embed assets/lit_instance.wgsl
var GPULitInstanceSource string

// GPUTintedInstanceSource is the WGSL InstanceInput struct of the tinted pipeline: the lit rows
// plus a colour at location 6.
//
//go:embed assets/tinted_instance.wgsl
var GPUTintedInstanceSource string

// GPUInstance is the per-instance record of the flat and lit pipelines.
// Matches GPUInstanceSource and GPULitInstanceSource exactly.
// Size: 64 bytes.
type GPUInstance struct {
	Model [16]float32 // offset 0: model matrix, column-major; 16-byte block i is row model_i
}

// Size returns the size of the GPUInstance struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (64)
func (g *GPUInstance) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUInstance struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: the serialized byte buffer
func (g *GPUInstance) Marshal() []byte {
	buf := make([]byte, g.Size())
	g.marshalTo(buf)
	return buf
}

func (g *GPUInstance) marshalTo(buf []byte) {
	for i := range 16 {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(g.Model[i]))
	}
}

// GPUTintedInstance is the per-instance record of the tinted pipeline.
// Matches GPUTintedInstanceSource exactly.
// Size: 76 bytes.
type GPUTintedInstance struct {
	Model [16]float32 // offset  0: model matrix, column-major; 16-byte block i is row model_i
	Color [3]float32  // offset 64: linear RGB tint
}

// Size returns the size of the GPUTintedInstance struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (76)
func (g *GPUTintedInstance) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUTintedInstance struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: the serialized byte buffer
func (g *GPUTintedInstance) Marshal() []byte {
	buf := make([]byte, g.Size())
	g.marshalTo(buf)
	return buf
}

func (g *GPUTintedInstance) marshalTo(buf []byte) {
	for i := range 16 {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(g.Model[i]))
	}
	for i := range 3 {
		binary.LittleEndian.PutUint32(buf[64+i*4:], math.Float32bits(g.Color[i]))
	}
}

// RowsFromModel splits a column-major model matrix into the four vec4 rows stored per instance.
// Row i is the i-th 16-byte block of the matrix, which is the i-th argument of the WGSL
// mat4x4<f32>(model_0, model_1, model_2, model_3) constructor.
//
// Parameters:
//   - m: the column-major model matrix
//
// Returns:
//   - [4][4]float32: the rows in upload order
func RowsFromModel(m [16]float32) [4][4]float32 {
	var rows [4][4]float32
	for i := range 4 {
		copy(rows[i][:], m[i*4:i*4+4])
	}
	return rows
}

// ModelFromRows reassembles a column-major model matrix from its four rows in order 0..3.
// It is the exact inverse of RowsFromModel.
//
// Parameters:
//   - rows: the four rows
//
// Returns:
//   - [16]float32: the column-major model matrix
func ModelFromRows(rows [4][4]float32) [16]float32 {
	var m [16]float32
	for i := range 4 {
		copy(m[i*4:i*4+4], rows[i][:])
	}
	return m
}

// decodeFloats reads n little-endian float32 values starting at buf[0].
func decodeFloats(buf []byte, n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return out
}
