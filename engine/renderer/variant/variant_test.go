package variant

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func locations(attrs []Attribute) []uint32 {
	out := make([]uint32, len(attrs))
	for i, a := range attrs {
		out[i] = a.Location
	}
	return out
}

func TestLocationTables(t *testing.T) {
	tests := []struct {
		variant  Variant
		vertex   []uint32
		instance []uint32
		stride   uint64
		record   uint64
	}{
		{Flat, []uint32{0}, []uint32{1, 2, 3, 4}, 12, 64},
		{Lit, []uint32{0, 1}, []uint32{2, 3, 4, 5}, 24, 64},
		{LitTinted, []uint32{0, 1}, []uint32{2, 3, 4, 5, 6}, 24, 76},
	}

	for _, tt := range tests {
		t.Run(tt.variant.String(), func(t *testing.T) {
			assert.Equal(t, tt.vertex, locations(tt.variant.VertexAttributes()))
			assert.Equal(t, tt.instance, locations(tt.variant.InstanceAttributes()))
			assert.Equal(t, tt.stride, tt.variant.VertexStride())
			assert.Equal(t, tt.record, tt.variant.RecordSize())
		})
	}
}

func TestInstanceRowsAreConsecutiveVec4(t *testing.T) {
	for _, v := range Variants() {
		rows := v.InstanceAttributes()[:4]
		for i, row := range rows {
			assert.Equal(t, wgpu.VertexFormatFloat32x4, row.Format)
			assert.Equal(t, uint64(i*RowSize), row.Offset)
		}
	}
}

func TestTintedColorTrailsTransform(t *testing.T) {
	attrs := LitTinted.InstanceAttributes()
	color := attrs[len(attrs)-1]
	assert.Equal(t, "color", color.Name)
	assert.Equal(t, uint64(64), color.Offset)
	assert.Equal(t, wgpu.VertexFormatFloat32x3, color.Format)
	assert.Equal(t, LitTinted.RecordSize(), color.Offset+ColorSize)
}

func TestParse(t *testing.T) {
	for _, v := range Variants() {
		got, err := Parse(v.String())
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}

	got, err := Parse(" Lit-Tinted ")
	require.NoError(t, err)
	assert.Equal(t, LitTinted, got)

	_, err = Parse("phong")
	assert.Error(t, err)
}

func TestValid(t *testing.T) {
	assert.True(t, Lit.Valid())
	assert.False(t, Variant(7).Valid())
	assert.Equal(t, "variant(7)", Variant(7).String())
}
