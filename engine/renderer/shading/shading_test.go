package shading

import (
	"errors"
	"math"
	"regexp"
	"strconv"
	"testing"

	"github.com/Carmen-Shannon/lawny-go/common"
	"github.com/Carmen-Shannon/lawny-go/engine/renderer/instance"
	"github.com/Carmen-Shannon/lawny-go/engine/renderer/shader"
	"github.com/Carmen-Shannon/lawny-go/engine/renderer/variant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const eps = 1e-5

func assertVec4(t *testing.T, want, got [4]float32) {
	t.Helper()
	for i := range want {
		assert.InDelta(t, want[i], got[i], eps, "component %d of %v", i, got)
	}
}

func TestLightDirection(t *testing.T) {
	assert.InDelta(t, 0, LightDirection[0], eps)
	assert.InDelta(t, -0.5, LightDirection[1], eps)
	assert.InDelta(t, -0.8660254, LightDirection[2], eps)
	assert.InDelta(t, 1, common.Length3(LightDirection), eps)
}

func TestIllumination(t *testing.T) {
	negL := common.Scale3(LightDirection, -1)
	tests := []struct {
		name   string
		normal [3]float32
		want   float32
	}{
		{"up", [3]float32{0, 1, 0}, 0.5},
		{"facing light", negL, 1},
		{"away from light", LightDirection, 0},
		{"down", [3]float32{0, -1, 0}, 0},
		{"perpendicular", [3]float32{1, 0, 0}, 0},
		{"toward viewer", [3]float32{0, 0, 1}, 0.8660254},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Illumination(tt.normal), eps)
		})
	}
}

func TestIlluminationClampsBackFaces(t *testing.T) {
	for _, n := range [][3]float32{
		{0, -1, 0},
		{0, -0.2, -0.9},
		{0.3, -0.7, -0.1},
		common.Normalize3([3]float32{1, -2, -3}),
	} {
		require.Less(t, common.Dot3(n, common.Scale3(LightDirection, -1)), float32(0))
		assert.Zero(t, Illumination(n), "normal %v", n)
	}
}

func TestShadeFlat(t *testing.T) {
	assert.Equal(t, [4]float32{0.3, 0.2, 0.1, 1}, ShadeFlat())
}

func TestShadeLit(t *testing.T) {
	t.Run("normal up", func(t *testing.T) {
		assertVec4(t, [4]float32{0.15, 0.1, 0.05, 1}, ShadeLit([3]float32{0, 1, 0}))
	})
	t.Run("saturated", func(t *testing.T) {
		assertVec4(t, [4]float32{0.3, 0.2, 0.1, 1}, ShadeLit(common.Scale3(LightDirection, -1)))
	})
	t.Run("back face", func(t *testing.T) {
		assertVec4(t, [4]float32{0, 0, 0, 1}, ShadeLit([3]float32{0, -1, 0}))
	})
}

func TestShadeLitTinted(t *testing.T) {
	n := common.Normalize3([3]float32{0.2, 0.8, 0.4})
	illum := Illumination(n)
	require.Greater(t, illum, float32(0))

	t.Run("multiplicative", func(t *testing.T) {
		c := [3]float32{0.9, 0.4, 0.25}
		assertVec4(t, [4]float32{illum * 0.9, illum * 0.4, illum * 0.25, 1}, ShadeLitTinted(n, c))
	})
	t.Run("white is bare illumination", func(t *testing.T) {
		assertVec4(t, [4]float32{illum, illum, illum, 1}, ShadeLitTinted(n, [3]float32{1, 1, 1}))
	})
	t.Run("albedo tint reproduces lit", func(t *testing.T) {
		assertVec4(t, ShadeLit(n), ShadeLitTinted(n, Albedo))
	})
	t.Run("linear in the tint", func(t *testing.T) {
		a := ShadeLitTinted(n, [3]float32{0.2, 0.2, 0.2})
		b := ShadeLitTinted(n, [3]float32{0.4, 0.4, 0.4})
		for i := 0; i < 3; i++ {
			assert.InDelta(t, 2*a[i], b[i], eps)
		}
	})
}

func TestShade(t *testing.T) {
	n := [3]float32{0, 1, 0}
	c := [3]float32{1, 0, 0}

	got, err := Shade(variant.Flat, n, c)
	require.NoError(t, err)
	assert.Equal(t, FlatColor, got)

	got, err = Shade(variant.Lit, n, c)
	require.NoError(t, err)
	assertVec4(t, [4]float32{0.15, 0.1, 0.05, 1}, got)

	got, err = Shade(variant.LitTinted, n, c)
	require.NoError(t, err)
	assertVec4(t, [4]float32{0.5, 0, 0, 1}, got)

	_, err = Shade(variant.Variant(9), n, c)
	var cfgErr *common.ConfigurationError
	assert.True(t, errors.As(err, &cfgErr))
}

func TestClipPosition(t *testing.T) {
	identity := common.IdentityMatrix()
	identityRows := instance.RowsFromModel(identity)

	t.Run("identity scenario", func(t *testing.T) {
		assertVec4(t, [4]float32{0, 0, 0, 1}, ClipPosition(identity, identityRows, [3]float32{0, 0, 0}))
	})

	t.Run("identity passes the point through", func(t *testing.T) {
		p := [3]float32{1.5, -2, 0.25}
		assertVec4(t, [4]float32{1.5, -2, 0.25, 1}, ClipPosition(identity, identityRows, p))
	})

	t.Run("view projection times model", func(t *testing.T) {
		var viewProj [16]float32
		common.Perspective(viewProj[:], math.Pi/3, 1.5, 0.1, 100)
		var view [16]float32
		common.LookAt(view[:], [3]float32{1, 2, 5}, [3]float32{0, 0, 0}, [3]float32{0, 1, 0})
		common.Mul4(viewProj[:], viewProj[:], view[:])

		var model [16]float32
		common.BuildModelMatrix(model[:], [3]float32{3, -1, 2}, [3]float32{0.3, 1.1, -0.4}, 2)
		p := [3]float32{0.5, 0.25, -1}

		step := common.MulVec4(model[:], [4]float32{p[0], p[1], p[2], 1})
		want := common.MulVec4(viewProj[:], step)

		assertVec4(t, want, ClipPosition(viewProj, instance.RowsFromModel(model), p))
	})

	t.Run("rows are consumed in order", func(t *testing.T) {
		translated := common.Translation(4, 5, 6)
		rows := instance.RowsFromModel(translated)
		assert.Equal(t, [4]float32{4, 5, 6, 1}, rows[3])
		p := [3]float32{2, 1, 1}
		assertVec4(t, [4]float32{6, 6, 7, 1}, ClipPosition(identity, rows, p))

		rows[0], rows[3] = rows[3], rows[0]
		assertVec4(t, [4]float32{9, 11, 13, 2}, ClipPosition(identity, rows, p))
	})
}

func TestNewStagePair(t *testing.T) {
	for _, v := range variant.Variants() {
		t.Run(v.String(), func(t *testing.T) {
			pair, err := NewStagePair(v)
			require.NoError(t, err)
			assert.Equal(t, v, pair.Variant)
			assert.Equal(t, VertexEntryPoint, pair.Vertex.EntryPoint())
			assert.Equal(t, FragmentEntryPoint, pair.Fragment.EntryPoint())
			assert.Equal(t, shader.ShaderTypeVertex, pair.Vertex.ShaderType())
			assert.Equal(t, shader.ShaderTypeFragment, pair.Fragment.ShaderType())

			located := 0
			for _, in := range pair.Vertex.Inputs() {
				if !in.IsBuiltin() {
					located++
				}
			}
			assert.Equal(t, len(v.VertexAttributes())+len(v.InstanceAttributes()), located)

			desc := pair.Vertex.BindGroupLayoutDescriptor(0)
			require.Len(t, desc.Entries, 1)
			assert.EqualValues(t, 0, desc.Entries[0].Binding)
			assert.EqualValues(t, 64, desc.Entries[0].Buffer.MinBindingSize)

			outs := pair.Fragment.Outputs()
			require.Len(t, outs, 1)
			assert.Equal(t, 0, outs[0].Location)
			assert.Equal(t, "vec4<f32>", outs[0].Type)
		})
	}
}

func TestNewStagePairRejectsUnknownVariant(t *testing.T) {
	_, err := NewStagePair(variant.Variant(7))
	var cfgErr *common.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
}

func TestNewStagePairFromSourceRejectsBrokenProgram(t *testing.T) {
	_, err := NewStagePairFromSource(variant.Flat, "broken", "@vertex fn vs_main( -> {")
	var cfgErr *common.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
}

var lightLiteral = regexp.MustCompile(`light_dir = vec3<f32>\(([-\d.]+), ([-\d.]+), ([-\d.]+)\)`)

// The WGSL programs cannot import LightDirection, so their literal is checked against it.
func TestProgramsMatchReferenceConstants(t *testing.T) {
	for _, v := range []variant.Variant{variant.Lit, variant.LitTinted} {
		m := lightLiteral.FindStringSubmatch(Source(v))
		require.NotNil(t, m, "%s has no light_dir literal", v)
		for i := 0; i < 3; i++ {
			f, err := strconv.ParseFloat(m[i+1], 32)
			require.NoError(t, err)
			assert.InDelta(t, LightDirection[i], f, eps, "%s component %d", v, i)
		}
	}
	assert.Contains(t, Source(variant.Lit), "vec3<f32>(0.3, 0.2, 0.1)")
	assert.Contains(t, Source(variant.Flat), "vec4<f32>(0.3, 0.2, 0.1, 1.0)")
}
