package shading

import (
	"math"

	"github.com/Carmen-Shannon/lawny-go/common"
	"github.com/Carmen-Shannon/lawny-go/engine/renderer/instance"
	"github.com/Carmen-Shannon/lawny-go/engine/renderer/variant"
)

// LightDirection is the direction the single directional light travels in: down and away
// from the viewer, 30 degrees below the horizon. The WGSL programs hard-code the same value.
var LightDirection = [3]float32{
	0,
	-float32(math.Sin(math.Pi / 6)),
	-float32(math.Cos(math.Pi / 6)),
}

var (
	// Albedo is the fixed surface colour of the lit program.
	Albedo = [3]float32{0.3, 0.2, 0.1}

	// FlatColor is the constant output of the flat program.
	FlatColor = [4]float32{0.3, 0.2, 0.1, 1.0}
)

// Illumination is the Lambertian factor max(0, dot(n, -LightDirection)). The normal is used
// as given; there is no ambient term.
func Illumination(n [3]float32) float32 {
	return max(0, common.Dot3(n, common.Scale3(LightDirection, -1)))
}

// ShadeFlat returns the flat program's fragment colour.
func ShadeFlat() [4]float32 {
	return FlatColor
}

// ShadeLit returns the lit program's fragment colour for an interpolated normal.
func ShadeLit(n [3]float32) [4]float32 {
	return ShadeLitTinted(n, Albedo)
}

// ShadeLitTinted returns the lit-tinted program's fragment colour for an interpolated normal
// and instance colour.
func ShadeLitTinted(n, color [3]float32) [4]float32 {
	c := common.Scale3(color, Illumination(n))
	return [4]float32{c[0], c[1], c[2], 1}
}

// Shade dispatches to the fragment colour of a variant. The normal is ignored by Flat and
// the colour is ignored by everything but LitTinted.
//
// Parameters:
//   - v: the shading variant
//   - n: the interpolated normal
//   - color: the interpolated instance colour
//
// Returns:
//   - [4]float32: the RGBA output
//   - error: a *common.ConfigurationError for an unknown variant
func Shade(v variant.Variant, n, color [3]float32) ([4]float32, error) {
	switch v {
	case variant.Flat:
		return ShadeFlat(), nil
	case variant.Lit:
		return ShadeLit(n), nil
	case variant.LitTinted:
		return ShadeLitTinted(n, color), nil
	default:
		return [4]float32{}, common.NewConfigurationError("shading.Shade", "unknown variant %s", v)
	}
}

// ClipPosition is the vertex stage's output position: viewProj * model * (p, 1) with the model
// matrix rebuilt from its four instance rows in order.
//
// Parameters:
//   - viewProj: the camera view-projection matrix, column-major
//   - rows: the instance rows model_0..model_3
//   - p: the object-space vertex position
//
// Returns:
//   - [4]float32: the homogeneous clip-space position
func ClipPosition(viewProj [16]float32, rows [4][4]float32, p [3]float32) [4]float32 {
	model := instance.ModelFromRows(rows)
	var mvp [16]float32
	common.Mul4(mvp[:], viewProj[:], model[:])
	return common.MulVec4(mvp[:], [4]float32{p[0], p[1], p[2], 1})
}

