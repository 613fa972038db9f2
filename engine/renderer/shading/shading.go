// Package shading holds the three WGSL shading programs (flat, lit, lit-tinted) and a host-side
// reference of what they compute, used to test the stage semantics without a GPU.
package shading

import (
	_ "embed"

	"github.com/Carmen-Shannon/lawny-go/common"
	"github.com/Carmen-Shannon/lawny-go/engine/renderer/shader"
	"github.com/Carmen-Shannon/lawny-go/engine/renderer/variant"
)

const (
	// VertexEntryPoint is the vertex entry point of every shading program.
	VertexEntryPoint = "vs_main"

	// FragmentEntryPoint is the fragment entry point of every shading program.
	FragmentEntryPoint = "fs_main"
)

//go:embed assets/flat.wgsl
var flatSource string

//go:embed assets/lit.wgsl
var litSource string

//go:embed assets/lit_tinted.wgsl
var litTintedSource string

// Source returns the raw, not yet pre-processed WGSL program of a variant.
//
// Parameters:
//   - v: the shading variant
//
// Returns:
//   - string: the program source, or empty for an unknown variant
func Source(v variant.Variant) string {
	switch v {
	case variant.Flat:
		return flatSource
	case variant.Lit:
		return litSource
	case variant.LitTinted:
		return litTintedSource
	default:
		return ""
	}
}

// StagePair is the vertex and fragment stage of one shading program.
type StagePair struct {
	// Variant is the variant the program was written for.
	Variant variant.Variant

	// Vertex is the parsed vertex stage.
	Vertex shader.Shader

	// Fragment is the parsed fragment stage.
	Fragment shader.Shader
}

// NewStagePair builds the stage pair of a variant from its embedded program.
//
// Parameters:
//   - v: the shading variant
//
// Returns:
//   - *StagePair: the parsed and validated stage pair
//   - error: a *common.ConfigurationError for an unknown variant or an invalid program
func NewStagePair(v variant.Variant) (*StagePair, error) {
	if !v.Valid() {
		return nil, common.NewConfigurationError("shading.NewStagePair", "unknown variant %s", v)
	}
	return NewStagePairFromSource(v, v.String(), Source(v))
}

// NewStagePairFromSource builds a stage pair from a caller-supplied program, which must
// contain both entry points. The program is validated once and the fragment stage reuses
// that result.
//
// Parameters:
//   - v: the variant the program is meant to drive
//   - key: the label prefix for the shader modules
//   - source: the raw WGSL program, possibly containing @lawny: annotations
//
// Returns:
//   - *StagePair: the parsed stage pair
//   - error: a *common.ConfigurationError if either stage fails to parse or validate
func NewStagePairFromSource(v variant.Variant, key, source string) (*StagePair, error) {
	vs, err := shader.NewShader(key+".vs", shader.ShaderTypeVertex, source)
	if err != nil {
		return nil, err
	}
	fs, err := shader.NewShader(key+".fs", shader.ShaderTypeFragment, source, shader.WithValidation(false))
	if err != nil {
		return nil, err
	}
	common.Logger().Debug("stage pair built", "variant", v.String(), "key", key)
	return &StagePair{Variant: v, Vertex: vs, Fragment: fs}, nil
}
