package shader

// ShaderBuilderOption configures a shader during NewShader.
type ShaderBuilderOption func(*shader)

// WithValidation enables or disables naga compilation of the pre-processed source.
// Validation is on by default. Disabling it is useful when a second stage is parsed from
// a program that has already been validated.
//
// Parameters:
//   - enabled: whether to compile the source with naga
//
// Returns:
//   - ShaderBuilderOption: the option
func WithValidation(enabled bool) ShaderBuilderOption {
	return func(s *shader) {
		s.validate = enabled
	}
}
