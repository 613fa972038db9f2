package engine

import (
	"github.com/Carmen-Shannon/lawny-go/engine/camera"
	"github.com/Carmen-Shannon/lawny-go/engine/renderer"
	"github.com/Carmen-Shannon/lawny-go/engine/window"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithProfiling enables or disables performance profiling output.
//
// Parameters:
//   - enabled: if true, enables performance profiling
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled.Store(enabled)
	}
}

// WithTickRate sets the engine tick rate in ticks per second.
// Values <= 0 will be treated as the default (60Hz).
//
// Parameters:
//   - fps: target ticks per second (default 60)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithTickRate(fps float64) EngineBuilderOption {
	return func(e *engine) {
		e.engineTickRate = tickInterval(fps)
	}
}

// WithWindow sets the window the engine runs the message loop of and forwards resizes from.
//
// Parameters:
//   - w: an opened Window instance
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithWindow(w window.Window) EngineBuilderOption {
	return func(e *engine) {
		e.window = w
	}
}

// WithRenderer sets the renderer frames are drawn with.
//
// Parameters:
//   - r: the renderer
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderer(r renderer.Renderer) EngineBuilderOption {
	return func(e *engine) {
		e.renderer = r
	}
}

// WithCamera sets the camera and the uniform manager it is synced into before each frame.
//
// Parameters:
//   - c: the camera
//   - m: the camera's uniform manager, already initialized with the renderer
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithCamera(c camera.Camera, m camera.UniformManager) EngineBuilderOption {
	return func(e *engine) {
		e.camera = c
		e.uniforms = m
	}
}

// WithBatchSource sets the function that supplies each frame's batches.
//
// Parameters:
//   - source: the batch source
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithBatchSource(source BatchSource) EngineBuilderOption {
	return func(e *engine) {
		e.batches = source
	}
}

// WithRenderFrameLimit sets an optional render frame rate cap in frames per second.
// Pass 0 to uncap the render loop (default).
//
// Parameters:
//   - fps: maximum render frames per second (0 = uncapped)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderFrameLimit(fps float64) EngineBuilderOption {
	return func(e *engine) {
		e.renderFrameLimit = frameInterval(fps)
	}
}
