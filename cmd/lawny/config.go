package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/Carmen-Shannon/lawny-go/engine/renderer"
	"github.com/Carmen-Shannon/lawny-go/engine/renderer/variant"
	"github.com/Carmen-Shannon/lawny-go/engine/window"
	"gopkg.in/yaml.v3"
)

// maxConfigSize bounds the config file read into memory.
const maxConfigSize = 1 << 20

// Config is the demo configuration loaded from YAML. Missing fields take the values of DefaultConfig.
type Config struct {
	Window WindowConfig `yaml:"window"`
	Render RenderConfig `yaml:"render"`
	Scene  SceneConfig  `yaml:"scene"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
	// Profiling logs FPS and memory statistics once per second.
	Profiling bool `yaml:"profiling"`
}

// WindowConfig configures the demo window.
type WindowConfig struct {
	Title  string `yaml:"title"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
}

// RenderConfig configures the renderer and the frame loop.
type RenderConfig struct {
	// Variant is flat, lit or lit_tinted.
	Variant string `yaml:"variant"`
	// PresentMode is vsync or uncapped.
	PresentMode string `yaml:"present_mode"`
	// MSAA is the sample count, 1 or 4.
	MSAA uint32 `yaml:"msaa"`
	// TickRate is the simulation rate in ticks per second.
	TickRate float64 `yaml:"tick_rate"`
	// FrameLimit caps the render rate; 0 is uncapped.
	FrameLimit float64 `yaml:"frame_limit"`
	// SoftwareAdapter forces the fallback adapter.
	SoftwareAdapter bool `yaml:"software_adapter"`
}

// SceneConfig configures the sphere grid.
type SceneConfig struct {
	// Subdivisions is the UV sphere subdivision count.
	Subdivisions uint32 `yaml:"subdivisions"`
	// GridSide is the number of spheres along each side of the square grid.
	GridSide int `yaml:"grid_side"`
	// Spacing is the distance between neighbouring sphere centres.
	Spacing float32 `yaml:"spacing"`
	// SpinSpeed is the sphere spin rate in radians per second.
	SpinSpeed float32 `yaml:"spin_speed"`
	// Seed seeds the tint generator; 0 picks a seed from the clock.
	Seed int64 `yaml:"seed"`
}

// DefaultConfig returns the configuration used when no file is given.
//
// Returns:
//   - Config: the defaults
func DefaultConfig() Config {
	return Config{
		Window: WindowConfig{
			Title:  window.DefaultTitle,
			Width:  1280,
			Height: 720,
		},
		Render: RenderConfig{
			Variant:     variant.LitTinted.String(),
			PresentMode: "vsync",
			MSAA:        uint32(renderer.MSAA4x),
			TickRate:    60,
		},
		Scene: SceneConfig{
			Subdivisions: 24,
			GridSide:     16,
			Spacing:      3,
			SpinSpeed:    0.5,
		},
		LogLevel: "info",
	}
}

// LoadConfig reads a YAML config file. An empty path returns DefaultConfig.
//
// Parameters:
//   - path: the config file path, or ""
//
// Returns:
//   - Config: the loaded, defaulted and validated configuration
//   - error: error if the file cannot be read, has unknown fields or fails validation
func LoadConfig(path string) (Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxConfigSize+1))
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	if len(data) > maxConfigSize {
		return Config{}, fmt.Errorf("config %s is larger than %d bytes", path, maxConfigSize)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// ParseConfig decodes YAML over DefaultConfig and validates the result.
//
// Parameters:
//   - data: the YAML document
//
// Returns:
//   - Config: the configuration
//   - error: error on malformed YAML, unknown fields or invalid values
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every invalid field at once.
//
// Returns:
//   - error: the joined field errors, or nil
func (c Config) Validate() error {
	var errs []error
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		errs = append(errs, fmt.Errorf("window size must be positive, got %dx%d", c.Window.Width, c.Window.Height))
	}
	if _, err := variant.Parse(c.Render.Variant); err != nil {
		errs = append(errs, err)
	}
	if _, ok := renderer.ParsePresentMode(c.Render.PresentMode); !ok {
		errs = append(errs, fmt.Errorf("unknown present mode %q", c.Render.PresentMode))
	}
	if !renderer.MSAASampleCount(c.Render.MSAA).Valid() {
		errs = append(errs, fmt.Errorf("msaa must be 1 or 4, got %d", c.Render.MSAA))
	}
	if c.Render.TickRate <= 0 {
		errs = append(errs, fmt.Errorf("tick rate must be positive, got %g", c.Render.TickRate))
	}
	if c.Render.FrameLimit < 0 {
		errs = append(errs, fmt.Errorf("frame limit must not be negative, got %g", c.Render.FrameLimit))
	}
	if c.Scene.Subdivisions < 3 {
		errs = append(errs, fmt.Errorf("sphere subdivisions must be at least 3, got %d", c.Scene.Subdivisions))
	}
	if c.Scene.GridSide <= 0 {
		errs = append(errs, fmt.Errorf("grid side must be positive, got %d", c.Scene.GridSide))
	}
	if c.Scene.Spacing <= 0 {
		errs = append(errs, fmt.Errorf("spacing must be positive, got %g", c.Scene.Spacing))
	}
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Level parses LogLevel.
//
// Returns:
//   - slog.Level: the level
//   - error: error if the level name is unknown
func (c Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("unknown log level %q", c.LogLevel)
	}
	return level, nil
}
