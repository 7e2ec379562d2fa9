// Package config handles runtime configuration loading and management.
package config

import (
	"errors"
	"fmt"

	"github.com/Faultbox/midgard-gltf/internal/jobs"
)

// Config holds all loader, scheduler and rendering settings.
type Config struct {
	Loader    LoaderConfig    `yaml:"loader" toml:"loader"`
	Scheduler SchedulerConfig `yaml:"scheduler" toml:"scheduler"`
	Render    RenderConfig    `yaml:"render" toml:"render"`
	Window    WindowConfig    `yaml:"window" toml:"window"`
	Logging   LoggingConfig   `yaml:"logging" toml:"logging"`
}

// LoaderConfig holds the model load policy.
type LoaderConfig struct {
	Asynchronous        bool   `yaml:"asynchronous" toml:"asynchronous"`
	IncrementalTextures bool   `yaml:"incremental_textures" toml:"incremental_textures"`
	AllowPicking        bool   `yaml:"allow_picking" toml:"allow_picking"`
	ReleaseSource       bool   `yaml:"release_source" toml:"release_source"`
	Cache               bool   `yaml:"cache" toml:"cache"` // share GPU resources between instances of one asset
	UpAxis              string `yaml:"up_axis" toml:"up_axis"`
	AssetRoot           string `yaml:"asset_root" toml:"asset_root"`
}

// SchedulerConfig caps GPU-creation jobs per frame. Zero means unlimited.
type SchedulerConfig struct {
	Total    int `yaml:"total" toml:"total"`
	Buffers  int `yaml:"buffers" toml:"buffers"`
	Programs int `yaml:"programs" toml:"programs"`
	Textures int `yaml:"textures" toml:"textures"`
}

// Budget converts the section into a scheduler budget.
func (s SchedulerConfig) Budget() jobs.Budget {
	b := jobs.PerFrame(s.Total)
	b.PerType[jobs.JobTypeBuffer] = s.Buffers
	b.PerType[jobs.JobTypeProgram] = s.Programs
	b.PerType[jobs.JobTypeTexture] = s.Textures
	return b
}

// RenderConfig holds per-model appearance defaults and the backend choice.
type RenderConfig struct {
	Backend          string     `yaml:"backend" toml:"backend"` // "gl" or "headless"
	Stencil          bool       `yaml:"stencil" toml:"stencil"`
	BackFaceCulling  bool       `yaml:"back_face_culling" toml:"back_face_culling"`
	Scale            float32    `yaml:"scale" toml:"scale"`
	MinimumPixelSize float32    `yaml:"minimum_pixel_size" toml:"minimum_pixel_size"`
	MaximumScale     float32    `yaml:"maximum_scale" toml:"maximum_scale"`
	HighlightColor   [4]float32 `yaml:"highlight_color" toml:"highlight_color"`
	SilhouetteColor  [4]float32 `yaml:"silhouette_color" toml:"silhouette_color"`
	SilhouetteSize   float32    `yaml:"silhouette_size" toml:"silhouette_size"`
	IBLFactor        [2]float32 `yaml:"ibl_factor" toml:"ibl_factor"`
	VertexShader     string     `yaml:"custom_vertex_shader" toml:"custom_vertex_shader"`
	FragmentShader   string     `yaml:"custom_fragment_shader" toml:"custom_fragment_shader"`
}

// WindowConfig holds viewer window settings.
type WindowConfig struct {
	Title      string `yaml:"title" toml:"title"`
	Width      int    `yaml:"width" toml:"width"`
	Height     int    `yaml:"height" toml:"height"`
	Fullscreen bool   `yaml:"fullscreen" toml:"fullscreen"`
	VSync      bool   `yaml:"vsync" toml:"vsync"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level" toml:"level"`
	LogFile string `yaml:"log_file" toml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Loader: LoaderConfig{
			Asynchronous:        true,
			IncrementalTextures: true,
			AllowPicking:        true,
			ReleaseSource:       false,
			Cache:               true,
			UpAxis:              "y",
		},
		Scheduler: SchedulerConfig{
			Total:    8,
			Buffers:  4,
			Programs: 2,
			Textures: 2,
		},
		Render: RenderConfig{
			Backend:         "gl",
			Stencil:         true,
			BackFaceCulling: true,
			Scale:           1,
			HighlightColor:  [4]float32{1, 1, 1, 1},
			SilhouetteColor: [4]float32{1, 0, 0, 1},
			IBLFactor:       [2]float32{1, 1},
		},
		Window: WindowConfig{
			Title:  "gltfview",
			Width:  1280,
			Height: 720,
			VSync:  true,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Validate reports the first setting that cannot be used.
func (c *Config) Validate() error {
	switch c.Render.Backend {
	case "gl", "headless":
	default:
		return fmt.Errorf("render.backend: unknown backend %q", c.Render.Backend)
	}
	s := c.Scheduler
	if s.Total < 0 || s.Buffers < 0 || s.Programs < 0 || s.Textures < 0 {
		return errors.New("scheduler: budgets must not be negative")
	}
	if c.Render.Scale < 0 || c.Render.SilhouetteSize < 0 || c.Render.MinimumPixelSize < 0 {
		return errors.New("render: scale, silhouette_size and minimum_pixel_size must not be negative")
	}
	for _, v := range append(c.Render.HighlightColor[:], c.Render.SilhouetteColor[:]...) {
		if v < 0 || v > 1 {
			return errors.New("render: color components must be within [0, 1]")
		}
	}
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return errors.New("window: width and height must be positive")
	}
	return nil
}
