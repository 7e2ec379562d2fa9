package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Faultbox/midgard-gltf/internal/jobs"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if !cfg.Loader.Asynchronous {
		t.Error("expected asynchronous loading by default")
	}
	if !cfg.Loader.IncrementalTextures {
		t.Error("expected texture streaming by default")
	}
	if cfg.Loader.ReleaseSource {
		t.Error("expected release_source to be false by default")
	}
	if cfg.Scheduler.Total != 8 {
		t.Errorf("expected total budget 8, got %d", cfg.Scheduler.Total)
	}
	if cfg.Render.Backend != "gl" {
		t.Errorf("expected gl backend, got %s", cfg.Render.Backend)
	}
	if cfg.Render.HighlightColor != [4]float32{1, 1, 1, 1} {
		t.Errorf("expected white highlight, got %v", cfg.Render.HighlightColor)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Logging.Level)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadFromFileYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "gltf.yaml")

	yamlContent := `
loader:
  asynchronous: false
  incremental_textures: false
  allow_picking: false
  release_source: true
  up_axis: z

scheduler:
  total: 1
  textures: 0

render:
  backend: headless
  stencil: false
  highlight_color: [1, 0.5, 0.5, 0.5]
  silhouette_size: 2

logging:
  level: "debug"
  log_file: "load.log"
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Loader.Asynchronous {
		t.Error("expected asynchronous to be false")
	}
	if !cfg.Loader.ReleaseSource {
		t.Error("expected release_source to be true")
	}
	if cfg.Loader.UpAxis != "z" {
		t.Errorf("expected up axis z, got %s", cfg.Loader.UpAxis)
	}
	if cfg.Scheduler.Total != 1 || cfg.Scheduler.Textures != 0 {
		t.Errorf("unexpected scheduler %+v", cfg.Scheduler)
	}
	// Untouched keys keep their defaults.
	if cfg.Scheduler.Buffers != 4 {
		t.Errorf("expected default buffer budget 4, got %d", cfg.Scheduler.Buffers)
	}
	if cfg.Render.HighlightColor[3] != 0.5 {
		t.Errorf("expected highlight alpha 0.5, got %v", cfg.Render.HighlightColor)
	}
	if cfg.Logging.LogFile != "load.log" {
		t.Errorf("expected log file 'load.log', got %s", cfg.Logging.LogFile)
	}
}

func TestLoadFromFileTOML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "gltf.toml")

	tomlContent := `
[loader]
asynchronous = false
cache = false

[render]
backend = "headless"
silhouette_color = [0.0, 1.0, 0.0, 1.0]
`
	if err := os.WriteFile(configPath, []byte(tomlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Loader.Asynchronous || cfg.Loader.Cache {
		t.Errorf("loader flags not applied: %+v", cfg.Loader)
	}
	if cfg.Render.SilhouetteColor != [4]float32{0, 1, 0, 1} {
		t.Errorf("silhouette color: got %v", cfg.Render.SilhouetteColor)
	}
	if cfg.Render.Backend != "headless" {
		t.Errorf("backend: got %s", cfg.Render.Backend)
	}
}

func TestLoadFromFileInvalid(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "invalid.yaml")

	invalidYAML := `
scheduler:
  total: not a number
  invalid syntax here
`
	if err := os.WriteFile(configPath, []byte(invalidYAML), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	if err := loadFromFile(Default(), configPath); err == nil {
		t.Error("expected error loading invalid YAML, got nil")
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	if err := loadFromFile(Default(), "/nonexistent/path/config.yaml"); err == nil {
		t.Error("expected error loading missing file, got nil")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"unknown backend", func(c *Config) { c.Render.Backend = "vulkan" }},
		{"negative budget", func(c *Config) { c.Scheduler.Programs = -1 }},
		{"color out of range", func(c *Config) { c.Render.HighlightColor[0] = 2 }},
		{"negative silhouette", func(c *Config) { c.Render.SilhouetteSize = -1 }},
		{"zero window", func(c *Config) { c.Window.Width = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestConfigDir(t *testing.T) {
	dir := ConfigDir()
	if dir == "" {
		t.Error("ConfigDir returned empty string")
	}
	if !filepath.IsAbs(dir) {
		t.Errorf("ConfigDir should return absolute path, got %s", dir)
	}
}

func TestSaveToRoundTripFormats(t *testing.T) {
	for _, name := range []string{"out.yaml", "out.toml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", name)

			cfg := Default()
			cfg.Scheduler.Total = 3
			cfg.Render.Backend = "headless"
			if err := cfg.SaveTo(path); err != nil {
				t.Fatalf("SaveTo: %v", err)
			}

			loaded, err := LoadFile(path)
			if err != nil {
				t.Fatalf("LoadFile: %v", err)
			}
			if loaded.Scheduler.Total != 3 || loaded.Render.Backend != "headless" {
				t.Errorf("saved values lost: %+v %+v", loaded.Scheduler, loaded.Render)
			}
		})
	}
}

func TestSchedulerBudget(t *testing.T) {
	b := SchedulerConfig{Total: 6, Buffers: 3, Programs: 1}.Budget()

	if b.Total != 6 {
		t.Errorf("expected total 6, got %d", b.Total)
	}
	if b.PerType[jobs.JobTypeBuffer] != 3 {
		t.Errorf("expected 3 buffers, got %d", b.PerType[jobs.JobTypeBuffer])
	}
	if b.PerType[jobs.JobTypeProgram] != 1 {
		t.Errorf("expected 1 program, got %d", b.PerType[jobs.JobTypeProgram])
	}
	if b.PerType[jobs.JobTypeTexture] != 0 {
		t.Errorf("expected unlimited textures, got %d", b.PerType[jobs.JobTypeTexture])
	}
}
