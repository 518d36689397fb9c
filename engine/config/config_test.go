package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	cfg, err := Load(nil, "")
	require.NoError(t, err)
	assert.Equal(t, "earth-sun-mars", cfg.Sim.Preset)
	assert.Equal(t, 2, cfg.Renderer.FramesInFlight)
	assert.Equal(t, 2*time.Second, cfg.Renderer.DrainTimeout)
}

func TestLoadFileAndEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "space.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
sim:
  preset: cloud
  bodies: 2000
  solver: direct
renderer:
  drain_timeout: 500ms
`), 0o644))
	t.Setenv("OXY_SPACE_SIM_BODIES", "4096")

	cfg, err := Load(nil, path)
	require.NoError(t, err)
	assert.Equal(t, "cloud", cfg.Sim.Preset)
	assert.Equal(t, "direct", cfg.Sim.Solver)
	assert.Equal(t, 4096, cfg.Sim.Bodies)
	assert.Equal(t, 500*time.Millisecond, cfg.Renderer.DrainTimeout)
}

func TestLoadMissingExplicitFileFails(t *testing.T) {
	_, err := Load(nil, filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"solver", func(c *Config) { c.Sim.Solver = "euler" }},
		{"msaa", func(c *Config) { c.Renderer.MSAA = 3 }},
		{"frames in flight", func(c *Config) { c.Renderer.FramesInFlight = 5 }},
		{"delta", func(c *Config) { c.Sim.Delta = 0 }},
		{"fovy", func(c *Config) { c.Camera.Fovy = 180 }},
		{"log level", func(c *Config) { c.Log.Level = "trace" }},
		{"kernels dir", func(c *Config) { c.Kernels.Dir = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
