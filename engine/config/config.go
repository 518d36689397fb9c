// Package config loads the application configuration from defaults, an optional file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. OXY_SPACE_SIM_PRESET.
const EnvPrefix = "OXY_SPACE"

// Config represents the application configuration.
type Config struct {
	Window    WindowConfig   `mapstructure:"window"`
	Renderer  RendererConfig `mapstructure:"renderer"`
	Kernels   KernelsConfig  `mapstructure:"kernels"`
	Sim       SimConfig      `mapstructure:"sim"`
	Camera    CameraConfig   `mapstructure:"camera"`
	Log       LogConfig      `mapstructure:"log"`
	Profiling bool           `mapstructure:"profiling"`
}

type WindowConfig struct {
	Title  string `mapstructure:"title"`
	Width  int    `mapstructure:"width"`
	Height int    `mapstructure:"height"`
}

type RendererConfig struct {
	PresentMode         string        `mapstructure:"present_mode"`
	MSAA                int           `mapstructure:"msaa"`
	ForceSoftware       bool          `mapstructure:"force_software"`
	FramesInFlight      int           `mapstructure:"frames_in_flight"`
	DrainTimeout        time.Duration `mapstructure:"drain_timeout"`
	FenceTimeout        time.Duration `mapstructure:"fence_timeout"`
	MaxDeviceRecoveries int           `mapstructure:"max_device_recoveries"`
	MemoryBudgetMB      int           `mapstructure:"memory_budget_mb"`
	FrameLimit          int           `mapstructure:"frame_limit"`
}

type KernelsConfig struct {
	Dir       string `mapstructure:"dir"`
	SourceDir string `mapstructure:"source_dir"`
	Format    int    `mapstructure:"format"`
}

type SimConfig struct {
	Preset        string  `mapstructure:"preset"`
	Bodies        int     `mapstructure:"bodies"`
	Solver        string  `mapstructure:"solver"`
	Theta         float64 `mapstructure:"theta"`
	Delta         float64 `mapstructure:"delta"`
	Workers       int     `mapstructure:"workers"`
	TickRate      int     `mapstructure:"tick_rate"`
	CheckInterval int     `mapstructure:"check_interval"`
	Seed          int64   `mapstructure:"seed"`
	Scenario      string  `mapstructure:"scenario"`
}

type CameraConfig struct {
	Fovy        float32 `mapstructure:"fovy"`
	Near        float32 `mapstructure:"near"`
	MoveSpeed   float32 `mapstructure:"move_speed"`
	RotateSpeed float32 `mapstructure:"rotate_speed"`
}

type LogConfig struct {
	Level   string `mapstructure:"level"`
	File    string `mapstructure:"file"`
	Console bool   `mapstructure:"console"`
}

// Solver names accepted by sim.solver.
var Solvers = []string{"barnes-hut", "direct", "central"}

// DefaultConfig returns configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		Window: WindowConfig{
			Title:  "oxy-space",
			Width:  1280,
			Height: 800,
		},
		Renderer: RendererConfig{
			PresentMode:         "vsync",
			MSAA:                1,
			FramesInFlight:      2,
			DrainTimeout:        2 * time.Second,
			FenceTimeout:        time.Second,
			MaxDeviceRecoveries: 3,
			MemoryBudgetMB:      512,
		},
		Kernels: KernelsConfig{
			Dir:    "kernels/build",
			Format: 1,
		},
		Sim: SimConfig{
			Preset:        "earth-sun-mars",
			Bodies:        1000,
			Solver:        "barnes-hut",
			Theta:         0.5,
			Delta:         10,
			CheckInterval: 1,
			Seed:          1,
		},
		Camera: CameraConfig{
			Fovy:        45,
			Near:        1e-6,
			MoveSpeed:   0.1,
			RotateSpeed: 0.02,
		},
		Log: LogConfig{
			Level:   "info",
			Console: true,
		},
	}
}

// Load loads configuration from defaults, then the config file, then the environment, and validates it.
// A missing config file is not an error when no explicit path was given.
//
// Parameters:
//   - v: the viper instance to read into (flags may already be bound to it); nil creates a new one
//   - cfgFile: an explicit config file path, or "" to search ./oxy-space.{yaml,toml,json} and ~/.oxy-space
//
// Returns:
//   - *Config: the validated configuration
//   - error: an error if the file could not be read, decoded, or failed validation
func Load(v *viper.Viper, cfgFile string) (*Config, error) {
	if v == nil {
		v = viper.New()
	}

	cfg := DefaultConfig()
	setDefaults(v, cfg)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("oxy-space")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".oxy-space"))
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	cfg.Log.File = expandPath(cfg.Log.File)
	cfg.Kernels.Dir = expandPath(cfg.Kernels.Dir)
	cfg.Kernels.SourceDir = expandPath(cfg.Kernels.SourceDir)
	cfg.Sim.Scenario = expandPath(cfg.Sim.Scenario)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return errors.New("window.width and window.height must be positive")
	}
	if !slices.Contains([]string{"vsync", "uncapped"}, c.Renderer.PresentMode) {
		return fmt.Errorf("renderer.present_mode must be one of: %v", []string{"vsync", "uncapped"})
	}
	if !slices.Contains([]int{1, 4, 8, 16}, c.Renderer.MSAA) {
		return errors.New("renderer.msaa must be 1, 4, 8 or 16")
	}
	if c.Renderer.FramesInFlight < 1 || c.Renderer.FramesInFlight > 3 {
		return errors.New("renderer.frames_in_flight must be between 1 and 3")
	}
	if c.Renderer.DrainTimeout <= 0 || c.Renderer.FenceTimeout <= 0 {
		return errors.New("renderer.drain_timeout and renderer.fence_timeout must be positive")
	}
	if c.Renderer.MaxDeviceRecoveries < 0 {
		return errors.New("renderer.max_device_recoveries must not be negative")
	}
	if c.Kernels.Dir == "" {
		return errors.New("kernels.dir is required")
	}
	if !slices.Contains(Solvers, c.Sim.Solver) {
		return fmt.Errorf("sim.solver must be one of: %v", Solvers)
	}
	if c.Sim.Theta <= 0 || c.Sim.Theta > 2 {
		return errors.New("sim.theta must be in (0, 2]")
	}
	if c.Sim.Delta <= 0 {
		return errors.New("sim.delta must be positive")
	}
	if c.Sim.Bodies < 0 || c.Sim.Workers < 0 || c.Sim.TickRate < 0 {
		return errors.New("sim.bodies, sim.workers and sim.tick_rate must not be negative")
	}
	if c.Sim.CheckInterval < 1 {
		return errors.New("sim.check_interval must be at least 1")
	}
	if c.Camera.Fovy <= 0 || c.Camera.Fovy >= 180 {
		return errors.New("camera.fovy must be in (0, 180)")
	}
	if c.Camera.Near <= 0 {
		return errors.New("camera.near must be positive")
	}
	if !slices.Contains([]string{"debug", "info", "warn", "error"}, c.Log.Level) {
		return fmt.Errorf("log.level must be one of: %v", []string{"debug", "info", "warn", "error"})
	}
	return nil
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return os.ExpandEnv(path)
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("window.title", cfg.Window.Title)
	v.SetDefault("window.width", cfg.Window.Width)
	v.SetDefault("window.height", cfg.Window.Height)

	v.SetDefault("renderer.present_mode", cfg.Renderer.PresentMode)
	v.SetDefault("renderer.msaa", cfg.Renderer.MSAA)
	v.SetDefault("renderer.force_software", cfg.Renderer.ForceSoftware)
	v.SetDefault("renderer.frames_in_flight", cfg.Renderer.FramesInFlight)
	v.SetDefault("renderer.drain_timeout", cfg.Renderer.DrainTimeout)
	v.SetDefault("renderer.fence_timeout", cfg.Renderer.FenceTimeout)
	v.SetDefault("renderer.max_device_recoveries", cfg.Renderer.MaxDeviceRecoveries)
	v.SetDefault("renderer.memory_budget_mb", cfg.Renderer.MemoryBudgetMB)
	v.SetDefault("renderer.frame_limit", cfg.Renderer.FrameLimit)

	v.SetDefault("kernels.dir", cfg.Kernels.Dir)
	v.SetDefault("kernels.source_dir", cfg.Kernels.SourceDir)
	v.SetDefault("kernels.format", cfg.Kernels.Format)

	v.SetDefault("sim.preset", cfg.Sim.Preset)
	v.SetDefault("sim.bodies", cfg.Sim.Bodies)
	v.SetDefault("sim.solver", cfg.Sim.Solver)
	v.SetDefault("sim.theta", cfg.Sim.Theta)
	v.SetDefault("sim.delta", cfg.Sim.Delta)
	v.SetDefault("sim.workers", cfg.Sim.Workers)
	v.SetDefault("sim.tick_rate", cfg.Sim.TickRate)
	v.SetDefault("sim.check_interval", cfg.Sim.CheckInterval)
	v.SetDefault("sim.seed", cfg.Sim.Seed)
	v.SetDefault("sim.scenario", cfg.Sim.Scenario)

	v.SetDefault("camera.fovy", cfg.Camera.Fovy)
	v.SetDefault("camera.near", cfg.Camera.Near)
	v.SetDefault("camera.move_speed", cfg.Camera.MoveSpeed)
	v.SetDefault("camera.rotate_speed", cfg.Camera.RotateSpeed)

	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.file", cfg.Log.File)
	v.SetDefault("log.console", cfg.Log.Console)

	v.SetDefault("profiling", cfg.Profiling)
}
