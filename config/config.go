// Package config provides configuration loading for the simulator hosts.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	fluid "github.com/esimov/smoke-fluid/fluid-solver"
	"github.com/esimov/smoke-fluid/perf"
	"github.com/esimov/smoke-fluid/scene"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds every tunable of the simulator and its hosts.
type Config struct {
	Fluid    FluidConfig    `yaml:"fluid"`
	Scene    SceneConfig    `yaml:"scene"`
	Perf     PerfConfig     `yaml:"perf"`
	Server   ServerConfig   `yaml:"server"`
	Terminal TerminalConfig `yaml:"terminal"`
	Desktop  DesktopConfig  `yaml:"desktop"`
	Log      LogConfig      `yaml:"log"`
}

// FluidConfig holds the solver parameters.
type FluidConfig struct {
	Resolution     int     `yaml:"resolution"` // cells along the shorter surface side
	Iterations     int     `yaml:"iterations"`
	DeltaT         float64 `yaml:"delta_t"` // seconds
	Overrelaxation float64 `yaml:"overrelaxation"`
	Gravity        float64 `yaml:"gravity"`
	ApplyForces    bool    `yaml:"apply_forces"`
	SmokeDecay     float64 `yaml:"smoke_decay"`
	BlockOffset    int     `yaml:"block_offset"`
}

// SceneConfig holds the interaction and render settings.
type SceneConfig struct {
	MouseRadius      int          `yaml:"mouse_radius"`
	Subdivisions     int          `yaml:"subdivisions"`
	DyeAmount        float64      `yaml:"dye_amount"`
	ParticleLifetime float64      `yaml:"particle_lifetime"`
	MaxParticles     int          `yaml:"max_particles"`
	ArrowScale       float64      `yaml:"arrow_scale"`
	Seed             uint64       `yaml:"seed"`
	Overlays         []string     `yaml:"overlays"`
	Inlet            *InletConfig `yaml:"inlet"`
}

// InletConfig is a source rectangle in fractions of the surface size.
type InletConfig struct {
	X0    float64 `yaml:"x0"`
	Y0    float64 `yaml:"y0"`
	X1    float64 `yaml:"x1"`
	Y1    float64 `yaml:"y1"`
	Smoke float64 `yaml:"smoke"`
}

// PerfConfig holds the performance controller settings.
type PerfConfig struct {
	Window             time.Duration `yaml:"window"`
	Debounce           time.Duration `yaml:"debounce"`
	CalibrationWindows int           `yaml:"calibration_windows"`
	MaxResolution      int           `yaml:"max_resolution"`
	TargetFPS          float64       `yaml:"target_fps"` // 0 = 1/delta_t
	HistorySize        int           `yaml:"history_size"`
	CSVPath            string        `yaml:"csv_path"` // empty disables the CSV log
}

// ServerConfig holds the websocket host settings.
type ServerConfig struct {
	Address       string        `yaml:"address"`
	Prefix        string        `yaml:"prefix"`
	Root          string        `yaml:"root"`
	CascadeDir    string        `yaml:"cascade_dir"`
	FrameInterval time.Duration `yaml:"frame_interval"`
	Width         int           `yaml:"width"`
	Height        int           `yaml:"height"`
}

// TerminalConfig maps terminal cells to surface pixels.
type TerminalConfig struct {
	CellWidth  int `yaml:"cell_width"`
	CellHeight int `yaml:"cell_height"`
}

// DesktopConfig holds the window settings.
type DesktopConfig struct {
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	Title  string `yaml:"title"`
}

// LogConfig holds the logging settings.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Load returns the embedded defaults overridden by the YAML file at path.
// An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Only fields present in the file are overwritten.
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values no host can work with.
func (c *Config) Validate() error {
	if err := c.FluidParams().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.Scene.Subdivisions < 1 {
		return fmt.Errorf("%w: scene.subdivisions %d", ErrInvalidConfig, c.Scene.Subdivisions)
	}
	if c.Scene.MouseRadius < 0 {
		return fmt.Errorf("%w: scene.mouse_radius %d", ErrInvalidConfig, c.Scene.MouseRadius)
	}
	if _, err := c.overlays(); err != nil {
		return err
	}
	if c.Perf.Window <= 0 {
		return fmt.Errorf("%w: perf.window %v", ErrInvalidConfig, c.Perf.Window)
	}
	if c.Server.Width < 1 || c.Server.Height < 1 {
		return fmt.Errorf("%w: server surface %dx%d", ErrInvalidConfig, c.Server.Width, c.Server.Height)
	}
	if c.Terminal.CellWidth < 1 || c.Terminal.CellHeight < 1 {
		return fmt.Errorf("%w: terminal cell %dx%d", ErrInvalidConfig, c.Terminal.CellWidth, c.Terminal.CellHeight)
	}
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	return nil
}

// FluidParams converts the fluid section to solver parameters.
func (c *Config) FluidParams() fluid.Params {
	f := c.Fluid
	return fluid.Params{
		Resolution:     f.Resolution,
		Iterations:     f.Iterations,
		DeltaT:         f.DeltaT,
		Overrelaxation: f.Overrelaxation,
		Gravity:        f.Gravity,
		ApplyForces:    f.ApplyForces,
		SmokeDecay:     f.SmokeDecay,
		BlockOffset:    f.BlockOffset,
	}
}

// SceneOptions converts the scene section to scene options.
func (c *Config) SceneOptions() scene.Options {
	s := c.Scene
	o, _ := c.overlays()
	opts := scene.Options{
		MouseRadius:      s.MouseRadius,
		Subdivisions:     s.Subdivisions,
		DyeAmount:        s.DyeAmount,
		ParticleLifetime: s.ParticleLifetime,
		MaxParticles:     s.MaxParticles,
		ArrowScale:       s.ArrowScale,
		Overlays:         o,
		Seed:             s.Seed,
	}
	if in := s.Inlet; in != nil {
		opts.Inlet = &scene.Inlet{X0: in.X0, Y0: in.Y0, X1: in.X1, Y1: in.Y1, Smoke: in.Smoke}
	}
	return opts
}

func (c *Config) overlays() (scene.Overlay, error) {
	var o scene.Overlay
	for _, name := range c.Scene.Overlays {
		v, ok := scene.ParseOverlay(name)
		if !ok {
			return 0, fmt.Errorf("%w: unknown overlay %q", ErrInvalidConfig, name)
		}
		o |= v
	}
	return o, nil
}

// PerfOptions converts the perf section to controller options.
func (c *Config) PerfOptions() perf.Options {
	p := c.Perf
	return perf.Options{
		Window:             p.Window,
		Debounce:           p.Debounce,
		CalibrationWindows: p.CalibrationWindows,
		MaxResolution:      p.MaxResolution,
		TargetFPS:          p.TargetFPS,
		HistorySize:        p.HistorySize,
	}
}

// LogLevel parses log.level.
func (c *Config) LogLevel() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.ToUpper(c.Log.Level))); err != nil {
		return 0, fmt.Errorf("%w: log.level %q", ErrInvalidConfig, c.Log.Level)
	}
	return l, nil
}

// Logger returns a text logger writing to w at log.level.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	lvl, err := c.LogLevel()
	if err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}

// WriteYAML saves the configuration to path.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
