package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	fluid "github.com/esimov/smoke-fluid/fluid-solver"
	"github.com/esimov/smoke-fluid/scene"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	p := cfg.FluidParams()
	if p.Resolution != 40 || p.Iterations != 40 || p.Overrelaxation != 1.7 || p.BlockOffset != 1 {
		t.Errorf("fluid params = %+v", p)
	}
	if cfg.Perf.Window != time.Second || cfg.Perf.Debounce != 300*time.Millisecond {
		t.Errorf("perf durations = %v, %v", cfg.Perf.Window, cfg.Perf.Debounce)
	}
	opts := cfg.SceneOptions()
	if opts.Overlays != scene.ShowSmoke|scene.ShowVelocityColors|scene.ShowBrush {
		t.Errorf("overlays = %v", opts.Overlays)
	}
	if opts.Inlet != nil {
		t.Errorf("default config has an inlet")
	}
	if lvl, _ := cfg.LogLevel(); lvl != slog.LevelInfo {
		t.Errorf("log level = %v", lvl)
	}
}

func TestLoadOverrides(t *testing.T) {
	path := writeFile(t, `
fluid:
  resolution: 64
  apply_forces: true
scene:
  overlays: [grid-lines, divergence]
  inlet: {x0: 0.4, y0: 0.8, x1: 0.6, y1: 0.9, smoke: 1}
perf:
  debounce: 1s
log:
  level: debug
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Fluid.Resolution != 64 || !cfg.Fluid.ApplyForces {
		t.Errorf("fluid = %+v", cfg.Fluid)
	}
	// Untouched fields keep their defaults.
	if cfg.Fluid.Iterations != 40 || cfg.Scene.MouseRadius != 10 {
		t.Errorf("defaults lost: %+v %+v", cfg.Fluid, cfg.Scene)
	}
	opts := cfg.SceneOptions()
	if opts.Overlays != scene.ShowGridLines|scene.ShowDivergence {
		t.Errorf("overlays = %v", opts.Overlays)
	}
	if opts.Inlet == nil || opts.Inlet.X1 != 0.6 || opts.Inlet.Smoke != 1 {
		t.Errorf("inlet = %+v", opts.Inlet)
	}
	if cfg.PerfOptions().Debounce != time.Second {
		t.Errorf("debounce = %v", cfg.PerfOptions().Debounce)
	}
	if lvl, _ := cfg.LogLevel(); lvl != slog.LevelDebug {
		t.Errorf("log level = %v", lvl)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"overrelaxation": "fluid:\n  overrelaxation: 2.5\n",
		"overlay":        "scene:\n  overlays: [fog]\n",
		"subdivisions":   "scene:\n  subdivisions: 0\n",
		"log level":      "log:\n  level: chatty\n",
		"window":         "perf:\n  window: 0s\n",
	}
	for name, content := range cases {
		_, err := Load(writeFile(t, content))
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("%s: Load = %v, want ErrInvalidConfig", name, err)
		}
	}

	_, err := Load(writeFile(t, "fluid:\n  delta_t: 0\n"))
	if !errors.Is(err, fluid.ErrInvalidParams) {
		t.Errorf("zero delta_t: Load = %v, want it to wrap ErrInvalidParams", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("missing file loaded")
	}
}

func TestWriteYAMLRoundTrip(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	cfg.Fluid.Resolution = 72
	cfg.Perf.Debounce = 750 * time.Millisecond

	path := filepath.Join(t.TempDir(), "out.yaml")
	if err := cfg.WriteYAML(path); err != nil {
		t.Fatal(err)
	}
	back, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if back.Fluid.Resolution != 72 || back.Perf.Debounce != 750*time.Millisecond {
		t.Errorf("round trip lost values: %+v %+v", back.Fluid, back.Perf)
	}
}

func TestLogger(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	var buf strings.Builder
	logger := cfg.Logger(&buf)
	logger.Debug("hidden")
	logger.Info("shown", "resolution", 40)
	if strings.Contains(buf.String(), "hidden") {
		t.Error("debug record logged at info level")
	}
	if !strings.Contains(buf.String(), "resolution=40") {
		t.Errorf("log = %q", buf.String())
	}
}
