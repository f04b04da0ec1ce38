// Package perf measures the achieved frame rate and steers the fluid
// resolution and render subdivisions against it.
package perf

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"
)

// ErrInvalidStats is returned by SetStats for degenerate requests.
var ErrInvalidStats = errors.New("invalid stats request")

const (
	MinResolution   = 20
	MinSubdivisions = 1
)

// Stats is the snapshot exposed to hosts.
type Stats struct {
	AverageFPS   float64 `json:"average_fps"`
	Resolution   int     `json:"resolution"`
	Subdivisions int     `json:"subdivisions"`
}

// Target is the thing being tuned, usually a scene.
type Target interface {
	Resolution() int
	Subdivisions() int
	DeltaT() time.Duration
	Reconfigure(resolution, subdivisions int) error
}

// Options tune the controller.
type Options struct {
	Window             time.Duration // sampling window
	Debounce           time.Duration // quiet period before a SetStats request is applied
	CalibrationWindows int           // windows needed before AdjustToDevicePerformance
	MaxResolution      int
	TargetFPS          float64 // 0 means 1/DeltaT
	HistorySize        int
}

func DefaultOptions() Options {
	return Options{
		Window:             time.Second,
		Debounce:           300 * time.Millisecond,
		CalibrationWindows: 2,
		MaxResolution:      200,
		HistorySize:        60,
	}
}

type request struct {
	resolution, subdivisions int
	at                       time.Duration
}

// Controller samples frames in rolling windows. It is not safe for
// concurrent use and is driven from the host loop through Observe.
type Controller struct {
	target Target
	opts   Options
	sink   Sink
	logger *slog.Logger

	started     bool
	windowStart time.Duration
	frames      int
	averageFPS  float64

	// fps of the completed windows since the last reconfiguration
	calibration []float64
	calibrated  bool
	history     []float64

	pending *request
}

// New creates a controller for t. sink may be nil.
func New(t Target, opts Options, sink Sink, logger *slog.Logger) *Controller {
	if opts.Window <= 0 {
		opts.Window = time.Second
	}
	if opts.CalibrationWindows < 1 {
		opts.CalibrationWindows = 1
	}
	if opts.MaxResolution < MinResolution {
		opts.MaxResolution = MinResolution
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		target: t,
		opts:   opts,
		sink:   sink,
		logger: logger,
	}
}

// SetTarget switches the controller to a new target and restarts sampling.
func (c *Controller) SetTarget(t Target) {
	c.target = t
	c.pending = nil
	c.calibrated = false
	c.resetSampling()
}

func (c *Controller) maxFPS() float64 {
	return 1 / c.target.DeltaT().Seconds()
}

func (c *Controller) targetFPS() float64 {
	if c.opts.TargetFPS > 0 {
		return c.opts.TargetFPS
	}
	return c.maxFPS()
}

// Observe records one frame at host time now, closes the sampling window
// when it is full and applies a debounced SetStats request once it has
// been quiet for long enough. The first frame after a (re)start only opens
// the window.
func (c *Controller) Observe(now time.Duration) error {
	if !c.started {
		c.started = true
		c.windowStart = now
	} else {
		c.frames++
		if elapsed := now - c.windowStart; elapsed >= c.opts.Window {
			c.closeWindow(now, elapsed)
		}
	}

	return c.applyDue(now)
}

// Idle applies a due SetStats request without counting a frame. Sampling
// restarts with the next Observe so paused time is not averaged in.
func (c *Controller) Idle(now time.Duration) error {
	c.started = false
	c.frames = 0
	return c.applyDue(now)
}

func (c *Controller) applyDue(now time.Duration) error {
	if c.pending == nil || now-c.pending.at < c.opts.Debounce {
		return nil
	}
	req := *c.pending
	c.pending = nil
	return c.apply(req.resolution, req.subdivisions, now)
}

func (c *Controller) closeWindow(now, elapsed time.Duration) {
	fps := math.Min(float64(c.frames)/elapsed.Seconds(), c.maxFPS())
	c.averageFPS = fps
	c.calibration = append(c.calibration, fps)
	c.history = append(c.history, fps)
	if n := c.opts.HistorySize; n > 0 && len(c.history) > n {
		c.history = c.history[len(c.history)-n:]
	}

	sample := Sample{
		At:           now,
		Frames:       c.frames,
		AverageFPS:   fps,
		Resolution:   c.target.Resolution(),
		Subdivisions: c.target.Subdivisions(),
	}
	if c.sink != nil {
		if err := c.sink.Record(sample); err != nil {
			c.logger.Warn("perf sample dropped", "error", err)
		}
	}
	c.logger.Debug("perf window", "sample", sample)

	c.windowStart = now
	c.frames = 0
}

func (c *Controller) resetSampling() {
	c.started = false
	c.frames = 0
	c.calibration = c.calibration[:0]
}

func (c *Controller) apply(resolution, subdivisions int, now time.Duration) error {
	if err := c.target.Reconfigure(resolution, subdivisions); err != nil {
		return fmt.Errorf("reconfigure: %w", err)
	}
	c.resetSampling()
	c.started = true
	c.windowStart = now
	return nil
}

// Stats returns the average FPS of the last completed window together with
// the target's current resolution and subdivisions.
func (c *Controller) Stats() Stats {
	return Stats{
		AverageFPS:   c.averageFPS,
		Resolution:   c.target.Resolution(),
		Subdivisions: c.target.Subdivisions(),
	}
}

// History returns the average FPS of the most recent windows, oldest first.
func (c *Controller) History() []float64 {
	return append([]float64(nil), c.history...)
}

// MaxResolution is the largest resolution SetStats accepts.
func (c *Controller) MaxResolution() int { return c.opts.MaxResolution }

// Pending reports whether a SetStats request is waiting for its debounce.
func (c *Controller) Pending() bool { return c.pending != nil }

// Requested returns the values of the pending SetStats request.
func (c *Controller) Requested() (resolution, subdivisions int, ok bool) {
	if c.pending == nil {
		return 0, 0, false
	}
	return c.pending.resolution, c.pending.subdivisions, true
}

// SetStats requests a new resolution and subdivision count. Invalid values
// are rejected without touching any earlier request. Valid requests replace
// the pending one and are applied by Observe after the debounce period.
func (c *Controller) SetStats(resolution, subdivisions int, now time.Duration) error {
	if resolution < MinResolution {
		return fmt.Errorf("%w: resolution %d below %d", ErrInvalidStats, resolution, MinResolution)
	}
	if resolution > c.opts.MaxResolution {
		return fmt.Errorf("%w: resolution %d above %d", ErrInvalidStats, resolution, c.opts.MaxResolution)
	}
	if subdivisions < MinSubdivisions {
		return fmt.Errorf("%w: subdivisions %d below %d", ErrInvalidStats, subdivisions, MinSubdivisions)
	}
	c.pending = &request{resolution: resolution, subdivisions: subdivisions, at: now}
	return nil
}

// AdjustToDevicePerformance calibrates once against the frame rate measured
// at the current resolution. Rendering cost grows with the cell count, so
// the resolution is scaled by sqrt(fps/target). Subdivisions are dropped by
// one when the device is under budget. It reports false when calibration
// already ran, a SetStats request is pending or not enough windows have
// been measured yet.
func (c *Controller) AdjustToDevicePerformance(now time.Duration) (Stats, bool) {
	if c.calibrated || c.pending != nil {
		return Stats{}, false
	}
	n := c.opts.CalibrationWindows
	if len(c.calibration) < n {
		return Stats{}, false
	}
	fps := stat.Mean(c.calibration[len(c.calibration)-n:], nil)
	target := c.targetFPS()

	res := c.target.Resolution()
	sub := c.target.Subdivisions()
	newRes := int(math.Round(float64(res) * math.Sqrt(fps/target)))
	newRes = min(max(newRes, MinResolution), c.opts.MaxResolution)
	newSub := sub
	if fps < target && sub > MinSubdivisions {
		newSub--
	}

	if newRes != res || newSub != sub {
		if err := c.apply(newRes, newSub, now); err != nil {
			c.logger.Error("calibration failed", "error", err)
			return Stats{}, false
		}
	}
	c.calibrated = true
	c.logger.Info("calibrated to device",
		"fps", fps,
		"target_fps", target,
		"resolution", newRes,
		"subdivisions", newSub,
	)
	return Stats{AverageFPS: fps, Resolution: newRes, Subdivisions: newSub}, true
}
