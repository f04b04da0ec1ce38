package control

import (
	"errors"
	"fmt"

	"github.com/esimov/smoke-fluid/perf"
	"github.com/esimov/smoke-fluid/scene"
)

// ErrUnknownCommand is returned for an unsupported Command.Op.
var ErrUnknownCommand = errors.New("unknown command")

// Command is a request coming from a keyboard or a remote host. Op uses
// the names of the browser API, e.g. "next_frame" or "set_stats".
type Command struct {
	Op           string `json:"op"`
	Resolution   uint   `json:"resolution,omitempty"`
	Subdivisions uint   `json:"subdivisions,omitempty"`
	Overlay      string `json:"overlay,omitempty"`
}

// Reply is the outcome of a Command.
type Reply struct {
	Op    string      `json:"op"`
	Stats *perf.Stats `json:"stats,omitempty"`
	Info  string      `json:"info,omitempty"`
	Error string      `json:"error,omitempty"`
}

// Exec runs cmd against the app.
func (a *App) Exec(cmd Command) Reply {
	r := Reply{Op: cmd.Op}
	if err := a.exec(cmd, &r); err != nil {
		r.Error = err.Error()
	}
	return r
}

func (a *App) exec(cmd Command, r *Reply) error {
	switch cmd.Op {
	case "main":
		return a.Main()
	case "play":
		a.Play()
	case "stop":
		a.Stop()
	case "toggle_playing":
		a.TogglePlaying()
	case "next_frame":
		return a.NextFrame()
	case "print_fluid_info":
		r.Info = a.FluidInfo()
	case "run_projection":
		return a.RunProjection()
	case "run_advection":
		return a.RunAdvection()
	case "run_solve_divergence_for_all":
		return a.RunSolveDivergenceForAll()
	case "generate_random_velocities":
		return a.GenerateRandomVelocities()
	case "clear_scene":
		a.ClearScene()
	case "get_stats":
		if st, ok := a.GetStats(); ok {
			r.Stats = &st
		}
	case "set_stats":
		return a.SetStats(cmd.Resolution, cmd.Subdivisions)
	case "adjust_to_device_performance":
		if st, ok := a.AdjustToDevicePerformance(); ok {
			r.Stats = &st
		}
	case "toggle_overlay":
		o, ok := scene.ParseOverlay(cmd.Overlay)
		if !ok {
			return fmt.Errorf("%w: overlay %q", ErrUnknownCommand, cmd.Overlay)
		}
		a.Toggle(o)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Op)
	}
	return nil
}

// Step returns a set_stats command moving the resolution by dres and the
// subdivisions by dsub, starting from a pending request when there is one.
// It returns false before Main.
func (a *App) Step(dres, dsub int) (Command, bool) {
	st, ok := a.GetStats()
	if !ok {
		return Command{}, false
	}
	res, sub := st.Resolution, st.Subdivisions
	if r, s, ok := a.perf.Requested(); ok {
		res, sub = r, s
	}
	res = min(max(res+dres, perf.MinResolution), a.perf.MaxResolution())
	sub = max(sub+dsub, perf.MinSubdivisions)
	return Command{Op: "set_stats", Resolution: uint(res), Subdivisions: uint(sub)}, true
}

// Keymap returns the single key bindings shared by the keyboard hosts.
// Resolution and subdivision steps are bound by the hosts themselves.
func Keymap() map[rune]Command {
	km := map[rune]Command{
		'n': {Op: "next_frame"},
		'p': {Op: "run_projection"},
		'a': {Op: "run_advection"},
		'd': {Op: "run_solve_divergence_for_all"},
		'r': {Op: "generate_random_velocities"},
		'c': {Op: "clear_scene"},
		'i': {Op: "print_fluid_info"},
		's': {Op: "get_stats"},
		'm': {Op: "adjust_to_device_performance"},
		'R': {Op: "main"},
	}
	for i, name := range []string{"smoke", "velocity-colors", "velocities",
		"center-velocities", "divergence", "obstacles", "grid-lines", "particles", "brush"} {
		km[rune('1'+i)] = Command{Op: "toggle_overlay", Overlay: name}
	}
	return km
}
