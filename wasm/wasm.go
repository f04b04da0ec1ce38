//go:build js && wasm

// Command wasm runs the simulation in the browser and exposes its control
// API as window.smokeFluid.
package main

import (
	"errors"
	"log/slog"
	"syscall/js"
	"time"

	"github.com/esimov/smoke-fluid/config"
	"github.com/esimov/smoke-fluid/control"
	"github.com/esimov/smoke-fluid/perf"
	"github.com/esimov/smoke-fluid/wasm/canvas"
)

type host struct {
	app    *control.App
	canvas *canvas.Canvas
	logger *slog.Logger
	raf    js.Func
}

func clock() time.Duration {
	ms := js.Global().Get("performance").Call("now").Float()
	return time.Duration(ms * float64(time.Millisecond))
}

func main() {
	c := canvas.NewCanvas("smoke-fluid")
	logger := slog.New(slog.NewTextHandler(c, nil))

	cfg, err := config.Load("")
	if err != nil {
		c.Alert(err.Error())
		return
	}
	h := &host{
		app:    control.New(c, cfg, clock, c, logger),
		canvas: c,
		logger: logger,
	}
	c.Listen(h.app, clock, func(err error) { h.failed(err) })
	h.export()

	if err := h.app.Main(); err != nil {
		c.Alert(err.Error())
		return
	}
	h.raf = js.FuncOf(func(this js.Value, args []js.Value) any {
		h.frame()
		js.Global().Call("requestAnimationFrame", h.raf)
		return nil
	})
	js.Global().Call("requestAnimationFrame", h.raf)

	select {}
}

func (h *host) frame() {
	if h.app.Halted() {
		return
	}
	if h.canvas.Fit() {
		if err := h.app.Resize(); err != nil {
			h.logger.Warn("resize failed", "error", err)
		}
	}
	res, err := h.app.Tick()
	if err != nil {
		h.failed(err)
		return
	}
	if res.Rendered {
		h.canvas.Blit()
	}
}

func (h *host) failed(err error) {
	if errors.Is(err, control.ErrFluidFailed) {
		h.logger.Error("fluid failed, call smokeFluid.main() to restart", "error", err)
		return
	}
	h.logger.Warn("tick failed", "error", err)
}

// export publishes the control API. Calls that draw outside the loop
// blit right away.
func (h *host) export() {
	api := js.Global().Get("Object").New()
	fn := func(name string, f func(args []js.Value) any) {
		api.Set(name, js.FuncOf(func(this js.Value, args []js.Value) any {
			return f(args)
		}))
	}
	errValue := func(err error) any {
		if err != nil {
			return err.Error()
		}
		h.canvas.Blit()
		return nil
	}
	stats := func(st perf.Stats, ok bool) any {
		if !ok {
			return nil
		}
		return map[string]any{
			"average_fps":  st.AverageFPS,
			"resolution":   st.Resolution,
			"subdivisions": st.Subdivisions,
		}
	}

	fn("main", func([]js.Value) any { return errValue(h.app.Main()) })
	fn("play", func([]js.Value) any { h.app.Play(); return nil })
	fn("stop", func([]js.Value) any { h.app.Stop(); return nil })
	fn("next_frame", func([]js.Value) any { return errValue(h.app.NextFrame()) })
	fn("toggle_playing", func([]js.Value) any { h.app.TogglePlaying(); return nil })
	fn("print_fluid_info", func([]js.Value) any { h.app.PrintFluidInfo(); return nil })
	fn("run_projection", func([]js.Value) any { return errValue(h.app.RunProjection()) })
	fn("run_advection", func([]js.Value) any { return errValue(h.app.RunAdvection()) })
	fn("run_solve_divergence_for_all", func([]js.Value) any { return errValue(h.app.RunSolveDivergenceForAll()) })
	fn("clear_scene", func([]js.Value) any { h.app.ClearScene(); return errValue(nil) })
	fn("get_stats", func([]js.Value) any { return stats(h.app.GetStats()) })
	fn("set_stats", func(args []js.Value) any {
		if len(args) < 2 {
			return "set_stats needs resolution and subdivisions"
		}
		res, sub := args[0].Int(), args[1].Int()
		if res < 0 || sub < 0 {
			return "set_stats needs unsigned values"
		}
		if err := h.app.SetStats(uint(res), uint(sub)); err != nil {
			return err.Error()
		}
		return nil
	})
	fn("adjust_to_device_performance", func([]js.Value) any {
		return stats(h.app.AdjustToDevicePerformance())
	})
	fn("toggle_overlay", func(args []js.Value) any {
		if len(args) < 1 {
			return "toggle_overlay needs an overlay name"
		}
		r := h.app.Exec(control.Command{Op: "toggle_overlay", Overlay: args[0].String()})
		if r.Error != "" {
			return r.Error
		}
		return nil
	})
	js.Global().Set("smokeFluid", api)
}
