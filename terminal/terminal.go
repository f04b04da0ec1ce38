// Package terminal runs the smoke simulation inside a terminal using termbox.
package terminal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/nsf/termbox-go"

	"github.com/esimov/smoke-fluid/config"
	"github.com/esimov/smoke-fluid/control"
	"github.com/esimov/smoke-fluid/scene"
)

// Terminal is the termbox host. Input is polled on a helper goroutine and
// applied between ticks on the loop goroutine.
type Terminal struct {
	app     *control.App
	surface *Surface
	logger  *slog.Logger
	keys    map[rune]control.Command
}

// New creates a terminal host. Debug dumps are written to out since the
// screen is owned by termbox.
func New(cfg *config.Config, out io.Writer, logger *slog.Logger) *Terminal {
	return newTerminal(cfg, control.SystemClock(), out, logger)
}

func newTerminal(cfg *config.Config, clock control.Clock, out io.Writer, logger *slog.Logger) *Terminal {
	if logger == nil {
		logger = slog.Default()
	}
	s := NewSurface(80, 24, cfg.Terminal.CellWidth, cfg.Terminal.CellHeight)
	return &Terminal{
		app:     control.New(s, cfg, clock, out, logger),
		surface: s,
		logger:  logger,
		keys:    control.Keymap(),
	}
}

// App returns the app driven by the terminal.
func (t *Terminal) App() *control.App { return t.app }

// Run takes over the terminal until the user quits or ctx is done.
func (t *Terminal) Run(ctx context.Context) error {
	if err := termbox.Init(); err != nil {
		return fmt.Errorf("termbox init: %w", err)
	}
	defer termbox.Close()
	termbox.SetInputMode(termbox.InputEsc | termbox.InputMouse)
	termbox.SetOutputMode(termbox.Output256)

	t.surface.Resize(termbox.Size())
	if err := t.app.Main(); err != nil {
		return err
	}
	defer t.app.Close()

	events := make(chan termbox.Event)
	done := make(chan struct{})
	defer termbox.Interrupt()
	defer close(done)
	go func() {
		for {
			ev := termbox.PollEvent()
			if ev.Type == termbox.EventInterrupt {
				return
			}
			select {
			case events <- ev:
			case <-done:
				return
			}
		}
	}()

	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-events:
			quit, err := t.Handle(ev)
			if err != nil {
				t.logger.Warn("event failed", "error", err)
			}
			if quit {
				return nil
			}
			if err := t.surface.Flush(); err != nil {
				return fmt.Errorf("termbox flush: %w", err)
			}
		case <-timer.C:
			wait, err := t.tick()
			if err != nil {
				return err
			}
			timer.Reset(wait)
		}
	}
}

func (t *Terminal) tick() (time.Duration, error) {
	res, err := t.app.Tick()
	if errors.Is(err, control.ErrFluidFailed) {
		t.logger.Error("restarting simulation", "error", err)
		if err := t.app.Main(); err != nil {
			return 0, err
		}
		return time.Millisecond, nil
	}
	if err != nil {
		t.logger.Warn("tick failed", "error", err)
	}
	if res.Rendered {
		if err := t.surface.Flush(); err != nil {
			return 0, fmt.Errorf("termbox flush: %w", err)
		}
	}
	if res.Wait <= 0 {
		return time.Millisecond, nil
	}
	return res.Wait, nil
}

// Handle applies one termbox event and reports whether the user quit.
func (t *Terminal) Handle(ev termbox.Event) (bool, error) {
	switch ev.Type {
	case termbox.EventKey:
		return t.key(ev)
	case termbox.EventMouse:
		return false, t.mouse(ev)
	case termbox.EventResize:
		t.surface.Resize(ev.Width, ev.Height)
		return false, t.app.Resize()
	case termbox.EventError:
		return true, ev.Err
	}
	return false, nil
}

func (t *Terminal) key(ev termbox.Event) (bool, error) {
	switch ev.Key {
	case termbox.KeyEsc, termbox.KeyCtrlC:
		return true, nil
	case termbox.KeySpace:
		t.app.TogglePlaying()
		return false, nil
	}

	var cmd control.Command
	switch ev.Ch {
	case 'q':
		return true, nil
	case '+', '=':
		cmd, _ = t.app.Step(10, 0)
	case '-':
		cmd, _ = t.app.Step(-10, 0)
	case ']':
		cmd, _ = t.app.Step(0, 1)
	case '[':
		cmd, _ = t.app.Step(0, -1)
	default:
		var ok bool
		if cmd, ok = t.keys[ev.Ch]; !ok {
			return false, nil
		}
	}
	r := t.app.Exec(cmd)
	if r.Stats != nil {
		t.logger.Info("stats", "op", r.Op, "stats", *r.Stats)
	}
	if r.Info != "" {
		t.app.PrintFluidInfo()
	}
	if r.Error != "" {
		return false, fmt.Errorf("%s: %s", r.Op, r.Error)
	}
	return false, nil
}

func (t *Terminal) mouse(ev termbox.Event) error {
	x, y := t.surface.ToPixels(ev.MouseX, ev.MouseY)
	pe := scene.PointerEvent{X: x, Y: y, Time: t.app.Now()}
	sc := t.app.Scene()
	if sc == nil {
		return nil
	}
	switch ev.Key {
	case termbox.MouseLeft:
		// termbox reports a drag as repeated presses.
		if !sc.Dragging() {
			t.app.PointerDown(pe)
			return nil
		}
		return t.app.PointerMove(pe)
	case termbox.MouseRelease:
		t.app.PointerUp(pe)
	}
	return nil
}
