// Package desktop runs the smoke simulation in an ebiten window.
package desktop

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/esimov/smoke-fluid/config"
	"github.com/esimov/smoke-fluid/control"
	"github.com/esimov/smoke-fluid/raster"
	"github.com/esimov/smoke-fluid/scene"
)

// Game implements ebiten.Game. The simulation is ticked from Update and
// paced by the scene, so TPS only bounds how often a step may run.
type Game struct {
	app     *control.App
	surface *raster.Surface
	cfg     config.DesktopConfig
	logger  *slog.Logger
	keys    map[rune]control.Command
	chars   []rune
	debug   bool
}

// NewGame creates the app drawing into a window-sized pixel buffer.
func NewGame(cfg *config.Config, logger *slog.Logger) *Game {
	if logger == nil {
		logger = slog.Default()
	}
	s := raster.New(cfg.Desktop.Width, cfg.Desktop.Height)
	return &Game{
		app:     control.New(s, cfg, control.SystemClock(), nil, logger),
		surface: s,
		cfg:     cfg.Desktop,
		logger:  logger,
		keys:    control.Keymap(),
	}
}

// Run opens the window and blocks until it is closed.
func Run(cfg *config.Config, logger *slog.Logger) error {
	g := NewGame(cfg, logger)
	if err := g.app.Main(); err != nil {
		return err
	}
	defer g.app.Close()

	ebiten.SetWindowSize(cfg.Desktop.Width, cfg.Desktop.Height)
	ebiten.SetWindowTitle(cfg.Desktop.Title)
	if err := ebiten.RunGame(g); err != nil && !errors.Is(err, ebiten.Termination) {
		return err
	}
	return nil
}

func (g *Game) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	g.keyboard()
	g.pointer()

	_, err := g.app.Tick()
	if errors.Is(err, control.ErrFluidFailed) {
		g.logger.Error("restarting simulation", "error", err)
		return g.app.Main()
	}
	if err != nil {
		g.logger.Warn("tick failed", "error", err)
	}
	return nil
}

func (g *Game) keyboard() {
	if inpututil.IsKeyJustPressed(ebiten.KeySpace) {
		g.app.TogglePlaying()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF1) {
		g.debug = !g.debug
	}

	g.chars = ebiten.AppendInputChars(g.chars[:0])
	for _, ch := range g.chars {
		var (
			cmd control.Command
			ok  bool
		)
		switch ch {
		case '+', '=':
			cmd, ok = g.app.Step(10, 0)
		case '-':
			cmd, ok = g.app.Step(-10, 0)
		case ']':
			cmd, ok = g.app.Step(0, 1)
		case '[':
			cmd, ok = g.app.Step(0, -1)
		default:
			cmd, ok = g.keys[ch]
		}
		if !ok {
			continue
		}
		r := g.app.Exec(cmd)
		switch {
		case r.Error != "":
			g.logger.Warn("command failed", "op", r.Op, "error", r.Error)
		case r.Stats != nil:
			g.logger.Info("stats", "op", r.Op, "stats", *r.Stats)
		case r.Info != "":
			g.app.PrintFluidInfo()
		}
	}
}

func (g *Game) pointer() {
	x, y := ebiten.CursorPosition()
	ev := scene.PointerEvent{X: float64(x), Y: float64(y), Time: g.app.Now()}
	switch {
	case inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft):
		g.app.PointerDown(ev)
	case inpututil.IsMouseButtonJustReleased(ebiten.MouseButtonLeft):
		g.app.PointerUp(ev)
	case ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft):
		if err := g.app.PointerMove(ev); err != nil {
			g.logger.Warn("pointer injection failed", "error", err)
		}
	}
}

func (g *Game) Draw(screen *ebiten.Image) {
	screen.WritePixels(g.surface.Pix())
	for _, l := range g.surface.Labels() {
		ebitenutil.DebugPrintAt(screen, l.Text, l.X, l.Y)
	}
	if g.debug {
		if st, ok := g.app.GetStats(); ok {
			ebitenutil.DebugPrint(screen, fmt.Sprintf("Sim: %.1f fps\nRes: %d  Sub: %d\nFPS: %.1f  TPS: %.1f",
				st.AverageFPS, st.Resolution, st.Subdivisions, ebiten.ActualFPS(), ebiten.ActualTPS()))
		}
	}
}

// Layout keeps the logical screen at the configured size.
func (g *Game) Layout(_, _ int) (int, int) { return g.cfg.Width, g.cfg.Height }
