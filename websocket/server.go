// Package websocket serves the simulation to browsers. Every connection
// gets its own simulation whose frames are streamed as display lists.
package websocket

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/esimov/smoke-fluid/config"
	"github.com/esimov/smoke-fluid/control"
	"github.com/esimov/smoke-fluid/detector"
	"github.com/esimov/smoke-fluid/scene"
)

const writeWait = 5 * time.Second

// ErrBadFrame is returned for camera frames that cannot be decoded.
var ErrBadFrame = errors.New("bad camera frame")

// message is a text frame sent by the browser. Ops not handled here are
// forwarded to control.App.Exec.
type message struct {
	control.Command
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  int     `json:"width"`
	Height int     `json:"height"`
}

// envelope is a text frame sent to the browser.
type envelope struct {
	Type   string         `json:"type"` // frame or reply
	Width  float64        `json:"width,omitempty"`
	Height float64        `json:"height,omitempty"`
	Ops    []Op           `json:"ops,omitempty"`
	Reply  *control.Reply `json:"reply,omitempty"`
}

// Server upgrades HTTP requests and runs one session per connection.
type Server struct {
	cfg      *config.Config
	detector *detector.Detector
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// NewServer creates the websocket endpoint. det may be nil, in which case
// camera frames are rejected.
func NewServer(cfg *config.Config, det *detector.Detector, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:      cfg,
		detector: det,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// ServeHTTP upgrades the connection and blocks until the session ends.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Upgrade the http connection to a WebSocket connection
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		var herr websocket.HandshakeError
		if !errors.As(err, &herr) {
			s.logger.Warn("websocket upgrade failed", "error", err)
		}
		return
	}
	defer conn.Close()

	logger := s.logger.With("remote", r.RemoteAddr)
	sess := newSession(conn, s.cfg, s.detector, logger)
	if err := sess.run(r.Context()); err != nil {
		logger.Warn("session ended", "error", err)
	}
}

type inbound struct {
	kind int
	data []byte
}

type session struct {
	conn     *websocket.Conn
	app      *control.App
	surface  *DisplayList
	detector *detector.Detector
	tracker  *detector.Tracker
	logger   *slog.Logger

	frameInterval time.Duration
	lastFrame     time.Time
}

func newSession(conn *websocket.Conn, cfg *config.Config, det *detector.Detector, logger *slog.Logger) *session {
	surface := NewDisplayList(cfg.Server.Width, cfg.Server.Height)
	return &session{
		conn:          conn,
		app:           control.New(surface, cfg, control.SystemClock(), nil, logger),
		surface:       surface,
		detector:      det,
		tracker:       detector.NewTracker(),
		logger:        logger,
		frameInterval: cfg.Server.FrameInterval,
	}
}

// readSocket listens for new messages being sent to the websocket and hands
// them to the session loop. msgs is closed when the connection ends.
func (s *session) readSocket(msgs chan<- inbound, done <-chan struct{}) {
	defer close(msgs)
	for {
		kind, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.logger.Warn("websocket read failed", "error", err)
			}
			return
		}
		select {
		case msgs <- inbound{kind: kind, data: data}:
		case <-done:
			return
		}
	}
}

func (s *session) run(ctx context.Context) error {
	if err := s.app.Main(); err != nil {
		return err
	}
	defer s.app.Close()

	msgs := make(chan inbound)
	done := make(chan struct{})
	defer close(done)
	go s.readSocket(msgs, done)

	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-msgs:
			if !ok {
				return nil
			}
			if err := s.handle(m); err != nil {
				return err
			}
		case <-timer.C:
			wait, err := s.tick()
			if err != nil {
				return err
			}
			timer.Reset(wait)
		}
	}
}

func (s *session) tick() (time.Duration, error) {
	res, err := s.app.Tick()
	if errors.Is(err, control.ErrFluidFailed) {
		s.logger.Error("restarting simulation", "error", err)
		if err := s.app.Main(); err != nil {
			return 0, err
		}
	} else if err != nil {
		s.logger.Warn("tick failed", "error", err)
	}
	if time.Since(s.lastFrame) >= s.frameInterval {
		if err := s.sendFrame(); err != nil {
			return 0, err
		}
	}
	return max(res.Wait, time.Millisecond), nil
}

func (s *session) sendFrame() error {
	ops := s.surface.Take()
	if ops == nil {
		return nil
	}
	s.lastFrame = time.Now()
	w, h := s.surface.Size()
	return s.write(envelope{Type: "frame", Width: w, Height: h, Ops: ops})
}

func (s *session) write(v envelope) error {
	if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return s.conn.WriteJSON(v)
}

func (s *session) reply(r control.Reply) error {
	return s.write(envelope{Type: "reply", Reply: &r})
}

func (s *session) handle(m inbound) error {
	if m.kind == websocket.BinaryMessage {
		if err := s.camera(m.data); err != nil {
			return s.reply(control.Reply{Op: "camera", Error: err.Error()})
		}
		return nil
	}

	var msg message
	if err := json.Unmarshal(m.data, &msg); err != nil {
		return s.reply(control.Reply{Error: fmt.Sprintf("decoding message: %v", err)})
	}
	r := s.command(msg)
	if err := s.reply(r); err != nil {
		return err
	}
	// Debug stages redraw immediately.
	return s.sendFrame()
}

func (s *session) command(msg message) control.Reply {
	ev := scene.PointerEvent{X: msg.X, Y: msg.Y, Time: s.app.Now()}
	r := control.Reply{Op: msg.Op}
	switch msg.Op {
	case "pointer_down":
		s.app.PointerDown(ev)
	case "pointer_move":
		if err := s.app.PointerMove(ev); err != nil {
			r.Error = err.Error()
		}
	case "pointer_up":
		s.app.PointerUp(ev)
	case "resize":
		w, h := s.surface.Size()
		s.surface.Resize(msg.Width, msg.Height)
		if err := s.app.Resize(); err != nil {
			s.surface.Resize(int(w), int(h))
			r.Error = err.Error()
		}
	default:
		return s.app.Exec(msg.Command)
	}
	return r
}

// camera decodes a binary frame, a little endian uint16 width and height
// followed by RGBA pixels, and feeds the tracked face to the pointer.
func (s *session) camera(data []byte) error {
	if s.detector == nil {
		return errors.New("face tracking disabled")
	}
	if len(data) < 4 {
		return fmt.Errorf("%w: %d bytes", ErrBadFrame, len(data))
	}
	w := int(binary.LittleEndian.Uint16(data[0:2]))
	h := int(binary.LittleEndian.Uint16(data[2:4]))
	pix := data[4:]
	if w == 0 || h == 0 || len(pix) != w*h*4 {
		return fmt.Errorf("%w: %d bytes for %dx%d", ErrBadFrame, len(pix), w, h)
	}
	img := &image.RGBA{Pix: pix, Stride: 4 * w, Rect: image.Rect(0, 0, w, h)}
	gray := detector.Grayscale(img)

	faces, err := s.detector.DetectFaces(gray, w, h)
	if err != nil {
		return err
	}
	sw, sh := s.surface.Size()
	action, ev := s.tracker.Track(faces, w, h, sw, sh, s.app.Now())
	switch action {
	case detector.Down:
		s.app.PointerDown(ev)
	case detector.Move:
		return s.app.PointerMove(ev)
	case detector.Up:
		s.app.PointerUp(ev)
	}
	return nil
}
