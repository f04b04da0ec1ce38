package websocket

import (
	"encoding/binary"
	"encoding/json"
	"image/color"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/esimov/smoke-fluid/config"
)

func TestDisplayList(t *testing.T) {
	d := NewDisplayList(100, 50)
	if w, h := d.Size(); w != 100 || h != 50 {
		t.Fatalf("size = %vx%v", w, h)
	}
	if d.Take() != nil {
		t.Fatal("empty list reported a frame")
	}
	d.Clear(color.Black)
	d.FillRect(1, 2, 3, 4, color.White)
	d.StrokeLine(0, 0, 5, 5, color.RGBA{R: 255, A: 255})
	d.StrokeArc(10, 10, 3, color.White)
	d.FillText(1, 1, "0.50", color.White)

	ops := d.Take()
	if len(ops) != 5 {
		t.Fatalf("%d ops, want 5", len(ops))
	}
	if ops[0].K != "clear" || ops[0].C != "#000000" {
		t.Errorf("clear op = %+v", ops[0])
	}
	if ops[1] != (Op{K: "rect", X: 1, Y: 2, W: 3, H: 4, C: "#ffffff"}) {
		t.Errorf("rect op = %+v", ops[1])
	}
	if ops[2].C != "#ff0000" || ops[2].X1 != 5 {
		t.Errorf("line op = %+v", ops[2])
	}
	if ops[4].T != "0.50" {
		t.Errorf("text op = %+v", ops[4])
	}
	if d.Take() != nil {
		t.Error("frame taken twice")
	}

	d.Clear(color.White)
	if ops := d.Take(); len(ops) != 1 {
		t.Errorf("clear did not reset the list: %d ops", len(ops))
	}
}

func newTestServer(t *testing.T) *websocket.Conn {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatal(err)
	}
	cfg.Server.Width, cfg.Server.Height = 100, 100
	cfg.Server.FrameInterval = 10 * time.Millisecond
	cfg.Fluid.Resolution = 20
	cfg.Fluid.Iterations = 5

	srv := httptest.NewServer(NewServer(cfg, nil, nil))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// next reads envelopes until one of the given type arrives.
func next(t *testing.T, conn *websocket.Conn, typ string) envelope {
	t.Helper()
	if err := conn.SetReadDeadline(time.Now().Add(5 * time.Second)); err != nil {
		t.Fatal(err)
	}
	for {
		var env envelope
		if err := conn.ReadJSON(&env); err != nil {
			t.Fatalf("waiting for %s: %v", typ, err)
		}
		if env.Type == typ {
			return env
		}
	}
}

func send(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		t.Fatal(err)
	}
}

func TestSessionStreamsFrames(t *testing.T) {
	conn := newTestServer(t)
	f := next(t, conn, "frame")
	if f.Width != 100 || f.Height != 100 {
		t.Errorf("frame size = %vx%v", f.Width, f.Height)
	}
	if len(f.Ops) == 0 || f.Ops[0].K != "clear" {
		t.Errorf("frame does not start with a clear: %+v", f.Ops[:min(len(f.Ops), 1)])
	}
}

func TestSessionCommands(t *testing.T) {
	conn := newTestServer(t)

	send(t, conn, map[string]any{"op": "get_stats"})
	r := next(t, conn, "reply").Reply
	if r == nil || r.Op != "get_stats" || r.Stats == nil || r.Stats.Resolution != 20 {
		t.Fatalf("get_stats reply = %+v", r)
	}

	send(t, conn, map[string]any{"op": "set_stats", "resolution": 10, "subdivisions": 1})
	if r := next(t, conn, "reply").Reply; r.Error == "" {
		t.Errorf("set_stats(10, 1) accepted: %+v", r)
	}

	send(t, conn, map[string]any{"op": "resize", "width": 200, "height": 100})
	if r := next(t, conn, "reply").Reply; r.Error != "" {
		t.Fatalf("resize: %s", r.Error)
	}
	if f := next(t, conn, "frame"); f.Width != 200 {
		t.Errorf("frame width after resize = %v", f.Width)
	}

	send(t, conn, map[string]any{"op": "resize", "width": 1 << 30, "height": 1})
	if r := next(t, conn, "reply").Reply; r.Error == "" {
		t.Error("oversized resize accepted")
	}
	if f := next(t, conn, "frame"); f.Width != 200 || f.Height != 100 {
		t.Errorf("frame after rejected resize = %vx%v", f.Width, f.Height)
	}

	send(t, conn, map[string]any{"op": "pointer_down", "x": 50, "y": 50})
	if r := next(t, conn, "reply").Reply; r.Op != "pointer_down" || r.Error != "" {
		t.Errorf("pointer_down reply = %+v", r)
	}

	send(t, conn, map[string]any{"op": "nope"})
	if r := next(t, conn, "reply").Reply; r.Error == "" {
		t.Error("unknown op accepted")
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte("{")); err != nil {
		t.Fatal(err)
	}
	if r := next(t, conn, "reply").Reply; r.Error == "" {
		t.Error("malformed json accepted")
	}
}

func TestSessionRejectsCameraWithoutDetector(t *testing.T) {
	conn := newTestServer(t)
	frame := make([]byte, 4+2*2*4)
	binary.LittleEndian.PutUint16(frame[0:], 2)
	binary.LittleEndian.PutUint16(frame[2:], 2)
	if err := conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		t.Fatal(err)
	}
	if r := next(t, conn, "reply").Reply; r.Op != "camera" || r.Error == "" {
		t.Errorf("camera reply = %+v", r)
	}
}
