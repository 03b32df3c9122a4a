package follower

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-so101/pkg/joints"
	"github.com/teslashibe/go-so101/pkg/protocol"
)

const floatTolerance = 1e-9

func floatEquals(a, b float64) bool {
	return math.Abs(a-b) < floatTolerance
}

func testBridgeConfig(url string) Config {
	return Config{
		URL:    url,
		Schema: joints.Schema{"a", "b"},
		Kind:   KindSim,
		Conn:   testOptions(),
	}
}

func TestBridge_ObserveMergesTelemetry(t *testing.T) {
	serverGotClient := make(chan *websocket.Conn, 1)
	_, url := newWSServer(t, func(ws *websocket.Conn) {
		serverGotClient <- ws
		holdOpen(ws)
	})

	b := New(testBridgeConfig(url))
	if err := b.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer b.Disconnect()

	// Before any telemetry: zeros.
	snap := b.Observe()
	if !floatEquals(snap.Pos[0], 0) || !floatEquals(snap.Pos[1], 0) {
		t.Errorf("initial Pos = %v, want zeros", snap.Pos)
	}

	server := <-serverGotClient
	st := protocol.NewState([]string{"a", "b"}, []float64{0.2, 0.3}, 55.5)
	data, _ := st.Encode()
	if err := server.WriteMessage(websocket.TextMessage, data); err != nil {
		t.Fatalf("server write error = %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		snap = b.Observe()
		if floatEquals(snap.Pos[0], 0.2) && floatEquals(snap.Pos[1], 0.3) {
			if snap.Timestamp != 55.5 {
				t.Errorf("Timestamp = %v, want 55.5", snap.Timestamp)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("telemetry never reached cache, Pos = %v", snap.Pos)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestBridge_ObserveDropsMalformedFrames(t *testing.T) {
	serverGotClient := make(chan *websocket.Conn, 1)
	_, url := newWSServer(t, func(ws *websocket.Conn) {
		serverGotClient <- ws
		holdOpen(ws)
	})

	b := New(testBridgeConfig(url))
	if err := b.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer b.Disconnect()

	server := <-serverGotClient
	bad := [][]byte{
		[]byte(`not json`),
		[]byte(`{"type":"state","names":["a","b"],"joint_pos":[1.0]}`),
		[]byte(`{"type":"cmd","seq":1,"mode":"joint_position","names":[],"target":[],"timestamp":1}`),
	}
	for _, frame := range bad {
		if err := server.WriteMessage(websocket.TextMessage, frame); err != nil {
			t.Fatalf("server write error = %v", err)
		}
	}

	// Give the pump time to deliver, then drain. Nothing may have
	// reached the cache, and Observe must not panic or error.
	time.Sleep(100 * time.Millisecond)
	for i := 0; i < len(bad)+1; i++ {
		snap := b.Observe()
		if !floatEquals(snap.Pos[0], 0) || !floatEquals(snap.Pos[1], 0) {
			t.Fatalf("bad frame reached cache: %v", snap.Pos)
		}
	}
}

func TestBridge_ActSendsShapedCommand(t *testing.T) {
	received := make(chan []byte, 16)
	_, url := newWSServer(t, func(ws *websocket.Conn) {
		defer ws.Close()
		for {
			_, data, err := ws.ReadMessage()
			if err != nil {
				return
			}
			received <- data
		}
	})

	cfg := testBridgeConfig(url)
	cfg.Limits = joints.Limits{MaxRelative: map[string]float64{"a": 0.1, "b": 0.1}}

	b := New(cfg)
	if err := b.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer b.Disconnect()

	goal, err := b.Act(map[string]float64{"a": 1.0, "b": -1.0})
	if err != nil {
		t.Fatalf("Act() error = %v", err)
	}
	if !floatEquals(goal[0], 0.1) || !floatEquals(goal[1], -0.1) {
		t.Errorf("goal = %v, want [0.1 -0.1]", goal)
	}

	select {
	case data := <-received:
		frame, err := protocol.Decode(data)
		if err != nil {
			t.Fatalf("endpoint got undecodable frame: %v", err)
		}
		cmd, ok := frame.(*protocol.Command)
		if !ok {
			t.Fatalf("endpoint got %T, want *Command", frame)
		}
		if cmd.Seq != 1 {
			t.Errorf("Seq = %d, want 1", cmd.Seq)
		}
		if cmd.Mode != protocol.ModeJointPosition {
			t.Errorf("Mode = %q, want joint_position", cmd.Mode)
		}
		if !floatEquals(cmd.Target[0], 0.1) || !floatEquals(cmd.Target[1], -0.1) {
			t.Errorf("Target = %v, want [0.1 -0.1]", cmd.Target)
		}
		if cmd.Timestamp == 0 {
			t.Error("Timestamp not set")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("endpoint never received the command")
	}

	// Optimistic update: the cache now reports the shaped target.
	snap := b.Observe()
	if !floatEquals(snap.Pos[0], 0.1) || !floatEquals(snap.Pos[1], -0.1) {
		t.Errorf("cache after Act = %v, want [0.1 -0.1]", snap.Pos)
	}

	// Sequence numbers increase monotonically.
	if _, err := b.Act(map[string]float64{"a": 0.15}); err != nil {
		t.Fatalf("Act() error = %v", err)
	}
	select {
	case data := <-received:
		var cmd protocol.Command
		if err := json.Unmarshal(data, &cmd); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if cmd.Seq != 2 {
			t.Errorf("second Seq = %d, want 2", cmd.Seq)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("endpoint never received the second command")
	}
}

func TestBridge_ActEmptyTargetHolds(t *testing.T) {
	received := make(chan []byte, 16)
	_, url := newWSServer(t, func(ws *websocket.Conn) {
		defer ws.Close()
		for {
			_, data, err := ws.ReadMessage()
			if err != nil {
				return
			}
			received <- data
		}
	})

	b := New(testBridgeConfig(url))
	if err := b.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer b.Disconnect()

	if _, err := b.Act(map[string]float64{"a": 0.3, "b": -0.2}); err != nil {
		t.Fatalf("Act() error = %v", err)
	}

	// Empty target: no-op move, previous positions sent again.
	goal, err := b.Act(map[string]float64{})
	if err != nil {
		t.Fatalf("Act() error = %v", err)
	}
	if !floatEquals(goal[0], 0.3) || !floatEquals(goal[1], -0.2) {
		t.Errorf("goal = %v, want held [0.3 -0.2]", goal)
	}
}

func TestBridge_ActWhileDisconnectedIsNonFatal(t *testing.T) {
	b := New(testBridgeConfig("ws://127.0.0.1:1"))

	goal, err := b.Act(map[string]float64{"a": 0.2})
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("Act() error = %v, want ErrNotConnected", err)
	}
	// The shaped vector and the optimistic update still happen.
	if !floatEquals(goal[0], 0.2) {
		t.Errorf("goal = %v, want [0.2 ...]", goal)
	}
	snap := b.Observe()
	if !floatEquals(snap.Pos[0], 0.2) {
		t.Errorf("cache = %v, want optimistic 0.2", snap.Pos)
	}
}

func TestBridge_CalibratorVariants(t *testing.T) {
	simBridge := New(testBridgeConfig("ws://127.0.0.1:1"))
	if !simBridge.Calibrated() {
		t.Error("sim bridge Calibrated() = false, want true")
	}
	if err := simBridge.Calibrate(); err != nil {
		t.Errorf("sim Calibrate() error = %v", err)
	}
	if err := simBridge.Configure(); err != nil {
		t.Errorf("sim Configure() error = %v", err)
	}

	cfg := testBridgeConfig("ws://127.0.0.1:1")
	cfg.Kind = KindPhysical
	phys := New(cfg)
	if !phys.Calibrated() {
		t.Error("physical bridge Calibrated() = false, want true")
	}
	if err := phys.Calibrate(); err != nil {
		t.Errorf("physical Calibrate() error = %v", err)
	}
}
