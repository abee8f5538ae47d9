package multiplayer

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type envelope struct {
	Type    string         `json:"type"`
	Payload map[string]int `json:"payload,omitempty"`
}

func TestChannelSessionDropsOldest(t *testing.T) {
	s := NewChannelSession("s-1", JSON, 2)

	for _, f := range []string{"a", "b", "c"} {
		if !s.Send([]byte(f)) {
			t.Fatalf("Send(%q) reported closed session", f)
		}
	}

	got := []string{string(<-s.Frames()), string(<-s.Frames())}
	if got[0] != "b" || got[1] != "c" {
		t.Errorf("frames = %v, want [b c]", got)
	}
	if s.Dropped() != 1 {
		t.Errorf("Dropped() = %d, want 1", s.Dropped())
	}
}

func TestChannelSessionClosed(t *testing.T) {
	s := NewChannelSession("s-1", nil, 0)
	if s.Codec() != JSON {
		t.Errorf("default codec = %s, want json", s.Codec().Name())
	}
	s.Close()
	s.Close()
	if s.Open() {
		t.Error("session still open after Close")
	}
	if s.Send([]byte("x")) {
		t.Error("Send on closed session should return false")
	}
}

func TestBroadcastEncodesPerCodec(t *testing.T) {
	a := NewChannelSession("a", JSON, 4)
	b := NewChannelSession("b", Msgpack, 4)
	c := NewChannelSession("c", JSON, 4)
	c.Close()

	msg := envelope{Type: "tick", Payload: map[string]int{"n": 3}}
	if err := Broadcast([]SessionHandle{a, b, c}, msg); err != nil {
		t.Fatalf("Broadcast() failed: %v", err)
	}

	var fromJSON, fromPack envelope
	if err := JSON.Unmarshal(<-a.Frames(), &fromJSON); err != nil {
		t.Fatalf("json decode failed: %v", err)
	}
	if err := Msgpack.Unmarshal(<-b.Frames(), &fromPack); err != nil {
		t.Fatalf("msgpack decode failed: %v", err)
	}
	if fromJSON.Type != "tick" || fromPack.Type != "tick" || fromPack.Payload["n"] != 3 {
		t.Errorf("decoded json=%+v msgpack=%+v", fromJSON, fromPack)
	}
	if len(c.Frames()) != 0 {
		t.Error("closed session received a frame")
	}
}

func TestCodecByName(t *testing.T) {
	tests := []struct {
		name    string
		want    string
		wantErr bool
	}{
		{"", "json", false},
		{"json", "json", false},
		{"msgpack", "msgpack", false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		c, err := CodecByName(tt.name)
		if (err != nil) != tt.wantErr {
			t.Errorf("CodecByName(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			continue
		}
		if err == nil && c.Name() != tt.want {
			t.Errorf("CodecByName(%q) = %s, want %s", tt.name, c.Name(), tt.want)
		}
	}
	if !Msgpack.Binary() || JSON.Binary() {
		t.Error("Binary() flags are wrong")
	}
}

func TestLoopSerializesWork(t *testing.T) {
	l := NewLoop(8)
	go l.Run(nil)
	defer l.Stop()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Call(func() { counter++ })
		}()
	}
	wg.Wait()

	var got int
	l.Call(func() { got = counter })
	if got != 50 {
		t.Errorf("counter = %d, want 50", got)
	}
}

func TestLoopTicker(t *testing.T) {
	l := NewLoop(8)
	var ticks atomic.Int32
	go l.Run(func(time.Time) {
		if ticks.Add(1) == 3 {
			l.StopTicker()
		}
	})
	defer l.Stop()

	l.Call(func() { l.StartTicker(time.Millisecond) })

	deadline := time.After(2 * time.Second)
	for ticks.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("only %d ticks delivered", ticks.Load())
		case <-time.After(time.Millisecond):
		}
	}

	var ticking bool
	l.Call(func() { ticking = l.Ticking() })
	if ticking {
		t.Error("ticker still active after StopTicker")
	}
}

func TestLoopStopRejectsWork(t *testing.T) {
	l := NewLoop(1)
	go l.Run(nil)
	l.Stop()
	<-l.Done()
	if l.Do(func() {}) {
		t.Error("Do after Stop should return false")
	}
	if l.Call(func() {}) {
		t.Error("Call after Stop should return false")
	}
}

func TestRegistry(t *testing.T) {
	created := 0
	r := NewRegistry(func(id string) *string {
		created++
		return &id
	})

	a, isNew := r.GetOrCreate("b-room")
	if !isNew || *a != "b-room" {
		t.Fatalf("GetOrCreate() = %v, %v", *a, isNew)
	}
	again, isNew := r.GetOrCreate("b-room")
	if isNew || again != a {
		t.Error("second GetOrCreate should return the existing room")
	}
	r.GetOrCreate("a-room")

	snap := r.Snapshot()
	if len(snap) != 2 || *snap[0] != "a-room" {
		t.Errorf("Snapshot() order wrong: %d rooms", len(snap))
	}

	if r.RemoveIf("a-room", func(*string) bool { return false }) {
		t.Error("RemoveIf removed despite false predicate")
	}
	if !r.RemoveIf("a-room", nil) {
		t.Error("RemoveIf(nil) should remove")
	}
	if _, ok := r.Get("a-room"); ok {
		t.Error("room still present after removal")
	}
	if r.Len() != 1 || created != 2 {
		t.Errorf("Len() = %d created = %d", r.Len(), created)
	}
}

func TestSessionRegistryAndStatus(t *testing.T) {
	reg := NewSessionRegistry()
	ids := NewIDSource("s-")
	s1 := NewChannelSession(ids.Next(), JSON, 1)
	s2 := NewChannelSession(ids.Next(), JSON, 1)
	s3 := NewChannelSession(ids.Next(), Msgpack, 1)
	reg.Register(s1)
	reg.Register(s2)
	reg.Register(s3)
	if s2.ID() != "s-2" {
		t.Errorf("second id = %s, want s-2", s2.ID())
	}
	if c := reg.CodecCounts(); c["json"] != 2 || c["msgpack"] != 1 {
		t.Errorf("CodecCounts() = %v", c)
	}
	reg.Unregister(s1.ID())
	if reg.Count() != 2 {
		t.Errorf("Count() = %d, want 2", reg.Count())
	}

	var cell StatusCell
	if cell.Load().ID != "" {
		t.Error("empty cell should load zero status")
	}
	cell.Store(RoomStatus{ID: "r", Mode: ModePuzzle})
	if st := cell.Load(); st.ID != "r" || st.Mode.String() != "puzzle" {
		t.Errorf("Load() = %+v", st)
	}
	if CloseSlowConsumer.String() != "Slow consumer" || CloseReason(99).String() != "Unknown" {
		t.Error("CloseReason names wrong")
	}
}

func TestRoomModeText(t *testing.T) {
	for _, tt := range []struct {
		codec Codec
		mode  RoomMode
	}{
		{JSON, ModeRogue},
		{JSON, ModePuzzle},
		{Msgpack, ModePuzzle},
	} {
		raw, err := tt.codec.Marshal(RoomStatus{ID: "r-1", Mode: tt.mode})
		if err != nil {
			t.Fatalf("Marshal failed: %v", err)
		}
		var got RoomStatus
		if err := tt.codec.Unmarshal(raw, &got); err != nil {
			t.Fatalf("Unmarshal failed: %v", err)
		}
		if got.Mode != tt.mode {
			t.Errorf("%s: mode = %v, want %v", tt.codec.Name(), got.Mode, tt.mode)
		}
	}

	var m RoomMode
	if err := m.UnmarshalText([]byte("chess")); err == nil {
		t.Error("expected unknown mode to be rejected")
	}
}
