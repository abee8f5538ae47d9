package puzzle

import (
	"errors"
	"testing"

	"pgregory.net/rapid"

	"github.com/vovakirdan/defuse-exe/internal/bomb"
	"github.com/vovakirdan/defuse-exe/internal/config"
)

const t0 = int64(1_700_000_000_000)

func testCatalog(t testing.TB) *config.Catalog {
	t.Helper()
	cat, err := config.DefaultCatalog()
	if err != nil {
		t.Fatalf("DefaultCatalog() failed: %v", err)
	}
	return cat
}

// activeMatch starts a match with the given players and replaces the
// generated bomb with modules.
func activeMatch(t testing.TB, players []string, modules ...*bomb.Module) *Match {
	t.Helper()
	m := NewMatch("inst-1", testCatalog(t), Options{})
	for _, id := range players {
		if err := m.Join(id, "", t0); err != nil {
			t.Fatalf("Join(%s) failed: %v", id, err)
		}
	}
	if err := m.StartMatch(players[0], t0); err != nil {
		t.Fatalf("StartMatch() failed: %v", err)
	}
	if len(modules) > 0 {
		m.Bomb.Modules = modules
	}
	return m
}

func wiresModule(order []int) *bomb.Module {
	s := &bomb.WiresState{SafeOrder: order}
	for i := 0; i < 4; i++ {
		s.Wires = append(s.Wires, bomb.Wire{ID: "w", Label: "L", Color: "red", Insulation: "basic", Inspected: []string{}})
	}
	return &bomb.Module{ID: "m-1", Type: bomb.TypeWires, State: s}
}

func TestLobbyAndHost(t *testing.T) {
	m := NewMatch("inst-1", testCatalog(t), Options{MaxPlayers: 2})
	if err := m.Join("a", "Ann", t0); err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	if err := m.Join("b", "", t0); err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	if err := m.Join("c", "", t0); !errors.Is(err, ErrFull) {
		t.Errorf("third join error = %v, want ErrFull", err)
	}
	if m.HostID != "a" {
		t.Errorf("HostID = %s, want a", m.HostID)
	}
	if err := m.StartMatch("b", t0); !errors.Is(err, ErrNotHost) {
		t.Errorf("non-host start error = %v, want ErrNotHost", err)
	}
	if err := m.StartMatch("z", t0); !errors.Is(err, ErrNotJoined) {
		t.Errorf("stranger start error = %v, want ErrNotJoined", err)
	}

	m.Leave("a", t0)
	if m.HostID != "b" || m.PlayerCount() != 1 {
		t.Errorf("after host leave: host=%s players=%d", m.HostID, m.PlayerCount())
	}
	if err := m.SetPresence("b", "away"); err != nil || m.Player("b").Presence != "away" {
		t.Errorf("SetPresence failed: %v", err)
	}
	if err := m.SetPresence("b", "sleeping"); err == nil {
		t.Error("unknown presence should fail")
	}
}

func TestStartMatchResources(t *testing.T) {
	m := activeMatch(t, []string{"a", "b"})
	if m.Phase != PhaseActive || m.Bomb == nil {
		t.Fatalf("phase = %s, bomb = %v", m.Phase, m.Bomb)
	}
	want := Resources{TimerMs: 420_000, CommsSeconds: 108, Stability: 10}
	if m.Resources != want {
		t.Errorf("Resources = %+v, want %+v", m.Resources, want)
	}
	if p := m.Player("a"); p.RoleName != "Tech" || len(p.Capabilities) != 4 {
		t.Errorf("player a role=%s caps=%v", p.RoleName, p.Capabilities)
	}
	if err := m.Join("late", "", t0); !errors.Is(err, ErrWrongPhase) {
		t.Errorf("join during match error = %v, want ErrWrongPhase", err)
	}
	if err := m.StartMatch("a", t0); !errors.Is(err, ErrWrongPhase) {
		t.Errorf("restart error = %v, want ErrWrongPhase", err)
	}
}

func TestTierAndCommsScale(t *testing.T) {
	tests := []struct {
		players int
		tier    int
		scale   float64
	}{
		{1, 1, 0},
		{2, 1, 0.9},
		{3, 2, 0.9},
		{6, 2, 1.1},
		{7, 3, 1.5},
		{10, 3, 1.5},
	}
	for _, tt := range tests {
		if got := TierForPlayers(tt.players); got != tt.tier {
			t.Errorf("TierForPlayers(%d) = %d, want %d", tt.players, got, tt.tier)
		}
		if got := CommsScale(tt.players); got != tt.scale {
			t.Errorf("CommsScale(%d) = %v, want %v", tt.players, got, tt.scale)
		}
	}

	solo := InitialResources(1, 1, testCatalog(t).Balance)
	if solo.CommsSeconds != 0 {
		t.Errorf("solo comms = %v, want 0", solo.CommsSeconds)
	}
}

func TestWireOrderScenario(t *testing.T) {
	m := activeMatch(t, []string{"a", "b"}, wiresModule([]int{2, 0, 1}), wiresModule(nil))
	m.Bomb.Modules[1].ID = "m-2"
	m.Bomb.Modules[1].Solved = true
	mod := m.Bomb.Modules[0]
	s := mod.State.(*bomb.WiresState)

	if err := m.Apply("a", Action{Type: ActCutWire, ModuleID: "m-1", WireIndex: 0}, t0); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if m.Resources.Stability != 8 {
		t.Errorf("stability = %d, want 8", m.Resources.Stability)
	}
	if s.CutProgress != 0 {
		t.Errorf("cutProgress = %d, want 0", s.CutProgress)
	}
	for _, idx := range s.SafeOrder {
		if s.Wires[idx].Cut {
			t.Errorf("safe wire %d still cut", idx)
		}
	}
	if err := m.Apply("a", Action{Type: ActCutWire, ModuleID: "m-1", WireIndex: 2}, t0+100); !errors.Is(err, ErrModuleLocked) {
		t.Errorf("cut during lock error = %v, want ErrModuleLocked", err)
	}

	now := t0 + 5000
	for _, idx := range []int{2, 0, 1} {
		if err := m.Apply("a", Action{Type: ActCutWire, ModuleID: "m-1", WireIndex: idx}, now); err != nil {
			t.Fatalf("cut %d failed: %v", idx, err)
		}
	}
	if !mod.Solved {
		t.Error("module not solved after the safe order")
	}
	if m.Player("a").Penalties != 1 {
		t.Errorf("penalties = %d, want 1", m.Player("a").Penalties)
	}
	if m.Phase != PhaseResults || m.Result.Outcome != OutcomeDefused {
		t.Errorf("phase = %s result = %+v, want defused", m.Phase, m.Result)
	}
}

func TestWireOrderProperty(t *testing.T) {
	cat := testCatalog(t)
	rapid.Check(t, func(rt *rapid.T) {
		m := NewMatch("inst-p", cat, Options{})
		if err := m.Join("a", "", t0); err != nil {
			rt.Fatalf("Join failed: %v", err)
		}
		if err := m.StartMatch("a", t0); err != nil {
			rt.Fatalf("StartMatch failed: %v", err)
		}
		order := rapid.Permutation([]int{0, 1, 2, 3}).Draw(rt, "order")[:3]
		mod := wiresModule(order)
		m.Bomb.Modules = []*bomb.Module{mod}
		m.Resources.Stability = 1000
		s := mod.State.(*bomb.WiresState)

		cuts := rapid.SliceOfN(rapid.IntRange(0, 3), 1, 12).Draw(rt, "cuts")
		now := t0
		for _, idx := range cuts {
			if mod.Solved {
				break
			}
			now += 5000
			before := s.CutProgress
			alreadyCut := s.Wires[idx].Cut
			stability := m.Resources.Stability
			wasCut := make([]bool, len(s.Wires))
			for i, w := range s.Wires {
				wasCut[i] = w.Cut
			}
			if err := m.Apply("a", Action{Type: ActCutWire, ModuleID: mod.ID, WireIndex: idx}, now); err != nil {
				rt.Fatalf("Apply failed: %v", err)
			}
			switch {
			case alreadyCut:
				// A re-cut costs one stability and keeps the order intact.
				if s.CutProgress != before {
					rt.Fatalf("re-cut changed progress %d -> %d", before, s.CutProgress)
				}
				if m.Resources.Stability != stability-1 {
					rt.Fatalf("re-cut cost %d stability, want 1", stability-m.Resources.Stability)
				}
				for i, w := range s.Wires {
					if w.Cut != wasCut[i] {
						rt.Fatalf("re-cut changed wire %d", i)
					}
				}
			case order[before] == idx:
				if s.CutProgress != before+1 {
					rt.Fatalf("correct cut: progress %d -> %d", before, s.CutProgress)
				}
			default:
				if s.CutProgress != 0 {
					rt.Fatalf("wrong cut left progress %d", s.CutProgress)
				}
				for _, safe := range order {
					if s.Wires[safe].Cut {
						rt.Fatalf("safe wire %d still cut after reset", safe)
					}
				}
			}
			if mod.Solved != (s.CutProgress == len(order)) {
				rt.Fatalf("solved=%v with progress %d", mod.Solved, s.CutProgress)
			}
		}
	})
}

func TestStabilityOneExplodes(t *testing.T) {
	m := activeMatch(t, []string{"a"})
	m.Resources.Stability = 1
	m.Penalty("a", 1, "test", t0)
	if m.Resources.Stability != 0 {
		t.Errorf("stability = %d, want 0", m.Resources.Stability)
	}
	if m.Phase != PhaseResults || m.Result.Outcome != OutcomeExploded {
		t.Fatalf("result = %+v, want exploded", m.Result)
	}

	m.Penalty("a", 5, "after the end", t0+1)
	if m.Resources.Stability != 0 || m.Result.Outcome != OutcomeExploded {
		t.Error("penalty after results changed the match")
	}
	if err := m.Apply("a", Action{Type: ActLockDial, ModuleID: "m-1"}, t0+2); !errors.Is(err, ErrWrongPhase) {
		t.Errorf("action in results error = %v, want ErrWrongPhase", err)
	}
}

func TestResourceFloors(t *testing.T) {
	m := activeMatch(t, []string{"a", "b"})
	m.Resources.CommsSeconds = 1
	m.Penalty("a", 3, "big", t0)
	if m.Resources.CommsSeconds != 0 {
		t.Errorf("comms = %v, want 0", m.Resources.CommsSeconds)
	}
	m.Penalty("a", 50, "huge", t0)
	if m.Resources.Stability != 0 {
		t.Errorf("stability = %d, want 0", m.Resources.Stability)
	}
}

func TestTimeout(t *testing.T) {
	m := activeMatch(t, []string{"a"})
	m.Resources.TimerMs = 300
	m.Tick(t0 + 250)
	if m.Phase != PhaseActive || m.Resources.TimerMs != 50 {
		t.Fatalf("after first tick: phase=%s timer=%d", m.Phase, m.Resources.TimerMs)
	}
	m.Tick(t0 + 500)
	if m.Result == nil || m.Result.Outcome != OutcomeTimeout {
		t.Fatalf("result = %+v, want timeout", m.Result)
	}
	if err := m.PlayAgain("a", t0+600); err != nil {
		t.Fatalf("PlayAgain failed: %v", err)
	}
	if m.Phase != PhaseLobby || m.Bomb != nil || m.Result != nil {
		t.Errorf("PlayAgain did not reset: phase=%s", m.Phase)
	}
}

func TestVentExpiresTimer(t *testing.T) {
	power := &bomb.Module{ID: "m-1", Type: bomb.TypePower, State: &bomb.PowerState{Polarity: "NEG", TargetPolarity: "NEG", Voltage: 85, SafeVoltage: 75}}
	m := activeMatch(t, []string{"a"}, power)
	m.Resources.TimerMs = 4000

	if err := m.Apply("a", Action{Type: ActVentPower, ModuleID: "m-1"}, t0+100); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if m.Resources.TimerMs != 0 {
		t.Errorf("timer = %d, want 0", m.Resources.TimerMs)
	}
	if m.Phase != PhaseResults || m.Result.Outcome != OutcomeTimeout {
		t.Fatalf("result = %+v, want timeout", m.Result)
	}
	if m.Result.EndedAt != t0+100 {
		t.Errorf("EndedAt = %d, want the vent time", m.Result.EndedAt)
	}
	if power.Solved {
		t.Error("vent that ran out the timer also solved the module")
	}
}

func TestOneSpeakerOverlap(t *testing.T) {
	m := activeMatch(t, []string{"a", "b"})
	m.Voice.TalkMode = TalkOneSpeaker
	_ = m.SpeakStart("a", t0)
	_ = m.SpeakStart("b", t0)

	m.Tick(t0 + 1000)
	if m.Resources.Stability != 8 {
		t.Errorf("stability = %d, want 8", m.Resources.Stability)
	}
	if m.Voice.OverlapArmed {
		t.Error("overlap penalty still armed")
	}
	if m.Player("b").Penalties != 1 {
		t.Errorf("b penalties = %d, want 1", m.Player("b").Penalties)
	}

	m.Tick(t0 + 1250)
	if m.Resources.Stability != 8 {
		t.Error("second overlap tick penalized without re-arming")
	}

	_ = m.SpeakEnd("b", t0+1300)
	m.Tick(t0 + 1500)
	if !m.Voice.OverlapArmed {
		t.Error("not re-armed with one speaker")
	}
}

func TestCommsDrain(t *testing.T) {
	tests := []struct {
		name     string
		mode     string
		speakers []string
		want     float64
	}{
		{"single speaker", TalkSharedPool, []string{"a"}, 107},
		{"overlap", TalkSharedPool, []string{"a", "b"}, 106},
		{"tokenized", TalkTokenizedBurst, []string{"a"}, 106.5},
		{"grace only", TalkSharedPool, nil, 108},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := activeMatch(t, []string{"a", "b"})
			m.Voice.TalkMode = tt.mode
			for _, id := range tt.speakers {
				_ = m.SpeakStart(id, t0)
			}
			m.Tick(t0 + 1000)
			if m.Resources.CommsSeconds != tt.want {
				t.Errorf("comms = %v, want %v", m.Resources.CommsSeconds, tt.want)
			}
		})
	}
}

func TestCommsExhausted(t *testing.T) {
	m := activeMatch(t, []string{"a", "b"})
	m.Voice.TalkMode = TalkSharedPool
	m.Resources.CommsSeconds = 0.5
	_ = m.SpeakStart("a", t0)
	m.Tick(t0 + 1000)
	if m.Resources.Stability != 9 {
		t.Errorf("stability = %d, want 9 after zero-comms penalty", m.Resources.Stability)
	}
	m.Tick(t0 + 2000)
	if m.Resources.Stability != 9 {
		t.Error("zero-comms penalty repeated before 5 s")
	}
	m.Tick(t0 + 6000)
	if m.Resources.Stability != 8 {
		t.Errorf("stability = %d, want 8 after 5 s", m.Resources.Stability)
	}

	lock := activeMatch(t, []string{"a", "b"})
	lock.Voice.TalkMode = TalkSharedPool
	lock.cat.Balance.LockoutOnZero = true
	lock.Resources.CommsSeconds = 0.5
	_ = lock.SpeakStart("a", t0)
	lock.Tick(t0 + 1000)
	if lock.Result == nil || lock.Result.Outcome != OutcomeExploded {
		t.Errorf("lockout result = %+v, want exploded", lock.Result)
	}
}

func TestNoiseGateSuspendsDrain(t *testing.T) {
	m := activeMatch(t, []string{"a", "b"})
	// b holds the buffer capability with two players.
	if err := m.Apply("b", Action{Type: ActUseAbility, Ability: AbilityBuffer}, t0); err != nil {
		t.Fatalf("buffer failed: %v", err)
	}
	_ = m.SpeakStart("a", t0)
	m.Tick(t0 + 1000)
	if m.Resources.CommsSeconds != 108 {
		t.Errorf("comms = %v, want 108 while gated", m.Resources.CommsSeconds)
	}
}

func TestAbilities(t *testing.T) {
	m := activeMatch(t, []string{"a", "b"})
	timer := m.Resources.TimerMs

	// a: wire-vision, glyph-decode, scanner, anchor.
	if err := m.Apply("a", Action{Type: ActUseAbility, Ability: AbilityAnchor}, t0); err != nil {
		t.Fatalf("anchor failed: %v", err)
	}
	if m.Resources.TimerMs != timer+15000 {
		t.Errorf("timer = %d, want +15000", m.Resources.TimerMs)
	}
	_ = m.Apply("a", Action{Type: ActUseAbility, Ability: AbilityAnchor}, t0)
	if m.Resources.Stability != 9 {
		t.Errorf("second anchor stability = %d, want 9", m.Resources.Stability)
	}

	_ = m.Apply("a", Action{Type: ActUseAbility, Ability: AbilityStabilize}, t0)
	if m.Resources.Stability != 8 {
		t.Errorf("stabilize without capability: stability = %d, want 8", m.Resources.Stability)
	}
	_ = m.Apply("b", Action{Type: ActUseAbility, Ability: AbilityStabilize}, t0)
	if m.Resources.Stability != 9 {
		t.Errorf("stabilize: stability = %d, want 9", m.Resources.Stability)
	}

	unsolved, err := m.RequestScan("a", t0)
	if err != nil || len(unsolved) != len(m.Bomb.Modules) {
		t.Errorf("RequestScan = %v, %v", unsolved, err)
	}
	if got, _ := m.RequestScan("b", t0); got != nil {
		t.Error("non-scanner received a scan")
	}
	if m.Player("b").Penalties != 1 {
		t.Errorf("b penalties = %d, want 1", m.Player("b").Penalties)
	}
}

func TestModuleActions(t *testing.T) {
	dial := &bomb.Module{ID: "m-1", Type: bomb.TypeDial, State: &bomb.DialState{Max: 15, Value: 14, TargetMin: 1, TargetMax: 2}}
	switches := &bomb.Module{ID: "m-2", Type: bomb.TypeSwitches, State: &bomb.SwitchesState{Count: 3, Target: 5, Current: 0}}
	reactor := &bomb.Module{ID: "m-3", Type: bomb.TypeReactor, State: &bomb.ReactorState{Heat: 40, SafeMin: 50, SafeMax: 60, Required: 3}}
	power := &bomb.Module{ID: "m-4", Type: bomb.TypePower, State: &bomb.PowerState{Polarity: "POS", TargetPolarity: "NEG", Voltage: 85, SafeVoltage: 75}}
	conduit := &bomb.Module{ID: "m-5", Type: bomb.TypeConduit, State: &bomb.ConduitState{
		Sources: []string{"A", "B"}, Sinks: []string{"X", "Y"},
		Desired: []bomb.Route{{From: "A", To: "Y"}, {From: "B", To: "X"}},
		Routes:  []bomb.Route{},
	}}
	memory := &bomb.Module{ID: "m-6", Type: bomb.TypeMemory, State: &bomb.MemoryState{Pads: 4, Sequence: []int{3, 1}, Input: []int{}}}
	glyph := &bomb.Module{ID: "m-7", Type: bomb.TypeGlyph, State: &bomb.GlyphState{Glyphs: []string{"a", "b"}, Sequence: []int{1, 0}}}
	spare := wiresModule([]int{0})
	spare.ID = "m-8"

	m := activeMatch(t, []string{"a", "b"}, dial, switches, reactor, power, conduit, memory, glyph, spare)
	m.Resources.Stability = 100
	timer := m.Resources.TimerMs

	steps := []Action{
		{Type: ActRotateDial, ModuleID: "m-1", Delta: 3},
		{Type: ActLockDial, ModuleID: "m-1"},
		{Type: ActToggleSwitch, ModuleID: "m-2", SwitchIndex: 0},
		{Type: ActToggleSwitch, ModuleID: "m-2", SwitchIndex: 2},
		{Type: ActAdjustReactor, ModuleID: "m-3", Delta: 15},
		{Type: ActStabilizeReactor, ModuleID: "m-3"},
		{Type: ActStabilizeReactor, ModuleID: "m-3"},
		{Type: ActStabilizeReactor, ModuleID: "m-3"},
		{Type: ActSwapPolarity, ModuleID: "m-4"},
		{Type: ActVentPower, ModuleID: "m-4"},
		{Type: ActConnectConduit, ModuleID: "m-5", From: "A", To: "X"},
		{Type: ActConnectConduit, ModuleID: "m-5", From: "A", To: "Y"},
		{Type: ActConnectConduit, ModuleID: "m-5", From: "B", To: "X"},
		{Type: ActPressMemory, ModuleID: "m-6", Pad: 3},
		{Type: ActPressMemory, ModuleID: "m-6", Pad: 1},
		{Type: ActPressGlyph, ModuleID: "m-7", GlyphIndex: 1},
		{Type: ActPressGlyph, ModuleID: "m-7", GlyphIndex: 0},
	}
	for _, a := range steps {
		if err := m.Apply("a", a, t0); err != nil {
			t.Fatalf("Apply(%s) failed: %v", a.Type, err)
		}
	}
	for _, mod := range m.Bomb.Modules[:7] {
		if !mod.Solved {
			t.Errorf("%s (%s) not solved", mod.ID, mod.Type)
		}
	}
	if m.Resources.Stability != 100 {
		t.Errorf("stability = %d, want no penalties", m.Resources.Stability)
	}
	if m.Resources.TimerMs != timer-10000 {
		t.Errorf("vent did not cost 10 s: %d", m.Resources.TimerMs)
	}
	if m.Phase != PhaseActive {
		t.Error("match ended with an unsolved module left")
	}

	if err := m.Apply("a", Action{Type: ActLockDial, ModuleID: "m-1"}, t0); !errors.Is(err, ErrModuleSolved) {
		t.Errorf("action on solved module error = %v, want ErrModuleSolved", err)
	}
	if err := m.Apply("a", Action{Type: "dance"}, t0); !errors.Is(err, ErrUnknownAction) {
		t.Errorf("unknown action error = %v, want ErrUnknownAction", err)
	}
	if err := m.Apply("z", Action{Type: ActLockDial}, t0); !errors.Is(err, ErrNotJoined) {
		t.Errorf("stranger action error = %v, want ErrNotJoined", err)
	}

	_ = m.Apply("a", Action{Type: ActLockDial, ModuleID: "m-8"}, t0)
	_ = m.Apply("a", Action{Type: ActLockDial, ModuleID: "m-99"}, t0)
	if m.Resources.Stability != 98 {
		t.Errorf("wrong-type and missing-module penalties: stability = %d, want 98", m.Resources.Stability)
	}
}

func TestModuleMisses(t *testing.T) {
	tests := []struct {
		name   string
		module *bomb.Module
		action Action
	}{
		{"dial out of range", &bomb.Module{Type: bomb.TypeDial, State: &bomb.DialState{Max: 9, Value: 0, TargetMin: 4, TargetMax: 5}}, Action{Type: ActLockDial}},
		{"glyph miss", &bomb.Module{Type: bomb.TypeGlyph, State: &bomb.GlyphState{Sequence: []int{1}}}, Action{Type: ActPressGlyph, GlyphIndex: 0}},
		{"memory miss", &bomb.Module{Type: bomb.TypeMemory, State: &bomb.MemoryState{Pads: 4, Sequence: []int{2}, Input: []int{}}}, Action{Type: ActPressMemory, Pad: 1}},
		{"switch out of range", &bomb.Module{Type: bomb.TypeSwitches, State: &bomb.SwitchesState{Count: 3, Target: 1}}, Action{Type: ActToggleSwitch, SwitchIndex: 3}},
		{"reactor out of band", &bomb.Module{Type: bomb.TypeReactor, State: &bomb.ReactorState{Heat: 10, SafeMin: 40, SafeMax: 50, Required: 3}}, Action{Type: ActStabilizeReactor}},
		{"conduit unknown node", &bomb.Module{Type: bomb.TypeConduit, State: &bomb.ConduitState{Sources: []string{"A"}, Sinks: []string{"X"}}}, Action{Type: ActConnectConduit, From: "Q", To: "X"}},
		{"reroute basic wire", wiresModule([]int{0}), Action{Type: ActRerouteWire}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.module.ID = "m-1"
			tt.action.ModuleID = "m-1"
			m := activeMatch(t, []string{"a"}, tt.module)
			if err := m.Apply("a", tt.action, t0); err != nil {
				t.Fatalf("Apply failed: %v", err)
			}
			if m.Resources.Stability != 9 {
				t.Errorf("stability = %d, want 9", m.Resources.Stability)
			}
			if tt.module.Solved {
				t.Error("module solved by a miss")
			}
		})
	}
}

func TestTutorialNoDrain(t *testing.T) {
	m := NewMatch("inst-t", testCatalog(t), Options{})
	_ = m.Join("a", "", t0)
	_ = m.Join("b", "", t0)
	if err := m.StartTutorial("a", 9, t0); err != nil {
		t.Fatalf("StartTutorial failed: %v", err)
	}
	if m.Seed != "tutorial-3" || !m.Tutorial || m.Bomb.DifficultyTier != 3 {
		t.Errorf("seed=%s tutorial=%v tier=%d", m.Seed, m.Tutorial, m.Bomb.DifficultyTier)
	}
	comms := m.Resources.CommsSeconds
	_ = m.SpeakStart("a", t0)
	_ = m.SpeakStart("b", t0)
	m.Tick(t0 + 2000)
	if m.Resources.CommsSeconds != comms {
		t.Errorf("tutorial drained comms: %v -> %v", comms, m.Resources.CommsSeconds)
	}
}

func TestViewHidesSecrets(t *testing.T) {
	m := activeMatch(t, []string{"a", "b"}, wiresModule([]int{1, 0}))
	v := m.View()
	if v.Bomb == nil || len(v.Bomb.Modules) != 1 {
		t.Fatalf("bomb view = %+v", v.Bomb)
	}
	if _, leaked := v.Bomb.Modules[0].Params.(*bomb.WiresState); leaked {
		t.Error("public view exposes the wires state")
	}
	if len(v.Players) != 2 || v.Players[0].UserID != "a" {
		t.Errorf("players out of join order: %+v", v.Players)
	}
	if b := m.Brief("a"); b == nil || b.RoleName != "Tech" {
		t.Errorf("Brief(a) = %+v", b)
	}
	if m.Brief("nobody") != nil {
		t.Error("Brief for unknown user should be nil")
	}
}

func TestEventLogCapped(t *testing.T) {
	m := activeMatch(t, []string{"a"})
	m.Resources.Stability = 1000
	for i := 0; i < 50; i++ {
		m.Penalty("a", 1, "spam", t0+int64(i))
	}
	if len(m.Log) != maxLogEntries {
		t.Errorf("log length = %d, want %d", len(m.Log), maxLogEntries)
	}
	if m.Log[0].At != t0+49 {
		t.Errorf("newest entry first: got At=%d", m.Log[0].At)
	}
}
