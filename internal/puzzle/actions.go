package puzzle

import (
	"fmt"
	"strings"

	"github.com/vovakirdan/defuse-exe/internal/bomb"
	"github.com/vovakirdan/defuse-exe/internal/core"
)

// Action types.
const (
	ActInspectWire      = "inspect_wire"
	ActCutWire          = "cut_wire"
	ActRerouteWire      = "reroute_wire"
	ActConnectConduit   = "connect_conduit"
	ActClearConduits    = "clear_conduits"
	ActRotateDial       = "rotate_dial"
	ActLockDial         = "lock_dial"
	ActPressGlyph       = "press_glyph"
	ActPressMemory      = "press_memory"
	ActResetMemory      = "reset_memory"
	ActToggleSwitch     = "toggle_switch"
	ActSwapPolarity     = "swap_polarity"
	ActVentPower        = "vent_power"
	ActAdjustReactor    = "adjust_reactor"
	ActStabilizeReactor = "stabilize_reactor"
	ActUseAbility       = "use_ability"
	ActObserverPing     = "observer_ping"
)

// Abilities usable through use_ability.
const (
	AbilityStabilize = "stabilize"
	AbilityBuffer    = "buffer"
	AbilityAnchor    = "anchor"
	AbilityAudit     = "audit"
)

// Action is a client action. Type selects which fields are read.
type Action struct {
	Type        string `json:"type"`
	ModuleID    string `json:"moduleId,omitempty"`
	WireIndex   int    `json:"wireIndex,omitempty"`
	Property    string `json:"property,omitempty"`
	From        string `json:"from,omitempty"`
	To          string `json:"to,omitempty"`
	Delta       int    `json:"delta,omitempty"`
	GlyphIndex  int    `json:"glyphIndex,omitempty"`
	Pad         int    `json:"pad,omitempty"`
	SwitchIndex int    `json:"switchIndex,omitempty"`
	Ability     string `json:"ability,omitempty"`
}

// moduleActions maps module-targeting actions to the module type they need.
var moduleActions = map[string]string{
	ActInspectWire:      bomb.TypeWires,
	ActCutWire:          bomb.TypeWires,
	ActRerouteWire:      bomb.TypeWires,
	ActConnectConduit:   bomb.TypeConduit,
	ActClearConduits:    bomb.TypeConduit,
	ActRotateDial:       bomb.TypeDial,
	ActLockDial:         bomb.TypeDial,
	ActPressGlyph:       bomb.TypeGlyph,
	ActPressMemory:      bomb.TypeMemory,
	ActResetMemory:      bomb.TypeMemory,
	ActToggleSwitch:     bomb.TypeSwitches,
	ActSwapPolarity:     bomb.TypePower,
	ActVentPower:        bomb.TypePower,
	ActAdjustReactor:    bomb.TypeReactor,
	ActStabilizeReactor: bomb.TypeReactor,
}

var wireProperties = []string{"color", "thickness", "label", "insulation"}

// Apply runs a player action. A returned error means the action was rejected
// without touching the match; rule violations are applied as penalties.
func (m *Match) Apply(userID string, a Action, now int64) error {
	p, ok := m.players[userID]
	if !ok {
		return ErrNotJoined
	}
	if m.Phase != PhaseActive {
		return ErrWrongPhase
	}

	switch a.Type {
	case ActUseAbility:
		p.Actions++
		return m.useAbility(p, a.Ability, now)
	case ActObserverPing:
		p.Actions++
		mod := m.Bomb.Module(a.ModuleID)
		if mod == nil {
			m.Penalty(userID, 1, "ping on missing module "+a.ModuleID, now)
			return nil
		}
		p.SupportCount++
		m.addLog(now, "ping", userID, fmt.Sprintf("%s pinged %s", p.DisplayName, mod.ID))
		return nil
	}

	want, ok := moduleActions[a.Type]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownAction, a.Type)
	}

	mod := m.Bomb.Module(a.ModuleID)
	if mod != nil && mod.Locked(now) {
		return ErrModuleLocked
	}
	if mod != nil && mod.Solved {
		return ErrModuleSolved
	}
	p.Actions++
	if mod == nil {
		m.Penalty(userID, 1, "action on missing module "+a.ModuleID, now)
		return nil
	}
	if mod.Type != want {
		m.Penalty(userID, 1, fmt.Sprintf("%s is not valid on %s", a.Type, mod.ID), now)
		return nil
	}

	switch s := mod.State.(type) {
	case *bomb.WiresState:
		m.applyWires(p, mod, s, a, now)
	case *bomb.DialState:
		m.applyDial(p, mod, s, a, now)
	case *bomb.GlyphState:
		m.applyGlyph(p, mod, s, a, now)
	case *bomb.PowerState:
		m.applyPower(p, mod, s, a, now)
	case *bomb.ConduitState:
		m.applyConduit(p, mod, s, a, now)
	case *bomb.MemoryState:
		m.applyMemory(p, mod, s, a, now)
	case *bomb.SwitchesState:
		m.applySwitches(p, mod, s, a, now)
	case *bomb.ReactorState:
		m.applyReactor(p, mod, s, a, now)
	}

	if mod.Solved {
		m.addLog(now, "solved", userID, mod.ID+" solved")
		m.checkSolved(now)
	}
	return nil
}

func (m *Match) severity(moduleType string, fallback int) int {
	return m.cat.ErrorPenalty(moduleType, fallback)
}

func (m *Match) applyWires(p *Player, mod *bomb.Module, s *bomb.WiresState, a Action, now int64) {
	if a.WireIndex < 0 || a.WireIndex >= len(s.Wires) {
		m.Penalty(p.UserID, 1, fmt.Sprintf("%s has no wire %d", mod.ID, a.WireIndex), now)
		return
	}
	w := &s.Wires[a.WireIndex]

	switch a.Type {
	case ActInspectWire:
		if !contains(wireProperties, a.Property) {
			m.Penalty(p.UserID, 1, "unknown wire property "+a.Property, now)
			return
		}
		if !contains(w.Inspected, a.Property) {
			w.Inspected = append(w.Inspected, a.Property)
		}
		p.SupportCount++

	case ActRerouteWire:
		if w.Cut || w.Insulation != "frayed" {
			m.Penalty(p.UserID, 1, fmt.Sprintf("wire %s cannot be rerouted", w.Label), now)
			return
		}
		w.Insulation = "basic"
		p.SupportCount++
		m.addLog(now, "reroute", p.UserID, fmt.Sprintf("%s rerouted %s", p.DisplayName, w.Label))

	case ActCutWire:
		if w.Cut {
			m.Penalty(p.UserID, 1, fmt.Sprintf("wire %s is already cut", w.Label), now)
			return
		}
		if s.CutProgress < len(s.SafeOrder) && s.SafeOrder[s.CutProgress] == a.WireIndex {
			w.Cut = true
			s.CutProgress++
			if s.CutProgress == len(s.SafeOrder) {
				mod.Solved = true
			}
			return
		}
		// Wrong wire: the sequence starts over and the panel locks.
		if !contains(s.SafeOrder, a.WireIndex) {
			w.Cut = true
		}
		for _, idx := range s.SafeOrder {
			s.Wires[idx].Cut = false
		}
		s.CutProgress = 0
		mod.LockedUntil = now + m.opts.LockDuration
		m.Penalty(p.UserID, m.severity(bomb.TypeWires, 2), fmt.Sprintf("wrong wire %s cut", w.Label), now)
	}
}

func (m *Match) applyDial(p *Player, mod *bomb.Module, s *bomb.DialState, a Action, now int64) {
	switch a.Type {
	case ActRotateDial:
		span := s.Max + 1
		s.Value = ((s.Value+a.Delta)%span + span) % span
	case ActLockDial:
		if s.Value >= s.TargetMin && s.Value <= s.TargetMax {
			mod.Solved = true
			return
		}
		m.Penalty(p.UserID, m.severity(bomb.TypeDial, 1), fmt.Sprintf("%s locked out of range", mod.ID), now)
	}
}

func (m *Match) applyGlyph(p *Player, mod *bomb.Module, s *bomb.GlyphState, a Action, now int64) {
	if s.Progress < len(s.Sequence) && s.Sequence[s.Progress] == a.GlyphIndex {
		s.Progress++
		if s.Progress == len(s.Sequence) {
			mod.Solved = true
		}
		return
	}
	s.Progress = 0
	m.Penalty(p.UserID, m.severity(bomb.TypeGlyph, 1), fmt.Sprintf("%s glyph mis-press", mod.ID), now)
}

func (m *Match) applyPower(p *Player, mod *bomb.Module, s *bomb.PowerState, a Action, now int64) {
	switch a.Type {
	case ActSwapPolarity:
		if s.Polarity == "POS" {
			s.Polarity = "NEG"
		} else {
			s.Polarity = "POS"
		}
	case ActVentPower:
		s.Voltage = max(0, s.Voltage-ventVoltageDrop)
		s.Vented = true
		m.Resources.TimerMs = max(0, m.Resources.TimerMs-ventTimerCostMs)
		m.addLog(now, "vent", p.UserID, fmt.Sprintf("%s vented %s", p.DisplayName, mod.ID))
		if m.Resources.TimerMs == 0 {
			m.finish(OutcomeTimeout, "timer expired", now)
			return
		}
	}
	if s.Polarity == s.TargetPolarity && s.Voltage <= s.SafeVoltage {
		mod.Solved = true
	}
}

func (m *Match) applyConduit(p *Player, mod *bomb.Module, s *bomb.ConduitState, a Action, now int64) {
	if a.Type == ActClearConduits {
		s.Routes = []bomb.Route{}
		return
	}
	if !contains(s.Sources, a.From) || !contains(s.Sinks, a.To) {
		m.Penalty(p.UserID, m.severity(bomb.TypeConduit, 1), fmt.Sprintf("%s has no route %s>%s", mod.ID, a.From, a.To), now)
		return
	}
	routes := s.Routes[:0:0]
	for _, r := range s.Routes {
		if r.From != a.From {
			routes = append(routes, r)
		}
	}
	s.Routes = append(routes, bomb.Route{From: a.From, To: a.To})

	for _, want := range s.Desired {
		found := false
		for _, r := range s.Routes {
			if r == want {
				found = true
				break
			}
		}
		if !found {
			return
		}
	}
	mod.Solved = true
}

func (m *Match) applyMemory(p *Player, mod *bomb.Module, s *bomb.MemoryState, a Action, now int64) {
	if a.Type == ActResetMemory {
		s.Input = []int{}
		return
	}
	if len(s.Input) < len(s.Sequence) && s.Sequence[len(s.Input)] == a.Pad {
		s.Input = append(s.Input, a.Pad)
		if len(s.Input) == len(s.Sequence) {
			mod.Solved = true
		}
		return
	}
	s.Input = []int{}
	m.Penalty(p.UserID, m.severity(bomb.TypeMemory, 1), fmt.Sprintf("%s memory mismatch", mod.ID), now)
}

func (m *Match) applySwitches(p *Player, mod *bomb.Module, s *bomb.SwitchesState, a Action, now int64) {
	if a.SwitchIndex < 0 || a.SwitchIndex >= s.Count {
		m.Penalty(p.UserID, m.severity(bomb.TypeSwitches, 1), fmt.Sprintf("%s has no switch %d", mod.ID, a.SwitchIndex), now)
		return
	}
	s.Current ^= 1 << a.SwitchIndex
	if s.Current == s.Target {
		mod.Solved = true
	}
}

func (m *Match) applyReactor(p *Player, mod *bomb.Module, s *bomb.ReactorState, a Action, now int64) {
	switch a.Type {
	case ActAdjustReactor:
		s.Heat = core.Clamp(s.Heat+a.Delta, 0, 100)
		if s.Heat <= 5 || s.Heat >= 95 {
			s.StabilityTicks = 0
		}
	case ActStabilizeReactor:
		if s.Heat >= s.SafeMin && s.Heat <= s.SafeMax {
			s.StabilityTicks++
			if s.StabilityTicks >= s.Required {
				mod.Solved = true
			}
			return
		}
		s.StabilityTicks = 0
		m.Penalty(p.UserID, m.severity(bomb.TypeReactor, 1), fmt.Sprintf("%s stabilized out of band", mod.ID), now)
	}
}

func (m *Match) useAbility(p *Player, ability string, now int64) error {
	var need bomb.Capability
	switch ability {
	case AbilityStabilize:
		need = bomb.CapStabilizer
	case AbilityBuffer:
		need = bomb.CapBuffer
	case AbilityAnchor:
		need = bomb.CapAnchor
	case AbilityAudit:
		need = bomb.CapAuditor
	default:
		m.Penalty(p.UserID, 1, "unknown ability "+ability, now)
		return nil
	}
	if p.brief == nil || !p.brief.Has(need) {
		m.Penalty(p.UserID, 1, fmt.Sprintf("%s lacks %s", p.DisplayName, need), now)
		return nil
	}

	switch ability {
	case AbilityStabilize:
		m.Resources.Stability = min(m.cat.Balance.StabilityStart, m.Resources.Stability+1)
		m.Resources.CommsSeconds = max(0, m.Resources.CommsSeconds-5)
		m.addLog(now, "ability", p.UserID, p.DisplayName+" stabilized the casing")
	case AbilityBuffer:
		m.Voice.NoiseGateUntil = now + noiseGateMs
		m.addLog(now, "ability", p.UserID, p.DisplayName+" opened a noise gate")
	case AbilityAnchor:
		if p.AnchorUsed {
			m.Penalty(p.UserID, 1, "anchor already used", now)
			return nil
		}
		p.AnchorUsed = true
		m.Resources.TimerMs += anchorBonusMs
		m.addLog(now, "ability", p.UserID, p.DisplayName+" anchored the timer")
	case AbilityAudit:
		ids := make([]string, 0, len(m.Bomb.Modifiers))
		for _, mod := range m.Bomb.Modifiers {
			ids = append(ids, mod.ID)
		}
		list := "none"
		if len(ids) > 0 {
			list = strings.Join(ids, ", ")
		}
		m.addLog(now, "audit", p.UserID, "active modifiers: "+list)
	}
	p.SupportCount++
	return nil
}

// RequestScan returns the ids of unsolved modules to a scanner. Anyone else
// takes a penalty.
func (m *Match) RequestScan(userID string, now int64) ([]string, error) {
	p, ok := m.players[userID]
	if !ok {
		return nil, ErrNotJoined
	}
	if m.Phase != PhaseActive {
		return nil, ErrWrongPhase
	}
	p.Actions++
	if p.brief == nil || !p.brief.Has(bomb.CapScanner) {
		m.Penalty(userID, 1, p.DisplayName+" has no scanner", now)
		return nil, nil
	}
	p.SupportCount++
	unsolved := []string{}
	for _, mod := range m.Bomb.Modules {
		if !mod.Solved {
			unsolved = append(unsolved, mod.ID)
		}
	}
	m.addLog(now, "scan", userID, fmt.Sprintf("%s scanned %d unsolved modules", p.DisplayName, len(unsolved)))
	return unsolved, nil
}

func contains[T comparable](list []T, v T) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
