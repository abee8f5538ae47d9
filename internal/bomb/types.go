// Package bomb generates puzzle-mode bomb specs from a seed and derives the
// per-player role briefs for a generated bomb.
package bomb

import (
	"encoding/json"
	"fmt"
)

// Module type ids.
const (
	TypeWires    = "wires"
	TypeDial     = "dial"
	TypeGlyph    = "glyph"
	TypePower    = "power"
	TypeConduit  = "conduit"
	TypeMemory   = "memory"
	TypeSwitches = "switches"
	TypeReactor  = "reactor"
)

// Spec is one generated bomb.
type Spec struct {
	Seed           string     `json:"seed"`
	ArchetypeID    string     `json:"archetypeId"`
	DifficultyTier int        `json:"difficultyTier"`
	PlayerCount    int        `json:"playerCount"`
	Modules        []*Module  `json:"modules"`
	Graph          []Edge     `json:"graph"`
	RuleStack      []Rule     `json:"ruleStack"`
	Modifiers      []Modifier `json:"modifiers"`
}

// Module returns the module with the given id, or nil.
func (s *Spec) Module(id string) *Module {
	for _, m := range s.Modules {
		if m.ID == id {
			return m
		}
	}
	return nil
}

// AllSolved reports whether every module is solved.
func (s *Spec) AllSolved() bool {
	for _, m := range s.Modules {
		if !m.Solved {
			return false
		}
	}
	return len(s.Modules) > 0
}

// HasModifier reports whether the modifier id is active.
func (s *Spec) HasModifier(id string) bool {
	for _, m := range s.Modifiers {
		if m.ID == id {
			return true
		}
	}
	return false
}

// Edge is an advisory dependency between two modules. It never gates play.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Rule is one entry of the rule stack.
type Rule struct {
	ID          string `json:"id"`
	Kind        string `json:"kind"`
	Description string `json:"description"`
	Condition   string `json:"condition"`
	Effect      string `json:"effect"`
}

// Modifier is a cosmetic bomb modifier.
type Modifier struct {
	ID          string `json:"id"`
	Description string `json:"description"`
}

// Module is the runtime state of one puzzle module.
type Module struct {
	ID          string      `json:"id"`
	Type        string      `json:"moduleType"`
	Variant     string      `json:"variantId"`
	Solved      bool        `json:"solved"`
	LockedUntil int64       `json:"lockedUntil,omitempty"` // unix ms
	State       ModuleState `json:"params"`
}

// Locked reports whether the module rejects actions at now (unix ms).
func (m *Module) Locked(now int64) bool {
	return m.LockedUntil > now
}

// UnmarshalJSON decodes params into the concrete state for the module type.
func (m *Module) UnmarshalJSON(data []byte) error {
	type plain Module
	var raw struct {
		plain
		Params json.RawMessage `json:"params"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	state, err := newState(raw.plain.Type)
	if err != nil {
		return err
	}
	if len(raw.Params) > 0 {
		if err := json.Unmarshal(raw.Params, state); err != nil {
			return fmt.Errorf("decode %s params: %w", raw.plain.Type, err)
		}
	}
	*m = Module(raw.plain)
	m.State = state
	return nil
}

// View is the public projection of a module. Secret solution data is removed.
type View struct {
	ID          string `json:"id"`
	Type        string `json:"moduleType"`
	Variant     string `json:"variantId"`
	Solved      bool   `json:"solved"`
	LockedUntil int64  `json:"lockedUntil,omitempty"`
	Params      any    `json:"params"`
}

// View returns the public projection of the module.
func (m *Module) View() View {
	return View{
		ID:          m.ID,
		Type:        m.Type,
		Variant:     m.Variant,
		Solved:      m.Solved,
		LockedUntil: m.LockedUntil,
		Params:      m.State.Public(),
	}
}

// ModuleState is the type-specific state of a module. The set of
// implementations is closed: one per module type.
type ModuleState interface {
	// Kind returns the module type id.
	Kind() string
	// Public returns the state with the solution removed.
	Public() any
	moduleState()
}

func newState(kind string) (ModuleState, error) {
	switch kind {
	case TypeWires:
		return &WiresState{}, nil
	case TypeDial:
		return &DialState{}, nil
	case TypeGlyph:
		return &GlyphState{}, nil
	case TypePower:
		return &PowerState{}, nil
	case TypeConduit:
		return &ConduitState{}, nil
	case TypeMemory:
		return &MemoryState{}, nil
	case TypeSwitches:
		return &SwitchesState{}, nil
	case TypeReactor:
		return &ReactorState{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownModule, kind)
	}
}

// Wire is one wire of a wires module.
type Wire struct {
	ID         string   `json:"id"`
	Color      string   `json:"color"`
	Thickness  int      `json:"thickness"`
	Label      string   `json:"label"`
	Insulation string   `json:"insulation"`
	Inspected  []string `json:"inspectedProperties"`
	Cut        bool     `json:"cut"`
}

// WiresState requires cutting SafeOrder wires in order.
type WiresState struct {
	Wires       []Wire `json:"wires"`
	SafeOrder   []int  `json:"safeOrder"`
	CutProgress int    `json:"cutProgress"`
}

// DialState solves when locked with Value in [TargetMin, TargetMax].
type DialState struct {
	Alphabet  string `json:"alphabet"`
	Max       int    `json:"max"`
	Value     int    `json:"value"`
	TargetMin int    `json:"targetMin"`
	TargetMax int    `json:"targetMax"`
}

// GlyphState requires pressing Sequence in order.
type GlyphState struct {
	Glyphs   []string `json:"glyphs"`
	Sequence []int    `json:"sequence"`
	Progress int      `json:"progress"`
}

// PowerState solves when Polarity matches and Voltage is at most SafeVoltage.
type PowerState struct {
	Polarity       string `json:"polarity"`
	TargetPolarity string `json:"targetPolarity"`
	Voltage        int    `json:"voltage"`
	SafeVoltage    int    `json:"safeVoltage"`
	Vented         bool   `json:"vented"`
}

// Route connects a conduit source to a sink.
type Route struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// ConduitState solves when every Desired route is present.
type ConduitState struct {
	Sources []string `json:"sources"`
	Sinks   []string `json:"sinks"`
	Desired []Route  `json:"desired"`
	Routes  []Route  `json:"routes"`
}

// MemoryState requires replaying Sequence pad by pad.
type MemoryState struct {
	Pads     int   `json:"pads"`
	Sequence []int `json:"sequence"`
	Input    []int `json:"input"`
}

// SwitchesState solves when Current equals Target.
type SwitchesState struct {
	Count   int `json:"count"`
	Target  int `json:"target"`
	Current int `json:"current"`
}

// ReactorState needs Required consecutive stabilizations inside the band.
type ReactorState struct {
	Heat           int `json:"heat"`
	SafeMin        int `json:"safeMin"`
	SafeMax        int `json:"safeMax"`
	StabilityTicks int `json:"stabilityTicks"`
	Required       int `json:"required"`
}

func (*WiresState) Kind() string    { return TypeWires }
func (*DialState) Kind() string     { return TypeDial }
func (*GlyphState) Kind() string    { return TypeGlyph }
func (*PowerState) Kind() string    { return TypePower }
func (*ConduitState) Kind() string  { return TypeConduit }
func (*MemoryState) Kind() string   { return TypeMemory }
func (*SwitchesState) Kind() string { return TypeSwitches }
func (*ReactorState) Kind() string  { return TypeReactor }

func (*WiresState) moduleState()    {}
func (*DialState) moduleState()     {}
func (*GlyphState) moduleState()    {}
func (*PowerState) moduleState()    {}
func (*ConduitState) moduleState()  {}
func (*MemoryState) moduleState()   {}
func (*SwitchesState) moduleState() {}
func (*ReactorState) moduleState()  {}

// Public methods drop the solution fields.

func (s *WiresState) Public() any {
	return struct {
		Wires       []Wire `json:"wires"`
		OrderLength int    `json:"orderLength"`
		CutProgress int    `json:"cutProgress"`
	}{s.Wires, len(s.SafeOrder), s.CutProgress}
}

func (s *DialState) Public() any {
	return struct {
		Alphabet string `json:"alphabet"`
		Max      int    `json:"max"`
		Value    int    `json:"value"`
	}{s.Alphabet, s.Max, s.Value}
}

func (s *GlyphState) Public() any {
	return struct {
		Glyphs   []string `json:"glyphs"`
		Length   int      `json:"length"`
		Progress int      `json:"progress"`
	}{s.Glyphs, len(s.Sequence), s.Progress}
}

func (s *PowerState) Public() any {
	return struct {
		Polarity string `json:"polarity"`
		Voltage  int    `json:"voltage"`
		Vented   bool   `json:"vented"`
	}{s.Polarity, s.Voltage, s.Vented}
}

func (s *ConduitState) Public() any {
	return struct {
		Sources []string `json:"sources"`
		Sinks   []string `json:"sinks"`
		Pairs   int      `json:"pairs"`
		Routes  []Route  `json:"routes"`
	}{s.Sources, s.Sinks, len(s.Desired), s.Routes}
}

func (s *MemoryState) Public() any {
	return struct {
		Pads   int   `json:"pads"`
		Length int   `json:"length"`
		Input  []int `json:"input"`
	}{s.Pads, len(s.Sequence), s.Input}
}

func (s *SwitchesState) Public() any {
	return struct {
		Count   int `json:"count"`
		Current int `json:"current"`
	}{s.Count, s.Current}
}

func (s *ReactorState) Public() any {
	return struct {
		Heat           int `json:"heat"`
		StabilityTicks int `json:"stabilityTicks"`
		Required       int `json:"required"`
	}{s.Heat, s.StabilityTicks, s.Required}
}
