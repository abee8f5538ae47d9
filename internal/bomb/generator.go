package bomb

import (
	"errors"
	"fmt"
	"sort"

	"github.com/vovakirdan/defuse-exe/internal/config"
	"github.com/vovakirdan/defuse-exe/internal/rng"
)

// Generator errors.
var (
	ErrUnknownModule  = errors.New("bomb: unknown module type")
	ErrNoArchetypes   = errors.New("bomb: no archetypes configured")
	ErrEmptyArchetype = errors.New("bomb: archetype allows no modules")
)

var (
	wireColors      = []string{"red", "blue", "yellow", "green", "white"}
	wireThickness   = []int{1, 2, 3}
	wireInsulation  = []string{"basic", "shielded", "frayed"}
	dialAlphabets   = []string{"0-9", "A-F"}
	glyphPalette    = []string{"Ω", "Ψ", "∆", "⊕", "✶", "☍", "⌬", "⋈", "⟁"}
	polarities      = []string{"POS", "NEG"}
	conduitSources  = []string{"A", "B", "C"}
	conduitSinks    = []string{"1", "2", "3"}
	memoryPads      = 4
	switchCount     = 5
	reactorRequired = 3
	safeVoltage     = 75
)

// Generate builds a bomb spec. The same inputs always produce the same spec,
// down to the byte of its JSON encoding.
func Generate(seed string, playerCount, tier int, cat *config.Catalog) (*Spec, error) {
	if len(cat.Archetypes) == 0 {
		return nil, ErrNoArchetypes
	}
	if playerCount < 1 {
		playerCount = 1
	}
	r := rng.New(seed)

	minModules, maxModules := cat.Balance.ModuleRange(PlayerBand(playerCount))
	moduleCount := r.Int(minModules, maxModules)

	archetype := chooseByWeight(r, cat.Archetypes, config.Archetype.SelectionWeight)
	if len(archetype.AllowedModules) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyArchetype, archetype.ID)
	}

	modules := make([]*Module, 0, moduleCount)
	for i := 0; i < moduleCount; i++ {
		kind := rng.Pick(r, archetype.AllowedModules)
		m, err := synthesize(r, kind, fmt.Sprintf("m-%d", i+1))
		if err != nil {
			return nil, err
		}
		modules = append(modules, m)
	}

	spec := &Spec{
		Seed:           seed,
		ArchetypeID:    archetype.ID,
		DifficultyTier: tier,
		PlayerCount:    playerCount,
		Modules:        modules,
		Graph:          buildGraph(r, modules, cat.Balance.MaxGraphEdges),
		RuleStack:      drawRules(r, cat, tier),
		Modifiers:      []Modifier{},
	}

	if r.Next() < cat.Balance.DeceptionRate {
		spec.Modifiers = append(spec.Modifiers, Modifier{ID: "ui-noise", Description: "Minor UI delay appears for some players."})
	}
	mislabel := cat.Balance.MislabelRate
	if mislabel == 0 {
		mislabel = 0.3
	}
	if r.Next() < mislabel {
		spec.Modifiers = append(spec.Modifiers, Modifier{ID: "mislabel", Description: "One visible hint may be fake."})
	}

	return spec, nil
}

// PlayerBand maps a player count to its module_count_by_player key.
func PlayerBand(playerCount int) string {
	switch {
	case playerCount <= 1:
		return "1"
	case playerCount <= 3:
		return "2-3"
	case playerCount <= 6:
		return "4-6"
	default:
		return "7-10"
	}
}

// TierBucket maps a difficulty tier to its config key.
func TierBucket(tier int) string {
	switch {
	case tier <= 1:
		return "1"
	case tier <= 2:
		return "2"
	default:
		return "3"
	}
}

// chooseByWeight walks cumulative weights with a single draw. The last entry
// is returned if rounding leaves the cursor positive.
func chooseByWeight[T any](r *rng.RNG, entries []T, weight func(T) float64) T {
	total := 0.0
	for _, e := range entries {
		total += weight(e)
	}
	cursor := r.Next() * total
	for _, e := range entries {
		cursor -= weight(e)
		if cursor <= 0 {
			return e
		}
	}
	return entries[len(entries)-1]
}

type weighted struct {
	id     string
	weight float64
}

// ChooseTalkMode picks the talk mode for a bomb from its archetype weights,
// using a generator seeded with "<seed>:talk". Keys are walked in sorted order.
func ChooseTalkMode(cat *config.Catalog, spec *Spec) string {
	var weights map[string]float64
	for _, a := range cat.Archetypes {
		if a.ID == spec.ArchetypeID {
			weights = a.TalkModeWeights
			break
		}
	}
	if len(weights) == 0 {
		return "shared_pool"
	}
	entries := make([]weighted, 0, len(weights))
	for id, w := range weights {
		entries = append(entries, weighted{id, w})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].id < entries[j].id })

	r := rng.New(spec.Seed + ":talk")
	return chooseByWeight(r, entries, func(e weighted) float64 { return e.weight }).id
}

func synthesize(r *rng.RNG, kind, id string) (*Module, error) {
	m := &Module{ID: id, Type: kind}
	switch kind {
	case TypeWires:
		m.Variant = variant(r, kind, 5)
		count := r.Int(6, 12)
		wires := make([]Wire, count)
		for i := range wires {
			wires[i] = Wire{
				ID:         fmt.Sprintf("%s-w-%d", id, i),
				Color:      rng.Pick(r, wireColors),
				Thickness:  rng.Pick(r, wireThickness),
				Label:      fmt.Sprintf("L%d", r.Int(10, 99)),
				Insulation: rng.Pick(r, wireInsulation),
				Inspected:  []string{},
			}
		}
		orderLen := min(r.Int(2, 4), count)
		indices := make([]int, count)
		for i := range indices {
			indices[i] = i
		}
		m.State = &WiresState{Wires: wires, SafeOrder: rng.Shuffle(r, indices)[:orderLen]}

	case TypeDial:
		m.Variant = variant(r, kind, 4)
		alphabet := rng.Pick(r, dialAlphabets)
		maxValue := 9
		if alphabet == "A-F" {
			maxValue = 15
		}
		value := r.Int(0, maxValue)
		targetMin := r.Int(0, maxValue-3)
		targetMax := targetMin + r.Int(1, 3)
		m.State = &DialState{Alphabet: alphabet, Max: maxValue, Value: value, TargetMin: targetMin, TargetMax: targetMax}

	case TypeGlyph:
		m.Variant = variant(r, kind, 6)
		glyphs := make([]string, 9)
		for i := range glyphs {
			glyphs[i] = rng.Pick(r, glyphPalette)
		}
		sequence := make([]int, r.Int(3, 5))
		for i := range sequence {
			sequence[i] = r.Int(0, 8)
		}
		m.State = &GlyphState{Glyphs: glyphs, Sequence: sequence}

	case TypePower:
		m.Variant = variant(r, kind, 4)
		m.State = &PowerState{
			Polarity:       rng.Pick(r, polarities),
			TargetPolarity: rng.Pick(r, polarities),
			Voltage:        r.Int(40, 95),
			SafeVoltage:    safeVoltage,
		}

	case TypeConduit:
		m.Variant = variant(r, kind, 3)
		pairs := r.Int(2, 3)
		from := rng.Shuffle(r, conduitSources)[:pairs]
		to := rng.Shuffle(r, conduitSinks)
		desired := make([]Route, pairs)
		for i := range desired {
			desired[i] = Route{From: from[i], To: to[i]}
		}
		m.State = &ConduitState{
			Sources: append([]string(nil), conduitSources...),
			Sinks:   append([]string(nil), conduitSinks...),
			Desired: desired,
			Routes:  []Route{},
		}

	case TypeMemory:
		m.Variant = variant(r, kind, 4)
		sequence := make([]int, r.Int(3, 5))
		for i := range sequence {
			sequence[i] = r.Int(0, memoryPads-1)
		}
		m.State = &MemoryState{Pads: memoryPads, Sequence: sequence, Input: []int{}}

	case TypeSwitches:
		m.Variant = variant(r, kind, 3)
		full := 1<<switchCount - 1
		target := r.Int(1, full)
		current := r.Int(0, full)
		if current == target {
			current ^= 1
		}
		m.State = &SwitchesState{Count: switchCount, Target: target, Current: current}

	case TypeReactor:
		m.Variant = variant(r, kind, 3)
		heat := r.Int(30, 70)
		safeMin := r.Int(40, 50)
		safeMax := safeMin + r.Int(10, 15)
		m.State = &ReactorState{Heat: heat, SafeMin: safeMin, SafeMax: safeMax, Required: reactorRequired}

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownModule, kind)
	}
	return m, nil
}

func variant(r *rng.RNG, kind string, n int) string {
	return fmt.Sprintf("%s-v%d", kind, r.Int(1, n))
}

// buildGraph draws advisory edges. Edges always point from a lower module
// index to a higher one, so the graph is acyclic.
func buildGraph(r *rng.RNG, modules []*Module, maxEdges int) []Edge {
	edges := []Edge{}
	n := len(modules)
	if n < 2 {
		return edges
	}
	budget := min(maxEdges, n+r.Int(0, n))
	seen := make(map[Edge]bool)
	for i := 0; i < budget; i++ {
		from := r.Int(0, n-1)
		to := r.Int(0, n-1)
		if from >= to {
			continue
		}
		e := Edge{From: modules[from].ID, To: modules[to].ID}
		if seen[e] {
			continue
		}
		seen[e] = true
		edges = append(edges, e)
	}
	return edges
}

func drawRules(r *rng.RNG, cat *config.Catalog, tier int) []Rule {
	counts := cat.Balance.RuleCountByTier[TierBucket(tier)]
	stack := []Rule{}
	for _, kind := range config.RuleKinds {
		pool := rng.Shuffle(r, cat.RulesOfKind(kind))
		take := min(counts.Of(kind), len(pool))
		for _, def := range pool[:take] {
			stack = append(stack, Rule{
				ID:          def.ID,
				Kind:        def.Kind,
				Description: def.Description,
				Condition:   def.Condition,
				Effect:      def.Effect,
			})
		}
	}
	return stack
}
