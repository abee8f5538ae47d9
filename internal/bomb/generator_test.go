package bomb_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"pgregory.net/rapid"

	"github.com/vovakirdan/defuse-exe/internal/bomb"
	"github.com/vovakirdan/defuse-exe/internal/config"
)

func loadCatalog(t testing.TB) *config.Catalog {
	t.Helper()
	cat, err := config.DefaultCatalog()
	if err != nil {
		t.Fatalf("DefaultCatalog failed: %v", err)
	}
	return cat
}

func TestGenerateDeterministic(t *testing.T) {
	cat := loadCatalog(t)

	first, err := bomb.Generate("alpha", 4, 2, cat)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	second, err := bomb.Generate("alpha", 4, 2, cat)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	a, _ := json.Marshal(first)
	b, _ := json.Marshal(second)
	if !bytes.Equal(a, b) {
		t.Errorf("same seed produced different specs:\n%s\n%s", a, b)
	}
}

func TestGenerateDifferentSeeds(t *testing.T) {
	cat := loadCatalog(t)

	signatures := make(map[string]bool)
	for _, seed := range bomb.DeterminismSeeds {
		spec, err := bomb.Generate(seed, 4, 2, cat)
		if err != nil {
			t.Fatalf("Generate(%s) failed: %v", seed, err)
		}
		signatures[bomb.Signature(spec)] = true
	}
	if len(signatures) < 2 {
		t.Errorf("expected different seeds to differ, got %d unique signatures", len(signatures))
	}
}

func TestGenerateShape(t *testing.T) {
	cat := loadCatalog(t)

	tests := []struct {
		players  int
		tier     int
		band     string
		minCount int
		maxCount int
	}{
		{1, 1, "1", 3, 4},
		{3, 1, "2-3", 4, 6},
		{5, 2, "4-6", 6, 8},
		{9, 3, "7-10", 8, 11},
	}

	for _, tt := range tests {
		t.Run(tt.band, func(t *testing.T) {
			if got := bomb.PlayerBand(tt.players); got != tt.band {
				t.Errorf("PlayerBand(%d) = %s, expected %s", tt.players, got, tt.band)
			}
			spec, err := bomb.Generate("shape", tt.players, tt.tier, cat)
			if err != nil {
				t.Fatalf("Generate failed: %v", err)
			}
			if n := len(spec.Modules); n < tt.minCount || n > tt.maxCount {
				t.Errorf("module count %d outside [%d,%d]", n, tt.minCount, tt.maxCount)
			}

			var archetype config.Archetype
			for _, a := range cat.Archetypes {
				if a.ID == spec.ArchetypeID {
					archetype = a
				}
			}
			allowed := make(map[string]bool)
			for _, m := range archetype.AllowedModules {
				allowed[m] = true
			}
			for i, m := range spec.Modules {
				if !allowed[m.Type] {
					t.Errorf("module %s type %s not allowed by %s", m.ID, m.Type, archetype.ID)
				}
				if m.State.Kind() != m.Type {
					t.Errorf("module %s state kind %s != type %s", m.ID, m.State.Kind(), m.Type)
				}
				if want := "m-" + string(rune('1'+i)); i < 9 && m.ID != want {
					t.Errorf("module %d id %s, expected %s", i, m.ID, want)
				}
			}

			counts := cat.Balance.RuleCountByTier[bomb.TierBucket(tt.tier)]
			if len(spec.RuleStack) != counts.Core+counts.Spice+counts.Deception {
				t.Errorf("rule stack size %d, expected %d", len(spec.RuleStack), counts.Core+counts.Spice+counts.Deception)
			}
		})
	}
}

func TestGraphIsForwardOnly(t *testing.T) {
	cat := loadCatalog(t)

	rapid.Check(t, func(t *rapid.T) {
		seed := rapid.StringN(1, 12, -1).Draw(t, "seed")
		players := rapid.IntRange(1, 10).Draw(t, "players")

		spec, err := bomb.Generate(seed, players, 2, cat)
		if err != nil {
			t.Fatalf("Generate failed: %v", err)
		}
		index := make(map[string]int)
		for i, m := range spec.Modules {
			index[m.ID] = i
		}
		if len(spec.Graph) > cat.Balance.MaxGraphEdges {
			t.Fatalf("graph has %d edges, max %d", len(spec.Graph), cat.Balance.MaxGraphEdges)
		}
		seen := make(map[bomb.Edge]bool)
		for _, e := range spec.Graph {
			if index[e.From] >= index[e.To] {
				t.Fatalf("edge %s -> %s is not forward", e.From, e.To)
			}
			if seen[e] {
				t.Fatalf("duplicate edge %v", e)
			}
			seen[e] = true
		}
	})
}

func TestModuleInvariants(t *testing.T) {
	cat := loadCatalog(t)

	rapid.Check(t, func(t *rapid.T) {
		seed := rapid.StringN(1, 12, -1).Draw(t, "seed")
		spec, err := bomb.Generate(seed, rapid.IntRange(1, 10).Draw(t, "players"), 3, cat)
		if err != nil {
			t.Fatalf("Generate failed: %v", err)
		}
		for _, m := range spec.Modules {
			switch s := m.State.(type) {
			case *bomb.WiresState:
				if len(s.Wires) < 6 || len(s.Wires) > 12 {
					t.Fatalf("wire count %d", len(s.Wires))
				}
				if len(s.SafeOrder) < 2 || len(s.SafeOrder) > 4 {
					t.Fatalf("safe order length %d", len(s.SafeOrder))
				}
				seen := make(map[int]bool)
				for _, idx := range s.SafeOrder {
					if idx < 0 || idx >= len(s.Wires) || seen[idx] {
						t.Fatalf("bad safe order %v", s.SafeOrder)
					}
					seen[idx] = true
				}
			case *bomb.DialState:
				if s.TargetMin > s.TargetMax || s.TargetMax > s.Max || s.Value > s.Max {
					t.Fatalf("bad dial %+v", s)
				}
			case *bomb.SwitchesState:
				if s.Current == s.Target {
					t.Fatalf("switches generated already solved")
				}
			case *bomb.ReactorState:
				if s.SafeMax-s.SafeMin < 10 || s.SafeMax-s.SafeMin > 15 {
					t.Fatalf("bad reactor band %+v", s)
				}
			case *bomb.ConduitState:
				if len(s.Desired) < 2 || len(s.Desired) > 3 {
					t.Fatalf("bad conduit pairs %+v", s)
				}
			}
		}
	})
}

func TestGenerateErrors(t *testing.T) {
	cat := loadCatalog(t)

	empty := *cat
	empty.Archetypes = nil
	if _, err := bomb.Generate("x", 2, 1, &empty); !errors.Is(err, bomb.ErrNoArchetypes) {
		t.Errorf("expected ErrNoArchetypes, got %v", err)
	}

	ghost := *cat
	ghost.Archetypes = []config.Archetype{{ID: "ghost", AllowedModules: []string{"laser"}}}
	if _, err := bomb.Generate("x", 2, 1, &ghost); !errors.Is(err, bomb.ErrUnknownModule) {
		t.Errorf("expected ErrUnknownModule, got %v", err)
	}

	bare := *cat
	bare.Archetypes = []config.Archetype{{ID: "bare"}}
	if _, err := bomb.Generate("x", 2, 1, &bare); !errors.Is(err, bomb.ErrEmptyArchetype) {
		t.Errorf("expected ErrEmptyArchetype, got %v", err)
	}
}

func TestSpecJSONRoundTripKeepsStateTypes(t *testing.T) {
	cat := loadCatalog(t)

	spec, err := bomb.Generate("roundtrip", 8, 3, cat)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	data, err := json.Marshal(spec)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	var decoded bomb.Spec
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	again, _ := json.Marshal(&decoded)
	if !bytes.Equal(data, again) {
		t.Errorf("re-encoded spec differs")
	}
	for i, m := range decoded.Modules {
		if m.State.Kind() != spec.Modules[i].Type {
			t.Errorf("module %s decoded as %s", m.ID, m.State.Kind())
		}
	}

	if err := json.Unmarshal([]byte(`{"id":"m-1","moduleType":"laser","params":{}}`), &bomb.Module{}); !errors.Is(err, bomb.ErrUnknownModule) {
		t.Errorf("expected ErrUnknownModule, got %v", err)
	}
}

func TestPublicViewHidesSolution(t *testing.T) {
	cat := loadCatalog(t)

	for _, seed := range bomb.DeterminismSeeds {
		spec, err := bomb.Generate(seed, 10, 3, cat)
		if err != nil {
			t.Fatal(err)
		}
		for _, m := range spec.Modules {
			data, err := json.Marshal(m.View())
			if err != nil {
				t.Fatal(err)
			}
			for _, secret := range []string{"safeOrder", "targetMin", "sequence", "desired", "targetPolarity", "safeMin", `"target"`} {
				if bytes.Contains(data, []byte(secret)) {
					t.Errorf("%s view leaks %s: %s", m.Type, secret, data)
				}
			}
		}
	}
}

func TestChooseTalkModeDeterministic(t *testing.T) {
	cat := loadCatalog(t)

	spec, err := bomb.Generate("talk", 4, 2, cat)
	if err != nil {
		t.Fatal(err)
	}
	mode := bomb.ChooseTalkMode(cat, spec)
	for i := 0; i < 5; i++ {
		if got := bomb.ChooseTalkMode(cat, spec); got != mode {
			t.Fatalf("talk mode changed between calls: %s vs %s", mode, got)
		}
	}

	spec.ArchetypeID = "missing"
	if got := bomb.ChooseTalkMode(cat, spec); got != "shared_pool" {
		t.Errorf("unknown archetype should default to shared_pool, got %s", got)
	}
}
