package bomb

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/vovakirdan/defuse-exe/internal/config"
)

// DeterminismSeeds are the seeds checked by CheckDeterminism by default.
var DeterminismSeeds = []string{"alpha", "beta", "gamma", "delta", "epsilon"}

// Signature summarizes the player-visible shape of a spec: archetype,
// module type and variant in order, and rule ids.
func Signature(spec *Spec) string {
	mods := make([]string, len(spec.Modules))
	for i, m := range spec.Modules {
		mods[i] = m.Type + ":" + m.Variant
	}
	rules := make([]string, len(spec.RuleStack))
	for i, r := range spec.RuleStack {
		rules[i] = r.ID
	}
	return spec.ArchetypeID + "|" + strings.Join(mods, ",") + "|" + strings.Join(rules, ",")
}

// SimulateOptions configures a headless generation run.
type SimulateOptions struct {
	Runs        int    `json:"runs"`
	PlayerCount int    `json:"playerCount"`
	Tier        int    `json:"tier"`
	SeedPrefix  string `json:"seedPrefix"`
}

// SimulationReport aggregates a headless run.
type SimulationReport struct {
	Runs             int            `json:"runs"`
	UniqueSignatures int            `json:"uniqueSignatures"`
	DuplicateRate    float64        `json:"duplicateRate"`
	AverageModules   float64        `json:"averageModules"`
	ModuleTypes      map[string]int `json:"moduleTypes"`
	Archetypes       map[string]int `json:"archetypes"`
}

// MaxSimulationRuns caps a single simulation request.
const MaxSimulationRuns = 10000

// Simulate generates opts.Runs bombs with seeds "<prefix>-<i>" and reports
// how often signatures repeat.
func Simulate(opts SimulateOptions, cat *config.Catalog) (SimulationReport, error) {
	if opts.Runs <= 0 {
		opts.Runs = 100
	}
	if opts.Runs > MaxSimulationRuns {
		opts.Runs = MaxSimulationRuns
	}
	if opts.PlayerCount <= 0 {
		opts.PlayerCount = 4
	}
	if opts.Tier <= 0 {
		opts.Tier = 2
	}
	if opts.SeedPrefix == "" {
		opts.SeedPrefix = "sim"
	}

	report := SimulationReport{
		Runs:        opts.Runs,
		ModuleTypes: make(map[string]int),
		Archetypes:  make(map[string]int),
	}
	seen := make(map[string]struct{}, opts.Runs)
	totalModules := 0

	for i := 0; i < opts.Runs; i++ {
		spec, err := Generate(fmt.Sprintf("%s-%d", opts.SeedPrefix, i), opts.PlayerCount, opts.Tier, cat)
		if err != nil {
			return report, err
		}
		seen[Signature(spec)] = struct{}{}
		totalModules += len(spec.Modules)
		report.Archetypes[spec.ArchetypeID]++
		for _, m := range spec.Modules {
			report.ModuleTypes[m.Type]++
		}
	}

	report.UniqueSignatures = len(seen)
	report.DuplicateRate = float64(opts.Runs-len(seen)) / float64(opts.Runs)
	report.AverageModules = float64(totalModules) / float64(opts.Runs)
	return report, nil
}

// CheckDeterminism generates each seed twice and returns the seeds whose
// JSON encodings differ.
func CheckDeterminism(seeds []string, playerCount, tier int, cat *config.Catalog) ([]string, error) {
	var failed []string
	for _, seed := range seeds {
		first, err := encode(seed, playerCount, tier, cat)
		if err != nil {
			return nil, err
		}
		second, err := encode(seed, playerCount, tier, cat)
		if err != nil {
			return nil, err
		}
		if !bytes.Equal(first, second) {
			failed = append(failed, seed)
		}
	}
	return failed, nil
}

func encode(seed string, playerCount, tier int, cat *config.Catalog) ([]byte, error) {
	spec, err := Generate(seed, playerCount, tier, cat)
	if err != nil {
		return nil, err
	}
	return json.Marshal(spec)
}
