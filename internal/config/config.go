// Package config provides YAML-based configuration loading for the bomb
// generator catalog, the roguelite tuning table and the server itself.
package config

import (
	"fmt"
	"sort"
	"time"
)

// Rule kinds, in rule-stack order.
const (
	RuleKindCore      = "core"
	RuleKindSpice     = "spice"
	RuleKindDeception = "deception"
)

// RuleKinds lists the rule kinds in the order the generator draws them.
var RuleKinds = []string{RuleKindCore, RuleKindSpice, RuleKindDeception}

// Balance holds the global constants consumed by the bomb generator and the
// puzzle runtime. Keys follow the game.balance file format.
type Balance struct {
	ModuleCountByPlayer     map[string][]int      `yaml:"module_count_by_player"` // band -> [min, max]
	MaxGraphEdges           int                   `yaml:"max_graph_edges"`
	RuleCountByTier         map[string]RuleCounts `yaml:"rule_count_by_tier"`
	DeceptionRate           float64               `yaml:"deception_rate"`
	MislabelRate            float64               `yaml:"mislabel_rate"`
	PenaltyScale            float64               `yaml:"penalty_scale"`
	TalkBudgetSecondsByTier map[string]int        `yaml:"talk_budget_seconds_by_tier"`
	TalkModesWeights        map[string]float64    `yaml:"talk_modes_weights"`
	DrainPerSecond          float64               `yaml:"drain_per_second"`
	OverlapMultiplier       float64               `yaml:"overlap_multiplier"`
	GraceSeconds            float64               `yaml:"grace_seconds"`
	LockoutOnZero           bool                  `yaml:"lockout_on_zero"`
	StabilityStart          int                   `yaml:"stability_start"`
	TimerSecondsByTier      map[string]int        `yaml:"timer_seconds_by_tier"`
}

// RuleCounts is the number of rules of each kind drawn for one tier.
type RuleCounts struct {
	Core      int `yaml:"core"`
	Spice     int `yaml:"spice"`
	Deception int `yaml:"deception"`
}

// Of returns the count for a rule kind.
func (c RuleCounts) Of(kind string) int {
	switch kind {
	case RuleKindCore:
		return c.Core
	case RuleKindSpice:
		return c.Spice
	case RuleKindDeception:
		return c.Deception
	default:
		return 0
	}
}

// ModuleRange returns the [min, max] module count for a player band.
func (b Balance) ModuleRange(band string) (int, int) {
	r, ok := b.ModuleCountByPlayer[band]
	if !ok || len(r) == 0 {
		return 3, 4
	}
	if len(r) == 1 {
		return r[0], r[0]
	}
	return r[0], r[1]
}

// Archetype is a named bundle of allowed module types and weight tables.
type Archetype struct {
	ID              string             `yaml:"id"`
	Name            string             `yaml:"name"`
	AllowedModules  []string           `yaml:"allowed_modules"`
	RuleWeights     map[string]float64 `yaml:"rule_weights"`
	TalkModeWeights map[string]float64 `yaml:"talk_mode_weights"`
	SkinTheme       string             `yaml:"skin_theme"`
}

// SelectionWeight is the archetype's weight in the generator's draw.
func (a Archetype) SelectionWeight() float64 {
	if w, ok := a.RuleWeights[RuleKindCore]; ok {
		return w
	}
	return 1
}

// ModuleDef describes a puzzle module type.
type ModuleDef struct {
	ID               string         `yaml:"id"`
	Params           map[string]any `yaml:"params"`
	DifficultyWeight float64        `yaml:"difficulty_weight"`
	UIHints          []string       `yaml:"ui_hints"`
	ErrorPenalty     int            `yaml:"error_penalty"`
}

// RuleDef is one entry of the rule pools.
type RuleDef struct {
	ID          string  `yaml:"id"`
	Kind        string  `yaml:"kind"`
	Description string  `yaml:"description"`
	Condition   string  `yaml:"condition"`
	Effect      string  `yaml:"effect"`
	Weight      float64 `yaml:"weight"`
}

// Catalog is the full static configuration of the bomb generator.
type Catalog struct {
	Balance    Balance
	Archetypes []Archetype // sorted by ID
	Modules    map[string]ModuleDef
	Rules      []RuleDef // sorted by kind, then ID
}

// RulesOfKind returns the rule pool for kind in catalog order.
func (c *Catalog) RulesOfKind(kind string) []RuleDef {
	var out []RuleDef
	for _, r := range c.Rules {
		if r.Kind == kind {
			out = append(out, r)
		}
	}
	return out
}

// Module returns the module definition for a type id.
func (c *Catalog) Module(id string) (ModuleDef, bool) {
	m, ok := c.Modules[id]
	return m, ok
}

// ErrorPenalty returns the configured severity for rule violations on a
// module type, or fallback when none is set.
func (c *Catalog) ErrorPenalty(moduleType string, fallback int) int {
	if m, ok := c.Modules[moduleType]; ok && m.ErrorPenalty > 0 {
		return m.ErrorPenalty
	}
	return fallback
}

// Validate checks cross references between archetypes, modules and rules.
func (c *Catalog) Validate() error {
	if len(c.Archetypes) == 0 {
		return fmt.Errorf("config: no archetypes defined")
	}
	for _, a := range c.Archetypes {
		if len(a.AllowedModules) == 0 {
			return fmt.Errorf("config: archetype %s allows no modules", a.ID)
		}
		for _, m := range a.AllowedModules {
			if _, ok := c.Modules[m]; !ok {
				return fmt.Errorf("config: archetype %s references unknown module %q", a.ID, m)
			}
		}
	}
	for _, r := range c.Rules {
		switch r.Kind {
		case RuleKindCore, RuleKindSpice, RuleKindDeception:
		default:
			return fmt.Errorf("config: rule %s has unknown kind %q", r.ID, r.Kind)
		}
	}
	return nil
}

func (c *Catalog) sortEntries() {
	sort.Slice(c.Archetypes, func(i, j int) bool {
		return c.Archetypes[i].ID < c.Archetypes[j].ID
	})
	sort.SliceStable(c.Rules, func(i, j int) bool {
		if c.Rules[i].Kind != c.Rules[j].Kind {
			return kindOrder(c.Rules[i].Kind) < kindOrder(c.Rules[j].Kind)
		}
		return c.Rules[i].ID < c.Rules[j].ID
	})
}

func kindOrder(kind string) int {
	for i, k := range RuleKinds {
		if k == kind {
			return i
		}
	}
	return len(RuleKinds)
}

// RogueConfig holds the tuning table of the roguelite simulation.
type RogueConfig struct {
	TickRate         int                `yaml:"tick_rate"`
	GameDurationMs   int                `yaml:"game_duration_ms"`
	TotalWaves       int                `yaml:"total_waves"`
	ResultsResetMs   int                `yaml:"results_reset_ms"`
	Arena            RogueArena         `yaml:"arena"`
	Player           RoguePlayer        `yaml:"player"`
	XP               RogueXP            `yaml:"xp"`
	Limits           RogueLimits        `yaml:"limits"`
	Weapons          RogueWeapons       `yaml:"weapons"`
	Spawning         RogueSpawning      `yaml:"spawning"`
	Ramp             RampConfig         `yaml:"ramp"`
	Ranks            RogueRanks         `yaml:"ranks"`
	BombZones        RogueBombZones     `yaml:"bomb_zones"`
	Breakables       RogueBreakables    `yaml:"breakables"`
	Pickups          RoguePickups       `yaml:"pickups"`
	DamageNumbers    RogueDamageNumbers `yaml:"damage_numbers"`
	ContinueVoteRate float64            `yaml:"continue_vote_rate"`
	VoteTimeoutMs    int                `yaml:"vote_timeout_ms"`
}

// TickMs returns the tick length in milliseconds.
func (c RogueConfig) TickMs() int {
	if c.TickRate <= 0 {
		return 50
	}
	return 1000 / c.TickRate
}

// TickInterval returns the tick length as a duration.
func (c RogueConfig) TickInterval() time.Duration {
	return time.Duration(c.TickMs()) * time.Millisecond
}

// RogueArena defines the playfield bounds.
type RogueArena struct {
	Width       float64 `yaml:"width"`
	Height      float64 `yaml:"height"`
	SpawnMargin float64 `yaml:"spawn_margin"`
}

// RoguePlayer defines player collision and pickup parameters.
type RoguePlayer struct {
	Radius           float64 `yaml:"radius"`
	PickupBaseRange  float64 `yaml:"pickup_base_range"`
	InvulnAfterHitMs int     `yaml:"invuln_after_hit_ms"`
	SpawnInvulnMs    int     `yaml:"spawn_invuln_ms"`
}

// RogueXP defines the shared leveling curve.
type RogueXP struct {
	BaseToLevel float64 `yaml:"base_to_level"`
	Growth      float64 `yaml:"growth"`
}

// RogueLimits caps entity counts and loadouts.
type RogueLimits struct {
	MaxWeapons            int `yaml:"max_weapons"`
	MaxTokens             int `yaml:"max_tokens"`
	MaxEnemies            int `yaml:"max_enemies"`
	MaxProjectiles        int `yaml:"max_projectiles"`
	MaxXPGems             int `yaml:"max_xp_gems"`
	MaxBreakables         int `yaml:"max_breakables"`
	MaxBlacklistedWeapons int `yaml:"max_blacklisted_weapons"`
	MaxBlacklistedTokens  int `yaml:"max_blacklisted_tokens"`
	MaxPlayers            int `yaml:"max_players"`
}

// RogueWeapons defines weapon progression thresholds.
type RogueWeapons struct {
	MaxLevel       int     `yaml:"max_level"`
	AscendLevel    int     `yaml:"ascend_level"`
	TranscendLevel int     `yaml:"transcend_level"`
	LevelUpChoices int     `yaml:"level_up_choices"`
	CritMultiplier float64 `yaml:"crit_multiplier"`
	MinCooldownMs  float64 `yaml:"min_cooldown_ms"`
}

// RogueSpawning defines the batch and timed boss spawners.
type RogueSpawning struct {
	FirstBatchMs     int `yaml:"first_batch_ms"`
	EnemyIntervalMs  int `yaml:"enemy_interval_ms"`
	MinibossFirstMs  int `yaml:"miniboss_first_ms"`
	MinibossRepeatMs int `yaml:"miniboss_repeat_ms"`
	BossFirstMs      int `yaml:"boss_first_ms"`
	BossRepeatMs     int `yaml:"boss_repeat_ms"`
}

// RogueRanks holds the per-rank multipliers.
type RogueRanks struct {
	Elite    RankMultipliers `yaml:"elite"`
	Miniboss RankMultipliers `yaml:"miniboss"`
	Boss     RankMultipliers `yaml:"boss"`
}

// RankMultipliers scales hp, damage and xp of a rank.
type RankMultipliers struct {
	HP     float64 `yaml:"hp"`
	Damage float64 `yaml:"damage"`
	XP     float64 `yaml:"xp"`
	Speed  float64 `yaml:"speed"`
}

// RogueBombZones defines the defusal zone system.
type RogueBombZones struct {
	Radius          float64 `yaml:"radius"`
	DurationMs      int     `yaml:"duration_ms"`
	BaseSpeed       float64 `yaml:"base_speed"`
	MultiBonus      float64 `yaml:"multi_bonus"`
	XPRewardBase    int     `yaml:"xp_reward_base"`
	XPRewardLevel   int     `yaml:"xp_reward_per_level"`
	SpawnIntervalMs int     `yaml:"spawn_interval_ms"`
}

// RogueBreakables defines breakable props.
type RogueBreakables struct {
	FirstSpawnMs    int `yaml:"first_spawn_ms"`
	SpawnIntervalMs int `yaml:"spawn_interval_ms"`
	SpawnCount      int `yaml:"spawn_count"`
	HPCrate         int `yaml:"hp_crate"`
	HPBarrel        int `yaml:"hp_barrel"`
	HPCrystal       int `yaml:"hp_crystal"`
}

// RoguePickups defines pickup lifetime and reach.
type RoguePickups struct {
	LifetimeMs   int     `yaml:"lifetime_ms"`
	CollectRange float64 `yaml:"collect_range"`
}

// RogueDamageNumbers defines the cosmetic damage number lifetime.
type RogueDamageNumbers struct {
	LifetimeMs int `yaml:"lifetime_ms"`
}

// ServerConfig holds the process-level settings for `defuse serve`.
type ServerConfig struct {
	Addr             string        `yaml:"addr"`
	SSHAddr          string        `yaml:"ssh_addr"` // empty disables the SSH console
	HostKeyPath      string        `yaml:"host_key_path"`
	DBPath           string        `yaml:"db_path"`
	AdminToken       string        `yaml:"admin_token"`
	VoiceSourceToken string        `yaml:"voice_source_token"`
	AllowedOrigins   []string      `yaml:"allowed_origins"` // empty allows all
	ShutdownTimeout  time.Duration `yaml:"shutdown_timeout"`
	Auth             AuthConfig    `yaml:"auth"`
	Puzzle           PuzzleConfig  `yaml:"puzzle"`
}

// AuthConfig controls the token exchange endpoint.
type AuthConfig struct {
	DevMode      bool          `yaml:"dev_mode"`
	JWTSecret    string        `yaml:"jwt_secret"`
	TokenTTL     time.Duration `yaml:"token_ttl"`
	RequireToken bool          `yaml:"require_token"`
}

// PuzzleConfig holds puzzle-mode runtime settings.
type PuzzleConfig struct {
	TickInterval time.Duration `yaml:"tick_interval"`
	MaxPlayers   int           `yaml:"max_players"`
	LockDuration time.Duration `yaml:"lock_duration"`
}
