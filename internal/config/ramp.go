package config

import "math"

// RampConfig controls how enemy pressure grows with elapsed match time.
type RampConfig struct {
	Enabled             bool    `yaml:"enabled"`
	HPPerMinute         float64 `yaml:"hp_per_minute"`
	DifficultyPerMinute float64 `yaml:"difficulty_per_minute"`
	BatchBase           float64 `yaml:"batch_base"`
	BatchPerMinute      float64 `yaml:"batch_per_minute"`
	EliteAfterMinutes   float64 `yaml:"elite_after_minutes"`
	EliteBase           float64 `yaml:"elite_base"`
	ElitePerMinute      float64 `yaml:"elite_per_minute"`
}

// Ramp calculates time-scaled spawn parameters.
type Ramp struct {
	cfg RampConfig
}

// NewRamp creates a new ramp from its configuration.
func NewRamp(cfg RampConfig) *Ramp {
	return &Ramp{cfg: cfg}
}

// IsEnabled returns whether scaling with time is active.
func (r *Ramp) IsEnabled() bool {
	return r.cfg.Enabled
}

// Minutes converts elapsed milliseconds to minutes.
func Minutes(elapsedMs int) float64 {
	return float64(elapsedMs) / 60000
}

// HPScale returns the enemy hp multiplier at the given elapsed time.
func (r *Ramp) HPScale(elapsedMs int) float64 {
	if !r.cfg.Enabled {
		return 1
	}
	return 1 + Minutes(elapsedMs)*r.cfg.HPPerMinute
}

// DifficultyScale returns the enemy damage multiplier at the given elapsed time.
func (r *Ramp) DifficultyScale(elapsedMs int) float64 {
	if !r.cfg.Enabled {
		return 1
	}
	return 1 + Minutes(elapsedMs)*r.cfg.DifficultyPerMinute
}

// BatchSize returns how many enemies one spawn batch holds.
func (r *Ramp) BatchSize(elapsedMs, players int) int {
	if players < 1 {
		players = 1
	}
	minutes := Minutes(elapsedMs)
	if !r.cfg.Enabled {
		minutes = 0
	}
	return int(math.Floor((r.cfg.BatchBase + minutes*r.cfg.BatchPerMinute) * float64(players)))
}

// EliteChance returns the probability that a batch enemy spawns as elite.
func (r *Ramp) EliteChance(elapsedMs int) float64 {
	minutes := Minutes(elapsedMs)
	if !r.cfg.Enabled || minutes < r.cfg.EliteAfterMinutes {
		return 0
	}
	return clampF(r.cfg.EliteBase+minutes*r.cfg.ElitePerMinute, 0, 1)
}

// clampF restricts a float64 to [min, max].
func clampF(val, min, max float64) float64 {
	return math.Max(min, math.Min(max, val))
}
