package config

import (
	"embed"
	"time"
)

//go:embed defaults
var defaultFS embed.FS

//go:embed defaults/rogue.yaml
var defaultRogueYAML []byte

//go:embed defaults/server.yaml
var defaultServerYAML []byte

// DefaultRogueConfig returns the hardcoded roguelite tuning table.
func DefaultRogueConfig() RogueConfig {
	return RogueConfig{
		TickRate:         20,
		GameDurationMs:   15 * 60 * 1000,
		TotalWaves:       20,
		ResultsResetMs:   12000,
		ContinueVoteRate: 0.5,
		VoteTimeoutMs:    20000,
		Arena: RogueArena{
			Width:       2400,
			Height:      1800,
			SpawnMargin: 40,
		},
		Player: RoguePlayer{
			Radius:           14,
			PickupBaseRange:  40,
			InvulnAfterHitMs: 500,
			SpawnInvulnMs:    2000,
		},
		XP: RogueXP{
			BaseToLevel: 20,
			Growth:      1.25,
		},
		Limits: RogueLimits{
			MaxWeapons:            6,
			MaxTokens:             6,
			MaxEnemies:            300,
			MaxProjectiles:        600,
			MaxXPGems:             400,
			MaxBreakables:         12,
			MaxBlacklistedWeapons: 3,
			MaxBlacklistedTokens:  3,
			MaxPlayers:            8,
		},
		Weapons: RogueWeapons{
			MaxLevel:       8,
			AscendLevel:    5,
			TranscendLevel: 7,
			LevelUpChoices: 4,
			CritMultiplier: 2,
			MinCooldownMs:  50,
		},
		Spawning: RogueSpawning{
			FirstBatchMs:     1000,
			EnemyIntervalMs:  2000,
			MinibossFirstMs:  180000,
			MinibossRepeatMs: 180000,
			BossFirstMs:      600000,
			BossRepeatMs:     600000,
		},
		Ramp: RampConfig{
			Enabled:             true,
			HPPerMinute:         0.12,
			DifficultyPerMinute: 0.15,
			BatchBase:           5,
			BatchPerMinute:      2,
			EliteAfterMinutes:   2,
			EliteBase:           0.03,
			ElitePerMinute:      0.008,
		},
		Ranks: RogueRanks{
			Elite:    RankMultipliers{HP: 3, Damage: 1.5, XP: 3, Speed: 1},
			Miniboss: RankMultipliers{HP: 1, Damage: 1.5, XP: 1, Speed: 0.9},
			Boss:     RankMultipliers{HP: 1, Damage: 2, XP: 1, Speed: 0.8},
		},
		BombZones: RogueBombZones{
			Radius:          90,
			DurationMs:      30000,
			BaseSpeed:       0.5,
			MultiBonus:      0.5,
			XPRewardBase:    20,
			XPRewardLevel:   5,
			SpawnIntervalMs: 45000,
		},
		Breakables: RogueBreakables{
			FirstSpawnMs:    3000,
			SpawnIntervalMs: 20000,
			SpawnCount:      3,
			HPCrate:         30,
			HPBarrel:        20,
			HPCrystal:       60,
		},
		Pickups: RoguePickups{
			LifetimeMs:   15000,
			CollectRange: 30,
		},
		DamageNumbers: RogueDamageNumbers{
			LifetimeMs: 800,
		},
	}
}

// DefaultServerConfig returns the hardcoded server settings.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr:            ":8080",
		HostKeyPath:     ".ssh/defuse_ed25519",
		DBPath:          "~/.defuse/defuse.db",
		ShutdownTimeout: 10 * time.Second,
		Auth: AuthConfig{
			DevMode:   true,
			JWTSecret: "dev-secret-change-me",
			TokenTTL:  12 * time.Hour,
		},
		Puzzle: PuzzleConfig{
			TickInterval: 250 * time.Millisecond,
			MaxPlayers:   10,
			LockDuration: 2 * time.Second,
		},
	}
}
