package roguelite

// Phase is the room phase.
type Phase string

const (
	PhaseLobby        Phase = "lobby"
	PhaseActive       Phase = "active"
	PhaseVoteContinue Phase = "vote_continue"
	PhaseResults      Phase = "results"
)

// Outcome ends a game.
type Outcome string

const (
	OutcomeVictory Outcome = "victory"
	OutcomeDefeat  Outcome = "defeat"
)

// Enemy ranks.
const (
	RankNormal   = "normal"
	RankElite    = "elite"
	RankMiniboss = "miniboss"
	RankBoss     = "boss"
)

// Breakable kinds.
const (
	BreakableCrate   = "crate"
	BreakableBarrel  = "barrel"
	BreakableCrystal = "crystal"
)

// Pickup types.
const (
	PickupHealth      = "health"
	PickupMagnet      = "magnet"
	PickupSpeedBoost  = "speed_boost"
	PickupDamageBoost = "damage_boost"
	PickupBombCharge  = "bomb_charge"
)

// Targeting modes.
const (
	TargetClosest = "closest"
	TargetCursor  = "cursor"
)

// EnemyOwner marks projectiles fired by enemies.
const EnemyOwner = "__enemy__"

// Cosmetic is passed through from the lobby untouched.
type Cosmetic struct {
	ColorOverride string `json:"colorOverride,omitempty"`
	Hat           string `json:"hat,omitempty"`
	Trail         string `json:"trail,omitempty"`
}

// WeaponInstance is an owned weapon.
type WeaponInstance struct {
	WeaponID    string `json:"weaponId"`
	Level       int    `json:"level"`
	XP          int    `json:"xp"`
	Ascended    bool   `json:"ascended"`
	Transcended bool   `json:"transcended"`
}

// Bonuses are the accumulated stat modifiers of a player.
type Bonuses struct {
	Damage          float64 `json:"bonusDamage"`
	Speed           float64 `json:"bonusSpeed"`
	Area            float64 `json:"bonusArea"`
	Projectiles     int     `json:"bonusProjectiles"`
	Pierce          int     `json:"bonusPierce"`
	Crit            float64 `json:"bonusCrit"`
	PickupRange     float64 `json:"bonusPickupRange"`
	MaxHP           int     `json:"bonusMaxHp"`
	DamageReduction float64 `json:"bonusDamageReduction"`
	Lifesteal       float64 `json:"bonusLifesteal"`
	AttackSpeed     float64 `json:"bonusAttackSpeed"`
	XPGain          float64 `json:"bonusXpGain"`
	MaxHPPct        float64 `json:"bonusMaxHpPct"`
	Knockback       float64 `json:"bonusKnockback"`
	Duration        float64 `json:"bonusDuration"`
}

// add applies one stat. Fractional maxHp values are percentages.
func (b *Bonuses) add(stat string, v float64) {
	switch stat {
	case StatDamage:
		b.Damage += v
	case StatSpeed:
		b.Speed += v
	case StatArea:
		b.Area += v
	case StatProjectiles:
		b.Projectiles += int(v)
	case StatPierce:
		b.Pierce += int(v)
	case StatCrit:
		b.Crit += v
	case StatPickupRange:
		b.PickupRange += v
	case StatMaxHP:
		if v < 1 {
			b.MaxHPPct += v
		} else {
			b.MaxHP += int(v)
		}
	case StatDamageReduction:
		b.DamageReduction += v
	case StatLifesteal:
		b.Lifesteal += v
	case StatAttackSpeed:
		b.AttackSpeed += v
	case StatXPGain:
		b.XPGain += v
	case StatKnockback:
		b.Knockback += v
	case StatDuration:
		b.Duration += v
	}
}

// PlayerState is the public state of one player.
type PlayerState struct {
	ID           string           `json:"id"`
	DisplayName  string           `json:"displayName"`
	CharacterID  string           `json:"characterId"`
	X            float64          `json:"x"`
	Y            float64          `json:"y"`
	HP           int              `json:"hp"`
	MaxHP        int              `json:"maxHp"`
	Speed        float64          `json:"speed"`
	Weapons      []WeaponInstance `json:"weapons"`
	Tokens       []string         `json:"tokens"`
	Cosmetic     Cosmetic         `json:"cosmetic"`
	Alive        bool             `json:"alive"`
	DamageDealt  int              `json:"damageDealt"`
	KillCount    int              `json:"killCount"`
	XPCollected  int              `json:"xpCollected"`
	BombsDefused int              `json:"bombsDefused"`
	Revives      int              `json:"revives"`
	DX           float64          `json:"dx"`
	DY           float64          `json:"dy"`
	Moving       bool             `json:"moving"`
	InvulnMs     int              `json:"invulnMs"`
	Bonuses
}

func (p *PlayerState) hasWeapon(id string) bool {
	for _, w := range p.Weapons {
		if w.WeaponID == id {
			return true
		}
	}
	return false
}

func (p *PlayerState) hasToken(id string) bool {
	for _, t := range p.Tokens {
		if t == id {
			return true
		}
	}
	return false
}

// EnemyState is one live enemy.
type EnemyState struct {
	ID        int64   `json:"id"`
	DefID     string  `json:"defId"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	HP        int     `json:"hp"`
	MaxHP     int     `json:"maxHp"`
	Rank      string  `json:"rank"`
	StunMs    int     `json:"stunMs"`
	SpeedMult float64 `json:"speedMult"`
	Armor     int     `json:"armor"`
}

// ProjectileState is one live projectile or persistent area effect.
type ProjectileState struct {
	ID         int64    `json:"id"`
	OwnerID    string   `json:"ownerId"`
	WeaponID   string   `json:"weaponId"`
	X          float64  `json:"x"`
	Y          float64  `json:"y"`
	DX         float64  `json:"dx"`
	DY         float64  `json:"dy"`
	Speed      float64  `json:"speed"`
	Damage     int      `json:"damage"`
	Pierce     int      `json:"pierce"`
	Pierced    int      `json:"pierced"`
	Area       float64  `json:"area"`
	LifeMs     int      `json:"lifeMs"`
	Pattern    string   `json:"pattern"`
	Color      string   `json:"color"`
	HitEnemies []int64  `json:"hitEnemies"`
}

func (p *ProjectileState) hit(enemyID int64) bool {
	for _, id := range p.HitEnemies {
		if id == enemyID {
			return true
		}
	}
	return false
}

// XPGem is dropped XP waiting to be collected.
type XPGem struct {
	ID    int64   `json:"id"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Value int     `json:"value"`
}

// BombZone is a capture zone that grants shared XP when completed.
type BombZone struct {
	ID            int64    `json:"id"`
	X             float64  `json:"x"`
	Y             float64  `json:"y"`
	Radius        float64  `json:"radius"`
	Progress      float64  `json:"progress"`
	PlayersInside []string `json:"playersInside"`
	Active        bool     `json:"active"`
	XPReward      int      `json:"xpReward"`
	TimeLeftMs    int      `json:"timeLeftMs"`
}

// Breakable is a destructible prop.
type Breakable struct {
	ID    int64   `json:"id"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	HP    int     `json:"hp"`
	MaxHP int     `json:"maxHp"`
	Kind  string  `json:"kind"`
}

// Pickup is a collectible dropped by breakables.
type Pickup struct {
	ID         int64   `json:"id"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	PickupType string  `json:"pickupType"`
	Value      int     `json:"value"`
	LifeMs     int     `json:"lifeMs"`
}

// DamageNumber is a cosmetic hit marker.
type DamageNumber struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Value int     `json:"value"`
	Crit  bool    `json:"crit"`
	Age   int     `json:"age"`
}

// GameState is the full world snapshot broadcast every tick.
type GameState struct {
	Phase                Phase              `json:"phase"`
	Tick                 int                `json:"tick"`
	TimeRemainingMs      int                `json:"timeRemainingMs"`
	ElapsedMs            int                `json:"elapsedMs"`
	Wave                 int                `json:"wave"`
	TotalWaves           int                `json:"totalWaves"`
	SharedXP             int                `json:"sharedXp"`
	SharedLevel          int                `json:"sharedLevel"`
	XPToNext             int                `json:"xpToNext"`
	Players              []*PlayerState     `json:"players"`
	Enemies              []*EnemyState      `json:"enemies"`
	Projectiles          []*ProjectileState `json:"projectiles"`
	XPGems               []*XPGem           `json:"xpGems"`
	BombZones            []*BombZone        `json:"bombZones"`
	Breakables           []*Breakable       `json:"breakables"`
	Pickups              []*Pickup          `json:"pickups"`
	DamageNumbers        []*DamageNumber    `json:"damageNumbers"`
	ArenaWidth           float64            `json:"arenaWidth"`
	ArenaHeight          float64            `json:"arenaHeight"`
	BossActive           bool               `json:"bossActive"`
	WaveEnemiesRemaining int                `json:"waveEnemiesRemaining"`
	PostBoss             bool               `json:"postBoss"`
	ContinueVotes        []string           `json:"continueVotes"`
	HostID               string             `json:"hostId"`
}

// Settings are per-player client preferences.
type Settings struct {
	OwnProjectileOpacity   float64 `json:"ownProjectileOpacity"`
	OtherProjectileOpacity float64 `json:"otherProjectileOpacity"`
	TargetingMode          string  `json:"targetingMode"`
}

// DefaultSettings returns the settings a new player starts with.
func DefaultSettings() Settings {
	return Settings{OwnProjectileOpacity: 1, OtherProjectileOpacity: 0.5, TargetingMode: TargetClosest}
}

// LevelUpOffer is a pending choice for one player.
type LevelUpOffer struct {
	PlayerID string       `json:"playerId"`
	Options  []UpgradeDef `json:"options"`
}

// LobbyPlayer is one roster entry.
type LobbyPlayer struct {
	ID                 string   `json:"id"`
	DisplayName        string   `json:"displayName"`
	CharacterID        string   `json:"characterId"`
	StarterWeaponID    string   `json:"starterWeaponId"`
	Cosmetic           Cosmetic `json:"cosmetic"`
	BlacklistedWeapons []string `json:"blacklistedWeapons"`
	BlacklistedTokens  []string `json:"blacklistedTokens"`
	Ready              bool     `json:"ready"`
}

// LobbyState is the roster broadcast before a game.
type LobbyState struct {
	HostID    string         `json:"hostId"`
	Players   []*LobbyPlayer `json:"players"`
	Countdown int            `json:"countdown"`
}

// PlayerResult is one player's line in the results.
type PlayerResult struct {
	ID           string   `json:"id"`
	DisplayName  string   `json:"displayName"`
	CharacterID  string   `json:"characterId"`
	DamageDealt  int      `json:"damageDealt"`
	KillCount    int      `json:"killCount"`
	XPCollected  int      `json:"xpCollected"`
	BombsDefused int      `json:"bombsDefused"`
	Revives      int      `json:"revives"`
	WeaponIDs    []string `json:"weaponIds"`
	TokenIDs     []string `json:"tokenIds"`
	Survived     bool     `json:"survived"`
}

// GameResult is broadcast when a game ends.
type GameResult struct {
	Outcome       Outcome        `json:"outcome"`
	Wave          int            `json:"wave"`
	TimeElapsedMs int            `json:"timeElapsedMs"`
	Players       []PlayerResult `json:"players"`
	Podium        []PlayerResult `json:"podium"`
}
