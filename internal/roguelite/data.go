package roguelite

// Weapon firing patterns.
const (
	PatternProjectile = "projectile"
	PatternArea       = "area"
	PatternOrbit      = "orbit"
	PatternCone       = "cone"
	PatternChain      = "chain"
	PatternRing       = "ring"
	PatternGround     = "ground"
	PatternBeam       = "beam"
	PatternHoming     = "homing"
)

// Enemy classes.
const (
	ClassMelee  = "melee"
	ClassRanged = "ranged"
	ClassCaster = "caster"
)

// Character passives.
const (
	PassivePickupRange = "pickup_range"
	PassiveKnockback   = "knockback"
	PassiveXPGain      = "xp_gain"
	PassiveHealAura    = "heal_aura"
	PassiveBerserk     = "berserk"
	PassivePhase       = "phase"
)

// Stat keys shared by tokens, upgrades and bonuses.
const (
	StatDamage          = "damage"
	StatAttackSpeed     = "attackSpeed"
	StatArea            = "area"
	StatSpeed           = "speed"
	StatProjectiles     = "projectiles"
	StatPierce          = "pierce"
	StatMaxHP           = "maxHp"
	StatCrit            = "crit"
	StatPickupRange     = "pickupRange"
	StatDamageReduction = "damageReduction"
	StatLifesteal       = "lifesteal"
	StatXPGain          = "xpGain"
	StatKnockback       = "knockback"
	StatDuration        = "duration"
)

// Upgrade kinds.
const (
	KindNewWeapon   = "new_weapon"
	KindWeaponLevel = "weapon_level"
	KindNewToken    = "new_token"
	KindPlayerStat  = "player_stat"
	KindGroupStat   = "group_stat"
)

// CharacterDef is a playable character.
type CharacterDef struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	BaseSpeed   float64 `json:"baseSpeed"` // units per second
	BaseHP      int     `json:"baseHp"`
	Passive     string  `json:"passive"`
	PassiveDesc string  `json:"passiveDesc"`
}

// WeaponDef is a weapon template. Ascended weapons carry BaseWeaponID and
// RequiredTokenID.
type WeaponDef struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Description     string  `json:"description"`
	Pattern         string  `json:"pattern"`
	Starter         bool    `json:"starter"`
	BaseDamage      int     `json:"baseDamage"`
	BaseCooldownMs  float64 `json:"baseCooldownMs"`
	BaseArea        float64 `json:"baseArea"`
	BaseProjectiles int     `json:"baseProjectiles"`
	BasePierce      int     `json:"basePierce"`
	BaseSpeed       float64 `json:"baseSpeed"`    // units per tick
	BaseDuration    int     `json:"baseDuration"` // ticks
	BaseKnockback   float64 `json:"baseKnockback"`
	Color           string  `json:"color"`
	BaseWeaponID    string  `json:"baseWeaponId,omitempty"`
	RequiredTokenID string  `json:"requiredTokenId,omitempty"`
}

// Ascended reports whether w is an ascended form.
func (w WeaponDef) Ascended() bool {
	return w.BaseWeaponID != ""
}

// TokenDef is a passive item held in a token slot.
type TokenDef struct {
	ID               string  `json:"id"`
	Name             string  `json:"name"`
	Description      string  `json:"description"`
	Stat             string  `json:"stat"`
	Value            float64 `json:"value"`
	Group            bool    `json:"group"`
	MatchingWeaponID string  `json:"matchingWeaponId,omitempty"`
	Icon             string  `json:"icon"`
}

// Recipe turns a weapon into its ascended form.
type Recipe struct {
	WeaponID         string
	TokenID          string
	AscendedWeaponID string
}

// EnemyDef is an enemy template.
type EnemyDef struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Class       string  `json:"enemyClass"`
	BaseHP      int     `json:"baseHp"`
	BaseDamage  int     `json:"baseDamage"`
	BaseSpeed   float64 `json:"baseSpeed"` // units per tick
	XPValue     int     `json:"xpValue"`
	Size        float64 `json:"size"`
	SpawnWeight float64 `json:"spawnWeight"`
	MinWave     int     `json:"minWave"`
}

// UpgradeDef is one option of a level-up offer.
type UpgradeDef struct {
	ID          string  `json:"id"`
	Kind        string  `json:"kind"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Stat        string  `json:"stat,omitempty"`
	Value       float64 `json:"value,omitempty"`
	WeaponID    string  `json:"weaponId,omitempty"`
	TokenID     string  `json:"tokenId,omitempty"`
	Group       bool    `json:"group"`
}

// Characters lists the playable characters; the first is the default.
var Characters = []CharacterDef{
	{ID: "scout", Name: "Dasher", Description: "Nimble stick figure with a wide grab range.", BaseSpeed: 140, BaseHP: 80, Passive: PassivePickupRange, PassiveDesc: "+30% pickup range"},
	{ID: "juggernaut", Name: "Tank", Description: "Thick-lined stick figure that soaks up damage.", BaseSpeed: 80, BaseHP: 150, Passive: PassiveKnockback, PassiveDesc: "+20% knockback"},
	{ID: "hacker", Name: "Brainiac", Description: "Clever stick figure that extracts bonus XP.", BaseSpeed: 100, BaseHP: 100, Passive: PassiveXPGain, PassiveDesc: "+15% XP gain"},
	{ID: "medic", Name: "Doc", Description: "Stick figure medic who heals nearby allies.", BaseSpeed: 95, BaseHP: 110, Passive: PassiveHealAura, PassiveDesc: "Heals nearby allies 2 HP/s"},
	{ID: "berserker", Name: "Rager", Description: "Scribbled stick figure that rages when hurt.", BaseSpeed: 120, BaseHP: 90, Passive: PassiveBerserk, PassiveDesc: "+30% damage below 30% HP"},
	{ID: "phantom", Name: "Ghost", Description: "Faint stick figure that phases through damage.", BaseSpeed: 105, BaseHP: 85, Passive: PassivePhase, PassiveDesc: "2s invuln every 15s"},
}

// Weapons lists the base weapons: five starters, then the level-up pool.
var Weapons = []WeaponDef{
	{ID: "plasma_pistol", Name: "Pencil Toss", Description: "Throws sharp pencil projectiles.", Pattern: PatternProjectile, Starter: true, BaseDamage: 10, BaseCooldownMs: 600, BaseArea: 8, BaseProjectiles: 1, BasePierce: 0, BaseSpeed: 12, BaseDuration: 60, BaseKnockback: 2, Color: "#38bdf8"},
	{ID: "energy_blade", Name: "Eraser Slash", Description: "Wide erasing arc at close range.", Pattern: PatternArea, Starter: true, BaseDamage: 15, BaseCooldownMs: 450, BaseArea: 50, BaseProjectiles: 1, BasePierce: 99, BaseSpeed: 0, BaseDuration: 10, BaseKnockback: 3, Color: "#f97316"},
	{ID: "drone_swarm", Name: "Paper Planes", Description: "Orbiting paper planes deal contact damage.", Pattern: PatternOrbit, Starter: true, BaseDamage: 8, BaseCooldownMs: 200, BaseArea: 70, BaseProjectiles: 3, BasePierce: 99, BaseSpeed: 3, BaseDuration: 999, BaseKnockback: 1, Color: "#4ade80"},
	{ID: "pulse_rifle", Name: "Pen Shooter", Description: "Rapid-fire pen ink shots.", Pattern: PatternProjectile, Starter: true, BaseDamage: 5, BaseCooldownMs: 200, BaseArea: 6, BaseProjectiles: 1, BasePierce: 0, BaseSpeed: 16, BaseDuration: 40, BaseKnockback: 1, Color: "#e879f9"},
	{ID: "flame_emitter", Name: "Crayon Blast", Description: "Cone of colorful crayon streaks.", Pattern: PatternCone, Starter: true, BaseDamage: 7, BaseCooldownMs: 150, BaseArea: 60, BaseProjectiles: 3, BasePierce: 99, BaseSpeed: 8, BaseDuration: 15, BaseKnockback: 1, Color: "#fbbf24"},

	{ID: "railgun", Name: "Ruler Beam", Description: "Piercing ruler beam punches through.", Pattern: PatternBeam, BaseDamage: 30, BaseCooldownMs: 1200, BaseArea: 10, BaseProjectiles: 1, BasePierce: 5, BaseSpeed: 40, BaseDuration: 5, BaseKnockback: 6, Color: "#67e8f9"},
	{ID: "grenade_launcher", Name: "Ink Bomb", Description: "Lobbed ink blob that splatters.", Pattern: PatternProjectile, BaseDamage: 25, BaseCooldownMs: 1400, BaseArea: 70, BaseProjectiles: 1, BasePierce: 0, BaseSpeed: 8, BaseDuration: 50, BaseKnockback: 8, Color: "#a3e635"},
	{ID: "lightning_coil", Name: "Staple Chain", Description: "Staples chain between nearby enemies.", Pattern: PatternChain, BaseDamage: 12, BaseCooldownMs: 800, BaseArea: 120, BaseProjectiles: 1, BasePierce: 3, BaseSpeed: 0, BaseDuration: 8, BaseKnockback: 2, Color: "#c084fc"},
	{ID: "frost_ring", Name: "Whiteout Ring", Description: "Expanding ring of correction fluid.", Pattern: PatternRing, BaseDamage: 8, BaseCooldownMs: 2000, BaseArea: 150, BaseProjectiles: 1, BasePierce: 99, BaseSpeed: 4, BaseDuration: 40, BaseKnockback: 0, Color: "#22d3ee"},
	{ID: "toxic_sprayer", Name: "Glue Puddle", Description: "Leaves sticky glue on the ground.", Pattern: PatternGround, BaseDamage: 6, BaseCooldownMs: 1000, BaseArea: 45, BaseProjectiles: 1, BasePierce: 99, BaseSpeed: 0, BaseDuration: 80, BaseKnockback: 0, Color: "#86efac"},
	{ID: "homing_rockets", Name: "Dart Seekers", Description: "Homing darts find nearest targets.", Pattern: PatternHoming, BaseDamage: 18, BaseCooldownMs: 900, BaseArea: 30, BaseProjectiles: 2, BasePierce: 0, BaseSpeed: 7, BaseDuration: 80, BaseKnockback: 4, Color: "#fb7185"},
	{ID: "boomerang_disc", Name: "Compass Spin", Description: "Spinning compass that returns.", Pattern: PatternProjectile, BaseDamage: 14, BaseCooldownMs: 1100, BaseArea: 12, BaseProjectiles: 1, BasePierce: 4, BaseSpeed: 10, BaseDuration: 60, BaseKnockback: 3, Color: "#fde68a"},
	{ID: "shockwave_stamp", Name: "Stamp Slam", Description: "AoE stamp blast centered on you.", Pattern: PatternArea, BaseDamage: 20, BaseCooldownMs: 1500, BaseArea: 90, BaseProjectiles: 1, BasePierce: 99, BaseSpeed: 0, BaseDuration: 8, BaseKnockback: 10, Color: "#fca5a5"},
	{ID: "laser_drill", Name: "Highlighter", Description: "Continuous highlight beam to nearest.", Pattern: PatternBeam, BaseDamage: 4, BaseCooldownMs: 100, BaseArea: 8, BaseProjectiles: 1, BasePierce: 0, BaseSpeed: 50, BaseDuration: 3, BaseKnockback: 0, Color: "#fcd34d"},
	{ID: "mine_deployer", Name: "Tack Trap", Description: "Drops thumbtack mines behind you.", Pattern: PatternGround, BaseDamage: 35, BaseCooldownMs: 1600, BaseArea: 55, BaseProjectiles: 1, BasePierce: 0, BaseSpeed: 0, BaseDuration: 200, BaseKnockback: 5, Color: "#94a3b8"},
}

// AscendedWeapons lists the evolved forms reachable through Recipes.
var AscendedWeapons = []WeaponDef{
	{ID: "supernova_cannon", Name: "Golden Pencil", Description: "Massive gilded pencil projectiles.", Pattern: PatternProjectile, BaseDamage: 40, BaseCooldownMs: 500, BaseArea: 60, BaseProjectiles: 3, BasePierce: 2, BaseSpeed: 14, BaseDuration: 50, BaseKnockback: 8, Color: "#fbbf24", BaseWeaponID: "plasma_pistol", RequiredTokenID: "solar_medal"},
	{ID: "void_scythe", Name: "Sharpener Blade", Description: "Dark sharpener arc that drains ink.", Pattern: PatternArea, BaseDamage: 35, BaseCooldownMs: 350, BaseArea: 80, BaseProjectiles: 1, BasePierce: 99, BaseSpeed: 0, BaseDuration: 12, BaseKnockback: 5, Color: "#a855f7", BaseWeaponID: "energy_blade", RequiredTokenID: "shadow_medal"},
	{ID: "hivemind_swarm", Name: "Origami Fleet", Description: "Seeking origami that multiplies on kill.", Pattern: PatternOrbit, BaseDamage: 15, BaseCooldownMs: 150, BaseArea: 120, BaseProjectiles: 8, BasePierce: 99, BaseSpeed: 5, BaseDuration: 999, BaseKnockback: 2, Color: "#34d399", BaseWeaponID: "drone_swarm", RequiredTokenID: "hive_medal"},
	{ID: "annihilator", Name: "Fountain Pen", Description: "Triple rapid ink streams.", Pattern: PatternProjectile, BaseDamage: 12, BaseCooldownMs: 120, BaseArea: 8, BaseProjectiles: 3, BasePierce: 1, BaseSpeed: 20, BaseDuration: 35, BaseKnockback: 2, Color: "#f0abfc", BaseWeaponID: "pulse_rifle", RequiredTokenID: "overcharge_medal"},
	{ID: "inferno_storm", Name: "Rainbow Storm", Description: "Perpetual crayon tornado around you.", Pattern: PatternArea, BaseDamage: 12, BaseCooldownMs: 100, BaseArea: 110, BaseProjectiles: 1, BasePierce: 99, BaseSpeed: 0, BaseDuration: 999, BaseKnockback: 3, Color: "#f59e0b", BaseWeaponID: "flame_emitter", RequiredTokenID: "ember_medal"},
	{ID: "omega_railgun", Name: "Yard Stick", Description: "Multi-beam ruler splits on hit.", Pattern: PatternBeam, BaseDamage: 50, BaseCooldownMs: 1000, BaseArea: 14, BaseProjectiles: 3, BasePierce: 10, BaseSpeed: 50, BaseDuration: 6, BaseKnockback: 12, Color: "#06b6d4", BaseWeaponID: "railgun", RequiredTokenID: "precision_medal"},
	{ID: "cluster_nuke", Name: "Paint Bomb", Description: "Chain paint explosions cascade out.", Pattern: PatternProjectile, BaseDamage: 45, BaseCooldownMs: 1200, BaseArea: 110, BaseProjectiles: 3, BasePierce: 0, BaseSpeed: 8, BaseDuration: 40, BaseKnockback: 15, Color: "#84cc16", BaseWeaponID: "grenade_launcher", RequiredTokenID: "blast_medal"},
	{ID: "storm_caller", Name: "Staple Storm", Description: "Constant staple field around you.", Pattern: PatternChain, BaseDamage: 20, BaseCooldownMs: 400, BaseArea: 180, BaseProjectiles: 1, BasePierce: 6, BaseSpeed: 0, BaseDuration: 10, BaseKnockback: 4, Color: "#d946ef", BaseWeaponID: "lightning_coil", RequiredTokenID: "storm_medal"},
	{ID: "absolute_zero", Name: "Liquid Paper", Description: "Permanent whiteout aura + freeze.", Pattern: PatternRing, BaseDamage: 15, BaseCooldownMs: 1500, BaseArea: 200, BaseProjectiles: 1, BasePierce: 99, BaseSpeed: 3, BaseDuration: 60, BaseKnockback: 0, Color: "#67e8f9", BaseWeaponID: "frost_ring", RequiredTokenID: "cryo_medal"},
	{ID: "plague_engine", Name: "Super Glue", Description: "Massive spreading glue field.", Pattern: PatternGround, BaseDamage: 10, BaseCooldownMs: 600, BaseArea: 100, BaseProjectiles: 3, BasePierce: 99, BaseSpeed: 0, BaseDuration: 120, BaseKnockback: 0, Color: "#4ade80", BaseWeaponID: "toxic_sprayer", RequiredTokenID: "blight_medal"},
}

// Tokens lists the tokens: ten weapon badges, then group and utility ones.
var Tokens = []TokenDef{
	{ID: "solar_medal", Name: "Pencil Badge", Description: "+25% pencil damage.", Stat: StatDamage, Value: 0.25, MatchingWeaponID: "plasma_pistol", Icon: "✏"},
	{ID: "shadow_medal", Name: "Eraser Badge", Description: "+15% crit chance.", Stat: StatCrit, Value: 0.15, MatchingWeaponID: "energy_blade", Icon: "◼"},
	{ID: "hive_medal", Name: "Paper Badge", Description: "+2 projectiles.", Stat: StatProjectiles, Value: 2, MatchingWeaponID: "drone_swarm", Icon: "✈"},
	{ID: "overcharge_medal", Name: "Pen Badge", Description: "+30% attack speed.", Stat: StatAttackSpeed, Value: 0.30, MatchingWeaponID: "pulse_rifle", Icon: "🖊"},
	{ID: "ember_medal", Name: "Crayon Badge", Description: "+40% area of effect.", Stat: StatArea, Value: 0.40, MatchingWeaponID: "flame_emitter", Icon: "🖍"},
	{ID: "precision_medal", Name: "Ruler Badge", Description: "+3 pierce.", Stat: StatPierce, Value: 3, MatchingWeaponID: "railgun", Icon: "📏"},
	{ID: "blast_medal", Name: "Ink Badge", Description: "+50% splatter radius.", Stat: StatArea, Value: 0.50, MatchingWeaponID: "grenade_launcher", Icon: "💧"},
	{ID: "storm_medal", Name: "Staple Badge", Description: "+2 chain targets.", Stat: StatPierce, Value: 2, MatchingWeaponID: "lightning_coil", Icon: "📎"},
	{ID: "cryo_medal", Name: "Whiteout Badge", Description: "+30% slow effect.", Stat: StatKnockback, Value: 0.30, MatchingWeaponID: "frost_ring", Icon: "⬜"},
	{ID: "blight_medal", Name: "Glue Badge", Description: "+50% effect duration.", Stat: StatDuration, Value: 0.50, MatchingWeaponID: "toxic_sprayer", Icon: "🧴"},

	{ID: "titan_medal", Name: "Notebook Badge", Description: "+25% max HP (group).", Stat: StatMaxHP, Value: 0.25, Group: true, Icon: "📓"},
	{ID: "swift_medal", Name: "Sneaker Badge", Description: "+15% move speed (group).", Stat: StatSpeed, Value: 0.15, Group: true, Icon: "💨"},
	{ID: "fortune_medal", Name: "Star Sticker", Description: "+20% XP gain (group).", Stat: StatXPGain, Value: 0.20, Group: true, Icon: "⭐"},
	{ID: "barrier_medal", Name: "Binder Shield", Description: "+20% damage reduction.", Stat: StatDamageReduction, Value: 0.20, Icon: "📕"},
	{ID: "vampiric_medal", Name: "Red Pen Badge", Description: "+5% life steal.", Stat: StatLifesteal, Value: 0.05, Icon: "❤"},
}

// Enemies lists every enemy; batch spawns draw from those with a spawn weight.
var Enemies = []EnemyDef{
	{ID: "crawler", Name: "Scribble", Class: ClassMelee, BaseHP: 15, BaseDamage: 8, BaseSpeed: 3.2, XPValue: 2, Size: 12, SpawnWeight: 10, MinWave: 1},
	{ID: "charger", Name: "Doodle Bull", Class: ClassMelee, BaseHP: 20, BaseDamage: 12, BaseSpeed: 5.5, XPValue: 4, Size: 14, SpawnWeight: 6, MinWave: 3},
	{ID: "brute", Name: "Ink Blob", Class: ClassMelee, BaseHP: 60, BaseDamage: 20, BaseSpeed: 2.2, XPValue: 8, Size: 22, SpawnWeight: 3, MinWave: 5},
	{ID: "swarmer", Name: "Dot", Class: ClassMelee, BaseHP: 5, BaseDamage: 3, BaseSpeed: 5.0, XPValue: 1, Size: 7, SpawnWeight: 15, MinWave: 2},
	{ID: "spitter", Name: "Sketch Archer", Class: ClassRanged, BaseHP: 12, BaseDamage: 10, BaseSpeed: 2.6, XPValue: 3, Size: 13, SpawnWeight: 5, MinWave: 2},
	{ID: "sniper", Name: "Fine Liner", Class: ClassRanged, BaseHP: 10, BaseDamage: 18, BaseSpeed: 2.0, XPValue: 5, Size: 11, SpawnWeight: 3, MinWave: 6},
	{ID: "turret", Name: "Pencil Tower", Class: ClassRanged, BaseHP: 35, BaseDamage: 6, BaseSpeed: 0, XPValue: 6, Size: 16, SpawnWeight: 2, MinWave: 8},
	{ID: "warper", Name: "Smudge", Class: ClassCaster, BaseHP: 18, BaseDamage: 14, BaseSpeed: 2.8, XPValue: 5, Size: 14, SpawnWeight: 3, MinWave: 7},
	{ID: "necromancer", Name: "Dark Pen", Class: ClassCaster, BaseHP: 25, BaseDamage: 5, BaseSpeed: 2.0, XPValue: 8, Size: 16, SpawnWeight: 2, MinWave: 9},
	{ID: "shaman", Name: "Marker Spirit", Class: ClassCaster, BaseHP: 20, BaseDamage: 8, BaseSpeed: 2.2, XPValue: 6, Size: 14, SpawnWeight: 2, MinWave: 10},

	{ID: "siege_titan", Name: "Giant Doodle", Class: ClassMelee, BaseHP: 300, BaseDamage: 25, BaseSpeed: 1.4, XPValue: 80, Size: 30, MinWave: 10},
	{ID: "storm_witch", Name: "Chaos Scribble", Class: ClassCaster, BaseHP: 200, BaseDamage: 18, BaseSpeed: 2.6, XPValue: 80, Size: 26, MinWave: 10},
	{ID: "hive_queen", Name: "Ink Mother", Class: ClassCaster, BaseHP: 250, BaseDamage: 12, BaseSpeed: 1.8, XPValue: 80, Size: 28, MinWave: 10},

	{ID: "detonator", Name: "The Eraser", Class: ClassMelee, BaseHP: 2000, BaseDamage: 30, BaseSpeed: 1.3, XPValue: 500, Size: 50, MinWave: 20},
	{ID: "void_archon", Name: "The Shredder", Class: ClassCaster, BaseHP: 2500, BaseDamage: 28, BaseSpeed: 1.8, XPValue: 600, Size: 48, MinWave: 20},
}

// Timed spawner pools.
var (
	MinibossIDs = []string{"siege_titan", "storm_witch", "hive_queen"}
	BossIDs     = []string{"detonator", "void_archon"}
)

// PlayerUpgrades is the generic stat upgrade pool.
var PlayerUpgrades = []UpgradeDef{
	{ID: "dmg_10", Kind: KindPlayerStat, Name: "+10% Damage", Description: "All weapons deal 10% more damage.", Stat: StatDamage, Value: 0.10},
	{ID: "aspd_10", Kind: KindPlayerStat, Name: "+10% Attack Speed", Description: "All weapons fire 10% faster.", Stat: StatAttackSpeed, Value: 0.10},
	{ID: "area_20", Kind: KindPlayerStat, Name: "+20% Area", Description: "All weapon areas grow by 20%.", Stat: StatArea, Value: 0.20},
	{ID: "spd_10", Kind: KindPlayerStat, Name: "+10% Move Speed", Description: "Move 10% faster.", Stat: StatSpeed, Value: 0.10},
	{ID: "proj_1", Kind: KindPlayerStat, Name: "+1 Projectile", Description: "Projectile weapons fire one more.", Stat: StatProjectiles, Value: 1},
	{ID: "pierce_1", Kind: KindPlayerStat, Name: "+1 Pierce", Description: "Projectiles pierce one more enemy.", Stat: StatPierce, Value: 1},
	{ID: "hp_20", Kind: KindPlayerStat, Name: "+20 Max HP", Description: "Increase maximum health by 20.", Stat: StatMaxHP, Value: 20},
	{ID: "crit_5", Kind: KindPlayerStat, Name: "+5% Crit Chance", Description: "Hits have 5% more crit chance.", Stat: StatCrit, Value: 0.05},
	{ID: "pickup_30", Kind: KindPlayerStat, Name: "+30% Pickup Range", Description: "XP gems are attracted from further.", Stat: StatPickupRange, Value: 0.30},
	{ID: "dr_5", Kind: KindPlayerStat, Name: "+5% Damage Reduction", Description: "Take 5% less damage from all sources.", Stat: StatDamageReduction, Value: 0.05},
	{ID: "lifesteal_3", Kind: KindPlayerStat, Name: "+3% Life Steal", Description: "Heal 3% of damage dealt.", Stat: StatLifesteal, Value: 0.03},
}

// GroupUpgrades is the shared upgrade pool offered in multiplayer.
var GroupUpgrades = []UpgradeDef{
	{ID: "g_dmg_5", Kind: KindGroupStat, Name: "Team +5% Damage", Description: "All allies deal 5% more damage.", Stat: StatDamage, Value: 0.05, Group: true},
	{ID: "g_spd_5", Kind: KindGroupStat, Name: "Team +5% Speed", Description: "All allies move 5% faster.", Stat: StatSpeed, Value: 0.05, Group: true},
	{ID: "g_hp_10", Kind: KindGroupStat, Name: "Team +10 Max HP", Description: "All allies gain 10 max HP.", Stat: StatMaxHP, Value: 10, Group: true},
	{ID: "g_dr_3", Kind: KindGroupStat, Name: "Team +3% DR", Description: "All allies take 3% less damage.", Stat: StatDamageReduction, Value: 0.03, Group: true},
	{ID: "g_pickup_15", Kind: KindGroupStat, Name: "Team +15% Pickup", Description: "All allies pickup range +15%.", Stat: StatPickupRange, Value: 0.15, Group: true},
	{ID: "g_xp_10", Kind: KindGroupStat, Name: "Team +10% XP Gain", Description: "All XP collected boosted by 10%.", Stat: StatXPGain, Value: 0.10, Group: true},
}

// Cosmetic choices accepted in the lobby.
var (
	Hats           = []string{"none", "halo", "crown", "horns", "antenna", "tophat"}
	Trails         = []string{"none", "spark", "flame", "ice", "shadow", "rainbow"}
	ColorOverrides = []string{"", "#ef4444", "#f97316", "#eab308", "#22c55e", "#06b6d4", "#3b82f6", "#8b5cf6", "#ec4899", "#f43f5e", "#14b8a6", "#a3e635"}
)

var (
	weaponByID    = indexBy(append(append([]WeaponDef{}, Weapons...), AscendedWeapons...), func(w WeaponDef) string { return w.ID })
	tokenByID     = indexBy(Tokens, func(t TokenDef) string { return t.ID })
	characterByID = indexBy(Characters, func(c CharacterDef) string { return c.ID })
	enemyByID     = indexBy(Enemies, func(e EnemyDef) string { return e.ID })
	recipes       = buildRecipes()
)

func indexBy[T any](list []T, key func(T) string) map[string]T {
	m := make(map[string]T, len(list))
	for _, v := range list {
		m[key(v)] = v
	}
	return m
}

func buildRecipes() map[string]Recipe {
	m := make(map[string]Recipe, len(AscendedWeapons))
	for _, a := range AscendedWeapons {
		m[a.BaseWeaponID] = Recipe{WeaponID: a.BaseWeaponID, TokenID: a.RequiredTokenID, AscendedWeaponID: a.ID}
	}
	return m
}

// Weapon looks up a base or ascended weapon.
func Weapon(id string) (WeaponDef, bool) {
	w, ok := weaponByID[id]
	return w, ok
}

// Token looks up a token.
func Token(id string) (TokenDef, bool) {
	t, ok := tokenByID[id]
	return t, ok
}

// Character looks up a character.
func Character(id string) (CharacterDef, bool) {
	c, ok := characterByID[id]
	return c, ok
}

// Enemy looks up an enemy.
func Enemy(id string) (EnemyDef, bool) {
	e, ok := enemyByID[id]
	return e, ok
}

// RecipeFor returns the ascension recipe of a base weapon.
func RecipeFor(weaponID string) (Recipe, bool) {
	r, ok := recipes[weaponID]
	return r, ok
}

// StarterWeapon reports whether id is a starter weapon.
func StarterWeapon(id string) bool {
	w, ok := weaponByID[id]
	return ok && w.Starter
}

func nonStarterWeapons() []WeaponDef {
	var out []WeaponDef
	for _, w := range Weapons {
		if !w.Starter {
			out = append(out, w)
		}
	}
	return out
}

// projectileLike reports whether a pattern benefits from projectile and
// pierce upgrades.
func projectileLike(pattern string) bool {
	return pattern == PatternProjectile || pattern == PatternHoming || pattern == PatternBeam
}
