// Package roguelite implements the co-op arena survival mode: a fixed-step
// tick engine, the upgrade and ascension system, and the room actor that
// serves it over the multiplayer transport.
package roguelite

import (
	"errors"
	"math"

	"github.com/zyedidia/generic/mapset"

	"github.com/vovakirdan/defuse-exe/internal/config"
	"github.com/vovakirdan/defuse-exe/internal/core"
	"github.com/vovakirdan/defuse-exe/internal/rng"
)

var (
	// ErrUnknownPlayer is returned for a player id that is not in the game.
	ErrUnknownPlayer = errors.New("unknown player")

	// ErrWrongPhase is returned when an action arrives in a phase that does not accept it.
	ErrWrongPhase = errors.New("action not allowed in this phase")

	// ErrNoOffer is returned by PickUpgrade when the player has nothing to pick.
	ErrNoOffer = errors.New("no pending level-up offer")

	// ErrUnknownUpgrade is returned for an upgrade id that is not in the current offer.
	ErrUnknownUpgrade = errors.New("upgrade is not part of the current offer")

	// ErrBadInput is returned for non-finite input vectors.
	ErrBadInput = errors.New("input must be finite")
)

// playerRuntime is the private per-player bookkeeping behind a PlayerState.
type playerRuntime struct {
	char      CharacterDef
	input     core.Vec
	facing    core.Vec
	cursor    core.Vec
	hasCursor bool
	settings  Settings
	cooldowns map[string]float64
	connected bool
	picked    Bonuses

	blacklistWeapons mapset.Set[string]
	blacklistTokens  mapset.Set[string]
}

// Game is one run of the arena. It is not safe for concurrent use; the room
// actor owns it.
type Game struct {
	cfg   config.RogueConfig
	ramp  *config.Ramp
	rng   *rng.RNG
	seed  string
	state *GameState

	players      map[string]*playerRuntime
	groupBonuses Bonuses
	offers       map[string][]LevelUpOffer
	votes        mapset.Set[string]

	enemyTimer     int
	minibossTimer  int
	bossTimer      int
	zoneTimer      int
	breakableTimer int
	voteLeftMs     int
	bossKilled     bool

	ids    int64
	result *GameResult
	events []Event
}

// NewGame starts a game for the given roster. Players appear in roster order.
func NewGame(cfg config.RogueConfig, seed, hostID string, roster []*LobbyPlayer) *Game {
	g := &Game{
		cfg:     cfg,
		ramp:    config.NewRamp(cfg.Ramp),
		rng:     rng.New(seed),
		seed:    seed,
		players: make(map[string]*playerRuntime, len(roster)),
		offers:  make(map[string][]LevelUpOffer),
		votes:   mapset.New[string](),
	}
	g.state = &GameState{
		Phase:           PhaseActive,
		TimeRemainingMs: cfg.GameDurationMs,
		Wave:            1,
		TotalWaves:      cfg.TotalWaves,
		SharedLevel:     1,
		Players:         make([]*PlayerState, 0, len(roster)),
		Enemies:         []*EnemyState{},
		Projectiles:     []*ProjectileState{},
		XPGems:          []*XPGem{},
		BombZones:       []*BombZone{},
		Breakables:      []*Breakable{},
		Pickups:         []*Pickup{},
		DamageNumbers:   []*DamageNumber{},
		ArenaWidth:      cfg.Arena.Width,
		ArenaHeight:     cfg.Arena.Height,
		ContinueVotes:   []string{},
		HostID:          hostID,
	}
	g.state.XPToNext = g.xpForLevel(1)

	for _, lp := range roster {
		g.addPlayer(lp)
	}

	g.enemyTimer = cfg.Spawning.FirstBatchMs
	g.minibossTimer = cfg.Spawning.MinibossFirstMs
	g.bossTimer = cfg.Spawning.BossFirstMs
	g.zoneTimer = cfg.BombZones.SpawnIntervalMs / 2
	g.breakableTimer = cfg.Breakables.FirstSpawnMs
	return g
}

func (g *Game) addPlayer(lp *LobbyPlayer) {
	char, ok := Character(lp.CharacterID)
	if !ok {
		char = Characters[0]
	}
	starter := lp.StarterWeaponID
	if !StarterWeapon(starter) {
		starter = Weapons[0].ID
	}
	rt := &playerRuntime{
		char:             char,
		facing:           core.Vec{X: 0, Y: -1},
		settings:         DefaultSettings(),
		cooldowns:        make(map[string]float64),
		connected:        true,
		blacklistWeapons: mapset.New[string](),
		blacklistTokens:  mapset.New[string](),
	}
	for _, id := range lp.BlacklistedWeapons {
		rt.blacklistWeapons.Put(id)
	}
	for _, id := range lp.BlacklistedTokens {
		rt.blacklistTokens.Put(id)
	}
	p := &PlayerState{
		ID:          lp.ID,
		DisplayName: lp.DisplayName,
		CharacterID: char.ID,
		X:           g.cfg.Arena.Width/2 + g.rng.Range(-100, 100),
		Y:           g.cfg.Arena.Height/2 + g.rng.Range(-100, 100),
		HP:          char.BaseHP,
		MaxHP:       char.BaseHP,
		Speed:       char.BaseSpeed,
		Weapons:     []WeaponInstance{{WeaponID: starter, Level: 1}},
		Tokens:      []string{},
		Cosmetic:    lp.Cosmetic,
		Alive:       true,
		InvulnMs:    g.cfg.Player.SpawnInvulnMs,
	}
	g.players[p.ID] = rt
	g.state.Players = append(g.state.Players, p)
	g.recalcBonuses(p)
}

// State returns the live snapshot. Callers must not retain it across ticks.
func (g *Game) State() *GameState {
	return g.state
}

// Seed returns the seed the game was created with.
func (g *Game) Seed() string {
	return g.seed
}

// Result returns the final result once the game has ended.
func (g *Game) Result() *GameResult {
	return g.result
}

// SetHost records the room host in the snapshot.
func (g *Game) SetHost(id string) {
	g.state.HostID = id
}

// TickAllowed reports whether the next Tick advances the world. It is false
// while any player holds an unresolved level-up offer.
func (g *Game) TickAllowed() bool {
	return g.state.Phase == PhaseActive && len(g.offers) == 0
}

// PendingOffer returns the offer currently shown to a player.
func (g *Game) PendingOffer(playerID string) (LevelUpOffer, bool) {
	q := g.offers[playerID]
	if len(q) == 0 {
		return LevelUpOffer{}, false
	}
	return q[0], true
}

func (g *Game) player(id string) *PlayerState {
	for _, p := range g.state.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// nextID hands out entity ids. They are unique and increasing within a game.
func (g *Game) nextID() int64 {
	g.ids++
	return g.ids
}

func (g *Game) emit(to string, msg any) {
	g.events = append(g.events, Event{To: to, Msg: msg})
}

func (g *Game) flush() []Event {
	out := g.events
	g.events = nil
	return out
}

func (g *Game) xpForLevel(level int) int {
	return int(math.Floor(g.cfg.XP.BaseToLevel * math.Pow(g.cfg.XP.Growth, float64(level-1))))
}

func (g *Game) arena() core.Rect {
	return core.Rect{W: g.cfg.Arena.Width, H: g.cfg.Arena.Height}
}

// Tick advances the world by one fixed step and returns the events it produced.
func (g *Game) Tick() []Event {
	s := g.state
	if s.Phase == PhaseVoteContinue {
		g.tickVote()
		return g.flush()
	}
	if !g.TickAllowed() {
		return nil
	}

	tickMs := g.cfg.TickMs()
	s.Tick++
	s.ElapsedMs += tickMs
	if !s.PostBoss {
		s.TimeRemainingMs -= tickMs
	}

	g.movePlayers()
	g.spawnEnemies()
	g.spawnTimedBosses()
	g.applyPassives()
	g.fireWeapons()
	g.updateProjectiles()
	g.checkEnemyProjectiles()
	g.updateEnemies()
	g.processDeadEnemies()
	g.collectXP()
	g.updateBombZones()
	g.spawnBreakables()
	g.updateBreakables()
	g.collectPickups()
	g.checkPlayerDeath()
	g.ageDamageNumbers()
	s.WaveEnemiesRemaining = len(s.Enemies)

	if s.Phase == PhaseActive && !s.PostBoss && s.TimeRemainingMs <= 0 {
		if g.bossKilled {
			g.end(OutcomeVictory)
		} else {
			g.end(OutcomeDefeat)
		}
	}
	return g.flush()
}

func (g *Game) movePlayers() {
	rate := float64(g.cfg.TickRate)
	if rate <= 0 {
		rate = 20
	}
	for _, p := range g.state.Players {
		rt := g.players[p.ID]
		if !p.Alive || rt.input.Len() == 0 {
			p.Moving = false
			continue
		}
		dir := rt.input.Normalize()
		spd := p.Speed * (1 + p.Bonuses.Speed) / rate
		p.X = core.ClampF(p.X+dir.X*spd, 0, g.cfg.Arena.Width)
		p.Y = core.ClampF(p.Y+dir.Y*spd, 0, g.cfg.Arena.Height)
		rt.facing = dir
		p.DX, p.DY = dir.X, dir.Y
		p.Moving = true
	}
}

func (g *Game) applyPassives() {
	s := g.state
	rate := g.cfg.TickRate
	if rate <= 0 {
		rate = 20
	}
	for _, p := range s.Players {
		if !p.Alive {
			continue
		}
		switch g.players[p.ID].char.Passive {
		case PassiveHealAura:
			if s.Tick%10 != 0 {
				continue
			}
			for _, ally := range s.Players {
				if ally.Alive && core.Dist(p.X, p.Y, ally.X, ally.Y) <= 120 {
					ally.HP = min(ally.MaxHP, ally.HP+2)
				}
			}
		case PassivePhase:
			if s.Tick%(15*rate) == 0 {
				p.InvulnMs = max(p.InvulnMs, 2000)
			}
		}
	}
}

func (g *Game) checkPlayerDeath() {
	tickMs := g.cfg.TickMs()
	anyAlive := false
	for _, p := range g.state.Players {
		if p.Alive && p.HP <= 0 {
			p.Alive = false
			p.HP = 0
			p.Moving = false
		}
		if p.InvulnMs > 0 {
			p.InvulnMs = max(0, p.InvulnMs-tickMs)
		}
		if p.Alive {
			anyAlive = true
		}
	}
	if !anyAlive {
		g.end(OutcomeDefeat)
	}
}

func (g *Game) ageDamageNumbers() {
	s := g.state
	kept := s.DamageNumbers[:0]
	for _, d := range s.DamageNumbers {
		d.Age += g.cfg.TickMs()
		if d.Age < g.cfg.DamageNumbers.LifetimeMs {
			kept = append(kept, d)
		}
	}
	s.DamageNumbers = kept
}

// SetInput buffers a movement vector and an optional cursor position.
func (g *Game) SetInput(playerID string, dx, dy float64, cursorX, cursorY *float64) error {
	rt, ok := g.players[playerID]
	if !ok {
		return ErrUnknownPlayer
	}
	if !finite(dx) || !finite(dy) {
		return ErrBadInput
	}
	rt.input = core.Vec{X: dx, Y: dy}
	if cursorX != nil && cursorY != nil {
		if !finite(*cursorX) || !finite(*cursorY) {
			return ErrBadInput
		}
		rt.cursor = core.Vec{X: *cursorX, Y: *cursorY}
		rt.hasCursor = true
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// SetSettings replaces a player's client settings.
func (g *Game) SetSettings(playerID string, st Settings) error {
	rt, ok := g.players[playerID]
	if !ok {
		return ErrUnknownPlayer
	}
	if st.TargetingMode != TargetCursor {
		st.TargetingMode = TargetClosest
	}
	rt.settings = st
	return nil
}

// VoteContinue records a vote to keep playing after the final boss. A
// majority of connected players switches the game to uncapped post-boss play.
func (g *Game) VoteContinue(playerID string) ([]Event, error) {
	if g.state.Phase != PhaseVoteContinue {
		return nil, ErrWrongPhase
	}
	rt, ok := g.players[playerID]
	if !ok || !rt.connected {
		return nil, ErrUnknownPlayer
	}
	if !g.votes.Has(playerID) {
		g.votes.Put(playerID)
		g.state.ContinueVotes = append(g.state.ContinueVotes, playerID)
	}
	g.resolveVote()
	return g.flush(), nil
}

func (g *Game) connectedCount() int {
	n := 0
	for _, rt := range g.players {
		if rt.connected {
			n++
		}
	}
	return n
}

func (g *Game) resolveVote() {
	s := g.state
	if s.Phase != PhaseVoteContinue {
		return
	}
	need := int(math.Ceil(float64(g.connectedCount()) * g.cfg.ContinueVoteRate))
	if need < 1 {
		need = 1
	}
	if g.votes.Size() >= need {
		s.PostBoss = true
		s.Phase = PhaseActive
		s.TimeRemainingMs = -1
	}
}

func (g *Game) tickVote() {
	g.voteLeftMs -= g.cfg.TickMs()
	if g.voteLeftMs <= 0 {
		g.end(OutcomeVictory)
	}
}

// Disconnect removes a player from play: the player dies, any queued offers
// are dropped and the vote threshold is re-evaluated.
func (g *Game) Disconnect(playerID string) []Event {
	rt, ok := g.players[playerID]
	if !ok || !rt.connected {
		return nil
	}
	rt.connected = false
	rt.input = core.Vec{}
	delete(g.offers, playerID)
	if p := g.player(playerID); p != nil {
		p.Alive = false
		p.HP = 0
		p.Moving = false
	}
	switch g.state.Phase {
	case PhaseActive:
		anyAlive := false
		for _, p := range g.state.Players {
			anyAlive = anyAlive || p.Alive
		}
		if !anyAlive {
			g.end(OutcomeDefeat)
		}
	case PhaseVoteContinue:
		if g.connectedCount() == 0 {
			g.end(OutcomeVictory)
		} else {
			g.resolveVote()
		}
	}
	return g.flush()
}

func (g *Game) end(outcome Outcome) {
	s := g.state
	if s.Phase == PhaseResults {
		return
	}
	s.Phase = PhaseResults
	clear(g.offers)

	res := GameResult{
		Outcome:       outcome,
		Wave:          s.Wave,
		TimeElapsedMs: s.ElapsedMs,
		Players:       make([]PlayerResult, 0, len(s.Players)),
	}
	for _, p := range s.Players {
		weapons := make([]string, 0, len(p.Weapons))
		for _, w := range p.Weapons {
			weapons = append(weapons, w.WeaponID)
		}
		res.Players = append(res.Players, PlayerResult{
			ID:           p.ID,
			DisplayName:  p.DisplayName,
			CharacterID:  p.CharacterID,
			DamageDealt:  p.DamageDealt,
			KillCount:    p.KillCount,
			XPCollected:  p.XPCollected,
			BombsDefused: p.BombsDefused,
			Revives:      p.Revives,
			WeaponIDs:    weapons,
			TokenIDs:     append([]string{}, p.Tokens...),
			Survived:     p.Alive,
		})
	}
	res.Podium = podium(res.Players, 3)
	g.result = &res
	g.emit("", ResultsMsg{Type: MsgResults, Result: res})
}
