package roguelite

import (
	"math"

	"github.com/vovakirdan/defuse-exe/internal/core"
	"github.com/vovakirdan/defuse-exe/internal/rng"
)

const (
	zoneEdgeInset    = 200
	breakableInset   = 100
	breakableReach   = 20
	breakableContact = 2
	gemJitter        = 15
	magnetRange      = 600
	magnetPull       = 3
	speedBoost       = 0.3
	damageBoost      = 0.2
)

var breakableKinds = []string{BreakableCrate, BreakableBarrel, BreakableCrystal}

type weightedPickup struct {
	kind   string
	weight float64
	value  int
}

var pickupTable = []weightedPickup{
	{PickupHealth, 30, 30},
	{PickupMagnet, 20, 0},
	{PickupSpeedBoost, 20, 5000},
	{PickupDamageBoost, 15, 5000},
	{PickupBombCharge, 15, 15},
}

// collectXP hands gems to the nearest living player in pickup range and
// pulls gems in the wider magnet band toward that player.
func (g *Game) collectXP() {
	s := g.state
	base := g.cfg.Player.PickupBaseRange
	kept := s.XPGems[:0]
	for _, gem := range s.XPGems {
		p := g.nearestPlayer(gem.X, gem.Y)
		if p == nil {
			kept = append(kept, gem)
			continue
		}
		reach := base * (1 + p.Bonuses.PickupRange)
		d := core.Dist(gem.X, gem.Y, p.X, p.Y)
		if d < reach {
			gain := int(math.Floor(float64(gem.Value) * (1 + p.Bonuses.XPGain)))
			s.SharedXP += gain
			p.XPCollected += gain
			continue
		}
		if d < 2*reach && d > 0 {
			step := math.Min(magnetPull, d)
			gem.X += (p.X - gem.X) / d * step
			gem.Y += (p.Y - gem.Y) / d * step
		}
		kept = append(kept, gem)
	}
	clearTail(s.XPGems, len(kept))
	s.XPGems = kept
	g.checkLevelUp()
}

// checkLevelUp spends shared XP on as many levels as it covers; every level
// queues an offer for each living player.
func (g *Game) checkLevelUp() {
	s := g.state
	for s.XPToNext > 0 && s.SharedXP >= s.XPToNext {
		s.SharedXP -= s.XPToNext
		s.SharedLevel++
		s.XPToNext = g.xpForLevel(s.SharedLevel)
		g.triggerLevelUp()
	}
}

func (g *Game) triggerLevelUp() {
	for _, p := range g.state.Players {
		rt := g.players[p.ID]
		if !p.Alive || !rt.connected {
			continue
		}
		opts := g.generateOptions(p)
		if len(opts) == 0 {
			continue
		}
		offer := LevelUpOffer{PlayerID: p.ID, Options: opts}
		g.offers[p.ID] = append(g.offers[p.ID], offer)
		if len(g.offers[p.ID]) == 1 {
			g.emit(p.ID, LevelUpMsg{Type: MsgLevelUp, Offer: offer})
		}
	}
}

func (g *Game) updateBombZones() {
	s := g.state
	tickMs := g.cfg.TickMs()
	zc := g.cfg.BombZones

	g.zoneTimer -= tickMs
	if g.zoneTimer <= 0 {
		g.zoneTimer = zc.SpawnIntervalMs
		s.BombZones = append(s.BombZones, &BombZone{
			ID:            g.nextID(),
			X:             g.rng.Range(zoneEdgeInset, g.cfg.Arena.Width-zoneEdgeInset),
			Y:             g.rng.Range(zoneEdgeInset, g.cfg.Arena.Height-zoneEdgeInset),
			Radius:        zc.Radius,
			PlayersInside: []string{},
			Active:        true,
			XPReward:      zc.XPRewardBase + s.SharedLevel*zc.XPRewardLevel,
			TimeLeftMs:    zc.DurationMs,
		})
	}

	kept := s.BombZones[:0]
	for _, z := range s.BombZones {
		if !z.Active {
			continue
		}
		z.TimeLeftMs -= tickMs
		if z.TimeLeftMs <= 0 {
			continue
		}
		z.PlayersInside = z.PlayersInside[:0]
		for _, p := range s.Players {
			if p.Alive && core.Dist(p.X, p.Y, z.X, z.Y) <= z.Radius {
				z.PlayersInside = append(z.PlayersInside, p.ID)
			}
		}
		if n := len(z.PlayersInside); n > 0 {
			z.Progress += zc.BaseSpeed * (1 + float64(n-1)*zc.MultiBonus)
		}
		if z.Progress >= 100 {
			z.Progress = 100
			z.Active = false
			g.completeZone(z)
			continue
		}
		kept = append(kept, z)
	}
	clearTail(s.BombZones, len(kept))
	s.BombZones = kept
}

func (g *Game) completeZone(z *BombZone) {
	s := g.state
	s.SharedXP += int(math.Floor(float64(z.XPReward) * (1 + g.groupBonuses.XPGain)))
	for _, id := range z.PlayersInside {
		if p := g.player(id); p != nil {
			p.BombsDefused++
		}
	}
	g.checkLevelUp()
}

func (g *Game) spawnBreakables() {
	s := g.state
	bc := g.cfg.Breakables
	g.breakableTimer -= g.cfg.TickMs()
	if g.breakableTimer > 0 {
		return
	}
	g.breakableTimer = bc.SpawnIntervalMs
	for i := 0; i < bc.SpawnCount && len(s.Breakables) < g.cfg.Limits.MaxBreakables; i++ {
		kind := rng.Pick(g.rng, breakableKinds)
		hp := bc.HPCrate
		switch kind {
		case BreakableBarrel:
			hp = bc.HPBarrel
		case BreakableCrystal:
			hp = bc.HPCrystal
		}
		s.Breakables = append(s.Breakables, &Breakable{
			ID:    g.nextID(),
			X:     g.rng.Range(breakableInset, g.cfg.Arena.Width-breakableInset),
			Y:     g.rng.Range(breakableInset, g.cfg.Arena.Height-breakableInset),
			HP:    hp,
			MaxHP: hp,
			Kind:  kind,
		})
	}
}

func (g *Game) updateBreakables() {
	s := g.state
	radius := g.cfg.Player.Radius
	kept := s.Breakables[:0]
	for _, b := range s.Breakables {
		for _, pr := range s.Projectiles {
			if pr.OwnerID != EnemyOwner && core.Dist(pr.X, pr.Y, b.X, b.Y) < breakableReach+pr.Area {
				b.HP -= pr.Damage
			}
		}
		for _, p := range s.Players {
			if p.Alive && core.Dist(p.X, p.Y, b.X, b.Y) < radius+breakableReach {
				b.HP -= breakableContact
			}
		}
		if b.HP > 0 {
			kept = append(kept, b)
			continue
		}
		g.dropLoot(b)
	}
	clearTail(s.Breakables, len(kept))
	s.Breakables = kept
}

func (g *Game) dropLoot(b *Breakable) {
	s := g.state
	count, value, chance := 1, 4, 0.3
	switch b.Kind {
	case BreakableCrystal:
		count, value, chance = 3, 8, 0.6
	case BreakableCrate:
		count = 2
	}
	for i := 0; i < count && len(s.XPGems) < g.cfg.Limits.MaxXPGems; i++ {
		s.XPGems = append(s.XPGems, &XPGem{
			ID:    g.nextID(),
			X:     b.X + g.rng.Range(-gemJitter, gemJitter),
			Y:     b.Y + g.rng.Range(-gemJitter, gemJitter),
			Value: value,
		})
	}
	if g.rng.Next() >= chance {
		return
	}
	pick := weightedPickupKind(g.rng)
	s.Pickups = append(s.Pickups, &Pickup{
		ID:         g.nextID(),
		X:          b.X,
		Y:          b.Y,
		PickupType: pick.kind,
		Value:      pick.value,
		LifeMs:     g.cfg.Pickups.LifetimeMs,
	})
}

func weightedPickupKind(r *rng.RNG) weightedPickup {
	total := 0.0
	for _, p := range pickupTable {
		total += p.weight
	}
	cursor := r.Next() * total
	for _, p := range pickupTable {
		cursor -= p.weight
		if cursor <= 0 {
			return p
		}
	}
	return pickupTable[len(pickupTable)-1]
}

func (g *Game) collectPickups() {
	s := g.state
	kept := s.Pickups[:0]
	for _, pk := range s.Pickups {
		pk.LifeMs -= g.cfg.TickMs()
		if pk.LifeMs <= 0 {
			continue
		}
		var taker *PlayerState
		for _, p := range s.Players {
			if p.Alive && core.Dist(p.X, p.Y, pk.X, pk.Y) < g.cfg.Pickups.CollectRange {
				taker = p
				break
			}
		}
		if taker == nil {
			kept = append(kept, pk)
			continue
		}
		g.applyPickup(taker, pk)
	}
	clearTail(s.Pickups, len(kept))
	s.Pickups = kept
}

// applyPickup applies a pickup's effect. Speed and damage boosts are
// permanent additive bonuses.
func (g *Game) applyPickup(p *PlayerState, pk *Pickup) {
	rt := g.players[p.ID]
	switch pk.PickupType {
	case PickupHealth:
		p.HP = min(p.MaxHP, p.HP+pk.Value)
	case PickupMagnet:
		for _, gem := range g.state.XPGems {
			if core.Dist(gem.X, gem.Y, p.X, p.Y) <= magnetRange {
				gem.X = p.X + g.rng.Range(-gemJitter, gemJitter)
				gem.Y = p.Y + g.rng.Range(-gemJitter, gemJitter)
			}
		}
	case PickupSpeedBoost:
		rt.picked.Speed += speedBoost
		g.recalcBonuses(p)
	case PickupDamageBoost:
		rt.picked.Damage += damageBoost
		g.recalcBonuses(p)
	case PickupBombCharge:
		for _, z := range g.state.BombZones {
			if z.Active {
				z.Progress = math.Min(100, z.Progress+float64(pk.Value))
				break
			}
		}
	}
}
