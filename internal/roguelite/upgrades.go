package roguelite

import (
	"fmt"
	"math"

	"github.com/vovakirdan/defuse-exe/internal/rng"
)

const (
	matchingTokenBias = 0.7
	weaponLevelOffers = 2
	statOffers        = 3
	groupOffers       = 2
)

// generateOptions builds one level-up offer for p.
func (g *Game) generateOptions(p *PlayerState) []UpgradeDef {
	rt := g.players[p.ID]
	lim := g.cfg.Limits
	multi := len(g.state.Players) > 1
	var pool []UpgradeDef

	if len(p.Weapons) < lim.MaxWeapons {
		var cands []WeaponDef
		for _, w := range nonStarterWeapons() {
			if !g.ownsWeaponLine(p, w.ID) && !rt.blacklistWeapons.Has(w.ID) {
				cands = append(cands, w)
			}
		}
		if len(cands) > 0 {
			w := rng.Pick(g.rng, cands)
			pool = append(pool, UpgradeDef{
				ID:          "nw_" + w.ID,
				Kind:        KindNewWeapon,
				Name:        "New: " + w.Name,
				Description: w.Description,
				WeaponID:    w.ID,
			})
		}
	}

	var upgradable []WeaponInstance
	for _, w := range p.Weapons {
		if w.Level < g.cfg.Weapons.MaxLevel {
			upgradable = append(upgradable, w)
		}
	}
	upgradable = rng.Shuffle(g.rng, upgradable)
	for _, w := range upgradable[:min(weaponLevelOffers, len(upgradable))] {
		def, _ := Weapon(w.WeaponID)
		pool = append(pool, UpgradeDef{
			ID:          "wl_" + w.WeaponID,
			Kind:        KindWeaponLevel,
			Name:        fmt.Sprintf("↑ %s Lv%d", def.Name, w.Level+1),
			Description: fmt.Sprintf("Upgrade %s to level %d.", def.Name, w.Level+1),
			WeaponID:    w.WeaponID,
		})
	}

	if len(p.Tokens) < lim.MaxTokens {
		var available, matching []TokenDef
		for _, t := range Tokens {
			if p.hasToken(t.ID) || rt.blacklistTokens.Has(t.ID) || (t.Group && !multi) {
				continue
			}
			available = append(available, t)
			if t.MatchingWeaponID != "" && p.hasWeapon(t.MatchingWeaponID) {
				matching = append(matching, t)
			}
		}
		if len(available) > 0 {
			from := available
			if len(matching) > 0 && g.rng.Next() < matchingTokenBias {
				from = matching
			}
			t := rng.Pick(g.rng, from)
			pool = append(pool, UpgradeDef{
				ID:          "nt_" + t.ID,
				Kind:        KindNewToken,
				Name:        t.Icon + " " + t.Name,
				Description: t.Description,
				Stat:        t.Stat,
				Value:       t.Value,
				TokenID:     t.ID,
				Group:       t.Group,
			})
		}
	}

	projectiles := false
	for _, w := range p.Weapons {
		if def, ok := Weapon(w.WeaponID); ok && projectileLike(def.Pattern) {
			projectiles = true
		}
	}
	var stats []UpgradeDef
	for _, u := range PlayerUpgrades {
		if !projectiles && (u.Stat == StatProjectiles || u.Stat == StatPierce) {
			continue
		}
		stats = append(stats, u)
	}
	stats = rng.Shuffle(g.rng, stats)
	pool = append(pool, stats[:min(statOffers, len(stats))]...)

	if multi {
		group := rng.Shuffle(g.rng, GroupUpgrades)
		pool = append(pool, group[:min(groupOffers, len(group))]...)
	}

	pool = rng.Shuffle(g.rng, pool)
	return pool[:min(g.cfg.Weapons.LevelUpChoices, len(pool))]
}

// ownsWeaponLine reports whether p holds id or the ascended form of id.
func (g *Game) ownsWeaponLine(p *PlayerState, id string) bool {
	for _, w := range p.Weapons {
		if w.WeaponID == id {
			return true
		}
		if def, ok := Weapon(w.WeaponID); ok && def.BaseWeaponID == id {
			return true
		}
	}
	return false
}

// PickUpgrade resolves the head of a player's offer queue with one of its
// options. The next queued offer, if any, is sent right away.
func (g *Game) PickUpgrade(playerID, upgradeID string) ([]Event, error) {
	q := g.offers[playerID]
	if len(q) == 0 {
		return nil, ErrNoOffer
	}
	var chosen *UpgradeDef
	for i := range q[0].Options {
		if q[0].Options[i].ID == upgradeID {
			chosen = &q[0].Options[i]
			break
		}
	}
	if chosen == nil {
		return nil, ErrUnknownUpgrade
	}
	p := g.player(playerID)
	if p == nil {
		return nil, ErrUnknownPlayer
	}
	g.applyUpgrade(p, *chosen)

	if len(q) == 1 {
		delete(g.offers, playerID)
	} else {
		g.offers[playerID] = q[1:]
		g.emit(playerID, LevelUpMsg{Type: MsgLevelUp, Offer: q[1]})
	}
	return g.flush(), nil
}

func (g *Game) applyUpgrade(p *PlayerState, u UpgradeDef) {
	switch u.Kind {
	case KindNewWeapon:
		if len(p.Weapons) < g.cfg.Limits.MaxWeapons && !g.ownsWeaponLine(p, u.WeaponID) {
			p.Weapons = append(p.Weapons, WeaponInstance{WeaponID: u.WeaponID, Level: 1})
		}
	case KindWeaponLevel:
		for i := range p.Weapons {
			w := &p.Weapons[i]
			if w.WeaponID != u.WeaponID {
				continue
			}
			if w.Level < g.cfg.Weapons.MaxLevel {
				w.Level++
			}
			g.checkEvolution(p, w)
			break
		}
	case KindNewToken:
		if len(p.Tokens) < g.cfg.Limits.MaxTokens && !p.hasToken(u.TokenID) {
			p.Tokens = append(p.Tokens, u.TokenID)
		}
		g.recalcAll()
		for i := range p.Weapons {
			g.checkEvolution(p, &p.Weapons[i])
		}
	case KindPlayerStat:
		g.players[p.ID].picked.add(u.Stat, u.Value)
		g.recalcBonuses(p)
	case KindGroupStat:
		g.groupBonuses.add(u.Stat, u.Value)
		g.recalcAll()
	}
}

// checkEvolution ascends, then transcends, w when its thresholds are met.
func (g *Game) checkEvolution(p *PlayerState, w *WeaponInstance) {
	wc := g.cfg.Weapons
	if !w.Ascended && w.Level >= wc.AscendLevel {
		if r, ok := RecipeFor(w.WeaponID); ok && p.hasToken(r.TokenID) {
			base, _ := Weapon(w.WeaponID)
			asc, _ := Weapon(r.AscendedWeaponID)
			rt := g.players[p.ID]
			rt.cooldowns[asc.ID] = rt.cooldowns[w.WeaponID]
			delete(rt.cooldowns, w.WeaponID)
			w.WeaponID = asc.ID
			w.Ascended = true
			w.Level = 1
			g.emit("", AscensionMsg{Type: MsgAscension, PlayerID: p.ID, WeaponName: base.Name, AscendedName: asc.Name})
		}
	}
	if w.Ascended && !w.Transcended && w.Level >= wc.TranscendLevel {
		w.Transcended = true
		def, _ := Weapon(w.WeaponID)
		g.emit("", TranscendenceMsg{Type: MsgTranscendence, PlayerID: p.ID, WeaponName: def.Name})
	}
}

func passiveBonuses(c CharacterDef) Bonuses {
	var b Bonuses
	switch c.Passive {
	case PassivePickupRange:
		b.PickupRange = 0.3
	case PassiveKnockback:
		b.Knockback = 0.2
	case PassiveXPGain:
		b.XPGain = 0.15
	}
	return b
}

func (b Bonuses) plus(o Bonuses) Bonuses {
	return Bonuses{
		Damage:          b.Damage + o.Damage,
		Speed:           b.Speed + o.Speed,
		Area:            b.Area + o.Area,
		Projectiles:     b.Projectiles + o.Projectiles,
		Pierce:          b.Pierce + o.Pierce,
		Crit:            b.Crit + o.Crit,
		PickupRange:     b.PickupRange + o.PickupRange,
		MaxHP:           b.MaxHP + o.MaxHP,
		DamageReduction: b.DamageReduction + o.DamageReduction,
		Lifesteal:       b.Lifesteal + o.Lifesteal,
		AttackSpeed:     b.AttackSpeed + o.AttackSpeed,
		XPGain:          b.XPGain + o.XPGain,
		MaxHPPct:        b.MaxHPPct + o.MaxHPPct,
		Knockback:       b.Knockback + o.Knockback,
		Duration:        b.Duration + o.Duration,
	}
}

func (g *Game) recalcAll() {
	for _, p := range g.state.Players {
		g.recalcBonuses(p)
	}
}

// recalcBonuses rebuilds p's effective bonuses from its passive, its own
// picks and tokens, every group token in the room, and the room-wide group
// upgrades. Raising max hp heals by the difference.
func (g *Game) recalcBonuses(p *PlayerState) {
	rt := g.players[p.ID]
	b := passiveBonuses(rt.char).plus(rt.picked)
	for _, id := range p.Tokens {
		if t, ok := Token(id); ok && !t.Group {
			b.add(t.Stat, t.Value)
		}
	}
	for _, other := range g.state.Players {
		for _, id := range other.Tokens {
			if t, ok := Token(id); ok && t.Group {
				b.add(t.Stat, t.Value)
			}
		}
	}
	b = b.plus(g.groupBonuses)
	p.Bonuses = b

	maxHP := int(math.Floor(float64(rt.char.BaseHP+b.MaxHP) * (1 + b.MaxHPPct)))
	if maxHP > p.MaxHP && p.Alive {
		p.HP += maxHP - p.MaxHP
	}
	p.MaxHP = maxHP
	p.HP = min(p.HP, p.MaxHP)
}
