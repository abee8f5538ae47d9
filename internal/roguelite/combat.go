package roguelite

import (
	"math"

	"github.com/zyedidia/generic/mapset"

	"github.com/vovakirdan/defuse-exe/internal/config"
	"github.com/vovakirdan/defuse-exe/internal/core"
	"github.com/vovakirdan/defuse-exe/internal/rng"
)

const (
	aimRange       = 500
	homingRange    = 400
	homingSteer    = 0.08
	spreadRad      = 0.15
	coneMinDot     = 0.5
	ringBand       = 15
	groundPeriod   = 10
	groundDamage   = 0.7
	offscreenSlack = 200
	enemyLeash     = 100
	kiteRange      = 250
	shootMin       = 60
	shootMax       = 400
	shootEvery     = 40
	ringStunMs     = 200
)

// weaponStats are the fire-time numbers of one owned weapon.
type weaponStats struct {
	damage      int
	area        float64
	projectiles int
	pierce      int
	cooldownMs  float64
	lifeMs      int
	knockback   float64
}

func (g *Game) weaponStats(p *PlayerState, w WeaponInstance, def WeaponDef) weaponStats {
	b := p.Bonuses
	lvlMult := 1 + float64(w.Level-1)*0.08
	dmg := float64(def.BaseDamage) * lvlMult * (1 + b.Damage)
	if g.players[p.ID].char.Passive == PassiveBerserk && float64(p.HP) < 0.3*float64(p.MaxHP) {
		dmg *= 1.3
	}
	st := weaponStats{
		area:        def.BaseArea * (1 + b.Area),
		projectiles: def.BaseProjectiles + b.Projectiles,
		pierce:      def.BasePierce + b.Pierce,
		cooldownMs:  def.BaseCooldownMs / (1 + b.AttackSpeed),
		knockback:   def.BaseKnockback * (1 + b.Knockback),
	}
	if w.Transcended {
		dmg *= 1.5
		st.area *= 1.25
		st.projectiles += 2
		st.pierce += 3
		st.cooldownMs *= 0.8
	}
	st.damage = int(math.Floor(dmg))
	st.cooldownMs = math.Max(g.cfg.Weapons.MinCooldownMs, st.cooldownMs)
	st.lifeMs = int(math.Floor(float64(def.BaseDuration)*(1+b.Duration))) * g.cfg.TickMs()
	if st.projectiles < 1 {
		st.projectiles = 1
	}
	return st
}

func (g *Game) fireWeapons() {
	tickMs := float64(g.cfg.TickMs())
	for _, p := range g.state.Players {
		if !p.Alive {
			continue
		}
		rt := g.players[p.ID]
		for _, w := range p.Weapons {
			def, ok := Weapon(w.WeaponID)
			if !ok {
				continue
			}
			cd := rt.cooldowns[w.WeaponID] - tickMs
			if cd > 0 {
				rt.cooldowns[w.WeaponID] = cd
				continue
			}
			st := g.weaponStats(p, w, def)
			rt.cooldowns[w.WeaponID] = st.cooldownMs
			g.fire(p, rt, def, st)
		}
	}
}

func (g *Game) aim(p *PlayerState, rt *playerRuntime) core.Vec {
	pos := core.Vec{X: p.X, Y: p.Y}
	if rt.settings.TargetingMode == TargetCursor && rt.hasCursor {
		if d := rt.cursor.Sub(pos); d.Len() > 0 {
			return d.Normalize()
		}
	}
	if e := g.nearestEnemy(p.X, p.Y, aimRange, nil); e != nil {
		if d := (core.Vec{X: e.X, Y: e.Y}).Sub(pos); d.Len() > 0 {
			return d.Normalize()
		}
	}
	return rt.facing
}

func (g *Game) fire(p *PlayerState, rt *playerRuntime, def WeaponDef, st weaponStats) {
	s := g.state
	dir := g.aim(p, rt)
	full := len(s.Projectiles) >= g.cfg.Limits.MaxProjectiles

	switch def.Pattern {
	case PatternProjectile, PatternHoming:
		if full {
			return
		}
		base := dir.Angle()
		for i := 0; i < st.projectiles; i++ {
			a := base + (float64(i)-float64(st.projectiles-1)/2)*spreadRad
			g.spawnProjectile(p, def, st, p.X, p.Y, core.FromAngle(a), def.BaseSpeed, st.area, st.pierce)
		}
	case PatternBeam:
		if full {
			return
		}
		g.spawnProjectile(p, def, st, p.X, p.Y, dir, def.BaseSpeed, math.Max(st.area, 12), st.pierce)
	case PatternRing:
		if full {
			return
		}
		g.spawnProjectile(p, def, st, p.X, p.Y, core.Vec{}, def.BaseSpeed, 10, 99)
	case PatternGround:
		if full {
			return
		}
		at := core.Vec{X: p.X, Y: p.Y}.Add(dir.Scale(40))
		g.spawnProjectile(p, def, st, at.X, at.Y, core.Vec{}, 0, st.area, 99)
	case PatternArea, PatternCone:
		for _, e := range s.Enemies {
			if e.HP <= 0 {
				continue
			}
			to := core.Vec{X: e.X - p.X, Y: e.Y - p.Y}
			if to.Len() > st.area {
				continue
			}
			if def.Pattern == PatternCone && to.Len() > 0 && to.Normalize().Dot(dir) < coneMinDot {
				continue
			}
			g.applyDamage(p, e, st.damage)
			g.knock(e, p.X, p.Y, st.knockback)
		}
	case PatternOrbit:
		for _, e := range s.Enemies {
			if e.HP <= 0 {
				continue
			}
			d := core.Dist(p.X, p.Y, e.X, e.Y)
			if d >= 0.4*st.area && d <= st.area {
				g.applyDamage(p, e, st.damage)
				g.knock(e, p.X, p.Y, st.knockback)
			}
		}
	case PatternChain:
		visited := mapset.New[int64]()
		x, y := p.X, p.Y
		for hop := 0; hop < st.pierce+1; hop++ {
			e := g.nearestEnemy(x, y, st.area, &visited)
			if e == nil {
				break
			}
			visited.Put(e.ID)
			g.applyDamage(p, e, st.damage)
			x, y = e.X, e.Y
		}
	}
}

func (g *Game) spawnProjectile(p *PlayerState, def WeaponDef, st weaponStats, x, y float64, dir core.Vec, speed, area float64, pierce int) {
	g.state.Projectiles = append(g.state.Projectiles, &ProjectileState{
		ID:         g.nextID(),
		OwnerID:    p.ID,
		WeaponID:   def.ID,
		X:          x,
		Y:          y,
		DX:         dir.X,
		DY:         dir.Y,
		Speed:      speed,
		Damage:     st.damage,
		Pierce:     pierce,
		Area:       area,
		LifeMs:     st.lifeMs,
		Pattern:    def.Pattern,
		Color:      def.Color,
		HitEnemies: []int64{},
	})
}

// nearestEnemy returns the closest living enemy within maxDist, skipping ids in skip.
func (g *Game) nearestEnemy(x, y, maxDist float64, skip *mapset.Set[int64]) *EnemyState {
	var best *EnemyState
	bestD := maxDist
	for _, e := range g.state.Enemies {
		if e.HP <= 0 || (skip != nil && skip.Has(e.ID)) {
			continue
		}
		if d := core.Dist(x, y, e.X, e.Y); d <= bestD {
			best, bestD = e, d
		}
	}
	return best
}

// nearestPlayer returns the closest living player, or nil.
func (g *Game) nearestPlayer(x, y float64) *PlayerState {
	var best *PlayerState
	bestD := math.Inf(1)
	for _, p := range g.state.Players {
		if !p.Alive {
			continue
		}
		if d := core.Dist(x, y, p.X, p.Y); d < bestD {
			best, bestD = p, d
		}
	}
	return best
}

// applyDamage deals a player hit to an enemy. Hits without an owner are
// dropped.
func (g *Game) applyDamage(owner *PlayerState, e *EnemyState, dmg int) {
	if owner == nil {
		return
	}
	crit := false
	if g.rng.Next() < owner.Bonuses.Crit {
		crit = true
		dmg = int(math.Floor(float64(dmg) * g.cfg.Weapons.CritMultiplier))
	}
	dmg = max(1, dmg-e.Armor)
	e.HP -= dmg
	owner.DamageDealt += dmg
	if owner.Alive && owner.Bonuses.Lifesteal > 0 {
		owner.HP = min(owner.MaxHP, owner.HP+int(math.Floor(float64(dmg)*owner.Bonuses.Lifesteal)))
	}
	g.state.DamageNumbers = append(g.state.DamageNumbers, &DamageNumber{X: e.X, Y: e.Y - 10, Value: dmg, Crit: crit})
}

// projectileOwner returns the player a projectile scores for, or nil once
// that player has left the game.
func (g *Game) projectileOwner(id string) *PlayerState {
	if rt, ok := g.players[id]; !ok || !rt.connected {
		return nil
	}
	return g.player(id)
}

// knock pushes an enemy away from (fromX, fromY). Bosses do not move.
func (g *Game) knock(e *EnemyState, fromX, fromY, force float64) {
	if force <= 0 || e.Rank == RankBoss {
		return
	}
	d := core.Vec{X: e.X - fromX, Y: e.Y - fromY}
	if d.Len() == 0 {
		return
	}
	push := d.Normalize().Scale(force)
	e.X += push.X
	e.Y += push.Y
}

func (g *Game) knockbackFor(owner *PlayerState, weaponID string) float64 {
	def, ok := Weapon(weaponID)
	if !ok || owner == nil {
		return 0
	}
	return def.BaseKnockback * (1 + owner.Bonuses.Knockback)
}

func enemySize(e *EnemyState) float64 {
	if def, ok := Enemy(e.DefID); ok {
		return def.Size
	}
	return 10
}

func (g *Game) updateProjectiles() {
	s := g.state
	tickMs := g.cfg.TickMs()
	bounds := g.arena().Expand(offscreenSlack)
	kept := s.Projectiles[:0]

	for _, pr := range s.Projectiles {
		pr.LifeMs -= tickMs
		if pr.LifeMs <= 0 {
			continue
		}
		if pr.OwnerID == EnemyOwner {
			pr.X += pr.DX * pr.Speed
			pr.Y += pr.DY * pr.Speed
			if bounds.Contains(pr.X, pr.Y) {
				kept = append(kept, pr)
			}
			continue
		}
		owner := g.projectileOwner(pr.OwnerID)

		switch pr.Pattern {
		case PatternRing:
			pr.Area += pr.Speed
			for _, e := range s.Enemies {
				if e.HP <= 0 || pr.hit(e.ID) {
					continue
				}
				if math.Abs(core.Dist(pr.X, pr.Y, e.X, e.Y)-pr.Area) < ringBand {
					g.applyDamage(owner, e, pr.Damage)
					if owner != nil {
						e.StunMs = max(e.StunMs, ringStunMs)
					}
					pr.HitEnemies = append(pr.HitEnemies, e.ID)
				}
			}
			kept = append(kept, pr)
			continue
		case PatternGround:
			if s.Tick%groundPeriod == 0 {
				pr.HitEnemies = pr.HitEnemies[:0]
			}
			dmg := max(1, int(math.Floor(float64(pr.Damage)*groundDamage)))
			for _, e := range s.Enemies {
				if e.HP <= 0 || pr.hit(e.ID) {
					continue
				}
				if core.Dist(pr.X, pr.Y, e.X, e.Y) < pr.Area {
					g.applyDamage(owner, e, dmg)
					pr.HitEnemies = append(pr.HitEnemies, e.ID)
				}
			}
			kept = append(kept, pr)
			continue
		case PatternHoming:
			if e := g.nearestEnemy(pr.X, pr.Y, homingRange, nil); e != nil {
				want := core.Vec{X: e.X - pr.X, Y: e.Y - pr.Y}.Normalize()
				v := core.Vec{X: pr.DX, Y: pr.DY}
				v = v.Add(want.Sub(v).Scale(homingSteer)).Normalize()
				pr.DX, pr.DY = v.X, v.Y
			}
		}

		pr.X += pr.DX * pr.Speed
		pr.Y += pr.DY * pr.Speed
		if !bounds.Contains(pr.X, pr.Y) {
			continue
		}

		spent := false
		for _, e := range s.Enemies {
			if e.HP <= 0 || pr.hit(e.ID) {
				continue
			}
			if core.Dist(pr.X, pr.Y, e.X, e.Y) >= enemySize(e)+pr.Area {
				continue
			}
			g.applyDamage(owner, e, pr.Damage)
			g.knock(e, pr.X-pr.DX, pr.Y-pr.DY, g.knockbackFor(owner, pr.WeaponID))
			pr.HitEnemies = append(pr.HitEnemies, e.ID)
			pr.Pierced++
			if pr.Pierced > pr.Pierce {
				spent = true
				break
			}
		}
		if !spent {
			kept = append(kept, pr)
		}
	}
	clearTail(s.Projectiles, len(kept))
	s.Projectiles = kept
}

// clearTail nils out the slots an in-place filter left behind.
func clearTail[T any](list []*T, from int) {
	for i := from; i < len(list); i++ {
		list[i] = nil
	}
}

// damagePlayer applies damage reduction and starts the hit invulnerability window.
func (g *Game) damagePlayer(p *PlayerState, raw int) {
	dmg := max(1, int(math.Floor(float64(raw)*(1-p.Bonuses.DamageReduction))))
	p.HP -= dmg
	p.InvulnMs = g.cfg.Player.InvulnAfterHitMs
}

func (g *Game) checkEnemyProjectiles() {
	s := g.state
	radius := g.cfg.Player.Radius
	kept := s.Projectiles[:0]
	for _, pr := range s.Projectiles {
		if pr.OwnerID != EnemyOwner {
			kept = append(kept, pr)
			continue
		}
		hit := false
		for _, p := range s.Players {
			if !p.Alive || p.InvulnMs > 0 {
				continue
			}
			if core.Dist(pr.X, pr.Y, p.X, p.Y) < radius+pr.Area {
				g.damagePlayer(p, pr.Damage)
				hit = true
				break
			}
		}
		if !hit {
			kept = append(kept, pr)
		}
	}
	clearTail(s.Projectiles, len(kept))
	s.Projectiles = kept
}

// rank returns the multipliers of a rank; unset values count as 1.
func (g *Game) rank(r string) config.RankMultipliers {
	var m config.RankMultipliers
	switch r {
	case RankElite:
		m = g.cfg.Ranks.Elite
	case RankMiniboss:
		m = g.cfg.Ranks.Miniboss
	case RankBoss:
		m = g.cfg.Ranks.Boss
	}
	return config.RankMultipliers{HP: orOne(m.HP), Damage: orOne(m.Damage), XP: orOne(m.XP), Speed: orOne(m.Speed)}
}

func orOne(v float64) float64 {
	if v == 0 {
		return 1
	}
	return v
}

func (g *Game) updateEnemies() {
	s := g.state
	tickMs := g.cfg.TickMs()
	radius := g.cfg.Player.Radius
	leash := g.arena().Expand(enemyLeash)
	difficulty := g.ramp.DifficultyScale(s.ElapsedMs)

	for _, e := range s.Enemies {
		if e.StunMs > 0 {
			e.StunMs = max(0, e.StunMs-tickMs)
			continue
		}
		def, ok := Enemy(e.DefID)
		if !ok {
			continue
		}
		target := g.nearestPlayer(e.X, e.Y)
		if target == nil {
			continue
		}
		rk := g.rank(e.Rank)
		speed := def.BaseSpeed * e.SpeedMult * rk.Speed
		to := core.Vec{X: target.X - e.X, Y: target.Y - e.Y}
		if to.Len() > 0 {
			dir := to.Normalize()
			if def.Class == ClassRanged && to.Len() < kiteRange {
				e.X -= dir.X * speed * 0.5
				e.Y -= dir.Y * speed * 0.5
			} else if speed > 0 {
				e.X += dir.X * speed
				e.Y += dir.Y * speed
			}
		}
		e.X, e.Y = leash.ClampPoint(e.X, e.Y)

		nd := core.Dist(e.X, e.Y, target.X, target.Y)
		if nd < radius+def.Size && target.InvulnMs <= 0 {
			g.damagePlayer(target, int(math.Floor(float64(def.BaseDamage)*rk.Damage*difficulty)))
		}
		if def.Class == ClassRanged && nd > shootMin && nd < shootMax && s.Tick%shootEvery == 0 &&
			len(s.Projectiles) < g.cfg.Limits.MaxProjectiles {
			dir := core.Vec{X: target.X - e.X, Y: target.Y - e.Y}.Normalize()
			s.Projectiles = append(s.Projectiles, &ProjectileState{
				ID:         g.nextID(),
				OwnerID:    EnemyOwner,
				WeaponID:   def.ID,
				X:          e.X,
				Y:          e.Y,
				DX:         dir.X,
				DY:         dir.Y,
				Speed:      5,
				Damage:     int(math.Floor(float64(def.BaseDamage) * 0.7 * difficulty)),
				Area:       6,
				LifeMs:     3000,
				Pattern:    PatternProjectile,
				HitEnemies: []int64{},
			})
		}
	}
}

func (g *Game) processDeadEnemies() {
	s := g.state
	kept := s.Enemies[:0]
	for _, e := range s.Enemies {
		if e.HP > 0 {
			kept = append(kept, e)
			continue
		}
		def, _ := Enemy(e.DefID)
		if len(s.XPGems) < g.cfg.Limits.MaxXPGems {
			s.XPGems = append(s.XPGems, &XPGem{
				ID:    g.nextID(),
				X:     e.X,
				Y:     e.Y,
				Value: int(math.Floor(float64(def.XPValue) * g.rank(e.Rank).XP)),
			})
		}
		if killer := g.nearestPlayer(e.X, e.Y); killer != nil {
			killer.KillCount++
		}
		if e.Rank == RankBoss {
			s.BossActive = false
			g.bossKilled = true
			if s.Wave >= s.TotalWaves && !s.PostBoss && s.Phase == PhaseActive {
				s.Phase = PhaseVoteContinue
				s.ContinueVotes = []string{}
				g.votes = mapset.New[string]()
				g.voteLeftMs = g.cfg.VoteTimeoutMs
			}
		}
	}
	clearTail(s.Enemies, len(kept))
	s.Enemies = kept
}

func (g *Game) spawnEnemies() {
	s := g.state
	g.enemyTimer -= g.cfg.TickMs()
	if g.enemyTimer > 0 {
		return
	}
	g.enemyTimer = g.cfg.Spawning.EnemyIntervalMs

	alive := 0
	for _, p := range s.Players {
		if p.Alive {
			alive++
		}
	}
	batch := min(g.cfg.Limits.MaxEnemies-len(s.Enemies), g.ramp.BatchSize(s.ElapsedMs, alive))
	pool := spawnPool(s.Wave)
	if len(pool) == 0 {
		return
	}
	hpScale := g.ramp.HPScale(s.ElapsedMs)
	elite := g.ramp.EliteChance(s.ElapsedMs)
	for i := 0; i < batch; i++ {
		def := weightedEnemy(g.rng, pool)
		rank := RankNormal
		if g.rng.Next() < elite {
			rank = RankElite
		}
		x, y := g.edgePosition()
		hp := max(1, int(math.Floor(float64(def.BaseHP)*hpScale*g.rank(rank).HP)))
		s.Enemies = append(s.Enemies, &EnemyState{
			ID:        g.nextID(),
			DefID:     def.ID,
			X:         x,
			Y:         y,
			HP:        hp,
			MaxHP:     hp,
			Rank:      rank,
			SpeedMult: 1,
		})
	}
	s.Wave++
}

func spawnPool(wave int) []EnemyDef {
	var pool []EnemyDef
	for _, e := range Enemies {
		if e.SpawnWeight > 0 && e.MinWave <= wave {
			pool = append(pool, e)
		}
	}
	return pool
}

func weightedEnemy(r *rng.RNG, pool []EnemyDef) EnemyDef {
	total := 0.0
	for _, e := range pool {
		total += e.SpawnWeight
	}
	cursor := r.Next() * total
	for _, e := range pool {
		cursor -= e.SpawnWeight
		if cursor <= 0 {
			return e
		}
	}
	return pool[len(pool)-1]
}

// edgePosition picks a point just outside a random arena edge.
func (g *Game) edgePosition() (float64, float64) {
	w, h, m := g.cfg.Arena.Width, g.cfg.Arena.Height, g.cfg.Arena.SpawnMargin
	switch g.rng.Int(0, 3) {
	case 0:
		return g.rng.Range(0, w), -m
	case 1:
		return g.rng.Range(0, w), h + m
	case 2:
		return -m, g.rng.Range(0, h)
	default:
		return w + m, g.rng.Range(0, h)
	}
}

func (g *Game) spawnTimedBosses() {
	tickMs := g.cfg.TickMs()
	g.minibossTimer -= tickMs
	if g.minibossTimer <= 0 {
		g.minibossTimer = g.cfg.Spawning.MinibossRepeatMs
		g.spawnSpecial(rng.Pick(g.rng, MinibossIDs), RankMiniboss, 0.7)
	}
	g.bossTimer -= tickMs
	if g.bossTimer <= 0 {
		g.bossTimer = g.cfg.Spawning.BossRepeatMs
		g.spawnSpecial(rng.Pick(g.rng, BossIDs), RankBoss, 0.8)
		g.state.BossActive = true
	}
}

func (g *Game) spawnSpecial(id, rank string, perPlayer float64) {
	def, ok := Enemy(id)
	if !ok {
		return
	}
	players := max(1, len(g.state.Players))
	hp := max(1, int(math.Floor(float64(def.BaseHP)*float64(players)*perPlayer*g.rank(rank).HP)))
	x, y := g.edgePosition()
	g.state.Enemies = append(g.state.Enemies, &EnemyState{
		ID:        g.nextID(),
		DefID:     def.ID,
		X:         x,
		Y:         y,
		HP:        hp,
		MaxHP:     hp,
		Rank:      rank,
		SpeedMult: 1,
	})
	g.emit("", BossWarningMsg{Type: MsgBossWarning, BossName: def.Name})
}
