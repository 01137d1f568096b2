package world

import (
	"fmt"
	"time"

	"github.com/kasuganosora/miridle/server/game/ai"
	"github.com/kasuganosora/miridle/server/game/battle"
	"github.com/kasuganosora/miridle/server/game/skill"
	"go.uber.org/zap"
)

// autopilotStep is one decision of the unattended player, in priority
// order: drop a dead target, walk to a manual destination, attack the
// target, acquire the nearest monster, close the distance.
func (r *Room) autopilotStep(now time.Time) {
	if r.target != nil && !r.target.Alive() {
		r.target = nil
	}

	if r.dest != nil {
		d := *r.dest
		if r.playerPos() != d {
			r.stepPlayer(r.destStep(d), now)
		}
		if r.playerPos() == d {
			r.dest = nil
			r.emit(battle.EventLog{Text: "arrived"})
		}
		return
	}

	if r.target != nil && r.tryAttack(r.target, now) {
		return
	}
	if r.target == nil && r.char.Settings.AutoCombat {
		r.target = r.nearest()
		if r.target != nil && r.tryAttack(r.target, now) {
			return
		}
	}
	if r.target == nil {
		return
	}

	strike := r.plan(now)
	if battle.Distance(r.char.X, r.char.Y, r.target.X, r.target.Y) > strike.Range {
		r.stepPlayer(approachStep(r.playerPos(), r.target.Pos()), now)
	}
}

// destStep moves toward a manual destination, picking an axis at random
// when both differ.
func (r *Room) destStep(d ai.Point) ai.Point {
	p := r.playerPos()
	dx, dy := sign(d.X-p.X), sign(d.Y-p.Y)
	if dx != 0 && dy != 0 {
		if r.rng.Intn(2) == 0 {
			return ai.Point{X: dx}
		}
		return ai.Point{Y: dy}
	}
	return ai.Point{X: dx, Y: dy}
}

// approachStep closes the x gap first, then y.
func approachStep(from, to ai.Point) ai.Point {
	if dx := sign(to.X - from.X); dx != 0 {
		return ai.Point{X: dx}
	}
	return ai.Point{Y: sign(to.Y - from.Y)}
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

// nearest is the closest live monster by Manhattan distance; the first
// one listed wins ties.
func (r *Room) nearest() *Monster {
	var best *Monster
	bestDist := 0
	for _, m := range r.monsters {
		if !m.Alive() {
			continue
		}
		d := battle.Distance(r.char.X, r.char.Y, m.X, m.Y)
		if best == nil || d < bestDist {
			best, bestDist = m, d
		}
	}
	return best
}

func (r *Room) plan(now time.Time) battle.Strike {
	return battle.PlanStrike(r.char.Skills, r.char.MP, now, r.char.Stats().CooldownReduction)
}

// tryAttack hits m with the active skill when it is usable and in range,
// or with a basic attack when the skill is not usable and m is adjacent.
// It reports whether an attack happened.
func (r *Room) tryAttack(m *Monster, now time.Time) bool {
	strike := r.plan(now)
	dist := battle.Distance(r.char.X, r.char.Y, m.X, m.Y)
	if !strike.InRange(dist) {
		if strike.Melee() {
			r.notReady(dist, now)
		}
		return false
	}
	if strike.Melee() {
		r.combatRound(m)
	} else {
		r.skillAttack(m, strike, now)
	}
	return true
}

// notReady tells the player why the active skill was held back from a
// target only it could reach.
func (r *Room) notReady(dist int, now time.Time) {
	k, def := r.char.Skills.Active()
	if k == nil || def == nil || def.Type != "active" || dist > def.Range {
		return
	}
	c := r.char
	if c.MP < def.MPCost {
		r.emit(battle.EventFloatingText{X: c.X, Y: c.Y, Text: "MP low", Color: battle.ColorBlue})
		r.emit(battle.EventLog{Text: fmt.Sprintf("not enough MP for %s", def.Name)})
		return
	}
	left := skill.Remaining(def, k, now, c.Stats().CooldownReduction)
	r.emit(battle.EventLog{Text: fmt.Sprintf("%s not ready (%.1fs)", def.Name, left.Seconds())})
}

// combatRound is a basic attack; a surviving monster strikes back.
func (r *Room) combatRound(m *Monster) {
	st := r.char.Stats()
	dmg := battle.BasicDamage(st.Attack, m.Template.Defense)
	r.hitMonster(m, dmg, fmt.Sprintf("you hit %s for %d", m.Template.Name, dmg))
	if !m.Alive() {
		return
	}
	r.monsterStrike(m)
}

// skillAttack casts the active skill. Skills are never countered.
func (r *Room) skillAttack(m *Monster, s battle.Strike, now time.Time) {
	r.char.MP -= s.Skill.MPCost
	s.Known.LastUsed = now
	dmg := s.Damage(r.char.Stats().Attack, m.Template.Defense)
	r.hitMonster(m, dmg, fmt.Sprintf("%s hits %s for %d", s.Skill.Name, m.Template.Name, dmg))
}

func (r *Room) hitMonster(m *Monster, dmg int, line string) {
	dead := m.TakeDamage(dmg)
	r.emit(battle.EventFloatingText{X: m.X, Y: m.Y, Text: fmt.Sprintf("-%d", dmg), Color: battle.ColorRed})
	r.emit(battle.EventLog{Text: line})
	if dead {
		r.handleKill(m)
	}
}

// monsterStrike is a single monster hit on the player.
func (r *Room) monsterStrike(m *Monster) {
	c := r.char
	dmg := battle.BasicDamage(m.Template.Attack, c.Stats().Defense)
	c.TakeDamage(dmg)
	r.emit(battle.EventFloatingText{X: c.X, Y: c.Y, Text: fmt.Sprintf("-%d", dmg), Color: battle.ColorRed})
	if !c.Alive() {
		r.playerDeath()
	}
}

// playerDeath revives the player in place of a game over: full HP at the
// map origin.
func (r *Room) playerDeath() {
	c := r.char
	r.emit(battle.EventDeath{X: c.X, Y: c.Y})
	c.HP = c.Stats().MaxHP
	c.X, c.Y = 0, 0
	r.target = nil
	r.dest = nil
	r.emit(battle.EventLog{Text: "you died and were revived"})
	r.logger.Info("player died", zap.Int("level", c.Level))
}

// stepPlayer moves the player by d. Entering a monster's cell attacks it
// instead; entering the treasure cell opens the treasure prompt. It
// reports whether the player moved or attacked.
func (r *Room) stepPlayer(d ai.Point, now time.Time) bool {
	next := r.playerPos().Add(d)
	if !r.grid.Passable(next.X, next.Y) {
		return false
	}
	if m := r.monsterAt(next); m != nil {
		r.target = m
		return r.tryAttack(m, now)
	}
	r.char.X, r.char.Y = next.X, next.Y
	if mk, ok := r.treasure.Prompt(next.X, next.Y); ok {
		cost := mk.Cost()
		r.emit(battle.EventTreasurePrompt{X: mk.X, Y: mk.Y, Quality: mk.Quality, Gold: cost.Gold, Ingots: cost.Ingots})
	}
	return true
}

// tickMonsters advances every monster's move timer and moves the ones
// that are due. A monster moving into the player attacks instead.
func (r *Room) tickMonsters() {
	target := r.playerPos()
	for _, m := range r.monsters {
		if !m.Alive() {
			continue
		}
		m.moveTimer++
		if m.moveTimer < m.moveInterval {
			continue
		}
		m.moveTimer = 0
		if m.State == ai.StateIdle {
			m.moveInterval = ai.IdleInterval(r.rng)
		}
		ctx := &ai.Context{Self: m.Pos(), State: m.State, Target: target, RNG: r.rng}
		if r.tree.Tick(ctx) != ai.StatusSuccess {
			continue
		}
		next := m.Pos().Add(ctx.Step)
		if !r.grid.Passable(next.X, next.Y) {
			continue
		}
		if next == r.playerPos() {
			r.monsterStrike(m)
			target = r.playerPos()
			continue
		}
		if r.monsterAt(next) != nil {
			continue
		}
		m.X, m.Y = next.X, next.Y
	}
}
