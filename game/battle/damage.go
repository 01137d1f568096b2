// Package battle holds the combat arithmetic and the event stream the
// simulation emits for presentation.
package battle

import (
	"math"
	"time"

	"github.com/kasuganosora/miridle/server/game/skill"
	"github.com/kasuganosora/miridle/server/resource"
)

// MeleeRange is the reach of a basic attack.
const MeleeRange = 1

// BasicDamage is a plain hit: defense is subtracted once, never below 1.
func BasicDamage(attack, defense int) int {
	return max(1, attack-defense)
}

// SkillDamage scales attack by the skill multiplier before defense.
func SkillDamage(attack int, multiplier float64, defense int) int {
	return max(1, int(math.Floor(float64(attack)*multiplier))-defense)
}

// Distance is the Manhattan distance between two cells.
func Distance(x1, y1, x2, y2 int) int {
	dx, dy := x1-x2, y1-y2
	if dx < 0 {
		dx = -dx
	}
	if dy < 0 {
		dy = -dy
	}
	return dx + dy
}

// Strike is how an attacker will hit on its next action.
type Strike struct {
	Skill *resource.SkillTemplate // nil for melee
	Known *skill.Known
	Range int
}

// Melee reports whether the strike is a basic attack.
func (s Strike) Melee() bool { return s.Skill == nil }

// Damage computes the hit against defense.
func (s Strike) Damage(attack, defense int) int {
	if s.Melee() {
		return BasicDamage(attack, defense)
	}
	return SkillDamage(attack, s.Skill.Multiplier, defense)
}

// InRange reports whether a target at dist can be reached.
func (s Strike) InRange(dist int) bool { return dist <= s.Range }

// PlanStrike picks the active skill when it has MP and is off cooldown,
// otherwise a melee strike.
func PlanStrike(book *skill.Book, mp int, now time.Time, cdr int) Strike {
	if book != nil {
		if k, def := book.Active(); k != nil && def != nil && skill.Usable(def, k, mp, now, cdr) {
			return Strike{Skill: def, Known: k, Range: def.Range}
		}
	}
	return Strike{Range: MeleeRange}
}
