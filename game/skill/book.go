package skill

import (
	"errors"
	"time"

	"github.com/kasuganosora/miridle/server/resource"
)

// DefaultWarriorSkill is granted to new warriors and to saves that
// predate skill lists.
const DefaultWarriorSkill = "hellfire"

var (
	ErrUnknownSkill    = errors.New("skill: unknown skill")
	ErrWrongProfession = errors.New("skill: wrong profession")
	ErrLevelTooLow     = errors.New("skill: level too low")
	ErrAlreadyKnown    = errors.New("skill: already learned")
)

// Known is a learned skill with the wall-clock time it was last cast.
// Cooldowns are derived from LastUsed so they survive a reload.
type Known struct {
	Key      string    `json:"key"`
	LastUsed time.Time `json:"last_used"`
}

// Book is the set of skills a character has learned plus the selected
// active skill.
type Book struct {
	res    *resource.ResourceLoader
	known  []*Known
	active string
}

func NewBook(res *resource.ResourceLoader) *Book {
	return &Book{res: res}
}

// Def returns the table entry of a learned or unlearned skill.
func (b *Book) Def(key string) *resource.SkillTemplate { return b.res.Skill(key) }

// Learn adds a skill after checking profession and level.
func (b *Book) Learn(key, profession string, level int) error {
	def := b.res.Skill(key)
	if def == nil {
		return ErrUnknownSkill
	}
	if def.Profession != profession {
		return ErrWrongProfession
	}
	if level < def.Level {
		return ErrLevelTooLow
	}
	if b.Get(def.Key) != nil {
		return ErrAlreadyKnown
	}
	b.known = append(b.known, &Known{Key: def.Key})
	return nil
}

// Grant adds a skill without checks, as when restoring a save. Granting a
// skill already known replaces its last-use time.
func (b *Book) Grant(k Known) {
	if def := b.res.Skill(k.Key); def != nil {
		k.Key = def.Key
	}
	if cur := b.Get(k.Key); cur != nil {
		cur.LastUsed = k.LastUsed
		return
	}
	b.known = append(b.known, &k)
}

// Get returns a learned skill, or nil.
func (b *Book) Get(key string) *Known {
	for _, k := range b.known {
		if k.Key == key {
			return k
		}
	}
	return nil
}

// Known lists learned skills in learning order.
func (b *Book) Known() []Known {
	out := make([]Known, len(b.known))
	for i, k := range b.known {
		out[i] = *k
	}
	return out
}

// Active returns the selected skill, or nil when none is set.
func (b *Book) Active() (*Known, *resource.SkillTemplate) {
	if b.active == "" {
		return nil, nil
	}
	k := b.Get(b.active)
	if k == nil {
		return nil, nil
	}
	return k, b.res.Skill(k.Key)
}

// ActiveKey is the selected skill key, possibly empty.
func (b *Book) ActiveKey() string { return b.active }

// SetActive selects a learned skill; an empty key clears the selection.
func (b *Book) SetActive(key string) bool {
	if key == "" {
		b.active = ""
		return true
	}
	if def := b.res.Skill(key); def != nil {
		key = def.Key
	}
	if b.Get(key) == nil {
		return false
	}
	b.active = key
	return true
}

// Cooldown is the skill cooldown after reduction. cdr is a percentage
// clamped to [0, 100].
func Cooldown(def *resource.SkillTemplate, cdr int) time.Duration {
	cdr = min(max(cdr, 0), 100)
	secs := def.Cooldown * (1 - float64(cdr)/100)
	return time.Duration(secs * float64(time.Second))
}

// Ready reports whether the cooldown has elapsed at now.
func Ready(def *resource.SkillTemplate, k *Known, now time.Time, cdr int) bool {
	if k.LastUsed.IsZero() {
		return true
	}
	return now.Sub(k.LastUsed) >= Cooldown(def, cdr)
}

// Remaining is how long until the skill is ready, 0 when it already is.
func Remaining(def *resource.SkillTemplate, k *Known, now time.Time, cdr int) time.Duration {
	if k.LastUsed.IsZero() {
		return 0
	}
	return max(Cooldown(def, cdr)-now.Sub(k.LastUsed), 0)
}

// Usable reports whether the skill can be cast now with mp available.
func Usable(def *resource.SkillTemplate, k *Known, mp int, now time.Time, cdr int) bool {
	return def.Type == "active" && mp >= def.MPCost && Ready(def, k, now, cdr)
}
