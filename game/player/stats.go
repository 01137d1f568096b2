package player

import "github.com/kasuganosora/miridle/server/game/item"

// Stats is the derived combat snapshot. It is rebuilt from scratch by
// Recalculate and never patched in place.
type Stats struct {
	MaxHP             int `json:"max_hp"`
	MaxMP             int `json:"max_mp"`
	Attack            int `json:"attack"`
	Magic             int `json:"magic"`
	Taoism            int `json:"taoism"`
	Defense           int `json:"defense"`
	MagicDefense      int `json:"magic_defense"`
	Accuracy          int `json:"accuracy"`
	Dodge             int `json:"dodge"`
	Crit              int `json:"crit"`
	Luck              int `json:"luck"`
	AttackSpeed       int `json:"attack_speed"`
	CooldownReduction int `json:"cooldown_reduction"`

	BagWeight  int `json:"bag_weight"`
	WearWeight int `json:"wear_weight"`
	HandWeight int `json:"hand_weight"`
}

func (s *Stats) add(key string, v int) {
	switch key {
	case "hp":
		s.MaxHP += v
	case "mp":
		s.MaxMP += v
	case "attack":
		s.Attack += v
	case "magic":
		s.Magic += v
	case "taoism":
		s.Taoism += v
	case "defense":
		s.Defense += v
	case "magic_defense":
		s.MagicDefense += v
	case "accuracy":
		s.Accuracy += v
	case "dodge":
		s.Dodge += v
	case "crit":
		s.Crit += v
	case "luck":
		s.Luck += v
	case "attack_speed":
		s.AttackSpeed += v
	case "cooldown_reduction":
		s.CooldownReduction += v
	}
}

func scale(v int, pct int) int {
	return int(float64(v) * (1 + float64(pct)/100))
}

// ForgeBonus is the extra a forged slot adds to one stat of the item in it.
func ForgeBonus(base, forging int) int {
	if forging <= 0 {
		return 0
	}
	return max(1, base*forging/100)
}

// FullBodyLevel is the lowest enhancement across all eleven slots, or 0
// when any slot is empty. Unequipping one piece therefore drops the bonus
// for the whole set.
func FullBodyLevel(eq *item.Equipment) int {
	if eq.Filled() < len(item.AllSlots) {
		return 0
	}
	n := item.MaxEnhancement
	for _, slot := range item.AllSlots {
		n = min(n, eq.Get(slot).EnhancementLevel())
	}
	return n
}

// ComputeStats derives stats from level, class, equipment, forging and
// cultivation. It reads nothing else.
func ComputeStats(level int, prof Profession, eq *item.Equipment, cult Cultivation) Stats {
	base := classBases[prof]
	s := Stats{
		MaxHP:        base.hp + (level-1)*20,
		MaxMP:        base.mp + (level-1)*10,
		Attack:       base.attack,
		Magic:        base.magic,
		Taoism:       base.taoism,
		Defense:      base.defense,
		MagicDefense: base.magicDef,
		Accuracy:     5,
		Dodge:        5,
		Crit:         5,
		BagWeight:    50 + level*5,
		WearWeight:   15 + level,
		HandWeight:   20 + level,
	}

	for _, slot := range item.AllSlots {
		it := eq.Get(slot)
		if it == nil {
			continue
		}
		enh := it.EnhancementLevel()
		forging := eq.Forging(slot)
		for k, v := range it.Stats {
			s.add(k, v+enh+ForgeBonus(v, forging))
		}
	}

	if n := FullBodyLevel(eq); n > 0 {
		s.MaxHP = scale(s.MaxHP, n)
		s.MaxMP = scale(s.MaxMP, n)
		s.Attack = scale(s.Attack, n)
		s.Magic = scale(s.Magic, n)
		s.Taoism = scale(s.Taoism, n)
		s.Defense = scale(s.Defense, n)
		s.MagicDefense = scale(s.MagicDefense, n)
	}

	b := cult.Bonus()
	s.Attack += b.Attack
	s.Defense += b.Defense
	if b.HPPct > 0 {
		s.MaxHP = scale(s.MaxHP, b.HPPct)
	}
	if b.MPPct > 0 {
		s.MaxMP = scale(s.MaxMP, b.MPPct)
	}
	return s
}

// Recalculate rebuilds the derived stats and clamps current HP/MP down to
// the new maxima. It never refills.
func (c *Character) Recalculate() {
	c.stats = ComputeStats(c.Level, c.Profession, c.Equipment, c.Cultivation)
	c.Inventory.SetMaxWeight(c.stats.BagWeight)
	c.HP = min(c.HP, c.stats.MaxHP)
	c.MP = min(c.MP, c.stats.MaxMP)
}
