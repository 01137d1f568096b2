package loot

import (
	"github.com/kasuganosora/miridle/server/game/item"
	"github.com/kasuganosora/miridle/server/resource"
)

const (
	dropGate       = 0.8
	ingotChance    = 0.01
	gearChance     = 0.2
	powderChance   = 0.1
	defaultMapTop  = 100
	bonePowderKey  = "bone_powder"
	minGold        = 10
	maxGold        = 50
	maxPowderCount = 3
)

// KillDrops is what a defeated monster leaves behind.
type KillDrops struct {
	Gold       int
	Ingots     int
	Gear       *item.Item
	BonePowder *item.Item
}

// Empty reports whether nothing dropped.
func (d KillDrops) Empty() bool {
	return d.Gold == 0 && d.Ingots == 0 && d.Gear == nil && d.BonePowder == nil
}

// RollKill rolls the drop table of a monster killed on mp. Past an 80%
// gate, gold, ingot, equipment and bone powder roll independently.
// Equipment comes from the monster's own list when it has one, else from
// the map's level range.
func (g *Generator) RollKill(m *resource.MonsterTemplate, mp *resource.MapTemplate) KillDrops {
	var d KillDrops
	if g.rng.Float64() >= dropGate {
		return d
	}
	d.Gold = minGold + g.rng.Intn(maxGold-minGold+1)
	if g.rng.Float64() < ingotChance {
		d.Ingots = 1
	}
	if g.rng.Float64() < gearChance {
		req := Request{MinLevel: 1, MaxLevel: defaultMapTop}
		if mp != nil && mp.MaxLevel > 0 {
			req.MaxLevel = mp.MaxLevel
		}
		if m != nil && len(m.Drops) > 0 {
			req = Request{Allowed: m.Drops}
		}
		if it, ok := g.GenerateDrop(req); ok {
			d.Gear = it
		}
	}
	if g.rng.Float64() < powderChance {
		if it, err := g.catalog.Create(bonePowderKey, 1+g.rng.Intn(maxPowderCount)); err == nil {
			d.BonePowder = it
		}
	}
	return d
}
