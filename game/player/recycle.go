package player

import "github.com/kasuganosora/miridle/server/game/item"

// Rewards totals what a recycle pass paid out.
type Rewards struct {
	Count        int `json:"count"`
	Gold         int `json:"gold"`
	Ingots       int `json:"ingots"`
	Stones       int `json:"stones"`
	MythicStones int `json:"mythic_stones"`
}

// RecycleValue is the payout for one piece of gear of quality q.
func RecycleValue(q item.Quality) Rewards {
	switch q {
	case item.Common:
		return Rewards{Count: 1, Gold: 100, Stones: 1}
	case item.Uncommon:
		return Rewards{Count: 1, Gold: 200, Stones: 1}
	case item.Fine:
		return Rewards{Count: 1, Gold: 300, Stones: 1}
	case item.Superior:
		return Rewards{Count: 1, Ingots: 1, Stones: 2}
	case item.Legendary:
		return Rewards{Count: 1, Ingots: 2, Stones: 3}
	case item.Epic:
		return Rewards{Count: 1, Ingots: 3, Stones: 4}
	case item.Divine:
		return Rewards{Count: 1, Ingots: 4, Stones: 5, MythicStones: 1}
	}
	return Rewards{}
}

func (r *Rewards) add(o Rewards) {
	r.Count += o.Count
	r.Gold += o.Gold
	r.Ingots += o.Ingots
	r.Stones += o.Stones
	r.MythicStones += o.MythicStones
}

// Recycle destroys unlocked gear of the given qualities in the inventory
// and pays out gold, ingots and stones.
func (c *Character) Recycle(qualities []item.Quality) Rewards {
	want := make(map[item.Quality]bool, len(qualities))
	for _, q := range qualities {
		want[q] = true
	}
	var r Rewards
	for _, e := range c.Inventory.Items() {
		it := e.Item
		if !it.IsEquipment() || it.Locked || !want[it.Quality] {
			continue
		}
		r.add(RecycleValue(it.Quality))
		c.Inventory.Remove(it.ID, it.Count)
	}
	c.Gold += r.Gold
	c.Ingots += r.Ingots
	c.grant(upgradeStoneKey, r.Stones)
	c.grant(mythicStoneKey, r.MythicStones)
	return r
}

// grant adds n units of a stackable item to the inventory.
func (c *Character) grant(key string, n int) bool {
	if n <= 0 {
		return true
	}
	it, err := c.catalog.Create(key, n)
	if err != nil {
		return false
	}
	return c.Inventory.Add(it) && it.Count == 0
}
