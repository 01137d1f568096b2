package player

import "github.com/kasuganosora/miridle/server/game/item"

// PageUnlockIngots is the price of one extra inventory page.
const PageUnlockIngots = 50

// Buy purchases qty of a consumable or skill tome for gold.
func (c *Character) Buy(key string, qty int) Result {
	if qty <= 0 {
		return failure("invalid quantity")
	}
	t, err := c.catalog.Template(key)
	if err != nil {
		return failure("unknown item %q", key)
	}
	if t.IsGear() || t.Price <= 0 {
		return failure("%s is not for sale", t.Name)
	}
	it, err := c.catalog.Create(key, qty)
	if err != nil {
		return failure("unknown item %q", key)
	}
	if it.Count != qty {
		return failure("can buy at most %d %s at once", it.Count, t.Name)
	}
	cost := t.Price * qty
	if c.Gold < cost {
		return failure("need %d gold", cost)
	}
	if !c.Inventory.CanAdd(it) {
		return failure("inventory full")
	}
	c.Inventory.Add(it)
	c.Gold -= cost
	return success("bought %s x%d", t.Name, qty)
}

// UnlockInventoryPage charges ingots and opens the next inventory page.
func (c *Character) UnlockInventoryPage() Result {
	if c.Inventory.UnlockedPages() >= item.MaxPages {
		return failure("all pages unlocked")
	}
	if c.Ingots < PageUnlockIngots {
		return failure("need %d ingots", PageUnlockIngots)
	}
	c.Inventory.UnlockPage()
	c.Ingots -= PageUnlockIngots
	return success("page %d unlocked", c.Inventory.UnlockedPages())
}
