package player

import (
	"github.com/google/uuid"
	"github.com/kasuganosora/miridle/server/game/item"
)

const (
	upgradeStoneKey = "upgrade_stone"
	mythicStoneKey  = "mythic_upgrade_stone"
	bonePowderKey   = "bone_powder"
)

// Equip moves the item at invIndex into an equipment slot. For rings and
// bracelets target picks the side; empty target means the first open side,
// else the left. Any displaced item goes back to the inventory, and if it
// cannot, nothing changes.
func (c *Character) Equip(invIndex int, target item.Slot) Result {
	it := c.Inventory.Slot(invIndex)
	if it == nil {
		return failure("slot %d is empty", invIndex)
	}
	if !it.IsEquipment() {
		return failure("%s cannot be equipped", it.Name)
	}
	if c.Level < it.MinLevel() {
		return failure("requires level %d", it.MinLevel())
	}
	switch it.Category.Ceiling() {
	case item.CeilingHand:
		if it.Weight > c.stats.HandWeight {
			return failure("too heavy to wield (%d > %d)", it.Weight, c.stats.HandWeight)
		}
	case item.CeilingWear:
		if it.Weight > c.stats.WearWeight {
			return failure("too heavy to wear (%d > %d)", it.Weight, c.stats.WearWeight)
		}
	case item.CeilingNone:
		return failure("%s cannot be equipped", it.Name)
	}

	slot, ok := c.pickSlot(it.Category, target)
	if !ok {
		return failure("%s does not fit %s", it.Name, target)
	}

	c.Inventory.Take(invIndex)
	prev := c.Equipment.Clear(slot)
	if prev != nil && !c.Inventory.Add(prev) {
		c.Equipment.Put(slot, prev)
		c.Inventory.Place(invIndex, it)
		return failure("inventory full")
	}
	c.Equipment.Put(slot, it)
	c.Recalculate()
	return success("equipped %s", it.Name)
}

func (c *Character) pickSlot(cat item.Category, target item.Slot) (item.Slot, bool) {
	slots := cat.Slots()
	if len(slots) == 0 {
		return "", false
	}
	if target != "" {
		for _, s := range slots {
			if s == target {
				return s, true
			}
		}
		return "", false
	}
	for _, s := range slots {
		if c.Equipment.Get(s) == nil {
			return s, true
		}
	}
	return slots[0], true
}

// Unequip returns the item in slot to the inventory.
func (c *Character) Unequip(slot item.Slot) Result {
	it := c.Equipment.Get(slot)
	if it == nil {
		return failure("%s is empty", slot)
	}
	// The bag only accepts items no container holds, so vacate the slot
	// first and put the item back if the bag refuses it.
	c.Equipment.Clear(slot)
	if !c.Inventory.Add(it) {
		c.Equipment.Put(slot, it)
		return failure("inventory full")
	}
	c.Recalculate()
	return success("unequipped %s", it.Name)
}

// EnhanceCost is the price of raising an item from level to level+1.
func EnhanceCost(level int) (gold, stones int) {
	return (level + 1) * 1000, level + 1
}

// ForgeCost is the price of raising a slot from level to level+1.
func ForgeCost(level int) (bonePowder, ingots int) {
	return level + 1, level + 1
}

// Enhance raises the enhancement of an owned item by one. Payment is the
// caller's responsibility; see EnhanceWithPayment.
func (c *Character) Enhance(id uuid.UUID) Result {
	it := c.Arena.Get(id)
	if it == nil || c.Arena.Locate(id).Place == item.Nowhere {
		return failure("item not found")
	}
	if !it.IsEquipment() {
		return failure("%s cannot be enhanced", it.Name)
	}
	if !it.Enhance() {
		return failure("%s is already +%d", it.Name, item.MaxEnhancement)
	}
	c.Recalculate()
	return success("%s enhanced to +%d", it.Name, it.EnhancementLevel())
}

// EnhanceWithPayment charges gold and upgrade stones, then enhances.
func (c *Character) EnhanceWithPayment(id uuid.UUID) Result {
	it := c.Arena.Get(id)
	if it == nil || !it.IsEquipment() {
		return failure("item not found")
	}
	level := it.EnhancementLevel()
	if level >= item.MaxEnhancement {
		return failure("%s is already +%d", it.Name, item.MaxEnhancement)
	}
	gold, stones := EnhanceCost(level)
	if c.Gold < gold {
		return failure("need %d gold", gold)
	}
	if c.Inventory.CountByKey(upgradeStoneKey) < stones {
		return failure("need %d upgrade stones", stones)
	}
	res := c.Enhance(id)
	if !res.OK {
		return res
	}
	c.Gold -= gold
	c.Inventory.Consume(upgradeStoneKey, stones)
	return res
}

// Forge raises the forging level of slot, paying bone powder and ingots.
func (c *Character) Forge(slot item.Slot) Result {
	if _, err := item.ParseSlot(string(slot)); err != nil {
		return failure("unknown slot %q", slot)
	}
	level := c.Equipment.Forging(slot)
	if level >= item.MaxForging {
		return failure("%s is fully forged", slot)
	}
	powder, ingots := ForgeCost(level)
	if c.Ingots < ingots {
		return failure("need %d ingots", ingots)
	}
	if !c.Inventory.Consume(bonePowderKey, powder) {
		return failure("need %d bone powder", powder)
	}
	c.Ingots -= ingots
	c.Equipment.SetForging(slot, level+1)
	c.Recalculate()
	return success("%s forged to level %d", slot, level+1)
}
