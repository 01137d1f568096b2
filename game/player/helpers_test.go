package player

import (
	"testing"

	"github.com/kasuganosora/miridle/server/game/item"
	"github.com/kasuganosora/miridle/server/resource"
	"github.com/stretchr/testify/require"
)

func newTestCatalog(t *testing.T) *item.Catalog {
	t.Helper()
	res, err := resource.Default()
	require.NoError(t, err)
	return item.NewCatalog(res)
}

func newTestCharacter(t *testing.T, prof Profession, level int) *Character {
	t.Helper()
	c := New("tester", prof, newTestCatalog(t))
	c.Level = level
	c.Recalculate()
	c.Restore()
	return c
}

// give adds n units of key to the inventory and returns the slot index.
func give(t *testing.T, c *Character, key string, n int) int {
	t.Helper()
	it, err := c.Catalog().Create(key, n)
	require.NoError(t, err)
	require.True(t, c.Inventory.Add(it))
	return c.Inventory.IndexOf(it.ID)
}

// gear adds a piece of gear with exactly the given stats.
func gear(t *testing.T, c *Character, key string, stats map[string]int) *item.Item {
	t.Helper()
	it, err := c.Catalog().Blank(key, item.Common)
	require.NoError(t, err)
	for k, v := range stats {
		it.AddStat(k, v)
	}
	require.True(t, c.Inventory.Add(it))
	return it
}

func equipNow(t *testing.T, c *Character, it *item.Item, slot item.Slot) {
	t.Helper()
	res := c.Equip(c.Inventory.IndexOf(it.ID), slot)
	require.True(t, res.OK, res.Reason)
}

var fullSet = []struct {
	key  string
	slot item.Slot
}{
	{"wooden_sword", item.SlotWeapon},
	{"cloth_robe", item.SlotArmor},
	{"bronze_helmet", item.SlotHelmet},
	{"gold_necklace", item.SlotNecklace},
	{"iron_bracelet", item.SlotBraceletL},
	{"iron_bracelet", item.SlotBraceletR},
	{"bronze_ring", item.SlotRingL},
	{"bronze_ring", item.SlotRingR},
	{"cloth_belt", item.SlotBelt},
	{"cloth_shoes", item.SlotBoots},
	{"bronze_medal", item.SlotMedal},
}
