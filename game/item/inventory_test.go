package item

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestInventory(maxWeight int) (*Arena, *Inventory) {
	a := NewArena()
	return a, NewInventory(a, maxWeight)
}

func totalCount(inv *Inventory) int {
	n := 0
	for _, e := range inv.Items() {
		n += e.Item.Count
	}
	return n
}

func TestInventory_AddMergesStacks(t *testing.T) {
	c := newTestCatalog(t)
	a, inv := newTestInventory(100)

	require.True(t, inv.Add(mustCreate(t, c, "upgrade_stone", 3)))
	second := mustCreate(t, c, "upgrade_stone", 4)
	require.True(t, inv.Add(second))

	assert.Equal(t, 0, second.Count, "merged item is consumed")
	assert.Len(t, inv.Items(), 1)
	assert.Equal(t, 7, inv.Slot(0).Count)
	assert.Equal(t, 1, inv.CurrentWeight(), "stack weighs once")
	assert.Equal(t, 1, a.Len())
}

func TestInventory_DifferentQualityDoesNotMerge(t *testing.T) {
	c := newTestCatalog(t)
	_, inv := newTestInventory(100)

	p1 := mustCreate(t, c, "small_hp_potion", 1)
	p2 := mustCreate(t, c, "small_hp_potion", 1)
	p2.Quality = Fine
	require.True(t, inv.Add(p1))
	require.True(t, inv.Add(p2))
	assert.Len(t, inv.Items(), 2)
}

func TestInventory_WeightInvariant(t *testing.T) {
	c := newTestCatalog(t)
	_, inv := newTestInventory(12)

	require.True(t, inv.Add(mustCreate(t, c, "wooden_sword", 1)))
	require.True(t, inv.Add(mustCreate(t, c, "dagger", 1)))
	assert.Equal(t, 10, inv.CurrentWeight())

	heavy := mustCreate(t, c, "ebony_sword", 1)
	before := *heavy
	assert.False(t, inv.Add(heavy))
	assert.Equal(t, before, *heavy, "failed add leaves the item untouched")
	assert.Equal(t, 10, inv.CurrentWeight())
	assert.Len(t, inv.Items(), 2)
	assert.LessOrEqual(t, inv.CurrentWeight(), inv.MaxWeight())
}

func TestInventory_MergeAllowedAtWeightLimit(t *testing.T) {
	c := newTestCatalog(t)
	_, inv := newTestInventory(6)

	require.True(t, inv.Add(mustCreate(t, c, "wooden_sword", 1)))
	require.True(t, inv.Add(mustCreate(t, c, "upgrade_stone", 1)))
	assert.Equal(t, 6, inv.CurrentWeight())

	more := mustCreate(t, c, "upgrade_stone", 5)
	require.True(t, inv.Add(more))
	_, stack := inv.FindByKey("upgrade_stone")
	assert.Equal(t, 6, stack.Count)

	potion := mustCreate(t, c, "small_hp_potion", 1)
	assert.False(t, inv.Add(potion), "new slot would exceed the weight limit")
}

func TestInventory_PartialMergeLeavesRemainder(t *testing.T) {
	c := newTestCatalog(t)
	_, inv := newTestInventory(1)

	first := mustCreate(t, c, "medium_hp_potion", 1)
	first.Weight = 1
	require.True(t, inv.Add(first))
	first.Count = 97

	more := mustCreate(t, c, "medium_hp_potion", 5)
	more.Weight = 1
	require.True(t, inv.Add(more))
	assert.Equal(t, 99, first.Count)
	assert.Equal(t, 3, more.Count, "caller keeps what did not fit")
	assert.False(t, inv.CanAdd(mustCreate(t, c, "medium_hp_potion", 1)))
}

func TestInventory_FullPageRejects(t *testing.T) {
	c := newTestCatalog(t)
	_, inv := newTestInventory(1 << 20)
	for i := 0; i < PageSize; i++ {
		require.True(t, inv.Add(mustCreate(t, c, "tome_fireball", 1)))
	}
	assert.False(t, inv.Add(mustCreate(t, c, "tome_fireball", 1)))

	require.True(t, inv.UnlockPage())
	assert.True(t, inv.Add(mustCreate(t, c, "tome_fireball", 1)))
	assert.Equal(t, PageSize, inv.Items()[PageSize].Index)
}

func TestInventory_UnlockPageCapped(t *testing.T) {
	_, inv := newTestInventory(10)
	for i := 1; i < MaxPages; i++ {
		require.True(t, inv.UnlockPage())
	}
	assert.False(t, inv.UnlockPage())
	assert.Equal(t, MaxPages, inv.UnlockedPages())
	assert.Equal(t, Capacity, inv.Size())
}

func TestInventory_RemoveAndConsume(t *testing.T) {
	c := newTestCatalog(t)
	a, inv := newTestInventory(100)

	stones := mustCreate(t, c, "upgrade_stone", 10)
	require.True(t, inv.Add(stones))

	assert.True(t, inv.Remove(stones.ID, 3))
	assert.Equal(t, 7, stones.Count)
	assert.False(t, inv.Remove(stones.ID, 8))
	assert.False(t, inv.Remove(uuid.New(), 1))

	assert.False(t, inv.Consume("upgrade_stone", 8))
	assert.True(t, inv.Consume("upgrade_stone", 7))
	assert.Equal(t, 0, inv.CountByKey("upgrade_stone"))
	assert.Equal(t, 0, a.Len())
}

func TestInventory_MoveSwapsWithinUnlockedRange(t *testing.T) {
	c := newTestCatalog(t)
	a, inv := newTestInventory(100)
	sword := mustCreate(t, c, "wooden_sword", 1)
	require.True(t, inv.Add(sword))

	require.True(t, inv.Move(0, 5))
	assert.Nil(t, inv.Slot(0))
	assert.Same(t, sword, inv.Slot(5))
	assert.Equal(t, Location{Place: InInventory, Index: 5}, a.Locate(sword.ID))

	assert.False(t, inv.Move(5, PageSize), "second page is locked")
	assert.False(t, inv.Move(-1, 0))
}

func TestInventory_SortIsIdempotentAndCountPreserving(t *testing.T) {
	c := newTestCatalog(t)
	_, inv := newTestInventory(1000)

	ring := mustCreate(t, c, "power_ring", 1)
	ring.Quality = Epic
	require.True(t, inv.Place(10, mustCreate(t, c, "small_hp_potion", 60)))
	require.True(t, inv.Place(3, mustCreate(t, c, "small_hp_potion", 50)))
	require.True(t, inv.Place(7, mustCreate(t, c, "wooden_sword", 1)))
	require.True(t, inv.Place(0, mustCreate(t, c, "upgrade_stone", 5)))
	require.True(t, inv.Place(20, ring))
	before := totalCount(inv)

	inv.Sort()
	keys := func() []string {
		var out []string
		for _, e := range inv.Items() {
			out = append(out, e.Item.Key)
		}
		return out
	}
	assert.Equal(t, []string{"wooden_sword", "power_ring", "small_hp_potion", "small_hp_potion", "upgrade_stone"}, keys())
	assert.Equal(t, 99, inv.Slot(2).Count)
	assert.Equal(t, 11, inv.Slot(3).Count)
	assert.Equal(t, before, totalCount(inv))
	assert.Nil(t, inv.Slot(5), "packed to the front")

	snapshot := inv.Items()
	weight := inv.CurrentWeight()
	inv.Sort()
	assert.Equal(t, snapshot, inv.Items())
	assert.Equal(t, weight, inv.CurrentWeight())
}

func TestInventory_SortOrdersQualityDescending(t *testing.T) {
	c := newTestCatalog(t)
	_, inv := newTestInventory(1000)
	for _, q := range []Quality{Common, Divine, Fine} {
		it := mustCreate(t, c, "bronze_ring", 1)
		it.Quality = q
		require.True(t, inv.Add(it))
	}
	inv.Sort()
	assert.Equal(t, Divine, inv.Slot(0).Quality)
	assert.Equal(t, Fine, inv.Slot(1).Quality)
	assert.Equal(t, Common, inv.Slot(2).Quality)
}

func TestArena_ItemLivesInOneContainer(t *testing.T) {
	c := newTestCatalog(t)
	a, inv := newTestInventory(100)
	eq := NewEquipment(a)

	sword := mustCreate(t, c, "wooden_sword", 1)
	require.True(t, inv.Add(sword))
	assert.False(t, eq.Put(SlotWeapon, sword), "still held by the inventory")

	taken := inv.Take(0)
	require.Same(t, sword, taken)
	assert.Equal(t, Nowhere, a.Locate(sword.ID).Place)
	assert.False(t, eq.Put(SlotArmor, sword), "wrong slot for a weapon")
	require.True(t, eq.Put(SlotWeapon, sword))
	assert.Equal(t, Location{Place: InEquipment, Slot: SlotWeapon}, a.Locate(sword.ID))
	assert.False(t, inv.Add(sword), "equipped items cannot be stowed")

	out := eq.Clear(SlotWeapon)
	require.Same(t, sword, out)
	require.True(t, inv.Add(sword))
	assert.Equal(t, 0, eq.Filled())
	assert.Equal(t, 1, a.Len())
}

func TestEquipment_ForgingClamped(t *testing.T) {
	eq := NewEquipment(NewArena())
	eq.SetForging(SlotBoots, 99)
	assert.Equal(t, MaxForging, eq.Forging(SlotBoots))
	eq.SetForging(SlotBoots, -3)
	assert.Equal(t, 0, eq.Forging(SlotBoots))
}
