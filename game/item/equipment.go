package item

import "github.com/google/uuid"

// MaxForging is the highest forging level of a slot.
const MaxForging = 15

// Equipment holds the eleven equipped items and the per-slot forging
// levels. Forging belongs to the slot, not the item in it.
type Equipment struct {
	arena   *Arena
	slots   map[Slot]uuid.UUID
	forging map[Slot]int
}

func NewEquipment(arena *Arena) *Equipment {
	return &Equipment{
		arena:   arena,
		slots:   make(map[Slot]uuid.UUID, len(AllSlots)),
		forging: make(map[Slot]int, len(AllSlots)),
	}
}

// Get returns the item in slot, or nil.
func (e *Equipment) Get(slot Slot) *Item {
	id, ok := e.slots[slot]
	if !ok {
		return nil
	}
	return e.arena.Get(id)
}

// Put places it into an empty slot. The item must not be held by any
// container and its category must allow the slot.
func (e *Equipment) Put(slot Slot, it *Item) bool {
	if _, taken := e.slots[slot]; taken || !e.arena.free(it) || !fits(it.Category, slot) {
		return false
	}
	e.arena.bind(it, Location{Place: InEquipment, Slot: slot})
	e.slots[slot] = it.ID
	return true
}

// Clear empties slot and returns the item that was there. The item stays
// in the arena with no location until placed elsewhere.
func (e *Equipment) Clear(slot Slot) *Item {
	id, ok := e.slots[slot]
	if !ok {
		return nil
	}
	delete(e.slots, slot)
	e.arena.release(id)
	return e.arena.Get(id)
}

// Filled counts occupied slots.
func (e *Equipment) Filled() int { return len(e.slots) }

// Forging returns the forging level of slot.
func (e *Equipment) Forging(slot Slot) int { return e.forging[slot] }

// SetForging stores a forging level, clamped to [0, MaxForging].
func (e *Equipment) SetForging(slot Slot, level int) {
	e.forging[slot] = min(max(level, 0), MaxForging)
}

func fits(c Category, slot Slot) bool {
	for _, s := range c.Slots() {
		if s == slot {
			return true
		}
	}
	return false
}
