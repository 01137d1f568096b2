package item

import "github.com/google/uuid"

// Place identifies the container an item currently sits in.
type Place int

const (
	Nowhere Place = iota
	InInventory
	InEquipment
)

// Location is where an arena item lives: an inventory index or an
// equipment slot.
type Location struct {
	Place Place
	Index int
	Slot  Slot
}

// Arena owns every item of one character. Containers hold ids and move
// them through the arena, so an item is never in two places at once.
type Arena struct {
	items map[uuid.UUID]*Item
	where map[uuid.UUID]Location
}

func NewArena() *Arena {
	return &Arena{
		items: make(map[uuid.UUID]*Item),
		where: make(map[uuid.UUID]Location),
	}
}

// Insert registers it, assigning an id when it has none. Already
// registered items keep their location.
func (a *Arena) Insert(it *Item) uuid.UUID {
	if it.ID == uuid.Nil {
		it.ID = uuid.New()
	}
	if _, ok := a.items[it.ID]; !ok {
		a.items[it.ID] = it
		a.where[it.ID] = Location{Place: Nowhere}
	}
	return it.ID
}

// Get returns the item with id, or nil.
func (a *Arena) Get(id uuid.UUID) *Item { return a.items[id] }

// Locate reports where id currently lives. Unknown ids are Nowhere.
func (a *Arena) Locate(id uuid.UUID) Location { return a.where[id] }

// Delete drops id from the arena.
func (a *Arena) Delete(id uuid.UUID) {
	delete(a.items, id)
	delete(a.where, id)
}

// Len is the number of registered items.
func (a *Arena) Len() int { return len(a.items) }

// free reports whether it may be placed into a container.
func (a *Arena) free(it *Item) bool {
	if it.ID == uuid.Nil {
		return true
	}
	if _, ok := a.items[it.ID]; !ok {
		return true
	}
	return a.where[it.ID].Place == Nowhere
}

func (a *Arena) bind(it *Item, loc Location) {
	a.Insert(it)
	a.where[it.ID] = loc
}

func (a *Arena) release(id uuid.UUID) {
	if _, ok := a.items[id]; ok {
		a.where[id] = Location{Place: Nowhere}
	}
}
