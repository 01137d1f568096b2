package item

import (
	"sort"

	"github.com/google/uuid"
)

const (
	PageSize = 150
	MaxPages = 4
	// Capacity is the total slot count across all pages.
	Capacity = PageSize * MaxPages
)

// Inventory is a fixed array of item ids split into pages. Only the first
// UnlockedPages pages can be reached by Add and Move.
type Inventory struct {
	arena         *Arena
	slots         [Capacity]uuid.UUID
	unlockedPages int
	maxWeight     int
}

// NewInventory creates an inventory with one unlocked page.
func NewInventory(arena *Arena, maxWeight int) *Inventory {
	return &Inventory{arena: arena, unlockedPages: 1, maxWeight: maxWeight}
}

// Entry is an occupied slot.
type Entry struct {
	Index int   `json:"index"`
	Item  *Item `json:"item"`
}

func (inv *Inventory) UnlockedPages() int { return inv.unlockedPages }

// Size is the number of reachable slots.
func (inv *Inventory) Size() int { return inv.unlockedPages * PageSize }

func (inv *Inventory) MaxWeight() int { return inv.maxWeight }

// SetMaxWeight updates the bag capacity, e.g. after a level-up.
func (inv *Inventory) SetMaxWeight(w int) { inv.maxWeight = w }

// Slot returns the item at index i, or nil.
func (inv *Inventory) Slot(i int) *Item {
	if i < 0 || i >= Capacity || inv.slots[i] == uuid.Nil {
		return nil
	}
	return inv.arena.Get(inv.slots[i])
}

// CurrentWeight sums the slot weight of every occupied slot.
func (inv *Inventory) CurrentWeight() int {
	w := 0
	for i := range inv.slots {
		if it := inv.Slot(i); it != nil {
			w += it.SlotWeight()
		}
	}
	return w
}

type merge struct {
	index int
	n     int
}

type plan struct {
	merges   []merge
	residual int
	empties  []int
}

// plan works out where it would go without mutating anything.
func (inv *Inventory) plan(it *Item) (plan, bool) {
	var p plan
	if it.Count <= 0 || !inv.arena.free(it) {
		return p, false
	}
	left := it.Count
	if it.Stackable {
		for i := 0; i < inv.Size() && left > 0; i++ {
			cur := inv.Slot(i)
			if cur == nil || cur.ID == it.ID || !cur.CanStackWith(it) || cur.Count >= cur.MaxStack {
				continue
			}
			n := min(cur.MaxStack-cur.Count, left)
			p.merges = append(p.merges, merge{index: i, n: n})
			left -= n
		}
	}
	p.residual = left
	if left == 0 {
		return p, true
	}

	need := 1
	if it.Stackable && it.MaxStack > 0 {
		need = (left + it.MaxStack - 1) / it.MaxStack
	}
	added := 0
	if it.Stackable {
		added = it.Weight * need
	} else {
		added = it.Weight * it.Count
	}
	for i := 0; i < inv.Size() && len(p.empties) < need; i++ {
		if inv.slots[i] == uuid.Nil {
			p.empties = append(p.empties, i)
		}
	}
	if len(p.empties) < need || inv.CurrentWeight()+added > inv.maxWeight {
		// Only a partial merge is possible.
		p.empties = nil
		return p, len(p.merges) > 0
	}
	p.residual = 0
	return p, true
}

// CanAdd reports whether Add would place all of it.
func (inv *Inventory) CanAdd(it *Item) bool {
	p, ok := inv.plan(it)
	return ok && p.residual == 0
}

// Add stores it, first merging into compatible stacks and then taking the
// first free slots. It returns false, with it unchanged, when nothing could
// be placed. When only part of a stack fits, it returns true and it.Count
// holds the remainder the caller still owns. A fully merged item is
// consumed and never enters the arena.
func (inv *Inventory) Add(it *Item) bool {
	p, ok := inv.plan(it)
	if !ok {
		return false
	}
	for _, m := range p.merges {
		inv.Slot(m.index).Count += m.n
		it.Count -= m.n
	}
	if it.Count == 0 {
		if it.ID != uuid.Nil {
			inv.arena.Delete(it.ID)
		}
		return true
	}
	if len(p.empties) == 0 {
		return true
	}
	for _, idx := range p.empties[1:] {
		part := it.Split(min(it.MaxStack, it.Count-1))
		if part == nil {
			break
		}
		inv.put(idx, part)
	}
	inv.put(p.empties[0], it)
	return true
}

func (inv *Inventory) put(i int, it *Item) {
	inv.arena.bind(it, Location{Place: InInventory, Index: i})
	inv.slots[i] = it.ID
}

// Place puts it into the empty slot i. Used when restoring saved state and
// when rolling back an equip; weight is not checked.
func (inv *Inventory) Place(i int, it *Item) bool {
	if i < 0 || i >= inv.Size() || inv.slots[i] != uuid.Nil || !inv.arena.free(it) {
		return false
	}
	inv.put(i, it)
	return true
}

// Take empties slot i and returns its item, which stays in the arena with
// no location.
func (inv *Inventory) Take(i int) *Item {
	it := inv.Slot(i)
	if it == nil {
		return nil
	}
	inv.slots[i] = uuid.Nil
	inv.arena.release(it.ID)
	return it
}

// IndexOf returns the slot holding id, or -1.
func (inv *Inventory) IndexOf(id uuid.UUID) int {
	loc := inv.arena.Locate(id)
	if loc.Place != InInventory {
		return -1
	}
	return loc.Index
}

// Remove takes count units of the item with id. Removing the whole stack
// destroys the item.
func (inv *Inventory) Remove(id uuid.UUID, count int) bool {
	i := inv.IndexOf(id)
	if i < 0 || count <= 0 {
		return false
	}
	it := inv.Slot(i)
	if count > it.Count {
		return false
	}
	if count < it.Count {
		it.Count -= count
		return true
	}
	inv.slots[i] = uuid.Nil
	inv.arena.Delete(id)
	return true
}

// Move swaps two slots within the unlocked range.
func (inv *Inventory) Move(from, to int) bool {
	if from < 0 || to < 0 || from >= inv.Size() || to >= inv.Size() {
		return false
	}
	if from == to {
		return true
	}
	inv.slots[from], inv.slots[to] = inv.slots[to], inv.slots[from]
	inv.rebind(from)
	inv.rebind(to)
	return true
}

func (inv *Inventory) rebind(i int) {
	if it := inv.Slot(i); it != nil {
		inv.arena.bind(it, Location{Place: InInventory, Index: i})
	}
}

// Sort orders items by category, then quality descending, then key, merges
// neighbouring stacks and packs everything to the front.
func (inv *Inventory) Sort() {
	var items []*Item
	for i := range inv.slots {
		if it := inv.Slot(i); it != nil {
			items = append(items, it)
		}
		inv.slots[i] = uuid.Nil
	}
	sort.SliceStable(items, func(a, b int) bool {
		x, y := items[a], items[b]
		if px, py := x.Category.sortPriority(), y.Category.sortPriority(); px != py {
			return px < py
		}
		if x.Quality != y.Quality {
			return x.Quality > y.Quality
		}
		return x.Key < y.Key
	})

	packed := items[:0]
	for _, it := range items {
		if n := len(packed); n > 0 {
			prev := packed[n-1]
			if prev.CanStackWith(it) && prev.Count < prev.MaxStack {
				moved := min(prev.MaxStack-prev.Count, it.Count)
				prev.Count += moved
				it.Count -= moved
				if it.Count == 0 {
					inv.arena.Delete(it.ID)
					continue
				}
			}
		}
		packed = append(packed, it)
	}
	for i, it := range packed {
		inv.put(i, it)
	}
}

// UnlockPage opens the next page. Paying for it is the caller's job.
func (inv *Inventory) UnlockPage() bool {
	if inv.unlockedPages >= MaxPages {
		return false
	}
	inv.unlockedPages++
	return true
}

// SetUnlockedPages restores a saved page count, clamped to [1, MaxPages].
func (inv *Inventory) SetUnlockedPages(n int) {
	inv.unlockedPages = min(max(n, 1), MaxPages)
}

// Items lists occupied slots in index order.
func (inv *Inventory) Items() []Entry {
	var out []Entry
	for i := range inv.slots {
		if it := inv.Slot(i); it != nil {
			out = append(out, Entry{Index: i, Item: it})
		}
	}
	return out
}

// FreeSlots counts empty reachable slots.
func (inv *Inventory) FreeSlots() int {
	n := 0
	for i := 0; i < inv.Size(); i++ {
		if inv.slots[i] == uuid.Nil {
			n++
		}
	}
	return n
}

// FindByKey returns the first slot holding key, or -1.
func (inv *Inventory) FindByKey(key string) (int, *Item) {
	for i := range inv.slots {
		if it := inv.Slot(i); it != nil && it.Key == key {
			return i, it
		}
	}
	return -1, nil
}

// CountByKey totals units of key across all slots.
func (inv *Inventory) CountByKey(key string) int {
	n := 0
	for i := range inv.slots {
		if it := inv.Slot(i); it != nil && it.Key == key {
			n += it.Count
		}
	}
	return n
}

// Consume removes n units of key, or nothing when fewer are held.
func (inv *Inventory) Consume(key string, n int) bool {
	if n <= 0 {
		return n == 0
	}
	if inv.CountByKey(key) < n {
		return false
	}
	for i := range inv.slots {
		it := inv.Slot(i)
		if it == nil || it.Key != key {
			continue
		}
		take := min(n, it.Count)
		inv.Remove(it.ID, take)
		n -= take
		if n == 0 {
			break
		}
	}
	return true
}
