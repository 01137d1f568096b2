package item

import (
	"errors"
	"fmt"
	"maps"

	"github.com/google/uuid"
	"github.com/kasuganosora/miridle/server/resource"
)

// ErrUnknownItem is returned when a key is missing from the item table.
var ErrUnknownItem = errors.New("item: unknown item")

const (
	// MaxEnhancement is the highest enhancement level gear can reach.
	MaxEnhancement = 15
	// DefaultDurability is the starting and maximum durability of new gear.
	DefaultDurability = 100

	consumableStack = 99
	materialStack   = 99999
)

// Gear holds the fields only equip-able items carry.
type Gear struct {
	MinLevel      int `json:"min_level"`
	Enhancement   int `json:"enhancement"`
	Durability    int `json:"durability"`
	MaxDurability int `json:"max_durability"`
}

// Item is one instance owned by a character. Key indexes the static item
// table; Name is display text only.
type Item struct {
	ID        uuid.UUID      `json:"id"`
	Key       string         `json:"key"`
	Name      string         `json:"name"`
	Category  Category       `json:"category"`
	Quality   Quality        `json:"quality"`
	Stats     map[string]int `json:"stats,omitempty"`
	Count     int            `json:"count"`
	Stackable bool           `json:"stackable"`
	MaxStack  int            `json:"max_stack"`
	Weight    int            `json:"weight"`
	Price     int            `json:"price"`
	Locked    bool           `json:"locked"`
	Gear      *Gear          `json:"gear,omitempty"`
}

// AddStat sets (overwrites) a stat entry.
func (it *Item) AddStat(name string, value int) {
	if it.Stats == nil {
		it.Stats = make(map[string]int)
	}
	it.Stats[name] = value
}

// Stat returns the value of a stat, 0 when absent.
func (it *Item) Stat(name string) int { return it.Stats[name] }

// IsEquipment reports whether the item can be equipped.
func (it *Item) IsEquipment() bool { return it.Gear != nil }

// EnhancementLevel is always 0 for non-gear.
func (it *Item) EnhancementLevel() int {
	if it.Gear == nil {
		return 0
	}
	return it.Gear.Enhancement
}

// MinLevel is the character level needed to equip the item.
func (it *Item) MinLevel() int {
	if it.Gear == nil {
		return 0
	}
	return it.Gear.MinLevel
}

// Enhance raises the enhancement level by one and adds 1 to every stat the
// item carries. It does nothing and returns false at MaxEnhancement or on
// non-gear.
func (it *Item) Enhance() bool {
	if it.Gear == nil || it.Gear.Enhancement >= MaxEnhancement {
		return false
	}
	it.Gear.Enhancement++
	for k, v := range it.Stats {
		it.Stats[k] = v + 1
	}
	return true
}

// SlotWeight is the weight the item adds to the inventory slot it occupies.
// Stacks weigh one unit regardless of size.
func (it *Item) SlotWeight() int {
	if it.Stackable {
		return it.Weight
	}
	return it.Weight * it.Count
}

// CanStackWith reports whether other may be merged into it.
func (it *Item) CanStackWith(other *Item) bool {
	return it.Stackable && other.Stackable && it.Key == other.Key && it.Quality == other.Quality
}

// Split detaches n units into a new item with no identity. It returns nil
// when n is out of range.
func (it *Item) Split(n int) *Item {
	if n <= 0 || n >= it.Count {
		return nil
	}
	cp := it.Clone()
	cp.Count = n
	it.Count -= n
	return cp
}

// Clone deep-copies the item without its ID.
func (it *Item) Clone() *Item {
	cp := *it
	cp.ID = uuid.Nil
	cp.Stats = maps.Clone(it.Stats)
	if it.Gear != nil {
		g := *it.Gear
		cp.Gear = &g
	}
	return &cp
}

func (it *Item) String() string {
	if it.Count > 1 {
		return fmt.Sprintf("%s x%d", it.Name, it.Count)
	}
	if e := it.EnhancementLevel(); e > 0 {
		return fmt.Sprintf("%s +%d", it.Name, e)
	}
	return it.Name
}

// Catalog creates items from the static table.
type Catalog struct {
	res *resource.ResourceLoader
}

// NewCatalog creates a Catalog over the loaded tables.
func NewCatalog(res *resource.ResourceLoader) *Catalog {
	return &Catalog{res: res}
}

// Template returns the table row for key.
func (c *Catalog) Template(key string) (*resource.ItemTemplate, error) {
	t := c.res.Item(key)
	if t == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownItem, key)
	}
	return t, nil
}

// Resources exposes the underlying tables.
func (c *Catalog) Resources() *resource.ResourceLoader { return c.res }

// Blank builds an item of the given quality with no stats rolled. Gear gets
// default durability; consumable effects become stats.
func (c *Catalog) Blank(key string, q Quality) (*Item, error) {
	t, err := c.Template(key)
	if err != nil {
		return nil, err
	}
	cat, err := ParseCategory(t.Category)
	if err != nil {
		return nil, err
	}
	it := &Item{
		Key:      t.Key,
		Name:     t.Name,
		Category: cat,
		Quality:  q,
		Count:    1,
		MaxStack: 1,
		Weight:   t.Weight,
		Price:    t.Price,
	}
	switch cat {
	case Consumable:
		it.Stackable, it.MaxStack = true, consumableStack
		for k, v := range t.Effects {
			it.AddStat(k, v)
		}
	case Material:
		it.Stackable, it.MaxStack = true, materialStack
		if t.Quality != "" {
			if it.Quality, err = ParseQuality(t.Quality); err != nil {
				return nil, err
			}
		}
	case SkillTome:
	default:
		it.Gear = &Gear{
			MinLevel:      t.Level,
			Durability:    DefaultDurability,
			MaxDurability: DefaultDurability,
		}
	}
	return it, nil
}

// Create builds count units of a non-gear item, or one piece of gear with
// every stat at its floored minimum.
func (c *Catalog) Create(key string, count int) (*Item, error) {
	it, err := c.Blank(key, Common)
	if err != nil {
		return nil, err
	}
	if it.IsEquipment() {
		t, _ := c.Template(key)
		for k, r := range t.Stats {
			it.AddStat(k, max(1, r.Min))
		}
		return it, nil
	}
	if count < 1 {
		count = 1
	}
	if it.Stackable {
		count = min(count, it.MaxStack)
	} else {
		count = 1
	}
	it.Count = count
	return it, nil
}
