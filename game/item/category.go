package item

import "fmt"

// Category is the closed set of item kinds. Every gear category maps to one
// or two equipment slots; the rest are never equipped.
type Category int

const (
	Weapon Category = iota
	Armor
	Helmet
	Necklace
	Bracelet
	Ring
	Belt
	Boots
	Medal
	Consumable
	Material
	SkillTome
)

var categoryKeys = [...]string{
	"weapon", "armor", "helmet", "necklace", "bracelet", "ring",
	"belt", "boots", "medal", "consumable", "material", "skill_tome",
}

func (c Category) String() string {
	if c < Weapon || c > SkillTome {
		return fmt.Sprintf("category(%d)", int(c))
	}
	return categoryKeys[c]
}

// ParseCategory maps a stable key to its category.
func ParseCategory(s string) (Category, error) {
	for i, k := range categoryKeys {
		if k == s {
			return Category(i), nil
		}
	}
	return 0, fmt.Errorf("item: unknown category %q", s)
}

func (c Category) MarshalText() ([]byte, error) {
	if c < Weapon || c > SkillTome {
		return nil, fmt.Errorf("item: invalid category %d", int(c))
	}
	return []byte(categoryKeys[c]), nil
}

func (c *Category) UnmarshalText(b []byte) error {
	v, err := ParseCategory(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// IsGear reports whether items of this category can be equipped.
func (c Category) IsGear() bool {
	switch c {
	case Weapon, Armor, Helmet, Necklace, Bracelet, Ring, Belt, Boots, Medal:
		return true
	case Consumable, Material, SkillTome:
		return false
	}
	return false
}

// Slots returns the equipment slots the category may occupy, left side first.
func (c Category) Slots() []Slot {
	switch c {
	case Weapon:
		return []Slot{SlotWeapon}
	case Armor:
		return []Slot{SlotArmor}
	case Helmet:
		return []Slot{SlotHelmet}
	case Necklace:
		return []Slot{SlotNecklace}
	case Bracelet:
		return []Slot{SlotBraceletL, SlotBraceletR}
	case Ring:
		return []Slot{SlotRingL, SlotRingR}
	case Belt:
		return []Slot{SlotBelt}
	case Boots:
		return []Slot{SlotBoots}
	case Medal:
		return []Slot{SlotMedal}
	case Consumable, Material, SkillTome:
		return nil
	}
	return nil
}

// Ceiling identifies which character weight limit applies when equipping.
type Ceiling int

const (
	CeilingNone Ceiling = iota
	CeilingHand
	CeilingWear
)

// Ceiling returns the weight ceiling checked when equipping this category.
func (c Category) Ceiling() Ceiling {
	switch c {
	case Weapon:
		return CeilingHand
	case Armor, Helmet, Necklace, Bracelet, Ring, Belt, Boots, Medal:
		return CeilingWear
	case Consumable, Material, SkillTome:
		return CeilingNone
	}
	return CeilingNone
}

// sortPriority orders categories when the inventory is sorted.
func (c Category) sortPriority() int {
	switch c {
	case Weapon:
		return 1
	case Armor:
		return 2
	case Helmet:
		return 3
	case Necklace:
		return 4
	case Bracelet:
		return 5
	case Ring:
		return 6
	case Belt:
		return 7
	case Boots:
		return 8
	case Medal:
		return 9
	case Consumable:
		return 10
	case Material:
		return 11
	}
	return 99
}

// Slot names one of the eleven equipment positions.
type Slot string

const (
	SlotWeapon    Slot = "weapon"
	SlotArmor     Slot = "armor"
	SlotHelmet    Slot = "helmet"
	SlotNecklace  Slot = "necklace"
	SlotBraceletL Slot = "bracelet_l"
	SlotBraceletR Slot = "bracelet_r"
	SlotRingL     Slot = "ring_l"
	SlotRingR     Slot = "ring_r"
	SlotBelt      Slot = "belt"
	SlotBoots     Slot = "boots"
	SlotMedal     Slot = "medal"
)

// AllSlots lists the equipment slots in display order.
var AllSlots = []Slot{
	SlotWeapon, SlotArmor, SlotHelmet, SlotNecklace,
	SlotBraceletL, SlotBraceletR, SlotRingL, SlotRingR,
	SlotBelt, SlotBoots, SlotMedal,
}

// ParseSlot validates a slot name.
func ParseSlot(s string) (Slot, error) {
	for _, sl := range AllSlots {
		if string(sl) == s {
			return sl, nil
		}
	}
	return "", fmt.Errorf("item: unknown slot %q", s)
}
