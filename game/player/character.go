package player

import (
	"fmt"
	"time"

	"github.com/kasuganosora/miridle/server/game/item"
	"github.com/kasuganosora/miridle/server/game/skill"
)

// Profession is the character class.
type Profession string

const (
	Warrior Profession = "warrior"
	Mage    Profession = "mage"
	Taoist  Profession = "taoist"
)

// ParseProfession validates a class name.
func ParseProfession(s string) (Profession, error) {
	switch p := Profession(s); p {
	case Warrior, Mage, Taoist:
		return p, nil
	}
	return "", fmt.Errorf("player: unknown profession %q", s)
}

type classBase struct {
	hp, mp                int
	attack, magic, taoism int
	defense, magicDef     int
}

var classBases = map[Profession]classBase{
	Warrior: {hp: 150, mp: 50, attack: 15, defense: 10, magicDef: 5},
	Mage:    {hp: 80, mp: 150, attack: 5, magic: 15, defense: 5, magicDef: 8},
	Taoist:  {hp: 110, mp: 100, attack: 10, taoism: 12, defense: 5, magicDef: 5},
}

// Settings are the player-controlled automation switches.
type Settings struct {
	AutoCombat       bool           `json:"auto_combat"`
	AutoPotion       bool           `json:"auto_potion"`
	HPThreshold      int            `json:"hp_threshold"`
	MPThreshold      int            `json:"mp_threshold"`
	HPPotion         string         `json:"hp_potion"`
	MPPotion         string         `json:"mp_potion"`
	AutoRecycle      bool           `json:"auto_recycle"`
	RecycleQualities []item.Quality `json:"recycle_qualities,omitempty"`
}

// DefaultSettings returns the settings of a new character.
func DefaultSettings() Settings {
	return Settings{
		HPThreshold: 70,
		MPThreshold: 30,
		HPPotion:    "medium_hp_potion",
		MPPotion:    "medium_mp_potion",
	}
}

// Character is the persistent player state. It is not safe for concurrent
// use; the owning room serialises access.
type Character struct {
	ID         int64
	Name       string
	Profession Profession
	Level      int
	XP         int
	HP         int
	MP         int
	Gold       int
	Ingots     int
	X, Y       int
	MapKey     string

	Arena       *item.Arena
	Inventory   *item.Inventory
	Equipment   *item.Equipment
	Cultivation Cultivation
	Skills      *skill.Book
	Settings    Settings

	catalog    *item.Catalog
	stats      Stats
	lastPotion time.Time
}

// New creates a level 1 character with full HP and MP. Warriors start
// with the default warrior skill selected.
func New(name string, prof Profession, catalog *item.Catalog) *Character {
	arena := item.NewArena()
	c := &Character{
		Name:       name,
		Profession: prof,
		Level:      1,
		Arena:      arena,
		Inventory:  item.NewInventory(arena, 0),
		Equipment:  item.NewEquipment(arena),
		Skills:     skill.NewBook(catalog.Resources()),
		Settings:   DefaultSettings(),
		catalog:    catalog,
	}
	if prof == Warrior {
		c.Skills.Grant(skill.Known{Key: skill.DefaultWarriorSkill})
		c.Skills.SetActive(skill.DefaultWarriorSkill)
	}
	c.Recalculate()
	c.HP, c.MP = c.stats.MaxHP, c.stats.MaxMP
	return c
}

// Catalog returns the item factory the character was built with.
func (c *Character) Catalog() *item.Catalog { return c.catalog }

// Stats returns the derived stats of the last recompute.
func (c *Character) Stats() Stats { return c.stats }

// Alive reports whether HP is above zero.
func (c *Character) Alive() bool { return c.HP > 0 }

// ToggleLock flips the recycle lock on an inventory item.
func (c *Character) ToggleLock(invIndex int) Result {
	it := c.Inventory.Slot(invIndex)
	if it == nil {
		return failure("slot %d is empty", invIndex)
	}
	it.Locked = !it.Locked
	if it.Locked {
		return success("%s locked", it.Name)
	}
	return success("%s unlocked", it.Name)
}

// Restore puts HP and MP back to their maxima.
func (c *Character) Restore() {
	c.HP, c.MP = c.stats.MaxHP, c.stats.MaxMP
}

// TakeDamage lowers HP, never below zero, and returns the damage applied.
func (c *Character) TakeDamage(n int) int {
	n = min(n, c.HP)
	c.HP -= n
	return n
}
