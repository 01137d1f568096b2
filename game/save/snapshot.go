package save

import (
	"fmt"
	"time"

	"github.com/kasuganosora/miridle/server/game/item"
	"github.com/kasuganosora/miridle/server/game/player"
	"github.com/kasuganosora/miridle/server/game/skill"
)

// CurrentVersion is the schema version written by Capture.
const CurrentVersion = 4

// SlotItem is an inventory item together with the slot it sits in.
type SlotItem struct {
	Index int        `json:"index"`
	Item  *item.Item `json:"item"`
}

// Snapshot is the persisted form of a character.
type Snapshot struct {
	Version    int    `json:"version"`
	ID         int64  `json:"id,omitempty"`
	Name       string `json:"name"`
	Profession string `json:"profession"`
	Level      int    `json:"level"`
	XP         int    `json:"xp"`
	HP         int    `json:"hp"`
	MP         int    `json:"mp"`
	Gold       int    `json:"gold"`
	Ingots     int    `json:"ingots"`
	X          int    `json:"x"`
	Y          int    `json:"y"`
	MapKey     string `json:"map"`

	UnlockedPages int                      `json:"unlocked_pages"`
	Inventory     []SlotItem               `json:"inventory"`
	Equipment     map[item.Slot]*item.Item `json:"equipment"`
	Forging       map[item.Slot]int        `json:"forging,omitempty"`

	Cultivation player.Cultivation `json:"cultivation"`
	Skills      []skill.Known      `json:"skills"`
	ActiveSkill string             `json:"active_skill"`
	Settings    player.Settings    `json:"settings"`

	// Pity is the treasure pity counter of the room the character was in.
	Pity    int       `json:"pity"`
	SavedAt time.Time `json:"saved_at"`
}

// Capture copies the character into a new snapshot at CurrentVersion.
func Capture(c *player.Character, pity int) *Snapshot {
	s := &Snapshot{
		Version:       CurrentVersion,
		ID:            c.ID,
		Name:          c.Name,
		Profession:    string(c.Profession),
		Level:         c.Level,
		XP:            c.XP,
		HP:            c.HP,
		MP:            c.MP,
		Gold:          c.Gold,
		Ingots:        c.Ingots,
		X:             c.X,
		Y:             c.Y,
		MapKey:        c.MapKey,
		UnlockedPages: c.Inventory.UnlockedPages(),
		Equipment:     make(map[item.Slot]*item.Item),
		Forging:       make(map[item.Slot]int),
		Cultivation:   c.Cultivation,
		Skills:        c.Skills.Known(),
		ActiveSkill:   c.Skills.ActiveKey(),
		Settings:      c.Settings,
		Pity:          pity,
		SavedAt:       time.Now(),
	}
	for _, e := range c.Inventory.Items() {
		s.Inventory = append(s.Inventory, SlotItem{Index: e.Index, Item: e.Item.Clone()})
		s.Inventory[len(s.Inventory)-1].Item.ID = e.Item.ID
	}
	for _, slot := range item.AllSlots {
		if it := c.Equipment.Get(slot); it != nil {
			cp := it.Clone()
			cp.ID = it.ID
			s.Equipment[slot] = cp
		}
		if f := c.Equipment.Forging(slot); f > 0 {
			s.Forging[slot] = f
		}
	}
	return s
}

// Restore builds a character from the snapshot. Items whose key is no
// longer in the item table, or that cannot be placed where the snapshot
// says, are dropped and their keys returned.
func (s *Snapshot) Restore(catalog *item.Catalog) (*player.Character, []string, error) {
	prof, err := player.ParseProfession(s.Profession)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	c := player.New(s.Name, prof, catalog)
	c.ID = s.ID
	c.Level = min(max(s.Level, 1), player.MaxLevel)
	c.XP = max(s.XP, 0)
	c.Gold, c.Ingots = s.Gold, s.Ingots
	c.X, c.Y = s.X, s.Y
	c.MapKey = s.MapKey
	c.Cultivation = s.Cultivation
	c.Settings = s.Settings
	c.Inventory.SetUnlockedPages(s.UnlockedPages)

	var dropped []string
	known := func(it *item.Item) bool {
		if it == nil {
			return false
		}
		if _, err := catalog.Template(it.Key); err != nil {
			dropped = append(dropped, it.Key)
			return false
		}
		return true
	}
	for _, si := range s.Inventory {
		if !known(si.Item) {
			continue
		}
		if !c.Inventory.Place(si.Index, si.Item) {
			dropped = append(dropped, si.Item.Key)
		}
	}
	for _, slot := range item.AllSlots {
		if it := s.Equipment[slot]; known(it) && !c.Equipment.Put(slot, it) {
			dropped = append(dropped, it.Key)
		}
		c.Equipment.SetForging(slot, s.Forging[slot])
	}

	for _, k := range s.Skills {
		c.Skills.Grant(k)
	}
	c.Skills.SetActive(s.ActiveSkill)

	c.Recalculate()
	if s.HP <= 0 {
		c.Restore()
	} else {
		c.HP = min(s.HP, c.Stats().MaxHP)
		c.MP = min(max(s.MP, 0), c.Stats().MaxMP)
	}
	return c, dropped, nil
}
