package player

import (
	"errors"
	"strings"
	"time"

	"github.com/kasuganosora/miridle/server/game/item"
	"github.com/kasuganosora/miridle/server/game/skill"
)

// PotionCooldown is the shared delay between automatic potions.
const PotionCooldown = time.Second

// UseItem drinks a potion or reads a skill tome from the inventory.
func (c *Character) UseItem(invIndex int) Result {
	it := c.Inventory.Slot(invIndex)
	if it == nil {
		return failure("slot %d is empty", invIndex)
	}
	switch it.Category {
	case item.Consumable:
		return c.drink(it)
	case item.SkillTome:
		return c.study(it)
	}
	return failure("%s cannot be used", it.Name)
}

func (c *Character) drink(it *item.Item) Result {
	var used []string
	var full []string
	if heal, ok := it.Stats["hp"]; ok {
		if c.HP < c.stats.MaxHP {
			c.HP = min(c.stats.MaxHP, c.HP+heal)
			used = append(used, "hp")
		} else {
			full = append(full, "hp")
		}
	}
	if mana, ok := it.Stats["mp"]; ok {
		if c.MP < c.stats.MaxMP {
			c.MP = min(c.stats.MaxMP, c.MP+mana)
			used = append(used, "mp")
		} else {
			full = append(full, "mp")
		}
	}
	if len(used) == 0 {
		if len(full) == 0 {
			return failure("%s has no effect", it.Name)
		}
		return failure("no need: %s full", strings.Join(full, " and "))
	}
	name := it.Name
	c.Inventory.Remove(it.ID, 1)
	return success("used %s", name)
}

func (c *Character) study(it *item.Item) Result {
	t, err := c.catalog.Template(it.Key)
	if err != nil || t.Teaches == "" {
		return failure("unknown skill tome %s", it.Name)
	}
	err = c.Skills.Learn(t.Teaches, string(c.Profession), c.Level)
	switch {
	case errors.Is(err, skill.ErrWrongProfession):
		return failure("wrong profession for %s", it.Name)
	case errors.Is(err, skill.ErrLevelTooLow):
		return failure("requires level %d", c.Skills.Def(t.Teaches).Level)
	case errors.Is(err, skill.ErrAlreadyKnown):
		return failure("already learned")
	case err != nil:
		return failure("unknown skill tome %s", it.Name)
	}
	c.Inventory.Remove(it.ID, 1)
	if c.Skills.ActiveKey() == "" {
		c.Skills.SetActive(t.Teaches)
	}
	return success("learned %s", c.Skills.Def(t.Teaches).Name)
}

// findPotion prefers the configured potion, then any consumable that
// restores stat.
func (c *Character) findPotion(preferred, stat string) int {
	if preferred != "" {
		if i, _ := c.Inventory.FindByKey(preferred); i >= 0 {
			return i
		}
	}
	for _, e := range c.Inventory.Items() {
		if e.Item.Category == item.Consumable && e.Item.Stats[stat] > 0 {
			return e.Index
		}
	}
	return -1
}

// AutoPotion drinks at most one potion when HP or MP is under its
// threshold. HP is checked first. It returns the key of the potion used.
func (c *Character) AutoPotion(now time.Time) (string, bool) {
	s := c.Settings
	if !s.AutoPotion || now.Sub(c.lastPotion) < PotionCooldown {
		return "", false
	}
	try := func(cur, maxV, threshold int, preferred, stat string) (string, bool) {
		if maxV <= 0 || cur*100 >= threshold*maxV {
			return "", false
		}
		idx := c.findPotion(preferred, stat)
		if idx < 0 {
			return "", false
		}
		key := c.Inventory.Slot(idx).Key
		if !c.UseItem(idx).OK {
			return "", false
		}
		return key, true
	}
	key, ok := try(c.HP, c.stats.MaxHP, s.HPThreshold, s.HPPotion, "hp")
	if !ok {
		key, ok = try(c.MP, c.stats.MaxMP, s.MPThreshold, s.MPPotion, "mp")
	}
	if ok {
		c.lastPotion = now
	}
	return key, ok
}

// RegenMP restores 1% of max MP, at least 1, and returns the amount.
func (c *Character) RegenMP() int {
	if c.MP >= c.stats.MaxMP {
		return 0
	}
	n := min(max(1, c.stats.MaxMP/100), c.stats.MaxMP-c.MP)
	c.MP += n
	return n
}
