package save

import (
	"fmt"

	"github.com/kasuganosora/miridle/server/game/item"
	"github.com/kasuganosora/miridle/server/game/loot"
	"github.com/kasuganosora/miridle/server/game/player"
	"github.com/kasuganosora/miridle/server/game/skill"
	"go.uber.org/zap"
)

// Migrator upgrades snapshots one schema version at a time. Each step runs
// only for snapshots below its version, so migrating twice is a no-op.
type Migrator struct {
	gen      *loot.Generator
	startMap string
	logger   *zap.Logger
	steps    []func(*Snapshot)
}

// NewMigrator creates a Migrator. gen re-rolls gear for the v4 step;
// startMap fills in snapshots that lack a map.
func NewMigrator(gen *loot.Generator, startMap string, logger *zap.Logger) *Migrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Migrator{gen: gen, startMap: startMap, logger: logger}
	m.steps = []func(*Snapshot){
		m.backfillDefaults,
		m.canonicalSkills,
		m.stackableMaterials,
		m.rerollGear,
	}
	return m
}

// Catalog is the item factory the migrator validates against.
func (m *Migrator) Catalog() *item.Catalog { return m.gen.Catalog() }

// Migrate brings s up to CurrentVersion and returns the version it started
// from.
func (m *Migrator) Migrate(s *Snapshot) (int, error) {
	from := s.Version
	if from > CurrentVersion {
		return from, fmt.Errorf("%w: version %d is newer than %d", ErrCorrupt, from, CurrentVersion)
	}
	for s.Version < CurrentVersion {
		m.steps[max(s.Version, 0)](s)
		s.Version = max(s.Version, 0) + 1
	}
	if from != s.Version {
		m.logger.Info("save migrated",
			zap.String("name", s.Name),
			zap.Int("from", from),
			zap.Int("to", s.Version))
	}
	return from, nil
}

// each visits every item in the snapshot: inventory in slot order, then
// equipment in slot order.
func (s *Snapshot) each(fn func(*item.Item)) {
	for _, si := range s.Inventory {
		if si.Item != nil {
			fn(si.Item)
		}
	}
	for _, slot := range item.AllSlots {
		if it := s.Equipment[slot]; it != nil {
			fn(it)
		}
	}
}

// v1: fields that older saves did not carry.
func (m *Migrator) backfillDefaults(s *Snapshot) {
	if s.Level < 1 {
		s.Level = 1
	}
	if s.MapKey == "" {
		s.MapKey = m.startMap
	}
	if s.UnlockedPages < 1 {
		s.UnlockedPages = 1
	}
	if s.Equipment == nil {
		s.Equipment = make(map[item.Slot]*item.Item)
	}
	def := player.DefaultSettings()
	if s.Settings.HPThreshold <= 0 {
		s.Settings.HPThreshold = def.HPThreshold
	}
	if s.Settings.MPThreshold <= 0 {
		s.Settings.MPThreshold = def.MPThreshold
	}
	if s.Settings.HPPotion == "" {
		s.Settings.HPPotion = def.HPPotion
	}
	if s.Settings.MPPotion == "" {
		s.Settings.MPPotion = def.MPPotion
	}
	if s.Cultivation.Path == "" {
		s.Cultivation.Path = player.PathNone
	}
	s.each(func(it *item.Item) {
		if it.Count < 1 {
			it.Count = 1
		}
		if it.MaxStack < 1 {
			it.MaxStack = 1
		}
		if it.Gear != nil && it.Gear.MaxDurability <= 0 {
			it.Gear.MaxDurability = item.DefaultDurability
			it.Gear.Durability = item.DefaultDurability
		}
	})
}

// v2: skills are stored by key; display names and legacy aliases are
// resolved, unknown skills dropped, and warriors get the default skill.
func (m *Migrator) canonicalSkills(s *Snapshot) {
	res := m.Catalog().Resources()
	seen := make(map[string]bool)
	kept := s.Skills[:0]
	for _, k := range s.Skills {
		def := res.Skill(k.Key)
		if def == nil || seen[def.Key] {
			continue
		}
		seen[def.Key] = true
		k.Key = def.Key
		kept = append(kept, k)
	}
	s.Skills = kept
	if s.Profession == string(player.Warrior) && !seen[skill.DefaultWarriorSkill] {
		s.Skills = append(s.Skills, skill.Known{Key: skill.DefaultWarriorSkill})
		seen[skill.DefaultWarriorSkill] = true
	}
	if def := res.Skill(s.ActiveSkill); def != nil && seen[def.Key] {
		s.ActiveSkill = def.Key
	} else if len(s.Skills) > 0 {
		s.ActiveSkill = s.Skills[0].Key
	} else {
		s.ActiveSkill = ""
	}
}

// v3: materials and consumables became stackable.
func (m *Migrator) stackableMaterials(s *Snapshot) {
	s.each(func(it *item.Item) {
		if it.Category != item.Material && it.Category != item.Consumable {
			return
		}
		blank, err := m.Catalog().Blank(it.Key, it.Quality)
		if err != nil {
			return
		}
		it.Stackable, it.MaxStack = blank.Stackable, blank.MaxStack
		it.Count = min(it.Count, it.MaxStack)
	})
}

// v4: gear stats are rolled after the quality multiplier is applied to the
// range. Older gear was rolled first and scaled after, so it is re-rolled.
func (m *Migrator) rerollGear(s *Snapshot) {
	n := 0
	s.each(func(it *item.Item) {
		if it.IsEquipment() && m.gen.Reroll(it) {
			n++
		}
	})
	if n > 0 {
		m.logger.Debug("gear re-rolled", zap.String("name", s.Name), zap.Int("items", n))
	}
}
