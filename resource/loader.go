package resource

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

//go:embed data/*.yaml
var embedded embed.FS

// ErrUnknownKey is returned when a table entry references a key that no
// other table defines.
var ErrUnknownKey = errors.New("resource: unknown key")

// StatRange is an inclusive [min, max] roll range, written in YAML as a
// two-element sequence.
type StatRange struct {
	Min int
	Max int
}

// UnmarshalYAML accepts either [min, max] or a single scalar.
func (r *StatRange) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.ScalarNode:
		var v int
		if err := n.Decode(&v); err != nil {
			return err
		}
		r.Min, r.Max = v, v
		return nil
	case yaml.SequenceNode:
		var pair []int
		if err := n.Decode(&pair); err != nil {
			return err
		}
		if len(pair) != 2 {
			return fmt.Errorf("resource: stat range at line %d needs 2 values, got %d", n.Line, len(pair))
		}
		r.Min, r.Max = pair[0], pair[1]
		return nil
	}
	return fmt.Errorf("resource: stat range at line %d has unexpected kind", n.Line)
}

// ItemTemplate is one row of the static item table. Category is taken from
// the YAML group the row was listed under.
type ItemTemplate struct {
	Key      string               `yaml:"key"`
	Name     string               `yaml:"name"`
	Category string               `yaml:"-"`
	Level    int                  `yaml:"level"`
	Weight   int                  `yaml:"weight"`
	Price    int                  `yaml:"price"`
	Quality  string               `yaml:"quality"`
	Stats    map[string]StatRange `yaml:"stats"`
	Effects  map[string]int       `yaml:"effects"`
	Teaches  string               `yaml:"teaches"`
}

// IsGear reports whether the template describes equip-able gear.
func (t *ItemTemplate) IsGear() bool {
	switch t.Category {
	case "consumable", "material", "skill_tome":
		return false
	}
	return true
}

type MonsterTemplate struct {
	Key     string   `yaml:"key"`
	Name    string   `yaml:"name"`
	Level   int      `yaml:"level"`
	HP      int      `yaml:"hp"`
	Attack  int      `yaml:"attack"`
	Defense int      `yaml:"defense"`
	XP      int      `yaml:"xp"`
	Kind    string   `yaml:"kind"`
	Boss    bool     `yaml:"boss"`
	Drops   []string `yaml:"drops"`
}

type MapTemplate struct {
	Key      string   `yaml:"key"`
	Name     string   `yaml:"name"`
	MinLevel int      `yaml:"min_level"`
	MaxLevel int      `yaml:"max_level"`
	Width    int      `yaml:"width"`
	Height   int      `yaml:"height"`
	Monsters []string `yaml:"monsters"`
}

// SkillTemplate describes a learnable skill. Cooldown is in seconds, range in
// grid cells.
type SkillTemplate struct {
	Key        string   `yaml:"key"`
	Name       string   `yaml:"name"`
	Profession string   `yaml:"profession"`
	Level      int      `yaml:"level"`
	Multiplier float64  `yaml:"multiplier"`
	MPCost     int      `yaml:"mp_cost"`
	Range      int      `yaml:"range"`
	Cooldown   float64  `yaml:"cooldown"`
	Type       string   `yaml:"type"`
	Aliases    []string `yaml:"aliases"`
}

type itemFile struct {
	Weapons     []*ItemTemplate `yaml:"weapons"`
	Armors      []*ItemTemplate `yaml:"armors"`
	Helmets     []*ItemTemplate `yaml:"helmets"`
	Necklaces   []*ItemTemplate `yaml:"necklaces"`
	Bracelets   []*ItemTemplate `yaml:"bracelets"`
	Rings       []*ItemTemplate `yaml:"rings"`
	Belts       []*ItemTemplate `yaml:"belts"`
	Boots       []*ItemTemplate `yaml:"boots"`
	Medals      []*ItemTemplate `yaml:"medals"`
	Consumables []*ItemTemplate `yaml:"consumables"`
	Materials   []*ItemTemplate `yaml:"materials"`
	Tomes       []*ItemTemplate `yaml:"tomes"`
}

// ResourceLoader holds the static game tables. Tables keep file order so
// random selection over them is reproducible under a seeded source.
type ResourceLoader struct {
	// DataPath, when set, is checked first for each table file; missing
	// files fall back to the embedded copy.
	DataPath string

	Items    []*ItemTemplate
	Monsters []*MonsterTemplate
	Maps     []*MapTemplate
	Skills   []*SkillTemplate

	items    map[string]*ItemTemplate
	monsters map[string]*MonsterTemplate
	maps     map[string]*MapTemplate
	skills   map[string]*SkillTemplate
}

// NewLoader creates a ResourceLoader reading overrides from dataPath.
// An empty dataPath uses only the embedded tables.
func NewLoader(dataPath string) *ResourceLoader {
	return &ResourceLoader{DataPath: dataPath}
}

// Default loads the embedded tables.
func Default() (*ResourceLoader, error) {
	rl := NewLoader("")
	if err := rl.Load(); err != nil {
		return nil, err
	}
	return rl, nil
}

// Load reads every table and cross-checks references between them.
func (rl *ResourceLoader) Load() error {
	loaders := []func() error{
		rl.loadItems,
		rl.loadSkills,
		rl.loadMonsters,
		rl.loadMaps,
	}
	for _, fn := range loaders {
		if err := fn(); err != nil {
			return err
		}
	}
	return rl.validate()
}

func (rl *ResourceLoader) readFile(name string) ([]byte, error) {
	if rl.DataPath != "" {
		data, err := os.ReadFile(filepath.Join(rl.DataPath, name))
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("resource: read %s: %w", name, err)
		}
	}
	data, err := embedded.ReadFile("data/" + name)
	if err != nil {
		return nil, fmt.Errorf("resource: read embedded %s: %w", name, err)
	}
	return data, nil
}

func loadYAML[T any](rl *ResourceLoader, name string, out *T) error {
	data, err := rl.readFile(name)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("resource: parse %s: %w", name, err)
	}
	return nil
}

func (rl *ResourceLoader) loadItems() error {
	var f itemFile
	if err := loadYAML(rl, "items.yaml", &f); err != nil {
		return err
	}
	groups := []struct {
		category string
		rows     []*ItemTemplate
	}{
		{"weapon", f.Weapons},
		{"armor", f.Armors},
		{"helmet", f.Helmets},
		{"necklace", f.Necklaces},
		{"bracelet", f.Bracelets},
		{"ring", f.Rings},
		{"belt", f.Belts},
		{"boots", f.Boots},
		{"medal", f.Medals},
		{"consumable", f.Consumables},
		{"material", f.Materials},
		{"skill_tome", f.Tomes},
	}
	rl.Items = rl.Items[:0]
	rl.items = make(map[string]*ItemTemplate)
	for _, g := range groups {
		for _, t := range g.rows {
			t.Category = g.category
			if t.Weight == 0 {
				t.Weight = 1
			}
			if _, dup := rl.items[t.Key]; dup {
				return fmt.Errorf("resource: duplicate item %q", t.Key)
			}
			rl.items[t.Key] = t
			rl.Items = append(rl.Items, t)
		}
	}
	return nil
}

func (rl *ResourceLoader) loadSkills() error {
	var f struct {
		Skills []*SkillTemplate `yaml:"skills"`
	}
	if err := loadYAML(rl, "skills.yaml", &f); err != nil {
		return err
	}
	rl.Skills = f.Skills
	rl.skills = make(map[string]*SkillTemplate, len(f.Skills))
	for _, s := range f.Skills {
		if s.Range <= 0 {
			s.Range = 1
		}
		if s.Type == "" {
			s.Type = "active"
		}
		rl.skills[s.Key] = s
	}
	return nil
}

func (rl *ResourceLoader) loadMonsters() error {
	var f struct {
		Monsters []*MonsterTemplate `yaml:"monsters"`
	}
	if err := loadYAML(rl, "monsters.yaml", &f); err != nil {
		return err
	}
	rl.Monsters = f.Monsters
	rl.monsters = make(map[string]*MonsterTemplate, len(f.Monsters))
	for _, m := range f.Monsters {
		rl.monsters[m.Key] = m
	}
	return nil
}

func (rl *ResourceLoader) loadMaps() error {
	var f struct {
		Maps []*MapTemplate `yaml:"maps"`
	}
	if err := loadYAML(rl, "maps.yaml", &f); err != nil {
		return err
	}
	rl.Maps = f.Maps
	rl.maps = make(map[string]*MapTemplate, len(f.Maps))
	for _, m := range f.Maps {
		rl.maps[m.Key] = m
	}
	return nil
}

func (rl *ResourceLoader) validate() error {
	for _, t := range rl.Items {
		if t.Teaches != "" && rl.skills[t.Teaches] == nil {
			return fmt.Errorf("item %s teaches %q: %w", t.Key, t.Teaches, ErrUnknownKey)
		}
	}
	for _, m := range rl.Monsters {
		for _, d := range m.Drops {
			if t := rl.items[d]; t == nil || !t.IsGear() {
				return fmt.Errorf("monster %s drops %q: %w", m.Key, d, ErrUnknownKey)
			}
		}
	}
	for _, mp := range rl.Maps {
		if mp.Width <= 0 || mp.Height <= 0 {
			return fmt.Errorf("resource: map %s has no area", mp.Key)
		}
		for _, k := range mp.Monsters {
			if rl.monsters[k] == nil {
				return fmt.Errorf("map %s spawns %q: %w", mp.Key, k, ErrUnknownKey)
			}
		}
	}
	return nil
}

// Item returns the template for key, or nil.
func (rl *ResourceLoader) Item(key string) *ItemTemplate { return rl.items[key] }

// Monster returns the template for key, or nil.
func (rl *ResourceLoader) Monster(key string) *MonsterTemplate { return rl.monsters[key] }

// Map returns the template for key, or nil.
func (rl *ResourceLoader) Map(key string) *MapTemplate { return rl.maps[key] }

// Skill resolves a skill by key, display name or legacy alias.
func (rl *ResourceLoader) Skill(name string) *SkillTemplate {
	if s := rl.skills[name]; s != nil {
		return s
	}
	for _, s := range rl.Skills {
		if s.Name == name {
			return s
		}
		for _, a := range s.Aliases {
			if a == name {
				return s
			}
		}
	}
	return nil
}

// Gear returns the equip-able templates in table order.
func (rl *ResourceLoader) Gear() []*ItemTemplate {
	out := make([]*ItemTemplate, 0, len(rl.Items))
	for _, t := range rl.Items {
		if t.IsGear() {
			out = append(out, t)
		}
	}
	return out
}

// SkillsFor lists the skills a profession can learn at or below level.
func (rl *ResourceLoader) SkillsFor(profession string, level int) []*SkillTemplate {
	var out []*SkillTemplate
	for _, s := range rl.Skills {
		if s.Profession == profession && s.Level <= level {
			out = append(out, s)
		}
	}
	return out
}
