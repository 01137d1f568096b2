package quest

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed quests.yaml
var defaultQuests []byte

// LoadDefs parses a quest table. Every quest needs a key and at least one
// objective with a positive count.
func LoadDefs(data []byte) ([]*QuestDef, error) {
	var f struct {
		Quests []*QuestDef `yaml:"quests"`
	}
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("quest: parse: %w", err)
	}
	seen := make(map[string]bool, len(f.Quests))
	for _, d := range f.Quests {
		if d.Key == "" || seen[d.Key] {
			return nil, fmt.Errorf("quest: missing or duplicate key %q", d.Key)
		}
		seen[d.Key] = true
		if len(d.Objectives) == 0 {
			return nil, fmt.Errorf("quest %s: no objectives", d.Key)
		}
		for _, o := range d.Objectives {
			if o.Monster == "" || o.Count <= 0 {
				return nil, fmt.Errorf("quest %s: bad objective %+v", d.Key, o)
			}
		}
	}
	return f.Quests, nil
}

// DefaultDefs returns the built-in quest table.
func DefaultDefs() []*QuestDef {
	defs, err := LoadDefs(defaultQuests)
	if err != nil {
		panic(err)
	}
	return defs
}
