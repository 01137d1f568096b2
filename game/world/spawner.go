package world

import (
	"math/rand"

	"github.com/kasuganosora/miridle/server/game/ai"
	"github.com/kasuganosora/miridle/server/resource"
	"go.uber.org/zap"
)

const (
	// MinMonsters is the live count below which respawns start.
	MinMonsters = 5
	// RespawnChance is the per-frame chance of a respawn while under
	// MinMonsters.
	RespawnChance = 0.05
	// SpawnAttempts bounds the search for a free cell.
	SpawnAttempts = 100
	// populationPct is the share of map cells populated on load.
	populationPct = 5
)

// InitialPopulation is the number of monsters placed when a map loads.
func InitialPopulation(g Grid) int {
	return max(MinMonsters, g.Cells()*populationPct/100)
}

// Spawner places monsters of a map's template list on free cells.
type Spawner struct {
	res    *resource.ResourceLoader
	rng    *rand.Rand
	logger *zap.Logger
}

// NewSpawner creates a Spawner drawing from rng.
func NewSpawner(res *resource.ResourceLoader, rng *rand.Rand, logger *zap.Logger) *Spawner {
	return &Spawner{res: res, rng: rng, logger: logger}
}

// SpawnOne picks a template from the map's list and a free cell. occupied
// reports cells that already hold the player or a monster.
func (sp *Spawner) SpawnOne(mp *resource.MapTemplate, g Grid, occupied func(ai.Point) bool) (*Monster, bool) {
	if len(mp.Monsters) == 0 {
		return nil, false
	}
	t := sp.res.Monster(mp.Monsters[sp.rng.Intn(len(mp.Monsters))])
	if t == nil {
		sp.logger.Warn("unknown monster on map", zap.String("map", mp.Key))
		return nil, false
	}
	for range SpawnAttempts {
		p := ai.Point{X: sp.rng.Intn(g.Width), Y: sp.rng.Intn(g.Height)}
		if occupied(p) {
			continue
		}
		return NewMonster(t, p.X, p.Y, ai.IdleInterval(sp.rng)), true
	}
	return nil, false
}

// Populate spawns the initial population of a freshly loaded map.
func (sp *Spawner) Populate(mp *resource.MapTemplate, g Grid, occupied func(ai.Point) bool, add func(*Monster)) {
	for range InitialPopulation(g) {
		if m, ok := sp.SpawnOne(mp, g, occupied); ok {
			add(m)
		}
	}
}

// MaybeRespawn spawns at most one monster when fewer than MinMonsters are
// alive, with RespawnChance per call.
func (sp *Spawner) MaybeRespawn(mp *resource.MapTemplate, g Grid, alive int, occupied func(ai.Point) bool) (*Monster, bool) {
	if alive >= MinMonsters || sp.rng.Float64() >= RespawnChance {
		return nil, false
	}
	return sp.SpawnOne(mp, g, occupied)
}
