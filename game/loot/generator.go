// Package loot manufactures items: random equipment drops, the per-kill
// drop table and treasure markers.
package loot

import (
	"math/rand"
	"sort"
	"time"

	"github.com/kasuganosora/miridle/server/game/item"
	"github.com/kasuganosora/miridle/server/resource"
	"go.uber.org/zap"
)

// Cumulative thresholds for the quality roll, rarest first.
var qualityThresholds = []struct {
	below   float64
	quality item.Quality
}{
	{0.005, item.Divine},
	{0.02, item.Epic},
	{0.05, item.Legendary},
	{0.10, item.Superior},
	{0.25, item.Fine},
	{0.50, item.Uncommon},
}

// Config configures a Generator.
type Config struct {
	Catalog *item.Catalog
	RNG     *rand.Rand // injectable for testing
	Logger  *zap.Logger
}

// Generator rolls equipment drops.
type Generator struct {
	catalog *item.Catalog
	rng     *rand.Rand
	logger  *zap.Logger
}

func NewGenerator(cfg Config) *Generator {
	if cfg.RNG == nil {
		cfg.RNG = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Generator{catalog: cfg.Catalog, rng: cfg.RNG, logger: cfg.Logger}
}

// RNG exposes the generator's random source so callers can share it.
func (g *Generator) RNG() *rand.Rand { return g.rng }

// Catalog returns the item factory.
func (g *Generator) Catalog() *item.Catalog { return g.catalog }

// Request selects the candidate pool of a drop. Zero bounds are unset.
// Quality, when non-nil, skips the quality roll.
type Request struct {
	MinLevel    int
	MaxLevel    int
	TargetLevel int
	Allowed     []string
	Quality     *item.Quality
}

func (r Request) bounded() bool { return r.MinLevel > 0 || r.MaxLevel > 0 }

// RollQuality draws a tier: Common 50%, Uncommon 25%, Fine 15%, Superior
// 5%, Legendary 3%, Epic 1.5%, Divine 0.5%.
func RollQuality(rng *rand.Rand) item.Quality {
	roll := rng.Float64()
	for _, t := range qualityThresholds {
		if roll < t.below {
			return t.quality
		}
	}
	return item.Common
}

// RollStat scales a template range by the quality multiplier and then
// draws uniformly inside the scaled range. The minimum is floored at 1
// before scaling.
func RollStat(rng *rand.Rand, r resource.StatRange, q item.Quality) int {
	m := int(q.Multiplier())
	lo := max(1, r.Min)
	hi := max(lo, r.Max)
	lo, hi = lo*m, hi*m
	return lo + rng.Intn(hi-lo+1)
}

func (g *Generator) candidates(req Request) []*resource.ItemTemplate {
	res := g.catalog.Resources()
	var out []*resource.ItemTemplate
	if len(req.Allowed) > 0 {
		for _, key := range req.Allowed {
			if t := res.Item(key); t != nil && t.IsGear() {
				out = append(out, t)
			}
		}
		return out
	}

	gear := res.Gear()
	if req.bounded() {
		for _, t := range gear {
			if req.MinLevel > 0 && t.Level < req.MinLevel {
				continue
			}
			if req.MaxLevel > 0 && t.Level > req.MaxLevel {
				continue
			}
			out = append(out, t)
		}
		return out
	}
	if req.TargetLevel > 0 {
		for _, t := range gear {
			if t.Level <= req.TargetLevel+5 {
				out = append(out, t)
			}
		}
	}
	return out
}

// GenerateDrop picks a candidate, rolls its quality and stats. It reports
// false when no candidate exists.
func (g *Generator) GenerateDrop(req Request) (*item.Item, bool) {
	pool := g.candidates(req)
	if len(pool) == 0 {
		g.logger.Debug("no drop candidates",
			zap.Int("min_level", req.MinLevel),
			zap.Int("max_level", req.MaxLevel),
			zap.Int("target_level", req.TargetLevel))
		return nil, false
	}
	t := pool[g.rng.Intn(len(pool))]

	q := RollQuality(g.rng)
	if req.Quality != nil {
		q = *req.Quality
	}
	it, err := g.catalog.Blank(t.Key, q)
	if err != nil {
		g.logger.Warn("drop template unusable", zap.String("key", t.Key), zap.Error(err))
		return nil, false
	}
	for _, k := range sortedStatKeys(t.Stats) {
		it.AddStat(k, RollStat(g.rng, t.Stats[k], q))
	}
	return it, true
}

// Reroll draws fresh stats for an existing piece of gear at its current
// quality, keeping enhancement on top.
func (g *Generator) Reroll(it *item.Item) bool {
	t, err := g.catalog.Template(it.Key)
	if err != nil || !it.IsEquipment() {
		return false
	}
	enh := it.EnhancementLevel()
	it.Stats = nil
	for _, k := range sortedStatKeys(t.Stats) {
		it.AddStat(k, RollStat(g.rng, t.Stats[k], it.Quality)+enh)
	}
	return true
}

func sortedStatKeys(m map[string]resource.StatRange) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
