package loot

import (
	"math/rand"
	"testing"

	"github.com/kasuganosora/miridle/server/game/item"
	"github.com/kasuganosora/miridle/server/game/player"
	"github.com/kasuganosora/miridle/server/resource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGenerator(t *testing.T, seed int64) *Generator {
	t.Helper()
	res, err := resource.Default()
	require.NoError(t, err)
	return NewGenerator(Config{
		Catalog: item.NewCatalog(res),
		RNG:     rand.New(rand.NewSource(seed)),
	})
}

func templateLevel(t *testing.T, g *Generator, it *item.Item) int {
	t.Helper()
	tpl, err := g.Catalog().Template(it.Key)
	require.NoError(t, err)
	return tpl.Level
}

func TestRollStat_ScalesBeforeRolling(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	seen := map[int]bool{}
	for range 2000 {
		v := RollStat(rng, resource.StatRange{Min: 1, Max: 5}, item.Fine)
		assert.GreaterOrEqual(t, v, 3)
		assert.LessOrEqual(t, v, 15)
		seen[v] = true
	}
	// Values between the scaled endpoints appear, not only multiples of 3.
	assert.True(t, seen[4] || seen[5] || seen[7])
}

func TestRollStat_FloorsMinimum(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	for range 100 {
		assert.Equal(t, 1, RollStat(rng, resource.StatRange{Min: 0, Max: 0}, item.Common))
		assert.Equal(t, 7, RollStat(rng, resource.StatRange{Min: 0, Max: 1}, item.Divine))
	}
}

func TestRollQuality_Distribution(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	counts := map[item.Quality]int{}
	const n = 100000
	for range n {
		counts[RollQuality(rng)]++
	}
	assert.InDelta(t, 0.50, float64(counts[item.Common])/n, 0.02)
	assert.InDelta(t, 0.25, float64(counts[item.Uncommon])/n, 0.02)
	assert.InDelta(t, 0.15, float64(counts[item.Fine])/n, 0.02)
	assert.Greater(t, counts[item.Divine], 0)
	assert.Less(t, counts[item.Divine], counts[item.Epic])
}

func TestGenerateDrop_RespectsBounds(t *testing.T) {
	g := newTestGenerator(t, 4)
	for range 200 {
		it, ok := g.GenerateDrop(Request{MinLevel: 20, MaxLevel: 25})
		require.True(t, ok)
		lvl := templateLevel(t, g, it)
		assert.GreaterOrEqual(t, lvl, 20)
		assert.LessOrEqual(t, lvl, 25)
		assert.True(t, it.IsEquipment())
		assert.Equal(t, 1, it.Count)
	}
}

func TestGenerateDrop_StatsWithinScaledRange(t *testing.T) {
	g := newTestGenerator(t, 5)
	for range 200 {
		it, ok := g.GenerateDrop(Request{MinLevel: 1, MaxLevel: 40})
		require.True(t, ok)
		tpl, err := g.Catalog().Template(it.Key)
		require.NoError(t, err)
		m := int(it.Quality.Multiplier())
		require.Len(t, it.Stats, len(tpl.Stats))
		for k, r := range tpl.Stats {
			lo := max(1, r.Min)
			hi := max(lo, r.Max)
			assert.GreaterOrEqual(t, it.Stat(k), lo*m, k)
			assert.LessOrEqual(t, it.Stat(k), hi*m, k)
		}
	}
}

func TestGenerateDrop_AllowedList(t *testing.T) {
	g := newTestGenerator(t, 6)
	for range 50 {
		it, ok := g.GenerateDrop(Request{Allowed: []string{"dagger", "no_such_item", "small_hp_potion"}})
		require.True(t, ok)
		assert.Equal(t, "dagger", it.Key)
	}

	_, ok := g.GenerateDrop(Request{Allowed: []string{"no_such_item"}})
	assert.False(t, ok)
}

func TestGenerateDrop_TargetLevelFallback(t *testing.T) {
	g := newTestGenerator(t, 7)
	for range 100 {
		it, ok := g.GenerateDrop(Request{TargetLevel: 1})
		require.True(t, ok)
		assert.LessOrEqual(t, templateLevel(t, g, it), 6)
	}
}

func TestGenerateDrop_NoCandidates(t *testing.T) {
	g := newTestGenerator(t, 8)
	_, ok := g.GenerateDrop(Request{MinLevel: 90, MaxLevel: 95, TargetLevel: 1})
	assert.False(t, ok, "explicit bounds are never widened")

	_, ok = g.GenerateDrop(Request{})
	assert.False(t, ok)
}

func TestGenerateDrop_ForcedQuality(t *testing.T) {
	g := newTestGenerator(t, 9)
	q := item.Epic
	for range 20 {
		it, ok := g.GenerateDrop(Request{MinLevel: 1, MaxLevel: 10, Quality: &q})
		require.True(t, ok)
		assert.Equal(t, item.Epic, it.Quality)
	}
}

func TestReroll_KeepsEnhancement(t *testing.T) {
	g := newTestGenerator(t, 10)
	it, ok := g.GenerateDrop(Request{Allowed: []string{"dagger"}})
	require.True(t, ok)
	require.True(t, it.Enhance())
	require.True(t, it.Enhance())

	require.True(t, g.Reroll(it))
	m := int(it.Quality.Multiplier())
	assert.GreaterOrEqual(t, it.Stat("attack"), 4*m+2)
	assert.LessOrEqual(t, it.Stat("attack"), 8*m+2)
	assert.Equal(t, 2, it.EnhancementLevel())
}

func TestRollKill_Table(t *testing.T) {
	g := newTestGenerator(t, 11)
	res := g.Catalog().Resources()
	mon := res.Monster("hen")
	mp := res.Map("novice_village")
	require.NotNil(t, mon)
	require.NotNil(t, mp)

	var drops, gear, powder int
	for range 5000 {
		d := g.RollKill(mon, mp)
		if d.Empty() {
			continue
		}
		drops++
		assert.GreaterOrEqual(t, d.Gold, 10)
		assert.LessOrEqual(t, d.Gold, 50)
		if d.Gear != nil {
			gear++
			assert.Contains(t, mon.Drops, d.Gear.Key)
		}
		if d.BonePowder != nil {
			powder++
			assert.Equal(t, "bone_powder", d.BonePowder.Key)
			assert.GreaterOrEqual(t, d.BonePowder.Count, 1)
			assert.LessOrEqual(t, d.BonePowder.Count, 3)
		}
	}
	assert.InDelta(t, 0.8, float64(drops)/5000, 0.03)
	assert.InDelta(t, 0.2, float64(gear)/float64(drops), 0.03)
	assert.InDelta(t, 0.1, float64(powder)/float64(drops), 0.03)
}

func TestRollKill_MapRangeWithoutDropList(t *testing.T) {
	g := newTestGenerator(t, 12)
	mon := &resource.MonsterTemplate{Key: "dummy", Level: 1}
	mp := &resource.MapTemplate{Key: "m", MaxLevel: 5}
	for range 3000 {
		d := g.RollKill(mon, mp)
		if d.Gear != nil {
			assert.LessOrEqual(t, templateLevel(t, g, d.Gear), 5)
		}
	}
}

func TestPity_GuaranteesAtHundred(t *testing.T) {
	rng := rand.New(rand.NewSource(13))
	p := Pity{Count: PityKills - 1}
	assert.True(t, p.OnKill(rng))
	assert.Equal(t, 0, p.Count)
}

func TestPity_CountsUpOrResets(t *testing.T) {
	rng := rand.New(rand.NewSource(14))
	var p Pity
	triggers := 0
	for range 10000 {
		before := p.Count
		if p.OnKill(rng) {
			triggers++
			assert.Equal(t, 0, p.Count)
		} else {
			assert.Equal(t, before+1, p.Count)
		}
		assert.Less(t, p.Count, PityKills)
	}
	assert.Greater(t, triggers, 0)
}

func TestTreasureCost(t *testing.T) {
	assert.Equal(t, Cost{Gold: 1000}, TreasureCost(item.Superior))
	assert.Equal(t, Cost{Gold: 5000}, TreasureCost(item.Legendary))
	assert.Equal(t, Cost{Ingots: 1}, TreasureCost(item.Epic))
	assert.Equal(t, Cost{Ingots: 3}, TreasureCost(item.Divine))
}

func TestRollTreasureQuality_Tiers(t *testing.T) {
	rng := rand.New(rand.NewSource(15))
	counts := map[item.Quality]int{}
	for range 20000 {
		counts[RollTreasureQuality(rng)]++
	}
	assert.Len(t, counts, 4)
	assert.Greater(t, counts[item.Superior], counts[item.Legendary])
	assert.Greater(t, counts[item.Legendary], counts[item.Epic])
	assert.Greater(t, counts[item.Epic], counts[item.Divine])
	assert.Zero(t, counts[item.Common])
}

func TestTreasure_SpawnOnFreeCellOnce(t *testing.T) {
	rng := rand.New(rand.NewSource(16))
	var tr Treasure
	m, ok := tr.Spawn(rng, 2, 1, func(x, y int) bool { return x == 0 })
	require.True(t, ok)
	assert.Equal(t, 1, m.X)
	assert.Equal(t, 0, m.Y)
	assert.True(t, tr.At(1, 0))

	_, ok = tr.Spawn(rng, 2, 1, nil)
	assert.False(t, ok, "one marker per map")
}

func TestTreasure_SpawnGivesUp(t *testing.T) {
	rng := rand.New(rand.NewSource(17))
	var tr Treasure
	_, ok := tr.Spawn(rng, 20, 15, func(x, y int) bool { return true })
	assert.False(t, ok)
	assert.Nil(t, tr.Marker)
}

func newTreasureCharacter(t *testing.T, g *Generator) *player.Character {
	t.Helper()
	c := player.New("opener", player.Warrior, g.Catalog())
	c.Level = 10
	c.Recalculate()
	return c
}

func TestTreasure_AcceptAndCollect(t *testing.T) {
	g := newTestGenerator(t, 18)
	c := newTreasureCharacter(t, g)
	c.Gold = 1500
	mp := g.Catalog().Resources().Map("novice_village")

	tr := Treasure{Marker: &Marker{X: 3, Y: 4, Quality: item.Superior}}
	_, ok := tr.Prompt(2, 4)
	assert.False(t, ok)
	m, ok := tr.Prompt(3, 4)
	require.True(t, ok)
	assert.Equal(t, TreasurePrompt, m.State)

	res := tr.Accept(c, g, mp)
	require.True(t, res.OK, res.Reason)
	assert.Equal(t, 500, c.Gold)
	assert.Equal(t, TreasureOpened, m.State)
	require.NotNil(t, m.Drop)
	assert.Equal(t, item.Superior, m.Drop.Quality)
	lvl := templateLevel(t, g, m.Drop)
	assert.GreaterOrEqual(t, lvl, mp.MinLevel)
	assert.LessOrEqual(t, lvl, mp.MaxLevel)

	got, res := tr.Collect(c)
	require.True(t, res.OK)
	assert.Nil(t, tr.Marker)
	assert.GreaterOrEqual(t, c.Inventory.IndexOf(got.ID), 0)
}

func TestTreasure_AcceptNeedsFunds(t *testing.T) {
	g := newTestGenerator(t, 19)
	c := newTreasureCharacter(t, g)
	c.Gold = 999999
	tr := Treasure{Marker: &Marker{Quality: item.Divine, State: TreasurePrompt}}

	res := tr.Accept(c, g, nil)
	assert.False(t, res.OK)
	assert.Equal(t, "not enough ingots", res.Reason)
	assert.Equal(t, 999999, c.Gold)
	assert.Equal(t, TreasurePrompt, tr.Marker.State)
}

func TestTreasure_RefundWhenNothingGenerates(t *testing.T) {
	g := newTestGenerator(t, 20)
	c := newTreasureCharacter(t, g)
	c.Ingots = 3
	tr := Treasure{Marker: &Marker{Quality: item.Divine, State: TreasurePrompt}}

	res := tr.Accept(c, g, &resource.MapTemplate{MinLevel: 90, MaxLevel: 99})
	assert.False(t, res.OK)
	assert.Equal(t, 3, c.Ingots)
	require.NotNil(t, tr.Marker)
	assert.Equal(t, TreasureIdle, tr.Marker.State)
}

func TestTreasure_BagFullKeepsMarker(t *testing.T) {
	g := newTestGenerator(t, 21)
	c := newTreasureCharacter(t, g)
	c.Gold = 1000
	tr := Treasure{Marker: &Marker{Quality: item.Superior, State: TreasurePrompt}}
	require.True(t, tr.Accept(c, g, g.Catalog().Resources().Map("novice_village")).OK)

	c.Inventory.SetMaxWeight(0)
	_, res := tr.Collect(c)
	assert.False(t, res.OK)
	assert.Equal(t, "bag full", res.Reason)
	require.NotNil(t, tr.Marker)
	assert.Equal(t, TreasureOpened, tr.Marker.State)

	c.Recalculate()
	_, res = tr.Collect(c)
	assert.True(t, res.OK)
	assert.Nil(t, tr.Marker)
}

func TestTreasure_DeclineFlow(t *testing.T) {
	tr := Treasure{Marker: &Marker{Quality: item.Legendary}}
	assert.False(t, tr.Decline(), "idle marker cannot be declined")

	_, ok := tr.Prompt(0, 0)
	require.True(t, ok)
	require.True(t, tr.Decline())
	assert.Equal(t, TreasureConfirmDecline, tr.Marker.State)

	require.True(t, tr.CancelDecline())
	assert.Equal(t, TreasurePrompt, tr.Marker.State)

	require.True(t, tr.Decline())
	require.True(t, tr.ConfirmDecline())
	assert.Nil(t, tr.Marker)
	assert.False(t, tr.ConfirmDecline())
}
