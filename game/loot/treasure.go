package loot

import (
	"math/rand"

	"github.com/kasuganosora/miridle/server/game/item"
	"github.com/kasuganosora/miridle/server/game/player"
	"github.com/kasuganosora/miridle/server/resource"
)

const (
	// PityKills forces a treasure spawn once this many kills pass without one.
	PityKills     = 100
	treasurePct   = 3
	spawnAttempts = 100
)

// Treasure tiers and their spawn weights.
var treasureWeights = []struct {
	quality item.Quality
	weight  int
}{
	{item.Superior, 60},
	{item.Legendary, 30},
	{item.Epic, 9},
	{item.Divine, 1},
}

// Cost is the price of opening a treasure.
type Cost struct {
	Gold   int `json:"gold,omitempty"`
	Ingots int `json:"ingots,omitempty"`
}

// TreasureCost returns the opening price of a tier. Gold-priced tiers pay
// gold, the top two tiers pay ingots.
func TreasureCost(q item.Quality) Cost {
	switch q {
	case item.Divine:
		return Cost{Ingots: 3}
	case item.Epic:
		return Cost{Ingots: 1}
	case item.Legendary:
		return Cost{Gold: 5000}
	default:
		return Cost{Gold: 1000}
	}
}

// RollTreasureQuality draws a tier from the 60/30/9/1 table.
func RollTreasureQuality(rng *rand.Rand) item.Quality {
	total := 0
	for _, w := range treasureWeights {
		total += w.weight
	}
	n := rng.Intn(total)
	for _, w := range treasureWeights {
		if n < w.weight {
			return w.quality
		}
		n -= w.weight
	}
	return item.Superior
}

// Pity counts kills since the last treasure.
type Pity struct {
	Count int `json:"count"`
}

// OnKill records one kill and reports whether a treasure should spawn.
// The counter resets whenever it does.
func (p *Pity) OnKill(rng *rand.Rand) bool {
	p.Count++
	if p.Count >= PityKills || rng.Intn(100) < treasurePct {
		p.Count = 0
		return true
	}
	return false
}

// TreasureState is where a marker is in its open/decline dialogue.
type TreasureState int

const (
	TreasureIdle TreasureState = iota
	TreasurePrompt
	TreasureConfirmDecline
	TreasureOpened
)

var treasureStateNames = [...]string{"idle", "prompt", "confirm_decline", "opened"}

func (s TreasureState) String() string {
	if s < 0 || int(s) >= len(treasureStateNames) {
		return "unknown"
	}
	return treasureStateNames[s]
}

// Marker is a treasure sitting on a map cell.
type Marker struct {
	X       int           `json:"x"`
	Y       int           `json:"y"`
	Quality item.Quality  `json:"quality"`
	State   TreasureState `json:"state"`
	Drop    *item.Item    `json:"drop,omitempty"`
}

// Cost is the opening price of the marker.
func (m *Marker) Cost() Cost { return TreasureCost(m.Quality) }

// Treasure holds the single marker a map may carry.
type Treasure struct {
	Marker *Marker
}

// Spawn places a marker of a rolled tier on a random free cell. blocked
// reports cells that cannot hold a marker. It fails when a marker already
// exists or no free cell was found within a bounded number of attempts.
func (t *Treasure) Spawn(rng *rand.Rand, width, height int, blocked func(x, y int) bool) (*Marker, bool) {
	if t.Marker != nil || width <= 0 || height <= 0 {
		return nil, false
	}
	for range spawnAttempts {
		x, y := rng.Intn(width), rng.Intn(height)
		if blocked != nil && blocked(x, y) {
			continue
		}
		t.Marker = &Marker{X: x, Y: y, Quality: RollTreasureQuality(rng)}
		return t.Marker, true
	}
	return nil, false
}

// At reports whether the marker sits on (x, y).
func (t *Treasure) At(x, y int) bool {
	return t.Marker != nil && t.Marker.X == x && t.Marker.Y == y
}

// Prompt opens the dialogue when the player steps onto an idle marker.
func (t *Treasure) Prompt(x, y int) (*Marker, bool) {
	if !t.At(x, y) || t.Marker.State != TreasureIdle {
		return nil, false
	}
	t.Marker.State = TreasurePrompt
	return t.Marker, true
}

// Accept pays for the marker and generates its item within the map's level
// range at the marker's tier. A failed generation refunds the price and
// returns the marker to idle.
func (t *Treasure) Accept(c *player.Character, gen *Generator, mp *resource.MapTemplate) player.Result {
	m := t.Marker
	if m == nil || m.State != TreasurePrompt {
		return player.Result{Reason: "no treasure awaiting an answer"}
	}
	cost := m.Cost()
	if c.Gold < cost.Gold {
		return player.Result{Reason: "not enough gold"}
	}
	if c.Ingots < cost.Ingots {
		return player.Result{Reason: "not enough ingots"}
	}
	c.Gold -= cost.Gold
	c.Ingots -= cost.Ingots

	q := m.Quality
	req := Request{Quality: &q}
	if mp != nil {
		req.MinLevel, req.MaxLevel = mp.MinLevel, mp.MaxLevel
	}
	it, ok := gen.GenerateDrop(req)
	if !ok {
		c.Gold += cost.Gold
		c.Ingots += cost.Ingots
		m.State = TreasureIdle
		return player.Result{Reason: "the chest was empty, payment refunded"}
	}
	m.Drop = it
	m.State = TreasureOpened
	return player.Result{OK: true, Reason: "opened " + it.String()}
}

// Collect moves an opened marker's item into the bag. A full bag keeps the
// marker so the player can try again.
func (t *Treasure) Collect(c *player.Character) (*item.Item, player.Result) {
	m := t.Marker
	if m == nil || m.State != TreasureOpened || m.Drop == nil {
		return nil, player.Result{Reason: "nothing to collect"}
	}
	it := m.Drop
	if !c.Inventory.Add(it) {
		return nil, player.Result{Reason: "bag full"}
	}
	t.Marker = nil
	return it, player.Result{OK: true, Reason: "collected " + it.String()}
}

// Decline asks for confirmation before discarding a prompted marker.
func (t *Treasure) Decline() bool {
	if t.Marker == nil || t.Marker.State != TreasurePrompt {
		return false
	}
	t.Marker.State = TreasureConfirmDecline
	return true
}

// ConfirmDecline discards the marker.
func (t *Treasure) ConfirmDecline() bool {
	if t.Marker == nil || t.Marker.State != TreasureConfirmDecline {
		return false
	}
	t.Marker = nil
	return true
}

// CancelDecline returns to the opening prompt.
func (t *Treasure) CancelDecline() bool {
	if t.Marker == nil || t.Marker.State != TreasureConfirmDecline {
		return false
	}
	t.Marker.State = TreasurePrompt
	return true
}
