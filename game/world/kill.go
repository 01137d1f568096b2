package world

import (
	"fmt"

	"github.com/kasuganosora/miridle/server/game/ai"
	"github.com/kasuganosora/miridle/server/game/battle"
	"github.com/kasuganosora/miridle/server/game/item"
	"github.com/kasuganosora/miridle/server/game/loot"
	"github.com/kasuganosora/miridle/server/game/player"
	"go.uber.org/zap"
)

// handleKill removes a dead monster and pays out experience, the pity
// treasure, drops and quest progress. Drops go straight into the bag.
func (r *Room) handleKill(m *Monster) {
	c := r.char
	t := m.Template
	r.removeMonster(m)

	r.emit(battle.EventKill{Monster: t.Key, Name: t.Name, XP: t.XP})
	if gained := c.GainXP(t.XP); gained > 0 {
		r.emit(battle.EventLevelUp{Level: c.Level})
		r.emit(battle.EventLog{Text: fmt.Sprintf("level up! now level %d", c.Level)})
	}

	if r.pity.OnKill(r.rng) {
		r.spawnTreasure()
	}

	d := r.gen.RollKill(t, r.mapT)
	if !d.Empty() {
		ev := battle.EventLoot{X: m.X, Y: m.Y, Gold: d.Gold, Ingots: d.Ingots}
		c.Gold += d.Gold
		c.Ingots += d.Ingots
		for _, it := range []*item.Item{d.Gear, d.BonePowder} {
			if it == nil {
				continue
			}
			if label, ok := r.stow(it); ok {
				ev.Items = append(ev.Items, label)
			}
		}
		r.emit(ev)
	}

	if r.quests.NotifyKill(r.ctx, c.ID, t.Key) {
		r.emit(battle.EventLog{Text: "quest progress updated"})
	}
	if t.Boss {
		r.emit(battle.EventBoss{Monster: t.Key, Name: t.Name})
		r.logger.Info("boss killed", zap.String("monster", t.Key))
	}
}

// stow puts a drop into the bag and returns the label of what went in.
// Whatever the bag cannot hold, all of it or the unmerged rest of a stack,
// is reported as bag_full and lost.
func (r *Room) stow(it *item.Item) (string, bool) {
	bag := r.char.Inventory
	label, want := it.String(), it.Count
	if !bag.Add(it) {
		r.emit(battle.EventBagFull{Item: label})
		return "", false
	}
	if it.Count > 0 && bag.IndexOf(it.ID) < 0 {
		r.emit(battle.EventBagFull{Item: it.String()})
		kept := *it
		kept.Count = want - it.Count
		label = kept.String()
	}
	return label, true
}

func (r *Room) spawnTreasure() (*loot.Marker, bool) {
	mk, ok := r.treasure.Spawn(r.rng, r.grid.Width, r.grid.Height, func(x, y int) bool {
		return r.occupied(ai.Point{X: x, Y: y})
	})
	if !ok {
		return nil, false
	}
	r.emit(battle.EventTreasureSpawned{X: mk.X, Y: mk.Y, Quality: mk.Quality})
	r.emit(battle.EventLog{Text: "a mysterious treasure appeared"})
	return mk, true
}

// TreasureAction answers the treasure prompt.
type TreasureAction string

const (
	TreasureAccept         TreasureAction = "accept"
	TreasureCollect        TreasureAction = "collect"
	TreasureDecline        TreasureAction = "decline"
	TreasureConfirmDecline TreasureAction = "confirm_decline"
	TreasureCancelDecline  TreasureAction = "cancel_decline"
)

// Treasure applies a prompt answer to the map's treasure marker.
func (r *Room) Treasure(action TreasureAction) player.Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := r.char
	switch action {
	case TreasureAccept:
		res := r.treasure.Accept(c, r.gen, r.mapT)
		if res.OK {
			r.emit(battle.EventTreasureOpened{Item: r.treasure.Marker.Drop})
		}
		return res
	case TreasureCollect:
		it, res := r.treasure.Collect(c)
		if res.OK {
			r.emit(battle.EventLog{Text: "treasure: " + it.String()})
		} else if res.Reason == "bag full" {
			r.emit(battle.EventFloatingText{X: c.X, Y: c.Y, Text: "bag full", Color: battle.ColorRed})
		}
		return res
	case TreasureDecline:
		return boolResult(r.treasure.Decline(), "are you sure?")
	case TreasureConfirmDecline:
		if r.treasure.ConfirmDecline() {
			r.emit(battle.EventLog{Text: "you let the chance slip away"})
			return player.Result{OK: true, Reason: "treasure discarded"}
		}
		return player.Result{Reason: "nothing to discard"}
	case TreasureCancelDecline:
		return boolResult(r.treasure.CancelDecline(), "back to the chest")
	}
	return player.Result{Reason: fmt.Sprintf("unknown treasure action %q", action)}
}

// SpawnTreasure forces a treasure marker onto the map, as the pity counter
// does.
func (r *Room) SpawnTreasure() (loot.Marker, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	mk, ok := r.spawnTreasure()
	if !ok {
		return loot.Marker{}, false
	}
	return *mk, true
}

func boolResult(ok bool, msg string) player.Result {
	if !ok {
		return player.Result{Reason: "no treasure awaiting an answer"}
	}
	return player.Result{OK: true, Reason: msg}
}
