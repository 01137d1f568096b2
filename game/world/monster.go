package world

import (
	"sync/atomic"

	"github.com/kasuganosora/miridle/server/game/ai"
	"github.com/kasuganosora/miridle/server/resource"
)

// instIDCounter generates unique monster instance IDs.
var instIDCounter int64

func nextInstID() int64 {
	return atomic.AddInt64(&instIDCounter, 1)
}

// Monster is the runtime state of a live monster instance. It is owned by
// its room and only touched under the room lock.
type Monster struct {
	ID       int64
	Template *resource.MonsterTemplate
	HP       int
	MaxHP    int
	X, Y     int
	State    ai.MonsterState

	moveTimer    int
	moveInterval int
}

// NewMonster creates a fresh idle monster from a template.
func NewMonster(t *resource.MonsterTemplate, x, y, idleInterval int) *Monster {
	return &Monster{
		ID:           nextInstID(),
		Template:     t,
		HP:           t.HP,
		MaxHP:        t.HP,
		X:            x,
		Y:            y,
		State:        ai.StateIdle,
		moveInterval: idleInterval,
	}
}

// Alive reports whether the monster can still act and be hit.
func (m *Monster) Alive() bool { return m.State != ai.StateDead && m.HP > 0 }

// Pos returns the monster's cell.
func (m *Monster) Pos() ai.Point { return ai.Point{X: m.X, Y: m.Y} }

// TakeDamage subtracts n, already net of defense, from HP. Any hit makes
// the monster aggressive and resets its move timer. It returns true when
// the monster died.
func (m *Monster) TakeDamage(n int) bool {
	m.HP = max(m.HP-n, 0)
	if m.State == ai.StateIdle {
		m.State = ai.StateAggro
		m.moveInterval = ai.AggroFrames
		m.moveTimer = 0
	}
	if m.HP == 0 {
		m.State = ai.StateDead
		return true
	}
	return false
}

// MonsterView is the read-only form of a monster handed to callers.
type MonsterView struct {
	ID    int64  `json:"id"`
	Key   string `json:"key"`
	Name  string `json:"name"`
	Level int    `json:"level"`
	X     int    `json:"x"`
	Y     int    `json:"y"`
	HP    int    `json:"hp"`
	MaxHP int    `json:"max_hp"`
	State string `json:"state"`
	Boss  bool   `json:"boss,omitempty"`
}

func (m *Monster) View() MonsterView {
	return MonsterView{
		ID:    m.ID,
		Key:   m.Template.Key,
		Name:  m.Template.Name,
		Level: m.Template.Level,
		X:     m.X,
		Y:     m.Y,
		HP:    m.HP,
		MaxHP: m.MaxHP,
		State: m.State.String(),
		Boss:  m.Template.Boss,
	}
}
