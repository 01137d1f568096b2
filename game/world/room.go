// Package world runs the simulation: one room per character, advanced a
// frame at a time by Tick.
package world

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/kasuganosora/miridle/server/game/ai"
	"github.com/kasuganosora/miridle/server/game/battle"
	"github.com/kasuganosora/miridle/server/game/item"
	"github.com/kasuganosora/miridle/server/game/loot"
	"github.com/kasuganosora/miridle/server/game/player"
	"github.com/kasuganosora/miridle/server/game/quest"
	"github.com/kasuganosora/miridle/server/resource"
	"go.uber.org/zap"
)

// Frame cadences at 60 frames per second.
const (
	DefaultAutopilotFrames = 30
	DefaultRecycleFrames   = 600
	RegenFrames            = 60
)

// Where the player lands on map load.
const (
	StartX = 2
	StartY = 2
)

// NewCharacter creates a level 1 character standing at the start point of
// mapKey.
func NewCharacter(name string, prof player.Profession, catalog *item.Catalog, mapKey string) *player.Character {
	c := player.New(name, prof, catalog)
	c.MapKey = mapKey
	c.X, c.Y = StartX, StartY
	return c
}

// ErrNoMap is returned when neither the character's map nor the fallback
// map exists.
var ErrNoMap = errors.New("world: no map to load")

// Sink receives every event a room emits. It is called with the room lock
// held and must not block.
type Sink func(room string, ev battle.Envelope)

// Config configures a Room.
type Config struct {
	Character *player.Character
	Resources *resource.ResourceLoader
	// Generator rolls drops. A room needs its own: generators are not
	// safe for concurrent use. Built from RNG when nil.
	Generator *loot.Generator
	Quests    quest.KillNotifier
	// FallbackMap is loaded when the character's map is unknown.
	FallbackMap     string
	Pity            int
	AutopilotFrames int
	RecycleFrames   int
	QueueLimit      int
	Sinks           []Sink
	Clock           func() time.Time // injectable for testing
	RNG             *rand.Rand       // injectable for testing
	Logger          *zap.Logger
}

// Room owns one character and the map it is on. All methods are safe for
// concurrent use; the lock serialises ticks with API calls.
type Room struct {
	mu sync.Mutex

	name    string
	char    *player.Character
	res     *resource.ResourceLoader
	gen     *loot.Generator
	quests  quest.KillNotifier
	spawner *Spawner
	tree    *ai.BehaviorTree
	rng     *rand.Rand
	clock   func() time.Time
	logger  *zap.Logger
	events  *battle.Queue
	sinks   []Sink
	ctx     context.Context

	mapT     *resource.MapTemplate
	grid     Grid
	monsters []*Monster
	target   *Monster
	dest     *ai.Point
	treasure loot.Treasure
	pity     loot.Pity
	frame    uint64

	autopilotFrames int
	recycleFrames   int
}

// NewRoom loads the character's map, falling back to cfg.FallbackMap, and
// populates it. The character keeps its saved position when it is on the
// map.
func NewRoom(cfg Config) (*Room, error) {
	if cfg.RNG == nil {
		cfg.RNG = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Quests == nil {
		cfg.Quests = quest.Nop{}
	}
	if cfg.Generator == nil {
		cfg.Generator = loot.NewGenerator(loot.Config{
			Catalog: cfg.Character.Catalog(),
			RNG:     cfg.RNG,
			Logger:  cfg.Logger,
		})
	}
	if cfg.AutopilotFrames <= 0 {
		cfg.AutopilotFrames = DefaultAutopilotFrames
	}
	if cfg.RecycleFrames <= 0 {
		cfg.RecycleFrames = DefaultRecycleFrames
	}
	if cfg.QueueLimit <= 0 {
		cfg.QueueLimit = battle.DefaultQueueLimit
	}

	c := cfg.Character
	r := &Room{
		name:            c.Name,
		char:            c,
		res:             cfg.Resources,
		gen:             cfg.Generator,
		quests:          cfg.Quests,
		spawner:         NewSpawner(cfg.Resources, cfg.RNG, cfg.Logger),
		tree:            ai.MonsterTree(),
		rng:             cfg.RNG,
		clock:           cfg.Clock,
		logger:          cfg.Logger.With(zap.String("room", c.Name)),
		events:          battle.NewQueue(cfg.QueueLimit),
		sinks:           cfg.Sinks,
		ctx:             context.Background(),
		pity:            loot.Pity{Count: cfg.Pity},
		autopilotFrames: cfg.AutopilotFrames,
		recycleFrames:   cfg.RecycleFrames,
	}

	mp := r.res.Map(c.MapKey)
	if mp == nil {
		if c.MapKey != "" {
			r.logger.Warn("unknown map, using fallback",
				zap.String("map", c.MapKey),
				zap.String("fallback", cfg.FallbackMap))
		}
		mp = r.res.Map(cfg.FallbackMap)
	}
	if mp == nil {
		return nil, fmt.Errorf("%w: %q", ErrNoMap, cfg.FallbackMap)
	}
	at := ai.Point{X: StartX, Y: StartY}
	if mp.Key == c.MapKey && NewGrid(mp).Passable(c.X, c.Y) {
		at = ai.Point{X: c.X, Y: c.Y}
	}
	r.loadMap(mp, at)
	return r, nil
}

// Name is the room name, the character's name.
func (r *Room) Name() string { return r.name }

// SetContext sets the context passed to quest notifications.
func (r *Room) SetContext(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ctx = ctx
}

// loadMap swaps the map, puts the player at at and repopulates around
// them. Target, destination and any treasure are discarded.
func (r *Room) loadMap(mp *resource.MapTemplate, at ai.Point) {
	r.mapT = mp
	r.grid = NewGrid(mp)
	r.monsters = nil
	r.target = nil
	r.dest = nil
	r.treasure = loot.Treasure{}
	r.char.MapKey = mp.Key
	r.char.X, r.char.Y = at.X, at.Y
	r.spawner.Populate(mp, r.grid, r.occupied, func(m *Monster) {
		r.monsters = append(r.monsters, m)
	})
	r.logger.Info("map loaded",
		zap.String("map", mp.Key),
		zap.Int("monsters", len(r.monsters)))
}

// Travel moves the character to another map.
func (r *Room) Travel(mapKey string) player.Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	mp := r.res.Map(mapKey)
	if mp == nil {
		return player.Result{Reason: fmt.Sprintf("unknown map %q", mapKey)}
	}
	r.loadMap(mp, ai.Point{X: StartX, Y: StartY})
	r.emit(battle.EventLog{Text: fmt.Sprintf("entered %s (Lv.%d-%d)", mp.Name, mp.MinLevel, mp.MaxLevel)})
	return player.Result{OK: true, Reason: "entered " + mp.Name}
}

// Tick advances the simulation by one frame.
func (r *Room) Tick() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frame++
	now := r.clock()
	c := r.char

	if key, ok := c.AutoPotion(now); ok {
		r.emit(battle.EventFloatingText{X: c.X, Y: c.Y, Text: "+" + key, Color: battle.ColorGreen})
	}
	r.tickMonsters()
	if r.frame%uint64(r.autopilotFrames) == 0 {
		r.autopilotStep(now)
	}
	if r.frame%RegenFrames == 0 {
		c.RegenMP()
	}
	if c.Settings.AutoRecycle && r.frame%uint64(r.recycleFrames) == 0 {
		r.autoRecycle()
	}
	if m, ok := r.spawner.MaybeRespawn(r.mapT, r.grid, len(r.monsters), r.occupied); ok {
		r.monsters = append(r.monsters, m)
	}
}

func (r *Room) autoRecycle() {
	rw := r.char.Recycle(r.char.Settings.RecycleQualities)
	if rw.Count == 0 {
		return
	}
	r.emit(battle.EventLog{Text: fmt.Sprintf("auto-recycled %d items: +%d gold, +%d ingots, +%d stones",
		rw.Count, rw.Gold, rw.Ingots, rw.Stones)})
	r.emit(battle.EventFloatingText{X: r.char.X, Y: r.char.Y, Text: fmt.Sprintf("recycled x%d", rw.Count), Color: battle.ColorGreen})
}

func (r *Room) emit(e battle.Event) {
	r.events.Push(r.frame, e)
	if len(r.sinks) == 0 {
		return
	}
	env := battle.Wrap(r.frame, e)
	for _, s := range r.sinks {
		s(r.name, env)
	}
}

// Drain hands over the events emitted since the last drain.
func (r *Room) Drain() []battle.Envelope {
	return r.events.Drain()
}

func (r *Room) playerPos() ai.Point { return ai.Point{X: r.char.X, Y: r.char.Y} }

func (r *Room) monsterAt(p ai.Point) *Monster {
	for _, m := range r.monsters {
		if m.Alive() && m.X == p.X && m.Y == p.Y {
			return m
		}
	}
	return nil
}

func (r *Room) occupied(p ai.Point) bool {
	return p == r.playerPos() || r.monsterAt(p) != nil
}

func (r *Room) findMonster(id int64) *Monster {
	for _, m := range r.monsters {
		if m.ID == id && m.Alive() {
			return m
		}
	}
	return nil
}

func (r *Room) removeMonster(dead *Monster) {
	for i, m := range r.monsters {
		if m == dead {
			r.monsters = append(r.monsters[:i], r.monsters[i+1:]...)
			break
		}
	}
	if r.target == dead {
		r.target = nil
	}
}

// Do runs fn against the character under the room lock. Every gameplay
// operation the API exposes goes through here.
func (r *Room) Do(fn func(c *player.Character) player.Result) player.Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn(r.char)
}

// View runs fn with read access to the character under the room lock.
func (r *Room) View(fn func(c *player.Character)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(r.char)
}

// Persist hands the character and pity counter to fn under the room lock,
// so a save never observes a half-applied tick.
func (r *Room) Persist(fn func(c *player.Character, pity int) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn(r.char, r.pity.Count)
}

// Status is a point-in-time view of the room.
type Status struct {
	Name        string        `json:"name"`
	Map         string        `json:"map"`
	Frame       uint64        `json:"frame"`
	Level       int           `json:"level"`
	XP          int           `json:"xp"`
	XPToNext    int           `json:"xp_to_next"`
	HP          int           `json:"hp"`
	MP          int           `json:"mp"`
	Gold        int           `json:"gold"`
	Ingots      int           `json:"ingots"`
	X           int           `json:"x"`
	Y           int           `json:"y"`
	Stats       player.Stats  `json:"stats"`
	AutoCombat  bool          `json:"auto_combat"`
	Target      *MonsterView  `json:"target,omitempty"`
	Destination *ai.Point     `json:"destination,omitempty"`
	Monsters    []MonsterView `json:"monsters"`
	Treasure    *loot.Marker  `json:"treasure,omitempty"`
	Pity        int           `json:"pity"`
}

// Status snapshots the room.
func (r *Room) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := r.char
	st := Status{
		Name:       r.name,
		Map:        r.mapT.Key,
		Frame:      r.frame,
		Level:      c.Level,
		XP:         c.XP,
		XPToNext:   player.XPToNext(c.Level),
		HP:         c.HP,
		MP:         c.MP,
		Gold:       c.Gold,
		Ingots:     c.Ingots,
		X:          c.X,
		Y:          c.Y,
		Stats:      c.Stats(),
		AutoCombat: c.Settings.AutoCombat,
		Monsters:   make([]MonsterView, 0, len(r.monsters)),
		Pity:       r.pity.Count,
	}
	if r.target != nil {
		v := r.target.View()
		st.Target = &v
	}
	if r.dest != nil {
		d := *r.dest
		st.Destination = &d
	}
	for _, m := range r.monsters {
		st.Monsters = append(st.Monsters, m.View())
	}
	if r.treasure.Marker != nil {
		mk := *r.treasure.Marker
		st.Treasure = &mk
	}
	return st
}

// SetAutoCombat switches automatic target acquisition.
func (r *Room) SetAutoCombat(on bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.char.Settings.AutoCombat = on
}

// SetTarget locks onto a live monster.
func (r *Room) SetTarget(id int64) player.Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	m := r.findMonster(id)
	if m == nil {
		return player.Result{Reason: "no such monster"}
	}
	r.target = m
	return player.Result{OK: true, Reason: "target " + m.Template.Name}
}

// MoveTo sets a manual destination. Autopilot walks there before fighting
// again; a newer destination replaces an older one.
func (r *Room) MoveTo(x, y int) player.Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.grid.Passable(x, y) {
		return player.Result{Reason: "destination out of bounds"}
	}
	r.dest = &ai.Point{X: x, Y: y}
	return player.Result{OK: true, Reason: fmt.Sprintf("moving to (%d,%d)", x, y)}
}

// Step moves the player one cell; stepping into a monster attacks it.
func (r *Room) Step(dx, dy int) player.Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	if abs(dx)+abs(dy) != 1 {
		return player.Result{Reason: "invalid step"}
	}
	if !r.stepPlayer(ai.Point{X: dx, Y: dy}, r.clock()) {
		return player.Result{Reason: "blocked"}
	}
	return player.Result{OK: true}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
