package world

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kasuganosora/miridle/server/config"
	"github.com/kasuganosora/miridle/server/game/item"
	"github.com/kasuganosora/miridle/server/game/player"
	"github.com/kasuganosora/miridle/server/game/quest"
	"github.com/kasuganosora/miridle/server/game/save"
	"github.com/kasuganosora/miridle/server/resource"
	"github.com/kasuganosora/miridle/server/scheduler"
	"go.uber.org/zap"
)

// ErrInvalidName is returned for an empty or oversized character name.
var ErrInvalidName = errors.New("world: invalid character name")

const maxNameLen = 32

// ManagerConfig wires a Manager.
type ManagerConfig struct {
	Resources *resource.ResourceLoader
	Catalog   *item.Catalog
	// Saves loads and stores characters; nil keeps everything in memory.
	Saves  *save.Manager
	Quests quest.KillNotifier
	// Scheduler ticks each room at Game.TickInterval; nil leaves ticking
	// to the caller.
	Scheduler *scheduler.Scheduler
	Game      config.GameConfig
	Sinks     []Sink
	// Leases claims rooms in a cache shared between instances; nil skips
	// claiming. Instance defaults to a random id and LeaseTTL to
	// DefaultLeaseTTL.
	Leases   Leases
	Instance string
	LeaseTTL time.Duration
	Logger   *zap.Logger
}

// Manager manages all active rooms, one per character.
type Manager struct {
	mu     sync.RWMutex
	rooms  map[string]*Room
	cfg    ManagerConfig
	logger *zap.Logger
}

// NewManager creates a new Manager.
func NewManager(cfg ManagerConfig) *Manager {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Catalog == nil {
		cfg.Catalog = item.NewCatalog(cfg.Resources)
	}
	if cfg.Instance == "" {
		cfg.Instance = uuid.NewString()
	}
	if cfg.LeaseTTL <= 0 {
		cfg.LeaseTTL = DefaultLeaseTTL
	}
	return &Manager{
		rooms:  make(map[string]*Room),
		cfg:    cfg,
		logger: cfg.Logger,
	}
}

func tickerName(room string) string { return "room:" + room }

// Open returns the room for name, loading the character from its save or
// creating a new one of the given profession. An unreadable save is
// logged and replaced by a new character.
func (wm *Manager) Open(ctx context.Context, name, profession string) (*Room, error) {
	if name == "" || len(name) > maxNameLen {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	// Fast path: room already exists.
	wm.mu.RLock()
	room, ok := wm.rooms[name]
	wm.mu.RUnlock()
	if ok {
		return room, nil
	}

	wm.mu.Lock()
	defer wm.mu.Unlock()
	if room, ok = wm.rooms[name]; ok {
		return room, nil
	}

	if err := wm.acquire(ctx, name); err != nil {
		return nil, err
	}
	c, pity, err := wm.load(ctx, name, profession)
	if err != nil {
		wm.release(ctx, name)
		return nil, err
	}
	room, err = NewRoom(Config{
		Character:       c,
		Resources:       wm.cfg.Resources,
		Quests:          wm.cfg.Quests,
		FallbackMap:     wm.cfg.Game.StartMap,
		Pity:            pity,
		AutopilotFrames: wm.cfg.Game.AutopilotFrames,
		RecycleFrames:   wm.cfg.Game.RecycleIntervalFrames,
		QueueLimit:      wm.cfg.Game.EventQueueLimit,
		Sinks:           wm.cfg.Sinks,
		RNG:             rand.New(rand.NewSource(time.Now().UnixNano())),
		Logger:          wm.logger,
	})
	if err != nil {
		wm.release(ctx, name)
		return nil, err
	}
	if c.ID == 0 && wm.cfg.Saves != nil {
		// First save assigns the character ID quest progress is keyed by.
		if err := wm.Save(ctx, room); err != nil {
			wm.logger.Warn("initial save failed", zap.String("room", name), zap.Error(err))
		}
	}
	wm.rooms[name] = room
	if s := wm.cfg.Scheduler; s != nil {
		s.AddTicker(tickerName(name), wm.cfg.Game.TickInterval(), func(context.Context) { room.Tick() })
	}
	wm.logger.Info("room opened", zap.String("room", name), zap.String("map", c.MapKey))
	return room, nil
}

func (wm *Manager) load(ctx context.Context, name, profession string) (*player.Character, int, error) {
	if wm.cfg.Saves != nil {
		c, pity, err := wm.cfg.Saves.Load(ctx, name)
		switch {
		case err == nil:
			return c, pity, nil
		case errors.Is(err, save.ErrNotFound):
		default:
			wm.logger.Warn("save unreadable, starting a new character",
				zap.String("room", name), zap.Error(err))
		}
	}
	if profession == "" {
		profession = wm.cfg.Game.DefaultClass
	}
	prof, err := player.ParseProfession(profession)
	if err != nil {
		return nil, 0, err
	}
	return NewCharacter(name, prof, wm.cfg.Catalog, wm.cfg.Game.StartMap), 0, nil
}

// Get returns the room for name, or nil if it is not open.
func (wm *Manager) Get(name string) *Room {
	wm.mu.RLock()
	defer wm.mu.RUnlock()
	return wm.rooms[name]
}

// Names lists open rooms in sorted order.
func (wm *Manager) Names() []string {
	wm.mu.RLock()
	defer wm.mu.RUnlock()
	out := make([]string, 0, len(wm.rooms))
	for n := range wm.rooms {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// ActiveRoomCount returns the number of open rooms.
func (wm *Manager) ActiveRoomCount() int {
	wm.mu.RLock()
	defer wm.mu.RUnlock()
	return len(wm.rooms)
}

// Save persists one room.
func (wm *Manager) Save(ctx context.Context, room *Room) error {
	if wm.cfg.Saves == nil {
		return nil
	}
	return room.Persist(func(c *player.Character, pity int) error {
		return wm.cfg.Saves.Save(ctx, c, pity)
	})
}

// SaveAll persists every open room and joins the failures.
func (wm *Manager) SaveAll(ctx context.Context) error {
	wm.mu.RLock()
	rooms := make([]*Room, 0, len(wm.rooms))
	for _, r := range wm.rooms {
		rooms = append(rooms, r)
	}
	wm.mu.RUnlock()

	var errs []error
	for _, r := range rooms {
		if err := wm.Save(ctx, r); err != nil {
			wm.logger.Warn("autosave failed", zap.String("room", r.Name()), zap.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close stops ticking a room, saves it, forgets it and releases its claim.
func (wm *Manager) Close(ctx context.Context, name string) error {
	wm.mu.Lock()
	room, ok := wm.rooms[name]
	delete(wm.rooms, name)
	wm.mu.Unlock()
	if !ok {
		return nil
	}
	if s := wm.cfg.Scheduler; s != nil {
		s.Remove(tickerName(name))
	}
	wm.logger.Info("room closed", zap.String("room", name))
	err := wm.Save(ctx, room)
	wm.release(ctx, name)
	return err
}

// CloseAll closes every room (used at server shutdown).
func (wm *Manager) CloseAll(ctx context.Context) error {
	var errs []error
	for _, n := range wm.Names() {
		if err := wm.Close(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
