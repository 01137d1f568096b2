package battle

import (
	"encoding/json"
	"sync"

	"github.com/kasuganosora/miridle/server/game/item"
)

// Event is emitted by the simulation for the presentation layer to consume.
type Event interface {
	EventType() string
}

// Floating text colours.
const (
	ColorRed    = "red"
	ColorGreen  = "green"
	ColorBlue   = "blue"
	ColorYellow = "yellow"
	ColorGold   = "gold"
)

// --- Concrete event types ---

type EventFloatingText struct {
	X     int    `json:"x"`
	Y     int    `json:"y"`
	Text  string `json:"text"`
	Color string `json:"color"`
}

func (EventFloatingText) EventType() string { return "floating_text" }

type EventLog struct {
	Text string `json:"text"`
}

func (EventLog) EventType() string { return "log" }

type EventKill struct {
	Monster string `json:"monster"`
	Name    string `json:"name"`
	XP      int    `json:"xp"`
}

func (EventKill) EventType() string { return "kill" }

type EventLoot struct {
	X      int      `json:"x"`
	Y      int      `json:"y"`
	Gold   int      `json:"gold,omitempty"`
	Ingots int      `json:"ingots,omitempty"`
	Items  []string `json:"items,omitempty"`
}

func (EventLoot) EventType() string { return "loot" }

type EventBagFull struct {
	Item string `json:"item"`
}

func (EventBagFull) EventType() string { return "bag_full" }

type EventLevelUp struct {
	Level int `json:"level"`
}

func (EventLevelUp) EventType() string { return "level_up" }

type EventTreasureSpawned struct {
	X       int          `json:"x"`
	Y       int          `json:"y"`
	Quality item.Quality `json:"quality"`
}

func (EventTreasureSpawned) EventType() string { return "treasure_spawned" }

type EventTreasurePrompt struct {
	X       int          `json:"x"`
	Y       int          `json:"y"`
	Quality item.Quality `json:"quality"`
	Gold    int          `json:"gold,omitempty"`
	Ingots  int          `json:"ingots,omitempty"`
}

func (EventTreasurePrompt) EventType() string { return "treasure_prompt" }

type EventTreasureOpened struct {
	Item *item.Item `json:"item"`
}

func (EventTreasureOpened) EventType() string { return "treasure_opened" }

type EventDeath struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (EventDeath) EventType() string { return "death" }

type EventBoss struct {
	Monster string `json:"monster"`
	Name    string `json:"name"`
}

func (EventBoss) EventType() string { return "boss_killed" }

// Envelope is the wire form of an event.
type Envelope struct {
	Type  string `json:"type"`
	Frame uint64 `json:"frame"`
	Data  Event  `json:"data"`
}

// Wrap tags an event with its type and the frame it happened on.
func Wrap(frame uint64, e Event) Envelope {
	return Envelope{Type: e.EventType(), Frame: frame, Data: e}
}

// MarshalEvents encodes a batch of envelopes as a JSON array.
func MarshalEvents(evs []Envelope) ([]byte, error) {
	if evs == nil {
		evs = []Envelope{}
	}
	return json.Marshal(evs)
}

// DefaultQueueLimit bounds an undrained queue.
const DefaultQueueLimit = 1024

// Queue buffers events between ticks. When full, the oldest events are
// dropped.
type Queue struct {
	mu      sync.Mutex
	events  []Envelope
	limit   int
	dropped int
}

// NewQueue creates a queue holding at most limit events; limit <= 0 uses
// DefaultQueueLimit.
func NewQueue(limit int) *Queue {
	if limit <= 0 {
		limit = DefaultQueueLimit
	}
	return &Queue{limit: limit}
}

// Push appends an event stamped with frame.
func (q *Queue) Push(frame uint64, e Event) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.events) >= q.limit {
		n := len(q.events) - q.limit + 1
		q.events = append(q.events[:0], q.events[n:]...)
		q.dropped += n
	}
	q.events = append(q.events, Wrap(frame, e))
}

// Drain returns the buffered events in order and empties the queue.
func (q *Queue) Drain() []Envelope {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.events
	q.events = nil
	return out
}

// Len is the number of buffered events.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Dropped is the number of events discarded because the queue was full.
func (q *Queue) Dropped() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}
