// Package audit persists notable simulation events to the event_logs table.
package audit

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kasuganosora/miridle/server/game/battle"
	"github.com/kasuganosora/miridle/server/model"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	queueSize     = 1024
	batchSize     = 100
	flushInterval = 2 * time.Second
	maxRecent     = 500
)

// DefaultTypes are the event types recorded when none are configured.
// Floating text and log lines are presentation only.
var DefaultTypes = []string{"kill", "level_up", "treasure_spawned", "treasure_opened", "death", "boss_killed"}

// Service writes room events to the database from a single background
// worker, in batches.
type Service struct {
	db      *gorm.DB
	types   map[string]struct{}
	queue   chan *model.EventLog
	quit    chan struct{}
	done    chan struct{}
	once    sync.Once
	dropped atomic.Int64
	logger  *zap.Logger
}

// New starts a Service recording the given event types; none means
// DefaultTypes.
func New(db *gorm.DB, logger *zap.Logger, types ...string) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(types) == 0 {
		types = DefaultTypes
	}
	svc := &Service{
		db:     db,
		types:  make(map[string]struct{}, len(types)),
		queue:  make(chan *model.EventLog, queueSize),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
		logger: logger.Named("audit"),
	}
	for _, t := range types {
		svc.types[t] = struct{}{}
	}
	go svc.run()
	return svc
}

// Sink queues one room event. It matches world.Sink and never blocks; when
// the queue is full the event is counted as dropped.
func (svc *Service) Sink(room string, ev battle.Envelope) {
	if _, ok := svc.types[ev.Type]; !ok {
		return
	}
	payload, err := json.Marshal(ev.Data)
	if err != nil {
		svc.logger.Warn("unencodable event", zap.String("type", ev.Type), zap.Error(err))
		return
	}
	select {
	case svc.queue <- &model.EventLog{Room: room, Type: ev.Type, Frame: ev.Frame, Payload: datatypes.JSON(payload)}:
	default:
		if svc.dropped.Add(1)%100 == 1 {
			svc.logger.Warn("queue full, dropping events",
				zap.String("room", room), zap.Int64("dropped", svc.dropped.Load()))
		}
	}
}

// Dropped counts events lost to a full queue.
func (svc *Service) Dropped() int64 { return svc.dropped.Load() }

// Recent returns up to limit of a room's latest events, newest first.
func (svc *Service) Recent(ctx context.Context, room string, limit int) ([]model.EventLog, error) {
	if limit <= 0 || limit > maxRecent {
		limit = maxRecent
	}
	var out []model.EventLog
	err := svc.db.WithContext(ctx).
		Where("room = ?", room).
		Order("id DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// Prune deletes events recorded before cutoff and returns how many went.
func (svc *Service) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res := svc.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&model.EventLog{})
	return res.RowsAffected, res.Error
}

// Stop writes whatever is queued and ends the worker. It returns early if
// ctx ends first. Calling it again is a no-op.
func (svc *Service) Stop(ctx context.Context) {
	svc.once.Do(func() { close(svc.quit) })
	select {
	case <-svc.done:
	case <-ctx.Done():
		svc.logger.Warn("stop timed out, queued events may be lost")
	}
}

func (svc *Service) run() {
	defer close(svc.done)
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	var batch []*model.EventLog
	write := func() {
		if len(batch) == 0 {
			return
		}
		if err := svc.db.CreateInBatches(batch, batchSize).Error; err != nil {
			svc.logger.Error("batch write failed", zap.Int("events", len(batch)), zap.Error(err))
		}
		batch = batch[:0]
	}

	for {
		select {
		case ev := <-svc.queue:
			if batch = append(batch, ev); len(batch) >= batchSize {
				write()
			}
		case <-ticker.C:
			write()
		case <-svc.quit:
			for {
				select {
				case ev := <-svc.queue:
					batch = append(batch, ev)
				default:
					write()
					return
				}
			}
		}
	}
}
