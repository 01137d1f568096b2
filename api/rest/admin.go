package rest

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/miridle/server/game/world"
	mw "github.com/kasuganosora/miridle/server/middleware"
	"github.com/kasuganosora/miridle/server/model"
	"github.com/kasuganosora/miridle/server/scheduler"
	"go.uber.org/zap"
)

// EventHistory reads back audited room events.
type EventHistory interface {
	Recent(ctx context.Context, room string, limit int) ([]model.EventLog, error)
	Dropped() int64
}

// AdminHandler handles admin-only REST endpoints.
// Routes should be protected by the AdminOnly middleware.
type AdminHandler struct {
	rooms  *world.Manager
	sched  *scheduler.Scheduler
	events EventHistory
	logger *zap.Logger
}

// NewAdminHandler creates an AdminHandler. events may be nil.
func NewAdminHandler(rooms *world.Manager, sched *scheduler.Scheduler, events EventHistory, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{rooms: rooms, sched: sched, events: events, logger: logger}
}

// Metrics returns server health metrics.
// GET /api/admin/metrics
func (h *AdminHandler) Metrics(c *gin.Context) {
	out := gin.H{
		"active_rooms":    h.rooms.ActiveRoomCount(),
		"scheduler_tasks": h.sched.Names(),
	}
	if h.events != nil {
		out["audit_dropped"] = h.events.Dropped()
	}
	c.JSON(http.StatusOK, out)
}

// RoomEvents lists a room's audited events, newest first. The room need
// not be open.
// GET /api/admin/rooms/:name/events?limit=50
func (h *AdminHandler) RoomEvents(c *gin.Context) {
	if h.events == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "audit disabled"})
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
		return
	}
	logs, err := h.events.Recent(c.Request.Context(), mw.Room(c), limit)
	if err != nil {
		h.logger.Error("audit read failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": logs})
}

type roomInfo struct {
	Name     string `json:"name"`
	Map      string `json:"map"`
	Level    int    `json:"level"`
	Frame    uint64 `json:"frame"`
	Monsters int    `json:"monsters"`
}

// ListRooms returns a snapshot of every open room.
// GET /api/admin/rooms
func (h *AdminHandler) ListRooms(c *gin.Context) {
	names := h.rooms.Names()
	out := make([]roomInfo, 0, len(names))
	for _, n := range names {
		r := h.rooms.Get(n)
		if r == nil {
			continue
		}
		st := r.Status()
		out = append(out, roomInfo{Name: st.Name, Map: st.Map, Level: st.Level, Frame: st.Frame, Monsters: len(st.Monsters)})
	}
	c.JSON(http.StatusOK, gin.H{"rooms": out, "count": len(out)})
}

// SaveAll persists every open room.
// POST /api/admin/save
func (h *AdminHandler) SaveAll(c *gin.Context) {
	if err := h.rooms.SaveAll(c.Request.Context()); err != nil {
		h.logger.Error("admin save failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"saved": h.rooms.ActiveRoomCount()})
}

// SpawnTreasure forces a treasure marker into a room.
// POST /api/admin/rooms/:name/treasure
func (h *AdminHandler) SpawnTreasure(c *gin.Context) {
	r := h.rooms.Get(mw.Room(c))
	if r == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "room not open"})
		return
	}
	mk, ok := r.SpawnTreasure()
	if !ok {
		c.JSON(http.StatusConflict, gin.H{"error": "treasure already present or no free cell"})
		return
	}
	h.logger.Info("treasure spawned by admin",
		zap.String("room", r.Name()),
		zap.String("quality", mk.Quality.String()))
	c.JSON(http.StatusOK, mk)
}

// ListSchedulerTasks returns the registered ticker names.
// GET /api/admin/scheduler
func (h *AdminHandler) ListSchedulerTasks(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tasks": h.sched.Names()})
}
