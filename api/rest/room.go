package rest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/kasuganosora/miridle/server/game/battle"
	"github.com/kasuganosora/miridle/server/game/item"
	"github.com/kasuganosora/miridle/server/game/player"
	"github.com/kasuganosora/miridle/server/game/world"
	mw "github.com/kasuganosora/miridle/server/middleware"
	"go.uber.org/zap"
)

// RoomHandler exposes a character's room: status, inventory, equipment and
// the commands a player would issue.
type RoomHandler struct {
	rooms  *world.Manager
	logger *zap.Logger
}

// NewRoomHandler creates a RoomHandler.
func NewRoomHandler(rooms *world.Manager, logger *zap.Logger) *RoomHandler {
	return &RoomHandler{rooms: rooms, logger: logger}
}

// Register mounts the room routes under g.
func (h *RoomHandler) Register(g *gin.RouterGroup) {
	g.POST("/rooms/:name", h.Open)
	r := g.Group("/rooms/:name", h.requireRoom)
	r.GET("", h.Status)
	r.DELETE("", h.Close)
	r.GET("/inventory", h.Inventory)
	r.GET("/equipment", h.Equipment)
	r.GET("/events", h.Events)
	r.POST("/equip", h.Equip)
	r.POST("/unequip", h.Unequip)
	r.POST("/enhance", h.Enhance)
	r.POST("/forge", h.Forge)
	r.POST("/sort", h.Sort)
	r.POST("/unlock-page", h.UnlockPage)
	r.POST("/recycle", h.Recycle)
	r.POST("/use", h.Use)
	r.POST("/lock", h.Lock)
	r.POST("/buy", h.Buy)
	r.POST("/move", h.Move)
	r.POST("/step", h.Step)
	r.POST("/target", h.Target)
	r.POST("/travel", h.Travel)
	r.POST("/autocombat", h.AutoCombat)
	r.PUT("/settings", h.Settings)
	r.POST("/skill", h.SelectSkill)
	r.POST("/cultivation", h.Cultivate)
	r.POST("/treasure/:action", h.Treasure)
}

const roomKey = "room"

func (h *RoomHandler) requireRoom(c *gin.Context) {
	room := h.rooms.Get(mw.Room(c))
	if room == nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "room not open"})
		return
	}
	c.Set(roomKey, room)
	c.Next()
}

func roomOf(c *gin.Context) *world.Room {
	return c.MustGet(roomKey).(*world.Room)
}

// respond maps a gameplay outcome to HTTP: refused operations are 400 with
// the reason, nothing else changed.
func respond(c *gin.Context, res player.Result) {
	if !res.OK {
		c.JSON(http.StatusBadRequest, gin.H{"error": res.Reason})
		return
	}
	c.JSON(http.StatusOK, res)
}

func bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}

type openRequest struct {
	Profession string `json:"profession"`
}

// Open handles POST /api/rooms/:name. It loads the character's save or
// creates the character, and starts its simulation.
func (h *RoomHandler) Open(c *gin.Context) {
	var req openRequest
	if c.Request.ContentLength > 0 && !bind(c, &req) {
		return
	}
	room, err := h.rooms.Open(c.Request.Context(), mw.Room(c), req.Profession)
	switch {
	case errors.Is(err, world.ErrInvalidName):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case errors.Is(err, world.ErrRoomBusy):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case err != nil:
		h.logger.Warn("open room failed", zap.String("room", mw.Room(c)), zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, room.Status())
}

// Close handles DELETE /api/rooms/:name: stop, save and unload.
func (h *RoomHandler) Close(c *gin.Context) {
	if err := h.rooms.Close(c.Request.Context(), mw.Room(c)); err != nil {
		h.logger.Error("close room failed", zap.String("room", mw.Room(c)), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save failed"})
		return
	}
	c.Status(http.StatusNoContent)
}

// Status handles GET /api/rooms/:name.
func (h *RoomHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, roomOf(c).Status())
}

type inventoryView struct {
	Pages     int          `json:"pages"`
	Size      int          `json:"size"`
	Free      int          `json:"free"`
	Weight    int          `json:"weight"`
	MaxWeight int          `json:"max_weight"`
	Items     []item.Entry `json:"items"`
}

// Inventory handles GET /api/rooms/:name/inventory.
func (h *RoomHandler) Inventory(c *gin.Context) {
	var v inventoryView
	roomOf(c).View(func(ch *player.Character) {
		inv := ch.Inventory
		v = inventoryView{
			Pages:     inv.UnlockedPages(),
			Size:      inv.Size(),
			Free:      inv.FreeSlots(),
			Weight:    inv.CurrentWeight(),
			MaxWeight: inv.MaxWeight(),
		}
		for _, e := range inv.Items() {
			v.Items = append(v.Items, item.Entry{Index: e.Index, Item: snapshot(e.Item)})
		}
	})
	if v.Items == nil {
		v.Items = []item.Entry{}
	}
	c.JSON(http.StatusOK, v)
}

// snapshot copies an item for encoding outside the room lock.
func snapshot(it *item.Item) *item.Item {
	cp := it.Clone()
	cp.ID = it.ID
	return cp
}

type slotView struct {
	Slot    item.Slot  `json:"slot"`
	Item    *item.Item `json:"item,omitempty"`
	Forging int        `json:"forging"`
}

// Equipment handles GET /api/rooms/:name/equipment.
func (h *RoomHandler) Equipment(c *gin.Context) {
	var (
		slots    []slotView
		stats    player.Stats
		fullBody int
	)
	roomOf(c).View(func(ch *player.Character) {
		for _, s := range item.AllSlots {
			sv := slotView{Slot: s, Forging: ch.Equipment.Forging(s)}
			if it := ch.Equipment.Get(s); it != nil {
				sv.Item = snapshot(it)
			}
			slots = append(slots, sv)
		}
		stats = ch.Stats()
		fullBody = player.FullBodyLevel(ch.Equipment)
	})
	c.JSON(http.StatusOK, gin.H{"slots": slots, "stats": stats, "full_body": fullBody})
}

// Events handles GET /api/rooms/:name/events: everything emitted since the
// previous call.
func (h *RoomHandler) Events(c *gin.Context) {
	evs := roomOf(c).Drain()
	if evs == nil {
		evs = []battle.Envelope{}
	}
	c.JSON(http.StatusOK, gin.H{"events": evs})
}

type equipRequest struct {
	Index int       `json:"index"`
	Slot  item.Slot `json:"slot"`
}

// Equip handles POST /api/rooms/:name/equip. An empty slot picks one.
func (h *RoomHandler) Equip(c *gin.Context) {
	var req equipRequest
	if !bind(c, &req) {
		return
	}
	respond(c, roomOf(c).Do(func(ch *player.Character) player.Result {
		return ch.Equip(req.Index, req.Slot)
	}))
}

type slotRequest struct {
	Slot string `json:"slot" binding:"required"`
}

func (h *RoomHandler) bindSlot(c *gin.Context) (item.Slot, bool) {
	var req slotRequest
	if !bind(c, &req) {
		return "", false
	}
	slot, err := item.ParseSlot(req.Slot)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return "", false
	}
	return slot, true
}

// Unequip handles POST /api/rooms/:name/unequip.
func (h *RoomHandler) Unequip(c *gin.Context) {
	slot, ok := h.bindSlot(c)
	if !ok {
		return
	}
	respond(c, roomOf(c).Do(func(ch *player.Character) player.Result {
		return ch.Unequip(slot)
	}))
}

// Forge handles POST /api/rooms/:name/forge.
func (h *RoomHandler) Forge(c *gin.Context) {
	slot, ok := h.bindSlot(c)
	if !ok {
		return
	}
	respond(c, roomOf(c).Do(func(ch *player.Character) player.Result {
		return ch.Forge(slot)
	}))
}

type enhanceRequest struct {
	ID string `json:"id" binding:"required"`
}

// Enhance handles POST /api/rooms/:name/enhance. It charges gold and
// upgrade stones.
func (h *RoomHandler) Enhance(c *gin.Context) {
	var req enhanceRequest
	if !bind(c, &req) {
		return
	}
	id, err := uuid.Parse(req.ID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	respond(c, roomOf(c).Do(func(ch *player.Character) player.Result {
		return ch.EnhanceWithPayment(id)
	}))
}

// Sort handles POST /api/rooms/:name/sort.
func (h *RoomHandler) Sort(c *gin.Context) {
	respond(c, roomOf(c).Do(func(ch *player.Character) player.Result {
		ch.Inventory.Sort()
		return player.Result{OK: true, Reason: "sorted"}
	}))
}

// UnlockPage handles POST /api/rooms/:name/unlock-page.
func (h *RoomHandler) UnlockPage(c *gin.Context) {
	respond(c, roomOf(c).Do(func(ch *player.Character) player.Result {
		return ch.UnlockInventoryPage()
	}))
}

type recycleRequest struct {
	Qualities []string `json:"qualities"`
}

// Recycle handles POST /api/rooms/:name/recycle. Without qualities the
// character's auto-recycle selection is used.
func (h *RoomHandler) Recycle(c *gin.Context) {
	var req recycleRequest
	if c.Request.ContentLength > 0 && !bind(c, &req) {
		return
	}
	qs := make([]item.Quality, 0, len(req.Qualities))
	for _, s := range req.Qualities {
		q, err := item.ParseQuality(s)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		qs = append(qs, q)
	}
	var rw player.Rewards
	roomOf(c).Do(func(ch *player.Character) player.Result {
		if len(qs) == 0 {
			qs = ch.Settings.RecycleQualities
		}
		rw = ch.Recycle(qs)
		return player.Result{OK: true}
	})
	c.JSON(http.StatusOK, rw)
}

type indexRequest struct {
	Index int `json:"index"`
}

// Use handles POST /api/rooms/:name/use: drink a potion or read a tome.
func (h *RoomHandler) Use(c *gin.Context) {
	var req indexRequest
	if !bind(c, &req) {
		return
	}
	respond(c, roomOf(c).Do(func(ch *player.Character) player.Result {
		return ch.UseItem(req.Index)
	}))
}

// Lock handles POST /api/rooms/:name/lock: toggle the recycle lock.
func (h *RoomHandler) Lock(c *gin.Context) {
	var req indexRequest
	if !bind(c, &req) {
		return
	}
	respond(c, roomOf(c).Do(func(ch *player.Character) player.Result {
		return ch.ToggleLock(req.Index)
	}))
}

type buyRequest struct {
	Key string `json:"key" binding:"required"`
	Qty int    `json:"qty"`
}

// Buy handles POST /api/rooms/:name/buy.
func (h *RoomHandler) Buy(c *gin.Context) {
	var req buyRequest
	if !bind(c, &req) {
		return
	}
	if req.Qty <= 0 {
		req.Qty = 1
	}
	respond(c, roomOf(c).Do(func(ch *player.Character) player.Result {
		return ch.Buy(req.Key, req.Qty)
	}))
}

type pointRequest struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Move handles POST /api/rooms/:name/move: set a manual destination.
func (h *RoomHandler) Move(c *gin.Context) {
	var req pointRequest
	if !bind(c, &req) {
		return
	}
	respond(c, roomOf(c).MoveTo(req.X, req.Y))
}

// Step handles POST /api/rooms/:name/step with a unit offset.
func (h *RoomHandler) Step(c *gin.Context) {
	var req pointRequest
	if !bind(c, &req) {
		return
	}
	respond(c, roomOf(c).Step(req.X, req.Y))
}

type targetRequest struct {
	ID int64 `json:"id" binding:"required"`
}

// Target handles POST /api/rooms/:name/target.
func (h *RoomHandler) Target(c *gin.Context) {
	var req targetRequest
	if !bind(c, &req) {
		return
	}
	respond(c, roomOf(c).SetTarget(req.ID))
}

type travelRequest struct {
	Map string `json:"map" binding:"required"`
}

// Travel handles POST /api/rooms/:name/travel.
func (h *RoomHandler) Travel(c *gin.Context) {
	var req travelRequest
	if !bind(c, &req) {
		return
	}
	respond(c, roomOf(c).Travel(req.Map))
}

type toggleRequest struct {
	Enabled bool `json:"enabled"`
}

// AutoCombat handles POST /api/rooms/:name/autocombat.
func (h *RoomHandler) AutoCombat(c *gin.Context) {
	var req toggleRequest
	if !bind(c, &req) {
		return
	}
	roomOf(c).SetAutoCombat(req.Enabled)
	c.JSON(http.StatusOK, gin.H{"auto_combat": req.Enabled})
}

// Settings handles PUT /api/rooms/:name/settings, replacing the automation
// settings wholesale. Thresholds are percentages.
func (h *RoomHandler) Settings(c *gin.Context) {
	var s player.Settings
	if !bind(c, &s) {
		return
	}
	if s.HPThreshold < 0 || s.HPThreshold > 100 || s.MPThreshold < 0 || s.MPThreshold > 100 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "thresholds are percentages"})
		return
	}
	roomOf(c).Do(func(ch *player.Character) player.Result {
		ch.Settings = s
		return player.Result{OK: true}
	})
	c.JSON(http.StatusOK, s)
}

type skillRequest struct {
	Key string `json:"key"`
}

// SelectSkill handles POST /api/rooms/:name/skill. An empty key clears the
// active skill.
func (h *RoomHandler) SelectSkill(c *gin.Context) {
	var req skillRequest
	if !bind(c, &req) {
		return
	}
	respond(c, roomOf(c).Do(func(ch *player.Character) player.Result {
		if !ch.Skills.SetActive(req.Key) {
			return player.Result{Reason: "skill not learned"}
		}
		return player.Result{OK: true, Reason: "active skill " + ch.Skills.ActiveKey()}
	}))
}

type cultivateRequest struct {
	Path   string `json:"path"`
	Points int    `json:"points"`
}

// Cultivate handles POST /api/rooms/:name/cultivation: choose a path, or
// spend points on the chosen one.
func (h *RoomHandler) Cultivate(c *gin.Context) {
	var req cultivateRequest
	if !bind(c, &req) {
		return
	}
	if req.Path == "" {
		respond(c, roomOf(c).Do(func(ch *player.Character) player.Result {
			return ch.AddCultivationPoints(req.Points)
		}))
		return
	}
	p, err := player.ParsePath(req.Path)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	respond(c, roomOf(c).Do(func(ch *player.Character) player.Result {
		return ch.Cultivate(p)
	}))
}

// Treasure handles POST /api/rooms/:name/treasure/:action.
func (h *RoomHandler) Treasure(c *gin.Context) {
	respond(c, roomOf(c).Treasure(world.TreasureAction(c.Param("action"))))
}
