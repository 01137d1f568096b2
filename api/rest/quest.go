package rest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/miridle/server/game/player"
	"github.com/kasuganosora/miridle/server/game/quest"
	"go.uber.org/zap"
)

// QuestHandler lists and accepts kill quests for an open room.
type QuestHandler struct {
	quests *quest.Service
	logger *zap.Logger
}

// NewQuestHandler creates a QuestHandler.
func NewQuestHandler(quests *quest.Service, logger *zap.Logger) *QuestHandler {
	return &QuestHandler{quests: quests, logger: logger}
}

// Register mounts the quest routes on the rooms group of h.
func (h *QuestHandler) Register(rooms *RoomHandler, g *gin.RouterGroup) {
	r := g.Group("/rooms/:name/quests", rooms.requireRoom)
	r.GET("", h.List)
	r.POST("/:key", h.Accept)
}

func charID(c *gin.Context) int64 {
	var id int64
	roomOf(c).View(func(ch *player.Character) { id = ch.ID })
	return id
}

// List handles GET /api/rooms/:name/quests.
func (h *QuestHandler) List(c *gin.Context) {
	sts, err := h.quests.List(c.Request.Context(), charID(c))
	if err != nil {
		h.logger.Error("list quests failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if sts == nil {
		sts = []quest.Status{}
	}
	c.JSON(http.StatusOK, gin.H{"quests": sts})
}

// Accept handles POST /api/rooms/:name/quests/:key.
func (h *QuestHandler) Accept(c *gin.Context) {
	err := h.quests.Accept(c.Request.Context(), charID(c), c.Param("key"))
	switch {
	case errors.Is(err, quest.ErrUnknownQuest):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, quest.ErrAlreadyAccepted):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case err != nil:
		h.logger.Error("accept quest failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	default:
		c.JSON(http.StatusCreated, gin.H{"accepted": c.Param("key")})
	}
}
