package rest

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/miridle/server/config"
	mw "github.com/kasuganosora/miridle/server/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Handlers is everything NewRouter mounts. Stream is optional.
type Handlers struct {
	Rooms   *RoomHandler
	Quests  *QuestHandler
	Ranking *RankingHandler
	Admin   *AdminHandler
	Stream  gin.HandlerFunc
}

const streamPath = "/api/rooms/:name/stream"

// NewRouter builds the HTTP engine. ctx bounds background middleware work.
func NewRouter(ctx context.Context, h Handlers, sec config.SecurityConfig, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(mw.TraceID(), mw.Logger(logger, streamPath), mw.Recovery(logger))
	if sec.RateLimitRPS > 0 {
		r.Use(mw.RateLimit(ctx, rate.Limit(sec.RateLimitRPS), sec.RateLimitBurst, mw.ByRoom))
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	h.Rooms.Register(api)
	if h.Quests != nil {
		h.Quests.Register(h.Rooms, api)
	}
	if h.Stream != nil {
		api.GET("/rooms/:name/stream", h.Stream)
	}
	if h.Ranking != nil {
		api.GET("/ranking/level", h.Ranking.TopLevel)
		api.GET("/ranking/level/:name", h.Ranking.Character)
	}

	if h.Admin != nil {
		adminG := api.Group("/admin", mw.AdminOnly(sec.AdminIPs, logger))
		adminG.GET("/metrics", h.Admin.Metrics)
		adminG.GET("/rooms", h.Admin.ListRooms)
		adminG.POST("/save", h.Admin.SaveAll)
		adminG.POST("/rooms/:name/treasure", h.Admin.SpawnTreasure)
		adminG.GET("/rooms/:name/events", h.Admin.RoomEvents)
		adminG.GET("/scheduler", h.Admin.ListSchedulerTasks)
		if h.Ranking != nil {
			adminG.POST("/ranking/refresh", h.Ranking.RefreshRanking)
		}
	}
	return r
}
