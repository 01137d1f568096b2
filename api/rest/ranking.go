package rest

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/miridle/server/cache"
	"github.com/kasuganosora/miridle/server/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RankingHandler serves the level leaderboard from a cache sorted set,
// rebuilt from the character summaries.
type RankingHandler struct {
	db     *gorm.DB
	cache  cache.Cache
	logger *zap.Logger
}

// NewRankingHandler creates a RankingHandler.
func NewRankingHandler(db *gorm.DB, c cache.Cache, logger *zap.Logger) *RankingHandler {
	return &RankingHandler{db: db, cache: c, logger: logger}
}

const (
	rankingZKey = "ranking:level"
	rankingTop  = 100
	// Experience within a level never reaches this, so level dominates.
	levelWeight = 1e9
)

func rankScore(level int, xp int64) float64 {
	return float64(level)*levelWeight + float64(xp)
}

// RankEntry is one row in the leaderboard.
type RankEntry struct {
	Rank       int    `json:"rank"`
	Name       string `json:"name"`
	Profession string `json:"profession"`
	Level      int    `json:"level"`
	XP         int64  `json:"xp"`
}

// Refresh rebuilds the sorted set from the database and returns how many
// characters it ranked. The scheduler calls it periodically.
func (h *RankingHandler) Refresh(ctx context.Context) (int, error) {
	var chars []model.Character
	err := h.db.WithContext(ctx).
		Select("name, level, xp").
		Order("level DESC, xp DESC").
		Limit(rankingTop).
		Find(&chars).Error
	if err != nil {
		return 0, err
	}
	for _, ch := range chars {
		if err := h.cache.ZAdd(ctx, rankingZKey, rankScore(ch.Level, ch.XP), ch.Name); err != nil {
			return 0, err
		}
	}
	return len(chars), nil
}

// TopLevel returns the top characters by level, then experience.
// GET /api/ranking/level?limit=20
func (h *RankingHandler) TopLevel(c *gin.Context) {
	limit := 20
	if l, err := strconv.Atoi(c.Query("limit")); err == nil && l > 0 && l <= rankingTop {
		limit = l
	}
	ctx := c.Request.Context()

	// Try cached ranking from sorted set.
	members, err := h.cache.ZRevRange(ctx, rankingZKey, 0, int64(limit-1))
	if err == nil && len(members) > 0 {
		entries := make([]RankEntry, len(members))
		for i, m := range members {
			entries[i] = RankEntry{Rank: i + 1, Name: m}
		}
		h.enrich(ctx, entries)
		c.JSON(http.StatusOK, gin.H{"ranking": entries})
		return
	}
	if err != nil {
		h.logger.Warn("ranking cache unavailable", zap.Error(err))
	}

	// Fall back to DB query.
	var chars []model.Character
	if err := h.db.WithContext(ctx).
		Select("name, profession, level, xp").
		Order("level DESC, xp DESC").
		Limit(limit).
		Find(&chars).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}
	entries := make([]RankEntry, len(chars))
	for i, ch := range chars {
		entries[i] = RankEntry{Rank: i + 1, Name: ch.Name, Profession: ch.Profession, Level: ch.Level, XP: ch.XP}
		// Refresh cache entry.
		_ = h.cache.ZAdd(ctx, rankingZKey, rankScore(ch.Level, ch.XP), ch.Name)
	}
	c.JSON(http.StatusOK, gin.H{"ranking": entries})
}

// Character handles GET /api/ranking/level/:name, reading the character's
// level and experience back out of its cached score.
func (h *RankingHandler) Character(c *gin.Context) {
	name := c.Param("name")
	score, err := h.cache.ZScore(c.Request.Context(), rankingZKey, name)
	if cache.IsNotFound(err) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not ranked"})
		return
	}
	if err != nil {
		h.logger.Warn("ranking score lookup failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "cache error"})
		return
	}
	level := int(score / levelWeight)
	c.JSON(http.StatusOK, RankEntry{
		Name:  name,
		Level: level,
		XP:    int64(score - float64(level)*levelWeight),
	})
}

// RefreshRanking handles POST /api/admin/ranking/refresh.
func (h *RankingHandler) RefreshRanking(c *gin.Context) {
	n, err := h.Refresh(c.Request.Context())
	if err != nil {
		h.logger.Error("ranking refresh failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "refresh failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"refreshed": n})
}

func (h *RankingHandler) enrich(ctx context.Context, entries []RankEntry) {
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	var chars []model.Character
	if err := h.db.WithContext(ctx).
		Select("name, profession, level, xp").
		Where("name IN ?", names).
		Find(&chars).Error; err != nil {
		h.logger.Warn("ranking enrich failed", zap.Error(err))
		return
	}
	byName := make(map[string]model.Character, len(chars))
	for _, ch := range chars {
		byName[ch.Name] = ch
	}
	for i := range entries {
		if ch, ok := byName[entries[i].Name]; ok {
			entries[i].Profession = ch.Profession
			entries[i].Level = ch.Level
			entries[i].XP = ch.XP
		}
	}
}
