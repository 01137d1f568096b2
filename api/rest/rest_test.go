package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/miridle/server/audit"
	"github.com/kasuganosora/miridle/server/cache"
	"github.com/kasuganosora/miridle/server/config"
	"github.com/kasuganosora/miridle/server/game/item"
	"github.com/kasuganosora/miridle/server/game/loot"
	"github.com/kasuganosora/miridle/server/game/player"
	"github.com/kasuganosora/miridle/server/game/quest"
	"github.com/kasuganosora/miridle/server/game/save"
	"github.com/kasuganosora/miridle/server/game/world"
	"github.com/kasuganosora/miridle/server/model"
	"github.com/kasuganosora/miridle/server/scheduler"
	"github.com/kasuganosora/miridle/server/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testAPI struct {
	router  *gin.Engine
	rooms   *world.Manager
	db      *gorm.DB
	cache   cache.Cache
	ranking *RankingHandler
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	res := testutil.SetupResources(t)
	db := testutil.SetupTestDB(t)
	c, _ := testutil.SetupTestCache(t)

	cat := item.NewCatalog(res)
	gen := loot.NewGenerator(loot.Config{Catalog: cat, RNG: rand.New(rand.NewSource(3))})
	saves := save.NewManager(save.NewCodec("test-secret"), save.NewDBStore(db),
		save.NewMigrator(gen, "novice_village", nil), nil)
	quests := quest.NewService(db, quest.DefaultDefs(), nil)
	events := audit.New(db, nil)
	t.Cleanup(func() { events.Stop(context.Background()) })
	rooms := world.NewManager(world.ManagerConfig{
		Resources: res,
		Catalog:   cat,
		Saves:     saves,
		Quests:    quests,
		Game:      config.Default().Game,
		Sinks:     []world.Sink{events.Sink},
	})
	sched := scheduler.New(nil)
	t.Cleanup(sched.Stop)

	rank := NewRankingHandler(db, c, zap.NewNop())
	r := NewRouter(context.Background(), Handlers{
		Rooms:   NewRoomHandler(rooms, zap.NewNop()),
		Quests:  NewQuestHandler(quests, zap.NewNop()),
		Ranking: rank,
		Admin:   NewAdminHandler(rooms, sched, events, zap.NewNop()),
	}, config.SecurityConfig{}, zap.NewNop())
	return &testAPI{router: r, rooms: rooms, db: db, cache: c, ranking: rank}
}

func (a *testAPI) do(method, path string, body any, remote ...string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if len(remote) > 0 {
		req.RemoteAddr = remote[0]
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func (a *testAPI) open(t *testing.T, name, prof string) *world.Room {
	t.Helper()
	w := a.do(http.MethodPost, "/api/rooms/"+name, gin.H{"profession": prof})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	r := a.rooms.Get(name)
	require.NotNil(t, r)
	return r
}

func TestHealth(t *testing.T) {
	a := newTestAPI(t)
	w := a.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRoom_OpenStatusClose(t *testing.T) {
	a := newTestAPI(t)
	w := a.do(http.MethodPost, "/api/rooms/alice", gin.H{"profession": "mage"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var st world.Status
	decode(t, w, &st)
	assert.Equal(t, "alice", st.Name)
	assert.Equal(t, "novice_village", st.Map)
	assert.Equal(t, 1, st.Level)
	assert.NotEmpty(t, st.Monsters)

	// Opening without a body uses the default class.
	w = a.do(http.MethodPost, "/api/rooms/bob", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = a.do(http.MethodGet, "/api/rooms/alice", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = a.do(http.MethodDelete, "/api/rooms/alice", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = a.do(http.MethodGet, "/api/rooms/alice", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	var row model.Character
	require.NoError(t, a.db.Where("name = ?", "alice").First(&row).Error)
	assert.Equal(t, "mage", row.Profession)
}

func TestRoom_OpenRejectsUnknownProfession(t *testing.T) {
	a := newTestAPI(t)
	w := a.do(http.MethodPost, "/api/rooms/carol", gin.H{"profession": "bard"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Nil(t, a.rooms.Get("carol"))
}

func TestRoom_UnopenedIs404(t *testing.T) {
	a := newTestAPI(t)
	for _, p := range []string{"/api/rooms/nobody", "/api/rooms/nobody/inventory", "/api/rooms/nobody/quests"} {
		w := a.do(http.MethodGet, p, nil)
		assert.Equal(t, http.StatusNotFound, w.Code, p)
	}
}

func TestRoom_BuyUseAndInventory(t *testing.T) {
	a := newTestAPI(t)
	r := a.open(t, "alice", "warrior")
	r.Do(func(c *player.Character) player.Result {
		c.Gold = 1000
		c.HP = 1
		return player.Result{OK: true}
	})

	w := a.do(http.MethodPost, "/api/rooms/alice/buy", gin.H{"key": "small_hp_potion", "qty": 2})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = a.do(http.MethodGet, "/api/rooms/alice/inventory", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var inv inventoryView
	decode(t, w, &inv)
	require.Len(t, inv.Items, 1)
	assert.Equal(t, "small_hp_potion", inv.Items[0].Item.Key)
	assert.Equal(t, 2, inv.Items[0].Item.Count)
	assert.Equal(t, inv.Size-1, inv.Free)

	w = a.do(http.MethodPost, "/api/rooms/alice/use", gin.H{"index": inv.Items[0].Index})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	r.View(func(c *player.Character) {
		assert.Equal(t, 1000-2*88, c.Gold)
		assert.Equal(t, 31, c.HP)
	})

	// Gear is not sold.
	w = a.do(http.MethodPost, "/api/rooms/alice/buy", gin.H{"key": "wooden_sword"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRoom_RefusedCommandIs400WithReason(t *testing.T) {
	a := newTestAPI(t)
	a.open(t, "alice", "warrior")

	w := a.do(http.MethodPost, "/api/rooms/alice/equip", gin.H{"index": 5})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "empty")

	w = a.do(http.MethodPost, "/api/rooms/alice/unequip", gin.H{"slot": "tail"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do(http.MethodPost, "/api/rooms/alice/enhance", gin.H{"id": "not-a-uuid"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do(http.MethodPost, "/api/rooms/alice/travel", gin.H{"map": "atlantis"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRoom_EquipAndEquipment(t *testing.T) {
	a := newTestAPI(t)
	r := a.open(t, "alice", "warrior")
	var idx int
	r.Do(func(c *player.Character) player.Result {
		c.Level = 20
		c.Recalculate()
		it, err := c.Catalog().Blank("eight_wastes", item.Common)
		require.NoError(t, err)
		it.Weight = 10
		it.Stats = map[string]int{"attack": 17}
		require.True(t, c.Inventory.Add(it))
		idx = c.Inventory.IndexOf(it.ID)
		return player.Result{OK: true}
	})

	w := a.do(http.MethodPost, "/api/rooms/alice/equip", gin.H{"index": idx})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = a.do(http.MethodGet, "/api/rooms/alice/equipment", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var eq struct {
		Slots []slotView `json:"slots"`
	}
	decode(t, w, &eq)
	require.Len(t, eq.Slots, len(item.AllSlots))
	var weapon *item.Item
	for _, s := range eq.Slots {
		if s.Slot == item.SlotWeapon {
			weapon = s.Item
		}
	}
	require.NotNil(t, weapon)
	assert.Equal(t, "eight_wastes", weapon.Key)

	w = a.do(http.MethodPost, "/api/rooms/alice/unequip", gin.H{"slot": "weapon"})
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestRoom_SettingsValidation(t *testing.T) {
	a := newTestAPI(t)
	r := a.open(t, "alice", "taoist")
	w := a.do(http.MethodPut, "/api/rooms/alice/settings", gin.H{"hp_threshold": 150})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do(http.MethodPost, "/api/rooms/alice/autocombat", gin.H{"enabled": true})
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, r.Status().AutoCombat)
}

func TestRoom_EventsDrain(t *testing.T) {
	a := newTestAPI(t)
	r := a.open(t, "alice", "warrior")
	r.Drain()
	r.Travel("mine")

	w := a.do(http.MethodGet, "/api/rooms/alice/events", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Events []json.RawMessage `json:"events"`
	}
	decode(t, w, &body)
	assert.NotEmpty(t, body.Events)

	w = a.do(http.MethodGet, "/api/rooms/alice/events", nil)
	decode(t, w, &body)
	assert.Empty(t, body.Events)
}

func TestQuests_AcceptAndList(t *testing.T) {
	a := newTestAPI(t)
	a.open(t, "alice", "warrior")

	w := a.do(http.MethodPost, "/api/rooms/alice/quests/hen_hunt", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = a.do(http.MethodPost, "/api/rooms/alice/quests/hen_hunt", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	w = a.do(http.MethodPost, "/api/rooms/alice/quests/dragon_hunt", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = a.do(http.MethodGet, "/api/rooms/alice/quests", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Quests []quest.Status `json:"quests"`
	}
	decode(t, w, &body)
	require.Len(t, body.Quests, 1)
	assert.Equal(t, "hen_hunt", body.Quests[0].Key)
	assert.False(t, body.Quests[0].Completed)
}

func seedCharacters(t *testing.T, db *gorm.DB) {
	t.Helper()
	for _, ch := range []model.Character{
		{Name: "low", Profession: "mage", Level: 3, XP: 900},
		{Name: "mid", Profession: "taoist", Level: 10, XP: 5},
		{Name: "top", Profession: "warrior", Level: 10, XP: 50},
	} {
		require.NoError(t, db.Create(&ch).Error)
	}
}

func TestRanking_DBFallbackFillsCache(t *testing.T) {
	a := newTestAPI(t)
	seedCharacters(t, a.db)

	w := a.do(http.MethodGet, "/api/ranking/level?limit=2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Ranking []RankEntry `json:"ranking"`
	}
	decode(t, w, &body)
	require.Len(t, body.Ranking, 2)
	assert.Equal(t, "top", body.Ranking[0].Name)
	assert.Equal(t, "mid", body.Ranking[1].Name)

	members, err := a.cache.ZRevRange(context.Background(), rankingZKey, 0, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"top", "mid"}, members)
}

func TestRanking_RefreshThenServeFromCache(t *testing.T) {
	a := newTestAPI(t)
	seedCharacters(t, a.db)

	n, err := a.ranking.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	w := a.do(http.MethodGet, "/api/ranking/level", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Ranking []RankEntry `json:"ranking"`
	}
	decode(t, w, &body)
	require.Len(t, body.Ranking, 3)
	assert.Equal(t, []string{"top", "mid", "low"},
		[]string{body.Ranking[0].Name, body.Ranking[1].Name, body.Ranking[2].Name})
	assert.Equal(t, "warrior", body.Ranking[0].Profession, "entries are enriched from the database")
	assert.Equal(t, int64(900), body.Ranking[2].XP)
}

func TestRanking_CharacterFromScore(t *testing.T) {
	a := newTestAPI(t)
	seedCharacters(t, a.db)
	_, err := a.ranking.Refresh(context.Background())
	require.NoError(t, err)

	w := a.do(http.MethodGet, "/api/ranking/level/low", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var e RankEntry
	decode(t, w, &e)
	assert.Equal(t, 3, e.Level)
	assert.Equal(t, int64(900), e.XP)

	w = a.do(http.MethodGet, "/api/ranking/level/nobody", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRankScore_LevelDominates(t *testing.T) {
	assert.Greater(t, rankScore(5, 0), rankScore(4, 999_999))
}

func TestAdmin_LoopbackOnly(t *testing.T) {
	a := newTestAPI(t)
	w := a.do(http.MethodGet, "/api/admin/metrics", nil, "203.0.113.9:4000")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = a.do(http.MethodGet, "/api/admin/metrics", nil, "127.0.0.1:4000")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAdmin_RoomsSaveAndTreasure(t *testing.T) {
	a := newTestAPI(t)
	a.open(t, "alice", "warrior")
	const local = "127.0.0.1:4000"

	w := a.do(http.MethodGet, "/api/admin/rooms", nil, local)
	require.Equal(t, http.StatusOK, w.Code)
	var rooms struct {
		Rooms []roomInfo `json:"rooms"`
		Count int        `json:"count"`
	}
	decode(t, w, &rooms)
	assert.Equal(t, 1, rooms.Count)
	assert.Equal(t, "alice", rooms.Rooms[0].Name)

	w = a.do(http.MethodPost, "/api/admin/save", nil, local)
	assert.Equal(t, http.StatusOK, w.Code)

	w = a.do(http.MethodPost, "/api/admin/rooms/alice/treasure", nil, local)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = a.do(http.MethodPost, "/api/admin/rooms/alice/treasure", nil, local)
	assert.Equal(t, http.StatusConflict, w.Code)
	w = a.do(http.MethodPost, "/api/admin/rooms/ghost/treasure", nil, local)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// The player has not stepped on the marker yet.
	w = a.do(http.MethodPost, "/api/rooms/alice/treasure/decline", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "no treasure awaiting")
}

func TestAdmin_RoomEvents(t *testing.T) {
	a := newTestAPI(t)
	const local = "127.0.0.1:4000"
	for i := range 3 {
		require.NoError(t, a.db.Create(&model.EventLog{Room: "alice", Type: "kill", Frame: uint64(i)}).Error)
	}

	w := a.do(http.MethodGet, "/api/admin/rooms/alice/events?limit=2", nil, local)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Events []model.EventLog `json:"events"`
	}
	decode(t, w, &body)
	require.Len(t, body.Events, 2)
	assert.Equal(t, uint64(2), body.Events[0].Frame)

	w = a.do(http.MethodGet, "/api/admin/rooms/alice/events?limit=x", nil, local)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do(http.MethodGet, "/api/admin/metrics", nil, local)
	assert.Contains(t, w.Body.String(), "audit_dropped")
}
