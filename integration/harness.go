// Package integration runs the HTTP server end to end against in-memory
// infrastructure.
package integration

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	apirest "github.com/kasuganosora/miridle/server/api/rest"
	"github.com/kasuganosora/miridle/server/api/sse"
	"github.com/kasuganosora/miridle/server/audit"
	"github.com/kasuganosora/miridle/server/cache"
	"github.com/kasuganosora/miridle/server/config"
	"github.com/kasuganosora/miridle/server/game/item"
	"github.com/kasuganosora/miridle/server/game/loot"
	"github.com/kasuganosora/miridle/server/game/quest"
	"github.com/kasuganosora/miridle/server/game/save"
	"github.com/kasuganosora/miridle/server/game/world"
	"github.com/kasuganosora/miridle/server/scheduler"
	"github.com/kasuganosora/miridle/server/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// TestServer wraps a real HTTP server with every subsystem wired together.
type TestServer struct {
	DB      *gorm.DB
	Cache   cache.Cache
	PubSub  cache.PubSub
	Rooms   *world.Manager
	Audit   *audit.Service
	Ranking *apirest.RankingHandler
	Sched   *scheduler.Scheduler
	SaveDir string
	Server  *httptest.Server
	URL     string
}

// NewTestServer creates a fully wired server for integration testing.
// It mirrors the dependency wiring in serve.go, with a 1ms frame.
func NewTestServer(t *testing.T) *TestServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx, cancel := context.WithCancel(context.Background())

	// ---- Infrastructure ----
	db := testutil.SetupTestDB(t)
	c, pubsub := testutil.SetupTestCache(t)
	res := testutil.SetupResources(t)
	logger := zap.NewNop()

	sec := config.SecurityConfig{
		RateLimitRPS:   1000,
		RateLimitBurst: 2000,
	}
	game := config.Default().Game
	game.TickMs = 1
	game.SaveDir = t.TempDir()

	// ---- Game Systems ----
	cat := item.NewCatalog(res)
	gen := loot.NewGenerator(loot.Config{Catalog: cat, RNG: rand.New(rand.NewSource(7))})
	saves := save.NewManager(save.NewCodec("integration-test-secret"),
		save.NewFileStore(game.SaveDir), save.NewMigrator(gen, game.StartMap, logger), logger)
	saves.SetSummarizer(save.NewDBStore(db))

	auditSvc := audit.New(db, logger)
	questSvc := quest.NewService(db, quest.DefaultDefs(), logger)
	publisher := sse.NewPublisher(pubsub, logger)
	go publisher.Run(ctx)

	sched := scheduler.New(logger)
	rooms := world.NewManager(world.ManagerConfig{
		Resources: res,
		Catalog:   cat,
		Saves:     saves,
		Quests:    questSvc,
		Scheduler: sched,
		Game:      game,
		Sinks:     []world.Sink{auditSvc.Sink, publisher.Sink},
		Leases:    c,
		Logger:    logger,
	})
	rankH := apirest.NewRankingHandler(db, c, logger)

	// ---- HTTP (mirrors serve.go) ----
	router := apirest.NewRouter(ctx, apirest.Handlers{
		Rooms:   apirest.NewRoomHandler(rooms, logger),
		Quests:  apirest.NewQuestHandler(questSvc, logger),
		Ranking: rankH,
		Admin:   apirest.NewAdminHandler(rooms, sched, auditSvc, logger),
		Stream:  sse.NewHandler(pubsub, sec, logger).Stream,
	}, sec, logger)
	server := httptest.NewServer(router)

	ts := &TestServer{
		DB:      db,
		Cache:   c,
		PubSub:  pubsub,
		Rooms:   rooms,
		Audit:   auditSvc,
		Ranking: rankH,
		Sched:   sched,
		SaveDir: game.SaveDir,
		Server:  server,
		URL:     server.URL,
	}
	t.Cleanup(func() {
		server.Close()
		sched.Stop()
		_ = rooms.CloseAll(context.Background())
		auditSvc.Stop(context.Background())
		cancel()
	})
	return ts
}

// --- HTTP helpers ---

// Do sends a request with an optional JSON body.
func (ts *TestServer) Do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, ts.URL+path, rd)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

// PostJSON sends a POST request with a JSON body.
func (ts *TestServer) PostJSON(t *testing.T, path string, body any) *http.Response {
	t.Helper()
	return ts.Do(t, http.MethodPost, path, body)
}

// Get sends a GET request.
func (ts *TestServer) Get(t *testing.T, path string) *http.Response {
	t.Helper()
	return ts.Do(t, http.MethodGet, path, nil)
}

// DecodeJSON reads and decodes a JSON response body into v.
func DecodeJSON(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

// StreamEvent is one server-sent event.
type StreamEvent struct {
	Name string
	Data string
}

// Stream opens the room's event stream and delivers events on the returned
// channel until the test ends.
func (ts *TestServer) Stream(t *testing.T, room string) <-chan StreamEvent {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/rooms/"+room+"/stream", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	out := make(chan StreamEvent, 1024)
	go func() {
		defer resp.Body.Close()
		defer close(out)
		br := bufio.NewReader(resp.Body)
		var ev StreamEvent
		for {
			line, err := br.ReadString('\n')
			if err != nil {
				return
			}
			line = strings.TrimRight(line, "\n")
			switch {
			case strings.HasPrefix(line, "event: "):
				ev.Name = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				ev.Data = strings.TrimPrefix(line, "data: ")
			case line == "" && ev.Name != "":
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
				ev = StreamEvent{}
			}
		}
	}()
	return out
}
