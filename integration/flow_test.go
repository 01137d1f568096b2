package integration

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	apirest "github.com/kasuganosora/miridle/server/api/rest"
	"github.com/kasuganosora/miridle/server/game/world"
	"github.com/kasuganosora/miridle/server/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// waitFor returns the first streamed event with the given name.
func waitFor(t *testing.T, events <-chan StreamEvent, name string, timeout time.Duration) StreamEvent {
	t.Helper()
	deadline := time.After(timeout)
	for {
		select {
		case ev, ok := <-events:
			require.True(t, ok, "stream closed before %q", name)
			if ev.Name == name {
				return ev
			}
		case <-deadline:
			t.Fatalf("no %q event within %s", name, timeout)
		}
	}
}

func TestHealth(t *testing.T) {
	ts := NewTestServer(t)
	resp := ts.Get(t, "/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestIdleFlow_FightStreamSaveReload(t *testing.T) {
	ts := NewTestServer(t)

	resp := ts.PostJSON(t, "/api/rooms/hero", map[string]string{"profession": "warrior"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, ts.Sched.Names(), "room:hero")

	events := ts.Stream(t, "hero")
	waitFor(t, events, "connected", 5*time.Second)

	resp = ts.PostJSON(t, "/api/rooms/hero/autocombat", map[string]bool{"enabled": true})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	kill := waitFor(t, events, "kill", 20*time.Second)
	var env struct {
		Type string `json:"type"`
		Data struct {
			Monster string `json:"monster"`
			XP      int    `json:"xp"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(kill.Data), &env))
	assert.Equal(t, "kill", env.Type)
	assert.NotEmpty(t, env.Data.Monster)
	assert.Positive(t, env.Data.XP)

	// The kill also reaches the audit log once the worker flushes.
	require.Eventually(t, func() bool {
		logs, err := ts.Audit.Recent(context.Background(), "hero", 10)
		return err == nil && len(logs) > 0
	}, 10*time.Second, 50*time.Millisecond)

	var before world.Status
	DecodeJSON(t, ts.Get(t, "/api/rooms/hero"), &before)
	assert.Positive(t, before.XP+before.Level-1)

	// Closing saves the character and stops its ticker.
	resp = ts.Do(t, http.MethodDelete, "/api/rooms/hero", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.NotContains(t, ts.Sched.Names(), "room:hero")
	_, err := os.Stat(filepath.Join(ts.SaveDir, "hero.sav"))
	require.NoError(t, err)

	var row model.Character
	require.NoError(t, ts.DB.Where("name = ?", "hero").First(&row).Error)
	assert.Equal(t, "warrior", row.Profession)

	// Reopening loads the save; the profession argument is ignored.
	resp = ts.PostJSON(t, "/api/rooms/hero", map[string]string{"profession": "mage"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var after world.Status
	DecodeJSON(t, resp, &after)
	assert.GreaterOrEqual(t, after.Level, before.Level)
	assert.Equal(t, row.Level, after.Level)
}

func TestQuestProgressFromKills(t *testing.T) {
	ts := NewTestServer(t)
	resp := ts.PostJSON(t, "/api/rooms/hunter", map[string]string{"profession": "warrior"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	for _, key := range []string{"hen_hunt", "village_pests"} {
		resp = ts.PostJSON(t, "/api/rooms/hunter/quests/"+key, nil)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}
	resp = ts.PostJSON(t, "/api/rooms/hunter/autocombat", map[string]bool{"enabled": true})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.Eventually(t, func() bool {
		var body struct {
			Quests []struct {
				Progress map[string]int `json:"progress"`
			} `json:"quests"`
		}
		r := ts.Get(t, "/api/rooms/hunter/quests")
		if r.StatusCode != http.StatusOK {
			return false
		}
		DecodeJSON(t, r, &body)
		for _, q := range body.Quests {
			for _, n := range q.Progress {
				if n > 0 {
					return true
				}
			}
		}
		return false
	}, 20*time.Second, 100*time.Millisecond)
}

func TestRankingAfterSave(t *testing.T) {
	ts := NewTestServer(t)
	for _, name := range []string{"ann", "ben"} {
		resp := ts.PostJSON(t, "/api/rooms/"+name, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}
	require.NoError(t, ts.Rooms.SaveAll(context.Background()))

	n, err := ts.Ranking.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	var body struct {
		Ranking []apirest.RankEntry `json:"ranking"`
	}
	DecodeJSON(t, ts.Get(t, "/api/ranking/level"), &body)
	require.Len(t, body.Ranking, 2)
	assert.Equal(t, "warrior", body.Ranking[0].Profession)
}
