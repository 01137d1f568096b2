package testutil

import (
	"testing"

	"github.com/kasuganosora/miridle/server/cache"
	"github.com/kasuganosora/miridle/server/config"
	dbadapter "github.com/kasuganosora/miridle/server/db"
	"github.com/kasuganosora/miridle/server/model"
	"github.com/kasuganosora/miridle/server/resource"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// SetupTestDB creates a private in-memory SQLite DB and runs AutoMigrate.
// It requires no external services and is safe to use in parallel tests.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := dbadapter.Open(config.DatabaseConfig{Mode: dbadapter.ModeMemory})
	require.NoError(t, err, "SetupTestDB: Open")
	require.NoError(t, model.AutoMigrate(db), "SetupTestDB: AutoMigrate")
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// SetupTestCache creates LocalCache and LocalPubSub (no Redis required).
func SetupTestCache(t *testing.T) (cache.Cache, cache.PubSub) {
	t.Helper()
	var cfg config.CacheConfig // no RedisAddr: in-process backends
	c, err := cache.NewCache(cfg)
	require.NoError(t, err, "SetupTestCache: NewCache")
	ps, err := cache.NewPubSub(cfg)
	require.NoError(t, err, "SetupTestCache: NewPubSub")
	t.Cleanup(func() {
		_ = c.Close()
		_ = ps.Close()
	})
	return c, ps
}

// SetupResources loads the embedded static tables.
func SetupResources(t *testing.T) *resource.ResourceLoader {
	t.Helper()
	res, err := resource.Default()
	require.NoError(t, err, "SetupResources")
	return res
}
