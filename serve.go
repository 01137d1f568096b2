package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	apirest "github.com/kasuganosora/miridle/server/api/rest"
	"github.com/kasuganosora/miridle/server/api/sse"
	"github.com/kasuganosora/miridle/server/audit"
	"github.com/kasuganosora/miridle/server/cache"
	"github.com/kasuganosora/miridle/server/config"
	dbadapter "github.com/kasuganosora/miridle/server/db"
	"github.com/kasuganosora/miridle/server/game/item"
	"github.com/kasuganosora/miridle/server/game/loot"
	"github.com/kasuganosora/miridle/server/game/quest"
	"github.com/kasuganosora/miridle/server/game/save"
	"github.com/kasuganosora/miridle/server/game/world"
	"github.com/kasuganosora/miridle/server/model"
	"github.com/kasuganosora/miridle/server/resource"
	"github.com/kasuganosora/miridle/server/scheduler"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const shutdownTimeout = 10 * time.Second

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "listen port (overrides server.port)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if servePort > 0 {
		cfg.Server.Port = servePort
	}

	// ---- Logger ----
	logger := newLogger(cfg.Server.Debug)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ---- Database ----
	db, err := dbadapter.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("db: %w", err)
	}
	if err := model.AutoMigrate(db); err != nil {
		return fmt.Errorf("db migrate: %w", err)
	}
	logger.Info("DB initialized", zap.String("mode", cfg.Database.Mode))

	// ---- Audit ----
	auditSvc := audit.New(db, logger, cfg.Audit.Types...)
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		auditSvc.Stop(stopCtx)
	}()

	// ---- Cache / PubSub ----
	c, err := cache.NewCache(cfg.Cache)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer c.Close()
	pubsub, err := cache.NewPubSub(cfg.Cache)
	if err != nil {
		return fmt.Errorf("pubsub: %w", err)
	}
	defer pubsub.Close()
	logger.Info("Cache initialized", zap.Bool("redis", cfg.Cache.RedisAddr != ""))

	// ---- Static tables ----
	res := resource.NewLoader(cfg.Resource.DataPath)
	if err := res.Load(); err != nil {
		return fmt.Errorf("resources: %w", err)
	}

	// ---- Scheduler ----
	sched := scheduler.New(logger)
	defer sched.Stop()

	// ---- Game Systems ----
	cat := item.NewCatalog(res)
	saves, err := newSaveManager(cfg.Game, db, cat, logger)
	if err != nil {
		return err
	}
	questSvc := quest.NewService(db, quest.DefaultDefs(), logger)
	publisher := sse.NewPublisher(pubsub, logger)
	rooms := world.NewManager(world.ManagerConfig{
		Resources: res,
		Catalog:   cat,
		Saves:     saves,
		Quests:    questSvc,
		Scheduler: sched,
		Game:      cfg.Game,
		Sinks:     []world.Sink{auditSvc.Sink, publisher.Sink},
		Leases:    c,
		Logger:    logger,
	})
	rankH := apirest.NewRankingHandler(db, c, logger)

	// ---- Periodic Scheduler Tasks ----
	sched.AddTicker("autosave", time.Duration(cfg.Game.AutosaveIntervalS)*time.Second, func(ctx context.Context) {
		if err := rooms.SaveAll(ctx); err != nil {
			logger.Error("autosave failed", zap.Error(err))
		}
	})
	sched.AddTicker("leases", rooms.LeaseTTL()/3, func(ctx context.Context) {
		if err := rooms.RenewLeases(ctx); err != nil {
			logger.Warn("lease renewal failed", zap.Error(err))
		}
	})
	sched.AddTicker("ranking", time.Duration(cfg.Game.RankingIntervalS)*time.Second, func(ctx context.Context) {
		if _, err := rankH.Refresh(ctx); err != nil {
			logger.Warn("ranking refresh failed", zap.Error(err))
		}
	})

	if cfg.Audit.Retention > 0 {
		sched.AddTicker("audit-prune", time.Hour, func(ctx context.Context) {
			n, err := auditSvc.Prune(ctx, time.Now().Add(-cfg.Audit.Retention))
			if err != nil {
				logger.Warn("audit prune failed", zap.Error(err))
				return
			}
			logger.Debug("audit pruned", zap.Int64("events", n))
		})
	}

	// ---- Gin HTTP Server ----
	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	sseH := sse.NewHandler(pubsub, cfg.Security, logger)
	router := apirest.NewRouter(ctx, apirest.Handlers{
		Rooms:   apirest.NewRoomHandler(rooms, logger),
		Quests:  apirest.NewQuestHandler(questSvc, logger),
		Ranking: rankH,
		Admin:   apirest.NewAdminHandler(rooms, sched, auditSvc, logger),
		Stream:  sseH.Stream,
	}, cfg.Security, logger)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return publisher.Run(gctx) })
	g.Go(func() error {
		logger.Info("Server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutCtx)
		sched.Stop()
		if cerr := rooms.CloseAll(shutCtx); cerr != nil {
			logger.Error("final save failed", zap.Error(cerr))
		}
		return err
	})
	return g.Wait()
}

// newSaveManager picks the snapshot store. File saves keep their ranking
// summaries in the database.
func newSaveManager(game config.GameConfig, db *gorm.DB, cat *item.Catalog, logger *zap.Logger) (*save.Manager, error) {
	gen := loot.NewGenerator(loot.Config{
		Catalog: cat,
		RNG:     rand.New(rand.NewSource(time.Now().UnixNano())),
		Logger:  logger,
	})
	migrator := save.NewMigrator(gen, game.StartMap, logger)
	codec := save.NewCodec(game.SaveSecret)

	switch game.SaveBackend {
	case "db":
		return save.NewManager(codec, save.NewDBStore(db), migrator, logger), nil
	case "file", "":
		m := save.NewManager(codec, save.NewFileStore(game.SaveDir), migrator, logger)
		m.SetSummarizer(save.NewDBStore(db))
		return m, nil
	default:
		return nil, fmt.Errorf("unknown save backend %q", game.SaveBackend)
	}
}
