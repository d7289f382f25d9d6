package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	apirest "github.com/hellasmmo/server/api/rest"
	"github.com/hellasmmo/server/audit"
	"github.com/hellasmmo/server/cache"
	"github.com/hellasmmo/server/config"
	dbadapter "github.com/hellasmmo/server/db"
	"github.com/hellasmmo/server/game/ai"
	"github.com/hellasmmo/server/game/city"
	"github.com/hellasmmo/server/game/combat"
	"github.com/hellasmmo/server/game/entity"
	"github.com/hellasmmo/server/game/item"
	"github.com/hellasmmo/server/game/party"
	"github.com/hellasmmo/server/game/spell"
	"github.com/hellasmmo/server/game/stats"
	"github.com/hellasmmo/server/game/talent"
	"github.com/hellasmmo/server/game/war"
	"github.com/hellasmmo/server/game/world"
	"github.com/hellasmmo/server/model"
	"github.com/hellasmmo/server/plugin/hook"
	"github.com/hellasmmo/server/resource"
	"github.com/hellasmmo/server/scheduler"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfgPath := "config/config.yaml"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// ---- Logger ----
	var logger *zap.Logger
	var logErr error
	if cfg.Server.Debug {
		logger, logErr = zap.NewDevelopment()
	} else {
		logger, logErr = zap.NewProduction()
	}
	if logErr != nil {
		log.Fatalf("logger: %v", logErr)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---- Database ----
	db, err := dbadapter.Open(cfg.Database)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	if err := model.AutoMigrate(db); err != nil {
		log.Fatalf("db migrate: %v", err)
	}
	logger.Info("DB initialized", zap.String("mode", cfg.Database.Mode))

	// ---- Audit ----
	auditSvc := audit.New(db, logger)
	defer auditSvc.Stop(context.Background())

	// ---- Cache / PubSub ----
	cacheConfig := cache.CacheConfig{
		RedisAddr:       cfg.Cache.RedisAddr,
		RedisPassword:   cfg.Cache.RedisPassword,
		RedisDB:         cfg.Cache.RedisDB,
		LocalGCInterval: cfg.Cache.LocalGCInterval,
		LocalPubSubBuf:  cfg.Cache.LocalPubSubBuf,
	}
	c, err := cache.NewCache(cacheConfig)
	if err != nil {
		log.Fatalf("cache: %v", err)
	}
	defer c.Close()
	pubsub, err := cache.NewPubSub(cacheConfig)
	if err != nil {
		log.Fatalf("pubsub: %v", err)
	}
	defer pubsub.Close()
	logger.Info("Cache initialized", zap.Bool("redis", cfg.Cache.RedisAddr != ""))

	// ---- Content ----
	catalog := resource.NewCatalog(cfg.Game.ContentPath)
	if err := catalog.Load(); err != nil {
		log.Fatalf("content: %v", err)
	}
	logger.Info("Content loaded",
		zap.String("path", cfg.Game.ContentPath),
		zap.Int("spells", len(catalog.SpellIDs())),
		zap.Int("npcs", len(catalog.NPCs())))

	// ---- Wars and cities ----
	cities := city.NewRegistry()
	ledger := war.NewLedger()
	cityStore := city.NewStore(db)
	warStore := war.NewStore(db)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return cityStore.Load(gctx, cities) })
	g.Go(func() error { return warStore.Load(gctx, ledger) })
	if err := g.Wait(); err != nil {
		log.Fatalf("load state: %v", err)
	}
	for _, def := range catalog.Cities() {
		if _, ok := cities.Get(def.Name); ok {
			continue
		}
		if err := cities.Create(def.Name, def.Location, def.King); err != nil {
			logger.Warn("seed city failed", zap.String("city", def.Name), zap.Error(err))
		}
	}
	logger.Info("World state loaded", zap.Int("cities", len(cities.Names())), zap.Int("wars", ledger.Len()))

	policy, err := war.ParsePolicy(cfg.Game.BelligerentPolicy)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	relations := war.Relations{Ledger: ledger, Cities: cities, Policy: policy}

	hooks := hook.NewHookCenter()
	wars := war.NewService(ledger, cities, pubsub, auditSvc, hooks, logger)
	groups := party.NewManager(cfg.Game.MaxGroupSize, c, pubsub, logger)

	// ---- Simulation ----
	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
	params := combat.Params{
		BaseMissChance:      stats.BasisPoints(cfg.Combat.BaseMissChanceBP),
		LevelDiffChance:     stats.BasisPoints(cfg.Combat.LevelDiffChanceBP),
		LevelDiffResistance: cfg.Combat.LevelDiffResistance,
		CritMultiplier:      cfg.Combat.CritMultiplier,
		MagnitudeDeviation:  cfg.Combat.MagnitudeDeviation,
	}
	grid := world.NewGrid(catalog.Map.Width, catalog.Map.Height, catalog.Map.CellSize)
	for _, cell := range catalog.Map.Blocked {
		grid.Block(cell[0], cell[1])
	}
	dispatcher := spell.NewDispatcher(combat.NewResolver(params, rnd), spell.Deps{
		Buffs:     catalog,
		Oracle:    grid,
		Cities:    cities,
		Cooldowns: c,
		Hooks:     hooks,
		Auditor:   auditSvc,
	}, spell.Limits{
		RandomTeleportAttempts: cfg.Game.RandomTeleportAttempts,
		CityTeleportAttempts:   cfg.Game.CityTeleportAttempts,
		CityTeleportRadius:     combat.Podes(cfg.Game.CityTeleportRadius),
	}, logger)

	sched := scheduler.New(logger)
	defer sched.Stop()

	spawn := combat.Point{X: float64(catalog.Map.Width) * catalog.Map.CellSize / 2, Y: float64(catalog.Map.Height) * catalog.Map.CellSize / 2}
	sim := world.NewSimulation(world.Options{
		QueueSize:    cfg.Game.CommandQueue,
		RespawnDelay: time.Duration(cfg.Game.NPCRespawnS) * time.Second,
		UserSpawn:    spawn,
	}, dispatcher, groups, hooks, sched, rnd, logger)
	for _, def := range catalog.NPCs() {
		npc := entity.NewNPC(def.Name, def.Level, def.Stats, def.XPReward)
		npc.TeleportTo(def.Location)
		if err := sim.Add(npc); err != nil {
			logger.Warn("spawn npc failed", zap.String("npc", def.Name), zap.Error(err))
			continue
		}
		if len(def.Spells) > 0 {
			sim.SetBrain(def.Name, ai.NewBrain(catalog.NPCSpells(def), def.Interval))
		}
	}

	roster := world.NewRoster(sim, catalog, talent.NewStore(db, logger), item.NewStore(db, logger), relations, world.RosterOptions{
		Base:  stats.Block{MaxHealth: 100, MaxEnergy: 100, Speed: 1},
		Spawn: spawn,
	}, auditSvc, logger)

	saveAll := func(ctx context.Context) error {
		return errors.Join(
			warStore.Save(ctx, ledger),
			cityStore.Save(ctx, cities),
			roster.SaveAll(ctx),
		)
	}

	// ---- Periodic Scheduler Tasks ----
	sched.AddTicker("world_tick", time.Duration(cfg.Server.TickMs)*time.Millisecond, sim.Tick)
	sched.AddTicker("auto_save", time.Duration(cfg.Server.SaveIntervalS)*time.Second, func(time.Duration) {
		saveCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		if err := saveAll(saveCtx); err != nil {
			logger.Error("auto save failed", zap.Error(err))
		}
	})

	// ---- Gin HTTP Server ----
	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	r := apirest.NewRouter(ctx, apirest.Deps{
		Security: cfg.Security,
		Sessions: c,
		PubSub:   pubsub,
		Sim:      sim,
		Roster:   roster,
		Groups:   groups,
		Wars:     wars,
		Cities:   cities,
		Tickers:  sched,
		Save:     saveAll,
		Logger:   logger,
	})

	srv := &http.Server{Addr: fmt.Sprintf(":%d", cfg.Server.Port), Handler: r}
	go func() {
		logger.Info("Server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	sched.Stop()
	// Nothing ticks from here; the final save runs queued commands itself.
	sim.Stop()
	if err := saveAll(shutdownCtx); err != nil {
		logger.Error("final save failed", zap.Error(err))
	}
}
