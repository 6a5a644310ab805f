// Package main provides the battle server binary: it serves the JSON battle
// protocol over TCP and WebSocket and reports health over gRPC.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/config"
	"github.com/cory-johannsen/skirmish/internal/frontend/tcp"
	"github.com/cory-johannsen/skirmish/internal/frontend/ws"
	"github.com/cory-johannsen/skirmish/internal/game/ai"
	"github.com/cory-johannsen/skirmish/internal/game/dice"
	"github.com/cory-johannsen/skirmish/internal/game/effect"
	"github.com/cory-johannsen/skirmish/internal/game/npc"
	"github.com/cory-johannsen/skirmish/internal/game/session"
	"github.com/cory-johannsen/skirmish/internal/game/skill"
	"github.com/cory-johannsen/skirmish/internal/gameserver"
	"github.com/cory-johannsen/skirmish/internal/observability"
	"github.com/cory-johannsen/skirmish/internal/registry"
	"github.com/cory-johannsen/skirmish/internal/scripting"
	"github.com/cory-johannsen/skirmish/internal/server"
	"github.com/cory-johannsen/skirmish/internal/storage/postgres"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file; empty = defaults and environment only")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging, cfg.Server.Name)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("starting battle server",
		zap.String("tcp_addr", cfg.Transport.Addr()),
		zap.Bool("http", cfg.HTTP.Enabled),
		zap.Bool("database", cfg.Database.Enabled),
	)

	src := dice.NewCryptoSource()

	// Content
	effects := effect.DefaultRegistry()
	if cfg.Content.EffectsDir != "" {
		if effects, err = effect.LoadDirectory(cfg.Content.EffectsDir); err != nil {
			logger.Fatal("loading effect definitions", zap.Error(err))
		}
	}
	skills := skill.DefaultRegistry()
	if cfg.Content.SkillsDir != "" {
		if skills, err = skill.LoadDirectory(cfg.Content.SkillsDir); err != nil {
			logger.Fatal("loading skill definitions", zap.Error(err))
		}
	}
	templates := npc.DefaultTemplates()
	if cfg.Content.EnemiesDir != "" {
		if templates, err = npc.LoadTemplates(cfg.Content.EnemiesDir); err != nil {
			logger.Fatal("loading enemy templates", zap.Error(err))
		}
	}
	catalog, err := npc.NewCatalog(templates, skills)
	if err != nil {
		logger.Fatal("building enemy catalog", zap.Error(err))
	}
	for _, id := range cfg.Battle.DefaultEnemies {
		if _, ok := catalog.Get(id); !ok {
			logger.Fatal("default enemy references unknown template", zap.String("template", id))
		}
	}
	logger.Info("content loaded",
		zap.Int("effects", len(effects.All())),
		zap.Int("skills", len(skills.All())),
		zap.Int("enemies", len(templates)),
	)

	var decider ai.ScriptDecider
	if cfg.Content.ScriptsDir != "" {
		scripts := scripting.NewManager(src, logger.Named("scripting"))
		if err := scripts.Load(cfg.Content.ScriptsDir, cfg.Battle.ScriptInstructionLimit); err != nil {
			logger.Fatal("loading AI scripts", zap.Error(err))
		}
		defer scripts.Close()
		decider = scripts
		logger.Info("AI scripts loaded", zap.String("dir", cfg.Content.ScriptsDir))
	}
	planner := ai.NewPlanner(src, decider, logger.Named("ai"))

	reg := registry.New(src, uuid.NewString, logger.Named("registry"))
	sessions := session.NewManager(session.Options{
		OutboxSize: cfg.Transport.OutboxSize,
		RateLimit:  cfg.Transport.RateLimit,
		RateBurst:  cfg.Transport.RateBurst,
	})

	var health *observability.Health
	if cfg.Health.Enabled {
		health = observability.NewHealth(cfg.Health.Addr(), logger.Named("health"))
	}

	// Battle history
	var recorder gameserver.ResultRecorder
	var pool *postgres.Pool
	if cfg.Database.Enabled {
		dbStart := time.Now()
		pool, err = postgres.NewPool(ctx, cfg.Database)
		if err != nil {
			logger.Fatal("connecting to database", zap.Error(err))
		}
		if err := pool.CheckSchema(ctx); err != nil {
			logger.Fatal("checking battle history schema", zap.Error(err))
		}
		logger.Info("database connected",
			zap.String("host", cfg.Database.Host),
			zap.Duration("elapsed", time.Since(dbStart)),
		)
		recorder = postgres.NewResultRepository(pool.DB())
	}

	srv := gameserver.NewServer(gameserver.Deps{
		Registry:       reg,
		Sessions:       sessions,
		Catalog:        catalog,
		Effects:        effects,
		Skills:         skills,
		Planner:        planner,
		Source:         src,
		Recorder:       recorder,
		NewID:          uuid.NewString,
		TurnTimeout:    cfg.Battle.TurnTimeout,
		DefaultEnemies: cfg.Battle.DefaultEnemies,
		Logger:         logger.Named("gameserver"),
	})

	// Wire lifecycle
	lifecycle := server.NewLifecycle(logger, cfg.Server.ShutdownTimeout)

	acceptor := tcp.NewAcceptor(cfg.Transport, srv, logger.Named("tcp"))
	lifecycle.Add("tcp", acceptor)

	if cfg.HTTP.Enabled {
		lifecycle.Add("http", ws.NewServer(cfg.HTTP, cfg.Transport, srv, reg, logger.Named("http")))
	}

	if health != nil {
		lifecycle.Add("health", health)
		health.SetServing("", true)
	}

	if pool != nil {
		watchCtx, stopWatch := context.WithCancel(ctx)
		lifecycle.Add("postgres", &server.FuncService{
			StartFn: func() error {
				pool.Watch(watchCtx, 30*time.Second, func(healthy bool, err error) {
					if !healthy {
						logger.Warn("database health check failed", zap.Error(err))
					}
					if health != nil {
						health.SetServing("postgres", healthy)
					}
				})
				return nil
			},
			StopFn: stopWatch,
		})
	}

	lifecycle.OnStop(srv.Stop)
	lifecycle.OnStop(sessions.CloseAll)
	if pool != nil {
		lifecycle.OnStop(pool.Close)
	}

	logger.Info("battle server initialized", zap.Duration("startup", time.Since(start)))

	if err := lifecycle.Run(ctx); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
