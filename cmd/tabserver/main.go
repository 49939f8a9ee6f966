// Package main provides the tabserver binary: a TCP service that answers
// dice-expression queries with exact outcome tables over a telnet-friendly
// line protocol.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/dicetab/internal/config"
	"github.com/cory-johannsen/dicetab/internal/engine"
	"github.com/cory-johannsen/dicetab/internal/observability"
	"github.com/cory-johannsen/dicetab/internal/preset"
	"github.com/cory-johannsen/dicetab/internal/roll"
	"github.com/cory-johannsen/dicetab/internal/server"
	"github.com/cory-johannsen/dicetab/internal/storage/postgres"
	"github.com/cory-johannsen/dicetab/internal/tabserver"
	"github.com/cory-johannsen/dicetab/internal/telnet"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	presetsDir := flag.String("presets-dir", "", "path to preset YAML files directory; empty = presets.dir from config")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("starting tabserver",
		zap.String("telnet_addr", cfg.Telnet.Addr()),
		zap.Bool("cache_enabled", cfg.Database.Enabled),
	)

	ctx := context.Background()

	eng := engine.New(cfg.Engine.MaxPoolArea, logger)
	roller := roll.NewLoggedRoller(roll.NewCryptoSource(), logger)

	dir := *presetsDir
	if dir == "" {
		dir = cfg.Presets.Dir
	}
	presetStart := time.Now()
	presets, err := preset.LoadDirectory(dir)
	if err != nil {
		logger.Fatal("loading presets", zap.Error(err))
	}
	logger.Info("presets loaded",
		zap.Int("count", presets.Len()),
		zap.String("dir", dir),
		zap.Duration("elapsed", time.Since(presetStart)),
	)

	// Connect to PostgreSQL when the result cache is enabled. The handler
	// treats a nil cache as disabled.
	var cache tabserver.DistributionCache
	var pool *postgres.Pool
	if cfg.Database.Enabled {
		dbStart := time.Now()
		pool, err = postgres.NewPool(ctx, cfg.Database)
		if err != nil {
			logger.Fatal("connecting to database", zap.Error(err))
		}
		logger.Info("database connected",
			zap.String("host", cfg.Database.Host),
			zap.Int("port", cfg.Database.Port),
			zap.String("database", cfg.Database.Name),
			zap.Duration("elapsed", time.Since(dbStart)),
		)
		cache = postgres.NewDistributionRepository(pool.DB())
	} else {
		logger.Info("result cache disabled")
	}

	handler := tabserver.NewHandler(eng, roller, presets, cache, logger)
	acceptor := telnet.NewAcceptor(cfg.Telnet, handler, logger)

	// Wire lifecycle
	lifecycle := server.NewLifecycle(logger)

	if pool != nil {
		lifecycle.Add("postgres", &server.FuncService{
			StartFn: func() error {
				for {
					time.Sleep(30 * time.Second)
					if err := pool.Health(ctx, 5*time.Second); err != nil {
						logger.Warn("database health check failed", zap.Error(err))
					}
				}
			},
			StopFn: func() {
				pool.Close()
			},
		})
	}

	lifecycle.Add("telnet", &server.FuncService{
		StartFn: func() error {
			return acceptor.ListenAndServe()
		},
		StopFn: func() {
			acceptor.Stop()
		},
	})

	logger.Info("tabserver initialized",
		zap.Duration("startup", time.Since(start)),
		zap.String("telnet_addr", cfg.Telnet.Addr()),
	)

	if err := lifecycle.Run(ctx); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
