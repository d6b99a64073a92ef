// Command coreservice is the thin reference HTTP adapter over the
// entity-fact store's query boundary (spec §6). It wires the core's
// packages together the way a real deployment would, but the adapter
// itself is intentionally minimal — the resolution, derivation, and
// pattern-matching packages it fronts are where the system's actual
// behavior lives.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"

	"github.com/fraudwatch/sovereign-core/internal/config"
	"github.com/fraudwatch/sovereign-core/internal/database"
	"github.com/fraudwatch/sovereign-core/internal/httpapi"
	"github.com/fraudwatch/sovereign-core/pkg/audit"
	"github.com/fraudwatch/sovereign-core/pkg/blocking"
	"github.com/fraudwatch/sovereign-core/pkg/derivation"
	"github.com/fraudwatch/sovereign-core/pkg/groundtruth"
	"github.com/fraudwatch/sovereign-core/pkg/metrics"
	"github.com/fraudwatch/sovereign-core/pkg/patterns"
	"github.com/fraudwatch/sovereign-core/pkg/resolver"
	"github.com/fraudwatch/sovereign-core/pkg/review"
	"github.com/fraudwatch/sovereign-core/pkg/scheduler"
	"github.com/fraudwatch/sovereign-core/pkg/store"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (defaults applied for anything unset)")
	runMigrations := flag.Bool("migrate", true, "run embedded database migrations on startup")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.WithError(err).Fatal("loading configuration")
	}

	log, err := newZapLogger(cfg.Logging)
	if err != nil {
		logrus.WithError(err).Fatal("building logger")
	}
	defer log.Sync()

	legacyLog := newLogrusLogger(cfg.Logging)

	db, err := database.Connect(cfg.Database, log)
	if err != nil {
		log.Fatal("connecting to database", zap.Error(err))
	}
	defer db.Close()

	if *runMigrations {
		if err := database.Migrate(db); err != nil {
			log.Fatal("running migrations", zap.Error(err))
		}
	}

	sqlxDB := sqlx.NewDb(db, "pgx")
	st := store.New(sqlxDB, log, cfg.Retry, audit.NewHasher())

	index := blocking.NewIndex(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.Enabled)
	blocker := blocking.New(st, index)

	res := resolver.New(st, blocker, cfg, log)
	reviewQueue := review.New(st, log)
	derivationEngine := derivation.New(st, cfg.Derivation, legacyLog)
	patternEngine := patterns.New(st, cfg.ShellNetwork)
	gtEvaluator := groundtruth.New(st)

	sched := scheduler.New(st, res, derivationEngine, patternEngine, cfg.Derivation, log,
		scheduler.WithGroundTruthEvaluator(gtEvaluator))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := sched.Start(ctx); err != nil {
		log.Fatal("starting scheduler", zap.Error(err))
	}
	defer sched.Stop(ctx)

	metricsServer := metrics.NewServer(cfg.Server.MetricsPort, legacyLog)
	metricsServer.StartAsync()

	httpServer := httpapi.NewServer(":"+cfg.Server.Port, httpapi.Deps{
		Entities:    st,
		Alerts:      st,
		Review:      st,
		Queue:       reviewQueue,
		Subgraph:    st,
		Patterns:    patternEngine,
		GroundTruth: gtEvaluator,
	}, log)
	httpServer.StartAsync()

	log.Info("coreservice started",
		zap.String("port", cfg.Server.Port), zap.String("metrics_port", cfg.Server.MetricsPort))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Stop(shutdownCtx); err != nil {
		log.Error("http server shutdown", zap.Error(err))
	}
	if err := metricsServer.Stop(shutdownCtx); err != nil {
		log.Error("metrics server shutdown", zap.Error(err))
	}
}

func newZapLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var zcfg zap.Config
	if cfg.Format == "console" {
		zcfg = zap.NewDevelopmentConfig()
	} else {
		zcfg = zap.NewProductionConfig()
	}
	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	zcfg.Level = level
	return zcfg.Build()
}

func newLogrusLogger(cfg config.LoggingConfig) *logrus.Logger {
	l := logrus.New()
	if cfg.Format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{})
	}
	if level, err := logrus.ParseLevel(cfg.Level); err == nil {
		l.SetLevel(level)
	}
	return l
}
