package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/commercelake/etl-engine/pkg/config"
	"github.com/commercelake/etl-engine/pkg/logging"
	"github.com/commercelake/etl-engine/pkg/pipeline"
	"github.com/commercelake/etl-engine/pkg/warehouse"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the pipeline configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("environment", cfg.Env),
		zap.String("database", cfg.Database.Database),
		zap.Int("data_sources", len(cfg.DataSources)),
		zap.String("schedule", cfg.Schedule),
	)

	if err := migrate(cfg, logger); err != nil {
		logger.Fatal("Migrations failed", zap.Error(err))
	}

	ctx := context.Background()
	gateway, err := warehouse.NewPostgres(ctx, cfg.Database, logger)
	if err != nil {
		logger.Fatal("Failed to connect to warehouse", zap.Error(err))
	}
	defer gateway.Close()

	orch := pipeline.New(cfg, gateway, logger)

	if cfg.Schedule == "" {
		report := orch.Run(ctx)
		if report.Status == pipeline.StatusFailed {
			os.Exit(1)
		}
		return
	}

	sched := pipeline.NewScheduler(orch, logger)
	if err := sched.Start(cfg.Schedule); err != nil {
		logger.Fatal("Failed to start scheduler", zap.Error(err))
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	sig := <-stop
	logger.Info("Shutting down", zap.String("signal", sig.String()))
	sched.Stop()
}

// migrate applies pending schema migrations over a short-lived
// database/sql handle; the pgx pool is opened afterwards.
func migrate(cfg *config.Config, logger *zap.Logger) error {
	db, err := sql.Open("pgx", cfg.Database.ConnectionString())
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Warn("Failed to close migration connection", zap.Error(err))
		}
	}()

	return warehouse.RunMigrations(db, cfg.Database.MigrationsPath, logger)
}
