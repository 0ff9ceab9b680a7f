package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"carbon-registry/registry-backend/internal/config"
)

func main() {
	configPath := flag.String("config", "config.json", "path to configuration file")
	schedule := flag.String("schedule", "@every 15m", "snapshot cron schedule")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal("Failed to create logger:", err)
	}
	defer logger.Sync()

	worker, err := NewStatsWorker(cfg.Database.GetDatabaseURL(), logger)
	if err != nil {
		logger.Fatal("Failed to create stats worker", zap.Error(err))
	}
	defer worker.Close()

	c := cron.New()
	if _, err := c.AddFunc(*schedule, func() {
		if err := worker.Snapshot(context.Background()); err != nil {
			logger.Error("Snapshot failed", zap.Error(err))
		}
	}); err != nil {
		logger.Fatal("Invalid schedule", zap.String("schedule", *schedule), zap.Error(err))
	}
	c.Start()
	logger.Info("Stats worker started", zap.String("schedule", *schedule))

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logger.Info("Stats worker shutting down")
	<-c.Stop().Done()
}
