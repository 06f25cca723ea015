// cmd/historian is an asynchronous historian service that pops finished match
// results from a Redis queue and archives them in PostgreSQL.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jason-s-yu/duel/internal/cache"
	"github.com/jason-s-yu/duel/internal/config"
	"github.com/jason-s-yu/duel/internal/database"
	"github.com/jason-s-yu/duel/internal/historian"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

func main() {
	logger := logrus.New()
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal(err)
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.Connect(ctx, cfg.PostgresURL(), logger)
	if err != nil {
		logger.Fatal(err)
	}
	defer pool.Close()

	archive := database.NewResultArchive(pool)
	if err := archive.EnsureSchema(ctx); err != nil {
		logger.Fatalf("ensure schema: %v", err)
	}

	rdb, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		logger.Fatal(err)
	}
	defer rdb.Close()

	queue := cache.NewResultQueue(rdb, cfg.ResultsQueue)
	logger.Infof("draining redis list %s", queue.Name())
	historian.New(queue, archive, cfg.HistorianBatchSize, cfg.HistorianFlush, logger).Run(ctx)
	logger.Info("Historian shutdown complete.")
}
