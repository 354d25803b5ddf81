// Command sweeper runs the expiry/cleanup engine as a standalone
// process: the ticker-driven sweeper and the deletion queue consumer,
// split out of the API server the way teacher split cmd/worker from
// its main API process.
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/ianjiteshan/ShareSYNC/config"
	"github.com/ianjiteshan/ShareSYNC/internal/logging"
	"github.com/ianjiteshan/ShareSYNC/internal/mq"
	"github.com/ianjiteshan/ShareSYNC/internal/repo"
	"github.com/ianjiteshan/ShareSYNC/internal/storage"
	"github.com/ianjiteshan/ShareSYNC/internal/sweep"
)

func main() {
	cfg := config.Load()
	logger := logging.New()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := repo.DialMySQL(cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPass, cfg.DBName)
	if err != nil {
		log.Fatalf("connect mysql: %v", err)
	}
	shareRepo := repo.NewGormShareRepository(db)

	rdb, err := repo.DialRedis(cfg.RedisHost, cfg.RedisPort, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Fatalf("connect redis: %v", err)
	}

	objectStore, err := storage.Dial(ctx, cfg.ObjectStoreEndpoint, cfg.ObjectStoreAccessKey, cfg.ObjectStoreSecretKey, cfg.ObjectStoreUseTLS, cfg.BucketName)
	if err != nil {
		log.Fatalf("connect object store: %v", err)
	}

	mqClient, err := mq.Dial(cfg.RabbitMQURL)
	if err != nil {
		log.Fatalf("connect rabbitmq: %v", err)
	}
	defer mqClient.Close()
	if err := mqClient.DeclareTopology(); err != nil {
		log.Fatalf("declare rabbitmq topology: %v", err)
	}

	sweeper := sweep.NewSweeper(shareRepo, rdb, cfg.RabbitMQURL, sweep.Config{
		Interval:            cfg.SweepInterval,
		Grace:               cfg.SweepGrace,
		BatchSize:           cfg.SweepBatchSize,
		HardDeleteRetention: cfg.HardDeleteRetention,
	})

	worker := sweep.NewDeletionWorker(shareRepo, objectStore, sweep.WorkerConfig{
		Bucket:      cfg.BucketName,
		Concurrency: cfg.RabbitMQPrefetch,
		Prefetch:    cfg.RabbitMQPrefetch,
		MaxRetries:  len(cfg.SweepRetryDelays),
		RetryDelays: cfg.SweepRetryDelays,
	})

	go sweeper.Run(ctx)

	logger.Info("sweeper process started")
	if err := worker.Run(ctx, mqClient); err != nil {
		logger.WithError(err).Error("deletion worker stopped")
	}
}
