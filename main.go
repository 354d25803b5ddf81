package main

import (
	"context"
	"log"

	"github.com/ianjiteshan/ShareSYNC/config"
	"github.com/ianjiteshan/ShareSYNC/internal/handler"
	"github.com/ianjiteshan/ShareSYNC/internal/logging"
	"github.com/ianjiteshan/ShareSYNC/internal/ratelimit"
	"github.com/ianjiteshan/ShareSYNC/internal/repo"
	"github.com/ianjiteshan/ShareSYNC/internal/service"
	"github.com/ianjiteshan/ShareSYNC/internal/signal"
	"github.com/ianjiteshan/ShareSYNC/internal/storage"
	"github.com/ianjiteshan/ShareSYNC/router"
)

// main wires the cloud-mode API and the P2P signaling hub behind one
// gin engine, mirroring the teacher's main.go composition order:
// config, storage, then the router last.
func main() {
	cfg := config.Load()
	logger := logging.New()

	db, err := repo.DialMySQL(cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPass, cfg.DBName)
	if err != nil {
		log.Fatalf("connect mysql: %v", err)
	}

	rdb, err := repo.DialRedis(cfg.RedisHost, cfg.RedisPort, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Fatalf("connect redis: %v", err)
	}

	ctx := context.Background()
	objectStore, err := storage.Dial(ctx, cfg.ObjectStoreEndpoint, cfg.ObjectStoreAccessKey, cfg.ObjectStoreSecretKey, cfg.ObjectStoreUseTLS, cfg.BucketName)
	if err != nil {
		log.Fatalf("connect object store: %v", err)
	}

	shareRepo := repo.NewGormShareRepository(db)

	shareService := service.NewShareService(shareRepo, objectStore, service.Policy{
		Bucket:                 cfg.BucketName,
		MaxObjectSizeBytes:     cfg.MaxObjectSizeBytes,
		AllowedMIMEPrefixes:    cfg.AllowedMIMEPrefixes,
		BlockedMIMEPrefixes:    cfg.BlockedMIMEPrefixes,
		AllowedExpiryDurations: cfg.AllowedExpiryDurations,
		UploadURLTTL:           cfg.UploadURLTTL,
		DownloadURLTTL:         cfg.DownloadURLTTL,
		PerUserQuotaBytes:      cfg.PerUserQuotaBytes,
		PerUserInFlightCap:     cfg.PerUserInFlightCap,
		AllowAnonymousShares:   cfg.AllowAnonymousShares,
		MQURL:                  cfg.RabbitMQURL,
	})

	tiers := make(map[ratelimit.Bucket]ratelimit.Tier, len(cfg.RateLimits))
	for bucket, tier := range cfg.RateLimits {
		tiers[ratelimit.Bucket(bucket)] = ratelimit.Tier{
			AnonymousPerIP: tier.AnonymousPerIP,
			AuthPerUser:    tier.AuthPerUser,
			IPCeiling:      tier.IPCeiling,
			Window:         tier.Window,
		}
	}
	limiter := ratelimit.NewController(ratelimit.NewRedisStore(rdb), tiers, cfg.RateLimitSubBuckets)
	defer limiter.Close()

	hub := signal.NewHub(signal.Config{
		RoomCap:           cfg.RoomCap,
		MaxFrameBytes:     cfg.MaxFrameBytes,
		SendQueueDepth:    cfg.SendQueueDepth,
		HeartbeatInterval: cfg.HeartbeatInterval,
		PeerIdleTimeout:   cfg.PeerIdleTimeout,
		AllowAnonymousP2P: cfg.AllowAnonymousP2P,
	}, nil)

	sweepCtx, cancelSweep := context.WithCancel(ctx)
	defer cancelSweep()
	go hub.RunHeartbeatSweep(sweepCtx)

	h := handler.New(shareService, shareRepo)

	engine := router.InitRouter(router.Deps{
		Handler:   h,
		Limiter:   limiter,
		Hub:       hub,
		Logger:    logger,
		JWTSecret: cfg.JWTSecret,
	})

	logger.Info("starting ShareSYNC API on :8000")
	if err := engine.Run(":8000"); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
