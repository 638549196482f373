// API binary: loads configuration, wires dependencies and serves the HTTP surface.
package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/evercare/livepoll/internal/app/feed"
	"github.com/evercare/livepoll/internal/app/httpapi"
	"github.com/evercare/livepoll/internal/app/polling"
	"github.com/evercare/livepoll/internal/app/publisher"
	"github.com/evercare/livepoll/internal/domain"
	"github.com/evercare/livepoll/internal/platform/clock"
	"github.com/evercare/livepoll/internal/platform/config"
	"github.com/evercare/livepoll/internal/platform/health"
	"github.com/evercare/livepoll/internal/platform/ids"
	"github.com/evercare/livepoll/internal/platform/logger"
	"github.com/evercare/livepoll/internal/platform/migrations"
	"github.com/evercare/livepoll/internal/platform/ratelimit"
	postgresstorage "github.com/evercare/livepoll/internal/platform/storage/postgres"
	redisstorage "github.com/evercare/livepoll/internal/platform/storage/redis"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("invalid configuration", "err", err)
	}

	// One shared connection pool serves repositories and the readiness probe.
	db, err := postgresstorage.Open(ctx, cfg.PostgresDSN())
	if err != nil {
		logger.Fatal("postgres connection failed", "err", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("postgres sql.DB unavailable", "err", err)
	}
	defer sqlDB.Close()

	if cfg.AutoMigrate {
		if err := migrations.Run(db); err != nil {
			logger.Fatal("auto migration failed", "err", err)
		}
	}

	// Redis carries the cross-instance result channel and the rate limiter.
	redisClient, err := redisstorage.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logger.Fatal("redis connection failed", "err", err)
	}
	defer redisClient.Close()

	pollRepo := postgresstorage.NewPollRepository(db)
	responseRepo := postgresstorage.NewResponseRepository(db)
	tallyStore := postgresstorage.NewTallyStore(db)
	submissionStore := postgresstorage.NewSubmissionStore(db)
	clockSystem := clock.NewSystemClock()
	idGen := ids.NewGenerator()

	var limiter domain.RateLimiter = ratelimit.NewNoop()
	if cfg.RateLimitEnabled {
		window := time.Duration(cfg.RateLimitWindowSeconds) * time.Second
		limiter = ratelimit.NewRedisRateLimiter(redisClient, cfg.RateLimitMaxActions, window, cfg.RateLimitKeyPrefix)
	}

	hub := feed.NewHub()
	broadcaster := redisstorage.NewBroadcaster(redisClient, cfg.ResultChannelPrefix)

	// Snapshots go to local SSE subscribers and to the Redis channel for relays.
	pub := publisher.New(
		[]domain.Broadcaster{hub, broadcaster},
		cfg.PublisherWorkers,
		cfg.PublisherQueueSize,
		cfg.DeliveryTimeout,
		logger.L(),
	)
	defer pub.Stop()

	service := polling.NewService(
		pollRepo,
		responseRepo,
		tallyStore,
		submissionStore,
		pub,
		limiter,
		clockSystem,
		idGen,
		logger.L(),
		cfg.ShareLinkBase,
		cfg.SubmitTimeout,
	)

	mux := http.NewServeMux()
	checker := health.NewChecker(sqlDB, redisClient)

	api := httpapi.New(service, hub, logger.L())
	api.Register(mux)
	mux.HandleFunc("/readyz", checker.ReadyHandler())
	mux.Handle("/metrics", promhttp.Handler())

	logger.Info("api listening", "addr", cfg.HTTPAddress)
	if err := http.ListenAndServe(cfg.HTTPAddress, mux); err != nil {
		logger.Fatal("server error", "err", err)
	}
}
