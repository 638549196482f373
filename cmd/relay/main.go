// Relay binary: subscribes to the Redis result channel and re-broadcasts every
// snapshot to its own local SSE subscribers, so viewer fan-out scales
// independently of the API instances.
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/evercare/livepoll/internal/app/feed"
	"github.com/evercare/livepoll/internal/app/httpapi"
	"github.com/evercare/livepoll/internal/platform/config"
	"github.com/evercare/livepoll/internal/platform/health"
	"github.com/evercare/livepoll/internal/platform/logger"
	redisstorage "github.com/evercare/livepoll/internal/platform/storage/redis"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("invalid configuration", "err", err)
	}

	redisClient, err := redisstorage.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logger.Fatal("redis connection failed", "err", err)
	}
	defer redisClient.Close()

	hub := feed.NewHub()
	broadcaster := redisstorage.NewBroadcaster(redisClient, cfg.ResultChannelPrefix)
	checker := health.NewChecker(nil, redisClient)

	live := httpapi.ServeLiveFeed(hub, logger.L())
	mux := http.NewServeMux()
	mux.HandleFunc("/polls/", func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/polls/")
		parts := strings.Split(path, "/")
		if len(parts) != 2 || parts[0] == "" || parts[1] != "live" || r.Method != http.MethodGet {
			http.NotFound(w, r)
			return
		}
		live(w, r, parts[0])
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", checker.ReadyHandler())
	mux.Handle("/metrics", promhttp.Handler())

	go func() {
		logger.Info("relay listening", "addr", cfg.RelayAddress)
		if err := http.ListenAndServe(cfg.RelayAddress, mux); err != nil {
			logger.Fatal("server error", "err", err)
		}
	}()

	logger.Info("relay started, forwarding result snapshots")
	err = broadcaster.SubscribeAll(ctx, func(ctx context.Context, pollCode string, payload []byte) {
		if err := hub.Broadcast(ctx, pollCode, payload); err != nil {
			logger.Error("forwarding snapshot", "poll", pollCode, "err", err)
		}
	})

	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		logger.Fatal("relay finished with error", "err", err)
	}

	logger.Info("relay finished")
}
