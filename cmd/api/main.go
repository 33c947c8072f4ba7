package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/scratchbank/ledgerd/internal/api"
	"github.com/scratchbank/ledgerd/internal/config"
	"github.com/scratchbank/ledgerd/internal/engine"
	"github.com/scratchbank/ledgerd/internal/queue"
	"github.com/scratchbank/ledgerd/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "error", err)
		os.Exit(1)
	}

	ledgerStore, err := store.NewPostgres(cfg.DBSource)
	if err != nil {
		slog.Error("unable to connect to database", "error", err)
		os.Exit(1)
	}
	defer ledgerStore.Close()

	if err := ledgerStore.EnsureSchema(context.Background()); err != nil {
		slog.Error("schema setup failed", "error", err)
		os.Exit(1)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})
	defer rdb.Close()

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer pingCancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		slog.Error("unable to connect to redis", "error", err)
		os.Exit(1)
	}

	newQueue := func(ctx context.Context, name string) (queue.Queue, error) {
		return queue.NewRedis(ctx, rdb, name)
	}

	ledgerEngine := engine.New(ledgerStore)
	handler := api.NewHandler(ledgerStore, ledgerEngine, newQueue, api.Options{
		QueueStream:   cfg.QueueStream,
		PollTick:      cfg.PollTick,
		BatchDeadline: cfg.BatchDeadline,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: api.Router(handler),
	}

	go func() {
		slog.Info("server starting", "port", cfg.Port, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	stop, stopCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stopCancel()
	<-stop.Done()

	slog.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown failed", "error", err)
	}
}
