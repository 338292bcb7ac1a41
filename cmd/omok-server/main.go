package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/SWWS97/Gomoku-Game/internal/api"
	appcfg "github.com/SWWS97/Gomoku-Game/internal/config"
	"github.com/SWWS97/Gomoku-Game/internal/gateway"
	"github.com/SWWS97/Gomoku-Game/internal/match"
	"github.com/SWWS97/Gomoku-Game/internal/matchmaking"
	"github.com/SWWS97/Gomoku-Game/internal/obslog"
)

func main() {
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer func() { _ = obslog.L().Sync() }()

	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	opts, err := match.ParseRedisURL(cfg.RedisURL)
	if err != nil {
		log.Fatalf("redis url error: %v", err)
	}
	rdb := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		cancel()
		log.Fatalf("redis connect error: %v", err)
	}
	cancel()

	store := match.NewStore(rdb, time.Duration(cfg.GameTTLSec)*time.Second)

	// DATABASE_URL 없이도 뜬다: 전적/레이팅 영속화만 꺼진다
	var repo *match.Repository
	var recorder match.Recorder
	if cfg.DatabaseURL != "" {
		repo, err = match.NewRepository(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("repository init error: %v", err)
		}
		recorder = repo
	} else {
		obslog.L().Warn("no_database_url")
	}

	manager := match.NewManager(store, recorder)
	manager.SetMaxGames(cfg.MaxConcurrentGames)
	queue := matchmaking.NewService()
	hub := gateway.NewHub()

	gw := gateway.NewServer(cfg.ListenAddr, hub, manager, queue, recorder)
	apiSrv := api.NewServer(cfg.APIListenAddr, manager, repo, hub)

	errCh := make(chan error, 2)
	go func() { errCh <- gw.ListenAndServe() }()
	go func() { errCh <- apiSrv.ListenAndServe() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		obslog.L().Info("shutdown_signal", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			obslog.L().Error("server_error", zap.Error(err))
		}
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = gw.Shutdown(shutCtx)
	_ = apiSrv.Shutdown(shutCtx)
	if repo != nil {
		_ = repo.Close()
	}
	_ = rdb.Close()
}
