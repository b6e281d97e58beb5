package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"calendar-sync/internal/cache"
	"calendar-sync/internal/common/logging"
	"calendar-sync/internal/config"
	"calendar-sync/internal/handlers"
	"calendar-sync/internal/middleware"
	"calendar-sync/internal/remote"
	"calendar-sync/internal/server"
	syncengine "calendar-sync/internal/sync"
)

func main() {
	// A missing .env is fine; the environment wins either way.
	_ = godotenv.Load()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logging.InitGlobalLogger()
	logger := logging.GetGlobalLogger()
	defer logging.MustSync()

	cacheStore, err := cache.NewStore(&cache.Config{DatabasePath: cfg.CachePath})
	if err != nil {
		log.Fatalf("Failed to open local cache: %v", err)
	}
	defer cacheStore.Close()

	remoteStore, err := remote.NewStore(&remote.Config{
		Address:  cfg.RedisAddress,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDBNumber(),
		PoolSize: cfg.RedisPoolSizeNumber(),
	})
	if err != nil {
		log.Fatalf("Failed to connect to remote store: %v", err)
	}
	defer remoteStore.Close()

	engine := syncengine.NewEngine(remoteStore, cacheStore, logger)

	if cfg.RefreshEnabled {
		refresher, err := syncengine.NewRefresher(engine, cfg.RefreshSchedule, logger)
		if err != nil {
			log.Fatalf("Failed to build refresher: %v", err)
		}
		if err := refresher.Start(); err != nil {
			log.Fatalf("Failed to start refresher: %v", err)
		}
		defer refresher.Stop()
	}

	h := handlers.New(engine, cacheStore, remoteStore)
	router := middleware.LoggingMiddleware(h.Router())

	srv := server.New(router, cfg.Port)
	if err := srv.Start(); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
	logger.Info("server started", logging.String("port", cfg.Port))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown failed", err)
	}
}
