package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/cpmm-direct-swap/internal/cache"
	"github.com/aman-zulfiqar/cpmm-direct-swap/internal/config"
	"github.com/aman-zulfiqar/cpmm-direct-swap/internal/flags"
	"github.com/aman-zulfiqar/cpmm-direct-swap/internal/jupiter"
	"github.com/aman-zulfiqar/cpmm-direct-swap/internal/server"
	"github.com/aman-zulfiqar/cpmm-direct-swap/internal/swapengine"
)

// env bootstrap function
func loadEnv(logger *logrus.Logger) {
	// Get the project root directory (where go.mod is)
	_, filename, _, _ := runtime.Caller(0)
	projectRoot := filepath.Join(filepath.Dir(filename), "../..")
	envPath := filepath.Join(projectRoot, ".env")

	if err := godotenv.Load(envPath); err != nil {
		logger.Warnf("no .env file found at %s, using system environment variables", envPath)
	} else {
		logger.Infof("loaded .env from %s", envPath)
	}
}

// main starts the swap API. It builds unsigned transactions for callers to
// sign; it never holds a key.
func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	// load .env BEFORE anything reads os.Getenv
	loadEnv(logger)

	cfg := config.Load()
	logger.SetLevel(cfg.Level())
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	engine, err := swapengine.NewEngineFromConfig(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to init swap engine")
	}
	defer func() {
		if err := engine.Close(); err != nil {
			logger.WithError(err).Warn("engine close failed")
		}
	}()

	h := &server.Handlers{
		Swaps:   engine,
		DevMode: cfg.DevMode,
		Logger:  logger,
		Jupiter: jupiter.NewClient(cfg.JupiterBaseURL, cfg.JupiterAPIKey).WithUltraBaseURL(cfg.JupiterUltraURL),
	}

	// Redis backs the flag admin endpoints and recent swap history. The API
	// still serves quotes and builds without it.
	if cfg.RedisAddr != "" {
		rclient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rclient.Close()

		if err := rclient.Ping(ctx).Err(); err != nil {
			logger.WithError(err).Warn("redis unavailable, flags and recent swaps disabled")
		} else {
			flagStore, err := flags.NewStore(rclient, logger)
			if err != nil {
				logger.WithError(err).Fatal("failed to create flags store")
			}
			if err := flagStore.SeedDefaults(ctx); err != nil {
				logger.WithError(err).Warn("failed to seed default flags")
			}
			swapCache, err := cache.NewRedisCache(rclient)
			if err != nil {
				logger.WithError(err).Fatal("failed to create swap cache")
			}
			h.Flags = flagStore
			h.Cache = swapCache
		}
	}

	srv, err := server.NewServer(server.ServerDeps{
		Handlers: h,
		Config: server.ServerConfig{
			Addr:    cfg.APIAddr,
			DevMode: cfg.DevMode,
			APIKey:  cfg.APIKey,
		},
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to create http server")
	}

	go func() {
		<-sigCh
		logger.Info("shutting down")
		cancel()

		shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
		defer done()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.WithFields(logrus.Fields{
		"addr": cfg.APIAddr,
		"rpc":  cfg.RPCUrl,
	}).Info("api server starting")

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Fatal("api server failed")
	}

	if err := srv.WaitClosed(context.Background()); err != nil {
		logger.WithError(err).Warn("server did not close cleanly")
	}
}
