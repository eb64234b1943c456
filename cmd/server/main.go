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

	"github.com/scholarwatch/scholarship-watcher/internal/api"
	"github.com/scholarwatch/scholarship-watcher/internal/catalog"
	"github.com/scholarwatch/scholarship-watcher/internal/config"
	"github.com/scholarwatch/scholarship-watcher/internal/store"
	"github.com/scholarwatch/scholarship-watcher/web"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	subscribers, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open subscriber store", "error", err)
		os.Exit(1)
	}
	defer subscribers.Close()

	var countries catalog.Provider = catalog.NewLoader(cfg.CountriesPath)
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Error("invalid REDIS_URL", "error", err)
			os.Exit(1)
		}
		client := redis.NewClient(opts)
		defer client.Close()
		countries = catalog.NewRedisCache(client, countries, logger)
		logger.Info("catalog caching enabled")
	}

	router := api.NewRouter(subscribers, countries, logger, web.Site())

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", "port", cfg.Port, "store", cfg.StoreBackend)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (store.SubscriberStore, error) {
	if cfg.StoreBackend == config.BackendPostgres {
		pg, err := store.NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			pg.Close()
			return nil, err
		}
		logger.Info("connected to PostgreSQL")
		return pg, nil
	}

	logger.Info("using JSON subscriber store", "path", cfg.SubscribersPath)
	return store.NewJSONStore(cfg.SubscribersPath), nil
}
