package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"log-investigator/internal/config"
	"log-investigator/internal/interfaces"
	"log-investigator/internal/logging"
	"log-investigator/internal/server"
	"log-investigator/internal/storage"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file (defaults apply when omitted)")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, cleanup, err := newStore(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to initialize log store",
			zap.String("backend", cfg.Storage.Backend),
			zap.Error(err))
	}
	defer cleanup()

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      server.New(cfg, store, logger).Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("server listening",
			zap.String("addr", cfg.Server.Addr),
			zap.String("backend", cfg.Storage.Backend))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func newStore(ctx context.Context, cfg *config.Config) (interfaces.Store, func(), error) {
	switch cfg.Storage.Backend {
	case "postgres":
		store, err := storage.NewPostgresStore(ctx, cfg.Storage.Postgres)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	case "opensearch":
		store, err := storage.NewOpenSearchStore(cfg.Storage.OpenSearch)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil
	default:
		return storage.NewMemoryStore(), func() {}, nil
	}
}
