package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"toolcrib"
	"toolcrib/config"
	"toolcrib/httpapi"
	"toolcrib/store"
	"toolcrib/store/memory"
	"toolcrib/store/mongo"
	"toolcrib/store/sqlite"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	must(logger, err, "load configuration")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	st, err := openStore(ctx, cfg)
	cancel()
	must(logger, err, "open store")

	logger.Info("starting toolcrib",
		"version", toolcrib.Version,
		"driver", cfg.Driver,
		"addr", cfg.Addr(),
		"environment", cfg.Environment,
	)

	crib := toolcrib.New(st, toolcrib.WithLogger(logger))
	ctx, cancel = context.WithTimeout(context.Background(), 30*time.Second)
	err = crib.Start(ctx)
	cancel()
	must(logger, err, "start crib")

	server := &http.Server{
		Addr:    cfg.Addr(),
		Handler: httpapi.New(crib, logger).Handler(),
	}
	go func() {
		logger.Info("listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	ctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("http shutdown", "error", err)
	}
	if err := crib.Close(); err != nil {
		logger.Error("store close", "error", err)
	}
	logger.Info("shut down cleanly")
}

func openStore(ctx context.Context, cfg config.Config) (store.Store, error) {
	switch cfg.Driver {
	case config.DriverMongo:
		return mongo.Open(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.HardwareCollection, cfg.CheckoutsCollection)
	case config.DriverSQLite:
		return sqlite.Open(cfg.SQLitePath)
	default:
		return memory.New(), nil
	}
}

func must(logger *slog.Logger, err error, what string) {
	if err != nil {
		logger.Error("fatal", "stage", what, "error", err)
		os.Exit(1)
	}
}
