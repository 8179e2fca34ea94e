package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/sahithikokkula/samplingapi/internal/config"
	"github.com/sahithikokkula/samplingapi/internal/logging"
	"github.com/sahithikokkula/samplingapi/pkg/api"
	"github.com/sahithikokkula/samplingapi/pkg/sampler"
	"github.com/sahithikokkula/samplingapi/pkg/storage"
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		logging.Fatal("load config", zap.Error(err))
	}
	if err := logging.Initialize(cfg.Logging); err != nil {
		logging.Fatal("init logging", zap.Error(err))
	}
	defer logging.Sync()

	logging.Info("using database", zap.String("path", cfg.Database.Path))

	db, err := sql.Open("sqlite", cfg.Database.Path)
	if err != nil {
		logging.Fatal("open sqlite db", zap.Error(err))
	}
	defer db.Close()

	// Pragmas for better performance
	for _, pragma := range []string{"PRAGMA journal_mode=WAL;", "PRAGMA synchronous=NORMAL;"} {
		if _, err := db.Exec(pragma); err != nil {
			logging.Warn("pragma", zap.String("statement", pragma), zap.Error(err))
		}
	}

	if err := storage.EnsureMetaTables(context.Background(), db); err != nil {
		logging.Fatal("ensure meta tables", zap.Error(err))
	}

	handler := api.NewHandler(db, sampler.New(cfg.Sampler.Seed).WithMaxSampleSize(cfg.Sampler.MaxSampleSize), api.Options{
		RequestTimeout:   cfg.Server.RequestTimeout,
		BatchConcurrency: cfg.Server.BatchConcurrency,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logging.Error("shutdown", zap.Error(err))
		}
	}()

	logging.Info("sampling server listening", zap.String("addr", "http://localhost:"+cfg.Server.Port))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logging.Fatal("server error", zap.Error(err))
	}
	logging.Info("server stopped")
}
