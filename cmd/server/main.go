package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/TheFrenchOak/total-reclaw/internal/api"
	"github.com/TheFrenchOak/total-reclaw/internal/clock"
	"github.com/TheFrenchOak/total-reclaw/internal/config"
	"github.com/TheFrenchOak/total-reclaw/internal/embedding"
	"github.com/TheFrenchOak/total-reclaw/internal/memory"
	"github.com/TheFrenchOak/total-reclaw/internal/store"
	"github.com/TheFrenchOak/total-reclaw/internal/vectorstore"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}

	logLevel := slog.LevelInfo
	if cfg.LogLevel == "debug" {
		logLevel = slog.LevelDebug
	}
	var handler slog.Handler
	if cfg.LogFormat == "text" {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)

	clk := clock.SystemClock{}

	db, err := store.Open(cfg.DBPath)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	entries := store.NewEntryStore(db, clk)
	embCache := store.NewEmbeddingCacheStore(db, clk)

	vectors, err := vectorstore.Open(cfg.VectorDir, cfg.VectorDim, clk)
	if err != nil {
		logger.Error("failed to open vector store", "error", err)
		os.Exit(1)
	}
	defer vectors.Close()

	var rawEmbedder embedding.Provider
	if cfg.EmbedProvider == "none" {
		rawEmbedder = embedding.NoopProvider{}
	} else {
		rawEmbedder = embedding.NewOllamaClient(cfg.EmbedURL, cfg.EmbedModel, logger)
	}
	embedder := embedding.NewCachedEmbedder(rawEmbedder, embCache, cfg.EmbedModel, cfg.VectorDim)

	svc := memory.NewService(entries, vectors, embedder, clk, logger)
	maint := memory.NewMaintenance(svc, cfg.MarkdownPaths, cfg.MemoryFile, cfg.MaintenanceInterval, logger)

	if err := maint.Bootstrap(cfg.BootstrapDays); err != nil {
		logger.Warn("bootstrap failed", "error", err)
	}

	ctx, cancelMaint := context.WithCancel(context.Background())
	go maint.Run(ctx)

	router := api.NewRouter(db, svc, os.Getenv("RECLAW_API_KEY"), logger)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("memory server starting", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-done
	logger.Info("shutting down...")
	cancelMaint()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	logger.Info("server stopped")
}
