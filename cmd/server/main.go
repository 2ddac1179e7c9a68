package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/cesargomez89/jarvis/internal/app"
	"github.com/cesargomez89/jarvis/internal/config"
	httpapp "github.com/cesargomez89/jarvis/internal/http"
	"github.com/cesargomez89/jarvis/internal/library"
	"github.com/cesargomez89/jarvis/internal/logger"
	"github.com/cesargomez89/jarvis/internal/store"
	"github.com/cesargomez89/jarvis/internal/ytdlp"
)

func main() {
	cfg := config.Load()

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	appLogger := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})

	db, err := store.NewSQLiteDB(cfg.DBPath)
	if err != nil {
		appLogger.Error("Failed to init DB", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	manager := app.NewManager(app.Options{
		Store:       store.NewCollections(db),
		Runner:      ytdlp.NewRunner(cfg.YTDLPPath, appLogger),
		Settings:    store.NewSettingsRepo(db),
		Scanner:     library.NewScanner(appLogger),
		Logger:      appLogger,
		RootFolder:  cfg.DownloadRoot,
		AudioFormat: cfg.AudioFormat,
	})
	defer manager.Close()

	if cfg.AutoStart {
		manager.Start()
	}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	h := httpapp.NewHandler(manager, appLogger)
	h.RegisterRoutes(r)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		appLogger.Info("Server listening", "addr", srv.Addr, "root", manager.RootFolder())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Server forced to shutdown", "error", err)
	}
}
