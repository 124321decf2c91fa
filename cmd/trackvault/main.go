package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/dmaytorres/trackvault/internal/cache"
	"github.com/dmaytorres/trackvault/internal/catalog"
	"github.com/dmaytorres/trackvault/internal/config"
	"github.com/dmaytorres/trackvault/internal/connectivity"
	"github.com/dmaytorres/trackvault/internal/constants"
	"github.com/dmaytorres/trackvault/internal/httpclient"
	"github.com/dmaytorres/trackvault/internal/logger"
	"github.com/dmaytorres/trackvault/internal/offline"
	"github.com/dmaytorres/trackvault/internal/remote"
	"github.com/dmaytorres/trackvault/internal/server"
	"github.com/dmaytorres/trackvault/internal/store"
	"github.com/dmaytorres/trackvault/internal/syncer"
)

func main() {
	// .env is optional; real deployments configure via the environment.
	_ = godotenv.Load()

	cfg := config.Load()
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

	settingsRepo := store.NewSettingsRepo(db)

	// Catalog sources: primary plus optional fallback.
	primary := catalog.NewHTTPProvider("primary", cfg.ProviderURL, httpclient.NewClient(nil, 0))
	var fallback catalog.Provider
	if cfg.FallbackURL != "" {
		fallback = catalog.NewHTTPProvider("fallback", cfg.FallbackURL, httpclient.NewClient(nil, 0))
	}
	sources := catalog.NewManager(primary, fallback, appLogger)

	engine := cache.NewEngine(db, settingsRepo, sources, cache.NoProtection{}, cfg, appLogger)
	engine.Start()
	defer engine.Stop()

	offlineSvc := offline.NewService(db, cfg.ScrobbleRetention, appLogger)

	remoteClient := remote.NewClient(cfg.RemoteAPIURL, nil)
	reconciler := syncer.NewReconciler(db, remoteClient, remoteClient, appLogger)

	detector := connectivity.NewDetector(connectivity.HTTPProber(cfg.RemoteAPIURL), cfg.ProbeInterval, appLogger)
	detector.OnOnline(func() {
		if _, err := reconciler.Drain(context.Background()); err != nil {
			appLogger.Error("Reconciliation after online transition failed", "error", err)
		}
	})
	if persisted, err := settingsRepo.Get(store.SettingManualOffline); err == nil && persisted == "true" {
		detector.SetManualOffline(true)
	}
	detector.Start()
	defer detector.Stop()

	cleanupCtx, cancelCleanup := context.WithCancel(context.Background())
	defer cancelCleanup()
	go offlineSvc.RunCleanupLoop(cleanupCtx, constants.DefaultCleanupInterval)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	h := server.NewHandler(engine, offlineSvc, reconciler, detector, settingsRepo, appLogger)
	h.RegisterRoutes(r)

	srv := &http.Server{
		Addr:    "127.0.0.1:" + cfg.Port,
		Handler: r,
	}

	go func() {
		appLogger.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
}
