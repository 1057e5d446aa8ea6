package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"newsdesk/api/internal/app"
	"newsdesk/api/internal/autosave"
	"newsdesk/api/internal/config"
	"newsdesk/api/internal/export"
	"newsdesk/api/internal/lock"
	"newsdesk/api/internal/media"
	"newsdesk/api/internal/places"
	"newsdesk/api/internal/search"
	"newsdesk/api/internal/store"
	"newsdesk/api/internal/versions"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer db.Close()

	if err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir); err != nil {
		log.Fatalf("migrations failed: %v", err)
	}

	if err := os.MkdirAll(cfg.ReposDir, 0o755); err != nil {
		log.Fatalf("failed to create repos dir: %v", err)
	}

	dataStore := store.NewPostgresStore(db)
	versionService := versions.New(cfg.ReposDir)

	pgfts := search.NewPgFTS(db)
	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey)
	}
	searchService := search.NewService(meiliClient, pgfts)
	if meiliClient != nil {
		defer meiliClient.Close()
	}

	deps := app.Dependencies{
		Versions: versionService,
		Search:   searchService,
		Exporter: export.NewService(),
	}

	// Redis carries autosave snapshots and editing locks. Without it the
	// service runs with relational autosave only and locking disabled.
	if strings.TrimSpace(cfg.RedisURL) != "" {
		snapshots, err := autosave.NewRedisStore(cfg.RedisURL, cfg.AutosaveTTL)
		if err != nil {
			log.Printf("WARNING: redis unavailable, autosave degrades to the database: %v", err)
		} else {
			defer snapshots.Close()
			deps.Snapshots = snapshots
		}
		locks, err := lock.NewRedisStore(cfg.RedisURL, cfg.LockTTL)
		if err != nil {
			log.Printf("WARNING: redis unavailable, editing locks disabled: %v", err)
		} else {
			defer locks.Close()
			deps.Locks = locks
		}
	}

	if cfg.MinioAccessKey != "" {
		mediaStorage, err := media.NewStorage(ctx, cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
		if err != nil {
			log.Printf("WARNING: media storage unavailable, uploads disabled: %v", err)
		} else {
			deps.Media = mediaStorage
		}
	}

	if strings.TrimSpace(cfg.PlacesURL) != "" {
		deps.Places = places.NewClient(cfg.PlacesURL)
	}

	service := app.New(cfg, dataStore, deps)
	defer service.Close()

	searchService.ReindexAllFromPG(ctx)

	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("Newsdesk API listening on %s", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
