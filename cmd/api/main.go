package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lifehub/internal/backup"
	"lifehub/internal/config"
	"lifehub/internal/http"
	"lifehub/internal/library"
	"lifehub/internal/llm"
	"lifehub/internal/logging"
	"lifehub/internal/media"
	"lifehub/internal/projects"
	"lifehub/internal/schema"
	"lifehub/internal/service"
	"lifehub/internal/storage"
)

//go:generate swagger generate spec -o swagger.json

// General API information
//
// This API keeps a single local store in sync with the mobile client and
// serves the media libraries, project documents and journal generation.
//
// swagger:meta
//
// ---
// swagger: '2.0'
// info:
//   title: Lifehub API
//   description: |
//     Personal local-first backend. Clients push records per table, upload
//     whole database snapshots, store photos by date and stream media files.
//   version: 1.0.0
// schemes:
//   - http
// consumes:
//   - application/json
//   - multipart/form-data
// produces:
//   - application/json

const shutdownTimeout = 10 * time.Second

func main() {
	// Load configuration first (needed for log level)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, logCloser, err := logging.New(logging.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		File:   cfg.LogFile,
	})
	if err != nil {
		log.Fatalf("Failed to configure logging: %v", err)
	}
	defer func() {
		_ = logCloser.Close()
	}()
	slog.SetDefault(logger)
	slog.Debug("Logging configured", "level", cfg.LogLevel, "format", cfg.LogFormat, "file", cfg.LogFile)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database
	db, err := storage.Open(cfg.DBPath, storage.Options{LockTimeout: cfg.StoreLockTimeout})
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer func() {
		_ = db.Close()
	}()

	registry := schema.Default()
	if err := storage.Migrate(ctx, db, registry); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	slog.Info("Database initialized", "path", cfg.DBPath, "tables", len(registry.Tables()))

	backups, err := backup.NewManager(backup.ConfigFor(db.Path(), cfg.BackupDir, cfg.BackupRetain))
	if err != nil {
		log.Fatalf("Failed to initialize backups: %v", err)
	}
	slog.Info("Backups configured", "dir", backups.Dir(), "retain", backups.Retain())

	images, err := media.NewStore(cfg.ImageLibraryPath)
	if err != nil {
		log.Fatalf("Failed to initialize image store: %v", err)
	}
	libraries, err := library.NewRegistry(cfg.LibraryRoots())
	if err != nil {
		log.Fatalf("Failed to initialize libraries: %v", err)
	}
	slog.Info("Libraries initialized", "images", images.Root(), "kinds", libraries.Kinds())

	documents, err := projects.NewStore(cfg.ProjectsPath)
	if err != nil {
		log.Fatalf("Failed to initialize project store: %v", err)
	}

	// Journal generation is optional. The summarizer must stay an untyped nil
	// when disabled so the service can detect it.
	var summarizer service.Summarizer
	if cfg.LLMBaseURL != "" {
		summarizer = llm.NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel)
		slog.Info("Journal summarizer enabled", "base_url", cfg.LLMBaseURL, "model", cfg.LLMModel)
	} else {
		slog.Info("Journal summarizer disabled, LLM_BASE_URL not set")
	}

	// Create router with dependencies
	deps := &http.Deps{
		Store:             db,
		SyncService:       service.NewSyncService(db, registry, storage.NewRecordRepo(), backups),
		MediaService:      service.NewMediaService(images),
		LibraryService:    service.NewLibraryService(libraries),
		ProjectService:    service.NewProjectService(documents),
		JournalService:    service.NewJournalService(summarizer),
		SummarizerEnabled: summarizer != nil,
		MaxUploadBytes:    cfg.MaxUploadBytes(),
	}
	router := http.NewRouter(deps)

	// Start API server
	addr := ":" + cfg.APIPort
	server := &nethttp.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting API server", "addr", addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, nethttp.ErrServerClosed) {
			log.Fatalf("API server failed to start: %v", err)
		}
	case <-ctx.Done():
		slog.Info("Shutting down API server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("Graceful shutdown failed", "error", err)
		}
	}
}
