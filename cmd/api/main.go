package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/timmy/podsum/internal/api"
	"github.com/timmy/podsum/internal/api/handler"
	"github.com/timmy/podsum/internal/api/middleware"
	"github.com/timmy/podsum/internal/config"
	"github.com/timmy/podsum/internal/jobs"
	"github.com/timmy/podsum/internal/logger"
	"github.com/timmy/podsum/internal/pipeline"
	"github.com/timmy/podsum/internal/repository"
	"github.com/timmy/podsum/internal/service"
	"github.com/timmy/podsum/internal/stage"
	"github.com/timmy/podsum/internal/storage"
)

func main() {
	// Load configuration
	// Support CONFIG_PATH environment variable for production deployments
	configPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	appLogger := logger.NewDefault()
	logger.SetDefaultLogger(appLogger)
	defer logger.Sync()

	// Initialize artifact storage
	store, err := storage.NewStore(&storage.FactoryConfig{
		Type: storage.StoreType(cfg.Storage.Type),
		Local: storage.LocalConfig{
			Root:       cfg.Storage.Root,
			PublicBase: cfg.Storage.PublicBase,
		},
		S3: storage.S3Config{
			Endpoint:  cfg.Storage.S3.Endpoint,
			AccessKey: cfg.Storage.S3.AccessKey,
			SecretKey: cfg.Storage.S3.SecretKey,
			UseSSL:    cfg.Storage.S3.UseSSL,
			Bucket:    cfg.Storage.S3.Bucket,
			Region:    cfg.Storage.S3.Region,
			PublicURL: cfg.Storage.S3.PublicURL,
		},
	})
	if err != nil {
		appLogger.Fatalf("Failed to initialize storage: %v", err)
	}

	ctx := context.Background()
	if s3Store, ok := store.(*storage.S3Store); ok {
		if err := s3Store.EnsureBucket(ctx); err != nil {
			appLogger.Fatalf("Failed to ensure storage bucket: %v", err)
		}
	}

	// The pipeline reads source audio from the local spool even when
	// artifacts live in S3.
	spool, ok := store.(*storage.LocalStore)
	if !ok {
		spool, err = storage.NewLocalStore(&storage.LocalConfig{
			Root:       cfg.Storage.Root,
			PublicBase: cfg.Storage.PublicBase,
		})
		if err != nil {
			appLogger.Fatalf("Failed to initialize audio spool: %v", err)
		}
	}

	// Initialize the optional job-history journal
	var history pipeline.HistoryRecorder
	if cfg.Database.Enabled {
		db, err := repository.InitDB(&repository.DBConfig{
			Driver: cfg.Database.Driver,
			Path:   cfg.Database.Path,
			DSN:    cfg.Database.DSN,
		})
		if err != nil {
			appLogger.Fatalf("Failed to initialize database: %v", err)
		}
		history = repository.NewJobHistoryRepository(db)
	}

	// Resolve stage providers once at startup
	adapters, err := stage.NewAdapters(&stage.Config{
		Transcription: stage.TranscriptionConfig{
			Provider: cfg.Transcription.Provider,
			APIKey:   cfg.Transcription.APIKey,
			Model:    cfg.Transcription.Model,
			BaseURL:  cfg.Transcription.BaseURL,
		},
		Diarization: stage.DiarizationConfig{
			Provider: cfg.Diarization.Provider,
			Endpoint: cfg.Diarization.Endpoint,
			APIKey:   cfg.Diarization.APIKey,
		},
		Summarization: stage.SummarizationConfig{
			Provider: cfg.Summarization.Provider,
			APIKey:   cfg.Summarization.APIKey,
			Model:    cfg.Summarization.Model,
			BaseURL:  cfg.Summarization.BaseURL,
		},
		TTS: stage.TTSConfig{
			Provider: cfg.TTS.Provider,
			APIKey:   cfg.TTS.APIKey,
			Voice:    cfg.TTS.Voice,
			BaseURL:  cfg.TTS.BaseURL,
		},
		StageTimeout: cfg.Pipeline.StageTimeout,
	})
	if err != nil {
		appLogger.Fatalf("Failed to initialize stage providers: %v", err)
	}

	// Initialize job tracking and the pipeline
	registry := jobs.NewRegistry()
	orchestrator := pipeline.NewOrchestrator(registry, store, adapters, &pipeline.Options{
		StageTimeout: cfg.Pipeline.StageTimeout,
		History:      history,
		Logger:       appLogger,
	})

	// Initialize services
	ingestService := service.NewIngestService(registry, store, spool, appLogger, &service.IngestConfig{
		DownloadTimeout: cfg.Ingest.DownloadTimeout,
	})
	speechService := service.NewSpeechService(registry, store, adapters.Synthesizer)

	// Setup router
	router := api.SetupRouter(&api.RouterConfig{
		Mode: cfg.Server.Mode,
		CORS: middleware.CORSConfig{
			AllowedOrigins:  cfg.Server.CORS.AllowedOrigins,
			AllowAllOrigins: cfg.Server.CORS.AllowAllOrigins,
		},
		Logger:     appLogger,
		Job:        handler.NewJobHandler(ingestService, speechService, orchestrator, registry, cfg.Ingest.MaxUploadMB),
		Media:      handler.NewMediaHandler(store),
		PublicBase: cfg.Storage.PublicBase,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		appLogger.Infof("Starting API server on port %d (%s mode)", cfg.Server.Port, cfg.Server.Mode)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Fatalf("Server forced to shutdown: %v", err)
	}

	appLogger.Info("Server exited")
}
