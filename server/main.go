package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/phambaophuc/image-watermark/internal/config"
	"github.com/phambaophuc/image-watermark/internal/http/handlers"
	"github.com/phambaophuc/image-watermark/internal/http/routes"
	"github.com/phambaophuc/image-watermark/internal/metrics"
	"github.com/phambaophuc/image-watermark/internal/services/processor"
	"github.com/phambaophuc/image-watermark/internal/services/queue"
	"github.com/phambaophuc/image-watermark/internal/services/staging"
	"github.com/phambaophuc/image-watermark/internal/services/storage"
	"github.com/phambaophuc/image-watermark/internal/watermark"
	"go.uber.org/zap"
)

const (
	logoCacheSize = 64
	logoCacheTTL  = 10 * time.Minute
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	// Initialize logger
	logger, err := newLogger(cfg.Debug)
	if err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}
	defer logger.Sync()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Staging area
	area := staging.New(cfg.Storage.UploadDir, cfg.Storage.ProcessedDir, logger)
	if err := area.Init(); err != nil {
		logger.Fatal("Failed to initialize staging area", zap.Error(err))
	}
	go area.StartCleaner(ctx, cfg.Storage.StagingTTL, cfg.Storage.CleanupInterval)

	if cfg.Metrics {
		metrics.Init()
	}

	// Initialize services
	compositor := watermark.NewCompositor(
		watermark.Options{
			JPEGQuality: cfg.Watermark.JPEGQuality,
			MaxPixels:   cfg.Watermark.MaxPixels,
		},
		watermark.NewLogoCache(logoCacheSize, logoCacheTTL),
	)
	batchProcessor := processor.NewWatermarkProcessor(compositor, cfg.Watermark.Workers, logger)

	store, err := storage.NewStorageService(cfg)
	if err != nil {
		logger.Fatal("Failed to initialize storage service", zap.Error(err))
	}
	defer store.Close()

	var jobQueue handlers.JobQueue
	queueService, err := queue.NewQueueService(cfg.RabbitMQ.URL, cfg.RabbitMQ.Queue, batchProcessor, store, area, logger)
	if err != nil {
		// Continue without queue service; the synchronous upload still works
		logger.Warn("Failed to initialize queue service", zap.Error(err))
	} else {
		defer queueService.Close()
		for i := 1; i <= cfg.RabbitMQ.Workers; i++ {
			if err := queueService.StartWorker(ctx, i); err != nil {
				logger.Error("Failed to start worker", zap.Int("worker_id", i), zap.Error(err))
			}
		}
		jobQueue = queueService
	}

	// Initialize handlers
	watermarkHandler := handlers.NewWatermarkHandler(batchProcessor, area, store, jobQueue, logger, cfg)

	router := routes.NewRouter(watermarkHandler, cfg, logger)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		Handler:      router.SetupRoutes(),
	}

	// Start server
	go func() {
		logger.Info("Starting server",
			zap.String("addr", server.Addr),
			zap.Float64("opacity", cfg.Watermark.Opacity),
			zap.Int("workers", cfg.Watermark.Workers),
			zap.Bool("async_jobs", jobQueue != nil),
			zap.Bool("publishing", store.PublishingEnabled()))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	stop()

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
