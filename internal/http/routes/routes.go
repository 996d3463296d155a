package routes

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/phambaophuc/image-watermark/internal/config"
	"github.com/phambaophuc/image-watermark/internal/http/handlers"
	"github.com/phambaophuc/image-watermark/internal/http/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const (
	limiterSize = 10000
	limiterTTL  = 10 * time.Minute
)

type Router struct {
	watermarkHandler *handlers.WatermarkHandler
	config           *config.Config
	logger           *zap.Logger
}

func NewRouter(
	watermarkHandler *handlers.WatermarkHandler,
	config *config.Config,
	logger *zap.Logger,
) *Router {
	return &Router{
		watermarkHandler: watermarkHandler,
		config:           config,
		logger:           logger,
	}
}

func (r *Router) SetupRoutes() *gin.Engine {
	if !r.config.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(middleware.Logger(r.logger))
	router.Use(middleware.ErrorHandler(r.logger))
	router.Use(middleware.SecurityHeaders())
	if r.config.Metrics {
		router.Use(middleware.Metrics())
	}

	router.SetHTMLTemplate(handlers.Templates())

	limiter := middleware.NewMemoryLimiter(r.config.RateLimit.RequestsPerSecond, r.config.RateLimit.Burst, limiterSize, limiterTTL)
	uploadGuards := []gin.HandlerFunc{
		middleware.RateLimit(limiter),
		middleware.BodyLimit(r.config.Server.MaxRequestSize),
	}

	router.GET("/", r.watermarkHandler.Index)
	router.POST("/upload", append(uploadGuards, r.watermarkHandler.Upload)...)

	// API version 1
	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", r.watermarkHandler.HealthCheck)

		jobs := v1.Group("/jobs")
		{
			jobs.POST("", append(uploadGuards, r.watermarkHandler.SubmitJob)...)
			jobs.GET("/:id", r.watermarkHandler.GetJob)
			jobs.GET("/:id/archive", r.watermarkHandler.DownloadArchive)
		}
	}

	if r.config.Metrics {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	return router
}
