package handlers

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/phambaophuc/image-watermark/internal/config"
	"github.com/phambaophuc/image-watermark/internal/models"
	"github.com/phambaophuc/image-watermark/internal/services/archive"
	"github.com/phambaophuc/image-watermark/internal/services/processor"
	"github.com/phambaophuc/image-watermark/internal/services/staging"
	"github.com/phambaophuc/image-watermark/internal/services/storage"
	"go.uber.org/zap"
)

const (
	logoParamKey    = "logo"
	photosParamKey  = "photos"
	opacityParamKey = "opacity"
	failedHeader    = "X-Watermark-Failed"
)

// JobStore keeps the state of asynchronous jobs.
type JobStore interface {
	SaveJob(ctx context.Context, job *models.WatermarkJob) error
	GetJob(ctx context.Context, id string) (*models.WatermarkJob, error)
	HealthCheck(ctx context.Context) map[string]string
}

// JobQueue hands jobs to background workers.
type JobQueue interface {
	PublishJob(ctx context.Context, job *models.WatermarkJob) error
	GetQueueStats() (map[string]interface{}, error)
	HealthCheck() string
}

type WatermarkHandler struct {
	processor *processor.WatermarkProcessor
	staging   *staging.Area
	store     JobStore
	queue     JobQueue
	logger    *zap.Logger
	config    *config.Config
}

// NewWatermarkHandler returns the HTTP handlers. queue may be nil, which
// disables the job endpoints.
func NewWatermarkHandler(
	processor *processor.WatermarkProcessor,
	staging *staging.Area,
	store JobStore,
	queue JobQueue,
	logger *zap.Logger,
	config *config.Config,
) *WatermarkHandler {
	return &WatermarkHandler{
		processor: processor,
		staging:   staging,
		store:     store,
		queue:     queue,
		logger:    logger,
		config:    config,
	}
}

// Index renders the upload form.
func (h *WatermarkHandler) Index(c *gin.Context) {
	h.renderForm(c, http.StatusOK, "", nil)
}

// Upload watermarks the submitted photos and answers with a zip archive.
func (h *WatermarkHandler) Upload(c *gin.Context) {
	upload, err := h.parseUpload(c)
	if err != nil {
		switch {
		case errors.Is(err, errMissingFiles):
			c.Redirect(http.StatusSeeOther, "/")
		case isTooLarge(err):
			h.renderForm(c, http.StatusRequestEntityTooLarge, "The upload is too large.", nil)
		default:
			h.renderForm(c, http.StatusBadRequest, err.Error(), nil)
		}
		return
	}

	batch, staged, err := h.stage(upload)
	if err != nil {
		h.handleStageError(c, err, true)
		return
	}
	defer h.removeBatch(staged.ID)

	results := h.processor.ProcessBatch(c.Request.Context(), batch)
	failures := failedPhotos(results)
	if len(failures) == len(results) {
		h.renderForm(c, http.StatusUnprocessableEntity, "None of the photos could be watermarked.", failures)
		return
	}

	archivePath := h.staging.ArchivePath(staged.ID)
	sum, err := archive.WriteFile(archivePath, results)
	if err != nil {
		h.logger.Error("Failed to write archive", zap.String("batch_id", staged.ID), zap.Error(err))
		h.renderForm(c, http.StatusInternalServerError, "Failed to build the archive.", nil)
		return
	}

	h.logger.Info("Batch watermarked",
		zap.String("batch_id", staged.ID),
		zap.Int("photos", len(results)),
		zap.Int("failed", len(failures)),
		zap.Int64("archive_size", sum.Size))

	c.Header(failedHeader, strconv.Itoa(len(failures)))
	c.FileAttachment(archivePath, staging.ArchiveName)
}

// SubmitJob stages an upload and queues it for background processing.
func (h *WatermarkHandler) SubmitJob(c *gin.Context) {
	if h.queue == nil {
		h.respondError(c, http.StatusServiceUnavailable, "Job queue is not available")
		return
	}

	upload, err := h.parseUpload(c)
	if err != nil {
		switch {
		case errors.Is(err, errMissingFiles):
			h.respondError(c, http.StatusBadRequest, "A logo and at least one photo are required")
		case isTooLarge(err):
			h.respondError(c, http.StatusRequestEntityTooLarge, "Request body too large")
		default:
			h.respondError(c, http.StatusBadRequest, err.Error())
		}
		return
	}

	batch, staged, err := h.stage(upload)
	if err != nil {
		h.handleStageError(c, err, false)
		return
	}

	job := &models.WatermarkJob{
		ID:        staged.ID,
		Batch:     *batch,
		Status:    models.StatusPending,
		CreatedAt: time.Now(),
	}

	ctx := c.Request.Context()
	if err := h.store.SaveJob(ctx, job); err != nil {
		h.logger.Error("Failed to save job", zap.String("job_id", job.ID), zap.Error(err))
		h.removeBatch(staged.ID)
		h.respondError(c, http.StatusServiceUnavailable, "Failed to record job")
		return
	}

	if err := h.queue.PublishJob(ctx, job); err != nil {
		h.logger.Error("Failed to publish job", zap.String("job_id", job.ID), zap.Error(err))
		h.removeBatch(staged.ID)
		h.respondError(c, http.StatusServiceUnavailable, "Failed to queue job")
		return
	}

	c.Header("Location", "/api/v1/jobs/"+job.ID)
	c.JSON(http.StatusAccepted, models.APIResponse{
		Success: true,
		Data:    job.View(),
	})
}

// GetJob reports the state of a job.
func (h *WatermarkHandler) GetJob(c *gin.Context) {
	job, ok := h.loadJob(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, models.APIResponse{
		Success: true,
		Data:    job.View(),
	})
}

// DownloadArchive serves the archive of a completed job, or redirects to it
// when it was published to object storage.
func (h *WatermarkHandler) DownloadArchive(c *gin.Context) {
	job, ok := h.loadJob(c)
	if !ok {
		return
	}

	if job.Status != models.StatusCompleted {
		h.respondError(c, http.StatusConflict, "Job is "+job.Status)
		return
	}

	if job.ArchiveURL != "" {
		c.Redirect(http.StatusFound, job.ArchiveURL)
		return
	}

	path := h.staging.ArchivePath(job.Batch.ID)
	if _, err := os.Stat(path); err != nil {
		h.respondError(c, http.StatusGone, "Archive has expired")
		return
	}
	c.FileAttachment(path, staging.ArchiveName)
}

// HealthCheck
func (h *WatermarkHandler) HealthCheck(c *gin.Context) {
	services := h.store.HealthCheck(c.Request.Context())
	var queueStats map[string]interface{}
	if h.queue == nil {
		services["rabbitmq"] = "not configured"
	} else {
		services["rabbitmq"] = h.queue.HealthCheck()
		if stats, err := h.queue.GetQueueStats(); err != nil {
			h.logger.Warn("Failed to get queue stats", zap.Error(err))
		} else {
			queueStats = stats
		}
	}
	overall := h.calculateOverallHealth(services)

	statusCode := http.StatusOK
	if overall == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, models.APIResponse{
		Success: overall == "healthy",
		Data: models.HealthCheck{
			Status:    overall,
			Timestamp: time.Now(),
			Services:  services,
			Queue:     queueStats,
		},
	})
}

func (h *WatermarkHandler) loadJob(c *gin.Context) (*models.WatermarkJob, bool) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		h.respondError(c, http.StatusNotFound, "Job not found")
		return nil, false
	}

	job, err := h.store.GetJob(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrJobNotFound) {
			h.respondError(c, http.StatusNotFound, "Job not found")
			return nil, false
		}
		h.logger.Error("Failed to load job", zap.String("job_id", id), zap.Error(err))
		h.respondError(c, http.StatusServiceUnavailable, "Failed to load job")
		return nil, false
	}
	return job, true
}
