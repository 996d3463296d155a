package queue

import (
	"context"
	"errors"
	"time"

	"github.com/phambaophuc/image-watermark/internal/metrics"
	"github.com/phambaophuc/image-watermark/internal/models"
	"github.com/phambaophuc/image-watermark/internal/services/archive"
	"github.com/phambaophuc/image-watermark/internal/services/staging"
	"github.com/phambaophuc/image-watermark/pkg/utils"
	"go.uber.org/zap"
)

var errNothingProcessed = errors.New("no photo could be watermarked")

// processJob runs the batch of job, packs the archive and records the final
// state. Uploaded files are removed once the job settles; the archive stays
// in the processed directory until the staging cleaner expires it.
//
// It reports false when ctx was canceled before the batch finished. The job
// is then put back to pending with its uploads intact so that a redelivery
// can run it again.
func (q *QueueService) processJob(ctx context.Context, job *models.WatermarkJob) bool {
	job.Status = models.StatusProcessing
	q.saveJob(ctx, job)

	job.Results = q.processor.ProcessBatch(ctx, &job.Batch)

	// The status must outlive a canceled worker context.
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	if ctx.Err() != nil {
		job.Status = models.StatusPending
		job.Results = nil
		q.saveJob(saveCtx, job)
		q.logger.Warn("Job interrupted, returning it to the queue",
			zap.String("job_id", job.ID),
			zap.Error(ctx.Err()))
		return false
	}

	defer func() {
		if err := q.staging.RemoveUploads(job.Batch.ID); err != nil {
			q.logger.Warn("Failed to remove uploads", zap.String("job_id", job.ID), zap.Error(err))
		}
	}()

	if err := q.packArchive(ctx, job); err != nil {
		job.Status = models.StatusFailed
		job.Error = err.Error()
		q.logger.Error("Job processing failed",
			zap.String("job_id", job.ID),
			zap.Error(err))
	} else {
		job.Status = models.StatusCompleted
		q.logger.Info("Job completed successfully",
			zap.String("job_id", job.ID),
			zap.String("archive_url", job.ArchiveURL))
	}

	now := time.Now()
	job.CompletedAt = &now
	metrics.JobsTotal.WithLabelValues(job.Status).Inc()
	q.saveJob(saveCtx, job)
	return true
}

func (q *QueueService) packArchive(ctx context.Context, job *models.WatermarkJob) error {
	succeeded := 0
	for _, r := range job.Results {
		if !r.Failed() {
			succeeded++
		}
	}
	if succeeded == 0 {
		return errNothingProcessed
	}

	path := q.staging.ArchivePath(job.Batch.ID)
	sum, err := archive.WriteFile(path, job.Results)
	if err != nil {
		return err
	}

	q.logger.Debug("Archive written",
		zap.String("job_id", job.ID),
		zap.Int("entries", len(sum.Entries)),
		zap.Int("failed", sum.Failed),
		zap.Int64("size", sum.Size))

	if !q.storage.PublishingEnabled() {
		return nil
	}

	url, err := q.storage.UploadArchive(ctx, path, utils.GenerateStorageKey("archives", staging.ArchiveName))
	if err != nil {
		// The local archive remains downloadable.
		q.logger.Warn("Failed to publish archive",
			zap.String("job_id", job.ID),
			zap.Error(err))
		return nil
	}
	job.ArchiveURL = url
	return nil
}

func (q *QueueService) saveJob(ctx context.Context, job *models.WatermarkJob) {
	if err := q.storage.SaveJob(ctx, job); err != nil {
		q.logger.Error("Failed to save job state",
			zap.String("job_id", job.ID),
			zap.String("status", job.Status),
			zap.Error(err))
	}
}
