package processor

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/phambaophuc/image-watermark/internal/metrics"
	"github.com/phambaophuc/image-watermark/internal/models"
	"github.com/phambaophuc/image-watermark/internal/watermark"
	"github.com/phambaophuc/image-watermark/pkg/utils"
	"go.uber.org/zap"
)

// WatermarkProcessor applies one logo to every photo of a batch.
type WatermarkProcessor struct {
	compositor *watermark.Compositor
	workers    int
	logger     *zap.Logger
}

func NewWatermarkProcessor(compositor *watermark.Compositor, workers int, logger *zap.Logger) *WatermarkProcessor {
	if workers < 1 {
		workers = 1
	}
	return &WatermarkProcessor{
		compositor: compositor,
		workers:    workers,
		logger:     logger,
	}
}

// ProcessBatch watermarks every photo of the batch into batch.OutputDir. The
// result at index i belongs to batch.Photos[i]. A photo that cannot be
// processed is reported in its result and does not stop the others.
func (p *WatermarkProcessor) ProcessBatch(ctx context.Context, batch *models.WatermarkBatch) []models.ProcessedPhoto {
	results := make([]models.ProcessedPhoto, len(batch.Photos))
	if len(batch.Photos) == 0 {
		return results
	}

	if err := watermark.ValidateOpacity(batch.Opacity); err != nil {
		for i, photo := range batch.Photos {
			results[i] = p.failed(batch, photo, err)
		}
		return results
	}

	names, errs := p.planOutputs(batch)

	numWorkers := p.workers
	if len(batch.Photos) < numWorkers {
		numWorkers = len(batch.Photos)
	}

	jobs := make(chan int, len(batch.Photos))
	var wg sync.WaitGroup

	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if errs[i] != nil {
					results[i] = p.failed(batch, batch.Photos[i], errs[i])
					continue
				}
				results[i] = p.processPhoto(ctx, batch, batch.Photos[i], names[i])
			}
		}()
	}

	for i := range batch.Photos {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return results
}

// planOutputs sniffs every photo and assigns it an output name that is
// unique within the batch. Names depend only on photo order.
func (p *WatermarkProcessor) planOutputs(batch *models.WatermarkBatch) ([]string, []error) {
	names := make([]string, len(batch.Photos))
	errs := make([]error, len(batch.Photos))
	taken := make(map[string]bool, len(batch.Photos))

	for i, photo := range batch.Photos {
		format, err := watermark.DetectFileFormat(photo.Path)
		if err != nil {
			errs[i] = err
			continue
		}
		name := utils.UniqueName(watermark.OutputFilename(photo.Name, format), func(n string) bool {
			return taken[strings.ToLower(n)]
		})
		taken[strings.ToLower(name)] = true
		names[i] = name
	}
	return names, errs
}

func (p *WatermarkProcessor) processPhoto(ctx context.Context, batch *models.WatermarkBatch, photo models.StagedPhoto, outName string) models.ProcessedPhoto {
	if err := ctx.Err(); err != nil {
		return p.failed(batch, photo, err)
	}

	start := time.Now()
	res, err := p.compositor.Composite(photo.Path, batch.LogoPath, filepath.Join(batch.OutputDir, outName), batch.Opacity)
	if err != nil {
		return p.failed(batch, photo, err)
	}

	metrics.CompositeDuration.Observe(time.Since(start).Seconds())
	metrics.PhotosProcessedTotal.WithLabelValues("ok").Inc()

	p.logger.Debug("Photo watermarked",
		zap.String("batch_id", batch.ID),
		zap.String("photo", photo.Name),
		zap.String("output", res.Path),
		zap.Duration("took", time.Since(start)))

	return models.ProcessedPhoto{
		Name:        photo.Name,
		ArchiveName: outName,
		OutputPath:  res.Path,
		Format:      res.Format.String(),
		Width:       res.Width,
		Height:      res.Height,
	}
}

func (p *WatermarkProcessor) failed(batch *models.WatermarkBatch, photo models.StagedPhoto, err error) models.ProcessedPhoto {
	kind := ErrorKind(err)
	metrics.PhotosProcessedTotal.WithLabelValues(kind).Inc()

	p.logger.Warn("Photo skipped",
		zap.String("batch_id", batch.ID),
		zap.String("photo", photo.Name),
		zap.String("kind", kind),
		zap.Error(err))

	return models.ProcessedPhoto{
		Name:  photo.Name,
		Error: Describe(err),
	}
}

// ErrorKind classifies a processing error for metrics and logs.
func ErrorKind(err error) string {
	var (
		decodeErr *watermark.DecodeError
		paramErr  *watermark.InvalidParameterError
		encodeErr *watermark.EncodeError
	)
	switch {
	case errors.As(err, &decodeErr):
		return "decode_error"
	case errors.As(err, &paramErr):
		return "invalid_parameter"
	case errors.As(err, &encodeErr):
		return "encode_error"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	}
	return "error"
}

// Describe turns a processing error into a message that is safe to show to
// the uploader; staging paths are never included.
func Describe(err error) string {
	var paramErr *watermark.InvalidParameterError
	switch ErrorKind(err) {
	case "decode_error":
		if errors.Is(err, watermark.ErrUnsupportedFormat) {
			return "unsupported image format"
		}
		if errors.Is(err, watermark.ErrImageTooLarge) {
			return "image dimensions too large"
		}
		return "not a valid image"
	case "invalid_parameter":
		errors.As(err, &paramErr)
		return paramErr.Error()
	case "encode_error":
		return "failed to write watermarked image"
	case "canceled":
		return "processing canceled"
	}
	return "processing failed"
}
