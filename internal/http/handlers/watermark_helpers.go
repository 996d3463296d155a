package handlers

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/phambaophuc/image-watermark/internal/models"
	"github.com/phambaophuc/image-watermark/internal/services/processor"
	"github.com/phambaophuc/image-watermark/internal/services/staging"
	"go.uber.org/zap"
)

var (
	errMissingFiles = errors.New("a logo and at least one photo are required")
	errInvalidLogo  = errors.New("the logo is not a supported image")
)

type uploadRequest struct {
	logo    *multipart.FileHeader
	photos  []*multipart.FileHeader
	opacity float64
}

// === REQUEST PARSING ===

func (h *WatermarkHandler) parseUpload(c *gin.Context) (*uploadRequest, error) {
	form, err := c.MultipartForm()
	if err != nil {
		if isTooLarge(err) {
			return nil, err
		}
		return nil, errMissingFiles
	}

	logo := firstNamed(form.File[logoParamKey])
	var photos []*multipart.FileHeader
	for _, fh := range form.File[photosParamKey] {
		if fh.Filename != "" {
			photos = append(photos, fh)
		}
	}
	if logo == nil || len(photos) == 0 {
		return nil, errMissingFiles
	}

	var rawOpacity string
	if values := form.Value[opacityParamKey]; len(values) > 0 {
		rawOpacity = values[0]
	}
	opacity, err := processor.ParseOpacity(rawOpacity, h.config.Watermark.Opacity)
	if err != nil {
		return nil, err
	}

	return &uploadRequest{logo: logo, photos: photos, opacity: opacity}, nil
}

func firstNamed(files []*multipart.FileHeader) *multipart.FileHeader {
	for _, fh := range files {
		if fh.Filename != "" {
			return fh
		}
	}
	return nil
}

func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}

// === FILE OPERATIONS ===

// stage saves the upload into a fresh batch. On error nothing is left behind.
func (h *WatermarkHandler) stage(upload *uploadRequest) (*models.WatermarkBatch, *staging.Batch, error) {
	staged, err := h.staging.NewBatch()
	if err != nil {
		return nil, nil, err
	}

	batch, err := h.saveFiles(staged, upload)
	if err != nil {
		h.removeBatch(staged.ID)
		return nil, nil, err
	}
	return batch, staged, nil
}

func (h *WatermarkHandler) saveFiles(staged *staging.Batch, upload *uploadRequest) (*models.WatermarkBatch, error) {
	logoFile, err := upload.logo.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open logo: %w", err)
	}
	defer logoFile.Close()

	if _, err := processor.ValidateImageHeader(logoFile); err != nil {
		return nil, errInvalidLogo
	}
	_, logoPath, err := staged.Save(upload.logo.Filename, logoFile)
	if err != nil {
		return nil, err
	}

	batch := &models.WatermarkBatch{
		ID:        staged.ID,
		LogoPath:  logoPath,
		OutputDir: staged.OutputDir,
		Opacity:   upload.opacity,
	}

	for _, fh := range upload.photos {
		photo, err := h.savePhoto(staged, fh)
		if err != nil {
			return nil, err
		}
		batch.Photos = append(batch.Photos, photo)
	}
	return batch, nil
}

func (h *WatermarkHandler) savePhoto(staged *staging.Batch, fh *multipart.FileHeader) (models.StagedPhoto, error) {
	f, err := fh.Open()
	if err != nil {
		return models.StagedPhoto{}, fmt.Errorf("failed to open %s: %w", fh.Filename, err)
	}
	defer f.Close()

	name, path, err := staged.Save(fh.Filename, f)
	if err != nil {
		return models.StagedPhoto{}, err
	}
	return models.StagedPhoto{Name: name, Path: path}, nil
}

func (h *WatermarkHandler) removeBatch(id string) {
	if err := h.staging.Remove(id); err != nil {
		h.logger.Warn("Failed to remove batch", zap.String("batch_id", id), zap.Error(err))
	}
}

func failedPhotos(results []models.ProcessedPhoto) []models.ProcessedPhoto {
	var failed []models.ProcessedPhoto
	for _, r := range results {
		if r.Failed() {
			failed = append(failed, r)
		}
	}
	return failed
}

// === RESPONSE HANDLING ===

func (h *WatermarkHandler) handleStageError(c *gin.Context, err error, html bool) {
	status, message := http.StatusInternalServerError, "Failed to store the upload"
	switch {
	case errors.Is(err, errInvalidLogo):
		status, message = http.StatusBadRequest, "The logo is not a supported image."
	case isTooLarge(err):
		status, message = http.StatusRequestEntityTooLarge, "The upload is too large."
	default:
		h.logger.Error("Failed to stage upload", zap.Error(err))
	}

	if html {
		h.renderForm(c, status, message, nil)
		return
	}
	h.respondError(c, status, message)
}

func (h *WatermarkHandler) renderForm(c *gin.Context, status int, message string, failures []models.ProcessedPhoto) {
	c.HTML(status, indexTemplate, gin.H{
		"Error":    message,
		"Failures": failures,
		"Opacity":  h.config.Watermark.Opacity,
	})
}

func (h *WatermarkHandler) respondError(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, models.APIResponse{
		Success: false,
		Error:   message,
	})
}

// === UTILITY METHODS ===

func (h *WatermarkHandler) calculateOverallHealth(services map[string]string) string {
	for _, status := range services {
		if status != "healthy" && status != "not configured" && status != "disabled" {
			return "unhealthy"
		}
	}
	return "healthy"
}
