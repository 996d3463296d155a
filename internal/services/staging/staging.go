package staging

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phambaophuc/image-watermark/pkg/utils"
	"go.uber.org/zap"
)

const (
	ArchiveName = "processed_images.zip"
	dirPerm     = 0o755
)

// Area owns the upload and processed directories. Every batch gets its own
// subdirectory in both, named by the batch id.
type Area struct {
	uploadDir    string
	processedDir string
	logger       *zap.Logger
}

func New(uploadDir, processedDir string, logger *zap.Logger) *Area {
	return &Area{
		uploadDir:    uploadDir,
		processedDir: processedDir,
		logger:       logger,
	}
}

// Init creates the staging directories.
func (a *Area) Init() error {
	for _, dir := range []string{a.uploadDir, a.processedDir} {
		if err := os.MkdirAll(dir, dirPerm); err != nil {
			return fmt.Errorf("failed to create staging directory %s: %w", dir, err)
		}
	}
	return nil
}

// NewBatch allocates directories for a new batch.
func (a *Area) NewBatch() (*Batch, error) {
	id := uuid.New().String()
	b := &Batch{
		ID:        id,
		UploadDir: filepath.Join(a.uploadDir, id),
		OutputDir: filepath.Join(a.processedDir, id),
		names:     make(map[string]bool),
	}

	for _, dir := range []string{b.UploadDir, b.OutputDir} {
		if err := os.MkdirAll(dir, dirPerm); err != nil {
			a.Remove(id)
			return nil, fmt.Errorf("failed to create batch directory: %w", err)
		}
	}
	return b, nil
}

// ArchivePath is where the archive of batch id is written.
func (a *Area) ArchivePath(id string) string {
	return filepath.Join(a.processedDir, id, ArchiveName)
}

// RemoveUploads deletes the uploaded files of batch id.
func (a *Area) RemoveUploads(id string) error {
	return os.RemoveAll(filepath.Join(a.uploadDir, filepath.Base(id)))
}

// Remove deletes everything staged for batch id.
func (a *Area) Remove(id string) error {
	id = filepath.Base(id)
	errUp := os.RemoveAll(filepath.Join(a.uploadDir, id))
	errOut := os.RemoveAll(filepath.Join(a.processedDir, id))
	if errUp != nil {
		return errUp
	}
	return errOut
}

// StartCleaner removes batch directories older than ttl every interval until
// ctx is done.
func (a *Area) StartCleaner(ctx context.Context, ttl, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.Sweep(ttl)
		}
	}
}

// Sweep removes batch directories last modified more than ttl ago and
// returns how many were removed.
func (a *Area) Sweep(ttl time.Duration) int {
	removed := 0
	for _, root := range []string{a.uploadDir, a.processedDir} {
		entries, err := os.ReadDir(root)
		if err != nil {
			a.logger.Error("Failed to read staging directory", zap.String("dir", root), zap.Error(err))
			continue
		}
		for _, e := range entries {
			if !e.IsDir() {
				continue
			}
			info, err := e.Info()
			if err != nil || time.Since(info.ModTime()) <= ttl {
				continue
			}
			if err := os.RemoveAll(filepath.Join(root, e.Name())); err != nil {
				a.logger.Warn("Failed to remove stale batch", zap.String("batch_id", e.Name()), zap.Error(err))
				continue
			}
			removed++
		}
	}

	if removed > 0 {
		a.logger.Debug("Staging cleanup finished", zap.Int("removed", removed))
	}
	return removed
}

// Batch is the staging space of a single request or job.
type Batch struct {
	ID        string
	UploadDir string
	OutputDir string

	mu    sync.Mutex
	names map[string]bool
}

// Save writes r under a sanitized, batch-unique version of name and returns
// the name used and the file path.
func (b *Batch) Save(name string, r io.Reader) (string, string, error) {
	safe := b.reserve(name)
	path := filepath.Join(b.UploadDir, safe)

	f, err := os.Create(path)
	if err != nil {
		return "", "", fmt.Errorf("failed to create %s: %w", safe, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return "", "", fmt.Errorf("failed to write %s: %w", safe, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", "", fmt.Errorf("failed to write %s: %w", safe, err)
	}

	return safe, path, nil
}

func (b *Batch) reserve(name string) string {
	b.mu.Lock()
	defer b.mu.Unlock()

	safe := utils.SanitizeFilename(name)
	if safe == "" || safe == ArchiveName {
		safe = "upload_" + uuid.New().String()[:8] + filepath.Ext(safe)
	}
	safe = utils.UniqueName(safe, func(n string) bool { return b.names[n] })
	b.names[safe] = true
	return safe
}
