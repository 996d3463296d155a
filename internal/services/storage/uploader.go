package storage

import (
	"context"
	"fmt"
	"os"

	storage_go "github.com/supabase-community/storage-go"
)

const archiveContentType = "application/zip"

// UploadArchive uploads the archive at path under key and returns its public
// URL.
func (s *StorageService) UploadArchive(ctx context.Context, path, key string) (string, error) {
	if s.sbClient == nil {
		return "", ErrNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open archive: %w", err)
	}
	defer f.Close()

	contentType := archiveContentType
	_, err = s.sbClient.UploadFile(s.bucket, key, f, storage_go.FileOptions{
		ContentType: &contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to supabase: %w", err)
	}

	publicURL := s.sbClient.GetPublicUrl(s.bucket, key)
	return publicURL.SignedURL, nil
}
