package storage

import (
	"context"

	storage_go "github.com/supabase-community/storage-go"
)

// HealthCheck checks Redis + Supabase
func (s *StorageService) HealthCheck(ctx context.Context) map[string]string {
	status := make(map[string]string)

	// Redis
	if err := s.redisClient.Ping(ctx).Err(); err != nil {
		status["redis"] = "unhealthy: " + err.Error()
	} else {
		status["redis"] = "healthy"
	}

	if s.sbClient == nil {
		status["supabase"] = "disabled"
		return status
	}

	_, err := s.sbClient.ListFiles(s.bucket, "", storage_go.FileSearchOptions{})
	if err != nil {
		status["supabase"] = "unhealthy: " + err.Error()
	} else {
		status["supabase"] = "healthy"
	}

	return status
}
