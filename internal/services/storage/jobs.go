package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/phambaophuc/image-watermark/internal/models"
	"github.com/redis/go-redis/v9"
)

const jobKeyPrefix = "watermark_job:"

func jobKey(id string) string {
	return jobKeyPrefix + id
}

// SaveJob stores the current state of job. Records expire after the
// configured job TTL.
func (s *StorageService) SaveJob(ctx context.Context, job *models.WatermarkJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}
	if err := s.redisClient.Set(ctx, jobKey(job.ID), data, s.jobTTL).Err(); err != nil {
		return fmt.Errorf("failed to save job: %w", err)
	}
	return nil
}

func (s *StorageService) GetJob(ctx context.Context, id string) (*models.WatermarkJob, error) {
	data, err := s.redisClient.Get(ctx, jobKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to load job: %w", err)
	}

	var job models.WatermarkJob
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}
	return &job, nil
}
