package storage

import (
	"errors"
	"time"

	"github.com/phambaophuc/image-watermark/internal/config"
	"github.com/redis/go-redis/v9"
	storage_go "github.com/supabase-community/storage-go"
)

var (
	// ErrJobNotFound is returned for unknown or expired job ids.
	ErrJobNotFound = errors.New("job not found")
	// ErrNotConfigured is returned by archive publishing when no object
	// storage is configured.
	ErrNotConfigured = errors.New("object storage not configured")
)

type StorageService struct {
	sbClient    *storage_go.Client
	redisClient *redis.Client
	bucket      string
	jobTTL      time.Duration
}

func NewStorageService(cfg *config.Config) (*StorageService, error) {
	var sbClient *storage_go.Client
	if cfg.SupabaseEnabled() {
		sbClient = storage_go.NewClient(cfg.Supabase.URL+"/storage/v1", cfg.Supabase.KEY, nil)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	return &StorageService{
		sbClient:    sbClient,
		redisClient: redisClient,
		bucket:      cfg.Supabase.BUCKET,
		jobTTL:      cfg.Redis.JobTTL,
	}, nil
}

// PublishingEnabled reports whether archives are uploaded to object storage.
func (s *StorageService) PublishingEnabled() bool {
	return s.sbClient != nil
}

func (s *StorageService) Close() error {
	return s.redisClient.Close()
}
