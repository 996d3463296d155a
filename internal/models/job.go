package models

import "time"

type WatermarkJob struct {
	ID          string           `json:"id"`
	Batch       WatermarkBatch   `json:"batch"`
	Status      string           `json:"status"`
	CreatedAt   time.Time        `json:"created_at"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
	Results     []ProcessedPhoto `json:"results,omitempty"`
	ArchiveURL  string           `json:"archive_url,omitempty"`
	Error       string           `json:"error,omitempty"`
}

const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// JobView is the public representation of a job.
type JobView struct {
	ID          string           `json:"id"`
	Status      string           `json:"status"`
	CreatedAt   time.Time        `json:"created_at"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
	Photos      int              `json:"photos"`
	Results     []ProcessedPhoto `json:"results,omitempty"`
	ArchiveURL  string           `json:"archive_url,omitempty"`
	Error       string           `json:"error,omitempty"`
}

func (j *WatermarkJob) View() JobView {
	return JobView{
		ID:          j.ID,
		Status:      j.Status,
		CreatedAt:   j.CreatedAt,
		CompletedAt: j.CompletedAt,
		Photos:      len(j.Batch.Photos),
		Results:     j.Results,
		ArchiveURL:  j.ArchiveURL,
		Error:       j.Error,
	}
}
