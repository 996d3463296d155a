package models

// StagedPhoto is an uploaded photo saved to the staging area.
type StagedPhoto struct {
	// Name is the sanitized client filename, unique within its batch.
	Name string `json:"name"`
	Path string `json:"path"`
}

// WatermarkBatch is one logo applied to a set of staged photos.
type WatermarkBatch struct {
	ID        string        `json:"id"`
	LogoPath  string        `json:"logo_path"`
	Photos    []StagedPhoto `json:"photos"`
	OutputDir string        `json:"output_dir"`
	Opacity   float64       `json:"opacity"`
}

// ProcessedPhoto is the outcome for a single photo of a batch. Error is set
// when the photo was skipped.
type ProcessedPhoto struct {
	Name        string `json:"name"`
	ArchiveName string `json:"archive_name,omitempty"`
	OutputPath  string `json:"-"`
	Format      string `json:"format,omitempty"`
	Width       int    `json:"width,omitempty"`
	Height      int    `json:"height,omitempty"`
	Error       string `json:"error,omitempty"`
}

func (p ProcessedPhoto) Failed() bool {
	return p.Error != ""
}
