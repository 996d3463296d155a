package processor

import (
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/phambaophuc/image-watermark/internal/watermark"
)

// ValidateImageHeader checks that r starts with the signature of a supported
// format and rewinds it.
func ValidateImageHeader(r io.ReadSeeker) (watermark.Format, error) {
	header := make([]byte, 12)
	n, err := io.ReadFull(r, header)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return watermark.FormatUnknown, fmt.Errorf("failed to read image header: %w", err)
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return watermark.FormatUnknown, fmt.Errorf("failed to rewind image: %w", err)
	}

	format := watermark.DetectFormat(header[:n])
	if format == watermark.FormatUnknown {
		return format, watermark.ErrUnsupportedFormat
	}
	return format, nil
}

// ParseOpacity parses a form value, returning fallback when it is empty.
func ParseOpacity(value string, fallback float64) (float64, error) {
	if value == "" {
		return fallback, nil
	}

	opacity, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, &watermark.InvalidParameterError{Name: "opacity", Value: math.NaN()}
	}
	if err := watermark.ValidateOpacity(opacity); err != nil {
		return 0, err
	}
	return opacity, nil
}
