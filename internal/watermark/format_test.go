package watermark

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		header string
		want   Format
	}{
		{"\xff\xd8\xff\xe0\x00\x10JFIF", FormatJPEG},
		{"\x89PNG\r\n\x1a\n\x00\x00", FormatPNG},
		{"GIF89a\x01\x00", FormatGIF},
		{"GIF87a\x01\x00", FormatGIF},
		{"BM\x36\x00\x00\x00", FormatBMP},
		{"II*\x00\x08\x00", FormatTIFF},
		{"MM\x00*\x00\x00", FormatTIFF},
		{"RIFF\x24\x00\x00\x00WEBPVP8 ", FormatWebP},
		{"RIFF\x24\x00\x00\x00WAVE", FormatUnknown},
		{"%PDF-1.7", FormatUnknown},
		{"", FormatUnknown},
	}

	for _, tt := range tests {
		if got := DetectFormat([]byte(tt.header)); got != tt.want {
			t.Errorf("DetectFormat(%q) = %v, want %v", tt.header, got, tt.want)
		}
	}
}

func TestFormatFromExtension(t *testing.T) {
	tests := map[string]Format{
		"a.JPG":      FormatJPEG,
		"b.jpeg":     FormatJPEG,
		"c.png":      FormatPNG,
		"d.tif":      FormatTIFF,
		"e.webp":     FormatWebP,
		"f.txt":      FormatUnknown,
		"no_ext":     FormatUnknown,
		"dir.png/gz": FormatUnknown,
	}
	for name, want := range tests {
		if got := FormatFromExtension(name); got != want {
			t.Errorf("FormatFromExtension(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestOutputFilename(t *testing.T) {
	tests := []struct {
		name   string
		format Format
		want   string
	}{
		{"beach.jpg", FormatJPEG, "beach.jpg"},
		{"beach.JPEG", FormatJPEG, "beach.JPEG"},
		{"beach.webp", FormatWebP, "beach.png"},
		{"scan.tiff", FormatTIFF, "scan.tiff"},
		{"anim.gif", FormatGIF, "anim.png"},
		{"photo.png", FormatJPEG, "photo.jpg"},
		{"photo", FormatPNG, "photo.png"},
	}
	for _, tt := range tests {
		if got := OutputFilename(tt.name, tt.format); got != tt.want {
			t.Errorf("OutputFilename(%q, %v) = %q, want %q", tt.name, tt.format, got, tt.want)
		}
	}
}

func TestFormatOutput(t *testing.T) {
	if FormatWebP.Output() != FormatPNG {
		t.Fatalf("webp must be written as png")
	}
	if FormatGIF.Output() != FormatPNG {
		t.Fatalf("gif must be written as png")
	}
	if FormatTIFF.Output() != FormatTIFF {
		t.Fatalf("tiff must be preserved")
	}
	if FormatJPEG.ContentType() != "image/jpeg" {
		t.Fatalf("content type = %q", FormatJPEG.ContentType())
	}
}

func TestDetectFileFormat(t *testing.T) {
	dir, basePath, _ := fixtures(t)

	if f, err := DetectFileFormat(basePath); err != nil || f != FormatPNG {
		t.Fatalf("DetectFileFormat = %v, %v", f, err)
	}

	jpg := filepath.Join(dir, "really-a-png.jpg")
	writePNG(t, jpg, gradient(4, 4))
	if f, _ := DetectFileFormat(jpg); f != FormatPNG {
		t.Fatalf("extension must not decide the format, got %v", f)
	}

	txt := filepath.Join(dir, "a.txt")
	if err := os.WriteFile(txt, []byte("plain"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err := DetectFileFormat(txt)
	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) || !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("err = %v, want unsupported DecodeError", err)
	}
}
