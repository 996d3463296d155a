package watermark

import (
	"bufio"
	"fmt"
	"image"
	"os"
	"path/filepath"
)

const (
	DefaultJPEGQuality = 90
	// DefaultMaxPixels allows photos up to roughly 50 megapixels.
	DefaultMaxPixels int64 = 50_000_000
)

// Options configure a Compositor.
type Options struct {
	// JPEGQuality is used when the photo is written back as JPEG (1-100).
	JPEGQuality int
	// MaxPixels bounds width*height of the photo and the logo. Zero means
	// DefaultMaxPixels.
	MaxPixels int64
}

// Result describes a written watermarked image.
type Result struct {
	Path   string
	Format Format
	Width  int
	Height int
}

// Compositor decodes, blends and writes watermarked images.
type Compositor struct {
	opts  Options
	logos *LogoCache
}

var defaultCompositor = NewCompositor(Options{}, nil)

// NewCompositor returns a Compositor. logos may be nil, in which case the
// logo is decoded on every call.
func NewCompositor(opts Options, logos *LogoCache) *Compositor {
	if opts.JPEGQuality < 1 || opts.JPEGQuality > 100 {
		opts.JPEGQuality = DefaultJPEGQuality
	}
	if opts.MaxPixels <= 0 {
		opts.MaxPixels = DefaultMaxPixels
	}
	return &Compositor{opts: opts, logos: logos}
}

// Composite watermarks the image at basePath with the logo at logoPath using
// a compositor with default options.
func Composite(basePath, logoPath, outputPath string, opacity float64) (*Result, error) {
	return defaultCompositor.Composite(basePath, logoPath, outputPath, opacity)
}

// Composite watermarks the image at basePath with the logo at logoPath and
// writes it to outputPath, whose directory must exist. The output is written
// in the format returned by Result.Format regardless of the extension of
// outputPath. Either the whole file is written or outputPath is left as it
// was.
func (c *Compositor) Composite(basePath, logoPath, outputPath string, opacity float64) (*Result, error) {
	if err := ValidateOpacity(opacity); err != nil {
		return nil, err
	}

	base, format, err := decodeFile(basePath, c.opts.MaxPixels)
	if err != nil {
		return nil, err
	}

	logo, err := c.loadLogo(logoPath)
	if err != nil {
		return nil, err
	}

	out, err := Blend(base, logo, opacity)
	if err != nil {
		return nil, err
	}

	outFormat := format.Output()
	if err := c.writeAtomic(outputPath, out, outFormat); err != nil {
		return nil, &EncodeError{Path: outputPath, Err: err}
	}

	return &Result{
		Path:   outputPath,
		Format: outFormat,
		Width:  out.Bounds().Dx(),
		Height: out.Bounds().Dy(),
	}, nil
}

func (c *Compositor) loadLogo(path string) (image.Image, error) {
	if c.logos != nil {
		return c.logos.get(path, c.opts.MaxPixels)
	}
	img, _, err := decodeFile(path, c.opts.MaxPixels)
	return img, err
}

// writeAtomic encodes img into a temporary file next to dest and renames it
// into place once it is complete.
func (c *Compositor) writeAtomic(dest string, img image.Image, format Format) error {
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".watermark_*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	defer func() {
		tmp.Close()
		os.Remove(tmpName) // no-op after a successful rename
	}()

	w := bufio.NewWriter(tmp)
	if err := encode(w, img, format, c.opts.JPEGQuality); err != nil {
		return fmt.Errorf("%s: %w", format, err)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmpName, dest)
}
