package watermark

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	"golang.org/x/image/webp"
)

// Format is one of the supported raster formats.
type Format int

const (
	FormatUnknown Format = iota
	FormatJPEG
	FormatPNG
	FormatGIF
	FormatBMP
	FormatTIFF
	FormatWebP
)

// sniffLen is enough bytes to recognise every supported signature.
const sniffLen = 12

var formatNames = map[Format]string{
	FormatJPEG: "jpeg",
	FormatPNG:  "png",
	FormatGIF:  "gif",
	FormatBMP:  "bmp",
	FormatTIFF: "tiff",
	FormatWebP: "webp",
}

var formatExts = map[string]Format{
	".jpg":  FormatJPEG,
	".jpeg": FormatJPEG,
	".jpe":  FormatJPEG,
	".png":  FormatPNG,
	".gif":  FormatGIF,
	".bmp":  FormatBMP,
	".tif":  FormatTIFF,
	".tiff": FormatTIFF,
	".webp": FormatWebP,
}

func (f Format) String() string {
	if name, ok := formatNames[f]; ok {
		return name
	}
	return "unknown"
}

// Extension returns the canonical file extension, including the dot.
func (f Format) Extension() string {
	switch f {
	case FormatJPEG:
		return ".jpg"
	case FormatUnknown:
		return ""
	default:
		return "." + f.String()
	}
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	if f == FormatUnknown {
		return "application/octet-stream"
	}
	return "image/" + f.String()
}

// Output returns the format a result is written in when the input was f.
// WebP has no pure Go encoder and re-encoding GIF would quantize every pixel
// to a fixed palette, so both are written as PNG.
func (f Format) Output() Format {
	switch f {
	case FormatGIF, FormatWebP, FormatUnknown:
		return FormatPNG
	}
	return f
}

// DetectFormat identifies a format from the leading bytes of a file.
func DetectFormat(header []byte) Format {
	switch {
	case bytes.HasPrefix(header, []byte{0xFF, 0xD8, 0xFF}):
		return FormatJPEG
	case bytes.HasPrefix(header, []byte("\x89PNG\r\n\x1a\n")):
		return FormatPNG
	case bytes.HasPrefix(header, []byte("GIF87a")), bytes.HasPrefix(header, []byte("GIF89a")):
		return FormatGIF
	case bytes.HasPrefix(header, []byte("BM")):
		return FormatBMP
	case bytes.HasPrefix(header, []byte("II*\x00")), bytes.HasPrefix(header, []byte("MM\x00*")):
		return FormatTIFF
	case len(header) >= sniffLen && bytes.Equal(header[:4], []byte("RIFF")) && bytes.Equal(header[8:12], []byte("WEBP")):
		return FormatWebP
	}
	return FormatUnknown
}

// FormatFromExtension maps a filename extension to a format.
func FormatFromExtension(name string) Format {
	return formatExts[strings.ToLower(filepath.Ext(name))]
}

// OutputFilename returns name with its extension replaced when the output
// format differs from what the extension says.
func OutputFilename(name string, f Format) string {
	out := f.Output()
	if FormatFromExtension(name) == out {
		return name
	}
	return strings.TrimSuffix(name, filepath.Ext(name)) + out.Extension()
}

// DetectFileFormat identifies the format of the file at path from its
// signature without decoding it. Errors are *DecodeError.
func DetectFileFormat(path string) (Format, error) {
	file, err := os.Open(path)
	if err != nil {
		return FormatUnknown, &DecodeError{Path: path, Err: err}
	}
	defer file.Close()

	header := make([]byte, sniffLen)
	n, err := io.ReadFull(file, header)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return FormatUnknown, &DecodeError{Path: path, Err: err}
	}
	if n == 0 {
		return FormatUnknown, &DecodeError{Path: path, Err: errors.New("empty file")}
	}

	format := DetectFormat(header[:n])
	if format == FormatUnknown {
		return FormatUnknown, &DecodeError{Path: path, Err: ErrUnsupportedFormat}
	}
	return format, nil
}

type codec struct {
	decode func(io.Reader) (image.Image, error)
	config func(io.Reader) (image.Config, error)
}

var codecs = map[Format]codec{
	FormatJPEG: {jpeg.Decode, jpeg.DecodeConfig},
	FormatPNG:  {png.Decode, png.DecodeConfig},
	FormatGIF:  {gif.Decode, gif.DecodeConfig},
	FormatBMP:  {bmp.Decode, bmp.DecodeConfig},
	FormatTIFF: {tiff.Decode, tiff.DecodeConfig},
	FormatWebP: {webp.Decode, webp.DecodeConfig},
}

func decodeFile(path string, maxPixels int64) (image.Image, Format, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, FormatUnknown, &DecodeError{Path: path, Err: err}
	}
	defer file.Close()

	img, format, err := decode(file, maxPixels)
	if err != nil {
		return nil, FormatUnknown, &DecodeError{Path: path, Err: err}
	}
	return img, format, nil
}

// decode reads the header first and only decodes the pixels when the
// declared canvas is within maxPixels. A maxPixels <= 0 disables the limit.
func decode(r io.ReadSeeker, maxPixels int64) (image.Image, Format, error) {
	br := bufio.NewReader(r)
	header, err := br.Peek(sniffLen)
	if err != nil && err != io.EOF {
		return nil, FormatUnknown, err
	}
	if len(header) == 0 {
		return nil, FormatUnknown, errors.New("empty file")
	}

	format := DetectFormat(header)
	c, ok := codecs[format]
	if !ok {
		return nil, FormatUnknown, ErrUnsupportedFormat
	}

	cfg, err := c.config(br)
	if err != nil {
		return nil, format, fmt.Errorf("%s: %w", format, err)
	}
	if err := checkDimensions(cfg.Width, cfg.Height, maxPixels); err != nil {
		return nil, format, err
	}

	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, format, err
	}
	br.Reset(r)

	img, err := c.decode(br)
	if err != nil {
		return nil, format, fmt.Errorf("%s: %w", format, err)
	}
	if b := img.Bounds(); b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, format, fmt.Errorf("invalid image dimensions %dx%d", b.Dx(), b.Dy())
	}
	return img, format, nil
}

func checkDimensions(width, height int, maxPixels int64) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid image dimensions %dx%d", width, height)
	}
	if maxPixels > 0 && int64(width)*int64(height) > maxPixels {
		return fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrImageTooLarge, width, height, maxPixels)
	}
	return nil
}

func encode(w io.Writer, img image.Image, f Format, jpegQuality int) error {
	switch f.Output() {
	case FormatJPEG:
		return imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality))
	case FormatBMP:
		return imaging.Encode(w, img, imaging.BMP)
	case FormatTIFF:
		return imaging.Encode(w, img, imaging.TIFF)
	default:
		return imaging.Encode(w, img, imaging.PNG)
	}
}
