package watermark

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"
)

// gradient returns an opaque image whose channels vary with position.
func gradient(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8((x * 255) / max(1, w-1)),
				G: uint8((y * 255) / max(1, h-1)),
				B: uint8((x + y) % 256),
				A: 255,
			})
		}
	}
	return img
}

// translucentLogo returns a logo whose alpha ramps from 0 on the left edge to
// 255 on the right edge.
func translucentLogo(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: 250,
				G: uint8((y * 7) % 256),
				B: 10,
				A: uint8((x * 255) / max(1, w-1)),
			})
		}
	}
	return img
}

func solid(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

func expectedChannel(base, logo, logoAlpha uint8, opacity float64) uint8 {
	a := float64(logoAlpha) / 255 * opacity
	return uint8(math.Round(float64(base)*(1-a) + float64(logo)*a))
}

func writePNG(t *testing.T, path string, img image.Image) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
}

func writeJPEG(t *testing.T, path string, img image.Image) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()
	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: 95}); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
}

func writeGIF(t *testing.T, path string, img *image.Paletted) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()
	if err := gif.Encode(f, img, nil); err != nil {
		t.Fatalf("encode gif: %v", err)
	}
}

// writeOversizedPNG writes a 1x1 PNG whose header claims a w x h canvas.
func writeOversizedPNG(t *testing.T, path string, w, h uint32) {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 1, 1))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	data := buf.Bytes()
	// 8 byte signature, then the IHDR length, type, 13 data bytes and CRC.
	binary.BigEndian.PutUint32(data[16:20], w)
	binary.BigEndian.PutUint32(data[20:24], h)
	binary.BigEndian.PutUint32(data[29:33], crc32.ChecksumIEEE(data[12:29]))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func fixtures(t *testing.T) (dir, basePath, logoPath string) {
	t.Helper()
	dir = t.TempDir()
	basePath = filepath.Join(dir, "photo.png")
	logoPath = filepath.Join(dir, "logo.png")
	writePNG(t, basePath, gradient(120, 80))
	writePNG(t, logoPath, translucentLogo(40, 20))
	return dir, basePath, logoPath
}
