package archive

import (
	"archive/zip"
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/phambaophuc/image-watermark/internal/models"
	"github.com/phambaophuc/image-watermark/pkg/utils"
)

// ReportName is the archive entry listing photos that were skipped.
const ReportName = "FAILED.txt"

// Summary describes a written archive.
type Summary struct {
	Entries []string
	Failed  int
	Size    int64
}

// Write packs every successfully processed photo into a zip archive written
// to w. When some photos failed, a FAILED.txt entry lists them with the
// reason. Entries appear in the order of photos.
func Write(w io.Writer, photos []models.ProcessedPhoto) (Summary, error) {
	cw := &countingWriter{w: w}
	zw := zip.NewWriter(cw)

	var sum Summary
	taken := map[string]bool{ReportName: true}
	var failed []models.ProcessedPhoto

	for _, p := range photos {
		if p.Failed() {
			failed = append(failed, p)
			continue
		}

		name := entryName(p)
		name = utils.UniqueName(name, func(n string) bool { return taken[n] })
		taken[name] = true

		if err := addFile(zw, name, p.OutputPath); err != nil {
			return sum, err
		}
		sum.Entries = append(sum.Entries, name)
	}

	if len(failed) > 0 {
		if err := addReport(zw, failed); err != nil {
			return sum, err
		}
		sum.Entries = append(sum.Entries, ReportName)
		sum.Failed = len(failed)
	}

	if err := zw.Close(); err != nil {
		return sum, fmt.Errorf("failed to finish archive: %w", err)
	}
	sum.Size = cw.n
	return sum, nil
}

// WriteFile writes the archive to path. The file either appears complete or
// not at all.
func WriteFile(path string, photos []models.ProcessedPhoto) (Summary, error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".archive_*")
	if err != nil {
		return Summary{}, fmt.Errorf("failed to create archive: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		tmp.Close()
		os.Remove(tmpName)
	}()

	bw := bufio.NewWriter(tmp)
	sum, err := Write(bw, photos)
	if err != nil {
		return sum, err
	}
	if err := bw.Flush(); err != nil {
		return sum, fmt.Errorf("failed to write archive: %w", err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		return sum, fmt.Errorf("failed to set archive permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return sum, fmt.Errorf("failed to write archive: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return sum, fmt.Errorf("failed to move archive into place: %w", err)
	}
	return sum, nil
}

func entryName(p models.ProcessedPhoto) string {
	if p.ArchiveName != "" {
		return p.ArchiveName
	}
	return filepath.Base(p.OutputPath)
}

func addFile(zw *zip.Writer, name, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", name, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", name, err)
	}

	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return fmt.Errorf("failed to build header for %s: %w", name, err)
	}
	hdr.Name = name
	hdr.Method = method(name)

	entry, err := zw.CreateHeader(hdr)
	if err != nil {
		return fmt.Errorf("failed to add %s: %w", name, err)
	}
	if _, err := io.Copy(entry, f); err != nil {
		return fmt.Errorf("failed to add %s: %w", name, err)
	}
	return nil
}

func addReport(zw *zip.Writer, failed []models.ProcessedPhoto) error {
	entry, err := zw.CreateHeader(&zip.FileHeader{
		Name:     ReportName,
		Method:   zip.Deflate,
		Modified: time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to add report: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d photo(s) could not be watermarked:\n\n", len(failed))
	for _, p := range failed {
		fmt.Fprintf(&b, "%s: %s\n", p.Name, p.Error)
	}
	if _, err := io.WriteString(entry, b.String()); err != nil {
		return fmt.Errorf("failed to add report: %w", err)
	}
	return nil
}

// method stores already compressed formats as is.
func method(name string) uint16 {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg", ".jpe", ".png", ".gif", ".webp":
		return zip.Store
	}
	return zip.Deflate
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
