package watermark

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestLogoCacheReusesDecodedLogo(t *testing.T) {
	_, _, logoPath := fixtures(t)
	cache := NewLogoCache(8, time.Minute)

	first, err := cache.Get(logoPath)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	second, err := cache.Get(logoPath)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if first != second {
		t.Fatalf("second lookup decoded the logo again")
	}
}

func TestLogoCacheReloadsChangedFile(t *testing.T) {
	_, _, logoPath := fixtures(t)
	cache := NewLogoCache(8, time.Minute)

	first, err := cache.Get(logoPath)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	writePNG(t, logoPath, translucentLogo(10, 5))
	later := time.Now().Add(time.Hour)
	if err := os.Chtimes(logoPath, later, later); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	second, err := cache.Get(logoPath)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if second.Bounds().Dx() != 10 || first.Bounds().Dx() != 40 {
		t.Fatalf("stale logo returned: %v", second.Bounds())
	}
}

func TestLogoCacheMissingFile(t *testing.T) {
	cache := NewLogoCache(8, time.Minute)
	path := filepath.Join(t.TempDir(), "nope.png")

	_, err := cache.Get(path)
	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) || decodeErr.Path != path {
		t.Fatalf("err = %v, want DecodeError for %s", err, path)
	}
	if cache.Len() != 0 {
		t.Fatalf("failed load was cached")
	}
}

func TestLogoCacheConcurrentGet(t *testing.T) {
	_, _, logoPath := fixtures(t)
	cache := NewLogoCache(8, time.Minute)

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := cache.Get(logoPath); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Fatalf("Get: %v", err)
	}
	if cache.Len() != 1 {
		t.Fatalf("cache holds %d entries, want 1", cache.Len())
	}
}
