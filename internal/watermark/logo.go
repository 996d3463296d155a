package watermark

import (
	"image"
	"os"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"
)

type logoEntry struct {
	img     image.Image
	modTime time.Time
	size    int64
}

// LogoCache keeps recently decoded logos in memory so a batch sharing one
// logo decodes it once. Entries are revalidated against the file's
// modification time and size on every lookup. It is safe for concurrent use.
type LogoCache struct {
	entries *expirable.LRU[string, logoEntry]
	group   singleflight.Group
}

// NewLogoCache returns a cache holding at most size logos for up to ttl.
func NewLogoCache(size int, ttl time.Duration) *LogoCache {
	return &LogoCache{
		entries: expirable.NewLRU[string, logoEntry](size, nil, ttl),
	}
}

// Get returns the decoded logo at path. Errors are *DecodeError.
func (c *LogoCache) Get(path string) (image.Image, error) {
	return c.get(path, DefaultMaxPixels)
}

func (c *LogoCache) get(path string, maxPixels int64) (image.Image, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}

	if e, ok := c.entries.Get(path); ok && e.modTime.Equal(info.ModTime()) && e.size == info.Size() {
		return e.img, nil
	}

	v, err, _ := c.group.Do(path, func() (interface{}, error) {
		img, _, err := decodeFile(path, maxPixels)
		if err != nil {
			return nil, err
		}
		c.entries.Add(path, logoEntry{img: img, modTime: info.ModTime(), size: info.Size()})
		return img, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(image.Image), nil
}

// Len reports the number of cached logos.
func (c *LogoCache) Len() int {
	return c.entries.Len()
}
