package utils

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// SanitizeFilename reduces a client supplied filename to a safe, flat ASCII
// name. Accented letters are folded to their base letter, path separators and
// whitespace become underscores and everything else outside [A-Za-z0-9_.-] is
// dropped. The result may be empty.
func SanitizeFilename(name string) string {
	folded := strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '\\':
			return ' '
		case r > unicode.MaxASCII:
			return -1
		}
		return r
	}, norm.NFKD.String(name))

	folded = strings.Join(strings.Fields(folded), "_")
	folded = unsafeFilenameChars.ReplaceAllString(folded, "")
	return strings.Trim(folded, "._")
}

// UniqueName returns name, or name with a numeric suffix before the extension,
// such that taken reports false for it.
func UniqueName(name string, taken func(string) bool) string {
	if !taken(name) {
		return name
	}
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s_%d%s", stem, i, ext)
		if !taken(candidate) {
			return candidate
		}
	}
}

// GenerateStorageKey builds an object key under prefix that will not collide
// with earlier uploads of the same filename.
func GenerateStorageKey(prefix, filename string) string {
	ext := filepath.Ext(filename)
	name := strings.TrimSuffix(filename, ext)
	timestamp := time.Now().Unix()
	uuid := uuid.New().String()[:8]

	return fmt.Sprintf("%s/%s_%d_%s%s", prefix, name, timestamp, uuid, ext)
}
