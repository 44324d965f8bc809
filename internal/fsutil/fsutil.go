package fsutil

import (
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

// TempID returns prefix-<12 hex chars>.
func TempID(prefix string) string {
	id := uuid.New()
	return prefix + "-" + hex.EncodeToString(id[:6])
}

// TempPath returns a fresh path in the system temp dir, e.g. /tmp/voice-1a2b3c4d5e6f.mp3.
func TempPath(prefix, ext string) string {
	ext = strings.TrimPrefix(ext, ".")
	name := TempID(prefix)
	if ext != "" {
		name += "." + ext
	}
	return filepath.Join(os.TempDir(), name)
}

// IsTemp reports whether path lives under the system temp dir.
func IsTemp(path string) bool {
	if path == "" {
		return false
	}
	rel, err := filepath.Rel(os.TempDir(), path)
	return err == nil && rel != "." && !strings.HasPrefix(rel, "..")
}

// Slug lowercases and strips s down to a filename-safe token.
func Slug(s string) string {
	return slug.Make(s)
}

// RemoveTemp deletes every path that lives under the temp dir, ignoring
// anything else and any error.
func RemoveTemp(paths ...string) {
	for _, p := range paths {
		if IsTemp(p) {
			_ = os.Remove(p)
		}
	}
}
