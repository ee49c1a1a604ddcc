package dest

import (
	"fmt"
	"strings"
	"time"

	"go.klb.dev/clipsave/internal/content"
)

// TimestampLayout is yyyyMMdd_HHmmss.
const TimestampLayout = "20060102_150405"

// Stem returns "{Base}_{timestamp}" for kind, in local time.
func Stem(kind content.Kind, now time.Time) string {
	return fmt.Sprintf("%s_%s", kind.BaseName(), now.Local().Format(TimestampLayout))
}

// Filename returns "{Base}_{timestamp}.{ext}". An empty ext yields the
// bare stem.
func Filename(kind content.Kind, ext string, now time.Time) string {
	ext = strings.TrimPrefix(ext, ".")
	if ext == "" {
		return Stem(kind, now)
	}
	return Stem(kind, now) + "." + ext
}
