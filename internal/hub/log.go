package hub

import (
	"context"
	"log/slog"

	"go.klb.dev/clipsave/internal/content"
	"go.klb.dev/clipsave/internal/saveerr"
)

// LogEvent logs an event at INFO and, for content changes, a short preview
// of the content at DEBUG (text up to 120 chars, or byte size for binary).
func LogEvent(log *slog.Logger, ev Event) {
	switch ev.Type {
	case TypeContentChanged:
		log.Info("clipboard content changed",
			"kind", ev.Snapshot.Kind().String(),
			"seq", ev.Snapshot.Seq,
			"placeholder", ev.Snapshot.Placeholder,
		)
		logContent(log, ev.Snapshot.Content)
	case TypeSaveCompleted:
		log.Info("save completed", "path", ev.Path)
	case TypeSaveFailed:
		log.Error("save failed", "err", ev.Err, "kind", saveerr.KindOf(ev.Err))
	default:
		log.Info(string(ev.Type))
	}
}

func logContent(log *slog.Logger, c content.Content) {
	if !log.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	switch v := c.(type) {
	case content.Text:
		preview := v.Value
		if len(preview) > 120 {
			preview = preview[:120] + "…"
		}
		log.Debug("clipboard item", "kind", "text", "preview", preview)
	case content.RTF:
		log.Debug("clipboard item", "kind", "rtf", "size_bytes", len(v.Data()))
	case content.PDF:
		log.Debug("clipboard item", "kind", "pdf", "size_bytes", len(v.Data()))
	case content.Image:
		if v.Bitmap != nil {
			b := v.Bitmap.Bounds()
			log.Debug("clipboard item", "kind", "image", "width", b.Dx(), "height", b.Dy())
		}
	case content.File:
		log.Debug("clipboard item", "kind", "file", "path", v.Path)
	case content.MultipleFiles:
		log.Debug("clipboard item", "kind", "files", "paths", v.Paths())
	}
}
