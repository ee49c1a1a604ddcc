// Package notify turns save outcomes into user-visible notifications.
package notify

import (
	"context"
	"log/slog"
	"path/filepath"

	"go.klb.dev/clipsave/internal/hub"
	"go.klb.dev/clipsave/internal/saveerr"
)

const title = "clipsave"

// Poster displays one notification.
type Poster interface {
	Post(ctx context.Context, title, body string) error
}

// Notifier subscribes to save outcomes. Cancellations never notify.
type Notifier struct {
	Poster Poster
	// Enabled is consulted per event so a preference change applies
	// without a restart. Nil means always on.
	Enabled func() bool
	// Successes also announces completed saves, not only failures.
	Successes bool
	Logger    *slog.Logger
}

// New returns a Notifier using the platform poster.
func New(log *slog.Logger) *Notifier {
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "notify")
	return &Notifier{Poster: platformPoster(log), Successes: true, Logger: log}
}

// Message returns the notification body for ev, or false when ev should
// not be shown.
func (n *Notifier) Message(ev hub.Event) (string, bool) {
	switch ev.Type {
	case hub.TypeSaveFailed:
		if ev.Err == nil || saveerr.Silent(ev.Err) {
			return "", false
		}
		return "Save failed: " + ev.Err.Error(), true
	case hub.TypeSaveCompleted:
		if !n.Successes {
			return "", false
		}
		return "Saved " + filepath.Base(ev.Path), true
	}
	return "", false
}

// Run posts notifications for events published on h until ctx ends.
func (n *Notifier) Run(ctx context.Context, h *hub.Hub) error {
	sub := hub.NewChan("notify", 16, hub.TypeSaveCompleted, hub.TypeSaveFailed)
	h.Register(sub)
	defer h.Unregister(sub)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-sub.C():
			n.handle(ctx, ev)
		}
	}
}

func (n *Notifier) handle(ctx context.Context, ev hub.Event) {
	if n.Enabled != nil && !n.Enabled() {
		return
	}
	body, ok := n.Message(ev)
	if !ok || n.Poster == nil {
		return
	}
	if err := n.Poster.Post(ctx, title, body); err != nil {
		n.logger().Debug("notification failed", "err", err)
	}
}

func (n *Notifier) logger() *slog.Logger {
	if n.Logger == nil {
		return slog.Default()
	}
	return n.Logger
}

// LogPoster writes notifications to the log.
type LogPoster struct{ Log *slog.Logger }

func (p LogPoster) Post(_ context.Context, title, body string) error {
	p.Log.Info(body, "notification", title)
	return nil
}
