//go:build linux

package clip

import (
	"bytes"
	"errors"
	"log/slog"
	"sync"

	"golang.design/x/clipboard"
)

type linuxBackend struct {
	mu       sync.Mutex
	count    int64
	lastText []byte
	lastImg  []byte
}

// New returns the Linux clipboard backend, or a headless no-op backend if
// the display environment is unavailable (e.g. a headless server without X11
// or Wayland).
//
// X11/Wayland expose no change counter, so ChangeCount synthesises one: it
// reads both representations and bumps the counter when either differs from
// the previous read.
func New() Backend {
	if err := clipboard.Init(); err != nil {
		slog.Warn("clipboard unavailable, running headless", "err", err)
		return &headlessBackend{}
	}
	return &linuxBackend{}
}

func (b *linuxBackend) Name() string { return "Linux clipboard (poll)" }

func (b *linuxBackend) ChangeCount() int64 {
	text := clipboard.Read(clipboard.FmtText)
	img := clipboard.Read(clipboard.FmtImage)

	b.mu.Lock()
	defer b.mu.Unlock()
	if !bytes.Equal(text, b.lastText) || !bytes.Equal(img, b.lastImg) {
		b.lastText = text
		b.lastImg = img
		b.count++
	}
	return b.count
}

func (b *linuxBackend) Image() []byte { return clipboard.Read(clipboard.FmtImage) }

// PDF, RTF and file lists are not exposed by golang.design/x/clipboard on
// Linux; those tiers never match there.
func (b *linuxBackend) PDF() []byte     { return nil }
func (b *linuxBackend) RTF() []byte     { return nil }
func (b *linuxBackend) Files() []string { return nil }

func (b *linuxBackend) Text() (string, bool) {
	text := clipboard.Read(clipboard.FmtText)
	if text == nil {
		return "", false
	}
	return string(text), true
}

func (b *linuxBackend) Relinquish() error {
	return errors.ErrUnsupported
}

func (b *linuxBackend) Close() {}
