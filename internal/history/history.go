// Package history keeps the list of recently saved files.
package history

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"go.klb.dev/clipsave/internal/hub"
)

// DefaultSize matches the recent-files menu.
const DefaultSize = 10

// Entry is one saved artifact.
type Entry struct {
	Path    string    `yaml:"path" json:"path"`
	SavedAt time.Time `yaml:"saved_at" json:"saved_at"`
}

type file struct {
	Version int     `yaml:"version"`
	Entries []Entry `yaml:"entries"`
}

// Recorder holds the newest entries first. With a path set, every change
// is written through to a YAML file.
type Recorder struct {
	mu      sync.Mutex
	path    string
	size    int
	entries []Entry
	log     *slog.Logger
}

// Open loads the history at path. A missing file is an empty history; an
// empty path keeps history in memory only.
func Open(path string, size int, log *slog.Logger) (*Recorder, error) {
	if log == nil {
		log = slog.Default()
	}
	if size <= 0 {
		size = DefaultSize
	}
	r := &Recorder{path: path, size: size, log: log.With("component", "history")}
	if path == "" {
		return r, nil
	}

	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return r, nil
	}
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	var f file
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("history %s: %w", path, err)
	}
	r.entries = f.Entries
	if len(r.entries) > size {
		r.entries = r.entries[:size]
	}
	return r, nil
}

// Add records a saved path, moving it to the front if already present.
func (r *Recorder) Add(e Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries = slices.DeleteFunc(r.entries, func(x Entry) bool { return x.Path == e.Path })
	r.entries = slices.Insert(r.entries, 0, e)
	if len(r.entries) > r.size {
		r.entries = r.entries[:r.size]
	}
	return r.persistLocked()
}

// Recent returns up to n entries, newest first. n <= 0 returns all.
func (r *Recorder) Recent(n int) []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n <= 0 || n > len(r.entries) {
		n = len(r.entries)
	}
	return slices.Clone(r.entries[:n])
}

// Clear drops every entry.
func (r *Recorder) Clear() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = nil
	return r.persistLocked()
}

// Run records every save-completed event published on h until ctx ends.
func (r *Recorder) Run(ctx context.Context, h *hub.Hub) error {
	sub := hub.NewChan("history", 16, hub.TypeSaveCompleted)
	h.Register(sub)
	defer h.Unregister(sub)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-sub.C():
			if err := r.Add(Entry{Path: ev.Path, SavedAt: ev.At}); err != nil {
				r.log.Warn("history write failed", "err", err)
			}
		}
	}
}

func (r *Recorder) persistLocked() error {
	if r.path == "" {
		return nil
	}
	b, err := yaml.Marshal(file{Version: 1, Entries: r.entries})
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return err
	}
	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, r.path)
}
