// Package dest decides where a save lands.
//
// Precedence is the folder of the front file-browser window (when enabled),
// then the configured bookmark folder, then the fallback folder. A lease
// holds any scoped access to the chosen folder until the save finishes.
package dest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"go.klb.dev/clipsave/internal/saveerr"
)

// Source records which precedence tier produced a lease.
type Source string

const (
	SourceActiveWindow Source = "active-window"
	SourceBookmark     Source = "bookmark"
	SourceFallback     Source = "fallback"
	SourceChosen       Source = "chosen"
)

// FolderQuery returns the folder behind the front file-browser window.
type FolderQuery interface {
	ActiveFolder(ctx context.Context) (string, error)
}

// ErrNoActiveFolder is returned by a FolderQuery when no window is open.
var ErrNoActiveFolder = errors.New("no active file-browser window")

// Config is the per-operation view of the destination preferences.
type Config struct {
	UseActiveWindow bool
	Bookmark        []byte
	Fallback        string
}

// Resolver applies the precedence rules.
type Resolver struct {
	Finder    FolderQuery
	Bookmarks Bookmarks

	// OnRefresh persists bookmark data regenerated for a stale bookmark.
	OnRefresh func([]byte) error
	Logger    *slog.Logger
}

// NewResolver wires the platform folder query with file bookmarks.
func NewResolver(log *slog.Logger) *Resolver {
	if log == nil {
		log = slog.Default()
	}
	return &Resolver{
		Finder:    platformFinder(),
		Bookmarks: PathBookmarks{},
		Logger:    log.With("component", "dest"),
	}
}

// Resolve returns a lease on the destination folder. The caller must
// Release it once the save is done, on every path.
func (r *Resolver) Resolve(ctx context.Context, cfg Config) (*Lease, error) {
	log := r.logger()

	if cfg.UseActiveWindow && r.Finder != nil {
		dir, err := r.Finder.ActiveFolder(ctx)
		if err == nil {
			err = Check(dir)
		}
		if err == nil {
			return &Lease{Dir: dir, Source: SourceActiveWindow}, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		log.Debug("active window folder unavailable", "err", err)
	}

	if len(cfg.Bookmark) > 0 && r.Bookmarks != nil {
		return r.fromBookmark(cfg.Bookmark)
	}

	dir := cfg.Fallback
	if dir == "" {
		dir = DownloadsDir()
	}
	if err := Check(dir); err != nil {
		return nil, err
	}
	return &Lease{Dir: dir, Source: SourceFallback}, nil
}

func (r *Resolver) fromBookmark(data []byte) (*Lease, error) {
	log := r.logger()

	path, stale, err := r.Bookmarks.Resolve(data)
	if err != nil {
		return nil, fmt.Errorf("%w: bookmark: %v", saveerr.ErrAccessDenied, err)
	}

	release, err := r.Bookmarks.Access(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", saveerr.ErrAccessDenied, path, err)
	}
	lease := &Lease{Dir: path, Source: SourceBookmark, release: release}

	if err := Check(path); err != nil {
		lease.Release()
		return nil, err
	}

	if stale {
		fresh, err := r.Bookmarks.Refresh(path)
		switch {
		case err != nil:
			log.Warn("bookmark refresh failed", "path", path, "err", err)
		case r.OnRefresh != nil:
			if err := r.OnRefresh(fresh); err != nil {
				log.Warn("bookmark write-back failed", "path", path, "err", err)
			} else {
				log.Info("stale bookmark refreshed", "path", path)
			}
		}
	}
	return lease, nil
}

func (r *Resolver) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.Default()
	}
	return r.Logger
}

// Lease is a resolved destination folder plus any scoped access held on it.
type Lease struct {
	Dir    string
	Source Source

	once    sync.Once
	release func()
}

// Open checks dir and leases it without scoped access, for folders the
// user picked directly.
func Open(dir string) (*Lease, error) {
	if err := Check(dir); err != nil {
		return nil, err
	}
	return &Lease{Dir: dir, Source: SourceChosen}, nil
}

// Path joins name onto the leased folder.
func (l *Lease) Path(name string) string { return filepath.Join(l.Dir, name) }

// Release gives up scoped access. Safe to call more than once.
func (l *Lease) Release() {
	l.once.Do(func() {
		if l.release != nil {
			l.release()
		}
	})
}

// Check verifies that dir exists, is a directory and is writable.
func Check(dir string) error {
	if dir == "" {
		return fmt.Errorf("%w: empty path", saveerr.ErrInvalidSaveLocation)
	}
	info, err := os.Stat(dir)
	switch {
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%w: %s", saveerr.ErrAccessDenied, dir)
	case err != nil:
		return fmt.Errorf("%w: %v", saveerr.ErrInvalidSaveLocation, err)
	case !info.IsDir():
		return fmt.Errorf("%w: %s is not a directory", saveerr.ErrInvalidSaveLocation, dir)
	}
	if err := writable(dir); err != nil {
		return fmt.Errorf("%w: %s is not writable: %v", saveerr.ErrAccessDenied, dir, err)
	}
	return nil
}

// DownloadsDir is the fallback folder: ~/Downloads, or the temp dir when
// there is no home directory.
func DownloadsDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return os.TempDir()
	}
	return filepath.Join(home, "Downloads")
}
