// Package archive commits file-reference clipboard content to disk, either by
// copying the referenced files or by packing them into a zip archive.
package archive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"go.klb.dev/clipsave/internal/saveerr"
)

// partialSuffix marks in-progress outputs so a crash never leaves a
// truncated file under the final name.
const partialSuffix = ".partial"

// Adapter copies or compresses source paths into a destination.
type Adapter struct {
	// Workers bounds concurrent copies for multi-file commits. Zero means 4.
	Workers int
	Logger  *slog.Logger
}

// New returns an Adapter with default settings.
func New(log *slog.Logger) *Adapter {
	if log == nil {
		log = slog.Default()
	}
	return &Adapter{Logger: log}
}

// Commit writes sources to dest and returns the path actually written.
//
// With compress set, every source is packed into one zip and the returned
// path has a .zip extension. Otherwise a single source is copied verbatim
// to dest, and multiple sources are copied into a new directory named dest
// without its extension.
func (a *Adapter) Commit(ctx context.Context, sources []string, dest string, compress bool) (string, error) {
	if len(sources) == 0 {
		return "", fmt.Errorf("%w: no source files", saveerr.ErrInvalidData)
	}
	for _, src := range sources {
		if _, err := os.Lstat(src); err != nil {
			return "", fmt.Errorf("source %s: %w", src, err)
		}
	}

	switch {
	case compress:
		out := WithExt(dest, ".zip")
		if err := a.zipAtomic(ctx, sources, out); err != nil {
			return "", err
		}
		a.Logger.Debug("archive written", "path", out, "sources", len(sources))
		return out, nil
	case len(sources) == 1:
		if err := copyAtomic(ctx, sources[0], dest); err != nil {
			return "", err
		}
		return dest, nil
	default:
		dir := strings.TrimSuffix(dest, filepath.Ext(dest))
		if err := a.copyInto(ctx, sources, dir); err != nil {
			return "", err
		}
		return dir, nil
	}
}

func (a *Adapter) zipAtomic(ctx context.Context, sources []string, out string) error {
	tmp := out + partialSuffix
	if err := writeZip(ctx, sources, tmp); err != nil {
		_ = os.Remove(tmp)
		if errors.Is(err, context.Canceled) {
			return err
		}
		return fmt.Errorf("%w: %v", saveerr.ErrCompressionFailed, err)
	}
	if err := os.Rename(tmp, out); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

// copyInto copies each source under dir, keeping base names. The directory
// is created first; a failure partway leaves what was copied so far.
func (a *Adapter) copyInto(ctx context.Context, sources []string, dir string) error {
	if err := os.Mkdir(dir, 0o755); err != nil {
		return err
	}
	workers := a.Workers
	if workers <= 0 {
		workers = 4
	}

	names := uniqueNames(sources)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, src := range sources {
		dst := filepath.Join(dir, names[i])
		g.Go(func() error {
			if err := copyTree(gctx, src, dst); err != nil {
				return fmt.Errorf("copy %s: %w", filepath.Base(src), err)
			}
			return nil
		})
	}
	return g.Wait()
}

// WithExt replaces the extension of path with ext, which includes the dot.
func WithExt(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}

// uniqueNames returns base names for sources, suffixing duplicates as
// "name 2.ext", "name 3.ext" and so on.
func uniqueNames(sources []string) []string {
	seen := make(map[string]int, len(sources))
	out := make([]string, len(sources))
	for i, src := range sources {
		base := filepath.Base(src)
		n := seen[base]
		seen[base] = n + 1
		if n == 0 {
			out[i] = base
			continue
		}
		ext := filepath.Ext(base)
		out[i] = fmt.Sprintf("%s %d%s", strings.TrimSuffix(base, ext), n+1, ext)
	}
	return out
}
