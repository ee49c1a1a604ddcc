// Package preview lets the user inspect and edit a converted artifact in an
// external viewer before it is committed to its destination.
package preview

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"go.klb.dev/clipsave/internal/content"
	"go.klb.dev/clipsave/internal/saveerr"
)

// Category picks the viewer application.
type Category int

const (
	CategoryImage Category = iota
	CategoryDocument
	CategoryText
)

func (c Category) String() string {
	switch c {
	case CategoryImage:
		return "image"
	case CategoryDocument:
		return "document"
	default:
		return "text"
	}
}

// CategoryFor maps a content kind to its viewer category.
func CategoryFor(k content.Kind) Category {
	switch k {
	case content.KindImage:
		return CategoryImage
	case content.KindPDF:
		return CategoryDocument
	default:
		return CategoryText
	}
}

// Outcome is how a preview session ended.
type Outcome int

const (
	OutcomeCommit Outcome = iota
	OutcomeCancel
)

func (o Outcome) String() string {
	if o == OutcomeCommit {
		return "commit"
	}
	return "cancel"
}

// Session is one open document in an external viewer.
type Session interface {
	// Wait blocks until the user commits or cancels, or ctx is done.
	Wait(ctx context.Context) (Outcome, error)
	// Close dismisses the viewer window. Best effort.
	Close() error
}

// Launcher opens documents in an external viewer.
type Launcher interface {
	Open(ctx context.Context, path string, cat Category) (Session, error)
}

const tempPrefix = "clipsave-preview-"

// Coordinator runs the preview protocol around a temporary file.
type Coordinator struct {
	Launcher Launcher
	// TempDir overrides os.TempDir for preview files.
	TempDir string
	// Timeout bounds the wait for a decision. Zero waits indefinitely.
	Timeout time.Duration
	Logger  *slog.Logger
}

// New returns a Coordinator using the platform launcher.
func New(tempDir string, log *slog.Logger) *Coordinator {
	if log == nil {
		log = slog.Default()
	}
	return &Coordinator{
		Launcher: platformLauncher(),
		TempDir:  tempDir,
		Logger:   log.With("component", "preview"),
	}
}

// Prepare writes data to a uniquely named temp file and returns its path.
func (c *Coordinator) Prepare(data []byte, ext string) (string, error) {
	return c.PrepareIn("", data, ext)
}

// PrepareIn is Prepare with a per-call temp directory. An empty dir uses
// the coordinator's TempDir.
func (c *Coordinator) PrepareIn(dir string, data []byte, ext string) (string, error) {
	if dir == "" {
		dir = c.TempDir
	}
	if dir == "" {
		dir = os.TempDir()
	}
	name := tempPrefix + uuid.NewString()
	if ext = strings.TrimPrefix(ext, "."); ext != "" {
		name += "." + ext
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("%w: write temp file: %v", saveerr.ErrPreviewFailed, err)
	}
	return path, nil
}

// Await opens tmp in the viewer and waits for the user. On commit the
// (possibly edited) file is moved to dest. The temp file is gone when
// Await returns, whatever the outcome.
func (c *Coordinator) Await(ctx context.Context, tmp string, cat Category, dest string) error {
	log := c.logger()
	defer func() {
		if err := os.Remove(tmp); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Warn("temp file cleanup failed", "path", tmp, "err", err)
		}
	}()

	if c.Launcher == nil {
		return fmt.Errorf("%w: no viewer available", saveerr.ErrPreviewFailed)
	}
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	sess, err := c.Launcher.Open(ctx, tmp, cat)
	if err != nil {
		return fmt.Errorf("%w: open viewer: %v", saveerr.ErrPreviewFailed, err)
	}
	closeSession := func() {
		if err := sess.Close(); err != nil {
			log.Debug("viewer close failed", "err", err)
		}
	}

	outcome, err := sess.Wait(ctx)
	switch {
	case err != nil && ctx.Err() != nil:
		closeSession()
		return fmt.Errorf("%w: %v", saveerr.ErrUserCancelled, ctx.Err())
	case err != nil:
		closeSession()
		return fmt.Errorf("%w: %v", saveerr.ErrPreviewFailed, err)
	case outcome == OutcomeCancel:
		closeSession()
		return saveerr.ErrUserCancelled
	}

	log.Debug("preview committed", "path", tmp, "dest", dest)
	if err := moveFile(tmp, dest); err != nil {
		closeSession()
		return err
	}
	closeSession()
	return nil
}

func (c *Coordinator) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}

// moveFile renames src to dst, falling back to copy and delete across
// filesystems.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		_ = os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dst)
		return err
	}
	return os.Remove(src)
}
