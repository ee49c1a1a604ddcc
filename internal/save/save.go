// Package save composes the codec set, archive adapter, destination
// resolver and preview coordinator into the two save operations.
package save

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.klb.dev/clipsave/internal/content"
	"go.klb.dev/clipsave/internal/dest"
	"go.klb.dev/clipsave/internal/hub"
	"go.klb.dev/clipsave/internal/preview"
	"go.klb.dev/clipsave/internal/prefs"
	"go.klb.dev/clipsave/internal/saveerr"
)

type Encoder interface {
	Encode(c content.Content, f content.Format) ([]byte, error)
}

type Archiver interface {
	Commit(ctx context.Context, sources []string, dest string, compress bool) (string, error)
}

type Resolver interface {
	Resolve(ctx context.Context, cfg dest.Config) (*dest.Lease, error)
}

type Previewer interface {
	PrepareIn(dir string, data []byte, ext string) (string, error)
	Await(ctx context.Context, tmp string, cat preview.Category, dest string) error
}

// Prefs is the slice of the preference store the pipeline reads and writes.
type Prefs interface {
	Load() (prefs.Preferences, error)
	SetCompress(on bool) error
	SetDefaultFormat(k content.Kind, f content.Format) error
}

// Deps are the collaborators of an Orchestrator. Preview and Chooser may
// be nil; saves then skip preview and SaveInteractive is unavailable.
type Deps struct {
	Codec    Encoder
	Archive  Archiver
	Resolver Resolver
	Preview  Previewer
	Prefs    Prefs
	Chooser  Chooser
	Hub      *hub.Hub
	Now      func() time.Time
	Logger   *slog.Logger
}

// Orchestrator runs saves. It holds no per-save state and is safe for
// concurrent use.
type Orchestrator struct {
	d   Deps
	log *slog.Logger
}

func New(d Deps) *Orchestrator {
	if d.Now == nil {
		d.Now = time.Now
	}
	log := d.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{d: d, log: log.With("component", "save")}
}

// job is one fully decided save.
type job struct {
	dir      string
	stem     string
	format   content.Format
	compress bool
	preview  bool
	tempDir  string
}

// SaveDirect saves snap without asking the user. An empty format uses the
// per-kind default; an explicit one becomes the new default on success.
func (o *Orchestrator) SaveDirect(ctx context.Context, snap content.Snapshot, format content.Format) (string, error) {
	path, err := o.saveDirect(ctx, snap, format)
	o.report(snap, path, err)
	return path, err
}

func (o *Orchestrator) saveDirect(ctx context.Context, snap content.Snapshot, format content.Format) (string, error) {
	kind, err := savable(snap)
	if err != nil {
		return "", err
	}
	p, err := o.d.Prefs.Load()
	if err != nil {
		return "", err
	}

	explicit := format != ""
	if !explicit {
		format = p.Format(kind)
	}
	if !content.Supports(kind, format) {
		return "", fmt.Errorf("%w: %q for %s", saveerr.ErrInvalidFileFormat, format, kind)
	}

	lease, err := o.d.Resolver.Resolve(ctx, destConfig(p))
	if err != nil {
		return "", err
	}
	defer lease.Release()

	path, err := o.write(ctx, snap.Content, job{
		dir:      lease.Dir,
		stem:     dest.Stem(kind, o.d.Now()),
		format:   format,
		compress: p.Compress,
		preview:  p.Preview,
		tempDir:  p.TempDir,
	})
	if err != nil {
		return "", err
	}
	if explicit {
		if err := o.d.Prefs.SetDefaultFormat(kind, format); err != nil {
			o.log.Warn("format preference not saved", "err", err)
		}
	}
	return path, nil
}

// SaveInteractive asks the Chooser for destination and format, then saves.
// Dismissing the chooser returns ErrUserCancelled.
func (o *Orchestrator) SaveInteractive(ctx context.Context, snap content.Snapshot) (string, error) {
	path, err := o.saveInteractive(ctx, snap)
	o.report(snap, path, err)
	return path, err
}

func (o *Orchestrator) saveInteractive(ctx context.Context, snap content.Snapshot) (string, error) {
	kind, err := savable(snap)
	if err != nil {
		return "", err
	}
	if o.d.Chooser == nil {
		return "", errors.New("interactive save needs a chooser")
	}
	p, err := o.d.Prefs.Load()
	if err != nil {
		return "", err
	}

	// The resolved folder only seeds the chooser; a resolver failure
	// still lets the user pick somewhere else.
	lease, err := o.d.Resolver.Resolve(ctx, destConfig(p))
	seed := dest.DownloadsDir()
	if err != nil {
		o.log.Debug("default destination unavailable", "err", err)
	} else {
		defer lease.Release()
		seed = lease.Dir
	}

	choice, err := o.d.Chooser.Choose(ctx, Proposal{
		Kind:     kind,
		Formats:  content.Formats(kind),
		Format:   p.Format(kind),
		Dir:      seed,
		Name:     dest.Stem(kind, o.d.Now()),
		Compress: p.Compress,
		Preview:  p.Preview,
	})
	if err != nil {
		return "", err
	}
	if !content.Supports(kind, choice.Format) {
		return "", fmt.Errorf("%w: %q for %s", saveerr.ErrInvalidFileFormat, choice.Format, kind)
	}
	if err := o.d.Prefs.SetCompress(choice.Compress); err != nil {
		o.log.Warn("compress preference not saved", "err", err)
	}

	dir := choice.Dir
	if lease == nil || filepath.Clean(dir) != filepath.Clean(lease.Dir) {
		chosen, err := dest.Open(dir)
		if err != nil {
			return "", err
		}
		defer chosen.Release()
		dir = chosen.Dir
	}

	return o.write(ctx, snap.Content, job{
		dir:      dir,
		stem:     stripExt(choice.Name, choice.Format),
		format:   choice.Format,
		compress: choice.Compress,
		preview:  choice.Preview,
		tempDir:  p.TempDir,
	})
}

func (o *Orchestrator) write(ctx context.Context, c content.Content, j job) (string, error) {
	kind := c.Kind()
	if kind == content.KindFile || kind == content.KindMultipleFiles {
		return o.writeFiles(ctx, c, j)
	}

	data, err := o.d.Codec.Encode(c, j.format)
	if err != nil {
		return "", err
	}
	name := j.stem + "." + j.format.Ext()

	if !j.compress {
		final := available(filepath.Join(j.dir, name))
		if err := o.produce(ctx, kind, data, j, final); err != nil {
			return "", err
		}
		return final, nil
	}

	stage, err := os.MkdirTemp(j.tempDir, "clipsave-stage-")
	if err != nil {
		return "", err
	}
	defer os.RemoveAll(stage)

	staged := filepath.Join(stage, name)
	if err := o.produce(ctx, kind, data, j, staged); err != nil {
		return "", err
	}
	return o.d.Archive.Commit(ctx, []string{staged}, available(filepath.Join(j.dir, j.stem+".zip")), true)
}

// produce puts data at path, through the preview when enabled.
func (o *Orchestrator) produce(ctx context.Context, kind content.Kind, data []byte, j job, path string) error {
	if !j.preview || o.d.Preview == nil {
		return writeAtomic(path, data)
	}
	tmp, err := o.d.Preview.PrepareIn(j.tempDir, data, j.format.Ext())
	if err != nil {
		return err
	}
	return o.d.Preview.Await(ctx, tmp, preview.CategoryFor(kind), path)
}

func (o *Orchestrator) writeFiles(ctx context.Context, c content.Content, j job) (string, error) {
	sources := content.SourcePaths(c)
	if j.preview {
		o.log.Debug("preview skipped for file references")
	}

	var target string
	switch {
	case j.compress:
		target = filepath.Join(j.dir, j.stem+".zip")
	case len(sources) == 1:
		target = filepath.Join(j.dir, j.stem+filepath.Ext(sources[0]))
	default:
		target = filepath.Join(j.dir, j.stem)
	}
	return o.d.Archive.Commit(ctx, sources, available(target), j.compress)
}

func (o *Orchestrator) report(snap content.Snapshot, path string, err error) {
	kind := snap.Kind()
	switch {
	case err == nil:
		o.log.Info("saved", "kind", kind, "path", path)
		o.publish(hub.Event{Type: hub.TypeSaveCompleted, Path: path})
	case saveerr.Silent(err):
		o.log.Debug("save cancelled", "kind", kind)
	default:
		o.log.Error("save failed", "kind", kind, "class", saveerr.KindOf(err), "err", err)
		o.publish(hub.Event{Type: hub.TypeSaveFailed, Err: err})
	}
}

func (o *Orchestrator) publish(ev hub.Event) {
	if o.d.Hub != nil {
		o.d.Hub.Publish(ev)
	}
}

func savable(snap content.Snapshot) (content.Kind, error) {
	if snap.Content == nil || snap.Placeholder || snap.Kind() == content.KindEmpty {
		return content.KindEmpty, saveerr.ErrInvalidData
	}
	return snap.Kind(), nil
}

func destConfig(p prefs.Preferences) dest.Config {
	return dest.Config{
		UseActiveWindow: p.UseActiveWindow,
		Bookmark:        p.BookmarkData(),
		Fallback:        p.FallbackDir,
	}
}

// stripExt drops a trailing ".ext" matching f from a user-typed name.
func stripExt(name string, f content.Format) string {
	if ext := "." + f.Ext(); strings.EqualFold(filepath.Ext(name), ext) {
		return strings.TrimSuffix(name, filepath.Ext(name))
	}
	return name
}

// available returns path, or "name (n).ext" for the first n >= 2 that
// does not exist yet.
func available(path string) string {
	if _, err := os.Lstat(path); errors.Is(err, os.ErrNotExist) {
		return path
	}
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	for i := 2; ; i++ {
		p := fmt.Sprintf("%s (%d)%s", base, i, ext)
		if _, err := os.Lstat(p); errors.Is(err, os.ErrNotExist) {
			return p
		}
	}
}

func writeAtomic(path string, data []byte) error {
	tmp := path + ".partial"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}
